package api

import (
	"errors"

	"fintrack/docs"
	"fintrack/internal/api/handlers"
	"fintrack/pkg/auth"
	"fintrack/pkg/config"
	"fintrack/pkg/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
	"go.uber.org/zap"
)

type Handlers struct {
	Imports      *handlers.ImportHandler
	Transactions *handlers.TransactionHandler
	Categories   *handlers.CategoryHandler
	Health       *handlers.HealthHandler
}

// SetupRouter wires the public and the authenticated routes. The body limit
// from cfg bounds upload size.
func SetupRouter(h Handlers, jwtManager *auth.JWTManager, cfg *config.ServerConfig, appLogger *zap.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "fintrack",
		BodyLimit:    cfg.MaxUploadMB << 20,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var e *fiber.Error
			if errors.As(err, &e) {
				code = e.Code
			}
			if code >= fiber.StatusInternalServerError {
				appLogger.Error("Unhandled request error", zap.String("path", c.Path()), zap.Error(err))
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))
	app.Use(logger.New())

	// importing docs registers the swagger document
	_ = docs.SwaggerInfo
	app.Get("/swagger/*", swagger.HandlerDefault)

	app.Get("/health", h.Health.Health)

	protected := app.Group("/api/v1", middleware.AuthMiddleware(jwtManager, appLogger))

	imports := protected.Group("/imports")
	imports.Post("/upload", h.Imports.Upload)
	imports.Post("/:id/mapping", h.Imports.SetMapping)
	imports.Post("/:id/execute", h.Imports.Execute)
	imports.Get("", h.Imports.ListJobs)

	transactions := protected.Group("/transactions")
	transactions.Post("/classify/batch", h.Transactions.ClassifyBatch)
	transactions.Post("/classify/auto-apply", h.Transactions.AutoApply)
	transactions.Post("/:id/classify", h.Transactions.Classify)
	transactions.Get("/:id/suggestions", h.Transactions.Suggestions)
	transactions.Post("/:id/apply-suggestion", h.Transactions.ApplySuggestion)
	transactions.Post("/:id/reject-suggestion", h.Transactions.RejectSuggestion)

	categories := protected.Group("/categories")
	categories.Get("", h.Categories.ListCategories)
	categories.Get("/:id", h.Categories.GetCategory)

	return app
}
