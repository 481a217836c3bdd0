package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fintrack/internal/api"
	"fintrack/internal/api/handlers"
	"fintrack/internal/llm"
	"fintrack/internal/models"
	"fintrack/internal/repository"
	"fintrack/internal/service"
	"fintrack/pkg/auth"
	"fintrack/pkg/config"
	"fintrack/pkg/logger"
	"fintrack/pkg/postgres"

	"go.uber.org/zap"
)

// @title Fintrack Import API
// @version 1.0
// @description Bank statement import and LLM-assisted transaction categorisation
// @termsOfService http://swagger.io/terms/

// @contact.name API Support

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /

// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logger.Level); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	appLogger := logger.Get()
	appLogger.Info("Starting fintrack service", zap.String("llm_provider", cfg.LLM.Provider))

	ctx := context.Background()
	db, err := postgres.NewPool(ctx, &cfg.Database, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := postgres.Migrate(ctx, db, appLogger); err != nil {
			appLogger.Fatal("Failed to apply schema", zap.Error(err))
		}
	}

	categoryRepo := repository.NewCategoryRepository(db, appLogger)
	txRepo := repository.NewTransactionRepository(db, appLogger)
	suggestionRepo := repository.NewSuggestionRepository(db, appLogger)
	importRepo := repository.NewImportRepository(db, appLogger)

	chat, err := llm.NewChatModel(ctx, &cfg.LLM, logger.Named("llm"))
	if err != nil {
		appLogger.Fatal("Failed to initialize LLM client", zap.Error(err))
	}
	if closer, ok := chat.(io.Closer); ok {
		defer closer.Close()
	}

	llmOpts := llm.Options{
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Timeout:     cfg.LLM.Timeout,
		MaxAttempts: cfg.LLM.MaxRetries,
		RetryDelay:  cfg.LLM.RetryDelay,
	}
	providerLogger := logger.Named("classifier.provider")
	newProvider := func(categories []models.CategoryInfo) llm.Provider {
		return llm.NewLLMProvider(chat, categories, llmOpts, providerLogger)
	}

	classifier := service.NewTransactionClassifier(categoryRepo, suggestionRepo, txRepo, newProvider, service.ClassifierOptions{
		BatchSize:     cfg.Classifier.BatchSize,
		BatchDelay:    cfg.Classifier.BatchDelay,
		RetryAttempts: cfg.Classifier.RetryAttempts,
		RetryDelay:    cfg.Classifier.RetryDelay,
	}, logger.Named("classifier"))
	classifier.Initialize(ctx)

	queue := service.NewClassificationQueue(classifier, cfg.Classifier.QueueSize, cfg.Classifier.Workers, logger.Named("classify-queue"))

	importService := service.NewImportService(importRepo, txRepo, queue, service.ImportOptions{
		DefaultCurrency:     cfg.Import.DefaultCurrency,
		PreviewRows:         cfg.Import.PreviewRows,
		AutoApplyConfidence: cfg.Classifier.AutoApplyConfidence,
	}, logger.Named("import"))
	categoryService := service.NewCategoryService(categoryRepo, appLogger)

	jwtManager := auth.NewJWTManager(cfg.JWT.SecretKey, cfg.JWT.TokenTTL)

	app := api.SetupRouter(api.Handlers{
		Imports:      handlers.NewImportHandler(importService, appLogger),
		Transactions: handlers.NewTransactionHandler(classifier, cfg.Classifier.AutoApplyConfidence, appLogger),
		Categories:   handlers.NewCategoryHandler(categoryService, appLogger),
		Health:       handlers.NewHealthHandler(db, chat.Name(), appLogger),
	}, jwtManager, &cfg.Server, appLogger)

	go func() {
		addr := ":" + cfg.Server.Port
		appLogger.Info("Server starting", zap.String("address", addr))
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		appLogger.Error("Server shutdown error", zap.Error(err))
	}

	// let queued classification finish, within reason
	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := queue.Stop(stopCtx); err != nil {
		appLogger.Warn("Classification queue did not drain", zap.Error(err))
	}
}
