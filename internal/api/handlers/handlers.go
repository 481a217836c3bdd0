// Package handlers holds the Fiber handlers of the /api/v1 surface.
package handlers

import (
	"context"

	"fintrack/internal/models"
	"fintrack/internal/service"
	"fintrack/pkg/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Importer is implemented by service.ImportService.
type Importer interface {
	Upload(ctx context.Context, userID uuid.UUID, filename string, data []byte) (*service.UploadResult, error)
	SetMapping(ctx context.Context, userID, jobID uuid.UUID, mapping map[string]string) (*service.ValidationSummary, error)
	Execute(ctx context.Context, userID, jobID uuid.UUID, accountID *uuid.UUID) (*service.ExecuteResult, error)
	ListJobs(ctx context.Context, userID uuid.UUID) ([]*models.ImportJob, error)
}

// Classifier is implemented by service.TransactionClassifier.
type Classifier interface {
	ClassifyByID(ctx context.Context, userID, transactionID uuid.UUID) (*models.CategorySuggestion, error)
	ClassifyByIDs(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) ([]*models.CategorySuggestion, error)
	AutoApplySuggestions(ctx context.Context, userID uuid.UUID, minConfidence float64) int
	AcceptSuggestion(ctx context.Context, userID, transactionID, suggestionID uuid.UUID) (*models.CategorySuggestion, error)
	RejectSuggestion(ctx context.Context, userID, transactionID, suggestionID uuid.UUID) (*models.CategorySuggestion, error)
	SuggestionsForTransaction(ctx context.Context, userID, transactionID uuid.UUID) ([]*models.CategorySuggestion, error)
}

// Categories is implemented by service.CategoryService.
type Categories interface {
	List(ctx context.Context, filter models.CategoryFilter) ([]*models.Category, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Category, error)
}

var (
	_ Importer   = (*service.ImportService)(nil)
	_ Classifier = (*service.TransactionClassifier)(nil)
	_ Categories = (*service.CategoryService)(nil)
)

func getUserID(c *fiber.Ctx) (uuid.UUID, error) {
	userIDStr, ok := c.Locals(middleware.LocalUserID).(string)
	if !ok {
		return uuid.Nil, fiber.ErrUnauthorized
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return uuid.Nil, fiber.ErrUnauthorized
	}

	return userID, nil
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error": "Unauthorized",
	})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": msg,
	})
}
