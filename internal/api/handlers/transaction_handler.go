package handlers

import (
	"context"
	"errors"

	"fintrack/internal/dto"
	"fintrack/internal/models"
	"fintrack/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type TransactionHandler struct {
	classifier    Classifier
	minConfidence float64
	logger        *zap.Logger
}

// NewTransactionHandler serves the classification endpoints. minConfidence is
// the auto-apply threshold used when a request does not name one.
func NewTransactionHandler(classifier Classifier, minConfidence float64, logger *zap.Logger) *TransactionHandler {
	return &TransactionHandler{
		classifier:    classifier,
		minConfidence: minConfidence,
		logger:        logger,
	}
}

// ClassifyBatch godoc
// @Summary Classify transactions
// @Description Classify the given transactions (or all uncategorized ones) and auto-apply confident suggestions unless auto_apply is false
// @Tags classification
// @Accept json
// @Produce json
// @Param request body dto.ClassifyBatchRequest false "Transactions and auto-apply settings"
// @Security Bearer
// @Success 200 {object} dto.ClassifyBatchResponse
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Router /api/v1/transactions/classify/batch [post]
func (h *TransactionHandler) ClassifyBatch(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	var req dto.ClassifyBatchRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid request body")
		}
	}

	minConfidence, ok := h.threshold(req.MinConfidence)
	if !ok {
		return badRequest(c, "min_confidence must be between 0 and 1")
	}

	ids := make([]uuid.UUID, 0, len(req.TransactionIDs))
	for _, raw := range req.TransactionIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return badRequest(c, "Invalid transaction ID: "+raw)
		}
		ids = append(ids, id)
	}

	suggestions, err := h.classifier.ClassifyByIDs(c.Context(), userID, ids)
	if err != nil {
		h.logger.Error("Classification failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Classification failed",
		})
	}

	autoApply := req.AutoApply == nil || *req.AutoApply
	applied := 0
	if autoApply && len(suggestions) > 0 {
		applied = h.classifier.AutoApplySuggestions(c.Context(), userID, minConfidence)
	}

	return c.JSON(dto.ClassifyBatchResponse{
		Suggestions:  dto.NewSuggestionResponses(suggestions),
		Count:        len(suggestions),
		AppliedCount: applied,
	})
}

// AutoApply godoc
// @Summary Auto-apply suggestions
// @Description Apply pending suggestions at or above min_confidence to uncategorized transactions
// @Tags classification
// @Accept json
// @Produce json
// @Param request body dto.AutoApplyRequest false "Threshold"
// @Security Bearer
// @Success 200 {object} dto.AutoApplyResponse
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Router /api/v1/transactions/classify/auto-apply [post]
func (h *TransactionHandler) AutoApply(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	var req dto.AutoApplyRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid request body")
		}
	}

	minConfidence, ok := h.threshold(req.MinConfidence)
	if !ok {
		return badRequest(c, "min_confidence must be between 0 and 1")
	}

	applied := h.classifier.AutoApplySuggestions(c.Context(), userID, minConfidence)
	return c.JSON(dto.AutoApplyResponse{AppliedCount: applied})
}

// Classify godoc
// @Summary Classify one transaction
// @Tags classification
// @Produce json
// @Param id path string true "Transaction ID"
// @Security Bearer
// @Success 200 {object} dto.SuggestionResponse
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 502 {object} map[string]string
// @Router /api/v1/transactions/{id}/classify [post]
func (h *TransactionHandler) Classify(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	txID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid transaction ID")
	}

	suggestion, err := h.classifier.ClassifyByID(c.Context(), userID, txID)
	if errors.Is(err, service.ErrTransactionNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Transaction not found"})
	}
	if err != nil {
		h.logger.Error("Failed to load transaction", zap.String("transaction_id", txID.String()), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Classification failed"})
	}
	if suggestion == nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "Classification unavailable"})
	}

	return c.JSON(dto.NewSuggestionResponse(suggestion))
}

// Suggestions godoc
// @Summary List suggestions of a transaction
// @Tags classification
// @Produce json
// @Param id path string true "Transaction ID"
// @Security Bearer
// @Success 200 {object} dto.SuggestionsResponse
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Router /api/v1/transactions/{id}/suggestions [get]
func (h *TransactionHandler) Suggestions(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	txID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid transaction ID")
	}

	list, err := h.classifier.SuggestionsForTransaction(c.Context(), userID, txID)
	if err != nil {
		h.logger.Error("Failed to list suggestions", zap.String("transaction_id", txID.String()), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to list suggestions"})
	}

	return c.JSON(dto.SuggestionsResponse{Suggestions: dto.NewSuggestionResponses(list)})
}

// ApplySuggestion godoc
// @Summary Apply a suggestion
// @Description Set the transaction category from a suggestion, replacing any existing category
// @Tags classification
// @Accept json
// @Produce json
// @Param id path string true "Transaction ID"
// @Param request body dto.SuggestionDecisionRequest true "Suggestion"
// @Security Bearer
// @Success 200 {object} dto.SuggestionResponse
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /api/v1/transactions/{id}/apply-suggestion [post]
func (h *TransactionHandler) ApplySuggestion(c *fiber.Ctx) error {
	return h.decide(c, h.classifier.AcceptSuggestion)
}

// RejectSuggestion godoc
// @Summary Reject a suggestion
// @Tags classification
// @Accept json
// @Produce json
// @Param id path string true "Transaction ID"
// @Param request body dto.SuggestionDecisionRequest true "Suggestion"
// @Security Bearer
// @Success 200 {object} dto.SuggestionResponse
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /api/v1/transactions/{id}/reject-suggestion [post]
func (h *TransactionHandler) RejectSuggestion(c *fiber.Ctx) error {
	return h.decide(c, h.classifier.RejectSuggestion)
}

type decision func(ctx context.Context, userID, transactionID, suggestionID uuid.UUID) (*models.CategorySuggestion, error)

func (h *TransactionHandler) decide(c *fiber.Ctx, apply decision) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	txID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid transaction ID")
	}

	var req dto.SuggestionDecisionRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	suggestionID, err := uuid.Parse(req.SuggestionID)
	if err != nil {
		return badRequest(c, "Invalid suggestion ID")
	}

	s, err := apply(c.Context(), userID, txID, suggestionID)
	if errors.Is(err, service.ErrSuggestionNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Suggestion not found"})
	}
	if err != nil {
		h.logger.Error("Failed to update suggestion",
			zap.String("transaction_id", txID.String()),
			zap.String("suggestion_id", suggestionID.String()),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update suggestion"})
	}

	return c.JSON(dto.NewSuggestionResponse(s))
}

func (h *TransactionHandler) threshold(requested *float64) (float64, bool) {
	if requested == nil {
		return h.minConfidence, true
	}
	v := *requested
	return v, v >= 0 && v <= 1
}
