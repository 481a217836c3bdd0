package handlers

import (
	"errors"

	"fintrack/internal/dto"
	"fintrack/internal/models"
	"fintrack/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type CategoryHandler struct {
	categories Categories
	logger     *zap.Logger
}

func NewCategoryHandler(categories Categories, logger *zap.Logger) *CategoryHandler {
	return &CategoryHandler{
		categories: categories,
		logger:     logger,
	}
}

// ListCategories godoc
// @Summary List categories
// @Tags categories
// @Produce json
// @Param type query string false "income, expense or transfer"
// @Param parent_id query string false "Parent category ID"
// @Param system query bool false "System categories only"
// @Security Bearer
// @Success 200 {object} dto.CategoriesResponse
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Router /api/v1/categories [get]
func (h *CategoryHandler) ListCategories(c *fiber.Ctx) error {
	var filter models.CategoryFilter

	if t := c.Query("type"); t != "" {
		ct := models.CategoryType(t)
		switch ct {
		case models.CategoryTypeIncome, models.CategoryTypeExpense, models.CategoryTypeTransfer:
			filter.CategoryType = &ct
		default:
			return badRequest(c, "Invalid category type")
		}
	}
	if p := c.Query("parent_id"); p != "" {
		id, err := uuid.Parse(p)
		if err != nil {
			return badRequest(c, "Invalid parent ID")
		}
		filter.ParentID = &id
	}
	filter.SystemOnly = c.QueryBool("system", false)

	list, err := h.categories.List(c.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to list categories", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list categories",
		})
	}

	resp := dto.CategoriesResponse{Categories: make([]dto.CategoryResponse, len(list))}
	for i, cat := range list {
		resp.Categories[i] = dto.NewCategoryResponse(cat)
	}
	return c.JSON(resp)
}

// GetCategory godoc
// @Summary Get a category
// @Tags categories
// @Produce json
// @Param id path string true "Category ID"
// @Security Bearer
// @Success 200 {object} dto.CategoryResponse
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /api/v1/categories/{id} [get]
func (h *CategoryHandler) GetCategory(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid category ID")
	}

	cat, err := h.categories.Get(c.Context(), id)
	if errors.Is(err, service.ErrCategoryNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Category not found"})
	}
	if err != nil {
		h.logger.Error("Failed to get category", zap.String("category_id", id.String()), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to get category"})
	}

	return c.JSON(dto.NewCategoryResponse(cat))
}
