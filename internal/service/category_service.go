package service

import (
	"context"
	"errors"

	"fintrack/internal/models"
	"fintrack/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrCategoryNotFound = errors.New("category not found")

type CategoryService struct {
	categories CategoryStore
	logger     *zap.Logger
}

func NewCategoryService(categories CategoryStore, logger *zap.Logger) *CategoryService {
	return &CategoryService{
		categories: categories,
		logger:     logger,
	}
}

func (s *CategoryService) List(ctx context.Context, filter models.CategoryFilter) ([]*models.Category, error) {
	categories, err := s.categories.ListCategories(ctx, filter)
	if err != nil {
		return nil, err
	}
	if categories == nil {
		categories = []*models.Category{}
	}
	return categories, nil
}

func (s *CategoryService) Get(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	category, err := s.categories.GetCategory(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrCategoryNotFound
	}
	return category, err
}
