package dto

import (
	"time"

	"fintrack/internal/models"
)

type CategoryResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	ParentID     string `json:"parent_id,omitempty"`
	CategoryType string `json:"category_type"`
	Icon         string `json:"icon,omitempty"`
	Color        string `json:"color,omitempty"`
	IsSystem     bool   `json:"is_system"`
	CreatedAt    string `json:"created_at"`
}

type CategoriesResponse struct {
	Categories []CategoryResponse `json:"categories"`
}

func NewCategoryResponse(c *models.Category) CategoryResponse {
	resp := CategoryResponse{
		ID:           c.ID.String(),
		Name:         c.Name,
		CategoryType: string(c.CategoryType),
		IsSystem:     c.IsSystem,
		CreatedAt:    c.CreatedAt.Format(time.RFC3339),
	}
	if c.ParentID != nil {
		resp.ParentID = c.ParentID.String()
	}
	if c.Icon != nil {
		resp.Icon = *c.Icon
	}
	if c.Color != nil {
		resp.Color = *c.Color
	}
	return resp
}
