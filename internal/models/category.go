package models

import (
	"time"

	"github.com/google/uuid"
)

type CategoryType string

const (
	CategoryTypeIncome   CategoryType = "income"
	CategoryTypeExpense  CategoryType = "expense"
	CategoryTypeTransfer CategoryType = "transfer"
)

type Category struct {
	ID           uuid.UUID    `db:"id"`
	Name         string       `db:"name"`
	ParentID     *uuid.UUID   `db:"parent_id"`
	CategoryType CategoryType `db:"category_type"`
	Icon         *string      `db:"icon"`
	Color        *string      `db:"color"`
	IsSystem     bool         `db:"is_system"`
	CreatedAt    time.Time    `db:"created_at"`
}

// CategoryInfo is the flattened taxonomy entry handed to classifiers.
type CategoryInfo struct {
	ID           uuid.UUID
	Name         string
	ParentName   *string
	CategoryType CategoryType
}

type CategoryFilter struct {
	CategoryType *CategoryType
	ParentID     *uuid.UUID
	SystemOnly   bool
}
