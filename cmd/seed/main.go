package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"fintrack/internal/models"
	"fintrack/internal/repository"
	"fintrack/pkg/config"
	"fintrack/pkg/logger"
	"fintrack/pkg/postgres"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.Logger.Level); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	appLogger := logger.Get()

	ctx := context.Background()
	db, err := postgres.NewPool(ctx, &cfg.Database, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := postgres.Migrate(ctx, db, appLogger); err != nil {
		appLogger.Fatal("Failed to apply schema", zap.Error(err))
	}

	categoryRepo := repository.NewCategoryRepository(db, appLogger)

	appLogger.Info("Seeding system categories...")

	categories := systemCategories(time.Now().UTC())
	for _, c := range categories {
		if err := categoryRepo.Upsert(ctx, c); err != nil {
			appLogger.Fatal("Failed to upsert category",
				zap.String("id", c.ID.String()),
				zap.String("name", c.Name),
				zap.Error(err),
			)
		}
	}

	appLogger.Info("Seeding completed", zap.Int("categories", len(categories)))
}

// seedCategory is one taxonomy entry. Numbers become the last digits of a
// fixed UUID so the keyword rules can reference them.
type seedCategory struct {
	num          int
	name         string
	parent       int
	categoryType models.CategoryType
	icon         string
	color        string
}

var taxonomy = []seedCategory{
	{num: 1, name: "Food & Dining", categoryType: models.CategoryTypeExpense, icon: "utensils", color: "#F97316"},
	{num: 2, name: "Transportation", categoryType: models.CategoryTypeExpense, icon: "car", color: "#3B82F6"},
	{num: 3, name: "Shopping", categoryType: models.CategoryTypeExpense, icon: "shopping-bag", color: "#EC4899"},
	{num: 4, name: "Entertainment", categoryType: models.CategoryTypeExpense, icon: "film", color: "#8B5CF6"},
	{num: 5, name: "Health & Fitness", categoryType: models.CategoryTypeExpense, icon: "heart", color: "#EF4444"},
	{num: 6, name: "Housing", categoryType: models.CategoryTypeExpense, icon: "home", color: "#14B8A6"},
	{num: 7, name: "Travel", categoryType: models.CategoryTypeExpense, icon: "plane", color: "#0EA5E9"},
	{num: 8, name: "Education", categoryType: models.CategoryTypeExpense, icon: "book", color: "#6366F1"},
	{num: 9, name: "Personal Care", categoryType: models.CategoryTypeExpense, icon: "smile", color: "#F472B6"},
	{num: 10, name: "Gifts & Donations", categoryType: models.CategoryTypeExpense, icon: "gift", color: "#A855F7"},
	{num: 11, name: "Fees & Charges", categoryType: models.CategoryTypeExpense, icon: "receipt", color: "#64748B"},
	{num: 12, name: "Subscriptions", categoryType: models.CategoryTypeExpense, icon: "repeat", color: "#22C55E"},
	{num: 13, name: "Insurance", categoryType: models.CategoryTypeExpense, icon: "shield", color: "#0F766E"},
	{num: 14, name: "Taxes", categoryType: models.CategoryTypeExpense, icon: "landmark", color: "#78716C"},
	{num: 15, name: "Other Expenses", categoryType: models.CategoryTypeExpense, icon: "circle", color: "#9CA3AF"},
	{num: 19, name: "Utilities", categoryType: models.CategoryTypeExpense, icon: "zap", color: "#EAB308"},

	{num: 21, name: "Restaurants", parent: 1, categoryType: models.CategoryTypeExpense},
	{num: 22, name: "Groceries", parent: 1, categoryType: models.CategoryTypeExpense},
	{num: 23, name: "Coffee Shops", parent: 1, categoryType: models.CategoryTypeExpense},
	{num: 31, name: "Gas & Fuel", parent: 2, categoryType: models.CategoryTypeExpense},
	{num: 32, name: "Public Transit", parent: 2, categoryType: models.CategoryTypeExpense},
	{num: 33, name: "Parking", parent: 2, categoryType: models.CategoryTypeExpense},
	{num: 34, name: "Ride Share", parent: 2, categoryType: models.CategoryTypeExpense},
	{num: 51, name: "Electricity", parent: 19, categoryType: models.CategoryTypeExpense},
	{num: 52, name: "Water", parent: 19, categoryType: models.CategoryTypeExpense},
	{num: 53, name: "Internet", parent: 19, categoryType: models.CategoryTypeExpense},

	{num: 101, name: "Salary", categoryType: models.CategoryTypeIncome, icon: "briefcase", color: "#16A34A"},
	{num: 102, name: "Freelance", categoryType: models.CategoryTypeIncome, icon: "laptop", color: "#15803D"},
	{num: 103, name: "Investments", categoryType: models.CategoryTypeIncome, icon: "trending-up", color: "#166534"},
	{num: 104, name: "Refunds", categoryType: models.CategoryTypeIncome, icon: "rotate-ccw", color: "#4ADE80"},
	{num: 105, name: "Interest", categoryType: models.CategoryTypeIncome, icon: "percent", color: "#86EFAC"},
	{num: 106, name: "Other Income", categoryType: models.CategoryTypeIncome, icon: "plus-circle", color: "#BBF7D0"},

	{num: 201, name: "Transfer", categoryType: models.CategoryTypeTransfer, icon: "arrow-right-left", color: "#94A3B8"},
}

func categoryID(num int) uuid.UUID {
	return uuid.MustParse(fmt.Sprintf("00000000-0000-0000-0000-%012d", num))
}

// systemCategories returns the taxonomy with parents ahead of children, which
// the parent_id foreign key requires.
func systemCategories(now time.Time) []*models.Category {
	out := make([]*models.Category, 0, len(taxonomy))
	for _, s := range taxonomy {
		c := &models.Category{
			ID:           categoryID(s.num),
			Name:         s.name,
			CategoryType: s.categoryType,
			IsSystem:     true,
			CreatedAt:    now,
		}
		if s.parent != 0 {
			parentID := categoryID(s.parent)
			c.ParentID = &parentID
		}
		if s.icon != "" {
			icon := s.icon
			c.Icon = &icon
		}
		if s.color != "" {
			color := s.color
			c.Color = &color
		}
		out = append(out, c)
	}
	return out
}
