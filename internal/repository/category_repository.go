package repository

import (
	"context"

	"fintrack/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

var categoryColumns = []string{"id", "name", "parent_id", "category_type", "icon", "color", "is_system", "created_at"}

type CategoryRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewCategoryRepository(db *pgxpool.Pool, logger *zap.Logger) *CategoryRepository {
	return &CategoryRepository{
		db:     db,
		logger: logger,
	}
}

// FetchSystemCategories returns the flattened system taxonomy with parent names.
func (r *CategoryRepository) FetchSystemCategories(ctx context.Context) ([]models.CategoryInfo, error) {
	query := squirrel.Select("c.id", "c.name", "p.name", "c.category_type").
		From("categories c").
		LeftJoin("categories p ON p.id = c.parent_id").
		Where(squirrel.Eq{"c.is_system": true}).
		OrderBy("c.category_type", "p.name NULLS FIRST", "c.name").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []models.CategoryInfo
	for rows.Next() {
		var c models.CategoryInfo
		if err := rows.Scan(&c.ID, &c.Name, &c.ParentName, &c.CategoryType); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}

	return categories, rows.Err()
}

func (r *CategoryRepository) GetCategory(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	query := squirrel.Select(categoryColumns...).
		From("categories").
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	var c models.Category
	err = r.db.QueryRow(ctx, sql, args...).Scan(
		&c.ID, &c.Name, &c.ParentID, &c.CategoryType, &c.Icon, &c.Color, &c.IsSystem, &c.CreatedAt,
	)
	if err != nil {
		return nil, notFound(err)
	}

	return &c, nil
}

func (r *CategoryRepository) ListCategories(ctx context.Context, filter models.CategoryFilter) ([]*models.Category, error) {
	query := squirrel.Select(categoryColumns...).
		From("categories").
		OrderBy("category_type", "name").
		PlaceholderFormat(squirrel.Dollar)

	if filter.CategoryType != nil {
		query = query.Where(squirrel.Eq{"category_type": *filter.CategoryType})
	}
	if filter.ParentID != nil {
		query = query.Where(squirrel.Eq{"parent_id": *filter.ParentID})
	}
	if filter.SystemOnly {
		query = query.Where(squirrel.Eq{"is_system": true})
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []*models.Category
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(
			&c.ID, &c.Name, &c.ParentID, &c.CategoryType, &c.Icon, &c.Color, &c.IsSystem, &c.CreatedAt,
		); err != nil {
			return nil, err
		}
		categories = append(categories, &c)
	}

	return categories, rows.Err()
}

// Upsert inserts a category or refreshes an existing one with the same id.
func (r *CategoryRepository) Upsert(ctx context.Context, c *models.Category) error {
	query := squirrel.Insert("categories").
		Columns(categoryColumns...).
		Values(c.ID, c.Name, c.ParentID, c.CategoryType, c.Icon, c.Color, c.IsSystem, c.CreatedAt).
		Suffix("ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, parent_id = EXCLUDED.parent_id, " +
			"category_type = EXCLUDED.category_type, icon = EXCLUDED.icon, color = EXCLUDED.color, is_system = EXCLUDED.is_system").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}
