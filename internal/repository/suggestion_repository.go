package repository

import (
	"context"

	"fintrack/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

var suggestionColumns = []string{
	"id", "transaction_id", "category_id", "confidence_score", "llm_provider", "llm_model",
	"prompt_hash", "response_data", "is_accepted", "created_at",
}

// SuggestionRepository stores category_suggestions. Rows are write-once
// apart from is_accepted.
type SuggestionRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewSuggestionRepository(db *pgxpool.Pool, logger *zap.Logger) *SuggestionRepository {
	return &SuggestionRepository{
		db:     db,
		logger: logger,
	}
}

func (r *SuggestionRepository) InsertSuggestion(ctx context.Context, s *models.CategorySuggestion) error {
	return r.BulkInsertSuggestions(ctx, []*models.CategorySuggestion{s})
}

// BulkInsertSuggestions writes all rows in one statement, so either all of
// them land or none do.
func (r *SuggestionRepository) BulkInsertSuggestions(ctx context.Context, suggestions []*models.CategorySuggestion) error {
	if len(suggestions) == 0 {
		return nil
	}

	builder := squirrel.Insert("category_suggestions").
		Columns(suggestionColumns...).
		PlaceholderFormat(squirrel.Dollar)

	for _, s := range suggestions {
		builder = builder.Values(
			s.ID, s.TransactionID, s.CategoryID, s.ConfidenceScore, s.LLMProvider, s.LLMModel,
			s.PromptHash, []byte(s.ResponseData), s.IsAccepted, s.CreatedAt,
		)
	}

	sql, args, err := builder.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

func (r *SuggestionRepository) UpdateSuggestionAccepted(ctx context.Context, id uuid.UUID, accepted bool) error {
	query := squirrel.Update("category_suggestions").
		Set("is_accepted", accepted).
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// FindPendingSuggestions lists undecided suggestions at or above minConfidence
// for the user's transactions that still have no category, best first.
func (r *SuggestionRepository) FindPendingSuggestions(ctx context.Context, userID uuid.UUID, minConfidence float64) ([]*models.CategorySuggestion, error) {
	query := r.selectJoined().
		Where(squirrel.Eq{"t.user_id": userID, "t.category_id": nil, "s.is_accepted": nil}).
		Where(squirrel.GtOrEq{"s.confidence_score": minConfidence}).
		OrderBy("s.confidence_score DESC", "s.created_at ASC")

	return r.list(ctx, query)
}

// GetByID returns a suggestion only if its transaction belongs to userID.
func (r *SuggestionRepository) GetByID(ctx context.Context, userID, id uuid.UUID) (*models.CategorySuggestion, error) {
	list, err := r.list(ctx, r.selectJoined().Where(squirrel.Eq{"s.id": id, "t.user_id": userID}).Limit(1))
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, ErrNotFound
	}
	return list[0], nil
}

func (r *SuggestionRepository) ListByTransaction(ctx context.Context, userID, transactionID uuid.UUID) ([]*models.CategorySuggestion, error) {
	query := r.selectJoined().
		Where(squirrel.Eq{"s.transaction_id": transactionID, "t.user_id": userID}).
		OrderBy("s.confidence_score DESC", "s.created_at DESC")

	return r.list(ctx, query)
}

func (r *SuggestionRepository) selectJoined() squirrel.SelectBuilder {
	cols := make([]string, len(suggestionColumns))
	for i, c := range suggestionColumns {
		cols[i] = "s." + c
	}
	return squirrel.Select(cols...).
		From("category_suggestions s").
		Join("transactions t ON t.id = s.transaction_id").
		PlaceholderFormat(squirrel.Dollar)
}

func (r *SuggestionRepository) list(ctx context.Context, query squirrel.SelectBuilder) ([]*models.CategorySuggestion, error) {
	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var suggestions []*models.CategorySuggestion
	for rows.Next() {
		var (
			s    models.CategorySuggestion
			data []byte
		)
		if err := rows.Scan(
			&s.ID, &s.TransactionID, &s.CategoryID, &s.ConfidenceScore, &s.LLMProvider, &s.LLMModel,
			&s.PromptHash, &data, &s.IsAccepted, &s.CreatedAt,
		); err != nil {
			return nil, err
		}
		s.ResponseData = data
		suggestions = append(suggestions, &s)
	}

	return suggestions, rows.Err()
}
