package repository

import (
	"context"

	"fintrack/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

var transactionColumns = []string{
	"id", "user_id", "account_id", "import_job_id", "transaction_date", "description", "merchant_name",
	"amount", "currency", "transaction_type", "category_id", "reference_number", "created_at", "updated_at",
}

type TransactionFilter struct {
	ImportJobID   *uuid.UUID
	Uncategorized bool
	Limit         uint64
	Offset        uint64
}

type TransactionRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewTransactionRepository(db *pgxpool.Pool, logger *zap.Logger) *TransactionRepository {
	return &TransactionRepository{
		db:     db,
		logger: logger,
	}
}

func (r *TransactionRepository) CreateBatch(ctx context.Context, transactions []*models.Transaction) error {
	return chunkRange(len(transactions), maxInsertRows, func(lo, hi int) error {
		builder := squirrel.Insert("transactions").
			Columns(transactionColumns...).
			PlaceholderFormat(squirrel.Dollar)

		for _, tx := range transactions[lo:hi] {
			builder = builder.Values(
				tx.ID, tx.UserID, tx.AccountID, tx.ImportJobID, tx.Date, tx.Description, tx.MerchantName,
				tx.Amount, tx.Currency, tx.TransactionType, tx.CategoryID, tx.ReferenceNumber, tx.CreatedAt, tx.UpdatedAt,
			)
		}

		sql, args, err := builder.ToSql()
		if err != nil {
			return err
		}

		_, err = r.db.Exec(ctx, sql, args...)
		return err
	})
}

func (r *TransactionRepository) GetByID(ctx context.Context, userID, id uuid.UUID) (*models.Transaction, error) {
	txs, err := r.query(ctx, squirrel.Eq{"id": id, "user_id": userID}, TransactionFilter{Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(txs) == 0 {
		return nil, ErrNotFound
	}
	return txs[0], nil
}

// GetByIDs returns the user's transactions among ids; unknown ids are skipped.
func (r *TransactionRepository) GetByIDs(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) ([]*models.Transaction, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return r.query(ctx, squirrel.Eq{"id": ids, "user_id": userID}, TransactionFilter{})
}

func (r *TransactionRepository) FindTransactionsByUser(ctx context.Context, userID uuid.UUID, filter TransactionFilter) ([]*models.Transaction, error) {
	where := squirrel.And{squirrel.Eq{"user_id": userID}}
	if filter.ImportJobID != nil {
		where = append(where, squirrel.Eq{"import_job_id": *filter.ImportJobID})
	}
	if filter.Uncategorized {
		where = append(where, squirrel.Eq{"category_id": nil})
	}
	return r.query(ctx, where, filter)
}

func (r *TransactionRepository) query(ctx context.Context, where squirrel.Sqlizer, filter TransactionFilter) ([]*models.Transaction, error) {
	query := squirrel.Select(transactionColumns...).
		From("transactions").
		Where(where).
		OrderBy("transaction_date DESC", "created_at DESC").
		PlaceholderFormat(squirrel.Dollar)
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
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

	var transactions []*models.Transaction
	for rows.Next() {
		var tx models.Transaction
		if err := rows.Scan(
			&tx.ID, &tx.UserID, &tx.AccountID, &tx.ImportJobID, &tx.Date, &tx.Description, &tx.MerchantName,
			&tx.Amount, &tx.Currency, &tx.TransactionType, &tx.CategoryID, &tx.ReferenceNumber, &tx.CreatedAt, &tx.UpdatedAt,
		); err != nil {
			return nil, err
		}
		transactions = append(transactions, &tx)
	}

	return transactions, rows.Err()
}

// UpdateTransactionCategory sets the category unconditionally. Used for
// explicit user decisions only.
func (r *TransactionRepository) UpdateTransactionCategory(ctx context.Context, userID, transactionID, categoryID uuid.UUID) error {
	query := squirrel.Update("transactions").
		Set("category_id", categoryID).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": transactionID, "user_id": userID}).
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

// UpdateTransactionCategoryIfUnset is a compare-and-set: it writes only while
// category_id is still NULL and reports whether it did.
func (r *TransactionRepository) UpdateTransactionCategoryIfUnset(ctx context.Context, userID, transactionID, categoryID uuid.UUID) (bool, error) {
	query := squirrel.Update("transactions").
		Set("category_id", categoryID).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": transactionID, "user_id": userID, "category_id": nil}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return false, err
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
