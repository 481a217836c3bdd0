package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"fintrack/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

var importJobColumns = []string{
	"id", "user_id", "account_id", "file_name", "file_type", "status", "total_rows", "valid_rows",
	"invalid_rows", "imported_rows", "column_mapping", "error_message", "created_at", "updated_at", "completed_at",
}

var importRowColumns = []string{
	"id", "import_job_id", "row_number", "raw_data", "status", "validation_errors", "validation_warnings", "transaction_id",
}

type ImportRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewImportRepository(db *pgxpool.Pool, logger *zap.Logger) *ImportRepository {
	return &ImportRepository{
		db:     db,
		logger: logger,
	}
}

// CreateJob stores the job and its raw rows in one database transaction.
func (r *ImportRepository) CreateJob(ctx context.Context, job *models.ImportJob, rows []*models.ImportRow) error {
	mapping, err := json.Marshal(job.ColumnMapping)
	if err != nil {
		return fmt.Errorf("failed to encode column mapping: %w", err)
	}

	jobQuery := squirrel.Insert("import_jobs").
		Columns(importJobColumns...).
		Values(job.ID, job.UserID, job.AccountID, job.FileName, job.FileType, job.Status, job.TotalRows, job.ValidRows,
			job.InvalidRows, job.ImportedRows, mapping, job.ErrorMessage, job.CreatedAt, job.UpdatedAt, job.CompletedAt).
		PlaceholderFormat(squirrel.Dollar)

	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		sql, args, err := jobQuery.ToSql()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, sql, args...); err != nil {
			return fmt.Errorf("failed to insert import job: %w", err)
		}

		return chunkRange(len(rows), maxInsertRows, func(lo, hi int) error {
			builder := squirrel.Insert("import_rows").
				Columns(importRowColumns...).
				PlaceholderFormat(squirrel.Dollar)

			for _, row := range rows[lo:hi] {
				raw, errs, warns, err := encodeRow(row)
				if err != nil {
					return err
				}
				builder = builder.Values(row.ID, row.JobID, row.RowNumber, raw, row.Status, errs, warns, row.TransactionID)
			}

			sql, args, err := builder.ToSql()
			if err != nil {
				return err
			}
			_, err = tx.Exec(ctx, sql, args...)
			return err
		})
	})
}

func (r *ImportRepository) GetJob(ctx context.Context, userID, id uuid.UUID) (*models.ImportJob, error) {
	jobs, err := r.listJobs(ctx, squirrel.Eq{"id": id, "user_id": userID}, 1)
	if err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		return nil, ErrNotFound
	}
	return jobs[0], nil
}

func (r *ImportRepository) ListJobs(ctx context.Context, userID uuid.UUID, limit uint64) ([]*models.ImportJob, error) {
	return r.listJobs(ctx, squirrel.Eq{"user_id": userID}, limit)
}

func (r *ImportRepository) listJobs(ctx context.Context, where squirrel.Sqlizer, limit uint64) ([]*models.ImportJob, error) {
	query := squirrel.Select(importJobColumns...).
		From("import_jobs").
		Where(where).
		OrderBy("created_at DESC").
		PlaceholderFormat(squirrel.Dollar)
	if limit > 0 {
		query = query.Limit(limit)
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

	var jobs []*models.ImportJob
	for rows.Next() {
		var (
			job     models.ImportJob
			mapping []byte
		)
		if err := rows.Scan(
			&job.ID, &job.UserID, &job.AccountID, &job.FileName, &job.FileType, &job.Status, &job.TotalRows, &job.ValidRows,
			&job.InvalidRows, &job.ImportedRows, &mapping, &job.ErrorMessage, &job.CreatedAt, &job.UpdatedAt, &job.CompletedAt,
		); err != nil {
			return nil, err
		}
		if len(mapping) > 0 {
			if err := json.Unmarshal(mapping, &job.ColumnMapping); err != nil {
				return nil, fmt.Errorf("failed to decode column mapping of job %s: %w", job.ID, err)
			}
		}
		jobs = append(jobs, &job)
	}

	return jobs, rows.Err()
}

// UpdateJob persists the mutable job fields.
func (r *ImportRepository) UpdateJob(ctx context.Context, job *models.ImportJob) error {
	mapping, err := json.Marshal(job.ColumnMapping)
	if err != nil {
		return fmt.Errorf("failed to encode column mapping: %w", err)
	}

	query := squirrel.Update("import_jobs").
		Set("account_id", job.AccountID).
		Set("status", job.Status).
		Set("total_rows", job.TotalRows).
		Set("valid_rows", job.ValidRows).
		Set("invalid_rows", job.InvalidRows).
		Set("imported_rows", job.ImportedRows).
		Set("column_mapping", mapping).
		Set("error_message", job.ErrorMessage).
		Set("updated_at", job.UpdatedAt).
		Set("completed_at", job.CompletedAt).
		Where(squirrel.Eq{"id": job.ID, "user_id": job.UserID}).
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

func (r *ImportRepository) ListRows(ctx context.Context, jobID uuid.UUID) ([]*models.ImportRow, error) {
	query := squirrel.Select(importRowColumns...).
		From("import_rows").
		Where(squirrel.Eq{"import_job_id": jobID}).
		OrderBy("row_number").
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

	var out []*models.ImportRow
	for rows.Next() {
		var (
			row               models.ImportRow
			raw, errs, warns []byte
		)
		if err := rows.Scan(&row.ID, &row.JobID, &row.RowNumber, &raw, &row.Status, &errs, &warns, &row.TransactionID); err != nil {
			return nil, err
		}
		if err := decodeRow(&row, raw, errs, warns); err != nil {
			return nil, err
		}
		out = append(out, &row)
	}

	return out, rows.Err()
}

// UpdateRows writes status, messages and transaction link for each row in
// one database transaction.
func (r *ImportRepository) UpdateRows(ctx context.Context, rows []*models.ImportRow) error {
	if len(rows) == 0 {
		return nil
	}

	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		for _, row := range rows {
			_, errs, warns, err := encodeRow(row)
			if err != nil {
				return err
			}

			sql, args, err := squirrel.Update("import_rows").
				Set("status", row.Status).
				Set("validation_errors", errs).
				Set("validation_warnings", warns).
				Set("transaction_id", row.TransactionID).
				Where(squirrel.Eq{"id": row.ID}).
				PlaceholderFormat(squirrel.Dollar).
				ToSql()
			if err != nil {
				return err
			}
			if _, err := tx.Exec(ctx, sql, args...); err != nil {
				return fmt.Errorf("failed to update import row %d: %w", row.RowNumber, err)
			}
		}
		return nil
	})
}

func encodeRow(row *models.ImportRow) (raw, errs, warns []byte, err error) {
	if raw, err = json.Marshal(row.RawData); err != nil {
		return nil, nil, nil, err
	}
	if errs, err = json.Marshal(nonNil(row.Errors)); err != nil {
		return nil, nil, nil, err
	}
	if warns, err = json.Marshal(nonNil(row.Warnings)); err != nil {
		return nil, nil, nil, err
	}
	return raw, errs, warns, nil
}

func decodeRow(row *models.ImportRow, raw, errs, warns []byte) error {
	for _, field := range []struct {
		data []byte
		dst  any
	}{
		{raw, &row.RawData},
		{errs, &row.Errors},
		{warns, &row.Warnings},
	} {
		if len(field.data) == 0 {
			continue
		}
		if err := json.Unmarshal(field.data, field.dst); err != nil {
			return fmt.Errorf("failed to decode import row %d: %w", row.RowNumber, err)
		}
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
