package models

import (
	"time"

	"github.com/google/uuid"
)

type ImportStatus string

const (
	ImportStatusMapping    ImportStatus = "mapping"
	ImportStatusValidating ImportStatus = "validating"
	ImportStatusCompleted  ImportStatus = "completed"
	ImportStatusFailed     ImportStatus = "failed"
)

type RowStatus string

const (
	RowStatusPending  RowStatus = "pending"
	RowStatusValid    RowStatus = "valid"
	RowStatusWarning  RowStatus = "warning"
	RowStatusInvalid  RowStatus = "invalid"
	RowStatusImported RowStatus = "imported"
)

type ImportJob struct {
	ID            uuid.UUID         `db:"id"`
	UserID        uuid.UUID         `db:"user_id"`
	AccountID     *uuid.UUID        `db:"account_id"`
	FileName      string            `db:"file_name"`
	FileType      string            `db:"file_type"`
	Status        ImportStatus      `db:"status"`
	TotalRows     int               `db:"total_rows"`
	ValidRows     int               `db:"valid_rows"`
	InvalidRows   int               `db:"invalid_rows"`
	ImportedRows  int               `db:"imported_rows"`
	ColumnMapping map[string]string `db:"column_mapping"`
	ErrorMessage  *string           `db:"error_message"`
	CreatedAt     time.Time         `db:"created_at"`
	UpdatedAt     time.Time         `db:"updated_at"`
	CompletedAt   *time.Time        `db:"completed_at"`
}

type ImportRow struct {
	ID            uuid.UUID         `db:"id"`
	JobID         uuid.UUID         `db:"import_job_id"`
	RowNumber     int               `db:"row_number"`
	RawData       map[string]string `db:"raw_data"`
	Status        RowStatus         `db:"status"`
	Errors        []string          `db:"validation_errors"`
	Warnings      []string          `db:"validation_warnings"`
	TransactionID *uuid.UUID        `db:"transaction_id"`
}

// Importable reports whether a validated row should become a transaction.
func (r *ImportRow) Importable() bool {
	return r.Status == RowStatusValid || r.Status == RowStatusWarning
}
