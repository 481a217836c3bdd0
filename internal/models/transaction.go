package models

import (
	"time"

	"github.com/google/uuid"
)

type TransactionType string

const (
	TransactionTypeDebit  TransactionType = "debit"
	TransactionTypeCredit TransactionType = "credit"
)

// Transaction is a posted account movement. Amount is always non-negative;
// the direction is carried by TransactionType.
type Transaction struct {
	ID              uuid.UUID       `db:"id"`
	UserID          uuid.UUID       `db:"user_id"`
	AccountID       *uuid.UUID      `db:"account_id"`
	ImportJobID     *uuid.UUID      `db:"import_job_id"`
	Date            time.Time       `db:"transaction_date"`
	Description     string          `db:"description"`
	MerchantName    *string         `db:"merchant_name"`
	Amount          float64         `db:"amount"`
	Currency        string          `db:"currency"`
	TransactionType TransactionType `db:"transaction_type"`
	CategoryID      *uuid.UUID      `db:"category_id"`
	ReferenceNumber *string         `db:"reference_number"`
	CreatedAt       time.Time       `db:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at"`
}
