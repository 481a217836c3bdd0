// Package llm assigns categories to transactions. The LLM-backed provider
// prompts a chat model with the category taxonomy and falls back to keyword
// rules whenever the model cannot produce a usable answer.
package llm

import (
	"context"

	"fintrack/internal/models"

	"github.com/google/uuid"
)

// TransactionToClassify is the slice of a transaction a classifier needs.
type TransactionToClassify struct {
	ID              uuid.UUID
	Description     string
	MerchantName    *string
	Amount          float64
	Currency        string
	TransactionType models.TransactionType
}

// FromTransaction projects a stored transaction.
func FromTransaction(tx *models.Transaction) TransactionToClassify {
	return TransactionToClassify{
		ID:              tx.ID,
		Description:     tx.Description,
		MerchantName:    tx.MerchantName,
		Amount:          tx.Amount,
		Currency:        tx.Currency,
		TransactionType: tx.TransactionType,
	}
}

// Metadata records where a result came from.
type Metadata struct {
	PromptHash string `json:"prompt_hash"`
	Provider   string `json:"provider"`
	Model      string `json:"model"`
}

type ClassificationResult struct {
	TransactionID   uuid.UUID `json:"transaction_id"`
	CategoryID      uuid.UUID `json:"category_id"`
	ConfidenceScore float64   `json:"confidence_score"`
	Reasoning       string    `json:"reasoning,omitempty"`
	Metadata        Metadata  `json:"metadata"`
}

// Provider classifies transactions. Implementations return exactly one
// result per input transaction.
type Provider interface {
	Classify(ctx context.Context, tx TransactionToClassify) (ClassificationResult, error)
	ClassifyBatch(ctx context.Context, txs []TransactionToClassify) ([]ClassificationResult, error)
}

func clampConfidence(v float64) float64 {
	switch {
	case v != v: // NaN
		return 0
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
