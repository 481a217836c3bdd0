package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// CategorySuggestion is a persisted classification result. Only IsAccepted
// changes after insert: nil is pending, true applied, false rejected.
type CategorySuggestion struct {
	ID              uuid.UUID       `db:"id"`
	TransactionID   uuid.UUID       `db:"transaction_id"`
	CategoryID      uuid.UUID       `db:"category_id"`
	ConfidenceScore float64         `db:"confidence_score"`
	LLMProvider     string          `db:"llm_provider"`
	LLMModel        string          `db:"llm_model"`
	PromptHash      string          `db:"prompt_hash"`
	ResponseData    json.RawMessage `db:"response_data"`
	IsAccepted      *bool           `db:"is_accepted"`
	CreatedAt       time.Time       `db:"created_at"`
}

func (s *CategorySuggestion) IsPending() bool {
	return s.IsAccepted == nil
}
