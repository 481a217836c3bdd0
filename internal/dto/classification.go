package dto

import (
	"encoding/json"
	"time"

	"fintrack/internal/models"
)

type SuggestionResponse struct {
	ID              string          `json:"id"`
	TransactionID   string          `json:"transaction_id"`
	CategoryID      string          `json:"category_id"`
	ConfidenceScore float64         `json:"confidence_score"`
	LLMProvider     string          `json:"llm_provider"`
	LLMModel        string          `json:"llm_model"`
	PromptHash      string          `json:"prompt_hash,omitempty"`
	ResponseData    json.RawMessage `json:"response_data,omitempty" swaggertype:"object"`
	IsAccepted      *bool           `json:"is_accepted"`
	CreatedAt       string          `json:"created_at"`
}

type ClassifyBatchRequest struct {
	// Empty means every uncategorized transaction of the user.
	TransactionIDs []string `json:"transaction_ids"`
	// Defaults to true when omitted.
	AutoApply      *bool    `json:"auto_apply"`
	MinConfidence  *float64 `json:"min_confidence"`
}

type ClassifyBatchResponse struct {
	Suggestions  []SuggestionResponse `json:"suggestions"`
	Count        int                  `json:"count"`
	AppliedCount int                  `json:"applied_count"`
}

type AutoApplyRequest struct {
	MinConfidence *float64 `json:"min_confidence"`
}

type AutoApplyResponse struct {
	AppliedCount int `json:"applied_count"`
}

type SuggestionDecisionRequest struct {
	SuggestionID string `json:"suggestion_id"`
}

type SuggestionsResponse struct {
	Suggestions []SuggestionResponse `json:"suggestions"`
}

func NewSuggestionResponse(s *models.CategorySuggestion) SuggestionResponse {
	return SuggestionResponse{
		ID:              s.ID.String(),
		TransactionID:   s.TransactionID.String(),
		CategoryID:      s.CategoryID.String(),
		ConfidenceScore: s.ConfidenceScore,
		LLMProvider:     s.LLMProvider,
		LLMModel:        s.LLMModel,
		PromptHash:      s.PromptHash,
		ResponseData:    s.ResponseData,
		IsAccepted:      s.IsAccepted,
		CreatedAt:       s.CreatedAt.Format(time.RFC3339),
	}
}

func NewSuggestionResponses(list []*models.CategorySuggestion) []SuggestionResponse {
	out := make([]SuggestionResponse, len(list))
	for i, s := range list {
		out[i] = NewSuggestionResponse(s)
	}
	return out
}
