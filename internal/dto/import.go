package dto

import (
	"time"

	"fintrack/internal/models"
	"fintrack/internal/parser"
)

type ImportJobResponse struct {
	ID            string            `json:"id"`
	FileName      string            `json:"file_name"`
	FileType      string            `json:"file_type"`
	Status        string            `json:"status"`
	AccountID     string            `json:"account_id,omitempty"`
	TotalRows     int               `json:"total_rows"`
	ValidRows     int               `json:"valid_rows"`
	InvalidRows   int               `json:"invalid_rows"`
	ImportedRows  int               `json:"imported_rows"`
	ColumnMapping map[string]string `json:"column_mapping"`
	ErrorMessage  string            `json:"error_message,omitempty"`
	CreatedAt     string            `json:"created_at"`
	CompletedAt   string            `json:"completed_at,omitempty"`
}

type ColumnSuggestionResponse struct {
	SourceColumn string  `json:"source_column"`
	TargetField  string  `json:"target_field"`
	Confidence   float64 `json:"confidence"`
	Reasoning    string  `json:"reasoning"`
}

type UploadResponse struct {
	Job         ImportJobResponse          `json:"job"`
	Headers     []string                   `json:"headers"`
	Preview     []map[string]string        `json:"preview"`
	Suggestions []ColumnSuggestionResponse `json:"suggestions"`
	Mapping     map[string]string          `json:"mapping"`
}

type SetMappingRequest struct {
	Mapping map[string]string `json:"mapping"`
}

type RowIssueResponse struct {
	RowNumber int               `json:"row_number"`
	RawData   map[string]string `json:"raw_data"`
	Errors    []string          `json:"errors"`
	Warnings  []string          `json:"warnings"`
}

type ValidationResponse struct {
	Job         ImportJobResponse  `json:"job"`
	ValidRows   int                `json:"valid_rows"`
	WarningRows int                `json:"warning_rows"`
	InvalidRows int                `json:"invalid_rows"`
	Invalid     []RowIssueResponse `json:"invalid"`
}

type ExecuteImportRequest struct {
	AccountID string `json:"account_id"`
}

type ExecuteImportResponse struct {
	Message               string            `json:"message"`
	Job                   ImportJobResponse `json:"job"`
	ImportedCount         int               `json:"imported_count"`
	ClassificationStarted bool              `json:"classification_started"`
}

type ImportJobsResponse struct {
	Jobs []ImportJobResponse `json:"jobs"`
}

func NewImportJobResponse(job *models.ImportJob) ImportJobResponse {
	resp := ImportJobResponse{
		ID:            job.ID.String(),
		FileName:      job.FileName,
		FileType:      job.FileType,
		Status:        string(job.Status),
		TotalRows:     job.TotalRows,
		ValidRows:     job.ValidRows,
		InvalidRows:   job.InvalidRows,
		ImportedRows:  job.ImportedRows,
		ColumnMapping: job.ColumnMapping,
		CreatedAt:     job.CreatedAt.Format(time.RFC3339),
	}
	if resp.ColumnMapping == nil {
		resp.ColumnMapping = map[string]string{}
	}
	if job.AccountID != nil {
		resp.AccountID = job.AccountID.String()
	}
	if job.ErrorMessage != nil {
		resp.ErrorMessage = *job.ErrorMessage
	}
	if job.CompletedAt != nil {
		resp.CompletedAt = job.CompletedAt.Format(time.RFC3339)
	}
	return resp
}

func NewColumnSuggestions(suggestions []parser.ColumnSuggestion) []ColumnSuggestionResponse {
	out := make([]ColumnSuggestionResponse, len(suggestions))
	for i, s := range suggestions {
		out[i] = ColumnSuggestionResponse{
			SourceColumn: s.SourceColumn,
			TargetField:  string(s.TargetField),
			Confidence:   s.Confidence,
			Reasoning:    s.Reasoning,
		}
	}
	return out
}

func NewRowIssues(rows []*models.ImportRow) []RowIssueResponse {
	out := make([]RowIssueResponse, len(rows))
	for i, r := range rows {
		out[i] = RowIssueResponse{
			RowNumber: r.RowNumber,
			RawData:   r.RawData,
			Errors:    r.Errors,
			Warnings:  r.Warnings,
		}
	}
	return out
}
