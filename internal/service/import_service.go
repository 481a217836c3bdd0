package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"fintrack/internal/models"
	"fintrack/internal/parser"
	"fintrack/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrImportJobNotFound = errors.New("import job not found")
	ErrImportCompleted   = errors.New("import job already completed")
	ErrNoValidRows       = errors.New("no valid rows to import")
	ErrInvalidMapping    = errors.New("invalid column mapping")
)

const defaultDescription = "Imported transaction"

type ImportStore interface {
	CreateJob(ctx context.Context, job *models.ImportJob, rows []*models.ImportRow) error
	GetJob(ctx context.Context, userID, id uuid.UUID) (*models.ImportJob, error)
	ListJobs(ctx context.Context, userID uuid.UUID, limit uint64) ([]*models.ImportJob, error)
	UpdateJob(ctx context.Context, job *models.ImportJob) error
	ListRows(ctx context.Context, jobID uuid.UUID) ([]*models.ImportRow, error)
	UpdateRows(ctx context.Context, rows []*models.ImportRow) error
}

var _ ImportStore = (*repository.ImportRepository)(nil)

// JobSubmitter accepts background classification work.
type JobSubmitter interface {
	Submit(job *ClassificationJob) error
}

type ImportOptions struct {
	DefaultCurrency     string
	PreviewRows         int
	AutoApplyConfidence float64
}

type UploadResult struct {
	Job         *models.ImportJob         `json:"job"`
	Headers     []string                  `json:"headers"`
	Preview     []parser.ParsedRow        `json:"preview"`
	Suggestions []parser.ColumnSuggestion `json:"suggestions"`
	Mapping     map[string]string         `json:"mapping"`
}

type ValidationSummary struct {
	Job         *models.ImportJob `json:"job"`
	ValidRows   int               `json:"valid_rows"`
	WarningRows int               `json:"warning_rows"`
	InvalidRows int               `json:"invalid_rows"`
	// Invalid lists the rejected rows so the client can show why.
	Invalid []*models.ImportRow `json:"invalid"`
}

type ExecuteResult struct {
	Job                   *models.ImportJob `json:"job"`
	ImportedCount         int               `json:"imported_count"`
	ClassificationStarted bool              `json:"classification_started"`
}

// ImportService drives an import job from upload through column mapping and
// validation to transaction creation.
type ImportService struct {
	imports      ImportStore
	transactions TransactionStore
	queue        JobSubmitter
	opts         ImportOptions
	logger       *zap.Logger

	now func() time.Time
}

func NewImportService(
	imports ImportStore,
	transactions TransactionStore,
	queue JobSubmitter,
	opts ImportOptions,
	logger *zap.Logger,
) *ImportService {
	if opts.DefaultCurrency == "" {
		opts.DefaultCurrency = "USD"
	}
	if opts.PreviewRows <= 0 {
		opts.PreviewRows = 10
	}

	return &ImportService{
		imports:      imports,
		transactions: transactions,
		queue:        queue,
		opts:         opts,
		logger:       logger,
		now:          time.Now,
	}
}

// Upload parses the file, stores the job with its raw rows and proposes a
// column mapping.
func (s *ImportService) Upload(ctx context.Context, userID uuid.UUID, filename string, data []byte) (*UploadResult, error) {
	fileType, err := parser.FileTypeFromName(filename)
	if err != nil {
		return nil, err
	}

	parsed, err := parser.Parse(data, fileType)
	if err != nil {
		return nil, err
	}

	suggestions := parser.SuggestColumnMapping(parsed.Headers)
	mapping := parser.BestMapping(suggestions).Strings()

	now := s.now()
	job := &models.ImportJob{
		ID:            uuid.New(),
		UserID:        userID,
		FileName:      filename,
		FileType:      string(fileType),
		Status:        models.ImportStatusMapping,
		TotalRows:     parsed.TotalRows,
		ColumnMapping: mapping,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	rows := make([]*models.ImportRow, len(parsed.Rows))
	for i, r := range parsed.Rows {
		rows[i] = &models.ImportRow{
			ID:        uuid.New(),
			JobID:     job.ID,
			RowNumber: i + 1,
			RawData:   r,
			Status:    models.RowStatusPending,
		}
	}

	if err := s.imports.CreateJob(ctx, job, rows); err != nil {
		return nil, fmt.Errorf("failed to save import job: %w", err)
	}

	s.logger.Info("Import uploaded",
		zap.String("job_id", job.ID.String()),
		zap.String("file_type", job.FileType),
		zap.Int("rows", job.TotalRows),
		zap.Int("suggested_fields", len(mapping)),
	)

	preview := parsed.Rows[:min(s.opts.PreviewRows, len(parsed.Rows))]
	return &UploadResult{
		Job:         job,
		Headers:     parsed.Headers,
		Preview:     preview,
		Suggestions: suggestions,
		Mapping:     mapping,
	}, nil
}

// SetMapping stores the mapping and validates every row against it.
func (s *ImportService) SetMapping(ctx context.Context, userID, jobID uuid.UUID, raw map[string]string) (*ValidationSummary, error) {
	job, err := s.job(ctx, userID, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status == models.ImportStatusCompleted {
		return nil, ErrImportCompleted
	}

	mapping, err := parser.ParseMapping(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMapping, err)
	}

	rows, err := s.imports.ListRows(ctx, job.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load import rows: %w", err)
	}

	summary := &ValidationSummary{Job: job, Invalid: []*models.ImportRow{}}
	for _, row := range rows {
		result := parser.ValidateRow(row.RawData, mapping)
		row.Errors = result.Errors
		row.Warnings = result.Warnings

		switch {
		case !result.IsValid:
			row.Status = models.RowStatusInvalid
			summary.InvalidRows++
			summary.Invalid = append(summary.Invalid, row)
		case len(result.Warnings) > 0:
			row.Status = models.RowStatusWarning
			summary.WarningRows++
		default:
			row.Status = models.RowStatusValid
			summary.ValidRows++
		}
	}

	if err := s.imports.UpdateRows(ctx, rows); err != nil {
		return nil, fmt.Errorf("failed to save validation results: %w", err)
	}

	job.ColumnMapping = mapping.Strings()
	job.Status = models.ImportStatusValidating
	job.ValidRows = summary.ValidRows + summary.WarningRows
	job.InvalidRows = summary.InvalidRows
	job.UpdatedAt = s.now()
	if err := s.imports.UpdateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to update import job: %w", err)
	}

	s.logger.Info("Import validated",
		zap.String("job_id", job.ID.String()),
		zap.Int("valid", summary.ValidRows),
		zap.Int("warning", summary.WarningRows),
		zap.Int("invalid", summary.InvalidRows),
	)

	return summary, nil
}

// Execute creates transactions from the importable rows and queues their
// classification. It returns before classification runs.
func (s *ImportService) Execute(ctx context.Context, userID, jobID uuid.UUID, accountID *uuid.UUID) (*ExecuteResult, error) {
	job, err := s.job(ctx, userID, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status == models.ImportStatusCompleted {
		return nil, ErrImportCompleted
	}

	mapping, err := parser.ParseMapping(job.ColumnMapping)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMapping, err)
	}

	rows, err := s.imports.ListRows(ctx, job.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load import rows: %w", err)
	}

	now := s.now()
	var (
		importable   []*models.ImportRow
		transactions []*models.Transaction
	)
	for _, row := range rows {
		if !row.Importable() {
			continue
		}
		tx := s.buildTransaction(row.RawData, mapping, userID, accountID, job.ID, now)
		importable = append(importable, row)
		transactions = append(transactions, tx)
	}
	if len(transactions) == 0 {
		return nil, ErrNoValidRows
	}

	if err := s.transactions.CreateBatch(ctx, transactions); err != nil {
		msg := err.Error()
		job.Status = models.ImportStatusFailed
		job.ErrorMessage = &msg
		job.UpdatedAt = now
		if updateErr := s.imports.UpdateJob(ctx, job); updateErr != nil {
			s.logger.Error("Failed to mark import job failed", zap.String("job_id", job.ID.String()), zap.Error(updateErr))
		}
		return nil, fmt.Errorf("failed to create transactions: %w", err)
	}

	for i, row := range importable {
		row.Status = models.RowStatusImported
		row.TransactionID = &transactions[i].ID
	}
	if err := s.imports.UpdateRows(ctx, importable); err != nil {
		s.logger.Error("Failed to link import rows", zap.String("job_id", job.ID.String()), zap.Error(err))
	}

	job.Status = models.ImportStatusCompleted
	job.AccountID = accountID
	job.ImportedRows = len(transactions)
	job.ErrorMessage = nil
	job.UpdatedAt = now
	job.CompletedAt = &now
	if err := s.imports.UpdateJob(ctx, job); err != nil {
		s.logger.Error("Failed to mark import job completed", zap.String("job_id", job.ID.String()), zap.Error(err))
	}

	started := true
	err = s.queue.Submit(&ClassificationJob{
		ID:            job.ID,
		UserID:        userID,
		Transactions:  transactions,
		AutoApply:     true,
		MinConfidence: s.opts.AutoApplyConfidence,
	})
	if err != nil {
		started = false
		s.logger.Warn("Failed to queue classification", zap.String("job_id", job.ID.String()), zap.Error(err))
	}

	s.logger.Info("Import completed",
		zap.String("job_id", job.ID.String()),
		zap.Int("imported", len(transactions)),
		zap.Bool("classification_started", started),
	)

	return &ExecuteResult{
		Job:                   job,
		ImportedCount:         len(transactions),
		ClassificationStarted: started,
	}, nil
}

func (s *ImportService) ListJobs(ctx context.Context, userID uuid.UUID) ([]*models.ImportJob, error) {
	jobs, err := s.imports.ListJobs(ctx, userID, 0)
	if err != nil {
		return nil, err
	}
	if jobs == nil {
		jobs = []*models.ImportJob{}
	}
	return jobs, nil
}

func (s *ImportService) job(ctx context.Context, userID, jobID uuid.UUID) (*models.ImportJob, error) {
	job, err := s.imports.GetJob(ctx, userID, jobID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrImportJobNotFound
	}
	if err != nil {
		return nil, err
	}
	return job, nil
}

// buildTransaction maps one validated row. Amounts are stored unsigned; the
// sign picks debit or credit unless a type column is mapped and recognised.
func (s *ImportService) buildTransaction(row parser.ParsedRow, mapping parser.ColumnMapping, userID uuid.UUID, accountID *uuid.UUID, jobID uuid.UUID, now time.Time) *models.Transaction {
	amountValue, _ := parser.ResolveValue(row, mapping, parser.FieldAmount)
	amount := parser.ParseAmountDecimal(amountValue)

	txType := models.TransactionTypeCredit
	if amount.IsNegative() {
		txType = models.TransactionTypeDebit
	}
	if v, ok := parser.ResolveValue(row, mapping, parser.FieldTransactionType); ok {
		if t, known := transactionTypeFromString(v); known {
			txType = t
		}
	}

	dateValue, _ := parser.ResolveValue(row, mapping, parser.FieldDate)
	date, ok := parser.ParseDate(dateValue)
	if !ok {
		y, m, d := now.Date()
		date = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}

	description, _ := parser.ResolveValue(row, mapping, parser.FieldDescription)
	description = cleanText(description)
	if description == "" {
		description = defaultDescription
	}

	currency, _ := parser.ResolveValue(row, mapping, parser.FieldCurrency)
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		currency = s.opts.DefaultCurrency
	}

	var reference *string
	if v, ok := parser.ResolveValue(row, mapping, parser.FieldReference); ok {
		if v = cleanText(v); v != "" {
			reference = &v
		}
	}

	jid := jobID
	return &models.Transaction{
		ID:              uuid.New(),
		UserID:          userID,
		AccountID:       accountID,
		ImportJobID:     &jid,
		Date:            date,
		Description:     description,
		Amount:          amount.Abs().InexactFloat64(),
		Currency:        currency,
		TransactionType: txType,
		ReferenceNumber: reference,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func transactionTypeFromString(v string) (models.TransactionType, bool) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "debit", "dr", "withdrawal", "expense", "out":
		return models.TransactionTypeDebit, true
	case "credit", "cr", "deposit", "income", "in":
		return models.TransactionTypeCredit, true
	default:
		return "", false
	}
}
