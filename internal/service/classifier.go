package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"fintrack/internal/llm"
	"fintrack/internal/models"
	"fintrack/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type CategoryStore interface {
	FetchSystemCategories(ctx context.Context) ([]models.CategoryInfo, error)
	GetCategory(ctx context.Context, id uuid.UUID) (*models.Category, error)
	ListCategories(ctx context.Context, filter models.CategoryFilter) ([]*models.Category, error)
}

type SuggestionStore interface {
	InsertSuggestion(ctx context.Context, s *models.CategorySuggestion) error
	BulkInsertSuggestions(ctx context.Context, suggestions []*models.CategorySuggestion) error
	UpdateSuggestionAccepted(ctx context.Context, id uuid.UUID, accepted bool) error
	FindPendingSuggestions(ctx context.Context, userID uuid.UUID, minConfidence float64) ([]*models.CategorySuggestion, error)
	GetByID(ctx context.Context, userID, id uuid.UUID) (*models.CategorySuggestion, error)
	ListByTransaction(ctx context.Context, userID, transactionID uuid.UUID) ([]*models.CategorySuggestion, error)
}

type TransactionStore interface {
	CreateBatch(ctx context.Context, transactions []*models.Transaction) error
	GetByID(ctx context.Context, userID, id uuid.UUID) (*models.Transaction, error)
	GetByIDs(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) ([]*models.Transaction, error)
	FindTransactionsByUser(ctx context.Context, userID uuid.UUID, filter repository.TransactionFilter) ([]*models.Transaction, error)
	UpdateTransactionCategory(ctx context.Context, userID, transactionID, categoryID uuid.UUID) error
	UpdateTransactionCategoryIfUnset(ctx context.Context, userID, transactionID, categoryID uuid.UUID) (bool, error)
}

var (
	_ CategoryStore    = (*repository.CategoryRepository)(nil)
	_ SuggestionStore  = (*repository.SuggestionRepository)(nil)
	_ TransactionStore = (*repository.TransactionRepository)(nil)
)

var (
	ErrSuggestionNotFound  = errors.New("suggestion not found")
	ErrTransactionNotFound = errors.New("transaction not found")
)

// maxUncategorizedBatch caps a "classify everything" request.
const maxUncategorizedBatch = 500

// ProviderFactory builds a classification provider over a taxonomy snapshot.
type ProviderFactory func(categories []models.CategoryInfo) llm.Provider

type ClassifierOptions struct {
	BatchSize int
	// BatchDelay is the pause between chunks of one ClassifyBatch call.
	BatchDelay    time.Duration
	RetryAttempts int
	// RetryDelay is the first backoff of ClassifyTransaction; it doubles per attempt.
	RetryDelay time.Duration
}

func DefaultClassifierOptions() ClassifierOptions {
	return ClassifierOptions{
		BatchSize:     10,
		BatchDelay:    time.Second,
		RetryAttempts: 3,
		RetryDelay:    time.Second,
	}
}

// TransactionClassifier turns provider results into persisted suggestions and
// promotes confident ones to transaction categories. One instance is built at
// start-up and shared; the taxonomy is loaded on first use and kept until
// Refresh.
type TransactionClassifier struct {
	categories   CategoryStore
	suggestions  SuggestionStore
	transactions TransactionStore
	newProvider  ProviderFactory
	opts         ClassifierOptions
	logger       *zap.Logger

	mu       sync.Mutex
	provider llm.Provider

	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

func NewTransactionClassifier(
	categories CategoryStore,
	suggestions SuggestionStore,
	transactions TransactionStore,
	newProvider ProviderFactory,
	opts ClassifierOptions,
	logger *zap.Logger,
) *TransactionClassifier {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultClassifierOptions().BatchSize
	}
	if opts.RetryAttempts <= 0 {
		opts.RetryAttempts = 1
	}

	return &TransactionClassifier{
		categories:   categories,
		suggestions:  suggestions,
		transactions: transactions,
		newProvider:  newProvider,
		opts:         opts,
		logger:       logger,
		sleep:        llm.SleepContext,
		now:          time.Now,
	}
}

// Initialize loads the system taxonomy and builds the provider once. A failed
// fetch still builds a provider, over an empty taxonomy.
func (c *TransactionClassifier) Initialize(ctx context.Context) llm.Provider {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.provider == nil {
		c.provider = c.buildProvider(ctx)
	}
	return c.provider
}

// Refresh reloads the taxonomy and replaces the provider.
func (c *TransactionClassifier) Refresh(ctx context.Context) {
	provider := c.buildProvider(ctx)

	c.mu.Lock()
	c.provider = provider
	c.mu.Unlock()
}

func (c *TransactionClassifier) buildProvider(ctx context.Context) llm.Provider {
	categories, err := c.categories.FetchSystemCategories(ctx)
	if err != nil {
		c.logger.Error("Failed to fetch categories", zap.Error(err))
		categories = nil
	}

	c.logger.Info("Classifier initialized", zap.Int("categories", len(categories)))
	return c.newProvider(categories)
}

// ClassifyTransaction classifies and stores a suggestion for one transaction.
// It is best-effort: nil means nothing was stored, and the reason is logged.
func (c *TransactionClassifier) ClassifyTransaction(ctx context.Context, tx *models.Transaction) *models.CategorySuggestion {
	provider := c.Initialize(ctx)

	delay := c.opts.RetryDelay
	for attempt := 0; attempt < c.opts.RetryAttempts; attempt++ {
		result, err := provider.Classify(ctx, llm.FromTransaction(tx))
		if err == nil {
			suggestion, err := c.newSuggestion(result)
			if err == nil {
				err = c.suggestions.InsertSuggestion(ctx, suggestion)
			}
			if err != nil {
				c.logger.Error("Failed to save category suggestion",
					zap.String("transaction_id", tx.ID.String()),
					zap.Error(err),
				)
				return nil
			}
			return suggestion
		}

		c.logger.Warn("Classification attempt failed",
			zap.String("transaction_id", tx.ID.String()),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
		if attempt < c.opts.RetryAttempts-1 {
			if err := c.sleep(ctx, delay); err != nil {
				return nil
			}
			delay *= 2
		}
	}

	return nil
}

// ClassifyBatch classifies transactions in sequential chunks and returns the
// suggestions that were stored. A failed chunk is logged and skipped.
func (c *TransactionClassifier) ClassifyBatch(ctx context.Context, txs []*models.Transaction) []*models.CategorySuggestion {
	if len(txs) == 0 {
		return []*models.CategorySuggestion{}
	}

	provider := c.Initialize(ctx)
	stored := make([]*models.CategorySuggestion, 0, len(txs))

	for lo := 0; lo < len(txs); lo += c.opts.BatchSize {
		hi := min(lo+c.opts.BatchSize, len(txs))

		stored = append(stored, c.classifyChunk(ctx, provider, txs[lo:hi])...)

		if hi < len(txs) {
			if err := c.sleep(ctx, c.opts.BatchDelay); err != nil {
				c.logger.Warn("Batch classification interrupted",
					zap.Int("classified", hi),
					zap.Int("total", len(txs)),
					zap.Error(err),
				)
				break
			}
		}
	}

	return stored
}

func (c *TransactionClassifier) classifyChunk(ctx context.Context, provider llm.Provider, chunk []*models.Transaction) []*models.CategorySuggestion {
	input := make([]llm.TransactionToClassify, len(chunk))
	for i, tx := range chunk {
		input[i] = llm.FromTransaction(tx)
	}

	results, err := provider.ClassifyBatch(ctx, input)
	if err != nil {
		c.logger.Error("Batch classification failed", zap.Int("transactions", len(chunk)), zap.Error(err))
		return nil
	}

	suggestions := make([]*models.CategorySuggestion, 0, len(results))
	for _, r := range results {
		s, err := c.newSuggestion(r)
		if err != nil {
			c.logger.Error("Failed to build suggestion",
				zap.String("transaction_id", r.TransactionID.String()),
				zap.Error(err),
			)
			continue
		}
		suggestions = append(suggestions, s)
	}

	err = c.suggestions.BulkInsertSuggestions(ctx, suggestions)
	if err == nil {
		return suggestions
	}
	c.logger.Warn("Failed to save batch suggestions, saving one by one",
		zap.Int("suggestions", len(suggestions)),
		zap.Error(err),
	)

	saved := suggestions[:0]
	for _, s := range suggestions {
		if err := c.suggestions.InsertSuggestion(ctx, s); err != nil {
			c.logger.Error("Failed to save category suggestion",
				zap.String("transaction_id", s.TransactionID.String()),
				zap.Error(err),
			)
			continue
		}
		saved = append(saved, s)
	}
	return saved
}

// ClassifyByID loads one of the user's transactions and classifies it.
func (c *TransactionClassifier) ClassifyByID(ctx context.Context, userID, transactionID uuid.UUID) (*models.CategorySuggestion, error) {
	tx, err := c.transactions.GetByID(ctx, userID, transactionID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, err
	}
	return c.ClassifyTransaction(ctx, tx), nil
}

// ClassifyByIDs classifies the user's transactions among ids, or all of the
// user's uncategorized transactions when ids is empty.
func (c *TransactionClassifier) ClassifyByIDs(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) ([]*models.CategorySuggestion, error) {
	var (
		txs []*models.Transaction
		err error
	)
	if len(ids) == 0 {
		txs, err = c.transactions.FindTransactionsByUser(ctx, userID, repository.TransactionFilter{
			Uncategorized: true,
			Limit:         maxUncategorizedBatch,
		})
	} else {
		txs, err = c.transactions.GetByIDs(ctx, userID, ids)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}

	c.logger.Info("Classifying transactions",
		zap.String("user_id", userID.String()),
		zap.Int("requested", len(ids)),
		zap.Int("found", len(txs)),
	)
	return c.ClassifyBatch(ctx, txs), nil
}

// AutoApplySuggestions promotes pending suggestions at or above minConfidence
// for the user's uncategorized transactions. The category write only lands
// while the transaction has no category, so an existing category is never
// replaced and a second run applies nothing new.
func (c *TransactionClassifier) AutoApplySuggestions(ctx context.Context, userID uuid.UUID, minConfidence float64) int {
	pending, err := c.suggestions.FindPendingSuggestions(ctx, userID, minConfidence)
	if err != nil {
		c.logger.Error("Failed to fetch pending suggestions", zap.String("user_id", userID.String()), zap.Error(err))
		return 0
	}
	if len(pending) == 0 {
		return 0
	}

	c.logger.Info("Auto-applying suggestions",
		zap.String("user_id", userID.String()),
		zap.Int("eligible", len(pending)),
		zap.Float64("min_confidence", minConfidence),
	)

	applied := 0
	for _, s := range pending {
		written, err := c.transactions.UpdateTransactionCategoryIfUnset(ctx, userID, s.TransactionID, s.CategoryID)
		if err != nil {
			c.logger.Error("Failed to apply suggestion",
				zap.String("suggestion_id", s.ID.String()),
				zap.String("transaction_id", s.TransactionID.String()),
				zap.Error(err),
			)
			continue
		}
		if !written {
			continue
		}

		if err := c.suggestions.UpdateSuggestionAccepted(ctx, s.ID, true); err != nil {
			c.logger.Error("Failed to mark suggestion accepted",
				zap.String("suggestion_id", s.ID.String()),
				zap.Error(err),
			)
		}
		applied++
	}

	c.logger.Info("Auto-apply completed",
		zap.String("user_id", userID.String()),
		zap.Int("applied", applied),
		zap.Int("eligible", len(pending)),
	)
	return applied
}

// AcceptSuggestion applies a suggestion on the user's explicit request,
// replacing whatever category the transaction had.
func (c *TransactionClassifier) AcceptSuggestion(ctx context.Context, userID, transactionID, suggestionID uuid.UUID) (*models.CategorySuggestion, error) {
	s, err := c.userSuggestion(ctx, userID, transactionID, suggestionID)
	if err != nil {
		return nil, err
	}

	if err := c.transactions.UpdateTransactionCategory(ctx, userID, transactionID, s.CategoryID); err != nil {
		return nil, fmt.Errorf("failed to update transaction category: %w", err)
	}
	if err := c.suggestions.UpdateSuggestionAccepted(ctx, s.ID, true); err != nil {
		return nil, fmt.Errorf("failed to mark suggestion accepted: %w", err)
	}

	accepted := true
	s.IsAccepted = &accepted
	return s, nil
}

func (c *TransactionClassifier) RejectSuggestion(ctx context.Context, userID, transactionID, suggestionID uuid.UUID) (*models.CategorySuggestion, error) {
	s, err := c.userSuggestion(ctx, userID, transactionID, suggestionID)
	if err != nil {
		return nil, err
	}

	if err := c.suggestions.UpdateSuggestionAccepted(ctx, s.ID, false); err != nil {
		return nil, fmt.Errorf("failed to mark suggestion rejected: %w", err)
	}

	rejected := false
	s.IsAccepted = &rejected
	return s, nil
}

func (c *TransactionClassifier) SuggestionsForTransaction(ctx context.Context, userID, transactionID uuid.UUID) ([]*models.CategorySuggestion, error) {
	list, err := c.suggestions.ListByTransaction(ctx, userID, transactionID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []*models.CategorySuggestion{}
	}
	return list, nil
}

func (c *TransactionClassifier) userSuggestion(ctx context.Context, userID, transactionID, suggestionID uuid.UUID) (*models.CategorySuggestion, error) {
	s, err := c.suggestions.GetByID(ctx, userID, suggestionID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrSuggestionNotFound
	}
	if err != nil {
		return nil, err
	}
	if s.TransactionID != transactionID {
		return nil, ErrSuggestionNotFound
	}
	return s, nil
}

type suggestionResponse struct {
	Reasoning string       `json:"reasoning,omitempty"`
	Metadata  llm.Metadata `json:"metadata"`
}

func (c *TransactionClassifier) newSuggestion(r llm.ClassificationResult) (*models.CategorySuggestion, error) {
	data, err := json.Marshal(suggestionResponse{Reasoning: r.Reasoning, Metadata: r.Metadata})
	if err != nil {
		return nil, err
	}

	return &models.CategorySuggestion{
		ID:              uuid.New(),
		TransactionID:   r.TransactionID,
		CategoryID:      r.CategoryID,
		ConfidenceScore: r.ConfidenceScore,
		LLMProvider:     r.Metadata.Provider,
		LLMModel:        r.Metadata.Model,
		PromptHash:      r.Metadata.PromptHash,
		ResponseData:    data,
		CreatedAt:       c.now(),
	}, nil
}
