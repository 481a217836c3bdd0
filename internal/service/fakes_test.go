package service

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"fintrack/internal/llm"
	"fintrack/internal/models"
	"fintrack/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// memDB backs the fake stores. Like the SQL schema, suggestions only see
// transactions through a join, so the fakes share one instance.
type memDB struct {
	mu           sync.Mutex
	transactions map[uuid.UUID]*models.Transaction
	suggestions  []*models.CategorySuggestion
	jobs         map[uuid.UUID]*models.ImportJob
	rows         map[uuid.UUID][]*models.ImportRow

	bulkErr      error
	insertErr    map[uuid.UUID]error
	createTxErr  error
	updateTxErr  map[uuid.UUID]error
	bulkInserts  int
	singleInsert int
}

func newMemDB() *memDB {
	return &memDB{
		transactions: make(map[uuid.UUID]*models.Transaction),
		jobs:         make(map[uuid.UUID]*models.ImportJob),
		rows:         make(map[uuid.UUID][]*models.ImportRow),
		insertErr:    make(map[uuid.UUID]error),
		updateTxErr:  make(map[uuid.UUID]error),
	}
}

func (db *memDB) addTransaction(tx *models.Transaction) *models.Transaction {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.transactions[tx.ID] = tx
	return tx
}

func (db *memDB) addSuggestion(s *models.CategorySuggestion) *models.CategorySuggestion {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.suggestions = append(db.suggestions, s)
	return s
}

func (db *memDB) suggestion(id uuid.UUID) *models.CategorySuggestion {
	db.mu.Lock()
	defer db.mu.Unlock()
	for _, s := range db.suggestions {
		if s.ID == id {
			return s
		}
	}
	return nil
}

type fakeTransactions struct{ *memDB }

func (f fakeTransactions) CreateBatch(_ context.Context, txs []*models.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createTxErr != nil {
		return f.createTxErr
	}
	for _, tx := range txs {
		f.transactions[tx.ID] = tx
	}
	return nil
}

func (f fakeTransactions) GetByID(_ context.Context, userID, id uuid.UUID) (*models.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tx, ok := f.transactions[id]
	if !ok || tx.UserID != userID {
		return nil, repository.ErrNotFound
	}
	return tx, nil
}

func (f fakeTransactions) GetByIDs(_ context.Context, userID uuid.UUID, ids []uuid.UUID) ([]*models.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Transaction
	for _, id := range ids {
		if tx, ok := f.transactions[id]; ok && tx.UserID == userID {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (f fakeTransactions) FindTransactionsByUser(_ context.Context, userID uuid.UUID, filter repository.TransactionFilter) ([]*models.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Transaction
	for _, tx := range f.transactions {
		if tx.UserID != userID || (filter.Uncategorized && tx.CategoryID != nil) {
			continue
		}
		out = append(out, tx)
	}
	return out, nil
}

func (f fakeTransactions) UpdateTransactionCategory(_ context.Context, userID, transactionID, categoryID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	tx, ok := f.transactions[transactionID]
	if !ok || tx.UserID != userID {
		return repository.ErrNotFound
	}
	tx.CategoryID = &categoryID
	return nil
}

func (f fakeTransactions) UpdateTransactionCategoryIfUnset(_ context.Context, userID, transactionID, categoryID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.updateTxErr[transactionID]; err != nil {
		return false, err
	}
	tx, ok := f.transactions[transactionID]
	if !ok || tx.UserID != userID || tx.CategoryID != nil {
		return false, nil
	}
	tx.CategoryID = &categoryID
	return true, nil
}

type fakeSuggestions struct{ *memDB }

func (f fakeSuggestions) InsertSuggestion(_ context.Context, s *models.CategorySuggestion) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.singleInsert++
	if err := f.insertErr[s.TransactionID]; err != nil {
		return err
	}
	f.suggestions = append(f.suggestions, s)
	return nil
}

func (f fakeSuggestions) BulkInsertSuggestions(_ context.Context, list []*models.CategorySuggestion) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bulkInserts++
	if f.bulkErr != nil {
		return f.bulkErr
	}
	f.suggestions = append(f.suggestions, list...)
	return nil
}

func (f fakeSuggestions) UpdateSuggestionAccepted(_ context.Context, id uuid.UUID, accepted bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.suggestions {
		if s.ID == id {
			s.IsAccepted = &accepted
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f fakeSuggestions) FindPendingSuggestions(_ context.Context, userID uuid.UUID, minConfidence float64) ([]*models.CategorySuggestion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.CategorySuggestion
	for _, s := range f.suggestions {
		tx, ok := f.transactions[s.TransactionID]
		if !ok || tx.UserID != userID || tx.CategoryID != nil {
			continue
		}
		if s.IsAccepted == nil && s.ConfidenceScore >= minConfidence {
			out = append(out, s)
		}
	}
	slices.SortStableFunc(out, func(a, b *models.CategorySuggestion) int {
		if c := cmp.Compare(b.ConfidenceScore, a.ConfidenceScore); c != 0 {
			return c
		}
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return out, nil
}

func (f fakeSuggestions) GetByID(_ context.Context, userID, id uuid.UUID) (*models.CategorySuggestion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.suggestions {
		if s.ID != id {
			continue
		}
		if tx, ok := f.transactions[s.TransactionID]; ok && tx.UserID == userID {
			return s, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f fakeSuggestions) ListByTransaction(_ context.Context, userID, transactionID uuid.UUID) ([]*models.CategorySuggestion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tx, ok := f.transactions[transactionID]
	if !ok || tx.UserID != userID {
		return nil, nil
	}
	var out []*models.CategorySuggestion
	for _, s := range f.suggestions {
		if s.TransactionID == transactionID {
			out = append(out, s)
		}
	}
	return out, nil
}

type fakeImports struct{ *memDB }

func (f fakeImports) CreateJob(_ context.Context, job *models.ImportJob, rows []*models.ImportRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs[job.ID] = job
	f.rows[job.ID] = rows
	return nil
}

func (f fakeImports) GetJob(_ context.Context, userID, id uuid.UUID) (*models.ImportJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok || job.UserID != userID {
		return nil, repository.ErrNotFound
	}
	return job, nil
}

func (f fakeImports) ListJobs(_ context.Context, userID uuid.UUID, _ uint64) ([]*models.ImportJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.ImportJob
	for _, job := range f.jobs {
		if job.UserID == userID {
			out = append(out, job)
		}
	}
	return out, nil
}

func (f fakeImports) UpdateJob(_ context.Context, job *models.ImportJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.jobs[job.ID]; !ok {
		return repository.ErrNotFound
	}
	f.jobs[job.ID] = job
	return nil
}

func (f fakeImports) ListRows(_ context.Context, jobID uuid.UUID) ([]*models.ImportRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rows[jobID], nil
}

func (f fakeImports) UpdateRows(_ context.Context, _ []*models.ImportRow) error {
	// rows are shared pointers, nothing to copy
	return nil
}

type fakeCategories struct {
	mu         sync.Mutex
	categories []models.CategoryInfo
	err        error
	fetches    int
}

func (f *fakeCategories) FetchSystemCategories(context.Context) ([]models.CategoryInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	return f.categories, f.err
}

func (f *fakeCategories) GetCategory(_ context.Context, id uuid.UUID) (*models.Category, error) {
	for _, c := range f.categories {
		if c.ID == id {
			return &models.Category{ID: c.ID, Name: c.Name, CategoryType: c.CategoryType, IsSystem: true}, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeCategories) ListCategories(context.Context, models.CategoryFilter) ([]*models.Category, error) {
	var out []*models.Category
	for _, c := range f.categories {
		out = append(out, &models.Category{ID: c.ID, Name: c.Name, CategoryType: c.CategoryType, IsSystem: true})
	}
	return out, nil
}

type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) Classify(ctx context.Context, tx llm.TransactionToClassify) (llm.ClassificationResult, error) {
	args := m.Called(ctx, tx)
	return args.Get(0).(llm.ClassificationResult), args.Error(1)
}

func (m *MockProvider) ClassifyBatch(ctx context.Context, txs []llm.TransactionToClassify) ([]llm.ClassificationResult, error) {
	args := m.Called(ctx, txs)
	if fn, ok := args.Get(0).(func(context.Context, []llm.TransactionToClassify) []llm.ClassificationResult); ok {
		return fn(ctx, txs), args.Error(1)
	}
	results, _ := args.Get(0).([]llm.ClassificationResult)
	return results, args.Error(1)
}

// echoResults answers every transaction with the same category.
func echoResults(categoryID uuid.UUID, confidence float64) func([]llm.TransactionToClassify) []llm.ClassificationResult {
	return func(txs []llm.TransactionToClassify) []llm.ClassificationResult {
		out := make([]llm.ClassificationResult, len(txs))
		for i, tx := range txs {
			out[i] = llm.ClassificationResult{
				TransactionID:   tx.ID,
				CategoryID:      categoryID,
				ConfidenceScore: confidence,
				Metadata:        llm.Metadata{PromptHash: "hash", Provider: "test", Model: "test-model"},
			}
		}
		return out
	}
}

// recordSleep replaces the real delay and remembers what was asked for.
type recordSleep struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *recordSleep) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delays = append(r.delays, d)
	return ctx.Err()
}

var errBoom = errors.New("boom")

func newTx(userID uuid.UUID, description string, merchant *string) *models.Transaction {
	now := time.Now()
	return &models.Transaction{
		ID:              uuid.New(),
		UserID:          userID,
		Date:            now,
		Description:     description,
		MerchantName:    merchant,
		Amount:          12.5,
		Currency:        "USD",
		TransactionType: models.TransactionTypeDebit,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}
