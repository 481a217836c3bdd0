package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"fintrack/internal/llm"
	"fintrack/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type classifierFixture struct {
	db         *memDB
	categories *fakeCategories
	provider   *MockProvider
	sleeper    *recordSleep
	classifier *TransactionClassifier
	built      [][]models.CategoryInfo
}

func newClassifierFixture(t *testing.T) *classifierFixture {
	t.Helper()

	f := &classifierFixture{
		db: newMemDB(),
		categories: &fakeCategories{categories: []models.CategoryInfo{
			{ID: llm.CategoryGroceries, Name: "Groceries", CategoryType: models.CategoryTypeExpense},
			{ID: llm.CategoryRideShare, Name: "Ride Share", CategoryType: models.CategoryTypeExpense},
		}},
		provider: &MockProvider{},
		sleeper:  &recordSleep{},
	}

	f.classifier = NewTransactionClassifier(
		f.categories,
		fakeSuggestions{f.db},
		fakeTransactions{f.db},
		func(categories []models.CategoryInfo) llm.Provider {
			f.built = append(f.built, categories)
			return f.provider
		},
		DefaultClassifierOptions(),
		zap.NewNop(),
	)
	f.classifier.sleep = f.sleeper.sleep
	return f
}

func TestClassifyBatchEmptySkipsProvider(t *testing.T) {
	f := newClassifierFixture(t)

	got := f.classifier.ClassifyBatch(context.Background(), nil)

	assert.NotNil(t, got)
	assert.Empty(t, got)
	f.provider.AssertNotCalled(t, "ClassifyBatch", mock.Anything, mock.Anything)
	assert.Zero(t, f.categories.fetches)
}

func TestClassifyBatchChunksSequentially(t *testing.T) {
	f := newClassifierFixture(t)
	userID := uuid.New()

	var txs []*models.Transaction
	for i := 0; i < 25; i++ {
		txs = append(txs, f.db.addTransaction(newTx(userID, fmt.Sprintf("purchase %d", i), nil)))
	}

	var sizes []int
	answer := echoResults(llm.CategoryGroceries, 0.9)
	f.provider.On("ClassifyBatch", mock.Anything, mock.Anything).
		Return(func(_ context.Context, in []llm.TransactionToClassify) []llm.ClassificationResult {
			sizes = append(sizes, len(in))
			return answer(in)
		}, nil)

	got := f.classifier.ClassifyBatch(context.Background(), txs)

	require.Len(t, got, 25)
	assert.Equal(t, []int{10, 10, 5}, sizes)
	assert.Equal(t, []time.Duration{time.Second, time.Second}, f.sleeper.delays)
	assert.Len(t, f.db.suggestions, 25)

	for i, s := range got {
		assert.Equal(t, txs[i].ID, s.TransactionID)
		assert.Equal(t, llm.CategoryGroceries, s.CategoryID)
		assert.Equal(t, "test", s.LLMProvider)
		assert.Equal(t, "test-model", s.LLMModel)
		assert.Equal(t, "hash", s.PromptHash)
		assert.True(t, s.IsPending())
		assert.JSONEq(t, `{"metadata":{"prompt_hash":"hash","provider":"test","model":"test-model"}}`, string(s.ResponseData))
	}
}

func TestClassifyBatchContinuesAfterFailedChunk(t *testing.T) {
	f := newClassifierFixture(t)
	userID := uuid.New()

	var txs []*models.Transaction
	for i := 0; i < 12; i++ {
		txs = append(txs, f.db.addTransaction(newTx(userID, "item", nil)))
	}

	answer := echoResults(llm.CategoryGroceries, 0.7)
	f.provider.On("ClassifyBatch", mock.Anything, mock.MatchedBy(func(in []llm.TransactionToClassify) bool { return len(in) == 10 })).
		Return(nil, errBoom).Once()
	f.provider.On("ClassifyBatch", mock.Anything, mock.MatchedBy(func(in []llm.TransactionToClassify) bool { return len(in) == 2 })).
		Return(func(_ context.Context, in []llm.TransactionToClassify) []llm.ClassificationResult { return answer(in) }, nil).Once()

	got := f.classifier.ClassifyBatch(context.Background(), txs)

	require.Len(t, got, 2)
	assert.Equal(t, txs[10].ID, got[0].TransactionID)
	assert.Equal(t, txs[11].ID, got[1].TransactionID)
	f.provider.AssertExpectations(t)
}

func TestClassifyBatchFallsBackToSingleInserts(t *testing.T) {
	f := newClassifierFixture(t)
	userID := uuid.New()

	txs := []*models.Transaction{
		f.db.addTransaction(newTx(userID, "a", nil)),
		f.db.addTransaction(newTx(userID, "b", nil)),
		f.db.addTransaction(newTx(userID, "c", nil)),
	}
	f.db.bulkErr = errBoom
	f.db.insertErr[txs[1].ID] = errBoom

	answer := echoResults(llm.CategoryGroceries, 0.5)
	f.provider.On("ClassifyBatch", mock.Anything, mock.Anything).
		Return(func(_ context.Context, in []llm.TransactionToClassify) []llm.ClassificationResult { return answer(in) }, nil)

	got := f.classifier.ClassifyBatch(context.Background(), txs)

	require.Len(t, got, 2)
	assert.Equal(t, txs[0].ID, got[0].TransactionID)
	assert.Equal(t, txs[2].ID, got[1].TransactionID)
	assert.Equal(t, 1, f.db.bulkInserts)
	assert.Equal(t, 3, f.db.singleInsert)
}

func TestInitializeIsMemoized(t *testing.T) {
	f := newClassifierFixture(t)

	p1 := f.classifier.Initialize(context.Background())
	p2 := f.classifier.Initialize(context.Background())

	assert.Same(t, p1, p2)
	assert.Equal(t, 1, f.categories.fetches)
	require.Len(t, f.built, 1)
	assert.Len(t, f.built[0], 2)

	f.classifier.Refresh(context.Background())
	assert.Equal(t, 2, f.categories.fetches)
	assert.Len(t, f.built, 2)
}

func TestInitializeWithFailedFetchUsesEmptyTaxonomy(t *testing.T) {
	f := newClassifierFixture(t)
	f.categories.err = errBoom

	assert.NotNil(t, f.classifier.Initialize(context.Background()))
	require.Len(t, f.built, 1)
	assert.Empty(t, f.built[0])
}

func TestClassifyTransactionRetriesWithBackoff(t *testing.T) {
	f := newClassifierFixture(t)
	tx := f.db.addTransaction(newTx(uuid.New(), "Whole Foods", nil))

	result := llm.ClassificationResult{
		TransactionID:   tx.ID,
		CategoryID:      llm.CategoryGroceries,
		ConfidenceScore: 0.8,
		Metadata:        llm.Metadata{Provider: "test", Model: "m"},
	}
	f.provider.On("Classify", mock.Anything, mock.Anything).Return(llm.ClassificationResult{}, errBoom).Twice()
	f.provider.On("Classify", mock.Anything, mock.Anything).Return(result, nil).Once()

	got := f.classifier.ClassifyTransaction(context.Background(), tx)

	require.NotNil(t, got)
	assert.Equal(t, llm.CategoryGroceries, got.CategoryID)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, f.sleeper.delays)
	assert.Len(t, f.db.suggestions, 1)
	f.provider.AssertExpectations(t)
}

func TestClassifyTransactionGivesUpQuietly(t *testing.T) {
	f := newClassifierFixture(t)
	tx := f.db.addTransaction(newTx(uuid.New(), "x", nil))

	f.provider.On("Classify", mock.Anything, mock.Anything).Return(llm.ClassificationResult{}, errBoom)

	assert.Nil(t, f.classifier.ClassifyTransaction(context.Background(), tx))
	f.provider.AssertNumberOfCalls(t, "Classify", 3)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, f.sleeper.delays)
	assert.Empty(t, f.db.suggestions)
}

func TestClassifyTransactionPersistFailureReturnsNil(t *testing.T) {
	f := newClassifierFixture(t)
	tx := f.db.addTransaction(newTx(uuid.New(), "x", nil))
	f.db.insertErr[tx.ID] = errBoom

	f.provider.On("Classify", mock.Anything, mock.Anything).
		Return(llm.ClassificationResult{TransactionID: tx.ID, CategoryID: llm.CategoryGroceries}, nil)

	assert.Nil(t, f.classifier.ClassifyTransaction(context.Background(), tx))
	f.provider.AssertNumberOfCalls(t, "Classify", 1)
}

type unreachableChat struct{}

func (unreachableChat) Complete(context.Context, llm.ChatRequest) (string, error) {
	return "", fmt.Errorf("dial: %w", context.DeadlineExceeded)
}
func (unreachableChat) Name() string  { return "deepseek" }
func (unreachableChat) Model() string { return "deepseek-chat" }

func TestClassifyTransactionUnreachableModelUsesRules(t *testing.T) {
	db := newMemDB()
	opts := llm.DefaultOptions()
	opts.MaxAttempts = 1

	c := NewTransactionClassifier(
		&fakeCategories{},
		fakeSuggestions{db},
		fakeTransactions{db},
		func(categories []models.CategoryInfo) llm.Provider {
			return llm.NewLLMProvider(unreachableChat{}, categories, opts, zap.NewNop())
		},
		DefaultClassifierOptions(),
		zap.NewNop(),
	)

	uber := "Uber"
	tx := db.addTransaction(newTx(uuid.New(), "Trip downtown", &uber))

	got := c.ClassifyTransaction(context.Background(), tx)

	require.NotNil(t, got)
	assert.Equal(t, llm.CategoryRideShare, got.CategoryID)
	assert.InDelta(t, 0.8, got.ConfidenceScore, 1e-9)
	assert.Equal(t, "rules", got.LLMProvider)
}

func pending(db *memDB, txID, categoryID uuid.UUID, confidence float64, created time.Time) *models.CategorySuggestion {
	return db.addSuggestion(&models.CategorySuggestion{
		ID:              uuid.New(),
		TransactionID:   txID,
		CategoryID:      categoryID,
		ConfidenceScore: confidence,
		LLMProvider:     "test",
		CreatedAt:       created,
	})
}

func TestAutoApplyFirstWriteWins(t *testing.T) {
	f := newClassifierFixture(t)
	userID := uuid.New()
	tx := f.db.addTransaction(newTx(userID, "shop", nil))

	now := time.Now()
	low := pending(f.db, tx.ID, llm.CategoryGroceries, 0.9, now)
	high := pending(f.db, tx.ID, llm.CategoryFoodDining, 0.95, now.Add(time.Second))

	applied := f.classifier.AutoApplySuggestions(context.Background(), userID, 0.8)

	assert.Equal(t, 1, applied)
	require.NotNil(t, tx.CategoryID)
	assert.Equal(t, llm.CategoryFoodDining, *tx.CategoryID)
	require.NotNil(t, high.IsAccepted)
	assert.True(t, *high.IsAccepted)
	assert.Nil(t, low.IsAccepted)

	assert.Zero(t, f.classifier.AutoApplySuggestions(context.Background(), userID, 0.8))
	assert.Equal(t, llm.CategoryFoodDining, *tx.CategoryID)
	assert.Nil(t, low.IsAccepted)
}

func TestAutoApplyNeverOverwritesCategory(t *testing.T) {
	f := newClassifierFixture(t)
	userID := uuid.New()

	manual := llm.CategoryOtherExpenses
	tx := newTx(userID, "shop", nil)
	tx.CategoryID = &manual
	f.db.addTransaction(tx)
	s := pending(f.db, tx.ID, llm.CategoryGroceries, 0.99, time.Now())

	assert.Zero(t, f.classifier.AutoApplySuggestions(context.Background(), userID, 0.8))
	assert.Equal(t, llm.CategoryOtherExpenses, *tx.CategoryID)
	assert.Nil(t, s.IsAccepted)
}

func TestAutoApplyRespectsThresholdAndOwner(t *testing.T) {
	f := newClassifierFixture(t)
	userID := uuid.New()

	weak := f.db.addTransaction(newTx(userID, "a", nil))
	pending(f.db, weak.ID, llm.CategoryGroceries, 0.5, time.Now())

	foreign := f.db.addTransaction(newTx(uuid.New(), "b", nil))
	pending(f.db, foreign.ID, llm.CategoryGroceries, 0.99, time.Now())

	strong := f.db.addTransaction(newTx(userID, "c", nil))
	pending(f.db, strong.ID, llm.CategoryGasFuel, 0.8, time.Now())

	assert.Equal(t, 1, f.classifier.AutoApplySuggestions(context.Background(), userID, 0.8))
	assert.Nil(t, weak.CategoryID)
	assert.Nil(t, foreign.CategoryID)
	require.NotNil(t, strong.CategoryID)
	assert.Equal(t, llm.CategoryGasFuel, *strong.CategoryID)
}

func TestAutoApplyContinuesAfterUpdateError(t *testing.T) {
	f := newClassifierFixture(t)
	userID := uuid.New()

	broken := f.db.addTransaction(newTx(userID, "a", nil))
	ok := f.db.addTransaction(newTx(userID, "b", nil))
	f.db.updateTxErr[broken.ID] = errBoom
	pending(f.db, broken.ID, llm.CategoryGroceries, 0.95, time.Now())
	pending(f.db, ok.ID, llm.CategoryGroceries, 0.9, time.Now())

	assert.Equal(t, 1, f.classifier.AutoApplySuggestions(context.Background(), userID, 0.8))
	assert.Nil(t, broken.CategoryID)
	assert.NotNil(t, ok.CategoryID)
}

func TestAcceptAndRejectSuggestion(t *testing.T) {
	f := newClassifierFixture(t)
	userID := uuid.New()

	manual := llm.CategoryOtherExpenses
	tx := newTx(userID, "shop", nil)
	tx.CategoryID = &manual
	f.db.addTransaction(tx)

	a := pending(f.db, tx.ID, llm.CategoryGroceries, 0.4, time.Now())
	b := pending(f.db, tx.ID, llm.CategoryFoodDining, 0.3, time.Now())

	got, err := f.classifier.AcceptSuggestion(context.Background(), userID, tx.ID, a.ID)
	require.NoError(t, err)
	assert.True(t, *got.IsAccepted)
	assert.Equal(t, llm.CategoryGroceries, *tx.CategoryID)

	got, err = f.classifier.RejectSuggestion(context.Background(), userID, tx.ID, b.ID)
	require.NoError(t, err)
	assert.False(t, *got.IsAccepted)
	assert.False(t, *f.db.suggestion(b.ID).IsAccepted)

	list, err := f.classifier.SuggestionsForTransaction(context.Background(), userID, tx.ID)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestSuggestionLookupIsScoped(t *testing.T) {
	f := newClassifierFixture(t)
	userID := uuid.New()
	tx := f.db.addTransaction(newTx(userID, "a", nil))
	other := f.db.addTransaction(newTx(userID, "b", nil))
	s := pending(f.db, tx.ID, llm.CategoryGroceries, 0.9, time.Now())

	_, err := f.classifier.AcceptSuggestion(context.Background(), uuid.New(), tx.ID, s.ID)
	assert.ErrorIs(t, err, ErrSuggestionNotFound)

	_, err = f.classifier.AcceptSuggestion(context.Background(), userID, other.ID, s.ID)
	assert.ErrorIs(t, err, ErrSuggestionNotFound)

	_, err = f.classifier.RejectSuggestion(context.Background(), userID, tx.ID, uuid.New())
	assert.ErrorIs(t, err, ErrSuggestionNotFound)
	assert.Nil(t, tx.CategoryID)
}

func TestClassifyByIDs(t *testing.T) {
	f := newClassifierFixture(t)
	userID := uuid.New()

	a := f.db.addTransaction(newTx(userID, "a", nil))
	done := llm.CategoryGroceries
	b := newTx(userID, "b", nil)
	b.CategoryID = &done
	f.db.addTransaction(b)
	f.db.addTransaction(newTx(uuid.New(), "c", nil))

	answer := echoResults(llm.CategoryGroceries, 0.9)
	f.provider.On("ClassifyBatch", mock.Anything, mock.Anything).
		Return(func(_ context.Context, in []llm.TransactionToClassify) []llm.ClassificationResult { return answer(in) }, nil)

	got, err := f.classifier.ClassifyByIDs(context.Background(), userID, nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, a.ID, got[0].TransactionID)

	got, err = f.classifier.ClassifyByIDs(context.Background(), userID, []uuid.UUID{a.ID, b.ID})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	_, err = f.classifier.ClassifyByID(context.Background(), uuid.New(), a.ID)
	assert.ErrorIs(t, err, ErrTransactionNotFound)
}
