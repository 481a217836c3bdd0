package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"fintrack/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type blockingClassifier struct {
	started chan struct{}
	release chan struct{}

	mu        sync.Mutex
	batches   int
	autoApply []float64
}

func newBlockingClassifier() *blockingClassifier {
	return &blockingClassifier{
		started: make(chan struct{}, 10),
		release: make(chan struct{}),
	}
}

func (b *blockingClassifier) ClassifyBatch(_ context.Context, txs []*models.Transaction) []*models.CategorySuggestion {
	b.started <- struct{}{}
	<-b.release

	b.mu.Lock()
	defer b.mu.Unlock()
	b.batches++
	return make([]*models.CategorySuggestion, len(txs))
}

func (b *blockingClassifier) AutoApplySuggestions(_ context.Context, _ uuid.UUID, minConfidence float64) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.autoApply = append(b.autoApply, minConfidence)
	return 0
}

func TestQueueRunsJobsAndDrainsOnStop(t *testing.T) {
	c := newBlockingClassifier()
	close(c.release)
	q := NewClassificationQueue(c, 4, 2, zap.NewNop())

	require.NoError(t, q.Submit(&ClassificationJob{UserID: uuid.New(), AutoApply: true, MinConfidence: 0.8}))
	require.NoError(t, q.Submit(&ClassificationJob{UserID: uuid.New()}))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, q.Stop(ctx))

	assert.Equal(t, 2, c.batches)
	assert.Equal(t, []float64{0.8}, c.autoApply)

	assert.ErrorIs(t, q.Submit(&ClassificationJob{}), ErrQueueClosed)
	assert.NoError(t, q.Stop(ctx))
}

func TestQueueSubmitDoesNotBlockWhenFull(t *testing.T) {
	c := newBlockingClassifier()
	q := NewClassificationQueue(c, 1, 1, zap.NewNop())

	job := &ClassificationJob{}
	require.NoError(t, q.Submit(job))
	assert.NotEqual(t, uuid.Nil, job.ID)

	select {
	case <-c.started:
	case <-time.After(5 * time.Second):
		t.Fatal("worker never picked up the first job")
	}

	require.NoError(t, q.Submit(&ClassificationJob{}))
	assert.ErrorIs(t, q.Submit(&ClassificationJob{}), ErrQueueFull)

	close(c.release)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, q.Stop(ctx))
	assert.Equal(t, 2, c.batches)
}

func TestQueueStopHonoursContext(t *testing.T) {
	c := newBlockingClassifier()
	q := NewClassificationQueue(c, 1, 1, zap.NewNop())
	require.NoError(t, q.Submit(&ClassificationJob{}))
	<-c.started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, q.Stop(ctx), context.DeadlineExceeded)

	close(c.release)
}
