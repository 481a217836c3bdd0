package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"fintrack/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrQueueClosed = errors.New("classification queue is closed")
	ErrQueueFull   = errors.New("classification queue is full")
)

// ClassificationJob asks for suggestions on a set of transactions and,
// when AutoApply is set, promotes the confident ones afterwards.
type ClassificationJob struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	Transactions  []*models.Transaction
	AutoApply     bool
	MinConfidence float64
}

// BatchClassifier is the part of TransactionClassifier the queue drives.
type BatchClassifier interface {
	ClassifyBatch(ctx context.Context, txs []*models.Transaction) []*models.CategorySuggestion
	AutoApplySuggestions(ctx context.Context, userID uuid.UUID, minConfidence float64) int
}

// ClassificationQueue runs classification outside the request that asked for
// it. Jobs live in memory only and results go to the log.
type ClassificationQueue struct {
	classifier BatchClassifier
	logger     *zap.Logger

	jobs   chan *ClassificationJob
	done   chan struct{}
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

func NewClassificationQueue(classifier BatchClassifier, size, workers int, logger *zap.Logger) *ClassificationQueue {
	if size <= 0 {
		size = 1
	}
	if workers <= 0 {
		workers = 1
	}

	q := &ClassificationQueue{
		classifier: classifier,
		logger:     logger,
		jobs:       make(chan *ClassificationJob, size),
		done:       make(chan struct{}),
	}

	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}

	return q
}

// Submit enqueues a job without waiting for room.
func (q *ClassificationQueue) Submit(job *ClassificationJob) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrQueueClosed
	}
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}

	select {
	case q.jobs <- job:
		q.logger.Info("Classification job queued",
			zap.String("job_id", job.ID.String()),
			zap.Int("transactions", len(job.Transactions)),
		)
		return nil
	default:
		return ErrQueueFull
	}
}

func (q *ClassificationQueue) worker() {
	defer q.wg.Done()

	for {
		select {
		case job := <-q.jobs:
			q.process(job)
		case <-q.done:
			// drain what was accepted before Stop
			for {
				select {
				case job := <-q.jobs:
					q.process(job)
				default:
					return
				}
			}
		}
	}
}

func (q *ClassificationQueue) process(job *ClassificationJob) {
	log := q.logger.With(zap.String("job_id", job.ID.String()), zap.String("user_id", job.UserID.String()))

	defer func() {
		if r := recover(); r != nil {
			log.Error("Classification job panicked", zap.Any("panic", r))
		}
	}()

	// Jobs outlive the request that queued them.
	ctx := context.Background()
	start := time.Now()

	suggestions := q.classifier.ClassifyBatch(ctx, job.Transactions)
	log.Info("Classification job finished",
		zap.Int("transactions", len(job.Transactions)),
		zap.Int("suggestions", len(suggestions)),
		zap.Duration("took", time.Since(start)),
	)

	if !job.AutoApply {
		return
	}
	applied := q.classifier.AutoApplySuggestions(ctx, job.UserID, job.MinConfidence)
	log.Info("Auto-applied categories", zap.Int("applied", applied), zap.Float64("min_confidence", job.MinConfidence))
}

// Stop refuses new jobs, lets workers finish everything already queued and
// waits for them until ctx is done.
func (q *ClassificationQueue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.done)
	q.mu.Unlock()

	finished := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
