package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"fintrack/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Options struct {
	Temperature float64
	MaxTokens   int
	// Timeout bounds each model call.
	Timeout time.Duration
	// MaxAttempts caps model calls per prompt, the first one included.
	// Values below 1 mean a single call.
	MaxAttempts int
	// RetryDelay is the first backoff; it doubles per retry.
	RetryDelay time.Duration
}

func DefaultOptions() Options {
	return Options{
		Temperature: 0.3,
		MaxTokens:   2000,
		Timeout:     120 * time.Second,
		MaxAttempts: 3,
		RetryDelay:  2 * time.Second,
	}
}

// LLMProvider classifies through a chat model. It owns a snapshot of the
// taxonomy taken at construction; build a new provider to pick up changes.
// Failures never reach the caller: unusable or missing answers are filled
// in by the keyword rules.
type LLMProvider struct {
	chat         ChatModel
	categories   map[uuid.UUID]struct{}
	systemPrompt string
	opts         Options
	logger       *zap.Logger

	sleep func(ctx context.Context, d time.Duration) error
}

func NewLLMProvider(chat ChatModel, categories []models.CategoryInfo, opts Options, logger *zap.Logger) *LLMProvider {
	known := make(map[uuid.UUID]struct{}, len(categories))
	for _, c := range categories {
		known[c.ID] = struct{}{}
	}

	return &LLMProvider{
		chat:         chat,
		categories:   known,
		systemPrompt: buildSystemPrompt(categories),
		opts:         opts,
		logger:       logger,
		sleep:        SleepContext,
	}
}

func (p *LLMProvider) Name() string  { return p.chat.Name() }
func (p *LLMProvider) Model() string { return p.chat.Model() }

func (p *LLMProvider) Classify(ctx context.Context, tx TransactionToClassify) (ClassificationResult, error) {
	results, err := p.ClassifyBatch(ctx, []TransactionToClassify{tx})
	if err != nil {
		return ClassificationResult{}, err
	}
	if len(results) != 1 {
		return ClassificationResult{}, fmt.Errorf("expected 1 result, got %d", len(results))
	}
	return results[0], nil
}

// ClassifyBatch returns one result per input, in input order.
func (p *LLMProvider) ClassifyBatch(ctx context.Context, txs []TransactionToClassify) ([]ClassificationResult, error) {
	if len(txs) == 0 {
		return nil, nil
	}

	userPrompt := buildUserPrompt(txs)
	hash := promptHash(userPrompt)
	fallback := ruleProvider{promptHash: hash}

	content, err := p.complete(ctx, userPrompt)
	if err != nil {
		p.logger.Warn("LLM classification failed, using rule-based fallback",
			zap.String("provider", p.Name()),
			zap.Int("transactions", len(txs)),
			zap.Error(err),
		)
		return fallback.ClassifyBatch(ctx, txs)
	}

	parsed, err := parseClassifications(content)
	if err != nil {
		p.logger.Warn("Unparseable LLM response, using rule-based fallback",
			zap.String("provider", p.Name()),
			zap.Error(err),
			zap.String("response", truncate(content, 500)),
		)
		return fallback.ClassifyBatch(ctx, txs)
	}

	accepted := p.acceptResults(txs, parsed, hash)

	results := make([]ClassificationResult, len(txs))
	missing := 0
	for i, tx := range txs {
		if r, ok := accepted[tx.ID]; ok {
			results[i] = r
			continue
		}
		missing++
		results[i], _ = fallback.Classify(ctx, tx)
	}
	if missing > 0 {
		p.logger.Info("Filled missing LLM classifications with rules",
			zap.Int("missing", missing),
			zap.Int("total", len(txs)),
		)
	}

	return results, nil
}

// acceptResults keeps entries that name a transaction from this batch (first
// one wins) and, when a taxonomy is loaded, a category from it.
func (p *LLMProvider) acceptResults(txs []TransactionToClassify, parsed []rawClassification, hash string) map[uuid.UUID]ClassificationResult {
	inBatch := make(map[uuid.UUID]struct{}, len(txs))
	for _, tx := range txs {
		inBatch[tx.ID] = struct{}{}
	}

	accepted := make(map[uuid.UUID]ClassificationResult, len(parsed))
	for _, raw := range parsed {
		txID, err := uuid.Parse(strings.TrimSpace(raw.TransactionID))
		if err != nil {
			continue
		}
		if _, ok := inBatch[txID]; !ok {
			continue
		}
		if _, dup := accepted[txID]; dup {
			continue
		}

		categoryID, err := uuid.Parse(strings.TrimSpace(raw.CategoryID))
		if err != nil {
			p.logger.Debug("LLM returned malformed category id", zap.String("category_id", raw.CategoryID))
			continue
		}
		if len(p.categories) > 0 {
			if _, ok := p.categories[categoryID]; !ok {
				p.logger.Debug("LLM returned unknown category", zap.String("category_id", raw.CategoryID))
				continue
			}
		}

		accepted[txID] = ClassificationResult{
			TransactionID:   txID,
			CategoryID:      categoryID,
			ConfidenceScore: clampConfidence(float64(raw.ConfidenceScore)),
			Reasoning:       raw.Reasoning,
			Metadata: Metadata{
				PromptHash: hash,
				Provider:   p.Name(),
				Model:      p.Model(),
			},
		}
	}
	return accepted
}

// complete calls the model, retrying network failures with doubling backoff.
func (p *LLMProvider) complete(ctx context.Context, userPrompt string) (string, error) {
	req := ChatRequest{
		System:      p.systemPrompt,
		User:        userPrompt,
		Temperature: p.opts.Temperature,
		MaxTokens:   p.opts.MaxTokens,
	}

	maxAttempts := max(p.opts.MaxAttempts, 1)
	delay := p.opts.RetryDelay
	for attempt := 1; ; attempt++ {
		content, err := p.completeOnce(ctx, req)
		if err == nil {
			return content, nil
		}
		if !isNetworkError(err) || attempt >= maxAttempts || ctx.Err() != nil {
			return "", err
		}

		p.logger.Warn("LLM request failed, retrying",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", maxAttempts),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		if err := p.sleep(ctx, delay); err != nil {
			return "", err
		}
		delay *= 2
	}
}

func (p *LLMProvider) completeOnce(ctx context.Context, req ChatRequest) (string, error) {
	if p.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.Timeout)
		defer cancel()
	}
	return p.chat.Complete(ctx, req)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
