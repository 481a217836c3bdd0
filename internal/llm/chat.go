package llm

import (
	"context"
	"fmt"

	"fintrack/pkg/config"

	"go.uber.org/zap"
)

type ChatRequest struct {
	System      string
	User        string
	Temperature float64
	MaxTokens   int
}

// ChatModel is a single-turn completion backend.
type ChatModel interface {
	Complete(ctx context.Context, req ChatRequest) (string, error)
	Name() string
	Model() string
}

// NewChatModel builds the backend selected by cfg.Provider. Backends that
// hold connections implement io.Closer.
func NewChatModel(ctx context.Context, cfg *config.LLMConfig, logger *zap.Logger) (ChatModel, error) {
	switch cfg.Provider {
	case "deepseek", "openai", "":
		return NewDeepSeekModel(cfg.BaseURL, cfg.APIKey, cfg.Model, cfg.Timeout), nil
	case "gigachat":
		return NewGigaChatModel(ctx, cfg, logger)
	case "gemini":
		return NewGeminiModel(ctx, cfg.APIKey, cfg.Model)
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.Provider)
	}
}
