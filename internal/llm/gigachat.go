package llm

import (
	"context"
	"fmt"
	"strings"

	"fintrack/pkg/config"

	"github.com/Role1776/gigago"
	"go.uber.org/zap"
)

const gigaChatName = "gigachat"

// GigaChatModel wraps the Sber GigaChat client.
type GigaChatModel struct {
	client *gigago.Client
	model  string
}

func NewGigaChatModel(ctx context.Context, cfg *config.LLMConfig, logger *zap.Logger) (*GigaChatModel, error) {
	opts := []gigago.Option{
		gigago.WithCustomScope(cfg.GigaChatScope),
	}
	if cfg.GigaChatInsecureSkipVerify {
		opts = append(opts, gigago.WithCustomInsecureSkipVerify(true))
		logger.Warn("GigaChat TLS certificate verification is disabled")
	}

	client, err := gigago.NewClient(ctx, cfg.APIKey, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GigaChat client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = "GigaChat"
	}

	return &GigaChatModel{client: client, model: model}, nil
}

func (m *GigaChatModel) Name() string  { return gigaChatName }
func (m *GigaChatModel) Model() string { return m.model }

// Complete builds a fresh GenerativeModel per call since the system
// instruction lives on the model value.
func (m *GigaChatModel) Complete(ctx context.Context, req ChatRequest) (string, error) {
	gen := m.client.GenerativeModel(m.model)
	gen.SystemInstruction = req.System
	setFloat(&gen.Temperature, req.Temperature)

	resp, err := gen.Generate(ctx, []gigago.Message{
		{Role: gigago.RoleUser, Content: req.User},
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from GigaChat")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func setFloat[T ~float32 | ~float64](dst *T, v float64) {
	*dst = T(v)
}

func (m *GigaChatModel) Close() error {
	if m.client != nil {
		m.client.Close()
	}
	return nil
}
