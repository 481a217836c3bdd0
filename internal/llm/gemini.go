package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

const geminiName = "gemini"

// GeminiModel calls Gemini through the Google GenAI SDK. With an empty API
// key the SDK falls back to GOOGLE_API_KEY / Vertex environment settings.
type GeminiModel struct {
	client *genai.Client
	model  string
}

func NewGeminiModel(ctx context.Context, apiKey, model string) (*GeminiModel, error) {
	cfg := &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1beta"},
	}
	if apiKey != "" {
		cfg.APIKey = apiKey
		cfg.Backend = genai.BackendGeminiAPI
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}

	return &GeminiModel{client: client, model: model}, nil
}

func (m *GeminiModel) Name() string  { return geminiName }
func (m *GeminiModel) Model() string { return m.model }

func (m *GeminiModel) Complete(ctx context.Context, req ChatRequest) (string, error) {
	temperature := float32(req.Temperature)
	genCfg := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: req.System}},
		},
		Temperature:      &temperature,
		ResponseMIMEType: "application/json",
	}
	if req.MaxTokens > 0 {
		genCfg.MaxOutputTokens = int32(req.MaxTokens)
	}

	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: req.User}},
		},
	}

	resp, err := m.client.Models.GenerateContent(ctx, m.model, contents, genCfg)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("empty response from model")
	}
	return text, nil
}
