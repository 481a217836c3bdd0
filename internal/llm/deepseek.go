package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	deepSeekName         = "deepseek"
	defaultDeepSeekURL   = "https://api.deepseek.com/v1"
	defaultDeepSeekModel = "deepseek-chat"
)

// APIError is a non-2xx reply from a chat completions endpoint.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("chat completions API error (status %d): %s", e.StatusCode, e.Body)
}

// DeepSeekModel talks to any OpenAI-compatible /chat/completions endpoint.
type DeepSeekModel struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
}

func NewDeepSeekModel(baseURL, apiKey, model string, timeout time.Duration) *DeepSeekModel {
	if baseURL == "" {
		baseURL = defaultDeepSeekURL
	}
	if model == "" {
		model = defaultDeepSeekModel
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	return &DeepSeekModel{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

func (m *DeepSeekModel) Name() string  { return deepSeekName }
func (m *DeepSeekModel) Model() string { return m.model }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (m *DeepSeekModel) Complete(ctx context.Context, req ChatRequest) (string, error) {
	body, err := json.Marshal(chatCompletionRequest{
		Model: m.model,
		Messages: []chatMessage{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.User},
		},
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+m.apiKey)

	resp, err := m.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("chat completions request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var parsed chatCompletionResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	return parsed.Choices[0].Message.Content, nil
}
