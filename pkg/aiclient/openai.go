package aiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

const (
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultOpenAIModel   = "gpt-4o-mini"
)

// chatCompletionRequest is the request body for POST /chat/completions.
type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   *int          `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatCompletionResponse is the response from POST /chat/completions.
type chatCompletionResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Index   int         `json:"index"`
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// OpenAIOption configures the OpenAI-compatible backend.
type OpenAIOption func(*openAIBackend)

// WithOpenAIBaseURL overrides the default API base URL. Any endpoint
// speaking the OpenAI chat-completions dialect works.
func WithOpenAIBaseURL(url string) OpenAIOption {
	return func(b *openAIBackend) {
		b.baseURL = url
	}
}

// WithOpenAIModel overrides the default model.
func WithOpenAIModel(model string) OpenAIOption {
	return func(b *openAIBackend) {
		b.model = model
	}
}

// WithOpenAIHTTPClient overrides the default http.Client.
func WithOpenAIHTTPClient(hc *http.Client) OpenAIOption {
	return func(b *openAIBackend) {
		b.http = hc
	}
}

// openAIBackend implements Backend against any OpenAI-compatible
// chat-completions endpoint.
type openAIBackend struct {
	apiKey  string
	baseURL string
	model   string
	http    *http.Client
}

// NewOpenAICompat creates a Backend talking to an OpenAI-compatible API.
func NewOpenAICompat(apiKey string, opts ...OpenAIOption) Backend {
	b := &openAIBackend{
		apiKey:  apiKey,
		baseURL: defaultOpenAIBaseURL,
		model:   defaultOpenAIModel,
		http: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

func (b *openAIBackend) Name() string { return "openai" }

func (b *openAIBackend) Complete(ctx context.Context, system, prompt string) (string, error) {
	msgs := make([]chatMessage, 0, 2)
	if system != "" {
		msgs = append(msgs, chatMessage{Role: "system", Content: system})
	}
	msgs = append(msgs, chatMessage{Role: "user", Content: prompt})

	body, err := json.Marshal(chatCompletionRequest{
		Model:    b.model,
		Messages: msgs,
	})
	if err != nil {
		return "", eris.Wrap(err, "openai: marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", eris.Wrap(err, "openai: create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+b.apiKey)

	resp, err := b.http.Do(httpReq)
	if err != nil {
		return "", eris.Wrap(err, "openai: send request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", eris.Wrap(err, "openai: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return "", eris.Errorf("openai: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var result chatCompletionResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", eris.Wrap(err, "openai: unmarshal response")
	}
	if len(result.Choices) == 0 {
		return "", eris.New("openai: response contained no choices")
	}
	return result.Choices[0].Message.Content, nil
}
