package aiclient

import (
	"context"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const defaultAnthropicMaxTokens = 1024

// anthropicBackend implements Backend using the official anthropic-sdk-go.
type anthropicBackend struct {
	client    sdk.Client
	model     string
	maxTokens int64
}

// AnthropicOption configures the Anthropic backend.
type AnthropicOption func(*anthropicBackend)

// WithAnthropicMaxTokens overrides the default completion token budget.
func WithAnthropicMaxTokens(n int64) AnthropicOption {
	return func(b *anthropicBackend) {
		b.maxTokens = n
	}
}

// WithAnthropicBaseURL overrides the API base URL, mainly for tests.
func WithAnthropicBaseURL(url string) AnthropicOption {
	return func(b *anthropicBackend) {
		b.client = sdk.NewClient(
			option.WithAPIKey("test"),
			option.WithBaseURL(url),
		)
	}
}

// NewAnthropic creates a Backend talking to the Anthropic Messages API.
func NewAnthropic(apiKey, model string, opts ...AnthropicOption) Backend {
	b := &anthropicBackend{
		client:    sdk.NewClient(option.WithAPIKey(apiKey)),
		model:     model,
		maxTokens: defaultAnthropicMaxTokens,
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

func (b *anthropicBackend) Name() string { return "anthropic" }

func (b *anthropicBackend) Complete(ctx context.Context, system, prompt string) (string, error) {
	params := sdk.MessageNewParams{
		Model:     sdk.Model(b.model),
		MaxTokens: b.maxTokens,
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(prompt)),
		},
	}
	if system != "" {
		params.System = []sdk.TextBlockParam{{Text: system}}
	}

	msg, err := b.client.Messages.New(ctx, params)
	if err != nil {
		return "", eris.Wrap(err, "anthropic: create message")
	}

	zap.L().Debug("anthropic completion",
		zap.String("model", b.model),
		zap.Int64("input_tokens", msg.Usage.InputTokens),
		zap.Int64("output_tokens", msg.Usage.OutputTokens),
	)

	var text string
	for _, block := range msg.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	if text == "" {
		return "", eris.New("anthropic: response contained no text content")
	}
	return text, nil
}
