package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/amishk599/leadradar/internal/model"
)

// AnthropicProvider calls the Anthropic Messages API through the official SDK.
type AnthropicProvider struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// NewAnthropicProvider creates a provider for the given model. baseURL may be
// empty to use the SDK default. SDK-level retries are disabled; retrying is
// the job of the retry package.
func NewAnthropicProvider(baseURL, apiKey, model string, opts ...option.RequestOption) *AnthropicProvider {
	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(baseURL))
	}
	reqOpts = append(reqOpts, opts...)

	return &AnthropicProvider{
		client:    anthropic.NewClient(reqOpts...),
		model:     model,
		maxTokens: 1024,
	}
}

// Complete sends prompt as a single user message and concatenates the text blocks of the reply.
func (p *AnthropicProvider) Complete(ctx context.Context, prompt string) (string, error) {
	msg, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(p.model),
		MaxTokens:   p.maxTokens,
		Temperature: anthropic.Float(0),
		System:      []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			httpErr := &model.HTTPError{StatusCode: apiErr.StatusCode, Err: err}
			if apiErr.Response != nil {
				httpErr.RetryAfter = model.ParseRetryAfter(apiErr.Response.Header.Get("Retry-After"))
			}
			return "", httpErr
		}
		return "", fmt.Errorf("anthropic request: %w", err)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", fmt.Errorf("anthropic returned no text content")
	}
	return text.String(), nil
}
