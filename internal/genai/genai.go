// Package genai provides the external GenAI client used for semantic
// classification, wrapping the OpenAI API.
package genai

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// Opts holds configuration options for the GenAI client.
type Opts struct {
	// APIKey for the OpenAI API. Falls back to $OPENAI_API_KEY when empty.
	APIKey string
	// Model overrides the default chat model.
	Model string
}

// Option defines a configuration option for the GenAI client.
type Option func(*Opts)

// WithAPIKey sets the OpenAI API key.
func WithAPIKey(key string) Option {
	return func(o *Opts) { o.APIKey = key }
}

// WithModel sets the chat model used for completions.
func WithModel(model string) Option {
	return func(o *Opts) { o.Model = model }
}

// ClientInterface defines the minimal surface the classify layer depends on,
// allowing test mocks to stand in for the real API.
type ClientInterface interface {
	GenerateWithMessages(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion) (string, error)
}

// Client wraps the OpenAI chat completion service.
type Client struct {
	client openai.Client
	model  shared.ChatModel
}

// NewClient initializes a GenAI client. A missing API key is a configuration
// error: callers that can run without the external classifier must check
// before constructing one.
func NewClient(opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}

	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key not set")
	}

	model := shared.ChatModel(cfg.Model)
	if model == "" {
		model = openai.ChatModelGPT4oMini
	}

	slog.Debug("genai.NewClient: client configured", "model", model)
	return &Client{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}, nil
}

// GenerateWithMessages runs one chat completion over the given messages and
// returns the assistant's text. The call blocks for the duration of the turn;
// failures are returned to the caller, which degrades to its fallback tier.
func (c *Client) GenerateWithMessages(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    c.model,
		Messages: messages,
	})
	if err != nil {
		slog.Warn("genai.GenerateWithMessages: completion failed", "error", err)
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		slog.Warn("genai.GenerateWithMessages: no choices returned")
		return "", fmt.Errorf("no choices returned")
	}
	slog.Debug("genai.GenerateWithMessages: completion succeeded", "responseLength", len(resp.Choices[0].Message.Content))
	return resp.Choices[0].Message.Content, nil
}
