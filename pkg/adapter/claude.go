package adapter

import (
	"context"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/m-mizutani/goerr/v2"
)

const (
	DefaultClaudeModel     = "claude-sonnet-4-5"
	defaultClaudeMaxTokens = 2048
)

// Claude is the interface for Claude API client
type Claude interface {
	// Complete sends a single user prompt and returns the concatenated text reply
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// claudeClient implements Claude interface
type claudeClient struct {
	client    *anthropic.Client
	model     string
	maxTokens int64
}

type ClaudeOption func(*claudeClient)

func WithClaudeModel(model string) ClaudeOption {
	return func(c *claudeClient) {
		if model != "" {
			c.model = model
		}
	}
}

// NewClaude creates a new Claude API client
func NewClaude(apiKey string, opts ...ClaudeOption) Claude {
	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
	)
	c := &claudeClient{
		client:    &client,
		model:     DefaultClaudeModel,
		maxTokens: defaultClaudeMaxTokens,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *claudeClient) Complete(ctx context.Context, system, prompt string) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: system},
		}
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", goerr.Wrap(err, "failed to call claude", goerr.V("model", c.model))
	}

	var texts []string
	for _, block := range resp.Content {
		if block.Type == "text" {
			texts = append(texts, block.Text)
		}
	}
	if len(texts) == 0 {
		return "", goerr.New("no text content in claude response", goerr.V("model", c.model))
	}

	return strings.Join(texts, ""), nil
}
