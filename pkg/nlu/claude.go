package nlu

import (
	"context"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/raven/pkg/adapter"
	"github.com/m-mizutani/raven/pkg/model"
)

const claudeJSONSystem = "You are a component of a memory store. Reply with a single JSON object and nothing else."

type claudeClient struct {
	claude adapter.Claude
}

var _ Client = (*claudeClient)(nil)

// NewClaude creates a Client backed by Claude. JSON replies are parsed from text.
func NewClaude(claude adapter.Claude) Client {
	return &claudeClient{claude: claude}
}

func (c *claudeClient) GenerateTags(ctx context.Context, text string) ([]string, error) {
	prompt, err := TagsPrompt(text)
	if err != nil {
		return nil, err
	}

	raw, err := c.claude.Complete(ctx, claudeJSONSystem, prompt)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate tags")
	}
	return ParseTags(raw)
}

func (c *claudeClient) ExtractKeywords(ctx context.Context, question string) ([]string, error) {
	prompt, err := KeywordsPrompt(question)
	if err != nil {
		return nil, err
	}

	raw, err := c.claude.Complete(ctx, claudeJSONSystem, prompt)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to extract keywords")
	}
	return ParseKeywords(raw)
}

func (c *claudeClient) SynthesizeAnswer(ctx context.Context, question string, records []*model.Memory) (string, error) {
	prompt, err := AnswerPrompt(question, records)
	if err != nil {
		return "", err
	}

	answer, err := c.claude.Complete(ctx, "", prompt)
	if err != nil {
		return "", goerr.Wrap(err, "failed to synthesize answer")
	}
	return strings.TrimSpace(answer), nil
}

func (c *claudeClient) DisambiguateDeletion(ctx context.Context, question string, candidates []*model.Memory) ([]model.MemoryID, error) {
	prompt, err := ForgetPrompt(question, candidates)
	if err != nil {
		return nil, err
	}

	raw, err := c.claude.Complete(ctx, claudeJSONSystem, prompt)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to disambiguate deletion")
	}
	return ParseIDs(raw)
}
