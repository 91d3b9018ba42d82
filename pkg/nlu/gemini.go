package nlu

import (
	"context"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/raven/pkg/adapter"
	"github.com/m-mizutani/raven/pkg/model"
	"google.golang.org/genai"
)

type geminiClient struct {
	gemini adapter.Gemini
}

var _ Client = (*geminiClient)(nil)

// NewGemini creates a Client backed by Gemini structured output
func NewGemini(gemini adapter.Gemini) Client {
	return &geminiClient{gemini: gemini}
}

func stringListSchema(field, description string) *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			field: {
				Type:        genai.TypeArray,
				Description: description,
				Items:       &genai.Schema{Type: genai.TypeString},
			},
		},
		Required: []string{field},
	}
}

var idsSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"ids": {
			Type:        genai.TypeArray,
			Description: "IDs of candidate memories to delete",
			Items:       &genai.Schema{Type: genai.TypeInteger},
		},
	},
	Required: []string{"ids"},
}

func (g *geminiClient) generate(ctx context.Context, prompt string, schema *genai.Schema) (string, error) {
	thinkingBudget := int32(0)
	config := &genai.GenerateContentConfig{
		ThinkingConfig: &genai.ThinkingConfig{
			IncludeThoughts: false,
			ThinkingBudget:  &thinkingBudget,
		},
	}
	if schema != nil {
		config.ResponseMIMEType = "application/json"
		config.ResponseSchema = schema
	}

	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}

	resp, err := g.gemini.GenerateContent(ctx, contents, config)
	if err != nil {
		return "", err
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", goerr.Wrap(ErrMalformedOutput, "invalid response structure from gemini")
	}

	var parts []string
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" && !part.Thought {
			parts = append(parts, part.Text)
		}
	}
	if len(parts) == 0 {
		return "", goerr.Wrap(ErrMalformedOutput, "no text in gemini response")
	}

	return strings.Join(parts, ""), nil
}

func (g *geminiClient) GenerateTags(ctx context.Context, text string) ([]string, error) {
	prompt, err := TagsPrompt(text)
	if err != nil {
		return nil, err
	}

	raw, err := g.generate(ctx, prompt, stringListSchema("tags", "Short lowercase tags for the note"))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate tags")
	}
	return ParseTags(raw)
}

func (g *geminiClient) ExtractKeywords(ctx context.Context, question string) ([]string, error) {
	prompt, err := KeywordsPrompt(question)
	if err != nil {
		return nil, err
	}

	raw, err := g.generate(ctx, prompt, stringListSchema("keywords", "Search keywords for the question"))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to extract keywords")
	}
	return ParseKeywords(raw)
}

func (g *geminiClient) SynthesizeAnswer(ctx context.Context, question string, records []*model.Memory) (string, error) {
	prompt, err := AnswerPrompt(question, records)
	if err != nil {
		return "", err
	}

	answer, err := g.generate(ctx, prompt, nil)
	if err != nil {
		return "", goerr.Wrap(err, "failed to synthesize answer")
	}
	return strings.TrimSpace(answer), nil
}

func (g *geminiClient) DisambiguateDeletion(ctx context.Context, question string, candidates []*model.Memory) ([]model.MemoryID, error) {
	prompt, err := ForgetPrompt(question, candidates)
	if err != nil {
		return nil, err
	}

	raw, err := g.generate(ctx, prompt, idsSchema)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to disambiguate deletion")
	}
	return ParseIDs(raw)
}
