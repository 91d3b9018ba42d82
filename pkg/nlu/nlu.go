package nlu

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"strings"
	"text/template"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/raven/pkg/model"
)

// ErrMalformedOutput is returned when a structured reply is not JSON or does
// not match the expected shape
var ErrMalformedOutput = goerr.New("malformed NLU output")

// Client is the natural-language collaborator used by the memory workflows.
// Every operation may fail independently; callers decide the fallback.
type Client interface {
	// GenerateTags returns candidate tags for a new memory ({"tags": [...]})
	GenerateTags(ctx context.Context, text string) ([]string, error)

	// ExtractKeywords returns search keywords for a question ({"keywords": [...]})
	ExtractKeywords(ctx context.Context, question string) ([]string, error)

	// SynthesizeAnswer answers the question using only records as evidence
	SynthesizeAnswer(ctx context.Context, question string, records []*model.Memory) (string, error)

	// DisambiguateDeletion picks which candidates the request wants removed ({"ids": [...]})
	DisambiguateDeletion(ctx context.Context, question string, candidates []*model.Memory) ([]model.MemoryID, error)
}

var (
	//go:embed prompt/tags.md
	tagsPromptRaw string
	//go:embed prompt/keywords.md
	keywordsPromptRaw string
	//go:embed prompt/answer.md
	answerPromptRaw string
	//go:embed prompt/forget.md
	forgetPromptRaw string

	promptFuncs = template.FuncMap{
		"join": strings.Join,
	}

	tagsPromptTmpl     = template.Must(template.New("tags").Funcs(promptFuncs).Parse(tagsPromptRaw))
	keywordsPromptTmpl = template.Must(template.New("keywords").Funcs(promptFuncs).Parse(keywordsPromptRaw))
	answerPromptTmpl   = template.Must(template.New("answer").Funcs(promptFuncs).Parse(answerPromptRaw))
	forgetPromptTmpl   = template.Must(template.New("forget").Funcs(promptFuncs).Parse(forgetPromptRaw))
)

type promptInput struct {
	Text     string
	Question string
	Records  []*model.Memory
}

func render(tmpl *template.Template, input promptInput) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, input); err != nil {
		return "", goerr.Wrap(err, "failed to execute prompt template", goerr.V("template", tmpl.Name()))
	}
	return buf.String(), nil
}

// TagsPrompt renders the tag generation prompt
func TagsPrompt(text string) (string, error) {
	return render(tagsPromptTmpl, promptInput{Text: text})
}

// KeywordsPrompt renders the keyword extraction prompt
func KeywordsPrompt(question string) (string, error) {
	return render(keywordsPromptTmpl, promptInput{Question: question})
}

// AnswerPrompt renders the answer prompt. With no records it instructs the
// model to report that nothing relevant was found.
func AnswerPrompt(question string, records []*model.Memory) (string, error) {
	return render(answerPromptTmpl, promptInput{Question: question, Records: records})
}

// ForgetPrompt renders the deletion disambiguation prompt
func ForgetPrompt(question string, candidates []*model.Memory) (string, error) {
	return render(forgetPromptTmpl, promptInput{Question: question, Records: candidates})
}

// ParseTags decodes {"tags": [...]}
func ParseTags(raw string) ([]string, error) {
	var out struct {
		Tags *[]string `json:"tags"`
	}
	if err := decodeJSON(raw, &out); err != nil {
		return nil, err
	}
	if out.Tags == nil {
		return nil, goerr.Wrap(ErrMalformedOutput, "tags field is missing", goerr.V("raw", raw))
	}
	return *out.Tags, nil
}

// ParseKeywords decodes {"keywords": [...]}
func ParseKeywords(raw string) ([]string, error) {
	var out struct {
		Keywords *[]string `json:"keywords"`
	}
	if err := decodeJSON(raw, &out); err != nil {
		return nil, err
	}
	if out.Keywords == nil {
		return nil, goerr.Wrap(ErrMalformedOutput, "keywords field is missing", goerr.V("raw", raw))
	}
	return *out.Keywords, nil
}

// ParseIDs decodes {"ids": [...]}
func ParseIDs(raw string) ([]model.MemoryID, error) {
	var out struct {
		IDs *[]model.MemoryID `json:"ids"`
	}
	if err := decodeJSON(raw, &out); err != nil {
		return nil, err
	}
	if out.IDs == nil {
		return nil, goerr.Wrap(ErrMalformedOutput, "ids field is missing", goerr.V("raw", raw))
	}
	return *out.IDs, nil
}

// decodeJSON tolerates a surrounding markdown code fence
func decodeJSON(raw string, v any) error {
	text := strings.TrimSpace(raw)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
		text = strings.TrimSpace(text)
	}

	if err := json.Unmarshal([]byte(text), v); err != nil {
		return goerr.Wrap(ErrMalformedOutput, "failed to decode JSON output", goerr.V("raw", raw), goerr.V("error", err.Error()))
	}
	return nil
}
