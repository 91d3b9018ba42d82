package memory

import (
	"context"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/raven/pkg/model"
	"github.com/m-mizutani/raven/pkg/utils/logging"
)

// RecallStats summarizes how an answer was found
type RecallStats struct {
	Found    int      `json:"found"`
	Keywords []string `json:"keywords"`
}

// RecallResult is the answer to a question with the records it was based on
type RecallResult struct {
	Answer  string          `json:"answer"`
	Stats   RecallStats     `json:"stats"`
	Records []*model.Memory `json:"records"`
}

// Recall answers a question from stored memories
func (u *UseCase) Recall(ctx context.Context, question string) (*RecallResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return &RecallResult{
			Answer:  NoInformationAnswer,
			Stats:   RecallStats{Keywords: []string{}},
			Records: []*model.Memory{},
		}, nil
	}

	logger := logging.From(ctx)
	keywords := u.keywords(ctx, question)

	records, err := u.searcher.FuzzySearch(ctx, keywords)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to search memories", goerr.V("stage", "search"), goerr.V("keywords", keywords))
	}

	answer, err := u.nlu.SynthesizeAnswer(ctx, question, records)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to synthesize answer", goerr.V("stage", "synthesize"), goerr.V("found", len(records)))
	}

	logger.Info("question answered", "keywords", keywords, "found", len(records))

	return &RecallResult{
		Answer: answer,
		Stats: RecallStats{
			Found:    len(records),
			Keywords: keywords,
		},
		Records: records,
	}, nil
}

// keywords prefers NLU extraction and falls back to tokenizing the question
func (u *UseCase) keywords(ctx context.Context, question string) []string {
	logger := logging.From(ctx)

	extracted, err := u.nlu.ExtractKeywords(ctx, question)
	if err != nil {
		logger.Warn("keyword extraction failed, tokenizing question", "stage", "keywords", "error", err)
		return Tokenize(question, u.keywordLimit)
	}

	keywords := make([]string, 0, len(extracted))
	for _, kw := range extracted {
		if kw = strings.TrimSpace(kw); kw != "" {
			keywords = append(keywords, kw)
		}
	}
	if len(keywords) == 0 {
		logger.Warn("keyword extraction returned nothing, tokenizing question", "stage", "keywords")
		return Tokenize(question, u.keywordLimit)
	}

	return keywords
}
