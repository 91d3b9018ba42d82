package memory

import (
	"strings"

	"github.com/m-mizutani/raven/pkg/nlu"
	"github.com/m-mizutani/raven/pkg/policy"
	"github.com/m-mizutani/raven/pkg/repository"
	"github.com/m-mizutani/raven/pkg/service/search"
)

// DefaultKeywordLimit caps keywords produced by naive tokenization
const DefaultKeywordLimit = 8

// NoInformationAnswer is returned for a question that has no content
const NoInformationAnswer = "No relevant information was found."

// UseCase runs the remember, recall and forget workflows
type UseCase struct {
	repo         repository.Repository
	nlu          nlu.Client
	searcher     *search.Searcher
	searchPolicy search.Policy
	gate         *policy.Gate
	keywordLimit int
}

// Option is a functional option for UseCase
type Option func(*UseCase)

// WithSearcher replaces the search cascade built from the repository
func WithSearcher(s *search.Searcher) Option {
	return func(uc *UseCase) {
		uc.searcher = s
	}
}

// WithSearchPolicy sets the cascade policy used when no searcher is given
func WithSearchPolicy(p search.Policy) Option {
	return func(uc *UseCase) {
		uc.searchPolicy = p
	}
}

// WithForgetPolicy enables the deletion policy gate
func WithForgetPolicy(gate *policy.Gate) Option {
	return func(uc *UseCase) {
		uc.gate = gate
	}
}

// WithKeywordLimit sets how many tokens naive tokenization keeps
func WithKeywordLimit(n int) Option {
	return func(uc *UseCase) {
		if n > 0 {
			uc.keywordLimit = n
		}
	}
}

// New creates a new memory UseCase instance
func New(
	repo repository.Repository,
	client nlu.Client,
	opts ...Option,
) *UseCase {
	uc := &UseCase{
		repo:         repo,
		nlu:          client,
		searchPolicy: search.DefaultPolicy(),
		keywordLimit: DefaultKeywordLimit,
	}

	for _, opt := range opts {
		opt(uc)
	}

	if uc.searcher == nil {
		uc.searcher = search.New(repo, search.WithPolicy(uc.searchPolicy))
	}

	return uc
}

// Tokenize splits text on whitespace, drops empty tokens and keeps at most
// limit tokens. A non-positive limit keeps all of them.
func Tokenize(text string, limit int) []string {
	tokens := strings.Fields(text)
	if limit > 0 && len(tokens) > limit {
		tokens = tokens[:limit]
	}
	return tokens
}

// normalizeTags trims and lowercases tags, dropping empties and duplicates
func normalizeTags(tags []string) []string {
	result := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		t := strings.ToLower(strings.TrimSpace(tag))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		result = append(result, t)
	}
	return result
}
