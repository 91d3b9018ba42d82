package search

import (
	"context"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/raven/pkg/model"
	"github.com/m-mizutani/raven/pkg/utils/logging"
)

const (
	DefaultWidenBelow = 5
	DefaultLimit      = 30
)

// Index is the part of the repository used by the cascade
type Index interface {
	MatchIndex(ctx context.Context, expr string, limit int) ([]model.Hit, error)
	FetchByIDs(ctx context.Context, ids []model.MemoryID) ([]*model.Memory, error)
}

// Policy controls when the cascade widens and how many hits each stage may return
type Policy struct {
	// WidenBelow triggers the loose stage when the strict stage returns fewer hits
	WidenBelow int `yaml:"widen_below" json:"widen_below"`
	// Limit caps ranked hits per stage
	Limit int `yaml:"limit" json:"limit"`
}

// DefaultPolicy returns the standard cascade policy
func DefaultPolicy() Policy {
	return Policy{
		WidenBelow: DefaultWidenBelow,
		Limit:      DefaultLimit,
	}
}

// Searcher runs the strict-then-loose keyword cascade against an Index
type Searcher struct {
	index  Index
	policy Policy
}

// Option is a functional option for Searcher
type Option func(*Searcher)

// WithPolicy overrides the cascade policy. Non-positive fields keep defaults.
func WithPolicy(p Policy) Option {
	return func(s *Searcher) {
		if p.WidenBelow > 0 {
			s.policy.WidenBelow = p.WidenBelow
		}
		if p.Limit > 0 {
			s.policy.Limit = p.Limit
		}
	}
}

// New creates a new Searcher
func New(index Index, opts ...Option) *Searcher {
	s := &Searcher{
		index:  index,
		policy: DefaultPolicy(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Policy returns the effective policy
func (s *Searcher) Policy() Policy {
	return s.policy
}

// FuzzySearch finds memories matching keywords. It first requires all
// keywords (AND) and, when that yields fewer than WidenBelow hits, appends
// hits matching any keyword (OR). Results follow cascade order: strict hits
// by rank, then loose-only hits by rank. No ID appears twice.
func (s *Searcher) FuzzySearch(ctx context.Context, keywords []string) ([]*model.Memory, error) {
	terms := Sanitize(keywords)
	if len(terms) == 0 {
		return []*model.Memory{}, nil
	}

	logger := logging.From(ctx)

	strict, err := s.index.MatchIndex(ctx, Conjunction(terms), s.policy.Limit)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to run strict search", goerr.V("stage", "strict"), goerr.V("terms", terms))
	}

	ids := make([]model.MemoryID, 0, len(strict))
	seen := make(map[model.MemoryID]struct{}, len(strict))
	for _, hit := range strict {
		if _, ok := seen[hit.ID]; ok {
			continue
		}
		seen[hit.ID] = struct{}{}
		ids = append(ids, hit.ID)
	}

	if len(strict) < s.policy.WidenBelow {
		loose, err := s.index.MatchIndex(ctx, Disjunction(terms), s.policy.Limit)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to run loose search", goerr.V("stage", "loose"), goerr.V("terms", terms))
		}
		for _, hit := range loose {
			if _, ok := seen[hit.ID]; ok {
				continue
			}
			seen[hit.ID] = struct{}{}
			ids = append(ids, hit.ID)
		}
		logger.Debug("search widened", "terms", terms, "strict", len(strict), "loose", len(loose))
	}

	if len(ids) == 0 {
		return []*model.Memory{}, nil
	}

	fetched, err := s.index.FetchByIDs(ctx, ids)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to hydrate search results", goerr.V("stage", "hydrate"), goerr.V("ids", ids))
	}

	return arrange(ids, fetched), nil
}

// arrange puts hydrated memories in cascade order. IDs missing from fetched
// (deleted between match and hydrate) are skipped.
func arrange(order []model.MemoryID, fetched []*model.Memory) []*model.Memory {
	byID := make(map[model.MemoryID]*model.Memory, len(fetched))
	for _, m := range fetched {
		byID[m.ID] = m
	}

	result := make([]*model.Memory, 0, len(order))
	for _, id := range order {
		if m, ok := byID[id]; ok {
			result = append(result, m)
			delete(byID, id)
		}
	}
	return result
}

// Sanitize drops empty keywords and strips everything except ASCII letters
// and digits, so terms can be embedded in a match expression verbatim.
func Sanitize(keywords []string) []string {
	terms := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if strings.TrimSpace(kw) == "" {
			continue
		}

		var b strings.Builder
		for i := 0; i < len(kw); i++ {
			c := kw[i]
			if ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9') {
				b.WriteByte(c)
			}
		}
		if b.Len() > 0 {
			terms = append(terms, b.String())
		}
	}
	return terms
}

// Conjunction builds `"a" AND "b"` from sanitized terms
func Conjunction(terms []string) string {
	return join(terms, " AND ")
}

// Disjunction builds `"a" OR "b"` from sanitized terms
func Disjunction(terms []string) string {
	return join(terms, " OR ")
}

func join(terms []string, op string) string {
	quoted := make([]string, len(terms))
	for i, t := range terms {
		quoted[i] = `"` + t + `"`
	}
	return strings.Join(quoted, op)
}
