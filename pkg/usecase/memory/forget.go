package memory

import (
	"context"
	"fmt"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/raven/pkg/model"
	"github.com/m-mizutani/raven/pkg/policy"
	"github.com/m-mizutani/raven/pkg/utils/logging"
)

// ForgetStatus is the outcome of a deletion request
type ForgetStatus string

const (
	StatusDeleted      ForgetStatus = "deleted"
	StatusNotFound     ForgetStatus = "not_found"
	StatusNoExactMatch ForgetStatus = "no_exact_match"
	StatusDenied       ForgetStatus = "denied"
)

const (
	notFoundAnswer     = "No items found."
	noExactMatchAnswer = "Found items, but none matched exactly."
	deniedAnswer       = "Deletion was denied by policy."
)

// ForgetResult reports what a deletion request did
type ForgetResult struct {
	Answer     string           `json:"answer"`
	Status     ForgetStatus     `json:"status"`
	Deleted    []model.MemoryID `json:"deleted"`
	Candidates []*model.Memory  `json:"candidates"`
	Reasons    []string         `json:"reasons,omitempty"`
}

// Forget deletes the memories a natural-language request refers to. Only
// candidates found by search can be deleted.
func (u *UseCase) Forget(ctx context.Context, question string) (*ForgetResult, error) {
	logger := logging.From(ctx)
	question = strings.TrimSpace(question)
	keywords := Tokenize(question, u.keywordLimit)

	candidates, err := u.searcher.FuzzySearch(ctx, keywords)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to search memories", goerr.V("stage", "search"), goerr.V("keywords", keywords))
	}

	result := &ForgetResult{
		Deleted:    []model.MemoryID{},
		Candidates: candidates,
	}

	if len(candidates) == 0 {
		result.Answer = notFoundAnswer
		result.Status = StatusNotFound
		return result, nil
	}

	selected, err := u.nlu.DisambiguateDeletion(ctx, question, candidates)
	if err != nil {
		logger.Warn("disambiguation failed, deleting nothing", "stage", "disambiguate", "error", err)
		selected = nil
	}
	ids := restrict(selected, candidates)

	if len(ids) == 0 {
		result.Answer = noExactMatchAnswer
		result.Status = StatusNoExactMatch
		return result, nil
	}

	decision, err := u.gate.Evaluate(ctx, policy.Input{
		Question:   question,
		Candidates: candidates,
		Selected:   ids,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to evaluate forget policy", goerr.V("stage", "policy"), goerr.V("ids", ids))
	}
	if !decision.Allow {
		logger.Info("deletion denied by policy", "ids", ids, "reasons", decision.Reasons)
		result.Answer = deniedAnswer
		result.Status = StatusDenied
		result.Reasons = decision.Reasons
		return result, nil
	}

	deleted, err := u.repo.DeleteByIDs(ctx, ids)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to delete memories", goerr.V("stage", "delete"), goerr.V("ids", ids))
	}

	logger.Info("memories deleted", "requested", ids, "deleted", deleted)

	result.Deleted = deleted
	result.Answer = fmt.Sprintf("Deleted %d item(s).", len(deleted))
	result.Status = StatusDeleted
	return result, nil
}

// restrict keeps selected ids that are among candidates, in selection order
// without duplicates
func restrict(selected []model.MemoryID, candidates []*model.Memory) []model.MemoryID {
	allowed := make(map[model.MemoryID]struct{}, len(candidates))
	for _, c := range candidates {
		allowed[c.ID] = struct{}{}
	}

	ids := make([]model.MemoryID, 0, len(selected))
	for _, id := range selected {
		if _, ok := allowed[id]; !ok {
			continue
		}
		delete(allowed, id)
		ids = append(ids, id)
	}
	return ids
}
