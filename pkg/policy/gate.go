package policy

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/raven/pkg/model"
	"github.com/m-mizutani/raven/pkg/utils/logging"
	"github.com/open-policy-agent/opa/v1/rego"
	"github.com/open-policy-agent/opa/v1/topdown/print"
)

// Gate decides whether a selected deletion may proceed
type Gate struct {
	query *rego.PreparedEvalQuery
	files []string
}

// Input is the document exposed to policies as `input`
type Input struct {
	Question   string           `json:"question"`
	Candidates []*model.Memory  `json:"candidates"`
	Selected   []model.MemoryID `json:"selected"`
}

// Decision is the outcome of a policy evaluation. Reasons holds every
// message of the `deny` set.
type Decision struct {
	Allow   bool
	Reasons []string
}

// Files returns the policy files the gate was built from
func (g *Gate) Files() []string {
	if g == nil {
		return nil
	}
	return g.files
}

type printHook struct {
	logger *slog.Logger
}

func (h *printHook) Print(_ print.Context, message string) error {
	h.logger.Debug("policy print", "message", message)
	return nil
}

// Evaluate runs the forget policy against input
func (g *Gate) Evaluate(ctx context.Context, input Input) (*Decision, error) {
	if g == nil || g.query == nil {
		return &Decision{Allow: true}, nil
	}

	doc, err := toDocument(input)
	if err != nil {
		return nil, err
	}

	hook := &printHook{logger: logging.From(ctx)}
	rs, err := g.query.Eval(ctx, rego.EvalInput(doc), rego.EvalPrintHook(hook))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to evaluate forget policy")
	}

	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return &Decision{Allow: true}, nil
	}

	data, ok := rs[0].Expressions[0].Value.(map[string]any)
	if !ok {
		return nil, goerr.New("invalid forget policy result", goerr.V("value", rs[0].Expressions[0].Value))
	}

	denyData, ok := data["deny"]
	if !ok {
		return &Decision{Allow: true}, nil
	}

	denies, ok := denyData.([]any)
	if !ok {
		return nil, goerr.New("invalid forget policy result: deny is not a set", goerr.V("deny", denyData))
	}

	decision := &Decision{Allow: len(denies) == 0}
	for _, d := range denies {
		if s, ok := d.(string); ok {
			decision.Reasons = append(decision.Reasons, s)
		} else {
			decision.Reasons = append(decision.Reasons, fmt.Sprint(d))
		}
	}

	return decision, nil
}

// toDocument converts input to plain JSON values so policies see the same
// field names as API clients
func toDocument(input Input) (any, error) {
	if input.Candidates == nil {
		input.Candidates = []*model.Memory{}
	}
	if input.Selected == nil {
		input.Selected = []model.MemoryID{}
	}

	raw, err := json.Marshal(input)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to marshal policy input")
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal policy input")
	}
	return doc, nil
}
