package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/raven/pkg/model"
	"github.com/m-mizutani/raven/pkg/usecase/memory"
	"github.com/m-mizutani/raven/pkg/utils/logging"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// UseCase is the set of memory workflows exposed as tools
type UseCase interface {
	Remember(ctx context.Context, text string) (*model.Memory, error)
	Recall(ctx context.Context, question string) (*memory.RecallResult, error)
	Forget(ctx context.Context, question string) (*memory.ForgetResult, error)
}

type rememberParams struct {
	Text string `json:"text"`
}

type questionParams struct {
	Question string `json:"question"`
}

var (
	rememberSchema = &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"text": {
				Type:        "string",
				Description: "Note to remember, as written by the user",
			},
		},
		Required: []string{"text"},
	}

	recallSchema = &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"question": {
				Type:        "string",
				Description: "Natural-language question about stored notes",
			},
		},
		Required: []string{"question"},
	}

	forgetSchema = &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"question": {
				Type:        "string",
				Description: "Natural-language description of the notes to delete",
			},
		},
		Required: []string{"question"},
	}
)

// NewServer creates an MCP server exposing remember, recall and forget
func NewServer(uc UseCase, version string) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "raven",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "remember",
		Description: "Store a short note in the personal memory. Tags are generated automatically.",
		InputSchema: rememberSchema,
	}, func(ctx context.Context, req *mcp.CallToolRequest, params *rememberParams) (*mcp.CallToolResult, any, error) {
		m, err := uc.Remember(ctx, params.Text)
		if err != nil {
			if errors.Is(err, model.ErrEmptyText) {
				return errorResult("text is empty"), nil, nil
			}
			return nil, nil, toolError(ctx, "remember", err)
		}

		text := fmt.Sprintf("Remembered #%d", m.ID)
		if len(m.Tags) > 0 {
			text += " (tags: " + strings.Join(m.Tags, ", ") + ")"
		}
		return result(text, m)
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "recall",
		Description: "Answer a question using only the notes stored in the personal memory.",
		InputSchema: recallSchema,
	}, func(ctx context.Context, req *mcp.CallToolRequest, params *questionParams) (*mcp.CallToolResult, any, error) {
		r, err := uc.Recall(ctx, params.Question)
		if err != nil {
			return nil, nil, toolError(ctx, "recall", err)
		}
		return result(r.Answer, r)
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "forget",
		Description: "Delete the notes a natural-language request clearly refers to.",
		InputSchema: forgetSchema,
	}, func(ctx context.Context, req *mcp.CallToolRequest, params *questionParams) (*mcp.CallToolResult, any, error) {
		r, err := uc.Forget(ctx, params.Question)
		if err != nil {
			return nil, nil, toolError(ctx, "forget", err)
		}
		return result(r.Answer, r)
	})

	return server
}

// Serve runs server over stdin/stdout until the client disconnects
func Serve(ctx context.Context, server *mcp.Server) error {
	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return goerr.Wrap(err, "MCP server stopped")
	}
	return nil
}

func result(text string, structured any) (*mcp.CallToolResult, any, error) {
	raw, err := json.Marshal(structured)
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to marshal tool result")
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
		StructuredContent: json.RawMessage(raw),
	}, nil, nil
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: msg},
		},
		IsError: true,
	}
}

func toolError(ctx context.Context, tool string, err error) error {
	logging.From(ctx).Error("tool failed", "tool", tool, "error", err)
	return goerr.Wrap(err, "tool failed", goerr.V("tool", tool))
}
