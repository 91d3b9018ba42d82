package server_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/raven/pkg/model"
	"github.com/m-mizutani/raven/pkg/server"
	"github.com/m-mizutani/raven/pkg/usecase/memory"
)

const testSecret = "s3cret"

type mockUseCase struct {
	rememberFunc func(ctx context.Context, text string) (*model.Memory, error)
	recallFunc   func(ctx context.Context, question string) (*memory.RecallResult, error)
	forgetFunc   func(ctx context.Context, question string) (*memory.ForgetResult, error)
	listFunc     func(ctx context.Context, offset, limit int) (*memory.ListResult, error)
}

func (m *mockUseCase) Remember(ctx context.Context, text string) (*model.Memory, error) {
	return m.rememberFunc(ctx, text)
}

func (m *mockUseCase) Recall(ctx context.Context, question string) (*memory.RecallResult, error) {
	return m.recallFunc(ctx, question)
}

func (m *mockUseCase) Forget(ctx context.Context, question string) (*memory.ForgetResult, error) {
	return m.forgetFunc(ctx, question)
}

func (m *mockUseCase) List(ctx context.Context, offset, limit int) (*memory.ListResult, error) {
	return m.listFunc(ctx, offset, limit)
}

func do(t *testing.T, h http.Handler, method, path, body string, secret *string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if secret != nil {
		req.Header.Set(server.SecretHeader, *secret)
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var resp map[string]any
	if w.Body.Len() > 0 {
		gt.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}

func secretPtr(s string) *string { return &s }

func TestAuthentication(t *testing.T) {
	srv := server.New(&mockUseCase{}, testSecret)

	t.Run("missing secret", func(t *testing.T) {
		w, resp := do(t, srv, http.MethodGet, "/", "", nil)
		gt.Equal(t, w.Code, http.StatusUnauthorized)
		gt.Equal(t, resp["error"], any("missing x-server-secret header"))
		gt.True(t, w.Header().Get(server.RequestIDHeader) != "")
	})

	t.Run("wrong secret", func(t *testing.T) {
		w, resp := do(t, srv, http.MethodPost, "/remember", `{"text":"x"}`, secretPtr("nope"))
		gt.Equal(t, w.Code, http.StatusForbidden)
		gt.Equal(t, resp["error"], any("unauthorized"))
	})

	t.Run("valid secret", func(t *testing.T) {
		w, resp := do(t, srv, http.MethodGet, "/", "", secretPtr(testSecret))
		gt.Equal(t, w.Code, http.StatusOK)
		gt.Equal(t, resp["message"], any("hello"))
	})
}

func TestRemember(t *testing.T) {
	createdAt := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	uc := &mockUseCase{
		rememberFunc: func(ctx context.Context, text string) (*model.Memory, error) {
			if strings.TrimSpace(text) == "" {
				return nil, goerr.Wrap(model.ErrEmptyText, "nothing to remember")
			}
			return &model.Memory{ID: 42, Text: text, Tags: []string{"shopping"}, CreatedAt: createdAt}, nil
		},
	}
	srv := server.New(uc, testSecret)

	t.Run("stored", func(t *testing.T) {
		w, resp := do(t, srv, http.MethodPost, "/remember", `{"text":"buy milk"}`, secretPtr(testSecret))
		gt.Equal(t, w.Code, http.StatusOK)
		gt.Equal(t, resp["ok"], any(true))
		gt.Equal(t, resp["id"], any(float64(42)))
		gt.Equal(t, resp["tags"], any([]any{"shopping"}))
		gt.Equal(t, resp["created_at"], any("2024-05-01T09:30:00Z"))
	})

	t.Run("empty text", func(t *testing.T) {
		w, _ := do(t, srv, http.MethodPost, "/remember", `{"text":"  "}`, secretPtr(testSecret))
		gt.Equal(t, w.Code, http.StatusBadRequest)
	})

	t.Run("bad json", func(t *testing.T) {
		w, resp := do(t, srv, http.MethodPost, "/remember", `{"text":`, secretPtr(testSecret))
		gt.Equal(t, w.Code, http.StatusBadRequest)
		gt.Equal(t, resp["error"], any("invalid JSON body"))
	})
}

func TestRemind(t *testing.T) {
	uc := &mockUseCase{
		recallFunc: func(ctx context.Context, question string) (*memory.RecallResult, error) {
			gt.Equal(t, question, "what did I need to buy")
			return &memory.RecallResult{
				Answer:  "Milk.",
				Stats:   memory.RecallStats{Found: 1, Keywords: []string{"buy"}},
				Records: []*model.Memory{{ID: 1, Text: "buy milk", Tags: []string{}}},
			}, nil
		},
	}
	srv := server.New(uc, testSecret)

	w, resp := do(t, srv, http.MethodPost, "/remind", `{"question":"what did I need to buy"}`, secretPtr(testSecret))
	gt.Equal(t, w.Code, http.StatusOK)
	gt.Equal(t, resp["answer"], any("Milk."))
	gt.Equal(t, resp["stats"], any(map[string]any{"found": float64(1), "keywords": []any{"buy"}}))
	gt.A(t, resp["records"].([]any)).Length(1)
}

func TestRemindFailure(t *testing.T) {
	uc := &mockUseCase{
		recallFunc: func(ctx context.Context, question string) (*memory.RecallResult, error) {
			return nil, errors.New("model overloaded")
		},
	}
	srv := server.New(uc, testSecret)

	w, resp := do(t, srv, http.MethodPost, "/remind", `{"question":"q"}`, secretPtr(testSecret))
	gt.Equal(t, w.Code, http.StatusInternalServerError)
	gt.S(t, resp["error"].(string)).Contains("model overloaded")
}

func TestDelete(t *testing.T) {
	uc := &mockUseCase{
		forgetFunc: func(ctx context.Context, question string) (*memory.ForgetResult, error) {
			return &memory.ForgetResult{
				Answer:     "Deleted 1 item(s).",
				Status:     memory.StatusDeleted,
				Deleted:    []model.MemoryID{3},
				Candidates: []*model.Memory{{ID: 3, Text: "buy milk", Tags: []string{}}},
			}, nil
		},
	}
	srv := server.New(uc, testSecret)

	w, resp := do(t, srv, http.MethodPost, "/delete", `{"question":"delete milk"}`, secretPtr(testSecret))
	gt.Equal(t, w.Code, http.StatusOK)
	gt.Equal(t, resp["answer"], any("Deleted 1 item(s)."))
	gt.Equal(t, resp["status"], any("deleted"))
	gt.Equal(t, resp["deleted"], any([]any{float64(3)}))
	gt.A(t, resp["candidates"].([]any)).Length(1)
}

func TestListMemories(t *testing.T) {
	var gotOffset, gotLimit int
	uc := &mockUseCase{
		listFunc: func(ctx context.Context, offset, limit int) (*memory.ListResult, error) {
			gotOffset, gotLimit = offset, limit
			return &memory.ListResult{Memories: []*model.Memory{}, Total: 7}, nil
		},
	}
	srv := server.New(uc, testSecret)

	t.Run("defaults", func(t *testing.T) {
		w, resp := do(t, srv, http.MethodGet, "/memories", "", secretPtr(testSecret))
		gt.Equal(t, w.Code, http.StatusOK)
		gt.Equal(t, gotOffset, 0)
		gt.Equal(t, gotLimit, 20)
		gt.Equal(t, resp["total"], any(float64(7)))
	})

	t.Run("paging", func(t *testing.T) {
		w, _ := do(t, srv, http.MethodGet, "/memories?offset=5&limit=2", "", secretPtr(testSecret))
		gt.Equal(t, w.Code, http.StatusOK)
		gt.Equal(t, gotOffset, 5)
		gt.Equal(t, gotLimit, 2)
	})

	t.Run("invalid paging", func(t *testing.T) {
		w, _ := do(t, srv, http.MethodGet, "/memories?offset=-1", "", secretPtr(testSecret))
		gt.Equal(t, w.Code, http.StatusBadRequest)

		w, _ = do(t, srv, http.MethodGet, "/memories?limit=abc", "", secretPtr(testSecret))
		gt.Equal(t, w.Code, http.StatusBadRequest)
	})
}
