package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/raven/pkg/model"
	"github.com/m-mizutani/raven/pkg/server"
	"github.com/m-mizutani/raven/pkg/usecase/memory"
)

// Client calls a running raven server
type Client struct {
	baseURL    string
	secret     string
	httpClient *http.Client
}

// Option is a functional option for Client
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(c *http.Client) Option {
	return func(x *Client) {
		x.httpClient = c
	}
}

// New creates a new Client for the server at baseURL
func New(baseURL, secret string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		secret:  secret,
		httpClient: &http.Client{
			// answers wait for the language model
			Timeout: 2 * time.Minute,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Remember stores text on the server
func (x *Client) Remember(ctx context.Context, text string) (*model.Memory, error) {
	var resp server.RememberResponse
	if err := x.call(ctx, http.MethodPost, "/remember", server.RememberRequest{Text: text}, &resp); err != nil {
		return nil, err
	}

	return &model.Memory{
		ID:        resp.ID,
		CreatedAt: resp.CreatedAt,
		Text:      strings.TrimSpace(text),
		Tags:      resp.Tags,
	}, nil
}

// Recall asks the server a question
func (x *Client) Recall(ctx context.Context, question string) (*memory.RecallResult, error) {
	var resp memory.RecallResult
	if err := x.call(ctx, http.MethodPost, "/remind", server.QuestionRequest{Question: question}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Forget asks the server to delete memories matching question
func (x *Client) Forget(ctx context.Context, question string) (*memory.ForgetResult, error) {
	var resp memory.ForgetResult
	if err := x.call(ctx, http.MethodPost, "/delete", server.QuestionRequest{Question: question}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// List returns a page of memories, newest first
func (x *Client) List(ctx context.Context, offset, limit int) (*memory.ListResult, error) {
	q := url.Values{}
	q.Set("offset", strconv.Itoa(offset))
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	var resp memory.ListResult
	if err := x.call(ctx, http.MethodGet, "/memories?"+q.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (x *Client) call(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return goerr.Wrap(err, "failed to marshal request", goerr.V("path", path))
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, x.baseURL+path, reader)
	if err != nil {
		return goerr.Wrap(err, "failed to create request", goerr.V("path", path))
	}
	req.Header.Set(server.SecretHeader, x.secret)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := x.httpClient.Do(req)
	if err != nil {
		return goerr.Wrap(err, "failed to send request", goerr.V("url", x.baseURL+path))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return goerr.New("server returned error",
			goerr.V("status", resp.StatusCode),
			goerr.V("body", string(respBody)),
			goerr.V("path", path),
			goerr.V("request_id", resp.Header.Get(server.RequestIDHeader)),
		)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return goerr.Wrap(err, "failed to decode response", goerr.V("path", path))
	}
	return nil
}
