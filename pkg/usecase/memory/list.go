package memory

import (
	"context"
	"encoding/json"
	"io"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/raven/pkg/model"
)

const exportPageSize = 100

// ListResult is one page of memories, newest first
type ListResult struct {
	Memories []*model.Memory `json:"memories"`
	Total    int             `json:"total"`
}

// List returns a page of memories and the total count
func (u *UseCase) List(ctx context.Context, offset, limit int) (*ListResult, error) {
	memories, err := u.repo.List(ctx, offset, limit)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list memories", goerr.V("offset", offset), goerr.V("limit", limit))
	}

	total, err := u.repo.Count(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to count memories")
	}

	return &ListResult{Memories: memories, Total: total}, nil
}

// Export writes every memory to w as JSON lines, newest first, and returns
// the number written
func (u *UseCase) Export(ctx context.Context, w io.Writer) (int, error) {
	enc := json.NewEncoder(w)
	written := 0

	for offset := 0; ; offset += exportPageSize {
		page, err := u.repo.List(ctx, offset, exportPageSize)
		if err != nil {
			return written, goerr.Wrap(err, "failed to read memories for export", goerr.V("offset", offset))
		}

		for _, m := range page {
			if err := enc.Encode(m); err != nil {
				return written, goerr.Wrap(err, "failed to write exported memory", goerr.V("id", m.ID))
			}
			written++
		}

		if len(page) < exportPageSize {
			return written, nil
		}
	}
}
