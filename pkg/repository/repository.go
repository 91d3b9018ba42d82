package repository

import (
	"context"

	"github.com/m-mizutani/raven/pkg/model"
)

// Repository owns memory records and the full-text index derived from them.
// Implementations must keep both in sync for every insert and delete.
type Repository interface {
	// Insert stores a new memory and indexes its text and tags atomically
	Insert(ctx context.Context, text string, tags []string) (*model.Memory, error)

	// DeleteByIDs removes memories and their index entries. Unknown IDs are ignored.
	// Returns the IDs actually deleted.
	DeleteByIDs(ctx context.Context, ids []model.MemoryID) ([]model.MemoryID, error)

	// MatchIndex evaluates a full-text match expression, best rank first
	MatchIndex(ctx context.Context, expr string, limit int) ([]model.Hit, error)

	// FetchByIDs hydrates memories. Result order is not guaranteed.
	FetchByIDs(ctx context.Context, ids []model.MemoryID) ([]*model.Memory, error)

	// Count returns number of stored memories
	Count(ctx context.Context) (int, error)

	// List returns memories ordered by newest first
	List(ctx context.Context, offset, limit int) ([]*model.Memory, error)
}
