package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/raven/pkg/model"
	"github.com/m-mizutani/raven/pkg/nlu"
	"github.com/m-mizutani/raven/pkg/repository"
	"github.com/m-mizutani/raven/pkg/usecase/memory"
)

func TestRemember(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	client := &mockNLU{generateTagsFunc: tagsOf("shopping", "reminder")}
	uc := memory.New(repo, client)

	first, err := uc.Remember(ctx, "call the dentist")
	gt.NoError(t, err)

	m, err := uc.Remember(ctx, "buy milk tomorrow")
	gt.NoError(t, err)
	gt.Equal(t, m.Text, "buy milk tomorrow")
	gt.Equal(t, m.Tags, []string{"shopping", "reminder"})
	gt.True(t, m.ID > first.ID)

	stored, err := repo.FetchByIDs(ctx, []model.MemoryID{m.ID})
	gt.NoError(t, err)
	gt.A(t, stored).Length(1)
	gt.Equal(t, stored[0].Tags, []string{"shopping", "reminder"})
}

func TestRememberNormalizesTags(t *testing.T) {
	ctx := context.Background()
	client := &mockNLU{generateTagsFunc: tagsOf(" Shopping", "shopping", "", "  ", "Milk ")}
	uc := memory.New(newRepo(t), client)

	m, err := uc.Remember(ctx, "  buy milk tomorrow \n")
	gt.NoError(t, err)
	gt.Equal(t, m.Text, "buy milk tomorrow")
	gt.Equal(t, m.Tags, []string{"shopping", "milk"})
}

func TestRememberTagFailure(t *testing.T) {
	ctx := context.Background()

	testCases := map[string]func(ctx context.Context, text string) ([]string, error){
		"collaborator error": func(ctx context.Context, text string) ([]string, error) {
			return nil, errors.New("connection reset")
		},
		"malformed output": func(ctx context.Context, text string) ([]string, error) {
			return nil, nlu.ErrMalformedOutput
		},
	}

	for name, fn := range testCases {
		t.Run(name, func(t *testing.T) {
			repo := newRepo(t)
			uc := memory.New(repo, &mockNLU{generateTagsFunc: fn})

			m, err := uc.Remember(ctx, "buy milk tomorrow")
			gt.NoError(t, err)
			gt.A(t, m.Tags).Length(0)

			n, err := repo.Count(ctx)
			gt.NoError(t, err)
			gt.Equal(t, n, 1)
		})
	}
}

func TestRememberEmptyText(t *testing.T) {
	ctx := context.Background()
	client := &mockNLU{generateTagsFunc: tagsOf("x")}
	repo := newRepo(t)
	uc := memory.New(repo, client)

	_, err := uc.Remember(ctx, " \n\t ")
	gt.Error(t, err)
	gt.True(t, errors.Is(err, model.ErrEmptyText))
	gt.Equal(t, client.calls, 0)

	n, err := repo.Count(ctx)
	gt.NoError(t, err)
	gt.Equal(t, n, 0)
}

type failingRepo struct {
	repository.Repository
	insertErr error
	deleteErr error
}

func (r *failingRepo) Insert(ctx context.Context, text string, tags []string) (*model.Memory, error) {
	if r.insertErr != nil {
		return nil, r.insertErr
	}
	return r.Repository.Insert(ctx, text, tags)
}

func (r *failingRepo) DeleteByIDs(ctx context.Context, ids []model.MemoryID) ([]model.MemoryID, error) {
	if r.deleteErr != nil {
		return nil, r.deleteErr
	}
	return r.Repository.DeleteByIDs(ctx, ids)
}

func TestRememberStorageFault(t *testing.T) {
	errDisk := errors.New("disk full")
	repo := &failingRepo{Repository: newRepo(t), insertErr: errDisk}
	uc := memory.New(repo, &mockNLU{generateTagsFunc: tagsOf("x")})

	_, err := uc.Remember(context.Background(), "buy milk")
	gt.Error(t, err)
	gt.True(t, errors.Is(err, errDisk))
}
