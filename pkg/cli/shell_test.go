package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/raven/pkg/model"
	"github.com/m-mizutani/raven/pkg/usecase/memory"
)

type mockWorkflow struct {
	remembered []string
	asked      []string
	forgotten  []string
	listLimit  int
}

func (m *mockWorkflow) Remember(ctx context.Context, text string) (*model.Memory, error) {
	m.remembered = append(m.remembered, text)
	return &model.Memory{ID: model.MemoryID(len(m.remembered)), Text: text, Tags: []string{"note"}}, nil
}

func (m *mockWorkflow) Recall(ctx context.Context, question string) (*memory.RecallResult, error) {
	m.asked = append(m.asked, question)
	return &memory.RecallResult{
		Answer: "You need milk.",
		Stats:  memory.RecallStats{Found: 1, Keywords: []string{"milk"}},
	}, nil
}

func (m *mockWorkflow) Forget(ctx context.Context, question string) (*memory.ForgetResult, error) {
	m.forgotten = append(m.forgotten, question)
	return &memory.ForgetResult{
		Answer:  "Deleted 1 item(s).",
		Status:  memory.StatusDeleted,
		Deleted: []model.MemoryID{4},
	}, nil
}

func (m *mockWorkflow) List(ctx context.Context, offset, limit int) (*memory.ListResult, error) {
	m.listLimit = limit
	return &memory.ListResult{
		Memories: []*model.Memory{{ID: 9, Text: "buy milk"}},
		Total:    1,
	}, nil
}

func TestRunShellLine(t *testing.T) {
	ctx := context.Background()
	wf := &mockWorkflow{}
	var buf bytes.Buffer

	quit, err := runShellLine(ctx, wf, &buf, "remember buy milk tomorrow")
	gt.NoError(t, err)
	gt.False(t, quit)
	gt.Equal(t, wf.remembered, []string{"buy milk tomorrow"})
	gt.S(t, buf.String()).Contains("#1")

	buf.Reset()
	_, err = runShellLine(ctx, wf, &buf, "  q   what do I need ")
	gt.NoError(t, err)
	gt.Equal(t, wf.asked, []string{"what do I need"})
	gt.S(t, buf.String()).Contains("You need milk.")
	gt.S(t, buf.String()).Contains("milk")

	buf.Reset()
	_, err = runShellLine(ctx, wf, &buf, "d milk")
	gt.NoError(t, err)
	gt.Equal(t, wf.forgotten, []string{"milk"})
	gt.S(t, buf.String()).Contains("#4")

	buf.Reset()
	_, err = runShellLine(ctx, wf, &buf, "list 3")
	gt.NoError(t, err)
	gt.Equal(t, wf.listLimit, 3)
	gt.S(t, buf.String()).Contains("buy milk")

	_, err = runShellLine(ctx, wf, &buf, "list zero")
	gt.Error(t, err)

	_, err = runShellLine(ctx, wf, &buf, "remember")
	gt.Error(t, err)

	_, err = runShellLine(ctx, wf, &buf, "dance")
	gt.Error(t, err)

	quit, err = runShellLine(ctx, wf, &buf, "")
	gt.NoError(t, err)
	gt.False(t, quit)

	quit, err = runShellLine(ctx, wf, &buf, "exit")
	gt.NoError(t, err)
	gt.True(t, quit)
}
