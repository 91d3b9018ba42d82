package memory

import (
	"context"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/raven/pkg/model"
	"github.com/m-mizutani/raven/pkg/utils/logging"
)

// Remember stores a note. Tags come from the NLU collaborator; when tagging
// fails the note is stored without tags.
func (u *UseCase) Remember(ctx context.Context, text string) (*model.Memory, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, goerr.Wrap(model.ErrEmptyText, "nothing to remember")
	}

	logger := logging.From(ctx)

	tags, err := u.nlu.GenerateTags(ctx, text)
	if err != nil {
		logger.Warn("tag generation failed, storing without tags", "stage", "tags", "error", err)
		tags = nil
	}
	tags = normalizeTags(tags)

	memory, err := u.repo.Insert(ctx, text, tags)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to store memory", goerr.V("stage", "insert"))
	}

	logger.Info("memory stored", "id", memory.ID, "tags", memory.Tags)
	return memory, nil
}
