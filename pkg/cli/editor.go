package cli

import (
	"context"
	"os"
	"os/exec"
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

const defaultEditor = "vim"

// editorCommand returns $EDITOR split into command and arguments
func editorCommand() []string {
	editor := strings.Fields(os.Getenv("EDITOR"))
	if len(editor) == 0 {
		return []string{defaultEditor}
	}
	return editor
}

// captureFromEditor opens the editor on an empty temp file and returns what
// was written, trimmed
func captureFromEditor(ctx context.Context, editor []string) (string, error) {
	f, err := os.CreateTemp("", "raven-*.txt")
	if err != nil {
		return "", goerr.Wrap(err, "failed to create temp file")
	}
	path := f.Name()
	defer os.Remove(path)
	if err := f.Close(); err != nil {
		return "", goerr.Wrap(err, "failed to close temp file", goerr.V("path", path))
	}

	args := append(append([]string{}, editor[1:]...), path)
	cmd := exec.CommandContext(ctx, editor[0], args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return "", goerr.Wrap(err, "editor exited with error", goerr.V("editor", editor))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", goerr.Wrap(err, "failed to read temp file", goerr.V("path", path))
	}

	return strings.TrimSpace(string(data)), nil
}
