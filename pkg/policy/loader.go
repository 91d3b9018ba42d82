package policy

import (
	"context"
	"os"
	"path/filepath"

	"github.com/m-mizutani/goerr/v2"
	"github.com/open-policy-agent/opa/v1/rego"
)

// Query is the package every forget policy file contributes to
const Query = "data.forget"

// Load reads all Rego files in dir and prepares the forget query. It returns
// nil when dir is empty or holds no policy file; a nil Gate allows everything.
func Load(ctx context.Context, dir string) (*Gate, error) {
	if dir == "" {
		return nil, nil
	}

	info, err := os.Stat(dir)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to access policy directory", goerr.V("dir", dir))
	}

	files := []string{dir}
	if info.IsDir() {
		files, err = filepath.Glob(filepath.Join(dir, "*.rego"))
		if err != nil {
			return nil, goerr.Wrap(err, "failed to glob policy files", goerr.V("dir", dir))
		}
	}

	if len(files) == 0 {
		return nil, nil
	}

	options := make([]func(*rego.Rego), 0, len(files)+1)
	options = append(options, rego.Query(Query))
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to read policy file", goerr.V("path", file))
		}
		options = append(options, rego.Module(file, string(data)))
	}

	prepared, err := rego.New(options...).PrepareForEval(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to prepare policy query", goerr.V("query", Query), goerr.V("dir", dir))
	}

	return &Gate{query: &prepared, files: files}, nil
}
