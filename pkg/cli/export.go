package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/raven/pkg/adapter"
	"github.com/m-mizutani/raven/pkg/usecase/memory"
	"github.com/urfave/cli/v3"
)

func exportCommand() *cli.Command {
	var (
		cfg    config
		output string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "output",
			Aliases:     []string{"o"},
			Usage:       "Destination file, gs://bucket/object, or - for stdout",
			Value:       "-",
			Sources:     cli.EnvVars("RAVEN_EXPORT_OUTPUT"),
			Destination: &output,
		},
	}
	flags = append(flags, localFlags(&cfg)...)

	return &cli.Command{
		Name:  "export",
		Usage: "Export all memories as JSON lines",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.logger(ctx)

			repo, err := cfg.newRepository()
			if err != nil {
				return err
			}
			defer repo.Close()

			// export reads the store only, so no language model is needed
			uc := memory.New(repo, nil)

			w, err := openExportWriter(ctx, output, c.Root().Writer)
			if err != nil {
				return err
			}

			n, err := uc.Export(ctx, w)
			if err != nil {
				_ = w.Close()
				return goerr.Wrap(err, "failed to export memories", goerr.V("output", output))
			}
			if err := w.Close(); err != nil {
				return goerr.Wrap(err, "failed to finish export", goerr.V("output", output))
			}

			if output != "-" {
				fmt.Fprintf(c.Root().Writer, "Exported %d memories to %s\n", n, output)
			}
			return nil
		},
	}
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// openExportWriter resolves the export destination
func openExportWriter(ctx context.Context, output string, stdout io.Writer) (io.WriteCloser, error) {
	if output == "" || output == "-" {
		return nopCloser{stdout}, nil
	}

	if bucket, key, ok := adapter.ParseObjectURL(output); ok {
		storage, err := adapter.NewStorage(ctx, bucket)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create storage", goerr.V("bucket", bucket))
		}
		return storage.Put(ctx, key)
	}

	f, err := os.Create(output)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create export file", goerr.V("path", output))
	}
	return f, nil
}
