package cli

import (
	"context"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func deleteCommand() *cli.Command {
	var cfg config

	flags := localFlags(&cfg)
	flags = append(flags, remoteFlags(&cfg)...)

	return &cli.Command{
		Name:      "delete",
		Aliases:   []string{"d"},
		Usage:     "Delete notes described in natural language",
		ArgsUsage: "<query...>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.logger(ctx)

			query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
			if query == "" {
				return goerr.New("query is required")
			}

			wf, closer, err := cfg.newWorkflow(ctx)
			if err != nil {
				return err
			}
			defer closer()

			stop := startSpinner("Looking for matching notes...")
			result, err := wf.Forget(ctx, query)
			stop()
			if err != nil {
				return goerr.Wrap(err, "failed to delete")
			}

			printForget(c.Root().Writer, result)
			return nil
		},
	}
}
