package cli

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func listCommand() *cli.Command {
	var (
		cfg    config
		offset int64
		limit  int64
	)

	flags := []cli.Flag{
		&cli.IntFlag{
			Name:        "offset",
			Usage:       "Offset for pagination",
			Value:       0,
			Sources:     cli.EnvVars("RAVEN_LIST_OFFSET"),
			Destination: &offset,
		},
		&cli.IntFlag{
			Name:        "limit",
			Aliases:     []string{"n"},
			Usage:       "Maximum number of memories to list",
			Value:       20,
			Sources:     cli.EnvVars("RAVEN_LIST_LIMIT"),
			Destination: &limit,
		},
	}
	flags = append(flags, localFlags(&cfg)...)
	flags = append(flags, remoteFlags(&cfg)...)

	return &cli.Command{
		Name:  "list",
		Usage: "List recent memories",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.logger(ctx)

			if offset < 0 || limit <= 0 {
				return goerr.New("offset must be >= 0 and limit must be > 0",
					goerr.V("offset", offset), goerr.V("limit", limit))
			}

			wf, closer, err := cfg.newWorkflow(ctx)
			if err != nil {
				return err
			}
			defer closer()

			result, err := wf.List(ctx, int(offset), int(limit))
			if err != nil {
				return goerr.Wrap(err, "failed to list memories")
			}

			printList(c.Root().Writer, result, int(offset))
			return nil
		},
	}
}
