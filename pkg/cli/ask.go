package cli

import (
	"context"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func askCommand() *cli.Command {
	var cfg config

	flags := localFlags(&cfg)
	flags = append(flags, remoteFlags(&cfg)...)

	return &cli.Command{
		Name:      "ask",
		Aliases:   []string{"q", "remind"},
		Usage:     "Ask a question about stored notes",
		ArgsUsage: "<question...>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.logger(ctx)

			question := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
			if question == "" {
				return goerr.New("question is required")
			}

			wf, closer, err := cfg.newWorkflow(ctx)
			if err != nil {
				return err
			}
			defer closer()

			stop := startSpinner("Thinking...")
			result, err := wf.Recall(ctx, question)
			stop()
			if err != nil {
				return goerr.Wrap(err, "failed to answer question")
			}

			printRecall(c.Root().Writer, result)
			return nil
		},
	}
}
