package cli

import (
	"context"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func rememberCommand() *cli.Command {
	var cfg config

	flags := localFlags(&cfg)
	flags = append(flags, remoteFlags(&cfg)...)

	return &cli.Command{
		Name:      "remember",
		Aliases:   []string{"r", "save"},
		Usage:     "Store a note. Opens $EDITOR when no text is given",
		ArgsUsage: "[text...]",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.logger(ctx)

			text := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
			if text == "" {
				captured, err := captureFromEditor(ctx, editorCommand())
				if err != nil {
					return err
				}
				if captured == "" {
					return goerr.New("Aborted.")
				}
				text = captured
			}

			wf, closer, err := cfg.newWorkflow(ctx)
			if err != nil {
				return err
			}
			defer closer()

			stop := startSpinner("Saving...")
			m, err := wf.Remember(ctx, text)
			stop()
			if err != nil {
				return goerr.Wrap(err, "failed to remember")
			}

			printRemembered(c.Root().Writer, m)
			return nil
		},
	}
}
