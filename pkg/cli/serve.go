package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/raven/pkg/server"
	"github.com/urfave/cli/v3"
)

func serveCommand() *cli.Command {
	var (
		cfg    config
		addr   string
		secret string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "Listen address",
			Value:       ":3000",
			Sources:     cli.EnvVars("RAVEN_ADDR"),
			Destination: &addr,
		},
		&cli.StringFlag{
			Name:        "server-secret",
			Usage:       "Shared secret clients must send in x-server-secret",
			Sources:     cli.EnvVars("SERVER_SECRET"),
			Destination: &secret,
		},
	}
	flags = append(flags, localFlags(&cfg)...)

	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API server",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.logger(ctx)

			if secret == "" {
				return goerr.New("SERVER_SECRET environment variable is not set")
			}

			uc, closer, err := cfg.newUseCase(ctx)
			if err != nil {
				return err
			}
			defer closer()

			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := server.New(uc, secret).Run(ctx, addr); err != nil {
				return goerr.Wrap(err, "server failed", goerr.V("addr", addr))
			}
			return nil
		},
	}
}
