package cli

import (
	"context"

	"github.com/m-mizutani/raven/pkg/service/mcp"
	"github.com/urfave/cli/v3"
)

func mcpCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:  "mcp",
		Usage: "Run as an MCP server over stdio",
		Flags: localFlags(&cfg),
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.logger(ctx)

			uc, closer, err := cfg.newUseCase(ctx)
			if err != nil {
				return err
			}
			defer closer()

			return mcp.Serve(ctx, mcp.NewServer(uc, Version))
		},
	}
}
