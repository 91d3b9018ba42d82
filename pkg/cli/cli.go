package cli

import (
	"context"

	"github.com/urfave/cli/v3"
)

// Version is reported by the MCP server and --version
var Version = "0.1.0"

type Error struct {
	Code    int
	Message string
}

func Run(ctx context.Context, argv []string) *Error {
	cmd := &cli.Command{
		Name:    "raven",
		Usage:   "Personal external memory: remember notes and ask about them later",
		Version: Version,
		Commands: []*cli.Command{
			rememberCommand(),
			askCommand(),
			deleteCommand(),
			listCommand(),
			exportCommand(),
			shellCommand(),
			serveCommand(),
			mcpCommand(),
		},
	}

	if err := cmd.Run(ctx, argv); err != nil {
		return &Error{
			Code:    1,
			Message: err.Error(),
		}
	}

	return nil
}
