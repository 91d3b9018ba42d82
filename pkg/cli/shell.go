package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/raven/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

const shellHelp = `Commands:
  remember <text>   store a note (aliases: r, save)
  ask <question>    ask about stored notes (aliases: q, remind)
  delete <query>    delete notes (alias: d)
  list [n]          show the n most recent notes
  help              show this help
  exit              leave the shell`

func shellCommand() *cli.Command {
	var cfg config

	flags := localFlags(&cfg)
	flags = append(flags, remoteFlags(&cfg)...)

	return &cli.Command{
		Name:  "shell",
		Usage: "Interactive session for remembering and asking",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.logger(ctx)

			wf, closer, err := cfg.newWorkflow(ctx)
			if err != nil {
				return err
			}
			defer closer()

			rl, err := readline.NewEx(&readline.Config{
				Prompt:          "raven> ",
				HistoryFile:     filepath.Join(filepath.Dir(cfg.dbPath), "history"),
				InterruptPrompt: "^C",
				EOFPrompt:       "exit",
			})
			if err != nil {
				return goerr.Wrap(err, "failed to start shell")
			}
			defer rl.Close()

			w := rl.Stdout()
			fmt.Fprintln(w, "raven shell. Type 'help' for commands, 'exit' to quit.")

			for {
				line, err := rl.Readline()
				if errors.Is(err, readline.ErrInterrupt) {
					if line == "" {
						break
					}
					continue
				}
				if errors.Is(err, io.EOF) {
					break
				}
				if err != nil {
					return goerr.Wrap(err, "failed to read input")
				}

				quit, err := runShellLine(ctx, wf, w, line)
				if err != nil {
					logging.From(ctx).Error("command failed", "error", err)
					fmt.Fprintf(os.Stderr, "%s %v\n", red("Error:"), err)
				}
				if quit {
					break
				}
			}

			return nil
		},
	}
}

// runShellLine executes one shell line. quit is true when the session should end.
func runShellLine(ctx context.Context, wf workflow, w io.Writer, line string) (quit bool, err error) {
	command, rest, _ := strings.Cut(strings.TrimSpace(line), " ")
	rest = strings.TrimSpace(rest)

	switch strings.ToLower(command) {
	case "":
		return false, nil

	case "exit", "quit":
		return true, nil

	case "help", "?":
		fmt.Fprintln(w, shellHelp)
		return false, nil

	case "remember", "r", "save":
		if rest == "" {
			return false, goerr.New("text is required")
		}
		m, err := wf.Remember(ctx, rest)
		if err != nil {
			return false, err
		}
		printRemembered(w, m)

	case "ask", "q", "remind":
		if rest == "" {
			return false, goerr.New("question is required")
		}
		result, err := wf.Recall(ctx, rest)
		if err != nil {
			return false, err
		}
		printRecall(w, result)

	case "delete", "d":
		if rest == "" {
			return false, goerr.New("query is required")
		}
		result, err := wf.Forget(ctx, rest)
		if err != nil {
			return false, err
		}
		printForget(w, result)

	case "list", "ls":
		limit := 10
		if rest != "" {
			if _, err := fmt.Sscanf(rest, "%d", &limit); err != nil || limit <= 0 {
				return false, goerr.New("list takes a positive number", goerr.V("input", rest))
			}
		}
		result, err := wf.List(ctx, 0, limit)
		if err != nil {
			return false, err
		}
		printList(w, result, 0)

	default:
		return false, goerr.New("unknown command, type 'help'", goerr.V("command", command))
	}

	return false, nil
}
