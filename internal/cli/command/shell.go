package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/tradeguard/internal/cli/repl"
)

// ShellCommand returns the interactive shell command.
func ShellCommand() *cli.Command {
	return &cli.Command{
		Name:  "shell",
		Usage: "Run commands interactively",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "history", Usage: "history file", Value: repl.DefaultHistoryPath()},
		},
		Action: runShell,
	}
}

func runShell(c *cli.Context) error {
	global := passthroughFlags(c)

	history := repl.NewHistory(c.String("history"), repl.DefaultHistorySize)
	if err := history.Load(); err != nil {
		fmt.Fprintf(c.App.ErrWriter, "warning: history not loaded: %v\n", err)
	}

	fmt.Fprintf(c.App.Writer, "%s %s, type 'exit' to quit, 'prefix?' to list commands\n", c.App.Name, c.App.Version)

	r := repl.New(repl.Options{
		In:        stdin(c),
		Out:       c.App.Writer,
		History:   history,
		Completer: repl.NewCompleter(commandLines(App().Commands)),
		Exec: func(ctx context.Context, args []string) error {
			if len(args) > 0 && args[0] == "shell" {
				return errors.New("already in a shell")
			}
			app := App()
			app.Writer = c.App.Writer
			app.ErrWriter = c.App.ErrWriter
			app.ExitErrHandler = func(*cli.Context, error) {}
			full := append([]string{c.App.Name}, global...)
			return app.RunContext(ctx, append(full, args...))
		},
	})
	err := r.Run(c.Context)
	if saveErr := history.Save(); saveErr != nil {
		fmt.Fprintf(c.App.ErrWriter, "warning: history not saved: %v\n", saveErr)
	}
	return err
}

// passthroughFlags repeats the global flags the shell was started with.
func passthroughFlags(c *cli.Context) []string {
	var args []string
	for _, name := range []string{"config", "server", "token", "ca-file", "output", "timeout"} {
		if c.IsSet(name) {
			args = append(args, "--"+name, fmt.Sprint(c.Value(name)))
		}
	}
	return args
}

func commandLines(cmds []*cli.Command) []string {
	var lines []string
	for _, cmd := range cmds {
		lines = append(lines, cmd.Name)
		for _, sub := range cmd.Subcommands {
			lines = append(lines, cmd.Name+" "+sub.Name)
		}
	}
	return lines
}
