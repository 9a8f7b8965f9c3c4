package command

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/tradeguard/internal/cli/config"
	"github.com/yndnr/tradeguard/internal/cli/connection"
	"github.com/yndnr/tradeguard/internal/cli/output"
	"github.com/yndnr/tradeguard/internal/infra/buildinfo"
	"github.com/yndnr/tradeguard/internal/infra/tlsroots"
)

const envKey = "env"

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "tradeguard-cli",
		Usage:   "Control a running TradeGuard daemon",
		Version: buildinfo.String(),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			SessionCommand(),
			OfferCommand(),
			AutoAcceptCommand(),
			SecretCommand(),
			EventsCommand(),
			TokenCommand(),
			HealthCommand(),
			ShellCommand(),
		},
		Before: setup,
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Usage:   "CLI config file",
			EnvVars: []string{"TRADEGUARD_CLI_CONFIG"},
			Value:   config.DefaultConfigPath(),
		},
		&cli.StringFlag{
			Name:    "server",
			Aliases: []string{"s"},
			Usage:   "daemon address (overrides the config file)",
			EnvVars: []string{"TRADEGUARD_SERVER"},
		},
		&cli.StringFlag{
			Name:    "token",
			Aliases: []string{"t"},
			Usage:   "local API token (overrides the config file)",
			EnvVars: []string{"TRADEGUARD_TOKEN"},
		},
		&cli.StringFlag{
			Name:  "ca-file",
			Usage: "PEM bundle trusted for an https daemon (overrides the config file)",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "output format: table, json, yaml",
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "request timeout",
			Value: 90 * time.Second,
		},
	}
}

// Env is the per-invocation state commands share.
type Env struct {
	Client  *connection.HTTPClient
	Format  output.Format
	Out     io.Writer
	Err     io.Writer
	Timeout time.Duration
}

// setup merges the config file with flags; flags win.
func setup(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	if c.IsSet("server") {
		cfg.Server = c.String("server")
	}
	if c.IsSet("token") {
		cfg.Token = c.String("token")
	}
	if c.IsSet("output") {
		cfg.Output = c.String("output")
	}
	if c.IsSet("ca-file") {
		cfg.CAFile = c.String("ca-file")
	}

	format, err := output.ParseFormat(cfg.Output)
	if err != nil {
		return err
	}

	var opts []connection.Option
	if cfg.CAFile != "" {
		tlsCfg, err := tlsroots.ClientConfig(cfg.CAFile)
		if err != nil {
			return err
		}
		opts = append(opts, connection.WithTLSConfig(tlsCfg))
	}

	if c.App.Metadata == nil {
		c.App.Metadata = make(map[string]any)
	}
	c.App.Metadata[envKey] = &Env{
		Client:  connection.NewHTTPClient(cfg.Server, cfg.Token, c.Duration("timeout"), opts...),
		Format:  format,
		Out:     c.App.Writer,
		Err:     c.App.ErrWriter,
		Timeout: c.Duration("timeout"),
	}
	return nil
}

// envFrom returns the Env set up by the Before hook.
func envFrom(c *cli.Context) *Env {
	env, _ := c.App.Metadata[envKey].(*Env)
	return env
}

func (e *Env) context(c *cli.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Context, e.Timeout)
}

// render prints data in the selected format.
func (e *Env) render(data any) error {
	return output.NewFormatter(e.Format).Format(e.Out, data)
}

// say prints a line in table mode and the data otherwise, so scripted
// callers always get structured output.
func (e *Env) say(data any, format string, args ...any) error {
	if e.Format == output.FormatTable {
		_, err := fmt.Fprintf(e.Out, format+"\n", args...)
		return err
	}
	return e.render(data)
}

// spin starts a spinner on stderr in table mode.
func (e *Env) spin(message string) func() {
	if e.Format != output.FormatTable || e.Err == nil {
		return func() {}
	}
	s := output.NewSpinner(e.Err, message)
	s.Start()
	return s.Stop
}

func requireArg(c *cli.Context, name string) (string, error) {
	v := c.Args().First()
	if v == "" {
		return "", fmt.Errorf("%s required", name)
	}
	return v, nil
}
