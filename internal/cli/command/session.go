package command

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/tradeguard/internal/cli/connection"
)

// SessionCommand returns the session subcommand group.
func SessionCommand() *cli.Command {
	return &cli.Command{
		Name:    "session",
		Aliases: []string{"sess"},
		Usage:   "Log in, log out and inspect the Steam session",
		Subcommands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Log in to Steam",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "username",
						Aliases:  []string{"u"},
						Usage:    "Steam account name",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "password",
						Aliases: []string{"p"},
						Usage:   "Steam password",
						EnvVars: []string{"TRADEGUARD_PASSWORD"},
					},
					&cli.BoolFlag{
						Name:  "password-stdin",
						Usage: "read the password from stdin",
					},
					&cli.StringFlag{
						Name:    "code",
						Aliases: []string{"c"},
						Usage:   "Steam Guard code",
					},
					&cli.BoolFlag{
						Name:  "with-secret",
						Usage: "generate the Steam Guard code from the account's stored authenticator",
					},
				},
				Action: sessionLogin,
			},
			{
				Name:      "code",
				Usage:     "Show the Steam Guard code TradeGuard would use to log in an account",
				ArgsUsage: "ACCOUNT",
				Action:    sessionLoginWithSecret,
			},
			{
				Name:   "logout",
				Usage:  "Log out and stop supervising the session",
				Action: sessionLogout,
			},
			{
				Name:   "status",
				Usage:  "Show the session state",
				Action: sessionStatus,
			},
			{
				Name:   "connection",
				Usage:  "Probe the connection now",
				Action: sessionConnection,
			},
			{
				Name:   "reconnect",
				Usage:  "Force a reconnect of the current session",
				Action: sessionReconnect,
			},
		},
	}
}

type loginRequest struct {
	Username      string `json:"username"`
	Password      string `json:"password"`
	TwoFactorCode string `json:"two_factor_code,omitempty"`
}

func sessionLogin(c *cli.Context) error {
	env := envFrom(c)

	password := c.String("password")
	if c.Bool("password-stdin") {
		p, err := readLine(stdin(c))
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		password = p
	}
	if password == "" {
		return errors.New("password required (--password, --password-stdin or TRADEGUARD_PASSWORD)")
	}

	ctx, cancel := env.context(c)
	defer cancel()

	req := loginRequest{Username: c.String("username"), Password: password, TwoFactorCode: c.String("code")}
	if c.Bool("with-secret") && req.TwoFactorCode == "" {
		var res result
		if err := env.Client.Post(ctx, "/v1/session/login-with-secret", map[string]string{"account": req.Username}, &res); err != nil {
			return err
		}
		req.TwoFactorCode = res.GuardCode
	}

	stop := env.spin("logging in as " + req.Username)
	var res result
	err := env.Client.Post(ctx, "/v1/session/login", req, &res)
	stop()
	if err != nil {
		if failed, ok := failedResult(err); ok && failed.NeedsTwoFactor {
			return fmt.Errorf("%w; rerun with --code or --with-secret", err)
		}
		return err
	}
	return env.say(res, "Logged in as %s", req.Username)
}

func sessionLoginWithSecret(c *cli.Context) error {
	env := envFrom(c)
	account, err := requireArg(c, "ACCOUNT")
	if err != nil {
		return err
	}

	ctx, cancel := env.context(c)
	defer cancel()

	var res result
	if err := env.Client.Post(ctx, "/v1/session/login-with-secret", map[string]string{"account": account}, &res); err != nil {
		return err
	}
	return env.say(res, "%s  (valid %ds, password still required)", res.GuardCode, res.ExpiresIn)
}

func sessionLogout(c *cli.Context) error {
	env := envFrom(c)
	ctx, cancel := env.context(c)
	defer cancel()

	var res result
	if err := env.Client.Post(ctx, "/v1/session/logout", nil, &res); err != nil {
		return err
	}
	return env.say(res, "Logged out")
}

func sessionStatus(c *cli.Context) error {
	env := envFrom(c)
	ctx, cancel := env.context(c)
	defer cancel()

	var res result
	if err := env.Client.Get(ctx, "/v1/session/status", &res); err != nil {
		return err
	}
	if res.Status == nil {
		return errors.New("response carried no status")
	}
	return env.render(res.Status)
}

func sessionConnection(c *cli.Context) error {
	env := envFrom(c)
	ctx, cancel := env.context(c)
	defer cancel()

	var res result
	if err := env.Client.Get(ctx, "/v1/session/connection", &res); err != nil {
		return err
	}
	if res.Connection == nil {
		return errors.New("response carried no connection status")
	}
	return env.render(res.Connection)
}

func sessionReconnect(c *cli.Context) error {
	env := envFrom(c)
	ctx, cancel := env.context(c)
	defer cancel()

	var res result
	if err := env.Client.Post(ctx, "/v1/session/reconnect", nil, &res); err != nil {
		return err
	}
	return env.say(res, "%s", res.Message)
}

// failedResult decodes the command result a failed call carried.
func failedResult(err error) (result, bool) {
	var apiErr *connection.APIError
	if !errors.As(err, &apiErr) || len(apiErr.Data) == 0 {
		return result{}, false
	}
	var res result
	if json.Unmarshal(apiErr.Data, &res) != nil {
		return result{}, false
	}
	return res, true
}

func stdin(c *cli.Context) io.Reader {
	if c.App.Reader != nil {
		return c.App.Reader
	}
	return os.Stdin
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
