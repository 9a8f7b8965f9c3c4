package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/tradeguard/internal/cli/connection"
)

// SecretCommand returns the secret subcommand group.
func SecretCommand() *cli.Command {
	return &cli.Command{
		Name:    "secret",
		Aliases: []string{"secrets"},
		Usage:   "Inspect the stored authenticators",
		Subcommands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List loaded authenticators",
				Action: listSecrets(false),
			},
			{
				Name:   "scan",
				Usage:  "Rescan the secrets directory",
				Action: listSecrets(true),
			},
			{
				Name:      "check",
				Usage:     "Check whether an account has an authenticator",
				ArgsUsage: "ACCOUNT",
				Action:    secretCheck,
			},
			{
				Name:      "code",
				Usage:     "Generate the current Steam Guard code for an account",
				ArgsUsage: "ACCOUNT",
				Action:    secretCode,
			},
		},
	}
}

func listSecrets(rescan bool) cli.ActionFunc {
	return func(c *cli.Context) error {
		env := envFrom(c)
		ctx, cancel := env.context(c)
		defer cancel()

		var (
			res result
			err error
		)
		if rescan {
			err = env.Client.Post(ctx, "/v1/secrets/scan", nil, &res)
		} else {
			err = env.Client.Get(ctx, "/v1/secrets", &res)
		}
		if err != nil {
			return err
		}
		if res.Secrets == nil {
			res.Secrets = secretList{}
		}
		return env.render(res.Secrets)
	}
}

func secretCheck(c *cli.Context) error {
	env := envFrom(c)
	account, err := requireArg(c, "ACCOUNT")
	if err != nil {
		return err
	}

	ctx, cancel := env.context(c)
	defer cancel()

	var res result
	if err := env.Client.Get(ctx, "/v1/secrets/"+connection.PathEscape(account), &res); err != nil {
		return err
	}
	if res.Available == nil || !*res.Available {
		return env.say(res, "%s: no authenticator", account)
	}
	file := ""
	if res.Secret != nil {
		file = fmt.Sprintf(" (%s)", res.Secret.Filename)
	}
	return env.say(res, "%s: authenticator available%s", account, file)
}

func secretCode(c *cli.Context) error {
	env := envFrom(c)
	account, err := requireArg(c, "ACCOUNT")
	if err != nil {
		return err
	}

	ctx, cancel := env.context(c)
	defer cancel()

	var res result
	if err := env.Client.Post(ctx, "/v1/secrets/"+connection.PathEscape(account)+"/code", nil, &res); err != nil {
		return err
	}
	return env.say(res, "%s", res.GuardCode)
}
