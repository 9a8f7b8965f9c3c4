package command

import (
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/tradeguard/pkg/token"
)

// TokenCommand returns the token subcommand group. Both subcommands run
// locally; the daemon is not contacted.
func TokenCommand() *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "Create local API tokens",
		Subcommands: []*cli.Command{
			{
				Name:   "generate",
				Usage:  "Generate a random token and the api.token_hash value for it",
				Action: tokenGenerate,
			},
			{
				Name:  "hash",
				Usage: "Hash an existing token for api.token_hash",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "stdin",
						Usage: "read the token from stdin",
					},
				},
				ArgsUsage: "[TOKEN]",
				Action:    tokenHash,
			},
		},
	}
}

type tokenPair struct {
	Token string `json:"token,omitempty"`
	Hash  string `json:"token_hash"`
}

func tokenGenerate(c *cli.Context) error {
	env := envFrom(c)
	tok, err := token.Generate()
	if err != nil {
		return err
	}
	hash, err := token.Hash(tok)
	if err != nil {
		return err
	}
	return env.say(tokenPair{Token: tok, Hash: hash}, "token:      %s\ntoken_hash: %s", tok, hash)
}

func tokenHash(c *cli.Context) error {
	env := envFrom(c)
	tok := c.Args().First()
	if c.Bool("stdin") {
		line, err := readLine(stdin(c))
		if err != nil {
			return fmt.Errorf("read token: %w", err)
		}
		tok = line
	}
	if tok == "" {
		return errors.New("TOKEN required")
	}
	hash, err := token.Hash(tok)
	if err != nil {
		return err
	}
	return env.say(tokenPair{Hash: hash}, "%s", hash)
}
