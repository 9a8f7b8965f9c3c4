package command

import (
	"errors"

	"github.com/urfave/cli/v2"
)

// AutoAcceptCommand returns the auto-accept subcommand group.
func AutoAcceptCommand() *cli.Command {
	return &cli.Command{
		Name:  "auto-accept",
		Usage: "Show or toggle automatic acceptance of gift offers",
		Subcommands: []*cli.Command{
			{
				Name:   "get",
				Usage:  "Show the current setting",
				Action: autoAcceptGet,
			},
			{
				Name:   "toggle",
				Usage:  "Flip the setting",
				Action: autoAcceptToggle,
			},
		},
	}
}

func autoAcceptGet(c *cli.Context) error {
	env := envFrom(c)
	ctx, cancel := env.context(c)
	defer cancel()

	var res result
	if err := env.Client.Get(ctx, "/v1/settings/auto-accept-gifts", &res); err != nil {
		return err
	}
	return sayAutoAccept(env, res)
}

func autoAcceptToggle(c *cli.Context) error {
	env := envFrom(c)
	ctx, cancel := env.context(c)
	defer cancel()

	var res result
	if err := env.Client.Post(ctx, "/v1/settings/auto-accept-gifts/toggle", nil, &res); err != nil {
		return err
	}
	return sayAutoAccept(env, res)
}

func sayAutoAccept(env *Env, res result) error {
	if res.AutoAcceptGifts == nil {
		return errors.New("response carried no setting")
	}
	state := "off"
	if *res.AutoAcceptGifts {
		state = "on"
	}
	return env.say(res, "Auto-accept gifts: %s", state)
}
