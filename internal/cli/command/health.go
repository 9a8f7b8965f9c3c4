package command

import (
	"github.com/urfave/cli/v2"

	"github.com/yndnr/tradeguard/internal/infra/buildinfo"
)

// HealthCommand returns the health command.
func HealthCommand() *cli.Command {
	return &cli.Command{
		Name:   "health",
		Usage:  "Check that the daemon is up",
		Action: health,
	}
}

type healthView struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Session string `json:"session,omitempty"`
	Client  string `json:"client"`
	Target  string `json:"target"`
}

func health(c *cli.Context) error {
	env := envFrom(c)
	ctx, cancel := env.context(c)
	defer cancel()

	var h healthView
	if err := env.Client.Get(ctx, "/health", &h); err != nil {
		return err
	}
	h.Client = buildinfo.Version
	h.Target = env.Client.BaseURL()
	return env.say(h, "%s is %s (daemon %s, session %s)", h.Target, h.Status, h.Version, h.Session)
}
