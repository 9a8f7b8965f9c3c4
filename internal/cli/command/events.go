package command

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/tradeguard/internal/cli/connection"
	"github.com/yndnr/tradeguard/internal/cli/output"
)

// EventsCommand returns the events command.
func EventsCommand() *cli.Command {
	return &cli.Command{
		Name:  "events",
		Usage: "Follow daemon notifications until interrupted",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "kinds",
				Aliases: []string{"k"},
				Usage:   "comma-separated notification kinds to show (default all)",
			},
			&cli.IntFlag{
				Name:    "count",
				Aliases: []string{"n"},
				Usage:   "exit after this many events (0 = no limit)",
			},
		},
		Action: followEvents,
	}
}

type eventSummary struct {
	ID       string    `json:"id"`
	Kind     string    `json:"kind"`
	Time     time.Time `json:"time"`
	Identity string    `json:"identity,omitempty"`
	OfferID  string    `json:"offer_id,omitempty"`
	Offer    *offer    `json:"offer,omitempty"`
	Error    string    `json:"error,omitempty"`
	Attempt  int       `json:"attempt,omitempty"`
	RetryIn  string    `json:"retry_in,omitempty"`
}

// errEnough ends the stream once --count events were shown.
var errEnough = errors.New("enough events")

func followEvents(c *cli.Context) error {
	env := envFrom(c)
	limit := c.Int("count")
	seen := 0

	err := env.Client.Stream(c.Context, splitList(c.String("kinds")), func(ev connection.StreamEvent) error {
		if err := printEvent(env, ev); err != nil {
			return err
		}
		seen++
		if limit > 0 && seen >= limit {
			return errEnough
		}
		return nil
	})
	if errors.Is(err, errEnough) {
		return nil
	}
	return err
}

func printEvent(env *Env, ev connection.StreamEvent) error {
	if env.Format == output.FormatJSON {
		_, err := fmt.Fprintln(env.Out, ev.Data)
		return err
	}

	var sum eventSummary
	if err := json.Unmarshal([]byte(ev.Data), &sum); err != nil {
		return fmt.Errorf("decode event %s: %w", ev.ID, err)
	}
	if env.Format == output.FormatYAML {
		return env.render([]eventSummary{sum})
	}

	detail := sum.Identity
	switch {
	case sum.Offer != nil:
		detail = fmt.Sprintf("offer %s from %s (gift: %s)", sum.Offer.ID, sum.Offer.Partner, yesNo(sum.Offer.IsGift))
	case sum.OfferID != "":
		detail = "offer " + sum.OfferID
	}
	if sum.Error != "" {
		detail += " error: " + sum.Error
	}
	if sum.Attempt > 0 {
		detail += fmt.Sprintf(" attempt %d", sum.Attempt)
	}
	if sum.RetryIn != "" {
		detail += " retry in " + sum.RetryIn
	}
	_, err := fmt.Fprintf(env.Out, "%s  %-20s %s\n", sum.Time.Local().Format("15:04:05"), sum.Kind, detail)
	return err
}
