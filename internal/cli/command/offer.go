package command

import (
	"net/url"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/tradeguard/internal/cli/connection"
)

// OfferCommand returns the offer subcommand group.
func OfferCommand() *cli.Command {
	return &cli.Command{
		Name:    "offer",
		Aliases: []string{"offers"},
		Usage:   "List and act on pending trade offers",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List pending offers",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "filter",
						Aliases: []string{"f"},
						Usage:   "all, gifts or trades",
						Value:   "all",
					},
				},
				Action: listOffers,
			},
			{
				Name:      "accept",
				Usage:     "Accept an offer",
				ArgsUsage: "OFFER_ID",
				Action:    offerAction("accept", "Accepted offer %s"),
			},
			{
				Name:      "decline",
				Usage:     "Decline an offer",
				ArgsUsage: "OFFER_ID",
				Action:    offerAction("decline", "Declined offer %s"),
			},
		},
	}
}

func listOffers(c *cli.Context) error {
	env := envFrom(c)
	ctx, cancel := env.context(c)
	defer cancel()

	var res result
	if err := env.Client.Get(ctx, "/v1/offers?filter="+url.QueryEscape(c.String("filter")), &res); err != nil {
		return err
	}
	if res.Offers == nil {
		res.Offers = offerList{}
	}
	return env.render(res.Offers)
}

func offerAction(verb, done string) cli.ActionFunc {
	return func(c *cli.Context) error {
		env := envFrom(c)
		id, err := requireArg(c, "OFFER_ID")
		if err != nil {
			return err
		}

		ctx, cancel := env.context(c)
		defer cancel()

		var res result
		if err := env.Client.Post(ctx, "/v1/offers/"+connection.PathEscape(id)+"/"+verb, nil, &res); err != nil {
			return err
		}
		return env.say(res, done, id)
	}
}
