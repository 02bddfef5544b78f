package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/neboloop/cocosbot/internal/client"
	"github.com/neboloop/cocosbot/internal/types"
)

// fetcher is a client method expression such as (*client.Client).Orders.
type fetcher = func(c *client.Client, ctx context.Context) (any, error)

// dataCmd returns a command that prints what fetch returns.
func dataCmd(use, short string, fetch fetcher) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(nil, func(ctx context.Context, c *client.Client) error {
				return printData(fetch(c, ctx))
			})
		},
	}
}

func dataCmds() []*cobra.Command {
	return []*cobra.Command{
		dataCmd("balance", "Print the total portfolio balance", func(c *client.Client, ctx context.Context) (any, error) {
			v, err := c.PortfolioBalance(ctx)
			return map[string]float64{"totalBalance": v}, err
		}),
		dataCmd("portfolio", "Print portfolio holdings", (*client.Client).PortfolioData),
		dataCmd("user", "Print the user profile", (*client.Client).UserData),
		dataCmd("tier", "Print the account tier", (*client.Client).AccountTier),
		dataCmd("academy", "Print academy content", (*client.Client).AcademyData),
		dataCmd("orders", "Print pending and executed orders", (*client.Client).Orders),
		dataCmd("schedule", "Print market trading hours", (*client.Client).MarketSchedule),
	}
}

// MEPCmd prints MEP dollar quotes.
func MEPCmd() *cobra.Command {
	var raw bool
	cmd := &cobra.Command{
		Use:   "mep",
		Short: "Print MEP dollar quotes per session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(nil, func(ctx context.Context, c *client.Client) error {
				if raw {
					return printData(c.MEPRate(ctx))
				}
				return printData(c.MEPPrices(ctx))
			})
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "print the payload as received")
	return cmd
}

// TickerCmd prints the detail payload of one instrument.
func TickerCmd() *cobra.Command {
	var segment, sub string
	cmd := &cobra.Command{
		Use:   "ticker <symbol>",
		Short: "Print instrument detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			seg, err := types.ValidateMarketType(segment)
			if err != nil {
				return err
			}
			return withSession(nil, func(ctx context.Context, c *client.Client) error {
				return printData(c.TickerInfo(ctx, args[0], seg, sub))
			})
		},
	}
	cmd.Flags().StringVar(&segment, "segment", string(types.Stocks), "market segment")
	cmd.Flags().StringVar(&sub, "sub", "", "settlement variant, e.g. C or 24hs")
	return cmd
}
