package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/neboloop/cocosbot/internal/client"
	"github.com/neboloop/cocosbot/internal/types"
)

// OrderCmd places a market or limit order.
func OrderCmd() *cobra.Command {
	var limit, segment string
	cmd := &cobra.Command{
		Use:       "order <buy|sell> <symbol> <amount>",
		Short:     "Place an order through the trade panel",
		Args:      cobra.ExactArgs(3),
		ValidArgs: []string{"buy", "sell"},
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := types.ParseAmount(args[2])
			if err != nil {
				return err
			}
			req := types.OrderRequest{
				Ticker:    args[1],
				Operation: types.Operation(args[0]),
				Amount:    amount,
				Segment:   types.MarketSegment(segment),
			}
			if limit != "" {
				price, err := types.ParseAmount(limit)
				if err != nil {
					return fmt.Errorf("limit: %w", err)
				}
				req.Limit = &price
			}
			req, err = types.ValidateOrder(req)
			if err != nil {
				return err
			}

			return withSession(nil, func(ctx context.Context, c *client.Client) error {
				if err := c.CreateOrder(ctx, req); err != nil {
					return err
				}
				fmt.Printf("%s %s for %s submitted\n", req.Operation, req.Ticker, args[2])
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&limit, "limit", "", "limit price (market order when empty)")
	cmd.Flags().StringVar(&segment, "segment", string(types.Stocks), "market segment")
	return cmd
}

// CancelCmd cancels the pending order showing amount and quantity.
func CancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <amount> <quantity>",
		Short: "Cancel a pending order",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := types.ParseAmount(args[0])
			if err != nil {
				return err
			}
			qty, err := types.ParseAmount(args[1])
			if err != nil {
				return fmt.Errorf("quantity: %w", err)
			}
			return withSession(nil, func(ctx context.Context, c *client.Client) error {
				return outcome(c.CancelOrder(ctx, amount, qty))
			})
		},
	}
}

// AccountsCmd lists the bank accounts linked for withdrawals.
func AccountsCmd() *cobra.Command {
	var amount float64
	var currency string
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Print linked bank accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var cur types.Currency
			if currency != "" {
				c, err := types.ValidateCurrency(currency)
				if err != nil {
					return err
				}
				cur = c
			}
			return withSession(nil, func(ctx context.Context, c *client.Client) error {
				return printData(c.LinkedAccounts(ctx, amount, cur))
			})
		},
	}
	cmd.Flags().Float64Var(&amount, "amount", 0, "withdraw amount used to open the form (default from config)")
	cmd.Flags().StringVar(&currency, "currency", "", "ARS or USD (default from config)")
	return cmd
}

// WithdrawCmd fills the withdraw form and leaves it ready to continue.
func WithdrawCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "withdraw <amount> <currency>",
		Short: "Fill the withdraw form",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := types.ParseAmount(args[0])
			if err != nil {
				return err
			}
			cur, err := types.ValidateCurrency(args[1])
			if err != nil {
				return err
			}
			return withSession(nil, func(ctx context.Context, c *client.Client) error {
				return outcome(c.NavigateWithdrawForm(ctx, amount, cur))
			})
		},
	}
}

func outcome(o types.Outcome) error {
	if !o.Success {
		return fmt.Errorf("%s", o)
	}
	fmt.Println(o)
	return nil
}
