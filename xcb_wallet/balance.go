package main

import (
	"fmt"
	"strconv"

	"github.com/purelabio/xcb"
	"github.com/spf13/cobra"
)

func newBalanceCmd(app *app) *cobra.Command {
	var (
		unitName string
		block    string
	)

	cmd := &cobra.Command{
		Use:   "balance ADDRESS|LABEL|NAME",
		Short: "Print the balance of an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			unit, err := xcb.ParseUnit(unitName)
			if err != nil {
				return err
			}
			at, err := parseBlock(block)
			if err != nil {
				return err
			}

			ctx, cancel := app.context()
			defer cancel()

			addr, err := app.recipient(ctx, args[0])
			if err != nil {
				return err
			}
			provider, err := app.dial(ctx)
			if err != nil {
				return err
			}

			balance, err := provider.GetBalance(ctx, addr, xcb.AtNumber(at))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), xcb.FormatUnits(balance, unit), unit)
			return nil
		},
	}

	cmd.Flags().StringVarP(&unitName, "unit", "u", "core", "Unit to print the balance in.")
	cmd.Flags().StringVarP(&block, "block", "b", "latest", `Block: a tag such as "latest" or "pending", or a number.`)
	return cmd
}

// Accepts block tags, hex numbers, and decimal numbers.
func parseBlock(input string) (xcb.BlockNumber, error) {
	num, err := strconv.ParseUint(input, 10, 64)
	if err == nil {
		return xcb.BlockAt(num), nil
	}
	var out xcb.BlockNumber
	err = out.UnmarshalText([]byte(input))
	return out, err
}
