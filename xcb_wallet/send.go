package main

import (
	"fmt"
	"math/big"
	"time"

	"github.com/pkg/errors"
	"github.com/purelabio/xcb"
	"github.com/spf13/cobra"
)

type sendArgs struct {
	Keystore      string `flag:"keystore" validate:"required"`
	To            string `flag:"to" validate:"required"`
	Amount        string `flag:"amount" validate:"required,amount"`
	Data          string `flag:"data"`
	Energy        uint64 `flag:"energy"`
	EnergyPrice   string `flag:"energy-price" validate:"omitempty,amount"`
	OracleUrl     string `flag:"oracle-url" validate:"omitempty,url"`
	Confirmations uint64 `flag:"confirmations" validate:"lte=1000"`
	NoWait        bool   `flag:"no-wait"`
}

func newSendCmd(app *app) *cobra.Command {
	var args sendArgs

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Sign and send a transfer, then wait for its confirmation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			err := check(args)
			if err != nil {
				return err
			}

			ctx, cancel := app.context()
			defer cancel()

			wallet, err := app.wallet(args.Keystore)
			if err != nil {
				return err
			}
			to, err := app.recipient(ctx, args.To)
			if err != nil {
				return err
			}
			tx, err := args.request(to)
			if err != nil {
				return err
			}

			provider, err := app.dial(ctx)
			if err != nil {
				return err
			}
			id, err := provider.NetworkID(ctx)
			if err != nil {
				return err
			}
			if id != wallet.NetworkID() {
				return errors.Wrapf(xcb.ErrDifferentNetworkID,
					`the node is on network %v, the wallet on %v`, xcb.NetworkFromID(id), app.cfg.network())
			}

			client := xcb.NewClient(provider, wallet, args.oracle())
			client.Logger = app.log

			pending, err := client.SendTransaction(ctx, tx, xcb.BlockId{})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, pending.Hash)

			if args.NoWait || args.Confirmations == 0 {
				return nil
			}

			app.log.Infow("waiting for confirmations",
				"hash", pending.Hash.String(), "confirmations", args.Confirmations)

			receipt, err := pending.SetConfirmations(args.Confirmations).Wait(ctx)
			if err != nil {
				return err
			}
			block := blockOf(receipt)
			if !receipt.Succeeded() {
				return errors.Errorf(`transaction %v failed in block %v`, pending.Hash, block)
			}
			fmt.Fprintln(out, "confirmed in block", block)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&args.Keystore, "keystore", "k", "", "Keystore file of the sender.")
	flags.StringVarP(&args.To, "to", "t", "", "Recipient: address, address book label, or name.")
	flags.StringVarP(&args.Amount, "amount", "a", "", `Amount with an optional unit, such as "1.5 core". Bare numbers are ore.`)
	flags.StringVarP(&args.Data, "data", "d", "", "Hex call data.")
	flags.Uint64Var(&args.Energy, "energy", 0, "Energy limit. Estimated by the node when omitted.")
	flags.StringVar(&args.EnergyPrice, "energy-price", "", "Energy price with an optional unit. Asked from the node when omitted.")
	flags.StringVar(&args.OracleUrl, "oracle-url", "", "Energy price service to use instead of the node.")
	flags.Uint64VarP(&args.Confirmations, "confirmations", "c", 1, "Blocks to wait for.")
	flags.BoolVar(&args.NoWait, "no-wait", false, "Print the hash and exit without waiting.")
	return cmd
}

func (self sendArgs) request(to xcb.Address) (xcb.TxRequest, error) {
	amount, err := xcb.ParseAmount(self.Amount)
	if err != nil {
		return xcb.TxRequest{}, err
	}
	out := xcb.Pay(to, amount)

	if self.Data != "" {
		data, err := xcb.HexDecodeString(self.Data)
		if err != nil {
			return out, errors.Wrap(err, `malformed call data`)
		}
		out.Data = data
	}
	if self.Energy > 0 {
		out.Energy = new(big.Int).SetUint64(self.Energy)
	}
	return out, nil
}

// A fixed price wins over a price service. Nil leaves pricing to the node.
func (self sendArgs) oracle() xcb.EnergyOracle {
	if self.EnergyPrice != "" {
		price, _ := xcb.ParseAmount(self.EnergyPrice)
		return xcb.FixedOracle{Price: price}
	}
	if self.OracleUrl != "" {
		return xcb.NewCacheOracle(xcb.HttpOracle{Url: self.OracleUrl, Category: xcb.Standard}, time.Minute)
	}
	return nil
}

func blockOf(receipt *xcb.TxReceipt) uint64 {
	if receipt.BlockNumber == nil {
		return 0
	}
	return uint64(*receipt.BlockNumber)
}
