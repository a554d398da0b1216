package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/purelabio/xcb"
	"github.com/spf13/cobra"
)

func newSignCmd(app *app) *cobra.Command {
	var keystore string

	cmd := &cobra.Command{
		Use:   "sign MESSAGE",
		Short: "Sign a message with a keystore key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wallet, err := app.wallet(keystore)
			if err != nil {
				return err
			}
			sig, err := wallet.SignMessage(context.Background(), []byte(args[0]))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), sig)
			return nil
		},
	}

	cmd.Flags().StringVarP(&keystore, "keystore", "k", "", "Keystore file.")
	return cmd
}

type verifyArgs struct {
	Address   string `flag:"address" validate:"omitempty,address"`
	Signature string `flag:"signature" validate:"required"`
}

func newVerifyCmd(app *app) *cobra.Command {
	var args verifyArgs

	cmd := &cobra.Command{
		Use:   "verify MESSAGE",
		Short: "Verify a message signature, or print the address that made it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, positional []string) error {
			err := check(args)
			if err != nil {
				return err
			}

			var sig xcb.Signature
			err = sig.UnmarshalText([]byte(args.Signature))
			if err != nil {
				return errors.Wrap(err, `malformed signature`)
			}
			msg := []byte(positional[0])
			out := cmd.OutOrStdout()

			if args.Address == "" {
				addr, err := sig.RecoverMessage(msg, app.cfg.network())
				if err != nil {
					return err
				}
				fmt.Fprintln(out, addr)
				return nil
			}

			addr, _ := xcb.ParseAddress(args.Address)
			err = sig.VerifyMessage(msg, addr)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, "valid")
			return nil
		},
	}

	cmd.Flags().StringVar(&args.Address, "address", "", "Expected signer. Without it, the signer is printed.")
	cmd.Flags().StringVarP(&args.Signature, "signature", "s", "", "Hex signature.")
	return cmd
}
