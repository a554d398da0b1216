package main

import (
	"fmt"

	"github.com/purelabio/xcb"
	"github.com/spf13/cobra"
)

func newAddressCmd(app *app) *cobra.Command {
	var (
		keystore string
		rawKey   string
	)

	cmd := &cobra.Command{
		Use:   "address [ADDRESS]",
		Short: "Print the address of a key, or check an address and print its network",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			if len(args) > 0 {
				addr, err := xcb.ParseAddress(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(out, addr, addressNetwork(addr))
				return nil
			}

			if rawKey != "" {
				key, err := xcb.ParsePrivateKey(rawKey)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, xcb.PubkeyToAddress(key.Public(), app.cfg.network()))
				return nil
			}

			wallet, err := app.wallet(keystore)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, wallet.Address())
			return nil
		},
	}

	cmd.Flags().StringVarP(&keystore, "keystore", "k", "", "Keystore file.")
	cmd.Flags().StringVar(&rawKey, "key", "", "Hex private key instead of a keystore file.")
	return cmd
}

// Private networks share a prefix, so their id is unknown.
func addressNetwork(addr xcb.Address) string {
	network, err := addr.Network()
	if err != nil {
		return "unknown"
	}
	if network.IsPrivate() {
		return "private"
	}
	return network.String()
}
