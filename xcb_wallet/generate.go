package main

import (
	"crypto/rand"
	"fmt"

	"github.com/pkg/errors"
	"github.com/purelabio/xcb"
	"github.com/spf13/cobra"
)

func newGenerateCmd(app *app) *cobra.Command {
	var (
		importKey string
		light     bool
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a new key, or import an existing one, into an encrypted keystore file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := app.password()
			if err != nil {
				return err
			}
			if password == "" {
				return errors.New(`refusing to write a keystore without a password, set XCB_PASSWORD or --password-file`)
			}

			var key *xcb.PrivateKey
			if importKey != "" {
				key, err = xcb.ParsePrivateKey(importKey)
			} else {
				key, err = xcb.GenerateKey(rand.Reader)
			}
			if err != nil {
				return err
			}

			params := xcb.StandardScrypt
			if light {
				params = xcb.LightScrypt
			}

			network := app.cfg.network()
			path, err := xcb.WriteKeystore(app.cfg.KeystoreDir, key, password, network, params, rand.Reader)
			if err != nil {
				return err
			}

			app.log.Infow("keystore written", "path", path, "network", network.String())
			fmt.Fprintln(cmd.OutOrStdout(), xcb.PubkeyToAddress(key.Public(), network))
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}

	cmd.Flags().StringVar(&importKey, "import", "", "Hex private key to import instead of generating one.")
	cmd.Flags().BoolVar(&light, "light", false, "Cheap scrypt parameters. Only for throwaway keys.")
	return cmd
}
