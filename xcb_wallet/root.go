package main

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/ardanlabs/conf/v3"
	"github.com/pkg/errors"
	"github.com/purelabio/xcb"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type app struct {
	cfg   config
	log   *zap.SugaredLogger
	level zap.AtomicLevel

	verbose      bool
	passwordFile string

	provider *xcb.Provider
}

func newRootCmd(app *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "xcb_wallet",
		Short:         "Core Coin wallet",
		Version:       build,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if app.verbose {
				app.level.SetLevel(zapcore.DebugLevel)
			}

			err := check(app.cfg)
			if err != nil {
				return err
			}

			if app.verbose {
				out, err := conf.String(&app.cfg)
				if err != nil {
					return errors.Wrap(err, `generating config for output`)
				}
				app.log.Debugw("startup", "version", build, "config", out)
			}
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&app.cfg.RpcUrl, "rpc-url", app.cfg.RpcUrl, "Node endpoint: http(s):// or ws(s)://.")
	flags.StringVarP(&app.cfg.Network, "network", "n", app.cfg.Network, "Network: mainnet, devin, private-<id>.")
	flags.StringVar(&app.cfg.KeystoreDir, "keystore-dir", app.cfg.KeystoreDir, "Directory for new keystore files.")
	flags.StringVar(&app.cfg.AddressBook, "address-book", app.cfg.AddressBook, "TOML file with address labels.")
	flags.DurationVar(&app.cfg.Timeout, "timeout", app.cfg.Timeout, "Deadline for node requests and confirmations.")
	flags.StringVar(&app.passwordFile, "password-file", "", "File holding the keystore password. Overrides XCB_PASSWORD.")
	flags.BoolVarP(&app.verbose, "verbose", "v", false, "Debug logging.")

	root.AddCommand(
		newGenerateCmd(app),
		newAddressCmd(app),
		newBalanceCmd(app),
		newSignCmd(app),
		newVerifyCmd(app),
		newSendCmd(app),
		newBookCmd(app),
	)
	return root
}

func (self *app) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), self.cfg.Timeout)
}

func (self *app) password() (string, error) {
	if self.passwordFile == "" {
		return self.cfg.Password, nil
	}
	data, err := os.ReadFile(self.passwordFile)
	if err != nil {
		return "", errors.Wrapf(err, `failed to read password file %q`, self.passwordFile)
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}

// Decrypts a keystore file into a wallet on the configured network.
func (self *app) wallet(path string) (xcb.Wallet, error) {
	if path == "" {
		return xcb.Wallet{}, errors.New(`missing keystore file, use --keystore`)
	}
	password, err := self.password()
	if err != nil {
		return xcb.Wallet{}, err
	}
	return xcb.WalletFromKeystore(path, password, self.cfg.network().ID())
}

func (self *app) dial(ctx context.Context) (*xcb.Provider, error) {
	if self.provider != nil {
		return self.provider, nil
	}
	provider, err := xcb.DialProvider(ctx, self.cfg.RpcUrl, self.log)
	if err != nil {
		return nil, err
	}
	self.provider = provider
	self.log.Debugw("connected", "url", self.cfg.RpcUrl, "interval", provider.Interval)
	return provider, nil
}

func (self *app) close() {
	if self.provider == nil {
		return
	}
	closer, ok := self.provider.Trans.(io.Closer)
	if ok {
		_ = closer.Close()
	}
	self.provider = nil
}

/*
Resolves a recipient given as an address, an address book label, or a name
registered with the name service.
*/
func (self *app) recipient(ctx context.Context, input string) (xcb.Address, error) {
	book, err := loadAddressBook(self.cfg.AddressBook)
	if err != nil {
		return xcb.Address{}, err
	}
	addr, ok := book.lookup(input)
	if ok {
		self.log.Debugw("recipient from address book", "label", input, "address", addr.String())
		return addr, nil
	}

	addr, err = xcb.ParseAddress(input)
	if err == nil {
		return addr, nil
	}

	if !strings.Contains(input, ".") {
		return xcb.Address{}, errors.Wrapf(err, `%q is neither an address nor an address book label`, input)
	}

	provider, err := self.dial(ctx)
	if err != nil {
		return xcb.Address{}, err
	}
	addr, err = provider.ResolveName(ctx, input)
	if err != nil {
		return xcb.Address{}, err
	}
	self.log.Debugw("recipient from name service", "name", input, "address", addr.String())
	return addr, nil
}
