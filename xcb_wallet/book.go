package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	"github.com/purelabio/xcb"
	"github.com/spf13/cobra"
)

/*
Labels for frequently used addresses, stored as TOML:

	[addresses]
	alice = "cb08095e7baea6a6c7c4c2dfeb977efac326af552d87"

Labels are case-insensitive.
*/
type addressBook struct {
	Addresses map[string]xcb.Address `toml:"addresses"`
}

// A missing file is an empty book.
func loadAddressBook(path string) (addressBook, error) {
	out := addressBook{Addresses: map[string]xcb.Address{}}
	if path == "" {
		return out, nil
	}

	_, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return out, nil
	}

	_, err = toml.DecodeFile(path, &out)
	if err != nil {
		return out, errors.Wrapf(err, `toml decode file %q`, path)
	}

	normalized := make(map[string]xcb.Address, len(out.Addresses))
	for label, addr := range out.Addresses {
		_, err := xcb.ParseAddress(addr.String())
		if err != nil {
			return out, errors.Wrapf(err, `invalid address for label %q in %q`, label, path)
		}
		normalized[strings.ToLower(label)] = addr
	}
	out.Addresses = normalized
	return out, nil
}

func (self addressBook) save(path string) error {
	if path == "" {
		return errors.New(`no address book file configured`)
	}
	err := os.MkdirAll(filepath.Dir(path), 0o700)
	if err != nil {
		return errors.WithStack(err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return errors.Wrapf(err, `failed to open address book %q`, path)
	}
	defer file.Close()

	err = toml.NewEncoder(file).Encode(self)
	return errors.Wrapf(err, `failed to write address book %q`, path)
}

func (self addressBook) lookup(label string) (xcb.Address, bool) {
	out, ok := self.Addresses[strings.ToLower(label)]
	return out, ok
}

func (self addressBook) add(label string, addr xcb.Address) error {
	label = strings.ToLower(strings.TrimSpace(label))
	if label == "" || strings.ContainsAny(label, " \t.") {
		return errors.Errorf(`invalid label %q: labels can't be empty or contain spaces or dots`, label)
	}
	self.Addresses[label] = addr
	return nil
}

func (self addressBook) labels() []string {
	out := make([]string, 0, len(self.Addresses))
	for label := range self.Addresses {
		out = append(out, label)
	}
	sort.Strings(out)
	return out
}

func newBookCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "book",
		Short: "Manage address book labels",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "Print all labels",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				book, err := loadAddressBook(app.cfg.AddressBook)
				if err != nil {
					return err
				}
				for _, label := range book.labels() {
					fmt.Fprintln(cmd.OutOrStdout(), label, book.Addresses[label])
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "add LABEL ADDRESS",
			Short: "Add or replace a label",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				addr, err := xcb.ParseAddress(args[1])
				if err != nil {
					return err
				}
				book, err := loadAddressBook(app.cfg.AddressBook)
				if err != nil {
					return err
				}
				err = book.add(args[0], addr)
				if err != nil {
					return err
				}
				app.log.Debugw("label added", "label", args[0], "address", addr.String())
				return book.save(app.cfg.AddressBook)
			},
		},
	)
	return cmd
}
