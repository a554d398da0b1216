package xcb

import (
	"context"
	"strings"

	"github.com/pkg/errors"
)

//go:generate go run ./gen_xcb -out gen_selectors.go -pkg xcb -self resolver(bytes32) addr(bytes32) name(bytes32) text(bytes32,string) supportsInterface(bytes4)

// Address of the name registry contract, unless overridden with
// "Provider.Registry".
var CnsAddress = Address{0, 0, 0, 0, 0, 0, 0, 12, 46, 7, 78, 198, 154, 13, 251, 41, 151, 186, 108, 125, 46, 30}

const reverseDomain = "addr.reverse"

// A name that couldn't be resolved, or that resolves inconsistently.
type NameError struct {
	Name   string
	Reason string
}

func (self NameError) Error() string {
	return "failed to resolve " + self.Name + ": " + self.Reason
}

/*
Registry node of a dotted name: labels are folded right to left, each step
hashing the previous node together with the hash of the label. The empty name
maps to the zero node.
*/
func Namehash(name string) Hash {
	var node Hash
	if name == "" {
		return node
	}
	labels := strings.Split(name, ".")
	for i := len(labels) - 1; i >= 0; i-- {
		label := Sha3([]byte(labels[i]))
		node = Sha3(node[:], label[:])
	}
	return node
}

// Name under which the reverse registrar stores the address's primary name.
func ReverseName(addr Address) string {
	return addr.String() + "." + reverseDomain
}

func (self *Provider) registry() Address {
	if self.Registry != nil {
		return *self.Registry
	}
	return CnsAddress
}

// Address registered for the name.
func (self *Provider) ResolveName(ctx context.Context, name string) (Address, error) {
	out, err := self.queryResolver(ctx, name, SelectorAddr, true)
	if err != nil {
		return Address{}, err
	}
	return AbiDecodeAddress(out)
}

/*
Primary name of the address, from the reverse registrar. The name must resolve
back to the same address, otherwise the result is a NameError.
*/
func (self *Provider) LookupAddress(ctx context.Context, addr Address) (string, error) {
	out, err := self.queryResolver(ctx, ReverseName(addr), SelectorName, false)
	if err != nil {
		return "", err
	}
	name, err := AbiDecodeString(out)
	if err != nil {
		return "", errors.Wrapf(err, `failed to decode the name of %v`, addr)
	}

	owner, err := self.ResolveName(ctx, name)
	if err != nil {
		return "", err
	}
	if owner != addr {
		return "", errors.WithStack(NameError{Name: name, Reason: "not owned by " + addr.String()})
	}
	return name, nil
}

// Text record of the name, such as "avatar" or "url".
func (self *Provider) ResolveField(ctx context.Context, name string, field string) (string, error) {
	resolver, err := self.resolverOf(ctx, name)
	if err != nil {
		return "", err
	}

	data, err := AbiEncodeCall("text(bytes32,string)", Namehash(name), field)
	if err != nil {
		return "", err
	}
	out, err := self.Call(ctx, TxRequest{To: &resolver, Data: data}, BlockId{})
	if err != nil {
		return "", err
	}
	return AbiDecodeString(out)
}

/*
Calls the resolver of the name with "selector(namehash)". Resolvers are asked
whether they support the selector first, except for reverse records, whose
resolvers revert on "supportsInterface".
*/
func (self *Provider) queryResolver(ctx context.Context, name string, selector Selector, validate bool) ([]byte, error) {
	resolver, err := self.resolverOf(ctx, name)
	if err != nil {
		return nil, err
	}

	if validate {
		err := self.validateResolver(ctx, resolver, selector, name)
		if err != nil {
			return nil, err
		}
	}

	node := Namehash(name)
	data := append(selector[:], node[:]...)
	return self.Call(ctx, TxRequest{To: &resolver, Data: data}, BlockId{})
}

func (self *Provider) resolverOf(ctx context.Context, name string) (Address, error) {
	registry := self.registry()
	node := Namehash(name)
	data := append(SelectorResolver[:], node[:]...)

	out, err := self.Call(ctx, TxRequest{To: &registry, Data: data}, BlockId{})
	if err != nil {
		return Address{}, err
	}
	if len(out) == 0 {
		return Address{}, errors.WithStack(NameError{Name: name, Reason: "registry returned no data"})
	}

	resolver, err := AbiDecodeAddress(out)
	if err != nil {
		return Address{}, errors.WithStack(NameError{Name: name, Reason: err.Error()})
	}
	if resolver.IsZero() {
		return Address{}, errors.WithStack(NameError{Name: name, Reason: "no resolver"})
	}
	return resolver, nil
}

func (self *Provider) validateResolver(ctx context.Context, resolver Address, selector Selector, name string) error {
	data, err := AbiEncodeCall("supportsInterface(bytes4)", selector)
	if err != nil {
		return err
	}

	out, err := self.Call(ctx, TxRequest{To: &resolver, Data: data}, BlockId{})
	if err != nil {
		return err
	}
	if len(out) == 0 {
		return errors.WithStack(NameError{Name: name, Reason: "resolver " + resolver.String() + " is invalid"})
	}

	ok, _ := AbiDecodeBool(out)
	if !ok {
		return errors.WithStack(NameError{
			Name:   name,
			Reason: "resolver " + resolver.String() + " doesn't support selector " + selector.String(),
		})
	}
	return nil
}
