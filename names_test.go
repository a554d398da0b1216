package xcb

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/purelabio/xcb/xcbtest"
)

func TestNamehash(t *testing.T) {
	assert.Equal(t, Hash{}, Namehash(""))
	assert.Equal(t,
		"0xf8c9be08e1ca5e448400d29b0d2066950b42f7e84e0f83bbefe93309f3a53d9c",
		Namehash("xcb").String())
	assert.Equal(t,
		"0xa5b1f324f5bf2049d7b8cd5a977fcea1dac041c3cc23fc5805709d9d3bbc1481",
		Namehash("alice.xcb").String())

	reverse := ReverseName(Ican(interiorOne(), Mainnet))
	assert.Equal(t, "cb270000000000000000000000000000000000000001.addr.reverse", reverse)
	assert.Equal(t,
		"0x489a8b102472cdd60ed94ce65a3eb765630c9ff12a3397eed74b1265aef44b12",
		Namehash(reverse).String())
}

/*
Name registry with a single resolver. "names" maps names to addresses and
"reverse" maps addresses to names; "text" holds text records of every name.
*/
type testRegistry struct {
	resolver  Address
	names     map[string]Address
	reverse   map[Address]string
	text      map[string]string
	supported bool
}

func abiString(t testing.TB, val string) HexBytes {
	out, err := abiAppendTuple(nil, []AbiType{{Type: "string", Kind: AbiKindString}}, []interface{}{val})
	require.NoError(t, err)
	return out
}

func (self testRegistry) handle(t testing.TB, server *xcbtest.Server) {
	nodes := map[Hash]string{}
	for name := range self.names {
		nodes[Namehash(name)] = name
	}
	for addr := range self.reverse {
		nodes[Namehash(ReverseName(addr))] = ReverseName(addr)
	}

	server.Handle("xcb_call", func(params []json.RawMessage) (interface{}, error) {
		var call struct {
			To   Address  `json:"to"`
			Data HexBytes `json:"data"`
		}
		xcbtest.Param(params, 0, &call)

		var selector Selector
		copy(selector[:], call.Data)
		var node Hash
		if len(call.Data) >= 36 {
			copy(node[:], call.Data[4:36])
		}
		name, known := nodes[node]

		switch {
		case call.To == CnsAddress && selector == SelectorResolver:
			if !known {
				word := ZeroAddress.Word()
				return HexBytes(word[:]), nil
			}
			word := self.resolver.Word()
			return HexBytes(word[:]), nil

		case call.To != self.resolver:
			return HexBytes(nil), nil

		case selector == SelectorSupportsInterface:
			if self.supported {
				return HexBytes(trueWord[:]), nil
			}
			return HexBytes(falseWord[:]), nil

		case selector == SelectorAddr:
			word := self.names[name].Word()
			return HexBytes(word[:]), nil

		case selector == SelectorName:
			for addr, primary := range self.reverse {
				if ReverseName(addr) == name {
					return abiString(t, primary), nil
				}
			}

		case selector == SelectorText:
			return abiString(t, self.text[name]), nil
		}
		return HexBytes(nil), nil
	})
}

func newTestRegistry() testRegistry {
	alice := Ican(interiorOne(), Mainnet)
	var interior [20]byte
	interior[19] = 2
	return testRegistry{
		resolver:  Ican(interior, Mainnet),
		names:     map[string]Address{"alice.xcb": alice},
		reverse:   map[Address]string{alice: "alice.xcb"},
		text:      map[string]string{"alice.xcb": "https://alice.example"},
		supported: true,
	}
}

func TestResolveName(t *testing.T) {
	server, provider := newTestNode(t)
	registry := newTestRegistry()
	registry.handle(t, server)

	addr, err := provider.ResolveName(context.Background(), "alice.xcb")
	require.NoError(t, err)
	assert.Equal(t, Ican(interiorOne(), Mainnet), addr)

	_, err = provider.ResolveName(context.Background(), "bob.xcb")
	var nameErr NameError
	require.ErrorAs(t, err, &nameErr)
	assert.Equal(t, "bob.xcb", nameErr.Name)
	assert.Equal(t, "no resolver", nameErr.Reason)
}

func TestResolveNameUnsupported(t *testing.T) {
	server, provider := newTestNode(t)
	registry := newTestRegistry()
	registry.supported = false
	registry.handle(t, server)

	_, err := provider.ResolveName(context.Background(), "alice.xcb")
	var nameErr NameError
	require.ErrorAs(t, err, &nameErr)
	assert.Contains(t, nameErr.Reason, "doesn't support selector 0x3b3b57de")
}

func TestResolveNameCustomRegistry(t *testing.T) {
	server, provider := newTestNode(t)
	registry := newTestRegistry()
	registry.handle(t, server)

	other := Ican([20]byte{19: 9}, Mainnet)
	provider.Registry = &other

	_, err := provider.ResolveName(context.Background(), "alice.xcb")
	var nameErr NameError
	require.ErrorAs(t, err, &nameErr)
	assert.Equal(t, "registry returned no data", nameErr.Reason)
}

func TestLookupAddress(t *testing.T) {
	server, provider := newTestNode(t)
	registry := newTestRegistry()
	registry.handle(t, server)

	name, err := provider.LookupAddress(context.Background(), Ican(interiorOne(), Mainnet))
	require.NoError(t, err)
	assert.Equal(t, "alice.xcb", name)
}

func TestLookupAddressMismatch(t *testing.T) {
	server, provider := newTestNode(t)
	registry := newTestRegistry()

	impostor := testWallet(t, Mainnet).Address()
	registry.reverse[impostor] = "alice.xcb"
	registry.handle(t, server)

	_, err := provider.LookupAddress(context.Background(), impostor)
	var nameErr NameError
	require.ErrorAs(t, err, &nameErr)
	assert.Equal(t, "alice.xcb", nameErr.Name)
	assert.Contains(t, nameErr.Reason, "not owned by")
}

func TestResolveField(t *testing.T) {
	server, provider := newTestNode(t)
	registry := newTestRegistry()
	registry.handle(t, server)

	url, err := provider.ResolveField(context.Background(), "alice.xcb", "url")
	require.NoError(t, err)
	assert.Equal(t, "https://alice.example", url)
}

func TestResolverCallData(t *testing.T) {
	server, provider := newTestNode(t)

	calls := make(chan HexBytes, 1)
	server.Handle("xcb_call", func(params []json.RawMessage) (interface{}, error) {
		var call struct {
			Data HexBytes `json:"data"`
		}
		xcbtest.Param(params, 0, &call)
		calls <- call.Data
		return HexBytes(nil), nil
	})

	_, err := provider.ResolveName(context.Background(), "alice.xcb")
	require.Error(t, err)

	node := Namehash("alice.xcb")
	assert.True(t, bytes.Equal(append(SelectorResolver[:], node[:]...), <-calls))
}
