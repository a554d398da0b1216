/*
Library for interacting with Core Coin nodes from within a Go program.

Features:

  - ICAN addresses with network prefixes and mod-97 checksums
  - Ed448 keys, recoverable signatures, encrypted keystores
  - transaction encoding, signing digests, sender recovery
  - RPC transports and strongly-typed RPC methods
  - a provider with composable middleware: energy price oracles, local
    signing, nonce management
  - pending transaction polling with confirmations and drop detection
  - name resolution through the name registry contract
  - optional CLI tools: "xcb_wallet" for keys and transfers, "gen_xcb" for
    contract selectors

# Types

Interacting with a node over RPC involves transmitting raw bytes, addresses,
hashes, and numbers in a hex-encoded format prefixed with "0x". This package
provides aliases for regular Go types such as []byte, [32]byte, *big.Int,
uint64, specialized for hex encoding and decoding.

To avoid potential gotchas, all byte array types such as Address, Hash, and Word
have a special rule: a zero-initialized array is JSON-encoded as "null". For
consistency, this rule also affects MarshalText, where an empty array encodes as
"". The .String() method is unaffected.

# Addresses

An address is 22 bytes: a network prefix ("cb" for Mainnet, "ab" for Devin,
"ce" for private networks), two checksum digits, and a 20-byte interior derived
from a public key. The same key has a different address on every network:

	wallet, err := xcb.WalletFromHex(secret, uint64(xcb.Mainnet))
	fmt.Println(wallet.Address()) // cb...

Parse user input strictly:

	to, err := xcb.ParseAddress("cb08095e7baea6a6c7c4c2dfeb977efac326af552d87")

# RPC

Connect to a node:

	provider, err := xcb.DialProvider(ctx, "wss://some-host:8546", logger)

Currently supported transports: HTTP and WebSocket. The WebSocket transport
supports automatic reconnect and live subscriptions. Individual RPC methods are
also available as plain functions over a transport:

	height, err := xcb.XcbBlockNumber(ctx, provider.Trans)

# Middleware

The provider implements "Middleware". Layers wrap it and override what they
change:

	client := xcb.NewClient(provider, wallet, xcb.NewCacheOracle(oracle, time.Minute))

	pending, err := client.SendTransaction(ctx, xcb.Pay(to, amount), xcb.BlockId{})
	if err != nil {
		return err
	}

	receipt, err := pending.SetConfirmations(3).Wait(ctx)

Errors raised by a layer are *MiddlewareError values; use "AsInner" to get at
the error of the component that actually failed.
*/
package xcb
