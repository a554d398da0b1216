package xcb

import (
	"database/sql/driver"
	"encoding/hex"
	"strconv"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"
)

// Byte length of an address: 1 prefix byte, 1 checksum byte, 20 interior bytes.
const AddressLength = 22

/*
An ICAN-style address. The first byte is the network prefix, the second holds
two decimal checksum digits as hex nibbles, and the remaining 20 bytes are the
interior: the last 20 bytes of a hash of the public key or of the contract
creation inputs.

Text form is 44 lowercase hex characters without "0x"; "0x" is accepted on
input. To avoid gotchas, a zero-initialized Address{} JSON-encodes as "null" and
text-encodes as "".
*/
type Address [AddressLength]byte

type AddressErrorKind int

const (
	AddressErrLength AddressErrorKind = iota
	AddressErrHex
	AddressErrPrefix
	AddressErrChecksum
)

type AddressError struct {
	Kind  AddressErrorKind
	Input string
}

func (self AddressError) Error() string {
	switch self.Kind {
	case AddressErrLength:
		return "invalid address " + strconv.Quote(self.Input) + ": want 44 hex characters"
	case AddressErrHex:
		return "invalid address " + strconv.Quote(self.Input) + ": not hex"
	case AddressErrPrefix:
		return "invalid address " + strconv.Quote(self.Input) + ": unknown network prefix"
	default:
		return "invalid address " + strconv.Quote(self.Input) + ": checksum mismatch"
	}
}

/*
Builds an address from its 20-byte interior, computing the checksum for the
network's prefix.
*/
func Ican(interior [20]byte, network Network) Address {
	return icanWithPrefix(interior[:], network.prefixByte())
}

func icanWithPrefix(interior []byte, prefix byte) Address {
	var out Address
	out[0] = prefix
	sum := icanChecksum(interior, prefix)
	out[1] = byte(sum/10)<<4 | byte(sum%10)
	copy(out[2:], interior)
	return out
}

/*
Mod-97 checksum over the digit string: the interior hex, then the prefix hex,
then "00", with every hex character replaced by its decimal value (so "a"
becomes "10"). The result is 98 minus the remainder.
*/
func icanChecksum(interior []byte, prefix byte) int {
	acc := 0
	feed := func(nibble byte) {
		if nibble >= 10 {
			acc = (acc*10 + int(nibble/10)) % 97
		}
		acc = (acc*10 + int(nibble%10)) % 97
	}
	for _, char := range interior {
		feed(char >> 4)
		feed(char & 0x0f)
	}
	feed(prefix >> 4)
	feed(prefix & 0x0f)
	feed(0)
	feed(0)
	return 98 - acc
}

func isKnownPrefix(prefix byte) bool {
	return prefix == 0xcb || prefix == 0xab || prefix == 0xce
}

/*
Strict parsing of user-facing input: exactly 44 hex characters after an
optional "0x", a known network prefix, and a valid checksum.
*/
func ParseAddress(input string) (Address, error) {
	var out Address
	err := out.decodeShape(input)
	if err != nil {
		return out, err
	}
	if !isKnownPrefix(out[0]) {
		return Address{}, errors.WithStack(AddressError{Kind: AddressErrPrefix, Input: input})
	}
	if !out.ChecksumValid() {
		return Address{}, errors.WithStack(AddressError{Kind: AddressErrChecksum, Input: input})
	}
	return out, nil
}

// Version of "ParseAddress" that panics on error. Convenient for
// initializing global variables.
func MustParseAddress(input string) Address {
	out, err := ParseAddress(input)
	if err != nil {
		panic(err)
	}
	return out
}

/*
Raw conversion without prefix or checksum checks: keeps the last 22 bytes of
longer input, left-padding shorter input with zeros. Malformed hex is an error.
Use "ParseAddress" for anything a user typed.
*/
func HexToAddress(input string) (Address, error) {
	raw, err := hex.DecodeString(trim0x(input))
	if err != nil {
		return Address{}, errors.WithStack(AddressError{Kind: AddressErrHex, Input: input})
	}
	return BytesToAddress(raw), nil
}

// Keeps the last 22 bytes of the input, left-padding shorter input with zeros.
func BytesToAddress(input []byte) Address {
	var out Address
	if len(input) > len(out) {
		input = input[len(input)-len(out):]
	}
	copy(out[len(out)-len(input):], input)
	return out
}

func (self *Address) decodeShape(input string) error {
	str := trim0x(input)
	if len(str) != AddressLength*2 {
		return errors.WithStack(AddressError{Kind: AddressErrLength, Input: input})
	}
	_, err := hex.Decode(self[:], stringToBytesUnsafe(str))
	if err != nil {
		*self = Address{}
		return errors.WithStack(AddressError{Kind: AddressErrHex, Input: input})
	}
	return nil
}

// Address with a known prefix and a matching checksum.
func (self Address) Validate() error {
	if !isKnownPrefix(self[0]) {
		return errors.WithStack(AddressError{Kind: AddressErrPrefix, Input: self.String()})
	}
	if !self.ChecksumValid() {
		return errors.WithStack(AddressError{Kind: AddressErrChecksum, Input: self.String()})
	}
	return nil
}

func (self Address) ChecksumValid() bool {
	hi, lo := self[1]>>4, self[1]&0x0f
	if hi > 9 || lo > 9 {
		return false
	}
	return int(hi)*10+int(lo) == icanChecksum(self[2:], self[0])
}

// Two lowercase hex characters identifying the network.
func (self Address) Prefix() string { return hex.EncodeToString(self[:1]) }

// Two decimal checksum digits.
func (self Address) Checksum() string { return hex.EncodeToString(self[1:2]) }

func (self Address) Interior() [20]byte {
	var out [20]byte
	copy(out[:], self[2:])
	return out
}

// See "NetworkFromPrefix".
func (self Address) Network() (Network, error) {
	return NetworkFromPrefix(self.Prefix())
}

// True if the address carries the network's prefix. All private networks share
// one prefix.
func (self Address) OnNetwork(network Network) bool {
	return self[0] == network.prefixByte()
}

// Same interior, re-checksummed for another network.
func (self Address) ToNetwork(network Network) Address {
	return icanWithPrefix(self[2:], network.prefixByte())
}

func (self Address) IsZero() bool { return self == ZeroAddress }

/*
Implements "encoding.TextMarshaler". A zero-initialized value encodes as "",
otherwise as 44 lowercase hex characters.
*/
func (self Address) MarshalText() ([]byte, error) {
	if self == ZeroAddress {
		return nil, nil
	}
	return []byte(self.String()), nil
}

/*
Implements "encoding.TextUnmarshaler". Node responses are trusted, so only the
shape is checked: 44 hex characters with an optional "0x". Empty input decodes
into the zero address.
*/
func (self *Address) UnmarshalText(input []byte) error {
	if len(input) == 0 {
		*self = Address{}
		return nil
	}
	return self.decodeShape(string(input))
}

/*
Implements "json.Marshaler". A zero-initialized value encodes as "null".
*/
func (self Address) MarshalJSON() ([]byte, error) {
	if self == ZeroAddress {
		return null, nil
	}
	out := make([]byte, 0, AddressLength*2+2)
	out = append(out, '"')
	out = hex.AppendEncode(out, self[:])
	out = append(out, '"')
	return out, nil
}

// Unlike "MarshalText" and "MarshalJSON", doesn't have special rules for
// zero-initialized values.
func (self Address) String() string {
	return hex.EncodeToString(self[:])
}

// Converts into a Word for event log filtering and ABI encoding, zero-padded
// on the left.
func (self Address) Word() Word {
	var out Word
	copy(out[len(out)-len(self):], self[:])
	return out
}

// Implements "sql.Scanner" in terms of "UnmarshalText".
func (self *Address) Scan(src interface{}) error {
	switch src := src.(type) {
	case nil:
		*self = Address{}
		return nil
	case string:
		return self.UnmarshalText(stringToBytesUnsafe(src))
	case []byte:
		return self.UnmarshalText(src)
	default:
		return errors.Errorf("unrecognized input for %T: %T %v", self, src, src)
	}
}

// Implements "sql/driver.Valuer". A zero-initialized Address{} is stored as
// NULL.
func (self Address) Value() (driver.Value, error) {
	if self == ZeroAddress {
		return nil, nil
	}
	return self.String(), nil
}

/*
Address of an account controlled by the given public key: the last 20 bytes of
the SHA3-256 of the key, checksummed for the network.
*/
func PubkeyToAddress(pub PublicKey, network Network) Address {
	hash := Sha3(pub[:])
	return icanWithPrefix(hash[12:], network.prefixByte())
}

/*
Address of a contract deployed by "sender" with a CREATE transaction at the
given nonce: the last 20 bytes of SHA3-256 over rlp([sender, nonce]).
*/
func CreateAddress(sender Address, nonce uint64, network Network) Address {
	raw, err := rlp.EncodeToBytes([]interface{}{sender[:], nonce})
	if err != nil {
		panic(err)
	}
	hash := Sha3(raw)
	return icanWithPrefix(hash[12:], network.prefixByte())
}

/*
Address of a contract deployed with CREATE2: the last 20 bytes of SHA3-256 over
0xff, the sender, the salt, and the hash of the init code.
*/
func Create2Address(sender Address, salt [32]byte, initCode []byte, network Network) Address {
	return Create2AddressFromHash(sender, salt, Sha3(initCode), network)
}

// Version of "Create2Address" for callers that already hashed the init code.
func Create2AddressFromHash(sender Address, salt [32]byte, initCodeHash Hash, network Network) Address {
	hash := Sha3([]byte{0xff}, sender[:], salt[:], initCodeHash[:])
	return icanWithPrefix(hash[12:], network.prefixByte())
}
