package xcb

import (
	"fmt"
	"io"

	"github.com/cloudflare/circl/sign/ed448"
	"github.com/pkg/errors"
)

const (
	PrivateKeyLength = ed448.SeedSize      // 57
	PublicKeyLength  = ed448.PublicKeySize // 57
	SigLength        = ed448.SignatureSize // 114

	// Signatures carry the signer's public key, which makes them recoverable.
	SignatureLength = SigLength + PublicKeyLength // 171
)

/*
Ed448 private key, stored as its 57-byte seed. Never printed: every fmt verb
renders a placeholder.
*/
type PrivateKey struct {
	seed [PrivateKeyLength]byte
	key  ed448.PrivateKey
}

// Reads a fresh seed from the given source, typically "crypto/rand.Reader".
func GenerateKey(rand io.Reader) (*PrivateKey, error) {
	var seed [PrivateKeyLength]byte
	_, err := io.ReadFull(rand, seed[:])
	if err != nil {
		return nil, errors.Wrap(err, `failed to read a private key seed`)
	}
	return PrivateKeyFromBytes(seed[:])
}

func PrivateKeyFromBytes(seed []byte) (*PrivateKey, error) {
	if len(seed) != PrivateKeyLength {
		return nil, errors.Errorf("private key has %d bytes, want %d", len(seed), PrivateKeyLength)
	}
	out := &PrivateKey{key: ed448.NewKeyFromSeed(seed)}
	copy(out.seed[:], seed)
	return out, nil
}

// Parses 114 hex characters with an optional "0x" prefix.
func ParsePrivateKey(input string) (*PrivateKey, error) {
	seed, err := HexDecodeString(input)
	if err != nil {
		return nil, errors.Wrap(err, `failed to parse a private key`)
	}
	defer wipe(seed)
	return PrivateKeyFromBytes(seed)
}

// Copy of the seed. The caller owns it and should wipe it when done.
func (self *PrivateKey) Bytes() []byte {
	out := make([]byte, PrivateKeyLength)
	copy(out, self.seed[:])
	return out
}

func (self *PrivateKey) Public() PublicKey {
	var out PublicKey
	copy(out[:], self.key.Public().(ed448.PublicKey))
	return out
}

/*
Signs a 32-byte digest. The message given to Ed448 is the digest itself, with an
empty context string.
*/
func (self *PrivateKey) SignHash(hash Hash) Signature {
	var out Signature
	copy(out[:SigLength], ed448.Sign(self.key, hash[:], ""))
	pub := self.Public()
	copy(out[SigLength:], pub[:])
	return out
}

// Overwrites the key material. The key is unusable afterwards.
func (self *PrivateKey) Zero() {
	wipe(self.seed[:])
	wipe(self.key)
}

func (self *PrivateKey) Format(state fmt.State, _ rune) {
	io.WriteString(state, "PrivateKey(<redacted>)")
}

func (self *PrivateKey) String() string { return "PrivateKey(<redacted>)" }

func wipe(buf []byte) {
	for i := range buf {
		buf[i] = 0
	}
}

// Ed448 public key.
type PublicKey [PublicKeyLength]byte

func (self PublicKey) Address(network Network) Address {
	return PubkeyToAddress(self, network)
}

func (self PublicKey) MarshalText() ([]byte, error) { return HexEncode(self[:]), nil }

func (self *PublicKey) UnmarshalText(input []byte) error { return HexDecodeTo(self[:], input) }

func (self PublicKey) String() string { return bytesToMutableString(HexEncode(self[:])) }
