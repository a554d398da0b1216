package xcb

import (
	"github.com/cloudflare/circl/sign/ed448"
	"github.com/pkg/errors"
)

/*
A recoverable signature: the 114-byte Ed448 signature followed by the signer's
57-byte public key. Recovery reads the key, verifies the signature against it,
and derives the address.
*/
type Signature [SignatureLength]byte

type SignatureErrorKind int

const (
	SigErrLength SignatureErrorKind = iota
	SigErrVerification
	SigErrAddressMismatch
	SigErrNetworkMismatch
)

type SignatureError struct {
	Kind     SignatureErrorKind
	Expected Address
	Got      Address
	Err      error
}

func (self SignatureError) Error() string {
	switch self.Kind {
	case SigErrLength:
		return "invalid signature length"
	case SigErrVerification:
		return "signature verification failed"
	case SigErrAddressMismatch:
		return "signature is from " + self.Got.String() + ", want " + self.Expected.String()
	default:
		if self.Err != nil {
			return self.Err.Error()
		}
		return "network id mismatch"
	}
}

func (self SignatureError) Unwrap() error { return self.Err }

// Returned when a transaction names a network other than the signer's.
var ErrDifferentNetworkID = errors.New("specified network id is different than the signer's network id")

func SignatureFromBytes(input []byte) (Signature, error) {
	var out Signature
	if len(input) != SignatureLength {
		return out, errors.WithStack(SignatureError{Kind: SigErrLength})
	}
	copy(out[:], input)
	return out, nil
}

func (self Signature) Bytes() []byte {
	out := make([]byte, SignatureLength)
	copy(out, self[:])
	return out
}

// The bare Ed448 signature.
func (self Signature) Sig() [SigLength]byte {
	var out [SigLength]byte
	copy(out[:], self[:SigLength])
	return out
}

func (self Signature) PublicKey() PublicKey {
	var out PublicKey
	copy(out[:], self[SigLength:])
	return out
}

func (self Signature) IsZero() bool { return self == Signature{} }

// Checks the signature over the digest against the embedded public key.
func (self Signature) Verify(hash Hash) error {
	pub := self.PublicKey()
	if !ed448.Verify(ed448.PublicKey(pub[:]), hash[:], self[:SigLength], "") {
		return errors.WithStack(SignatureError{Kind: SigErrVerification})
	}
	return nil
}

/*
Verifies the signature over the digest and returns the signer's address on the
given network.
*/
func (self Signature) Recover(hash Hash, network Network) (Address, error) {
	err := self.Verify(hash)
	if err != nil {
		return Address{}, err
	}
	return PubkeyToAddress(self.PublicKey(), network), nil
}

// Version of "Recover" for signatures made with "Signer.SignMessage".
func (self Signature) RecoverMessage(msg []byte, network Network) (Address, error) {
	return self.Recover(HashMessage(msg), network)
}

/*
Checks that the signature over the digest was made by the given address. The
address's own prefix determines the network.
*/
func (self Signature) VerifyAddress(hash Hash, address Address) error {
	err := self.Verify(hash)
	if err != nil {
		return err
	}
	got := icanWithPrefix(pubkeyInterior(self.PublicKey()), address[0])
	if got != address {
		return errors.WithStack(SignatureError{
			Kind:     SigErrAddressMismatch,
			Expected: address,
			Got:      got,
		})
	}
	return nil
}

// Version of "VerifyAddress" for signatures made with "Signer.SignMessage".
func (self Signature) VerifyMessage(msg []byte, address Address) error {
	return self.VerifyAddress(HashMessage(msg), address)
}

func pubkeyInterior(pub PublicKey) []byte {
	hash := Sha3(pub[:])
	return hash[12:]
}

func (self Signature) MarshalText() ([]byte, error) {
	if self.IsZero() {
		return nil, nil
	}
	return HexEncode(self[:]), nil
}

func (self *Signature) UnmarshalText(input []byte) error {
	if len(input) == 0 {
		*self = Signature{}
		return nil
	}
	if HexDecodedLen(len(input)) != SignatureLength {
		return errors.WithStack(SignatureError{Kind: SigErrLength})
	}
	return HexDecodeTo(self[:], input)
}

func (self Signature) MarshalJSON() ([]byte, error) {
	if self.IsZero() {
		return null, nil
	}
	return hexEncodeQuoted(self[:]), nil
}

func (self Signature) String() string {
	return bytesToMutableString(HexEncode(self[:]))
}
