package xcb

import (
	"context"
	"io"
	"strconv"

	"github.com/pkg/errors"
)

/*
Anything that can sign on behalf of an address: local keys, remote signers,
hardware devices.
*/
type Signer interface {
	Address() Address
	NetworkID() uint64
	SignHash(hash Hash) (Signature, error)
	SignMessage(ctx context.Context, msg []byte) (Signature, error)

	// Signs the transaction's sighash. A request without a network id is
	// signed for the signer's network.
	SignTransaction(ctx context.Context, tx TxRequest) (Signature, error)
}

/*
Signer backed by an in-memory private key. The address is derived from the key
and the configured network, so the same key yields different addresses on
different networks.
*/
type Wallet struct {
	key       *PrivateKey
	address   Address
	networkID uint64
}

var _ Signer = Wallet{}

func NewWallet(key *PrivateKey, networkID uint64) Wallet {
	return Wallet{
		key:       key,
		address:   PubkeyToAddress(key.Public(), NetworkFromID(networkID)),
		networkID: networkID,
	}
}

// Parses a hex-encoded private key. See "ParsePrivateKey".
func WalletFromHex(input string, networkID uint64) (Wallet, error) {
	key, err := ParsePrivateKey(input)
	if err != nil {
		return Wallet{}, err
	}
	return NewWallet(key, networkID), nil
}

// Generates a fresh key from the given source, typically
// "crypto/rand.Reader".
func RandomWallet(rand io.Reader, networkID uint64) (Wallet, error) {
	key, err := GenerateKey(rand)
	if err != nil {
		return Wallet{}, err
	}
	return NewWallet(key, networkID), nil
}

// Same key on another network. The address changes accordingly.
func (self Wallet) WithNetworkID(networkID uint64) Wallet {
	return NewWallet(self.key, networkID)
}

func (self Wallet) Address() Address { return self.address }

func (self Wallet) NetworkID() uint64 { return self.networkID }

func (self Wallet) PrivateKey() *PrivateKey { return self.key }

func (self Wallet) PublicKey() PublicKey { return self.key.Public() }

func (self Wallet) SignHash(hash Hash) (Signature, error) {
	if self.key == nil {
		return Signature{}, errors.New(`can't sign with an empty wallet`)
	}
	return self.key.SignHash(hash), nil
}

func (self Wallet) SignMessage(_ context.Context, msg []byte) (Signature, error) {
	return self.SignHash(HashMessage(msg))
}

/*
Signs the request's sighash. A request without a network id is signed for the
wallet's network; a request for another network is refused.
*/
func (self Wallet) SignTransaction(_ context.Context, tx TxRequest) (Signature, error) {
	if tx.NetworkID == nil {
		tx = tx.WithNetworkID(self.networkID)
	} else if *tx.NetworkID != self.networkID {
		return Signature{}, errors.WithStack(SignatureError{
			Kind: SigErrNetworkMismatch,
			Err:  ErrDifferentNetworkID,
		})
	}
	hash, err := tx.Sighash()
	if err != nil {
		return Signature{}, err
	}
	return self.SignHash(hash)
}

func (self Wallet) String() string {
	return "Wallet(" + self.address.String() + ", network " + strconv.FormatUint(self.networkID, 10) + ")"
}
