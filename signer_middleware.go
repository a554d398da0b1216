package xcb

import (
	"context"
	"math/big"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const signerLayer = "signer"

/*
Middleware layer that signs transactions locally and submits them with
"SendRawTransaction". Requests from other senders are passed down unsigned.
*/
type SignerMiddleware struct {
	Middleware
	Signer Signer
	Logger *zap.SugaredLogger
}

func NewSignerMiddleware(inner Middleware, signer Signer) *SignerMiddleware {
	return &SignerMiddleware{Middleware: inner, Signer: signer}
}

/*
Version of "NewSignerMiddleware" that switches the wallet to the network the
node reports. The wallet's address changes accordingly.
*/
func NewSignerMiddlewareWithProviderNetwork(ctx context.Context, inner Middleware, wallet Wallet) (*SignerMiddleware, error) {
	id, err := inner.NetworkID(ctx)
	if err != nil {
		return nil, innerErr(signerLayer, err)
	}
	return NewSignerMiddleware(inner, wallet.WithNetworkID(id)), nil
}

func (self *SignerMiddleware) Address() Address { return self.Signer.Address() }

func (self *SignerMiddleware) DefaultSender() *Address {
	addr := self.Signer.Address()
	return &addr
}

/*
Fills the sender, the network id and the nonce, then lets the layers below fill
the rest. The nonce is the sender's transaction count at the given block,
"pending" by default.
*/
func (self *SignerMiddleware) FillTransaction(ctx context.Context, tx *TxRequest, at BlockId) error {
	if tx.From == nil {
		from := self.Signer.Address()
		tx.From = &from
	}
	if tx.NetworkID == nil {
		id := self.Signer.NetworkID()
		tx.NetworkID = &id
	}
	if tx.Nonce == nil {
		nonce, err := self.Middleware.GetTransactionCount(ctx, *tx.From, at.Or(BlockPending))
		if err != nil {
			return innerErr(signerLayer, err)
		}
		tx.Nonce = new(big.Int).SetUint64(nonce)
	}
	return innerErr(signerLayer, self.Middleware.FillTransaction(ctx, tx, at))
}

/*
Signs with the local signer regardless of "from". A request without a network
id is signed for the signer's network; a conflicting one fails with
"ErrDifferentNetworkID".
*/
func (self *SignerMiddleware) SignTransaction(ctx context.Context, tx TxRequest, _ Address) (Signature, error) {
	id := self.Signer.NetworkID()
	if tx.NetworkID != nil && *tx.NetworkID != id {
		return Signature{}, layerErr(signerLayer, errors.WithStack(ErrDifferentNetworkID))
	}
	sig, err := self.Signer.SignTransaction(ctx, tx.WithNetworkID(id))
	return sig, layerErr(signerLayer, err)
}

// Raw signed transaction, ready for "SendRawTransaction".
func (self *SignerMiddleware) signedRlp(ctx context.Context, tx TxRequest) ([]byte, error) {
	sig, err := self.SignTransaction(ctx, tx, self.Signer.Address())
	if err != nil {
		return nil, err
	}
	raw, err := tx.WithNetworkID(self.Signer.NetworkID()).RlpSigned(sig)
	return raw, layerErr(signerLayer, err)
}

func (self *SignerMiddleware) SendTransaction(ctx context.Context, tx TxRequest, at BlockId) (*PendingTx, error) {
	tx = tx.Clone()
	err := self.FillTransaction(ctx, &tx, at)
	if err != nil {
		return nil, err
	}

	if *tx.From != self.Signer.Address() {
		logger(self.Logger).Debugw("delegating transaction from a foreign sender",
			"from", tx.From.String(), "signer", self.Signer.Address().String())
		pending, err := self.Middleware.SendTransaction(ctx, tx, at)
		return pending, innerErr(signerLayer, err)
	}

	raw, err := self.signedRlp(ctx, tx)
	if err != nil {
		return nil, err
	}
	pending, err := self.Middleware.SendRawTransaction(ctx, raw)
	return pending, innerErr(signerLayer, err)
}

// Signs a message with the local signer. See "HashMessage".
func (self *SignerMiddleware) Sign(ctx context.Context, data []byte, _ Address) (Signature, error) {
	sig, err := self.Signer.SignMessage(ctx, data)
	return sig, layerErr(signerLayer, err)
}

func (self *SignerMiddleware) EstimateEnergy(ctx context.Context, tx TxRequest) (*big.Int, error) {
	out, err := self.Middleware.EstimateEnergy(ctx, self.withSender(tx))
	return out, innerErr(signerLayer, err)
}

func (self *SignerMiddleware) Call(ctx context.Context, tx TxRequest, at BlockId) ([]byte, error) {
	out, err := self.Middleware.Call(ctx, self.withSender(tx), at)
	return out, innerErr(signerLayer, err)
}

func (self *SignerMiddleware) withSender(tx TxRequest) TxRequest {
	if tx.From == nil {
		return tx.WithFrom(self.Signer.Address())
	}
	return tx
}
