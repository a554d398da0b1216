package xcb

import (
	"context"
	"math/big"
)

/*
The client surface shared by the Provider and every layer stacked on top of it.
A layer embeds the Middleware below it, inherits every method, and overrides only
the ones it changes. Because Go embedding has no virtual dispatch, a layer that
overrides "FillTransaction" must also override "SendTransaction" so that its own
filling runs before delegating.

Errors raised by a layer are wrapped in *MiddlewareError with "Err" set; errors
from below are either passed through untouched or wrapped with "Inner" set. See
"AsInner".
*/
type Middleware interface {
	// The provider at the bottom of the stack.
	Provider() *Provider

	// Sender used when a request has no "From". Nil if there is none.
	DefaultSender() *Address

	ClientVersion(ctx context.Context) (string, error)
	NetworkID(ctx context.Context) (uint64, error)
	Syncing(ctx context.Context) (SyncStatus, error)
	BlockNumber(ctx context.Context) (uint64, error)
	GetBlock(ctx context.Context, id BlockId) (*Block, error)
	GetTransaction(ctx context.Context, hash Hash) (*Transaction, error)
	GetTransactionReceipt(ctx context.Context, hash Hash) (*TxReceipt, error)
	GetBalance(ctx context.Context, addr Address, at BlockId) (*big.Int, error)
	GetTransactionCount(ctx context.Context, addr Address, at BlockId) (uint64, error)
	GetCode(ctx context.Context, addr Address, at BlockId) ([]byte, error)
	GetStorageAt(ctx context.Context, addr Address, slot Hash, at BlockId) (Hash, error)
	GetLogs(ctx context.Context, filter Filter) ([]Log, error)
	GetEnergyPrice(ctx context.Context) (*big.Int, error)
	EstimateEnergy(ctx context.Context, tx TxRequest) (*big.Int, error)
	Call(ctx context.Context, tx TxRequest, at BlockId) ([]byte, error)

	/**
	Completes the request in place. Each layer fills the fields it owns and
	delegates the rest downward; fields that are already set are kept.
	*/
	FillTransaction(ctx context.Context, tx *TxRequest, at BlockId) error

	SignTransaction(ctx context.Context, tx TxRequest, from Address) (Signature, error)
	Sign(ctx context.Context, data []byte, from Address) (Signature, error)

	// Fills and submits the request, returning a watcher for its inclusion.
	SendTransaction(ctx context.Context, tx TxRequest, at BlockId) (*PendingTx, error)
	SendRawTransaction(ctx context.Context, raw []byte) (*PendingTx, error)
}

/*
Builds the usual stack over a provider: nonce manager, then signer, then energy
oracle. A nil oracle leaves energy pricing to the node.
*/
func NewClient(provider *Provider, signer Signer, oracle EnergyOracle) *NonceManagerMiddleware {
	var inner Middleware = provider
	if oracle != nil {
		inner = NewEnergyOracleMiddleware(inner, oracle)
	}
	return NewNonceManager(NewSignerMiddleware(inner, signer))
}
