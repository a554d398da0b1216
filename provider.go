package xcb

import (
	"context"
	"math/big"
	"net/url"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Returned by the provider for operations that need a local key.
var ErrSignerUnavailable = errors.New("no signer available: the provider can't sign transactions")

/*
Bottom of every middleware stack: a thin layer over a Trans that implements
"Middleware" with one RPC call per method. Safe for concurrent use.

Fields are configuration and may be modified before first use.
*/
type Provider struct {
	Trans Trans

	// Polling interval of pending transactions. Defaults to 7s, or 2s for
	// nodes on the local machine when created with "DialProvider".
	Interval time.Duration

	// Polls a pending transaction survives while the node doesn't know it.
	Retries int

	// Used as "From" when a request doesn't set it.
	Sender *Address

	// Overrides the address of the name registry contract.
	Registry *Address

	Logger *zap.SugaredLogger

	blockCache sync.Map
}

var _ Middleware = (*Provider)(nil)

func NewProvider(trans Trans) *Provider {
	return &Provider{
		Trans:    trans,
		Interval: defaultPollInterval,
		Retries:  defaultRetries,
	}
}

/*
Dials the node and picks a polling interval: a short one for nodes on the local
machine, otherwise half the network's block time.
*/
func DialProvider(ctx context.Context, rpcPath string, log *zap.SugaredLogger) (*Provider, error) {
	trans, err := Dial(rpcPath, log)
	if err != nil {
		return nil, err
	}

	out := NewProvider(trans)
	out.Logger = log

	if isLocalUrl(rpcPath) {
		out.Interval = localPollInterval
		return out, nil
	}

	id, err := XcbNetworkId(ctx, trans)
	if err != nil {
		return nil, err
	}
	out.Interval = NetworkFromID(id).AverageBlocktime() / 2
	return out, nil
}

func isLocalUrl(rpcPath string) bool {
	parsed, err := url.Parse(rpcPath)
	if err != nil {
		return false
	}
	host := parsed.Hostname()
	return host == "localhost" || host == "127.0.0.1"
}

func (self *Provider) log() *zap.SugaredLogger { return logger(self.Logger) }

func (self *Provider) Provider() *Provider { return self }

func (self *Provider) DefaultSender() *Address { return self.Sender }

func (self *Provider) ClientVersion(ctx context.Context) (string, error) {
	return Web3ClientVersion(ctx, self.Trans)
}

func (self *Provider) NetworkID(ctx context.Context) (uint64, error) {
	return XcbNetworkId(ctx, self.Trans)
}

func (self *Provider) Syncing(ctx context.Context) (SyncStatus, error) {
	return XcbSyncing(ctx, self.Trans)
}

func (self *Provider) BlockNumber(ctx context.Context) (uint64, error) {
	return XcbBlockNumber(ctx, self.Trans)
}

// Blocks requested by hash are cached forever; see "XcbGetBlockByHashCached".
func (self *Provider) GetBlock(ctx context.Context, id BlockId) (*Block, error) {
	if id.Hash != nil {
		return XcbGetBlockByHashCached(ctx, self.Trans, &self.blockCache, *id.Hash)
	}
	num := BlockLatest
	if id.Number != nil {
		num = *id.Number
	}
	return XcbGetBlockByNumber(ctx, self.Trans, num)
}

func (self *Provider) GetTransaction(ctx context.Context, hash Hash) (*Transaction, error) {
	return XcbGetTransactionByHash(ctx, self.Trans, hash)
}

func (self *Provider) GetTransactionReceipt(ctx context.Context, hash Hash) (*TxReceipt, error) {
	return XcbGetTransactionReceipt(ctx, self.Trans, hash)
}

func (self *Provider) GetBalance(ctx context.Context, addr Address, at BlockId) (*big.Int, error) {
	return XcbGetBalance(ctx, self.Trans, addr, at)
}

func (self *Provider) GetTransactionCount(ctx context.Context, addr Address, at BlockId) (uint64, error) {
	return XcbGetTransactionCount(ctx, self.Trans, addr, at)
}

func (self *Provider) GetCode(ctx context.Context, addr Address, at BlockId) ([]byte, error) {
	return XcbGetCode(ctx, self.Trans, addr, at)
}

func (self *Provider) GetStorageAt(ctx context.Context, addr Address, slot Hash, at BlockId) (Hash, error) {
	return XcbGetStorageAt(ctx, self.Trans, addr, slot, at)
}

func (self *Provider) GetLogs(ctx context.Context, filter Filter) ([]Log, error) {
	return XcbGetLogs(ctx, self.Trans, filter)
}

func (self *Provider) GetEnergyPrice(ctx context.Context) (*big.Int, error) {
	return XcbEnergyPrice(ctx, self.Trans)
}

func (self *Provider) EstimateEnergy(ctx context.Context, tx TxRequest) (*big.Int, error) {
	return XcbEstimateEnergy(ctx, self.Trans, tx)
}

func (self *Provider) Call(ctx context.Context, tx TxRequest, at BlockId) ([]byte, error) {
	return XcbCall(ctx, self.Trans, tx, at)
}

/*
Fills the fields the node can tell us about: the sender from "Sender", the
energy price from "xcb_energyPrice", and the energy from "xcb_estimateEnergy".
Nonce and network id are left to the node or to the layers above.
*/
func (self *Provider) FillTransaction(ctx context.Context, tx *TxRequest, _ BlockId) error {
	if tx.From == nil && self.Sender != nil {
		from := *self.Sender
		tx.From = &from
	}

	if tx.EnergyPrice == nil {
		price, err := self.GetEnergyPrice(ctx)
		if err != nil {
			return err
		}
		tx.EnergyPrice = price
	}

	if tx.Energy == nil {
		energy, err := self.EstimateEnergy(ctx, *tx)
		if err != nil {
			return err
		}
		tx.Energy = energy
	}
	return nil
}

// Always fails: the provider holds no keys. Use SignerMiddleware.
func (self *Provider) SignTransaction(context.Context, TxRequest, Address) (Signature, error) {
	return Signature{}, errors.WithStack(ErrSignerUnavailable)
}

// Signs with a node-managed account via "xcb_sign".
func (self *Provider) Sign(ctx context.Context, data []byte, from Address) (Signature, error) {
	return XcbSign(ctx, self.Trans, from, data)
}

/*
Fills the request and submits it with "xcb_sendTransaction". The node signs it
with the account named by "From", which must be unlocked on the node.
*/
func (self *Provider) SendTransaction(ctx context.Context, tx TxRequest, at BlockId) (*PendingTx, error) {
	tx = tx.Clone()
	err := self.FillTransaction(ctx, &tx, at)
	if err != nil {
		return nil, err
	}

	hash, err := XcbSendTransaction(ctx, self.Trans, tx)
	if err != nil {
		return nil, err
	}
	self.log().Debugw("sent transaction", "hash", hash.String())
	return NewPendingTx(hash, self), nil
}

func (self *Provider) SendRawTransaction(ctx context.Context, raw []byte) (*PendingTx, error) {
	hash, err := XcbSendRawTransaction(ctx, self.Trans, raw)
	if err != nil {
		return nil, err
	}
	self.log().Debugw("sent raw transaction", "hash", hash.String())
	return NewPendingTx(hash, self), nil
}

/*
Streams new block headers until the context is canceled or the connection
drops. Requires a transport with subscriptions, such as WsTrans.
*/
func (self *Provider) SubscribeBlocks(ctx context.Context, out chan<- Block) error {
	return SubscribeToBlocks(ctx, self.Trans, out)
}

// Streams logs matching the filter. Same lifecycle as "SubscribeBlocks".
func (self *Provider) SubscribeLogs(ctx context.Context, filter Filter, out chan<- Log) error {
	return SubscribeToLogs(ctx, self.Trans, filter, out)
}
