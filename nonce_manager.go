package xcb

import (
	"context"
	"math/big"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const nonceLayer = "nonce manager"

/*
Middleware layer that hands out nonces locally, so that concurrent sends from
one sender never collide. Each sender's counter is loaded from the node on
first use and guarded by its own lock; the lock is never held while a
transaction is being sent.

When the node rejects a nonce, the counter is reconciled with the node and
the send is retried once with a fresh nonce.
*/
type NonceManagerMiddleware struct {
	Middleware

	// Block at which counters are loaded: "pending" (default) or "latest".
	Source BlockNumber

	Logger *zap.SugaredLogger

	entries sync.Map
}

type nonceEntry struct {
	lock        sync.Mutex
	next        uint64
	initialized bool
}

func NewNonceManager(inner Middleware) *NonceManagerMiddleware {
	return &NonceManagerMiddleware{Middleware: inner, Source: BlockPending}
}

func (self *NonceManagerMiddleware) entry(addr Address) *nonceEntry {
	val, _ := self.entries.LoadOrStore(addr, &nonceEntry{})
	return val.(*nonceEntry)
}

func (self *NonceManagerMiddleware) source() BlockId {
	return AtNumber(self.Source)
}

// Must be called with the entry's lock held.
func (self *NonceManagerMiddleware) load(ctx context.Context, entry *nonceEntry, addr Address) error {
	count, err := self.Middleware.GetTransactionCount(ctx, addr, self.source())
	if err != nil {
		return innerErr(nonceLayer, err)
	}
	entry.next = count
	entry.initialized = true
	return nil
}

/*
Loads the sender's counter from the node unless already loaded, and returns the
next nonce without allocating it.
*/
func (self *NonceManagerMiddleware) Initialize(ctx context.Context, addr Address) (uint64, error) {
	entry := self.entry(addr)
	entry.lock.Lock()
	defer entry.lock.Unlock()

	if !entry.initialized {
		err := self.load(ctx, entry, addr)
		if err != nil {
			return 0, err
		}
	}
	return entry.next, nil
}

// Allocates the sender's next nonce.
func (self *NonceManagerMiddleware) Next(ctx context.Context, addr Address) (uint64, error) {
	entry := self.entry(addr)
	entry.lock.Lock()
	defer entry.lock.Unlock()

	if !entry.initialized {
		err := self.load(ctx, entry, addr)
		if err != nil {
			return 0, err
		}
	}
	out := entry.next
	entry.next++
	return out, nil
}

// Reloads the sender's counter from the node and allocates a nonce from it.
func (self *NonceManagerMiddleware) reconcile(ctx context.Context, addr Address) (uint64, error) {
	entry := self.entry(addr)
	entry.lock.Lock()
	defer entry.lock.Unlock()

	err := self.load(ctx, entry, addr)
	if err != nil {
		return 0, err
	}
	out := entry.next
	entry.next++
	return out, nil
}

func (self *NonceManagerMiddleware) sender(tx *TxRequest) (Address, error) {
	if tx.From != nil {
		return *tx.From, nil
	}
	from := self.Middleware.DefaultSender()
	if from == nil {
		return Address{}, layerErr(nonceLayer, errors.WithStack(FillError{
			Field:  "from",
			Reason: "the request has no sender and the stack has no default sender",
		}))
	}
	tx.From = from
	return *from, nil
}

func (self *NonceManagerMiddleware) FillTransaction(ctx context.Context, tx *TxRequest, at BlockId) error {
	from, err := self.sender(tx)
	if err != nil {
		return err
	}
	if tx.Nonce == nil {
		nonce, err := self.Next(ctx, from)
		if err != nil {
			return err
		}
		tx.Nonce = new(big.Int).SetUint64(nonce)
	}
	return innerErr(nonceLayer, self.Middleware.FillTransaction(ctx, tx, at))
}

func (self *NonceManagerMiddleware) SendTransaction(ctx context.Context, tx TxRequest, at BlockId) (*PendingTx, error) {
	tx = tx.Clone()
	from, err := self.sender(&tx)
	if err != nil {
		return nil, err
	}

	if tx.Nonce != nil {
		pending, err := self.Middleware.SendTransaction(ctx, tx, at)
		return pending, innerErr(nonceLayer, err)
	}

	nonce, err := self.Next(ctx, from)
	if err != nil {
		return nil, err
	}
	tx.Nonce = new(big.Int).SetUint64(nonce)

	pending, err := self.Middleware.SendTransaction(ctx, tx, at)
	if err == nil || !IsNonceError(err) {
		return pending, innerErr(nonceLayer, err)
	}

	fresh, rerr := self.reconcile(ctx, from)
	if rerr != nil {
		return nil, rerr
	}
	if fresh == nonce {
		return nil, innerErr(nonceLayer, err)
	}

	logger(self.Logger).Infow("nonce rejected by the node, retrying",
		"from", from.String(), "rejected", nonce, "nonce", fresh, "error", err)

	tx.Nonce = new(big.Int).SetUint64(fresh)
	pending, err = self.Middleware.SendTransaction(ctx, tx, at)
	return pending, innerErr(nonceLayer, err)
}
