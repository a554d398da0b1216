package xcb

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type PendingTxState int

const (
	PendingInitial PendingTxState = iota
	PendingGettingTx
	PendingGettingReceipt
	PendingCheckingReceipt
	PendingConfirmed
	PendingDropped
)

func (self PendingTxState) String() string {
	switch self {
	case PendingInitial:
		return "initial"
	case PendingGettingTx:
		return "getting tx"
	case PendingGettingReceipt:
		return "getting receipt"
	case PendingCheckingReceipt:
		return "checking receipt"
	case PendingConfirmed:
		return "confirmed"
	case PendingDropped:
		return "dropped"
	default:
		return "unknown"
	}
}

/*
Watches a submitted transaction until it has enough confirmations. Created by
"SendTransaction" and "SendRawTransaction", with the interval and retry budget
of the provider. Settings may be changed before calling "Wait".

Polling goes through the states "PendingGettingTx", "PendingGettingReceipt"
and "PendingCheckingReceipt", one RPC call per tick, and ends in
"PendingConfirmed" or "PendingDropped".
*/
type PendingTx struct {
	Hash Hash

	// Blocks that must include or follow the transaction's block. 0 and 1 both
	// mean "included".
	Confirmations uint64

	Interval time.Duration

	// Polls that may find the node unaware of the transaction before it's
	// considered dropped.
	Retries int

	Logger *zap.SugaredLogger

	client Middleware

	lock  sync.Mutex
	state PendingTxState
}

func NewPendingTx(hash Hash, client Middleware) *PendingTx {
	out := &PendingTx{
		Hash:          hash,
		Confirmations: 1,
		Interval:      defaultPollInterval,
		Retries:       defaultRetries,
		client:        client,
	}
	provider := client.Provider()
	if provider != nil {
		if provider.Interval > 0 {
			out.Interval = provider.Interval
		}
		if provider.Retries > 0 {
			out.Retries = provider.Retries
		}
		out.Logger = provider.Logger
	}
	return out
}

func (self *PendingTx) SetConfirmations(confirmations uint64) *PendingTx {
	self.Confirmations = confirmations
	return self
}

func (self *PendingTx) SetInterval(interval time.Duration) *PendingTx {
	self.Interval = interval
	return self
}

func (self *PendingTx) SetRetries(retries int) *PendingTx {
	self.Retries = retries
	return self
}

func (self *PendingTx) State() PendingTxState {
	self.lock.Lock()
	defer self.lock.Unlock()
	return self.state
}

func (self *PendingTx) setState(state PendingTxState) {
	self.lock.Lock()
	prev := self.state
	self.state = state
	self.lock.Unlock()

	if prev != state {
		logger(self.Logger).Debugw("pending transaction",
			"hash", self.Hash.String(), "from", prev.String(), "to", state.String())
	}
}

/*
Polls until the transaction is confirmed, dropped, or the context is canceled.
A receipt whose block hash changes between polls means the transaction was
re-included after a reorg, and the confirmations are counted from the new
block.
*/
func (self *PendingTx) Wait(ctx context.Context) (*TxReceipt, error) {
	interval := self.Interval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var receipt *TxReceipt
	misses := 0
	self.setState(PendingGettingTx)

	for {
		switch self.State() {
		case PendingGettingTx:
			tx, err := self.client.GetTransaction(ctx, self.Hash)
			if err != nil {
				return nil, err
			}
			if tx != nil {
				self.setState(PendingGettingReceipt)
				continue
			}
			misses++
			if misses >= self.Retries {
				self.setState(PendingDropped)
				return nil, errors.WithStack(ErrTxDropped)
			}

		case PendingGettingReceipt:
			next, err := self.client.GetTransactionReceipt(ctx, self.Hash)
			if err != nil {
				return nil, err
			}
			if next != nil && next.BlockNumber != nil {
				if receipt != nil && !sameBlock(receipt, next) {
					logger(self.Logger).Infow("transaction moved to another block",
						"hash", self.Hash.String(), "block", next.BlockNumber.String())
				}
				receipt = next
				self.setState(PendingCheckingReceipt)
				continue
			}

		case PendingCheckingReceipt:
			if self.Confirmations <= 1 {
				self.setState(PendingConfirmed)
				return receipt, nil
			}

			head, err := self.client.BlockNumber(ctx)
			if err != nil {
				return nil, err
			}
			included := uint64(*receipt.BlockNumber)
			if head >= included && head-included+1 >= self.Confirmations {
				self.setState(PendingConfirmed)
				return receipt, nil
			}
			self.setState(PendingGettingReceipt)

		default:
			return nil, errors.Errorf(`unexpected pending transaction state %v`, self.State())
		}

		select {
		case <-ctx.Done():
			return nil, errors.WithStack(ctx.Err())
		case <-ticker.C:
		}
	}
}

func sameBlock(left, right *TxReceipt) bool {
	if left.BlockHash == nil || right.BlockHash == nil {
		return *left.BlockNumber == *right.BlockNumber
	}
	return *left.BlockHash == *right.BlockHash
}
