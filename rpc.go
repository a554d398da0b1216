package xcb

import (
	"context"
	"encoding/json"
	"math/big"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// Strongly-typed version of the "web3_clientVersion" RPC method.
func Web3ClientVersion(ctx context.Context, trans Trans) (string, error) {
	var out string
	err := trans.Call(ctx, &out, "web3_clientVersion")
	return out, errors.Wrap(err, `error in "web3_clientVersion"`)
}

// Strongly-typed version of the "net_version" RPC method.
func NetVersion(ctx context.Context, trans Trans) (string, error) {
	var out string
	err := trans.Call(ctx, &out, "net_version")
	return out, errors.Wrap(err, `error in "net_version"`)
}

// Strongly-typed version of the "xcb_networkId" RPC method.
func XcbNetworkId(ctx context.Context, trans Trans) (uint64, error) {
	var out HexUint64
	err := trans.Call(ctx, &out, "xcb_networkId")
	return uint64(out), errors.Wrap(err, `error in "xcb_networkId"`)
}

// Strongly-typed version of the "xcb_syncing" RPC method.
func XcbSyncing(ctx context.Context, trans Trans) (SyncStatus, error) {
	var out SyncStatus
	err := trans.Call(ctx, &out, "xcb_syncing")
	return out, errors.Wrap(err, `error in "xcb_syncing"`)
}

// Strongly-typed version of the "xcb_coinbase" RPC method.
func XcbCoinbase(ctx context.Context, trans Trans) (Address, error) {
	var out Address
	err := trans.Call(ctx, &out, "xcb_coinbase")
	return out, errors.Wrap(err, `error in "xcb_coinbase"`)
}

// Strongly-typed version of the "xcb_accounts" RPC method.
func XcbAccounts(ctx context.Context, trans Trans) ([]Address, error) {
	var out []Address
	err := trans.Call(ctx, &out, "xcb_accounts")
	return out, errors.Wrap(err, `error in "xcb_accounts"`)
}

// Strongly-typed version of the "xcb_blockNumber" RPC method.
func XcbBlockNumber(ctx context.Context, trans Trans) (uint64, error) {
	var out HexUint64
	err := trans.Call(ctx, &out, "xcb_blockNumber")
	return uint64(out), errors.Wrap(err, `error in "xcb_blockNumber"`)
}

// Strongly-typed version of the "xcb_getBalance" RPC method.
func XcbGetBalance(ctx context.Context, trans Trans, addr Address, at BlockId) (*big.Int, error) {
	var out HexInt
	err := trans.Call(ctx, &out, "xcb_getBalance", addr, at)
	return (*big.Int)(&out), errors.Wrap(err, `error in "xcb_getBalance"`)
}

// Strongly-typed version of the "xcb_getTransactionCount" RPC method.
func XcbGetTransactionCount(ctx context.Context, trans Trans, addr Address, at BlockId) (uint64, error) {
	var out HexUint64
	err := trans.Call(ctx, &out, "xcb_getTransactionCount", addr, at)
	return uint64(out), errors.Wrap(err, `error in "xcb_getTransactionCount"`)
}

// Strongly-typed version of the "xcb_getCode" RPC method.
func XcbGetCode(ctx context.Context, trans Trans, addr Address, at BlockId) ([]byte, error) {
	var out HexBytes
	err := trans.Call(ctx, &out, "xcb_getCode", addr, at)
	return out, errors.Wrap(err, `error in "xcb_getCode"`)
}

// Strongly-typed version of the "xcb_getStorageAt" RPC method.
func XcbGetStorageAt(ctx context.Context, trans Trans, addr Address, slot Hash, at BlockId) (Hash, error) {
	var out Hash
	err := trans.Call(ctx, &out, "xcb_getStorageAt", addr, slot, at)
	return out, errors.Wrap(err, `error in "xcb_getStorageAt"`)
}

// Strongly-typed version of the "xcb_energyPrice" RPC method.
func XcbEnergyPrice(ctx context.Context, trans Trans) (*big.Int, error) {
	var out HexInt
	err := trans.Call(ctx, &out, "xcb_energyPrice")
	return (*big.Int)(&out), errors.Wrap(err, `error in "xcb_energyPrice"`)
}

/*
Strongly-typed version of the "xcb_estimateEnergy" RPC method.

Note that estimating energy is a somewhat slow operation; the remote node will
attempt to execute the transaction against the current block, running contract
code if required.
*/
func XcbEstimateEnergy(ctx context.Context, trans Trans, tx TxRequest) (*big.Int, error) {
	var out HexInt
	err := trans.Call(ctx, &out, "xcb_estimateEnergy", tx)
	return (*big.Int)(&out), errors.Wrap(err, `error in "xcb_estimateEnergy"`)
}

/*
Strongly-typed version of the "xcb_call" RPC method. Executes a read-only call
without creating a transaction. The caller must ABI-pack "TxRequest.Data" and
ABI-unpack the output.
*/
func XcbCall(ctx context.Context, trans Trans, tx TxRequest, at BlockId) ([]byte, error) {
	var out HexBytes
	err := trans.Call(ctx, &out, "xcb_call", tx, at)
	return out, errors.Wrap(err, `error in "xcb_call"`)
}

// Strongly-typed version of the "xcb_getBlockByHash" RPC method. Returns nil
// for unknown blocks.
func XcbGetBlockByHash(ctx context.Context, trans Trans, hash Hash) (*Block, error) {
	var out *Block
	err := trans.Call(ctx, &out, "xcb_getBlockByHash", hash, false)
	return out, errors.Wrap(err, `error in "xcb_getBlockByHash"`)
}

// Strongly-typed version of the "xcb_getBlockByNumber" RPC method. Returns nil
// for unknown blocks.
func XcbGetBlockByNumber(ctx context.Context, trans Trans, num BlockNumber) (*Block, error) {
	var out *Block
	err := trans.Call(ctx, &out, "xcb_getBlockByNumber", num, false)
	return out, errors.Wrap(err, `error in "xcb_getBlockByNumber"`)
}

/*
Variant of "XcbGetBlockByHash" with deduplication and caching. For any given
hash, the corresponding block is fetched no more than once, and cached forever.

Note: this is implemented only for block hash, not block number. The "hash ↔︎
block" association is unique and immutable, while the "blockNumber ↔︎ block"
association may change when switching between forks.
*/
func XcbGetBlockByHashCached(ctx context.Context, trans Trans, cache *sync.Map, hash Hash) (*Block, error) {
	val, _ := cache.LoadOrStore(hash, &blockCacheEntry{})
	entry := val.(*blockCacheEntry)

	entry.lock.Lock()
	defer entry.lock.Unlock()

	if entry.IsValid() {
		entry.touched = time.Now()
		return entry.block, nil
	}

	block, err := XcbGetBlockByHash(ctx, trans, hash)
	if err != nil || block == nil {
		return block, err
	}

	entry.block = block
	entry.touched = time.Now()
	return block, nil
}

type blockCacheEntry struct {
	lock    sync.Mutex
	block   *Block
	touched time.Time
}

func (self *blockCacheEntry) IsValid() bool {
	return !self.touched.IsZero()
}

// Strongly-typed version of the "xcb_getTransactionByHash" RPC method.
// Returns nil for unknown transactions.
func XcbGetTransactionByHash(ctx context.Context, trans Trans, hash Hash) (*Transaction, error) {
	var out *Transaction
	err := trans.Call(ctx, &out, "xcb_getTransactionByHash", hash)
	return out, errors.Wrap(err, `error in "xcb_getTransactionByHash"`)
}

// Strongly-typed version of the "xcb_getTransactionReceipt" RPC method.
// Returns nil while the transaction is not included in a block.
func XcbGetTransactionReceipt(ctx context.Context, trans Trans, hash Hash) (*TxReceipt, error) {
	var out *TxReceipt
	err := trans.Call(ctx, &out, "xcb_getTransactionReceipt", hash)
	return out, errors.Wrap(err, `error in "xcb_getTransactionReceipt"`)
}

// Strongly-typed version of the "xcb_sendRawTransaction" RPC method.
func XcbSendRawTransaction(ctx context.Context, trans Trans, raw []byte) (Hash, error) {
	var out Hash
	err := trans.Call(ctx, &out, "xcb_sendRawTransaction", HexBytes(raw))
	return out, errors.Wrap(err, `error in "xcb_sendRawTransaction"`)
}

/*
Strongly-typed version of the "xcb_sendTransaction" RPC method. The node signs
with one of its own accounts, named by "tx.From".
*/
func XcbSendTransaction(ctx context.Context, trans Trans, tx TxRequest) (Hash, error) {
	var out Hash
	err := trans.Call(ctx, &out, "xcb_sendTransaction", tx)
	return out, errors.Wrap(err, `error in "xcb_sendTransaction"`)
}

// Strongly-typed version of the "xcb_sign" RPC method, signing with a node
// account.
func XcbSign(ctx context.Context, trans Trans, addr Address, data []byte) (Signature, error) {
	var out Signature
	err := trans.Call(ctx, &out, "xcb_sign", addr, HexBytes(data))
	return out, errors.Wrap(err, `error in "xcb_sign"`)
}

// Strongly-typed version of the "xcb_getLogs" RPC method.
func XcbGetLogs(ctx context.Context, trans Trans, filter Filter) ([]Log, error) {
	var out []Log
	err := trans.Call(ctx, &out, "xcb_getLogs", filter)
	return out, errors.Wrap(err, `error in "xcb_getLogs"`)
}

// Strongly-typed version of the "xcb_newFilter" RPC method.
func XcbNewFilter(ctx context.Context, trans Trans, filter Filter) (*big.Int, error) {
	var out HexInt
	err := trans.Call(ctx, &out, "xcb_newFilter", filter)
	return (*big.Int)(&out), errors.Wrap(err, `error in "xcb_newFilter"`)
}

// Strongly-typed version of the "xcb_newBlockFilter" RPC method.
func XcbNewBlockFilter(ctx context.Context, trans Trans) (*big.Int, error) {
	var out HexInt
	err := trans.Call(ctx, &out, "xcb_newBlockFilter")
	return (*big.Int)(&out), errors.Wrap(err, `error in "xcb_newBlockFilter"`)
}

// Strongly-typed version of the "xcb_newPendingTransactionFilter" RPC method.
func XcbNewPendingTransactionFilter(ctx context.Context, trans Trans) (*big.Int, error) {
	var out HexInt
	err := trans.Call(ctx, &out, "xcb_newPendingTransactionFilter")
	return (*big.Int)(&out), errors.Wrap(err, `error in "xcb_newPendingTransactionFilter"`)
}

/*
Strongly-typed version of the "xcb_getFilterChanges" RPC method. Log filters
produce []Log, block and pending transaction filters produce []Hash; "out" must
point to the matching slice.
*/
func XcbGetFilterChanges(ctx context.Context, trans Trans, id *big.Int, out interface{}) error {
	err := trans.Call(ctx, out, "xcb_getFilterChanges", (*HexInt)(id))
	return errors.Wrap(err, `error in "xcb_getFilterChanges"`)
}

// Strongly-typed version of the "xcb_uninstallFilter" RPC method.
func XcbUninstallFilter(ctx context.Context, trans Trans, id *big.Int) (bool, error) {
	var out bool
	err := trans.Call(ctx, &out, "xcb_uninstallFilter", (*HexInt)(id))
	return out, errors.Wrap(err, `error in "xcb_uninstallFilter"`)
}

/*
Strongly-typed version of the "xcb_subscribe" RPC method. Blocks until the
subscription ends, sending raw notification payloads over the channel, which is
closed on return. The kind is "newHeads", "logs" or "newPendingTransactions";
extra params follow it.
*/
func XcbSubscribe(ctx context.Context, trans Trans, out chan []byte, kind string, params ...interface{}) error {
	err := trans.Subscribe(ctx, out, append([]interface{}{kind}, params...)...)
	return errors.Wrap(err, `error in "xcb_subscribe"`)
}

/*
Subscribes to future blocks, sending them over the provided channel. Returns an
error when the context is canceled, or when the connection is interrupted. Does
NOT automatically resubscribe.
*/
func SubscribeToBlocks(ctx context.Context, trans Trans, out chan<- Block) error {
	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		close(out)
	}()

	inputs := make(chan []byte, cap(out))
	errChan := gogo(func() error {
		return XcbSubscribe(ctx, trans, inputs, "newHeads")
	})

	for input := range inputs {
		var value Block
		err := json.Unmarshal(input, &value)
		if err != nil {
			return encodingErr("block", err)
		}
		select {
		case out <- value:
		case <-ctx.Done():
			return errors.WithStack(ctx.Err())
		}
	}
	return <-errChan
}

/*
Subscribes to logs matching the filter, sending them over the provided channel.
Same lifecycle rules as "SubscribeToBlocks".
*/
func SubscribeToLogs(ctx context.Context, trans Trans, filter Filter, out chan<- Log) error {
	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		close(out)
	}()

	inputs := make(chan []byte, cap(out))
	errChan := gogo(func() error {
		return XcbSubscribe(ctx, trans, inputs, "logs", filter)
	})

	for input := range inputs {
		var value Log
		err := json.Unmarshal(input, &value)
		if err != nil {
			return encodingErr("log", err)
		}
		select {
		case out <- value:
		case <-ctx.Done():
			return errors.WithStack(ctx.Err())
		}
	}
	return <-errChan
}

/*
Waits until the transaction has a receipt, re-checking on every new block.
Requires a transport with subscriptions. For polling with confirmations and
drop detection, use PendingTx.
*/
func WaitForTx(ctx context.Context, trans Trans, hash Hash) (*TxReceipt, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Subscribe first, so that we don't miss a block notification if it happens
	// between RPC calls.
	inputs := make(chan []byte, 1)
	errs := gogo(func() error {
		return XcbSubscribe(ctx, trans, inputs, "newHeads")
	})

retry:
	receipt, err := XcbGetTransactionReceipt(ctx, trans, hash)
	if err != nil {
		return nil, err
	}
	if receipt != nil && receipt.BlockNumber != nil {
		return receipt, nil
	}
	for range inputs {
		goto retry
	}
	return nil, <-errs
}
