package xcb

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/purelabio/xcb/xcbtest"
)

func testReceipt(block uint64, blockHash string) map[string]interface{} {
	return map[string]interface{}{
		"transactionHash":  testTxHash,
		"transactionIndex": "0x0",
		"blockNumber":      quantity(block),
		"blockHash":        blockHash,
		"status":           "0x1",
	}
}

const (
	testBlockHashA = "0x00000000000000000000000000000000000000000000000000000000000000aa"
	testBlockHashB = "0x00000000000000000000000000000000000000000000000000000000000000bb"
)

func handleKnownTx(server *xcbtest.Server) {
	server.HandleResult("xcb_getTransactionByHash", map[string]interface{}{"hash": testTxHash})
}

func TestPendingTxConfirmations(t *testing.T) {
	const (
		included = 100
		ahead    = 3
		interval = 50 * time.Millisecond
	)

	server, provider := newTestNode(t)
	handleKnownTx(server)
	server.HandleResult("xcb_getTransactionReceipt", testReceipt(included, testBlockHashA))

	var heads atomic.Uint64
	server.Handle("xcb_blockNumber", func([]json.RawMessage) (interface{}, error) {
		step := min(heads.Add(1)-1, ahead)
		return quantity(included + step), nil
	})

	pending := NewPendingTx(MustParseHash(testTxHash), provider).
		SetInterval(interval).
		SetConfirmations(ahead + 1)

	start := time.Now()
	receipt, err := pending.Wait(context.Background())
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Equal(t, HexUint64(included), *receipt.BlockNumber)
	assert.True(t, receipt.Succeeded())
	assert.Equal(t, PendingConfirmed, pending.State())
	assert.Less(t, elapsed, (ahead+1)*interval+100*time.Millisecond)
	assert.Equal(t, ahead+1, server.Calls("xcb_blockNumber"))
}

func TestPendingTxIncluded(t *testing.T) {
	server, provider := newTestNode(t)
	handleKnownTx(server)
	server.HandleResult("xcb_getTransactionReceipt", testReceipt(7, testBlockHashA))

	receipt, err := NewPendingTx(MustParseHash(testTxHash), provider).Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, MustParseHash(testTxHash), receipt.TransactionHash)
	assert.Equal(t, 0, server.Calls("xcb_blockNumber"))
}

func TestPendingTxWaitsForReceipt(t *testing.T) {
	server, provider := newTestNode(t)
	handleKnownTx(server)

	var polls atomic.Int32
	server.Handle("xcb_getTransactionReceipt", func([]json.RawMessage) (interface{}, error) {
		if polls.Add(1) < 3 {
			return nil, nil
		}
		return testReceipt(7, testBlockHashA), nil
	})

	receipt, err := NewPendingTx(MustParseHash(testTxHash), provider).Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, HexUint64(7), *receipt.BlockNumber)
	assert.Equal(t, 3, server.Calls("xcb_getTransactionReceipt"))
	assert.Equal(t, 1, server.Calls("xcb_getTransactionByHash"))
}

func TestPendingTxDropped(t *testing.T) {
	server, provider := newTestNode(t)
	server.HandleResult("xcb_getTransactionByHash", nil)

	pending := NewPendingTx(MustParseHash(testTxHash), provider).SetRetries(3)
	_, err := pending.Wait(context.Background())
	require.ErrorIs(t, err, ErrTxDropped)
	assert.Equal(t, PendingDropped, pending.State())
	assert.Equal(t, 3, server.Calls("xcb_getTransactionByHash"))
}

func TestPendingTxCanceled(t *testing.T) {
	server, provider := newTestNode(t)
	handleKnownTx(server)
	server.HandleResult("xcb_getTransactionReceipt", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	pending := NewPendingTx(MustParseHash(testTxHash), provider)
	_, err := pending.Wait(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, PendingGettingReceipt, pending.State())
}

func TestPendingTxReorg(t *testing.T) {
	server, provider := newTestNode(t)
	handleKnownTx(server)

	var receipts atomic.Int32
	server.Handle("xcb_getTransactionReceipt", func([]json.RawMessage) (interface{}, error) {
		if receipts.Add(1) == 1 {
			return testReceipt(11, testBlockHashA), nil
		}
		return testReceipt(12, testBlockHashB), nil
	})

	var heads atomic.Int32
	server.Handle("xcb_blockNumber", func([]json.RawMessage) (interface{}, error) {
		if heads.Add(1) == 1 {
			return quantity(12), nil
		}
		return quantity(14), nil
	})

	receipt, err := NewPendingTx(MustParseHash(testTxHash), provider).
		SetConfirmations(3).
		Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, HexUint64(12), *receipt.BlockNumber)
	assert.Equal(t, MustParseHash(testBlockHashB), *receipt.BlockHash)
}

func TestPendingTxRpcError(t *testing.T) {
	server, provider := newTestNode(t)
	server.HandleError("xcb_getTransactionByHash", -32000, "overloaded")

	_, err := NewPendingTx(MustParseHash(testTxHash), provider).Wait(context.Background())
	var rpcErr *RpcError
	require.ErrorAs(t, err, &rpcErr)
}

func TestNewPendingTxDefaults(t *testing.T) {
	_, provider := newTestNode(t)
	provider.Retries = 9

	pending := NewPendingTx(Hash{}, provider)
	assert.Equal(t, uint64(1), pending.Confirmations)
	assert.Equal(t, provider.Interval, pending.Interval)
	assert.Equal(t, 9, pending.Retries)
	assert.Equal(t, PendingInitial, pending.State())
	assert.Equal(t, "getting receipt", PendingGettingReceipt.String())

	client := NewSignerMiddleware(provider, testWallet(t, Mainnet))
	assert.Equal(t, 9, NewPendingTx(Hash{}, client).Retries)
}
