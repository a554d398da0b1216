package xcb

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/purelabio/xcb/xcbtest"
)

/*
Records raw transactions submitted to the node. The optional "reject" hook may
refuse a transaction with an RPC error.
*/
type rawTxLog struct {
	lock   sync.Mutex
	txs    []TxRequest
	reject func(TxRequest) error
}

func (self *rawTxLog) handle(server *xcbtest.Server) {
	server.Handle("xcb_sendRawTransaction", func(params []json.RawMessage) (interface{}, error) {
		var raw HexBytes
		xcbtest.Param(params, 0, &raw)

		tx, _, err := DecodeSignedTx(raw)
		if err != nil {
			return nil, &xcbtest.Error{Code: -32000, Message: err.Error()}
		}
		if self.reject != nil {
			err := self.reject(tx)
			if err != nil {
				return nil, err
			}
		}

		self.lock.Lock()
		self.txs = append(self.txs, tx)
		self.lock.Unlock()
		return Sha3(raw), nil
	})
}

func (self *rawTxLog) all() []TxRequest {
	self.lock.Lock()
	defer self.lock.Unlock()
	return append([]TxRequest(nil), self.txs...)
}

func (self *rawTxLog) nonces() []uint64 {
	self.lock.Lock()
	defer self.lock.Unlock()

	var out []uint64
	for _, tx := range self.txs {
		out = append(out, tx.Nonce.Uint64())
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func TestSignerMiddlewareSend(t *testing.T) {
	server, provider := newTestNode(t)
	handleEnergy(server)
	server.HandleResult("xcb_getTransactionCount", "0x5")

	var sent rawTxLog
	sent.handle(server)

	wallet := testWallet(t, Mainnet)
	client := NewSignerMiddleware(provider, wallet)
	assert.Equal(t, wallet.Address(), *client.DefaultSender())

	to := MustParseAddress("cb08095e7baea6a6c7c4c2dfeb977efac326af552d87")
	pending, err := client.SendTransaction(context.Background(), Pay(to, bigInt(10)), BlockId{})
	require.NoError(t, err)

	require.Len(t, sent.all(), 1)
	tx := sent.all()[0]
	assert.Equal(t, wallet.Address(), *tx.From)
	assert.Equal(t, uint64(1), *tx.NetworkID)
	assert.Equal(t, bigInt(5), tx.Nonce)
	assert.Equal(t, bigInt(21000), tx.Energy)
	assert.Equal(t, bigInt(1_000_000_000), tx.EnergyPrice)

	hash, err := tx.Sighash()
	require.NoError(t, err)
	assert.NotEqual(t, Hash{}, hash)
	assert.NotEqual(t, Hash{}, pending.Hash)
}

func TestSignerMiddlewareNoncePendingBlock(t *testing.T) {
	server, provider := newTestNode(t)
	handleEnergy(server)

	blocks := make(chan string, 1)
	server.Handle("xcb_getTransactionCount", func(params []json.RawMessage) (interface{}, error) {
		var block string
		xcbtest.Param(params, 1, &block)
		blocks <- block
		return "0x0", nil
	})

	client := NewSignerMiddleware(provider, testWallet(t, Mainnet))
	tx := Pay(Ican(interiorOne(), Mainnet), bigInt(1))
	require.NoError(t, client.FillTransaction(context.Background(), &tx, BlockId{}))
	assert.Equal(t, "pending", <-blocks)
	assert.Equal(t, bigInt(0), tx.Nonce)
}

func TestSignerMiddlewareForeignSender(t *testing.T) {
	server, provider := newTestNode(t)
	handleEnergy(server)
	server.HandleResult("xcb_getTransactionCount", "0x0")
	server.HandleResult("xcb_sendTransaction", testTxHash)

	client := NewSignerMiddleware(provider, testWallet(t, Mainnet))

	foreign := Ican(interiorOne(), Mainnet)
	tx := Pay(MustParseAddress("cb08095e7baea6a6c7c4c2dfeb977efac326af552d87"), bigInt(1)).WithFrom(foreign)
	pending, err := client.SendTransaction(context.Background(), tx, BlockId{})
	require.NoError(t, err)
	assert.Equal(t, MustParseHash(testTxHash), pending.Hash)
	assert.Equal(t, 1, server.Calls("xcb_sendTransaction"))
	assert.Equal(t, 0, server.Calls("xcb_sendRawTransaction"))
}

func TestSignerMiddlewareNetworkMismatch(t *testing.T) {
	_, provider := newTestNode(t)
	client := NewSignerMiddleware(provider, testWallet(t, Mainnet))

	tx := Pay(Ican(interiorOne(), Mainnet), bigInt(1)).WithNetworkID(Devin.ID())
	_, err := client.SignTransaction(context.Background(), tx, client.Address())
	require.ErrorIs(t, err, ErrDifferentNetworkID)

	var mwErr *MiddlewareError
	require.ErrorAs(t, err, &mwErr)
	assert.Equal(t, "signer", mwErr.Layer)
	assert.Nil(t, AsInner(err))

	sig, err := client.SignTransaction(context.Background(), tx.WithNetworkID(Mainnet.ID()), client.Address())
	require.NoError(t, err)
	hash, err := tx.WithNetworkID(Mainnet.ID()).Sighash()
	require.NoError(t, err)
	require.NoError(t, sig.VerifyAddress(hash, client.Address()))
}

func TestSignerMiddlewareSign(t *testing.T) {
	_, provider := newTestNode(t)
	client := NewSignerMiddleware(provider, testWallet(t, Mainnet))

	sig, err := client.Sign(context.Background(), []byte("hello"), client.Address())
	require.NoError(t, err)
	require.NoError(t, sig.VerifyMessage([]byte("hello"), client.Address()))
}

func TestSignerMiddlewareWithProviderNetwork(t *testing.T) {
	server, provider := newTestNode(t)
	server.HandleResult("xcb_networkId", "0x3")

	client, err := NewSignerMiddlewareWithProviderNetwork(context.Background(), provider, testWallet(t, Mainnet))
	require.NoError(t, err)
	assert.Equal(t, "ab298a525d6ecf2023552be6454c94983e70faa4393a", client.Address().String())
	assert.Equal(t, Devin.ID(), client.Signer.NetworkID())
}

func TestSignerMiddlewareCallSender(t *testing.T) {
	server, provider := newTestNode(t)

	froms := make(chan Address, 1)
	server.Handle("xcb_call", func(params []json.RawMessage) (interface{}, error) {
		var call struct {
			From Address `json:"from"`
		}
		xcbtest.Param(params, 0, &call)
		froms <- call.From
		return "0x01", nil
	})

	client := NewSignerMiddleware(provider, testWallet(t, Mainnet))
	out, err := client.Call(context.Background(), TxRequest{To: &CnsAddress}, BlockId{})
	require.NoError(t, err)
	assert.Equal(t, []byte{1}, out)
	assert.Equal(t, client.Address(), <-froms)
}

func TestNonceManagerConcurrent(t *testing.T) {
	server, provider := newTestNode(t)
	handleEnergy(server)
	server.HandleResult("xcb_getTransactionCount", "0x5")

	var sent rawTxLog
	sent.handle(server)

	client := NewClient(provider, testWallet(t, Mainnet), nil)
	to := MustParseAddress("cb08095e7baea6a6c7c4c2dfeb977efac326af552d87")

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := client.SendTransaction(context.Background(), Pay(to, bigInt(1)), BlockId{})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, []uint64{5, 6}, sent.nonces())
	assert.Equal(t, 1, server.Calls("xcb_getTransactionCount"))

	next, err := client.Initialize(context.Background(), *client.DefaultSender())
	require.NoError(t, err)
	assert.Equal(t, uint64(7), next)
}

func TestNonceManagerRetry(t *testing.T) {
	server, provider := newTestNode(t)
	handleEnergy(server)

	var rejected atomic.Bool
	server.Handle("xcb_getTransactionCount", func([]json.RawMessage) (interface{}, error) {
		if rejected.Load() {
			return "0x7", nil
		}
		return "0x5", nil
	})

	var sent rawTxLog
	sent.reject = func(tx TxRequest) error {
		if tx.Nonce.Uint64() < 7 {
			rejected.Store(true)
			return &xcbtest.Error{Code: -32000, Message: "nonce too low"}
		}
		return nil
	}
	sent.handle(server)

	client := NewClient(provider, testWallet(t, Mainnet), nil)
	to := MustParseAddress("cb08095e7baea6a6c7c4c2dfeb977efac326af552d87")

	_, err := client.SendTransaction(context.Background(), Pay(to, bigInt(1)), BlockId{})
	require.NoError(t, err)
	assert.Equal(t, []uint64{7}, sent.nonces())

	_, err = client.SendTransaction(context.Background(), Pay(to, bigInt(1)), BlockId{})
	require.NoError(t, err)
	assert.Equal(t, []uint64{7, 8}, sent.nonces())
}

func TestNonceManagerRetryExhausted(t *testing.T) {
	server, provider := newTestNode(t)
	handleEnergy(server)
	server.HandleResult("xcb_getTransactionCount", "0x5")

	var sent rawTxLog
	sent.reject = func(TxRequest) error {
		return &xcbtest.Error{Code: -32000, Message: "invalid nonce"}
	}
	sent.handle(server)

	client := NewClient(provider, testWallet(t, Mainnet), nil)
	_, err := client.SendTransaction(context.Background(), Pay(Ican(interiorOne(), Mainnet), bigInt(1)), BlockId{})

	require.True(t, IsNonceError(err))
	var rpcErr *RpcError
	require.ErrorAs(t, AsInner(err), &rpcErr)
	assert.Equal(t, "invalid nonce", rpcErr.Message)
	assert.Equal(t, 1, server.Calls("xcb_sendRawTransaction"))
}

func TestNonceManagerNoSender(t *testing.T) {
	_, provider := newTestNode(t)
	client := NewNonceManager(provider)

	_, err := client.SendTransaction(context.Background(), Pay(Ican(interiorOne(), Mainnet), bigInt(1)), BlockId{})
	var fillErr FillError
	require.ErrorAs(t, err, &fillErr)
	assert.Equal(t, "from", fillErr.Field)
}

func TestNonceManagerExplicitNonce(t *testing.T) {
	server, provider := newTestNode(t)
	handleEnergy(server)

	var sent rawTxLog
	sent.handle(server)

	client := NewClient(provider, testWallet(t, Mainnet), FixedOracle{Price: bigInt(3)})
	_, err := client.SendTransaction(context.Background(),
		Pay(Ican(interiorOne(), Mainnet), bigInt(1)).WithNonce(42), BlockId{})
	require.NoError(t, err)

	assert.Equal(t, []uint64{42}, sent.nonces())
	assert.Equal(t, bigInt(3), sent.all()[0].EnergyPrice)
	assert.Equal(t, 0, server.Calls("xcb_getTransactionCount"))
	assert.Equal(t, 0, server.Calls("xcb_energyPrice"))
}

func TestAsInner(t *testing.T) {
	base := &RpcError{Code: 1, Message: "boom"}
	err := innerErr("a", innerErr("b", base))
	assert.Equal(t, base, AsInner(err))
	assert.Equal(t, "RPC error 1: boom", err.Error())
	assert.Equal(t, base.Error(), err.Error())

	err = innerErr("a", layerErr("b", ErrTxDropped))
	assert.Nil(t, AsInner(err))
	assert.Equal(t, "b: "+ErrTxDropped.Error(), err.Error())

	assert.Equal(t, ErrTxDropped, AsInner(ErrTxDropped))
	assert.Nil(t, layerErr("a", nil))
	assert.Nil(t, innerErr("a", nil))
}
