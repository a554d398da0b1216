package xcb

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func bigInt(val int64) *big.Int { return big.NewInt(val) }

func bigHex(tb testing.TB, input string) *big.Int {
	out, ok := new(big.Int).SetString(input, 16)
	require.True(tb, ok, input)
	return out
}

// Private key 0x00...01.
func testKey(tb testing.TB) *PrivateKey {
	seed := make([]byte, PrivateKeyLength)
	seed[len(seed)-1] = 1
	key, err := PrivateKeyFromBytes(seed)
	require.NoError(tb, err)
	return key
}

const testWalletKey = "c6447b83ce0fd138cea4574d35edba162e57f8762935e6652d63805253860a254ef9199ad708423c2ab1434f5e5dac43014ddc5daa88c99b1f"

func testWallet(tb testing.TB, network Network) Wallet {
	wallet, err := WalletFromHex(testWalletKey, network.ID())
	require.NoError(tb, err)
	return wallet
}

func TestGogo(t *testing.T) {
	require.NoError(t, <-gogo(func() error { return nil }))
	require.EqualError(t, <-gogo(func() error { panic(ErrTxDropped) }), ErrTxDropped.Error())
}

func TestBytesToMutableString(t *testing.T) {
	require.Equal(t, "", bytesToMutableString(nil))
	require.Equal(t, "abc", bytesToMutableString([]byte("abc")))
	require.Nil(t, stringToBytesUnsafe(""))
	require.Equal(t, []byte("abc"), stringToBytesUnsafe("abc"))
}
