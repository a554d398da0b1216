package xcb

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mainnetRawTx = "0xf8ce030a82c3500196cb08095e7baea6a6c7c4c2dfeb977efac326af552d870a821123b8ab4baaafc44c4cc23a5ba831b9a89eb823bb965f62de3eeccdaac2a516b6ca4f7ab3e728f8b791d02bca9c5c3b8dd9bfa73c550dfcb63fef4400fa4d5aa5f132ba3932b99ceb8c9014640a77ad022ee6379f3299f060feab4e785650ec3878cb46748f8e15a5473c696cf95c5ede5225312800ba277941fcb9ac8063a9b6ed64fbc86c51dd5ae6cf1f01f7bcf533cf0b0cfc5dc3fdc5bc7eaa99366ada5e7127331b862586a46c12a85f9580"

const devinTxJson = `{
	"hash": "0x8b59298c5c748bf4e2bd84a00aae809f9b6d8c41a5571d47679b5a39041f56ec",
	"nonce": "0xd9c",
	"blockHash": "0x0000000000000000000000000000000000000000000000000000000000000001",
	"blockNumber": "0x4b1c0e",
	"transactionIndex": "0x0",
	"from": "ab660ef5114ad53a9fd106b72a260ba5b055a9aeca3c",
	"to": "ab258a97844448023d9cada0811bade35a7865985739",
	"value": "0x0",
	"energyPrice": "0x3b9aca00",
	"energy": "0xf4239",
	"input": "0xca725b7e0000000000000000000000000000000000000000000000000027f29a27e63800",
	"signature": "0xf7571bfb2b44b2f1e48c64f75430a22202f6592969655704218ce35f1aeb10bf7228d89871a24ff23ebe6bc66a75bbf0b831a4c57c3dc779005b62713cb0b70c960da8bc81a37f9551b632ce902df309ca4229d7dc4a4179b05800eede1766b8a0ab0d63032d7ba990197374ab786d832f008f3572f16fbefbb5a85f9eed54c77db3d4269b2c64e5d56a5174c19b35d292941d40505063351ce79852053062cdf8d74f3db2d5bebe7b3500",
	"network_id": "0x3"
}`

func TestSighashEmpty(t *testing.T) {
	to := MustParseAddress("cb08095e7baea6a6c7c4c2dfeb977efac326af552d87")
	hash, err := TxRequest{To: &to}.WithNetworkID(0).Sighash()
	require.NoError(t, err)
	assert.Equal(t, "0x0064d7a2aa08686b4f36a2188352ba162ff2b5bdce72335f4a0e25a6c5f47af7", hash.String())
}

func TestSighashWithoutNetworkID(t *testing.T) {
	to := rawAddress(t, "0000095e7baea6a6c7c4c2dfeb977efac326af552d87")
	hash, err := TxRequest{To: &to}.Sighash()
	require.NoError(t, err)
	assert.Equal(t, "0xec08902c56d6df8797a282763e4871a2b69dbb210b5390e7babbf1cebe59a23d", hash.String())
}

func TestDecodeSignedTx(t *testing.T) {
	raw := MustHexParse(mainnetRawTx)

	tx, sig, err := DecodeSignedTx(raw)
	require.NoError(t, err)

	assert.Equal(t, bigInt(3), tx.Nonce)
	assert.Equal(t, bigInt(10), tx.EnergyPrice)
	assert.Equal(t, bigInt(50000), tx.Energy)
	assert.Equal(t, bigInt(10), tx.Value)
	assert.Equal(t, HexBytes{0x11, 0x23}, tx.Data)
	assert.Equal(t, uint64(1), *tx.NetworkID)
	assert.Equal(t, "cb08095e7baea6a6c7c4c2dfeb977efac326af552d87", tx.To.String())
	assert.Equal(t, "cb8238748ee459bc0c1d86eab1d3f6d83bb433cdad9c", tx.From.String())

	hash, err := tx.SignedHash(sig)
	require.NoError(t, err)
	assert.Equal(t, "0x8b141d69ab3e18bf9775144ddc2e3ca55dfc3e8b5e67dfaea4401b4074da4041", hash.String())
	assert.Equal(t, Sha3(raw), hash)

	reencoded, err := tx.RlpSigned(sig)
	require.NoError(t, err)
	assert.Equal(t, raw, reencoded)
}

func TestDecodeSignedTxTampered(t *testing.T) {
	raw := MustHexParse(mainnetRawTx)
	// Value 10 -> 11.
	raw[31] = 0x0b

	_, _, err := DecodeSignedTx(raw)
	var sigErr SignatureError
	require.ErrorAs(t, err, &sigErr)
	assert.Equal(t, SigErrVerification, sigErr.Kind)
}

func TestDecodeSignedTxMalformed(t *testing.T) {
	_, _, err := DecodeSignedTx([]byte{0xc0})
	var encErr EncodingError
	require.ErrorAs(t, err, &encErr)

	_, _, err = DecodeSignedTx([]byte{0x01, 0x02})
	require.ErrorAs(t, err, &encErr)
}

func TestTransactionDevin(t *testing.T) {
	var tx Transaction
	require.NoError(t, json.Unmarshal([]byte(devinTxJson), &tx))
	assert.False(t, tx.IsPending())

	hash, err := tx.ComputeHash()
	require.NoError(t, err)
	assert.Equal(t, tx.Hash, hash, spew.Sdump(tx))

	from, err := tx.RecoverFrom()
	require.NoError(t, err)
	assert.Equal(t, tx.From, from)
	assert.Equal(t, "ab660ef5114ad53a9fd106b72a260ba5b055a9aeca3c", from.String())
}

func TestTransactionWithoutNetworkID(t *testing.T) {
	var tx Transaction
	require.NoError(t, json.Unmarshal([]byte(devinTxJson), &tx))
	tx.NetworkID = nil

	_, err := tx.RecoverFrom()
	require.Error(t, err)
}

func TestSignRecoverRoundTrip(t *testing.T) {
	wallet := testWallet(t, Devin)
	to := MustParseAddress("ab258a97844448023d9cada0811bade35a7865985739")

	tx := TxRequest{
		To:          &to,
		Nonce:       bigInt(0xd9c),
		EnergyPrice: bigInt(0x3b9aca00),
		Energy:      bigInt(0xf4239),
		Value:       bigInt(0),
		Data:        MustHexParse("0xca725b7e0000000000000000000000000000000000000000000000000027f29a27e63800"),
	}

	sig, err := wallet.SignTransaction(context.Background(), tx)
	require.NoError(t, err)

	raw, err := tx.WithNetworkID(Devin.ID()).RlpSigned(sig)
	require.NoError(t, err)

	decoded, decodedSig, err := DecodeSignedTx(raw)
	require.NoError(t, err)
	assert.Equal(t, sig, decodedSig)
	assert.Equal(t, wallet.Address(), *decoded.From)
	assert.Equal(t, Devin.ID(), *decoded.NetworkID)
}

func TestDecodeUnsignedTx(t *testing.T) {
	to := MustParseAddress("cb08095e7baea6a6c7c4c2dfeb977efac326af552d87")
	tx := Pay(to, bigInt(10)).WithNonce(3).WithEnergy(bigInt(21000)).WithEnergyPrice(bigInt(1))

	raw, err := tx.RlpUnsigned()
	require.NoError(t, err)
	decoded, err := DecodeUnsignedTx(raw)
	require.NoError(t, err)
	assert.Nil(t, decoded.NetworkID)
	assert.Equal(t, to, *decoded.To)
	assert.Equal(t, bigInt(10), decoded.Value)

	raw, err = tx.WithNetworkID(1).RlpUnsigned()
	require.NoError(t, err)
	decoded, err = DecodeUnsignedTx(raw)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), *decoded.NetworkID)

	decoded, err = DecodeUnsignedTx(MustHexParse(mainnetRawTx))
	require.NoError(t, err)
	assert.Equal(t, bigInt(3), decoded.Nonce)
	assert.Equal(t, uint64(1), *decoded.NetworkID)
}

func TestContractCreationSighash(t *testing.T) {
	tx := TxRequest{Data: HexBytes{0x60, 0x00}}.WithNetworkID(1)
	raw, err := tx.RlpUnsigned()
	require.NoError(t, err)

	decoded, err := DecodeUnsignedTx(raw)
	require.NoError(t, err)
	assert.Nil(t, decoded.To)
}

func TestTxRequestJson(t *testing.T) {
	to := MustParseAddress("cb08095e7baea6a6c7c4c2dfeb977efac326af552d87")
	tx := Pay(to, bigInt(255)).WithNetworkID(1)

	out, err := json.Marshal(tx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"to":"cb08095e7baea6a6c7c4c2dfeb977efac326af552d87","value":"0xff"}`, string(out))

	var decoded TxRequest
	require.NoError(t, json.Unmarshal([]byte(`{"to":"cb08095e7baea6a6c7c4c2dfeb977efac326af552d87","value":"0xff","networkId":"0x1"}`), &decoded))
	assert.Equal(t, tx, decoded)
}

func TestTxRequestClone(t *testing.T) {
	to := MustParseAddress("cb08095e7baea6a6c7c4c2dfeb977efac326af552d87")
	tx := Pay(to, bigInt(1)).WithNonce(1).WithData([]byte{1})

	clone := tx.Clone()
	clone.Value.SetInt64(2)
	clone.Nonce.SetInt64(2)
	clone.Data[0] = 2
	clone.To[0] = 0

	assert.Equal(t, bigInt(1), tx.Value)
	assert.Equal(t, bigInt(1), tx.Nonce)
	assert.Equal(t, HexBytes{1}, tx.Data)
	assert.Equal(t, to, *tx.To)
}
