package xcb

import (
	"encoding/json"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func interiorOne() [20]byte {
	var out [20]byte
	out[19] = 1
	return out
}

func TestIcan(t *testing.T) {
	cases := []struct {
		network Network
		want    string
	}{
		{Mainnet, "cb270000000000000000000000000000000000000001"},
		{Devin, "ab450000000000000000000000000000000000000001"},
		{Private(7), "ce180000000000000000000000000000000000000001"},
	}

	for _, tc := range cases {
		addr := Ican(interiorOne(), tc.network)
		assert.Equal(t, tc.want, addr.String(), tc.network.String())
		assert.True(t, addr.ChecksumValid())

		parsed, err := ParseAddress(tc.want)
		require.NoError(t, err)
		assert.Equal(t, addr, parsed)
		assert.Equal(t, interiorOne(), parsed.Interior())
	}
}

func TestParseAddressErrors(t *testing.T) {
	cases := []struct {
		input string
		kind  AddressErrorKind
	}{
		{"cb2700000000000000000000000000000000000000000", AddressErrLength},
		{"cb270000000000000000000000000000000000000001ff", AddressErrLength},
		{"cb2700000000000000000000000000000000000000zz", AddressErrHex},
		{"dd270000000000000000000000000000000000000001", AddressErrPrefix},
		{"cb270000000000000000000000000000000000000002", AddressErrChecksum},
		{"cb280000000000000000000000000000000000000001", AddressErrChecksum},
	}

	for _, tc := range cases {
		_, err := ParseAddress(tc.input)
		var addrErr AddressError
		require.ErrorAs(t, err, &addrErr, tc.input)
		assert.Equal(t, tc.kind, addrErr.Kind, tc.input)
	}
}

func TestParseAddressPrefixed(t *testing.T) {
	addr, err := ParseAddress("0xcb270000000000000000000000000000000000000001")
	require.NoError(t, err)
	assert.Equal(t, Ican(interiorOne(), Mainnet), addr)
}

func TestAddressNetwork(t *testing.T) {
	addr := Ican(interiorOne(), Devin)

	network, err := addr.Network()
	require.NoError(t, err)
	assert.Equal(t, Devin, network)
	assert.True(t, addr.OnNetwork(Devin))
	assert.False(t, addr.OnNetwork(Mainnet))

	moved := addr.ToNetwork(Mainnet)
	assert.Equal(t, "cb270000000000000000000000000000000000000001", moved.String())
	assert.Equal(t, addr.Interior(), moved.Interior())
}

func TestAddressEncoding(t *testing.T) {
	addr := MustParseAddress("cb08095e7baea6a6c7c4c2dfeb977efac326af552d87")

	out, err := json.Marshal(addr)
	require.NoError(t, err)
	assert.Equal(t, `"cb08095e7baea6a6c7c4c2dfeb977efac326af552d87"`, string(out))

	var decoded Address
	require.NoError(t, json.Unmarshal([]byte(`"0xcb08095e7baea6a6c7c4c2dfeb977efac326af552d87"`), &decoded))
	assert.Equal(t, addr, decoded, spew.Sdump(decoded))

	out, err = json.Marshal(Address{})
	require.NoError(t, err)
	assert.Equal(t, `null`, string(out))

	text, err := Address{}.MarshalText()
	require.NoError(t, err)
	assert.Empty(t, text)

	val, err := Address{}.Value()
	require.NoError(t, err)
	assert.Nil(t, val)

	var scanned Address
	require.NoError(t, scanned.Scan("cb08095e7baea6a6c7c4c2dfeb977efac326af552d87"))
	assert.Equal(t, addr, scanned)
}

// Unprefixed addresses for derivation vectors.
func rawAddress(t testing.TB, input string) Address {
	t.Helper()
	out, err := HexToAddress(input)
	require.NoError(t, err)
	return out
}

func TestBytesToAddress(t *testing.T) {
	assert.Equal(t, "0000000000000000000000000000000000000000beef", BytesToAddress([]byte{0xbe, 0xef}).String())
	assert.Equal(t, "cb270000000000000000000000000000000000000001",
		rawAddress(t, "0x00000000cb270000000000000000000000000000000000000001").String())

	_, err := HexToAddress("0xcb27zz")
	require.Error(t, err)
	var addrErr AddressError
	require.ErrorAs(t, err, &addrErr)
	assert.Equal(t, AddressErrHex, addrErr.Kind)

	_, err = HexToAddress("cb2")
	require.Error(t, err)
}

func TestAddressWord(t *testing.T) {
	addr := Ican(interiorOne(), Mainnet)
	word := addr.Word()
	assert.Equal(t, ZeroWord[:10], word[:10])
	assert.Equal(t, addr[:], word[10:])
}

func TestPubkeyToAddress(t *testing.T) {
	assert.Equal(t, "cb58e5dd06163a480c22d540ec763325a0b5860fb56c",
		PubkeyToAddress(testKey(t).Public(), Mainnet).String())

	wallet := testWallet(t, Mainnet)
	assert.Equal(t, "cb118a525d6ecf2023552be6454c94983e70faa4393a", wallet.Address().String())
	assert.Equal(t, "ab298a525d6ecf2023552be6454c94983e70faa4393a",
		wallet.PublicKey().Address(Devin).String())
}

func TestCreateAddress(t *testing.T) {
	sender := rawAddress(t, "00006ac7ea33f8831ea9dcc53393aaa88b25a785dbf0")

	want := []string{
		"cb7060435dcdcd1fde7fe4238204365e486a1c345e03",
		"cb45936ded405892dc4f98cc5e04805d03c200c706a5",
		"cb38a7d7c76ecab54e75a0d6a06faf3b441a304a9c64",
		"cb64355702d8b1f36617d3554a5fad1187a74934d42d",
	}
	for nonce, addr := range want {
		assert.Equal(t, addr, CreateAddress(sender, uint64(nonce), Mainnet).String(), nonce)
	}
}

func TestCreate2Address(t *testing.T) {
	cases := []struct {
		sender string
		salt   string
		code   string
		want   string
	}{
		{
			sender: "00000000000000000000000000000000000000000000",
			salt:   "0x0000000000000000000000000000000000000000000000000000000000000000",
			code:   "0x00",
			want:   "cb52a55032de3186cea55fdef3fdb0dbd45b18bba964",
		},
		{
			sender: "000000000000000000000000000000000000deadbeef",
			salt:   "0x00000000000000000000000000000000000000000000000000000000cafebabe",
			code:   "0xdeadbeef",
			want:   "cb43d3c6aee116a1f8f82a0a4f2ea2a02059cafe6789",
		},
		{
			sender: "00000000000000000000000000000000000000000000",
			salt:   "0x0000000000000000000000000000000000000000000000000000000000000000",
			code:   "",
			want:   "cb3680e5927ec9af1efc619ee6d4198e97c91ab72a96",
		},
	}

	for _, tc := range cases {
		sender := rawAddress(t, tc.sender)
		salt := MustParseWord(tc.salt)
		code := MustHexParse(tc.code)

		got := Create2Address(sender, salt, code, Mainnet)
		assert.Equal(t, tc.want, got.String(), spew.Sdump(tc))
		assert.Equal(t, got, Create2AddressFromHash(sender, salt, Sha3(code), Mainnet))
	}
}
