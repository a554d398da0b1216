package xcb

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNetworkPrefixes(t *testing.T) {
	assert.Equal(t, "cb", Mainnet.Prefix())
	assert.Equal(t, "ab", Devin.Prefix())
	assert.Equal(t, "ce", Private(1337).Prefix())
	assert.True(t, Private(1337).IsPrivate())
	assert.False(t, Devin.IsPrivate())

	for prefix, want := range map[string]Network{"cb": Mainnet, "AB": Devin, "ce": Private(0)} {
		network, err := NetworkFromPrefix(prefix)
		require.NoError(t, err, prefix)
		assert.Equal(t, want, network, prefix)
	}
	_, err := NetworkFromPrefix("ff")
	assert.Error(t, err)
}

func TestParseNetwork(t *testing.T) {
	cases := map[string]Network{
		"mainnet":      Mainnet,
		"Devin":        Devin,
		"private-1337": Private(1337),
		"3":            Devin,
	}
	for input, want := range cases {
		network, err := ParseNetwork(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, network, input)
	}

	_, err := ParseNetwork("ropsten")
	assert.Error(t, err)
}

func TestNetworkText(t *testing.T) {
	out, err := json.Marshal(map[string]Network{"net": Private(7)})
	require.NoError(t, err)
	assert.Equal(t, `{"net":"private-7"}`, string(out))

	var decoded map[string]Network
	require.NoError(t, json.Unmarshal(out, &decoded))
	assert.Equal(t, Private(7), decoded["net"])
}

func TestBlockindexURLs(t *testing.T) {
	api, web, ok := Mainnet.BlockindexURLs()
	assert.True(t, ok)
	assert.NotEmpty(t, api)
	assert.NotEmpty(t, web)

	_, _, ok = Private(9).BlockindexURLs()
	assert.False(t, ok)

	assert.Equal(t, defaultPollInterval, Devin.AverageBlocktime())
}
