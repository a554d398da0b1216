package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/purelabio/xcb"
)

func TestSelectorDefs(t *testing.T) {
	defs, err := selectorDefs([]string{"addr(bytes32)", "supportsInterface(bytes4)"})
	require.NoError(t, err)

	assert.Equal(t, []selectorDef{
		{Name: "Addr", Signature: "addr(bytes32)", Selector: xcb.SelectorAddr},
		{Name: "SupportsInterface", Signature: "supportsInterface(bytes4)", Selector: xcb.SelectorSupportsInterface},
	}, defs)
}

func TestSelectorDefsInvalid(t *testing.T) {
	for _, input := range []string{"addr", "(bytes32)", "addr(bytes32, string)"} {
		_, err := selectorDefs([]string{input})
		assert.Error(t, err, input)
	}

	_, err := selectorDefs([]string{"addr(bytes32)", "addr(bytes32,uint256)"})
	assert.Error(t, err)
}
