package xcb

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSha3(t *testing.T) {
	assert.Equal(t,
		"0xa7ffc6f8bf1ed76651c14756a061d662f580ff4de43b49fa82d80a4b80f8434a",
		Sha3().String())
	assert.Equal(t, Sha3([]byte("hello world")), Sha3([]byte("hello"), []byte(" "), []byte("world")))
}

func TestKeccak256(t *testing.T) {
	assert.Equal(t,
		"0xc5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470",
		Keccak256().String())
}

func TestHashMessage(t *testing.T) {
	assert.Equal(t,
		"0x1b73999586e902d53f5282d51f9aec46237f46a6ed4e9dbba2fb50cf9a87596d",
		HashMessage([]byte("hello")).String())
	assert.Equal(t,
		Sha3([]byte("\x19Core Signed Message:\n5hello")),
		HashMessage([]byte("hello")))
}
