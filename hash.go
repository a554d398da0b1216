package xcb

import (
	"strconv"

	"golang.org/x/crypto/sha3"
)

// Prepended to messages before hashing, so that signed messages can never be
// mistaken for signed transactions.
const messagePrefix = "\x19Core Signed Message:\n"

// SHA3-256 (FIPS 202) of the concatenated inputs. Used for addresses,
// transaction hashes and signing digests.
func Sha3(input ...[]byte) Hash {
	hasher := sha3.New256()
	for _, chunk := range input {
		hasher.Write(chunk)
	}
	var out Hash
	hasher.Sum(out[:0])
	return out
}

// Legacy Keccak256, which predates SHA3 standardization. Used only for ABI
// function selectors.
func Keccak256(input ...[]byte) Hash {
	hasher := sha3.NewLegacyKeccak256()
	for _, chunk := range input {
		hasher.Write(chunk)
	}
	var out Hash
	hasher.Sum(out[:0])
	return out
}

/*
Digest signed by "Signer.SignMessage": SHA3-256 over the message prefix, the
decimal length of the message, and the message itself.
*/
func HashMessage(msg []byte) Hash {
	return Sha3([]byte(messagePrefix), []byte(strconv.Itoa(len(msg))), msg)
}
