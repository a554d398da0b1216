package xcb

/*
Contract call encoding, see https://docs.soliditylang.org/en/latest/abi-spec.html

Only the types needed for talking to registry-style contracts are supported:
bool, unsigned integers, addresses, fixed-size byte arrays, dynamic bytes and
strings. Addresses occupy the last 22 bytes of their 32-byte word.
*/

import (
	"encoding/binary"
	"math/big"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const abiWordLen = 256 / 8

/*
First 4 bytes of the legacy Keccak-256 of a canonical function signature such
as "addr(bytes32)". Prefixes the call data of every contract call.
*/
type Selector [4]byte

func FunctionSelector(signature string) Selector {
	var out Selector
	hash := Keccak256([]byte(signature))
	copy(out[:], hash[:])
	return out
}

func (self Selector) String() string { return bytesToMutableString(HexEncode(self[:])) }

// Broad category of contract types. Used internally for encoding and decoding.
type AbiKind byte

const (
	AbiKindBool AbiKind = iota + 1
	AbiKindUint
	AbiKindAddress
	AbiKindFixedBytes // bytesN
	AbiKindBytes
	AbiKindString
)

// Implements "fmt.Stringer".
func (self AbiKind) String() string {
	switch self {
	case AbiKindBool:
		return "AbiKindBool"
	case AbiKindUint:
		return "AbiKindUint"
	case AbiKindAddress:
		return "AbiKindAddress"
	case AbiKindFixedBytes:
		return "AbiKindFixedBytes"
	case AbiKindBytes:
		return "AbiKindBytes"
	case AbiKindString:
		return "AbiKindString"
	default:
		return ""
	}
}

type AbiType struct {
	Type string
	Kind AbiKind
	Len  int // only for AbiKindFixedBytes
}

// True if values are encoded inline rather than behind a heap offset.
func (self AbiType) IsStaticallySized() bool {
	return self.Kind != AbiKindBytes && self.Kind != AbiKindString
}

var (
	abiUintReg      = regexp.MustCompile(`^uint(\d*)$`)
	abiByteArrayReg = regexp.MustCompile(`^bytes(\d+)$`)
)

// Parses a type name such as "bytes32" or "uint256".
func ParseAbiType(typeName string) (AbiType, error) {
	switch {
	case typeName == "bool":
		return AbiType{Type: typeName, Kind: AbiKindBool}, nil

	case typeName == "address":
		return AbiType{Type: typeName, Kind: AbiKindAddress}, nil

	case typeName == "bytes":
		return AbiType{Type: typeName, Kind: AbiKindBytes}, nil

	case typeName == "string":
		return AbiType{Type: typeName, Kind: AbiKindString}, nil

	case abiByteArrayReg.MatchString(typeName):
		match := abiByteArrayReg.FindStringSubmatch(typeName)
		length, err := strconv.ParseUint(match[1], 10, 8)
		if err != nil || length == 0 || length > abiWordLen {
			return AbiType{}, errors.Errorf(`failed to parse %q as a contract type`, typeName)
		}
		return AbiType{Type: typeName, Kind: AbiKindFixedBytes, Len: int(length)}, nil

	case abiUintReg.MatchString(typeName):
		return AbiType{Type: typeName, Kind: AbiKindUint}, nil

	default:
		return AbiType{}, errors.Errorf(`failed to parse %q as a contract type`, typeName)
	}
}

// Splits "name(type0,type1)" into parameter types.
func parseAbiSignature(signature string) ([]AbiType, error) {
	open := strings.IndexByte(signature, '(')
	if open <= 0 || !strings.HasSuffix(signature, ")") {
		return nil, errors.Errorf(`malformed function signature %q`, signature)
	}

	inner := signature[open+1 : len(signature)-1]
	if inner == "" {
		return nil, nil
	}

	var out []AbiType
	for _, name := range strings.Split(inner, ",") {
		atype, err := ParseAbiType(name)
		if err != nil {
			return nil, errors.Wrapf(err, `malformed function signature %q`, signature)
		}
		out = append(out, atype)
	}
	return out, nil
}

/*
Encodes call data for the given function signature: the selector followed by
the encoded arguments. Accepted Go types per contract type:

	bool          bool
	uint*         uint64, *big.Int
	address       Address
	bytesN        Word, Hash, Selector, []byte of length N
	bytes         []byte, HexBytes
	string        string
*/
func AbiEncodeCall(signature string, args ...interface{}) ([]byte, error) {
	params, err := parseAbiSignature(signature)
	if err != nil {
		return nil, err
	}
	selector := FunctionSelector(signature)
	return abiAppendTuple(selector[:], params, args)
}

func abiAppendTuple(out []byte, params []AbiType, args []interface{}) ([]byte, error) {
	if len(params) != len(args) {
		return out, errors.Errorf(`arity mismatch: expected %v inputs, got %v`, len(params), len(args))
	}

	heapOffset := len(params) * abiWordLen
	var heap []byte

	for i, param := range params {
		if param.IsStaticallySized() {
			var err error
			out, err = abiAppend(out, param, args[i])
			if err != nil {
				return out, errors.Wrapf(err, `failed to encode param %v of type %q`, i, param.Type)
			}
			continue
		}

		start := len(heap)
		var err error
		heap, err = abiAppend(heap, param, args[i])
		if err != nil {
			return out, errors.Wrapf(err, `failed to encode param %v of type %q`, i, param.Type)
		}
		out = abiAppendUint64(out, uint64(heapOffset))
		heapOffset += len(heap) - start
	}

	return append(out, heap...), nil
}

func abiAppend(out []byte, atype AbiType, input interface{}) ([]byte, error) {
	switch atype.Kind {
	case AbiKindBool:
		if val, ok := input.(bool); ok {
			if val {
				return append(out, trueWord[:]...), nil
			}
			return append(out, falseWord[:]...), nil
		}

	case AbiKindUint:
		switch val := input.(type) {
		case uint64:
			return abiAppendUint64(out, val), nil
		case *big.Int:
			return abiAppendBigInt(out, val)
		}

	case AbiKindAddress:
		if val, ok := input.(Address); ok {
			return appendLeftPadded(out, val[:]), nil
		}

	case AbiKindFixedBytes:
		var buf []byte
		switch val := input.(type) {
		case Word:
			buf = val[:]
		case Hash:
			buf = val[:]
		case Selector:
			buf = val[:]
		case []byte:
			buf = val
		}
		if buf != nil {
			if len(buf) != atype.Len {
				return out, errors.Errorf(`expected %v bytes for %q, got %v`, atype.Len, atype.Type, len(buf))
			}
			return appendRightPadded(out, buf), nil
		}

	case AbiKindBytes, AbiKindString:
		var buf []byte
		switch val := input.(type) {
		case string:
			buf = stringToBytesUnsafe(val)
		case []byte:
			buf = val
		case HexBytes:
			buf = val
		default:
			return out, typeMismatch(atype.Type, input)
		}
		out = abiAppendUint64(out, uint64(len(buf)))
		return appendRightPadded(out, buf), nil
	}

	return out, typeMismatch(atype.Type, input)
}

func typeMismatch(expected string, actual interface{}) error {
	return errors.Errorf(`type mismatch: contract type %q, Go type %T`, expected, actual)
}

func lenMismatch(expected, actual int) error {
	return errors.Errorf(`length mismatch: expected at least %v bytes, got %v`, expected, actual)
}

// Decodes a single static "address" return value.
func AbiDecodeAddress(input []byte) (Address, error) {
	if len(input) < abiWordLen {
		return Address{}, lenMismatch(abiWordLen, len(input))
	}
	return BytesToAddress(input[abiWordLen-AddressLength : abiWordLen]), nil
}

// Decodes a single static "bool" return value.
func AbiDecodeBool(input []byte) (bool, error) {
	if len(input) < abiWordLen {
		return false, lenMismatch(abiWordLen, len(input))
	}
	for i, char := range input[:abiWordLen-1] {
		if char != 0 {
			return false, errors.Errorf("malformed bool input: byte %#02x at index %v", char, i)
		}
	}
	switch char := input[abiWordLen-1]; char {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, errors.Errorf("malformed bool input: byte %#02x in last position", char)
	}
}

// Decodes a single static "uint256" return value.
func AbiDecodeUint(input []byte) (*big.Int, error) {
	if len(input) < abiWordLen {
		return nil, lenMismatch(abiWordLen, len(input))
	}
	return new(big.Int).SetBytes(input[:abiWordLen]), nil
}

// Decodes a single dynamic "bytes" return value.
func AbiDecodeBytes(input []byte) ([]byte, error) {
	if len(input) < abiWordLen {
		return nil, lenMismatch(abiWordLen, len(input))
	}
	offset, err := abiReadLen(input[:abiWordLen])
	if err != nil {
		return nil, err
	}
	if len(input) < offset+abiWordLen {
		return nil, lenMismatch(offset+abiWordLen, len(input))
	}
	length, err := abiReadLen(input[offset : offset+abiWordLen])
	if err != nil {
		return nil, err
	}
	start := offset + abiWordLen
	if len(input) < start+length {
		return nil, lenMismatch(start+length, len(input))
	}
	return input[start : start+length], nil
}

// Decodes a single dynamic "string" return value.
func AbiDecodeString(input []byte) (string, error) {
	out, err := AbiDecodeBytes(input)
	return string(out), err
}

// Reads an offset or length word, rejecting values that can't be valid.
func abiReadLen(word []byte) (int, error) {
	for _, char := range word[:abiWordLen-8] {
		if char != 0 {
			return 0, errors.New(`length or offset overflows uint64`)
		}
	}
	num := binary.BigEndian.Uint64(word[abiWordLen-8:])
	if num > 1<<31 {
		return 0, errors.Errorf(`length or offset %v is too large`, num)
	}
	return int(num), nil
}

func abiPaddedLen(length int) int {
	if length <= 0 {
		return length
	}
	return (length + abiWordLen - 1) / abiWordLen * abiWordLen
}

func abiPaddingDelta(length int) int {
	if length <= 0 {
		return 0
	}
	return abiPaddedLen(length) - length
}

func appendLeftPadded(out []byte, buf []byte) []byte {
	for delta := abiPaddingDelta(len(buf)); delta > 0; delta-- {
		out = append(out, 0)
	}
	return append(out, buf...)
}

func appendRightPadded(out []byte, buf []byte) []byte {
	out = append(out, buf...)
	for delta := abiPaddingDelta(len(buf)); delta > 0; delta-- {
		out = append(out, 0)
	}
	return out
}

func abiAppendUint64(out []byte, num uint64) []byte {
	var word Word
	binary.BigEndian.PutUint64(word[abiWordLen-8:], num)
	return append(out, word[:]...)
}

func abiAppendBigInt(out []byte, num *big.Int) ([]byte, error) {
	if num == nil || num.Sign() < 0 || num.BitLen() > 256 {
		return out, errors.Errorf("%v doesn't fit into uint256", num)
	}
	var word Word
	num.FillBytes(word[:])
	return append(out, word[:]...), nil
}

var (
	trueWord = func() Word {
		var out Word
		out[len(out)-1] = 1
		return out
	}()
	falseWord Word
)
