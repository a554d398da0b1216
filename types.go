package xcb

import (
	"encoding/json"
	"math/big"
	"strconv"

	"github.com/pkg/errors"
)

var null = []byte{'n', 'u', 'l', 'l'}

// Version of "[]byte" that uses "0x"-prefixed hex encoding and decoding.
type HexBytes []byte

/*
Decodes the provided string. Zero-length input is ok. Otherwise, it must be
prefixed with "0x".
*/
func ParseHexBytes(input string) (HexBytes, error) {
	var out HexBytes
	err := out.UnmarshalText(stringToBytesUnsafe(input))
	return out, err
}

// Version of "ParseHexBytes" that panics on error. Convenient for
// initializing global variables.
func MustParseHexBytes(input string) HexBytes {
	out, err := ParseHexBytes(input)
	if err != nil {
		panic(err)
	}
	return out
}

/*
Implements "encoding.Marshaler". Uses hex encoding prefixed with "0x".
*/
func (self HexBytes) MarshalText() ([]byte, error) {
	return HexEncode([]byte(self)), nil
}

/*
Implements "encoding.Unmarshaler". Empty input is ok. Otherwise, it must be
prefixed with "0x".
*/
func (self *HexBytes) UnmarshalText(input []byte) error {
	out, err := HexDecode(input)
	if err != nil {
		return err
	}
	*self = HexBytes(out)
	return nil
}

/*
Implements "json.Marshaler". A zero-length value encodes as "null". Otherwise,
it encodes as a hex string, prefixed with "0x".
*/
func (self HexBytes) MarshalJSON() ([]byte, error) {
	if len(self) == 0 {
		return null, nil
	}
	return hexEncodeQuoted(self), nil
}

func (self HexBytes) String() string {
	return bytesToMutableString(HexEncode([]byte(self)))
}

// Version of `big.Int` that encodes/decodes in base 16 with the "0x" prefix.
type HexInt big.Int

// Shortcut for converting quantities into their wire form. Nil stays nil.
func ToHexInt(val *big.Int) *HexInt {
	return (*HexInt)(val)
}

// Inverse of "ToHexInt". Nil stays nil.
func (self *HexInt) Big() *big.Int {
	return (*big.Int)(self)
}

/*
Implements "encoding.Marshaler". Uses hex encoding prefixed with "0x".
*/
func (self *HexInt) MarshalText() ([]byte, error) {
	out := make([]byte, 0, 16)
	out = append(out, '0', 'x')
	return (*big.Int)(self).Append(out, 16), nil
}

/*
Implements "encoding.Unmarshaler". The input must be in base 16, prefixed with
"0x".
*/
func (self *HexInt) UnmarshalText(input []byte) error {
	input, err := drop0x(input)
	if err != nil {
		return err
	}

	_, ok := (*big.Int)(self).SetString(bytesToMutableString(input), 16)
	if !ok {
		return encodingErr("quantity", errors.Errorf("%q is not a hex integer", input))
	}
	return nil
}

func (self *HexInt) String() string {
	bytes, _ := self.MarshalText()
	return bytesToMutableString(bytes)
}

// Version of `uint64` that encodes/decodes in base 16 with the "0x" prefix.
type HexUint64 uint64

// Shortcut for optional quantities.
func ToHexUint64(val uint64) *HexUint64 {
	out := HexUint64(val)
	return &out
}

/*
Implements "encoding.Marshaler". Uses hex encoding prefixed with "0x".
*/
func (self HexUint64) MarshalText() ([]byte, error) {
	out := make([]byte, 0, 16)
	out = append(out, '0', 'x')
	return strconv.AppendUint(out, uint64(self), 16), nil
}

/*
Implements "encoding.Unmarshaler". The input must be in base 16, prefixed with
"0x".
*/
func (self *HexUint64) UnmarshalText(input []byte) error {
	input, err := drop0x(input)
	if err != nil {
		return err
	}
	out, err := strconv.ParseUint(bytesToMutableString(input), 16, 64)
	if err != nil {
		return encodingErr("quantity", err)
	}
	*self = HexUint64(out)
	return nil
}

func (self HexUint64) String() string {
	bytes, _ := self.MarshalText()
	return bytesToMutableString(bytes)
}

/*
32 bytes of arbitrary content: ABI words, storage slots, log topics.

Note that Hash has exactly the same structure, but a slightly different
interpretation. A Word is not assumed to be a hash.

Uses the 0x-prefixed hex notation for encoding and decoding. An empty Word{}
will text-encode as "" and JSON-encode as `null`.
*/
type Word [32]byte

/*
Decodes the provided string. Zero-length input is ok. Otherwise, it must be
prefixed with "0x".
*/
func ParseWord(input string) (Word, error) {
	var out Word
	err := out.UnmarshalText(stringToBytesUnsafe(input))
	return out, err
}

// Version of "ParseWord" that panics on error.
func MustParseWord(input string) Word {
	out, err := ParseWord(input)
	if err != nil {
		panic(err)
	}
	return out
}

/*
Implements "encoding.Marshaler". A zero-initialized value encodes as "",
otherwise uses hex encoding prefixed with "0x".
*/
func (self Word) MarshalText() ([]byte, error) {
	if self == ZeroWord {
		return nil, nil
	}
	return HexEncode(self[:]), nil
}

/*
Implements "encoding.Unmarshaler". Empty input is ok. Otherwise, it must be
prefixed with "0x".
*/
func (self *Word) UnmarshalText(input []byte) error {
	if len(input) == 0 {
		*self = Word{}
		return nil
	}
	return HexDecodeTo(self[:], input)
}

/*
Implements "json.Marshaler". A zero-initialized value encodes as "null".
Otherwise, it encodes as a hex string, prefixed with "0x".
*/
func (self Word) MarshalJSON() ([]byte, error) {
	if self == ZeroWord {
		return null, nil
	}
	return hexEncodeQuoted(self[:]), nil
}

/*
Implements "fmt.Stringer". Unlike "MarshalText" and "MarshalJSON", doesn't have
special rules for zero-initialized values.
*/
func (self Word) String() string {
	return bytesToMutableString(HexEncode(self[:]))
}

/*
Usually represents a block or transaction hash, or a signing digest. Shares
structure and encoding rules with Word.
*/
type Hash [32]byte

/*
Decodes the provided string. Zero-length input is ok. Otherwise, it must be
prefixed with "0x".
*/
func ParseHash(input string) (Hash, error) {
	hash, err := ParseWord(input)
	return Hash(hash), err
}

// Version of "ParseHash" that panics on error.
func MustParseHash(input string) Hash { return Hash(MustParseWord(input)) }

func (self Hash) MarshalText() ([]byte, error) { return Word(self).MarshalText() }

func (self *Hash) UnmarshalText(input []byte) error { return (*Word)(self).UnmarshalText(input) }

func (self Hash) MarshalJSON() ([]byte, error) { return Word(self).MarshalJSON() }

func (self Hash) String() string { return Word(self).String() }

// Logs bloom filter of blocks and receipts.
type Bloom [256]byte

func (self Bloom) MarshalText() ([]byte, error) {
	if self == ZeroBloom {
		return nil, nil
	}
	return HexEncode(self[:]), nil
}

func (self *Bloom) UnmarshalText(input []byte) error {
	if len(input) == 0 {
		*self = ZeroBloom
		return nil
	}
	return HexDecodeTo(self[:], input)
}

func (self Bloom) MarshalJSON() ([]byte, error) {
	if self == ZeroBloom {
		return null, nil
	}
	return hexEncodeQuoted(self[:]), nil
}

func (self Bloom) String() string {
	return bytesToMutableString(HexEncode(self[:]))
}

type either struct {
	val []byte
	err error
}

// https://www.jsonrpc.org/specification#request_object
type rpcRequest struct {
	Jsonrpc string        `json:"jsonrpc"`
	Id      string        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

// Notification is a variant of rpcRequest without an ID, pushed by the node
// for live subscriptions.
type rpcNotification struct {
	Jsonrpc string              `json:"jsonrpc"`
	Method  string              `json:"method"`
	Params  rpcNotificationBody `json:"params"`
}

type rpcNotificationBody struct {
	Subscription string          `json:"subscription"` // subscription ID
	Result       json.RawMessage `json:"result"`
}

// https://www.jsonrpc.org/specification#response_object
type rpcResponse struct {
	Jsonrpc string          `json:"jsonrpc"`
	Id      json.RawMessage `json:"id"`
	Result  interface{}     `json:"result"` // assign `*someType` to decode as that type
	Error   *RpcError       `json:"error"`
}

/*
Represents an error reported by the node over JSON RPC. See
https://www.jsonrpc.org/specification#error_object for details.
*/
type RpcError struct {
	Code    int64           `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Implements "error". Includes the RPC error details if possible.
func (self RpcError) Error() string {
	str := "RPC error " + strconv.FormatInt(self.Code, 10) + ": " + self.Message
	if len(self.Data) > 0 {
		str += " Additional details: " + string(self.Data)
	}
	return str
}

/*
Block selector for state queries: either a tag such as "latest" or a concrete
number. Construct with "BlockAt" or use one of the predefined tags. The zero
value is block 0.
*/
type BlockNumber struct {
	tag string
	num uint64
}

var (
	BlockLatest    = BlockNumber{tag: BlockNumberLatest}
	BlockPending   = BlockNumber{tag: BlockNumberPending}
	BlockEarliest  = BlockNumber{tag: BlockNumberEarliest}
	BlockFinalized = BlockNumber{tag: BlockNumberFinalized}
	BlockSafe      = BlockNumber{tag: BlockNumberSafe}
)

func BlockAt(num uint64) BlockNumber { return BlockNumber{num: num} }

// Returns the concrete number, if any.
func (self BlockNumber) Number() (uint64, bool) {
	return self.num, self.tag == ""
}

func (self BlockNumber) MarshalText() ([]byte, error) {
	if self.tag != "" {
		return []byte(self.tag), nil
	}
	return HexUint64(self.num).MarshalText()
}

func (self *BlockNumber) UnmarshalText(input []byte) error {
	switch str := string(input); str {
	case BlockNumberLatest, BlockNumberPending, BlockNumberEarliest,
		BlockNumberFinalized, BlockNumberSafe:
		*self = BlockNumber{tag: str}
		return nil
	}
	var num HexUint64
	err := num.UnmarshalText(input)
	if err != nil {
		return err
	}
	*self = BlockAt(uint64(num))
	return nil
}

func (self BlockNumber) String() string {
	out, _ := self.MarshalText()
	return string(out)
}

/*
Identifies the block for a state query, by hash or by number. The zero value
means "latest".
*/
type BlockId struct {
	Hash   *Hash
	Number *BlockNumber
}

func AtHash(hash Hash) BlockId { return BlockId{Hash: &hash} }

func AtNumber(num BlockNumber) BlockId { return BlockId{Number: &num} }

func (self BlockId) IsZero() bool { return self.Hash == nil && self.Number == nil }

// Returns the id itself unless it's zero.
func (self BlockId) Or(fallback BlockNumber) BlockId {
	if self.IsZero() {
		return AtNumber(fallback)
	}
	return self
}

/*
Implements "json.Marshaler". Hashes use the object form accepted by state
queries: {"blockHash": "0x..."}.
*/
func (self BlockId) MarshalJSON() ([]byte, error) {
	if self.Hash != nil {
		return json.Marshal(struct {
			BlockHash Hash `json:"blockHash"`
		}{*self.Hash})
	}
	if self.Number != nil {
		return json.Marshal(*self.Number)
	}
	return json.Marshal(BlockLatest)
}

func (self BlockId) String() string {
	if self.Hash != nil {
		return self.Hash.String()
	}
	if self.Number != nil {
		return self.Number.String()
	}
	return BlockNumberLatest
}

// Block header plus transaction hashes, as returned by block queries.
type Block struct {
	Hash             *Hash      `json:"hash"`
	ParentHash       Hash       `json:"parentHash"`
	Sha3Uncles       Hash       `json:"sha3Uncles"`
	Miner            Address    `json:"miner"`
	StateRoot        Hash       `json:"stateRoot"`
	TransactionsRoot Hash       `json:"transactionsRoot"`
	ReceiptsRoot     Hash       `json:"receiptsRoot"`
	Number           *HexUint64 `json:"number"`
	EnergyUsed       *HexInt    `json:"energyUsed"`
	EnergyLimit      *HexInt    `json:"energyLimit"`
	ExtraData        HexBytes   `json:"extraData"`
	LogsBloom        Bloom      `json:"logsBloom"`
	Timestamp        HexUint64  `json:"timestamp"`
	Difficulty       *HexInt    `json:"difficulty"`
	TotalDifficulty  *HexInt    `json:"totalDifficulty"`
	Uncles           []Hash     `json:"uncles"`
	Transactions     []Hash     `json:"transactions"`
	Size             *HexUint64 `json:"size"`
	Nonce            HexBytes   `json:"nonce"`
}

/*
A log entry, typically obtained via "XcbGetLogs" and used for contract events.
*/
type Log struct {
	Address          Address    `json:"address"`
	Topics           []Hash     `json:"topics"`
	Data             HexBytes   `json:"data"`
	BlockHash        *Hash      `json:"blockHash"`
	BlockNumber      *HexUint64 `json:"blockNumber"`
	TransactionHash  *Hash      `json:"transactionHash"`
	TransactionIndex *HexUint64 `json:"transactionIndex"`
	LogIndex         *HexUint64 `json:"logIndex"`
	Removed          bool       `json:"removed"`
}

/*
Passed to "XcbGetLogs" and "XcbNewFilter". "BlockHash" is mutually exclusive
with the block range.

"Topics" is positional: each position is an OR-list of accepted topics, and an
empty position matches anything.
*/
type Filter struct {
	FromBlock *BlockNumber `json:"fromBlock,omitempty"`
	ToBlock   *BlockNumber `json:"toBlock,omitempty"`
	BlockHash *Hash        `json:"blockHash,omitempty"`
	Address   []Address    `json:"address,omitempty"`
	Topics    [][]Hash     `json:"topics,omitempty"`
}

// Result of "xcb_syncing": either false, or the sync progress.
type SyncStatus struct {
	Syncing       bool
	StartingBlock HexUint64 `json:"startingBlock"`
	CurrentBlock  HexUint64 `json:"currentBlock"`
	HighestBlock  HexUint64 `json:"highestBlock"`
}

func (self *SyncStatus) UnmarshalJSON(input []byte) error {
	var flag bool
	if json.Unmarshal(input, &flag) == nil {
		*self = SyncStatus{Syncing: flag}
		return nil
	}

	type blank SyncStatus
	err := json.Unmarshal(input, (*blank)(self))
	if err != nil {
		return encodingErr("sync status", err)
	}
	self.Syncing = true
	return nil
}
