package xcb

import (
	"encoding/json"
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"
)

/*
A transaction that may be partially filled. Unset fields are nil; the provider
and middleware layers fill them before sending. Also used as the input to
non-mutating calls and energy estimates.

"NetworkID" takes part in the signing digest but is never sent to the node as a
request field.
*/
type TxRequest struct {
	From        *Address
	To          *Address
	Energy      *big.Int
	EnergyPrice *big.Int
	Value       *big.Int
	Data        HexBytes
	Nonce       *big.Int
	NetworkID   *uint64
}

// Wire form of TxRequest.
type txRequestJson struct {
	From        *Address   `json:"from,omitempty"`
	To          *Address   `json:"to,omitempty"`
	Energy      *HexInt    `json:"energy,omitempty"`
	EnergyPrice *HexInt    `json:"energyPrice,omitempty"`
	Value       *HexInt    `json:"value,omitempty"`
	Data        HexBytes   `json:"data,omitempty"`
	Nonce       *HexInt    `json:"nonce,omitempty"`
	NetworkID   *HexUint64 `json:"networkId,omitempty"`
}

// Shortcut for a plain value transfer.
func Pay(to Address, value *big.Int) TxRequest {
	return TxRequest{To: &to, Value: value}
}

func (self TxRequest) WithFrom(from Address) TxRequest {
	self.From = &from
	return self
}

func (self TxRequest) WithTo(to Address) TxRequest {
	self.To = &to
	return self
}

func (self TxRequest) WithEnergy(energy *big.Int) TxRequest {
	self.Energy = energy
	return self
}

func (self TxRequest) WithEnergyPrice(price *big.Int) TxRequest {
	self.EnergyPrice = price
	return self
}

func (self TxRequest) WithValue(value *big.Int) TxRequest {
	self.Value = value
	return self
}

func (self TxRequest) WithData(data []byte) TxRequest {
	self.Data = data
	return self
}

func (self TxRequest) WithNonce(nonce uint64) TxRequest {
	self.Nonce = new(big.Int).SetUint64(nonce)
	return self
}

func (self TxRequest) WithNetworkID(id uint64) TxRequest {
	self.NetworkID = &id
	return self
}

/*
Deep copy. Filling and signing never modify a caller's request through shared
pointers.
*/
func (self TxRequest) Clone() TxRequest {
	out := self
	if self.From != nil {
		from := *self.From
		out.From = &from
	}
	if self.To != nil {
		to := *self.To
		out.To = &to
	}
	out.Energy = cloneBig(self.Energy)
	out.EnergyPrice = cloneBig(self.EnergyPrice)
	out.Value = cloneBig(self.Value)
	out.Nonce = cloneBig(self.Nonce)
	if self.Data != nil {
		out.Data = append(HexBytes(nil), self.Data...)
	}
	if self.NetworkID != nil {
		id := *self.NetworkID
		out.NetworkID = &id
	}
	return out
}

func cloneBig(val *big.Int) *big.Int {
	if val == nil {
		return nil
	}
	return new(big.Int).Set(val)
}

func (self TxRequest) MarshalJSON() ([]byte, error) {
	return json.Marshal(txRequestJson{
		From:        self.From,
		To:          self.To,
		Energy:      ToHexInt(self.Energy),
		EnergyPrice: ToHexInt(self.EnergyPrice),
		Value:       ToHexInt(self.Value),
		Data:        self.Data,
		Nonce:       ToHexInt(self.Nonce),
	})
}

// Accepts "networkId" as an input field, unlike "MarshalJSON".
func (self *TxRequest) UnmarshalJSON(input []byte) error {
	var wire txRequestJson
	err := json.Unmarshal(input, &wire)
	if err != nil {
		return encodingErr("transaction request", err)
	}
	*self = TxRequest{
		From:        wire.From,
		To:          wire.To,
		Energy:      wire.Energy.Big(),
		EnergyPrice: wire.EnergyPrice.Big(),
		Value:       wire.Value.Big(),
		Data:        wire.Data,
		Nonce:       wire.Nonce.Big(),
	}
	if wire.NetworkID != nil {
		id := uint64(*wire.NetworkID)
		self.NetworkID = &id
	}
	return nil
}

func bigOrZero(val *big.Int) *big.Int {
	if val == nil {
		return new(big.Int)
	}
	return val
}

func (self TxRequest) rlpTo() []byte {
	if self.To == nil {
		return []byte{}
	}
	return self.To[:]
}

func (self TxRequest) networkID() uint64 {
	if self.NetworkID == nil {
		return 0
	}
	return *self.NetworkID
}

/*
RLP of the signing pre-image:

	[nonce, energy_price, energy, to, value, data, network_id]

Without a network id, the last element is omitted. A missing "to" (contract
creation) encodes as an empty byte string.
*/
func (self TxRequest) RlpUnsigned() ([]byte, error) {
	fields := []interface{}{
		bigOrZero(self.Nonce),
		bigOrZero(self.EnergyPrice),
		bigOrZero(self.Energy),
		self.rlpTo(),
		bigOrZero(self.Value),
		[]byte(self.Data),
	}
	if self.NetworkID != nil {
		fields = append(fields, *self.NetworkID)
	}
	out, err := rlp.EncodeToBytes(fields)
	return out, errors.Wrap(err, `failed to encode a transaction`)
}

// Digest signed by signers: SHA3-256 of "RlpUnsigned".
func (self TxRequest) Sighash() (Hash, error) {
	raw, err := self.RlpUnsigned()
	if err != nil {
		return Hash{}, err
	}
	return Sha3(raw), nil
}

/*
RLP of the signed transaction, as accepted by "xcb_sendRawTransaction":

	[nonce, energy_price, energy, network_id, to, value, data, signature]

A missing network id encodes as 0. Signers refuse to sign such requests, so
this only happens for hand-assembled signatures.
*/
func (self TxRequest) RlpSigned(sig Signature) ([]byte, error) {
	out, err := rlp.EncodeToBytes([]interface{}{
		bigOrZero(self.Nonce),
		bigOrZero(self.EnergyPrice),
		bigOrZero(self.Energy),
		self.networkID(),
		self.rlpTo(),
		bigOrZero(self.Value),
		[]byte(self.Data),
		sig[:],
	})
	return out, errors.Wrap(err, `failed to encode a signed transaction`)
}

// Hash under which the node knows the signed transaction.
func (self TxRequest) SignedHash(sig Signature) (Hash, error) {
	raw, err := self.RlpSigned(sig)
	if err != nil {
		return Hash{}, err
	}
	return Sha3(raw), nil
}

/*
Decodes a signed transaction, verifies its signature, and sets "From" to the
recovered sender on the transaction's network.
*/
func DecodeSignedTx(raw []byte) (TxRequest, Signature, error) {
	var out TxRequest
	var sig Signature

	fields, err := splitTxFields(raw)
	if err != nil {
		return out, sig, err
	}
	if len(fields) != 8 {
		return out, sig, encodingErr("signed transaction",
			errors.Errorf("%d list elements, want 8", len(fields)))
	}

	dec := txFieldDecoder{fields: fields}
	out.Nonce = dec.big(0)
	out.EnergyPrice = dec.big(1)
	out.Energy = dec.big(2)
	networkID := dec.uint(3)
	out.NetworkID = &networkID
	out.To = dec.to(4)
	out.Value = dec.big(5)
	out.Data = dec.bytes(6)
	rawSig := dec.bytes(7)
	if dec.err != nil {
		return out, sig, dec.err
	}

	sig, err = SignatureFromBytes(rawSig)
	if err != nil {
		return out, sig, err
	}

	hash, err := out.Sighash()
	if err != nil {
		return out, sig, err
	}
	from, err := sig.Recover(hash, NetworkFromID(networkID))
	if err != nil {
		return out, sig, err
	}
	out.From = &from
	return out, sig, nil
}

/*
Decodes an unsigned request. Accepts the 6-element pre-image without a network
id, the 7-element pre-image with one, and the 8-element signed form, whose
signature is ignored.
*/
func DecodeUnsignedTx(raw []byte) (TxRequest, error) {
	var out TxRequest

	fields, err := splitTxFields(raw)
	if err != nil {
		return out, err
	}

	dec := txFieldDecoder{fields: fields}
	switch len(fields) {
	case 6, 7:
		out.Nonce = dec.big(0)
		out.EnergyPrice = dec.big(1)
		out.Energy = dec.big(2)
		out.To = dec.to(3)
		out.Value = dec.big(4)
		out.Data = dec.bytes(5)
		if len(fields) == 7 {
			id := dec.uint(6)
			out.NetworkID = &id
		}
	case 8:
		out.Nonce = dec.big(0)
		out.EnergyPrice = dec.big(1)
		out.Energy = dec.big(2)
		id := dec.uint(3)
		out.NetworkID = &id
		out.To = dec.to(4)
		out.Value = dec.big(5)
		out.Data = dec.bytes(6)
	default:
		return out, encodingErr("transaction",
			errors.Errorf("%d list elements, want 6, 7 or 8", len(fields)))
	}
	return out, dec.err
}

func splitTxFields(raw []byte) ([]rlp.RawValue, error) {
	var fields []rlp.RawValue
	err := rlp.DecodeBytes(raw, &fields)
	if err != nil {
		return nil, encodingErr("transaction", err)
	}
	return fields, nil
}

// Decodes list elements one at a time, keeping the first error.
type txFieldDecoder struct {
	fields []rlp.RawValue
	err    error
}

func (self *txFieldDecoder) decode(index int, out interface{}) {
	if self.err != nil {
		return
	}
	err := rlp.DecodeBytes(self.fields[index], out)
	if err != nil {
		self.err = encodingErr("transaction", errors.Wrapf(err, "element %d", index))
	}
}

func (self *txFieldDecoder) big(index int) *big.Int {
	var out *big.Int
	self.decode(index, &out)
	return out
}

func (self *txFieldDecoder) uint(index int) uint64 {
	var out uint64
	self.decode(index, &out)
	return out
}

func (self *txFieldDecoder) bytes(index int) HexBytes {
	var out []byte
	self.decode(index, &out)
	if len(out) == 0 {
		return nil
	}
	return out
}

func (self *txFieldDecoder) to(index int) *Address {
	raw := self.bytes(index)
	switch len(raw) {
	case 0:
		return nil
	case AddressLength:
		out := BytesToAddress(raw)
		return &out
	}
	if self.err == nil {
		self.err = encodingErr("transaction",
			errors.Errorf("recipient has %d bytes, want 0 or %d", len(raw), AddressLength))
	}
	return nil
}

/*
A transaction as reported by the node. Block fields are nil while the
transaction is pending.
*/
type Transaction struct {
	Hash             Hash       `json:"hash"`
	Nonce            *HexInt    `json:"nonce"`
	BlockHash        *Hash      `json:"blockHash"`
	BlockNumber      *HexUint64 `json:"blockNumber"`
	TransactionIndex *HexUint64 `json:"transactionIndex"`
	From             Address    `json:"from"`
	To               *Address   `json:"to"`
	Value            *HexInt    `json:"value"`
	EnergyPrice      *HexInt    `json:"energyPrice"`
	Energy           *HexInt    `json:"energy"`
	Input            HexBytes   `json:"input"`
	Signature        Signature  `json:"signature"`
	NetworkID        *HexUint64 `json:"network_id,omitempty"`
}

func (self Transaction) IsPending() bool { return self.BlockNumber == nil }

// The request that produced this transaction, "From" included.
func (self Transaction) Request() TxRequest {
	from := self.From
	out := TxRequest{
		From:        &from,
		To:          self.To,
		Energy:      cloneBig(self.Energy.Big()),
		EnergyPrice: cloneBig(self.EnergyPrice.Big()),
		Value:       cloneBig(self.Value.Big()),
		Data:        self.Input,
		Nonce:       cloneBig(self.Nonce.Big()),
	}
	if self.NetworkID != nil {
		id := uint64(*self.NetworkID)
		out.NetworkID = &id
	}
	return out
}

func (self Transaction) RlpSigned() ([]byte, error) {
	return self.Request().RlpSigned(self.Signature)
}

// Recomputes the hash from the transaction's contents.
func (self Transaction) ComputeHash() (Hash, error) {
	return self.Request().SignedHash(self.Signature)
}

// Recovers the sender from the signature. Requires "NetworkID".
func (self Transaction) RecoverFrom() (Address, error) {
	if self.NetworkID == nil {
		return Address{}, errors.New(`can't recover the sender of a transaction without a network id`)
	}
	hash, err := self.Request().Sighash()
	if err != nil {
		return Address{}, err
	}
	return self.Signature.Recover(hash, NetworkFromID(uint64(*self.NetworkID)))
}
