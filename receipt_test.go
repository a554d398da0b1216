package xcb

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receiptAt(block *uint64, index uint64) TxReceipt {
	out := TxReceipt{TransactionIndex: HexUint64(index)}
	if block != nil {
		num := HexUint64(*block)
		out.BlockNumber = &num
	}
	return out
}

func blockNum(num uint64) *uint64 { return &num }

func TestSortReceipts(t *testing.T) {
	receipts := []TxReceipt{
		receiptAt(nil, 1),
		receiptAt(blockNum(5), 2),
		receiptAt(blockNum(3), 0),
		receiptAt(nil, 0),
		receiptAt(blockNum(5), 1),
	}
	SortReceipts(receipts)

	want := []TxReceipt{
		receiptAt(blockNum(3), 0),
		receiptAt(blockNum(5), 1),
		receiptAt(blockNum(5), 2),
		receiptAt(nil, 1),
		receiptAt(nil, 0),
	}
	assert.Equal(t, want, receipts)
}

func TestReceiptSucceeded(t *testing.T) {
	var receipt TxReceipt
	assert.True(t, receipt.Succeeded())

	require.NoError(t, json.Unmarshal([]byte(`{"status":"0x0"}`), &receipt))
	assert.False(t, receipt.Succeeded())

	require.NoError(t, json.Unmarshal([]byte(`{"status":"0x1"}`), &receipt))
	assert.True(t, receipt.Succeeded())
}
