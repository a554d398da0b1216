package xcb

import (
	"sort"
)

// Receipt of a transaction included in a block.
type TxReceipt struct {
	TransactionHash      Hash       `json:"transactionHash"`
	TransactionIndex     HexUint64  `json:"transactionIndex"`
	BlockHash            *Hash      `json:"blockHash"`
	BlockNumber          *HexUint64 `json:"blockNumber"`
	From                 Address    `json:"from"`
	To                   *Address   `json:"to"`
	CumulativeEnergyUsed *HexInt    `json:"cumulativeEnergyUsed"`
	EnergyUsed           *HexInt    `json:"energyUsed"`
	ContractAddress      *Address   `json:"contractAddress"`
	Logs                 []Log      `json:"logs"`
	Status               *HexUint64 `json:"status"`
	Root                 *Hash      `json:"root"`
	LogsBloom            Bloom      `json:"logsBloom"`
}

// True unless the node reports a failed execution. Receipts without a status
// predate status codes and are assumed successful.
func (self TxReceipt) Succeeded() bool {
	return self.Status == nil || *self.Status == 1
}

/*
Sorts receipts by block number, then by index within the block. Receipts
without a block number go last, keeping their relative order.
*/
func SortReceipts(receipts []TxReceipt) {
	sort.SliceStable(receipts, func(i, j int) bool {
		left, right := receipts[i], receipts[j]
		switch {
		case left.BlockNumber == nil:
			return false
		case right.BlockNumber == nil:
			return true
		case *left.BlockNumber != *right.BlockNumber:
			return *left.BlockNumber < *right.BlockNumber
		}
		return left.TransactionIndex < right.TransactionIndex
	})
}
