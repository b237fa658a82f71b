package common

import "math/big"

// Block is one decoded block header as delivered by the extraction service.
type Block struct {
	Number           int64
	Hash             string
	ParentHash       string
	Nonce            string
	Sha3Uncles       string
	LogsBloom        string
	TransactionsRoot string
	StateRoot        string
	ReceiptsRoot     string
	Miner            string
	Difficulty       *big.Int
	TotalDifficulty  *big.Int
	Size             int64
	ExtraData        string
	GasLimit         int64
	GasUsed          int64
	Timestamp        int64
	TransactionCount int
	BaseFeePerGas    int64
}

// BlockRange is one extraction window worth of decoded entities.
type BlockRange struct {
	Blocks       []Block
	Transactions []Transaction
	Receipts     []Receipt
	Traces       []Trace
	Logs         []Log
}
