package common

import "math/big"

// Transaction is one decoded transaction as delivered by the extraction
// service, before receipt enrichment.
type Transaction struct {
	Hash                 string
	Nonce                int64
	BlockHash            string
	BlockNumber          int64
	BlockTimestamp       int64
	TransactionIndex     int64
	FromAddress          string
	ToAddress            string
	Value                *big.Int
	Gas                  int64
	GasPrice             int64
	Input                string
	MaxFeePerGas         int64
	MaxPriorityFeePerGas int64
	TransactionType      int16
}

// EnrichedTransaction is a transaction joined with its receipt.
type EnrichedTransaction struct {
	Transaction
	ReceiptCumulativeGasUsed int64
	ReceiptGasUsed           int64
	ReceiptContractAddress   string
	ReceiptRoot              string
	ReceiptStatus            int64
	ReceiptEffectiveGasPrice int64
}
