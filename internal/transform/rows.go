package transform

import "math/big"

// Storage row shapes for the four tables. Field tags follow the CQL column
// names; hex string fields of the decoded records become blobs here.

type BlockRow struct {
	BlockIDGroup     int64    `db:"block_id_group" json:"block_id_group"`
	BlockID          int64    `db:"block_id" json:"block_id"`
	BlockHash        []byte   `db:"block_hash" json:"block_hash"`
	ParentHash       []byte   `db:"parent_hash" json:"parent_hash"`
	Nonce            []byte   `db:"nonce" json:"nonce"`
	Sha3Uncles       []byte   `db:"sha3_uncles" json:"sha3_uncles"`
	LogsBloom        []byte   `db:"logs_bloom" json:"logs_bloom"`
	TransactionsRoot []byte   `db:"transactions_root" json:"transactions_root"`
	StateRoot        []byte   `db:"state_root" json:"state_root"`
	ReceiptsRoot     []byte   `db:"receipts_root" json:"receipts_root"`
	Miner            []byte   `db:"miner" json:"miner"`
	Difficulty       *big.Int `db:"difficulty" json:"difficulty"`
	TotalDifficulty  *big.Int `db:"total_difficulty" json:"total_difficulty"`
	Size             int64    `db:"size" json:"size"`
	ExtraData        []byte   `db:"extra_data" json:"extra_data"`
	GasLimit         int64    `db:"gas_limit" json:"gas_limit"`
	GasUsed          int64    `db:"gas_used" json:"gas_used"`
	Timestamp        int64    `db:"timestamp" json:"timestamp"`
	TransactionCount int      `db:"transaction_count" json:"transaction_count"`
	BaseFeePerGas    int64    `db:"base_fee_per_gas" json:"base_fee_per_gas"`
}

type TransactionRow struct {
	TxHashPrefix             string   `db:"tx_hash_prefix" json:"tx_hash_prefix"`
	TxHash                   []byte   `db:"tx_hash" json:"tx_hash"`
	Nonce                    int64    `db:"nonce" json:"nonce"`
	TransactionIndex         int64    `db:"transaction_index" json:"transaction_index"`
	FromAddress              []byte   `db:"from_address" json:"from_address"`
	ToAddress                []byte   `db:"to_address" json:"to_address"`
	Value                    *big.Int `db:"value" json:"value"`
	Gas                      int64    `db:"gas" json:"gas"`
	GasPrice                 int64    `db:"gas_price" json:"gas_price"`
	Input                    []byte   `db:"input" json:"input"`
	BlockTimestamp           int64    `db:"block_timestamp" json:"block_timestamp"`
	BlockID                  int64    `db:"block_id" json:"block_id"`
	BlockHash                []byte   `db:"block_hash" json:"block_hash"`
	MaxFeePerGas             int64    `db:"max_fee_per_gas" json:"max_fee_per_gas"`
	MaxPriorityFeePerGas     int64    `db:"max_priority_fee_per_gas" json:"max_priority_fee_per_gas"`
	TransactionType          int16    `db:"transaction_type" json:"transaction_type"`
	ReceiptCumulativeGasUsed int64    `db:"receipt_cumulative_gas_used" json:"receipt_cumulative_gas_used"`
	ReceiptGasUsed           int64    `db:"receipt_gas_used" json:"receipt_gas_used"`
	ReceiptContractAddress   []byte   `db:"receipt_contract_address" json:"receipt_contract_address"`
	ReceiptRoot              []byte   `db:"receipt_root" json:"receipt_root"`
	ReceiptStatus            int64    `db:"receipt_status" json:"receipt_status"`
	ReceiptEffectiveGasPrice int64    `db:"receipt_effective_gas_price" json:"receipt_effective_gas_price"`
}

type TraceRow struct {
	BlockIDGroup     int64    `db:"block_id_group" json:"block_id_group"`
	BlockID          int64    `db:"block_id" json:"block_id"`
	TraceID          string   `db:"trace_id" json:"trace_id"`
	TxHash           []byte   `db:"tx_hash" json:"tx_hash"`
	TransactionIndex int64    `db:"transaction_index" json:"transaction_index"`
	FromAddress      []byte   `db:"from_address" json:"from_address"`
	ToAddress        []byte   `db:"to_address" json:"to_address"`
	Value            *big.Int `db:"value" json:"value"`
	Input            []byte   `db:"input" json:"input"`
	Output           []byte   `db:"output" json:"output"`
	TraceType        string   `db:"trace_type" json:"trace_type"`
	CallType         string   `db:"call_type" json:"call_type"`
	RewardType       string   `db:"reward_type" json:"reward_type"`
	Gas              int64    `db:"gas" json:"gas"`
	GasUsed          int64    `db:"gas_used" json:"gas_used"`
	Subtraces        int64    `db:"subtraces" json:"subtraces"`
	TraceAddress     *string  `db:"trace_address" json:"trace_address"`
	Error            string   `db:"error" json:"error"`
	Status           int64    `db:"status" json:"status"`
}

type LogRow struct {
	BlockIDGroup     int64    `db:"block_id_group" json:"block_id_group"`
	BlockID          int64    `db:"block_id" json:"block_id"`
	BlockHash        []byte   `db:"block_hash" json:"block_hash"`
	Address          []byte   `db:"address" json:"address"`
	Data             []byte   `db:"data" json:"data"`
	Topics           []string `db:"topics" json:"topics"`
	Topic0           []byte   `db:"topic0" json:"topic0"`
	TxHash           []byte   `db:"tx_hash" json:"tx_hash"`
	LogIndex         int64    `db:"log_index" json:"log_index"`
	TransactionIndex int64    `db:"transaction_index" json:"transaction_index"`
}

// TableRows is the transformed output of one ingestion window.
type TableRows struct {
	Blocks       []*BlockRow
	Transactions []*TransactionRow
	Traces       []*TraceRow
	Logs         []*LogRow
}
