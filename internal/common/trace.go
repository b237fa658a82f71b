package common

import "math/big"

// Trace is one decoded call trace. TraceAddress is the path of child call
// indices from the transaction root call; nil means the trace has no address
// (block rewards, genesis allocations).
type Trace struct {
	BlockNumber      int64
	TransactionHash  string
	TransactionIndex int64
	FromAddress      string
	ToAddress        string
	Value            *big.Int
	Input            string
	Output           string
	TraceType        string
	CallType         string
	RewardType       string
	Gas              int64
	GasUsed          int64
	Subtraces        int64
	TraceAddress     []int64
	Error            string
	Status           int64
	TraceID          string
}
