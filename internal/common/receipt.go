package common

// Receipt is one decoded transaction receipt. Receipts are requested for
// exactly the transaction hashes extracted in the same window.
type Receipt struct {
	TransactionHash   string
	TransactionIndex  int64
	BlockNumber       int64
	CumulativeGasUsed int64
	GasUsed           int64
	ContractAddress   string
	Root              string
	Status            int64
	EffectiveGasPrice int64
}
