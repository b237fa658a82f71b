package common

import (
	"errors"
	"fmt"
)

// ErrMissingReceipt signals that the extraction service returned no receipt
// for an extracted transaction. Receipts are requested per window for exactly
// the extracted hashes, so this is a data contract violation and not retried.
var ErrMissingReceipt = errors.New("transaction has no matching receipt")

// EnrichTransactions joins every transaction with its receipt, keyed by
// transaction hash.
func EnrichTransactions(txs []Transaction, receipts []Receipt) ([]EnrichedTransaction, error) {
	receiptsByHash := make(map[string]*Receipt, len(receipts))
	for i := range receipts {
		receiptsByHash[receipts[i].TransactionHash] = &receipts[i]
	}

	enriched := make([]EnrichedTransaction, 0, len(txs))
	for _, tx := range txs {
		receipt, ok := receiptsByHash[tx.Hash]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingReceipt, tx.Hash)
		}
		enriched = append(enriched, EnrichedTransaction{
			Transaction:              tx,
			ReceiptCumulativeGasUsed: receipt.CumulativeGasUsed,
			ReceiptGasUsed:           receipt.GasUsed,
			ReceiptContractAddress:   receipt.ContractAddress,
			ReceiptRoot:              receipt.Root,
			ReceiptStatus:            receipt.Status,
			ReceiptEffectiveGasPrice: receipt.EffectiveGasPrice,
		})
	}
	return enriched, nil
}
