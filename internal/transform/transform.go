package transform

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/graphsense/eth-ingest/internal/common"
	"github.com/graphsense/eth-ingest/internal/partition"
)

// ErrMalformedRecord signals that a decoded record misses a required field.
// This violates the extraction service contract and is not retried.
var ErrMalformedRecord = errors.New("malformed record")

// ZeroAddress substitutes hex fields that participate in a key or filterable
// column but are absent from the decoded record. The store disallows unset
// key columns.
const ZeroAddress = "0x0000000000000000000000000000000000000000"

// TraceAddressDelimiter joins the child call indices of a trace address.
const TraceAddressDelimiter = "|"

// Transformer normalizes decoded records into storage rows. It is pure: it
// never touches the store and holds nothing but the partitioning parameters.
type Transformer struct {
	cfg partition.Config
}

func NewTransformer(cfg partition.Config) *Transformer {
	return &Transformer{cfg: cfg}
}

func (t *Transformer) BlockRow(b *common.Block) (*BlockRow, error) {
	if b.Hash == "" {
		return nil, fmt.Errorf("%w: block %d has no hash", ErrMalformedRecord, b.Number)
	}
	row := &BlockRow{
		BlockIDGroup:     t.cfg.BucketID(b.Number),
		BlockID:          b.Number,
		Difficulty:       b.Difficulty,
		TotalDifficulty:  b.TotalDifficulty,
		Size:             b.Size,
		GasLimit:         b.GasLimit,
		GasUsed:          b.GasUsed,
		Timestamp:        b.Timestamp,
		TransactionCount: b.TransactionCount,
		BaseFeePerGas:    b.BaseFeePerGas,
	}
	var err error
	for _, blob := range []struct {
		dst *[]byte
		hex string
	}{
		{&row.BlockHash, b.Hash},
		{&row.ParentHash, b.ParentHash},
		{&row.Nonce, b.Nonce},
		{&row.Sha3Uncles, b.Sha3Uncles},
		{&row.LogsBloom, b.LogsBloom},
		{&row.TransactionsRoot, b.TransactionsRoot},
		{&row.StateRoot, b.StateRoot},
		{&row.ReceiptsRoot, b.ReceiptsRoot},
		{&row.Miner, b.Miner},
		{&row.ExtraData, b.ExtraData},
	} {
		if *blob.dst, err = hexToBlob(blob.hex); err != nil {
			return nil, fmt.Errorf("block %d: %w", b.Number, err)
		}
	}
	return row, nil
}

func (t *Transformer) TransactionRow(tx *common.EnrichedTransaction) (*TransactionRow, error) {
	if tx.Hash == "" {
		return nil, fmt.Errorf("%w: transaction in block %d has no hash", ErrMalformedRecord, tx.BlockNumber)
	}
	row := &TransactionRow{
		TxHashPrefix:             t.cfg.TxHashPrefix(tx.Hash),
		Nonce:                    tx.Nonce,
		TransactionIndex:         tx.TransactionIndex,
		Value:                    tx.Value,
		Gas:                      tx.Gas,
		GasPrice:                 tx.GasPrice,
		BlockTimestamp:           tx.BlockTimestamp,
		BlockID:                  tx.BlockNumber,
		MaxFeePerGas:             tx.MaxFeePerGas,
		MaxPriorityFeePerGas:     tx.MaxPriorityFeePerGas,
		TransactionType:          tx.TransactionType,
		ReceiptCumulativeGasUsed: tx.ReceiptCumulativeGasUsed,
		ReceiptGasUsed:           tx.ReceiptGasUsed,
		ReceiptStatus:            tx.ReceiptStatus,
		ReceiptEffectiveGasPrice: tx.ReceiptEffectiveGasPrice,
	}
	var err error
	for _, blob := range []struct {
		dst *[]byte
		hex string
	}{
		{&row.TxHash, tx.Hash},
		{&row.FromAddress, tx.FromAddress},
		{&row.ToAddress, tx.ToAddress},
		{&row.Input, tx.Input},
		{&row.BlockHash, tx.BlockHash},
		{&row.ReceiptContractAddress, tx.ReceiptContractAddress},
		{&row.ReceiptRoot, tx.ReceiptRoot},
	} {
		if *blob.dst, err = hexToBlob(blob.hex); err != nil {
			return nil, fmt.Errorf("transaction %s: %w", tx.Hash, err)
		}
	}
	return row, nil
}

func (t *Transformer) TraceRow(tr *common.Trace) (*TraceRow, error) {
	if tr.TraceType == "" {
		return nil, fmt.Errorf("%w: trace in block %d has no type", ErrMalformedRecord, tr.BlockNumber)
	}
	row := &TraceRow{
		BlockIDGroup:     t.cfg.BucketID(tr.BlockNumber),
		BlockID:          tr.BlockNumber,
		TraceID:          tr.TraceID,
		TransactionIndex: tr.TransactionIndex,
		Value:            tr.Value,
		TraceType:        tr.TraceType,
		CallType:         tr.CallType,
		RewardType:       tr.RewardType,
		Gas:              tr.Gas,
		GasUsed:          tr.GasUsed,
		Subtraces:        tr.Subtraces,
		TraceAddress:     traceAddressColumn(tr.TraceAddress),
		Error:            tr.Error,
		Status:           tr.Status,
	}
	var err error
	for _, blob := range []struct {
		dst *[]byte
		hex string
	}{
		{&row.TxHash, tr.TransactionHash},
		{&row.FromAddress, tr.FromAddress},
		{&row.ToAddress, tr.ToAddress},
		{&row.Input, tr.Input},
		{&row.Output, tr.Output},
	} {
		if *blob.dst, err = hexToBlob(blob.hex); err != nil {
			return nil, fmt.Errorf("trace %s: %w", tr.TraceID, err)
		}
	}
	return row, nil
}

func (t *Transformer) LogRow(l *common.Log) (*LogRow, error) {
	if l.Address == "" {
		return nil, fmt.Errorf("%w: log %d in block %d has no address", ErrMalformedRecord, l.LogIndex, l.BlockNumber)
	}
	row := &LogRow{
		BlockIDGroup:     t.cfg.BucketID(l.BlockNumber),
		BlockID:          l.BlockNumber,
		Topics:           l.Topics,
		LogIndex:         l.LogIndex,
		TransactionIndex: l.TransactionIndex,
	}
	var err error
	for _, blob := range []struct {
		dst *[]byte
		hex string
	}{
		{&row.BlockHash, l.BlockHash},
		{&row.Address, l.Address},
		{&row.Data, l.Data},
		{&row.TxHash, l.TransactionHash},
	} {
		if *blob.dst, err = hexToBlob(blob.hex); err != nil {
			return nil, fmt.Errorf("log %d in block %d: %w", l.LogIndex, l.BlockNumber, err)
		}
	}
	// topic0 is part of a filter key and must never be unset
	if row.Topic0, err = hexToBlob(Topic0(l.Topics)); err != nil {
		return nil, fmt.Errorf("log %d in block %d: %w", l.LogIndex, l.BlockNumber, err)
	}
	return row, nil
}

// Window transforms one extraction window worth of enriched records into
// per-table row sets.
func (t *Transformer) Window(blocks []common.Block, txs []common.EnrichedTransaction, traces []common.Trace, logs []common.Log) (*TableRows, error) {
	rows := &TableRows{
		Blocks:       make([]*BlockRow, 0, len(blocks)),
		Transactions: make([]*TransactionRow, 0, len(txs)),
		Traces:       make([]*TraceRow, 0, len(traces)),
		Logs:         make([]*LogRow, 0, len(logs)),
	}
	for i := range blocks {
		row, err := t.BlockRow(&blocks[i])
		if err != nil {
			return nil, err
		}
		rows.Blocks = append(rows.Blocks, row)
	}
	for i := range txs {
		row, err := t.TransactionRow(&txs[i])
		if err != nil {
			return nil, err
		}
		rows.Transactions = append(rows.Transactions, row)
	}
	for i := range traces {
		row, err := t.TraceRow(&traces[i])
		if err != nil {
			return nil, err
		}
		rows.Traces = append(rows.Traces, row)
	}
	for i := range logs {
		row, err := t.LogRow(&logs[i])
		if err != nil {
			return nil, err
		}
		rows.Logs = append(rows.Logs, row)
	}
	return rows, nil
}

// Topic0 returns the first topic of a log, or the zero address sentinel for
// logs without topics.
func Topic0(topics []string) string {
	if len(topics) == 0 {
		return ZeroAddress
	}
	return topics[0]
}

// JoinTraceAddress serializes a trace address path. A nil path and an empty
// root call path both render empty; traceAddressColumn keeps them apart for
// the store.
func JoinTraceAddress(addr []int64) string {
	parts := make([]string, len(addr))
	for i, a := range addr {
		parts[i] = strconv.FormatInt(a, 10)
	}
	return strings.Join(parts, TraceAddressDelimiter)
}

// traceAddressColumn maps an absent trace address (block rewards, genesis
// allocations) to an unset column instead of an empty string, which is the
// path of a root call.
func traceAddressColumn(addr []int64) *string {
	if addr == nil {
		return nil
	}
	joined := JoinTraceAddress(addr)
	return &joined
}

// hexToBlob converts a 0x-prefixed hex string to raw bytes. Empty input maps
// to a nil blob.
func hexToBlob(s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	h := strings.TrimPrefix(s, "0x")
	if len(h)%2 != 0 {
		h = "0" + h
	}
	b, err := hex.DecodeString(h)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid hex value %q", ErrMalformedRecord, s)
	}
	return b, nil
}
