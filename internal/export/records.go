package export

import (
	"compress/gzip"
	"encoding/csv"
	"fmt"
	"math/big"
	"os"
	"strconv"
	"strings"

	"github.com/parquet-go/parquet-go"

	"github.com/graphsense/eth-ingest/internal/common"
	"github.com/graphsense/eth-ingest/internal/partition"
	"github.com/graphsense/eth-ingest/internal/transform"
)

// csvRecord is one formatted file row. fields returns the values in header
// order.
type csvRecord interface {
	fields() []string
}

var blockHeader = []string{
	"parent_hash", "nonce", "sha3_uncles", "logs_bloom", "transactions_root",
	"state_root", "receipts_root", "miner", "difficulty", "total_difficulty",
	"size", "extra_data", "gas_limit", "gas_used", "timestamp",
	"transaction_count", "base_fee_per_gas", "block_id", "block_id_group",
	"block_hash",
}

var txHeader = []string{
	"nonce", "transaction_index", "from_address", "to_address", "value",
	"gas", "gas_price", "input", "block_timestamp", "block_hash",
	"max_fee_per_gas", "max_priority_fee_per_gas", "transaction_type",
	"receipt_cumulative_gas_used", "receipt_gas_used",
	"receipt_contract_address", "receipt_root", "receipt_status",
	"receipt_effective_gas_price", "tx_hash", "tx_hash_prefix", "block_id",
}

var traceHeader = []string{
	"transaction_index", "from_address", "to_address", "value", "input",
	"output", "trace_type", "call_type", "reward_type", "gas", "gas_used",
	"subtraces", "trace_address", "error", "status", "trace_id",
	"trace_index", "tx_hash", "block_id", "block_id_group",
}

var logsHeader = []string{
	"block_id_group", "block_id", "block_hash", "address", "data", "topics",
	"topic0", "tx_hash", "log_index", "transaction_index",
}

type BlockRecord struct {
	ParentHash       string `parquet:"parent_hash"`
	Nonce            string `parquet:"nonce"`
	Sha3Uncles       string `parquet:"sha3_uncles"`
	LogsBloom        string `parquet:"logs_bloom"`
	TransactionsRoot string `parquet:"transactions_root"`
	StateRoot        string `parquet:"state_root"`
	ReceiptsRoot     string `parquet:"receipts_root"`
	Miner            string `parquet:"miner"`
	Difficulty       string `parquet:"difficulty"`
	TotalDifficulty  string `parquet:"total_difficulty"`
	Size             int64  `parquet:"size"`
	ExtraData        string `parquet:"extra_data"`
	GasLimit         int64  `parquet:"gas_limit"`
	GasUsed          int64  `parquet:"gas_used"`
	Timestamp        int64  `parquet:"timestamp"`
	TransactionCount int64  `parquet:"transaction_count"`
	BaseFeePerGas    int64  `parquet:"base_fee_per_gas"`
	BlockID          int64  `parquet:"block_id"`
	BlockIDGroup     int64  `parquet:"block_id_group"`
	BlockHash        string `parquet:"block_hash"`
}

func (r BlockRecord) fields() []string {
	return []string{
		r.ParentHash, r.Nonce, r.Sha3Uncles, r.LogsBloom, r.TransactionsRoot,
		r.StateRoot, r.ReceiptsRoot, r.Miner, r.Difficulty, r.TotalDifficulty,
		formatInt(r.Size), r.ExtraData, formatInt(r.GasLimit), formatInt(r.GasUsed),
		formatInt(r.Timestamp), formatInt(r.TransactionCount), formatInt(r.BaseFeePerGas),
		formatInt(r.BlockID), formatInt(r.BlockIDGroup), r.BlockHash,
	}
}

type TransactionRecord struct {
	Nonce                    int64  `parquet:"nonce"`
	TransactionIndex         int64  `parquet:"transaction_index"`
	FromAddress              string `parquet:"from_address"`
	ToAddress                string `parquet:"to_address"`
	Value                    string `parquet:"value"`
	Gas                      int64  `parquet:"gas"`
	GasPrice                 int64  `parquet:"gas_price"`
	Input                    string `parquet:"input"`
	BlockTimestamp           int64  `parquet:"block_timestamp"`
	BlockHash                string `parquet:"block_hash"`
	MaxFeePerGas             int64  `parquet:"max_fee_per_gas"`
	MaxPriorityFeePerGas     int64  `parquet:"max_priority_fee_per_gas"`
	TransactionType          int64  `parquet:"transaction_type"`
	ReceiptCumulativeGasUsed int64  `parquet:"receipt_cumulative_gas_used"`
	ReceiptGasUsed           int64  `parquet:"receipt_gas_used"`
	ReceiptContractAddress   string `parquet:"receipt_contract_address"`
	ReceiptRoot              string `parquet:"receipt_root"`
	ReceiptStatus            int64  `parquet:"receipt_status"`
	ReceiptEffectiveGasPrice int64  `parquet:"receipt_effective_gas_price"`
	TxHash                   string `parquet:"tx_hash"`
	TxHashPrefix             string `parquet:"tx_hash_prefix"`
	BlockID                  int64  `parquet:"block_id"`
}

func (r TransactionRecord) fields() []string {
	return []string{
		formatInt(r.Nonce), formatInt(r.TransactionIndex), r.FromAddress, r.ToAddress,
		r.Value, formatInt(r.Gas), formatInt(r.GasPrice), r.Input,
		formatInt(r.BlockTimestamp), r.BlockHash, formatInt(r.MaxFeePerGas),
		formatInt(r.MaxPriorityFeePerGas), formatInt(r.TransactionType),
		formatInt(r.ReceiptCumulativeGasUsed), formatInt(r.ReceiptGasUsed),
		r.ReceiptContractAddress, r.ReceiptRoot, formatInt(r.ReceiptStatus),
		formatInt(r.ReceiptEffectiveGasPrice), r.TxHash, r.TxHashPrefix,
		formatInt(r.BlockID),
	}
}

type TraceRecord struct {
	TransactionIndex int64  `parquet:"transaction_index"`
	FromAddress      string `parquet:"from_address"`
	ToAddress        string `parquet:"to_address"`
	Value            string `parquet:"value"`
	Input            string `parquet:"input"`
	Output           string `parquet:"output"`
	TraceType        string `parquet:"trace_type"`
	CallType         string `parquet:"call_type"`
	RewardType       string `parquet:"reward_type"`
	Gas              int64  `parquet:"gas"`
	GasUsed          int64  `parquet:"gas_used"`
	Subtraces        int64  `parquet:"subtraces"`
	TraceAddress     string `parquet:"trace_address"`
	Error            string `parquet:"error"`
	Status           int64  `parquet:"status"`
	TraceID          string `parquet:"trace_id"`
	TraceIndex       int64  `parquet:"trace_index"`
	TxHash           string `parquet:"tx_hash"`
	BlockID          int64  `parquet:"block_id"`
	BlockIDGroup     int64  `parquet:"block_id_group"`
}

func (r TraceRecord) fields() []string {
	return []string{
		formatInt(r.TransactionIndex), r.FromAddress, r.ToAddress, r.Value,
		r.Input, r.Output, r.TraceType, r.CallType, r.RewardType,
		formatInt(r.Gas), formatInt(r.GasUsed), formatInt(r.Subtraces),
		r.TraceAddress, r.Error, formatInt(r.Status), r.TraceID,
		formatInt(r.TraceIndex), r.TxHash, formatInt(r.BlockID),
		formatInt(r.BlockIDGroup),
	}
}

type LogRecord struct {
	BlockIDGroup     int64  `parquet:"block_id_group"`
	BlockID          int64  `parquet:"block_id"`
	BlockHash        string `parquet:"block_hash"`
	Address          string `parquet:"address"`
	Data             string `parquet:"data"`
	Topics           string `parquet:"topics"`
	Topic0           string `parquet:"topic0"`
	TxHash           string `parquet:"tx_hash"`
	LogIndex         int64  `parquet:"log_index"`
	TransactionIndex int64  `parquet:"transaction_index"`
}

func (r LogRecord) fields() []string {
	return []string{
		formatInt(r.BlockIDGroup), formatInt(r.BlockID), r.BlockHash, r.Address,
		r.Data, r.Topics, r.Topic0, r.TxHash, formatInt(r.LogIndex),
		formatInt(r.TransactionIndex),
	}
}

func formatBlocks(blocks []common.Block, cfg partition.Config) []BlockRecord {
	records := make([]BlockRecord, 0, len(blocks))
	for _, b := range blocks {
		records = append(records, BlockRecord{
			ParentHash:       b.ParentHash,
			Nonce:            b.Nonce,
			Sha3Uncles:       b.Sha3Uncles,
			LogsBloom:        b.LogsBloom,
			TransactionsRoot: b.TransactionsRoot,
			StateRoot:        b.StateRoot,
			ReceiptsRoot:     b.ReceiptsRoot,
			Miner:            b.Miner,
			Difficulty:       formatBigInt(b.Difficulty),
			TotalDifficulty:  formatBigInt(b.TotalDifficulty),
			Size:             b.Size,
			ExtraData:        b.ExtraData,
			GasLimit:         b.GasLimit,
			GasUsed:          b.GasUsed,
			Timestamp:        b.Timestamp,
			TransactionCount: int64(b.TransactionCount),
			BaseFeePerGas:    b.BaseFeePerGas,
			BlockID:          b.Number,
			BlockIDGroup:     cfg.BucketID(b.Number),
			BlockHash:        b.Hash,
		})
	}
	return records
}

func formatTransactions(txs []common.EnrichedTransaction, cfg partition.Config) []TransactionRecord {
	records := make([]TransactionRecord, 0, len(txs))
	for _, tx := range txs {
		records = append(records, TransactionRecord{
			Nonce:                    tx.Nonce,
			TransactionIndex:         tx.TransactionIndex,
			FromAddress:              tx.FromAddress,
			ToAddress:                tx.ToAddress,
			Value:                    formatBigInt(tx.Value),
			Gas:                      tx.Gas,
			GasPrice:                 tx.GasPrice,
			Input:                    tx.Input,
			BlockTimestamp:           tx.BlockTimestamp,
			BlockHash:                tx.BlockHash,
			MaxFeePerGas:             tx.MaxFeePerGas,
			MaxPriorityFeePerGas:     tx.MaxPriorityFeePerGas,
			TransactionType:          int64(tx.TransactionType),
			ReceiptCumulativeGasUsed: tx.ReceiptCumulativeGasUsed,
			ReceiptGasUsed:           tx.ReceiptGasUsed,
			ReceiptContractAddress:   tx.ReceiptContractAddress,
			ReceiptRoot:              tx.ReceiptRoot,
			ReceiptStatus:            tx.ReceiptStatus,
			ReceiptEffectiveGasPrice: tx.ReceiptEffectiveGasPrice,
			TxHash:                   tx.Hash,
			TxHashPrefix:             cfg.TxHashPrefix(tx.Hash),
			BlockID:                  tx.BlockNumber,
		})
	}
	return records
}

func formatTraces(traces []common.Trace, cfg partition.Config) []TraceRecord {
	records := make([]TraceRecord, 0, len(traces))
	traceIndex := int64(0)
	lastBlock := int64(-1)
	for _, tr := range traces {
		if tr.BlockNumber != lastBlock {
			traceIndex = 0
			lastBlock = tr.BlockNumber
		}
		records = append(records, TraceRecord{
			TransactionIndex: tr.TransactionIndex,
			FromAddress:      tr.FromAddress,
			ToAddress:        tr.ToAddress,
			Value:            formatBigInt(tr.Value),
			Input:            tr.Input,
			Output:           tr.Output,
			TraceType:        tr.TraceType,
			CallType:         tr.CallType,
			RewardType:       tr.RewardType,
			Gas:              tr.Gas,
			GasUsed:          tr.GasUsed,
			Subtraces:        tr.Subtraces,
			TraceAddress:     transform.JoinTraceAddress(tr.TraceAddress),
			Error:            tr.Error,
			Status:           tr.Status,
			TraceID:          tr.TraceID,
			TraceIndex:       traceIndex,
			TxHash:           tr.TransactionHash,
			BlockID:          tr.BlockNumber,
			BlockIDGroup:     cfg.BucketID(tr.BlockNumber),
		})
		traceIndex++
	}
	return records
}

func formatLogs(logs []common.Log, cfg partition.Config) []LogRecord {
	records := make([]LogRecord, 0, len(logs))
	for _, l := range logs {
		records = append(records, LogRecord{
			BlockIDGroup:     cfg.BucketID(l.BlockNumber),
			BlockID:          l.BlockNumber,
			BlockHash:        l.BlockHash,
			Address:          l.Address,
			Data:             l.Data,
			Topics:           formatTopics(l.Topics),
			Topic0:           transform.Topic0(l.Topics),
			TxHash:           l.TransactionHash,
			LogIndex:         l.LogIndex,
			TransactionIndex: l.TransactionIndex,
		})
	}
	return records
}

// formatTopics renders the topic list as a JSON-style array of quoted
// strings.
func formatTopics(topics []string) string {
	quoted := make([]string, len(topics))
	for i, t := range topics {
		quoted[i] = fmt.Sprintf("%q", t)
	}
	return "[" + strings.Join(quoted, ",") + "]"
}

func formatInt(v int64) string {
	return strconv.FormatInt(v, 10)
}

func formatBigInt(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func writeCSV[T csvRecord](path string, header []string, rows []T, comma rune) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	gz := gzip.NewWriter(f)
	w := csv.NewWriter(gz)
	w.Comma = comma

	if err := w.Write(header); err != nil {
		return err
	}
	for _, row := range rows {
		if err := w.Write(row.fields()); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	if err := gz.Close(); err != nil {
		return err
	}
	return f.Close()
}

var parquetWriterOptions = []parquet.WriterOption{
	parquet.Compression(&parquet.Zstd),
	parquet.DataPageStatistics(true),
}

func writeParquet[T any](path string, rows []T) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := parquet.NewGenericWriter[T](f, parquetWriterOptions...)
	if len(rows) > 0 {
		if _, err := w.Write(rows); err != nil {
			return err
		}
	}
	if err := w.Close(); err != nil {
		return err
	}
	return f.Close()
}
