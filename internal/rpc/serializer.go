package rpc

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/graphsense/eth-ingest/internal/common"
)

// Raw wire shapes of the JSON-RPC responses before decoding into the typed
// records of internal/common.
type (
	RawBlock   = map[string]interface{}
	RawReceipt = map[string]interface{}
	RawTraces  = []map[string]interface{}
)

func serializeBlock(block RawBlock) common.Block {
	return common.Block{
		Number:           hexToInt64(block["number"]),
		Hash:             interfaceToString(block["hash"]),
		ParentHash:       interfaceToString(block["parentHash"]),
		Nonce:            interfaceToString(block["nonce"]),
		Sha3Uncles:       interfaceToString(block["sha3Uncles"]),
		LogsBloom:        interfaceToString(block["logsBloom"]),
		TransactionsRoot: interfaceToString(block["transactionsRoot"]),
		StateRoot:        interfaceToString(block["stateRoot"]),
		ReceiptsRoot:     interfaceToString(block["receiptsRoot"]),
		Miner:            interfaceToString(block["miner"]),
		Difficulty:       hexToBigInt(block["difficulty"]),
		TotalDifficulty:  hexToBigInt(block["totalDifficulty"]),
		Size:             hexToInt64(block["size"]),
		ExtraData:        interfaceToString(block["extraData"]),
		GasLimit:         hexToInt64(block["gasLimit"]),
		GasUsed:          hexToInt64(block["gasUsed"]),
		Timestamp:        hexToInt64(block["timestamp"]),
		TransactionCount: rawTransactionCount(block),
		BaseFeePerGas:    hexToInt64(block["baseFeePerGas"]),
	}
}

func serializeTransactions(block RawBlock, blockTimestamp int64) []common.Transaction {
	rawTxs, ok := block["transactions"].([]interface{})
	if !ok || len(rawTxs) == 0 {
		return nil
	}
	transactions := make([]common.Transaction, 0, len(rawTxs))
	for _, rawTx := range rawTxs {
		tx, ok := rawTx.(map[string]interface{})
		if !ok {
			continue
		}
		transactions = append(transactions, common.Transaction{
			Hash:                 interfaceToString(tx["hash"]),
			Nonce:                hexToInt64(tx["nonce"]),
			BlockHash:            interfaceToString(tx["blockHash"]),
			BlockNumber:          hexToInt64(tx["blockNumber"]),
			BlockTimestamp:       blockTimestamp,
			TransactionIndex:     hexToInt64(tx["transactionIndex"]),
			FromAddress:          interfaceToString(tx["from"]),
			ToAddress:            interfaceToString(tx["to"]),
			Value:                hexToBigInt(tx["value"]),
			Gas:                  hexToInt64(tx["gas"]),
			GasPrice:             hexToInt64(tx["gasPrice"]),
			Input:                interfaceToString(tx["input"]),
			MaxFeePerGas:         hexToInt64(tx["maxFeePerGas"]),
			MaxPriorityFeePerGas: hexToInt64(tx["maxPriorityFeePerGas"]),
			TransactionType:      int16(hexToInt64(tx["type"])),
		})
	}
	return transactions
}

func serializeReceipt(receipt RawReceipt) common.Receipt {
	return common.Receipt{
		TransactionHash:   interfaceToString(receipt["transactionHash"]),
		TransactionIndex:  hexToInt64(receipt["transactionIndex"]),
		BlockNumber:       hexToInt64(receipt["blockNumber"]),
		CumulativeGasUsed: hexToInt64(receipt["cumulativeGasUsed"]),
		GasUsed:           hexToInt64(receipt["gasUsed"]),
		ContractAddress:   interfaceToString(receipt["contractAddress"]),
		Root:              interfaceToString(receipt["root"]),
		Status:            hexToInt64(receipt["status"]),
		EffectiveGasPrice: hexToInt64(receipt["effectiveGasPrice"]),
	}
}

func serializeLogs(receipt RawReceipt) []common.Log {
	rawLogs, ok := receipt["logs"].([]interface{})
	if !ok || len(rawLogs) == 0 {
		return nil
	}
	logs := make([]common.Log, 0, len(rawLogs))
	for _, rawLog := range rawLogs {
		l, ok := rawLog.(map[string]interface{})
		if !ok {
			continue
		}
		logs = append(logs, common.Log{
			BlockNumber:      hexToInt64(l["blockNumber"]),
			BlockHash:        interfaceToString(l["blockHash"]),
			TransactionHash:  interfaceToString(l["transactionHash"]),
			TransactionIndex: hexToInt64(l["transactionIndex"]),
			LogIndex:         hexToInt64(l["logIndex"]),
			Address:          interfaceToString(l["address"]),
			Data:             interfaceToString(l["data"]),
			Topics:           interfaceToStringSlice(l["topics"]),
		})
	}
	return logs
}

func serializeTraces(rawTraces RawTraces) []common.Trace {
	traces := make([]common.Trace, 0, len(rawTraces))
	// block level traces (rewards) carry no transaction hash, their ids
	// enumerate per block instead
	rewardIndex := make(map[int64]int)
	for _, rawTrace := range rawTraces {
		trace := serializeTrace(rawTrace)
		if trace.TransactionHash == "" {
			trace.TraceID = fmt.Sprintf("%s_%d_%d", trace.TraceType, trace.BlockNumber, rewardIndex[trace.BlockNumber])
			rewardIndex[trace.BlockNumber]++
		} else {
			trace.TraceID = fmt.Sprintf("%s_%s_%s", trace.TraceType, trace.TransactionHash,
				joinTraceAddress(trace.TraceAddress))
		}
		traces = append(traces, trace)
	}
	return traces
}

func serializeTrace(rawTrace map[string]interface{}) common.Trace {
	action, _ := rawTrace["action"].(map[string]interface{})
	result, _ := rawTrace["result"].(map[string]interface{})

	trace := common.Trace{
		BlockNumber:      interfaceToInt64(rawTrace["blockNumber"]),
		TransactionHash:  interfaceToString(rawTrace["transactionHash"]),
		TransactionIndex: interfaceToInt64(rawTrace["transactionPosition"]),
		TraceType:        interfaceToString(rawTrace["type"]),
		Gas:              hexToInt64(action["gas"]),
		GasUsed:          hexToInt64(result["gasUsed"]),
		Subtraces:        interfaceToInt64(rawTrace["subtraces"]),
		TraceAddress:     interfaceToInt64Slice(rawTrace["traceAddress"]),
		Error:            interfaceToString(rawTrace["error"]),
		Status:           1,
	}
	if trace.Error != "" {
		trace.Status = 0
	}

	// the action and result payloads are keyed differently per trace type
	switch trace.TraceType {
	case "create":
		trace.FromAddress = interfaceToString(action["from"])
		trace.ToAddress = interfaceToString(result["address"])
		trace.Value = hexToBigInt(action["value"])
		trace.Input = interfaceToString(action["init"])
		trace.Output = interfaceToString(result["code"])
	case "suicide":
		trace.FromAddress = interfaceToString(action["address"])
		trace.ToAddress = interfaceToString(action["refundAddress"])
		trace.Value = hexToBigInt(action["balance"])
	case "reward":
		trace.ToAddress = interfaceToString(action["author"])
		trace.Value = hexToBigInt(action["value"])
		trace.RewardType = interfaceToString(action["rewardType"])
	default:
		trace.FromAddress = interfaceToString(action["from"])
		trace.ToAddress = interfaceToString(action["to"])
		trace.Value = hexToBigInt(action["value"])
		trace.Input = interfaceToString(action["input"])
		trace.Output = interfaceToString(result["output"])
		trace.CallType = interfaceToString(action["callType"])
	}
	if trace.Value == nil {
		trace.Value = new(big.Int)
	}
	return trace
}

func joinTraceAddress(traceAddress []int64) string {
	parts := make([]string, 0, len(traceAddress))
	for _, a := range traceAddress {
		parts = append(parts, fmt.Sprintf("%d", a))
	}
	return strings.Join(parts, "_")
}

func rawTransactionCount(block RawBlock) int {
	if txs, ok := block["transactions"].([]interface{}); ok {
		return len(txs)
	}
	return 0
}

func interfaceToString(value interface{}) string {
	if value == nil {
		return ""
	}
	if s, ok := value.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", value)
}

func interfaceToStringSlice(value interface{}) []string {
	raw, ok := value.([]interface{})
	if !ok {
		return nil
	}
	values := make([]string, 0, len(raw))
	for _, v := range raw {
		values = append(values, interfaceToString(v))
	}
	return values
}

func interfaceToInt64(value interface{}) int64 {
	switch v := value.(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case uint64:
		return int64(v)
	}
	return 0
}

func interfaceToInt64Slice(value interface{}) []int64 {
	raw, ok := value.([]interface{})
	if !ok {
		return nil
	}
	values := make([]int64, 0, len(raw))
	for _, v := range raw {
		values = append(values, interfaceToInt64(v))
	}
	return values
}

func hexToInt64(value interface{}) int64 {
	hexString := interfaceToString(value)
	if hexString == "" {
		return 0
	}
	v, ok := new(big.Int).SetString(strings.TrimPrefix(hexString, "0x"), 16)
	if !ok {
		return 0
	}
	return v.Int64()
}

func hexToBigInt(value interface{}) *big.Int {
	hexString := interfaceToString(value)
	if hexString == "" {
		return new(big.Int)
	}
	v, ok := new(big.Int).SetString(strings.TrimPrefix(hexString, "0x"), 16)
	if !ok {
		return new(big.Int)
	}
	return v
}
