package transform

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphsense/eth-ingest/internal/common"
	"github.com/graphsense/eth-ingest/internal/partition"
)

var testPartition = partition.Config{BlockBucketSize: 1000, TxHashPrefixLen: 4}

func TestBlockRow(t *testing.T) {
	tr := NewTransformer(testPartition)

	row, err := tr.BlockRow(&common.Block{
		Number:           2500,
		Hash:             "0xab12",
		ParentHash:       "0xcd34",
		Miner:            "0x0000000000000000000000000000000000000001",
		Difficulty:       big.NewInt(17_171_480_576),
		TotalDifficulty:  big.NewInt(34_351_349_760),
		Size:             541,
		GasLimit:         5000,
		GasUsed:          21000,
		Timestamp:        1438270128,
		TransactionCount: 1,
	})
	require.NoError(t, err)

	assert.Equal(t, int64(2), row.BlockIDGroup)
	assert.Equal(t, int64(2500), row.BlockID)
	assert.Equal(t, []byte{0xab, 0x12}, row.BlockHash)
	assert.Equal(t, []byte{0xcd, 0x34}, row.ParentHash)
	assert.Equal(t, big.NewInt(17_171_480_576), row.Difficulty)
	assert.Equal(t, 1, row.TransactionCount)
	// absent hex fields become nil blobs
	assert.Nil(t, row.Nonce)
	assert.Nil(t, row.ExtraData)
}

func TestBlockRowWithoutHash(t *testing.T) {
	tr := NewTransformer(testPartition)

	_, err := tr.BlockRow(&common.Block{Number: 7})
	assert.ErrorIs(t, err, ErrMalformedRecord)
}

func TestBlockRowInvalidHex(t *testing.T) {
	tr := NewTransformer(testPartition)

	_, err := tr.BlockRow(&common.Block{Number: 7, Hash: "0xzz"})
	assert.ErrorIs(t, err, ErrMalformedRecord)
}

func TestBlockRowOddLengthHex(t *testing.T) {
	tr := NewTransformer(testPartition)

	row, err := tr.BlockRow(&common.Block{Number: 7, Hash: "0xabc"})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x0a, 0xbc}, row.BlockHash)
}

func TestTransactionRow(t *testing.T) {
	tr := NewTransformer(testPartition)

	row, err := tr.TransactionRow(&common.EnrichedTransaction{
		Transaction: common.Transaction{
			Hash:             "0xab12cd34ef56",
			Nonce:            3,
			BlockHash:        "0xff00",
			BlockNumber:      1500,
			BlockTimestamp:   1438270128,
			TransactionIndex: 0,
			FromAddress:      "0x000000000000000000000000000000000000dead",
			ToAddress:        "0x000000000000000000000000000000000000beef",
			Value:            big.NewInt(1_000_000),
			Gas:              21000,
			GasPrice:         50_000_000_000,
		},
		ReceiptGasUsed: 21000,
		ReceiptStatus:  1,
	})
	require.NoError(t, err)

	assert.Equal(t, "ab12", row.TxHashPrefix)
	assert.Equal(t, []byte{0xab, 0x12, 0xcd, 0x34, 0xef, 0x56}, row.TxHash)
	assert.Equal(t, int64(1500), row.BlockID)
	assert.Equal(t, int64(1438270128), row.BlockTimestamp)
	assert.Equal(t, int64(1), row.ReceiptStatus)
	assert.Nil(t, row.ReceiptContractAddress)
}

func TestTraceRow(t *testing.T) {
	tr := NewTransformer(testPartition)

	row, err := tr.TraceRow(&common.Trace{
		BlockNumber:     999,
		TransactionHash: "0xab",
		TraceType:       "call",
		CallType:        "call",
		TraceAddress:    []int64{0, 1, 2},
		Status:          1,
		TraceID:         "call_0xab_0_1_2",
		Value:           big.NewInt(0),
	})
	require.NoError(t, err)

	assert.Equal(t, int64(0), row.BlockIDGroup)
	require.NotNil(t, row.TraceAddress)
	assert.Equal(t, "0|1|2", *row.TraceAddress)
	assert.Equal(t, "call_0xab_0_1_2", row.TraceID)
}

func TestTraceRowNilTraceAddress(t *testing.T) {
	tr := NewTransformer(testPartition)

	// reward traces carry no trace address and must leave the column unset
	row, err := tr.TraceRow(&common.Trace{
		BlockNumber: 0,
		TraceType:   "reward",
		RewardType:  "block",
		TraceID:     "reward_0_0",
	})
	require.NoError(t, err)
	assert.Nil(t, row.TraceAddress)
}

func TestTraceRowRootCallTraceAddress(t *testing.T) {
	tr := NewTransformer(testPartition)

	// a root call has an empty path, distinct from an absent one
	row, err := tr.TraceRow(&common.Trace{
		BlockNumber:     1,
		TransactionHash: "0xab",
		TraceType:       "call",
		CallType:        "call",
		TraceAddress:    []int64{},
		Status:          1,
		TraceID:         "call_0xab_",
		Value:           big.NewInt(0),
	})
	require.NoError(t, err)
	require.NotNil(t, row.TraceAddress)
	assert.Equal(t, "", *row.TraceAddress)
}

func TestTraceRowWithoutType(t *testing.T) {
	tr := NewTransformer(testPartition)

	_, err := tr.TraceRow(&common.Trace{BlockNumber: 1})
	assert.ErrorIs(t, err, ErrMalformedRecord)
}

func TestLogRow(t *testing.T) {
	tr := NewTransformer(testPartition)

	topics := []string{"0xaa01", "0xbb02"}
	row, err := tr.LogRow(&common.Log{
		BlockNumber:     2000,
		BlockHash:       "0x01",
		TransactionHash: "0x02",
		LogIndex:        5,
		Address:         "0x000000000000000000000000000000000000cafe",
		Data:            "0x00",
		Topics:          topics,
	})
	require.NoError(t, err)

	assert.Equal(t, int64(2), row.BlockIDGroup)
	assert.Equal(t, int64(5), row.LogIndex)
	assert.Equal(t, topics, row.Topics)
	assert.Equal(t, []byte{0xaa, 0x01}, row.Topic0)
}

func TestLogRowTopic0Sentinel(t *testing.T) {
	tr := NewTransformer(testPartition)

	row, err := tr.LogRow(&common.Log{
		BlockNumber: 1,
		Address:     "0x000000000000000000000000000000000000cafe",
	})
	require.NoError(t, err)
	// no topics: topic0 falls back to the zero address so the column is set
	assert.Equal(t, make([]byte, 20), row.Topic0)
}

func TestTopic0(t *testing.T) {
	assert.Equal(t, ZeroAddress, Topic0(nil))
	assert.Equal(t, ZeroAddress, Topic0([]string{}))
	assert.Equal(t, "0xaa", Topic0([]string{"0xaa", "0xbb"}))
}

func TestJoinTraceAddress(t *testing.T) {
	assert.Equal(t, "", JoinTraceAddress(nil))
	assert.Equal(t, "", JoinTraceAddress([]int64{}))
	assert.Equal(t, "0", JoinTraceAddress([]int64{0}))
	assert.Equal(t, "0|1|12", JoinTraceAddress([]int64{0, 1, 12}))
}

func TestWindow(t *testing.T) {
	tr := NewTransformer(testPartition)

	rows, err := tr.Window(
		[]common.Block{{Number: 100, Hash: "0xab"}},
		[]common.EnrichedTransaction{{Transaction: common.Transaction{Hash: "0xcd", BlockNumber: 100}}},
		[]common.Trace{{BlockNumber: 100, TraceType: "call", TraceID: "call_0xcd_"}},
		[]common.Log{{BlockNumber: 100, Address: "0xee", LogIndex: 0}},
	)
	require.NoError(t, err)

	require.Len(t, rows.Blocks, 1)
	require.Len(t, rows.Transactions, 1)
	require.Len(t, rows.Traces, 1)
	require.Len(t, rows.Logs, 1)
	assert.Equal(t, int64(100), rows.Blocks[0].BlockID)
	assert.Equal(t, int64(0), rows.Blocks[0].BlockIDGroup)
	assert.Equal(t, []byte{0xab}, rows.Blocks[0].BlockHash)
}

func TestWindowPropagatesMalformedRecords(t *testing.T) {
	tr := NewTransformer(testPartition)

	_, err := tr.Window([]common.Block{{Number: 100}}, nil, nil, nil)
	assert.ErrorIs(t, err, ErrMalformedRecord)
}
