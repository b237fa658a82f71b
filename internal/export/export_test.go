package export

import (
	"compress/gzip"
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphsense/eth-ingest/internal/common"
	"github.com/graphsense/eth-ingest/internal/partition"
)

type fakeExtraction struct {
	latest int64
}

func (f *fakeExtraction) ExportBlocksAndTransactions(_ context.Context, startBlock, endBlock int64) ([]common.Block, []common.Transaction, error) {
	var blocks []common.Block
	var txs []common.Transaction
	for n := startBlock; n <= endBlock; n++ {
		blocks = append(blocks, common.Block{
			Number:           n,
			Hash:             fmt.Sprintf("0x%064x", n),
			TransactionCount: 1,
		})
		txs = append(txs, common.Transaction{
			Hash:        fmt.Sprintf("0x%064x", n+1_000_000),
			BlockNumber: n,
		})
	}
	return blocks, txs, nil
}

func (f *fakeExtraction) ExportReceiptsAndLogs(_ context.Context, txHashes []string) ([]common.Receipt, []common.Log, error) {
	var receipts []common.Receipt
	for _, hash := range txHashes {
		receipts = append(receipts, common.Receipt{TransactionHash: hash, Status: 1})
	}
	return receipts, nil, nil
}

func (f *fakeExtraction) ExportTraces(_ context.Context, startBlock, endBlock int64, _, _ bool) ([]common.Trace, error) {
	var traces []common.Trace
	for n := startBlock; n <= endBlock; n++ {
		traces = append(traces, common.Trace{
			BlockNumber: n,
			TraceType:   "reward",
			RewardType:  "block",
			TraceID:     fmt.Sprintf("reward_%d_0", n),
		})
	}
	return traces, nil
}

func (f *fakeExtraction) GetLatestBlockNumber(_ context.Context) (int64, error) {
	return f.latest, nil
}

func (f *fakeExtraction) Close() {}

func testExportOptions(dir string) Options {
	return Options{
		Directory:          dir,
		Format:             FormatCSV,
		BatchSize:          5,
		FileBatchSize:      10,
		PartitionBatchSize: 20,
		TxHashPrefixLen:    4,
	}
}

func TestOptionsValidate(t *testing.T) {
	opts := testExportOptions(t.TempDir())
	assert.NoError(t, opts.validate())

	bad := opts
	bad.Directory = ""
	assert.Error(t, bad.validate())

	bad = opts
	bad.Format = "xml"
	assert.Error(t, bad.validate())

	bad = opts
	bad.FileBatchSize = 12
	assert.Error(t, bad.validate(), "file batch size must be a multiple of batch size")

	bad = opts
	bad.PartitionBatchSize = 25
	assert.Error(t, bad.validate(), "partition batch size must be a multiple of file batch size")
}

func TestRunWritesPartitionedFiles(t *testing.T) {
	dir := t.TempDir()
	exporter, err := NewExporter(&fakeExtraction{}, testExportOptions(dir))
	require.NoError(t, err)

	// [0, 25] rounds down to whole file batches [0, 19]
	require.NoError(t, exporter.Run(context.Background(), 0, 25))

	part := filepath.Join(dir, "00000000-00000019")
	for _, name := range []string{
		"block_00000000-00000009.csv.gz",
		"tx_00000000-00000009.csv.gz",
		"trace_00000000-00000009.csv.gz",
		"logs_00000000-00000009.csv.gz",
		"block_00000010-00000019.csv.gz",
	} {
		_, err := os.Stat(filepath.Join(part, name))
		assert.NoError(t, err, name)
	}

	rows := readGzippedCSV(t, filepath.Join(part, "block_00000000-00000009.csv.gz"), ',')
	require.Len(t, rows, 11) // header plus ten blocks
	assert.Equal(t, blockHeader, rows[0])

	header := rows[0]
	blockID := indexOf(t, header, "block_id")
	group := indexOf(t, header, "block_id_group")
	assert.Equal(t, "0", rows[1][blockID])
	assert.Equal(t, "9", rows[10][blockID])
	// the file batch size doubles as the bucket size
	assert.Equal(t, "0", rows[10][group])
}

func TestRunNothingToExport(t *testing.T) {
	dir := t.TempDir()
	exporter, err := NewExporter(&fakeExtraction{}, testExportOptions(dir))
	require.NoError(t, err)

	// less than one whole file batch
	require.NoError(t, exporter.Run(context.Background(), 0, 5))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestResolveRangeContinues(t *testing.T) {
	dir := t.TempDir()
	exporter, err := NewExporter(&fakeExtraction{latest: 100}, testExportOptions(dir))
	require.NoError(t, err)

	require.NoError(t, exporter.Run(context.Background(), 0, 19))

	start, end, err := exporter.ResolveRange(context.Background(), 0, -1, true)
	require.NoError(t, err)
	assert.Equal(t, int64(20), start)
	assert.Equal(t, int64(100), end)
}

func TestResolveRangeEmptyDirectory(t *testing.T) {
	exporter, err := NewExporter(&fakeExtraction{latest: 50}, testExportOptions(t.TempDir()))
	require.NoError(t, err)

	start, end, err := exporter.ResolveRange(context.Background(), 7, 42, true)
	require.NoError(t, err)
	assert.Equal(t, int64(7), start)
	assert.Equal(t, int64(42), end)
}

func TestFormatTopics(t *testing.T) {
	assert.Equal(t, "[]", formatTopics(nil))
	assert.Equal(t, `["0xaa"]`, formatTopics([]string{"0xaa"}))
	assert.Equal(t, `["0xaa","0xbb"]`, formatTopics([]string{"0xaa", "0xbb"}))
}

func TestFormatTracesIndexesPerBlock(t *testing.T) {
	cfg := partition.Config{BlockBucketSize: 10, TxHashPrefixLen: 4}
	records := formatTraces([]common.Trace{
		{BlockNumber: 1, TraceType: "call"},
		{BlockNumber: 1, TraceType: "call"},
		{BlockNumber: 2, TraceType: "call"},
	}, cfg)

	require.Len(t, records, 3)
	assert.Equal(t, int64(0), records[0].TraceIndex)
	assert.Equal(t, int64(1), records[1].TraceIndex)
	assert.Equal(t, int64(0), records[2].TraceIndex)
}

func readGzippedCSV(t *testing.T, path string, comma rune) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	r := csv.NewReader(gz)
	r.Comma = comma
	rows, err := r.ReadAll()
	require.NoError(t, err)
	return rows
}

func indexOf(t *testing.T, header []string, column string) int {
	t.Helper()
	for i, name := range header {
		if name == column {
			return i
		}
	}
	t.Fatalf("column %q not in header", column)
	return -1
}
