// Package export writes block ranges to partitioned file sets instead of the
// column store. Files carry the same formatted records as the store tables,
// one file batch per file and one directory per partition batch.
package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	config "github.com/graphsense/eth-ingest/configs"
	"github.com/graphsense/eth-ingest/internal/common"
	"github.com/graphsense/eth-ingest/internal/metrics"
	"github.com/graphsense/eth-ingest/internal/partition"
	"github.com/graphsense/eth-ingest/internal/rpc"
)

const (
	FormatCSV     = "csv"
	FormatParquet = "parquet"
)

// Options carries everything an export run needs besides its block range.
type Options struct {
	Directory          string
	Format             string
	BatchSize          int64
	FileBatchSize      int64
	PartitionBatchSize int64
	TxHashPrefixLen    int
	Traces             config.TracesConfig
}

// OptionsFromConfig builds export options from the loaded configuration.
func OptionsFromConfig() Options {
	return Options{
		Directory:          config.Cfg.Export.Directory,
		Format:             config.Cfg.Export.Format,
		BatchSize:          config.Cfg.Ingest.BatchSize,
		FileBatchSize:      config.Cfg.Export.FileBatchSize,
		PartitionBatchSize: config.Cfg.Export.PartitionBatchSize,
		TxHashPrefixLen:    config.Cfg.Partition.TxHashPrefixLen,
		Traces:             config.Cfg.Traces,
	}
}

func (o Options) validate() error {
	if o.Directory == "" {
		return fmt.Errorf("export directory is not set")
	}
	if o.Format != FormatCSV && o.Format != FormatParquet {
		return fmt.Errorf("unsupported export format %q", o.Format)
	}
	if o.BatchSize <= 0 || o.FileBatchSize <= 0 || o.PartitionBatchSize <= 0 {
		return fmt.Errorf("batch sizes must be positive")
	}
	if o.FileBatchSize%o.BatchSize != 0 {
		return fmt.Errorf("file batch size %d is not a multiple of batch size %d",
			o.FileBatchSize, o.BatchSize)
	}
	if o.PartitionBatchSize%o.FileBatchSize != 0 {
		return fmt.Errorf("partition batch size %d is not a multiple of file batch size %d",
			o.PartitionBatchSize, o.FileBatchSize)
	}
	return nil
}

// Exporter streams extraction windows into file batches. The file batch size
// doubles as the block bucket size of the formatted records, so a file always
// holds exactly the buckets it is named after.
type Exporter struct {
	extraction rpc.ExtractionService
	opts       Options
	partition  partition.Config
}

func NewExporter(extraction rpc.ExtractionService, opts Options) (*Exporter, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	cfg := partition.Config{
		BlockBucketSize: opts.FileBatchSize,
		TxHashPrefixLen: opts.TxHashPrefixLen,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Exporter{extraction: extraction, opts: opts, partition: cfg}, nil
}

var fileRangePattern = regexp.MustCompile(`-(\d+)`)

// ResolveRange turns the configured start and end block into the concrete
// range of this run. With continueExport the start block continues one past
// the last block file found under the export directory. A negative end block
// means the current chain head.
func (e *Exporter) ResolveRange(ctx context.Context, startBlock, endBlock int64, continueExport bool) (int64, int64, error) {
	if continueExport {
		last, ok, err := lastExportedBlock(e.opts.Directory)
		if err != nil {
			return 0, 0, err
		}
		if ok && last+1 > startBlock {
			startBlock = last + 1
			log.Info().Int64("last_exported", last).Msgf("Continuing export at block %d", startBlock)
		}
	}
	if endBlock < 0 {
		latest, err := e.extraction.GetLatestBlockNumber(ctx)
		if err != nil {
			return 0, 0, err
		}
		endBlock = latest
		log.Info().Msgf("Using latest block %d as end of range", endBlock)
	}
	return startBlock, endBlock, nil
}

// lastExportedBlock scans the export directory for block files and returns
// the upper bound of the last one.
func lastExportedBlock(dir string) (int64, bool, error) {
	var blockFiles []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && fileRangePattern.MatchString(d.Name()) &&
			len(d.Name()) > 5 && d.Name()[:5] == "block" {
			blockFiles = append(blockFiles, path)
		}
		return nil
	})
	if os.IsNotExist(err) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("error scanning export directory: %w", err)
	}
	if len(blockFiles) == 0 {
		return 0, false, nil
	}
	sort.Strings(blockFiles)
	last := filepath.Base(blockFiles[len(blockFiles)-1])
	matches := fileRangePattern.FindAllStringSubmatch(last, -1)
	blockID, err := strconv.ParseInt(matches[len(matches)-1][1], 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("cannot parse block range from file name %q", last)
	}
	log.Info().Msgf("Last exported file: %s", last)
	return blockID, true, nil
}

// Run exports the block range [startBlock, endBlock], rounded to whole file
// batches. Partial file batches at either end are skipped so that every
// emitted file covers its full named range.
func (e *Exporter) Run(ctx context.Context, startBlock, endBlock int64) error {
	fbs := e.opts.FileBatchSize
	roundedStart := startBlock / fbs * fbs
	roundedEnd := (endBlock+1)/fbs*fbs - 1
	if roundedStart > roundedEnd {
		log.Info().Msg("No blocks to export")
		return nil
	}
	if err := os.MkdirAll(e.opts.Directory, 0o755); err != nil {
		return err
	}

	log.Info().
		Int64("start", roundedStart).
		Int64("end", roundedEnd).
		Str("format", e.opts.Format).
		Msgf("Exporting to %s", e.opts.Directory)

	exported := int64(0)
	reported := int64(0)
	lastReport := time.Now()
	for fileStart := roundedStart; fileStart <= roundedEnd; fileStart += fbs {
		fileEnd := fileStart + fbs - 1
		if err := e.exportFileBatch(ctx, fileStart, fileEnd); err != nil {
			return fmt.Errorf("error exporting blocks [%d, %d]: %w", fileStart, fileEnd, err)
		}
		metrics.LastExportedBlock.Set(float64(fileEnd))

		exported += fbs
		if exported-reported >= 1000 {
			elapsed := time.Since(lastReport).Seconds()
			log.Info().Msgf("Exported block %d, %.1f blocks/s", fileEnd,
				float64(exported-reported)/elapsed)
			reported = exported
			lastReport = time.Now()
		}
	}

	log.Info().Msgf("Exported block range %d:%d", roundedStart, roundedEnd)
	return nil
}

// exportFileBatch extracts one file batch worth of blocks window by window
// and writes the four table files of the batch.
func (e *Exporter) exportFileBatch(ctx context.Context, fileStart, fileEnd int64) error {
	var (
		blockRecords []BlockRecord
		txRecords    []TransactionRecord
		traceRecords []TraceRecord
		logRecords   []LogRecord
	)

	for windowStart := fileStart; windowStart <= fileEnd; windowStart += e.opts.BatchSize {
		windowEnd := windowStart + e.opts.BatchSize - 1
		if windowEnd > fileEnd {
			windowEnd = fileEnd
		}

		blocks, txs, err := e.extraction.ExportBlocksAndTransactions(ctx, windowStart, windowEnd)
		if err != nil {
			return err
		}
		txHashes := make([]string, len(txs))
		for i := range txs {
			txHashes[i] = txs[i].Hash
		}
		receipts, logs, err := e.extraction.ExportReceiptsAndLogs(ctx, txHashes)
		if err != nil {
			return err
		}
		var traces []common.Trace
		if e.opts.Traces.Enabled {
			traces, err = e.extraction.ExportTraces(ctx, windowStart, windowEnd,
				e.opts.Traces.IncludeGenesis, e.opts.Traces.IncludeDaoFork)
			if err != nil {
				return err
			}
		}
		enriched, err := common.EnrichTransactions(txs, receipts)
		if err != nil {
			return err
		}

		blockRecords = append(blockRecords, formatBlocks(blocks, e.partition)...)
		txRecords = append(txRecords, formatTransactions(enriched, e.partition)...)
		traceRecords = append(traceRecords, formatTraces(traces, e.partition)...)
		logRecords = append(logRecords, formatLogs(logs, e.partition)...)
	}

	dir, err := e.partitionDir(fileStart)
	if err != nil {
		return err
	}
	if err := writeTable(e, filepath.Join(dir, e.fileName("trace", fileStart, fileEnd)), traceHeader, traceRecords, ','); err != nil {
		return err
	}
	if err := writeTable(e, filepath.Join(dir, e.fileName("tx", fileStart, fileEnd)), txHeader, txRecords, ','); err != nil {
		return err
	}
	if err := writeTable(e, filepath.Join(dir, e.fileName("block", fileStart, fileEnd)), blockHeader, blockRecords, ','); err != nil {
		return err
	}
	// logs carry JSON-ish topic lists, the pipe delimiter keeps them unquoted
	return writeTable(e, filepath.Join(dir, e.fileName("logs", fileStart, fileEnd)), logsHeader, logRecords, '|')
}

func (e *Exporter) partitionDir(fileStart int64) (string, error) {
	partitionStart := fileStart - fileStart%e.opts.PartitionBatchSize
	partitionEnd := partitionStart + e.opts.PartitionBatchSize - 1
	dir := filepath.Join(e.opts.Directory, fmt.Sprintf("%08d-%08d", partitionStart, partitionEnd))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

func (e *Exporter) fileName(table string, fileStart, fileEnd int64) string {
	ext := ".csv.gz"
	if e.opts.Format == FormatParquet {
		ext = ".parquet"
	}
	return fmt.Sprintf("%s_%08d-%08d%s", table, fileStart, fileEnd, ext)
}

func writeTable[T csvRecord](e *Exporter, path string, header []string, rows []T, comma rune) error {
	if e.opts.Format == FormatParquet {
		return writeParquet(path, rows)
	}
	return writeCSV(path, header, rows, comma)
}
