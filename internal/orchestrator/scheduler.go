package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	config "github.com/graphsense/eth-ingest/configs"
	"github.com/graphsense/eth-ingest/internal/common"
	"github.com/graphsense/eth-ingest/internal/metrics"
	"github.com/graphsense/eth-ingest/internal/partition"
	"github.com/graphsense/eth-ingest/internal/rpc"
	"github.com/graphsense/eth-ingest/internal/storage"
	"github.com/graphsense/eth-ingest/internal/transform"
	"github.com/graphsense/eth-ingest/internal/writer"
)

// throughputInterval is the number of ingested blocks between throughput
// log lines.
const throughputInterval = 1000

// Options carries everything a run needs besides its block range.
type Options struct {
	Partition        partition.Config
	BatchSize        int64
	WriteConcurrency int
	Retry            writer.RetryPolicy
	Traces           config.TracesConfig
	DryRun           bool
}

// OptionsFromConfig builds run options from the loaded configuration.
func OptionsFromConfig() Options {
	return Options{
		Partition: partition.Config{
			BlockBucketSize: config.Cfg.Partition.BlockBucketSize,
			TxHashPrefixLen: config.Cfg.Partition.TxHashPrefixLen,
		},
		BatchSize:        config.Cfg.Ingest.BatchSize,
		WriteConcurrency: config.Cfg.Ingest.WriteConcurrency,
		Retry: writer.RetryPolicy{
			MaxRetries: config.Cfg.Ingest.MaxRetries,
			Backoff:    time.Duration(config.Cfg.Ingest.RetryBackoffMs) * time.Millisecond,
		},
		Traces: config.Cfg.Traces,
		DryRun: config.Cfg.Ingest.DryRun,
	}
}

// Scheduler drives an ingest run: it cuts the block range into fixed windows
// and pushes each window through extraction, enrichment, transformation and
// the write engine, strictly in order.
type Scheduler struct {
	extraction  rpc.ExtractionService
	store       storage.Store
	engine      *writer.Engine
	transformer *transform.Transformer
	opts        Options
}

func NewScheduler(extraction rpc.ExtractionService, store storage.Store, opts Options) (*Scheduler, error) {
	if err := opts.Partition.Validate(); err != nil {
		return nil, err
	}
	if opts.BatchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", opts.BatchSize)
	}
	return &Scheduler{
		extraction:  extraction,
		store:       store,
		engine:      writer.NewEngine(store, opts.WriteConcurrency, opts.Retry),
		transformer: transform.NewTransformer(opts.Partition),
		opts:        opts,
	}, nil
}

// ResolveRange turns the configured start and end block into the concrete
// range of this run. With resume enabled the start block continues one past
// the highest fully ingested block. A negative end block means the current
// chain head.
func (s *Scheduler) ResolveRange(ctx context.Context, startBlock, endBlock int64, resume bool) (int64, int64, error) {
	if resume {
		checkpoint, ok, err := s.store.LastIngestedBlock(ctx, storage.TableBlock)
		if err != nil {
			return 0, 0, fmt.Errorf("error resolving checkpoint: %w", err)
		}
		if ok && checkpoint+1 > startBlock {
			startBlock = checkpoint + 1
			log.Info().Int64("checkpoint", checkpoint).Msgf("Resuming ingest at block %d", startBlock)
		}
	}
	if endBlock < 0 {
		latest, err := s.extraction.GetLatestBlockNumber(ctx)
		if err != nil {
			return 0, 0, err
		}
		endBlock = latest
		log.Info().Msgf("Using latest block %d as end of range", endBlock)
	}
	return startBlock, endBlock, nil
}

// Run ingests the inclusive block range [startBlock, endBlock]. Windows are
// processed sequentially; the write order inside a window keeps the block
// table last so that its checkpoint only ever names fully ingested windows.
func (s *Scheduler) Run(ctx context.Context, startBlock, endBlock int64) error {
	if startBlock > endBlock {
		log.Info().Msgf("Nothing to ingest, start block %d is past end block %d", startBlock, endBlock)
		return nil
	}
	if err := storage.ValidateConfiguration(ctx, s.store, s.opts.Partition); err != nil {
		return err
	}

	log.Info().
		Int64("start", startBlock).
		Int64("end", endBlock).
		Int64("batch_size", s.opts.BatchSize).
		Bool("dry_run", s.opts.DryRun).
		Msg("Starting ingest")

	ingested := int64(0)
	reported := int64(0)
	lastReport := time.Now()
	for windowStart := startBlock; windowStart <= endBlock; windowStart += s.opts.BatchSize {
		windowEnd := windowStart + s.opts.BatchSize - 1
		if windowEnd > endBlock {
			windowEnd = endBlock
		}

		windowBegan := time.Now()
		if err := s.ingestWindow(ctx, windowStart, windowEnd); err != nil {
			return fmt.Errorf("error ingesting window [%d, %d]: %w", windowStart, windowEnd, err)
		}
		metrics.WindowDurationSeconds.Observe(time.Since(windowBegan).Seconds())
		metrics.IngestedBlocks.Add(float64(windowEnd - windowStart + 1))
		metrics.LastIngestedBlock.Set(float64(windowEnd))

		ingested += windowEnd - windowStart + 1
		if ingested-reported >= throughputInterval {
			elapsed := time.Since(lastReport).Seconds()
			log.Info().Msgf("Ingested block %d, %.1f blocks/s", windowEnd,
				float64(ingested-reported)/elapsed)
			reported = ingested
			lastReport = time.Now()
		}
	}

	if !s.opts.DryRun {
		if err := s.store.RecordConfiguration(ctx, s.opts.Partition); err != nil {
			return fmt.Errorf("error recording configuration: %w", err)
		}
	}
	log.Info().Msgf("Ingested %d blocks, last block %d", ingested, endBlock)
	return nil
}

func (s *Scheduler) ingestWindow(ctx context.Context, startBlock, endBlock int64) error {
	blocks, txs, err := s.extraction.ExportBlocksAndTransactions(ctx, startBlock, endBlock)
	if err != nil {
		return err
	}

	txHashes := make([]string, len(txs))
	for i := range txs {
		txHashes[i] = txs[i].Hash
	}
	receipts, logs, err := s.extraction.ExportReceiptsAndLogs(ctx, txHashes)
	if err != nil {
		return err
	}

	var traces []common.Trace
	if s.opts.Traces.Enabled {
		traces, err = s.extraction.ExportTraces(ctx, startBlock, endBlock,
			s.opts.Traces.IncludeGenesis, s.opts.Traces.IncludeDaoFork)
		if err != nil {
			return err
		}
		traces = filterTraces(traces, s.opts.Traces)
	}

	enriched, err := common.EnrichTransactions(txs, receipts)
	if err != nil {
		return err
	}

	rows, err := s.transformer.Window(blocks, enriched, traces, logs)
	if err != nil {
		return err
	}

	log.Debug().
		Int64("start", startBlock).
		Int64("end", endBlock).
		Int("transactions", len(rows.Transactions)).
		Int("traces", len(rows.Traces)).
		Int("logs", len(rows.Logs)).
		Msg("Writing window")

	if s.opts.DryRun {
		return nil
	}
	return s.writeWindow(ctx, rows)
}

// writeWindow persists one window, block rows last.
func (s *Scheduler) writeWindow(ctx context.Context, rows *transform.TableRows) error {
	if err := s.engine.WriteBatch(ctx, storage.TableLog, asRows(rows.Logs)); err != nil {
		return err
	}
	if err := s.engine.WriteBatch(ctx, storage.TableTrace, asRows(rows.Traces)); err != nil {
		return err
	}
	if err := s.engine.WriteBatch(ctx, storage.TableTransaction, asRows(rows.Transactions)); err != nil {
		return err
	}
	return s.engine.WriteBatch(ctx, storage.TableBlock, asRows(rows.Blocks))
}

func asRows[T any](rows []*T) []interface{} {
	out := make([]interface{}, len(rows))
	for i, row := range rows {
		out[i] = row
	}
	return out
}

// filterTraces applies the configured trace exclusions.
func filterTraces(traces []common.Trace, cfg config.TracesConfig) []common.Trace {
	if !cfg.OnlySuccessful && !cfg.ExcludeDelegate {
		return traces
	}
	filtered := make([]common.Trace, 0, len(traces))
	for _, trace := range traces {
		if cfg.OnlySuccessful && trace.Status != 1 {
			continue
		}
		if cfg.ExcludeDelegate && isDelegated(trace.CallType) {
			continue
		}
		filtered = append(filtered, trace)
	}
	return filtered
}

func isDelegated(callType string) bool {
	switch callType {
	case "delegatecall", "callcode", "staticcall":
		return true
	}
	return false
}
