package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Scheduler metrics
var (
	IngestedBlocks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ingest_blocks_total",
		Help: "The total number of blocks ingested into the store",
	})

	LastIngestedBlock = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ingest_last_ingested_block",
		Help: "The highest block number written during this run",
	})

	WindowDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ingest_window_duration_seconds",
		Help:    "Wall time spent on one extract-transform-write window",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	})
)

// Write engine metrics
var (
	RowsWritten = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ingest_rows_written_total",
		Help: "The total number of rows written, per table",
	}, []string{"table"})

	WriteRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ingest_write_retries_total",
		Help: "The total number of row write attempts that had to be retried",
	})

	BatchResubmissions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ingest_batch_resubmissions_total",
		Help: "The number of whole-batch resubmissions after a batch level failure",
	})
)

// Extraction metrics
var LastExportedBlock = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "ingest_last_exported_block_from_rpc",
	Help: "The last block number fetched from the chain client",
})
