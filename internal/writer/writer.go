package writer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"github.com/graphsense/eth-ingest/internal/metrics"
	"github.com/graphsense/eth-ingest/internal/storage"
)

// ErrRetryBudgetExhausted is returned when write attempts keep failing
// consecutively beyond the configured budget. It wraps the last underlying
// store error.
var ErrRetryBudgetExhausted = errors.New("write retry budget exhausted")

// RetryPolicy bounds the failure handling of one batch write. MaxRetries is
// consumed by consecutive failed attempts only; any successful write resets
// the counter.
type RetryPolicy struct {
	MaxRetries int
	Backoff    time.Duration
}

// Engine writes row sets with bounded concurrency. Concurrency caps the
// number of in-flight write operations, it is not a fixed worker count.
type Engine struct {
	store       storage.RowWriter
	concurrency int64
	policy      RetryPolicy
}

func NewEngine(store storage.RowWriter, concurrency int, policy RetryPolicy) *Engine {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Engine{
		store:       store,
		concurrency: int64(concurrency),
		policy:      policy,
	}
}

type rowFailure struct {
	row interface{}
	err error
}

// WriteBatch writes all rows of one table batch. Rows that fail inside a
// concurrent pass are retried one at a time; a failure of the whole
// submission backs off and resubmits the entire batch (writes are upserts,
// so resubmitting already written rows is safe). Both paths consume the same
// consecutive-failure budget.
func (e *Engine) WriteBatch(ctx context.Context, table string, rows []interface{}) error {
	if len(rows) == 0 {
		return nil
	}

	consecutive := 0
	for {
		failures, batchErr := e.submit(ctx, table, rows)
		if batchErr == nil && len(failures) == len(rows) && len(rows) > 1 {
			// every row failed, treat as cluster-level outage
			batchErr = failures[0].err
		}
		if batchErr != nil {
			consecutive++
			if consecutive > e.policy.MaxRetries {
				return fmt.Errorf("%w: %v", ErrRetryBudgetExhausted, batchErr)
			}
			metrics.BatchResubmissions.Inc()
			log.Warn().Err(batchErr).Str("table", table).Int("attempt", consecutive).
				Msgf("Batch write failed, resubmitting %d rows after backoff", len(rows))
			time.Sleep(e.policy.Backoff)
			continue
		}

		for _, failure := range failures {
			lastErr := failure.err
			consecutive++
			for {
				if consecutive > e.policy.MaxRetries {
					return fmt.Errorf("%w: %v", ErrRetryBudgetExhausted, lastErr)
				}
				metrics.WriteRetries.Inc()
				if err := e.store.WriteRow(ctx, table, failure.row); err != nil {
					lastErr = err
					consecutive++
					continue
				}
				consecutive = 0
				break
			}
		}

		metrics.RowsWritten.WithLabelValues(table).Add(float64(len(rows)))
		return nil
	}
}

// submit runs one concurrent pass over all rows and reports the rows whose
// write failed. A non-nil error means the submission itself broke down.
func (e *Engine) submit(ctx context.Context, table string, rows []interface{}) ([]rowFailure, error) {
	sem := semaphore.NewWeighted(e.concurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var failures []rowFailure

	for _, row := range rows {
		if err := sem.Acquire(ctx, 1); err != nil {
			wg.Wait()
			return nil, err
		}
		wg.Add(1)
		go func(row interface{}) {
			defer wg.Done()
			defer sem.Release(1)
			if err := e.store.WriteRow(ctx, table, row); err != nil {
				mu.Lock()
				failures = append(failures, rowFailure{row: row, err: err})
				mu.Unlock()
			}
		}(row)
	}
	wg.Wait()
	return failures, nil
}
