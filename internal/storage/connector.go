package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/graphsense/eth-ingest/internal/partition"
)

const (
	TableBlock         = "block"
	TableTransaction   = "transaction"
	TableTrace         = "trace"
	TableLog           = "log"
	TableConfiguration = "configuration"
)

// ErrConfigurationMismatch signals that the partitioning parameters of this
// run disagree with the configuration previously recorded for the keyspace.
// Ingesting with different parameters would corrupt partition locality, so
// this is rejected before the first write.
var ErrConfigurationMismatch = errors.New("partitioning configuration mismatch")

// RowWriter writes a single row of one table. Writes are upserts: writing
// the same row twice leaves the store unchanged.
type RowWriter interface {
	WriteRow(ctx context.Context, table string, row interface{}) error
}

// Store is the column store handle shared across a whole run. One long-lived
// session serves both checkpoint reads and concurrent writes.
type Store interface {
	RowWriter

	// LastIngestedBlock resolves the checkpoint of a bucket-partitioned
	// table: the maximum block id within the highest bucket group present.
	// ok is false for an empty table.
	LastIngestedBlock(ctx context.Context, table string) (blockID int64, ok bool, err error)

	RecordConfiguration(ctx context.Context, cfg partition.Config) error
	ReadConfiguration(ctx context.Context) (cfg partition.Config, ok bool, err error)

	Close()
}

// ValidateConfiguration compares the run's partitioning parameters against a
// previously recorded configuration, if any. Called before the first write.
func ValidateConfiguration(ctx context.Context, s Store, cfg partition.Config) error {
	recorded, ok, err := s.ReadConfiguration(ctx)
	if err != nil {
		return fmt.Errorf("error reading recorded configuration: %w", err)
	}
	if !ok {
		return nil
	}
	if recorded != cfg {
		return fmt.Errorf("%w: recorded %s, configured %s", ErrConfigurationMismatch, recorded, cfg)
	}
	return nil
}
