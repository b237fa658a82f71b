package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphsense/eth-ingest/internal/partition"
	"github.com/graphsense/eth-ingest/internal/transform"
)

func TestMemoryStoreUpsert(t *testing.T) {
	store, err := NewMemoryStore(100)
	require.NoError(t, err)
	ctx := context.Background()

	row := &transform.BlockRow{BlockIDGroup: 0, BlockID: 7}
	require.NoError(t, store.WriteRow(ctx, TableBlock, row))
	require.NoError(t, store.WriteRow(ctx, TableBlock, row))

	assert.Equal(t, 1, store.RowCount(TableBlock))
}

func TestMemoryStoreRejectsUnknownRows(t *testing.T) {
	store, err := NewMemoryStore(100)
	require.NoError(t, err)

	assert.Error(t, store.WriteRow(context.Background(), TableBlock, "not a row"))
}

func TestMemoryStoreLastIngestedBlock(t *testing.T) {
	store, err := NewMemoryStore(100)
	require.NoError(t, err)
	ctx := context.Background()

	_, ok, err := store.LastIngestedBlock(ctx, TableBlock)
	require.NoError(t, err)
	assert.False(t, ok)

	for _, blockID := range []int64{0, 999, 1000, 1500} {
		require.NoError(t, store.WriteRow(ctx, TableBlock, &transform.BlockRow{
			BlockIDGroup: blockID / 1000,
			BlockID:      blockID,
		}))
	}

	// only the highest bucket group is consulted
	checkpoint, ok, err := store.LastIngestedBlock(ctx, TableBlock)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(1500), checkpoint)
}

func TestMemoryStoreCheckpointAtBlockZero(t *testing.T) {
	store, err := NewMemoryStore(100)
	require.NoError(t, err)
	ctx := context.Background()

	// the genesis block alone must already move the checkpoint
	require.NoError(t, store.WriteRow(ctx, TableBlock, &transform.BlockRow{
		BlockIDGroup: 0,
		BlockID:      0,
	}))

	checkpoint, ok, err := store.LastIngestedBlock(ctx, TableBlock)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(0), checkpoint)
}

func TestMemoryStoreBucketGroups(t *testing.T) {
	store, err := NewMemoryStore(100)
	require.NoError(t, err)
	ctx := context.Background()

	assert.Empty(t, store.BucketGroups(TableBlock))

	for _, blockID := range []int64{0, 1500, 2200} {
		require.NoError(t, store.WriteRow(ctx, TableBlock, &transform.BlockRow{
			BlockIDGroup: blockID / 1000,
			BlockID:      blockID,
		}))
	}
	assert.ElementsMatch(t, []int64{0, 1, 2}, store.BucketGroups(TableBlock))
}

func TestMemoryStoreConfiguration(t *testing.T) {
	store, err := NewMemoryStore(100)
	require.NoError(t, err)
	ctx := context.Background()

	_, ok, err := store.ReadConfiguration(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	cfg := partition.Config{BlockBucketSize: 1000, TxHashPrefixLen: 4}
	require.NoError(t, store.RecordConfiguration(ctx, cfg))

	read, ok, err := store.ReadConfiguration(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, cfg, read)
}

func TestValidateConfiguration(t *testing.T) {
	store, err := NewMemoryStore(100)
	require.NoError(t, err)
	ctx := context.Background()
	cfg := partition.Config{BlockBucketSize: 1000, TxHashPrefixLen: 4}

	// nothing recorded yet: any configuration is acceptable
	require.NoError(t, ValidateConfiguration(ctx, store, cfg))

	require.NoError(t, store.RecordConfiguration(ctx, cfg))
	require.NoError(t, ValidateConfiguration(ctx, store, cfg))

	other := partition.Config{BlockBucketSize: 500, TxHashPrefixLen: 4}
	assert.ErrorIs(t, ValidateConfiguration(ctx, store, other), ErrConfigurationMismatch)
}
