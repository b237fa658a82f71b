package partition

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidBucketSize = errors.New("block bucket size must be positive")
	ErrInvalidPrefixLen  = errors.New("tx hash prefix length must be positive")
)

// Config carries the partitioning parameters of one keyspace. They are chosen
// at first ingestion and must never change afterwards, otherwise partition
// locality of already written rows silently breaks.
type Config struct {
	BlockBucketSize int64
	TxHashPrefixLen int
}

func (c Config) Validate() error {
	if c.BlockBucketSize <= 0 {
		return ErrInvalidBucketSize
	}
	if c.TxHashPrefixLen <= 0 {
		return ErrInvalidPrefixLen
	}
	return nil
}

// BucketID maps a block number to its partition group.
func (c Config) BucketID(blockID int64) int64 {
	return blockID / c.BlockBucketSize
}

// TxHashPrefix returns the shard key derived from a transaction hash: the
// first TxHashPrefixLen hex characters after the 0x marker.
func (c Config) TxHashPrefix(txHash string) string {
	h := strings.TrimPrefix(txHash, "0x")
	if len(h) < c.TxHashPrefixLen {
		return h
	}
	return h[:c.TxHashPrefixLen]
}

func (c Config) String() string {
	return fmt.Sprintf("bucket_size=%d prefix_len=%d", c.BlockBucketSize, c.TxHashPrefixLen)
}
