package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gocql/gocql"
	"github.com/scylladb/gocqlx/v2"
	"github.com/scylladb/gocqlx/v2/table"

	config "github.com/graphsense/eth-ingest/configs"
	"github.com/graphsense/eth-ingest/internal/partition"
)

var blockMetadata = table.Metadata{
	Name: TableBlock,
	Columns: []string{
		"block_id_group", "block_id", "block_hash", "parent_hash", "nonce",
		"sha3_uncles", "logs_bloom", "transactions_root", "state_root",
		"receipts_root", "miner", "difficulty", "total_difficulty", "size",
		"extra_data", "gas_limit", "gas_used", "timestamp",
		"transaction_count", "base_fee_per_gas",
	},
	PartKey: []string{"block_id_group"},
	SortKey: []string{"block_id"},
}

var transactionMetadata = table.Metadata{
	Name: TableTransaction,
	Columns: []string{
		"tx_hash_prefix", "tx_hash", "nonce", "transaction_index",
		"from_address", "to_address", "value", "gas", "gas_price", "input",
		"block_timestamp", "block_id", "block_hash", "max_fee_per_gas",
		"max_priority_fee_per_gas", "transaction_type",
		"receipt_cumulative_gas_used", "receipt_gas_used",
		"receipt_contract_address", "receipt_root", "receipt_status",
		"receipt_effective_gas_price",
	},
	PartKey: []string{"tx_hash_prefix"},
	SortKey: []string{"tx_hash"},
}

var traceMetadata = table.Metadata{
	Name: TableTrace,
	Columns: []string{
		"block_id_group", "block_id", "trace_id", "tx_hash",
		"transaction_index", "from_address", "to_address", "value", "input",
		"output", "trace_type", "call_type", "reward_type", "gas", "gas_used",
		"subtraces", "trace_address", "error", "status",
	},
	PartKey: []string{"block_id_group"},
	SortKey: []string{"block_id", "trace_id"},
}

var logMetadata = table.Metadata{
	Name: TableLog,
	Columns: []string{
		"block_id_group", "block_id", "block_hash", "address", "data",
		"topics", "topic0", "tx_hash", "log_index", "transaction_index",
	},
	PartKey: []string{"block_id_group"},
	SortKey: []string{"block_id", "log_index"},
}

// CassandraStore is the gocql-backed column store connector. The session is
// created once and shared between the checkpoint resolver and the write
// engine for the whole run.
type CassandraStore struct {
	session  gocqlx.Session
	keyspace string
	tables   map[string]*table.Table
}

func NewCassandraStore(cfg *config.CassandraConfig) (*CassandraStore, error) {
	cluster := gocql.NewCluster(cfg.Hosts...)
	cluster.Keyspace = cfg.Keyspace
	cluster.Consistency = gocql.LocalQuorum
	cluster.Timeout = time.Duration(cfg.TimeoutSeconds) * time.Second

	session, err := gocqlx.WrapSession(cluster.CreateSession())
	if err != nil {
		return nil, fmt.Errorf("cannot connect to %v: %w", cfg.Hosts, err)
	}

	return &CassandraStore{
		session:  session,
		keyspace: cfg.Keyspace,
		tables: map[string]*table.Table{
			TableBlock:       table.New(blockMetadata),
			TableTransaction: table.New(transactionMetadata),
			TableTrace:       table.New(traceMetadata),
			TableLog:         table.New(logMetadata),
		},
	}, nil
}

func (s *CassandraStore) WriteRow(ctx context.Context, tableName string, row interface{}) error {
	t, ok := s.tables[tableName]
	if !ok {
		return fmt.Errorf("unknown table %q", tableName)
	}
	return s.session.Query(t.Insert()).WithContext(ctx).BindStruct(row).ExecRelease()
}

// LastIngestedBlock runs the two-step checkpoint scan: one row per partition
// to enumerate the bucket groups present, then a max aggregate restricted to
// the highest group. Only the highest group is trusted; ingestion proceeds
// strictly forward, so lower groups are by definition complete.
func (s *CassandraStore) LastIngestedBlock(ctx context.Context, tableName string) (int64, bool, error) {
	stmt := fmt.Sprintf("SELECT block_id_group FROM %s PER PARTITION LIMIT 1", tableName)
	iter := s.session.Session.Query(stmt).WithContext(ctx).Iter()

	var group, maxGroup int64
	found := false
	for iter.Scan(&group) {
		if !found || group > maxGroup {
			maxGroup = group
		}
		found = true
	}
	if err := iter.Close(); err != nil {
		return 0, false, fmt.Errorf("error scanning bucket groups of %s: %w", tableName, err)
	}
	if !found {
		return 0, false, nil
	}

	var maxBlock int64
	stmt = fmt.Sprintf("SELECT MAX(block_id) FROM %s WHERE block_id_group = ?", tableName)
	if err := s.session.Session.Query(stmt, maxGroup).WithContext(ctx).Scan(&maxBlock); err != nil {
		return 0, false, fmt.Errorf("error resolving max block id in group %d of %s: %w", maxGroup, tableName, err)
	}
	return maxBlock, true, nil
}

func (s *CassandraStore) RecordConfiguration(ctx context.Context, cfg partition.Config) error {
	stmt := fmt.Sprintf(
		"INSERT INTO %s (id, block_bucket_size, tx_prefix_length) VALUES (?, ?, ?)",
		TableConfiguration)
	return s.session.Session.Query(stmt, s.keyspace, cfg.BlockBucketSize, cfg.TxHashPrefixLen).
		WithContext(ctx).Exec()
}

func (s *CassandraStore) ReadConfiguration(ctx context.Context) (partition.Config, bool, error) {
	var cfg partition.Config
	stmt := fmt.Sprintf(
		"SELECT block_bucket_size, tx_prefix_length FROM %s WHERE id = ?",
		TableConfiguration)
	err := s.session.Session.Query(stmt, s.keyspace).WithContext(ctx).
		Scan(&cfg.BlockBucketSize, &cfg.TxHashPrefixLen)
	if err == gocql.ErrNotFound {
		return partition.Config{}, false, nil
	}
	if err != nil {
		return partition.Config{}, false, fmt.Errorf("error reading configuration: %w", err)
	}
	return cfg, true, nil
}

func (s *CassandraStore) Close() {
	s.session.Close()
}

// CreateKeyspace connects without a keyspace and applies the given CQL
// schema, replacing the keyspace placeholder. Fails if the keyspace exists.
func CreateKeyspace(ctx context.Context, cfg *config.CassandraConfig, schema, placeholder string) error {
	cluster := gocql.NewCluster(cfg.Hosts...)
	cluster.Timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	session, err := cluster.CreateSession()
	if err != nil {
		return fmt.Errorf("cannot connect to %v: %w", cfg.Hosts, err)
	}
	defer session.Close()

	var existing string
	err = session.Query(
		"SELECT keyspace_name FROM system_schema.keyspaces WHERE keyspace_name = ?",
		cfg.Keyspace).WithContext(ctx).Scan(&existing)
	if err == nil {
		return fmt.Errorf("keyspace %q already exists", cfg.Keyspace)
	}
	if err != gocql.ErrNotFound {
		return fmt.Errorf("error checking keyspace %q: %w", cfg.Keyspace, err)
	}

	schema = strings.ReplaceAll(schema, placeholder, cfg.Keyspace)
	for _, stmt := range strings.Split(schema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if err := session.Query(stmt + ";").WithContext(ctx).Exec(); err != nil {
			return fmt.Errorf("error executing schema statement: %w", err)
		}
	}
	return nil
}
