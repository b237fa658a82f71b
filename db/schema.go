// Package db holds the CQL schema of a raw keyspace.
package db

// KeyspacePlaceholder is replaced with the target keyspace name when the
// schema is applied.
const KeyspacePlaceholder = "eth_raw"

const Schema = `
CREATE KEYSPACE IF NOT EXISTS eth_raw
    WITH replication = {'class': 'SimpleStrategy', 'replication_factor': 1};

CREATE TABLE IF NOT EXISTS eth_raw.block (
    block_id_group int,
    block_id int,
    block_hash blob,
    parent_hash blob,
    nonce blob,
    sha3_uncles blob,
    logs_bloom blob,
    transactions_root blob,
    state_root blob,
    receipts_root blob,
    miner blob,
    difficulty varint,
    total_difficulty varint,
    size bigint,
    extra_data blob,
    gas_limit bigint,
    gas_used bigint,
    timestamp bigint,
    transaction_count int,
    base_fee_per_gas bigint,
    PRIMARY KEY (block_id_group, block_id)
);

CREATE TABLE IF NOT EXISTS eth_raw.transaction (
    tx_hash_prefix text,
    tx_hash blob,
    nonce bigint,
    transaction_index bigint,
    from_address blob,
    to_address blob,
    value varint,
    gas bigint,
    gas_price bigint,
    input blob,
    block_timestamp bigint,
    block_id int,
    block_hash blob,
    max_fee_per_gas bigint,
    max_priority_fee_per_gas bigint,
    transaction_type smallint,
    receipt_cumulative_gas_used bigint,
    receipt_gas_used bigint,
    receipt_contract_address blob,
    receipt_root blob,
    receipt_status bigint,
    receipt_effective_gas_price bigint,
    PRIMARY KEY (tx_hash_prefix, tx_hash)
);

CREATE TABLE IF NOT EXISTS eth_raw.trace (
    block_id_group int,
    block_id int,
    trace_id text,
    tx_hash blob,
    transaction_index bigint,
    from_address blob,
    to_address blob,
    value varint,
    input blob,
    output blob,
    trace_type text,
    call_type text,
    reward_type text,
    gas bigint,
    gas_used bigint,
    subtraces bigint,
    trace_address text,
    error text,
    status bigint,
    PRIMARY KEY (block_id_group, block_id, trace_id)
);

CREATE TABLE IF NOT EXISTS eth_raw.log (
    block_id_group int,
    block_id int,
    block_hash blob,
    address blob,
    data blob,
    topics list<text>,
    topic0 blob,
    tx_hash blob,
    log_index bigint,
    transaction_index bigint,
    PRIMARY KEY (block_id_group, block_id, log_index)
);

CREATE TABLE IF NOT EXISTS eth_raw.configuration (
    id text PRIMARY KEY,
    block_bucket_size int,
    tx_prefix_length int
);
`
