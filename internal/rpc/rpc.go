package rpc

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	gethRpc "github.com/ethereum/go-ethereum/rpc"
	"github.com/rs/zerolog/log"

	config "github.com/graphsense/eth-ingest/configs"
	"github.com/graphsense/eth-ingest/internal/common"
	"github.com/graphsense/eth-ingest/internal/metrics"
)

// ExtractionService exports decoded chain entities per block window. All
// methods return fully materialized slices, one window at a time.
type ExtractionService interface {
	ExportBlocksAndTransactions(ctx context.Context, startBlock, endBlock int64) ([]common.Block, []common.Transaction, error)
	ExportReceiptsAndLogs(ctx context.Context, txHashes []string) ([]common.Receipt, []common.Log, error)
	ExportTraces(ctx context.Context, startBlock, endBlock int64, includeGenesis, includeDaoFork bool) ([]common.Trace, error)
	GetLatestBlockNumber(ctx context.Context) (int64, error)
	Close()
}

// Client talks JSON-RPC to the chain node using batched requests.
type Client struct {
	RPCClient *gethRpc.Client
	EthClient *ethclient.Client

	url                string
	timeout            time.Duration
	blocksPerRequest   int
	receiptsPerRequest int
	tracesPerRequest   int
}

func Initialize() (ExtractionService, error) {
	rpcUrl := config.Cfg.RPC.URL
	if rpcUrl == "" {
		return nil, fmt.Errorf("rpc.url is not set")
	}
	log.Debug().Msg("Initializing RPC")
	rpcClient, dialErr := gethRpc.Dial(rpcUrl)
	if dialErr != nil {
		return nil, dialErr
	}

	return &Client{
		RPCClient:          rpcClient,
		EthClient:          ethclient.NewClient(rpcClient),
		url:                rpcUrl,
		timeout:            time.Duration(config.Cfg.RPC.TimeoutSeconds) * time.Second,
		blocksPerRequest:   config.Cfg.RPC.BlocksPerRequest,
		receiptsPerRequest: config.Cfg.RPC.ReceiptsPerRequest,
		tracesPerRequest:   config.Cfg.RPC.TracesPerRequest,
	}, nil
}

func (c *Client) Close() {
	c.RPCClient.Close()
	c.EthClient.Close()
}

func (c *Client) GetLatestBlockNumber(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	number, err := c.EthClient.BlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("error fetching latest block number: %w", err)
	}
	return int64(number), nil
}

func (c *Client) ExportBlocksAndTransactions(ctx context.Context, startBlock, endBlock int64) ([]common.Block, []common.Transaction, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	blockNumbers := blockRange(startBlock, endBlock)
	results := FetchInBatches[int64, RawBlock](c, ctx, blockNumbers, c.blocksPerRequest,
		"eth_getBlockByNumber", func(n int64) []interface{} {
			return []interface{}{fmt.Sprintf("0x%x", n), true}
		})

	blocks := make([]common.Block, 0, len(blockNumbers))
	var transactions []common.Transaction
	for _, result := range results {
		if result.Error != nil {
			return nil, nil, fmt.Errorf("error fetching block %d: %w", result.Key, result.Error)
		}
		block := serializeBlock(result.Result)
		blocks = append(blocks, block)
		transactions = append(transactions, serializeTransactions(result.Result, block.Timestamp)...)
	}
	metrics.LastExportedBlock.Set(float64(endBlock))
	return blocks, transactions, nil
}

func (c *Client) ExportReceiptsAndLogs(ctx context.Context, txHashes []string) ([]common.Receipt, []common.Log, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	results := FetchInBatches[string, RawReceipt](c, ctx, txHashes, c.receiptsPerRequest,
		"eth_getTransactionReceipt", func(hash string) []interface{} {
			return []interface{}{hash}
		})

	receipts := make([]common.Receipt, 0, len(txHashes))
	var logs []common.Log
	for _, result := range results {
		if result.Error != nil {
			return nil, nil, fmt.Errorf("error fetching receipt %s: %w", result.Key, result.Error)
		}
		if result.Result == nil {
			// the node has no receipt for an extracted transaction, the
			// enricher turns this into a MissingReceipt failure
			continue
		}
		receipts = append(receipts, serializeReceipt(result.Result))
		logs = append(logs, serializeLogs(result.Result)...)
	}
	return receipts, logs, nil
}

func (c *Client) ExportTraces(ctx context.Context, startBlock, endBlock int64, includeGenesis, includeDaoFork bool) ([]common.Trace, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	blockNumbers := blockRange(startBlock, endBlock)
	results := FetchInBatches[int64, RawTraces](c, ctx, blockNumbers, c.tracesPerRequest,
		"trace_block", func(n int64) []interface{} {
			return []interface{}{fmt.Sprintf("0x%x", n)}
		})

	var traces []common.Trace
	for _, result := range results {
		if result.Error != nil {
			return nil, fmt.Errorf("error fetching traces for block %d: %w", result.Key, result.Error)
		}
		traces = append(traces, serializeTraces(result.Result)...)
	}
	return filterSyntheticTraces(traces, includeGenesis, includeDaoFork), nil
}

// filterSyntheticTraces drops genesis allocation and DAO fork refund traces
// unless their inclusion is requested.
func filterSyntheticTraces(traces []common.Trace, includeGenesis, includeDaoFork bool) []common.Trace {
	if includeGenesis && includeDaoFork {
		return traces
	}
	filtered := make([]common.Trace, 0, len(traces))
	for _, trace := range traces {
		if trace.TraceType == "genesis" && !includeGenesis {
			continue
		}
		if trace.TraceType == "daofork" && !includeDaoFork {
			continue
		}
		filtered = append(filtered, trace)
	}
	return filtered
}

func blockRange(startBlock, endBlock int64) []int64 {
	numbers := make([]int64, 0, endBlock-startBlock+1)
	for n := startBlock; n <= endBlock; n++ {
		numbers = append(numbers, n)
	}
	return numbers
}
