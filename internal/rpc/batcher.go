package rpc

import (
	"context"
	"sync"

	gethRpc "github.com/ethereum/go-ethereum/rpc"
	"github.com/rs/zerolog/log"

	"github.com/graphsense/eth-ingest/internal/common"
)

type FetchBatchResult[K any, T any] struct {
	Key    K
	Error  error
	Result T
}

// FetchInBatches splits keys into JSON-RPC batch requests of at most
// batchSize calls each and fetches the chunks concurrently.
func FetchInBatches[K any, T any](c *Client, ctx context.Context, keys []K, batchSize int, method string, argsFunc func(K) []interface{}) []FetchBatchResult[K, T] {
	if len(keys) <= batchSize {
		return FetchSingleBatch[K, T](c, ctx, keys, method, argsFunc)
	}
	chunks := common.SliceToChunks[K](keys, batchSize)

	log.Debug().Msgf("Fetching %s for %d keys in %d chunks of max %d requests", method, len(keys), len(chunks), batchSize)

	var wg sync.WaitGroup
	resultsCh := make(chan []FetchBatchResult[K, T], len(chunks))

	for _, chunk := range chunks {
		wg.Add(1)
		go func(chunk []K) {
			defer wg.Done()
			resultsCh <- FetchSingleBatch[K, T](c, ctx, chunk, method, argsFunc)
		}(chunk)
	}
	go func() {
		wg.Wait()
		close(resultsCh)
	}()

	results := make([]FetchBatchResult[K, T], 0, len(keys))
	for batchResults := range resultsCh {
		results = append(results, batchResults...)
	}

	return results
}

func FetchSingleBatch[K any, T any](c *Client, ctx context.Context, keys []K, method string, argsFunc func(K) []interface{}) []FetchBatchResult[K, T] {
	batch := make([]gethRpc.BatchElem, len(keys))
	results := make([]FetchBatchResult[K, T], len(keys))

	for i, key := range keys {
		results[i] = FetchBatchResult[K, T]{Key: key}
		batch[i] = gethRpc.BatchElem{
			Method: method,
			Args:   argsFunc(key),
			Result: new(T),
		}
	}

	err := c.RPCClient.BatchCallContext(ctx, batch)
	if err != nil {
		for i := range results {
			results[i].Error = err
		}
		return results
	}

	for i, elem := range batch {
		if elem.Error != nil {
			results[i].Error = elem.Error
		} else {
			results[i].Result = *elem.Result.(*T)
		}
	}

	return results
}
