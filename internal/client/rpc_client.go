// This file is derived in spirit from client/bridge_client.go (2020):
// a thin typed wrapper over a single CallContext-style RPC transport, one
// exported method per node API, each issuing exactly one named call.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v7"
	"github.com/iotaledger/wallet.go/iotago"
	"github.com/iotaledger/wallet.go/log"
	"github.com/iotaledger/wallet.go/walleterr"
)

var logger = log.NewModuleLogger(log.Client)

// Caller abstracts the RPC transport (REST/indexer client) spec.md §1
// treats as external; a real implementation round-trips this to the
// node's HTTP API. Exactly one method so mocks stay trivial.
type Caller interface {
	CallContext(ctx context.Context, result interface{}, method string, args ...interface{}) error
}

// RPCClient is the NodeClient implementation used outside of tests. It
// caches Info() responses in Redis (see SPEC_FULL.md §4 domain stack) so
// repeated per-account sync ticks don't each pay a node round trip for
// data that changes once per milestone.
type RPCClient struct {
	caller   Caller
	cache    *redis.Client // nil disables caching
	cacheTTL time.Duration
}

// NewRPCClient wires an RPC transport with an optional redis cache. Passing
// a nil redisClient disables caching entirely (e.g. for local/dev nodes).
func NewRPCClient(caller Caller, redisClient *redis.Client) *RPCClient {
	return &RPCClient{caller: caller, cache: redisClient, cacheTTL: 30 * time.Second}
}

func (c *RPCClient) BasicOutputIDs(ctx context.Context, q OutputQuery) (OutputIDPage, error) {
	return c.outputIDs(ctx, "indexer_basicOutputIds", q)
}

func (c *RPCClient) AliasOutputIDs(ctx context.Context, q OutputQuery) (OutputIDPage, error) {
	return c.outputIDs(ctx, "indexer_aliasOutputIds", q)
}

func (c *RPCClient) FoundryOutputIDs(ctx context.Context, q OutputQuery) (OutputIDPage, error) {
	return c.outputIDs(ctx, "indexer_foundryOutputIds", q)
}

func (c *RPCClient) NFTOutputIDs(ctx context.Context, q OutputQuery) (OutputIDPage, error) {
	return c.outputIDs(ctx, "indexer_nftOutputIds", q)
}

func (c *RPCClient) outputIDs(ctx context.Context, method string, q OutputQuery) (OutputIDPage, error) {
	var page OutputIDPage
	if err := c.caller.CallContext(ctx, &page, method, q); err != nil {
		return OutputIDPage{}, walleterr.Wrap(walleterr.KindNodeClient, err, "indexer query "+method+" failed")
	}
	return page, nil
}

func (c *RPCClient) GetOutputs(ctx context.Context, ids []iotago.OutputID) ([]OutputResponse, error) {
	var out []OutputResponse
	if err := c.caller.CallContext(ctx, &out, "node_getOutputs", ids); err != nil {
		return nil, walleterr.Wrap(walleterr.KindNodeClient, err, "get_outputs failed")
	}
	return out, nil
}

// FoundryOutputByID calls the indexer's single-item foundry lookup. A
// "not found" response from the node is reported as (false, nil), not an
// error, so callers backfilling metadata can distinguish "destroyed" from
// "node unreachable".
func (c *RPCClient) FoundryOutputByID(ctx context.Context, id iotago.FoundryID) (OutputResponse, bool, error) {
	var resp struct {
		Found  bool
		Output OutputResponse
	}
	if err := c.caller.CallContext(ctx, &resp, "indexer_foundryOutputById", id); err != nil {
		return OutputResponse{}, false, walleterr.Wrap(walleterr.KindNodeClient, err, "foundry lookup failed")
	}
	return resp.Output, resp.Found, nil
}

func (c *RPCClient) GetBlock(ctx context.Context, id iotago.BlockID) (*iotago.Block, error) {
	var block iotago.Block
	if err := c.caller.CallContext(ctx, &block, "node_getBlock", id); err != nil {
		return nil, walleterr.Wrap(walleterr.KindNodeClient, err, "get_block failed")
	}
	return &block, nil
}

func (c *RPCClient) PostBlock(ctx context.Context, block *iotago.Block) (iotago.BlockID, error) {
	var id iotago.BlockID
	if err := c.caller.CallContext(ctx, &id, "node_postBlock", block); err != nil {
		return iotago.BlockID{}, walleterr.Wrap(walleterr.KindNodeClient, err, "post_block failed")
	}
	return id, nil
}

func (c *RPCClient) GetBlockMetadata(ctx context.Context, id iotago.BlockID) (BlockMetadata, error) {
	var md BlockMetadata
	if err := c.caller.CallContext(ctx, &md, "node_getBlockMetadata", id); err != nil {
		return BlockMetadata{}, walleterr.Wrap(walleterr.KindNodeClient, err, "get_block_metadata failed")
	}
	return md, nil
}

// RetryUntilIncluded polls block metadata until it is referenced by a
// milestone, promoting/reattaching via the node on repeated Pending
// results, matching spec.md §4.3 retry_transaction_until_included.
func (c *RPCClient) RetryUntilIncluded(ctx context.Context, id iotago.BlockID, interval time.Duration, maxAttempts int) (iotago.BlockID, error) {
	current := id
	for attempt := 0; attempt < maxAttempts; attempt++ {
		md, err := c.GetBlockMetadata(ctx, current)
		if err != nil {
			return iotago.BlockID{}, err
		}
		if md.ReferencedByMilestone != 0 {
			return current, nil
		}
		select {
		case <-ctx.Done():
			return iotago.BlockID{}, ctx.Err()
		case <-time.After(interval):
		}
		var reattached iotago.BlockID
		if err := c.caller.CallContext(ctx, &reattached, "node_reattach", current); err != nil {
			logger.Warnw("reattach failed, will retry", "block_id", current, "err", err)
			continue
		}
		current = reattached
	}
	return iotago.BlockID{}, walleterr.New(walleterr.KindTaskJoin, fmt.Sprintf("block %x not included after %d attempts", id, maxAttempts))
}

func (c *RPCClient) Info(ctx context.Context) (NodeInfo, error) {
	const cacheKey = "wallet:node-info"
	if c.cache != nil {
		if raw, err := c.cache.Get(cacheKey).Bytes(); err == nil {
			var info NodeInfo
			if jsonErr := json.Unmarshal(raw, &info); jsonErr == nil {
				return info, nil
			}
		}
	}
	var info NodeInfo
	if err := c.caller.CallContext(ctx, &info, "node_info"); err != nil {
		return NodeInfo{}, walleterr.Wrap(walleterr.KindNodeClient, err, "get_info failed")
	}
	if c.cache != nil {
		if raw, err := json.Marshal(info); err == nil {
			if err := c.cache.Set(cacheKey, raw, c.cacheTTL).Err(); err != nil {
				logger.Warnw("failed to cache node info", "err", err)
			}
		}
	}
	return info, nil
}

func (c *RPCClient) RequestFundsFromFaucet(ctx context.Context, url string, addr iotago.Address) error {
	var ok bool
	if err := c.caller.CallContext(ctx, &ok, "faucet_requestFunds", url, addr); err != nil {
		return walleterr.Wrap(walleterr.KindNodeClient, err, "faucet request failed")
	}
	return nil
}
