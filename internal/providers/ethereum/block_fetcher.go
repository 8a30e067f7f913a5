package ethereum

import (
	"context"

	"github.com/agrolink/marketplace-watcher/internal/block"
)

// ethereumBlockFetcher implements block.BlockFetcher for the marketplace chain
type ethereumBlockFetcher struct {
	client MarketplaceClient
}

// NewBlockFetcher creates a head fetcher backed by eth_blockNumber
func NewBlockFetcher(client MarketplaceClient) block.BlockFetcher {
	return &ethereumBlockFetcher{client: client}
}

// FetchLatestBlock fetches the latest block number
func (f *ethereumBlockFetcher) FetchLatestBlock(ctx context.Context) (uint64, error) {
	return f.client.LatestBlock(ctx)
}
