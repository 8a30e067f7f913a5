package block

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/agrolink/marketplace-watcher/internal/adapter"
	"github.com/agrolink/marketplace-watcher/internal/logger"
)

// head is the cached chain head
type head struct {
	number    uint64
	fetchedAt time.Time
}

// BlockHeadProvider provides cached access to the chain head so every poll tick
// and every reconnect does not cost an extra RPC round trip.
//
//go:generate mockgen -source=head.go -destination=../mocks/block_head_provider.go -package=mocks -mock_names=BlockHeadProvider=MockBlockHeadProvider,BlockFetcher=MockBlockFetcher
type BlockHeadProvider interface {
	// GetLatestBlock returns the latest block number, potentially from cache
	GetLatestBlock(ctx context.Context) (uint64, error)

	// Observe records a block number seen on a live log; the cached head never moves backwards
	Observe(number uint64)
}

// BlockFetcher is the interface for fetching the latest block from the blockchain
type BlockFetcher interface {
	// FetchLatestBlock fetches the latest block from the blockchain
	FetchLatestBlock(ctx context.Context) (uint64, error)
}

// Config holds configuration for the BlockHeadProvider
type Config struct {
	// TTL is how long to cache the block number
	TTL time.Duration

	// StaleWindow is how long to keep serving the cached head when fetching fails
	StaleWindow time.Duration
}

type blockHeadProvider struct {
	fetcher BlockFetcher
	config  Config
	clock   adapter.Clock

	mu     sync.RWMutex
	cached *head
}

// NewBlockHeadProvider creates a new BlockHeadProvider with caching
func NewBlockHeadProvider(fetcher BlockFetcher, config Config, clock adapter.Clock) BlockHeadProvider {
	return &blockHeadProvider{
		fetcher: fetcher,
		config:  config,
		clock:   clock,
	}
}

func (p *blockHeadProvider) GetLatestBlock(ctx context.Context) (uint64, error) {
	p.mu.RLock()
	cached := p.cached
	p.mu.RUnlock()

	now := p.clock.Now()
	if cached != nil && now.Sub(cached.fetchedAt) < p.config.TTL {
		logger.DebugCtx(ctx, "Using cached block number", zap.Uint64("block_number", cached.number))
		return cached.number, nil
	}

	number, err := p.fetcher.FetchLatestBlock(ctx)
	if err != nil {
		if cached != nil && now.Sub(cached.fetchedAt) < p.config.StaleWindow {
			logger.WarnCtx(ctx, "Using stale block number",
				zap.Uint64("block_number", cached.number),
				zap.Error(err))
			return cached.number, nil
		}
		return 0, fmt.Errorf("failed to fetch latest block and no valid cache available: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	// a concurrent Observe may already have seen a newer block
	if p.cached != nil && p.cached.number > number {
		number = p.cached.number
	}
	p.cached = &head{number: number, fetchedAt: now}

	return number, nil
}

func (p *blockHeadProvider) Observe(number uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cached == nil || number <= p.cached.number {
		return
	}
	p.cached = &head{number: number, fetchedAt: p.cached.fetchedAt}
}
