package ethereum

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/agrolink/marketplace-watcher/internal/adapter"
	"github.com/agrolink/marketplace-watcher/internal/block"
	"github.com/agrolink/marketplace-watcher/internal/domain"
	"github.com/agrolink/marketplace-watcher/internal/logger"
	"github.com/agrolink/marketplace-watcher/internal/messaging"
)

// PollConfig holds the configuration of the pull transport
type PollConfig struct {
	ChainID  domain.Chain
	Interval time.Duration

	// Concurrency bounds the parallel per-kind range queries of a tick
	Concurrency int

	// Checkpoint, when set, receives the cursor after every completed tick
	Checkpoint block.CursorStore
}

type pollSubscriber struct {
	config PollConfig
	client MarketplaceClient
	heads  block.BlockHeadProvider
	clock  adapter.Clock
	reader *rangeReader

	cursor   atomic.Pointer[block.Cursor]
	inFlight atomic.Bool
}

// NewPollSubscriber creates the pull transport: every interval it queries the blocks
// between the cursor and the chain head and delivers the matching events.
func NewPollSubscriber(cfg PollConfig, client MarketplaceClient, heads block.BlockHeadProvider, clock adapter.Clock) messaging.Subscriber {
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Second
	}
	return &pollSubscriber{
		config: cfg,
		client: client,
		heads:  heads,
		clock:  clock,
		reader: newRangeReader(client, cfg.Concurrency),
	}
}

// SubscribeEvents polls from fromBlock until ctx is cancelled.
// Ticks run back to back on the caller's goroutine, so a slow tick delays the next one instead of overlapping it.
func (s *pollSubscriber) SubscribeEvents(ctx context.Context, fromBlock uint64, handler messaging.EventHandler) error {
	s.cursor.Store(block.NewCursor(fromBlock))

	logger.InfoCtx(ctx, "Polling marketplace events",
		zap.Uint64("from_block", fromBlock),
		zap.Duration("interval", s.config.Interval))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.clock.After(s.config.Interval):
		}

		if err := s.tick(ctx, handler); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.ErrorCtx(ctx, err, zap.String("message", "Poll tick failed, retrying next interval"))
		}
	}
}

// tick processes [cursor, head] and advances the cursor only when every kind was queried successfully
func (s *pollSubscriber) tick(ctx context.Context, handler messaging.EventHandler) error {
	if !s.inFlight.CompareAndSwap(false, true) {
		logger.WarnCtx(ctx, "Previous poll tick still running, skipping")
		return nil
	}
	defer s.inFlight.Store(false)

	cursor := s.cursor.Load()

	head, err := s.heads.GetLatestBlock(ctx)
	if err != nil {
		return err
	}

	from, to, ok := cursor.Window(head)
	if !ok {
		logger.DebugCtx(ctx, "No new blocks", zap.Uint64("head", head))
		return nil
	}

	logs, err := s.reader.readRange(ctx, from, to)
	if err != nil {
		return err
	}

	logger.DebugCtx(ctx, "Processing poll window",
		zap.Uint64("from_block", from),
		zap.Uint64("to_block", to),
		zap.Int("logs", len(logs)))

	if err := deliverLogs(ctx, s.client, logs, handler); err != nil {
		return err
	}
	cursor.Advance(to)
	checkpoint(ctx, s.config.Checkpoint, s.config.ChainID, to)

	return nil
}

func (s *pollSubscriber) GetLatestBlock(ctx context.Context) (uint64, error) {
	return s.heads.GetLatestBlock(ctx)
}

func (s *pollSubscriber) LastProcessedBlock() (uint64, bool) {
	cursor := s.cursor.Load()
	if cursor == nil {
		return 0, false
	}
	return cursor.Last()
}

func (s *pollSubscriber) Mode() string {
	return "pull"
}

func (s *pollSubscriber) Close() {
	s.reader.stop()
	s.client.Close()
	logger.Info("Marketplace poller closed")
}
