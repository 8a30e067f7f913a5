package ethereum

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/agrolink/marketplace-watcher/internal/block"
	"github.com/agrolink/marketplace-watcher/internal/domain"
	"github.com/agrolink/marketplace-watcher/internal/logger"
	"github.com/agrolink/marketplace-watcher/internal/messaging"
)

// errSubscriptionClosed is returned when the node closes the subscription without an error
var errSubscriptionClosed = errors.New("subscription closed")

// PushConfig holds the configuration of the push transport
type PushConfig struct {
	ChainID domain.Chain

	// Reconnect backoff; MaxElapsedTime 0 keeps retrying until shutdown
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsedTime  time.Duration

	// Concurrency bounds the parallel per-kind range queries used to catch up after a reconnect
	Concurrency int

	// LogBuffer is the capacity of the live log channel
	LogBuffer int

	// Heads, when set, serves GetLatestBlock and is raised by every live log
	Heads block.BlockHeadProvider

	// Checkpoint, when set, receives the cursor after a catch-up and whenever a live log completes a block
	Checkpoint block.CursorStore
}

type pushSubscriber struct {
	config PushConfig
	client MarketplaceClient
	reader *rangeReader

	cursor     atomic.Pointer[block.Cursor]
	reconnects atomic.Int64
}

// NewPushSubscriber creates the push transport over a websocket log subscription.
// A dropped subscription is re-established with exponential backoff; the blocks missed
// while disconnected are replayed through range queries before live delivery resumes.
func NewPushSubscriber(cfg PushConfig, client MarketplaceClient) messaging.Subscriber {
	if cfg.LogBuffer <= 0 {
		cfg.LogBuffer = 256
	}
	return &pushSubscriber{
		config: cfg,
		client: client,
		reader: newRangeReader(client, cfg.Concurrency),
	}
}

func (s *pushSubscriber) SubscribeEvents(ctx context.Context, fromBlock uint64, handler messaging.EventHandler) error {
	s.cursor.Store(block.NewCursor(fromBlock))

	b := backoff.NewExponentialBackOff()
	if s.config.InitialInterval > 0 {
		b.InitialInterval = s.config.InitialInterval
	}
	if s.config.MaxInterval > 0 {
		b.MaxInterval = s.config.MaxInterval
	}
	b.MaxElapsedTime = s.config.MaxElapsedTime

	operation := func() error {
		err := s.session(ctx, handler, b.Reset)
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		return err
	}

	notify := func(err error, next time.Duration) {
		s.reconnects.Add(1)
		last, _ := s.LastProcessedBlock()
		logger.WarnCtx(ctx, "Marketplace subscription dropped, reconnecting",
			zap.Error(err),
			zap.Uint64("last_confirmed_block", last),
			zap.Duration("next_retry_in", next))
	}

	err := backoff.RetryNotify(operation, backoff.WithContext(b, ctx), notify)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return fmt.Errorf("marketplace subscription abandoned: %w", err)
}

// session subscribes, replays the blocks since the cursor and then follows live logs until the subscription fails.
// The subscription is opened before the replay so nothing emitted in between is lost; overlap is absorbed downstream.
func (s *pushSubscriber) session(ctx context.Context, handler messaging.EventHandler, connected func()) error {
	cursor := s.cursor.Load()

	logs := make(chan types.Log, s.config.LogBuffer)
	sub, err := s.client.SubscribeEvents(ctx, logs)
	if err != nil {
		return fmt.Errorf("failed to subscribe to marketplace logs: %w", err)
	}
	defer func() {
		sub.Unsubscribe()
		logger.InfoCtx(ctx, "Unsubscribed from marketplace logs")
	}()

	head, err := s.client.LatestBlock(ctx)
	if err != nil {
		return err
	}
	if from, to, ok := cursor.Window(head); ok {
		logger.InfoCtx(ctx, "Catching up marketplace events",
			zap.Uint64("from_block", from),
			zap.Uint64("to_block", to))

		missed, err := s.reader.readRange(ctx, from, to)
		if err != nil {
			return err
		}
		if err := deliverLogs(ctx, s.client, missed, handler); err != nil {
			return err
		}
		cursor.Advance(to)
		checkpoint(ctx, s.config.Checkpoint, s.config.ChainID, to)
	}

	connected()
	logger.InfoCtx(ctx, "Subscribed to marketplace logs", zap.Uint64("head", head))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-sub.Err():
			if err == nil {
				return errSubscriptionClosed
			}
			return fmt.Errorf("subscription error: %w", err)
		case vLog := <-logs:
			// every log of the blocks before this one has been delivered
			if vLog.BlockNumber > 0 && !vLog.Removed {
				if cursor.Advance(vLog.BlockNumber - 1) {
					checkpoint(ctx, s.config.Checkpoint, s.config.ChainID, vLog.BlockNumber-1)
				}
				if s.config.Heads != nil {
					s.config.Heads.Observe(vLog.BlockNumber)
				}
			}
			deliverLog(ctx, s.client, vLog, handler)
		}
	}
}

func (s *pushSubscriber) GetLatestBlock(ctx context.Context) (uint64, error) {
	if s.config.Heads != nil {
		return s.config.Heads.GetLatestBlock(ctx)
	}
	return s.client.LatestBlock(ctx)
}

func (s *pushSubscriber) LastProcessedBlock() (uint64, bool) {
	cursor := s.cursor.Load()
	if cursor == nil {
		return 0, false
	}
	return cursor.Last()
}

func (s *pushSubscriber) Mode() string {
	return "push"
}

// Reconnects returns how many times the subscription was re-established
func (s *pushSubscriber) Reconnects() int64 {
	return s.reconnects.Load()
}

func (s *pushSubscriber) Close() {
	s.reader.stop()
	s.client.Close()
	logger.Info("Marketplace websocket connection closed")
}
