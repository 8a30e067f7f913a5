// Package watcher glues the event feed, the normalizer and the reconciler together.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/agrolink/marketplace-watcher/internal/adapter"
	"github.com/agrolink/marketplace-watcher/internal/block"
	"github.com/agrolink/marketplace-watcher/internal/domain"
	"github.com/agrolink/marketplace-watcher/internal/logger"
	"github.com/agrolink/marketplace-watcher/internal/messaging"
	"github.com/agrolink/marketplace-watcher/internal/reconciler"
)

// Normalizer converts a raw transport event to a ChainEvent
type Normalizer interface {
	Normalize(raw *messaging.RawEvent, kind domain.EventKind) (*domain.ChainEvent, error)
}

// Reconciler applies a ChainEvent to the projection
type Reconciler interface {
	Apply(ctx context.Context, ev *domain.ChainEvent) reconciler.Result
}

// Config holds the watcher configuration
type Config struct {
	ChainID domain.Chain

	// StartBlock is the first block to process. When HasStartBlock is false the watcher
	// resumes from the stored cursor (if ResumeFromCursor) or from the chain head.
	StartBlock    uint64
	HasStartBlock bool

	// ResumeFromCursor reads the last checkpointed block from Cursors when no start block is set
	ResumeFromCursor bool
}

// Stats is a point-in-time snapshot of the watcher's progress
type Stats struct {
	Mode               string                       `json:"mode"`
	Running            bool                         `json:"running"`
	StartedAt          *time.Time                   `json:"started_at,omitempty"`
	StartBlock         *uint64                      `json:"start_block,omitempty"`
	LastProcessedBlock *uint64                      `json:"last_processed_block,omitempty"`
	EventsReceived     int64                        `json:"events_received"`
	MalformedEvents    int64                        `json:"malformed_events"`
	Outcomes           map[reconciler.Outcome]int64 `json:"outcomes"`
	Kinds              map[domain.EventKind]int64   `json:"kinds"`

	// Reconnects is only reported by transports that hold a live connection
	Reconnects *int64 `json:"reconnects,omitempty"`
}

// reconnectCounter is implemented by the push transport
type reconnectCounter interface {
	Reconnects() int64
}

// Watcher feeds marketplace events through the normalizer into the reconciler, one at a time
type Watcher struct {
	config     Config
	subscriber messaging.Subscriber
	normalizer Normalizer
	reconciler Reconciler
	cursors    block.CursorStore
	clock      adapter.Clock

	running   atomic.Bool
	received  atomic.Int64
	malformed atomic.Int64

	mu         sync.Mutex
	startedAt  *time.Time
	startBlock *uint64
	outcomes   map[reconciler.Outcome]int64
	kinds      map[domain.EventKind]int64
}

// New creates a watcher. cursors may be nil when ResumeFromCursor is off.
func New(cfg Config, subscriber messaging.Subscriber, normalizer Normalizer, rec Reconciler, cursors block.CursorStore, clock adapter.Clock) *Watcher {
	return &Watcher{
		config:     cfg,
		subscriber: subscriber,
		normalizer: normalizer,
		reconciler: rec,
		cursors:    cursors,
		clock:      clock,
		outcomes:   make(map[reconciler.Outcome]int64),
		kinds:      make(map[domain.EventKind]int64),
	}
}

// Run selects the start block and consumes the feed until ctx is cancelled.
// It returns nil on a clean shutdown.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.running.CompareAndSwap(false, true) {
		return errors.New("watcher already running")
	}
	defer w.running.Store(false)

	from, err := w.selectStartBlock(ctx)
	if err != nil {
		return err
	}

	now := w.clock.Now().UTC()
	w.mu.Lock()
	w.startedAt = &now
	w.startBlock = &from
	w.mu.Unlock()

	logger.InfoCtx(ctx, "Marketplace watcher started",
		zap.String("mode", w.subscriber.Mode()),
		zap.String("chain", string(w.config.ChainID)),
		zap.Uint64("from_block", from))

	err = w.subscriber.SubscribeEvents(ctx, from, w.handle)
	if errors.Is(err, context.Canceled) || ctx.Err() != nil {
		logger.InfoCtx(ctx, "Marketplace watcher stopped")
		return nil
	}
	if err != nil {
		return fmt.Errorf("event feed stopped: %w", err)
	}
	return nil
}

// selectStartBlock returns the explicit start block, the block after the stored cursor, or the block after the head
func (w *Watcher) selectStartBlock(ctx context.Context) (uint64, error) {
	if w.config.HasStartBlock {
		logger.InfoCtx(ctx, "Starting from configured start block", zap.Uint64("start_block", w.config.StartBlock))
		return w.config.StartBlock, nil
	}

	if w.config.ResumeFromCursor && w.cursors != nil {
		last, err := w.cursors.GetBlockCursor(ctx, string(w.config.ChainID))
		if err != nil {
			logger.WarnCtx(ctx, "Failed to read stored block cursor, starting from chain head", zap.Error(err))
		} else if last > 0 {
			logger.InfoCtx(ctx, "Resuming from stored block cursor", zap.Uint64("last_processed_block", last))
			return last + 1, nil
		}
	}

	head, err := w.subscriber.GetLatestBlock(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get latest block: %w", err)
	}
	return block.NewCursorAfter(head).Next(), nil
}

// handle processes one raw event. Malformed events are logged and skipped so the stream keeps moving.
func (w *Watcher) handle(ctx context.Context, kind domain.EventKind, raw *messaging.RawEvent) error {
	w.received.Add(1)

	ev, err := w.normalizer.Normalize(raw, kind)
	if err != nil {
		w.malformed.Add(1)
		logger.WarnCtx(ctx, "Skipping malformed marketplace event",
			zap.Error(err),
			zap.String("kind", string(kind)),
			zap.Uint64("block_number", raw.Block()))
		return nil
	}

	result := w.reconciler.Apply(ctx, ev)

	w.mu.Lock()
	w.outcomes[result.Outcome]++
	w.kinds[ev.Kind]++
	w.mu.Unlock()

	return nil
}

// Stats returns a snapshot of the watcher counters
func (w *Watcher) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()

	stats := Stats{
		Mode:            w.subscriber.Mode(),
		Running:         w.running.Load(),
		StartedAt:       w.startedAt,
		StartBlock:      w.startBlock,
		EventsReceived:  w.received.Load(),
		MalformedEvents: w.malformed.Load(),
		Outcomes:        make(map[reconciler.Outcome]int64, len(w.outcomes)),
		Kinds:           make(map[domain.EventKind]int64, len(w.kinds)),
	}
	for k, v := range w.outcomes {
		stats.Outcomes[k] = v
	}
	for k, v := range w.kinds {
		stats.Kinds[k] = v
	}
	if last, ok := w.subscriber.LastProcessedBlock(); ok {
		stats.LastProcessedBlock = &last
	}
	if rc, ok := w.subscriber.(reconnectCounter); ok {
		n := rc.Reconnects()
		stats.Reconnects = &n
	}

	return stats
}
