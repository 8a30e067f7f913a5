package messaging

import (
	"context"

	"github.com/agrolink/marketplace-watcher/internal/domain"
)

// EventHandler is called for every raw marketplace event, in delivery order.
// Handlers run one at a time; the next event is not delivered until the handler returns.
type EventHandler func(ctx context.Context, kind domain.EventKind, raw *RawEvent) error

// Subscriber is the event feed of the watcher.
// The push (log subscription) and pull (range query polling) transports both implement it.
//
//go:generate mockgen -source=subscriber.go -destination=../mocks/subscriber.go -package=mocks -mock_names=Subscriber=MockSubscriber
type Subscriber interface {
	// SubscribeEvents delivers events starting at fromBlock until ctx is cancelled.
	// It returns ctx.Err() on shutdown and a non-nil error only when the feed cannot continue.
	SubscribeEvents(ctx context.Context, fromBlock uint64, handler EventHandler) error

	// GetLatestBlock returns the latest block number
	GetLatestBlock(ctx context.Context) (uint64, error)

	// LastProcessedBlock returns the highest block whose events were all delivered
	LastProcessedBlock() (uint64, bool)

	// Mode returns "push" or "pull"
	Mode() string

	// Close closes the connection and cleans up resources
	Close()
}
