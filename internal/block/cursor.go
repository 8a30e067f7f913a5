package block

import (
	"context"
	"sync"
)

// CursorStore persists the last processed block across restarts
//
//go:generate mockgen -source=cursor.go -destination=../mocks/cursor_store.go -package=mocks -mock_names=CursorStore=MockCursorStore
type CursorStore interface {
	// GetBlockCursor retrieves the last processed block number for a chain, 0 when none is stored
	GetBlockCursor(ctx context.Context, chain string) (uint64, error)
	// SetBlockCursor stores the last processed block number for a chain
	SetBlockCursor(ctx context.Context, chain string, blockNumber uint64) error
}

// Cursor tracks the next block the watcher still has to process.
// It only moves forward and is safe for concurrent readers.
type Cursor struct {
	mu   sync.RWMutex
	next uint64
}

// NewCursor creates a cursor whose first unprocessed block is next
func NewCursor(next uint64) *Cursor {
	return &Cursor{next: next}
}

// NewCursorAfter creates a cursor that treats head as already processed
func NewCursorAfter(head uint64) *Cursor {
	return &Cursor{next: head + 1}
}

// Next returns the first block that has not been processed yet
func (c *Cursor) Next() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.next
}

// Last returns the last processed block. ok is false before anything was processed.
func (c *Cursor) Last() (last uint64, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.next == 0 {
		return 0, false
	}
	return c.next - 1, true
}

// Window returns the inclusive block range still to process up to head.
// ok is false when head has not moved past the cursor.
func (c *Cursor) Window(head uint64) (from, to uint64, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if head < c.next {
		return 0, 0, false
	}
	return c.next, head, true
}

// Advance marks every block up to and including to as processed.
// It reports whether the cursor moved.
func (c *Cursor) Advance(to uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if to+1 <= c.next {
		return false
	}
	c.next = to + 1
	return true
}
