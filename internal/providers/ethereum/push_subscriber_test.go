package ethereum

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrolink/marketplace-watcher/internal/domain"
	"github.com/agrolink/marketplace-watcher/internal/messaging"
	"github.com/agrolink/marketplace-watcher/internal/mocks"
)

type fakeSubscription struct {
	errCh        chan error
	unsubscribed atomic.Bool
}

func newFakeSubscription() *fakeSubscription {
	return &fakeSubscription{errCh: make(chan error, 1)}
}

func (s *fakeSubscription) Err() <-chan error {
	return s.errCh
}

func (s *fakeSubscription) Unsubscribe() {
	s.unsubscribed.Store(true)
}

func newTestPushSubscriber(t *testing.T, client MarketplaceClient) *pushSubscriber {
	t.Helper()
	sub := NewPushSubscriber(PushConfig{
		ChainID:         domain.ChainHardhatLocal,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
	}, client).(*pushSubscriber)
	t.Cleanup(sub.reader.stop)
	return sub
}

func TestPushSubscribeEvents_CatchesUpThenFollowsLive(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockMarketplaceClient(ctrl)
	decodeAsBlock(client)

	sub := newFakeSubscription()
	var live chan<- types.Log
	client.EXPECT().
		SubscribeEvents(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, ch chan<- types.Log) (ethereum.Subscription, error) {
			live = ch
			return sub, nil
		})
	client.EXPECT().LatestBlock(gomock.Any()).Return(uint64(102), nil)
	filterReturning(client, 100, 102, map[domain.EventKind][]types.Log{
		domain.EventKindListed: {{BlockNumber: 101}},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := &collector{}
	handler := func(ctx context.Context, kind domain.EventKind, raw *messaging.RawEvent) error {
		require.NoError(t, events.handle(ctx, kind, raw))
		switch *raw.BlockNumber {
		case 101:
			live <- types.Log{BlockNumber: 104}
		case 104:
			cancel()
		}
		return nil
	}

	s := newTestPushSubscriber(t, client)
	err := s.SubscribeEvents(ctx, 100, handler)
	assert.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, []uint64{101, 104}, events.delivered())
	assert.True(t, sub.unsubscribed.Load())

	last, ok := s.LastProcessedBlock()
	require.True(t, ok)
	assert.Equal(t, uint64(103), last)
	assert.Equal(t, int64(0), s.Reconnects())
	assert.Equal(t, "push", s.Mode())
}

func TestPushSubscribeEvents_ReconnectsAndReplaysGap(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockMarketplaceClient(ctrl)
	decodeAsBlock(client)

	first := newFakeSubscription()
	first.errCh <- errors.New("websocket: close 1006")
	second := newFakeSubscription()

	gomock.InOrder(
		client.EXPECT().SubscribeEvents(gomock.Any(), gomock.Any()).Return(first, nil),
		client.EXPECT().SubscribeEvents(gomock.Any(), gomock.Any()).Return(second, nil),
	)
	gomock.InOrder(
		client.EXPECT().LatestBlock(gomock.Any()).Return(uint64(100), nil),
		client.EXPECT().LatestBlock(gomock.Any()).Return(uint64(101), nil),
	)
	filterReturning(client, 100, 100, nil)
	filterReturning(client, 101, 101, map[domain.EventKind][]types.Log{
		domain.EventKindBought: {{BlockNumber: 101}},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := &collector{}
	handler := func(ctx context.Context, kind domain.EventKind, raw *messaging.RawEvent) error {
		defer cancel()
		return events.handle(ctx, kind, raw)
	}

	s := newTestPushSubscriber(t, client)
	err := s.SubscribeEvents(ctx, 100, handler)
	assert.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, []uint64{101}, events.delivered())
	assert.True(t, first.unsubscribed.Load())
	assert.Equal(t, int64(1), s.Reconnects())

	last, _ := s.LastProcessedBlock()
	assert.Equal(t, uint64(101), last)
}

func TestPushSubscribeEvents_CheckpointsAndRaisesHead(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockMarketplaceClient(ctrl)
	heads := mocks.NewMockBlockHeadProvider(ctrl)
	cursors := mocks.NewMockCursorStore(ctrl)
	decodeAsBlock(client)

	sub := newFakeSubscription()
	var live chan<- types.Log
	client.EXPECT().
		SubscribeEvents(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, ch chan<- types.Log) (ethereum.Subscription, error) {
			live = ch
			return sub, nil
		})
	client.EXPECT().LatestBlock(gomock.Any()).Return(uint64(201), nil)
	filterReturning(client, 200, 201, map[domain.EventKind][]types.Log{
		domain.EventKindListed: {{BlockNumber: 200}},
	})

	gomock.InOrder(
		cursors.EXPECT().SetBlockCursor(gomock.Any(), string(domain.ChainHardhatLocal), uint64(201)).Return(nil),
		cursors.EXPECT().SetBlockCursor(gomock.Any(), string(domain.ChainHardhatLocal), uint64(204)).Return(errors.New("db locked")),
	)
	heads.EXPECT().Observe(uint64(205)).Times(2)
	heads.EXPECT().GetLatestBlock(gomock.Any()).Return(uint64(205), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := &collector{}
	handler := func(ctx context.Context, kind domain.EventKind, raw *messaging.RawEvent) error {
		require.NoError(t, events.handle(ctx, kind, raw))
		switch len(events.delivered()) {
		case 1:
			// two logs of one block checkpoint the block before it once
			live <- types.Log{BlockNumber: 205, Index: 0}
			live <- types.Log{BlockNumber: 205, Index: 1}
		case 3:
			cancel()
		}
		return nil
	}

	s := NewPushSubscriber(PushConfig{
		ChainID:         domain.ChainHardhatLocal,
		InitialInterval: time.Millisecond,
		Heads:           heads,
		Checkpoint:      cursors,
	}, client).(*pushSubscriber)
	t.Cleanup(s.reader.stop)

	err := s.SubscribeEvents(ctx, 200, handler)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []uint64{200, 205, 205}, events.delivered())

	last, _ := s.LastProcessedBlock()
	assert.Equal(t, uint64(204), last, "a failed checkpoint still advances the cursor")

	head, err := s.GetLatestBlock(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(205), head)
}

func TestPushSubscribeEvents_GivesUpAfterMaxElapsedTime(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockMarketplaceClient(ctrl)

	client.EXPECT().
		SubscribeEvents(gomock.Any(), gomock.Any()).
		Return(nil, errors.New("dial tcp: connection refused")).
		MinTimes(1)

	s := NewPushSubscriber(PushConfig{
		ChainID:         domain.ChainHardhatLocal,
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
		MaxElapsedTime:  20 * time.Millisecond,
	}, client).(*pushSubscriber)
	t.Cleanup(s.reader.stop)

	err := s.SubscribeEvents(context.Background(), 1, (&collector{}).handle)
	assert.ErrorContains(t, err, "marketplace subscription abandoned")
	assert.ErrorContains(t, err, "connection refused")

	_, ok := s.LastProcessedBlock()
	assert.True(t, ok, "cursor starts at the requested block")
}
