package sideeffect

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrolink/marketplace-watcher/internal/adapter"
	"github.com/agrolink/marketplace-watcher/internal/certificate"
	"github.com/agrolink/marketplace-watcher/internal/domain"
	"github.com/agrolink/marketplace-watcher/internal/logger"
	"github.com/agrolink/marketplace-watcher/internal/messaging"
	"github.com/agrolink/marketplace-watcher/internal/mocks"
	"github.com/agrolink/marketplace-watcher/internal/reputation"
	"github.com/agrolink/marketplace-watcher/internal/store"
	"github.com/agrolink/marketplace-watcher/internal/store/memstore"
	"github.com/agrolink/marketplace-watcher/internal/store/schema"
)

const (
	testSeller = "0x1111111111111111111111111111111111111111"
	testBuyer  = "0x2222222222222222222222222222222222222222"
	testTxHash = "0xbbbb000000000000000000000000000000000000000000000000000000000002"
)

func TestMain(m *testing.M) {
	if err := logger.Initialize(logger.Config{Debug: true}); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type fixture struct {
	store      *memstore.Store
	publisher  *mocks.MockPublisher
	dispatcher *Dispatcher
	now        time.Time
}

func newFixture(t *testing.T, withPublisher bool) *fixture {
	t.Helper()

	ctrl := gomock.NewController(t)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := mocks.NewMockClock(ctrl)
	clock.EXPECT().Now().Return(now).AnyTimes()

	st := memstore.New()
	canonicalizer := adapter.NewCanonicalizer(adapter.NewJSON())

	f := &fixture{store: st, now: now}

	var publisher messaging.Publisher
	if withPublisher {
		f.publisher = mocks.NewMockPublisher(ctrl)
		publisher = f.publisher
	}

	f.dispatcher = NewDispatcher(
		st,
		reputation.NewService(st),
		certificate.NewBuilder(canonicalizer, "https://certs.test"),
		canonicalizer,
		publisher,
		clock,
	)
	return f
}

func (f *fixture) seedSale(t *testing.T) Purchase {
	t.Helper()
	ctx := context.Background()

	logIndex := uint64(2)
	product, created, err := f.store.CreateProduct(ctx, store.ListingInput{
		OnchainID:    7,
		Name:         "onchain#7",
		Quantity:     1,
		Price:        1.5,
		Seller:       testSeller,
		OnchainPrice: "1.5",
	})
	require.NoError(t, err)
	require.True(t, created)

	_, err = f.store.MarkProductSold(ctx, store.MarkSoldInput{
		OnchainID:         7,
		Buyer:             testBuyer,
		EscrowReleaseTime: f.now.Add(domain.DEFAULT_ESCROW_HOLD_PERIOD),
		TxHash:            testTxHash,
		LogIndex:          &logIndex,
	})
	require.NoError(t, err)

	tx, created, err := f.store.CreateOnchainTransaction(ctx, store.CreateOnchainTransactionInput{
		TxHash:           testTxHash,
		OnchainProductID: 7,
		ProductID:        &product.ID,
		Buyer:            testBuyer,
		Seller:           testSeller,
		Amount:           "1.5",
		LogIndex:         &logIndex,
	})
	require.NoError(t, err)
	require.True(t, created)

	sold, err := f.store.GetProductByOnchainID(ctx, 7)
	require.NoError(t, err)

	return Purchase{
		Product:     sold,
		Transaction: tx,
		Event: &domain.ChainEvent{
			Kind:           domain.EventKindBought,
			ProductChainID: 7,
			Buyer:          testBuyer,
			Seller:         testSeller,
			Amount:         "1.5",
			TxHash:         testTxHash,
			LogIndex:       &logIndex,
		},
	}
}

func (f *fixture) addFarmer(wallet string) string {
	f.store.AddFarmer(schema.Farmer{
		ID:              "farmer-1",
		Name:            "Abebe",
		Role:            "farmer",
		WalletAddress:   &wallet,
		ReputationScore: 50,
	})
	return "farmer-1"
}

func TestDispatchPurchase_AllSteps(t *testing.T) {
	f := newFixture(t, true)
	farmerID := f.addFarmer(testSeller)
	p := f.seedSale(t)

	var published *messaging.Notification
	f.publisher.EXPECT().
		PublishNotification(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, n *messaging.Notification) error {
			published = n
			return nil
		})

	report := f.dispatcher.DispatchPurchase(context.Background(), p)

	assert.Equal(t, Report{
		Trace:        StepApplied,
		Certificate:  StepApplied,
		Reputation:   StepApplied,
		Notification: StepApplied,
	}, report)
	assert.Zero(t, report.Failures())

	trace, err := f.store.GetSupplyChainTraceByProductID(context.Background(), p.Product.ID)
	require.NoError(t, err)
	require.NotNil(t, trace)
	assert.Equal(t, "Abebe", trace.FarmRegion)
	require.Len(t, trace.Events, 1)
	assert.Equal(t, domain.SupplyChainStageHarvested, trace.Events[0].Stage)

	certs := f.store.Certificates()
	require.Len(t, certs, 1)
	assert.Equal(t, p.Product.ID, certs[0].ProductID)
	require.NotNil(t, certs[0].OwnerAddress)
	assert.Equal(t, testBuyer, *certs[0].OwnerAddress)

	history := f.store.ReputationHistory(farmerID)
	require.Len(t, history, 1)
	assert.Equal(t, testTxHash, history[0].TransactionID)

	require.NotNil(t, published)
	assert.Equal(t, messaging.NotificationProductSold, published.Type)
	assert.Equal(t, testTxHash+":2:product.sold", published.ID)
	assert.Equal(t, p.Product.ID, published.ProductID)
	assert.Equal(t, "1.5", published.Amount)
	assert.Equal(t, string(domain.EscrowStatusPending), published.EscrowStatus)
}

func TestDispatchPurchase_RedispatchSkips(t *testing.T) {
	f := newFixture(t, false)
	farmerID := f.addFarmer(testSeller)
	p := f.seedSale(t)

	first := f.dispatcher.DispatchPurchase(context.Background(), p)
	require.Equal(t, StepApplied, first.Trace)

	second := f.dispatcher.DispatchPurchase(context.Background(), p)
	assert.Equal(t, Report{
		Trace:        StepSkipped,
		Certificate:  StepSkipped,
		Reputation:   StepSkipped,
		Notification: StepSkipped,
	}, second)

	assert.Equal(t, 1, f.store.Traces())
	assert.Len(t, f.store.Certificates(), 1)
	assert.Len(t, f.store.ReputationHistory(farmerID), 1)
}

func TestDispatchPurchase_FailureIsIsolated(t *testing.T) {
	f := newFixture(t, true)
	farmerID := f.addFarmer(testSeller)
	p := f.seedSale(t)

	f.store.FailOn("CreateSupplyChainTrace", errors.New("constraint violation"))
	f.publisher.EXPECT().
		PublishNotification(gomock.Any(), gomock.Any()).
		Return(errors.New("nats: no responders"))

	report := f.dispatcher.DispatchPurchase(context.Background(), p)

	assert.Equal(t, StepFailed, report.Trace)
	assert.Equal(t, StepApplied, report.Certificate)
	assert.Equal(t, StepApplied, report.Reputation)
	assert.Equal(t, StepFailed, report.Notification)
	assert.Equal(t, 2, report.Failures())

	assert.Equal(t, 0, f.store.Traces())
	assert.Len(t, f.store.Certificates(), 1)
	assert.Len(t, f.store.ReputationHistory(farmerID), 1)
}

func TestDispatchPurchase_UnknownFarmerSkipsReputation(t *testing.T) {
	f := newFixture(t, false)
	p := f.seedSale(t)

	report := f.dispatcher.DispatchPurchase(context.Background(), p)

	assert.Equal(t, StepApplied, report.Trace)
	assert.Equal(t, StepApplied, report.Certificate)
	assert.Equal(t, StepSkipped, report.Reputation)

	trace, err := f.store.GetSupplyChainTraceByProductID(context.Background(), p.Product.ID)
	require.NoError(t, err)
	assert.Equal(t, "Unknown", trace.FarmRegion)
}

func TestDispatchPurchase_FarmerByOwnerID(t *testing.T) {
	f := newFixture(t, false)
	farmerID := f.addFarmer("0x9999999999999999999999999999999999999999")
	p := f.seedSale(t)
	p.Product.UserID = &farmerID

	report := f.dispatcher.DispatchPurchase(context.Background(), p)

	assert.Equal(t, StepApplied, report.Reputation)
	assert.Len(t, f.store.ReputationHistory(farmerID), 1)
}

func TestDispatchPurchase_FarmerLookupErrorStillRunsSteps(t *testing.T) {
	f := newFixture(t, false)
	p := f.seedSale(t)
	f.store.FailOn("GetFarmerByWalletAddress", errors.New("timeout"))

	report := f.dispatcher.DispatchPurchase(context.Background(), p)

	assert.Equal(t, StepApplied, report.Trace)
	assert.Equal(t, StepApplied, report.Certificate)
	assert.Equal(t, StepSkipped, report.Reputation)
}

type panickingRecorder struct{}

func (panickingRecorder) RecordTransaction(context.Context, string, string) (*reputation.Change, error) {
	panic("nil map")
}

func TestDispatchPurchase_RecoversStepPanic(t *testing.T) {
	f := newFixture(t, false)
	f.addFarmer(testSeller)
	p := f.seedSale(t)
	f.dispatcher.reputation = panickingRecorder{}

	report := f.dispatcher.DispatchPurchase(context.Background(), p)

	assert.Equal(t, StepApplied, report.Trace)
	assert.Equal(t, StepFailed, report.Reputation)
}

func TestNotifyEscrowChange(t *testing.T) {
	logIndex := uint64(4)
	ev := &domain.ChainEvent{
		Kind:           domain.EventKindDisputeRaised,
		ProductChainID: 7,
		RaisedBy:       testBuyer,
		TxHash:         "0xcccc",
		LogIndex:       &logIndex,
	}
	seller := testSeller
	product := &schema.Product{ID: "p-1", Name: "onchain#7", Seller: &seller}

	t.Run("publishes", func(t *testing.T) {
		f := newFixture(t, true)
		f.publisher.EXPECT().
			PublishNotification(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, n *messaging.Notification) error {
				assert.Equal(t, messaging.NotificationDisputeRaised, n.Type)
				assert.Equal(t, "0xcccc:4:escrow.dispute_raised", n.ID)
				assert.Equal(t, "p-1", n.ProductID)
				assert.Equal(t, testSeller, n.Seller)
				assert.Equal(t, string(domain.EscrowStatusDisputed), n.EscrowStatus)
				return nil
			})

		assert.Equal(t, StepApplied, f.dispatcher.NotifyEscrowChange(context.Background(), product, ev, domain.EscrowStatusDisputed))
	})

	t.Run("publish error", func(t *testing.T) {
		f := newFixture(t, true)
		f.publisher.EXPECT().PublishNotification(gomock.Any(), gomock.Any()).Return(errors.New("closed"))

		assert.Equal(t, StepFailed, f.dispatcher.NotifyEscrowChange(context.Background(), product, ev, domain.EscrowStatusDisputed))
	})

	t.Run("disabled", func(t *testing.T) {
		f := newFixture(t, false)
		assert.Equal(t, StepSkipped, f.dispatcher.NotifyEscrowChange(context.Background(), product, ev, domain.EscrowStatusDisputed))
	})

	t.Run("not an escrow event", func(t *testing.T) {
		f := newFixture(t, true)
		listed := &domain.ChainEvent{Kind: domain.EventKindListed, ProductChainID: 7}
		assert.Equal(t, StepSkipped, f.dispatcher.NotifyEscrowChange(context.Background(), product, listed, domain.EscrowStatusPending))
	})
}

func TestNotificationID(t *testing.T) {
	idx := uint64(1)
	assert.Equal(t, "0xab:1:product.sold", notificationID("0xab", &idx, messaging.NotificationProductSold))
	assert.Equal(t, "0xab:escrow.released", notificationID("0xab", nil, messaging.NotificationEscrowReleased))
	assert.Empty(t, notificationID("", &idx, messaging.NotificationEscrowReleased))
}
