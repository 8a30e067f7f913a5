// Package sideeffect runs the enrichment writes that follow a newly recorded purchase.
// Every step is idempotent and isolated: a failing step is logged and the next step still runs.
package sideeffect

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/agrolink/marketplace-watcher/internal/adapter"
	"github.com/agrolink/marketplace-watcher/internal/certificate"
	"github.com/agrolink/marketplace-watcher/internal/domain"
	"github.com/agrolink/marketplace-watcher/internal/logger"
	"github.com/agrolink/marketplace-watcher/internal/messaging"
	"github.com/agrolink/marketplace-watcher/internal/reputation"
	"github.com/agrolink/marketplace-watcher/internal/store"
	"github.com/agrolink/marketplace-watcher/internal/store/schema"
	"github.com/agrolink/marketplace-watcher/internal/supplychain"
)

// StepResult is the outcome of one side effect
type StepResult string

const (
	// StepApplied means the step wrote new state
	StepApplied StepResult = "applied"
	// StepSkipped means the state already existed or the step had nothing to do
	StepSkipped StepResult = "skipped"
	// StepFailed means the step errored; the error was logged
	StepFailed StepResult = "failed"
)

// Report summarises a purchase dispatch
type Report struct {
	Trace        StepResult
	Certificate  StepResult
	Reputation   StepResult
	Notification StepResult
}

// Failures returns the number of failed steps
func (r Report) Failures() int {
	n := 0
	for _, s := range []StepResult{r.Trace, r.Certificate, r.Reputation, r.Notification} {
		if s == StepFailed {
			n++
		}
	}
	return n
}

// ReputationRecorder credits a completed sale to a farmer
type ReputationRecorder interface {
	RecordTransaction(ctx context.Context, farmerID string, txHash string) (*reputation.Change, error)
}

// Purchase is a newly recorded on-chain purchase
type Purchase struct {
	Product     *schema.Product
	Transaction *schema.OnchainTransaction
	Event       *domain.ChainEvent
}

// Dispatcher fans out side effects for purchases and escrow transitions
type Dispatcher struct {
	store         store.Store
	reputation    ReputationRecorder
	certificates  *certificate.Builder
	canonicalizer adapter.Canonicalizer
	publisher     messaging.Publisher
	clock         adapter.Clock
}

// NewDispatcher creates a dispatcher. A nil publisher disables notifications.
func NewDispatcher(
	st store.Store,
	rep ReputationRecorder,
	certificates *certificate.Builder,
	canonicalizer adapter.Canonicalizer,
	publisher messaging.Publisher,
	clock adapter.Clock,
) *Dispatcher {
	return &Dispatcher{
		store:         st,
		reputation:    rep,
		certificates:  certificates,
		canonicalizer: canonicalizer,
		publisher:     publisher,
		clock:         clock,
	}
}

// DispatchPurchase runs, in order, the supply chain trace, NFT certificate, reputation and
// notification steps for a purchase. It never returns an error.
func (d *Dispatcher) DispatchPurchase(ctx context.Context, p Purchase) Report {
	fields := logger.EventFields(p.Event)
	fields = append(fields, zap.String("product_id", p.Product.ID))

	farmer, err := d.resolveFarmer(ctx, p.Product)
	if err != nil {
		logger.ErrorCtx(ctx, fmt.Errorf("failed to resolve farmer: %w", err), fields...)
	}

	report := Report{
		Trace:        d.step(ctx, "supply_chain_trace", fields, func() (bool, error) { return d.createTrace(ctx, p, farmer) }),
		Certificate:  d.step(ctx, "nft_certificate", fields, func() (bool, error) { return d.createCertificate(ctx, p, farmer) }),
		Reputation:   d.step(ctx, "reputation", fields, func() (bool, error) { return d.recordReputation(ctx, p, farmer) }),
		Notification: d.step(ctx, "notification", fields, func() (bool, error) { return d.notifySold(ctx, p) }),
	}

	logger.InfoCtx(ctx, "Purchase side effects dispatched", append(fields,
		zap.String("trace", string(report.Trace)),
		zap.String("certificate", string(report.Certificate)),
		zap.String("reputation", string(report.Reputation)),
		zap.String("notification", string(report.Notification)))...)

	return report
}

// step runs fn, converting panics and errors into a logged StepFailed
func (d *Dispatcher) step(ctx context.Context, name string, fields []zap.Field, fn func() (bool, error)) (result StepResult) {
	defer func() {
		if r := recover(); r != nil {
			logger.ErrorCtx(ctx, fmt.Errorf("side effect %s panicked: %v", name, r), fields...)
			result = StepFailed
		}
	}()

	applied, err := fn()
	if err != nil {
		logger.ErrorCtx(ctx, fmt.Errorf("side effect %s failed: %w", name, err), fields...)
		return StepFailed
	}
	if !applied {
		return StepSkipped
	}
	return StepApplied
}

// resolveFarmer finds the seller's farmer row by wallet, falling back to the product owner
func (d *Dispatcher) resolveFarmer(ctx context.Context, product *schema.Product) (*schema.Farmer, error) {
	if product.Seller != nil && *product.Seller != "" {
		farmer, err := d.store.GetFarmerByWalletAddress(ctx, *product.Seller)
		if err != nil {
			return nil, err
		}
		if farmer != nil {
			return farmer, nil
		}
	}

	if product.UserID != nil && *product.UserID != "" {
		return d.store.GetFarmerByID(ctx, *product.UserID)
	}

	return nil, nil
}

func (d *Dispatcher) createTrace(ctx context.Context, p Purchase, farmer *schema.Farmer) (bool, error) {
	existing, err := d.store.GetSupplyChainTraceByProductID(ctx, p.Product.ID)
	if err != nil {
		return false, err
	}
	if existing != nil {
		return false, nil
	}

	input := supplychain.SeedInput{
		ProductID:   p.Product.ID,
		ProductName: p.Product.Name,
		OnchainID:   p.Transaction.OnchainProductID,
		Seller:      stringValue(p.Transaction.Seller),
		TxHash:      p.Transaction.TxHash,
		Timestamp:   d.clock.Now().UTC(),
	}
	if farmer != nil {
		input.FarmerID = farmer.ID
		input.FarmerName = farmer.Name
		input.FarmerPhone = stringValue(farmer.Phone)
	}

	seed, err := supplychain.NewTraceSeed(d.canonicalizer, input)
	if err != nil {
		return false, err
	}

	return d.store.CreateSupplyChainTrace(ctx, seed)
}

func (d *Dispatcher) createCertificate(ctx context.Context, p Purchase, farmer *schema.Farmer) (bool, error) {
	existing, err := d.store.GetNFTCertificateByProductID(ctx, p.Product.ID)
	if err != nil {
		return false, err
	}
	if existing != nil {
		return false, nil
	}

	data := certificate.Data{
		ProductID:       p.Product.ID,
		ProductName:     p.Product.Name,
		FarmerAddress:   stringValue(p.Transaction.Seller),
		TransactionHash: p.Transaction.TxHash,
		ImageURL:        stringValue(p.Product.ImageURL),
		OwnerAddress:    p.Transaction.Buyer,
	}
	if farmer != nil {
		data.FarmerName = farmer.Name
		data.Region = stringValue(farmer.Region)
	}

	input, err := d.certificates.Build(data, d.clock.Now())
	if err != nil {
		return false, err
	}

	return d.store.CreateNFTCertificate(ctx, input)
}

func (d *Dispatcher) recordReputation(ctx context.Context, p Purchase, farmer *schema.Farmer) (bool, error) {
	if farmer == nil {
		logger.WarnCtx(ctx, "No farmer found for seller, skipping reputation update",
			zap.String("seller", stringValue(p.Transaction.Seller)),
			zap.String("tx_hash", p.Transaction.TxHash))
		return false, nil
	}

	change, err := d.reputation.RecordTransaction(ctx, farmer.ID, p.Transaction.TxHash)
	if err != nil {
		return false, err
	}

	if change.Applied {
		logger.InfoCtx(ctx, "Farmer reputation updated",
			zap.String("farmer_id", farmer.ID),
			zap.Float64("previous_score", change.PreviousScore),
			zap.Float64("new_score", change.NewScore))
	}
	return change.Applied, nil
}

func (d *Dispatcher) notifySold(ctx context.Context, p Purchase) (bool, error) {
	if d.publisher == nil {
		return false, nil
	}

	err := d.publisher.PublishNotification(ctx, &messaging.Notification{
		ID:             notificationID(p.Transaction.TxHash, p.Transaction.LogIndex, messaging.NotificationProductSold),
		Type:           messaging.NotificationProductSold,
		ProductID:      p.Product.ID,
		ProductChainID: p.Transaction.OnchainProductID,
		ProductName:    p.Product.Name,
		Seller:         stringValue(p.Transaction.Seller),
		Buyer:          p.Transaction.Buyer,
		Amount:         p.Transaction.Amount,
		EscrowStatus:   string(domain.EscrowStatusPending),
		TxHash:         p.Transaction.TxHash,
		OccurredAt:     d.clock.Now().UTC(),
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

var escrowNotifications = map[domain.EventKind]messaging.NotificationType{
	domain.EventKindDeliveryConfirmed: messaging.NotificationDeliveryConfirmed,
	domain.EventKindEscrowReleased:    messaging.NotificationEscrowReleased,
	domain.EventKindDisputeRaised:     messaging.NotificationDisputeRaised,
	domain.EventKindDisputeResolved:   messaging.NotificationDisputeResolved,
}

// NotifyEscrowChange publishes an escrow transition. Failures are logged and reported as StepFailed.
func (d *Dispatcher) NotifyEscrowChange(ctx context.Context, product *schema.Product, ev *domain.ChainEvent, status domain.EscrowStatus) StepResult {
	notificationType, ok := escrowNotifications[ev.Kind]
	if !ok || d.publisher == nil {
		return StepSkipped
	}

	n := &messaging.Notification{
		ID:             notificationID(ev.TxHash, ev.LogIndex, notificationType),
		Type:           notificationType,
		ProductChainID: ev.ProductChainID,
		EscrowStatus:   string(status),
		TxHash:         ev.TxHash,
		OccurredAt:     d.clock.Now().UTC(),
	}
	if product != nil {
		n.ProductID = product.ID
		n.ProductName = product.Name
		n.Seller = stringValue(product.Seller)
		n.Buyer = stringValue(product.Buyer)
	}

	return d.step(ctx, "notification", logger.EventFields(ev), func() (bool, error) {
		if err := d.publisher.PublishNotification(ctx, n); err != nil {
			return false, err
		}
		return true, nil
	})
}

// notificationID derives a stable id from the triggering log so a replayed event
// republishes under the same JetStream message id. Empty without a tx hash.
func notificationID(txHash string, logIndex *uint64, t messaging.NotificationType) string {
	if txHash == "" {
		return ""
	}
	if logIndex == nil {
		return fmt.Sprintf("%s:%s", txHash, t)
	}
	return fmt.Sprintf("%s:%d:%s", txHash, *logIndex, t)
}

func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
