// Package reconciler mirrors normalized marketplace events into the local projection.
//
// Every transition is keyed by the on-chain product id or the transaction hash, so
// applying the same event twice, or replaying a block range, converges to the same rows.
// Errors are logged and reported in the Result; they never stop the event stream.
package reconciler

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/agrolink/marketplace-watcher/internal/adapter"
	"github.com/agrolink/marketplace-watcher/internal/domain"
	"github.com/agrolink/marketplace-watcher/internal/logger"
	"github.com/agrolink/marketplace-watcher/internal/sideeffect"
	"github.com/agrolink/marketplace-watcher/internal/store"
	"github.com/agrolink/marketplace-watcher/internal/store/schema"
)

// Outcome classifies what Apply did with an event
type Outcome string

const (
	OutcomeCreated   Outcome = "created"
	OutcomeUpdated   Outcome = "updated"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeNotFound  Outcome = "not_found"
	OutcomeIgnored   Outcome = "ignored"
	OutcomeFailed    Outcome = "failed"
)

// AllOutcomes lists every outcome
func AllOutcomes() []Outcome {
	return []Outcome{OutcomeCreated, OutcomeUpdated, OutcomeDuplicate, OutcomeNotFound, OutcomeIgnored, OutcomeFailed}
}

// Result reports the effect of one event
type Result struct {
	Kind    domain.EventKind
	Outcome Outcome
	// TransactionCreated is set when a Bought event recorded a new purchase
	TransactionCreated bool
	// SideEffects is the purchase dispatch report, nil unless TransactionCreated
	SideEffects *sideeffect.Report
	// Err is the logged error, if any. A non-nil Err with a non-failed Outcome means the
	// projection was updated but a follow-up write (the purchase record) failed.
	Err error
}

// Dispatcher runs follow-up work for purchases and escrow transitions
type Dispatcher interface {
	DispatchPurchase(ctx context.Context, p sideeffect.Purchase) sideeffect.Report
	NotifyEscrowChange(ctx context.Context, product *schema.Product, ev *domain.ChainEvent, status domain.EscrowStatus) sideeffect.StepResult
}

// Config holds reconciler settings
type Config struct {
	// EscrowHoldPeriod is added to the purchase time to get the escrow release time
	EscrowHoldPeriod time.Duration
}

// Reconciler applies chain events to the store
type Reconciler struct {
	store      store.Store
	dispatcher Dispatcher
	clock      adapter.Clock
	holdPeriod time.Duration
}

// New creates a reconciler
func New(st store.Store, dispatcher Dispatcher, clock adapter.Clock, cfg Config) *Reconciler {
	hold := cfg.EscrowHoldPeriod
	if hold <= 0 {
		hold = domain.DEFAULT_ESCROW_HOLD_PERIOD
	}

	return &Reconciler{
		store:      st,
		dispatcher: dispatcher,
		clock:      clock,
		holdPeriod: hold,
	}
}

// Apply applies one event to the projection
func (r *Reconciler) Apply(ctx context.Context, ev *domain.ChainEvent) (result Result) {
	result.Kind = ev.Kind
	fields := logger.EventFields(ev)

	defer func() {
		if rec := recover(); rec != nil {
			result.Outcome = OutcomeFailed
			result.Err = fmt.Errorf("panic while reconciling: %v", rec)
			logger.ErrorCtx(ctx, result.Err, fields...)
		}
	}()

	switch ev.Kind {
	case domain.EventKindListed:
		return r.applyListed(ctx, ev, fields)
	case domain.EventKindBought:
		return r.applyBought(ctx, ev, fields)
	case domain.EventKindDeliveryConfirmed,
		domain.EventKindEscrowReleased,
		domain.EventKindDisputeRaised,
		domain.EventKindDisputeResolved:
		return r.applyEscrow(ctx, ev, fields)
	default:
		logger.WarnCtx(ctx, "Ignoring event of unknown kind", fields...)
		return Result{Kind: ev.Kind, Outcome: OutcomeIgnored, Err: fmt.Errorf("%w: %s", domain.ErrUnknownEventKind, ev.Kind)}
	}
}

func failed(ctx context.Context, kind domain.EventKind, err error, fields []zap.Field) Result {
	logger.ErrorCtx(ctx, err, fields...)
	return Result{Kind: kind, Outcome: OutcomeFailed, Err: err}
}

// listingInput builds the listing fields the web API expects for on-chain products
func listingInput(ctx context.Context, ev *domain.ChainEvent) store.ListingInput {
	price := 0.0
	if ev.Amount != "" {
		p, err := strconv.ParseFloat(ev.Amount, 64)
		if err != nil {
			logger.WarnCtx(ctx, "Listing price is not a number, storing 0",
				append(logger.EventFields(ev), zap.String("amount", ev.Amount))...)
		} else {
			price = p
		}
	}

	return store.ListingInput{
		OnchainID:    ev.ProductChainID,
		Name:         fmt.Sprintf("%s%d", domain.ONCHAIN_PRODUCT_NAME_PREFIX, ev.ProductChainID),
		Quantity:     domain.ONCHAIN_LISTING_QUANTITY,
		Price:        price,
		Description:  fmt.Sprintf("On-chain listing by %s", ev.Seller),
		ImageURL:     ev.MetadataURI,
		Seller:       ev.Seller,
		OnchainPrice: ev.Amount,
		MetadataURI:  ev.MetadataURI,
		TxHash:       ev.TxHash,
		LogIndex:     ev.LogIndex,
		BlockNumber:  ev.BlockNumber,
	}
}

func (r *Reconciler) applyListed(ctx context.Context, ev *domain.ChainEvent, fields []zap.Field) Result {
	existing, err := r.store.GetProductByOnchainID(ctx, ev.ProductChainID)
	if err != nil {
		return failed(ctx, ev.Kind, fmt.Errorf("failed to look up listed product: %w", err), fields)
	}

	input := listingInput(ctx, ev)

	if existing == nil {
		product, created, err := r.store.CreateProduct(ctx, input)
		if err != nil {
			return failed(ctx, ev.Kind, fmt.Errorf("failed to create product: %w", err), fields)
		}
		if created {
			logger.InfoCtx(ctx, "Created product for on-chain listing", append(fields, zap.String("product_id", product.ID))...)
			return Result{Kind: ev.Kind, Outcome: OutcomeCreated}
		}
		// Lost an insert race; continue as if the row had been found
		existing = product
	}

	if ev.SameOccurrence(deref(existing.OnchainTxHash), existing.OnchainLogIndex) {
		logger.InfoCtx(ctx, "Duplicate listing event, skipping", fields...)
		return Result{Kind: ev.Kind, Outcome: OutcomeDuplicate}
	}

	updated, err := r.store.UpdateListing(ctx, input)
	if err != nil {
		return failed(ctx, ev.Kind, fmt.Errorf("failed to update listing: %w", err), fields)
	}
	if !updated {
		logger.WarnCtx(ctx, "Listed product disappeared before update", fields...)
		return Result{Kind: ev.Kind, Outcome: OutcomeNotFound}
	}

	logger.InfoCtx(ctx, "Updated product from on-chain listing", append(fields, zap.String("product_id", existing.ID))...)
	return Result{Kind: ev.Kind, Outcome: OutcomeUpdated}
}

func (r *Reconciler) applyBought(ctx context.Context, ev *domain.ChainEvent, fields []zap.Field) Result {
	product, err := r.store.GetProductByOnchainID(ctx, ev.ProductChainID)
	if err != nil {
		return failed(ctx, ev.Kind, fmt.Errorf("failed to look up bought product: %w", err), fields)
	}
	if product == nil {
		logger.WarnCtx(ctx, "No matching local product for purchase, ingestion gap upstream", fields...)
		return Result{Kind: ev.Kind, Outcome: OutcomeNotFound}
	}

	result := Result{Kind: ev.Kind, Outcome: OutcomeUpdated}

	if product.IsSold && ev.SameOccurrence(deref(product.OnchainTxHash), product.OnchainLogIndex) {
		// Already in escrow from this very log; re-marking would reset later escrow progress
		logger.InfoCtx(ctx, "Duplicate purchase event, projection already sold", fields...)
		result.Outcome = OutcomeDuplicate
	} else {
		updated, err := r.store.MarkProductSold(ctx, store.MarkSoldInput{
			OnchainID:         ev.ProductChainID,
			Buyer:             ev.Buyer,
			EscrowReleaseTime: r.clock.Now().UTC().Add(r.holdPeriod),
			TxHash:            ev.TxHash,
			LogIndex:          ev.LogIndex,
			BlockNumber:       ev.BlockNumber,
		})
		if err != nil {
			return failed(ctx, ev.Kind, fmt.Errorf("failed to mark product sold: %w", err), fields)
		}
		if !updated {
			logger.WarnCtx(ctx, "Bought product disappeared before update", fields...)
			return Result{Kind: ev.Kind, Outcome: OutcomeNotFound}
		}
		logger.InfoCtx(ctx, "Marked product as sold, escrow pending", append(fields, zap.String("product_id", product.ID))...)
	}

	tx, created, err := r.recordTransaction(ctx, ev, product, fields)
	if err != nil {
		logger.ErrorCtx(ctx, fmt.Errorf("failed to record onchain transaction: %w", err), fields...)
		result.Err = err
		return result
	}
	if !created {
		return result
	}

	result.TransactionCreated = true

	// Reload so the side effects see the sold state
	sold, err := r.store.GetProductByOnchainID(ctx, ev.ProductChainID)
	if err != nil || sold == nil {
		logger.WarnCtx(ctx, "Could not reload sold product, using pre-purchase snapshot", fields...)
		sold = product
	}

	report := r.dispatcher.DispatchPurchase(ctx, sideeffect.Purchase{
		Product:     sold,
		Transaction: tx,
		Event:       ev,
	})
	result.SideEffects = &report

	return result
}

// recordTransaction is the dedup gate in front of the purchase side effects
func (r *Reconciler) recordTransaction(ctx context.Context, ev *domain.ChainEvent, product *schema.Product, fields []zap.Field) (*schema.OnchainTransaction, bool, error) {
	if !ev.HasTxHash() {
		logger.WarnCtx(ctx, "Purchase event has no transaction hash, not recording transaction", fields...)
		return nil, false, nil
	}

	existing, err := r.store.GetOnchainTransactionByTxHash(ctx, ev.TxHash)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		logger.InfoCtx(ctx, "Onchain transaction already recorded", fields...)
		return existing, false, nil
	}

	amount := ev.Amount
	if amount == "" {
		amount = deref(product.OnchainPrice)
	}
	seller := ev.Seller
	if seller == "" {
		seller = deref(product.Seller)
	}
	productID := product.ID

	tx, created, err := r.store.CreateOnchainTransaction(ctx, store.CreateOnchainTransactionInput{
		TxHash:           ev.TxHash,
		OnchainProductID: ev.ProductChainID,
		ProductID:        &productID,
		Buyer:            ev.Buyer,
		Seller:           seller,
		Amount:           amount,
		BlockNumber:      ev.BlockNumber,
		LogIndex:         ev.LogIndex,
	})
	if err != nil {
		return nil, false, err
	}
	if created {
		logger.InfoCtx(ctx, "Created onchain transaction record", fields...)
	}

	return tx, created, nil
}

// escrowTransition is the projection change an escrow event maps to
type escrowTransition struct {
	status            domain.EscrowStatus
	deliveryConfirmed *bool
	disputeRaised     *bool
}

func boolPtr(v bool) *bool {
	return &v
}

var escrowTransitions = map[domain.EventKind]escrowTransition{
	domain.EventKindDeliveryConfirmed: {status: domain.EscrowStatusConfirmed, deliveryConfirmed: boolPtr(true)},
	domain.EventKindEscrowReleased:    {status: domain.EscrowStatusReleased},
	domain.EventKindDisputeRaised:     {status: domain.EscrowStatusDisputed, disputeRaised: boolPtr(true)},
	domain.EventKindDisputeResolved:   {status: domain.EscrowStatusResolved, disputeRaised: boolPtr(false)},
}

func (r *Reconciler) applyEscrow(ctx context.Context, ev *domain.ChainEvent, fields []zap.Field) Result {
	transition := escrowTransitions[ev.Kind]

	product, err := r.store.GetProductByOnchainID(ctx, ev.ProductChainID)
	if err != nil {
		return failed(ctx, ev.Kind, fmt.Errorf("failed to look up product: %w", err), fields)
	}
	if product == nil {
		logger.WarnCtx(ctx, "No matching local product for escrow event", fields...)
		return Result{Kind: ev.Kind, Outcome: OutcomeNotFound}
	}

	updated, err := r.store.UpdateEscrowState(ctx, ev.ProductChainID, store.EscrowUpdate{
		EscrowStatus:      transition.status,
		DeliveryConfirmed: transition.deliveryConfirmed,
		DisputeRaised:     transition.disputeRaised,
	})
	if err != nil {
		return failed(ctx, ev.Kind, fmt.Errorf("failed to update escrow state: %w", err), fields)
	}
	if !updated {
		logger.WarnCtx(ctx, "Product disappeared before escrow update", fields...)
		return Result{Kind: ev.Kind, Outcome: OutcomeNotFound}
	}

	logger.InfoCtx(ctx, "Escrow state updated", append(fields, zap.String("escrow_status", string(transition.status)))...)

	r.dispatcher.NotifyEscrowChange(ctx, product, ev, transition.status)

	return Result{Kind: ev.Kind, Outcome: OutcomeUpdated}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
