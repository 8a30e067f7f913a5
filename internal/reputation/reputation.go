// Package reputation scores farmers from their sales history.
package reputation

import (
	"context"
	"fmt"
	"math"

	"github.com/agrolink/marketplace-watcher/internal/domain"
	"github.com/agrolink/marketplace-watcher/internal/store"
	"github.com/agrolink/marketplace-watcher/internal/store/schema"
)

const (
	baseScore = 50.0
	minScore  = 0.0
	maxScore  = 100.0

	maxVolumeScore   = 30.0
	deliveryWeight   = 20.0
	releaseWeight    = 10.0
	disputeWeight    = 30.0
	volumeBonus      = 5.0
	volumeTierSmall  = 10
	volumeTierMedium = 50
	volumeTierLarge  = 100
)

// Stats summarises a farmer's sold products
type Stats struct {
	TotalTransactions   int
	ConfirmedDeliveries int
	Disputes            int
	ReleasedEscrows     int
}

// StatsFromProducts counts the sold products that feed the score.
// Unsold products are ignored.
func StatsFromProducts(products []schema.Product) Stats {
	var stats Stats
	for _, p := range products {
		if !p.IsSold {
			continue
		}
		stats.TotalTransactions++
		if p.DeliveryConfirmed {
			stats.ConfirmedDeliveries++
		}
		if p.DisputeRaised {
			stats.Disputes++
		}
		if p.EscrowStatus != nil &&
			(*p.EscrowStatus == domain.EscrowStatusReleased || *p.EscrowStatus == domain.EscrowStatusConfirmed) {
			stats.ReleasedEscrows++
		}
	}
	return stats
}

// Compute returns the reputation score in [0, 100], rounded to two decimals
func Compute(stats Stats) float64 {
	score := baseScore

	if total := float64(stats.TotalTransactions); total > 0 {
		score += math.Min(maxVolumeScore, (total/10)*10)
		score += float64(stats.ConfirmedDeliveries) / total * deliveryWeight
		score += float64(stats.ReleasedEscrows) / total * releaseWeight
		score -= float64(stats.Disputes) / total * disputeWeight
	}

	if stats.TotalTransactions >= volumeTierSmall {
		score += volumeBonus
	}
	if stats.TotalTransactions >= volumeTierMedium {
		score += volumeBonus
	}
	if stats.TotalTransactions >= volumeTierLarge {
		score += volumeBonus
	}

	score = math.Max(minScore, math.Min(maxScore, score))
	return math.Floor(score*100+0.5) / 100
}

// Store is the persistence the reputation service needs
type Store interface {
	GetFarmerByID(ctx context.Context, id string) (*schema.Farmer, error)
	GetSoldProductsForFarmer(ctx context.Context, walletAddress string, farmerID string) ([]schema.Product, error)
	ApplyReputationChange(ctx context.Context, input store.ReputationChangeInput) (bool, error)
}

// Change describes the outcome of a reputation update
type Change struct {
	FarmerID      string
	PreviousScore float64
	NewScore      float64
	// Applied is false when the transaction had already been credited
	Applied bool
}

// Service recomputes and persists farmer reputation
type Service struct {
	store Store
}

// NewService creates a reputation service
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Calculate computes a farmer's current score from their sold products
func (s *Service) Calculate(ctx context.Context, farmer *schema.Farmer) (float64, error) {
	wallet := ""
	if farmer.WalletAddress != nil {
		wallet = *farmer.WalletAddress
	}

	products, err := s.store.GetSoldProductsForFarmer(ctx, wallet, farmer.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to load sold products: %w", err)
	}

	return Compute(StatsFromProducts(products)), nil
}

// RecordTransaction credits a completed sale: the farmer's total sales grow by one and
// the score is recomputed, with a history entry keyed by the transaction hash.
// Crediting the same transaction twice is a no-op.
func (s *Service) RecordTransaction(ctx context.Context, farmerID string, txHash string) (*Change, error) {
	farmer, err := s.store.GetFarmerByID(ctx, farmerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get farmer: %w", err)
	}
	if farmer == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrFarmerNotFound, farmerID)
	}

	newScore, err := s.Calculate(ctx, farmer)
	if err != nil {
		return nil, err
	}

	applied, err := s.store.ApplyReputationChange(ctx, store.ReputationChangeInput{
		FarmerID:            farmer.ID,
		FarmerPhone:         farmer.Phone,
		PreviousScore:       farmer.ReputationScore,
		NewScore:            newScore,
		ChangeReason:        domain.REPUTATION_REASON_TRANSACTION_COMPLETED,
		TransactionID:       txHash,
		IncrementTotalSales: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to apply reputation change: %w", err)
	}

	return &Change{
		FarmerID:      farmer.ID,
		PreviousScore: farmer.ReputationScore,
		NewScore:      newScore,
		Applied:       applied,
	}, nil
}
