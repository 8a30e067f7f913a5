// Package supplychain seeds supply chain traces for purchased products.
package supplychain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"gorm.io/datatypes"

	"github.com/agrolink/marketplace-watcher/internal/adapter"
	"github.com/agrolink/marketplace-watcher/internal/domain"
	"github.com/agrolink/marketplace-watcher/internal/store"
)

const (
	unknownRegion = "Unknown"

	// VerifiedOnChain is the chain supply chain traces are anchored to
	VerifiedOnChain = "polkadot"
)

// verificationPayload is the document the verification hash is computed over
type verificationPayload struct {
	ProductID string `json:"productId"`
	OnchainID int64  `json:"onchainId"`
	Timestamp string `json:"timestamp"`
	Seller    string `json:"seller"`
}

// harvestMetadata is attached to the seeded harvested event
type harvestMetadata struct {
	Farmer      string `json:"farmer"`
	FarmerPhone string `json:"farmerPhone,omitempty"`
	ProductName string `json:"productName"`
	OnchainID   int64  `json:"onchainId"`
	TxHash      string `json:"txHash,omitempty"`
}

// SeedInput describes the purchase a trace is seeded from
type SeedInput struct {
	ProductID   string
	ProductName string
	OnchainID   int64
	Seller      string
	TxHash      string
	FarmerID    string
	FarmerName  string
	FarmerPhone string
	Timestamp   time.Time
}

// VerificationHash returns the hex sha256 of the canonical JSON of
// {productId, onchainId, timestamp, seller}
func VerificationHash(canonicalizer adapter.Canonicalizer, productID string, onchainID int64, timestamp time.Time, seller string) (string, error) {
	raw, err := canonicalizer.Canonicalize(verificationPayload{
		ProductID: productID,
		OnchainID: onchainID,
		Timestamp: timestamp.UTC().Format(time.RFC3339Nano),
		Seller:    seller,
	})
	if err != nil {
		return "", fmt.Errorf("failed to canonicalize verification payload: %w", err)
	}

	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

// NewTraceSeed builds a trace at the harvested stage with one verified harvested event
func NewTraceSeed(canonicalizer adapter.Canonicalizer, input SeedInput) (store.CreateSupplyChainTraceInput, error) {
	hash, err := VerificationHash(canonicalizer, input.ProductID, input.OnchainID, input.Timestamp, input.Seller)
	if err != nil {
		return store.CreateSupplyChainTraceInput{}, err
	}

	region := unknownRegion
	if input.FarmerName != "" {
		region = input.FarmerName
	}

	metadata, err := canonicalizer.Canonicalize(harvestMetadata{
		Farmer:      region,
		FarmerPhone: input.FarmerPhone,
		ProductName: input.ProductName,
		OnchainID:   input.OnchainID,
		TxHash:      input.TxHash,
	})
	if err != nil {
		return store.CreateSupplyChainTraceInput{}, fmt.Errorf("failed to encode harvest metadata: %w", err)
	}

	var farmerID *string
	if input.FarmerID != "" {
		id := input.FarmerID
		farmerID = &id
	}

	return store.CreateSupplyChainTraceInput{
		ProductID:        input.ProductID,
		FarmerID:         farmerID,
		FarmRegion:       region,
		CurrentStage:     domain.SupplyChainStageHarvested,
		VerificationHash: hash,
		VerifiedOnChains: []string{VerifiedOnChain},
		Events: []store.SupplyChainEventInput{
			{
				Stage:       domain.SupplyChainStageHarvested,
				Location:    region,
				Description: fmt.Sprintf("%s harvested by %s", input.ProductName, region),
				Metadata:    datatypes.JSON(metadata),
				Verified:    true,
				Timestamp:   input.Timestamp,
			},
		},
	}, nil
}
