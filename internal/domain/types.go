package domain

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Chain represents the blockchain network identifier using CAIP-2 format
type Chain string

const (
	ChainEthereumMainnet Chain = "eip155:1"
	ChainEthereumSepolia Chain = "eip155:11155111"
	ChainHardhatLocal    Chain = "eip155:31337"
)

// IsValidChain checks if a chain is valid
func IsValidChain(chain Chain) bool {
	return chain == ChainEthereumMainnet ||
		chain == ChainEthereumSepolia ||
		chain == ChainHardhatLocal
}

// EventKind represents the kind of marketplace contract event
type EventKind string

const (
	EventKindListed            EventKind = "listed"
	EventKindBought            EventKind = "bought"
	EventKindDeliveryConfirmed EventKind = "delivery_confirmed"
	EventKindEscrowReleased    EventKind = "escrow_released"
	EventKindDisputeRaised     EventKind = "dispute_raised"
	EventKindDisputeResolved   EventKind = "dispute_resolved"
)

// AllEventKinds returns every marketplace event kind in contract declaration order
func AllEventKinds() []EventKind {
	return []EventKind{
		EventKindListed,
		EventKindBought,
		EventKindDeliveryConfirmed,
		EventKindEscrowReleased,
		EventKindDisputeRaised,
		EventKindDisputeResolved,
	}
}

// Valid checks if the event kind is one of the marketplace events
func (k EventKind) Valid() bool {
	_, ok := contractEventNames[k]
	return ok
}

// ContractEventName returns the solidity event name for the kind
func (k EventKind) ContractEventName() string {
	return contractEventNames[k]
}

// EventKindFromContractEvent resolves a solidity event name to its kind
func EventKindFromContractEvent(name string) (EventKind, error) {
	for kind, n := range contractEventNames {
		if n == name {
			return kind, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownEventKind, name)
}

var contractEventNames = map[EventKind]string{
	EventKindListed:            "ProductListed",
	EventKindBought:            "ProductBought",
	EventKindDeliveryConfirmed: "DeliveryConfirmed",
	EventKindEscrowReleased:    "EscrowReleased",
	EventKindDisputeRaised:     "DisputeRaised",
	EventKindDisputeResolved:   "DisputeResolved",
}

// EscrowStatus represents the escrow state mirrored from the contract
type EscrowStatus string

const (
	EscrowStatusPending   EscrowStatus = "pending"
	EscrowStatusConfirmed EscrowStatus = "confirmed"
	EscrowStatusReleased  EscrowStatus = "released"
	EscrowStatusDisputed  EscrowStatus = "disputed"
	EscrowStatusResolved  EscrowStatus = "resolved"
)

// ProductStatus represents the availability of a product
type ProductStatus string

const (
	ProductStatusAvailable ProductStatus = "available"
	ProductStatusSold      ProductStatus = "sold"
)

// SupplyChainStage represents the stage of a product in its supply chain
type SupplyChainStage string

const (
	SupplyChainStageHarvested  SupplyChainStage = "harvested"
	SupplyChainStageProcessed  SupplyChainStage = "processed"
	SupplyChainStagePackaged   SupplyChainStage = "packaged"
	SupplyChainStageShipped    SupplyChainStage = "shipped"
	SupplyChainStageDelivered  SupplyChainStage = "delivered"
	SupplyChainStageInTransit  SupplyChainStage = "in_transit"
	SupplyChainStageQualityChk SupplyChainStage = "quality_check"
)

// ChainEvent represents one normalized occurrence of a marketplace contract event.
// Optional fields are empty strings or nil pointers when the transport did not carry them.
type ChainEvent struct {
	Kind           EventKind `json:"kind"`
	ProductChainID int64     `json:"product_chain_id"`
	Seller         string    `json:"seller,omitempty"`
	Buyer          string    `json:"buyer,omitempty"`
	Amount         string    `json:"amount,omitempty"` // decimal string in whole tokens, e.g. "1.5"
	MetadataURI    string    `json:"metadata_uri,omitempty"`
	RaisedBy       string    `json:"raised_by,omitempty"`
	Resolver       string    `json:"resolver,omitempty"`
	FavorBuyer     *bool     `json:"favor_buyer,omitempty"`
	TxHash         string    `json:"tx_hash,omitempty"`
	LogIndex       *uint64   `json:"log_index,omitempty"`
	BlockNumber    *uint64   `json:"block_number,omitempty"`
}

// HasTxHash reports whether the event carries a transaction hash
func (e *ChainEvent) HasTxHash() bool {
	return e.TxHash != ""
}

// SameOccurrence reports whether the given transaction hash and log index identify this event
func (e *ChainEvent) SameOccurrence(txHash string, logIndex *uint64) bool {
	if !e.HasTxHash() || txHash == "" {
		return false
	}
	if !strings.EqualFold(e.TxHash, txHash) {
		return false
	}
	if e.LogIndex == nil || logIndex == nil {
		return e.LogIndex == nil && logIndex == nil
	}
	return *e.LogIndex == *logIndex
}

// NormalizeAddress normalizes an address to its checksummed form
func NormalizeAddress(address string) string {
	if strings.HasPrefix(address, "0x") && common.IsHexAddress(address) {
		return common.HexToAddress(address).String()
	}
	return address
}

// IsZeroAddress reports whether the address is empty or the zero address
func IsZeroAddress(address string) bool {
	return address == "" || strings.EqualFold(address, ETHEREUM_ZERO_ADDRESS)
}
