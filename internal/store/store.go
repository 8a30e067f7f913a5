package store

import (
	"context"
	"time"

	"gorm.io/datatypes"

	"github.com/agrolink/marketplace-watcher/internal/domain"
	"github.com/agrolink/marketplace-watcher/internal/store/schema"
)

// ListingInput holds the listing fields written for a ProductListed event
type ListingInput struct {
	OnchainID    int64
	Name         string
	Quantity     int
	Price        float64
	Description  string
	ImageURL     string
	Seller       string
	OnchainPrice string
	MetadataURI  string
	TxHash       string
	LogIndex     *uint64
	BlockNumber  *uint64
}

// MarkSoldInput holds the fields written when a product enters escrow after a purchase
type MarkSoldInput struct {
	OnchainID         int64
	Buyer             string
	EscrowReleaseTime time.Time
	TxHash            string
	LogIndex          *uint64
	BlockNumber       *uint64
}

// EscrowUpdate describes an escrow transition. Nil flags are left untouched.
type EscrowUpdate struct {
	EscrowStatus      domain.EscrowStatus
	DeliveryConfirmed *bool
	DisputeRaised     *bool
}

// CreateOnchainTransactionInput represents the data needed to record a purchase
type CreateOnchainTransactionInput struct {
	TxHash           string
	OnchainProductID int64
	ProductID        *string
	Buyer            string
	Seller           string
	Amount           string
	BlockNumber      *uint64
	LogIndex         *uint64
}

// SupplyChainEventInput represents one stage of a supply chain trace
type SupplyChainEventInput struct {
	Stage       domain.SupplyChainStage
	Location    string
	Description string
	Metadata    datatypes.JSON
	Verified    bool
	Timestamp   time.Time
}

// CreateSupplyChainTraceInput represents the data needed to create a trace with its seed events
type CreateSupplyChainTraceInput struct {
	ProductID        string
	FarmerID         *string
	FarmRegion       string
	CurrentStage     domain.SupplyChainStage
	VerificationHash string
	VerifiedOnChains []string
	Events           []SupplyChainEventInput
}

// CreateNFTCertificateInput represents the data needed to issue a product certificate
type CreateNFTCertificateInput struct {
	ProductID        string
	CertificateHash  string
	MetadataURI      string
	ImageURI         string
	ProductName      string
	FarmerName       *string
	FarmerAddress    *string
	Region           *string
	QualityGrade     *string
	OrganicCertified bool
	HarvestDate      *time.Time
	TransactionHash  *string
	OwnerAddress     *string
	OwnerID          *string
	Metadata         datatypes.JSON
}

// ReputationChangeInput represents a reputation score change and its audit entry
type ReputationChangeInput struct {
	FarmerID      string
	FarmerPhone   *string
	PreviousScore float64
	NewScore      float64
	ChangeReason  string
	TransactionID string
	Notes         *string
	// IncrementTotalSales bumps the farmer's total_sales counter together with the score
	IncrementTotalSales bool
}

// Store defines the interface for database operations
//
//go:generate mockgen -source=store.go -destination=../mocks/store.go -package=mocks -mock_names=Store=MockStore
type Store interface {
	// GetProductByOnchainID retrieves a product by its contract-side identifier
	GetProductByOnchainID(ctx context.Context, onchainID int64) (*schema.Product, error)
	// CreateProduct creates an available product for a listing; created is false when the onchain id already exists
	CreateProduct(ctx context.Context, input ListingInput) (product *schema.Product, created bool, err error)
	// UpdateListing overwrites the listing fields of an existing product; false when no product matched
	UpdateListing(ctx context.Context, input ListingInput) (bool, error)
	// MarkProductSold moves a product into the sold state with a pending escrow; false when no product matched
	MarkProductSold(ctx context.Context, input MarkSoldInput) (bool, error)
	// UpdateEscrowState applies an escrow transition to a product; false when no product matched
	UpdateEscrowState(ctx context.Context, onchainID int64, update EscrowUpdate) (bool, error)

	// CreateOnchainTransaction records a purchase; created is false when the tx hash is already recorded
	CreateOnchainTransaction(ctx context.Context, input CreateOnchainTransactionInput) (tx *schema.OnchainTransaction, created bool, err error)
	// GetOnchainTransactionByTxHash retrieves a purchase record by its transaction hash
	GetOnchainTransactionByTxHash(ctx context.Context, txHash string) (*schema.OnchainTransaction, error)

	// GetSupplyChainTraceByProductID retrieves a product's trace with its events
	GetSupplyChainTraceByProductID(ctx context.Context, productID string) (*schema.SupplyChainTrace, error)
	// CreateSupplyChainTrace creates a trace and its seed events in a single transaction; false when one already exists
	CreateSupplyChainTrace(ctx context.Context, input CreateSupplyChainTraceInput) (bool, error)

	// GetNFTCertificateByProductID retrieves a product's certificate
	GetNFTCertificateByProductID(ctx context.Context, productID string) (*schema.NFTCertificate, error)
	// CreateNFTCertificate issues a certificate; false when the product already has one
	CreateNFTCertificate(ctx context.Context, input CreateNFTCertificateInput) (bool, error)

	// GetFarmerByID retrieves a farmer by user id
	GetFarmerByID(ctx context.Context, id string) (*schema.Farmer, error)
	// GetFarmerByWalletAddress retrieves a farmer by wallet address (case-insensitive)
	GetFarmerByWalletAddress(ctx context.Context, address string) (*schema.Farmer, error)
	// GetSoldProductsForFarmer retrieves sold products whose seller is the wallet or whose owner is the farmer
	GetSoldProductsForFarmer(ctx context.Context, walletAddress string, farmerID string) ([]schema.Product, error)
	// ApplyReputationChange appends a reputation history entry and updates the farmer in a single transaction.
	// applied is false when an entry for the same farmer, transaction and reason already exists.
	ApplyReputationChange(ctx context.Context, input ReputationChangeInput) (applied bool, err error)

	// GetBlockCursor retrieves the last processed block number for a chain
	GetBlockCursor(ctx context.Context, chain string) (uint64, error)
	// SetBlockCursor stores the last processed block number for a chain
	SetBlockCursor(ctx context.Context, chain string, blockNumber uint64) error
}

// BlockCursorKey returns the key_value_store key holding a chain's block cursor
func BlockCursorKey(chain string) string {
	return "block_cursor:" + chain
}
