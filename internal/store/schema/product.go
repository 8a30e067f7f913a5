package schema

import (
	"time"

	"github.com/agrolink/marketplace-watcher/internal/domain"
)

// Product represents the products table - the local projection of a marketplace listing.
// Rows created by the watcher carry an OnchainID; rows created through the web API may not.
type Product struct {
	// ID is the internal database primary key (UUID)
	ID string `gorm:"column:id;primaryKey;type:uuid"`
	// OnchainID is the contract-side product identifier, unique when present
	OnchainID *int64 `gorm:"column:onchain_id;uniqueIndex"`
	// Name is the display name (on-chain listings use "onchain#<id>")
	Name string `gorm:"column:name;not null;type:text"`
	// Description is a free-form description of the listing
	Description string `gorm:"column:description;not null;default:'';type:text"`
	// Quantity is the number of units offered
	Quantity int `gorm:"column:quantity;not null;default:0"`
	// Price is the listing price in whole tokens
	Price float64 `gorm:"column:price;not null;default:0"`
	// ImageURL points at the listing image
	ImageURL *string `gorm:"column:image_url;type:text"`
	// UserID is the owning farmer's user id, set for listings created through the web API
	UserID *string `gorm:"column:user_id;type:uuid;index"`
	// Status is the availability of the product (available, sold)
	Status domain.ProductStatus `gorm:"column:status;not null;default:'available';type:text"`
	// IsSold mirrors Status for legacy readers
	IsSold bool `gorm:"column:is_sold;not null;default:false"`
	// Seller is the seller wallet address reported by the contract
	Seller *string `gorm:"column:seller;type:text;index"`
	// Buyer is the buyer wallet address reported by the contract
	Buyer *string `gorm:"column:buyer;type:text"`
	// OnchainPrice is the listing price as a decimal string in the native token
	OnchainPrice *string `gorm:"column:onchain_price;type:text"`
	// MetadataURI is the metadata pointer emitted with the listing
	MetadataURI *string `gorm:"column:metadata_uri;type:text"`
	// EscrowStatus is the mirrored escrow state, nil until the product is bought
	EscrowStatus *domain.EscrowStatus `gorm:"column:escrow_status;type:text"`
	// DeliveryConfirmed is set once the buyer confirms delivery
	DeliveryConfirmed bool `gorm:"column:delivery_confirmed;not null;default:false"`
	// DisputeRaised is set while a dispute is open
	DisputeRaised bool `gorm:"column:dispute_raised;not null;default:false"`
	// EscrowReleaseTime is when the escrow hold ends
	EscrowReleaseTime *time.Time `gorm:"column:escrow_release_time"`
	// OnchainTxHash is the transaction hash of the last applied listing or purchase event
	OnchainTxHash *string `gorm:"column:onchain_tx_hash;type:text"`
	// OnchainLogIndex is the log index of the last applied listing or purchase event
	OnchainLogIndex *uint64 `gorm:"column:onchain_log_index"`
	// OnchainBlockNumber is the block of the last applied listing or purchase event
	OnchainBlockNumber *uint64 `gorm:"column:onchain_block_number"`
	// CreatedAt is the timestamp when this record was created
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now()"`
	// UpdatedAt is the timestamp when this record was last updated
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now()"`
}

// TableName specifies the table name for the Product model
func (Product) TableName() string {
	return "products"
}
