package schema

import "time"

// OnchainTransaction represents the onchain_transactions table - an append-only ledger of completed purchases
type OnchainTransaction struct {
	// ID is the internal database primary key (UUID)
	ID string `gorm:"column:id;primaryKey;type:uuid"`
	// TxHash is the purchase transaction hash
	TxHash string `gorm:"column:tx_hash;not null;uniqueIndex;type:text"`
	// OnchainProductID is the contract-side product identifier
	OnchainProductID int64 `gorm:"column:onchain_product_id;not null;index"`
	// ProductID references the local product row
	ProductID *string `gorm:"column:product_id;type:uuid"`
	// Buyer is the buyer wallet address
	Buyer string `gorm:"column:buyer;not null;type:text"`
	// Seller is the seller wallet address
	Seller *string `gorm:"column:seller;type:text"`
	// Amount is the purchase amount as a decimal string in the native token
	Amount string `gorm:"column:amount;not null;default:'';type:text"`
	// BlockNumber is the block the purchase was included in
	BlockNumber *uint64 `gorm:"column:block_number"`
	// LogIndex is the position of the purchase log within the block
	LogIndex *uint64 `gorm:"column:log_index"`
	// CreatedAt is the timestamp when this record was created
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now()"`
}

// TableName specifies the table name for the OnchainTransaction model
func (OnchainTransaction) TableName() string {
	return "onchain_transactions"
}
