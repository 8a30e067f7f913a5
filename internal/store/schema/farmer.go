package schema

import "time"

// Farmer is the subset of the users table the watcher reads and updates
type Farmer struct {
	// ID is the user id (UUID)
	ID string `gorm:"column:id;primaryKey;type:uuid"`
	// Name is the farmer display name
	Name string `gorm:"column:name;not null;type:text"`
	// Phone is the farmer phone number, used by notification workers
	Phone *string `gorm:"column:phone;type:text"`
	// Role is the user role (farmer, buyer, admin)
	Role string `gorm:"column:role;not null;default:'farmer';type:text"`
	// WalletAddress is the farmer wallet, matched against product sellers
	WalletAddress *string `gorm:"column:wallet_address;type:text;index"`
	// Region is the farm region, when known
	Region *string `gorm:"column:region;type:text"`
	// ReputationScore is the last computed reputation score in [0, 100]
	ReputationScore float64 `gorm:"column:reputation_score;not null;default:0"`
	// TotalSales counts completed on-chain sales
	TotalSales int `gorm:"column:total_sales;not null;default:0"`
	// SuccessfulTransactions counts sales that reached delivery confirmation
	SuccessfulTransactions int `gorm:"column:successful_transactions;not null;default:0"`
	// DisputeCount counts disputes raised against the farmer
	DisputeCount int `gorm:"column:dispute_count;not null;default:0"`
	// CreatedAt is the timestamp when this record was created
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now()"`
}

// TableName specifies the table name for the Farmer model
func (Farmer) TableName() string {
	return "users"
}

// FarmerReputationHistory represents the farmer_reputation_history table - an audit log of score changes
type FarmerReputationHistory struct {
	// ID is the internal database primary key
	ID int64 `gorm:"column:id;primaryKey;autoIncrement"`
	// FarmerID references the farmer user
	FarmerID string `gorm:"column:farmer_id;not null;type:uuid;uniqueIndex:idx_reputation_history_dedup,priority:1"`
	// FarmerPhone is copied from the farmer at the time of the change
	FarmerPhone *string `gorm:"column:farmer_phone;type:text"`
	// PreviousScore is the score before the change
	PreviousScore float64 `gorm:"column:previous_score;not null"`
	// NewScore is the score after the change
	NewScore float64 `gorm:"column:new_score;not null"`
	// ChangeReason describes what triggered the change (e.g. "transaction_completed")
	ChangeReason string `gorm:"column:change_reason;not null;type:text;uniqueIndex:idx_reputation_history_dedup,priority:3"`
	// TransactionID is the triggering transaction hash
	TransactionID string `gorm:"column:transaction_id;not null;default:'';type:text;uniqueIndex:idx_reputation_history_dedup,priority:2"`
	// Notes is an optional free-form note
	Notes *string `gorm:"column:notes;type:text"`
	// CreatedAt is the timestamp when this record was created
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now()"`
}

// TableName specifies the table name for the FarmerReputationHistory model
func (FarmerReputationHistory) TableName() string {
	return "farmer_reputation_history"
}
