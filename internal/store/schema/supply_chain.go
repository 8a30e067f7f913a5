package schema

import (
	"time"

	"gorm.io/datatypes"

	"github.com/agrolink/marketplace-watcher/internal/domain"
)

// SupplyChainTrace represents the supply_chain_traces table - at most one trace per product
type SupplyChainTrace struct {
	// ID is the internal database primary key (UUID)
	ID string `gorm:"column:id;primaryKey;type:uuid"`
	// ProductID references the local product row
	ProductID string `gorm:"column:product_id;not null;uniqueIndex;type:uuid"`
	// FarmerID references the farmer user, when resolved
	FarmerID *string `gorm:"column:farmer_id;type:uuid"`
	// FarmRegion is the origin region shown to buyers
	FarmRegion string `gorm:"column:farm_region;not null;type:text"`
	// CurrentStage is the latest supply chain stage
	CurrentStage domain.SupplyChainStage `gorm:"column:current_stage;not null;type:text"`
	// VerificationHash is the digest binding the trace to the on-chain purchase
	VerificationHash string `gorm:"column:verification_hash;not null;type:text"`
	// VerifiedOnChains lists the chains the trace is anchored to (JSON array)
	VerifiedOnChains datatypes.JSON `gorm:"column:verified_on_chains;type:jsonb;not null;default:'[]'"`
	// CreatedAt is the timestamp when this record was created
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now()"`
	// UpdatedAt is the timestamp when this record was last updated
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now()"`

	// Associations
	Events []SupplyChainEvent `gorm:"foreignKey:TraceID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for the SupplyChainTrace model
func (SupplyChainTrace) TableName() string {
	return "supply_chain_traces"
}

// SupplyChainEvent represents the supply_chain_events table - ordered stages of a trace
type SupplyChainEvent struct {
	// ID is the internal database primary key
	ID int64 `gorm:"column:id;primaryKey;autoIncrement"`
	// TraceID references the owning trace
	TraceID string `gorm:"column:trace_id;not null;type:uuid;index"`
	// Stage is the supply chain stage the event records
	Stage domain.SupplyChainStage `gorm:"column:stage;not null;type:text"`
	// Location is where the stage happened
	Location string `gorm:"column:location;not null;default:'';type:text"`
	// Description is a human readable summary
	Description string `gorm:"column:description;not null;default:'';type:text"`
	// Metadata holds stage specific details (JSON object)
	Metadata datatypes.JSON `gorm:"column:metadata;type:jsonb"`
	// Verified marks events backed by an on-chain record
	Verified bool `gorm:"column:verified;not null;default:false"`
	// Timestamp is when the stage happened
	Timestamp time.Time `gorm:"column:occurred_at;not null"`
}

// TableName specifies the table name for the SupplyChainEvent model
func (SupplyChainEvent) TableName() string {
	return "supply_chain_events"
}
