package schema

import (
	"time"

	"gorm.io/datatypes"
)

// NFTCertificate represents the nft_certificates table - at most one certificate per product
type NFTCertificate struct {
	// ID is the internal database primary key (UUID)
	ID string `gorm:"column:id;primaryKey;type:uuid"`
	// ProductID references the local product row
	ProductID string `gorm:"column:product_id;not null;uniqueIndex;type:uuid"`
	// CertificateHash is the sha256 certificate digest (hex)
	CertificateHash string `gorm:"column:certificate_hash;not null;uniqueIndex;type:text"`
	// MetadataURI points at the certificate metadata document
	MetadataURI string `gorm:"column:metadata_uri;not null;type:text"`
	// ImageURI points at the certificate image
	ImageURI string `gorm:"column:image_uri;not null;type:text"`
	// ProductName is copied from the product at issuance
	ProductName string `gorm:"column:product_name;not null;type:text"`
	// FarmerName is the issuing farmer's name
	FarmerName *string `gorm:"column:farmer_name;type:text"`
	// FarmerAddress is the issuing farmer's wallet
	FarmerAddress *string `gorm:"column:farmer_address;type:text"`
	// Region is the product origin region
	Region *string `gorm:"column:region;type:text"`
	// QualityGrade is the product quality grade
	QualityGrade *string `gorm:"column:quality_grade;type:text"`
	// OrganicCertified marks organic produce
	OrganicCertified bool `gorm:"column:organic_certified;not null;default:false"`
	// HarvestDate is when the product was harvested
	HarvestDate *time.Time `gorm:"column:harvest_date"`
	// TransactionHash is the purchase transaction hash
	TransactionHash *string `gorm:"column:transaction_hash;type:text"`
	// OwnerAddress is the certificate holder's wallet (the buyer)
	OwnerAddress *string `gorm:"column:owner_address;type:text"`
	// OwnerID is the certificate holder's user id, when known
	OwnerID *string `gorm:"column:owner_id;type:uuid"`
	// Metadata is the full certificate metadata document
	Metadata datatypes.JSON `gorm:"column:metadata;type:jsonb"`
	// CreatedAt is the timestamp when this record was created
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now()"`
}

// TableName specifies the table name for the NFTCertificate model
func (NFTCertificate) TableName() string {
	return "nft_certificates"
}
