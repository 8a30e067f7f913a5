// Package certificate builds NFT certificates for sold products.
package certificate

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"

	"github.com/agrolink/marketplace-watcher/internal/adapter"
	"github.com/agrolink/marketplace-watcher/internal/store"
)

const (
	defaultFarmerLabel  = "Ethiopian Farmer"
	defaultRegion       = "Ethiopia"
	defaultQualityGrade = "Standard"
	unknownValue        = "Unknown"
	notAvailable        = "N/A"

	metadataURIPrefix = "ipfs://metadata/"

	// isoMillis matches the ISO-8601 form used by the web API
	isoMillis = "2006-01-02T15:04:05.000Z07:00"
)

// Data describes the product a certificate is issued for
type Data struct {
	ProductID        string
	ProductName      string
	FarmerName       string
	FarmerAddress    string
	Region           string
	QualityGrade     string
	OrganicCertified bool
	HarvestDate      *time.Time
	TransactionHash  string
	ImageURL         string
	OwnerAddress     string
	OwnerID          string
}

// Attribute is one trait of the certificate metadata
type Attribute struct {
	TraitType string `json:"trait_type"`
	Value     string `json:"value"`
}

// Metadata is the certificate metadata document
type Metadata struct {
	Name            string      `json:"name"`
	Description     string      `json:"description"`
	Image           string      `json:"image"`
	Attributes      []Attribute `json:"attributes"`
	CertificateHash string      `json:"certificateHash"`
	TransactionHash string      `json:"transactionHash,omitempty"`
	CreatedAt       string      `json:"createdAt"`
}

// Hash derives the certificate hash from the product, the farmer and the creation time
func Hash(productID, productName, farmerAddress string, createdAt time.Time) string {
	data := fmt.Sprintf("%s-%s-%s-%d", productID, productName, farmerAddress, createdAt.UnixMilli())
	sum := sha256.Sum256([]byte(data))
	return hex.EncodeToString(sum[:])
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

// BuildMetadata builds the metadata document for a certificate
func BuildMetadata(data Data, certificateHash string, createdAt time.Time) Metadata {
	organic := "No"
	if data.OrganicCertified {
		organic = "Yes"
	}
	harvest := notAvailable
	if data.HarvestDate != nil {
		harvest = data.HarvestDate.UTC().Format(isoMillis)
	}

	return Metadata{
		Name:        "AgroLink Certificate: " + data.ProductName,
		Description: fmt.Sprintf("Authentic product certificate for %s from %s", data.ProductName, orDefault(data.FarmerName, defaultFarmerLabel)),
		Image:       data.ImageURL,
		Attributes: []Attribute{
			{TraitType: "Product Name", Value: data.ProductName},
			{TraitType: "Farmer", Value: orDefault(data.FarmerName, unknownValue)},
			{TraitType: "Region", Value: orDefault(data.Region, defaultRegion)},
			{TraitType: "Quality Grade", Value: orDefault(data.QualityGrade, defaultQualityGrade)},
			{TraitType: "Organic Certified", Value: organic},
			{TraitType: "Harvest Date", Value: harvest},
		},
		CertificateHash: certificateHash,
		TransactionHash: data.TransactionHash,
		CreatedAt:       createdAt.UTC().Format(isoMillis),
	}
}

// ImageURI returns the product image, or the generated certificate image under baseURL
func ImageURI(data Data, certificateHash string, baseURL string) string {
	if data.ImageURL != "" {
		return data.ImageURL
	}
	return fmt.Sprintf("%s/%s.png", strings.TrimRight(baseURL, "/"), certificateHash)
}

// Builder turns certificate data into a store input
type Builder struct {
	canonicalizer adapter.Canonicalizer
	imageBaseURL  string
}

// NewBuilder creates a certificate builder
func NewBuilder(canonicalizer adapter.Canonicalizer, imageBaseURL string) *Builder {
	return &Builder{canonicalizer: canonicalizer, imageBaseURL: imageBaseURL}
}

// Build derives the hash, metadata and URIs of a certificate issued at createdAt
func (b *Builder) Build(data Data, createdAt time.Time) (store.CreateNFTCertificateInput, error) {
	hash := Hash(data.ProductID, data.ProductName, data.FarmerAddress, createdAt)
	metadata := BuildMetadata(data, hash, createdAt)

	raw, err := b.canonicalizer.Canonicalize(metadata)
	if err != nil {
		return store.CreateNFTCertificateInput{}, fmt.Errorf("failed to encode certificate metadata: %w", err)
	}

	return store.CreateNFTCertificateInput{
		ProductID:        data.ProductID,
		CertificateHash:  hash,
		MetadataURI:      metadataURIPrefix + hash,
		ImageURI:         ImageURI(data, hash, b.imageBaseURL),
		ProductName:      data.ProductName,
		FarmerName:       optional(data.FarmerName),
		FarmerAddress:    optional(data.FarmerAddress),
		Region:           optional(data.Region),
		QualityGrade:     optional(data.QualityGrade),
		OrganicCertified: data.OrganicCertified,
		HarvestDate:      data.HarvestDate,
		TransactionHash:  optional(data.TransactionHash),
		OwnerAddress:     optional(data.OwnerAddress),
		OwnerID:          optional(data.OwnerID),
		Metadata:         datatypes.JSON(raw),
	}, nil
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
