package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/agrolink/marketplace-watcher/internal/domain"
	"github.com/agrolink/marketplace-watcher/internal/logger"
	"github.com/agrolink/marketplace-watcher/internal/store/schema"
)

type pgStore struct {
	db *gorm.DB
}

// NewPGStore creates a new PostgreSQL store instance
func NewPGStore(db *gorm.DB) Store {
	return &pgStore{db: db}
}

// ConfigureConnectionPool configures the connection pool settings for a GORM database connection.
// Zero values fall back to the defaults of NormalizeConnectionPoolSettings.
func ConfigureConnectionPool(db *gorm.DB, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime =
		NormalizeConnectionPoolSettings(maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime)

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)

	return nil
}

// NormalizeConnectionPoolSettings applies defaults and clamps pool settings into safe values.
//
// Defaults (when zero):
//   - MaxOpenConns: 10
//   - MaxIdleConns: 2
//   - ConnMaxLifetime: 5 minutes
//   - ConnMaxIdleTime: 10 minutes
//
// The watcher is a single writer, so the defaults are smaller than a typical API service.
func NormalizeConnectionPoolSettings(maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) (int, int, time.Duration, time.Duration) {
	if maxOpenConns <= 0 {
		maxOpenConns = 10
	}
	if maxIdleConns <= 0 {
		maxIdleConns = 2
	}
	if connMaxLifetime <= 0 {
		connMaxLifetime = 5 * time.Minute
	}
	if connMaxIdleTime <= 0 {
		connMaxIdleTime = 10 * time.Minute
	}

	if maxIdleConns > maxOpenConns {
		maxIdleConns = maxOpenConns
	}

	return maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime
}

// optionalString returns nil for an empty string
func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// GetProductByOnchainID retrieves a product by its contract-side identifier
func (s *pgStore) GetProductByOnchainID(ctx context.Context, onchainID int64) (*schema.Product, error) {
	var product schema.Product
	err := s.db.WithContext(ctx).Where("onchain_id = ?", onchainID).First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return &product, nil
}

// CreateProduct creates an available product for a listing
func (s *pgStore) CreateProduct(ctx context.Context, input ListingInput) (*schema.Product, bool, error) {
	onchainID := input.OnchainID
	product := schema.Product{
		ID:                 uuid.NewString(),
		OnchainID:          &onchainID,
		Name:               input.Name,
		Description:        input.Description,
		Quantity:           input.Quantity,
		Price:              input.Price,
		ImageURL:           optionalString(input.ImageURL),
		Status:             domain.ProductStatusAvailable,
		IsSold:             false,
		Seller:             optionalString(input.Seller),
		OnchainPrice:       optionalString(input.OnchainPrice),
		MetadataURI:        optionalString(input.MetadataURI),
		OnchainTxHash:      optionalString(input.TxHash),
		OnchainLogIndex:    input.LogIndex,
		OnchainBlockNumber: input.BlockNumber,
	}

	// A concurrent listing for the same onchain id is a duplicate, not a failure
	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "onchain_id"}},
			DoNothing: true,
		}).
		Clauses(clause.Returning{Columns: []clause.Column{}}).
		Create(&product)
	if result.Error != nil {
		return nil, false, fmt.Errorf("failed to create product: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		existing, err := s.GetProductByOnchainID(ctx, input.OnchainID)
		if err != nil {
			return nil, false, err
		}
		return existing, false, nil
	}

	return &product, true, nil
}

// UpdateListing overwrites the listing fields of an existing product.
// Absent chain metadata (tx hash, log index, block number) leaves the stored values untouched.
func (s *pgStore) UpdateListing(ctx context.Context, input ListingInput) (bool, error) {
	updates := map[string]interface{}{
		"name":          input.Name,
		"quantity":      input.Quantity,
		"price":         input.Price,
		"description":   input.Description,
		"image_url":     optionalString(input.ImageURL),
		"status":        domain.ProductStatusAvailable,
		"is_sold":       false,
		"seller":        optionalString(input.Seller),
		"onchain_price": optionalString(input.OnchainPrice),
		"metadata_uri":  optionalString(input.MetadataURI),
	}
	addChainMetadata(updates, input.TxHash, input.LogIndex, input.BlockNumber)

	result := s.db.WithContext(ctx).
		Model(&schema.Product{}).
		Where("onchain_id = ?", input.OnchainID).
		Updates(updates)
	if result.Error != nil {
		return false, fmt.Errorf("failed to update listing: %w", result.Error)
	}

	return result.RowsAffected > 0, nil
}

// MarkProductSold moves a product into the sold state with a pending escrow
func (s *pgStore) MarkProductSold(ctx context.Context, input MarkSoldInput) (bool, error) {
	updates := map[string]interface{}{
		"is_sold":             true,
		"status":              domain.ProductStatusSold,
		"escrow_status":       domain.EscrowStatusPending,
		"escrow_release_time": input.EscrowReleaseTime,
		"delivery_confirmed":  false,
		"dispute_raised":      false,
	}
	if input.Buyer != "" {
		updates["buyer"] = input.Buyer
	}
	addChainMetadata(updates, input.TxHash, input.LogIndex, input.BlockNumber)

	result := s.db.WithContext(ctx).
		Model(&schema.Product{}).
		Where("onchain_id = ?", input.OnchainID).
		Updates(updates)
	if result.Error != nil {
		return false, fmt.Errorf("failed to mark product sold: %w", result.Error)
	}

	return result.RowsAffected > 0, nil
}

func addChainMetadata(updates map[string]interface{}, txHash string, logIndex, blockNumber *uint64) {
	if txHash != "" {
		updates["onchain_tx_hash"] = txHash
	}
	if logIndex != nil {
		updates["onchain_log_index"] = *logIndex
	}
	if blockNumber != nil {
		updates["onchain_block_number"] = *blockNumber
	}
}

// UpdateEscrowState applies an escrow transition to a product
func (s *pgStore) UpdateEscrowState(ctx context.Context, onchainID int64, update EscrowUpdate) (bool, error) {
	updates := map[string]interface{}{
		"escrow_status": update.EscrowStatus,
	}
	if update.DeliveryConfirmed != nil {
		updates["delivery_confirmed"] = *update.DeliveryConfirmed
	}
	if update.DisputeRaised != nil {
		updates["dispute_raised"] = *update.DisputeRaised
	}

	result := s.db.WithContext(ctx).
		Model(&schema.Product{}).
		Where("onchain_id = ?", onchainID).
		Updates(updates)
	if result.Error != nil {
		return false, fmt.Errorf("failed to update escrow state: %w", result.Error)
	}

	return result.RowsAffected > 0, nil
}

// CreateOnchainTransaction records a purchase, keyed uniquely by tx hash
func (s *pgStore) CreateOnchainTransaction(ctx context.Context, input CreateOnchainTransactionInput) (*schema.OnchainTransaction, bool, error) {
	if input.TxHash == "" {
		return nil, false, domain.ErrMissingTxHash
	}

	record := schema.OnchainTransaction{
		ID:               uuid.NewString(),
		TxHash:           input.TxHash,
		OnchainProductID: input.OnchainProductID,
		ProductID:        input.ProductID,
		Buyer:            input.Buyer,
		Seller:           optionalString(input.Seller),
		Amount:           input.Amount,
		BlockNumber:      input.BlockNumber,
		LogIndex:         input.LogIndex,
	}

	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tx_hash"}},
			DoNothing: true,
		}).
		Clauses(clause.Returning{Columns: []clause.Column{}}).
		Create(&record)
	if result.Error != nil {
		return nil, false, fmt.Errorf("failed to create onchain transaction: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		logger.DebugCtx(ctx, "Onchain transaction already recorded", zap.String("tx_hash", input.TxHash))
		existing, err := s.GetOnchainTransactionByTxHash(ctx, input.TxHash)
		if err != nil {
			return nil, false, err
		}
		return existing, false, nil
	}

	return &record, true, nil
}

// GetOnchainTransactionByTxHash retrieves a purchase record by its transaction hash
func (s *pgStore) GetOnchainTransactionByTxHash(ctx context.Context, txHash string) (*schema.OnchainTransaction, error) {
	var record schema.OnchainTransaction
	err := s.db.WithContext(ctx).Where("tx_hash = ?", txHash).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get onchain transaction: %w", err)
	}
	return &record, nil
}

// GetSupplyChainTraceByProductID retrieves a product's trace with its events in stage order
func (s *pgStore) GetSupplyChainTraceByProductID(ctx context.Context, productID string) (*schema.SupplyChainTrace, error) {
	var trace schema.SupplyChainTrace
	err := s.db.WithContext(ctx).
		Preload("Events", func(db *gorm.DB) *gorm.DB {
			return db.Order("occurred_at ASC, id ASC")
		}).
		Where("product_id = ?", productID).
		First(&trace).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get supply chain trace: %w", err)
	}
	return &trace, nil
}

// CreateSupplyChainTrace creates a trace and its seed events in a single transaction
func (s *pgStore) CreateSupplyChainTrace(ctx context.Context, input CreateSupplyChainTraceInput) (bool, error) {
	chains := input.VerifiedOnChains
	if chains == nil {
		chains = []string{}
	}
	chainsJSON, err := json.Marshal(chains)
	if err != nil {
		return false, fmt.Errorf("failed to marshal verified chains: %w", err)
	}

	created := false
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		trace := schema.SupplyChainTrace{
			ID:               uuid.NewString(),
			ProductID:        input.ProductID,
			FarmerID:         input.FarmerID,
			FarmRegion:       input.FarmRegion,
			CurrentStage:     input.CurrentStage,
			VerificationHash: input.VerificationHash,
			VerifiedOnChains: chainsJSON,
		}

		result := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "product_id"}},
			DoNothing: true,
		}).
			Clauses(clause.Returning{Columns: []clause.Column{}}).
			Omit("Events").
			Create(&trace)
		if result.Error != nil {
			return fmt.Errorf("failed to create supply chain trace: %w", result.Error)
		}

		// The product already has a trace
		if result.RowsAffected == 0 {
			return nil
		}

		if len(input.Events) > 0 {
			events := make([]schema.SupplyChainEvent, 0, len(input.Events))
			for _, e := range input.Events {
				events = append(events, schema.SupplyChainEvent{
					TraceID:     trace.ID,
					Stage:       e.Stage,
					Location:    e.Location,
					Description: e.Description,
					Metadata:    e.Metadata,
					Verified:    e.Verified,
					Timestamp:   e.Timestamp,
				})
			}
			if err := tx.Create(&events).Error; err != nil {
				return fmt.Errorf("failed to create supply chain events: %w", err)
			}
		}

		created = true
		return nil
	})
	if err != nil {
		return false, err
	}

	return created, nil
}

// GetNFTCertificateByProductID retrieves a product's certificate
func (s *pgStore) GetNFTCertificateByProductID(ctx context.Context, productID string) (*schema.NFTCertificate, error) {
	var cert schema.NFTCertificate
	err := s.db.WithContext(ctx).Where("product_id = ?", productID).First(&cert).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get nft certificate: %w", err)
	}
	return &cert, nil
}

// CreateNFTCertificate issues a certificate, at most one per product
func (s *pgStore) CreateNFTCertificate(ctx context.Context, input CreateNFTCertificateInput) (bool, error) {
	cert := schema.NFTCertificate{
		ID:               uuid.NewString(),
		ProductID:        input.ProductID,
		CertificateHash:  input.CertificateHash,
		MetadataURI:      input.MetadataURI,
		ImageURI:         input.ImageURI,
		ProductName:      input.ProductName,
		FarmerName:       input.FarmerName,
		FarmerAddress:    input.FarmerAddress,
		Region:           input.Region,
		QualityGrade:     input.QualityGrade,
		OrganicCertified: input.OrganicCertified,
		HarvestDate:      input.HarvestDate,
		TransactionHash:  input.TransactionHash,
		OwnerAddress:     input.OwnerAddress,
		OwnerID:          input.OwnerID,
		Metadata:         input.Metadata,
	}

	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "product_id"}},
			DoNothing: true,
		}).
		Clauses(clause.Returning{Columns: []clause.Column{}}).
		Create(&cert)
	if result.Error != nil {
		return false, fmt.Errorf("failed to create nft certificate: %w", result.Error)
	}

	return result.RowsAffected > 0, nil
}

// GetFarmerByID retrieves a farmer by user id
func (s *pgStore) GetFarmerByID(ctx context.Context, id string) (*schema.Farmer, error) {
	var farmer schema.Farmer
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&farmer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get farmer: %w", err)
	}
	return &farmer, nil
}

// GetFarmerByWalletAddress retrieves a farmer by wallet address
func (s *pgStore) GetFarmerByWalletAddress(ctx context.Context, address string) (*schema.Farmer, error) {
	if address == "" {
		return nil, nil
	}

	var farmer schema.Farmer
	err := s.db.WithContext(ctx).
		Where("LOWER(wallet_address) = LOWER(?)", address).
		Order("created_at ASC").
		First(&farmer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get farmer by wallet address: %w", err)
	}
	return &farmer, nil
}

// GetSoldProductsForFarmer retrieves sold products matched by seller wallet or owning user id
func (s *pgStore) GetSoldProductsForFarmer(ctx context.Context, walletAddress string, farmerID string) ([]schema.Product, error) {
	query := s.db.WithContext(ctx).Where("is_sold = ?", true)
	switch {
	case walletAddress != "" && farmerID != "":
		query = query.Where("(LOWER(seller) = LOWER(?) OR user_id = ?)", walletAddress, farmerID)
	case walletAddress != "":
		query = query.Where("LOWER(seller) = LOWER(?)", walletAddress)
	case farmerID != "":
		query = query.Where("user_id = ?", farmerID)
	default:
		return nil, nil
	}

	var products []schema.Product
	if err := query.Order("created_at ASC").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to get sold products: %w", err)
	}
	return products, nil
}

// ApplyReputationChange appends a reputation history entry and updates the farmer in a single transaction
func (s *pgStore) ApplyReputationChange(ctx context.Context, input ReputationChangeInput) (bool, error) {
	applied := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		history := schema.FarmerReputationHistory{
			FarmerID:      input.FarmerID,
			FarmerPhone:   input.FarmerPhone,
			PreviousScore: input.PreviousScore,
			NewScore:      input.NewScore,
			ChangeReason:  input.ChangeReason,
			TransactionID: input.TransactionID,
			Notes:         input.Notes,
		}

		// (farmer_id, transaction_id, change_reason) is unique so a redelivered purchase credits once
		result := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "farmer_id"}, {Name: "transaction_id"}, {Name: "change_reason"}},
			DoNothing: true,
		}).
			Clauses(clause.Returning{Columns: []clause.Column{}}).
			Create(&history)
		if result.Error != nil {
			return fmt.Errorf("failed to create reputation history: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return nil
		}

		updates := map[string]interface{}{
			"reputation_score": input.NewScore,
		}
		if input.IncrementTotalSales {
			updates["total_sales"] = gorm.Expr("total_sales + 1")
		}
		if err := tx.Model(&schema.Farmer{}).
			Where("id = ?", input.FarmerID).
			Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update farmer reputation: %w", err)
		}

		applied = true
		return nil
	})
	if err != nil {
		return false, err
	}

	return applied, nil
}

// GetBlockCursor retrieves the last processed block number for a chain, 0 when none is stored
func (s *pgStore) GetBlockCursor(ctx context.Context, chain string) (uint64, error) {
	var kv schema.KeyValueStore
	err := s.db.WithContext(ctx).Where("key = ?", BlockCursorKey(chain)).First(&kv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get block cursor: %w", err)
	}

	blockNumber, err := strconv.ParseUint(kv.Value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse block cursor: %w", err)
	}

	return blockNumber, nil
}

// SetBlockCursor stores the last processed block number for a chain
func (s *pgStore) SetBlockCursor(ctx context.Context, chain string, blockNumber uint64) error {
	kv := schema.KeyValueStore{
		Key:   BlockCursorKey(chain),
		Value: strconv.FormatUint(blockNumber, 10),
	}

	if err := s.db.WithContext(ctx).Save(&kv).Error; err != nil {
		return fmt.Errorf("failed to set block cursor: %w", err)
	}

	return nil
}
