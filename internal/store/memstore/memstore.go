// Package memstore is an in-memory store.Store used by tests that run the
// watcher pipeline without PostgreSQL. It honours the same uniqueness keys as
// db/init_pg_db.sql.
package memstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/agrolink/marketplace-watcher/internal/domain"
	"github.com/agrolink/marketplace-watcher/internal/store"
	"github.com/agrolink/marketplace-watcher/internal/store/schema"
)

type reputationKey struct {
	farmerID      string
	transactionID string
	reason        string
}

// Store is an in-memory store.Store
type Store struct {
	mu sync.Mutex

	products     map[int64]*schema.Product // by onchain id
	transactions map[string]*schema.OnchainTransaction
	traces       map[string]*schema.SupplyChainTrace // by product id
	certificates map[string]*schema.NFTCertificate  // by product id
	farmers      map[string]*schema.Farmer
	history      []schema.FarmerReputationHistory
	historyKeys  map[reputationKey]struct{}
	kv           map[string]string

	failures map[string]error
	writes   int
	now      func() time.Time
}

var _ store.Store = (*Store)(nil)

// New creates an empty in-memory store
func New() *Store {
	return &Store{
		products:     make(map[int64]*schema.Product),
		transactions: make(map[string]*schema.OnchainTransaction),
		traces:       make(map[string]*schema.SupplyChainTrace),
		certificates: make(map[string]*schema.NFTCertificate),
		farmers:      make(map[string]*schema.Farmer),
		historyKeys:  make(map[reputationKey]struct{}),
		kv:           make(map[string]string),
		failures:     make(map[string]error),
		now:          time.Now,
	}
}

// AddFarmer inserts a farmer row
func (s *Store) AddFarmer(farmer schema.Farmer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if farmer.ID == "" {
		farmer.ID = uuid.NewString()
	}
	s.farmers[farmer.ID] = &farmer
}

// FailOn makes every call of the named operation (e.g. "CreateNFTCertificate") return err.
// A nil err clears the failure.
func (s *Store) FailOn(operation string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, operation)
		return
	}
	s.failures[operation] = err
}

// Writes returns the number of successful mutating calls that changed state
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

// Products returns a copy of every product ordered by onchain id
func (s *Store) Products() []schema.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]schema.Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return *out[i].OnchainID < *out[j].OnchainID })
	return out
}

// Transactions returns a copy of every purchase record
func (s *Store) Transactions() []schema.OnchainTransaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]schema.OnchainTransaction, 0, len(s.transactions))
	for _, tx := range s.transactions {
		out = append(out, *tx)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TxHash < out[j].TxHash })
	return out
}

// Traces returns the number of supply chain traces
func (s *Store) Traces() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.traces)
}

// Certificates returns a copy of every certificate
func (s *Store) Certificates() []schema.NFTCertificate {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]schema.NFTCertificate, 0, len(s.certificates))
	for _, c := range s.certificates {
		out = append(out, *c)
	}
	return out
}

// ReputationHistory returns the history entries of a farmer in insertion order
func (s *Store) ReputationHistory(farmerID string) []schema.FarmerReputationHistory {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []schema.FarmerReputationHistory
	for _, h := range s.history {
		if h.FarmerID == farmerID {
			out = append(out, h)
		}
	}
	return out
}

func (s *Store) fail(operation string) error {
	if err, ok := s.failures[operation]; ok {
		return fmt.Errorf("%s: %w", operation, err)
	}
	return nil
}

func optionalString(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func copyUint64(v *uint64) *uint64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func (s *Store) GetProductByOnchainID(_ context.Context, onchainID int64) (*schema.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("GetProductByOnchainID"); err != nil {
		return nil, err
	}
	p, ok := s.products[onchainID]
	if !ok {
		return nil, nil
	}
	c := *p
	return &c, nil
}

func (s *Store) CreateProduct(_ context.Context, input store.ListingInput) (*schema.Product, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("CreateProduct"); err != nil {
		return nil, false, err
	}
	if existing, ok := s.products[input.OnchainID]; ok {
		c := *existing
		return &c, false, nil
	}

	onchainID := input.OnchainID
	now := s.now()
	p := &schema.Product{
		ID:                 uuid.NewString(),
		OnchainID:          &onchainID,
		Name:               input.Name,
		Description:        input.Description,
		Quantity:           input.Quantity,
		Price:              input.Price,
		ImageURL:           optionalString(input.ImageURL),
		Status:             domain.ProductStatusAvailable,
		Seller:             optionalString(input.Seller),
		OnchainPrice:       optionalString(input.OnchainPrice),
		MetadataURI:        optionalString(input.MetadataURI),
		OnchainTxHash:      optionalString(input.TxHash),
		OnchainLogIndex:    copyUint64(input.LogIndex),
		OnchainBlockNumber: copyUint64(input.BlockNumber),
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	s.products[onchainID] = p
	s.writes++

	c := *p
	return &c, true, nil
}

func setChainMetadata(p *schema.Product, txHash string, logIndex, blockNumber *uint64) {
	if txHash != "" {
		p.OnchainTxHash = &txHash
	}
	if logIndex != nil {
		p.OnchainLogIndex = copyUint64(logIndex)
	}
	if blockNumber != nil {
		p.OnchainBlockNumber = copyUint64(blockNumber)
	}
}

func (s *Store) UpdateListing(_ context.Context, input store.ListingInput) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("UpdateListing"); err != nil {
		return false, err
	}
	p, ok := s.products[input.OnchainID]
	if !ok {
		return false, nil
	}
	p.Name = input.Name
	p.Quantity = input.Quantity
	p.Price = input.Price
	p.Description = input.Description
	p.ImageURL = optionalString(input.ImageURL)
	p.Status = domain.ProductStatusAvailable
	p.IsSold = false
	p.Seller = optionalString(input.Seller)
	p.OnchainPrice = optionalString(input.OnchainPrice)
	p.MetadataURI = optionalString(input.MetadataURI)
	setChainMetadata(p, input.TxHash, input.LogIndex, input.BlockNumber)
	p.UpdatedAt = s.now()
	s.writes++
	return true, nil
}

func (s *Store) MarkProductSold(_ context.Context, input store.MarkSoldInput) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("MarkProductSold"); err != nil {
		return false, err
	}
	p, ok := s.products[input.OnchainID]
	if !ok {
		return false, nil
	}
	pending := domain.EscrowStatusPending
	release := input.EscrowReleaseTime
	p.IsSold = true
	p.Status = domain.ProductStatusSold
	p.EscrowStatus = &pending
	p.EscrowReleaseTime = &release
	p.DeliveryConfirmed = false
	p.DisputeRaised = false
	if input.Buyer != "" {
		buyer := input.Buyer
		p.Buyer = &buyer
	}
	setChainMetadata(p, input.TxHash, input.LogIndex, input.BlockNumber)
	p.UpdatedAt = s.now()
	s.writes++
	return true, nil
}

func (s *Store) UpdateEscrowState(_ context.Context, onchainID int64, update store.EscrowUpdate) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("UpdateEscrowState"); err != nil {
		return false, err
	}
	p, ok := s.products[onchainID]
	if !ok {
		return false, nil
	}
	status := update.EscrowStatus
	p.EscrowStatus = &status
	if update.DeliveryConfirmed != nil {
		p.DeliveryConfirmed = *update.DeliveryConfirmed
	}
	if update.DisputeRaised != nil {
		p.DisputeRaised = *update.DisputeRaised
	}
	p.UpdatedAt = s.now()
	s.writes++
	return true, nil
}

func (s *Store) CreateOnchainTransaction(_ context.Context, input store.CreateOnchainTransactionInput) (*schema.OnchainTransaction, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("CreateOnchainTransaction"); err != nil {
		return nil, false, err
	}
	if input.TxHash == "" {
		return nil, false, domain.ErrMissingTxHash
	}
	if existing, ok := s.transactions[input.TxHash]; ok {
		c := *existing
		return &c, false, nil
	}
	record := &schema.OnchainTransaction{
		ID:               uuid.NewString(),
		TxHash:           input.TxHash,
		OnchainProductID: input.OnchainProductID,
		ProductID:        input.ProductID,
		Buyer:            input.Buyer,
		Seller:           optionalString(input.Seller),
		Amount:           input.Amount,
		BlockNumber:      copyUint64(input.BlockNumber),
		LogIndex:         copyUint64(input.LogIndex),
		CreatedAt:        s.now(),
	}
	s.transactions[input.TxHash] = record
	s.writes++
	c := *record
	return &c, true, nil
}

func (s *Store) GetOnchainTransactionByTxHash(_ context.Context, txHash string) (*schema.OnchainTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("GetOnchainTransactionByTxHash"); err != nil {
		return nil, err
	}
	record, ok := s.transactions[txHash]
	if !ok {
		return nil, nil
	}
	c := *record
	return &c, nil
}

func (s *Store) GetSupplyChainTraceByProductID(_ context.Context, productID string) (*schema.SupplyChainTrace, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("GetSupplyChainTraceByProductID"); err != nil {
		return nil, err
	}
	trace, ok := s.traces[productID]
	if !ok {
		return nil, nil
	}
	c := *trace
	c.Events = append([]schema.SupplyChainEvent(nil), trace.Events...)
	return &c, nil
}

func (s *Store) CreateSupplyChainTrace(_ context.Context, input store.CreateSupplyChainTraceInput) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("CreateSupplyChainTrace"); err != nil {
		return false, err
	}
	if _, ok := s.traces[input.ProductID]; ok {
		return false, nil
	}
	chains := input.VerifiedOnChains
	if chains == nil {
		chains = []string{}
	}
	chainsJSON, err := json.Marshal(chains)
	if err != nil {
		return false, fmt.Errorf("failed to marshal verified chains: %w", err)
	}

	now := s.now()
	trace := &schema.SupplyChainTrace{
		ID:               uuid.NewString(),
		ProductID:        input.ProductID,
		FarmerID:         input.FarmerID,
		FarmRegion:       input.FarmRegion,
		CurrentStage:     input.CurrentStage,
		VerificationHash: input.VerificationHash,
		VerifiedOnChains: chainsJSON,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	for i, e := range input.Events {
		trace.Events = append(trace.Events, schema.SupplyChainEvent{
			ID:          int64(i + 1),
			TraceID:     trace.ID,
			Stage:       e.Stage,
			Location:    e.Location,
			Description: e.Description,
			Metadata:    e.Metadata,
			Verified:    e.Verified,
			Timestamp:   e.Timestamp,
		})
	}
	s.traces[input.ProductID] = trace
	s.writes++
	return true, nil
}

func (s *Store) GetNFTCertificateByProductID(_ context.Context, productID string) (*schema.NFTCertificate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("GetNFTCertificateByProductID"); err != nil {
		return nil, err
	}
	cert, ok := s.certificates[productID]
	if !ok {
		return nil, nil
	}
	c := *cert
	return &c, nil
}

func (s *Store) CreateNFTCertificate(_ context.Context, input store.CreateNFTCertificateInput) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("CreateNFTCertificate"); err != nil {
		return false, err
	}
	if _, ok := s.certificates[input.ProductID]; ok {
		return false, nil
	}
	s.certificates[input.ProductID] = &schema.NFTCertificate{
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
		CreatedAt:        s.now(),
	}
	s.writes++
	return true, nil
}

func (s *Store) GetFarmerByID(_ context.Context, id string) (*schema.Farmer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("GetFarmerByID"); err != nil {
		return nil, err
	}
	farmer, ok := s.farmers[id]
	if !ok {
		return nil, nil
	}
	c := *farmer
	return &c, nil
}

func (s *Store) GetFarmerByWalletAddress(_ context.Context, address string) (*schema.Farmer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("GetFarmerByWalletAddress"); err != nil {
		return nil, err
	}
	if address == "" {
		return nil, nil
	}
	for _, farmer := range s.farmers {
		if farmer.WalletAddress != nil && strings.EqualFold(*farmer.WalletAddress, address) {
			c := *farmer
			return &c, nil
		}
	}
	return nil, nil
}

func (s *Store) GetSoldProductsForFarmer(_ context.Context, walletAddress string, farmerID string) ([]schema.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("GetSoldProductsForFarmer"); err != nil {
		return nil, err
	}
	var out []schema.Product
	for _, p := range s.products {
		if !p.IsSold {
			continue
		}
		bySeller := walletAddress != "" && p.Seller != nil && strings.EqualFold(*p.Seller, walletAddress)
		byOwner := farmerID != "" && p.UserID != nil && *p.UserID == farmerID
		if bySeller || byOwner {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return *out[i].OnchainID < *out[j].OnchainID })
	return out, nil
}

func (s *Store) ApplyReputationChange(_ context.Context, input store.ReputationChangeInput) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("ApplyReputationChange"); err != nil {
		return false, err
	}
	key := reputationKey{farmerID: input.FarmerID, transactionID: input.TransactionID, reason: input.ChangeReason}
	if _, ok := s.historyKeys[key]; ok {
		return false, nil
	}
	farmer, ok := s.farmers[input.FarmerID]
	if !ok {
		return false, fmt.Errorf("farmer %s does not exist", input.FarmerID)
	}

	s.historyKeys[key] = struct{}{}
	s.history = append(s.history, schema.FarmerReputationHistory{
		ID:            int64(len(s.history) + 1),
		FarmerID:      input.FarmerID,
		FarmerPhone:   input.FarmerPhone,
		PreviousScore: input.PreviousScore,
		NewScore:      input.NewScore,
		ChangeReason:  input.ChangeReason,
		TransactionID: input.TransactionID,
		Notes:         input.Notes,
		CreatedAt:     s.now(),
	})
	farmer.ReputationScore = input.NewScore
	if input.IncrementTotalSales {
		farmer.TotalSales++
	}
	s.writes++
	return true, nil
}

func (s *Store) GetBlockCursor(_ context.Context, chain string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("GetBlockCursor"); err != nil {
		return 0, err
	}
	v, ok := s.kv[store.BlockCursorKey(chain)]
	if !ok {
		return 0, nil
	}
	var n uint64
	if _, err := fmt.Sscan(v, &n); err != nil {
		return 0, fmt.Errorf("failed to parse block cursor: %w", err)
	}
	return n, nil
}

func (s *Store) SetBlockCursor(_ context.Context, chain string, blockNumber uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("SetBlockCursor"); err != nil {
		return err
	}
	s.kv[store.BlockCursorKey(chain)] = fmt.Sprint(blockNumber)
	return nil
}
