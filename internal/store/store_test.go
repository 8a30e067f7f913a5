package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/agrolink/marketplace-watcher/internal/domain"
	"github.com/agrolink/marketplace-watcher/internal/store/schema"
)

// FarmerSeeder inserts a farmer row; the watcher never creates users itself
type FarmerSeeder func(t *testing.T, farmer *schema.Farmer)

// =============================================================================
// Test Data Builders
// =============================================================================

const (
	testSeller = "0x52908400098527886E0F7030069857D2E4169EE7"
	testBuyer  = "0x8617E340B3D01FA5F11F306F4090FD50E238070D"
)

func uint64Ptr(v uint64) *uint64 {
	return &v
}

func stringPtr(s string) *string {
	return &s
}

// buildTestListing creates a listing input the way the reconciler builds one
func buildTestListing(onchainID int64, txHash string, logIndex uint64) ListingInput {
	return ListingInput{
		OnchainID:    onchainID,
		Name:         domain.ONCHAIN_PRODUCT_NAME_PREFIX + "7",
		Quantity:     domain.ONCHAIN_LISTING_QUANTITY,
		Price:        1.5,
		Description:  "On-chain listing by " + testSeller,
		ImageURL:     "ipfs://listing",
		Seller:       testSeller,
		OnchainPrice: "1.5",
		MetadataURI:  "ipfs://listing",
		TxHash:       txHash,
		LogIndex:     uint64Ptr(logIndex),
		BlockNumber:  uint64Ptr(100),
	}
}

func buildTestFarmer(wallet string) *schema.Farmer {
	return &schema.Farmer{
		ID:            uuid.NewString(),
		Name:          "Abebe",
		Phone:         stringPtr("+251900000000"),
		Role:          "farmer",
		WalletAddress: stringPtr(wallet),
	}
}

// =============================================================================
// Test: Products
// =============================================================================

func testProducts(t *testing.T, store Store, _ FarmerSeeder) {
	ctx := context.Background()

	t.Run("get unknown product returns nil", func(t *testing.T) {
		product, err := store.GetProductByOnchainID(ctx, 999999)
		require.NoError(t, err)
		assert.Nil(t, product)
	})

	t.Run("create product", func(t *testing.T) {
		input := buildTestListing(7, "0xlisted7", 0)

		product, created, err := store.CreateProduct(ctx, input)
		require.NoError(t, err)
		require.True(t, created)
		require.NotNil(t, product)

		got, err := store.GetProductByOnchainID(ctx, 7)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, product.ID, got.ID)
		assert.Equal(t, "onchain#7", got.Name)
		assert.Equal(t, 1, got.Quantity)
		assert.Equal(t, 1.5, got.Price)
		assert.Equal(t, domain.ProductStatusAvailable, got.Status)
		assert.False(t, got.IsSold)
		assert.Nil(t, got.EscrowStatus)
		require.NotNil(t, got.Seller)
		assert.Equal(t, testSeller, *got.Seller)
		require.NotNil(t, got.OnchainTxHash)
		assert.Equal(t, "0xlisted7", *got.OnchainTxHash)
		require.NotNil(t, got.OnchainLogIndex)
		assert.Equal(t, uint64(0), *got.OnchainLogIndex)
	})

	t.Run("create duplicate onchain id returns existing", func(t *testing.T) {
		first, created, err := store.CreateProduct(ctx, buildTestListing(8, "0xlisted8", 1))
		require.NoError(t, err)
		require.True(t, created)

		second, created, err := store.CreateProduct(ctx, buildTestListing(8, "0xother", 2))
		require.NoError(t, err)
		assert.False(t, created)
		require.NotNil(t, second)
		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, "0xlisted8", *second.OnchainTxHash)
	})

	t.Run("update listing overwrites fields and keeps absent chain metadata", func(t *testing.T) {
		_, _, err := store.CreateProduct(ctx, buildTestListing(9, "0xlisted9", 3))
		require.NoError(t, err)

		input := buildTestListing(9, "", 0)
		input.LogIndex = nil
		input.BlockNumber = nil
		input.Price = 2.25
		input.OnchainPrice = "2.25"

		updated, err := store.UpdateListing(ctx, input)
		require.NoError(t, err)
		assert.True(t, updated)

		got, err := store.GetProductByOnchainID(ctx, 9)
		require.NoError(t, err)
		assert.Equal(t, 2.25, got.Price)
		assert.Equal(t, "2.25", *got.OnchainPrice)
		assert.Equal(t, "0xlisted9", *got.OnchainTxHash)
		assert.Equal(t, uint64(3), *got.OnchainLogIndex)
	})

	t.Run("update listing of unknown product reports no match", func(t *testing.T) {
		updated, err := store.UpdateListing(ctx, buildTestListing(424242, "0xnope", 0))
		require.NoError(t, err)
		assert.False(t, updated)
	})

	t.Run("mark product sold", func(t *testing.T) {
		_, _, err := store.CreateProduct(ctx, buildTestListing(10, "0xlisted10", 0))
		require.NoError(t, err)

		release := time.Now().UTC().Add(domain.DEFAULT_ESCROW_HOLD_PERIOD).Truncate(time.Second)
		updated, err := store.MarkProductSold(ctx, MarkSoldInput{
			OnchainID:         10,
			Buyer:             testBuyer,
			EscrowReleaseTime: release,
			TxHash:            "0xbought10",
			LogIndex:          uint64Ptr(4),
			BlockNumber:       uint64Ptr(120),
		})
		require.NoError(t, err)
		assert.True(t, updated)

		got, err := store.GetProductByOnchainID(ctx, 10)
		require.NoError(t, err)
		assert.True(t, got.IsSold)
		assert.Equal(t, domain.ProductStatusSold, got.Status)
		require.NotNil(t, got.EscrowStatus)
		assert.Equal(t, domain.EscrowStatusPending, *got.EscrowStatus)
		assert.Equal(t, testBuyer, *got.Buyer)
		require.NotNil(t, got.EscrowReleaseTime)
		assert.True(t, release.Equal(got.EscrowReleaseTime.UTC()))
		assert.Equal(t, "0xbought10", *got.OnchainTxHash)
		assert.Equal(t, uint64(120), *got.OnchainBlockNumber)
	})

	t.Run("escrow transitions", func(t *testing.T) {
		_, _, err := store.CreateProduct(ctx, buildTestListing(11, "0xlisted11", 0))
		require.NoError(t, err)

		confirmed := true
		updated, err := store.UpdateEscrowState(ctx, 11, EscrowUpdate{
			EscrowStatus:      domain.EscrowStatusConfirmed,
			DeliveryConfirmed: &confirmed,
		})
		require.NoError(t, err)
		assert.True(t, updated)

		raised := true
		_, err = store.UpdateEscrowState(ctx, 11, EscrowUpdate{
			EscrowStatus:  domain.EscrowStatusDisputed,
			DisputeRaised: &raised,
		})
		require.NoError(t, err)

		got, err := store.GetProductByOnchainID(ctx, 11)
		require.NoError(t, err)
		assert.True(t, got.DeliveryConfirmed)
		assert.True(t, got.DisputeRaised)
		assert.Equal(t, domain.EscrowStatusDisputed, *got.EscrowStatus)

		updated, err = store.UpdateEscrowState(ctx, 424242, EscrowUpdate{EscrowStatus: domain.EscrowStatusReleased})
		require.NoError(t, err)
		assert.False(t, updated)
	})
}

// =============================================================================
// Test: Onchain transactions
// =============================================================================

func testOnchainTransactions(t *testing.T, store Store, _ FarmerSeeder) {
	ctx := context.Background()

	t.Run("create is idempotent by tx hash", func(t *testing.T) {
		input := CreateOnchainTransactionInput{
			TxHash:           "0xpurchase1",
			OnchainProductID: 7,
			Buyer:            testBuyer,
			Seller:           testSeller,
			Amount:           "1.5",
			BlockNumber:      uint64Ptr(101),
			LogIndex:         uint64Ptr(0),
		}

		first, created, err := store.CreateOnchainTransaction(ctx, input)
		require.NoError(t, err)
		assert.True(t, created)
		require.NotNil(t, first)

		second, created, err := store.CreateOnchainTransaction(ctx, input)
		require.NoError(t, err)
		assert.False(t, created)
		require.NotNil(t, second)
		assert.Equal(t, first.ID, second.ID)

		got, err := store.GetOnchainTransactionByTxHash(ctx, "0xpurchase1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "1.5", got.Amount)
		assert.Equal(t, int64(7), got.OnchainProductID)
	})

	t.Run("missing tx hash is rejected", func(t *testing.T) {
		_, created, err := store.CreateOnchainTransaction(ctx, CreateOnchainTransactionInput{OnchainProductID: 7})
		assert.ErrorIs(t, err, domain.ErrMissingTxHash)
		assert.False(t, created)
	})

	t.Run("unknown tx hash returns nil", func(t *testing.T) {
		got, err := store.GetOnchainTransactionByTxHash(ctx, "0xunknown")
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

// =============================================================================
// Test: Supply chain traces and certificates
// =============================================================================

func testSupplyChainTraces(t *testing.T, store Store, _ FarmerSeeder) {
	ctx := context.Background()

	product, _, err := store.CreateProduct(ctx, buildTestListing(20, "0xlisted20", 0))
	require.NoError(t, err)

	now := time.Now().UTC().Truncate(time.Second)
	input := CreateSupplyChainTraceInput{
		ProductID:        product.ID,
		FarmRegion:       "Unknown",
		CurrentStage:     domain.SupplyChainStageHarvested,
		VerificationHash: "abc123",
		VerifiedOnChains: []string{"polkadot"},
		Events: []SupplyChainEventInput{
			{
				Stage:       domain.SupplyChainStageHarvested,
				Location:    "Unknown",
				Description: "Product harvested",
				Metadata:    datatypes.JSON(`{"farmer":"Abebe"}`),
				Verified:    true,
				Timestamp:   now,
			},
		},
	}

	created, err := store.CreateSupplyChainTrace(ctx, input)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = store.CreateSupplyChainTrace(ctx, input)
	require.NoError(t, err)
	assert.False(t, created)

	trace, err := store.GetSupplyChainTraceByProductID(ctx, product.ID)
	require.NoError(t, err)
	require.NotNil(t, trace)
	assert.Equal(t, domain.SupplyChainStageHarvested, trace.CurrentStage)
	assert.JSONEq(t, `["polkadot"]`, string(trace.VerifiedOnChains))
	require.Len(t, trace.Events, 1)
	assert.True(t, trace.Events[0].Verified)
	assert.Equal(t, domain.SupplyChainStageHarvested, trace.Events[0].Stage)

	missing, err := store.GetSupplyChainTraceByProductID(ctx, uuid.NewString())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func testNFTCertificates(t *testing.T, store Store, _ FarmerSeeder) {
	ctx := context.Background()

	product, _, err := store.CreateProduct(ctx, buildTestListing(21, "0xlisted21", 0))
	require.NoError(t, err)

	input := CreateNFTCertificateInput{
		ProductID:       product.ID,
		CertificateHash: "certhash-1",
		MetadataURI:     "ipfs://metadata/certhash-1",
		ImageURI:        "https://agrolink.app/certificates/certhash-1.png",
		ProductName:     product.Name,
		OwnerAddress:    stringPtr(testBuyer),
		TransactionHash: stringPtr("0xpurchase21"),
		Metadata:        datatypes.JSON(`{"name":"AgroLink Certificate: onchain#21"}`),
	}

	created, err := store.CreateNFTCertificate(ctx, input)
	require.NoError(t, err)
	assert.True(t, created)

	input.CertificateHash = "certhash-2"
	created, err = store.CreateNFTCertificate(ctx, input)
	require.NoError(t, err)
	assert.False(t, created)

	cert, err := store.GetNFTCertificateByProductID(ctx, product.ID)
	require.NoError(t, err)
	require.NotNil(t, cert)
	assert.Equal(t, "certhash-1", cert.CertificateHash)
	assert.Equal(t, testBuyer, *cert.OwnerAddress)
}

// =============================================================================
// Test: Farmers and reputation
// =============================================================================

func testFarmers(t *testing.T, store Store, seed FarmerSeeder) {
	ctx := context.Background()

	farmer := buildTestFarmer(testSeller)
	seed(t, farmer)

	t.Run("lookup by wallet is case-insensitive", func(t *testing.T) {
		got, err := store.GetFarmerByWalletAddress(ctx, "0x52908400098527886e0f7030069857d2e4169ee7")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, farmer.ID, got.ID)

		got, err = store.GetFarmerByID(ctx, farmer.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "Abebe", got.Name)
	})

	t.Run("unknown wallet returns nil", func(t *testing.T) {
		got, err := store.GetFarmerByWalletAddress(ctx, testBuyer)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("sold products match seller wallet", func(t *testing.T) {
		_, _, err := store.CreateProduct(ctx, buildTestListing(30, "0xlisted30", 0))
		require.NoError(t, err)
		_, _, err = store.CreateProduct(ctx, buildTestListing(31, "0xlisted31", 0))
		require.NoError(t, err)
		_, err = store.MarkProductSold(ctx, MarkSoldInput{OnchainID: 30, Buyer: testBuyer, EscrowReleaseTime: time.Now()})
		require.NoError(t, err)

		products, err := store.GetSoldProductsForFarmer(ctx, "0x52908400098527886e0f7030069857d2e4169ee7", farmer.ID)
		require.NoError(t, err)
		require.Len(t, products, 1)
		assert.Equal(t, int64(30), *products[0].OnchainID)
	})
}

func testReputation(t *testing.T, store Store, seed FarmerSeeder) {
	ctx := context.Background()

	farmer := buildTestFarmer("0x1111111111111111111111111111111111111111")
	seed(t, farmer)

	input := ReputationChangeInput{
		FarmerID:            farmer.ID,
		FarmerPhone:         farmer.Phone,
		PreviousScore:       0,
		NewScore:            63,
		ChangeReason:        domain.REPUTATION_REASON_TRANSACTION_COMPLETED,
		TransactionID:       "0xpurchase40",
		IncrementTotalSales: true,
	}

	applied, err := store.ApplyReputationChange(ctx, input)
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = store.ApplyReputationChange(ctx, input)
	require.NoError(t, err)
	assert.False(t, applied)

	got, err := store.GetFarmerByID(ctx, farmer.ID)
	require.NoError(t, err)
	assert.Equal(t, 63.0, got.ReputationScore)
	assert.Equal(t, 1, got.TotalSales)
}

// =============================================================================
// Test: Block cursor
// =============================================================================

func testBlockCursor(t *testing.T, store Store, _ FarmerSeeder) {
	ctx := context.Background()

	t.Run("get non-existent cursor returns 0", func(t *testing.T) {
		cursor, err := store.GetBlockCursor(ctx, "eip155:424242")
		require.NoError(t, err)
		assert.Equal(t, uint64(0), cursor)
	})

	t.Run("set, get and update cursor", func(t *testing.T) {
		chain := string(domain.ChainHardhatLocal)

		require.NoError(t, store.SetBlockCursor(ctx, chain, 100))
		require.NoError(t, store.SetBlockCursor(ctx, chain, 200))

		cursor, err := store.GetBlockCursor(ctx, chain)
		require.NoError(t, err)
		assert.Equal(t, uint64(200), cursor)
	})
}

func RunStoreTests(t *testing.T, initDB func(t *testing.T) (Store, FarmerSeeder)) {
	tests := []struct {
		name string
		fn   func(*testing.T, Store, FarmerSeeder)
	}{
		{"Products", testProducts},
		{"OnchainTransactions", testOnchainTransactions},
		{"SupplyChainTraces", testSupplyChainTraces},
		{"NFTCertificates", testNFTCertificates},
		{"Farmers", testFarmers},
		{"Reputation", testReputation},
		{"BlockCursor", testBlockCursor},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, seed := initDB(t)
			tt.fn(t, store, seed)
		})
	}
}
