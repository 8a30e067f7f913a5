package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrolink/marketplace-watcher/internal/domain"
	"github.com/agrolink/marketplace-watcher/internal/store"
	"github.com/agrolink/marketplace-watcher/internal/store/schema"
)

func TestCreateProductIsUniqueByOnchainID(t *testing.T) {
	s := New()
	ctx := context.Background()

	first, created, err := s.CreateProduct(ctx, store.ListingInput{OnchainID: 1, Name: "onchain#1", TxHash: "0xa"})
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := s.CreateProduct(ctx, store.ListingInput{OnchainID: 1, Name: "onchain#1", TxHash: "0xb"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, s.Products(), 1)
	assert.Equal(t, 1, s.Writes())
}

func TestReturnedRowsAreCopies(t *testing.T) {
	s := New()
	ctx := context.Background()

	_, _, err := s.CreateProduct(ctx, store.ListingInput{OnchainID: 2, Name: "onchain#2"})
	require.NoError(t, err)

	got, err := s.GetProductByOnchainID(ctx, 2)
	require.NoError(t, err)
	got.Name = "mutated"

	again, err := s.GetProductByOnchainID(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "onchain#2", again.Name)
}

func TestFailOn(t *testing.T) {
	s := New()
	ctx := context.Background()
	boom := errors.New("boom")

	s.FailOn("CreateOnchainTransaction", boom)
	_, _, err := s.CreateOnchainTransaction(ctx, store.CreateOnchainTransactionInput{TxHash: "0x1"})
	assert.ErrorIs(t, err, boom)

	s.FailOn("CreateOnchainTransaction", nil)
	_, created, err := s.CreateOnchainTransaction(ctx, store.CreateOnchainTransactionInput{TxHash: "0x1"})
	require.NoError(t, err)
	assert.True(t, created)
}

func TestApplyReputationChangeOncePerTransaction(t *testing.T) {
	s := New()
	ctx := context.Background()
	s.AddFarmer(schema.Farmer{ID: "farmer-1", Name: "Abebe"})

	input := store.ReputationChangeInput{
		FarmerID:            "farmer-1",
		NewScore:            60,
		ChangeReason:        domain.REPUTATION_REASON_TRANSACTION_COMPLETED,
		TransactionID:       "0xabc",
		IncrementTotalSales: true,
	}
	applied, err := s.ApplyReputationChange(ctx, input)
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = s.ApplyReputationChange(ctx, input)
	require.NoError(t, err)
	assert.False(t, applied)

	farmer, err := s.GetFarmerByID(ctx, "farmer-1")
	require.NoError(t, err)
	assert.Equal(t, 1, farmer.TotalSales)
	assert.Len(t, s.ReputationHistory("farmer-1"), 1)
}

func TestSoldProductsMatchWalletOrOwner(t *testing.T) {
	s := New()
	ctx := context.Background()

	_, _, err := s.CreateProduct(ctx, store.ListingInput{OnchainID: 3, Seller: "0xAbC"})
	require.NoError(t, err)
	_, _, err = s.CreateProduct(ctx, store.ListingInput{OnchainID: 4, Seller: "0xdef"})
	require.NoError(t, err)
	for _, id := range []int64{3, 4} {
		_, err = s.MarkProductSold(ctx, store.MarkSoldInput{OnchainID: id, EscrowReleaseTime: time.Now()})
		require.NoError(t, err)
	}

	products, err := s.GetSoldProductsForFarmer(ctx, "0xabc", "")
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, int64(3), *products[0].OnchainID)
}

func TestBlockCursor(t *testing.T) {
	s := New()
	ctx := context.Background()

	n, err := s.GetBlockCursor(ctx, "eip155:1")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), n)

	require.NoError(t, s.SetBlockCursor(ctx, "eip155:1", 42))
	n, err = s.GetBlockCursor(ctx, "eip155:1")
	require.NoError(t, err)
	assert.Equal(t, uint64(42), n)
}
