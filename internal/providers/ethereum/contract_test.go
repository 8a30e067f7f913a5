package ethereum

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrolink/marketplace-watcher/internal/domain"
)

const testContractAddress = "0x5FbDB2315678afecb367f032d93F642f64180aa3"

var (
	testSeller = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	testBuyer  = common.HexToAddress("0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC")
)

func newTestContract(t *testing.T) *MarketplaceContract {
	t.Helper()
	c, err := NewMarketplaceContract(testContractAddress)
	require.NoError(t, err)
	return c
}

func addressTopic(a common.Address) common.Hash {
	return common.BytesToHash(a.Bytes())
}

func buildLog(t *testing.T, c *MarketplaceContract, kind domain.EventKind, indexed []common.Hash, data ...interface{}) types.Log {
	t.Helper()

	event := c.events[kind]
	packed, err := event.Inputs.NonIndexed().Pack(data...)
	require.NoError(t, err)

	return types.Log{
		Address:     c.Address(),
		Topics:      append([]common.Hash{event.ID}, indexed...),
		Data:        packed,
		BlockNumber: 120,
		TxHash:      common.HexToHash("0xaa01"),
		TxIndex:     2,
		BlockHash:   common.HexToHash("0xbb01"),
		Index:       4,
	}
}

func TestNewMarketplaceContract(t *testing.T) {
	c := newTestContract(t)

	assert.Equal(t, common.HexToAddress(testContractAddress), c.Address())
	assert.Len(t, c.Topics(), 6)

	seen := map[common.Hash]bool{}
	for _, kind := range c.Kinds() {
		topic := c.Topic(kind)
		assert.False(t, seen[topic], "topics must be distinct")
		seen[topic] = true
	}

	assert.Equal(t, crypto.Keccak256Hash([]byte("ProductListed(uint256,address,uint256,string)")), c.Topic(domain.EventKindListed))
	assert.Equal(t, crypto.Keccak256Hash([]byte("DisputeResolved(uint256,bool,address)")), c.Topic(domain.EventKindDisputeResolved))

	_, err := NewMarketplaceContract("not-an-address")
	assert.Error(t, err)
}

func TestMarketplaceContract_DecodeLog_ProductListed(t *testing.T) {
	c := newTestContract(t)

	price, _ := new(big.Int).SetString("1500000000000000000", 10)
	vLog := buildLog(t, c, domain.EventKindListed,
		[]common.Hash{common.BigToHash(big.NewInt(7)), addressTopic(testSeller)},
		price, "ipfs://Qm123")

	kind, raw, err := c.DecodeLog(vLog)
	require.NoError(t, err)
	assert.Equal(t, domain.EventKindListed, kind)

	require.Len(t, raw.Args, 4)
	assert.Equal(t, 0, big.NewInt(7).Cmp(raw.Args[0].(*big.Int)))
	assert.Equal(t, testSeller, raw.Args[1].(common.Address))
	assert.Equal(t, 0, price.Cmp(raw.Args[2].(*big.Int)))
	assert.Equal(t, "ipfs://Qm123", raw.Args[3])

	assert.Equal(t, testSeller, raw.Named["seller"])
	assert.Equal(t, "ipfs://Qm123", raw.Named["metadataURI"])

	assert.Equal(t, vLog.TxHash.Hex(), raw.TransactionHash)
	require.NotNil(t, raw.LogIndex)
	assert.Equal(t, uint64(4), *raw.LogIndex)
	require.NotNil(t, raw.BlockNumber)
	assert.Equal(t, uint64(120), *raw.BlockNumber)
	assert.False(t, raw.Removed)
}

func TestMarketplaceContract_DecodeLog_ProductBought(t *testing.T) {
	c := newTestContract(t)

	vLog := buildLog(t, c, domain.EventKindBought,
		[]common.Hash{common.BigToHash(big.NewInt(11)), addressTopic(testBuyer), addressTopic(testSeller)},
		big.NewInt(1000))

	kind, raw, err := c.DecodeLog(vLog)
	require.NoError(t, err)
	assert.Equal(t, domain.EventKindBought, kind)
	assert.Equal(t, testBuyer, raw.Named["buyer"])
	assert.Equal(t, testSeller, raw.Named["seller"])
	assert.Equal(t, 0, big.NewInt(1000).Cmp(raw.Named["price"].(*big.Int)))
}

func TestMarketplaceContract_DecodeLog_IndexedOnlyEvents(t *testing.T) {
	c := newTestContract(t)

	vLog := buildLog(t, c, domain.EventKindDeliveryConfirmed,
		[]common.Hash{common.BigToHash(big.NewInt(3)), addressTopic(testBuyer)})

	kind, raw, err := c.DecodeLog(vLog)
	require.NoError(t, err)
	assert.Equal(t, domain.EventKindDeliveryConfirmed, kind)
	assert.Equal(t, testBuyer, raw.Named["buyer"])
	assert.Len(t, raw.Args, 2)
}

func TestMarketplaceContract_DecodeLog_DisputeResolved(t *testing.T) {
	c := newTestContract(t)

	resolver := common.HexToAddress("0x90F79bf6EB2c4f870365E785982E1f101E93b906")
	vLog := buildLog(t, c, domain.EventKindDisputeResolved,
		[]common.Hash{common.BigToHash(big.NewInt(9)), addressTopic(resolver)},
		true)

	kind, raw, err := c.DecodeLog(vLog)
	require.NoError(t, err)
	assert.Equal(t, domain.EventKindDisputeResolved, kind)
	assert.Equal(t, true, raw.Named["favorBuyer"])
	assert.Equal(t, resolver, raw.Named["resolver"])
	// positional order follows the event signature
	assert.Equal(t, true, raw.Args[1])
	assert.Equal(t, resolver, raw.Args[2])
}

func TestMarketplaceContract_DecodeLog_Errors(t *testing.T) {
	c := newTestContract(t)

	_, _, err := c.DecodeLog(types.Log{Address: c.Address()})
	assert.Error(t, err, "no topics")

	_, _, err = c.DecodeLog(types.Log{Address: c.Address(), Topics: []common.Hash{common.HexToHash("0x01")}})
	assert.ErrorIs(t, err, domain.ErrUnknownEventKind)

	vLog := buildLog(t, c, domain.EventKindDisputeRaised,
		[]common.Hash{common.BigToHash(big.NewInt(1)), addressTopic(testBuyer)})
	vLog.Address = common.HexToAddress("0x0000000000000000000000000000000000000001")
	_, _, err = c.DecodeLog(vLog)
	assert.Error(t, err, "foreign contract")

	vLog = buildLog(t, c, domain.EventKindDisputeRaised,
		[]common.Hash{common.BigToHash(big.NewInt(1))})
	_, _, err = c.DecodeLog(vLog)
	assert.Error(t, err, "missing indexed topic")
}

func TestSortLogs(t *testing.T) {
	logs := []types.Log{
		{BlockNumber: 12, TxIndex: 0, Index: 5},
		{BlockNumber: 10, TxIndex: 3, Index: 9},
		{BlockNumber: 10, TxIndex: 1, Index: 2},
		{BlockNumber: 10, TxIndex: 1, Index: 1},
	}
	sortLogs(logs)

	assert.Equal(t, uint(1), logs[0].Index)
	assert.Equal(t, uint(2), logs[1].Index)
	assert.Equal(t, uint(9), logs[2].Index)
	assert.Equal(t, uint64(12), logs[3].BlockNumber)
}
