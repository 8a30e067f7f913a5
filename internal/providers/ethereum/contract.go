package ethereum

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/agrolink/marketplace-watcher/internal/domain"
	"github.com/agrolink/marketplace-watcher/internal/messaging"
)

// MarketplaceABI describes the events emitted by the marketplace escrow contract
const MarketplaceABI = `[
	{"type":"event","name":"ProductListed","anonymous":false,"inputs":[
		{"name":"productId","type":"uint256","indexed":true},
		{"name":"seller","type":"address","indexed":true},
		{"name":"price","type":"uint256","indexed":false},
		{"name":"metadataURI","type":"string","indexed":false}]},
	{"type":"event","name":"ProductBought","anonymous":false,"inputs":[
		{"name":"productId","type":"uint256","indexed":true},
		{"name":"buyer","type":"address","indexed":true},
		{"name":"seller","type":"address","indexed":true},
		{"name":"price","type":"uint256","indexed":false}]},
	{"type":"event","name":"DeliveryConfirmed","anonymous":false,"inputs":[
		{"name":"productId","type":"uint256","indexed":true},
		{"name":"buyer","type":"address","indexed":true}]},
	{"type":"event","name":"EscrowReleased","anonymous":false,"inputs":[
		{"name":"productId","type":"uint256","indexed":true},
		{"name":"seller","type":"address","indexed":true},
		{"name":"amount","type":"uint256","indexed":false}]},
	{"type":"event","name":"DisputeRaised","anonymous":false,"inputs":[
		{"name":"productId","type":"uint256","indexed":true},
		{"name":"raisedBy","type":"address","indexed":true}]},
	{"type":"event","name":"DisputeResolved","anonymous":false,"inputs":[
		{"name":"productId","type":"uint256","indexed":true},
		{"name":"favorBuyer","type":"bool","indexed":false},
		{"name":"resolver","type":"address","indexed":true}]}
]`

// MarketplaceContract binds the marketplace ABI to a deployed address
type MarketplaceContract struct {
	address common.Address
	abi     abi.ABI
	kinds   map[common.Hash]domain.EventKind
	events  map[domain.EventKind]abi.Event
}

// NewMarketplaceContract parses the marketplace ABI for the contract at address
func NewMarketplaceContract(address string) (*MarketplaceContract, error) {
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("invalid marketplace contract address: %q", address)
	}

	parsed, err := abi.JSON(strings.NewReader(MarketplaceABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse marketplace abi: %w", err)
	}

	c := &MarketplaceContract{
		address: common.HexToAddress(address),
		abi:     parsed,
		kinds:   make(map[common.Hash]domain.EventKind),
		events:  make(map[domain.EventKind]abi.Event),
	}
	for _, kind := range domain.AllEventKinds() {
		event, ok := parsed.Events[kind.ContractEventName()]
		if !ok {
			return nil, fmt.Errorf("marketplace abi has no %s event", kind.ContractEventName())
		}
		c.kinds[event.ID] = kind
		c.events[kind] = event
	}

	return c, nil
}

// Address returns the contract address
func (c *MarketplaceContract) Address() common.Address {
	return c.address
}

// Kinds returns the event kinds the contract emits
func (c *MarketplaceContract) Kinds() []domain.EventKind {
	return domain.AllEventKinds()
}

// Topic returns the topic0 signature hash of the event kind
func (c *MarketplaceContract) Topic(kind domain.EventKind) common.Hash {
	return c.events[kind].ID
}

// Topics returns the topic0 hashes of every marketplace event
func (c *MarketplaceContract) Topics() []common.Hash {
	topics := make([]common.Hash, 0, len(c.events))
	for _, kind := range domain.AllEventKinds() {
		topics = append(topics, c.events[kind].ID)
	}
	return topics
}

// DecodeLog decodes a contract log into its event kind and raw argument shapes
func (c *MarketplaceContract) DecodeLog(vLog types.Log) (domain.EventKind, *messaging.RawEvent, error) {
	if len(vLog.Topics) == 0 {
		return "", nil, fmt.Errorf("log has no topics")
	}
	if vLog.Address != (common.Address{}) && vLog.Address != c.address {
		return "", nil, fmt.Errorf("log emitted by %s, not the marketplace contract", vLog.Address.Hex())
	}

	kind, ok := c.kinds[vLog.Topics[0]]
	if !ok {
		return "", nil, fmt.Errorf("%w: topic %s", domain.ErrUnknownEventKind, vLog.Topics[0].Hex())
	}
	event := c.events[kind]

	named := make(map[string]interface{}, len(event.Inputs))

	var indexed abi.Arguments
	for _, arg := range event.Inputs {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	if len(vLog.Topics)-1 != len(indexed) {
		return "", nil, fmt.Errorf("%s log has %d indexed topics, expected %d", event.Name, len(vLog.Topics)-1, len(indexed))
	}
	if err := abi.ParseTopicsIntoMap(named, indexed, vLog.Topics[1:]); err != nil {
		return "", nil, fmt.Errorf("failed to parse %s topics: %w", event.Name, err)
	}
	if err := event.Inputs.NonIndexed().UnpackIntoMap(named, vLog.Data); err != nil {
		return "", nil, fmt.Errorf("failed to unpack %s data: %w", event.Name, err)
	}

	args := make([]interface{}, 0, len(event.Inputs))
	for _, arg := range event.Inputs {
		args = append(args, named[arg.Name])
	}

	logIndex := uint64(vLog.Index)
	blockNumber := vLog.BlockNumber
	raw := &messaging.RawEvent{
		Args:            args,
		Named:           named,
		TransactionHash: vLog.TxHash.Hex(),
		LogIndex:        &logIndex,
		BlockNumber:     &blockNumber,
		BlockHash:       vLog.BlockHash.Hex(),
		TxIndex:         vLog.TxIndex,
		Removed:         vLog.Removed,
	}
	if vLog.TxHash == (common.Hash{}) {
		raw.TransactionHash = ""
	}

	return kind, raw, nil
}
