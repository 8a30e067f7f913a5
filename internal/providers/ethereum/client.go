package ethereum

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/agrolink/marketplace-watcher/internal/adapter"
	"github.com/agrolink/marketplace-watcher/internal/domain"
	"github.com/agrolink/marketplace-watcher/internal/logger"
	"github.com/agrolink/marketplace-watcher/internal/messaging"
)

const (
	// defaultMaxBlockRange is the widest eth_getLogs window requested in one call
	defaultMaxBlockRange uint64 = 5000

	// filterTimeout bounds one paginated range query
	filterTimeout = time.Minute
)

// MarketplaceClient is the blockchain RPC collaborator of the watcher
//
//go:generate mockgen -source=client.go -destination=../../mocks/marketplace_client.go -package=mocks -mock_names=MarketplaceClient=MockMarketplaceClient
type MarketplaceClient interface {
	// FilterEvents returns the logs of one event kind in the inclusive block range
	FilterEvents(ctx context.Context, kind domain.EventKind, fromBlock, toBlock uint64) ([]types.Log, error)

	// SubscribeEvents subscribes to logs of every marketplace event kind
	SubscribeEvents(ctx context.Context, ch chan<- types.Log) (ethereum.Subscription, error)

	// LatestBlock returns the latest block number
	LatestBlock(ctx context.Context) (uint64, error)

	// VerifyChain checks that the node serves the configured chain
	VerifyChain(ctx context.Context, chain domain.Chain) error

	// DecodeLog decodes a marketplace log into its kind and raw argument shapes
	DecodeLog(vLog types.Log) (domain.EventKind, *messaging.RawEvent, error)

	// Close closes the connection
	Close()
}

type marketplaceClient struct {
	client        adapter.EthClient
	contract      *MarketplaceContract
	maxBlockRange uint64
}

// NewClient creates a marketplace client over an Ethereum RPC connection
func NewClient(client adapter.EthClient, contract *MarketplaceContract, maxBlockRange uint64) MarketplaceClient {
	if maxBlockRange == 0 {
		maxBlockRange = defaultMaxBlockRange
	}
	return &marketplaceClient{
		client:        client,
		contract:      contract,
		maxBlockRange: maxBlockRange,
	}
}

func (c *marketplaceClient) FilterEvents(ctx context.Context, kind domain.EventKind, fromBlock, toBlock uint64) ([]types.Log, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownEventKind, kind)
	}
	if fromBlock > toBlock {
		return nil, nil
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, filterTimeout)
	defer cancel()

	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: []common.Address{c.contract.Address()},
		Topics:    [][]common.Hash{{c.contract.Topic(kind)}},
	}

	logs, err := c.getLogsWithRetry(timeoutCtx, query, c.maxBlockRange)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s logs for range %d-%d: %w", kind, fromBlock, toBlock, err)
	}

	return logs, nil
}

// getLogsWithRetry walks the query range in chunks of stepSize blocks,
// halving the step whenever the node rejects a chunk for returning too many results
func (c *marketplaceClient) getLogsWithRetry(ctx context.Context, query ethereum.FilterQuery, stepSize uint64) ([]types.Log, error) {
	currentStepSize := stepSize
	from := query.FromBlock.Uint64()
	to := query.ToBlock.Uint64()

	var allLogs []types.Log
	for from <= to {
		chunkTo := from + currentStepSize - 1
		if chunkTo > to || chunkTo < from {
			chunkTo = to
		}

		chunk := query
		chunk.FromBlock = new(big.Int).SetUint64(from)
		chunk.ToBlock = new(big.Int).SetUint64(chunkTo)

		logs, err := c.client.FilterLogs(ctx, chunk)
		if err == nil {
			allLogs = append(allLogs, logs...)
			if chunkTo == to {
				break
			}
			from = chunkTo + 1
			continue
		}

		if !isTooManyResultsError(err) || currentStepSize == 1 {
			return nil, err
		}

		currentStepSize = currentStepSize / 2
		logger.WarnCtx(ctx, "Too many results, reducing step size",
			zap.Uint64("oldStepSize", currentStepSize*2),
			zap.Uint64("newStepSize", currentStepSize),
			zap.Uint64("fromBlock", from),
			zap.Uint64("toBlock", chunkTo))
	}

	return allLogs, nil
}

// isTooManyResultsError checks if the error is related to too many results
func isTooManyResultsError(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "query returned more than 10000 results") ||
		strings.Contains(errStr, "query timeout exceeded") ||
		strings.Contains(errStr, "too many results") ||
		strings.Contains(errStr, "block range") ||
		strings.Contains(errStr, "exceeded maximum")
}

func (c *marketplaceClient) SubscribeEvents(ctx context.Context, ch chan<- types.Log) (ethereum.Subscription, error) {
	query := ethereum.FilterQuery{
		Addresses: []common.Address{c.contract.Address()},
		Topics:    [][]common.Hash{c.contract.Topics()},
	}
	return c.client.SubscribeFilterLogs(ctx, query, ch)
}

func (c *marketplaceClient) LatestBlock(ctx context.Context) (uint64, error) {
	number, err := c.client.BlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get latest block: %w", err)
	}
	return number, nil
}

func (c *marketplaceClient) VerifyChain(ctx context.Context, chain domain.Chain) error {
	id, err := c.client.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("failed to get chain id: %w", err)
	}

	expected := strings.TrimPrefix(string(chain), "eip155:")
	if id.String() != expected {
		return fmt.Errorf("node serves chain eip155:%s, configured %s", id.String(), chain)
	}
	return nil
}

func (c *marketplaceClient) DecodeLog(vLog types.Log) (domain.EventKind, *messaging.RawEvent, error) {
	return c.contract.DecodeLog(vLog)
}

func (c *marketplaceClient) Close() {
	if c.client == nil {
		return
	}
	c.client.Close()
}
