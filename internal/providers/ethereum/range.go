package ethereum

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/alitto/pond/v2"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/agrolink/marketplace-watcher/internal/block"
	"github.com/agrolink/marketplace-watcher/internal/domain"
	"github.com/agrolink/marketplace-watcher/internal/logger"
	"github.com/agrolink/marketplace-watcher/internal/messaging"
)

// rangeReader queries every event kind of a block range in parallel
type rangeReader struct {
	client MarketplaceClient
	pool   pond.ResultPool[[]types.Log]
}

func newRangeReader(client MarketplaceClient, concurrency int) *rangeReader {
	if concurrency <= 0 {
		concurrency = len(domain.AllEventKinds())
	}
	return &rangeReader{
		client: client,
		pool:   pond.NewResultPool[[]types.Log](concurrency),
	}
}

// readRange returns the logs of all kinds in [from, to], in chain order.
// It fails as a whole if any single kind fails so the caller never skips a range for one kind.
func (r *rangeReader) readRange(ctx context.Context, from, to uint64) ([]types.Log, error) {
	kinds := domain.AllEventKinds()

	group := r.pool.NewGroup()
	for _, kind := range kinds {
		group.SubmitErr(func() ([]types.Log, error) {
			return r.client.FilterEvents(ctx, kind, from, to)
		})
	}

	results, err := group.Wait()
	if err != nil {
		return nil, fmt.Errorf("failed to query blocks %d-%d: %w", from, to, err)
	}

	var merged []types.Log
	for _, logs := range results {
		merged = append(merged, logs...)
	}
	sortLogs(merged)

	return merged, nil
}

func (r *rangeReader) stop() {
	r.pool.StopAndWait()
}

// sortLogs orders logs by block, transaction and log index
func sortLogs(logs []types.Log) {
	sort.SliceStable(logs, func(i, j int) bool {
		if logs[i].BlockNumber != logs[j].BlockNumber {
			return logs[i].BlockNumber < logs[j].BlockNumber
		}
		if logs[i].TxIndex != logs[j].TxIndex {
			return logs[i].TxIndex < logs[j].TxIndex
		}
		return logs[i].Index < logs[j].Index
	})
}

// deliverLog decodes one log and hands it to the handler.
// Malformed and reorg-removed logs are logged and skipped.
func deliverLog(ctx context.Context, client MarketplaceClient, vLog types.Log, handler messaging.EventHandler) {
	if vLog.Removed {
		logger.WarnCtx(ctx, "Skipping log removed by chain reorganization",
			zap.String("tx_hash", vLog.TxHash.Hex()),
			zap.Uint("log_index", vLog.Index),
			zap.Uint64("block_number", vLog.BlockNumber))
		return
	}

	kind, raw, err := client.DecodeLog(vLog)
	if err != nil {
		logger.ErrorCtx(ctx, err,
			zap.String("message", "Error decoding marketplace log"),
			zap.String("tx_hash", vLog.TxHash.Hex()),
			zap.Uint64("block_number", vLog.BlockNumber))
		return
	}

	if err := handler(ctx, kind, raw); err != nil && !errors.Is(err, context.Canceled) {
		logger.ErrorCtx(ctx, err,
			zap.String("message", "Error handling marketplace event"),
			zap.String("kind", string(kind)),
			zap.String("tx_hash", raw.TransactionHash))
	}
}

func deliverLogs(ctx context.Context, client MarketplaceClient, logs []types.Log, handler messaging.EventHandler) error {
	for _, vLog := range logs {
		if err := ctx.Err(); err != nil {
			return err
		}
		deliverLog(ctx, client, vLog, handler)
	}
	return nil
}

// checkpoint persists the last fully delivered block. Failures only cost a larger replay after a restart.
func checkpoint(ctx context.Context, store block.CursorStore, chain domain.Chain, number uint64) {
	if store == nil {
		return
	}
	if err := store.SetBlockCursor(ctx, string(chain), number); err != nil && !errors.Is(err, context.Canceled) {
		logger.WarnCtx(ctx, "Failed to checkpoint block cursor", zap.Error(err), zap.Uint64("block_number", number))
	}
}
