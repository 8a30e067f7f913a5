package logger

import (
	"go.uber.org/zap"

	"github.com/agrolink/marketplace-watcher/internal/domain"
)

// EventFields returns the structured fields identifying a chain event in log lines
func EventFields(ev *domain.ChainEvent) []zap.Field {
	if ev == nil {
		return nil
	}

	fields := []zap.Field{
		zap.String("kind", string(ev.Kind)),
		zap.Int64("product_chain_id", ev.ProductChainID),
		zap.String("tx_hash", ev.TxHash),
	}
	if ev.LogIndex != nil {
		fields = append(fields, zap.Uint64("log_index", *ev.LogIndex))
	}
	if ev.BlockNumber != nil {
		fields = append(fields, zap.Uint64("block_number", *ev.BlockNumber))
	}

	return fields
}
