package ingestion

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jeovahfialho/trade-journal/internal/domain"
	"github.com/jeovahfialho/trade-journal/pkg/logger"
	"go.uber.org/zap"
)

var copyColumns = []string{
	"symbol",
	"direction",
	"entry_price",
	"exit_price",
	"size",
	"fees",
	"pnl",
	"strategy",
	"notes",
	"entry_time",
	"exit_time",
}

type BulkLoader struct {
	pool      *pgxpool.Pool
	batchSize int
}

func NewBulkLoader(pool *pgxpool.Pool, batchSize int) *BulkLoader {
	if batchSize <= 0 {
		batchSize = 1000
	}
	return &BulkLoader{
		pool:      pool,
		batchSize: batchSize,
	}
}

// LoadTrades COPYs trades into the trades table in batchSize chunks inside one
// transaction, so an import is stored completely or not at all.
func (l *BulkLoader) LoadTrades(ctx context.Context, trades []domain.NewTrade) (int64, error) {
	if len(trades) == 0 {
		return 0, nil
	}

	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var total int64
	for i, chunk := range splitIntoChunks(trades, l.batchSize) {
		n, err := tx.CopyFrom(ctx, pgx.Identifier{"trades"}, copyColumns, &tradeSource{trades: chunk})
		if err != nil {
			return 0, fmt.Errorf("copy chunk %d: %w", i, err)
		}
		total += n
		logger.Debug("chunk copied", zap.Int("chunk", i), zap.Int64("rows", n))
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return total, nil
}

// tradeSource adapts a slice to pgx.CopyFromSource.
type tradeSource struct {
	trades []domain.NewTrade
	index  int
}

func (ts *tradeSource) Next() bool {
	ts.index++
	return ts.index <= len(ts.trades)
}

func (ts *tradeSource) Values() ([]any, error) {
	if ts.index > len(ts.trades) {
		return nil, nil
	}

	t := ts.trades[ts.index-1]
	return []any{
		t.Symbol,
		string(t.Direction),
		t.EntryPrice,
		t.ExitPrice,
		t.Size,
		t.Fees,
		t.PnL(),
		nullable(t.Strategy),
		nullable(t.Notes),
		t.EntryTime,
		t.ExitTime,
	}, nil
}

func (ts *tradeSource) Err() error {
	return nil
}

func splitIntoChunks(trades []domain.NewTrade, size int) [][]domain.NewTrade {
	var chunks [][]domain.NewTrade
	for i := 0; i < len(trades); i += size {
		end := i + size
		if end > len(trades) {
			end = len(trades)
		}
		chunks = append(chunks, trades[i:end])
	}
	return chunks
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
