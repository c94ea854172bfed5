package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jeovahfialho/trade-journal/internal/domain"
	"github.com/jeovahfialho/trade-journal/pkg/logger"
	"github.com/jeovahfialho/trade-journal/pkg/metrics"
	"go.uber.org/zap"
)

var ErrNotFound = errors.New("trade not found")

const tradeColumns = `id, symbol, direction, entry_price, exit_price, size, fees, pnl,
	strategy, notes, entry_time, exit_time, created_at`

// ChangeHook runs after every successful write, e.g. to invalidate cached aggregates.
type ChangeHook func(ctx context.Context)

type TradeService struct {
	pool     *pgxpool.Pool
	onChange ChangeHook
}

func NewTradeService(pool *pgxpool.Pool, onChange ChangeHook) *TradeService {
	if onChange == nil {
		onChange = func(context.Context) {}
	}
	return &TradeService{pool: pool, onChange: onChange}
}

func scanTrade(row pgx.Row) (domain.Trade, error) {
	var t domain.Trade
	var direction string
	err := row.Scan(
		&t.ID,
		&t.Symbol,
		&direction,
		&t.EntryPrice,
		&t.ExitPrice,
		&t.Size,
		&t.Fees,
		&t.PnL,
		&t.Strategy,
		&t.Notes,
		&t.EntryTime,
		&t.ExitTime,
		&t.CreatedAt,
	)
	t.Direction = domain.Direction(direction)
	return t, err
}

// List returns every trade in insertion order.
func (s *TradeService) List(ctx context.Context) ([]domain.Trade, error) {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.DatabaseQueryDuration.WithLabelValues("list_trades"))

	rows, err := s.pool.Query(ctx, `SELECT `+tradeColumns+` FROM trades ORDER BY id`)
	if err != nil {
		metrics.DatabaseQueries.WithLabelValues("list_trades", "error").Inc()
		return nil, fmt.Errorf("list trades: %w", err)
	}
	defer rows.Close()

	trades := make([]domain.Trade, 0)
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		trades = append(trades, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trades: %w", err)
	}

	metrics.DatabaseQueries.WithLabelValues("list_trades", "success").Inc()
	logger.Debug("trades listed", zap.Int("count", len(trades)))
	return trades, nil
}

func (s *TradeService) Get(ctx context.Context, id int64) (*domain.Trade, error) {
	t, err := scanTrade(s.pool.QueryRow(ctx, `SELECT `+tradeColumns+` FROM trades WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get trade %d: %w", id, err)
	}
	return &t, nil
}

// Create validates in, computes its PnL and stores it.
func (s *TradeService) Create(ctx context.Context, in domain.NewTrade) (*domain.Trade, error) {
	in = normalize(in)
	if err := in.Validate(); err != nil {
		return nil, err
	}

	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.DatabaseQueryDuration.WithLabelValues("create_trade"))

	row := s.pool.QueryRow(ctx, `
		INSERT INTO trades (symbol, direction, entry_price, exit_price, size, fees, pnl,
			strategy, notes, entry_time, exit_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING `+tradeColumns,
		in.Symbol, string(in.Direction), in.EntryPrice, in.ExitPrice, in.Size, in.Fees, in.PnL(),
		nullable(in.Strategy), nullable(in.Notes), in.EntryTime, in.ExitTime,
	)

	t, err := scanTrade(row)
	metrics.RecordMutation("create", err)
	if err != nil {
		metrics.DatabaseQueries.WithLabelValues("create_trade", "error").Inc()
		return nil, fmt.Errorf("insert trade: %w", err)
	}
	metrics.DatabaseQueries.WithLabelValues("create_trade", "success").Inc()

	logger.WithContext(ctx).Info("trade created", zap.Int64("id", t.ID), zap.String("symbol", t.Symbol))
	s.onChange(ctx)
	return &t, nil
}

// Update applies patch to the stored trade inside one transaction and recomputes PnL.
func (s *TradeService) Update(ctx context.Context, patch domain.TradePatch) (*domain.Trade, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	current, err := scanTrade(tx.QueryRow(ctx, `SELECT `+tradeColumns+` FROM trades WHERE id = $1 FOR UPDATE`, patch.ID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load trade %d: %w", patch.ID, err)
	}

	next := normalize(patch.Apply(current).AsNew())
	if err := next.Validate(); err != nil {
		return nil, err
	}

	updated, err := scanTrade(tx.QueryRow(ctx, `
		UPDATE trades SET symbol = $2, direction = $3, entry_price = $4, exit_price = $5,
			size = $6, fees = $7, pnl = $8, strategy = $9, notes = $10, entry_time = $11, exit_time = $12
		WHERE id = $1
		RETURNING `+tradeColumns,
		patch.ID, next.Symbol, string(next.Direction), next.EntryPrice, next.ExitPrice, next.Size,
		next.Fees, next.PnL(), nullable(next.Strategy), nullable(next.Notes), next.EntryTime, next.ExitTime,
	))
	if err != nil {
		metrics.RecordMutation("update", err)
		return nil, fmt.Errorf("update trade %d: %w", patch.ID, err)
	}
	if err := tx.Commit(ctx); err != nil {
		metrics.RecordMutation("update", err)
		return nil, fmt.Errorf("commit: %w", err)
	}
	metrics.RecordMutation("update", nil)

	logger.WithContext(ctx).Info("trade updated", zap.Int64("id", patch.ID))
	s.onChange(ctx)
	return &updated, nil
}

func (s *TradeService) Delete(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM trades WHERE id = $1`, id)
	if err != nil {
		metrics.RecordMutation("delete", err)
		return fmt.Errorf("delete trade %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	metrics.RecordMutation("delete", nil)

	logger.WithContext(ctx).Info("trade deleted", zap.Int64("id", id))
	s.onChange(ctx)
	return nil
}

func normalize(in domain.NewTrade) domain.NewTrade {
	in.Symbol = strings.ToUpper(strings.TrimSpace(in.Symbol))
	if in.Direction == "" {
		in.Direction = domain.DirectionBuy
	}
	in.Strategy = strings.TrimSpace(in.Strategy)
	return in
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
