package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jeovahfialho/trade-journal/internal/domain"
	"github.com/jeovahfialho/trade-journal/internal/storage/cache"
	"github.com/jeovahfialho/trade-journal/pkg/logger"
	"github.com/jeovahfialho/trade-journal/pkg/metrics"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	summaryKey  = "journal:summary"
	equityKey   = "journal:equity"
	cachePrefix = "journal:*"
)

// Querier is the subset of *pgxpool.Pool the read services need.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// SummaryService serves the aggregate cards and the equity curve, read through a cache.
type SummaryService struct {
	db    Querier
	cache cache.Cache
	ttl   time.Duration
}

// NewSummaryService accepts a nil cache, in which case every call hits the database.
func NewSummaryService(db Querier, c cache.Cache, ttl time.Duration) *SummaryService {
	return &SummaryService{db: db, cache: c, ttl: ttl}
}

func (s *SummaryService) Summary(ctx context.Context) (*domain.Summary, error) {
	var cached domain.Summary
	if s.fromCache(ctx, summaryKey, &cached) {
		return &cached, nil
	}

	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.DatabaseQueryDuration.WithLabelValues("summary"))

	var (
		summary domain.Summary
		wins    int64
	)
	err := s.db.QueryRow(ctx, `
		SELECT
			COALESCE(SUM(pnl), 0),
			COUNT(*),
			COUNT(*) FILTER (WHERE pnl > 0),
			COALESCE(AVG(pnl) FILTER (WHERE pnl > 0), 0),
			COALESCE(AVG(pnl) FILTER (WHERE pnl < 0), 0)
		FROM trades
	`).Scan(&summary.TotalPnL, &summary.NumTrades, &wins, &summary.AvgWin, &summary.AvgLoss)
	if err != nil {
		metrics.DatabaseQueries.WithLabelValues("summary", "error").Inc()
		return nil, fmt.Errorf("query summary: %w", err)
	}
	metrics.DatabaseQueries.WithLabelValues("summary", "success").Inc()

	summary.WinRate = WinRate(wins, summary.NumTrades)
	summary.AvgWin = summary.AvgWin.Round(2)
	summary.AvgLoss = summary.AvgLoss.Round(2)

	s.toCache(ctx, summaryKey, summary)
	return &summary, nil
}

// WinRate is the share of winning trades as a percentage with two decimals.
func WinRate(wins, total int64) decimal.Decimal {
	if total == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(wins).Mul(decimal.NewFromInt(100)).Div(decimal.NewFromInt(total)).Round(2)
}

// Equity returns cumulative PnL over closed trades ordered by exit time, ties by id.
func (s *SummaryService) Equity(ctx context.Context) ([]domain.EquityPoint, error) {
	var cached []domain.EquityPoint
	if s.fromCache(ctx, equityKey, &cached) {
		return cached, nil
	}

	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.DatabaseQueryDuration.WithLabelValues("equity"))

	rows, err := s.db.Query(ctx, `
		SELECT exit_time, pnl, SUM(pnl) OVER (ORDER BY exit_time, id)
		FROM trades
		WHERE exit_time IS NOT NULL
		ORDER BY exit_time, id
	`)
	if err != nil {
		metrics.DatabaseQueries.WithLabelValues("equity", "error").Inc()
		return nil, fmt.Errorf("query equity: %w", err)
	}
	defer rows.Close()

	points := make([]domain.EquityPoint, 0)
	for rows.Next() {
		var p domain.EquityPoint
		if err := rows.Scan(&p.Time, &p.PnL, &p.Equity); err != nil {
			return nil, fmt.Errorf("scan equity point: %w", err)
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate equity: %w", err)
	}
	metrics.DatabaseQueries.WithLabelValues("equity", "success").Inc()

	s.toCache(ctx, equityKey, points)
	return points, nil
}

// Invalidate drops cached aggregates. It is the TradeService change hook.
func (s *SummaryService) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeletePattern(ctx, cachePrefix); err != nil {
		logger.Warn("cache invalidation failed", zap.Error(err))
	}
}

func (s *SummaryService) fromCache(ctx context.Context, key string, dest any) bool {
	if s.cache == nil {
		return false
	}
	err := s.cache.Get(ctx, key, dest)
	if err == nil {
		metrics.RecordCacheHit(s.cache.Backend())
		return true
	}
	metrics.RecordCacheMiss(s.cache.Backend())
	if !errors.Is(err, cache.ErrMiss) {
		logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
	}
	return false
}

func (s *SummaryService) toCache(ctx context.Context, key string, value any) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value, s.ttl); err != nil {
		logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
}
