package service

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/jeovahfialho/trade-journal/internal/domain"
	"github.com/jeovahfialho/trade-journal/internal/ingestion"
	"github.com/jeovahfialho/trade-journal/pkg/logger"
	"github.com/jeovahfialho/trade-journal/pkg/metrics"
	"go.uber.org/zap"
)

// TradeLoader stores parsed trades in bulk. *ingestion.BulkLoader satisfies it.
type TradeLoader interface {
	LoadTrades(ctx context.Context, trades []domain.NewTrade) (int64, error)
}

type ImportResult struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped,omitempty"`
}

type IngestionService struct {
	parser   *ingestion.Parser
	loader   TradeLoader
	onChange ChangeHook
}

func NewIngestionService(parser *ingestion.Parser, loader TradeLoader, onChange ChangeHook) *IngestionService {
	if onChange == nil {
		onChange = func(context.Context) {}
	}
	return &IngestionService{
		parser:   parser,
		loader:   loader,
		onChange: onChange,
	}
}

// Import parses a CSV upload and stores every valid row. Invalid rows are skipped and counted.
func (s *IngestionService) Import(ctx context.Context, r io.Reader) (*ImportResult, error) {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.ImportDuration)

	parsed, err := s.parser.ParseFile(ctx, r)
	if err != nil {
		return nil, err
	}
	for _, rowErr := range parsed.Errors {
		logger.WithContext(ctx).Debug("csv row skipped", zap.Int("line", rowErr.Line), zap.Error(rowErr.Err))
	}

	stored, err := s.loader.LoadTrades(ctx, parsed.Trades)
	if err != nil {
		return nil, fmt.Errorf("load trades: %w", err)
	}

	res := &ImportResult{Imported: int(stored), Skipped: len(parsed.Errors)}
	metrics.RecordImport(res.Imported, res.Skipped)
	logger.WithContext(ctx).Info("csv imported",
		zap.Int("imported", res.Imported),
		zap.Int("skipped", res.Skipped),
		zap.Duration("duration", timer.Elapsed()))

	if stored > 0 {
		s.onChange(ctx)
	}
	return res, nil
}

// ImportFile imports a CSV from disk. It lets the service back an ingestion.WorkerPool.
func (s *IngestionService) ImportFile(ctx context.Context, path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	res, err := s.Import(ctx, f)
	if err != nil {
		return 0, 0, fmt.Errorf("import %s: %w", path, err)
	}
	return res.Imported, res.Skipped, nil
}
