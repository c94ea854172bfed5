package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeovahfialho/trade-journal/internal/api"
	"github.com/jeovahfialho/trade-journal/internal/config"
	"github.com/jeovahfialho/trade-journal/internal/domain"
	"github.com/jeovahfialho/trade-journal/internal/ingestion"
	"github.com/jeovahfialho/trade-journal/internal/service"
)

// journalStore is an in-memory backend for the real API routes.
type journalStore struct {
	mu     sync.Mutex
	trades []domain.Trade
	nextID int64
}

func (s *journalStore) List(ctx context.Context) ([]domain.Trade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Trade(nil), s.trades...), nil
}

func (s *journalStore) Create(ctx context.Context, in domain.NewTrade) (*domain.Trade, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	t := domain.Trade{
		ID: s.nextID, Symbol: strings.ToUpper(in.Symbol), Direction: in.Direction,
		EntryPrice: in.EntryPrice, ExitPrice: in.ExitPrice, Size: in.Size, Fees: in.Fees,
		PnL: in.PnL(), ExitTime: in.ExitTime,
	}
	if in.Strategy != "" {
		t.Strategy = &in.Strategy
	}
	s.trades = append(s.trades, t)
	return &t, nil
}

func (s *journalStore) Update(ctx context.Context, patch domain.TradePatch) (*domain.Trade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.trades {
		if s.trades[i].ID == patch.ID {
			s.trades[i] = patch.Apply(s.trades[i])
			s.trades[i].PnL = s.trades[i].AsNew().PnL()
			t := s.trades[i]
			return &t, nil
		}
	}
	return nil, service.ErrNotFound
}

func (s *journalStore) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.trades {
		if s.trades[i].ID == id {
			s.trades = append(s.trades[:i], s.trades[i+1:]...)
			return nil
		}
	}
	return service.ErrNotFound
}

func (s *journalStore) LoadTrades(ctx context.Context, trades []domain.NewTrade) (int64, error) {
	for _, t := range trades {
		if _, err := s.Create(ctx, t); err != nil {
			return 0, err
		}
	}
	return int64(len(trades)), nil
}

func (s *journalStore) Summary(ctx context.Context) (*domain.Summary, error) {
	trades, _ := s.List(ctx)
	sum := &domain.Summary{NumTrades: int64(len(trades))}
	var wins int64
	for _, t := range trades {
		sum.TotalPnL = sum.TotalPnL.Add(t.PnL)
		if t.PnL.IsPositive() {
			wins++
		}
	}
	sum.WinRate = service.WinRate(wins, sum.NumTrades)
	return sum, nil
}

func (s *journalStore) Equity(ctx context.Context) ([]domain.EquityPoint, error) {
	trades, _ := s.List(ctx)
	return domain.EquityCurve(trades), nil
}

func seed(t *testing.T, store *journalStore) {
	t.Helper()
	exit := time.Date(2024, 6, 3, 15, 0, 0, 0, time.UTC)
	for _, in := range []domain.NewTrade{
		{Symbol: "EURUSD", Direction: domain.DirectionBuy, EntryPrice: decimal.RequireFromString("1.10"),
			ExitPrice: decimal.RequireFromString("1.12"), Size: decimal.NewFromInt(1000), Strategy: "breakout", ExitTime: &exit},
		{Symbol: "GBPUSD", Direction: domain.DirectionSell, EntryPrice: decimal.RequireFromString("1.30"),
			ExitPrice: decimal.RequireFromString("1.31"), Size: decimal.NewFromInt(1000), Strategy: "fade", ExitTime: &exit},
		{Symbol: "XAUUSD", Direction: domain.DirectionBuy, EntryPrice: decimal.NewFromInt(2000),
			ExitPrice: decimal.NewFromInt(2010), Size: decimal.NewFromInt(1), Strategy: "breakout"},
	} {
		_, err := store.Create(context.Background(), in)
		require.NoError(t, err)
	}
}

func newTestCLI(t *testing.T, store *journalStore, input string) (*cli, *bytes.Buffer) {
	t.Helper()
	app := fiber.New()
	imports := service.NewIngestionService(ingestion.NewParser(10, 2), store, nil)
	api.SetupRoutes(app, api.NewHandler(store, store, imports, nil))

	srv := httptest.NewServer(adaptor.FiberApp(app))
	t.Cleanup(srv.Close)

	var out bytes.Buffer
	return &cli{
		cfg: &config.Config{APIURL: srv.URL, DefaultPageSize: 10, Workers: 2},
		in:  strings.NewReader(input),
		out: &out,
		now: func() time.Time { return time.Date(2024, 6, 5, 12, 0, 0, 0, time.UTC) },
	}, &out
}

func run(t *testing.T, a *cli, args ...string) error {
	t.Helper()
	cmd := newRootCmd(a)
	cmd.SetArgs(args)
	return cmd.ExecuteContext(context.Background())
}

func TestTradesCommand_FilterAndSort(t *testing.T) {
	store := &journalStore{}
	seed(t, store)
	a, out := newTestCLI(t, store, "")

	require.NoError(t, run(t, a, "trades", "--strategy", "breakout", "--sort", "pnl", "--dir", "asc"))
	text := out.String()
	assert.NotContains(t, text, "GBPUSD")
	assert.Less(t, strings.Index(text, "XAUUSD"), strings.Index(text, "EURUSD"))
	assert.Contains(t, text, "2 trades")
	assert.Contains(t, text, "sorted by pnl asc")
}

func TestTradesCommand_ToggleClearsSort(t *testing.T) {
	store := &journalStore{}
	seed(t, store)
	a, out := newTestCLI(t, store, "")

	require.NoError(t, run(t, a, "trades", "--sort", "none", "--toggle", "symbol,symbol,symbol"))
	assert.Contains(t, out.String(), "sorted by fetch order")
}

func TestTradesCommand_UnknownSort(t *testing.T) {
	a, _ := newTestCLI(t, &journalStore{}, "")
	err := run(t, a, "trades", "--sort", "colour")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown sort column")
}

func TestExportCommand(t *testing.T) {
	store := &journalStore{}
	seed(t, store)
	a, out := newTestCLI(t, store, "")

	require.NoError(t, run(t, a, "export", "-q", "usd", "--strategy", "fade", "-o", "-"))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "id,symbol"))
	assert.Contains(t, lines[1], `"GBPUSD"`)

	dir := t.TempDir()
	path := filepath.Join(dir, "all.csv")
	out.Reset()
	require.NoError(t, run(t, a, "export", "--output", path))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 4, len(strings.Split(string(raw), "\n")))
	assert.Contains(t, out.String(), "Exported 3 trades")
}

func TestAddCommand(t *testing.T) {
	store := &journalStore{}
	a, out := newTestCLI(t, store, "")

	require.NoError(t, run(t, a, "add", "--symbol", "eurusd", "--entry", "1.10", "--exit", "1.12", "--qty", "1000"))
	assert.Contains(t, out.String(), "Trade added successfully!")
	assert.Contains(t, out.String(), "pnl 20")
	require.Len(t, store.trades, 1)
	assert.Equal(t, domain.DirectionBuy, store.trades[0].Direction)
}

func TestAddCommand_Validation(t *testing.T) {
	store := &journalStore{}
	a, out := newTestCLI(t, store, "")

	err := run(t, a, "add", "--symbol", "EURUSD", "--entry", "abc")
	require.Error(t, err)
	assert.Contains(t, out.String(), "missing required fields")
	assert.Empty(t, store.trades)
}

func TestEditCommand_KeepsUnsetFields(t *testing.T) {
	store := &journalStore{}
	seed(t, store)
	a, out := newTestCLI(t, store, "")

	require.NoError(t, run(t, a, "edit", "1", "--direction", "sell"))
	assert.Contains(t, out.String(), "Trade 1 saved.")

	updated := store.trades[0]
	assert.Equal(t, domain.DirectionSell, updated.Direction)
	assert.Equal(t, "breakout", updated.StrategyValue())
	assert.True(t, updated.PnL.Equal(decimal.NewFromInt(-20)))

	err := run(t, a, "edit", "99", "--notes", "x")
	assert.Error(t, err)
}

func TestDeleteCommand_Prompt(t *testing.T) {
	store := &journalStore{}
	seed(t, store)

	a, out := newTestCLI(t, store, "n\n")
	require.NoError(t, run(t, a, "delete", "2"))
	assert.Contains(t, out.String(), "Delete trade 2? [y/N]")
	assert.Contains(t, out.String(), "Cancelled.")
	assert.Len(t, store.trades, 3)

	a, out = newTestCLI(t, store, "yes\n")
	require.NoError(t, run(t, a, "delete", "2"))
	assert.Contains(t, out.String(), "Trade 2 deleted.")
	assert.Len(t, store.trades, 2)
}

func TestDeleteCommand_YesAndMissing(t *testing.T) {
	store := &journalStore{}
	seed(t, store)
	a, out := newTestCLI(t, store, "")

	require.NoError(t, run(t, a, "delete", "1", "--yes"))
	assert.Len(t, store.trades, 2)

	out.Reset()
	err := run(t, a, "delete", "1", "-y")
	require.Error(t, err)
	assert.Contains(t, out.String(), "trade not found")
}

func TestImportCommand(t *testing.T) {
	store := &journalStore{}
	a, out := newTestCLI(t, store, "")

	dir := t.TempDir()
	good := filepath.Join(dir, "a.csv")
	bad := filepath.Join(dir, "b.csv")
	require.NoError(t, os.WriteFile(good, []byte("symbol,side,entry_price,exit_price,qty\nEURUSD,buy,1.1,1.2,10\nX,buy,,1,1\n"), 0o600))
	require.NoError(t, os.WriteFile(bad, []byte("ticker,price\nA,1\n"), 0o600))

	err := run(t, a, "import", filepath.Join(dir, "*.csv"))
	require.Error(t, err)
	text := out.String()
	assert.Contains(t, text, "a.csv: 1 imported, 1 skipped")
	assert.Contains(t, text, "✗ b.csv")
	assert.Len(t, store.trades, 1)

	err = run(t, a, "import", filepath.Join(dir, "none-*.csv"))
	assert.ErrorContains(t, err, "no file matches")
}

func TestSummaryCommand(t *testing.T) {
	store := &journalStore{}
	seed(t, store)
	a, out := newTestCLI(t, store, "")

	require.NoError(t, run(t, a, "summary"))
	text := out.String()
	assert.Contains(t, text, "Total PnL")
	assert.Contains(t, text, "20.00")
	assert.Contains(t, text, "66.67%")
	assert.Contains(t, text, "over 2 closed trades")
}

func TestHealthCommand(t *testing.T) {
	a, out := newTestCLI(t, &journalStore{}, "")
	require.NoError(t, run(t, a, "health"))
	assert.Contains(t, out.String(), "OK")

	a.cfg.APIURL = "http://127.0.0.1:1"
	out.Reset()
	assert.Error(t, run(t, a, "health"))
	assert.Contains(t, out.String(), "FAIL")
}

func TestTimeoutFlag_DefaultsToNone(t *testing.T) {
	a := &cli{cfg: &config.Config{}}
	cmd := newRootCmd(a)
	require.NoError(t, cmd.ParseFlags(nil))
	assert.Equal(t, time.Duration(0), a.timeout)

	ctx, cancel := a.context(context.Background())
	defer cancel()
	_, hasDeadline := ctx.Deadline()
	assert.False(t, hasDeadline)

	require.NoError(t, cmd.PersistentFlags().Set("timeout", "2s"))
	ctx2, cancel2 := a.context(context.Background())
	defer cancel2()
	_, hasDeadline = ctx2.Deadline()
	assert.True(t, hasDeadline)
}
