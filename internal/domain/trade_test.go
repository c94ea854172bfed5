package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTradeUnmarshal_SideAlias(t *testing.T) {
	var tr Trade
	err := json.Unmarshal([]byte(`{"id":7,"symbol":"EURUSD","side":"buy","entry_price":1.1,"exit_price":1.12,"size":1000,"fees":null,"pnl":20}`), &tr)
	require.NoError(t, err)

	assert.Equal(t, int64(7), tr.ID)
	assert.Equal(t, DirectionBuy, tr.Direction)
	assert.True(t, tr.EntryPrice.Equal(decimal.RequireFromString("1.1")))
	assert.True(t, tr.Fees.IsZero())
	assert.Nil(t, tr.Strategy)
}

func TestTradeUnmarshal_DirectionWinsOverSide(t *testing.T) {
	var tr Trade
	err := json.Unmarshal([]byte(`{"id":1,"direction":"SELL","side":"buy"}`), &tr)
	require.NoError(t, err)
	assert.Equal(t, DirectionSell, tr.Direction)
}

func TestTradeMarshal_NumbersUnquoted(t *testing.T) {
	tr := Trade{
		ID:         1,
		Symbol:     "EURUSD",
		Direction:  DirectionBuy,
		EntryPrice: decimal.RequireFromString("1.10"),
		ExitPrice:  decimal.RequireFromString("1.12"),
		Size:       decimal.NewFromInt(1000),
	}

	data, err := json.Marshal(tr)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"entry_price":1.1`)
	assert.Contains(t, string(data), `"size":1000`)
	assert.Contains(t, string(data), `"direction":"BUY"`)
}

func TestParseDirection(t *testing.T) {
	tests := []struct {
		in   string
		want Direction
		ok   bool
	}{
		{"buy", DirectionBuy, true},
		{" BUY ", DirectionBuy, true},
		{"Sell", DirectionSell, true},
		{"short", DirectionSell, true},
		{"hold", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := ParseDirection(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestNewTradeValidate(t *testing.T) {
	valid := NewTrade{
		Symbol:     "EURUSD",
		Direction:  DirectionBuy,
		EntryPrice: decimal.RequireFromString("1.10"),
		ExitPrice:  decimal.RequireFromString("1.12"),
		Size:       decimal.NewFromInt(1000),
	}
	assert.NoError(t, valid.Validate())

	invalid := valid
	invalid.Symbol = " "
	invalid.Size = decimal.Zero
	invalid.Fees = decimal.NewFromInt(-1)

	err := invalid.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidTrade)
	assert.Contains(t, err.Error(), "symbol is required")
	assert.Contains(t, err.Error(), "size must be positive")
	assert.Contains(t, err.Error(), "fees must not be negative")
}

func TestTradePatchApply_KeepsID(t *testing.T) {
	strategy := "breakout"
	size := decimal.NewFromInt(5)
	orig := Trade{ID: 3, Symbol: "GBPUSD", Size: decimal.NewFromInt(1)}

	got := TradePatch{ID: 99, Strategy: &strategy, Size: &size}.Apply(orig)

	assert.Equal(t, int64(3), got.ID)
	assert.Equal(t, "GBPUSD", got.Symbol)
	assert.Equal(t, "breakout", got.StrategyValue())
	assert.True(t, got.Size.Equal(size))
}

func TestEquityCurve(t *testing.T) {
	t1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)

	trades := []Trade{
		{ID: 1, PnL: decimal.NewFromInt(10), ExitTime: &t2},
		{ID: 2, PnL: decimal.NewFromInt(-5), ExitTime: &t1},
		{ID: 3, PnL: decimal.NewFromInt(100)},
	}

	curve := EquityCurve(trades)
	require.Len(t, curve, 2)
	assert.True(t, curve[0].Equity.Equal(decimal.NewFromInt(-5)))
	assert.True(t, curve[1].Equity.Equal(decimal.NewFromInt(5)))
	assert.Equal(t, t2, curve[1].Time)
}

func TestEquityCurve_Empty(t *testing.T) {
	assert.Empty(t, EquityCurve(nil))
}

func TestNewTradePnL(t *testing.T) {
	tests := []struct {
		name      string
		direction Direction
		entry     string
		exit      string
		size      string
		fees      string
		want      string
	}{
		{"long winner", DirectionBuy, "1.10", "1.12", "1000", "0", "20"},
		{"short winner", DirectionSell, "1.26", "1.25", "500", "0", "5"},
		{"short loser with fees", DirectionSell, "1.25", "1.26", "500", "1.5", "-6.5"},
		{"unset direction is long", "", "10", "11", "2", "0", "2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := NewTrade{
				Direction:  tt.direction,
				EntryPrice: decimal.RequireFromString(tt.entry),
				ExitPrice:  decimal.RequireFromString(tt.exit),
				Size:       decimal.RequireFromString(tt.size),
				Fees:       decimal.RequireFromString(tt.fees),
			}
			assert.True(t, n.PnL().Equal(decimal.RequireFromString(tt.want)), "got %s", n.PnL())
		})
	}
}
