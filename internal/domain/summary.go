package domain

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Summary is the body of GET /api/summary.
type Summary struct {
	TotalPnL  decimal.Decimal `json:"total_pnl"`
	NumTrades int64           `json:"num_trades"`
	WinRate   decimal.Decimal `json:"win_rate"`
	AvgWin    decimal.Decimal `json:"avg_win"`
	AvgLoss   decimal.Decimal `json:"avg_loss"`
}

type EquityPoint struct {
	Time   time.Time       `json:"time"`
	PnL    decimal.Decimal `json:"pnl"`
	Equity decimal.Decimal `json:"equity"`
}

// EquityCurve accumulates PnL in exit-time order. Trades that have not exited are skipped;
// trades sharing an exit time keep their input order.
func EquityCurve(trades []Trade) []EquityPoint {
	closed := make([]Trade, 0, len(trades))
	for _, t := range trades {
		if t.ExitTime != nil {
			closed = append(closed, t)
		}
	}

	sort.SliceStable(closed, func(i, j int) bool {
		return closed[i].ExitTime.Before(*closed[j].ExitTime)
	})

	points := make([]EquityPoint, 0, len(closed))
	equity := decimal.Zero
	for _, t := range closed {
		equity = equity.Add(t.PnL)
		points = append(points, EquityPoint{
			Time:   *t.ExitTime,
			PnL:    t.PnL,
			Equity: equity,
		})
	}
	return points
}
