package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// The API speaks JSON numbers, not quoted decimals.
	decimal.MarshalJSONWithoutQuotes = true
}

// Trade is one journal row as served by GET /api/trades.
type Trade struct {
	ID         int64           `json:"id" db:"id"`
	Symbol     string          `json:"symbol" db:"symbol"`
	Direction  Direction       `json:"direction" db:"direction"`
	EntryPrice decimal.Decimal `json:"entry_price" db:"entry_price"`
	ExitPrice  decimal.Decimal `json:"exit_price" db:"exit_price"`
	Size       decimal.Decimal `json:"size" db:"size"`
	Fees       decimal.Decimal `json:"fees" db:"fees"`
	PnL        decimal.Decimal `json:"pnl" db:"pnl"`
	Strategy   *string         `json:"strategy,omitempty" db:"strategy"`
	Notes      *string         `json:"notes,omitempty" db:"notes"`
	EntryTime  *time.Time      `json:"entry_time,omitempty" db:"entry_time"`
	ExitTime   *time.Time      `json:"exit_time,omitempty" db:"exit_time"`
	CreatedAt  *time.Time      `json:"created_at,omitempty" db:"created_at"`
}

// UnmarshalJSON accepts the legacy "side" field as an alias of "direction".
func (t *Trade) UnmarshalJSON(data []byte) error {
	type plain Trade
	aux := struct {
		*plain
		Side *Direction `json:"side"`
	}{plain: (*plain)(t)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if t.Direction == "" && aux.Side != nil {
		t.Direction = *aux.Side
	}
	return nil
}

func (t Trade) StrategyValue() string {
	if t.Strategy == nil {
		return ""
	}
	return *t.Strategy
}

func (t Trade) NotesValue() string {
	if t.Notes == nil {
		return ""
	}
	return *t.Notes
}

// NewTrade is the body of POST /api/add-trade.
type NewTrade struct {
	Symbol     string          `json:"symbol"`
	Direction  Direction       `json:"direction"`
	EntryPrice decimal.Decimal `json:"entry_price"`
	ExitPrice  decimal.Decimal `json:"exit_price"`
	Size       decimal.Decimal `json:"size"`
	Fees       decimal.Decimal `json:"fees"`
	Strategy   string          `json:"strategy"`
	Notes      string          `json:"notes"`
	EntryTime  *time.Time      `json:"entry_time,omitempty"`
	ExitTime   *time.Time      `json:"exit_time,omitempty"`
}

func (n *NewTrade) UnmarshalJSON(data []byte) error {
	type plain NewTrade
	aux := struct {
		*plain
		Side *Direction `json:"side"`
	}{plain: (*plain)(n)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if n.Direction == "" && aux.Side != nil {
		n.Direction = *aux.Side
	}
	return nil
}

var ErrInvalidTrade = errors.New("invalid trade")

// Validate enforces the record invariants before anything is stored.
func (n NewTrade) Validate() error {
	var problems []string

	if strings.TrimSpace(n.Symbol) == "" {
		problems = append(problems, "symbol is required")
	}
	if n.Direction != "" && !n.Direction.Valid() {
		problems = append(problems, "direction must be BUY or SELL")
	}
	if !n.EntryPrice.IsPositive() {
		problems = append(problems, "entry_price must be positive")
	}
	if !n.ExitPrice.IsPositive() {
		problems = append(problems, "exit_price must be positive")
	}
	if !n.Size.IsPositive() {
		problems = append(problems, "size must be positive")
	}
	if n.Fees.IsNegative() {
		problems = append(problems, "fees must not be negative")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidTrade, strings.Join(problems, ", "))
	}
	return nil
}

// TradePatch is the body of PUT /api/trades/:id. Nil fields are left untouched.
type TradePatch struct {
	ID         int64            `json:"id"`
	Symbol     *string          `json:"symbol,omitempty"`
	Direction  *Direction       `json:"direction,omitempty"`
	EntryPrice *decimal.Decimal `json:"entry_price,omitempty"`
	ExitPrice  *decimal.Decimal `json:"exit_price,omitempty"`
	Size       *decimal.Decimal `json:"size,omitempty"`
	Fees       *decimal.Decimal `json:"fees,omitempty"`
	Strategy   *string          `json:"strategy,omitempty"`
	Notes      *string          `json:"notes,omitempty"`
	EntryTime  *time.Time       `json:"entry_time,omitempty"`
	ExitTime   *time.Time       `json:"exit_time,omitempty"`
}

func (p *TradePatch) UnmarshalJSON(data []byte) error {
	type plain TradePatch
	aux := struct {
		*plain
		Side *Direction `json:"side"`
	}{plain: (*plain)(p)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if p.Direction == nil && aux.Side != nil {
		p.Direction = aux.Side
	}
	return nil
}

// Apply returns t with every non-nil patch field replaced. The id is never changed.
func (p TradePatch) Apply(t Trade) Trade {
	if p.Symbol != nil {
		t.Symbol = *p.Symbol
	}
	if p.Direction != nil {
		t.Direction = *p.Direction
	}
	if p.EntryPrice != nil {
		t.EntryPrice = *p.EntryPrice
	}
	if p.ExitPrice != nil {
		t.ExitPrice = *p.ExitPrice
	}
	if p.Size != nil {
		t.Size = *p.Size
	}
	if p.Fees != nil {
		t.Fees = *p.Fees
	}
	if p.Strategy != nil {
		t.Strategy = p.Strategy
	}
	if p.Notes != nil {
		t.Notes = p.Notes
	}
	if p.EntryTime != nil {
		t.EntryTime = p.EntryTime
	}
	if p.ExitTime != nil {
		t.ExitTime = p.ExitTime
	}
	return t
}

// AsNew projects a stored trade onto the fields a client may set.
func (t Trade) AsNew() NewTrade {
	return NewTrade{
		Symbol:     t.Symbol,
		Direction:  t.Direction,
		EntryPrice: t.EntryPrice,
		ExitPrice:  t.ExitPrice,
		Size:       t.Size,
		Fees:       t.Fees,
		Strategy:   t.StrategyValue(),
		Notes:      t.NotesValue(),
		EntryTime:  t.EntryTime,
		ExitTime:   t.ExitTime,
	}
}

// PnL is (exit - entry) * size * sign - fees. An unset direction counts as BUY.
func (n NewTrade) PnL() decimal.Decimal {
	return n.ExitPrice.Sub(n.EntryPrice).
		Mul(n.Size).
		Mul(decimal.NewFromInt(n.Direction.Sign())).
		Sub(n.Fees)
}
