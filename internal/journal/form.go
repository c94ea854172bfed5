package journal

import (
	"fmt"
	"strings"
	"time"

	"github.com/jeovahfialho/trade-journal/internal/domain"
	"github.com/shopspring/decimal"
)

// Form is the manual-entry form exactly as typed.
type Form struct {
	Symbol     string `form:"symbol" json:"symbol"`
	Direction  string `form:"direction" json:"direction"`
	EntryPrice string `form:"entry_price" json:"entry_price"`
	ExitPrice  string `form:"exit_price" json:"exit_price"`
	Size       string `form:"size" json:"size"`
	Fees       string `form:"fees" json:"fees"`
	Strategy   string `form:"strategy" json:"strategy"`
	Notes      string `form:"notes" json:"notes"`
}

// EmptyForm is the form after a successful submit.
func EmptyForm() Form {
	return Form{Direction: "buy"}
}

// ValidationError is returned before any request is made.
type ValidationError struct {
	Missing []string
	Invalid []string
}

func (e *ValidationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing required fields: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "invalid fields: "+strings.Join(e.Invalid, ", "))
	}
	return strings.Join(parts, "; ")
}

// Trade validates the form and builds the add-trade body. Entry and exit times are set to now.
func (f Form) Trade(now time.Time) (domain.NewTrade, error) {
	verr := &ValidationError{}

	required := []struct {
		name  string
		value string
	}{
		{"symbol", f.Symbol},
		{"entry_price", f.EntryPrice},
		{"exit_price", f.ExitPrice},
		{"size", f.Size},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			verr.Missing = append(verr.Missing, r.name)
		}
	}

	number := func(name, value string) decimal.Decimal {
		value = strings.TrimSpace(value)
		if value == "" {
			return decimal.Zero
		}
		d, err := decimal.NewFromString(value)
		if err != nil {
			verr.Invalid = append(verr.Invalid, name)
			return decimal.Zero
		}
		return d
	}

	entry := number("entry_price", f.EntryPrice)
	exit := number("exit_price", f.ExitPrice)
	size := number("size", f.Size)
	fees := number("fees", f.Fees)

	direction := domain.DirectionBuy
	if strings.TrimSpace(f.Direction) != "" {
		d, ok := domain.ParseDirection(f.Direction)
		if !ok {
			verr.Invalid = append(verr.Invalid, "direction")
		}
		direction = d
	}

	if len(verr.Missing) > 0 || len(verr.Invalid) > 0 {
		return domain.NewTrade{}, verr
	}

	ts := now.UTC()
	return domain.NewTrade{
		Symbol:     strings.TrimSpace(f.Symbol),
		Direction:  direction,
		EntryPrice: entry,
		ExitPrice:  exit,
		Size:       size,
		Fees:       fees,
		Strategy:   strings.TrimSpace(f.Strategy),
		Notes:      f.Notes,
		EntryTime:  &ts,
		ExitTime:   &ts,
	}, nil
}

// PatchFrom builds an update for id from form values. Blank fields are left unchanged,
// except notes and strategy which are always sent so they can be cleared.
func PatchFrom(id int64, f Form) (domain.TradePatch, error) {
	patch := domain.TradePatch{ID: id}
	verr := &ValidationError{}

	if s := strings.TrimSpace(f.Symbol); s != "" {
		patch.Symbol = &s
	}
	if s := strings.TrimSpace(f.Direction); s != "" {
		d, ok := domain.ParseDirection(s)
		if ok {
			patch.Direction = &d
		} else {
			verr.Invalid = append(verr.Invalid, "direction")
		}
	}

	number := func(name, value string) *decimal.Decimal {
		value = strings.TrimSpace(value)
		if value == "" {
			return nil
		}
		d, err := decimal.NewFromString(value)
		if err != nil {
			verr.Invalid = append(verr.Invalid, name)
			return nil
		}
		return &d
	}
	patch.EntryPrice = number("entry_price", f.EntryPrice)
	patch.ExitPrice = number("exit_price", f.ExitPrice)
	patch.Size = number("size", f.Size)
	patch.Fees = number("fees", f.Fees)

	strategy := strings.TrimSpace(f.Strategy)
	notes := f.Notes
	patch.Strategy = &strategy
	patch.Notes = &notes

	if len(verr.Invalid) > 0 {
		return domain.TradePatch{}, verr
	}
	return patch, nil
}

// FormFrom fills an edit form from a stored trade.
func FormFrom(t domain.Trade) Form {
	return Form{
		Symbol:     t.Symbol,
		Direction:  strings.ToLower(t.Direction.String()),
		EntryPrice: t.EntryPrice.String(),
		ExitPrice:  t.ExitPrice.String(),
		Size:       t.Size.String(),
		Fees:       t.Fees.String(),
		Strategy:   t.StrategyValue(),
		Notes:      t.NotesValue(),
	}
}

func (f Form) String() string {
	return fmt.Sprintf("%s %s %s→%s x%s", f.Direction, f.Symbol, f.EntryPrice, f.ExitPrice, f.Size)
}
