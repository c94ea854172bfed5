package table

import (
	"slices"
	"strings"

	"github.com/jeovahfialho/trade-journal/internal/domain"
)

const (
	// AllStrategies disables the strategy filter.
	AllStrategies = "all"

	DefaultPageSize = 10
)

// PageSizes are the page sizes offered by the shells.
var PageSizes = []int{10, 20, 50}

// Controls are the user-editable inputs of the table.
type Controls struct {
	Query    string
	Strategy string
	Sort     Sort
	Page     int
	PageSize int
}

// View is what a shell renders for one set of controls.
type View struct {
	// Rows is the visible page.
	Rows []domain.Trade
	// Filtered holds every row matching query and strategy, sorted, before pagination.
	Filtered   []domain.Trade
	Total      int
	TotalPages int
	Page       int
	PageSize   int
}

// Apply runs search, strategy filter, sort and pagination over trades. trades is not modified.
func Apply(trades []domain.Trade, c Controls) View {
	pageSize := c.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	out := make([]domain.Trade, 0, len(trades))
	q := strings.ToLower(strings.TrimSpace(c.Query))
	for _, t := range trades {
		if !matchesQuery(t, q) || !matchesStrategy(t, c.Strategy) {
			continue
		}
		out = append(out, t)
	}

	if c.Sort.Active() {
		slices.SortStableFunc(out, comparator(c.Sort))
	}

	total := len(out)
	totalPages := (total + pageSize - 1) / pageSize
	if totalPages < 1 {
		totalPages = 1
	}

	page := c.Page
	if page < 1 || page > totalPages {
		page = 1
	}

	start := (page - 1) * pageSize
	end := start + pageSize
	if end > total {
		end = total
	}

	return View{
		Rows:       out[start:end:end],
		Filtered:   out,
		Total:      total,
		TotalPages: totalPages,
		Page:       page,
		PageSize:   pageSize,
	}
}

// matchesQuery expects q already trimmed and lower-cased.
func matchesQuery(t domain.Trade, q string) bool {
	if q == "" {
		return true
	}
	fields := [...]string{t.Symbol, t.StrategyValue(), t.NotesValue(), t.Direction.String()}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}

func matchesStrategy(t domain.Trade, strategy string) bool {
	if strategy == "" || strategy == AllStrategies {
		return true
	}
	return t.Strategy != nil && *t.Strategy == strategy
}

// Strategies lists the distinct non-empty strategies of trades in first-seen order.
func Strategies(trades []domain.Trade) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, t := range trades {
		s := t.StrategyValue()
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
