package table

import (
	"sync"

	"github.com/jeovahfialho/trade-journal/internal/domain"
)

// DefaultSort is the ordering a fresh or reset table starts with.
var DefaultSort = Sort{Key: KeyExitPrice, Dir: DirDesc}

// State owns the fetched trade list and the table controls for one table instance.
type State struct {
	mu         sync.RWMutex
	trades     []domain.Trade
	strategies []string
	controls   Controls
	pageSize   int
}

func NewState(pageSize int) *State {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &State{
		strategies: []string{},
		pageSize:   pageSize,
		controls: Controls{
			Strategy: AllStrategies,
			Sort:     DefaultSort,
			Page:     1,
			PageSize: pageSize,
		},
	}
}

// Replace swaps in a freshly fetched list and recomputes the strategy facet.
func (s *State) Replace(trades []domain.Trade) {
	copied := make([]domain.Trade, len(trades))
	copy(copied, trades)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.trades = copied
	s.strategies = Strategies(copied)
}

func (s *State) Trades() []domain.Trade {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Trade, len(s.trades))
	copy(out, s.trades)
	return out
}

// Find returns the loaded trade with id.
func (s *State) Find(id int64) (domain.Trade, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.trades {
		if t.ID == id {
			return t, true
		}
	}
	return domain.Trade{}, false
}

func (s *State) Strategies() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.strategies))
	copy(out, s.strategies)
	return out
}

func (s *State) Controls() Controls {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.controls
}

func (s *State) SetQuery(q string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.controls.Query = q
	s.controls.Page = 1
}

func (s *State) SetStrategy(strategy string) {
	if strategy == "" {
		strategy = AllStrategies
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.controls.Strategy = strategy
	s.controls.Page = 1
}

func (s *State) SetPageSize(size int) {
	if size <= 0 {
		size = s.pageSize
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.controls.PageSize = size
	s.controls.Page = 1
}

// SetPage stores the requested page; View clamps it.
func (s *State) SetPage(page int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.controls.Page = page
}

func (s *State) SetSort(sort Sort) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !sort.Active() {
		sort = Sort{}
	}
	s.controls.Sort = sort
}

func (s *State) ToggleSort(key SortKey) Sort {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.controls.Sort = s.controls.Sort.Toggle(key)
	return s.controls.Sort
}

// Reset clears search and filter and restores the default ordering on page 1.
func (s *State) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.controls.Query = ""
	s.controls.Strategy = AllStrategies
	s.controls.Sort = DefaultSort
	s.controls.Page = 1
}

// View computes the current page. An out-of-range page is written back as 1.
func (s *State) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := Apply(s.trades, s.controls)
	s.controls.Page = v.Page
	return v
}
