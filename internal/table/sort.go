package table

import (
	"strings"
	"sync"

	"github.com/jeovahfialho/trade-journal/internal/domain"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// SortKey names a sortable column. KeyNone means fetch order.
type SortKey string

const (
	KeyNone       SortKey = ""
	KeyID         SortKey = "id"
	KeySymbol     SortKey = "symbol"
	KeyDirection  SortKey = "direction"
	KeyEntryPrice SortKey = "entry_price"
	KeyExitPrice  SortKey = "exit_price"
	KeySize       SortKey = "size"
	KeyFees       SortKey = "fees"
	KeyPnL        SortKey = "pnl"
	KeyStrategy   SortKey = "strategy"
	KeyNotes      SortKey = "notes"
	KeyEntryTime  SortKey = "entry_time"
	KeyExitTime   SortKey = "exit_time"
	KeyCreatedAt  SortKey = "created_at"
)

var sortKeys = []SortKey{
	KeyID, KeySymbol, KeyDirection, KeyEntryPrice, KeyExitPrice, KeySize,
	KeyFees, KeyPnL, KeyStrategy, KeyNotes, KeyEntryTime, KeyExitTime, KeyCreatedAt,
}

func ParseSortKey(s string) (SortKey, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || s == "none" {
		return KeyNone, true
	}
	for _, k := range sortKeys {
		if string(k) == s {
			return k, true
		}
	}
	return KeyNone, false
}

type SortDir int

const (
	DirNone SortDir = iota
	DirAsc
	DirDesc
)

func (d SortDir) String() string {
	switch d {
	case DirAsc:
		return "asc"
	case DirDesc:
		return "desc"
	default:
		return "none"
	}
}

func ParseSortDir(s string) (SortDir, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "asc":
		return DirAsc, true
	case "desc":
		return DirDesc, true
	case "", "none":
		return DirNone, true
	default:
		return DirNone, false
	}
}

// nextDir is the per-column cycle applied when the active column is clicked again.
var nextDir = map[SortDir]SortDir{
	DirNone: DirAsc,
	DirAsc:  DirDesc,
	DirDesc: DirNone,
}

type Sort struct {
	Key SortKey
	Dir SortDir
}

// Active reports whether rows are reordered at all.
func (s Sort) Active() bool {
	return s.Key != KeyNone && s.Dir != DirNone
}

// Toggle is a header click on key. A different column starts ascending; the active
// column cycles asc, desc, cleared.
func (s Sort) Toggle(key SortKey) Sort {
	if key == KeyNone {
		return Sort{}
	}
	if s.Key != key {
		return Sort{Key: key, Dir: DirAsc}
	}
	next := nextDir[s.Dir]
	if next == DirNone {
		return Sort{}
	}
	return Sort{Key: key, Dir: next}
}

var (
	collatorOnce sync.Once
	collatorMu   sync.Mutex
	collator     *collate.Collator
)

// compareStrings is a locale-aware comparison; collate.Collator is not safe for concurrent use.
func compareStrings(a, b string) int {
	collatorOnce.Do(func() {
		collator = collate.New(language.English)
	})
	collatorMu.Lock()
	defer collatorMu.Unlock()
	return collator.CompareString(a, b)
}

// compare orders a against b on key in ascending terms. When either side is nil the nil flags
// are set and cmp is meaningless; the comparator places nils.
func compare(a, b domain.Trade, key SortKey) (aNil, bNil bool, cmp int) {
	switch key {
	case KeyID:
		return false, false, cmpInt(a.ID, b.ID)
	case KeyEntryPrice:
		return false, false, a.EntryPrice.Cmp(b.EntryPrice)
	case KeyExitPrice:
		return false, false, a.ExitPrice.Cmp(b.ExitPrice)
	case KeySize:
		return false, false, a.Size.Cmp(b.Size)
	case KeyFees:
		return false, false, a.Fees.Cmp(b.Fees)
	case KeyPnL:
		return false, false, a.PnL.Cmp(b.PnL)
	case KeySymbol:
		return false, false, compareStrings(a.Symbol, b.Symbol)
	case KeyDirection:
		aNil, bNil = a.Direction == "", b.Direction == ""
		if aNil || bNil {
			return aNil, bNil, 0
		}
		return false, false, compareStrings(a.Direction.String(), b.Direction.String())
	case KeyStrategy:
		return compareOptional(a.Strategy, b.Strategy)
	case KeyNotes:
		return compareOptional(a.Notes, b.Notes)
	case KeyEntryTime:
		return compareTimes(a.EntryTime == nil, b.EntryTime == nil, func() int { return a.EntryTime.Compare(*b.EntryTime) })
	case KeyExitTime:
		return compareTimes(a.ExitTime == nil, b.ExitTime == nil, func() int { return a.ExitTime.Compare(*b.ExitTime) })
	case KeyCreatedAt:
		return compareTimes(a.CreatedAt == nil, b.CreatedAt == nil, func() int { return a.CreatedAt.Compare(*b.CreatedAt) })
	}
	return false, false, 0
}

func compareOptional(a, b *string) (bool, bool, int) {
	if a == nil || b == nil {
		return a == nil, b == nil, 0
	}
	return false, false, compareStrings(*a, *b)
}

func compareTimes(aNil, bNil bool, cmp func() int) (bool, bool, int) {
	if aNil || bNil {
		return aNil, bNil, 0
	}
	return false, false, cmp()
}

func cmpInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// comparator builds the sort function for s. Nil values precede present ones ascending and follow them
// descending; two nils are equal.
func comparator(s Sort) func(a, b domain.Trade) int {
	return func(a, b domain.Trade) int {
		aNil, bNil, cmp := compare(a, b, s.Key)
		switch {
		case aNil && bNil:
			return 0
		case aNil:
			if s.Dir == DirAsc {
				return -1
			}
			return 1
		case bNil:
			if s.Dir == DirAsc {
				return 1
			}
			return -1
		}
		if s.Dir == DirDesc {
			return -cmp
		}
		return cmp
	}
}
