package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Direction is the side of a trade. The zero value means the backend did not report one.
type Direction string

const (
	DirectionBuy  Direction = "BUY"
	DirectionSell Direction = "SELL"
)

func (d Direction) String() string { return string(d) }

func (d Direction) Valid() bool {
	return d == DirectionBuy || d == DirectionSell
}

// Sign is +1 for BUY and -1 for SELL.
func (d Direction) Sign() int64 {
	if d == DirectionSell {
		return -1
	}
	return 1
}

// ParseDirection accepts any casing of buy/sell plus the long/short synonyms found in broker exports.
func ParseDirection(s string) (Direction, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "buy", "long", "b":
		return DirectionBuy, true
	case "sell", "short", "s":
		return DirectionSell, true
	default:
		return "", false
	}
}

func (d *Direction) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		if string(data) == "null" {
			*d = ""
			return nil
		}
		return fmt.Errorf("direction: %w", err)
	}
	if strings.TrimSpace(raw) == "" {
		*d = ""
		return nil
	}
	parsed, ok := ParseDirection(raw)
	if !ok {
		return fmt.Errorf("direction: unknown value %q", raw)
	}
	*d = parsed
	return nil
}
