package export

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jeovahfialho/trade-journal/internal/domain"
	"github.com/shopspring/decimal"
)

// Columns is the header of every export, in order.
var Columns = []string{
	"id",
	"symbol",
	"direction",
	"entry_time",
	"exit_time",
	"entry_price",
	"exit_price",
	"size",
	"fees",
	"pnl",
	"strategy",
	"notes",
}

const ContentType = "text/csv;charset=utf-8"

// Filename is the download name for an export taken at now.
func Filename(now time.Time) string {
	return fmt.Sprintf("trades_export_%s.csv", now.UTC().Format("2006-01-02"))
}

// WriteCSV writes trades as CSV. Numbers are written verbatim and strings as JSON string
// literals, so commas, quotes and newlines stay inside one field. An empty slice produces
// the header line only.
func WriteCSV(w io.Writer, trades []domain.Trade) error {
	bw := bufio.NewWriter(w)

	if _, err := bw.WriteString(strings.Join(Columns, ",")); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, t := range trades {
		if _, err := bw.WriteString("\n" + strings.Join(record(t), ",")); err != nil {
			return fmt.Errorf("write trade %d: %w", t.ID, err)
		}
	}

	return bw.Flush()
}

// Render is WriteCSV into memory.
func Render(trades []domain.Trade) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, trades); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

var newlines = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

// record follows the order of Columns.
func record(t domain.Trade) []string {
	return []string{
		strconv.FormatInt(t.ID, 10),
		quote(t.Symbol),
		quote(t.Direction.String()),
		quote(formatTime(t.EntryTime)),
		quote(formatTime(t.ExitTime)),
		number(t.EntryPrice),
		number(t.ExitPrice),
		number(t.Size),
		number(t.Fees),
		number(t.PnL),
		quote(t.StrategyValue()),
		quote(newlines.Replace(t.NotesValue())),
	}
}

func number(d decimal.Decimal) string {
	return d.String()
}

func formatTime(ts *time.Time) string {
	if ts == nil {
		return ""
	}
	return ts.UTC().Format(time.RFC3339)
}

// quote renders s as a JSON string literal without HTML escaping.
func quote(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	// Encoding a string cannot fail; invalid UTF-8 is replaced.
	_ = enc.Encode(s)
	return strings.TrimSuffix(buf.String(), "\n")
}
