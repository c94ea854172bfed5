package ingestion

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jeovahfialho/trade-journal/internal/domain"
	"github.com/shopspring/decimal"
)

var ErrMissingColumns = errors.New("csv header is missing required columns")

// requiredColumns lists each required field with its accepted header names.
var requiredColumns = [][]string{
	{"symbol"},
	{"entry_price"},
	{"exit_price"},
	{"size", "qty", "quantity"},
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

type Parser struct {
	batchSize int
	workers   int
}

func NewParser(batchSize, workers int) *Parser {
	if batchSize <= 0 {
		batchSize = 1000
	}
	if workers <= 0 {
		workers = 1
	}
	return &Parser{
		batchSize: batchSize,
		workers:   workers,
	}
}

// RowError is a data row that could not be turned into a trade. Line is 1-based and
// counts the header.
type RowError struct {
	Line int
	Err  error
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e RowError) Unwrap() error { return e.Err }

type ParseResult struct {
	Trades []domain.NewTrade
	Errors []RowError
}

type job struct {
	line   int
	record []string
}

type parsed struct {
	line  int
	trade domain.NewTrade
}

type batch struct {
	trades []parsed
	errors []RowError
}

// header maps lower-cased column names to record positions.
type header map[string]int

func (h header) has(names ...string) bool {
	for _, name := range names {
		if _, ok := h[name]; ok {
			return true
		}
	}
	return false
}

func (h header) get(record []string, names ...string) string {
	for _, name := range names {
		if i, ok := h[name]; ok && i < len(record) {
			return strings.TrimSpace(record[i])
		}
	}
	return ""
}

// ParseFile reads a header row and fans the data rows out to the parser's workers.
// Rows that fail to parse are reported in Errors; the result keeps file order.
func (p *Parser) ParseFile(ctx context.Context, reader io.Reader) (*ParseResult, error) {
	csvReader := csv.NewReader(reader)
	csvReader.FieldsPerRecord = -1
	csvReader.TrimLeadingSpace = true

	first, err := csvReader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: empty file", ErrMissingColumns)
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	cols := header{}
	for i, name := range first {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		cols[name] = i
	}
	var missing []string
	for _, names := range requiredColumns {
		if !cols.has(names...) {
			missing = append(missing, names[0])
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	jobs := make(chan job, p.workers*2)
	results := make(chan *batch, p.workers)

	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go p.worker(ctx, cols, jobs, results, &wg)
	}

	readErrs := make([]RowError, 0)
	var readFailure error
	go func() {
		defer close(jobs)

		line := 1
		for {
			line++
			record, err := csvReader.Read()
			if err == io.EOF {
				return
			}
			// A malformed row is skipped; anything else means the source itself failed.
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				readErrs = append(readErrs, RowError{Line: line, Err: err})
				continue
			}
			if err != nil {
				readFailure = fmt.Errorf("read line %d: %w", line, err)
				return
			}
			select {
			case <-ctx.Done():
				return
			case jobs <- job{line: line, record: record}:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	var rows []parsed
	final := &ParseResult{
		Trades: make([]domain.NewTrade, 0, p.batchSize),
		Errors: make([]RowError, 0),
	}
	for b := range results {
		rows = append(rows, b.trades...)
		final.Errors = append(final.Errors, b.errors...)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// results is closed only after jobs is closed, so the reader goroutine is done.
	if readFailure != nil {
		return nil, readFailure
	}
	final.Errors = append(final.Errors, readErrs...)

	sort.Slice(rows, func(i, j int) bool { return rows[i].line < rows[j].line })
	sort.Slice(final.Errors, func(i, j int) bool { return final.Errors[i].Line < final.Errors[j].Line })
	for _, r := range rows {
		final.Trades = append(final.Trades, r.trade)
	}
	return final, nil
}

func (p *Parser) worker(ctx context.Context, cols header, jobs <-chan job,
	results chan<- *batch, wg *sync.WaitGroup) {

	defer wg.Done()

	current := &batch{trades: make([]parsed, 0, p.batchSize)}
	flush := func() {
		if len(current.trades) > 0 || len(current.errors) > 0 {
			results <- current
		}
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return

		case j, ok := <-jobs:
			if !ok {
				flush()
				return
			}

			trade, err := parseRecord(cols, j.record)
			if err != nil {
				current.errors = append(current.errors, RowError{Line: j.line, Err: err})
				continue
			}
			current.trades = append(current.trades, parsed{line: j.line, trade: trade})

			if len(current.trades) >= p.batchSize {
				results <- current
				current = &batch{trades: make([]parsed, 0, p.batchSize)}
			}
		}
	}
}

func parseRecord(cols header, record []string) (domain.NewTrade, error) {
	var t domain.NewTrade
	var err error

	t.Symbol = strings.ToUpper(cols.get(record, "symbol"))

	if raw := cols.get(record, "direction", "side"); raw != "" {
		d, ok := domain.ParseDirection(raw)
		if !ok {
			return t, fmt.Errorf("invalid direction %q", raw)
		}
		t.Direction = d
	} else {
		t.Direction = domain.DirectionBuy
	}

	if t.EntryPrice, err = parseDecimal(cols.get(record, "entry_price"), "entry_price"); err != nil {
		return t, err
	}
	if t.ExitPrice, err = parseDecimal(cols.get(record, "exit_price"), "exit_price"); err != nil {
		return t, err
	}
	if t.Size, err = parseDecimal(cols.get(record, "size", "qty", "quantity"), "size"); err != nil {
		return t, err
	}
	if raw := cols.get(record, "fees"); raw != "" {
		if t.Fees, err = parseDecimal(raw, "fees"); err != nil {
			return t, err
		}
	}

	t.Strategy = cols.get(record, "strategy")
	t.Notes = cols.get(record, "notes")

	if t.EntryTime, err = parseTime(cols.get(record, "entry_time"), "entry_time"); err != nil {
		return t, err
	}
	if t.ExitTime, err = parseTime(cols.get(record, "exit_time"), "exit_time"); err != nil {
		return t, err
	}

	if err := t.Validate(); err != nil {
		return t, err
	}
	return t, nil
}

// parseDecimal also accepts a decimal comma when no dot is present.
func parseDecimal(raw, field string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, fmt.Errorf("%s is required", field)
	}
	if !strings.Contains(raw, ".") {
		raw = strings.Replace(raw, ",", ".", 1)
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s %q", field, raw)
	}
	return d, nil
}

func parseTime(raw, field string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			ts = ts.UTC()
			return &ts, nil
		}
	}
	return nil, fmt.Errorf("invalid %s %q", field, raw)
}
