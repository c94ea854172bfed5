package ingestion

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/jeovahfialho/trade-journal/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = `symbol,side,entry_price,exit_price,size,fees,strategy,notes,entry_time,exit_time
eurusd,buy,1.10,1.12,1000,0,breakout,"first, trade",2024-06-03T09:00:00Z,2024-06-03T14:30:00Z
GBPUSD,SELL,"1,25","1,26",500,1.5,,,2024-06-04,2024-06-04 16:00:00
USDJPY,hold,150,151,10,0,,,,
XAUUSD,buy,abc,2000,1,0,,,,
BTCUSD,long,60000,61000,0.1,5,swing,,,
`

func TestParseFile(t *testing.T) {
	res, err := NewParser(2, 3).ParseFile(context.Background(), strings.NewReader(sampleCSV))
	require.NoError(t, err)

	require.Len(t, res.Trades, 3)
	assert.Equal(t, "EURUSD", res.Trades[0].Symbol)
	assert.Equal(t, "GBPUSD", res.Trades[1].Symbol)
	assert.Equal(t, "BTCUSD", res.Trades[2].Symbol)

	first := res.Trades[0]
	assert.Equal(t, domain.DirectionBuy, first.Direction)
	assert.Equal(t, "first, trade", first.Notes)
	assert.Equal(t, "breakout", first.Strategy)
	require.NotNil(t, first.ExitTime)
	assert.Equal(t, 14, first.ExitTime.Hour())

	second := res.Trades[1]
	assert.Equal(t, domain.DirectionSell, second.Direction)
	assert.True(t, second.EntryPrice.Equal(decimal.RequireFromString("1.25")))
	assert.True(t, second.Fees.Equal(decimal.RequireFromString("1.5")))
	require.NotNil(t, second.ExitTime)
	assert.Equal(t, 16, second.ExitTime.Hour())

	require.Len(t, res.Errors, 2)
	assert.Equal(t, 4, res.Errors[0].Line)
	assert.Contains(t, res.Errors[0].Error(), "direction")
	assert.Equal(t, 5, res.Errors[1].Line)
	assert.Contains(t, res.Errors[1].Error(), "entry_price")
}

func TestParseFile_MissingColumns(t *testing.T) {
	_, err := NewParser(10, 1).ParseFile(context.Background(), strings.NewReader("symbol,price\nEURUSD,1\n"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingColumns))
	assert.Contains(t, err.Error(), "entry_price")
	assert.Contains(t, err.Error(), "size")
}

func TestParseFile_Empty(t *testing.T) {
	_, err := NewParser(10, 1).ParseFile(context.Background(), strings.NewReader(""))
	assert.ErrorIs(t, err, ErrMissingColumns)
}

func TestParseFile_HeaderOnly(t *testing.T) {
	res, err := NewParser(10, 2).ParseFile(context.Background(), strings.NewReader("Symbol,Entry_Price,Exit_Price,Qty\n"))
	require.NoError(t, err)
	assert.Empty(t, res.Trades)
	assert.Empty(t, res.Errors)
}

func TestParseFile_KeepsFileOrder(t *testing.T) {
	res, err := NewParser(7, 8).ParseFile(context.Background(), strings.NewReader(generateTestCSV(500)))
	require.NoError(t, err)
	require.Len(t, res.Trades, 500)

	for i, tr := range res.Trades {
		assert.True(t, tr.Size.Equal(decimal.NewFromInt(int64(100+i))), "row %d", i)
	}
}

func TestParseFile_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewParser(10, 2).ParseFile(ctx, strings.NewReader(generateTestCSV(1000)))
	assert.ErrorIs(t, err, context.Canceled)
}

type failingReader struct{ err error }

func (r failingReader) Read([]byte) (int, error) { return 0, r.err }

func TestParseFile_SourceFailureStops(t *testing.T) {
	diskErr := errors.New("disk unplugged")
	src := io.MultiReader(
		strings.NewReader("symbol,entry_price,exit_price,size\nEURUSD,1.1,1.2,10\n"),
		failingReader{err: diskErr},
	)

	_, err := NewParser(10, 2).ParseFile(context.Background(), src)
	require.Error(t, err)
	assert.ErrorIs(t, err, diskErr)
}

func TestParseFile_MalformedRowSkipped(t *testing.T) {
	src := "symbol,entry_price,exit_price,size\nEURUSD,1\"1,1.2,10\nGBPUSD,1.25,1.26,5\n"

	res, err := NewParser(10, 1).ParseFile(context.Background(), strings.NewReader(src))
	require.NoError(t, err)
	require.Len(t, res.Trades, 1)
	assert.Equal(t, "GBPUSD", res.Trades[0].Symbol)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, 2, res.Errors[0].Line)
}

func TestSplitIntoChunks(t *testing.T) {
	trades := make([]domain.NewTrade, 5)
	chunks := splitIntoChunks(trades, 2)
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[2], 1)
	assert.Empty(t, splitIntoChunks(nil, 2))
}

func BenchmarkParser(b *testing.B) {
	csvData := generateTestCSV(100000)

	benchmarks := []struct {
		name      string
		batchSize int
		workers   int
	}{
		{"SingleWorker", 1000, 1},
		{"FourWorkers", 1000, 4},
		{"EightWorkers", 1000, 8},
		{"LargeBatch", 10000, 4},
	}

	for _, bm := range benchmarks {
		b.Run(bm.name, func(b *testing.B) {
			parser := NewParser(bm.batchSize, bm.workers)

			b.ResetTimer()
			b.ReportAllocs()

			for i := 0; i < b.N; i++ {
				if _, err := parser.ParseFile(context.Background(), bytes.NewReader([]byte(csvData))); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func generateTestCSV(lines int) string {
	var sb strings.Builder
	sb.WriteString("symbol,direction,entry_price,exit_price,size,fees,strategy,notes,entry_time,exit_time\n")

	symbols := []string{"EURUSD", "GBPUSD", "USDJPY", "XAUUSD"}
	for i := 0; i < lines; i++ {
		direction := "BUY"
		if i%3 == 0 {
			direction = "SELL"
		}
		fmt.Fprintf(&sb, "%s,%s,%.2f,%.2f,%d,0.5,s%d,,2024-01-15T09:00:00Z,2024-01-15T15:30:00Z\n",
			symbols[i%len(symbols)], direction, float64(20+i%30), float64(21+i%29), 100+i, i%5)
	}
	return sb.String()
}
