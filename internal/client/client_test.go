package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/jeovahfialho/trade-journal/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DefaultBaseURL(t *testing.T) {
	assert.Equal(t, DefaultBaseURL, New("").BaseURL())
	assert.Equal(t, "http://api:9000", New("http://api:9000/").BaseURL())
}

func TestListTrades(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/trades", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id":1,"symbol":"EURUSD","direction":"BUY","entry_price":1.1,"exit_price":1.12,"size":1000,"fees":0,"pnl":20,"strategy":"A"},
			{"id":2,"symbol":"GBPUSD","side":"sell","entry_price":1.25,"exit_price":1.26,"size":500,"fees":0,"pnl":-5,"strategy":null}
		]`))
	}))
	defer server.Close()

	trades, err := New(server.URL).ListTrades(context.Background())
	require.NoError(t, err)
	require.Len(t, trades, 2)

	assert.Equal(t, "EURUSD", trades[0].Symbol)
	assert.Equal(t, "A", trades[0].StrategyValue())
	assert.Equal(t, domain.DirectionSell, trades[1].Direction)
	assert.Nil(t, trades[1].Strategy)
	assert.True(t, trades[1].PnL.Equal(decimal.NewFromInt(-5)))
}

func TestListTrades_NullBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`null`))
	}))
	defer server.Close()

	trades, err := New(server.URL).ListTrades(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, trades)
	assert.Empty(t, trades)
}

func TestSummary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/summary", r.URL.Path)
		_, _ = w.Write([]byte(`{"total_pnl":15,"num_trades":2,"win_rate":50,"avg_win":20,"avg_loss":-5}`))
	}))
	defer server.Close()

	s, err := New(server.URL).Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), s.NumTrades)
	assert.True(t, s.WinRate.Equal(decimal.NewFromInt(50)))
}

func TestAddTrade_SendsBodyAndDecodesTrade(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/add-trade", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "EURUSD", body["symbol"])
		assert.Equal(t, 1.1, body["entry_price"])
		assert.Equal(t, "BUY", body["direction"])

		_, _ = w.Write([]byte(`{"id":11,"symbol":"EURUSD","direction":"BUY","entry_price":1.1,"exit_price":1.12,"size":1000,"pnl":20}`))
	}))
	defer server.Close()

	created, err := New(server.URL).AddTrade(context.Background(), domain.NewTrade{
		Symbol:     "EURUSD",
		Direction:  domain.DirectionBuy,
		EntryPrice: decimal.RequireFromString("1.10"),
		ExitPrice:  decimal.RequireFromString("1.12"),
		Size:       decimal.NewFromInt(1000),
	})
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, int64(11), created.ID)
}

func TestAddTrade_AckOnly(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer server.Close()

	created, err := New(server.URL).AddTrade(context.Background(), domain.NewTrade{Symbol: "X"})
	require.NoError(t, err)
	assert.Nil(t, created)
}

func TestUpdateTrade(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/trades/5", r.URL.Path)

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "swing", body["strategy"])
		assert.NotContains(t, body, "symbol")

		_, _ = w.Write([]byte(`{"id":5,"symbol":"USDJPY","strategy":"swing"}`))
	}))
	defer server.Close()

	strategy := "swing"
	updated, err := New(server.URL).UpdateTrade(context.Background(), domain.TradePatch{ID: 5, Strategy: &strategy})
	require.NoError(t, err)
	assert.Equal(t, "swing", updated.StrategyValue())
}

func TestUpdateTrade_RejectsMissingID(t *testing.T) {
	_, err := New("http://unused").UpdateTrade(context.Background(), domain.TradePatch{})
	assert.Error(t, err)
}

func TestDeleteTrade(t *testing.T) {
	var called atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called.Store(true)
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/api/trades/2", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	require.NoError(t, New(server.URL).DeleteTrade(context.Background(), 2))
	assert.True(t, called.Load())
}

func TestImportCSV_Multipart(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/upload-csv", r.URL.Path)

		file, header, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			return
		}
		defer file.Close()
		content, _ := io.ReadAll(file)

		assert.Equal(t, "trades.csv", header.Filename)
		assert.Equal(t, "symbol,entry_price\n", string(content))
		_, _ = w.Write([]byte(`{"imported":3,"skipped":1}`))
	}))
	defer server.Close()

	res, err := New(server.URL).ImportCSV(context.Background(), "trades.csv", strings.NewReader("symbol,entry_price\n"))
	require.NoError(t, err)
	assert.Equal(t, 3, res.Imported)
	assert.Equal(t, 1, res.Skipped)
}

func TestAPIError_DetailExtraction(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		detail string
	}{
		{"detail string", http.StatusBadRequest, `{"detail":"symbol is required"}`, "symbol is required"},
		{"error field", http.StatusNotFound, `{"error":"trade not found","code":404}`, "trade not found"},
		{"structured detail", http.StatusUnprocessableEntity, `{"detail":[{"loc":["body","size"]}]}`, `[{"loc":["body","size"]}]`},
		{"plain text", http.StatusBadGateway, `upstream down`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			err := New(server.URL).DeleteTrade(context.Background(), 1)
			require.Error(t, err)

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.detail, apiErr.Detail)
		})
	}
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "bad symbol", Message(&APIError{Status: 400, Detail: "bad symbol"}, "fallback"))
	assert.Equal(t, "fallback", Message(&APIError{Status: 500}, "fallback"))
	assert.Equal(t, "boom", Message(errors.New("boom"), "fallback"))
	assert.Equal(t, "fallback", Message(nil, "fallback"))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(&APIError{Status: http.StatusNotFound}))
	assert.False(t, IsNotFound(&APIError{Status: http.StatusBadRequest}))
	assert.False(t, IsNotFound(errors.New("x")))
}
