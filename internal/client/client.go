package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/jeovahfialho/trade-journal/internal/domain"
	"github.com/jeovahfialho/trade-journal/pkg/logger"
	"github.com/jeovahfialho/trade-journal/pkg/metrics"
	"go.uber.org/zap"
)

const DefaultBaseURL = "http://localhost:8000"

// Client talks to the trades API. It never retries and sets no timeout of its own;
// deadlines come from the caller's context or the configured http.Client.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// ListTrades fetches every trade in backend order.
func (c *Client) ListTrades(ctx context.Context) ([]domain.Trade, error) {
	var trades []domain.Trade
	if err := c.do(ctx, "list_trades", http.MethodGet, "/api/trades", nil, "", &trades); err != nil {
		return nil, err
	}
	if trades == nil {
		trades = []domain.Trade{}
	}
	return trades, nil
}

func (c *Client) Summary(ctx context.Context) (*domain.Summary, error) {
	var s domain.Summary
	if err := c.do(ctx, "summary", http.MethodGet, "/api/summary", nil, "", &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// AddTrade creates a trade. Backends that answer with a bare acknowledgement yield a nil trade.
func (c *Client) AddTrade(ctx context.Context, in domain.NewTrade) (*domain.Trade, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("encode trade: %w", err)
	}

	var raw json.RawMessage
	if err := c.do(ctx, "add_trade", http.MethodPost, "/api/add-trade", bytes.NewReader(body), "application/json", &raw); err != nil {
		return nil, err
	}
	return decodeOptionalTrade(raw), nil
}

// UpdateTrade replaces the fields set in patch on trade patch.ID.
func (c *Client) UpdateTrade(ctx context.Context, patch domain.TradePatch) (*domain.Trade, error) {
	if patch.ID <= 0 {
		return nil, fmt.Errorf("update trade: invalid id %d", patch.ID)
	}
	body, err := json.Marshal(patch)
	if err != nil {
		return nil, fmt.Errorf("encode trade: %w", err)
	}

	var raw json.RawMessage
	path := fmt.Sprintf("/api/trades/%d", patch.ID)
	if err := c.do(ctx, "update_trade", http.MethodPut, path, bytes.NewReader(body), "application/json", &raw); err != nil {
		return nil, err
	}
	return decodeOptionalTrade(raw), nil
}

func (c *Client) DeleteTrade(ctx context.Context, id int64) error {
	return c.do(ctx, "delete_trade", http.MethodDelete, fmt.Sprintf("/api/trades/%d", id), nil, "", nil)
}

type ImportResult struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped,omitempty"`
}

// ImportCSV uploads r as the multipart field "file".
func (c *Client) ImportCSV(ctx context.Context, filename string, r io.Reader) (*ImportResult, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("read %s: %w", filename, err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart: %w", err)
	}

	var res ImportResult
	if err := c.do(ctx, "upload_csv", http.MethodPost, "/api/upload-csv", &buf, mw.FormDataContentType(), &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Health pings GET /health.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, "health", http.MethodGet, "/health", nil, "", nil)
}

func (c *Client) do(ctx context.Context, op, method, path string, body io.Reader, contentType string, out any) (err error) {
	defer func() { metrics.RecordClientRequest(op, err) }()

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: create request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: execute request: %w", op, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: read response: %w", op, err)
	}

	logger.Debug("api call",
		zap.String("op", op),
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newAPIError(op, resp.StatusCode, data)
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

func decodeOptionalTrade(raw json.RawMessage) *domain.Trade {
	if len(raw) == 0 {
		return nil
	}
	var t domain.Trade
	if err := json.Unmarshal(raw, &t); err != nil || t.ID == 0 {
		return nil
	}
	return &t
}

// APIError is a non-2xx answer from the trades API.
type APIError struct {
	Op     string
	Status int
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: %s (status %d)", e.Op, e.Detail, e.Status)
}

func newAPIError(op string, status int, body []byte) *APIError {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
		Error  string          `json:"error"`
	}

	detail := ""
	if err := json.Unmarshal(body, &payload); err == nil {
		var s string
		switch {
		case len(payload.Detail) > 0 && json.Unmarshal(payload.Detail, &s) == nil && s != "":
			detail = s
		case len(payload.Detail) > 0 && string(payload.Detail) != "null":
			detail = string(payload.Detail)
		case payload.Error != "":
			detail = payload.Error
		}
	}

	return &APIError{Op: op, Status: status, Detail: detail}
}

// Message turns err into text for a status line: the API's detail when there is one,
// otherwise the error text, otherwise fallback.
func Message(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.Detail != "" {
			return apiErr.Detail
		}
		return fallback
	}
	if err != nil && err.Error() != "" {
		return err.Error()
	}
	return fallback
}

// IsNotFound reports a 404 from the API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}
