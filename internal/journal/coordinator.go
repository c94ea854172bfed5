package journal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jeovahfialho/trade-journal/internal/client"
	"github.com/jeovahfialho/trade-journal/internal/domain"
	"github.com/jeovahfialho/trade-journal/internal/table"
	"github.com/jeovahfialho/trade-journal/pkg/logger"
	"github.com/jeovahfialho/trade-journal/pkg/metrics"
	"go.uber.org/zap"
)

// TradeAPI is the part of the trades API the coordinator drives. *client.Client satisfies it.
type TradeAPI interface {
	ListTrades(ctx context.Context) ([]domain.Trade, error)
	AddTrade(ctx context.Context, in domain.NewTrade) (*domain.Trade, error)
	UpdateTrade(ctx context.Context, patch domain.TradePatch) (*domain.Trade, error)
	DeleteTrade(ctx context.Context, id int64) error
	ImportCSV(ctx context.Context, filename string, r io.Reader) (*client.ImportResult, error)
}

var (
	ErrBusy      = errors.New("another change is still in flight")
	ErrNoFile    = errors.New("no CSV file selected")
	ErrNotLoaded = errors.New("trade is not in the loaded list")
)

// Confirmer is the yes/no gate in front of destructive actions.
type Confirmer interface {
	Confirm(prompt string) bool
}

type ConfirmFunc func(prompt string) bool

func (f ConfirmFunc) Confirm(prompt string) bool { return f(prompt) }

// Approve and Decline are fixed answers, used where the caller already asked.
var (
	Approve = ConfirmFunc(func(string) bool { return true })
	Decline = ConfirmFunc(func(string) bool { return false })
)

type StatusKind string

const (
	StatusNone    StatusKind = ""
	StatusSuccess StatusKind = "success"
	StatusError   StatusKind = "error"
)

// Status is the transient message shown after an action.
type Status struct {
	Kind    StatusKind `json:"kind"`
	Message string     `json:"message"`
	At      time.Time  `json:"at"`
}

// Coordinator sequences mutations against the API and re-fetches the list after each
// success. One mutation may be in flight at a time.
type Coordinator struct {
	api  TradeAPI
	view *table.State
	log  *zap.Logger
	now  func() time.Time

	busy   atomic.Bool
	closed atomic.Bool

	mu       sync.Mutex
	selected *domain.Trade
	editing  *domain.Trade
	form     Form
	status   Status
}

type Option func(*Coordinator)

// WithClock replaces time.Now for timestamps on new trades and statuses.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		c.now = now
	}
}

func NewCoordinator(api TradeAPI, view *table.State, opts ...Option) *Coordinator {
	c := &Coordinator{
		api:  api,
		view: view,
		log:  logger.Named("journal"),
		now:  time.Now,
		form: EmptyForm(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Coordinator) View() *table.State { return c.view }

// Busy reports whether a mutation is in flight.
func (c *Coordinator) Busy() bool { return c.busy.Load() }

func (c *Coordinator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// TakeStatus returns the current message and clears it, so each message is shown once.
func (c *Coordinator) TakeStatus() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.status
	c.status = Status{}
	return st
}

// ClearStatus dismisses the current message.
func (c *Coordinator) ClearStatus() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = Status{}
}

// Form returns the add-trade form as last submitted; it is reset after a successful create.
func (c *Coordinator) Form() Form {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.form
}

// Close disposes the coordinator. Responses that arrive afterwards are dropped.
func (c *Coordinator) Close() {
	c.closed.Store(true)
}

// Refresh re-fetches the full list and replaces the table contents. Overlapping refreshes
// are not fenced: whichever response lands last is what the table shows.
func (c *Coordinator) Refresh(ctx context.Context) error {
	trades, err := c.api.ListTrades(ctx)
	if c.closed.Load() {
		return nil
	}
	if err != nil {
		c.fail(client.Message(err, "Failed to load trades."))
		return err
	}
	c.view.Replace(trades)
	c.log.Debug("trades loaded", zap.Int("count", len(trades)))
	return nil
}

// Delete asks confirm first. A declined confirmation returns (false, nil) without calling
// the API. On success the list is re-fetched and any modal showing the trade is closed.
func (c *Coordinator) Delete(ctx context.Context, id int64, confirm Confirmer) (bool, error) {
	if confirm == nil || !confirm.Confirm(fmt.Sprintf("Delete trade %d?", id)) {
		return false, nil
	}
	if err := c.begin(); err != nil {
		return false, err
	}
	defer c.end()

	err := c.api.DeleteTrade(ctx, id)
	metrics.RecordMutation("delete", err)
	if c.closed.Load() {
		return err == nil, err
	}
	if err != nil {
		c.fail("Delete failed: " + client.Message(err, "Failed to delete trade."))
		return false, err
	}

	c.mu.Lock()
	if c.selected != nil && c.selected.ID == id {
		c.selected = nil
	}
	if c.editing != nil && c.editing.ID == id {
		c.editing = nil
	}
	c.mu.Unlock()

	c.log.Info("trade deleted", zap.Int64("id", id))
	if err := c.Refresh(ctx); err != nil {
		return true, fmt.Errorf("refresh after delete: %w", err)
	}
	c.succeed(fmt.Sprintf("Trade %d deleted.", id))
	return true, nil
}

// Update sends patch. On failure the edit modal stays open so the user can retry.
func (c *Coordinator) Update(ctx context.Context, patch domain.TradePatch) (*domain.Trade, error) {
	if err := c.begin(); err != nil {
		return nil, err
	}
	defer c.end()

	updated, err := c.api.UpdateTrade(ctx, patch)
	metrics.RecordMutation("update", err)
	if c.closed.Load() {
		return updated, err
	}
	if err != nil {
		c.fail("Save failed: " + client.Message(err, "Failed to update trade."))
		return nil, err
	}

	c.mu.Lock()
	c.editing = nil
	c.mu.Unlock()

	c.log.Info("trade updated", zap.Int64("id", patch.ID))
	if err := c.Refresh(ctx); err != nil {
		return updated, fmt.Errorf("refresh after update: %w", err)
	}
	c.succeed(fmt.Sprintf("Trade %d saved.", patch.ID))
	return updated, nil
}

// Create validates form locally, then submits it. Validation failures never reach the API.
// The form is kept on failure and reset on success.
func (c *Coordinator) Create(ctx context.Context, form Form) (*domain.Trade, error) {
	c.mu.Lock()
	c.form = form
	c.mu.Unlock()

	in, err := form.Trade(c.now())
	if err != nil {
		c.fail(err.Error())
		return nil, err
	}

	if err := c.begin(); err != nil {
		return nil, err
	}
	defer c.end()

	created, err := c.api.AddTrade(ctx, in)
	metrics.RecordMutation("create", err)
	if c.closed.Load() {
		return created, err
	}
	if err != nil {
		c.fail("Failed to add trade: " + client.Message(err, "unknown error"))
		return nil, err
	}

	c.mu.Lock()
	c.form = EmptyForm()
	c.mu.Unlock()

	c.log.Info("trade added", zap.String("symbol", in.Symbol))
	if err := c.Refresh(ctx); err != nil {
		return created, fmt.Errorf("refresh after create: %w", err)
	}
	c.succeed("Trade added successfully!")
	return created, nil
}

// Import uploads a CSV file of trades and re-fetches the list.
func (c *Coordinator) Import(ctx context.Context, filename string, r io.Reader) (*client.ImportResult, error) {
	if r == nil || filename == "" {
		c.fail("Please select a CSV file.")
		return nil, ErrNoFile
	}
	if err := c.begin(); err != nil {
		return nil, err
	}
	defer c.end()

	res, err := c.api.ImportCSV(ctx, filename, r)
	metrics.RecordMutation("import", err)
	if c.closed.Load() {
		return res, err
	}
	if err != nil {
		c.fail("Upload failed: " + client.Message(err, "Failed to upload CSV."))
		return nil, err
	}

	c.log.Info("trades imported", zap.String("file", filename), zap.Int("imported", res.Imported))
	if err := c.Refresh(ctx); err != nil {
		return res, fmt.Errorf("refresh after import: %w", err)
	}
	msg := fmt.Sprintf("Successfully imported %d trades.", res.Imported)
	if res.Skipped > 0 {
		msg += fmt.Sprintf(" %d rows skipped.", res.Skipped)
	}
	c.succeed(msg)
	return res, nil
}

// Open shows the detail modal for a loaded trade.
func (c *Coordinator) Open(id int64) (domain.Trade, error) {
	t, ok := c.view.Find(id)
	if !ok {
		return domain.Trade{}, ErrNotLoaded
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selected = &t
	return t, nil
}

// Edit opens the edit modal for a loaded trade.
func (c *Coordinator) Edit(id int64) (domain.Trade, error) {
	t, ok := c.view.Find(id)
	if !ok {
		return domain.Trade{}, ErrNotLoaded
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.editing = &t
	return t, nil
}

func (c *Coordinator) CloseModals() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selected = nil
	c.editing = nil
}

// Selected is the trade in the detail modal, if open.
func (c *Coordinator) Selected() (domain.Trade, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.selected == nil {
		return domain.Trade{}, false
	}
	return *c.selected, true
}

// Editing is the trade in the edit modal, if open.
func (c *Coordinator) Editing() (domain.Trade, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.editing == nil {
		return domain.Trade{}, false
	}
	return *c.editing, true
}

func (c *Coordinator) begin() error {
	if c.closed.Load() {
		return errors.New("coordinator closed")
	}
	if !c.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	return nil
}

func (c *Coordinator) end() {
	c.busy.Store(false)
}

func (c *Coordinator) fail(msg string) {
	c.setStatus(StatusError, msg)
	c.log.Warn("action failed", zap.String("message", msg))
}

func (c *Coordinator) succeed(msg string) {
	c.setStatus(StatusSuccess, msg)
}

func (c *Coordinator) setStatus(kind StatusKind, msg string) {
	if c.closed.Load() {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = Status{Kind: kind, Message: msg, At: c.now()}
}
