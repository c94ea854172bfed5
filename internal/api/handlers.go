package api

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jeovahfialho/trade-journal/internal/domain"
	"github.com/jeovahfialho/trade-journal/internal/ingestion"
	"github.com/jeovahfialho/trade-journal/internal/service"
	"github.com/jeovahfialho/trade-journal/pkg/logger"
	"github.com/jeovahfialho/trade-journal/pkg/middleware"
	"go.uber.org/zap"
)

const version = "1.0.0"

// TradeStore is the trade repository behind the CRUD routes.
type TradeStore interface {
	List(ctx context.Context) ([]domain.Trade, error)
	Create(ctx context.Context, in domain.NewTrade) (*domain.Trade, error)
	Update(ctx context.Context, patch domain.TradePatch) (*domain.Trade, error)
	Delete(ctx context.Context, id int64) error
}

type SummaryProvider interface {
	Summary(ctx context.Context) (*domain.Summary, error)
	Equity(ctx context.Context) ([]domain.EquityPoint, error)
}

type Importer interface {
	Import(ctx context.Context, r io.Reader) (*service.ImportResult, error)
}

// HealthChecker is anything /ready should probe, e.g. the database or the cache.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

type Handler struct {
	trades    TradeStore
	summaries SummaryProvider
	importer  Importer
	checks    map[string]HealthChecker
}

func NewHandler(trades TradeStore, summaries SummaryProvider, importer Importer, checks map[string]HealthChecker) *Handler {
	return &Handler{
		trades:    trades,
		summaries: summaries,
		importer:  importer,
		checks:    checks,
	}
}

func (h *Handler) ListTrades(c *fiber.Ctx) error {
	trades, err := h.trades.List(c.UserContext())
	if err != nil {
		return h.internal(c, "Failed to list trades", err)
	}
	return c.JSON(trades)
}

func (h *Handler) GetSummary(c *fiber.Ctx) error {
	summary, err := h.summaries.Summary(c.UserContext())
	if err != nil {
		return h.internal(c, "Failed to compute summary", err)
	}
	return c.JSON(summary)
}

func (h *Handler) GetEquity(c *fiber.Ctx) error {
	points, err := h.summaries.Equity(c.UserContext())
	if err != nil {
		return h.internal(c, "Failed to compute equity curve", err)
	}
	return c.JSON(points)
}

func (h *Handler) AddTrade(c *fiber.Ctx) error {
	var in domain.NewTrade
	if err := c.BodyParser(&in); err != nil {
		return middleware.Fail(c, fiber.StatusBadRequest, "Invalid request body", err.Error())
	}

	trade, err := h.trades.Create(c.UserContext(), in)
	if err != nil {
		return h.writeError(c, "Failed to add trade", err)
	}
	return c.Status(fiber.StatusCreated).JSON(trade)
}

func (h *Handler) UpdateTrade(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return middleware.Fail(c, fiber.StatusBadRequest, "Invalid trade id", c.Params("id"))
	}

	var patch domain.TradePatch
	if err := c.BodyParser(&patch); err != nil {
		return middleware.Fail(c, fiber.StatusBadRequest, "Invalid request body", err.Error())
	}
	patch.ID = int64(id)

	trade, err := h.trades.Update(c.UserContext(), patch)
	if err != nil {
		return h.writeError(c, "Failed to update trade", err)
	}
	return c.JSON(trade)
}

func (h *Handler) DeleteTrade(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return middleware.Fail(c, fiber.StatusBadRequest, "Invalid trade id", c.Params("id"))
	}

	if err := h.trades.Delete(c.UserContext(), int64(id)); err != nil {
		return h.writeError(c, "Failed to delete trade", err)
	}
	return c.JSON(StatusResponse{Status: "deleted"})
}

func (h *Handler) UploadCSV(c *fiber.Ctx) error {
	header, err := c.FormFile("file")
	if err != nil {
		return middleware.Fail(c, fiber.StatusBadRequest, "No file uploaded", "multipart field \"file\" is required")
	}

	f, err := header.Open()
	if err != nil {
		return h.internal(c, "Failed to read upload", err)
	}
	defer f.Close()

	res, err := h.importer.Import(c.UserContext(), f)
	if err != nil {
		if errors.Is(err, ingestion.ErrMissingColumns) {
			return middleware.Fail(c, fiber.StatusBadRequest, "Invalid CSV", err.Error())
		}
		return h.internal(c, "Failed to import CSV", err)
	}

	logger.WithContext(c.UserContext()).Info("upload processed",
		zap.String("file", header.Filename),
		zap.Int("imported", res.Imported),
		zap.Int("skipped", res.Skipped))
	return c.JSON(res)
}

func (h *Handler) HealthCheck(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{
		Status:    "healthy",
		Version:   version,
		Timestamp: time.Now(),
	})
}

func (h *Handler) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	services := make(map[string]ServiceHealth, len(h.checks))
	status := "ready"
	for name, check := range h.checks {
		start := time.Now()
		if err := check.HealthCheck(ctx); err != nil {
			services[name] = ServiceHealth{Status: "unhealthy", Error: err.Error()}
			status = "not_ready"
			continue
		}
		services[name] = ServiceHealth{Status: "healthy", Latency: time.Since(start).String()}
	}

	response := HealthResponse{
		Status:    status,
		Version:   version,
		Timestamp: time.Now(),
		Services:  services,
	}
	if status != "ready" {
		return c.Status(fiber.StatusServiceUnavailable).JSON(response)
	}
	return c.JSON(response)
}

// writeError maps service errors onto HTTP statuses.
func (h *Handler) writeError(c *fiber.Ctx, msg string, err error) error {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return middleware.Fail(c, fiber.StatusNotFound, "Trade not found", err.Error())
	case errors.Is(err, domain.ErrInvalidTrade):
		return middleware.Fail(c, fiber.StatusBadRequest, msg, err.Error())
	default:
		return h.internal(c, msg, err)
	}
}

func (h *Handler) internal(c *fiber.Ctx, msg string, err error) error {
	logger.WithContext(c.UserContext()).Error(msg, zap.Error(err))
	return middleware.Fail(c, fiber.StatusInternalServerError, msg, "")
}
