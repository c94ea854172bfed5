package api

import (
	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"github.com/jeovahfialho/trade-journal/pkg/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const requestsPerMinute = 300

func SetupRoutes(app *fiber.App, handler *Handler) {
	app.Use(middleware.RequestID())
	app.Use(middleware.ErrorHandler())

	// No rate limiting on probes, metrics and docs.
	app.Get("/health", handler.HealthCheck)
	app.Get("/ready", handler.ReadinessCheck)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	app.Get("/swagger/*", swagger.HandlerDefault)

	v := app.Group("/api")
	v.Use(middleware.RateLimiter(requestsPerMinute))
	v.Use(middleware.Prometheus())

	v.Get("/trades", handler.ListTrades)
	v.Put("/trades/:id", handler.UpdateTrade)
	v.Delete("/trades/:id", handler.DeleteTrade)
	v.Post("/add-trade", handler.AddTrade)
	v.Post("/upload-csv", handler.UploadCSV)

	v.Get("/summary", handler.GetSummary)
	v.Get("/equity", handler.GetEquity)
}
