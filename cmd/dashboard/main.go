package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/jeovahfialho/trade-journal/internal/client"
	"github.com/jeovahfialho/trade-journal/internal/config"
	"github.com/jeovahfialho/trade-journal/internal/dashboard"
	"github.com/jeovahfialho/trade-journal/internal/journal"
	"github.com/jeovahfialho/trade-journal/internal/table"
	"github.com/jeovahfialho/trade-journal/pkg/logger"
)

func main() {
	cfg := config.Load()

	if err := logger.Init(cfg.LogLevel, cfg.Development()); err != nil {
		log.Fatal("init logger:", err)
	}
	defer logger.Close()

	api := client.New(cfg.APIURL)
	coord := journal.NewCoordinator(api, table.NewState(cfg.DefaultPageSize))
	defer coord.Close()

	// The dashboard still starts when the API is down; the page shows the error.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := coord.Refresh(ctx); err != nil {
		logger.Warn("initial load failed", zap.String("api", api.BaseURL()), zap.Error(err))
	}
	cancel()

	appCfg := dashboard.AppConfig()
	appCfg.ReadTimeout = cfg.APIReadTimeout
	appCfg.WriteTimeout = cfg.APIWriteTimeout
	app := fiber.New(appCfg)
	app.Use(recover.New())
	app.Use(compress.New(compress.Config{Level: compress.LevelBestSpeed}))

	if cfg.MetricsEnabled {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	}
	dashboard.New(coord, api).Routes(app)

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		logger.Info("shutting down dashboard")
		if err := app.ShutdownWithTimeout(5 * time.Second); err != nil {
			logger.Error("shutdown", zap.Error(err))
		}
	}()

	addr := ":" + cfg.DashboardPort
	logger.Info("dashboard listening", zap.String("addr", addr), zap.String("api", api.BaseURL()))
	if err := app.Listen(addr); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
