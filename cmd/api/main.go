package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	_ "github.com/jeovahfialho/trade-journal/docs"
	"github.com/jeovahfialho/trade-journal/internal/api"
	"github.com/jeovahfialho/trade-journal/internal/config"
	"github.com/jeovahfialho/trade-journal/internal/ingestion"
	"github.com/jeovahfialho/trade-journal/internal/service"
	"github.com/jeovahfialho/trade-journal/internal/storage/cache"
	"github.com/jeovahfialho/trade-journal/internal/storage/postgres"
	"github.com/jeovahfialho/trade-journal/pkg/logger"
)

// @title Trade Journal API
// @version 1.0
// @description Trade journal backend: trades, summary statistics and CSV import.

// @host localhost:8000
// @BasePath /api
// @schemes http https
func main() {
	cfg := config.Load()

	if err := logger.Init(cfg.LogLevel, cfg.Development()); err != nil {
		log.Fatal("init logger:", err)
	}
	defer logger.Close()

	db, err := connectPostgres(cfg)
	if err != nil {
		logger.Fatal("postgres unavailable", zap.Error(err))
	}
	defer db.Close()

	store := connectCache(cfg)
	defer store.Close()

	summaries := service.NewSummaryService(db.Pool(), store, cfg.CacheTTL)
	trades := service.NewTradeService(db.Pool(), summaries.Invalidate)

	parser := ingestion.NewParser(cfg.BatchSize, cfg.Workers)
	loader := ingestion.NewBulkLoader(db.Pool(), cfg.BatchSize)
	imports := service.NewIngestionService(parser, loader, summaries.Invalidate)

	handler := api.NewHandler(trades, summaries, imports, map[string]api.HealthChecker{
		"database": db,
		"cache":    store,
	})

	app := fiber.New(fiber.Config{
		ServerHeader:            "Trade-Journal",
		AppName:                 "Trade Journal API v1.0.0",
		ReadTimeout:             cfg.APIReadTimeout,
		WriteTimeout:            cfg.APIWriteTimeout,
		IdleTimeout:             120 * time.Second,
		ProxyHeader:             "X-Forwarded-For",
		EnableTrustedProxyCheck: true,
		BodyLimit:               10 * 1024 * 1024,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	api.SetupRoutes(app, handler)

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		logger.Info("shutting down api")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			logger.Error("shutdown", zap.Error(err))
		}
	}()

	addr := fmt.Sprintf("%s:%s", cfg.APIHost, cfg.APIPort)
	logger.Info("api listening", zap.String("addr", addr))
	if err := app.Listen(addr); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}

func connectPostgres(cfg *config.Config) (*postgres.DB, error) {
	db, err := postgres.NewDB(cfg)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("connected to postgres")
	return db, nil
}

// connectCache prefers Redis and falls back to an in-process cache.
func connectCache(cfg *config.Config) cache.Cache {
	redisCache, err := cache.NewRedisCache(cfg)
	if err == nil {
		logger.Info("connected to redis")
		return redisCache
	}
	logger.Warn("redis unavailable, using in-process cache", zap.Error(err))

	local, err := cache.NewLocalCache(cfg.LocalCacheMaxCost, cfg.CacheTTL)
	if err != nil {
		logger.Fatal("init local cache", zap.Error(err))
	}
	return local
}
