// cmd/historian/main.go is an asynchronous historian service that pops lobby events from a Redis queue and persists them to PostgreSQL.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
	"github.com/rockps/rockps/internal/cache"
	"github.com/rockps/rockps/internal/config"
	"github.com/rockps/rockps/internal/database"
	"github.com/rockps/rockps/internal/historian"
	"github.com/sirupsen/logrus"
)

func main() {
	logger := logrus.New()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("config: %v", err)
	}
	logger.SetLevel(cfg.LogLevel)
	if cfg.StoreBackend != "postgres" || cfg.EventsBackend != "redis" {
		logger.Fatal("historian needs STORE_BACKEND=postgres and EVENTS_BACKEND=redis")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("postgres: %v", err)
	}
	defer pool.Close()
	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatalf("migrate: %v", err)
	}

	rdb, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		logger.Fatalf("redis: %v", err)
	}
	defer rdb.Close()

	hs := historian.NewService(
		cache.NewQueue(rdb, cfg.HistoryQueue),
		database.NewStore(pool),
		cfg.HistorianBatchSize,
		cfg.HistorianFlush,
		logger,
	)
	if err := hs.Run(ctx); err != nil {
		logger.Errorf("historian: %v", err)
	}
	logger.Info("Historian shutdown complete.")
}
