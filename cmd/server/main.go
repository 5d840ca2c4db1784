// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/rockps/rockps/internal/account"
	"github.com/rockps/rockps/internal/auth"
	"github.com/rockps/rockps/internal/cache"
	"github.com/rockps/rockps/internal/config"
	"github.com/rockps/rockps/internal/database"
	"github.com/rockps/rockps/internal/events"
	"github.com/rockps/rockps/internal/handlers"
	"github.com/rockps/rockps/internal/match"
	"github.com/rockps/rockps/internal/store"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// shutdownGrace is how long in-flight requests get after a signal.
const shutdownGrace = 10 * time.Second

func main() {
	logger := logrus.New()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("config: %v", err)
	}
	logger.SetLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatalf("server exited: %v", err)
	}
	logger.Info("server stopped")
}

func run(ctx context.Context, cfg config.Config, logger *logrus.Logger) error {
	var st store.Store
	switch cfg.StoreBackend {
	case "memory":
		logger.Warn("using in-memory store; state is lost on restart")
		st = store.NewMemory()
	default:
		pool, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()
		if err := database.Migrate(ctx, pool); err != nil {
			return err
		}
		logger.Info("connected to postgres")
		st = database.NewStore(pool)
	}

	var (
		pub events.Publisher
		sub events.Subscriber
	)
	switch cfg.EventsBackend {
	case "memory":
		hub := events.NewHub()
		pub, sub = hub, hub
	default:
		rdb, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			return err
		}
		defer rdb.Close()
		ev := cache.NewEvents(rdb, cfg.HistoryQueue, logger)
		pub, sub = ev, ev
		logger.WithField("addr", cfg.RedisAddr).Info("connected to redis")
	}

	issuer, err := newIssuer(cfg)
	if err != nil {
		return err
	}

	api := &handlers.APIServer{
		Match:    match.NewService(st, pub, logger, match.WithMaxRounds(cfg.MaxRounds)),
		Accounts: account.NewService(st, issuer, auth.DefaultParams(), logger),
		Events:   sub,
		Logger:   logger,
	}

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      api.Routes(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infof("Running on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// newIssuer loads the signing keys if configured, else generates ephemeral ones.
func newIssuer(cfg config.Config) (*auth.Issuer, error) {
	if cfg.PrivateKeyPath != "" && cfg.PublicKeyPath != "" {
		return auth.NewIssuerFromFiles(cfg.PrivateKeyPath, cfg.PublicKeyPath, cfg.TokenTTL)
	}
	return auth.NewIssuer(cfg.TokenTTL)
}
