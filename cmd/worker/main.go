package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/geocoder89/videochat/internal/config"
	"github.com/geocoder89/videochat/internal/db"
	"github.com/geocoder89/videochat/internal/observability"
	"github.com/geocoder89/videochat/internal/repo/postgres"
	"github.com/geocoder89/videochat/internal/worker"
	"github.com/joho/godotenv"
)

// The worker purges expired rows from revoked_sessions for deployments that
// run it apart from the API.
func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration:\n%v\n", err)
		os.Exit(1)
	}

	log := observability.NewLogger(cfg.Env).With("component", "purger")
	slog.SetDefault(log)

	if cfg.Store != config.StorePostgres {
		log.Error("worker needs STORE=postgres", "store", cfg.Store)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(cfg.DBURL, cfg.DBMaxConns)
	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		log.Error("migrate failed", "err", err)
		os.Exit(1)
	}

	repo := postgres.NewRevokedSessionsRepo(pool, nil)
	p := worker.New(worker.Config{Interval: cfg.PurgeInterval}, repo, nil, log)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.WorkerPort),
		Handler:           p.HealthHandler(pool),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("health server failed", "err", err)
		}
	}()

	log.Info("worker has started", "interval", cfg.PurgeInterval.String(), "port", cfg.WorkerPort)

	if err := p.Run(ctx); err != nil {
		log.Error("worker stopped with error", "err", err)
	}

	sctx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()
	_ = srv.Shutdown(sctx)

	log.Info("worker shutdown complete")
}
