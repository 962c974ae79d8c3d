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

	"github.com/geocoder89/videochat/internal/auth"
	"github.com/geocoder89/videochat/internal/cache"
	"github.com/geocoder89/videochat/internal/config"
	"github.com/geocoder89/videochat/internal/db"
	"github.com/geocoder89/videochat/internal/domain/video"
	httpx "github.com/geocoder89/videochat/internal/http"
	"github.com/geocoder89/videochat/internal/http/handlers"
	"github.com/geocoder89/videochat/internal/observability"
	"github.com/geocoder89/videochat/internal/redisclient"
	"github.com/geocoder89/videochat/internal/repo/memory"
	"github.com/geocoder89/videochat/internal/repo/postgres"
	redisrepo "github.com/geocoder89/videochat/internal/repo/redis"
	"github.com/geocoder89/videochat/internal/security"
	"github.com/geocoder89/videochat/internal/worker"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const videoListTTL = 30 * time.Second

type userStore interface {
	auth.UserStore
	handlers.UserStore
}

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration:\n%v\n", err)
		os.Exit(1)
	}

	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("api stopped with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := observability.InitTracer(ctx, observability.TracingConfig{
		Enabled:     cfg.OTelEnabled,
		Endpoint:    cfg.OTelEndpoint,
		Environment: cfg.Env,
	})
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}
	defer func() {
		sctx, cancel := config.WithTimeout(5 * time.Second)
		defer cancel()
		_ = shutdownTracer(sctx)
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prom := observability.NewProm(reg)

	checks := map[string]handlers.Pinger{}

	var (
		users   userStore
		videos  handlers.VideoReader
		revoker auth.Revoker
		purger  *worker.Purger
	)

	switch cfg.Store {
	case config.StorePostgres:
		pool, err := db.NewPool(cfg.DBURL, cfg.DBMaxConns)
		if err != nil {
			return fmt.Errorf("db connect: %w", err)
		}
		defer pool.Close()

		if err := db.Migrate(ctx, pool); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}

		checks["postgres"] = pool.Ping
		users = postgres.NewUsersRepo(pool, prom)
		videos = postgres.NewVideosRepo(pool, prom)

		if cfg.SessionRevocation == config.RevocationPostgres {
			revoked := postgres.NewRevokedSessionsRepo(pool, prom)
			revoker = revoked
			purger = worker.New(worker.Config{Interval: cfg.PurgeInterval}, revoked, prom, log)
		}

	default:
		log.Warn("using in-memory store; data is lost on restart")
		users = memory.NewUsersRepo()
		videos = memory.NewVideosRepo()

		if cfg.SessionRevocation == config.RevocationMemory {
			revoker = memory.NewRevocationsRepo()
		}
	}

	if cfg.UsesRedis() {
		rc, err := redisclient.Connect(ctx, redisclient.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return fmt.Errorf("redis connect: %w", err)
		}
		defer rc.Close()

		checks["redis"] = rc.Ping
		revoker = redisrepo.NewRevocationsRepo(rc.Raw())
	}

	hasher, err := security.NewHasher(cfg.BcryptCost)
	if err != nil {
		return err
	}

	tokens, err := auth.NewManager([]byte(cfg.JWTSecret), cfg.SessionTTL)
	if err != nil {
		return err
	}

	svc, err := auth.NewService(users, hasher, tokens, revoker)
	if err != nil {
		return err
	}

	seedCtx, cancelSeed := context.WithTimeout(ctx, 10*time.Second)
	created, err := db.EnsureSeedUser(seedCtx, users, svc, cfg)
	cancelSeed()
	if err != nil {
		return fmt.Errorf("seed user: %w", err)
	}
	if created {
		log.Info("seed user created", "email", cfg.SeedUserEmail)
	}

	deps := httpx.Deps{
		Auth:       svc,
		Tokens:     tokens,
		Users:      users,
		Videos:     videos,
		VideoCache: cache.New[[]video.Video](videoListTTL),
		Prom:       prom,
		Metrics:    reg,
		Checks:     checks,
	}
	if revoker != nil {
		deps.Revocations = revoker
	}

	router := httpx.NewRouter(log, cfg, deps)

	if purger != nil {
		purgeDone := make(chan struct{})
		go func() {
			defer close(purgeDone)
			_ = purger.Run(ctx)
		}()
		// runs before the deferred pool.Close
		defer func() {
			stop()
			<-purgeDone
		}()
	}

	// server set up
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting",
			"port", cfg.Port,
			"env", cfg.Env,
			"store", cfg.Store,
			"revocation", cfg.SessionRevocation,
			"session_ttl", tokens.TTL().String(),
			"bcrypt_cost", hasher.Cost(),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Graceful shutdown
	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("server shutting down")

	sctx, cancel := config.WithTimeout(10 * time.Second)
	defer cancel()

	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	log.Info("shutdown complete")
	return nil
}
