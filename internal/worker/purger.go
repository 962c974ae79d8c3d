package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// ExpiredSessionPurger deletes denylist rows whose tokens have expired.
type ExpiredSessionPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

type Metrics interface {
	ObservePurge(rows int64, err error)
}

type Config struct {
	Interval   time.Duration
	RunTimeout time.Duration
	MaxBackoff time.Duration
}

// Purger keeps the revoked_sessions table bounded. The guard already ignores
// expired rows, so a missed run only costs disk.
type Purger struct {
	cfg     Config
	repo    ExpiredSessionPurger
	metrics Metrics
	log     *slog.Logger

	readyMu sync.RWMutex
	ready   bool
	fails   int
}

// New builds a purger. metrics may be nil.
func New(cfg Config, repo ExpiredSessionPurger, metrics Metrics, log *slog.Logger) *Purger {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = 30 * time.Second
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 5 * time.Minute
	}
	if log == nil {
		log = slog.Default()
	}

	return &Purger{cfg: cfg, repo: repo, metrics: metrics, log: log}
}

// RunOnce purges once and returns the number of rows removed.
func (p *Purger) RunOnce(ctx context.Context) (int64, error) {
	cctx, cancel := context.WithTimeout(ctx, p.cfg.RunTimeout)
	defer cancel()

	n, err := p.repo.PurgeExpired(cctx)
	if p.metrics != nil {
		p.metrics.ObservePurge(n, err)
	}
	if err != nil {
		p.fails++
		p.setReady(false)
		return 0, err
	}

	p.fails = 0
	p.setReady(true)
	return n, nil
}

// Run purges on every tick until ctx is cancelled. After a failure the next
// attempt is pulled in with exponential backoff, never later than Interval.
func (p *Purger) Run(ctx context.Context) error {
	p.setReady(true)
	defer p.setReady(false)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			p.log.Info("purger received shutdown signal")
			return nil

		case <-timer.C:
			next := p.cfg.Interval

			n, err := p.RunOnce(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				next = ExponentialBackoff(p.fails-1, 2*time.Second, p.cfg.MaxBackoff)
				if next > p.cfg.Interval {
					next = p.cfg.Interval
				}
				p.log.Error("purge expired sessions failed", "err", err, "attempt", p.fails, "retry_in", next.String())
			} else if n > 0 {
				p.log.Info("purged expired sessions", "rows", n)
			}

			timer.Reset(next)
		}
	}
}

func (p *Purger) Ready() bool {
	p.readyMu.RLock()
	defer p.readyMu.RUnlock()
	return p.ready
}

func (p *Purger) setReady(v bool) {
	p.readyMu.Lock()
	p.ready = v
	p.readyMu.Unlock()
}
