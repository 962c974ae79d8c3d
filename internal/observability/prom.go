package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

type Prom struct {
	RequestsTotal    *prometheus.CounterVec
	RequestsDuration *prometheus.HistogramVec
	InFlight         *prometheus.GaugeVec
	// DB
	DbQueryDuration *prometheus.HistogramVec
	DbErrorsTotal   *prometheus.CounterVec

	// Auth
	LoginAttempts   *prometheus.CounterVec
	GuardRejections *prometheus.CounterVec

	// Revocation purge
	PurgeRuns    *prometheus.CounterVec
	PurgedTokens prometheus.Counter
}

func NewProm(reg prometheus.Registerer) *Prom {
	p := &Prom{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "videochat",
				Name:      "http_requests_total",
				Help:      "Total HTTP requests processed",
			},
			[]string{"method", "route", "status"},
		),
		RequestsDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "videochat",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency distributions.",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"method", "route", "status"},
		),
		InFlight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "videochat",
				Name:      "http_in_flight_requests",
				Help:      "Current number of in-flight HTTP requests.",
			},
			[]string{"method", "route"},
		),
		DbQueryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "videochat",
				Subsystem: "db",
				Name:      "query_duration_seconds",
				Help:      "DB operation latency (logical op, not raw SQL)",
				Buckets:   []float64{0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.35, 0.5, 1, 2, 5},
			},
			[]string{"op", "status"},
		),
		DbErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "videochat",
				Subsystem: "db",
				Name:      "errors_total",
				Help:      "DB errors by logical op and class.",
			},
			[]string{"op", "class"},
		),
		LoginAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "videochat",
				Subsystem: "auth",
				Name:      "login_attempts_total",
				Help:      "Login attempts by outcome.",
			},
			[]string{"result"}, // success|invalid_credentials|invalid_request|error
		),
		GuardRejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "videochat",
				Subsystem: "auth",
				Name:      "guard_rejections_total",
				Help:      "Requests rejected by the session guard, by reason.",
			},
			[]string{"reason"},
		),
		PurgeRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "videochat",
				Subsystem: "revocation",
				Name:      "purge_runs_total",
				Help:      "Expired revocation purges by outcome.",
			},
			[]string{"result"},
		),
		PurgedTokens: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "videochat",
				Subsystem: "revocation",
				Name:      "purged_tokens_total",
				Help:      "Expired revoked-token rows deleted.",
			},
		),
	}
	reg.MustRegister(p.RequestsTotal, p.RequestsDuration, p.InFlight, p.DbQueryDuration, p.DbErrorsTotal,
		p.LoginAttempts, p.GuardRejections, p.PurgeRuns, p.PurgedTokens)

	return p
}

func (p *Prom) GinHandleMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()

		// route template is only available after routing; best effort:
		route := ctx.FullPath()

		if route == "" {
			route = "unmatched"
		}

		method := ctx.Request.Method
		p.InFlight.WithLabelValues(method, route).Inc()
		defer p.InFlight.WithLabelValues(method, route).Dec()
		ctx.Next()

		status := strconv.Itoa(ctx.Writer.Status())
		secs := time.Since(start).Seconds()

		p.RequestsTotal.WithLabelValues(method, route, status).Inc()
		p.RequestsDuration.WithLabelValues(method, route, status).Observe(secs)
	}
}

// ObserveLogin counts a login outcome. Safe on a nil receiver.
func (p *Prom) ObserveLogin(result string) {
	if p == nil {
		return
	}
	p.LoginAttempts.WithLabelValues(result).Inc()
}

// ObserveGuardRejection counts a guard rejection. Safe on a nil receiver.
func (p *Prom) ObserveGuardRejection(reason string) {
	if p == nil {
		return
	}
	p.GuardRejections.WithLabelValues(reason).Inc()
}

// ObservePurge records one purge run. Safe on a nil receiver.
func (p *Prom) ObservePurge(rows int64, err error) {
	if p == nil {
		return
	}
	if err != nil {
		p.PurgeRuns.WithLabelValues("error").Inc()
		return
	}
	p.PurgeRuns.WithLabelValues("ok").Inc()
	p.PurgedTokens.Add(float64(rows))
}
