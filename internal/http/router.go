package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/geocoder89/videochat/internal/cache"
	"github.com/geocoder89/videochat/internal/config"
	"github.com/geocoder89/videochat/internal/domain/video"
	"github.com/geocoder89/videochat/internal/http/handlers"
	"github.com/geocoder89/videochat/internal/http/middlewares"
	"github.com/geocoder89/videochat/internal/observability"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

type AuthService interface {
	handlers.Authenticator
	handlers.Registrar
}

// SessionTokens verifies session tokens and reports how long they live, so
// the cookie never outlasts the token inside it.
type SessionTokens interface {
	middlewares.TokenVerifier
	TTL() time.Duration
}

// Deps is everything the router wires into handlers. Revocations, Prom,
// Metrics and the Checks entries are optional.
type Deps struct {
	Auth        AuthService
	Tokens      SessionTokens
	Revocations middlewares.RevocationChecker
	Users       handlers.UserStore
	Videos      handlers.VideoReader
	VideoCache  *cache.Cache[[]video.Video]

	Prom    *observability.Prom
	Metrics prometheus.Gatherer
	Checks  map[string]handlers.Pinger
}

func NewRouter(log *slog.Logger, cfg config.Config, deps Deps) *gin.Engine {
	if cfg.Env != "dev" && cfg.Env != "test" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// middleware
	r.Use(middlewares.RequestID())
	r.Use(middlewares.Recovery(log))
	if cfg.OTelEnabled {
		r.Use(otelgin.Middleware(observability.ServiceName))
	}
	if deps.Prom != nil {
		r.Use(deps.Prom.GinHandleMiddleware())
	}
	r.Use(middlewares.RequestLogger(log))
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(cfg.CORSAllowedOrigins))
	r.Use(middlewares.MaxBodyBytes(cfg.MaxBodyBytes))

	health := handlers.NewHealthHandler(deps.Checks)
	r.GET("/healthz", health.Healthz)
	r.GET("/readyz", health.Readyz)

	if deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Metrics, promhttp.HandlerOpts{})))
	}

	var guardMetrics middlewares.GuardMetrics
	var loginMetrics handlers.LoginMetrics
	if deps.Prom != nil {
		guardMetrics = deps.Prom
		loginMetrics = deps.Prom
	}

	guard := middlewares.NewSessionGuard(deps.Tokens, cfg.SessionCookieName, deps.Revocations, guardMetrics, log)
	requireAuth := guard.RequireAuth()

	authHandler := handlers.NewAuthHandler(deps.Auth, handlers.CookieConfig{
		Name:   cfg.SessionCookieName,
		Domain: cfg.SessionCookieDomain,
		Secure: cfg.SessionCookieSecure,
		MaxAge: deps.Tokens.TTL(),
	}, loginMetrics, log)
	usersHandler := handlers.NewUsersHandler(deps.Auth, deps.Users, deps.VideoCache, log)
	videosHandler := handlers.NewVideosHandler(deps.Videos, deps.VideoCache, log)

	api := r.Group("/api")
	api.Use(middlewares.RequireJSON())

	api.POST("/login", authHandler.Login)
	api.POST("/logout", authHandler.Logout)
	api.GET("/auth/me", requireAuth, authHandler.Me)

	api.POST("/user", usersHandler.Register)
	protected := api.Group("", requireAuth)
	{
		protected.GET("/user", usersHandler.List)
		protected.GET("/user/:id", usersHandler.Get)
		protected.PUT("/user/:id", usersHandler.Update)
		protected.DELETE("/user/:id", usersHandler.Delete)

		protected.GET("/videos", videosHandler.List)
		protected.GET("/videos/:videoId", videosHandler.Get)
	}

	r.NoRoute(func(c *gin.Context) {
		handlers.RespondError(c, http.StatusNotFound, "not_found", "Route not found", nil)
	})

	return r
}
