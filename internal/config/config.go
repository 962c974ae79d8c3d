package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"

	RevocationNone     = "none"
	RevocationMemory   = "memory"
	RevocationRedis    = "redis"
	RevocationPostgres = "postgres"
)

type Config struct {
	Env   string
	Port  int
	Store string

	DBURL      string
	DBMaxConns int32

	// Session token + cookie
	JWTSecret           string
	SessionTTL          time.Duration
	SessionCookieName   string
	SessionCookieSecure bool
	SessionCookieDomain string
	SessionRevocation   string
	PurgeInterval       time.Duration

	BcryptCost int

	CORSAllowedOrigins []string
	MaxBodyBytes       int64

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	OTelEnabled  bool
	OTelEndpoint string

	SeedUserEmail    string
	SeedUserPassword string
	SeedUserName     string

	WorkerPort int
}

// Load reads the process environment. Every bad value is reported, not just the first.
func Load() (Config, error) {
	var errs []error

	cfg := Config{
		Env:   getEnv("APP_ENV", "dev"),
		Port:  getEnvInt("PORT", 8080, &errs),
		Store: strings.ToLower(getEnv("STORE", StorePostgres)),

		DBURL:      getEnv("DATABASE_URL", buildDBURL()),
		DBMaxConns: int32(getEnvInt("DB_MAX_CONNS", 5, &errs)),

		JWTSecret:           os.Getenv("JWT_SECRET"),
		SessionTTL:          time.Duration(getEnvInt("SESSION_TTL_HOURS", 240, &errs)) * time.Hour,
		SessionCookieName:   getEnv("SESSION_COOKIE_NAME", "session"),
		SessionCookieSecure: getEnvBool("SESSION_COOKIE_SECURE", true, &errs),
		SessionCookieDomain: getEnv("SESSION_COOKIE_DOMAIN", ""),
		SessionRevocation:   strings.ToLower(getEnv("SESSION_REVOCATION", RevocationNone)),
		PurgeInterval:       time.Duration(getEnvInt("REVOCATION_PURGE_MINUTES", 60, &errs)) * time.Minute,

		BcryptCost: getEnvInt("BCRYPT_COST", bcrypt.DefaultCost, &errs),

		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173")),
		MaxBodyBytes:       int64(getEnvInt("MAX_BODY_BYTES", 1<<20, &errs)),

		RedisAddr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvInt("REDIS_DB", 0, &errs),

		OTelEnabled:  getEnvBool("OTEL_ENABLED", false, &errs),
		OTelEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),

		SeedUserEmail:    os.Getenv("SEED_USER_EMAIL"),
		SeedUserPassword: os.Getenv("SEED_USER_PASSWORD"),
		SeedUserName:     getEnv("SEED_USER_NAME", "Admin"),

		WorkerPort: getEnvInt("WORKER_PORT", 8081, &errs),
	}

	if err := cfg.Validate(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return Config{}, errors.Join(errs...)
	}

	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error

	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}

	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL_HOURS must be positive"))
	}

	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		errs = append(errs, fmt.Errorf("BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost))
	}

	if c.SessionCookieName == "" {
		errs = append(errs, errors.New("SESSION_COOKIE_NAME must not be empty"))
	}

	switch c.Store {
	case StoreMemory, StorePostgres:
	default:
		errs = append(errs, fmt.Errorf("STORE %q is not one of memory, postgres", c.Store))
	}

	switch c.SessionRevocation {
	case RevocationNone, RevocationRedis:
	case RevocationMemory:
		if c.Store != StoreMemory {
			errs = append(errs, errors.New("SESSION_REVOCATION=memory requires STORE=memory"))
		}
	case RevocationPostgres:
		if c.Store != StorePostgres {
			errs = append(errs, errors.New("SESSION_REVOCATION=postgres requires STORE=postgres"))
		}
		if c.PurgeInterval <= 0 {
			errs = append(errs, errors.New("REVOCATION_PURGE_MINUTES must be positive"))
		}
	default:
		errs = append(errs, fmt.Errorf("SESSION_REVOCATION %q is not one of none, memory, redis, postgres", c.SessionRevocation))
	}

	return errors.Join(errs...)
}

// UsesRedis reports whether any component needs a redis connection.
func (c Config) UsesRedis() bool {
	return c.SessionRevocation == RevocationRedis
}

func buildDBURL() string {
	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "videochat")
	pass := getEnv("DB_PASSWORD", "videochat")
	name := getEnv("DB_NAME", "videochat")
	ssl := getEnv("DB_SSLMODE", "disable")

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(user, pass),
		Host:     host + ":" + port,
		Path:     name,
		RawQuery: "sslmode=" + url.QueryEscape(ssl),
	}
	return u.String()
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int, errs *[]error) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	num, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %q is not an integer", key, v))
		return fallback
	}

	return num
}

func getEnvBool(key string, fallback bool, errs *[]error) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	b, err := strconv.ParseBool(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %q is not a boolean", key, v))
		return fallback
	}

	return b
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))

	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}

	return out
}
