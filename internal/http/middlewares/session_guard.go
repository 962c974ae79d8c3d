package middlewares

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/geocoder89/videochat/internal/actorctx"
	"github.com/geocoder89/videochat/internal/auth"
	"github.com/gin-gonic/gin"
)

// Rejection reasons. They reach logs and metrics only; the client always
// sees the same 401 body.
const (
	ReasonMissingToken = "missing_token"
	ReasonMalformed    = "malformed"
	ReasonBadSignature = "bad_signature"
	ReasonExpired      = "expired"
	ReasonRevoked      = "revoked"
)

type TokenVerifier interface {
	Verify(raw string) (*auth.Claims, error)
}

type RevocationChecker interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

type GuardMetrics interface {
	ObserveGuardRejection(reason string)
}

type SessionGuard struct {
	tokens      TokenVerifier
	cookieName  string
	revocations RevocationChecker
	metrics     GuardMetrics
	log         *slog.Logger
}

// NewSessionGuard builds the cookie guard. revocations and metrics may be nil.
func NewSessionGuard(tokens TokenVerifier, cookieName string, revocations RevocationChecker, metrics GuardMetrics, log *slog.Logger) *SessionGuard {
	if log == nil {
		log = slog.Default()
	}

	return &SessionGuard{
		tokens:      tokens,
		cookieName:  cookieName,
		revocations: revocations,
		metrics:     metrics,
		log:         log,
	}
}

// RequireAuth admits a request only with a valid session cookie and leaves
// the caller's identity on the request context.
func (g *SessionGuard) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := c.Cookie(g.cookieName)
		if err != nil || raw == "" {
			g.reject(c, ReasonMissingToken)
			return
		}

		claims, err := g.tokens.Verify(raw)
		if err != nil {
			g.reject(c, reasonFor(err))
			return
		}

		if g.revocations != nil {
			revoked, err := g.revocations.IsRevoked(c.Request.Context(), claims.ID)
			if err != nil {
				g.log.ErrorContext(c.Request.Context(), "revocation lookup failed", "err", err)
				reqID, _ := c.Get(CtxRequestID)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error": gin.H{
						"code":      "internal_error",
						"message":   "Something went wrong",
						"requestId": reqID,
					},
				})
				return
			}
			if revoked {
				g.reject(c, ReasonRevoked)
				return
			}
		}

		id := actorctx.Identity{
			SubjectID: claims.SubjectID(),
			TokenID:   claims.ID,
		}
		if claims.ExpiresAt != nil {
			id.ExpiresAt = claims.ExpiresAt.Time
		}

		c.Request = c.Request.WithContext(actorctx.WithIdentity(c.Request.Context(), id))
		c.Next()
	}
}

func (g *SessionGuard) reject(c *gin.Context, reason string) {
	if g.metrics != nil {
		g.metrics.ObserveGuardRejection(reason)
	}

	g.log.InfoContext(c.Request.Context(), "session rejected",
		"reason", reason,
		"route", c.FullPath(),
	)

	reqID, _ := c.Get(CtxRequestID)

	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": gin.H{
			"code":      "unauthenticated",
			"message":   "Authentication required",
			"requestId": reqID,
		},
	})
}

func reasonFor(err error) string {
	switch {
	case errors.Is(err, auth.ErrExpired):
		return ReasonExpired
	case errors.Is(err, auth.ErrBadSignature):
		return ReasonBadSignature
	default:
		return ReasonMalformed
	}
}
