package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/geocoder89/videochat/internal/actorctx"
	"github.com/geocoder89/videochat/internal/auth"
	"github.com/geocoder89/videochat/internal/domain/user"
	"github.com/gin-gonic/gin"
)

const authTimeout = 3 * time.Second

type Authenticator interface {
	Login(ctx context.Context, email, password string) (auth.LoginResult, error)
	Logout(ctx context.Context, raw string) error
	CurrentIdentity(ctx context.Context, subjectID string) (user.Profile, error)
}

type LoginMetrics interface {
	ObserveLogin(result string)
}

// CookieConfig describes the session cookie. MaxAge follows the token TTL.
type CookieConfig struct {
	Name   string
	Domain string
	Secure bool
	MaxAge time.Duration
}

type AuthHandler struct {
	svc     Authenticator
	cookie  CookieConfig
	metrics LoginMetrics
	log     *slog.Logger
}

func NewAuthHandler(svc Authenticator, cookie CookieConfig, metrics LoginMetrics, log *slog.Logger) *AuthHandler {
	if log == nil {
		log = slog.Default()
	}

	return &AuthHandler{
		svc:     svc,
		cookie:  cookie,
		metrics: metrics,
		log:     log,
	}
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) observe(result string) {
	if h.metrics != nil {
		h.metrics.ObserveLogin(result)
	}
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req LoginRequest

	if !BindJSON(ctx, &req) {
		h.observe("invalid_request")
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), authTimeout)
	defer cancel()

	res, err := h.svc.Login(cctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			h.observe("invalid_credentials")
			RespondUnAuthorized(ctx, "invalid_credentials", "Email or password is incorrect.")
			return
		}

		h.observe("error")
		h.log.ErrorContext(ctx.Request.Context(), "login failed", "err", err)
		RespondInternal(ctx, "Could not log in")
		return
	}

	h.observe("success")
	h.setSessionCookie(ctx, res.Token.Raw, int(h.cookie.MaxAge/time.Second))

	ctx.JSON(http.StatusOK, gin.H{
		"id":    res.User.ID,
		"email": res.User.Email,
		"name":  res.User.Name,
	})
}

// Logout always clears the cookie. With revocation configured the token is
// also denylisted; a failure there is reported so the client knows the token
// may still be live.
func (h *AuthHandler) Logout(ctx *gin.Context) {
	raw, _ := ctx.Cookie(h.cookie.Name)

	h.setSessionCookie(ctx, "", -1)

	if raw != "" {
		cctx, cancel := context.WithTimeout(ctx.Request.Context(), authTimeout)
		defer cancel()

		if err := h.svc.Logout(cctx, raw); err != nil {
			h.log.ErrorContext(ctx.Request.Context(), "logout revoke failed", "err", err)
			RespondInternal(ctx, "Could not end session")
			return
		}
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

// Me answers for the identity the session guard attached.
func (h *AuthHandler) Me(ctx *gin.Context) {
	id, ok := actorctx.IdentityFrom(ctx.Request.Context())
	if !ok {
		RespondUnAuthorized(ctx, "unauthenticated", "Authentication required")
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), authTimeout)
	defer cancel()

	p, err := h.svc.CurrentIdentity(cctx, id.SubjectID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			// token outlived its account
			RespondUnAuthorized(ctx, "unauthenticated", "Authentication required")
			return
		}
		h.log.ErrorContext(ctx.Request.Context(), "load identity failed", "err", err)
		RespondInternal(ctx, "Could not load user")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"authenticated": true,
		"id":            p.ID,
		"name":          p.Name,
		"email":         p.Email,
	})
}

func (h *AuthHandler) setSessionCookie(ctx *gin.Context, value string, maxAge int) {
	ctx.SetSameSite(http.SameSiteNoneMode)
	ctx.SetCookie(h.cookie.Name, value, maxAge, "/", h.cookie.Domain, h.cookie.Secure, true)
}
