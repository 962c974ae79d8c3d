package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/geocoder89/videochat/internal/cache"
	"github.com/geocoder89/videochat/internal/domain/user"
	"github.com/geocoder89/videochat/internal/domain/video"
	"github.com/geocoder89/videochat/internal/security"
	"github.com/gin-gonic/gin"
)

type Registrar interface {
	Register(ctx context.Context, name, email, password string) (user.Profile, error)
}

type UserStore interface {
	List(ctx context.Context) ([]user.User, error)
	GetByID(ctx context.Context, id string) (user.User, error)
	Update(ctx context.Context, id, name, email string) (user.User, error)
	Delete(ctx context.Context, id string) (user.User, error)
}

type UsersHandler struct {
	reg        Registrar
	users      UserStore
	videoLists *cache.Cache[[]video.Video]
	log        *slog.Logger
}

// NewUsersHandler serves user CRUD. videoLists is the list cache shared with
// the videos handler and may be nil.
func NewUsersHandler(reg Registrar, users UserStore, videoLists *cache.Cache[[]video.Video], log *slog.Logger) *UsersHandler {
	if log == nil {
		log = slog.Default()
	}
	return &UsersHandler{reg: reg, users: users, videoLists: videoLists, log: log}
}

func (h *UsersHandler) Register(ctx *gin.Context) {
	var req user.CreateUserRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), authTimeout)
	defer cancel()

	p, err := h.reg.Register(cctx, req.Name, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, user.ErrEmailTaken):
			RespondConflict(ctx, "email_taken", "Email is already in use.")
		case errors.Is(err, security.ErrPasswordTooLong):
			RespondBadRequest(ctx, "Password is too long", nil)
		default:
			h.log.ErrorContext(ctx.Request.Context(), "register failed", "err", err)
			RespondInternal(ctx, "Could not create user")
		}
		return
	}

	ctx.JSON(http.StatusCreated, p)
}

func (h *UsersHandler) List(ctx *gin.Context) {
	cctx, cancel := context.WithTimeout(ctx.Request.Context(), authTimeout)
	defer cancel()

	users, err := h.users.List(cctx)
	if err != nil {
		h.log.ErrorContext(ctx.Request.Context(), "list users failed", "err", err)
		RespondInternal(ctx, "Could not list users")
		return
	}

	items := make([]user.Profile, 0, len(users))
	for _, u := range users {
		items = append(items, u.Profile())
	}

	ctx.JSON(http.StatusOK, gin.H{
		"items": items,
		"count": len(items),
	})
}

func (h *UsersHandler) Get(ctx *gin.Context) {
	cctx, cancel := context.WithTimeout(ctx.Request.Context(), authTimeout)
	defer cancel()

	u, err := h.users.GetByID(cctx, ctx.Param("id"))
	if err != nil {
		h.respondStoreError(ctx, err, "Could not fetch user")
		return
	}

	ctx.JSON(http.StatusOK, u.Profile())
}

func (h *UsersHandler) Update(ctx *gin.Context) {
	var req user.UpdateUserRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), authTimeout)
	defer cancel()

	u, err := h.users.Update(cctx, ctx.Param("id"), req.Name, req.Email)
	if err != nil {
		h.respondStoreError(ctx, err, "Could not update user")
		return
	}

	ctx.JSON(http.StatusOK, u.Profile())
}

func (h *UsersHandler) Delete(ctx *gin.Context) {
	cctx, cancel := context.WithTimeout(ctx.Request.Context(), authTimeout)
	defer cancel()

	u, err := h.users.Delete(cctx, ctx.Param("id"))
	if err != nil {
		h.respondStoreError(ctx, err, "Could not delete user")
		return
	}

	if h.videoLists != nil {
		h.videoLists.Delete(u.ID)
	}

	ctx.JSON(http.StatusOK, u.Profile())
}

func (h *UsersHandler) respondStoreError(ctx *gin.Context, err error, internalMsg string) {
	switch {
	case errors.Is(err, user.ErrNotFound):
		RespondNotFound(ctx, "User not found")
	case errors.Is(err, user.ErrEmailTaken):
		RespondConflict(ctx, "email_taken", "Email is already in use.")
	default:
		h.log.ErrorContext(ctx.Request.Context(), "user store failed", "err", err)
		RespondInternal(ctx, internalMsg)
	}
}
