package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/geocoder89/videochat/internal/actorctx"
	"github.com/geocoder89/videochat/internal/cache"
	"github.com/geocoder89/videochat/internal/domain/video"
	"github.com/gin-gonic/gin"
)

type VideoReader interface {
	ListByUser(ctx context.Context, userID string) ([]video.Video, error)
	GetForUser(ctx context.Context, userID, videoID string) (video.Video, error)
}

type VideosHandler struct {
	repo  VideoReader
	cache *cache.Cache[[]video.Video]
	log   *slog.Logger
}

// NewVideosHandler serves the caller's sessions. listCache may be nil.
func NewVideosHandler(repo VideoReader, listCache *cache.Cache[[]video.Video], log *slog.Logger) *VideosHandler {
	if log == nil {
		log = slog.Default()
	}
	return &VideosHandler{repo: repo, cache: listCache, log: log}
}

func (h *VideosHandler) List(ctx *gin.Context) {
	userID, ok := actorctx.UserIDFrom(ctx.Request.Context())
	if !ok {
		RespondUnAuthorized(ctx, "unauthenticated", "Authentication required")
		return
	}

	if h.cache != nil {
		if items, hit := h.cache.Get(userID); hit {
			RespondJSONWithETag(ctx, http.StatusOK, gin.H{"items": items, "count": len(items)})
			return
		}
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), authTimeout)
	defer cancel()

	items, err := h.repo.ListByUser(cctx, userID)
	if err != nil {
		h.log.ErrorContext(ctx.Request.Context(), "list videos failed", "err", err)
		RespondInternal(ctx, "Could not list videos")
		return
	}

	if h.cache != nil {
		h.cache.Set(userID, items)
	}

	RespondJSONWithETag(ctx, http.StatusOK, gin.H{"items": items, "count": len(items)})
}

func (h *VideosHandler) Get(ctx *gin.Context) {
	userID, ok := actorctx.UserIDFrom(ctx.Request.Context())
	if !ok {
		RespondUnAuthorized(ctx, "unauthenticated", "Authentication required")
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), authTimeout)
	defer cancel()

	v, err := h.repo.GetForUser(cctx, userID, ctx.Param("videoId"))
	if err != nil {
		if errors.Is(err, video.ErrNotFound) {
			RespondNotFound(ctx, "Video not found")
			return
		}
		h.log.ErrorContext(ctx.Request.Context(), "get video failed", "err", err)
		RespondInternal(ctx, "Could not fetch video")
		return
	}

	ctx.JSON(http.StatusOK, v)
}
