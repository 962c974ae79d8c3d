package middlewares

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Recovery turns a panic into the generic 500 envelope. The panic value is
// logged and never sent to the client.
func Recovery(log *slog.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		log.ErrorContext(c.Request.Context(), "panic recovered",
			"panic", recovered,
			"route", c.FullPath(),
		)

		reqID, _ := c.Get(CtxRequestID)

		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{
				"code":      "internal_error",
				"message":   "Something went wrong",
				"requestId": reqID,
			},
		})
	})
}
