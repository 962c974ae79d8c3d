package middlewares

// gin.Context keys. Identity is not stored here; see actorctx.
const (
	CtxRequestID = "request_id"
)
