package actorctx

import (
	"context"
	"time"
)

type ctxKey struct{}

// Identity is what the session guard learned about the caller.
type Identity struct {
	SubjectID string
	TokenID   string
	ExpiresAt time.Time
}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func IdentityFrom(ctx context.Context) (Identity, bool) {
	v, ok := ctx.Value(ctxKey{}).(Identity)

	return v, ok && v.SubjectID != ""
}

// UserIDFrom is a shortcut for handlers that only need the subject.
func UserIDFrom(ctx context.Context) (string, bool) {
	id, ok := IdentityFrom(ctx)

	return id.SubjectID, ok
}
