package actorctx

import (
	"context"
	"testing"
)

func TestIdentityRoundTrip(t *testing.T) {
	ctx := WithIdentity(context.Background(), Identity{SubjectID: "u1", TokenID: "j1"})

	id, ok := IdentityFrom(ctx)
	if !ok || id.SubjectID != "u1" || id.TokenID != "j1" {
		t.Fatalf("IdentityFrom = %+v, %v", id, ok)
	}

	uid, ok := UserIDFrom(ctx)
	if !ok || uid != "u1" {
		t.Fatalf("UserIDFrom = %q, %v", uid, ok)
	}
}

func TestIdentityMissing(t *testing.T) {
	if _, ok := IdentityFrom(context.Background()); ok {
		t.Fatalf("expected no identity on a bare context")
	}

	ctx := WithIdentity(context.Background(), Identity{})
	if _, ok := UserIDFrom(ctx); ok {
		t.Fatalf("an empty subject must not count as authenticated")
	}

	// a string key with the same spelling must not collide
	ctx = context.WithValue(context.Background(), "actorctx.identity", Identity{SubjectID: "u1"})
	if _, ok := IdentityFrom(ctx); ok {
		t.Fatalf("foreign keys must not be read as identity")
	}
}
