package memory

import (
	"context"
	"sync"
	"time"
)

// RevocationsRepo is a process-local session denylist. Entries drop out once
// the token they name has expired.
type RevocationsRepo struct {
	mu      sync.Mutex
	now     func() time.Time
	revoked map[string]time.Time // jti -> token expiry
}

func NewRevocationsRepo() *RevocationsRepo {
	return &RevocationsRepo{
		now:     time.Now,
		revoked: make(map[string]time.Time),
	}
}

func (r *RevocationsRepo) Revoke(ctx context.Context, tokenID, userID string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.revoked[tokenID] = expiresAt

	return nil
}

func (r *RevocationsRepo) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	exp, ok := r.revoked[tokenID]
	if !ok {
		return false, nil
	}

	if !r.now().Before(exp) {
		delete(r.revoked, tokenID)
		return false, nil
	}

	return true, nil
}
