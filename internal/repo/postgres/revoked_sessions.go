package postgres

import (
	"context"
	"fmt"
	"time"
)

// RevokedSessionsRepo is the Postgres denylist for logged-out session tokens.
type RevokedSessionsRepo struct {
	db  DBTX
	obs DBObserver
}

func NewRevokedSessionsRepo(db DBTX, obs DBObserver) *RevokedSessionsRepo {
	return &RevokedSessionsRepo{db: db, obs: observerOrNop(obs)}
}

// Revoke is idempotent: revoking the same token twice keeps the first row.
func (r *RevokedSessionsRepo) Revoke(ctx context.Context, tokenID, userID string, expiresAt time.Time) error {
	err := r.obs.ObserveDB("revoked_sessions.insert", func() error {
		_, err := r.db.Exec(ctx,
			`INSERT INTO revoked_sessions (token_id, user_id, expires_at)
			VALUES ($1, $2, $3)
			ON CONFLICT (token_id) DO NOTHING`,
			tokenID, userID, expiresAt,
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("insert revoked session: %w", err)
	}

	return nil
}

func (r *RevokedSessionsRepo) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	var revoked bool

	err := r.obs.ObserveDB("revoked_sessions.exists", func() error {
		return r.db.QueryRow(ctx,
			`SELECT EXISTS (
				SELECT 1 FROM revoked_sessions
				WHERE token_id = $1 AND expires_at > NOW()
			)`,
			tokenID,
		).Scan(&revoked)
	})
	if err != nil {
		return false, fmt.Errorf("check revoked session: %w", err)
	}

	return revoked, nil
}

// PurgeExpired drops rows whose tokens have expired on their own.
func (r *RevokedSessionsRepo) PurgeExpired(ctx context.Context) (int64, error) {
	var n int64

	err := r.obs.ObserveDB("revoked_sessions.purge", func() error {
		tag, err := r.db.Exec(ctx, `DELETE FROM revoked_sessions WHERE expires_at <= NOW()`)
		if err != nil {
			return err
		}
		n = tag.RowsAffected()
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("purge revoked sessions: %w", err)
	}

	return n, nil
}
