package db

import (
	"context"
	"errors"

	"github.com/geocoder89/videochat/internal/config"
	"github.com/geocoder89/videochat/internal/domain/user"
)

type SeedStore interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
}

type Registrar interface {
	Register(ctx context.Context, name, email, password string) (user.Profile, error)
}

// EnsureSeedUser creates the configured bootstrap account once. It is a no-op
// when no seed credentials are configured or the email already exists.
func EnsureSeedUser(ctx context.Context, users SeedStore, reg Registrar, cfg config.Config) (created bool, err error) {
	if cfg.SeedUserEmail == "" || cfg.SeedUserPassword == "" {
		return false, nil
	}

	_, err = users.GetByEmail(ctx, cfg.SeedUserEmail)
	if err == nil {
		return false, nil
	}

	if !errors.Is(err, user.ErrNotFound) {
		return false, err
	}

	_, err = reg.Register(ctx, cfg.SeedUserName, cfg.SeedUserEmail, cfg.SeedUserPassword)
	if errors.Is(err, user.ErrEmailTaken) {
		// another replica won the race
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return true, nil
}
