package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/geocoder89/videochat/internal/domain/user"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const userColumns = `id, name, email, password_hash, created_at, updated_at`

type UsersRepo struct {
	db  DBTX
	obs DBObserver
}

func NewUsersRepo(db DBTX, obs DBObserver) *UsersRepo {
	return &UsersRepo{db: db, obs: observerOrNop(obs)}
}

func scanUser(row pgx.Row) (user.User, error) {
	var u user.User

	err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.PasswordHash,
		&u.CreatedAt,
		&u.UpdatedAt,
	)

	return u, err
}

func (r *UsersRepo) Create(ctx context.Context, name, email, passwordHash string) (user.User, error) {
	var u user.User

	err := r.obs.ObserveDB("users.create", func() error {
		var err error
		u, err = scanUser(r.db.QueryRow(ctx,
			`INSERT INTO users (id, name, email, password_hash)
			VALUES ($1, $2, $3, $4)
			RETURNING `+userColumns,
			uuid.NewString(), name, email, passwordHash,
		))
		return err
	})

	if err != nil {
		if hasPgCode(err, pgUniqueViolation) {
			return user.User{}, user.ErrEmailTaken
		}
		return user.User{}, fmt.Errorf("insert user: %w", err)
	}

	return u, nil
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	var u user.User

	err := r.obs.ObserveDB("users.get_by_email", func() error {
		var err error
		u, err = scanUser(r.db.QueryRow(ctx,
			`SELECT `+userColumns+`
			FROM users
			WHERE email = $1`,
			email,
		))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, fmt.Errorf("select user by email: %w", err)
	}

	return u, nil
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	var u user.User

	err := r.obs.ObserveDB("users.get_by_id", func() error {
		var err error
		u, err = scanUser(r.db.QueryRow(ctx,
			`SELECT `+userColumns+`
			FROM users
			WHERE id = $1`,
			id,
		))
		return err
	})

	if err != nil {
		if isMissingRow(err) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, fmt.Errorf("select user by id: %w", err)
	}

	return u, nil
}

func (r *UsersRepo) List(ctx context.Context) ([]user.User, error) {
	out := []user.User{}

	err := r.obs.ObserveDB("users.list", func() error {
		rows, err := r.db.Query(ctx,
			`SELECT `+userColumns+`
			FROM users
			ORDER BY created_at ASC, id ASC`,
		)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			u, err := scanUser(rows)
			if err != nil {
				return err
			}
			out = append(out, u)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	return out, nil
}

func (r *UsersRepo) Update(ctx context.Context, id, name, email string) (user.User, error) {
	var u user.User

	err := r.obs.ObserveDB("users.update", func() error {
		var err error
		u, err = scanUser(r.db.QueryRow(ctx,
			`UPDATE users
			SET name = $1, email = $2, updated_at = NOW()
			WHERE id = $3
			RETURNING `+userColumns,
			name, email, id,
		))
		return err
	})

	if err != nil {
		switch {
		case isMissingRow(err):
			return user.User{}, user.ErrNotFound
		case hasPgCode(err, pgUniqueViolation):
			return user.User{}, user.ErrEmailTaken
		}
		return user.User{}, fmt.Errorf("update user: %w", err)
	}

	return u, nil
}

func (r *UsersRepo) Delete(ctx context.Context, id string) (user.User, error) {
	var u user.User

	err := r.obs.ObserveDB("users.delete", func() error {
		var err error
		u, err = scanUser(r.db.QueryRow(ctx,
			`DELETE FROM users
			WHERE id = $1
			RETURNING `+userColumns,
			id,
		))
		return err
	})

	if err != nil {
		if isMissingRow(err) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, fmt.Errorf("delete user: %w", err)
	}

	return u, nil
}

// ids are uuids; a malformed one can never match a row
func isMissingRow(err error) bool {
	return errors.Is(err, pgx.ErrNoRows) || hasPgCode(err, pgInvalidText)
}
