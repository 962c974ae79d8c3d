package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the slice of pgxpool.Pool the repos use. pgxmock satisfies it too.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DBObserver times a logical DB operation; *observability.Prom implements it.
type DBObserver interface {
	ObserveDB(op string, fn func() error) error
}

type nopObserver struct{}

func (nopObserver) ObserveDB(_ string, fn func() error) error { return fn() }

func observerOrNop(o DBObserver) DBObserver {
	if o == nil {
		return nopObserver{}
	}
	return o
}

const (
	pgUniqueViolation = "23505"
	pgInvalidText     = "22P02"
)

func hasPgCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}
