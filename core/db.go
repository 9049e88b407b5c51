package core

import (
	"context"
	"database/sql"
)

type (
	DBExecutor interface {
		ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
		QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
		QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	}

	// Transactor runs units of work atomically.
	// The DBExecutor handed to fn must be passed down to every repository call of the unit;
	// in-memory stores hand a marker executor that runs no SQL.
	Transactor interface {
		Atomic(ctx context.Context, fn func(exec DBExecutor) error) error
	}
)
