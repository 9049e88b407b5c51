package database

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
)

// Transactor runs units of work in SQL transactions.
type Transactor struct {
	db *sql.DB
}

var _ core.Transactor = (*Transactor)(nil) // interface compliance check

func NewTransactor(db *sql.DB) *Transactor {
	return &Transactor{db: db}
}

// Atomic commits when fn succeeds and rolls back otherwise.
func (t *Transactor) Atomic(ctx context.Context, fn func(exec core.DBExecutor) error) (err error) {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}
