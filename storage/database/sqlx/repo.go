package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
)

// repository holds the default executor of a repository; services may pass a transaction instead.
type repository struct {
	exec core.DBExecutor
}

func (repo repository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 && svcExec[0] != nil {
		return svcExec[0]
	}
	return repo.exec
}

// selectAll scans all the rows of query into dest, a pointer to a slice of structs.
func selectAll(ctx context.Context, exec core.DBExecutor, dest interface{}, query string, args ...interface{}) error {
	rows, err := exec.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()
	return sqlx.StructScan(rows, dest)
}

// selectOne returns the first row of query, sql.ErrNoRows if there is none.
func selectOne[T any](ctx context.Context, exec core.DBExecutor, query string, args ...interface{}) (T, error) {
	var rows []T
	if err := selectAll(ctx, exec, &rows, query, args...); err != nil {
		var zero T
		return zero, err
	}
	if len(rows) == 0 {
		var zero T
		return zero, sql.ErrNoRows
	}
	return rows[0], nil
}

// bindNamed binds a `:name` query to the fields of arg, for postgres.
func bindNamed(query string, arg interface{}) (string, []interface{}, error) {
	q, args, err := sqlx.Named(query, arg)
	if err != nil {
		return "", nil, err
	}
	return sqlx.Rebind(sqlx.DOLLAR, q), args, nil
}

// bindIn expands the slice args of an `IN (?)` query, for postgres.
func bindIn(query string, args ...interface{}) (string, []interface{}, error) {
	q, args, err := sqlx.In(query, args...)
	if err != nil {
		return "", nil, err
	}
	return sqlx.Rebind(sqlx.DOLLAR, q), args, nil
}

// trapNoRowsErr maps psql "no rows" err to notFound
func trapNoRowsErr(err, notFound error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

func isUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// uuids keeps the valid, distinct IDs of ids.
func uuids(ids []string) []string {
	valid := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if isUUID(id) && !seen[id] {
			valid = append(valid, id)
			seen[id] = true
		}
	}
	return valid
}

// advisoryLock takes a transaction-scoped advisory lock on key.
func advisoryLock(ctx context.Context, exec core.DBExecutor, key string) error {
	_, err := exec.ExecContext(ctx, "SELECT pg_advisory_xact_lock(hashtextextended($1, 0))", key)
	return err
}
