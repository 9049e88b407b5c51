package database

import (
	"context"
	"database/sql"
	"embed"
	"net/url"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"

	"github.com/trezcool/academia/core"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const driverName = "postgres"

func dsn(dbName string, admin bool, conf *core.Config) string {
	user := url.UserPassword(conf.Database.User, conf.Database.Password)
	if admin && conf.Database.AdminUser != "" {
		user = url.UserPassword(conf.Database.AdminUser, conf.Database.AdminPassword)
	}

	sslMode := "require"
	if conf.Database.DisableTLS {
		sslMode = "disable"
	}
	q := make(url.Values)
	q.Set("sslmode", sslMode)
	q.Set("timezone", "utc")

	u := url.URL{
		Scheme:   conf.Database.Engine,
		User:     user,
		Host:     conf.Database.Address(),
		Path:     dbName,
		RawQuery: q.Encode(),
	}
	return u.String()
}

// Open opens the app database and waits for it to be ready.
func Open(conf *core.Config) (*sql.DB, error) {
	return OpenDSN(dsn(conf.Database.Name, false, conf))
}

// OpenDSN opens the database at dataSourceName and waits for it to be ready.
func OpenDSN(dataSourceName string) (*sql.DB, error) {
	db, err := sql.Open(driverName, dataSourceName)
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	if err = ping(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// ping waits for the database to be ready. Waits 100ms longer between each attempt.
func ping(db *sql.DB) error {
	var err error
	maxAttempts := 30
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		if err = db.Ping(); err == nil {
			return nil
		}
		time.Sleep(time.Duration(attempts) * 100 * time.Millisecond)
	}
	return errors.Wrap(err, "DB ping timeout")
}

func exists(ctx context.Context, db *sql.DB, query string, args ...interface{}) (bool, error) {
	var found bool
	err := db.QueryRowContext(ctx, query, args...).Scan(&found)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return found, err
}

func createAppUser(ctx context.Context, db *sql.DB, conf *core.Config) error {
	if conf.Database.User == "" {
		return nil
	}
	found, err := exists(ctx, db, "SELECT true FROM pg_roles WHERE rolname = $1", conf.Database.User)
	if err != nil {
		return errors.Wrap(err, "checking app user")
	}
	if found {
		return nil
	}
	q := "CREATE USER " + pq.QuoteIdentifier(conf.Database.User) + " CREATEDB ENCRYPTED PASSWORD " + pq.QuoteLiteral(conf.Database.Password)
	_, err = db.ExecContext(ctx, q)
	return errors.Wrap(err, "creating app user")
}

func createDB(ctx context.Context, db *sql.DB, conf *core.Config) error {
	found, err := exists(ctx, db, "SELECT true FROM pg_database WHERE datname = $1", conf.Database.Name)
	if err != nil {
		return errors.Wrap(err, "checking DB")
	}
	if found {
		return nil
	}
	_, err = db.ExecContext(ctx, "CREATE DATABASE "+pq.QuoteIdentifier(conf.Database.Name))
	return errors.Wrap(err, "creating database")
}

// CreateIfNotExist creates the app user (as admin) & the app database (as app user) when missing.
func CreateIfNotExist(ctx context.Context, conf *core.Config) error {
	// connect as admin
	adminDB, err := OpenDSN(dsn("postgres", true, conf))
	if err != nil {
		return err
	}
	defer func() { _ = adminDB.Close() }()
	if err = createAppUser(ctx, adminDB, conf); err != nil {
		return err
	}

	// create DB as app user
	db, err := OpenDSN(dsn("postgres", false, conf))
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	return createDB(ctx, db, conf)
}

// Migrate runs a goose command (up, down, status, ...) against the embedded migrations.
func Migrate(ctx context.Context, db *sql.DB, command string, args ...string) error {
	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect(driverName); err != nil {
		return errors.Wrap(err, "setting goose dialect")
	}
	if err := goose.RunContext(ctx, command, db, "migrations", args...); err != nil {
		return errors.Wrapf(err, "migrating database (%s)", command)
	}
	return nil
}
