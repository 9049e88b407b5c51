package testutil

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/trezcool/academia/storage/database"
	"github.com/trezcool/academia/storage/database/sqlx"
)

const postgresImage = "postgres:16-alpine"

// PrepareDB starts a migrated postgres container for the duration of the test.
// The test is skipped in -short mode or when docker is not available.
func PrepareDB(t *testing.T) *sql.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres tests in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	ctr, err := postgres.Run(ctx, postgresImage,
		postgres.WithDatabase("academia_test"),
		postgres.WithUsername("academia"),
		postgres.WithPassword("academia"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		),
	)
	if err != nil {
		t.Skipf("starting postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := ctr.Terminate(context.Background()); err != nil {
			t.Logf("terminating postgres container: %v", err)
		}
	})

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("ConnectionString(): %v", err)
	}
	db, err := database.OpenDSN(dsn)
	if err != nil {
		t.Fatalf("OpenDSN(): %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Migrate(ctx, db, "up"); err != nil {
		t.Fatalf("Migrate(): %v", err)
	}
	return db
}

// ResetDB empties all the tables of db.
func ResetDB(t *testing.T, db *sql.DB) {
	t.Helper()
	_, err := db.Exec("TRUNCATE certificates, progress, chapters, course_teachers, course_schools, course_students, courses, users CASCADE")
	if err != nil {
		t.Fatalf("ResetDB(): %v", err)
	}
}

// NewSQLEnv returns an Env backed by db.
func NewSQLEnv(db *sql.DB) *Env {
	return NewEnv(Repos{
		Users:        sqlxrepos.NewUserRepository(db),
		Courses:      sqlxrepos.NewCourseRepository(db),
		Progress:     sqlxrepos.NewProgressRepository(db),
		Certificates: sqlxrepos.NewCertificateRepository(db),
		Tx:           database.NewTransactor(db),
	})
}
