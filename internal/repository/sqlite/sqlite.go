package sqlite

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"macwatch/internal/domain"
)

//go:embed migrations
var migrationsFS embed.FS

// driverName is the database/sql name registered by modernc.org/sqlite
const driverName = "sqlite"

// migration sets, one per store; each keeps its own version table so both
// stores can share a database file
const (
	rangeMigrations  = "ranges"
	deviceMigrations = "devices"
)

// dsn builds a modernc connection string with the pragmas every
// connection needs: WAL for concurrent readers, a busy timeout so a
// reader never fails on the writer's lock, and enforced foreign keys.
func dsn(path string) string {
	if !strings.HasPrefix(path, "file:") {
		path = "file:" + path
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
}

// openDB opens a pool on path and applies the named migration set
func openDB(path, set string) (*sqlx.DB, error) {
	db, err := sqlx.Open(driverName, dsn(path))
	if err != nil {
		return nil, storageErr("open database", err)
	}

	// every connection to :memory: is a new database
	if strings.Contains(path, ":memory:") {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, storageErr("open database", err)
	}

	if err := runMigrations(db, set); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// runMigrations brings the schema of one store up to date
func runMigrations(db *sqlx.DB, set string) error {
	driver, err := migratesqlite.WithInstance(db.DB, &migratesqlite.Config{
		MigrationsTable: "schema_migrations_" + set,
	})
	if err != nil {
		return storageErr("create migration driver", err)
	}

	source, err := iofs.New(migrationsFS, "migrations/"+set)
	if err != nil {
		return storageErr("create migration source", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, driverName, driver)
	if err != nil {
		return storageErr("create migration instance", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return storageErr("run "+set+" migrations", err)
	}

	return nil
}

// storageErr wraps a persistence failure so callers can match
// domain.ErrStorageUnavailable while keeping the driver error
func storageErr(op string, err error) error {
	return fmt.Errorf("failed to %s: %w: %w", op, domain.ErrStorageUnavailable, err)
}

// withTx runs fn in one transaction. The deferred rollback is a no-op
// after a successful commit.
func withTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return storageErr("begin transaction", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return storageErr("commit transaction", err)
	}
	return nil
}
