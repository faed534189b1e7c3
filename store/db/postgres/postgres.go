package postgres

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	// Import the PostgreSQL driver.
	_ "github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/chitoku-k/hoarder-sub005/internal/profile"
	"github.com/chitoku-k/hoarder-sub005/store"
)

// ============================================================================
// POSTGRESQL SUPPORT (Production)
// ============================================================================
// PostgreSQL is the reference implementation of the tag hierarchy.
//
// Every hierarchy mutation runs in one transaction at READ COMMITTED and
// locks the affected tag rows (FOR UPDATE, ordered by id) before reading
// or rewriting tag_paths, so overlapping attach/detach/delete calls on
// intersecting subtrees are serialized by the database.
// ============================================================================

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile == nil {
		return nil, errors.New("profile is nil")
	}

	db, err := sql.Open("postgres", profile.DSN)
	if err != nil {
		slog.Error("failed to open database", slog.String("error", err.Error()))
		return nil, errors.Wrap(err, "failed to open database")
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(15 * time.Minute)

	// Verify connection is working before returning
	if err := db.Ping(); err != nil {
		slog.Error("failed to ping database", slog.String("error", err.Error()))
		return nil, errors.Wrap(err, "failed to ping database")
	}

	return NewDBWithConn(db, profile), nil
}

// NewDBWithConn wraps an already opened connection pool.
func NewDBWithConn(db *sql.DB, profile *profile.Profile) store.Driver {
	return &DB{
		db:      db,
		profile: profile,
	}
}

func (d *DB) GetDB() *sql.DB {
	return d.db
}

func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) IsInitialized(ctx context.Context) (bool, error) {
	var exists bool
	err := d.db.QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_catalog = current_database() AND table_name = 'tags' AND table_type = 'BASE TABLE')").Scan(&exists)
	if err != nil {
		return false, errors.Wrap(err, "failed to check if database is initialized")
	}
	return exists, nil
}
