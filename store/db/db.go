package db

import (
	"github.com/pkg/errors"

	"github.com/chitoku-k/hoarder-sub005/internal/profile"
	"github.com/chitoku-k/hoarder-sub005/store"
	"github.com/chitoku-k/hoarder-sub005/store/db/postgres"
	"github.com/chitoku-k/hoarder-sub005/store/db/sqlite"
)

// ============================================================================
// DATABASE SUPPORT POLICY
// ============================================================================
// This project supports only PostgreSQL and SQLite databases.
//
// PostgreSQL: Full support for production use.
// SQLite: Development, demo and testing. Writers are serialized by the
// database lock (BEGIN IMMEDIATE) instead of row locks.
//
// When adding new features:
// - Implement fully for PostgreSQL
// - Keep SQLite in step for anything the tag hierarchy depends on
// ============================================================================

// NewDBDriver creates new db driver based on profile.
func NewDBDriver(profile *profile.Profile) (store.Driver, error) {
	var driver store.Driver
	var err error

	switch profile.Driver {
	case "sqlite":
		driver, err = sqlite.NewDB(profile)
	case "postgres":
		driver, err = postgres.NewDB(profile)
	default:
		return nil, errors.New("unknown db driver: only 'postgres' and 'sqlite' are supported")
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to create db driver")
	}
	return driver, nil
}
