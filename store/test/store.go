package test

import (
	"context"
	"os"
	"testing"

	"github.com/joho/godotenv"

	"github.com/chitoku-k/hoarder-sub005/internal/profile"
	"github.com/chitoku-k/hoarder-sub005/internal/version"
	"github.com/chitoku-k/hoarder-sub005/store"
	"github.com/chitoku-k/hoarder-sub005/store/db"
)

// NewTestingStore returns a migrated store with an empty tag hierarchy.
// The driver is taken from the DRIVER environment variable and defaults to sqlite.
func NewTestingStore(ctx context.Context, t *testing.T) *store.Store {
	return newTestingStore(ctx, t, "dev")
}

// NewSeededTestingStore returns a migrated store seeded with the demo tag hierarchy.
func NewSeededTestingStore(ctx context.Context, t *testing.T) *store.Store {
	return newTestingStore(ctx, t, "demo")
}

func newTestingStore(ctx context.Context, t *testing.T, mode string) *store.Store {
	profile := getTestingProfile(t, mode)
	dbDriver, err := db.NewDBDriver(profile)
	if err != nil {
		t.Fatalf("failed to create db driver, error: %+v\n", err)
	}

	store := store.New(dbDriver, profile)
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate db, error: %+v\n", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

func getTestingProfile(t *testing.T, mode string) *profile.Profile {
	// Get a temporary directory for the test data.
	dir := t.TempDir()
	driver := getDriverFromEnv()
	dsn := os.Getenv("DSN")
	if driver == "postgres" && dsn == "" {
		dsn = GetPostgresDSN(t)
	}
	if driver == "sqlite" && dsn == "" {
		dsn = dir + "/hoarder_" + mode + ".db"
	}
	return &profile.Profile{
		Mode:    mode,
		Port:    getUnusedPort(),
		Data:    dir,
		DSN:     dsn,
		Driver:  driver,
		Version: version.GetCurrentVersion(mode),
	}
}

func getDriverFromEnv() string {
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		panic(err)
	}
	driver := os.Getenv("DRIVER")
	if driver == "" {
		driver = "sqlite"
	}
	return driver
}
