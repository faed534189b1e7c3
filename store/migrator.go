package store

import (
	"context"
	"embed"
	"io/fs"
	"log/slog"
	"path"
	"strings"

	"github.com/pkg/errors"

	"github.com/chitoku-k/hoarder-sub005/internal/version"
)

// Schema layout per driver:
//
//	migration/<driver>/LATEST.sql                 full schema with the root tag and its self path
//	migration/<driver>/<minor>/NN__description.sql incremental change, schema version <minor>.<NN+1>
//	seed/<driver>/*.sql                           demo hierarchy, applied in demo mode
//
// The applied schema version is recorded in system_setting.

//go:embed migration
var migrationFS embed.FS

//go:embed seed
var seedFS embed.FS

const (
	latestSchemaFileName = "LATEST.sql"
	// initialSchemaVersion stands for a database that never recorded a version.
	initialSchemaVersion = "0.0.0"

	modeProd = "prod"
	modeDemo = "demo"
)

// Migrate brings the database to the current schema version.
// A new database gets LATEST.sql. In prod mode an existing one gets the incremental
// migrations it lacks, and a database newer than this binary is refused.
// In demo mode the demo hierarchy is seeded afterwards.
func (s *Store) Migrate(ctx context.Context) error {
	target, err := s.GetCurrentSchemaVersion()
	if err != nil {
		return errors.Wrap(err, "failed to get current schema version")
	}

	initialized, err := s.driver.IsInitialized(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to check if database is initialized")
	}
	switch {
	case !initialized:
		if err := s.initialize(ctx, target); err != nil {
			return errors.Wrap(err, "failed to initialize database")
		}
	case s.profile.Mode == modeProd:
		if err := s.upgrade(ctx, target); err != nil {
			return errors.Wrap(err, "failed to apply migrations")
		}
	}

	if s.profile.Mode == modeDemo {
		if err := s.seed(ctx); err != nil {
			return errors.Wrap(err, "failed to seed")
		}
	}
	return nil
}

func (s *Store) initialize(ctx context.Context, target string) error {
	filePath := path.Join(s.migrationBasePath(), latestSchemaFileName)
	slog.Info("initializing new database with latest schema", slog.String("file", filePath))
	if err := s.runScripts(ctx, migrationFS, []string{filePath}); err != nil {
		return err
	}

	slog.Info("database initialized", slog.String("schemaVersion", target))
	return s.updateSchemaVersion(ctx, target)
}

func (s *Store) upgrade(ctx context.Context, target string) error {
	recorded, err := s.getRecordedSchemaVersion(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get recorded schema version")
	}
	if recorded == "" {
		recorded = initialSchemaVersion
	}
	if version.IsVersionGreaterThan(recorded, target) {
		slog.Error("cannot downgrade schema version",
			slog.String("databaseVersion", recorded),
			slog.String("currentVersion", target))
		return errors.Errorf("cannot downgrade schema version from %s to %s", recorded, target)
	}
	if !version.IsVersionGreaterThan(target, recorded) {
		return nil
	}

	scripts, err := listMigrationScripts(s.profile.Driver)
	if err != nil {
		return err
	}
	var paths []string
	for _, script := range pendingMigrationScripts(scripts, recorded, target) {
		slog.Info("applying migration", slog.String("file", script.path), slog.String("version", script.version))
		paths = append(paths, script.path)
	}
	if err := s.runScripts(ctx, migrationFS, paths); err != nil {
		return err
	}

	slog.Info("migration completed",
		slog.String("from", recorded),
		slog.String("to", target),
		slog.Int("migrationsApplied", len(paths)))
	return s.updateSchemaVersion(ctx, target)
}

// seed applies the demo hierarchy. Seed scripts insert nothing into a database
// that already holds any of their rows, so seeding on every start is safe.
func (s *Store) seed(ctx context.Context) error {
	paths, err := fs.Glob(seedFS, path.Join("seed", s.profile.Driver, "*.sql"))
	if err != nil {
		return errors.Wrap(err, "failed to read seed files")
	}
	return s.runScripts(ctx, seedFS, paths)
}

// runScripts executes the scripts in order within one transaction.
func (s *Store) runScripts(ctx context.Context, fsys fs.FS, paths []string) error {
	tx, err := s.driver.GetDB().BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to start transaction")
	}
	defer tx.Rollback()

	for _, filePath := range paths {
		script, err := fs.ReadFile(fsys, filePath)
		if err != nil {
			return errors.Wrapf(err, "failed to read %s", filePath)
		}
		for i, stmt := range splitStatements(string(script)) {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return errors.Wrapf(err, "failed to execute statement %d of %s", i+1, filePath)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}
	return nil
}

// GetCurrentSchemaVersion returns the schema version this binary migrates to:
// the newest migration of the current minor version, or <minor>.0 without one.
func (s *Store) GetCurrentSchemaVersion() (string, error) {
	minor := version.GetMinorVersion(version.GetCurrentVersion(s.profile.Mode))
	scripts, err := listMigrationScripts(s.profile.Driver)
	if err != nil {
		return "", err
	}

	current := minor + ".0"
	for _, script := range scripts {
		if version.GetMinorVersion(script.version) == minor {
			current = script.version
		}
	}
	return current, nil
}

func (s *Store) migrationBasePath() string {
	return path.Join("migration", s.profile.Driver)
}

// getRecordedSchemaVersion returns the schema version recorded in system_setting, or "" if none.
func (s *Store) getRecordedSchemaVersion(ctx context.Context) (string, error) {
	setting, err := s.GetSystemSetting(ctx, SystemSettingSchemaVersionName)
	if err != nil {
		return "", err
	}
	if setting == nil {
		return "", nil
	}
	return strings.TrimSpace(setting.Value), nil
}

func (s *Store) updateSchemaVersion(ctx context.Context, schemaVersion string) error {
	if _, err := s.UpsertSystemSetting(ctx, &SystemSetting{
		Name:        SystemSettingSchemaVersionName,
		Value:       schemaVersion,
		Description: "applied database schema version",
	}); err != nil {
		return errors.Wrap(err, "failed to record schema version")
	}
	return nil
}
