package store

import (
	"io/fs"
	"path"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chitoku-k/hoarder-sub005/internal/profile"
	"github.com/chitoku-k/hoarder-sub005/internal/version"
)

func TestSplitStatements(t *testing.T) {
	script := `-- leading comment; with a semicolon
INSERT INTO tags (id, name) VALUES ('a;b', 'it''s -- not a comment'); -- trailing; comment
SELECT 1;

;  `
	assert.Equal(t, []string{
		"INSERT INTO tags (id, name) VALUES ('a;b', 'it''s -- not a comment')",
		"SELECT 1",
	}, splitStatements(script))
	assert.Empty(t, splitStatements("-- only a comment\n"))
}

func TestSplitStatementsLatestSchema(t *testing.T) {
	for _, driver := range []string{"postgres", "sqlite"} {
		t.Run(driver, func(t *testing.T) {
			script, err := fs.ReadFile(migrationFS, path.Join("migration", driver, latestSchemaFileName))
			require.NoError(t, err)

			statements := splitStatements(string(script))
			var heads []string
			for _, stmt := range statements {
				assert.NotContains(t, stmt, "--")
				fields := strings.Fields(stmt)
				heads = append(heads, strings.Join(fields[:3], " "))
			}
			assert.Equal(t, []string{
				"CREATE TABLE system_setting",
				"CREATE TABLE tags",
				"CREATE INDEX tags_kana_id_idx",
				"CREATE TABLE tag_paths",
				"CREATE INDEX tag_paths_ancestor_id_distance_idx",
				"INSERT INTO tags",
				"INSERT INTO tag_paths",
				"CREATE TABLE media",
				"CREATE INDEX media_created_at_id_idx",
				"CREATE TABLE media_tags",
				"CREATE INDEX media_tags_tag_id_idx",
			}, heads)
			assert.Contains(t, statements[5], "'00000000-0000-0000-0000-000000000000', 'root', 'root'")
		})
	}
}

func TestSplitStatementsSeed(t *testing.T) {
	for _, driver := range []string{"postgres", "sqlite"} {
		script, err := fs.ReadFile(seedFS, path.Join("seed", driver, "01__tags.sql"))
		require.NoError(t, err)

		statements := splitStatements(string(script))
		require.Len(t, statements, 2, driver)
		assert.True(t, strings.HasPrefix(statements[0], "WITH seed (id, name, kana, aliases)"), driver)
		assert.Contains(t, statements[0], `'["あかりちゃん"]'`, driver)
		assert.True(t, strings.HasPrefix(statements[1], "WITH seed (ancestor_id, descendant_id, distance)"), driver)
	}
}

func TestParseMigrationScript(t *testing.T) {
	script, err := parseMigrationScript("migration/sqlite/0.2/00__media_tags_tag_id_idx.sql")
	require.NoError(t, err)
	assert.Equal(t, "0.2.1", script.version)

	script, err = parseMigrationScript("migration/sqlite/0.10/11__next.sql")
	require.NoError(t, err)
	assert.Equal(t, "0.10.12", script.version)

	for _, filePath := range []string{
		"migration/sqlite/0.2/media_tags_tag_id_idx.sql",
		"migration/sqlite/0.2/xx__media_tags_tag_id_idx.sql",
		"migration/sqlite/latest/00__media_tags_tag_id_idx.sql",
	} {
		_, err := parseMigrationScript(filePath)
		assert.Error(t, err, filePath)
	}
}

func TestPendingMigrationScripts(t *testing.T) {
	scripts := []migrationScript{
		{path: "0.1/00", version: "0.1.1"},
		{path: "0.2/00", version: "0.2.1"},
		{path: "0.2/01", version: "0.2.2"},
		{path: "0.3/00", version: "0.3.1"},
	}

	var paths []string
	for _, script := range pendingMigrationScripts(scripts, "0.1.1", "0.2.2") {
		paths = append(paths, script.path)
	}
	assert.Equal(t, []string{"0.2/00", "0.2/01"}, paths)
	assert.Empty(t, pendingMigrationScripts(scripts, "0.2.2", "0.2.2"))
	assert.Len(t, pendingMigrationScripts(scripts, initialSchemaVersion, "0.3.1"), 4)
}

func TestListMigrationScripts(t *testing.T) {
	for _, driver := range []string{"postgres", "sqlite"} {
		scripts, err := listMigrationScripts(driver)
		require.NoError(t, err)
		require.NotEmpty(t, scripts)
		for i := 1; i < len(scripts); i++ {
			assert.Equal(t, -1, version.Compare(scripts[i-1].version, scripts[i].version))
		}
	}
}

func TestGetCurrentSchemaVersion(t *testing.T) {
	for _, driver := range []string{"postgres", "sqlite"} {
		s := New(nil, &profile.Profile{Mode: "dev", Driver: driver})
		current, err := s.GetCurrentSchemaVersion()
		require.NoError(t, err)
		assert.Equal(t, "0.2.1", current, driver)
	}
}
