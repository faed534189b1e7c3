package test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chitoku-k/hoarder-sub005/store"
)

func TestMigrateRecordsSchemaVersion(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ts := newTestingStore(ctx, t, "prod")

	currentSchemaVersion, err := ts.GetCurrentSchemaVersion()
	require.NoError(t, err)
	require.Equal(t, "0.2.1", currentSchemaVersion)

	setting, err := ts.GetSystemSetting(ctx, store.SystemSettingSchemaVersionName)
	require.NoError(t, err)
	require.NotNil(t, setting)
	require.Equal(t, currentSchemaVersion, setting.Value)

	// A fresh database holds the root tag and nothing else.
	tags, err := ts.ListTags(ctx, &store.FindTag{})
	require.NoError(t, err)
	require.Empty(t, tags)
	paths, err := ts.ListTagPaths(ctx, &store.FindTagPath{})
	require.NoError(t, err)
	require.Equal(t, []*store.TagPath{{AncestorID: store.RootTagID, DescendantID: store.RootTagID, Distance: 0}}, paths)
}

func TestMigrateAppliesPendingMigrations(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ts := newTestingStore(ctx, t, "prod")

	_, err := ts.UpsertSystemSetting(ctx, &store.SystemSetting{
		Name:  store.SystemSettingSchemaVersionName,
		Value: "0.1.0",
	})
	require.NoError(t, err)

	require.NoError(t, ts.Migrate(ctx))

	setting, err := ts.GetSystemSetting(ctx, store.SystemSettingSchemaVersionName)
	require.NoError(t, err)
	require.Equal(t, "0.2.1", setting.Value)
}

func TestMigrateRefusesDowngrade(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ts := newTestingStore(ctx, t, "prod")

	_, err := ts.UpsertSystemSetting(ctx, &store.SystemSetting{
		Name:  store.SystemSettingSchemaVersionName,
		Value: "9.9.9",
	})
	require.NoError(t, err)

	err = ts.Migrate(ctx)
	require.Error(t, err)
	require.Contains(t, err.Error(), "cannot downgrade schema version")
}

func TestMigrateSeedsDemoHierarchyOnce(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ts := newTestingStore(ctx, t, "demo")

	tags, err := ts.ListTags(ctx, &store.FindTag{})
	require.NoError(t, err)
	require.Len(t, tags, 3)

	require.NoError(t, ts.Migrate(ctx))
	again, err := ts.ListTags(ctx, &store.FindTag{})
	require.NoError(t, err)
	require.Len(t, again, 3)
}
