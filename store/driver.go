package store

import (
	"context"
	"database/sql"
)

// Driver is an interface for store driver.
// It contains all methods that store database driver should implement.
//
// Every tag mutation runs in a single transaction; structural errors are
// detected before any row is written.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	IsInitialized(ctx context.Context) (bool, error)

	// SystemSetting model related methods.
	UpsertSystemSetting(ctx context.Context, upsert *SystemSetting) (*SystemSetting, error)
	ListSystemSettings(ctx context.Context, find *FindSystemSetting) ([]*SystemSetting, error)

	// Tag model related methods.
	CreateTag(ctx context.Context, create *CreateTag) (*Tag, error)
	UpdateTag(ctx context.Context, update *UpdateTag) (*Tag, error)
	ListTags(ctx context.Context, find *FindTag) ([]*Tag, error)

	// Tag hierarchy related methods.
	AttachTag(ctx context.Context, attach *AttachTag) (*Tag, error)
	DetachTag(ctx context.Context, detach *DetachTag) (*Tag, error)
	DeleteTag(ctx context.Context, delete *DeleteTag) (*DeleteResult, error)
	ListTagPaths(ctx context.Context, find *FindTagPath) ([]*TagPath, error)

	// Media model related methods.
	CreateMedia(ctx context.Context, create *Media) (*Media, error)
	ListMedia(ctx context.Context, find *FindMedia) ([]*Media, error)
	DeleteMedia(ctx context.Context, delete *DeleteMedia) (*DeleteResult, error)
}
