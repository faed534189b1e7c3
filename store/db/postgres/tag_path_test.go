package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chitoku-k/hoarder-sub005/internal/profile"
	"github.com/chitoku-k/hoarder-sub005/store"
)

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *DB) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	driver := NewDBWithConn(db, &profile.Profile{Mode: "dev", Driver: "postgres"})
	return db, mock, driver.(*DB)
}

func tagRows(tags ...*store.Tag) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"id", "name", "kana", "aliases", "created_at", "updated_at"})
	for _, tag := range tags {
		rows.AddRow(tag.ID.String(), tag.Name, tag.Kana, []byte("{}"), tag.CreatedAt, tag.UpdatedAt)
	}
	return rows
}

func idRows(ids ...uuid.UUID) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"id"})
	for _, id := range ids {
		rows.AddRow(id.String())
	}
	return rows
}

func TestAttachTag_ValidationRunsBeforeTransaction(t *testing.T) {
	db, mock, driver := setupMockDB(t)
	defer db.Close()

	id := uuid.New()

	_, err := driver.AttachTag(context.Background(), &store.AttachTag{ID: store.RootTagID, ParentID: id})
	assert.ErrorIs(t, err, store.ErrTagAttachingRoot)

	_, err = driver.AttachTag(context.Background(), &store.AttachTag{ID: id, ParentID: id})
	var itself *store.TagAttachingToItselfError
	assert.ErrorAs(t, err, &itself)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttachTag_DescendantRollsBack(t *testing.T) {
	db, mock, driver := setupMockDB(t)
	defer db.Close()

	id, parentID := uuid.New(), uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM tags WHERE id = ANY`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(idRows(id, parentID))
	mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM tag_paths`).
		WithArgs(id.String(), parentID.String()).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	_, err := driver.AttachTag(context.Background(), &store.AttachTag{ID: id, ParentID: parentID})
	var descendant *store.TagAttachingToDescendantError
	require.ErrorAs(t, err, &descendant)
	assert.Equal(t, id, descendant.ID)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttachTag_MissingParentRollsBack(t *testing.T) {
	db, mock, driver := setupMockDB(t)
	defer db.Close()

	id, parentID := uuid.New(), uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM tags WHERE id = ANY`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(idRows(id))
	mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM tag_paths`).
		WithArgs(id.String(), parentID.String()).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectRollback()

	_, err := driver.AttachTag(context.Background(), &store.AttachTag{ID: id, ParentID: parentID})
	var notFound *store.TagNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, parentID, notFound.ID)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttachTag_RewritesPaths(t *testing.T) {
	db, mock, driver := setupMockDB(t)
	defer db.Close()

	id, parentID := uuid.New(), uuid.New()
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM tags WHERE id = ANY`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(idRows(id, parentID))
	mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM tag_paths`).
		WithArgs(id.String(), parentID.String()).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery(`FOR UPDATE OF tags`).
		WithArgs(id.String()).
		WillReturnRows(idRows(id))
	mock.ExpectExec(`DELETE FROM tag_paths`).
		WithArgs(id.String()).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`INSERT INTO tag_paths`).
		WithArgs(parentID.String(), id.String()).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectQuery(`SELECT tags.id, tags.name`).
		WithArgs(id.String()).
		WillReturnRows(tagRows(&store.Tag{ID: id, Name: "child", Kana: "child", CreatedAt: now, UpdatedAt: now}))
	mock.ExpectCommit()

	tag, err := driver.AttachTag(context.Background(), &store.AttachTag{ID: id, ParentID: parentID})
	require.NoError(t, err)
	assert.Equal(t, id, tag.ID)
	assert.Equal(t, []string{}, tag.Aliases)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDetachTag_TopLevelIsNoop(t *testing.T) {
	db, mock, driver := setupMockDB(t)
	defer db.Close()

	id := uuid.New()
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM tags WHERE id = ANY`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(idRows(id))
	mock.ExpectQuery(`SELECT ancestor_id FROM tag_paths`).
		WithArgs(id.String()).
		WillReturnRows(sqlmock.NewRows([]string{"ancestor_id"}).AddRow(store.RootTagID.String()))
	mock.ExpectQuery(`SELECT tags.id, tags.name`).
		WithArgs(id.String()).
		WillReturnRows(tagRows(&store.Tag{ID: id, Name: "top", Kana: "top", CreatedAt: now, UpdatedAt: now}))
	mock.ExpectCommit()

	tag, err := driver.DetachTag(context.Background(), &store.DetachTag{ID: id})
	require.NoError(t, err)
	assert.Equal(t, id, tag.ID)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteTag_ChildrenExistRollsBack(t *testing.T) {
	db, mock, driver := setupMockDB(t)
	defer db.Close()

	id := uuid.MustParse("8a1b1c1d-0000-4000-8000-000000000000")
	first := uuid.MustParse("00000000-0000-4000-8000-000000000001")
	second := uuid.MustParse("ffffffff-0000-4000-8000-000000000002")

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM tags WHERE id = ANY`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(idRows(id))
	mock.ExpectQuery(`SELECT descendant_id FROM tag_paths`).
		WithArgs(id.String()).
		WillReturnRows(sqlmock.NewRows([]string{"descendant_id"}).AddRow(second.String()).AddRow(first.String()))
	mock.ExpectRollback()

	_, err := driver.DeleteTag(context.Background(), &store.DeleteTag{ID: id})
	var childrenExist *store.TagChildrenExistError
	require.ErrorAs(t, err, &childrenExist)
	assert.Equal(t, []uuid.UUID{first, second}, childrenExist.Children)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteTag_NotFound(t *testing.T) {
	db, mock, driver := setupMockDB(t)
	defer db.Close()

	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM tags WHERE id = ANY`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(idRows())
	mock.ExpectCommit()

	result, err := driver.DeleteTag(context.Background(), &store.DeleteTag{ID: id, Recursive: true})
	require.NoError(t, err)
	assert.True(t, result.NotFound)

	_, err = driver.DeleteTag(context.Background(), &store.DeleteTag{ID: store.RootTagID})
	assert.ErrorIs(t, err, store.ErrTagDeletingRoot)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListTags_BuildsKeysetQuery(t *testing.T) {
	db, mock, driver := setupMockDB(t)
	defer db.Close()

	cursorID := uuid.New()
	limit := 3

	mock.ExpectQuery(`WHERE tags.id <> \$1 AND \(tags.kana, tags.id\) < \(\$2, \$3\) ORDER BY tags.kana DESC, tags.id DESC LIMIT 3`).
		WithArgs(store.RootTagID.String(), "か", cursorID.String()).
		WillReturnRows(tagRows())

	list, err := driver.ListTags(context.Background(), &store.FindTag{
		Cursor:    &store.TagCursor{Kana: "か", ID: cursorID},
		Direction: store.DirectionBackward,
		Limit:     &limit,
	})
	require.NoError(t, err)
	assert.Empty(t, list)

	require.NoError(t, mock.ExpectationsWereMet())
}
