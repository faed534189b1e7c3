package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/chitoku-k/hoarder-sub005/store"
)

func (d *DB) CreateMedia(ctx context.Context, create *store.Media) (*store.Media, error) {
	var media *store.Media
	err := d.withTx(ctx, func(tx *sql.Tx) error {
		if len(create.TagIDs) > 0 {
			found, err := findTags(ctx, tx, create.TagIDs...)
			if err != nil {
				return err
			}
			for _, id := range create.TagIDs {
				if id == store.RootTagID || !found[id] {
					return &store.TagNotFoundError{ID: id}
				}
			}
		}

		created := &store.Media{TagIDs: []uuid.UUID{}}
		var createdTs, updatedTs int64
		if err := tx.QueryRowContext(ctx, "INSERT INTO media (id) VALUES (?) RETURNING id, created_at, updated_at", uuid.New()).Scan(&created.ID, &createdTs, &updatedTs); err != nil {
			return fmt.Errorf("failed to insert media: %w", err)
		}
		created.CreatedAt = unixTime(createdTs)
		created.UpdatedAt = unixTime(updatedTs)

		for _, tagID := range create.TagIDs {
			if _, err := tx.ExecContext(ctx, "INSERT INTO media_tags (media_id, tag_id) VALUES (?, ?)", created.ID, tagID); err != nil {
				return fmt.Errorf("failed to insert media tag: %w", err)
			}
			created.TagIDs = append(created.TagIDs, tagID)
		}

		media = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return media, nil
}

func (d *DB) ListMedia(ctx context.Context, find *store.FindMedia) ([]*store.Media, error) {
	where, args := []string{"1 = 1"}, []any{}

	if len(find.IDs) > 0 {
		where, args = append(where, "media.id IN ("+placeholders(len(find.IDs))+")"), append(args, idArgs(find.IDs)...)
	}
	if len(find.TagIDs) > 0 {
		where = append(where, "media.id IN (SELECT media_id FROM media_tags WHERE tag_id IN ("+placeholders(len(find.TagIDs))+") GROUP BY media_id HAVING COUNT(*) = ?)")
		args = append(append(args, idArgs(find.TagIDs)...), len(find.TagIDs))
	}

	comparison, sort := store.Keyset(find.Order, find.Direction)
	if v := find.Cursor; v != nil {
		where = append(where, fmt.Sprintf("(media.created_at, media.id) %s (?, ?)", comparison))
		args = append(args, v.CreatedAt.Unix(), v.ID)
	}

	query := `SELECT media.id, media.created_at, media.updated_at FROM media WHERE ` + strings.Join(where, " AND ") +
		fmt.Sprintf(" ORDER BY media.created_at %s, media.id %s", sort, sort)
	if find.Limit != nil {
		query = fmt.Sprintf("%s LIMIT %d", query, *find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list media: %w", err)
	}
	defer rows.Close()

	list := []*store.Media{}
	ids := []uuid.UUID{}
	for rows.Next() {
		media := &store.Media{TagIDs: []uuid.UUID{}}
		var createdTs, updatedTs int64
		if err := rows.Scan(&media.ID, &createdTs, &updatedTs); err != nil {
			return nil, fmt.Errorf("failed to scan media: %w", err)
		}
		media.CreatedAt = unixTime(createdTs)
		media.UpdatedAt = unixTime(updatedTs)
		list = append(list, media)
		ids = append(ids, media.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate media: %w", err)
	}

	if len(list) == 0 {
		return list, nil
	}

	tagIDs, err := d.listMediaTags(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, media := range list {
		if v, ok := tagIDs[media.ID]; ok {
			media.TagIDs = v
		}
	}

	return list, nil
}

func (d *DB) DeleteMedia(ctx context.Context, delete *store.DeleteMedia) (*store.DeleteResult, error) {
	res, err := d.db.ExecContext(ctx, "DELETE FROM media WHERE id = ?", delete.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to delete media: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to count deleted media: %w", err)
	}
	if n == 0 {
		return store.DeleteResultNotFound(), nil
	}
	return store.DeleteResultDeleted(n), nil
}

func (d *DB) listMediaTags(ctx context.Context, mediaIDs []uuid.UUID) (map[uuid.UUID][]uuid.UUID, error) {
	query := "SELECT media_id, tag_id FROM media_tags WHERE media_id IN (" + placeholders(len(mediaIDs)) + ") ORDER BY media_id, tag_id"
	rows, err := d.db.QueryContext(ctx, query, idArgs(mediaIDs)...)
	if err != nil {
		return nil, fmt.Errorf("failed to list media tags: %w", err)
	}
	defer rows.Close()

	tagIDs := map[uuid.UUID][]uuid.UUID{}
	for rows.Next() {
		var mediaID, tagID uuid.UUID
		if err := rows.Scan(&mediaID, &tagID); err != nil {
			return nil, fmt.Errorf("failed to scan media tag: %w", err)
		}
		tagIDs[mediaID] = append(tagIDs[mediaID], tagID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate media tags: %w", err)
	}
	return tagIDs, nil
}
