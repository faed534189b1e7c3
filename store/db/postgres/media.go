package postgres

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
			found, err := shareTags(ctx, tx, create.TagIDs)
			if err != nil {
				return err
			}
			for _, id := range create.TagIDs {
				if !found[id] {
					return &store.TagNotFoundError{ID: id}
				}
			}
		}

		created := &store.Media{TagIDs: []uuid.UUID{}}
		if err := tx.QueryRowContext(ctx, "INSERT INTO media DEFAULT VALUES RETURNING id, created_at, updated_at").Scan(&created.ID, &created.CreatedAt, &created.UpdatedAt); err != nil {
			return fmt.Errorf("failed to insert media: %w", err)
		}

		if len(create.TagIDs) > 0 {
			if _, err := tx.ExecContext(ctx, "INSERT INTO media_tags (media_id, tag_id) SELECT $1::uuid, unnest($2::uuid[])", created.ID, uuidArray(create.TagIDs)); err != nil {
				return fmt.Errorf("failed to insert media tags: %w", err)
			}
			created.TagIDs = append(created.TagIDs, create.TagIDs...)
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
		where, args = append(where, "media.id = ANY("+placeholder(len(args)+1)+"::uuid[])"), append(args, uuidArray(find.IDs))
	}
	if len(find.TagIDs) > 0 {
		n := len(args)
		where = append(where, fmt.Sprintf(
			"media.id IN (SELECT media_id FROM media_tags WHERE tag_id = ANY(%s::uuid[]) GROUP BY media_id HAVING COUNT(*) = %s)",
			placeholder(n+1), placeholder(n+2),
		))
		args = append(args, uuidArray(find.TagIDs), len(find.TagIDs))
	}

	comparison, sort := store.Keyset(find.Order, find.Direction)
	if v := find.Cursor; v != nil {
		n := len(args)
		where = append(where, fmt.Sprintf("(media.created_at, media.id) %s (%s, %s)", comparison, placeholder(n+1), placeholder(n+2)))
		args = append(args, v.CreatedAt, v.ID)
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
		if err := rows.Scan(&media.ID, &media.CreatedAt, &media.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan media: %w", err)
		}
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
	res, err := d.db.ExecContext(ctx, "DELETE FROM media WHERE id = $1", delete.ID)
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
	rows, err := d.db.QueryContext(ctx, "SELECT media_id, tag_id FROM media_tags WHERE media_id = ANY($1::uuid[]) ORDER BY media_id, tag_id", uuidArray(mediaIDs))
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

// shareTags takes a share lock on the given non-root tags and reports which exist.
func shareTags(ctx context.Context, tx *sql.Tx, ids []uuid.UUID) (map[uuid.UUID]bool, error) {
	rows, err := tx.QueryContext(ctx, "SELECT id FROM tags WHERE id = ANY($1::uuid[]) AND id <> $2 ORDER BY id FOR SHARE", uuidArray(ids), store.RootTagID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock tags: %w", err)
	}
	defer rows.Close()

	found := map[uuid.UUID]bool{}
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		found[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tags: %w", err)
	}
	return found, nil
}
