package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/chitoku-k/hoarder-sub005/store"
)

const tagColumns = "tags.id, tags.name, tags.kana, tags.aliases, tags.created_at, tags.updated_at"

func scanTag(row scanner) (*store.Tag, error) {
	tag := &store.Tag{}
	var aliases pq.StringArray
	if err := row.Scan(&tag.ID, &tag.Name, &tag.Kana, &aliases, &tag.CreatedAt, &tag.UpdatedAt); err != nil {
		return nil, err
	}
	tag.Aliases = []string{}
	if len(aliases) > 0 {
		tag.Aliases = []string(aliases)
	}
	return tag, nil
}

func (d *DB) CreateTag(ctx context.Context, create *store.CreateTag) (*store.Tag, error) {
	parentID := store.RootTagID
	if create.ParentID != nil {
		parentID = *create.ParentID
	}

	var tag *store.Tag
	err := d.withTx(ctx, func(tx *sql.Tx) error {
		// The parent must not disappear while its paths are copied.
		var locked uuid.UUID
		if err := tx.QueryRowContext(ctx, "SELECT id FROM tags WHERE id = $1 FOR SHARE", parentID).Scan(&locked); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return &store.TagNotFoundError{ID: parentID}
			}
			return fmt.Errorf("failed to lock parent tag: %w", err)
		}

		stmt := "INSERT INTO tags (name, kana, aliases) VALUES (" + placeholders(3) + ") RETURNING " + tagColumns
		created, err := scanTag(tx.QueryRowContext(ctx, stmt, create.Name, create.Kana, pq.Array(nonNilAliases(create.Aliases))))
		if err != nil {
			return fmt.Errorf("failed to insert tag: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO tag_paths (ancestor_id, descendant_id, distance)
			SELECT ancestor_id, $1::uuid, distance + 1 FROM tag_paths WHERE descendant_id = $2
			UNION ALL
			SELECT $1::uuid, $1::uuid, 0`, created.ID, parentID); err != nil {
			return fmt.Errorf("failed to insert tag paths: %w", err)
		}

		tag = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tag, nil
}

func (d *DB) UpdateTag(ctx context.Context, update *store.UpdateTag) (*store.Tag, error) {
	var tag *store.Tag
	err := d.withTx(ctx, func(tx *sql.Tx) error {
		current, err := scanTag(tx.QueryRowContext(ctx, "SELECT "+tagColumns+" FROM tags WHERE id = $1 FOR UPDATE", update.ID))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return &store.TagNotFoundError{ID: update.ID}
			}
			return fmt.Errorf("failed to lock tag: %w", err)
		}

		name, kana := current.Name, current.Kana
		if update.Name != nil {
			name = *update.Name
		}
		if update.Kana != nil {
			kana = *update.Kana
		}
		aliases := store.MergeAliases(current.Aliases, update.AddAliases, update.RemoveAliases)

		stmt := `
			UPDATE tags
			SET name = $1, kana = $2, aliases = $3, updated_at = CURRENT_TIMESTAMP
			WHERE id = $4
			RETURNING ` + tagColumns
		updated, err := scanTag(tx.QueryRowContext(ctx, stmt, name, kana, pq.Array(aliases), update.ID))
		if err != nil {
			return fmt.Errorf("failed to update tag: %w", err)
		}

		tag = updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tag, nil
}

func (d *DB) ListTags(ctx context.Context, find *store.FindTag) ([]*store.Tag, error) {
	where, args := []string{"tags.id <> " + placeholder(1)}, []any{store.RootTagID}

	if len(find.IDs) > 0 {
		where, args = append(where, "tags.id = ANY("+placeholder(len(args)+1)+"::uuid[])"), append(args, uuidArray(find.IDs))
	}
	if v := find.NameOrAliasLike; v != nil {
		n := len(args)
		where = append(where, fmt.Sprintf(
			"(tags.name ILIKE %s OR tags.kana ILIKE %s OR EXISTS (SELECT 1 FROM unnest(tags.aliases) AS alias WHERE alias ILIKE %s))",
			placeholder(n+1), placeholder(n+2), placeholder(n+3),
		))
		pattern := containsPattern(*v)
		args = append(args, pattern, pattern, pattern)
	}
	if find.RootOnly {
		where = append(where, "EXISTS (SELECT 1 FROM tag_paths WHERE tag_paths.ancestor_id = "+placeholder(len(args)+1)+" AND tag_paths.descendant_id = tags.id AND tag_paths.distance = 1)")
		args = append(args, store.RootTagID)
	}

	comparison, sort := store.Keyset(find.Order, find.Direction)
	if v := find.Cursor; v != nil {
		n := len(args)
		where = append(where, fmt.Sprintf("(tags.kana, tags.id) %s (%s, %s)", comparison, placeholder(n+1), placeholder(n+2)))
		args = append(args, v.Kana, v.ID)
	}

	query := `SELECT ` + tagColumns + ` FROM tags WHERE ` + strings.Join(where, " AND ") +
		fmt.Sprintf(" ORDER BY tags.kana %s, tags.id %s", sort, sort)
	if find.Limit != nil {
		query = fmt.Sprintf("%s LIMIT %d", query, *find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	defer rows.Close()

	list := []*store.Tag{}
	for rows.Next() {
		tag, err := scanTag(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		list = append(list, tag)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tags: %w", err)
	}

	return list, nil
}

func getTag(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*store.Tag, error) {
	tag, err := scanTag(tx.QueryRowContext(ctx, "SELECT "+tagColumns+" FROM tags WHERE id = $1", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &store.TagNotFoundError{ID: id}
		}
		return nil, fmt.Errorf("failed to get tag: %w", err)
	}
	return tag, nil
}

func nonNilAliases(aliases []string) []string {
	if aliases == nil {
		return []string{}
	}
	return aliases
}
