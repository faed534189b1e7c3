package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/chitoku-k/hoarder-sub005/store"
)

const (
	tagColumns = "tags.id, tags.name, tags.kana, tags.aliases, tags.created_at, tags.updated_at"
	// RETURNING does not take qualified column names.
	tagReturning = "id, name, kana, aliases, created_at, updated_at"
)

func scanTag(row scanner) (*store.Tag, error) {
	tag := &store.Tag{}
	var aliases string
	var createdTs, updatedTs int64
	if err := row.Scan(&tag.ID, &tag.Name, &tag.Kana, &aliases, &createdTs, &updatedTs); err != nil {
		return nil, err
	}
	tag.Aliases = []string{}
	if err := json.Unmarshal([]byte(aliases), &tag.Aliases); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal aliases")
	}
	tag.CreatedAt = unixTime(createdTs)
	tag.UpdatedAt = unixTime(updatedTs)
	return tag, nil
}

func marshalAliases(aliases []string) (string, error) {
	if aliases == nil {
		aliases = []string{}
	}
	bytes, err := json.Marshal(aliases)
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal aliases")
	}
	return string(bytes), nil
}

func (d *DB) CreateTag(ctx context.Context, create *store.CreateTag) (*store.Tag, error) {
	parentID := store.RootTagID
	if create.ParentID != nil {
		parentID = *create.ParentID
	}
	aliases, err := marshalAliases(create.Aliases)
	if err != nil {
		return nil, err
	}

	var tag *store.Tag
	err = d.withTx(ctx, func(tx *sql.Tx) error {
		exists, err := tagExists(ctx, tx, parentID)
		if err != nil {
			return err
		}
		if !exists {
			return &store.TagNotFoundError{ID: parentID}
		}

		stmt := "INSERT INTO tags (id, name, kana, aliases) VALUES (" + placeholders(4) + ") RETURNING " + tagReturning
		created, err := scanTag(tx.QueryRowContext(ctx, stmt, uuid.New(), create.Name, create.Kana, aliases))
		if err != nil {
			return fmt.Errorf("failed to insert tag: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO tag_paths (ancestor_id, descendant_id, distance)
			SELECT ancestor_id, ?, distance + 1 FROM tag_paths WHERE descendant_id = ?
			UNION ALL
			SELECT ?, ?, 0`, created.ID, parentID, created.ID, created.ID); err != nil {
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
		current, err := getTag(ctx, tx, update.ID)
		if err != nil {
			return err
		}

		name, kana := current.Name, current.Kana
		if update.Name != nil {
			name = *update.Name
		}
		if update.Kana != nil {
			kana = *update.Kana
		}
		aliases, err := marshalAliases(store.MergeAliases(current.Aliases, update.AddAliases, update.RemoveAliases))
		if err != nil {
			return err
		}

		stmt := `
			UPDATE tags
			SET name = ?, kana = ?, aliases = ?, updated_at = (strftime('%s', 'now'))
			WHERE id = ?
			RETURNING ` + tagReturning
		updated, err := scanTag(tx.QueryRowContext(ctx, stmt, name, kana, aliases, update.ID))
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
		where, args = append(where, "tags.id IN ("+placeholders(len(find.IDs))+")"), append(args, idArgs(find.IDs)...)
	}
	if v := find.NameOrAliasLike; v != nil {
		where = append(where, `(unicode_lower(tags.name) LIKE unicode_lower(?) ESCAPE '\'`+
			` OR unicode_lower(tags.kana) LIKE unicode_lower(?) ESCAPE '\'`+
			` OR EXISTS (SELECT 1 FROM json_each(tags.aliases) WHERE unicode_lower(json_each.value) LIKE unicode_lower(?) ESCAPE '\'))`)
		pattern := containsPattern(*v)
		args = append(args, pattern, pattern, pattern)
	}
	if find.RootOnly {
		where = append(where, "EXISTS (SELECT 1 FROM tag_paths WHERE tag_paths.ancestor_id = "+placeholder(len(args)+1)+" AND tag_paths.descendant_id = tags.id AND tag_paths.distance = 1)")
		args = append(args, store.RootTagID)
	}

	comparison, sort := store.Keyset(find.Order, find.Direction)
	if v := find.Cursor; v != nil {
		where = append(where, fmt.Sprintf("(tags.kana, tags.id) %s (?, ?)", comparison))
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
	tag, err := scanTag(tx.QueryRowContext(ctx, "SELECT "+tagColumns+" FROM tags WHERE id = ?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &store.TagNotFoundError{ID: id}
		}
		return nil, fmt.Errorf("failed to get tag: %w", err)
	}
	return tag, nil
}

func tagExists(ctx context.Context, tx *sql.Tx, id uuid.UUID) (bool, error) {
	var exists bool
	if err := tx.QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM tags WHERE id = ?)", id).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check tag: %w", err)
	}
	return exists, nil
}
