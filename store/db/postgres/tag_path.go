package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/chitoku-k/hoarder-sub005/store"
)

func (d *DB) AttachTag(ctx context.Context, attach *store.AttachTag) (*store.Tag, error) {
	if err := attach.Validate(); err != nil {
		return nil, err
	}

	var tag *store.Tag
	err := d.withTx(ctx, func(tx *sql.Tx) error {
		locked, err := lockTags(ctx, tx, attach.ID, attach.ParentID)
		if err != nil {
			return err
		}

		descendant, err := isAncestor(ctx, tx, attach.ID, attach.ParentID)
		if err != nil {
			return err
		}
		if descendant {
			return &store.TagAttachingToDescendantError{ID: attach.ID}
		}
		for _, id := range []uuid.UUID{attach.ID, attach.ParentID} {
			if !locked[id] {
				return &store.TagNotFoundError{ID: id}
			}
		}

		if _, err := lockSubtree(ctx, tx, attach.ID); err != nil {
			return err
		}
		if err := moveSubtree(ctx, tx, attach.ID, attach.ParentID); err != nil {
			return err
		}

		tag, err = getTag(ctx, tx, attach.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return tag, nil
}

func (d *DB) DetachTag(ctx context.Context, detach *store.DetachTag) (*store.Tag, error) {
	if err := detach.Validate(); err != nil {
		return nil, err
	}

	var tag *store.Tag
	err := d.withTx(ctx, func(tx *sql.Tx) error {
		locked, err := lockTags(ctx, tx, detach.ID)
		if err != nil {
			return err
		}
		if !locked[detach.ID] {
			return &store.TagNotFoundError{ID: detach.ID}
		}

		var parentID uuid.UUID
		if err := tx.QueryRowContext(ctx, "SELECT ancestor_id FROM tag_paths WHERE descendant_id = $1 AND distance = 1", detach.ID).Scan(&parentID); err != nil {
			return fmt.Errorf("failed to get parent tag: %w", err)
		}

		if parentID != store.RootTagID {
			if _, err := lockSubtree(ctx, tx, detach.ID); err != nil {
				return err
			}
			if err := moveSubtree(ctx, tx, detach.ID, store.RootTagID); err != nil {
				return err
			}
		}

		tag, err = getTag(ctx, tx, detach.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return tag, nil
}

func (d *DB) DeleteTag(ctx context.Context, delete *store.DeleteTag) (*store.DeleteResult, error) {
	if err := delete.Validate(); err != nil {
		return nil, err
	}

	var result *store.DeleteResult
	err := d.withTx(ctx, func(tx *sql.Tx) error {
		locked, err := lockTags(ctx, tx, delete.ID)
		if err != nil {
			return err
		}
		if !locked[delete.ID] {
			result = store.DeleteResultNotFound()
			return nil
		}

		if !delete.Recursive {
			children, err := listChildren(ctx, tx, delete.ID)
			if err != nil {
				return err
			}
			if len(children) > 0 {
				return &store.TagChildrenExistError{ID: delete.ID, Children: children}
			}
		}

		ids, err := lockSubtree(ctx, tx, delete.ID)
		if err != nil {
			return err
		}

		// Closure rows and media links go with the tags by cascade.
		res, err := tx.ExecContext(ctx, "DELETE FROM tags WHERE id = ANY($1::uuid[])", uuidArray(ids))
		if err != nil {
			return fmt.Errorf("failed to delete tags: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to count deleted tags: %w", err)
		}

		result = store.DeleteResultDeleted(n)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (d *DB) ListTagPaths(ctx context.Context, find *store.FindTagPath) ([]*store.TagPath, error) {
	where, args := []string{"1 = 1"}, []any{}

	if len(find.AncestorIDs) > 0 {
		where, args = append(where, "ancestor_id = ANY("+placeholder(len(args)+1)+"::uuid[])"), append(args, uuidArray(find.AncestorIDs))
	}
	if len(find.DescendantIDs) > 0 {
		where, args = append(where, "descendant_id = ANY("+placeholder(len(args)+1)+"::uuid[])"), append(args, uuidArray(find.DescendantIDs))
	}
	if v := find.MinDistance; v != nil {
		where, args = append(where, "distance >= "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.MaxDistance; v != nil {
		where, args = append(where, "distance <= "+placeholder(len(args)+1)), append(args, *v)
	}

	query := `SELECT ancestor_id, descendant_id, distance FROM tag_paths WHERE ` + strings.Join(where, " AND ") + ` ORDER BY descendant_id, distance`
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tag paths: %w", err)
	}
	defer rows.Close()

	list := []*store.TagPath{}
	for rows.Next() {
		path := &store.TagPath{}
		if err := rows.Scan(&path.AncestorID, &path.DescendantID, &path.Distance); err != nil {
			return nil, fmt.Errorf("failed to scan tag path: %w", err)
		}
		list = append(list, path)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tag paths: %w", err)
	}

	return list, nil
}

// lockTags locks the given tag rows in id order and reports which of them exist.
func lockTags(ctx context.Context, tx *sql.Tx, ids ...uuid.UUID) (map[uuid.UUID]bool, error) {
	rows, err := tx.QueryContext(ctx, "SELECT id FROM tags WHERE id = ANY($1::uuid[]) ORDER BY id FOR UPDATE", uuidArray(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to lock tags: %w", err)
	}
	defer rows.Close()

	locked := map[uuid.UUID]bool{}
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan locked tag: %w", err)
		}
		locked[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate locked tags: %w", err)
	}
	return locked, nil
}

// lockSubtree locks every tag in the subtree rooted at id and returns their ids.
func lockSubtree(ctx context.Context, tx *sql.Tx, id uuid.UUID) ([]uuid.UUID, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT tags.id FROM tags
		JOIN tag_paths ON tag_paths.descendant_id = tags.id
		WHERE tag_paths.ancestor_id = $1
		ORDER BY tags.id
		FOR UPDATE OF tags`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to lock subtree: %w", err)
	}
	defer rows.Close()

	ids := []uuid.UUID{}
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan subtree: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate subtree: %w", err)
	}
	return ids, nil
}

func isAncestor(ctx context.Context, tx *sql.Tx, ancestorID, descendantID uuid.UUID) (bool, error) {
	var exists bool
	if err := tx.QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM tag_paths WHERE ancestor_id = $1 AND descendant_id = $2)", ancestorID, descendantID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check ancestry: %w", err)
	}
	return exists, nil
}

func listChildren(ctx context.Context, tx *sql.Tx, id uuid.UUID) ([]uuid.UUID, error) {
	rows, err := tx.QueryContext(ctx, "SELECT descendant_id FROM tag_paths WHERE ancestor_id = $1 AND distance = 1", id)
	if err != nil {
		return nil, fmt.Errorf("failed to list children: %w", err)
	}
	defer rows.Close()

	children := []uuid.UUID{}
	for rows.Next() {
		var child uuid.UUID
		if err := rows.Scan(&child); err != nil {
			return nil, fmt.Errorf("failed to scan child: %w", err)
		}
		children = append(children, child)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate children: %w", err)
	}
	slices.SortFunc(children, func(a, b uuid.UUID) int { return strings.Compare(a.String(), b.String()) })
	return children, nil
}

// moveSubtree re-parents the subtree rooted at id under parentID.
// Paths between the subtree and its former ancestors are removed, then
// every ancestor of parentID (parentID included) is joined to every
// member of the subtree.
func moveSubtree(ctx context.Context, tx *sql.Tx, id, parentID uuid.UUID) error {
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM tag_paths
		WHERE descendant_id IN (SELECT descendant_id FROM tag_paths WHERE ancestor_id = $1)
		AND ancestor_id NOT IN (SELECT descendant_id FROM tag_paths WHERE ancestor_id = $1)`, id); err != nil {
		return fmt.Errorf("failed to delete tag paths: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO tag_paths (ancestor_id, descendant_id, distance)
		SELECT ancestors.ancestor_id, subtree.descendant_id, ancestors.distance + subtree.distance + 1
		FROM tag_paths AS ancestors
		CROSS JOIN tag_paths AS subtree
		WHERE ancestors.descendant_id = $1 AND subtree.ancestor_id = $2`, parentID, id); err != nil {
		return fmt.Errorf("failed to insert tag paths: %w", err)
	}

	return nil
}
