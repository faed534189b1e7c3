package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Media is a catalogued media item annotated with tags.
type Media struct {
	ID uuid.UUID

	// Standard fields
	CreatedAt time.Time
	UpdatedAt time.Time

	// Composed field
	TagIDs []uuid.UUID
}

// MediaCursor is the keyset resume point for listing media, ordered by (created_at, id).
type MediaCursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

type FindMedia struct {
	IDs []uuid.UUID
	// TagIDs restricts the result to media tagged with every given tag.
	TagIDs []uuid.UUID

	// Keyset pagination
	Cursor    *MediaCursor
	Order     Order
	Direction Direction
	Limit     *int
}

type DeleteMedia struct {
	ID uuid.UUID
}

func (s *Store) CreateMedia(ctx context.Context, create *Media) (*Media, error) {
	for _, tagID := range create.TagIDs {
		if tagID == RootTagID {
			return nil, &TagNotFoundError{ID: tagID}
		}
	}
	unique := *create
	unique.TagIDs = uniqueIDs(create.TagIDs)
	media, err := s.driver.CreateMedia(ctx, &unique)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create media")
	}
	return media, nil
}

// ListMedia lists media. Rows are always returned in the requested order,
// including when paging backward.
func (s *Store) ListMedia(ctx context.Context, find *FindMedia) ([]*Media, error) {
	// Media must carry every tag in TagIDs; repeats would make that count unreachable.
	unique := *find
	unique.TagIDs = uniqueIDs(find.TagIDs)
	list, err := s.driver.ListMedia(ctx, &unique)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list media")
	}
	RestoreOrder(list, find.Direction)
	return list, nil
}

func (s *Store) DeleteMedia(ctx context.Context, delete *DeleteMedia) (*DeleteResult, error) {
	result, err := s.driver.DeleteMedia(ctx, delete)
	if err != nil {
		return nil, errors.Wrap(err, "failed to delete media")
	}
	return result, nil
}

// uniqueIDs drops repeated ids, keeping the first occurrence of each.
func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	list := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			list = append(list, id)
		}
	}
	return list
}
