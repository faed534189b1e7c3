package store

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// RootTagID is the reserved id of the sentinel root tag.
// Every other tag is a descendant of it; it is never returned as an ordinary tag.
var RootTagID = uuid.Nil

// Tag is a named node in the tag hierarchy.
type Tag struct {
	ID uuid.UUID

	// Standard fields
	CreatedAt time.Time
	UpdatedAt time.Time

	// Domain specific fields
	Name string
	Kana string
	// Aliases is kept sorted and free of duplicates.
	Aliases []string
}

// TagPath is a row of the closure table.
type TagPath struct {
	AncestorID   uuid.UUID
	DescendantID uuid.UUID
	Distance     int
}

// TagCursor is the keyset resume point for listing tags, ordered by (kana, id).
type TagCursor struct {
	Kana string
	ID   uuid.UUID
}

type FindTag struct {
	IDs             []uuid.UUID
	NameOrAliasLike *string
	// RootOnly restricts the result to the direct children of the root tag.
	RootOnly bool

	// Keyset pagination
	Cursor    *TagCursor
	Order     Order
	Direction Direction
	Limit     *int
}

type FindTagPath struct {
	AncestorIDs   []uuid.UUID
	DescendantIDs []uuid.UUID
	MinDistance   *int
	MaxDistance   *int
}

type CreateTag struct {
	Name    string
	Kana    string
	Aliases []string
	// ParentID places the new tag under an existing tag. Nil creates a top-level tag.
	ParentID *uuid.UUID
}

type UpdateTag struct {
	ID            uuid.UUID
	Name          *string
	Kana          *string
	AddAliases    []string
	RemoveAliases []string
}

type AttachTag struct {
	ID       uuid.UUID
	ParentID uuid.UUID
}

type DetachTag struct {
	ID uuid.UUID
}

type DeleteTag struct {
	ID        uuid.UUID
	Recursive bool
}

// DeleteResult reports the outcome of a delete without raising for the not-found case.
type DeleteResult struct {
	NotFound bool
	// Deleted is the number of rows removed.
	Deleted int64
}

func DeleteResultNotFound() *DeleteResult {
	return &DeleteResult{NotFound: true}
}

func DeleteResultDeleted(n int64) *DeleteResult {
	return &DeleteResult{Deleted: n}
}

// Validate checks the arguments of an attach that can be rejected without reading the hierarchy.
func (a *AttachTag) Validate() error {
	if a.ID == RootTagID || a.ParentID == RootTagID {
		return ErrTagAttachingRoot
	}
	if a.ID == a.ParentID {
		return &TagAttachingToItselfError{ID: a.ID}
	}
	return nil
}

func (d *DetachTag) Validate() error {
	if d.ID == RootTagID {
		return ErrTagAttachingRoot
	}
	return nil
}

func (d *DeleteTag) Validate() error {
	if d.ID == RootTagID {
		return ErrTagDeletingRoot
	}
	return nil
}

// NormalizeAliases returns the aliases as a sorted set, dropping blanks.
func NormalizeAliases(aliases []string) []string {
	set := make([]string, 0, len(aliases))
	for _, alias := range aliases {
		if alias = strings.TrimSpace(alias); alias != "" {
			set = append(set, alias)
		}
	}
	slices.Sort(set)
	return slices.Compact(set)
}

// MergeAliases computes (existing ∪ add) \ remove.
func MergeAliases(existing, add, remove []string) []string {
	merged := NormalizeAliases(append(slices.Clone(existing), add...))
	removed := NormalizeAliases(remove)
	return slices.DeleteFunc(merged, func(alias string) bool {
		_, found := slices.BinarySearch(removed, alias)
		return found
	})
}

func (s *Store) CreateTag(ctx context.Context, create *CreateTag) (*Tag, error) {
	if strings.TrimSpace(create.Name) == "" {
		return nil, errors.New("tag name is required")
	}
	normalized := *create
	normalized.Aliases = NormalizeAliases(create.Aliases)
	tag, err := s.driver.CreateTag(ctx, &normalized)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create tag")
	}
	return tag, nil
}

func (s *Store) UpdateTag(ctx context.Context, update *UpdateTag) (*Tag, error) {
	if update.ID == RootTagID {
		return nil, &TagNotFoundError{ID: update.ID}
	}
	if update.Name != nil && strings.TrimSpace(*update.Name) == "" {
		return nil, errors.New("tag name must not be empty")
	}
	tag, err := s.driver.UpdateTag(ctx, update)
	if err != nil {
		return nil, errors.Wrap(err, "failed to update tag")
	}
	return tag, nil
}

func (s *Store) AttachTag(ctx context.Context, attach *AttachTag) (*Tag, error) {
	tag, err := s.driver.AttachTag(ctx, attach)
	if err != nil {
		return nil, errors.Wrap(err, "failed to attach tag")
	}
	return tag, nil
}

func (s *Store) DetachTag(ctx context.Context, detach *DetachTag) (*Tag, error) {
	tag, err := s.driver.DetachTag(ctx, detach)
	if err != nil {
		return nil, errors.Wrap(err, "failed to detach tag")
	}
	return tag, nil
}

func (s *Store) DeleteTag(ctx context.Context, delete *DeleteTag) (*DeleteResult, error) {
	result, err := s.driver.DeleteTag(ctx, delete)
	if err != nil {
		return nil, errors.Wrap(err, "failed to delete tag")
	}
	return result, nil
}

// ListTags lists tags. Rows are always returned in the requested order,
// including when paging backward.
func (s *Store) ListTags(ctx context.Context, find *FindTag) ([]*Tag, error) {
	list, err := s.driver.ListTags(ctx, find)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list tags")
	}
	RestoreOrder(list, find.Direction)
	return list, nil
}

func (s *Store) GetTag(ctx context.Context, id uuid.UUID) (*Tag, error) {
	list, err := s.ListTags(ctx, &FindTag{IDs: []uuid.UUID{id}})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (s *Store) ListTagPaths(ctx context.Context, find *FindTagPath) ([]*TagPath, error) {
	list, err := s.driver.ListTagPaths(ctx, find)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list tag paths")
	}
	return list, nil
}

// AncestorsOf returns the path from id up to and including the root, nearest first.
func (s *Store) AncestorsOf(ctx context.Context, id uuid.UUID) ([]*TagPath, error) {
	minDistance := 1
	list, err := s.ListTagPaths(ctx, &FindTagPath{DescendantIDs: []uuid.UUID{id}, MinDistance: &minDistance})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(list, func(a, b *TagPath) int { return a.Distance - b.Distance })
	return list, nil
}

// SubtreeOf returns id itself and every tag beneath it, with distances relative to id.
func (s *Store) SubtreeOf(ctx context.Context, id uuid.UUID) ([]*TagPath, error) {
	return s.ListTagPaths(ctx, &FindTagPath{AncestorIDs: []uuid.UUID{id}})
}

// IsAncestor reports whether a is b or lies on the path from b to the root.
func (s *Store) IsAncestor(ctx context.Context, a, b uuid.UUID) (bool, error) {
	list, err := s.ListTagPaths(ctx, &FindTagPath{AncestorIDs: []uuid.UUID{a}, DescendantIDs: []uuid.UUID{b}})
	if err != nil {
		return false, err
	}
	return len(list) > 0, nil
}
