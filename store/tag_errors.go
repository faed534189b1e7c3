package store

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var (
	// ErrTagAttachingRoot is returned when either endpoint of an attach is the root tag.
	ErrTagAttachingRoot = errors.New("root tag cannot be attached")
	// ErrTagDeletingRoot is returned when deleting the root tag.
	ErrTagDeletingRoot = errors.New("root tag cannot be deleted")
)

type TagNotFoundError struct {
	ID uuid.UUID
}

func (e *TagNotFoundError) Error() string {
	return fmt.Sprintf("tag not found: %s", e.ID)
}

type TagAttachingToItselfError struct {
	ID uuid.UUID
}

func (e *TagAttachingToItselfError) Error() string {
	return fmt.Sprintf("tag cannot be attached to itself: %s", e.ID)
}

// TagAttachingToDescendantError is returned when the new parent lies within the subtree of the tag.
type TagAttachingToDescendantError struct {
	ID uuid.UUID
}

func (e *TagAttachingToDescendantError) Error() string {
	return fmt.Sprintf("tag cannot be attached to its descendant: %s", e.ID)
}

// TagChildrenExistError is returned by a non-recursive delete of a tag that has children.
// Children holds the direct children sorted by id.
type TagChildrenExistError struct {
	ID       uuid.UUID
	Children []uuid.UUID
}

func (e *TagChildrenExistError) Error() string {
	return fmt.Sprintf("tag has %d children: %s", len(e.Children), e.ID)
}

// IsTagStructuralError reports whether err belongs to the tag error taxonomy
// rather than being a storage failure.
func IsTagStructuralError(err error) bool {
	var (
		notFound      *TagNotFoundError
		toItself      *TagAttachingToItselfError
		toDescendant  *TagAttachingToDescendantError
		childrenExist *TagChildrenExistError
	)
	return errors.Is(err, ErrTagAttachingRoot) ||
		errors.Is(err, ErrTagDeletingRoot) ||
		errors.As(err, &notFound) ||
		errors.As(err, &toItself) ||
		errors.As(err, &toDescendant) ||
		errors.As(err, &childrenExist)
}
