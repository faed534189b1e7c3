package tag

import (
	"context"

	"github.com/google/uuid"

	"github.com/chitoku-k/hoarder-sub005/store"
)

// Service defines the operations exposed to callers of the tag hierarchy.
// Every operation returning tags projects them per the given depth.
type Service interface {
	// CreateTag creates a tag, under ParentID if set or as a top-level tag otherwise.
	CreateTag(ctx context.Context, create *CreateTagRequest, depth store.TagDepth) (*store.TagNode, error)

	// UpdateTagByID updates the scalar attributes of a tag.
	UpdateTagByID(ctx context.Context, update *UpdateTagRequest, depth store.TagDepth) (*store.TagNode, error)

	// AttachTagByID moves the subtree rooted at id under parentID.
	AttachTagByID(ctx context.Context, id, parentID uuid.UUID, depth store.TagDepth) (*store.TagNode, error)

	// DetachTagByID moves the subtree rooted at id to the top level.
	DetachTagByID(ctx context.Context, id uuid.UUID, depth store.TagDepth) (*store.TagNode, error)

	// DeleteTagByID deletes a tag, and its whole subtree if recursive is set.
	DeleteTagByID(ctx context.Context, id uuid.UUID, recursive bool) (*store.DeleteResult, error)

	// GetTags lists tags one keyset page at a time.
	GetTags(ctx context.Context, find *GetTagsRequest) (*TagPage, error)

	// GetTagsByIDs returns the tags with the given ids. Unknown ids are skipped.
	GetTagsByIDs(ctx context.Context, ids []uuid.UUID, depth store.TagDepth) ([]*store.TagNode, error)

	// GetTagsByNameOrAliasLike returns the tags whose name, kana or any alias contains pattern, ignoring case.
	GetTagsByNameOrAliasLike(ctx context.Context, pattern string, depth store.TagDepth) ([]*store.TagNode, error)
}

// Store is the interface for store operations needed by the tag service.
type Store interface {
	CreateTag(ctx context.Context, create *store.CreateTag) (*store.Tag, error)
	UpdateTag(ctx context.Context, update *store.UpdateTag) (*store.Tag, error)
	AttachTag(ctx context.Context, attach *store.AttachTag) (*store.Tag, error)
	DetachTag(ctx context.Context, detach *store.DetachTag) (*store.Tag, error)
	DeleteTag(ctx context.Context, delete *store.DeleteTag) (*store.DeleteResult, error)
	ListTags(ctx context.Context, find *store.FindTag) ([]*store.Tag, error)
	ProjectTags(ctx context.Context, tags []*store.Tag, depth store.TagDepth) ([]*store.TagNode, error)
}

// CreateTagRequest represents the request to create a tag.
type CreateTagRequest struct {
	Name     string
	Kana     string
	Aliases  []string
	ParentID *uuid.UUID
}

// UpdateTagRequest represents the request to update a tag.
type UpdateTagRequest struct {
	ID            uuid.UUID
	Name          *string
	Kana          *string
	AddAliases    []string
	RemoveAliases []string
}

// GetTagsRequest represents the request to list a page of tags.
type GetTagsRequest struct {
	Depth store.TagDepth
	// RootOnly restricts the page to top-level tags.
	RootOnly  bool
	Cursor    *store.TagCursor
	Order     store.Order
	Direction store.Direction
	// Limit is the page size. Zero selects DefaultPageSize.
	Limit int
}

// TagPage is one page of GetTags.
type TagPage struct {
	Tags []*store.TagNode
	// HasMore reports whether further rows exist beyond this page in its direction.
	HasMore bool
}
