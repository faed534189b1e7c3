// Package tag provides the tag hierarchy operations on top of the store:
// creation with placement, re-parenting, deletion and paged or filtered reads,
// each returning tags projected to the requested depth.
//
// Every operation is logged with a request ID and recorded in Prometheus.
// Refusals from the tag error taxonomy are logged at warn level, storage
// failures at error level.
package tag

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	apierrors "github.com/chitoku-k/hoarder-sub005/server/internal/errors"
	"github.com/chitoku-k/hoarder-sub005/server/internal/observability"
	"github.com/chitoku-k/hoarder-sub005/store"
)

const (
	// DefaultPageSize is the page size used when a request leaves it unset.
	DefaultPageSize = 50
	// MaxPageSize bounds the page size of a single request.
	MaxPageSize = 500
	// MaxDepth bounds both directions of a requested projection depth.
	MaxDepth = 32
)

type service struct {
	store   Store
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewService creates a new tag service.
func NewService(store Store, logger *slog.Logger, metrics *observability.Metrics) Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &service{store: store, logger: logger, metrics: metrics}
}

func (s *service) CreateTag(ctx context.Context, create *CreateTagRequest, depth store.TagDepth) (*store.TagNode, error) {
	var node *store.TagNode
	err := s.run(ctx, "create_tag", func(reqCtx *observability.RequestContext) error {
		if err := validateDepth(depth); err != nil {
			return err
		}
		if strings.TrimSpace(create.Name) == "" {
			return apierrors.InvalidArgument("name is required")
		}

		tag, err := s.store.CreateTag(ctx, &store.CreateTag{
			Name:     create.Name,
			Kana:     create.Kana,
			Aliases:  create.Aliases,
			ParentID: create.ParentID,
		})
		if err != nil {
			return err
		}
		reqCtx.Debug("tag created", slog.String(observability.LogFieldTagID, tag.ID.String()))

		node, err = s.project(ctx, tag, depth)
		return err
	})
	return node, err
}

func (s *service) UpdateTagByID(ctx context.Context, update *UpdateTagRequest, depth store.TagDepth) (*store.TagNode, error) {
	var node *store.TagNode
	err := s.run(ctx, "update_tag_by_id", func(reqCtx *observability.RequestContext) error {
		if err := validateDepth(depth); err != nil {
			return err
		}
		if update.Name != nil && strings.TrimSpace(*update.Name) == "" {
			return apierrors.InvalidArgument("name must not be empty")
		}

		tag, err := s.store.UpdateTag(ctx, &store.UpdateTag{
			ID:            update.ID,
			Name:          update.Name,
			Kana:          update.Kana,
			AddAliases:    update.AddAliases,
			RemoveAliases: update.RemoveAliases,
		})
		if err != nil {
			return err
		}

		node, err = s.project(ctx, tag, depth)
		return err
	})
	return node, err
}

func (s *service) AttachTagByID(ctx context.Context, id, parentID uuid.UUID, depth store.TagDepth) (*store.TagNode, error) {
	var node *store.TagNode
	err := s.run(ctx, "attach_tag_by_id", func(reqCtx *observability.RequestContext) error {
		if err := validateDepth(depth); err != nil {
			return err
		}

		tag, err := s.store.AttachTag(ctx, &store.AttachTag{ID: id, ParentID: parentID})
		if err != nil {
			return err
		}
		reqCtx.Debug("tag attached",
			slog.String(observability.LogFieldTagID, id.String()),
			slog.String("parent_id", parentID.String()))

		node, err = s.project(ctx, tag, depth)
		return err
	})
	return node, err
}

func (s *service) DetachTagByID(ctx context.Context, id uuid.UUID, depth store.TagDepth) (*store.TagNode, error) {
	var node *store.TagNode
	err := s.run(ctx, "detach_tag_by_id", func(reqCtx *observability.RequestContext) error {
		if err := validateDepth(depth); err != nil {
			return err
		}

		tag, err := s.store.DetachTag(ctx, &store.DetachTag{ID: id})
		if err != nil {
			return err
		}

		node, err = s.project(ctx, tag, depth)
		return err
	})
	return node, err
}

func (s *service) DeleteTagByID(ctx context.Context, id uuid.UUID, recursive bool) (*store.DeleteResult, error) {
	var result *store.DeleteResult
	err := s.run(ctx, "delete_tag_by_id", func(reqCtx *observability.RequestContext) error {
		var err error
		result, err = s.store.DeleteTag(ctx, &store.DeleteTag{ID: id, Recursive: recursive})
		if err != nil {
			return err
		}
		reqCtx.Debug("tag deleted",
			slog.String(observability.LogFieldTagID, id.String()),
			slog.Bool("not_found", result.NotFound),
			slog.Int64("deleted", result.Deleted))
		return nil
	})
	return result, err
}

func (s *service) GetTags(ctx context.Context, find *GetTagsRequest) (*TagPage, error) {
	var page *TagPage
	err := s.run(ctx, "get_tags", func(reqCtx *observability.RequestContext) error {
		if err := validateDepth(find.Depth); err != nil {
			return err
		}
		limit := find.Limit
		if limit == 0 {
			limit = DefaultPageSize
		}
		if limit < 0 || limit > MaxPageSize {
			return apierrors.InvalidArgument("limit is out of range")
		}

		// One surplus row tells whether another page exists.
		fetch := limit + 1
		tags, err := s.store.ListTags(ctx, &store.FindTag{
			RootOnly:  find.RootOnly,
			Cursor:    find.Cursor,
			Order:     find.Order,
			Direction: find.Direction,
			Limit:     &fetch,
		})
		if err != nil {
			return err
		}
		tags, hasMore := store.TrimPage(tags, limit, find.Direction)

		nodes, err := s.store.ProjectTags(ctx, tags, find.Depth)
		if err != nil {
			return err
		}
		page = &TagPage{Tags: nodes, HasMore: hasMore}
		return nil
	})
	return page, err
}

func (s *service) GetTagsByIDs(ctx context.Context, ids []uuid.UUID, depth store.TagDepth) ([]*store.TagNode, error) {
	var nodes []*store.TagNode
	err := s.run(ctx, "get_tags_by_ids", func(reqCtx *observability.RequestContext) error {
		if err := validateDepth(depth); err != nil {
			return err
		}
		if len(ids) == 0 {
			nodes = []*store.TagNode{}
			return nil
		}

		tags, err := s.store.ListTags(ctx, &store.FindTag{IDs: ids})
		if err != nil {
			return err
		}
		nodes, err = s.store.ProjectTags(ctx, tags, depth)
		return err
	})
	return nodes, err
}

func (s *service) GetTagsByNameOrAliasLike(ctx context.Context, pattern string, depth store.TagDepth) ([]*store.TagNode, error) {
	var nodes []*store.TagNode
	err := s.run(ctx, "get_tags_by_name_or_alias_like", func(reqCtx *observability.RequestContext) error {
		if err := validateDepth(depth); err != nil {
			return err
		}
		if pattern == "" {
			return apierrors.InvalidArgument("pattern is required")
		}

		tags, err := s.store.ListTags(ctx, &store.FindTag{NameOrAliasLike: &pattern})
		if err != nil {
			return err
		}
		nodes, err = s.store.ProjectTags(ctx, tags, depth)
		return err
	})
	return nodes, err
}

func (s *service) project(ctx context.Context, tag *store.Tag, depth store.TagDepth) (*store.TagNode, error) {
	nodes, err := s.store.ProjectTags(ctx, []*store.Tag{tag}, depth)
	if err != nil {
		return nil, err
	}
	return nodes[0], nil
}

// run executes fn as operation, logging and recording its outcome.
func (s *service) run(ctx context.Context, operation string, fn func(reqCtx *observability.RequestContext) error) error {
	reqCtx := observability.StartRequest(ctx, s.logger, operation)
	err := fn(reqCtx)

	result := observability.ResultOK
	switch {
	case err == nil:
		reqCtx.Info("tag operation completed", slog.Int64(observability.LogFieldDuration, reqCtx.DurationMs()))
	case isRejection(err):
		result = observability.ResultRejected
		reqCtx.Warn("tag operation rejected", err,
			slog.String(observability.LogFieldErrorCode, string(apierrors.FromStoreError(err).GetCode())),
			slog.Int64(observability.LogFieldDuration, reqCtx.DurationMs()))
	default:
		result = observability.ResultError
		reqCtx.Error("tag operation failed", err, slog.Int64(observability.LogFieldDuration, reqCtx.DurationMs()))
	}

	if s.metrics != nil {
		s.metrics.RecordOperation(operation, result, reqCtx.Duration())
	}
	return err
}

func isRejection(err error) bool {
	var apiErr *apierrors.APIError
	return store.IsTagStructuralError(err) || errors.As(err, &apiErr)
}

func validateDepth(depth store.TagDepth) error {
	if depth.Parents < 0 || depth.Children < 0 {
		return apierrors.InvalidArgument("depth must not be negative")
	}
	if depth.Parents > MaxDepth || depth.Children > MaxDepth {
		return apierrors.InvalidArgument("depth is too large")
	}
	return nil
}
