package v1

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	apierrors "github.com/chitoku-k/hoarder-sub005/server/internal/errors"
	"github.com/chitoku-k/hoarder-sub005/server/service/tag"
	"github.com/chitoku-k/hoarder-sub005/store"
)

type Media struct {
	ID        uuid.UUID   `json:"id"`
	TagIDs    []uuid.UUID `json:"tag_ids"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

type MediaPage struct {
	Media      []*Media `json:"media"`
	HasMore    bool     `json:"has_more"`
	NextCursor string   `json:"next_cursor,omitempty"`
	PrevCursor string   `json:"prev_cursor,omitempty"`
}

type createMediaRequest struct {
	TagIDs []uuid.UUID `json:"tag_ids"`
}

func (s *APIV1Service) CreateMedia(c echo.Context) error {
	var request createMediaRequest
	if err := c.Bind(&request); err != nil {
		return writeError(c, apierrors.InvalidArgument("invalid request body"))
	}

	media, err := s.Store.CreateMedia(c.Request().Context(), &store.Media{TagIDs: request.TagIDs})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, convertMediaFromStore(media))
}

func (s *APIV1Service) ListMedia(c echo.Context) error {
	find := &store.FindMedia{}
	var err error
	if find.IDs, err = parseIDList(c, "ids"); err != nil {
		return writeError(c, err)
	}
	if find.TagIDs, err = parseIDList(c, "tag_ids"); err != nil {
		return writeError(c, err)
	}
	if find.Order, err = parseOrder(c); err != nil {
		return writeError(c, err)
	}
	if find.Direction, err = parseDirection(c); err != nil {
		return writeError(c, err)
	}
	limit, err := parseInt(c, "limit")
	if err != nil {
		return writeError(c, err)
	}
	if limit == 0 {
		limit = tag.DefaultPageSize
	}
	if limit < 0 || limit > tag.MaxPageSize {
		return writeError(c, apierrors.InvalidArgument("limit is out of range"))
	}
	var cursor store.MediaCursor
	ok, err := decodeCursor(c, &cursor)
	if err != nil {
		return writeError(c, err)
	}
	if ok {
		find.Cursor = &cursor
	}

	fetch := limit + 1
	find.Limit = &fetch
	list, err := s.Store.ListMedia(c.Request().Context(), find)
	if err != nil {
		return writeError(c, err)
	}
	list, hasMore := store.TrimPage(list, limit, find.Direction)

	response := &MediaPage{
		Media:   make([]*Media, 0, len(list)),
		HasMore: hasMore,
	}
	for _, media := range list {
		response.Media = append(response.Media, convertMediaFromStore(media))
	}
	if len(list) > 0 {
		first, last := list[0], list[len(list)-1]
		response.PrevCursor = encodeCursor(store.MediaCursor{CreatedAt: first.CreatedAt, ID: first.ID})
		response.NextCursor = encodeCursor(store.MediaCursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return c.JSON(http.StatusOK, response)
}

func (s *APIV1Service) DeleteMedia(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return writeError(c, err)
	}

	result, err := s.Store.DeleteMedia(c.Request().Context(), &store.DeleteMedia{ID: id})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, DeleteResult{Deleted: result.Deleted, NotFound: result.NotFound})
}

func convertMediaFromStore(media *store.Media) *Media {
	tagIDs := media.TagIDs
	if tagIDs == nil {
		tagIDs = []uuid.UUID{}
	}
	return &Media{
		ID:        media.ID,
		TagIDs:    tagIDs,
		CreatedAt: media.CreatedAt,
		UpdatedAt: media.UpdatedAt,
	}
}
