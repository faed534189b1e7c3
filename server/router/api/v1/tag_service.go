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

// Tag is the JSON form of a projected tag.
// Parent is set only when parents were requested and the tag is not top-level.
type Tag struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Kana      string    `json:"kana"`
	Aliases   []string  `json:"aliases"`
	Parent    *Tag      `json:"parent,omitempty"`
	Children  []*Tag    `json:"children"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type TagPage struct {
	Tags       []*Tag `json:"tags"`
	HasMore    bool   `json:"has_more"`
	NextCursor string `json:"next_cursor,omitempty"`
	PrevCursor string `json:"prev_cursor,omitempty"`
}

type TagList struct {
	Tags []*Tag `json:"tags"`
}

// DeleteResult reports a delete. Deleting something already gone is not an error.
type DeleteResult struct {
	Deleted  int64 `json:"deleted"`
	NotFound bool  `json:"not_found"`
}

type createTagRequest struct {
	Name     string     `json:"name"`
	Kana     string     `json:"kana"`
	Aliases  []string   `json:"aliases"`
	ParentID *uuid.UUID `json:"parent_id"`
}

type updateTagRequest struct {
	Name          *string  `json:"name"`
	Kana          *string  `json:"kana"`
	AddAliases    []string `json:"add_aliases"`
	RemoveAliases []string `json:"remove_aliases"`
}

type attachTagRequest struct {
	ParentID *uuid.UUID `json:"parent_id"`
}

func (s *APIV1Service) CreateTag(c echo.Context) error {
	var request createTagRequest
	if err := c.Bind(&request); err != nil {
		return writeError(c, apierrors.InvalidArgument("invalid request body"))
	}
	depth, err := parseDepth(c)
	if err != nil {
		return writeError(c, err)
	}

	node, err := s.TagService.CreateTag(c.Request().Context(), &tag.CreateTagRequest{
		Name:     request.Name,
		Kana:     request.Kana,
		Aliases:  request.Aliases,
		ParentID: request.ParentID,
	}, depth)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, convertTagFromNode(node))
}

func (s *APIV1Service) UpdateTag(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return writeError(c, err)
	}
	var request updateTagRequest
	if err := c.Bind(&request); err != nil {
		return writeError(c, apierrors.InvalidArgument("invalid request body"))
	}
	depth, err := parseDepth(c)
	if err != nil {
		return writeError(c, err)
	}

	node, err := s.TagService.UpdateTagByID(c.Request().Context(), &tag.UpdateTagRequest{
		ID:            id,
		Name:          request.Name,
		Kana:          request.Kana,
		AddAliases:    request.AddAliases,
		RemoveAliases: request.RemoveAliases,
	}, depth)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, convertTagFromNode(node))
}

func (s *APIV1Service) AttachTag(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return writeError(c, err)
	}
	var request attachTagRequest
	if err := c.Bind(&request); err != nil {
		return writeError(c, apierrors.InvalidArgument("invalid request body"))
	}
	if request.ParentID == nil {
		return writeError(c, apierrors.InvalidArgument("parent_id is required"))
	}
	depth, err := parseDepth(c)
	if err != nil {
		return writeError(c, err)
	}

	node, err := s.TagService.AttachTagByID(c.Request().Context(), id, *request.ParentID, depth)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, convertTagFromNode(node))
}

func (s *APIV1Service) DetachTag(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return writeError(c, err)
	}
	depth, err := parseDepth(c)
	if err != nil {
		return writeError(c, err)
	}

	node, err := s.TagService.DetachTagByID(c.Request().Context(), id, depth)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, convertTagFromNode(node))
}

func (s *APIV1Service) DeleteTag(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return writeError(c, err)
	}
	recursive, err := parseBool(c, "recursive")
	if err != nil {
		return writeError(c, err)
	}

	result, err := s.TagService.DeleteTagByID(c.Request().Context(), id, recursive)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, DeleteResult{Deleted: result.Deleted, NotFound: result.NotFound})
}

func (s *APIV1Service) GetTags(c echo.Context) error {
	request := &tag.GetTagsRequest{}
	var err error
	if request.Depth, err = parseDepth(c); err != nil {
		return writeError(c, err)
	}
	if request.RootOnly, err = parseBool(c, "root"); err != nil {
		return writeError(c, err)
	}
	if request.Order, err = parseOrder(c); err != nil {
		return writeError(c, err)
	}
	if request.Direction, err = parseDirection(c); err != nil {
		return writeError(c, err)
	}
	if request.Limit, err = parseInt(c, "limit"); err != nil {
		return writeError(c, err)
	}
	var cursor store.TagCursor
	ok, err := decodeCursor(c, &cursor)
	if err != nil {
		return writeError(c, err)
	}
	if ok {
		request.Cursor = &cursor
	}

	page, err := s.TagService.GetTags(c.Request().Context(), request)
	if err != nil {
		return writeError(c, err)
	}

	response := &TagPage{
		Tags:    convertTagsFromNodes(page.Tags),
		HasMore: page.HasMore,
	}
	if len(page.Tags) > 0 {
		first, last := page.Tags[0], page.Tags[len(page.Tags)-1]
		response.PrevCursor = encodeCursor(store.TagCursor{Kana: first.Kana, ID: first.ID})
		response.NextCursor = encodeCursor(store.TagCursor{Kana: last.Kana, ID: last.ID})
	}
	return c.JSON(http.StatusOK, response)
}

func (s *APIV1Service) GetTagsByIDs(c echo.Context) error {
	ids, err := parseIDList(c, "ids")
	if err != nil {
		return writeError(c, err)
	}
	depth, err := parseDepth(c)
	if err != nil {
		return writeError(c, err)
	}

	nodes, err := s.TagService.GetTagsByIDs(c.Request().Context(), ids, depth)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, &TagList{Tags: convertTagsFromNodes(nodes)})
}

func (s *APIV1Service) GetTagsByNameOrAliasLike(c echo.Context) error {
	depth, err := parseDepth(c)
	if err != nil {
		return writeError(c, err)
	}

	nodes, err := s.TagService.GetTagsByNameOrAliasLike(c.Request().Context(), c.QueryParam("q"), depth)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, &TagList{Tags: convertTagsFromNodes(nodes)})
}

func convertTagsFromNodes(nodes []*store.TagNode) []*Tag {
	tags := make([]*Tag, 0, len(nodes))
	for _, node := range nodes {
		tags = append(tags, convertTagFromNode(node))
	}
	return tags
}

func convertTagFromNode(node *store.TagNode) *Tag {
	tag := &Tag{
		ID:        node.ID,
		Name:      node.Name,
		Kana:      node.Kana,
		Aliases:   node.Aliases,
		Children:  convertTagsFromNodes(node.Children),
		CreatedAt: node.CreatedAt,
		UpdatedAt: node.UpdatedAt,
	}
	if tag.Aliases == nil {
		tag.Aliases = []string{}
	}
	if node.Parent != nil {
		tag.Parent = convertTagFromNode(node.Parent)
	}
	return tag
}
