package v1

import (
	"encoding/base64"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	apierrors "github.com/chitoku-k/hoarder-sub005/server/internal/errors"
	"github.com/chitoku-k/hoarder-sub005/store"
)

func parseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, apierrors.InvalidArgument("invalid id").WithDetail("id", c.Param("id"))
	}
	return id, nil
}

// parseIDList parses the comma separated ids in every occurrence of the query parameter name.
func parseIDList(c echo.Context, name string) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for _, value := range c.QueryParams()[name] {
		for _, s := range strings.Split(value, ",") {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			id, err := uuid.Parse(s)
			if err != nil {
				return nil, apierrors.InvalidArgument("invalid " + name).WithDetail("id", s)
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func parseInt(c echo.Context, name string) (int, error) {
	value := c.QueryParam(name)
	if value == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, apierrors.InvalidArgument("invalid " + name)
	}
	return n, nil
}

func parseDepth(c echo.Context) (store.TagDepth, error) {
	parents, err := parseInt(c, "parents")
	if err != nil {
		return store.TagDepth{}, err
	}
	children, err := parseInt(c, "children")
	if err != nil {
		return store.TagDepth{}, err
	}
	return store.TagDepth{Parents: parents, Children: children}, nil
}

func parseOrder(c echo.Context) (store.Order, error) {
	switch c.QueryParam("order") {
	case "", "asc":
		return store.OrderAscending, nil
	case "desc":
		return store.OrderDescending, nil
	default:
		return 0, apierrors.InvalidArgument("order must be asc or desc")
	}
}

func parseDirection(c echo.Context) (store.Direction, error) {
	switch c.QueryParam("direction") {
	case "", "forward":
		return store.DirectionForward, nil
	case "backward":
		return store.DirectionBackward, nil
	default:
		return 0, apierrors.InvalidArgument("direction must be forward or backward")
	}
}

func parseBool(c echo.Context, name string) (bool, error) {
	value := c.QueryParam(name)
	if value == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, apierrors.InvalidArgument("invalid " + name)
	}
	return b, nil
}

// Cursors are opaque to clients: base64url encoded JSON of the keyset columns.
func encodeCursor(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(b)
}

func decodeCursor(c echo.Context, v any) (bool, error) {
	value := c.QueryParam("cursor")
	if value == "" {
		return false, nil
	}
	b, err := base64.RawURLEncoding.DecodeString(value)
	if err == nil {
		err = json.Unmarshal(b, v)
	}
	if err != nil {
		return false, apierrors.InvalidArgument("invalid cursor")
	}
	return true, nil
}
