package v1

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chitoku-k/hoarder-sub005/server/internal/observability"
	"github.com/chitoku-k/hoarder-sub005/server/service/tag"
	teststore "github.com/chitoku-k/hoarder-sub005/store/test"
)

type testServer struct {
	t    *testing.T
	echo *echo.Echo
}

func newTestServer(t *testing.T) *testServer {
	ctx := context.Background()
	ts := teststore.NewTestingStore(ctx, t)
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	e := echo.New()
	service := NewAPIV1Service(nil, ts, tag.NewService(ts, logger, metrics), metrics)
	service.RegisterRoutes(e)
	return &testServer{t: t, echo: e}
}

func (s *testServer) do(method, target, body string, out any) int {
	s.t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	if out != nil {
		require.NoError(s.t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
	}
	return rec.Code
}

func (s *testServer) createTag(name, kana, parentID string) *Tag {
	s.t.Helper()
	body := `{"name":"` + name + `","kana":"` + kana + `"`
	if parentID != "" {
		body += `,"parent_id":"` + parentID + `"`
	}
	body += "}"
	var tag Tag
	require.Equal(s.t, http.StatusCreated, s.do(http.MethodPost, "/api/v1/tags", body, &tag))
	return &tag
}

func TestTagRoutes(t *testing.T) {
	s := newTestServer(t)

	touhou := s.createTag("東方Project", "とうほうProject", "")
	reimu := s.createTag("博麗霊夢", "はくれいれいむ", touhou.ID.String())

	var got Tag
	require.Equal(t, http.StatusOK, s.do(http.MethodPatch, "/api/v1/tags/"+reimu.ID.String()+"?parents=1",
		`{"add_aliases":["霊夢"]}`, &got))
	assert.Equal(t, []string{"霊夢"}, got.Aliases)
	require.NotNil(t, got.Parent)
	assert.Equal(t, touhou.ID, got.Parent.ID)

	var list TagList
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/v1/tags/search?q=れいむ", "", &list))
	require.Len(t, list.Tags, 1)
	assert.Equal(t, reimu.ID, list.Tags[0].ID)

	require.Equal(t, http.StatusOK, s.do(http.MethodGet,
		"/api/v1/tags/batch?children=1&ids="+touhou.ID.String()+",00000000-0000-0000-0000-000000000000", "", &list))
	require.Len(t, list.Tags, 1)
	require.Len(t, list.Tags[0].Children, 1)
	assert.Equal(t, reimu.ID, list.Tags[0].Children[0].ID)

	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/api/v1/tags/"+reimu.ID.String()+"/detach?parents=1", "", &got))
	assert.Nil(t, got.Parent)

	var page TagPage
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/v1/tags?root=true&limit=1", "", &page))
	require.Len(t, page.Tags, 1)
	assert.True(t, page.HasMore)
	assert.Equal(t, touhou.ID, page.Tags[0].ID)

	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/v1/tags?root=true&limit=1&cursor="+page.NextCursor, "", &page))
	require.Len(t, page.Tags, 1)
	assert.False(t, page.HasMore)
	assert.Equal(t, reimu.ID, page.Tags[0].ID)
}

func TestTagRoutesErrors(t *testing.T) {
	s := newTestServer(t)

	parent := s.createTag("七森中☆ごらく部", "ななもりちゅうごらくぶ", "")
	child := s.createTag("赤座あかり", "あかざあかり", parent.ID.String())

	var apiErr errorResponse
	require.Equal(t, http.StatusConflict, s.do(http.MethodPost, "/api/v1/tags/"+parent.ID.String()+"/attach",
		`{"parent_id":"`+child.ID.String()+`"}`, &apiErr))
	assert.Equal(t, "FAILED_PRECONDITION", string(apiErr.Code))

	require.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/api/v1/tags/"+parent.ID.String()+"/attach",
		`{"parent_id":"`+parent.ID.String()+`"}`, &apiErr))
	assert.Equal(t, "INVALID_ARGUMENT", string(apiErr.Code))

	require.Equal(t, http.StatusConflict, s.do(http.MethodDelete, "/api/v1/tags/"+parent.ID.String(), "", &apiErr))
	assert.Equal(t, []any{child.ID.String()}, apiErr.Details["children"])

	var deleted DeleteResult
	require.Equal(t, http.StatusOK, s.do(http.MethodDelete, "/api/v1/tags/"+parent.ID.String()+"?recursive=true", "", &deleted))
	assert.Equal(t, int64(2), deleted.Deleted)
	assert.False(t, deleted.NotFound)

	deleted = DeleteResult{}
	require.Equal(t, http.StatusOK, s.do(http.MethodDelete, "/api/v1/tags/"+parent.ID.String(), "", &deleted))
	assert.Equal(t, DeleteResult{NotFound: true}, deleted)

	require.Equal(t, http.StatusBadRequest, s.do(http.MethodDelete, "/api/v1/tags/00000000-0000-0000-0000-000000000000", "", &apiErr))
	require.Equal(t, http.StatusBadRequest, s.do(http.MethodPatch, "/api/v1/tags/not-a-uuid", `{}`, &apiErr))
	require.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/api/v1/tags?cursor=@@@", "", &apiErr))
}

func TestMediaRoutes(t *testing.T) {
	s := newTestServer(t)

	tag := s.createTag("歳納京子", "としのうきょうこ", "")

	var media Media
	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/api/v1/media",
		`{"tag_ids":["`+tag.ID.String()+`","`+tag.ID.String()+`"]}`, &media))
	assert.Len(t, media.TagIDs, 1)
	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/api/v1/media", `{}`, nil))

	var page MediaPage
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/v1/media?tag_ids="+tag.ID.String(), "", &page))
	require.Len(t, page.Media, 1)
	assert.Equal(t, media.ID, page.Media[0].ID)

	var apiErr errorResponse
	require.Equal(t, http.StatusNotFound, s.do(http.MethodPost, "/api/v1/media",
		`{"tag_ids":["00000000-0000-0000-0000-000000000000"]}`, &apiErr))

	var deleted DeleteResult
	require.Equal(t, http.StatusOK, s.do(http.MethodDelete, "/api/v1/media/"+media.ID.String(), "", &deleted))
	assert.Equal(t, int64(1), deleted.Deleted)
	deleted = DeleteResult{}
	require.Equal(t, http.StatusOK, s.do(http.MethodDelete, "/api/v1/media/"+media.ID.String(), "", &deleted))
	assert.Equal(t, DeleteResult{NotFound: true}, deleted)
}
