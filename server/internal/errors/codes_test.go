package errors

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/chitoku-k/hoarder-sub005/store"
)

func TestFromStoreError(t *testing.T) {
	id := uuid.MustParse("e8d32062-7f41-4c2b-8e55-2a9b6d0c3f17")
	child := uuid.MustParse("12c4101e-3d9a-4a6f-b1e2-5c7f8a0d9e63")

	tests := []struct {
		name   string
		err    error
		code   ErrorCode
		status int
	}{
		{"not found", &store.TagNotFoundError{ID: id}, ErrCodeNotFound, http.StatusNotFound},
		{"attaching root", store.ErrTagAttachingRoot, ErrCodeInvalidArgument, http.StatusBadRequest},
		{"deleting root", store.ErrTagDeletingRoot, ErrCodeInvalidArgument, http.StatusBadRequest},
		{"attaching to itself", &store.TagAttachingToItselfError{ID: id}, ErrCodeInvalidArgument, http.StatusBadRequest},
		{"attaching to descendant", &store.TagAttachingToDescendantError{ID: id}, ErrCodeFailedPrecondition, http.StatusConflict},
		{"children exist", &store.TagChildrenExistError{ID: id, Children: []uuid.UUID{child}}, ErrCodeFailedPrecondition, http.StatusConflict},
		{"canceled", context.Canceled, ErrCodeContextCanceled, 499},
		{"storage", pkgerrors.New("connection reset by peer"), ErrCodeInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apiErr := FromStoreError(pkgerrors.Wrap(tt.err, "failed to attach tag"))
			assert.Equal(t, tt.code, apiErr.GetCode())
			assert.Equal(t, tt.status, apiErr.HTTPStatus())
		})
	}
}

func TestFromStoreErrorChildrenDetail(t *testing.T) {
	id, child := uuid.New(), uuid.New()
	apiErr := FromStoreError(&store.TagChildrenExistError{ID: id, Children: []uuid.UUID{child}})
	assert.Equal(t, id.String(), apiErr.Details["id"])
	assert.Equal(t, []string{child.String()}, apiErr.Details["children"])
}

func TestFromStoreErrorKeepsAPIError(t *testing.T) {
	apiErr := InvalidArgument("limit must be positive")
	assert.Same(t, apiErr, FromStoreError(apiErr))
}
