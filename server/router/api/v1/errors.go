package v1

import (
	"github.com/labstack/echo/v4"

	apierrors "github.com/chitoku-k/hoarder-sub005/server/internal/errors"
)

type errorResponse struct {
	Code    apierrors.ErrorCode `json:"code"`
	Message string              `json:"message"`
	Details map[string]any      `json:"details,omitempty"`
}

// writeError renders err as its API error. Errors outside the tag taxonomy are
// reported as INTERNAL without exposing their message.
func writeError(c echo.Context, err error) error {
	apiErr := apierrors.FromStoreError(err)
	return c.JSON(apiErr.HTTPStatus(), errorResponse{
		Code:    apiErr.Code,
		Message: apiErr.Message,
		Details: apiErr.Details,
	})
}
