package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/chitoku-k/hoarder-sub005/store"
)

// ErrorCode represents a specific error type surfaced by the API.
type ErrorCode string

const (
	// ErrCodeNotFound indicates a referenced tag or media item does not exist.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeInvalidArgument indicates invalid input parameters.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	// ErrCodeFailedPrecondition indicates the hierarchy does not allow the operation in its current shape.
	ErrCodeFailedPrecondition ErrorCode = "FAILED_PRECONDITION"
	// ErrCodeRateLimitExceeded indicates rate limit has been exceeded.
	ErrCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"
	// ErrCodeContextCanceled indicates the operation was canceled.
	ErrCodeContextCanceled ErrorCode = "CONTEXT_CANCELED"
	// ErrCodeTimeout indicates the operation timed out.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
	// ErrCodeInternal indicates a storage or transport failure.
	ErrCodeInternal ErrorCode = "INTERNAL"
)

// APIError represents a structured error returned by the API.
type APIError struct {
	Code    ErrorCode
	Message string
	Cause   error
	Details map[string]any
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *APIError) Unwrap() error {
	return e.Cause
}

// WithDetail adds a detail to the error.
func (e *APIError) WithDetail(key string, value any) *APIError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// GetCode returns the error code.
func (e *APIError) GetCode() ErrorCode {
	return e.Code
}

// HTTPStatus returns the HTTP status code for the error.
func (e *APIError) HTTPStatus() int {
	switch e.Code {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeInvalidArgument:
		return http.StatusBadRequest
	case ErrCodeFailedPrecondition:
		return http.StatusConflict
	case ErrCodeRateLimitExceeded:
		return http.StatusTooManyRequests
	case ErrCodeContextCanceled:
		return 499
	case ErrCodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// Convenience constructors for common error types.

// NotFound creates a not found error.
func NotFound(msg string) *APIError {
	return &APIError{Code: ErrCodeNotFound, Message: msg}
}

// InvalidArgument creates an invalid argument error.
func InvalidArgument(msg string) *APIError {
	return &APIError{Code: ErrCodeInvalidArgument, Message: msg}
}

// FailedPrecondition creates a failed precondition error.
func FailedPrecondition(msg string, cause error) *APIError {
	return &APIError{Code: ErrCodeFailedPrecondition, Message: msg, Cause: cause}
}

// RateLimitExceeded creates a rate limit exceeded error.
func RateLimitExceeded(msg string) *APIError {
	return &APIError{Code: ErrCodeRateLimitExceeded, Message: msg}
}

// Internal creates an internal error.
func Internal(msg string, cause error) *APIError {
	return &APIError{Code: ErrCodeInternal, Message: msg, Cause: cause}
}

// FromStoreError maps an error returned by the store to an API error.
// Errors outside the tag error taxonomy become INTERNAL.
func FromStoreError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var (
		notFound      *store.TagNotFoundError
		toItself      *store.TagAttachingToItselfError
		toDescendant  *store.TagAttachingToDescendantError
		childrenExist *store.TagChildrenExistError
	)
	switch {
	case errors.As(err, &notFound):
		return (&APIError{Code: ErrCodeNotFound, Message: notFound.Error(), Cause: err}).
			WithDetail("id", notFound.ID.String())
	case errors.Is(err, store.ErrTagAttachingRoot):
		return &APIError{Code: ErrCodeInvalidArgument, Message: store.ErrTagAttachingRoot.Error(), Cause: err}
	case errors.Is(err, store.ErrTagDeletingRoot):
		return &APIError{Code: ErrCodeInvalidArgument, Message: store.ErrTagDeletingRoot.Error(), Cause: err}
	case errors.As(err, &toItself):
		return (&APIError{Code: ErrCodeInvalidArgument, Message: toItself.Error(), Cause: err}).
			WithDetail("id", toItself.ID.String())
	case errors.As(err, &toDescendant):
		return (&APIError{Code: ErrCodeFailedPrecondition, Message: toDescendant.Error(), Cause: err}).
			WithDetail("id", toDescendant.ID.String())
	case errors.As(err, &childrenExist):
		return (&APIError{Code: ErrCodeFailedPrecondition, Message: childrenExist.Error(), Cause: err}).
			WithDetail("id", childrenExist.ID.String()).
			WithDetail("children", idStrings(childrenExist.Children))
	case errors.Is(err, context.Canceled):
		return &APIError{Code: ErrCodeContextCanceled, Message: "operation canceled", Cause: err}
	case errors.Is(err, context.DeadlineExceeded):
		return &APIError{Code: ErrCodeTimeout, Message: "operation timed out", Cause: err}
	default:
		return Internal("internal error", err)
	}
}

func idStrings(ids []uuid.UUID) []string {
	list := make([]string, 0, len(ids))
	for _, id := range ids {
		list = append(list, id.String())
	}
	return list
}
