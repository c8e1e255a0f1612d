package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/stretchr/testify/assert"

	domainerrors "github.com/shelfnotes/shelfnotes-server/internal/errors"
	"github.com/shelfnotes/shelfnotes-server/internal/store"
)

func newError(status int, msg string, errs ...error) *APIError {
	return huma.NewError(status, msg, errs...).(*APIError)
}

func TestErrorHandler_DomainErrors(t *testing.T) {
	RegisterErrorHandler()

	err := fmt.Errorf("delete: %w", domainerrors.Forbidden("You are not authorized to delete this review"))
	got := newError(http.StatusInternalServerError, "boom", err)
	assert.Equal(t, http.StatusForbidden, got.GetStatus())
	assert.Equal(t, "FORBIDDEN", got.Code)
	assert.Equal(t, "You are not authorized to delete this review", got.Message)

	details := map[string]string{"isbn": "9780261102217"}
	got = newError(http.StatusInternalServerError, "boom", domainerrors.Conflict("duplicate").WithDetails(details))
	assert.Equal(t, http.StatusConflict, got.GetStatus())
	assert.Equal(t, details, got.Details)
}

func TestErrorHandler_StoreErrors(t *testing.T) {
	RegisterErrorHandler()

	err := errors.Join(errors.New("context"), fmt.Errorf("get review: %w", store.ErrNotFound))
	got := newError(http.StatusInternalServerError, "boom", err)
	assert.Equal(t, http.StatusNotFound, got.GetStatus())
	assert.Equal(t, "NOT_FOUND", got.Code)
}

func TestErrorHandler_Status(t *testing.T) {
	RegisterErrorHandler()

	got := newError(http.StatusUnprocessableEntity, "validation failed")
	assert.Equal(t, http.StatusBadRequest, got.GetStatus())
	assert.Equal(t, "VALIDATION", got.Code)

	got = newError(http.StatusTooManyRequests, "slow down")
	assert.Equal(t, "RATE_LIMITED", got.Code)
	assert.Equal(t, "slow down", got.Message)

	got = newError(http.StatusTeapot, "odd")
	assert.Equal(t, "INTERNAL", got.Code)
}
