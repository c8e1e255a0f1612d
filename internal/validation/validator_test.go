package validation_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/shelfnotes/shelfnotes-server/internal/errors"
	"github.com/shelfnotes/shelfnotes-server/internal/validation"
)

type TestRequest struct {
	Email  string  `json:"email" validate:"required,email"`
	Name   string  `json:"name" validate:"notblank,max=20"`
	Rating float64 `json:"rating" validate:"integral,gte=1,lte=5"`
}

func TestValidator_CheckSuccess(t *testing.T) {
	v := validation.New()

	req := TestRequest{
		Email:  "test@example.com",
		Name:   "Test User",
		Rating: 4,
	}

	err := v.Check(req, "validation failed")
	assert.NoError(t, err)
}

func TestValidator_CheckErrors(t *testing.T) {
	v := validation.New()

	tests := []struct {
		name      string
		req       TestRequest
		wantField string
	}{
		{
			name:      "missing email",
			req:       TestRequest{Name: "Test", Rating: 3},
			wantField: "email",
		},
		{
			name:      "invalid email",
			req:       TestRequest{Email: "not-an-email", Name: "Test", Rating: 3},
			wantField: "email",
		},
		{
			name:      "blank name",
			req:       TestRequest{Email: "test@example.com", Name: "   ", Rating: 3},
			wantField: "name",
		},
		{
			name:      "fractional rating",
			req:       TestRequest{Email: "test@example.com", Name: "Test", Rating: 3.5},
			wantField: "rating",
		},
		{
			name:      "rating too high",
			req:       TestRequest{Email: "test@example.com", Name: "Test", Rating: 6},
			wantField: "rating",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Check(tt.req, "validation failed")
			require.Error(t, err)

			var domainErr *domainerrors.Error
			require.True(t, errors.As(err, &domainErr))
			assert.Equal(t, http.StatusBadRequest, domainErr.HTTPStatus())
			assert.Equal(t, "validation failed", domainErr.Message)

			details, ok := domainErr.Details.(map[string]string)
			require.True(t, ok)
			assert.Contains(t, details, tt.wantField)
		})
	}
}

func TestValidator_JSONFieldNames(t *testing.T) {
	v := validation.New()

	err := v.Check(TestRequest{Name: "Test", Rating: 1}, "validation failed")
	require.Error(t, err)

	var domainErr *domainerrors.Error
	require.True(t, errors.As(err, &domainErr))
	details := domainErr.Details.(map[string]string)

	// Should use JSON tag name "email", not struct field name "Email"
	assert.Contains(t, details, "email")
	assert.NotContains(t, details, "Email")
}

func TestValidator_CheckUsesMessage(t *testing.T) {
	v := validation.New()

	type loginRequest struct {
		Token string `json:"token" validate:"notblank"`
	}

	for _, token := range []string{"", "   ", "\t\n"} {
		err := v.Check(loginRequest{Token: token}, "Token is required")
		require.Error(t, err, "%q", token)
		assert.True(t, errors.Is(err, domainerrors.ErrValidation))
		assert.Equal(t, "Token is required", err.Error())
	}

	assert.NoError(t, v.Check(loginRequest{Token: "abc"}, "Token is required"))
}

func TestValidator_CheckVar(t *testing.T) {
	v := validation.New()
	const msg = "Rating must be an integer between 1 and 5"

	for _, ok := range []float64{1, 2, 5} {
		assert.NoError(t, v.CheckVar(ok, "integral,gte=1,lte=5", msg), ok)
	}
	for _, bad := range []float64{0, 6, 2.5, -1} {
		err := v.CheckVar(bad, "integral,gte=1,lte=5", msg)
		require.Error(t, err, bad)
		assert.Equal(t, msg, err.Error())
	}
}
