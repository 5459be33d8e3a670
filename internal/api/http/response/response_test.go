package response

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/beatstream-server/internal/model"
	"github.com/dtroode/beatstream-server/internal/testutil"
	"github.com/dtroode/beatstream-server/internal/validation"
)

func TestStatusOf(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{model.ErrTokenMissing, http.StatusUnauthorized},
		{model.ErrTokenExpired, http.StatusUnauthorized},
		{model.ErrTokenRevoked, http.StatusUnauthorized},
		{model.ErrUserNotFound, http.StatusUnauthorized},
		{model.ErrRefreshTokenInvalid, http.StatusUnauthorized},
		{model.ErrInvalidCredentials, http.StatusUnauthorized},
		{model.ErrAccountLocked, http.StatusLocked},
		{model.ErrEmailNotVerified, http.StatusForbidden},
		{model.ErrForbidden, http.StatusForbidden},
		{model.ErrEmailTaken, http.StatusConflict},
		{model.ErrResetTokenInvalid, http.StatusBadRequest},
		{&model.AuthError{Code: "SOMETHING_NEW"}, http.StatusUnauthorized},
		{&model.RateLimitError{Message: "slow down"}, http.StatusTooManyRequests},
		{validation.NewRequestError("email", "email is required"), http.StatusBadRequest},
		{BadRequest("bad namespace"), http.StatusBadRequest},
		{fmt.Errorf("song: %w", model.ErrNotFound), http.StatusNotFound},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, StatusOf(tt.err))
		})
	}
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestWriter_Error(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)

	t.Run("auth error carries code", func(t *testing.T) {
		rec := httptest.NewRecorder()
		NewWriter(testutil.MakeNoopLogger(), true).Error(rec, r, fmt.Errorf("wrapped: %w", model.ErrTokenExpired))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, "TOKEN_EXPIRED", body["code"])
		assert.Equal(t, model.ErrTokenExpired.Message, body["message"])
	})

	t.Run("rate limit", func(t *testing.T) {
		rec := httptest.NewRecorder()
		NewWriter(testutil.MakeNoopLogger(), true).Error(rec, r, &model.RateLimitError{Message: "slow down", RetryAfter: 15 * time.Minute})

		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, "900", rec.Header().Get("Retry-After"))
		body := decode(t, rec)
		assert.Equal(t, "slow down", body["error"])
		assert.EqualValues(t, 900000, body["retryAfter"])
	})

	t.Run("validation lists fields", func(t *testing.T) {
		rec := httptest.NewRecorder()
		err := &validation.RequestError{Fields: []validation.FieldError{
			{Field: "email", Message: "email is required"},
			{Field: "password", Message: "password is required"},
		}}
		NewWriter(testutil.MakeNoopLogger(), true).Error(rec, r, err)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, "Validation failed", body["message"])
		assert.Len(t, body["errors"], 2)
	})

	t.Run("internal hides details in production", func(t *testing.T) {
		rec := httptest.NewRecorder()
		NewWriter(testutil.MakeNoopLogger(), true).Error(rec, r, errors.New("db exploded"))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, "Internal server error", body["message"])
		assert.NotContains(t, body, "code")
		assert.NotContains(t, body, "stack")
		assert.NotContains(t, body, "error")
	})

	t.Run("internal shows stack in development", func(t *testing.T) {
		rec := httptest.NewRecorder()
		NewWriter(testutil.MakeNoopLogger(), false).Error(rec, r, errors.New("db exploded"))

		body := decode(t, rec)
		assert.Equal(t, "db exploded", body["error"])
		assert.NotEmpty(t, body["stack"])
	})

	t.Run("not found", func(t *testing.T) {
		rec := httptest.NewRecorder()
		NewWriter(testutil.MakeNoopLogger(), true).Error(rec, r, model.ErrNotFound)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
