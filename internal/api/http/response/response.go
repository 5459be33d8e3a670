// Package response writes JSON bodies and maps domain errors to HTTP statuses.
package response

import (
	"errors"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/dtroode/beatstream-server/internal/logger"
	"github.com/dtroode/beatstream-server/internal/model"
	"github.com/dtroode/beatstream-server/internal/validation"
)

// Error is a client error raised by a handler with its own status.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// BadRequest returns a 400 Error.
func BadRequest(message string) *Error {
	return &Error{Status: http.StatusBadRequest, Message: message}
}

type messageBody struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Error   string `json:"error,omitempty"`
	Stack   string `json:"stack,omitempty"`
}

type validationBody struct {
	Message string                  `json:"message"`
	Errors  []validation.FieldError `json:"errors"`
}

// RateLimitBody is the body of a 429 response.
type RateLimitBody struct {
	Error      string `json:"error"`
	RetryAfter int64  `json:"retryAfter"`
}

// authStatus maps auth error codes to response statuses.
var authStatus = map[string]int{
	model.ErrTokenMissing.Code:        http.StatusUnauthorized,
	model.ErrTokenInvalid.Code:        http.StatusUnauthorized,
	model.ErrTokenExpired.Code:        http.StatusUnauthorized,
	model.ErrTokenRevoked.Code:        http.StatusUnauthorized,
	model.ErrUserNotFound.Code:        http.StatusUnauthorized,
	model.ErrRefreshTokenMissing.Code: http.StatusUnauthorized,
	model.ErrRefreshTokenInvalid.Code: http.StatusUnauthorized,
	model.ErrRefreshTokenExpired.Code: http.StatusUnauthorized,
	model.ErrRefreshTokenRevoked.Code: http.StatusUnauthorized,
	model.ErrInvalidCredentials.Code:  http.StatusUnauthorized,
	model.ErrAccountLocked.Code:       http.StatusLocked,
	model.ErrEmailNotVerified.Code:    http.StatusForbidden,
	model.ErrForbidden.Code:           http.StatusForbidden,
	model.ErrEmailTaken.Code:          http.StatusConflict,
	model.ErrResetTokenInvalid.Code:   http.StatusBadRequest,
}

// StatusOf returns the status an error is answered with.
func StatusOf(err error) int {
	var authErr *model.AuthError
	var rlErr *model.RateLimitError
	var reqErr *validation.RequestError
	var httpErr *Error

	switch {
	case errors.As(err, &authErr):
		if status, ok := authStatus[authErr.Code]; ok {
			return status
		}
		return http.StatusUnauthorized
	case errors.As(err, &rlErr):
		return http.StatusTooManyRequests
	case errors.As(err, &reqErr):
		return http.StatusBadRequest
	case errors.As(err, &httpErr):
		return httpErr.Status
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Writer writes responses. Outside production, 500 bodies carry the error and
// a stack trace.
type Writer struct {
	logger     *logger.Logger
	production bool
}

// NewWriter creates a Writer.
func NewWriter(logger *logger.Logger, production bool) *Writer {
	return &Writer{logger: logger, production: production}
}

// JSON writes v with status.
func (wr *Writer) JSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		wr.logger.Error("failed to marshal JSON response", "error", err.Error())
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		wr.logger.Debug("failed to write JSON response", "error", err.Error())
	}
}

// RateLimited writes a 429 with the wait in milliseconds and a Retry-After header in seconds.
func (wr *Writer) RateLimited(w http.ResponseWriter, message string, retryAfter time.Duration) {
	w.Header().Set("Retry-After", strconv.FormatInt(int64(retryAfter.Seconds()), 10))
	wr.JSON(w, http.StatusTooManyRequests, RateLimitBody{Error: message, RetryAfter: retryAfter.Milliseconds()})
}

// Error answers err through the status table.
func (wr *Writer) Error(w http.ResponseWriter, r *http.Request, err error) {
	var authErr *model.AuthError
	var rlErr *model.RateLimitError
	var reqErr *validation.RequestError
	var httpErr *Error

	status := StatusOf(err)
	switch {
	case errors.As(err, &authErr):
		wr.JSON(w, status, messageBody{Message: authErr.Message, Code: authErr.Code})
	case errors.As(err, &rlErr):
		wr.RateLimited(w, rlErr.Message, rlErr.RetryAfter)
	case errors.As(err, &reqErr):
		wr.JSON(w, status, validationBody{Message: "Validation failed", Errors: reqErr.Fields})
	case errors.As(err, &httpErr):
		wr.JSON(w, status, messageBody{Message: httpErr.Message})
	case status == http.StatusNotFound:
		wr.JSON(w, status, messageBody{Message: "Resource not found"})
	default:
		wr.Internal(w, r, err, debug.Stack())
	}
}

// Internal logs err with its stack and writes a 500.
func (wr *Writer) Internal(w http.ResponseWriter, r *http.Request, err error, stack []byte) {
	wr.logger.ErrorContext(r.Context(), "request failed",
		"method", r.Method,
		"path", r.URL.Path,
		"error", err.Error(),
		"stack", string(stack))

	body := messageBody{Message: "Internal server error"}
	if !wr.production {
		body.Error = err.Error()
		body.Stack = string(stack)
	}
	wr.JSON(w, http.StatusInternalServerError, body)
}
