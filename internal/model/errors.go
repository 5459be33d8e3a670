package model

import (
	"errors"
	"time"
)

var (
	// ErrNotFound is returned by repositories when a document does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned by repositories on unique key violations.
	ErrAlreadyExists = errors.New("already exists")
	// ErrKeyNotFound is returned by the key-value store for absent keys.
	ErrKeyNotFound = errors.New("key not found")

	// ErrJWTExpired and ErrJWTInvalid are returned by the token manager.
	ErrJWTExpired = errors.New("jwt expired")
	ErrJWTInvalid = errors.New("jwt invalid")
)

// AuthError is an authentication failure with a stable code the client can branch on.
type AuthError struct {
	Code    string
	Message string
}

func (e *AuthError) Error() string {
	return e.Code + ": " + e.Message
}

var (
	ErrTokenMissing     = &AuthError{Code: "TOKEN_MISSING", Message: "Access token is required"}
	ErrTokenInvalid     = &AuthError{Code: "TOKEN_INVALID", Message: "Invalid access token"}
	ErrTokenExpired     = &AuthError{Code: "TOKEN_EXPIRED", Message: "Access token has expired"}
	ErrTokenRevoked     = &AuthError{Code: "TOKEN_REVOKED", Message: "Access token has been revoked"}
	ErrUserNotFound     = &AuthError{Code: "USER_NOT_FOUND", Message: "User not found"}
	ErrAccountLocked    = &AuthError{Code: "ACCOUNT_LOCKED", Message: "Account is temporarily locked due to too many failed login attempts"}
	ErrEmailNotVerified = &AuthError{Code: "EMAIL_NOT_VERIFIED", Message: "Please verify your email address to access this resource"}

	ErrRefreshTokenMissing = &AuthError{Code: "REFRESH_TOKEN_MISSING", Message: "Refresh token is required"}
	ErrRefreshTokenInvalid = &AuthError{Code: "REFRESH_TOKEN_INVALID", Message: "Invalid refresh token"}
	ErrRefreshTokenExpired = &AuthError{Code: "REFRESH_TOKEN_EXPIRED", Message: "Refresh token has expired"}
	ErrRefreshTokenRevoked = &AuthError{Code: "REFRESH_TOKEN_REVOKED", Message: "Refresh token has been revoked"}

	ErrInvalidCredentials = &AuthError{Code: "INVALID_CREDENTIALS", Message: "Invalid email or password"}
	ErrEmailTaken         = &AuthError{Code: "EMAIL_TAKEN", Message: "An account with this email already exists"}
	ErrResetTokenInvalid  = &AuthError{Code: "RESET_TOKEN_INVALID", Message: "Password reset token is invalid or has expired"}
	ErrForbidden          = &AuthError{Code: "FORBIDDEN", Message: "Insufficient permissions"}
)

// RateLimitError is returned when a quota check outside the HTTP middleware rejects a call.
type RateLimitError struct {
	Message    string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return e.Message
}
