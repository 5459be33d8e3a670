package model

import "time"

// TokenType distinguishes access from refresh tokens.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// TokenClaims are the verified claims of a signed token.
type TokenClaims struct {
	UserID    string
	Type      TokenType
	ID        string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenManager signs and verifies access/refresh tokens.
type TokenManager interface {
	GenerateAccessToken(userID string, ttl time.Duration) (string, error)
	GenerateRefreshToken(userID string, ttl time.Duration) (token string, jti string, err error)
	// ParseAccessToken returns ErrJWTExpired or ErrJWTInvalid on failure.
	ParseAccessToken(token string) (TokenClaims, error)
	// ParseRefreshToken returns ErrJWTExpired or ErrJWTInvalid on failure.
	ParseRefreshToken(token string) (TokenClaims, error)
}

// TokenPair is returned to the client after login, register and refresh.
type TokenPair struct {
	AccessToken  string        `json:"accessToken"`
	RefreshToken string        `json:"refreshToken"`
	ExpiresIn    string        `json:"expiresIn"`
	AccessTTL    time.Duration `json:"-"`
	RefreshTTL   time.Duration `json:"-"`
}
