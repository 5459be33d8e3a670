package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/dtroode/beatstream-server/internal/model"
)

// ErrMissingSecret is returned when a token is signed without a configured secret.
var ErrMissingSecret = errors.New("signing secret is not configured")

// Claims represents JWT claims with token type and user ID.
type Claims struct {
	jwt.RegisteredClaims
	UserID    string `json:"userId"`
	TokenType string `json:"type"`
}

// JWT implements TokenManager backed by symmetric HMAC. Access and refresh
// tokens are signed with different secrets.
type JWT struct {
	accessSecret  []byte
	refreshSecret []byte
	now           func() time.Time
}

// Option configures a JWT manager.
type Option func(*JWT)

// WithNowFunc overrides the clock used for iat/exp and validation.
func WithNowFunc(now func() time.Time) Option {
	return func(j *JWT) { j.now = now }
}

// NewJWT creates a new JWT token manager with the provided secret keys.
func NewJWT(accessSecret, refreshSecret string, opts ...Option) *JWT {
	j := &JWT{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

var _ model.TokenManager = (*JWT)(nil)

// GenerateAccessToken creates an access token valid for ttl. Every token
// carries its own JTI so two tokens signed in the same second still differ.
func (j *JWT) GenerateAccessToken(userID string, ttl time.Duration) (string, error) {
	now := j.now()
	tokenString, err := j.sign(j.accessSecret, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserID:    userID,
		TokenType: string(model.TokenTypeAccess),
	})
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}

	return tokenString, nil
}

// GenerateRefreshToken creates a refresh token valid for ttl and returns its JTI.
func (j *JWT) GenerateRefreshToken(userID string, ttl time.Duration) (string, string, error) {
	now := j.now()
	jti := uuid.NewString()
	tokenString, err := j.sign(j.refreshSecret, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserID:    userID,
		TokenType: string(model.TokenTypeRefresh),
	})
	if err != nil {
		return "", "", fmt.Errorf("failed to sign refresh token: %w", err)
	}

	return tokenString, jti, nil
}

// ParseAccessToken validates an access token and returns its claims.
func (j *JWT) ParseAccessToken(tokenString string) (model.TokenClaims, error) {
	return j.parse(tokenString, j.accessSecret, model.TokenTypeAccess)
}

// ParseRefreshToken validates a refresh token and returns its claims.
func (j *JWT) ParseRefreshToken(tokenString string) (model.TokenClaims, error) {
	return j.parse(tokenString, j.refreshSecret, model.TokenTypeRefresh)
}

func (j *JWT) sign(secret []byte, claims Claims) (string, error) {
	if len(secret) == 0 {
		return "", ErrMissingSecret
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func (j *JWT) parse(tokenString string, secret []byte, want model.TokenType) (model.TokenClaims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("wrong signing method %v", t.Header["alg"])
		}
		return secret, nil
	}, jwt.WithTimeFunc(j.now), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return model.TokenClaims{}, fmt.Errorf("%w: %v", model.ErrJWTExpired, err)
		}
		return model.TokenClaims{}, fmt.Errorf("%w: %v", model.ErrJWTInvalid, err)
	}
	if !token.Valid {
		return model.TokenClaims{}, fmt.Errorf("%w: token is not valid", model.ErrJWTInvalid)
	}
	if claims.TokenType != string(want) {
		return model.TokenClaims{}, fmt.Errorf("%w: token type mismatch: %s", model.ErrJWTInvalid, claims.TokenType)
	}
	if claims.UserID == "" {
		return model.TokenClaims{}, fmt.Errorf("%w: missing user id", model.ErrJWTInvalid)
	}

	out := model.TokenClaims{
		UserID: claims.UserID,
		Type:   want,
		ID:     claims.ID,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}
