package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/beatstream-server/internal/model"
)

func TestJWT_AccessToken_Roundtrip(t *testing.T) {
	j := NewJWT("secret", "refresh-secret")

	access, err := j.GenerateAccessToken("user-1", 15*time.Minute)
	require.NoError(t, err)
	got, err := j.ParseAccessToken(access)
	require.NoError(t, err)
	assert.Equal(t, "user-1", got.UserID)
	assert.Equal(t, model.TokenTypeAccess, got.Type)
	assert.NotEmpty(t, got.ID)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), got.ExpiresAt, 2*time.Second)
}

func TestJWT_RefreshToken_Roundtrip(t *testing.T) {
	j := NewJWT("secret", "refresh-secret")

	refresh, jti, err := j.GenerateRefreshToken("user-1", 7*24*time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, jti)

	got, err := j.ParseRefreshToken(refresh)
	require.NoError(t, err)
	assert.Equal(t, "user-1", got.UserID)
	assert.Equal(t, jti, got.ID)
	assert.Equal(t, model.TokenTypeRefresh, got.Type)
}

func TestJWT_TokensAreUnique(t *testing.T) {
	frozen := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	j := NewJWT("secret", "refresh-secret", WithNowFunc(func() time.Time { return frozen }))

	tests := []struct {
		name     string
		generate func() (string, error)
	}{
		{
			name: "access",
			generate: func() (string, error) {
				return j.GenerateAccessToken("user-1", time.Hour)
			},
		},
		{
			name: "refresh",
			generate: func() (string, error) {
				tok, _, err := j.GenerateRefreshToken("user-1", time.Hour)
				return tok, err
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := tt.generate()
			require.NoError(t, err)
			b, err := tt.generate()
			require.NoError(t, err)
			assert.NotEqual(t, a, b)
		})
	}
}

func TestJWT_TokenType_Mismatch(t *testing.T) {
	j := NewJWT("secret", "secret")

	access, err := j.GenerateAccessToken("user-1", time.Minute)
	require.NoError(t, err)

	_, err = j.ParseRefreshToken(access)
	require.ErrorIs(t, err, model.ErrJWTInvalid)
}

func TestJWT_ExpiredVsInvalid(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	j := NewJWT("secret", "refresh-secret", WithNowFunc(clock))

	access, err := j.GenerateAccessToken("user-1", time.Minute)
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = j.ParseAccessToken(access)
	require.ErrorIs(t, err, model.ErrJWTExpired)

	other := NewJWT("other", "other", WithNowFunc(clock))
	forged, err := other.GenerateAccessToken("user-1", time.Hour)
	require.NoError(t, err)
	_, err = j.ParseAccessToken(forged)
	require.ErrorIs(t, err, model.ErrJWTInvalid)

	_, err = j.ParseAccessToken("not-a-jwt")
	require.ErrorIs(t, err, model.ErrJWTInvalid)
}

func TestJWT_MissingSecret(t *testing.T) {
	j := NewJWT("", "")

	_, err := j.GenerateAccessToken("user-1", time.Minute)
	require.ErrorIs(t, err, ErrMissingSecret)

	_, _, err = j.GenerateRefreshToken("user-1", time.Minute)
	require.ErrorIs(t, err, ErrMissingSecret)
}
