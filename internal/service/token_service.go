package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dtroode/beatstream-server/internal/logger"
	"github.com/dtroode/beatstream-server/internal/metrics"
	"github.com/dtroode/beatstream-server/internal/model"
	"github.com/dtroode/beatstream-server/internal/storage/soft"
)

// Key prefixes owned by the token lifecycle.
const (
	BlacklistPrefix     = "blacklist:"
	RefreshTokenPrefix  = "refreshToken:"
	RevokedBeforePrefix = "revokedBefore:"
)

// RotationBlacklistTTL is how long a rotated-out refresh token stays
// blacklisted unless TokenPolicy.PreciseRotationTTL is set.
const RotationBlacklistTTL = 7 * 24 * time.Hour

// TokenPolicy holds token lifetimes.
type TokenPolicy struct {
	AccessTTL          time.Duration
	RememberAccessTTL  time.Duration
	RefreshTTL         time.Duration
	RememberRefreshTTL time.Duration
	// PreciseRotationTTL blacklists rotated refresh tokens for their true
	// remaining lifetime instead of RotationBlacklistTTL.
	PreciseRotationTTL bool
}

// DefaultTokenPolicy returns 15m/30d access and 7d/30d refresh lifetimes.
func DefaultTokenPolicy() TokenPolicy {
	return TokenPolicy{
		AccessTTL:          15 * time.Minute,
		RememberAccessTTL:  30 * 24 * time.Hour,
		RefreshTTL:         7 * 24 * time.Hour,
		RememberRefreshTTL: 30 * 24 * time.Hour,
	}
}

// TokenService issues, validates, rotates and revokes tokens. It composes the
// TokenManager with the key-value store, which holds the active refresh token
// per user and the blacklist. Store failures never fail a token operation.
type TokenService struct {
	manager model.TokenManager
	store   model.KeyValueStore
	users   model.UserStore
	logger  *logger.Logger
	policy  TokenPolicy
	now     func() time.Time
}

// TokenServiceOption configures a TokenService.
type TokenServiceOption func(*TokenService)

// WithTokenClock overrides the clock used to compute remaining lifetimes.
func WithTokenClock(now func() time.Time) TokenServiceOption {
	return func(s *TokenService) { s.now = now }
}

func NewTokenService(
	manager model.TokenManager,
	store model.KeyValueStore,
	users model.UserStore,
	logger *logger.Logger,
	policy TokenPolicy,
	opts ...TokenServiceOption,
) *TokenService {
	s := &TokenService{
		manager: manager,
		store:   store,
		users:   users,
		logger:  logger,
		policy:  policy,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func refreshPointerKey(userID string) string {
	return RefreshTokenPrefix + userID
}

func blacklistKey(token string) string {
	return BlacklistPrefix + token
}

func revokedBeforeKey(userID string) string {
	return RevokedBeforePrefix + userID
}

// Issue signs a new access/refresh pair and makes the refresh token the
// user's active one.
func (s *TokenService) Issue(ctx context.Context, userID string, rememberMe bool) (model.TokenPair, error) {
	access, accessTTL, err := s.IssueAccessToken(userID, rememberMe)
	if err != nil {
		return model.TokenPair{}, err
	}

	refresh, refreshTTL, err := s.IssueRefreshToken(ctx, userID, rememberMe)
	if err != nil {
		return model.TokenPair{}, err
	}

	return model.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    FormatTTL(accessTTL),
		AccessTTL:    accessTTL,
		RefreshTTL:   refreshTTL,
	}, nil
}

// IssueAccessToken signs an access token. Nothing is stored.
func (s *TokenService) IssueAccessToken(userID string, rememberMe bool) (string, time.Duration, error) {
	ttl := s.policy.AccessTTL
	if rememberMe {
		ttl = s.policy.RememberAccessTTL
	}

	access, err := s.manager.GenerateAccessToken(userID, ttl)
	if err != nil {
		return "", 0, fmt.Errorf("issue access: %w", err)
	}
	return access, ttl, nil
}

// IssueRefreshToken signs a refresh token and overwrites the user's refresh
// pointer with it. A failed pointer write is logged and ignored.
func (s *TokenService) IssueRefreshToken(ctx context.Context, userID string, rememberMe bool) (string, time.Duration, error) {
	ttl := s.policy.RefreshTTL
	if rememberMe {
		ttl = s.policy.RememberRefreshTTL
	}

	refresh, _, err := s.manager.GenerateRefreshToken(userID, ttl)
	if err != nil {
		return "", 0, fmt.Errorf("issue refresh: %w", err)
	}

	soft.Do(ctx, s.logger, "token.persist_refresh", func(ctx context.Context) error {
		return s.store.Set(ctx, refreshPointerKey(userID), refresh, ttl)
	})

	return refresh, ttl, nil
}

// ValidateAccessToken checks an access token and resolves its user.
// Sensitive routes additionally require a verified email.
func (s *TokenService) ValidateAccessToken(ctx context.Context, token string, sensitive bool) (model.User, error) {
	if token == "" {
		return model.User{}, model.ErrTokenMissing
	}

	if s.isBlacklisted(ctx, token) {
		return model.User{}, model.ErrTokenRevoked
	}

	claims, err := s.manager.ParseAccessToken(token)
	if err != nil {
		if errors.Is(err, model.ErrJWTExpired) {
			return model.User{}, model.ErrTokenExpired
		}
		return model.User{}, model.ErrTokenInvalid
	}

	if s.issuedBeforeCutoff(ctx, claims) {
		return model.User{}, model.ErrTokenRevoked
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.User{}, model.ErrUserNotFound
		}
		return model.User{}, fmt.Errorf("failed to load user: %w", err)
	}

	if user.IsLocked(s.now()) {
		return model.User{}, model.ErrAccountLocked
	}
	if sensitive && !user.IsEmailVerified {
		return model.User{}, model.ErrEmailNotVerified
	}

	return user, nil
}

// ValidateRefreshToken checks a refresh token and requires it to be the
// user's active one, so a superseded token fails before it expires.
func (s *TokenService) ValidateRefreshToken(ctx context.Context, token string) (model.TokenClaims, error) {
	if token == "" {
		return model.TokenClaims{}, model.ErrRefreshTokenMissing
	}

	claims, err := s.manager.ParseRefreshToken(token)
	if err != nil {
		if errors.Is(err, model.ErrJWTExpired) {
			return model.TokenClaims{}, model.ErrRefreshTokenExpired
		}
		return model.TokenClaims{}, model.ErrRefreshTokenInvalid
	}

	// A rotated or logged-out token no longer matches the pointer, so it
	// fails here before the blacklist is consulted.
	stored, ok := soft.Call(ctx, s.logger, "token.get_refresh", func(ctx context.Context) (string, error) {
		return s.store.Get(ctx, refreshPointerKey(claims.UserID))
	}, "")
	if ok && subtle.ConstantTimeCompare([]byte(stored), []byte(token)) != 1 {
		return model.TokenClaims{}, model.ErrRefreshTokenInvalid
	}

	if s.isBlacklisted(ctx, token) {
		return model.TokenClaims{}, model.ErrRefreshTokenRevoked
	}

	return claims, nil
}

// Rotate issues a new pair for userID and blacklists the old refresh token.
// The new pair keeps the old token's remember-me lifetime.
func (s *TokenService) Rotate(ctx context.Context, oldRefresh string, userID string) (model.TokenPair, error) {
	claims, parseErr := s.manager.ParseRefreshToken(oldRefresh)
	rememberMe := parseErr == nil && claims.ExpiresAt.Sub(claims.IssuedAt) > s.policy.RefreshTTL

	pair, err := s.Issue(ctx, userID, rememberMe)
	if err != nil {
		return model.TokenPair{}, err
	}

	ttl := RotationBlacklistTTL
	if s.policy.PreciseRotationTTL && parseErr == nil {
		ttl = claims.ExpiresAt.Sub(s.now())
	}
	s.Blacklist(ctx, oldRefresh, ttl, model.TokenTypeRefresh)

	return pair, nil
}

// Revoke blacklists both tokens for their remaining lifetimes and drops the
// user's refresh pointer. Tokens that fail verification are skipped.
func (s *TokenService) Revoke(ctx context.Context, accessToken, refreshToken string) {
	var userID string

	if accessToken != "" {
		if claims, err := s.manager.ParseAccessToken(accessToken); err == nil {
			userID = claims.UserID
			s.Blacklist(ctx, accessToken, claims.ExpiresAt.Sub(s.now()), model.TokenTypeAccess)
		}
	}

	if refreshToken != "" {
		if claims, err := s.manager.ParseRefreshToken(refreshToken); err == nil {
			if userID == "" {
				userID = claims.UserID
			}
			s.Blacklist(ctx, refreshToken, claims.ExpiresAt.Sub(s.now()), model.TokenTypeRefresh)
		}
	}

	if userID != "" {
		s.RevokeAllForUser(ctx, userID)
	}
}

// RevokeAllForUser drops the user's refresh pointer, so no outstanding
// refresh token of theirs can be exchanged.
func (s *TokenService) RevokeAllForUser(ctx context.Context, userID string) {
	soft.Do(ctx, s.logger, "token.delete_refresh", func(ctx context.Context) error {
		_, err := s.store.Del(ctx, refreshPointerKey(userID))
		return err
	})
}

// RevokeIssuedBefore rejects every access token of userID issued before now,
// in addition to dropping the refresh pointer. The cutoff has one-second
// resolution, matching iat, and lives as long as the longest access token.
func (s *TokenService) RevokeIssuedBefore(ctx context.Context, userID string) {
	s.RevokeAllForUser(ctx, userID)

	ttl := max(s.policy.AccessTTL, s.policy.RememberAccessTTL)
	if ttl <= 0 {
		return
	}
	cutoff := strconv.FormatInt(s.now().Unix(), 10)
	soft.Do(ctx, s.logger, "token.revoke_before", func(ctx context.Context) error {
		return s.store.Set(ctx, revokedBeforeKey(userID), cutoff, ttl)
	})
}

// issuedBeforeCutoff reports whether claims predate the user's revocation
// cutoff. Without a readable cutoff nothing is rejected.
func (s *TokenService) issuedBeforeCutoff(ctx context.Context, claims model.TokenClaims) bool {
	raw, _ := soft.Call(ctx, s.logger, "token.get_revoke_before", func(ctx context.Context) (string, error) {
		return s.store.Get(ctx, revokedBeforeKey(claims.UserID))
	}, "")
	if raw == "" {
		return false
	}
	cutoff, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return false
	}
	return claims.IssuedAt.Unix() < cutoff
}

// Blacklist marks token revoked for ttl. Non-positive ttls are skipped since
// the token is already expired.
func (s *TokenService) Blacklist(ctx context.Context, token string, ttl time.Duration, typ model.TokenType) {
	if ttl <= 0 {
		return
	}
	if ttl < time.Second {
		ttl = time.Second
	}

	ok := soft.Do(ctx, s.logger, "token.blacklist", func(ctx context.Context) error {
		return s.store.Set(ctx, blacklistKey(token), "1", ttl)
	})
	if ok {
		metrics.TokensRevoked.WithLabelValues(string(typ)).Inc()
	}
}

// IsBlacklisted reports whether token is blacklisted.
func (s *TokenService) IsBlacklisted(ctx context.Context, token string) (bool, error) {
	return s.store.Exists(ctx, blacklistKey(token))
}

// isBlacklisted is the soft variant used on the request path: a store outage
// reads as not blacklisted.
func (s *TokenService) isBlacklisted(ctx context.Context, token string) bool {
	revoked, _ := soft.Call(ctx, s.logger, "token.blacklist_check", func(ctx context.Context) (bool, error) {
		return s.IsBlacklisted(ctx, token)
	}, false)
	return revoked
}

// FormatTTL renders a lifetime the way clients expect it in expiresIn: "15m", "30d".
func FormatTTL(d time.Duration) string {
	switch {
	case d >= 24*time.Hour && d%(24*time.Hour) == 0:
		return fmt.Sprintf("%dd", d/(24*time.Hour))
	case d >= time.Hour && d%time.Hour == 0:
		return fmt.Sprintf("%dh", d/time.Hour)
	case d >= time.Minute && d%time.Minute == 0:
		return fmt.Sprintf("%dm", d/time.Minute)
	default:
		return fmt.Sprintf("%ds", d/time.Second)
	}
}
