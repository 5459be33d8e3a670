package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/dtroode/beatstream-server/internal/cache"
	"github.com/dtroode/beatstream-server/internal/logger"
	"github.com/dtroode/beatstream-server/internal/model"
	"github.com/dtroode/beatstream-server/internal/ratelimit"
)

const (
	// PasswordResetPrefix keys one-time password reset tokens.
	PasswordResetPrefix = "passwordReset:"
	// PasswordResetTTL is how long a reset token can be redeemed.
	PasswordResetTTL = time.Hour
)

// AuthPolicy controls account locking.
type AuthPolicy struct {
	MaxLoginAttempts int
	LockDuration     time.Duration
}

// DefaultAuthPolicy locks an account for 2 hours after 5 failed logins.
func DefaultAuthPolicy() AuthPolicy {
	return AuthPolicy{MaxLoginAttempts: 5, LockDuration: 2 * time.Hour}
}

// ResetNotifier delivers password reset tokens to users.
type ResetNotifier interface {
	SendPasswordReset(ctx context.Context, email, token string) error
}

// LogNotifier records reset requests in the log instead of sending email.
type LogNotifier struct {
	logger *logger.Logger
}

func NewLogNotifier(logger *logger.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) SendPasswordReset(ctx context.Context, email, token string) error {
	n.logger.InfoContext(ctx, "Auth service: password reset requested", "email", email)
	n.logger.DebugContext(ctx, "Auth service: password reset token", "email", email, "token", token)
	return nil
}

// ClientMeta describes the client a session is opened from.
type ClientMeta struct {
	IP        string
	UserAgent string
}

type RegisterParams struct {
	Email       string
	Password    string
	DisplayName string
	RememberMe  bool
}

type LoginParams struct {
	Email      string
	Password   string
	RememberMe bool
}

// AuthResult is the outcome of a successful register or login.
type AuthResult struct {
	User   model.User
	Tokens model.TokenPair
}

type Auth struct {
	users      model.UserStore
	tokens     *TokenService
	limiter    *ratelimit.Limiter
	sessions   *cache.SessionCache
	store      model.KeyValueStore
	notifier   ResetNotifier
	logger     *logger.Logger
	policy     AuthPolicy
	bcryptCost int
	now        func() time.Time
}

// AuthOption configures Auth.
type AuthOption func(*Auth)

// WithBcryptCost overrides the password hashing cost.
func WithBcryptCost(cost int) AuthOption {
	return func(a *Auth) { a.bcryptCost = cost }
}

// WithAuthClock overrides the clock used for lock checks.
func WithAuthClock(now func() time.Time) AuthOption {
	return func(a *Auth) { a.now = now }
}

func NewAuth(
	users model.UserStore,
	tokens *TokenService,
	limiter *ratelimit.Limiter,
	sessions *cache.SessionCache,
	store model.KeyValueStore,
	notifier ResetNotifier,
	logger *logger.Logger,
	policy AuthPolicy,
	opts ...AuthOption,
) *Auth {
	a := &Auth{
		users:      users,
		tokens:     tokens,
		limiter:    limiter,
		sessions:   sessions,
		store:      store,
		notifier:   notifier,
		logger:     logger,
		policy:     policy,
		bcryptCost: bcrypt.DefaultCost,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (a *Auth) Register(ctx context.Context, params RegisterParams, meta ClientMeta) (AuthResult, error) {
	email := normalizeEmail(params.Email)
	a.logger.DebugContext(ctx, "Auth service: starting user registration", "email", email)

	_, err := a.users.GetByEmail(ctx, email)
	if err == nil {
		a.logger.InfoContext(ctx, "Auth service: user already exists", "email", email)
		return AuthResult{}, model.ErrEmailTaken
	}
	if !errors.Is(err, model.ErrNotFound) {
		return AuthResult{}, fmt.Errorf("failed to get user by email: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(params.Password), a.bcryptCost)
	if err != nil {
		return AuthResult{}, fmt.Errorf("failed to hash password: %w", err)
	}

	now := a.now()
	user, err := a.users.Create(ctx, model.User{
		Email:        email,
		DisplayName:  params.DisplayName,
		PasswordHash: string(hash),
		Role:         model.RoleUser,
		Subscription: model.Subscription{Type: model.SubscriptionFree},
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if errors.Is(err, model.ErrAlreadyExists) {
		return AuthResult{}, model.ErrEmailTaken
	}
	if err != nil {
		a.logger.ErrorContext(ctx, "Auth service: failed to create user", "email", email, "error", err.Error())
		return AuthResult{}, fmt.Errorf("failed to create user: %w", err)
	}

	tokens, err := a.openSession(ctx, user, params.RememberMe, meta)
	if err != nil {
		return AuthResult{}, err
	}

	a.logger.InfoContext(ctx, "Auth service: user registered", "user_id", user.ID)
	return AuthResult{User: user, Tokens: tokens}, nil
}

// Login checks credentials under the per-account progressive quota. Failed
// attempts count toward the lock and tighten the quota.
func (a *Auth) Login(ctx context.Context, params LoginParams, meta ClientMeta) (AuthResult, error) {
	email := normalizeEmail(params.Email)

	user, err := a.users.GetByEmail(ctx, email)
	if errors.Is(err, model.ErrNotFound) {
		return AuthResult{}, model.ErrInvalidCredentials
	}
	if err != nil {
		return AuthResult{}, fmt.Errorf("failed to get user by email: %w", err)
	}

	quota := ratelimit.LoginQuota(user.LoginAttempts)
	decision := a.limiter.Hit(ctx, ratelimit.LoginKey(user.ID), quota)
	if !decision.Allowed {
		a.logger.WarnContext(ctx, "Auth service: login quota exceeded",
			"user_id", user.ID,
			"attempts", user.LoginAttempts,
			"ip", meta.IP)
		return AuthResult{}, &model.RateLimitError{Message: quota.Message, RetryAfter: decision.RetryAfter()}
	}

	if user.IsLocked(a.now()) {
		return AuthResult{}, model.ErrAccountLocked
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(params.Password)); err != nil {
		return AuthResult{}, a.failLogin(ctx, user)
	}

	if user.LoginAttempts > 0 || user.LockUntil != nil {
		if err := a.users.ResetLoginAttempts(ctx, user.ID); err != nil {
			a.logger.ErrorContext(ctx, "Auth service: failed to reset login attempts", "user_id", user.ID, "error", err.Error())
		}
		user.LoginAttempts = 0
		user.LockUntil = nil
	}
	// Only failed attempts count against the login quota.
	if err := a.limiter.Reset(ctx, ratelimit.LoginKey(user.ID)); err != nil {
		a.logger.WarnContext(ctx, "Auth service: failed to reset login quota", "user_id", user.ID, "error", err.Error())
	}

	tokens, err := a.openSession(ctx, user, params.RememberMe, meta)
	if err != nil {
		return AuthResult{}, err
	}

	a.logger.InfoContext(ctx, "Auth service: user logged in", "user_id", user.ID, "remember_me", params.RememberMe)
	return AuthResult{User: user, Tokens: tokens}, nil
}

func (a *Auth) failLogin(ctx context.Context, user model.User) error {
	updated, err := a.users.RecordFailedLogin(ctx, user.ID, a.policy.MaxLoginAttempts, a.policy.LockDuration)
	if err != nil {
		a.logger.ErrorContext(ctx, "Auth service: failed to record failed login", "user_id", user.ID, "error", err.Error())
		return model.ErrInvalidCredentials
	}

	if updated.IsLocked(a.now()) {
		a.logger.WarnContext(ctx, "Auth service: account locked", "user_id", user.ID, "attempts", updated.LoginAttempts)
		return model.ErrAccountLocked
	}
	return model.ErrInvalidCredentials
}

func (a *Auth) openSession(ctx context.Context, user model.User, rememberMe bool, meta ClientMeta) (model.TokenPair, error) {
	tokens, err := a.tokens.Issue(ctx, user.ID, rememberMe)
	if err != nil {
		a.logger.ErrorContext(ctx, "Auth service: failed to issue tokens", "user_id", user.ID, "error", err.Error())
		return model.TokenPair{}, fmt.Errorf("failed to issue tokens: %w", err)
	}

	_ = a.sessions.Set(ctx, cache.Session{
		UserID:     user.ID,
		RememberMe: rememberMe,
		IP:         meta.IP,
		UserAgent:  meta.UserAgent,
		CreatedAt:  a.now(),
	})

	return tokens, nil
}

// Refresh exchanges a valid refresh token for a new pair.
func (a *Auth) Refresh(ctx context.Context, refreshToken string) (model.TokenPair, error) {
	claims, err := a.tokens.ValidateRefreshToken(ctx, refreshToken)
	if err != nil {
		return model.TokenPair{}, err
	}

	user, err := a.users.GetByID(ctx, claims.UserID)
	if errors.Is(err, model.ErrNotFound) {
		return model.TokenPair{}, model.ErrUserNotFound
	}
	if err != nil {
		return model.TokenPair{}, fmt.Errorf("failed to get user: %w", err)
	}
	if user.IsLocked(a.now()) {
		return model.TokenPair{}, model.ErrAccountLocked
	}

	tokens, err := a.tokens.Rotate(ctx, refreshToken, user.ID)
	if err != nil {
		return model.TokenPair{}, fmt.Errorf("failed to rotate tokens: %w", err)
	}

	a.logger.DebugContext(ctx, "Auth service: tokens rotated", "user_id", user.ID)
	return tokens, nil
}

// Logout revokes both tokens and drops the session. It never fails.
func (a *Auth) Logout(ctx context.Context, userID, accessToken, refreshToken string) {
	a.tokens.Revoke(ctx, accessToken, refreshToken)
	if userID != "" {
		a.sessions.Delete(ctx, userID)
	}
	a.logger.InfoContext(ctx, "Auth service: user logged out", "user_id", userID)
}

// ForgotPassword issues a reset token for the account, if it exists. Unknown
// emails succeed silently so the endpoint does not reveal accounts.
func (a *Auth) ForgotPassword(ctx context.Context, email string) error {
	email = normalizeEmail(email)

	user, err := a.users.GetByEmail(ctx, email)
	if errors.Is(err, model.ErrNotFound) {
		a.logger.DebugContext(ctx, "Auth service: password reset for unknown email", "email", email)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get user by email: %w", err)
	}

	resetToken := uuid.NewString()
	if err := a.store.Set(ctx, PasswordResetPrefix+resetToken, user.ID, PasswordResetTTL); err != nil {
		a.logger.ErrorContext(ctx, "Auth service: failed to store reset token", "user_id", user.ID, "error", err.Error())
		return fmt.Errorf("failed to store reset token: %w", err)
	}

	if err := a.notifier.SendPasswordReset(ctx, user.Email, resetToken); err != nil {
		return fmt.Errorf("failed to send reset token: %w", err)
	}
	return nil
}

// ResetPassword redeems a reset token once, sets the new password, unlocks
// the account and signs the user out everywhere.
func (a *Auth) ResetPassword(ctx context.Context, resetToken, newPassword string) error {
	if resetToken == "" {
		return model.ErrResetTokenInvalid
	}

	userID, err := a.store.GetDel(ctx, PasswordResetPrefix+resetToken)
	if errors.Is(err, model.ErrKeyNotFound) {
		return model.ErrResetTokenInvalid
	}
	if err != nil {
		return fmt.Errorf("failed to redeem reset token: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), a.bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := a.users.UpdatePassword(ctx, userID, string(hash)); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.ErrResetTokenInvalid
		}
		return fmt.Errorf("failed to update password: %w", err)
	}
	if err := a.users.ResetLoginAttempts(ctx, userID); err != nil {
		a.logger.ErrorContext(ctx, "Auth service: failed to reset login attempts", "user_id", userID, "error", err.Error())
	}

	a.tokens.RevokeIssuedBefore(ctx, userID)
	a.sessions.Delete(ctx, userID)

	a.logger.InfoContext(ctx, "Auth service: password reset", "user_id", userID)
	return nil
}
