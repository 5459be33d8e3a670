package model

import (
	"context"
	"time"
)

// UserStore defines persistence operations for users.
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (User, error)
	GetByID(ctx context.Context, id string) (User, error)
	Create(ctx context.Context, user User) (User, error)
	// RecordFailedLogin increments loginAttempts and sets lockUntil once
	// maxAttempts is reached. It returns the updated user.
	RecordFailedLogin(ctx context.Context, id string, maxAttempts int, lockFor time.Duration) (User, error)
	ResetLoginAttempts(ctx context.Context, id string) error
	UpdatePassword(ctx context.Context, id string, passwordHash string) error
	Ping(ctx context.Context) error
}

// SubscriptionType is a user's plan.
type SubscriptionType string

const (
	SubscriptionFree    SubscriptionType = "free"
	SubscriptionPremium SubscriptionType = "premium"
)

// Subscription describes a user's plan.
type Subscription struct {
	Type      SubscriptionType
	ExpiresAt *time.Time
}

// Role is a user's authorization role.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User is the subset of the user document the auth layer reads.
type User struct {
	ID              string
	Email           string
	DisplayName     string
	PasswordHash    string
	Role            Role
	Subscription    Subscription
	IsEmailVerified bool
	LoginAttempts   int
	LockUntil       *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// IsLocked reports whether the account lock is set and not yet expired.
func (u User) IsLocked(now time.Time) bool {
	return u.LockUntil != nil && u.LockUntil.After(now)
}

// IsPremium reports whether the user is on the premium plan at now. A plan
// without an expiry never lapses.
func (u User) IsPremium(now time.Time) bool {
	if u.Subscription.Type != SubscriptionPremium {
		return false
	}
	return u.Subscription.ExpiresAt == nil || u.Subscription.ExpiresAt.After(now)
}

// IsAdmin reports whether the user has the admin role.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
