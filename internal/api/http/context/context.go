package context

import (
	"context"

	"github.com/dtroode/beatstream-server/internal/model"
)

type userKey struct{}

type authenticated struct {
	user        model.User
	accessToken string
}

// Manager represents an HTTP request context manager for the authenticated user.
type Manager struct{}

var _ model.ContextManager = (*Manager)(nil)

// NewManager creates a new context manager instance.
func NewManager() *Manager {
	return &Manager{}
}

// SetUserToContext attaches the authenticated user and the bearer token they
// presented, replacing any user set earlier in the chain.
func (m *Manager) SetUserToContext(ctx context.Context, user model.User, accessToken string) context.Context {
	return context.WithValue(ctx, userKey{}, authenticated{user: user, accessToken: accessToken})
}

// GetUserFromContext returns the authenticated user, if any.
func (m *Manager) GetUserFromContext(ctx context.Context) (model.User, bool) {
	a, ok := ctx.Value(userKey{}).(authenticated)
	if !ok {
		return model.User{}, false
	}
	return a.user, true
}

// GetAccessTokenFromContext returns the bearer token the user authenticated with.
func (m *Manager) GetAccessTokenFromContext(ctx context.Context) (string, bool) {
	a, ok := ctx.Value(userKey{}).(authenticated)
	if !ok || a.accessToken == "" {
		return "", false
	}
	return a.accessToken, true
}
