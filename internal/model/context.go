package model

import "context"

// ContextManager carries the authenticated user through a request.
type ContextManager interface {
	SetUserToContext(ctx context.Context, user User, accessToken string) context.Context
	GetUserFromContext(ctx context.Context) (User, bool)
	GetAccessTokenFromContext(ctx context.Context) (string, bool)
}
