package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/dtroode/beatstream-server/internal/api/http/response"
	"github.com/dtroode/beatstream-server/internal/logger"
	"github.com/dtroode/beatstream-server/internal/model"
)

// TokenValidator resolves the user behind an access token.
type TokenValidator interface {
	ValidateAccessToken(ctx context.Context, token string, sensitive bool) (model.User, error)
}

// Authenticate validates bearer tokens and injects the user into context.
type Authenticate struct {
	tokens         TokenValidator
	contextManager model.ContextManager
	writer         *response.Writer
	logger         *logger.Logger
}

// NewAuthenticate creates a new Authenticate middleware instance.
func NewAuthenticate(tokens TokenValidator, contextManager model.ContextManager, writer *response.Writer, logger *logger.Logger) *Authenticate {
	return &Authenticate{tokens: tokens, contextManager: contextManager, writer: writer, logger: logger}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if len(header) < 7 || !strings.EqualFold(header[:7], "Bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

// Identify attaches the user when the request carries a valid token and lets
// every request through. Rate limiting reads the user to pick a tier.
func (m *Authenticate) Identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		user, err := m.tokens.ValidateAccessToken(r.Context(), token, false)
		if err != nil {
			m.logger.DebugContext(r.Context(), "Authenticate middleware: ignoring invalid token", "error", err.Error())
			next.ServeHTTP(w, r)
			return
		}

		next.ServeHTTP(w, r.WithContext(m.contextManager.SetUserToContext(r.Context(), user, token)))
	})
}

// Require rejects requests without a valid token. Sensitive routes also need
// a verified email.
func (m *Authenticate) Require(sensitive bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if user, ok := m.contextManager.GetUserFromContext(ctx); ok {
				if sensitive && !user.IsEmailVerified {
					m.writer.Error(w, r, model.ErrEmailNotVerified)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			token := bearerToken(r)
			user, err := m.tokens.ValidateAccessToken(ctx, token, sensitive)
			if err != nil {
				m.logger.DebugContext(ctx, "Authenticate middleware: request rejected",
					"path", r.URL.Path,
					"error", err.Error())
				m.writer.Error(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(m.contextManager.SetUserToContext(ctx, user, token)))
		})
	}
}

// RequireAdmin rejects authenticated users without the admin role. It must
// run after Require.
func (m *Authenticate) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := m.contextManager.GetUserFromContext(r.Context())
		if !ok {
			m.writer.Error(w, r, model.ErrTokenMissing)
			return
		}
		if !user.IsAdmin() {
			m.logger.WarnContext(r.Context(), "Authenticate middleware: admin route denied",
				"user_id", user.ID,
				"path", r.URL.Path)
			m.writer.Error(w, r, model.ErrForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
