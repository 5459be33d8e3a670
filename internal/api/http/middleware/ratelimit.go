package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/httprate"

	"github.com/dtroode/beatstream-server/internal/api/http/response"
	"github.com/dtroode/beatstream-server/internal/logger"
	"github.com/dtroode/beatstream-server/internal/metrics"
	"github.com/dtroode/beatstream-server/internal/model"
	"github.com/dtroode/beatstream-server/internal/ratelimit"
)

// RateLimitConfig configures the RateLimit middleware.
type RateLimitConfig struct {
	// HealthPath is never limited.
	HealthPath string
	// TrustProxy takes the client IP from X-Forwarded-For and X-Real-IP.
	TrustProxy bool
}

// RateLimit counts requests per client fingerprint and route class.
type RateLimit struct {
	limiter        *ratelimit.Limiter
	contextManager model.ContextManager
	writer         *response.Writer
	logger         *logger.Logger
	keyFunc        httprate.KeyFunc
	healthPath     string
}

// NewRateLimit creates a RateLimit middleware.
func NewRateLimit(
	limiter *ratelimit.Limiter,
	contextManager model.ContextManager,
	writer *response.Writer,
	logger *logger.Logger,
	cfg RateLimitConfig,
) *RateLimit {
	keyFunc := httprate.KeyByIP
	if cfg.TrustProxy {
		keyFunc = httprate.KeyByRealIP
	}
	return &RateLimit{
		limiter:        limiter,
		contextManager: contextManager,
		writer:         writer,
		logger:         logger,
		keyFunc:        keyFunc,
		healthPath:     cfg.HealthPath,
	}
}

func (m *RateLimit) skip(r *http.Request, marker *ratelimit.Marker) bool {
	if r.URL.Path == m.healthPath || marker.Skipped() {
		return true
	}
	user, ok := m.contextManager.GetUserFromContext(r.Context())
	return ok && user.IsPremium(time.Now()) && strings.Contains(r.URL.Path, "/music/")
}

func (m *RateLimit) clientIP(r *http.Request) string {
	ip, err := m.keyFunc(r)
	if err != nil || ip == "" {
		return r.RemoteAddr
	}
	return ip
}

// For returns middleware enforcing the quota of class. A handler that marks
// the request with ratelimit.SkipRateLimit gets its hit refunded.
func (m *RateLimit) For(class ratelimit.RouteClass) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, marker := ratelimit.WithMarker(r.Context())
			r = r.WithContext(ctx)

			if m.skip(r, marker) {
				metrics.RateLimitDecisions.WithLabelValues(class.String(), "skipped").Inc()
				next.ServeHTTP(w, r)
				return
			}

			user, authenticated := m.contextManager.GetUserFromContext(ctx)
			fingerprint := ratelimit.Fingerprint(r, m.clientIP(r), user.ID)
			key := ratelimit.CounterKey(class, fingerprint)
			quota := ratelimit.QuotaFor(class, ratelimit.TierOf(user, authenticated, time.Now()))

			decision := m.limiter.Hit(ctx, key, quota)
			w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(quota.Limit, 10))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(decision.Remaining, 10))

			if !decision.Allowed {
				m.logRejection(r, class, fingerprint, decision)
				metrics.RateLimitDecisions.WithLabelValues(class.String(), "rejected").Inc()
				m.writer.RateLimited(w, quota.Message, decision.RetryAfter())
				return
			}

			outcome := "allowed"
			if decision.Degraded {
				outcome = "degraded"
			}
			metrics.RateLimitDecisions.WithLabelValues(class.String(), outcome).Inc()

			next.ServeHTTP(w, r)

			if marker.Skipped() && !decision.Degraded {
				if err := m.limiter.Decrement(ctx, key); err != nil {
					m.logger.WarnContext(ctx, "failed to refund rate limit hit", "key", key, "error", err.Error())
				}
			}
		})
	}
}

func (m *RateLimit) logRejection(r *http.Request, class ratelimit.RouteClass, fingerprint string, d ratelimit.Decision) {
	attrs := []any{
		"class", class.String(),
		"fingerprint", fingerprint,
		"method", r.Method,
		"path", r.URL.Path,
		"count", d.Count,
		"limit", d.Quota.Limit,
		"user_agent", r.UserAgent(),
	}

	if strings.Contains(r.URL.Path, "/auth/") || strings.Contains(r.URL.Path, "/admin/") {
		m.logger.ErrorContext(r.Context(), "rate limit exceeded on protected path", attrs...)
		return
	}
	m.logger.WarnContext(r.Context(), "rate limit exceeded", attrs...)
}
