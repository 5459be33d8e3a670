package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dtroode/beatstream-server/internal/api/http/response"
	"github.com/dtroode/beatstream-server/internal/cache"
	"github.com/dtroode/beatstream-server/internal/logger"
	"github.com/dtroode/beatstream-server/internal/model"
	"github.com/dtroode/beatstream-server/internal/ratelimit"
)

// LimitResetter clears rate limit counters.
type LimitResetter interface {
	Reset(ctx context.Context, key string) error
	ResetFingerprint(ctx context.Context, fingerprint string) (int64, error)
}

// CacheClearer drops cache entries by pattern.
type CacheClearer interface {
	DelByPattern(ctx context.Context, pattern string) int64
}

// Admin handles operator endpoints.
type Admin struct {
	limits         LimitResetter
	cache          CacheClearer
	contextManager model.ContextManager
	writer         *response.Writer
	logger         *logger.Logger
}

// NewAdmin creates a new Admin handler.
func NewAdmin(limits LimitResetter, cache CacheClearer, contextManager model.ContextManager, writer *response.Writer, logger *logger.Logger) *Admin {
	return &Admin{limits: limits, cache: cache, contextManager: contextManager, writer: writer, logger: logger}
}

type resetLimitRequest struct {
	Fingerprint string `json:"fingerprint" validate:"required_without=Key"`
	Key         string `json:"key" validate:"required_without=Fingerprint"`
}

type deletedResponse struct {
	Deleted int64 `json:"deleted"`
}

// ResetRateLimit clears one counter by key or every counter of a fingerprint.
func (h *Admin) ResetRateLimit(w http.ResponseWriter, r *http.Request) {
	var req resetLimitRequest
	if err := decode(w, r, &req); err != nil {
		h.writer.Error(w, r, err)
		return
	}
	admin, _ := h.contextManager.GetUserFromContext(r.Context())

	if req.Key != "" {
		if !strings.HasPrefix(req.Key, ratelimit.KeyPrefix) {
			h.writer.Error(w, r, response.BadRequest("key must be a rate limit counter key"))
			return
		}
		if err := h.limits.Reset(r.Context(), req.Key); err != nil {
			h.writer.Error(w, r, err)
			return
		}
		h.logger.InfoContext(r.Context(), "Admin handler: rate limit counter reset", "key", req.Key, "admin_id", admin.ID)
		h.writer.JSON(w, http.StatusOK, deletedResponse{Deleted: 1})
		return
	}

	n, err := h.limits.ResetFingerprint(r.Context(), req.Fingerprint)
	if err != nil {
		h.writer.Error(w, r, err)
		return
	}
	h.logger.InfoContext(r.Context(), "Admin handler: rate limit fingerprint reset",
		"fingerprint", req.Fingerprint,
		"deleted", n,
		"admin_id", admin.ID)
	h.writer.JSON(w, http.StatusOK, deletedResponse{Deleted: n})
}

type clearCacheResponse struct {
	Namespace string `json:"namespace"`
	Deleted   int64  `json:"deleted"`
}

// ClearCache drops every entry of a cache namespace.
func (h *Admin) ClearCache(w http.ResponseWriter, r *http.Request) {
	ns, ok := cache.ParseNamespace(chi.URLParam(r, "namespace"))
	if !ok {
		h.writer.Error(w, r, response.BadRequest("unknown cache namespace"))
		return
	}

	n := h.cache.DelByPattern(r.Context(), ns.Pattern())
	admin, _ := h.contextManager.GetUserFromContext(r.Context())
	h.logger.InfoContext(r.Context(), "Admin handler: cache namespace cleared",
		"namespace", string(ns),
		"deleted", n,
		"admin_id", admin.ID)
	h.writer.JSON(w, http.StatusOK, clearCacheResponse{Namespace: string(ns), Deleted: n})
}
