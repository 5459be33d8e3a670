package handler

import (
	"context"
	"net/http"

	"github.com/dtroode/beatstream-server/internal/api/http/response"
	"github.com/dtroode/beatstream-server/internal/logger"
	"github.com/dtroode/beatstream-server/internal/model"
)

// RecentlyPlayedService lists a user's recently played songs.
type RecentlyPlayedService interface {
	RecentlyPlayed(ctx context.Context, userID string) ([]model.Song, error)
}

// User handles endpoints about the authenticated user.
type User struct {
	musicService   RecentlyPlayedService
	contextManager model.ContextManager
	writer         *response.Writer
	logger         *logger.Logger
}

// NewUser creates a new User handler.
func NewUser(musicService RecentlyPlayedService, contextManager model.ContextManager, writer *response.Writer, logger *logger.Logger) *User {
	return &User{musicService: musicService, contextManager: contextManager, writer: writer, logger: logger}
}

// Me returns the authenticated user.
func (h *User) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := h.contextManager.GetUserFromContext(r.Context())
	if !ok {
		h.writer.Error(w, r, model.ErrTokenMissing)
		return
	}
	h.writer.JSON(w, http.StatusOK, newUserView(user))
}

// RecentlyPlayed returns the songs the user played last, newest first.
func (h *User) RecentlyPlayed(w http.ResponseWriter, r *http.Request) {
	user, ok := h.contextManager.GetUserFromContext(r.Context())
	if !ok {
		h.writer.Error(w, r, model.ErrTokenMissing)
		return
	}

	songs, err := h.musicService.RecentlyPlayed(r.Context(), user.ID)
	if err != nil {
		h.writer.Error(w, r, err)
		return
	}
	h.writer.JSON(w, http.StatusOK, newSongsResponse(songs))
}
