package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dtroode/beatstream-server/internal/api/http/response"
	"github.com/dtroode/beatstream-server/internal/logger"
	"github.com/dtroode/beatstream-server/internal/model"
	"github.com/dtroode/beatstream-server/internal/validation"
)

// MaxUploadBytes bounds an audio upload.
const MaxUploadBytes = 50 << 20

// MusicService defines catalogue and playback operations.
type MusicService interface {
	GetSong(ctx context.Context, id string) (model.Song, error)
	Search(ctx context.Context, query string, limit int) ([]model.Song, error)
	Trending(ctx context.Context, period string, limit int) ([]model.Song, error)
	Popular(ctx context.Context, genre string, limit int) ([]model.Song, error)
	StreamURL(ctx context.Context, userID, songID string) (string, error)
	OpenAudio(ctx context.Context, userID, songID string) (io.ReadCloser, model.Song, error)
	Like(ctx context.Context, songID string) (model.Song, error)
	Upload(ctx context.Context, params model.CreateSongParams, audio io.Reader) (model.Song, error)
	RecentlyPlayed(ctx context.Context, userID string) ([]model.Song, error)
}

// Music handles catalogue endpoints.
type Music struct {
	musicService   MusicService
	contextManager model.ContextManager
	writer         *response.Writer
	logger         *logger.Logger
}

// NewMusic creates a new Music handler.
func NewMusic(musicService MusicService, contextManager model.ContextManager, writer *response.Writer, logger *logger.Logger) *Music {
	return &Music{
		musicService:   musicService,
		contextManager: contextManager,
		writer:         writer,
		logger:         logger,
	}
}

type songsResponse struct {
	Songs []model.Song `json:"songs"`
	Count int          `json:"count"`
}

func newSongsResponse(songs []model.Song) songsResponse {
	if songs == nil {
		songs = []model.Song{}
	}
	return songsResponse{Songs: songs, Count: len(songs)}
}

type searchQuery struct {
	Query string `json:"q" validate:"required,max=100"`
	Limit int    `json:"limit" validate:"lte=100"`
}

// Search runs a full-text catalogue search.
func (h *Music) Search(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		h.writer.Error(w, r, err)
		return
	}
	q := searchQuery{Query: strings.TrimSpace(r.URL.Query().Get("q")), Limit: limit}
	if err := validation.Struct(q); err != nil {
		h.writer.Error(w, r, err)
		return
	}

	songs, err := h.musicService.Search(r.Context(), q.Query, q.Limit)
	if err != nil {
		h.writer.Error(w, r, err)
		return
	}
	h.writer.JSON(w, http.StatusOK, newSongsResponse(songs))
}

// Trending lists the most played songs of a period.
func (h *Music) Trending(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		h.writer.Error(w, r, err)
		return
	}

	songs, err := h.musicService.Trending(r.Context(), r.URL.Query().Get("period"), limit)
	if err != nil {
		h.writer.Error(w, r, err)
		return
	}
	h.writer.JSON(w, http.StatusOK, newSongsResponse(songs))
}

// Popular lists the most liked songs, optionally of one genre.
func (h *Music) Popular(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		h.writer.Error(w, r, err)
		return
	}

	songs, err := h.musicService.Popular(r.Context(), r.URL.Query().Get("genre"), limit)
	if err != nil {
		h.writer.Error(w, r, err)
		return
	}
	h.writer.JSON(w, http.StatusOK, newSongsResponse(songs))
}

// GetSong returns one song.
func (h *Music) GetSong(w http.ResponseWriter, r *http.Request) {
	song, err := h.musicService.GetSong(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writer.Error(w, r, err)
		return
	}
	h.writer.JSON(w, http.StatusOK, song)
}

type streamResponse struct {
	URL string `json:"url"`
}

// Stream returns a presigned audio URL. With direct=true the audio is
// proxied through the server instead.
func (h *Music) Stream(w http.ResponseWriter, r *http.Request) {
	user, _ := h.contextManager.GetUserFromContext(r.Context())
	songID := chi.URLParam(r, "id")

	if direct, _ := strconv.ParseBool(r.URL.Query().Get("direct")); direct {
		h.proxyAudio(w, r, user.ID, songID)
		return
	}

	url, err := h.musicService.StreamURL(r.Context(), user.ID, songID)
	if err != nil {
		h.writer.Error(w, r, err)
		return
	}
	h.writer.JSON(w, http.StatusOK, streamResponse{URL: url})
}

func (h *Music) proxyAudio(w http.ResponseWriter, r *http.Request, userID, songID string) {
	audio, _, err := h.musicService.OpenAudio(r.Context(), userID, songID)
	if err != nil {
		h.writer.Error(w, r, err)
		return
	}
	defer audio.Close()

	w.Header().Set("Content-Type", "audio/mpeg")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, audio); err != nil {
		h.logger.WarnContext(r.Context(), "Music handler: audio stream interrupted",
			"song_id", songID,
			"error", err.Error())
	}
}

// Like adds a like to a song.
func (h *Music) Like(w http.ResponseWriter, r *http.Request) {
	song, err := h.musicService.Like(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writer.Error(w, r, err)
		return
	}
	h.writer.JSON(w, http.StatusOK, song)
}

type uploadForm struct {
	Title       string `json:"title" validate:"required,max=200"`
	Artist      string `json:"artist" validate:"required,max=200"`
	Album       string `json:"album" validate:"max=200"`
	Genre       string `json:"genre" validate:"max=50"`
	DurationSec int    `json:"durationSec" validate:"gte=0"`
}

// Upload stores an audio file with its metadata from a multipart form.
func (h *Music) Upload(w http.ResponseWriter, r *http.Request) {
	user, _ := h.contextManager.GetUserFromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writer.Error(w, r, &response.Error{Status: http.StatusRequestEntityTooLarge, Message: "Audio file is too large"})
			return
		}
		h.writer.Error(w, r, validation.NewRequestError("body", "request must be multipart/form-data"))
		return
	}

	duration, err := strconv.Atoi(r.FormValue("durationSec"))
	if err != nil && r.FormValue("durationSec") != "" {
		h.writer.Error(w, r, validation.NewRequestError("durationSec", "durationSec must be an integer"))
		return
	}
	form := uploadForm{
		Title:       strings.TrimSpace(r.FormValue("title")),
		Artist:      strings.TrimSpace(r.FormValue("artist")),
		Album:       strings.TrimSpace(r.FormValue("album")),
		Genre:       strings.TrimSpace(r.FormValue("genre")),
		DurationSec: duration,
	}
	if err := validation.Struct(form); err != nil {
		h.writer.Error(w, r, err)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.writer.Error(w, r, validation.NewRequestError("file", "file is required"))
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "audio/") {
		h.writer.Error(w, r, validation.NewRequestError("file", "file must be an audio file"))
		return
	}

	song, err := h.musicService.Upload(r.Context(), model.CreateSongParams{
		Title:       form.Title,
		Artist:      form.Artist,
		Album:       form.Album,
		Genre:       form.Genre,
		DurationSec: form.DurationSec,
		UploadedBy:  user.ID,
		ContentType: contentType,
		Size:        header.Size,
	}, file)
	if err != nil {
		h.writer.Error(w, r, err)
		return
	}

	h.writer.JSON(w, http.StatusCreated, song)
}
