package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/beatstream-server/internal/cache"
	"github.com/dtroode/beatstream-server/internal/logger"
	"github.com/dtroode/beatstream-server/internal/model"
)

// Listing bounds.
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// ErrAudioMissing is returned when a song's audio object is not in storage.
var ErrAudioMissing = fmt.Errorf("audio object missing: %w", model.ErrNotFound)

// TrendingPeriods maps a trending period name to its lookback.
var TrendingPeriods = map[string]time.Duration{
	"day":   24 * time.Hour,
	"week":  7 * 24 * time.Hour,
	"month": 30 * 24 * time.Hour,
}

// Caches groups the cache facades the music service reads through.
type Caches struct {
	Songs          *cache.SongCache
	Search         *cache.SearchCache
	Trending       *cache.TrendingCache
	Popular        *cache.PopularCache
	RecentlyPlayed *cache.RecentlyPlayedCache
	Objects        *cache.ObjectExistsCache
}

// NewCaches builds every facade over one cache service.
func NewCaches(svc *cache.Service, storage model.ObjectStorage) Caches {
	return Caches{
		Songs:          cache.NewSongCache(svc),
		Search:         cache.NewSearchCache(svc),
		Trending:       cache.NewTrendingCache(svc),
		Popular:        cache.NewPopularCache(svc),
		RecentlyPlayed: cache.NewRecentlyPlayedCache(svc),
		Objects:        cache.NewObjectExistsCache(svc, storage),
	}
}

type Music struct {
	songs      model.SongStore
	storage    model.ObjectStorage
	caches     Caches
	presignTTL time.Duration
	logger     *logger.Logger
	now        func() time.Time
}

func NewMusic(
	songs model.SongStore,
	storage model.ObjectStorage,
	caches Caches,
	presignTTL time.Duration,
	logger *logger.Logger,
) *Music {
	return &Music{
		songs:      songs,
		storage:    storage,
		caches:     caches,
		presignTTL: presignTTL,
		logger:     logger,
		now:        time.Now,
	}
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return min(limit, MaxListLimit)
}

func (s *Music) GetSong(ctx context.Context, id string) (model.Song, error) {
	song, err := s.caches.Songs.Fetch(ctx, id, func(ctx context.Context) (model.Song, error) {
		return s.songs.GetByID(ctx, id)
	})
	if err != nil {
		return model.Song{}, fmt.Errorf("failed to get song %s: %w", id, err)
	}
	return song, nil
}

func (s *Music) Search(ctx context.Context, query string, limit int) ([]model.Song, error) {
	limit = clampLimit(limit)
	songs, err := s.caches.Search.Fetch(ctx, query, limit, func(ctx context.Context) ([]model.Song, error) {
		return s.songs.Search(ctx, query, limit)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search songs: %w", err)
	}
	return songs, nil
}

// Trending lists the most played recent songs. Unknown periods fall back to "week".
func (s *Music) Trending(ctx context.Context, period string, limit int) ([]model.Song, error) {
	lookback, ok := TrendingPeriods[period]
	if !ok {
		period, lookback = "week", TrendingPeriods["week"]
	}
	limit = clampLimit(limit)

	songs, err := s.caches.Trending.Fetch(ctx, period, limit, func(ctx context.Context) ([]model.Song, error) {
		return s.songs.Trending(ctx, s.now().Add(-lookback), limit)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get trending songs: %w", err)
	}
	return songs, nil
}

func (s *Music) Popular(ctx context.Context, genre string, limit int) ([]model.Song, error) {
	limit = clampLimit(limit)
	songs, err := s.caches.Popular.Fetch(ctx, genre, limit, func(ctx context.Context) ([]model.Song, error) {
		return s.songs.Popular(ctx, genre, limit)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get popular songs: %w", err)
	}
	return songs, nil
}

// StreamURL returns a presigned URL for the song's audio and records the play.
// userID may be empty for anonymous listeners.
func (s *Music) StreamURL(ctx context.Context, userID, songID string) (string, error) {
	song, err := s.GetSong(ctx, songID)
	if err != nil {
		return "", err
	}

	exists, err := s.caches.Objects.Exists(ctx, song.AudioKey)
	if err != nil {
		return "", err
	}
	if !exists {
		s.logger.WarnContext(ctx, "Music service: audio object missing", "song_id", songID, "audio_key", song.AudioKey)
		return "", ErrAudioMissing
	}

	url, err := s.storage.PresignedURL(ctx, song.AudioKey, s.presignTTL)
	if err != nil {
		return "", fmt.Errorf("failed to presign audio url: %w", err)
	}

	s.recordPlay(ctx, userID, songID)
	return url, nil
}

// OpenAudio streams the song's audio through the server.
func (s *Music) OpenAudio(ctx context.Context, userID, songID string) (io.ReadCloser, model.Song, error) {
	song, err := s.GetSong(ctx, songID)
	if err != nil {
		return nil, model.Song{}, err
	}

	reader, err := s.storage.Download(ctx, song.AudioKey)
	if errors.Is(err, model.ErrNotFound) {
		return nil, model.Song{}, ErrAudioMissing
	}
	if err != nil {
		return nil, model.Song{}, fmt.Errorf("failed to download from storage: %w", err)
	}

	s.recordPlay(ctx, userID, songID)
	return reader, song, nil
}

// Play counts feed trending, which tolerates staleness up to its TTL, so
// plays do not invalidate the caches.
func (s *Music) recordPlay(ctx context.Context, userID, songID string) {
	if err := s.songs.IncrementPlays(ctx, songID); err != nil {
		s.logger.ErrorContext(ctx, "Music service: failed to count play", "song_id", songID, "error", err.Error())
	}
	if userID != "" {
		_ = s.caches.RecentlyPlayed.Add(ctx, userID, songID)
	}
}

// Like increments the song's likes and invalidates its cached views.
func (s *Music) Like(ctx context.Context, songID string) (model.Song, error) {
	song, err := s.songs.IncrementLikes(ctx, songID, 1)
	if err != nil {
		return model.Song{}, fmt.Errorf("failed to like song %s: %w", songID, err)
	}

	deleted := s.caches.Songs.Invalidate(ctx, songID)
	s.logger.DebugContext(ctx, "Music service: song liked", "song_id", songID, "invalidated", deleted)
	return song, nil
}

// Upload stores the audio object, then the song metadata. If the metadata
// cannot be saved, the object is removed again.
func (s *Music) Upload(ctx context.Context, params model.CreateSongParams, audio io.Reader) (model.Song, error) {
	audioKey := s.generateAudioKey(params.UploadedBy)

	if err := s.storage.Upload(ctx, audioKey, audio, params.Size, params.ContentType); err != nil {
		return model.Song{}, fmt.Errorf("failed to upload to storage: %w", err)
	}
	_ = s.caches.Objects.MarkExists(ctx, audioKey)

	song, err := s.songs.Create(ctx, model.Song{
		Title:       params.Title,
		Artist:      params.Artist,
		Album:       params.Album,
		Genre:       params.Genre,
		DurationSec: params.DurationSec,
		AudioKey:    audioKey,
		UploadedBy:  params.UploadedBy,
		CreatedAt:   s.now(),
	})
	if err != nil {
		if err := s.storage.Delete(ctx, audioKey); err != nil {
			s.logger.ErrorContext(ctx, "Music service: failed to delete orphaned audio", "audio_key", audioKey, "error", err.Error())
		}
		return model.Song{}, fmt.Errorf("failed to create song: %w", err)
	}

	s.caches.Songs.Invalidate(ctx, song.ID)

	s.logger.InfoContext(ctx, "Music service: song uploaded",
		"song_id", song.ID,
		"uploaded_by", params.UploadedBy,
		"audio_key", audioKey,
		"size", params.Size)

	return song, nil
}

// RecentlyPlayed resolves the user's recently played ids, skipping songs that
// no longer exist.
func (s *Music) RecentlyPlayed(ctx context.Context, userID string) ([]model.Song, error) {
	ids := s.caches.RecentlyPlayed.List(ctx, userID)

	songs := make([]model.Song, 0, len(ids))
	for _, id := range ids {
		song, err := s.GetSong(ctx, id)
		if errors.Is(err, model.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		songs = append(songs, song)
	}
	return songs, nil
}

func (s *Music) generateAudioKey(userID string) string {
	return fmt.Sprintf("audio/user-%s/song-%s", userID, uuid.NewString())
}
