package model

import (
	"context"
	"time"
)

// SongStore defines persistence operations for songs.
type SongStore interface {
	GetByID(ctx context.Context, id string) (Song, error)
	Search(ctx context.Context, query string, limit int) ([]Song, error)
	Trending(ctx context.Context, since time.Time, limit int) ([]Song, error)
	Popular(ctx context.Context, genre string, limit int) ([]Song, error)
	Create(ctx context.Context, song Song) (Song, error)
	IncrementLikes(ctx context.Context, id string, delta int) (Song, error)
	IncrementPlays(ctx context.Context, id string) error
}

// Song is song metadata served from the catalogue.
type Song struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Artist      string    `json:"artist"`
	Album       string    `json:"album,omitempty"`
	Genre       string    `json:"genre,omitempty"`
	DurationSec int       `json:"durationSec"`
	AudioKey    string    `json:"audioKey"`
	UploadedBy  string    `json:"uploadedBy,omitempty"`
	Likes       int       `json:"likes"`
	Plays       int       `json:"plays"`
	CreatedAt   time.Time `json:"createdAt"`
}

// CreateSongParams contains parameters to add a song with its audio.
type CreateSongParams struct {
	Title       string
	Artist      string
	Album       string
	Genre       string
	DurationSec int
	UploadedBy  string
	ContentType string
	Size        int64
}
