package cache

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dtroode/beatstream-server/internal/model"
)

// Aggregates are the namespaces whose entries list many songs.
var Aggregates = []Namespace{NamespaceTrending, NamespacePopular, NamespaceSearch}

// SongCache caches song metadata by id.
type SongCache struct {
	svc *Service
}

// NewSongCache creates a SongCache.
func NewSongCache(svc *Service) *SongCache {
	return &SongCache{svc: svc}
}

func (c *SongCache) key(id string) string {
	return Key(NamespaceSong, id)
}

// Get returns the cached song.
func (c *SongCache) Get(ctx context.Context, id string) (model.Song, bool) {
	var song model.Song
	ok := c.svc.Get(ctx, c.key(id), &song)
	return song, ok
}

// Set caches song for the song namespace TTL.
func (c *SongCache) Set(ctx context.Context, song model.Song) error {
	return c.svc.Set(ctx, c.key(song.ID), song, NamespaceSong.TTL())
}

// Fetch returns the cached song or loads and caches it.
func (c *SongCache) Fetch(ctx context.Context, id string, load func(ctx context.Context) (model.Song, error)) (model.Song, error) {
	return Fetch(ctx, c.svc, c.key(id), NamespaceSong.TTL(), load)
}

// Invalidate drops the song's keys and every aggregate view.
func (c *SongCache) Invalidate(ctx context.Context, id string) int64 {
	return c.svc.InvalidateEntity(ctx, NamespaceSong, id, Aggregates...)
}

// SearchCache caches search results by normalized query.
type SearchCache struct {
	svc *Service
}

// NewSearchCache creates a SearchCache.
func NewSearchCache(svc *Service) *SearchCache {
	return &SearchCache{svc: svc}
}

// SearchKey builds the key of one search result page.
func SearchKey(query string, limit int) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(query)), "+")
	return Key(NamespaceSearch, normalized, strconv.Itoa(limit))
}

// Fetch returns cached results for query or loads and caches them.
func (c *SearchCache) Fetch(ctx context.Context, query string, limit int, load func(ctx context.Context) ([]model.Song, error)) ([]model.Song, error) {
	return Fetch(ctx, c.svc, SearchKey(query, limit), NamespaceSearch.TTL(), load)
}

// TrendingCache caches the trending chart per period.
type TrendingCache struct {
	svc *Service
}

// NewTrendingCache creates a TrendingCache.
func NewTrendingCache(svc *Service) *TrendingCache {
	return &TrendingCache{svc: svc}
}

// Fetch returns the cached chart or loads and caches it.
func (c *TrendingCache) Fetch(ctx context.Context, period string, limit int, load func(ctx context.Context) ([]model.Song, error)) ([]model.Song, error) {
	return Fetch(ctx, c.svc, Key(NamespaceTrending, period, strconv.Itoa(limit)), NamespaceTrending.TTL(), load)
}

// PopularCache caches the most liked songs per genre.
type PopularCache struct {
	svc *Service
}

// NewPopularCache creates a PopularCache.
func NewPopularCache(svc *Service) *PopularCache {
	return &PopularCache{svc: svc}
}

// Fetch returns the cached list or loads and caches it. An empty genre means all genres.
func (c *PopularCache) Fetch(ctx context.Context, genre string, limit int, load func(ctx context.Context) ([]model.Song, error)) ([]model.Song, error) {
	if genre == "" {
		genre = "all"
	}
	return Fetch(ctx, c.svc, Key(NamespacePopular, strings.ToLower(genre), strconv.Itoa(limit)), NamespacePopular.TTL(), load)
}

// Session is the server-side record of a login.
type Session struct {
	UserID     string    `json:"userId"`
	RememberMe bool      `json:"rememberMe"`
	IP         string    `json:"ip,omitempty"`
	UserAgent  string    `json:"userAgent,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// SessionCache keeps the latest session per user.
type SessionCache struct {
	svc *Service
}

// NewSessionCache creates a SessionCache.
func NewSessionCache(svc *Service) *SessionCache {
	return &SessionCache{svc: svc}
}

// Get returns the user's session.
func (c *SessionCache) Get(ctx context.Context, userID string) (Session, bool) {
	var s Session
	ok := c.svc.Get(ctx, Key(NamespaceSession, userID), &s)
	return s, ok
}

// Set stores the user's session for the session namespace TTL.
func (c *SessionCache) Set(ctx context.Context, s Session) error {
	return c.svc.Set(ctx, Key(NamespaceSession, s.UserID), s, NamespaceSession.TTL())
}

// Delete drops the user's session.
func (c *SessionCache) Delete(ctx context.Context, userID string) {
	c.svc.Del(ctx, Key(NamespaceSession, userID))
}

// RecentlyPlayedLimit bounds the recently played list.
const RecentlyPlayedLimit = 50

// RecentlyPlayedCache keeps the ids of the songs a user played last, newest first.
type RecentlyPlayedCache struct {
	svc *Service
}

// NewRecentlyPlayedCache creates a RecentlyPlayedCache.
func NewRecentlyPlayedCache(svc *Service) *RecentlyPlayedCache {
	return &RecentlyPlayedCache{svc: svc}
}

// List returns the user's recently played song ids.
func (c *RecentlyPlayedCache) List(ctx context.Context, userID string) []string {
	var ids []string
	c.svc.Get(ctx, Key(NamespaceRecentlyPlayed, userID), &ids)
	return ids
}

// Add moves songID to the front of the user's list. Concurrent adds are last-write-wins.
func (c *RecentlyPlayedCache) Add(ctx context.Context, userID, songID string) error {
	ids := c.List(ctx, userID)

	next := make([]string, 0, len(ids)+1)
	next = append(next, songID)
	for _, id := range ids {
		if id != songID {
			next = append(next, id)
		}
	}
	if len(next) > RecentlyPlayedLimit {
		next = next[:RecentlyPlayedLimit]
	}

	return c.svc.Set(ctx, Key(NamespaceRecentlyPlayed, userID), next, NamespaceRecentlyPlayed.TTL())
}

// ObjectExistsTTL is how long an object storage existence check is trusted.
const ObjectExistsTTL = time.Hour

// ObjectExistsCache caches object storage existence checks.
type ObjectExistsCache struct {
	svc     *Service
	storage model.ObjectStorage
}

// NewObjectExistsCache creates an ObjectExistsCache over storage.
func NewObjectExistsCache(svc *Service, storage model.ObjectStorage) *ObjectExistsCache {
	return &ObjectExistsCache{svc: svc, storage: storage}
}

func objectExistsKey(objectKey string) string {
	return Key(NamespaceSong, "object", objectKey, "exists")
}

// Exists reports whether the object is in storage, asking storage on a miss.
func (c *ObjectExistsCache) Exists(ctx context.Context, objectKey string) (bool, error) {
	exists, err := Fetch(ctx, c.svc, objectExistsKey(objectKey), ObjectExistsTTL, func(ctx context.Context) (bool, error) {
		return c.storage.Exists(ctx, objectKey)
	})
	if err != nil {
		return false, fmt.Errorf("failed to check object %s: %w", objectKey, err)
	}
	return exists, nil
}

// MarkExists records a freshly uploaded object.
func (c *ObjectExistsCache) MarkExists(ctx context.Context, objectKey string) error {
	return c.svc.Set(ctx, objectExistsKey(objectKey), true, ObjectExistsTTL)
}
