package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dtroode/beatstream-server/internal/model"
)

var _ model.SongStore = (*SongRepository)(nil)

type songDocument struct {
	ID           string     `bson:"_id"`
	Title        string     `bson:"title"`
	Artist       string     `bson:"artist"`
	Album        string     `bson:"album,omitempty"`
	Genre        string     `bson:"genre,omitempty"`
	DurationSec  int        `bson:"durationSec"`
	AudioKey     string     `bson:"audioKey"`
	UploadedBy   string     `bson:"uploadedBy,omitempty"`
	Likes        int        `bson:"likes"`
	Plays        int        `bson:"plays"`
	LastPlayedAt *time.Time `bson:"lastPlayedAt,omitempty"`
	CreatedAt    time.Time  `bson:"createdAt"`
}

func (d songDocument) toModel() model.Song {
	return model.Song{
		ID:          d.ID,
		Title:       d.Title,
		Artist:      d.Artist,
		Album:       d.Album,
		Genre:       d.Genre,
		DurationSec: d.DurationSec,
		AudioKey:    d.AudioKey,
		UploadedBy:  d.UploadedBy,
		Likes:       d.Likes,
		Plays:       d.Plays,
		CreatedAt:   d.CreatedAt,
	}
}

type SongRepository struct {
	col *mongo.Collection
	now func() time.Time
}

func NewSongRepository(db *Connection) *SongRepository {
	return &SongRepository{
		col: db.db.Collection(songsCollection),
		now: time.Now,
	}
}

func (r *SongRepository) GetByID(ctx context.Context, id string) (model.Song, error) {
	var doc songDocument
	err := r.col.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.Song{}, model.ErrNotFound
	}
	if err != nil {
		return model.Song{}, fmt.Errorf("failed to get song by id: %w", err)
	}
	return doc.toModel(), nil
}

// Search runs a full-text query over title, artist and album, best match first.
func (r *SongRepository) Search(ctx context.Context, query string, limit int) ([]model.Song, error) {
	score := bson.D{{Key: "score", Value: bson.D{{Key: "$meta", Value: "textScore"}}}}
	opts := options.Find().
		SetProjection(score).
		SetSort(score).
		SetLimit(int64(limit))

	songs, err := r.find(ctx, bson.D{{Key: "$text", Value: bson.D{{Key: "$search", Value: query}}}}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to search songs: %w", err)
	}
	return songs, nil
}

// Trending lists songs played since the given time, most played first.
func (r *SongRepository) Trending(ctx context.Context, since time.Time, limit int) ([]model.Song, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "plays", Value: -1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(limit))

	songs, err := r.find(ctx, bson.D{{Key: "lastPlayedAt", Value: bson.D{{Key: "$gte", Value: since}}}}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to get trending songs: %w", err)
	}
	return songs, nil
}

// Popular lists the most liked songs, optionally within one genre.
func (r *SongRepository) Popular(ctx context.Context, genre string, limit int) ([]model.Song, error) {
	filter := bson.D{}
	if genre = strings.ToLower(strings.TrimSpace(genre)); genre != "" && genre != "all" {
		filter = bson.D{{Key: "genre", Value: genre}}
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "likes", Value: -1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(limit))

	songs, err := r.find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to get popular songs: %w", err)
	}
	return songs, nil
}

func (r *SongRepository) Create(ctx context.Context, song model.Song) (model.Song, error) {
	if song.ID == "" {
		song.ID = uuid.NewString()
	}
	if song.CreatedAt.IsZero() {
		song.CreatedAt = r.now()
	}
	song.Genre = strings.ToLower(song.Genre)

	_, err := r.col.InsertOne(ctx, songDocument{
		ID:          song.ID,
		Title:       song.Title,
		Artist:      song.Artist,
		Album:       song.Album,
		Genre:       song.Genre,
		DurationSec: song.DurationSec,
		AudioKey:    song.AudioKey,
		UploadedBy:  song.UploadedBy,
		Likes:       song.Likes,
		Plays:       song.Plays,
		CreatedAt:   song.CreatedAt,
	})
	if mongo.IsDuplicateKeyError(err) {
		return model.Song{}, model.ErrAlreadyExists
	}
	if err != nil {
		return model.Song{}, fmt.Errorf("failed to create song: %w", err)
	}

	return song, nil
}

func (r *SongRepository) IncrementLikes(ctx context.Context, id string, delta int) (model.Song, error) {
	var doc songDocument
	err := r.col.FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: id}},
		bson.D{{Key: "$inc", Value: bson.D{{Key: "likes", Value: delta}}}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.Song{}, model.ErrNotFound
	}
	if err != nil {
		return model.Song{}, fmt.Errorf("failed to increment likes: %w", err)
	}
	return doc.toModel(), nil
}

func (r *SongRepository) IncrementPlays(ctx context.Context, id string) error {
	res, err := r.col.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: id}},
		bson.D{
			{Key: "$inc", Value: bson.D{{Key: "plays", Value: 1}}},
			{Key: "$set", Value: bson.D{{Key: "lastPlayedAt", Value: r.now()}}},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to increment plays: %w", err)
	}
	if res.MatchedCount == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (r *SongRepository) find(ctx context.Context, filter bson.D, opts *options.FindOptions) ([]model.Song, error) {
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}

	var docs []songDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}

	songs := make([]model.Song, 0, len(docs))
	for _, d := range docs {
		songs = append(songs, d.toModel())
	}
	return songs, nil
}
