package handler

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	httpctx "github.com/dtroode/beatstream-server/internal/api/http/context"
	"github.com/dtroode/beatstream-server/internal/api/http/response"
	"github.com/dtroode/beatstream-server/internal/model"
	"github.com/dtroode/beatstream-server/internal/testutil"
)

type musicServiceMock struct {
	mock.Mock
}

func (m *musicServiceMock) GetSong(ctx context.Context, id string) (model.Song, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.Song), args.Error(1)
}

func (m *musicServiceMock) Search(ctx context.Context, query string, limit int) ([]model.Song, error) {
	args := m.Called(ctx, query, limit)
	return args.Get(0).([]model.Song), args.Error(1)
}

func (m *musicServiceMock) Trending(ctx context.Context, period string, limit int) ([]model.Song, error) {
	args := m.Called(ctx, period, limit)
	return args.Get(0).([]model.Song), args.Error(1)
}

func (m *musicServiceMock) Popular(ctx context.Context, genre string, limit int) ([]model.Song, error) {
	args := m.Called(ctx, genre, limit)
	return args.Get(0).([]model.Song), args.Error(1)
}

func (m *musicServiceMock) StreamURL(ctx context.Context, userID, songID string) (string, error) {
	args := m.Called(ctx, userID, songID)
	return args.String(0), args.Error(1)
}

func (m *musicServiceMock) OpenAudio(ctx context.Context, userID, songID string) (io.ReadCloser, model.Song, error) {
	args := m.Called(ctx, userID, songID)
	var rc io.ReadCloser
	if args.Get(0) != nil {
		rc = args.Get(0).(io.ReadCloser)
	}
	return rc, args.Get(1).(model.Song), args.Error(2)
}

func (m *musicServiceMock) Like(ctx context.Context, songID string) (model.Song, error) {
	args := m.Called(ctx, songID)
	return args.Get(0).(model.Song), args.Error(1)
}

func (m *musicServiceMock) Upload(ctx context.Context, params model.CreateSongParams, audio io.Reader) (model.Song, error) {
	args := m.Called(ctx, params, audio)
	return args.Get(0).(model.Song), args.Error(1)
}

func (m *musicServiceMock) RecentlyPlayed(ctx context.Context, userID string) ([]model.Song, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]model.Song), args.Error(1)
}

type uploadPart struct {
	fields      map[string]string
	fileType    string
	fileContent string
}

func newUploadRequest(t *testing.T, part uploadPart) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range part.fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if part.fileType != "" {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="file"; filename="track"`)
		h.Set("Content-Type", part.fileType)
		w, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = io.WriteString(w, part.fileContent)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/music/songs", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	cm := httpctx.NewManager()
	return req.WithContext(cm.SetUserToContext(req.Context(), model.User{ID: "u1", IsEmailVerified: true}, "token"))
}

func withURLParam(ctx context.Context, key, value string) context.Context {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return context.WithValue(ctx, chi.RouteCtxKey, rctx)
}

func newMusicHandler(svc MusicService) *Music {
	log := testutil.MakeNoopLogger()
	return NewMusic(svc, httpctx.NewManager(), response.NewWriter(log, true), log)
}

func TestMusic_Upload(t *testing.T) {
	validFields := map[string]string{"title": "Teardrop", "artist": "Massive Attack", "durationSec": "330"}

	tests := []struct {
		name       string
		part       uploadPart
		setup      func(m *musicServiceMock)
		wantStatus int
		wantField  string
	}{
		{
			name: "stores audio with metadata",
			part: uploadPart{fields: validFields, fileType: "audio/mpeg", fileContent: "ID3"},
			setup: func(m *musicServiceMock) {
				m.On("Upload", mock.Anything, mock.MatchedBy(func(p model.CreateSongParams) bool {
					return p.Title == "Teardrop" && p.UploadedBy == "u1" && p.DurationSec == 330 &&
						p.ContentType == "audio/mpeg" && p.Size == 3
				}), mock.Anything).Return(model.Song{ID: "s1", Title: "Teardrop"}, nil)
			},
			wantStatus: http.StatusCreated,
		},
		{
			name:       "missing title",
			part:       uploadPart{fields: map[string]string{"artist": "Massive Attack"}, fileType: "audio/mpeg", fileContent: "ID3"},
			wantStatus: http.StatusBadRequest,
			wantField:  "title",
		},
		{
			name:       "duration is not a number",
			part:       uploadPart{fields: map[string]string{"title": "a", "artist": "b", "durationSec": "long"}, fileType: "audio/mpeg"},
			wantStatus: http.StatusBadRequest,
			wantField:  "durationSec",
		},
		{
			name:       "missing file",
			part:       uploadPart{fields: validFields},
			wantStatus: http.StatusBadRequest,
			wantField:  "file",
		},
		{
			name:       "not audio",
			part:       uploadPart{fields: validFields, fileType: "image/png", fileContent: "PNG"},
			wantStatus: http.StatusBadRequest,
			wantField:  "file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &musicServiceMock{}
			if tt.setup != nil {
				tt.setup(svc)
			}
			rec := httptest.NewRecorder()

			newMusicHandler(svc).Upload(rec, newUploadRequest(t, tt.part))

			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.wantField != "" {
				assert.Contains(t, rec.Body.String(), `"field":"`+tt.wantField+`"`)
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestMusic_Upload_NotMultipart(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/music/songs", strings.NewReader(`{"title":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	newMusicHandler(&musicServiceMock{}).Upload(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMusic_Search(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		setup      func(m *musicServiceMock)
		wantStatus int
		wantCount  int
	}{
		{
			name:  "trims query",
			query: "?q=%20roads%20&limit=5",
			setup: func(m *musicServiceMock) {
				m.On("Search", mock.Anything, "roads", 5).Return([]model.Song{{ID: "s1"}, {ID: "s2"}}, nil)
			},
			wantStatus: http.StatusOK,
			wantCount:  2,
		},
		{
			name:  "no results is an empty list",
			query: "?q=nothing",
			setup: func(m *musicServiceMock) {
				m.On("Search", mock.Anything, "nothing", 0).Return([]model.Song(nil), nil)
			},
			wantStatus: http.StatusOK,
		},
		{name: "blank query", query: "?q=%20%20", wantStatus: http.StatusBadRequest},
		{name: "limit over maximum", query: "?q=a&limit=101", wantStatus: http.StatusBadRequest},
		{name: "negative limit", query: "?q=a&limit=-1", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &musicServiceMock{}
			if tt.setup != nil {
				tt.setup(svc)
			}
			rec := httptest.NewRecorder()

			newMusicHandler(svc).Search(rec, httptest.NewRequest(http.MethodGet, "/api/music/search"+tt.query, nil))

			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.wantStatus == http.StatusOK {
				var body songsResponse
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
				assert.Equal(t, tt.wantCount, body.Count)
				assert.NotNil(t, body.Songs)
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestMusic_StreamDirect(t *testing.T) {
	svc := &musicServiceMock{}
	svc.On("OpenAudio", mock.Anything, "", "s1").Return(io.NopCloser(strings.NewReader("audio-bytes")), model.Song{ID: "s1"}, nil)
	rec := httptest.NewRecorder()

	newMusicHandler(svc).Stream(rec, httptest.NewRequest(http.MethodGet, "/api/music/songs/s1/stream?direct=true", nil).
		WithContext(withURLParam(context.Background(), "id", "s1")))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "audio/mpeg", rec.Header().Get("Content-Type"))
	assert.Equal(t, "audio-bytes", rec.Body.String())
}
