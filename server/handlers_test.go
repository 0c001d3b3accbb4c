package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"chipstream/config"
	"chipstream/core/stream"
	"chipstream/model"
	"chipstream/repository"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*mux.Router, *config.Config) {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		UploadDir:            filepath.Join(dir, "uploads"),
		CatalogPath:          filepath.Join(dir, "songs.json"),
		WebAppDir:            dir,
		ChunkSize:            stream.DefaultChunkSize,
		MaxUploadSize:        10 << 20,
		MaxConcurrentUploads: 2,
	}
	require.NoError(t, os.MkdirAll(cfg.UploadDir, 0755))

	repo := repository.NewJSONSongRepository(cfg.CatalogPath, nil)
	h := NewAPIHandler(repo, stream.NewEngine(cfg.ChunkSize), cfg)
	return h.Router(), cfg
}

type uploadResponse struct {
	OK   bool       `json:"ok"`
	Song model.Song `json:"song"`
}

func doUpload(t *testing.T, router *mux.Router, title, artist, comment, filename string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("title", title))
	require.NoError(t, mw.WriteField("artist", artist))
	require.NoError(t, mw.WriteField("comment", comment))
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func mustUpload(t *testing.T, router *mux.Router, title, artist, filename string, data []byte) model.Song {
	t.Helper()
	rec := doUpload(t, router, title, artist, "", filename, data)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp uploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.OK)
	return resp.Song
}

func listSongs(t *testing.T, router *mux.Router, query string) []model.Song {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/songs"+query, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var songs []model.Song
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &songs))
	return songs
}

func TestUploadRoundTrip(t *testing.T) {
	router, cfg := newTestServer(t)
	data := []byte("not really mp3 but close enough")

	rec := doUpload(t, router, "Chip Tune", "8bit Hero", "bleeps", "song.mp3", data)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp uploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.OK)
	assert.NotEmpty(t, resp.Song.ID)
	assert.Equal(t, "Chip Tune", resp.Song.Title)
	assert.Equal(t, "8bit Hero", resp.Song.Artist)
	assert.Equal(t, "bleeps", resp.Song.Comment)
	assert.Equal(t, ".mp3", resp.Song.Ext)
	assert.Equal(t, int64(len(data)), resp.Song.Size)
	assert.Equal(t, resp.Song.ID+".mp3", resp.Song.Filename)

	// The backing file must exist under the upload directory.
	saved, err := os.ReadFile(filepath.Join(cfg.UploadDir, resp.Song.Filename))
	require.NoError(t, err)
	assert.Equal(t, data, saved)

	songs := listSongs(t, router, "")
	require.Len(t, songs, 1)
	assert.Equal(t, resp.Song.ID, songs[0].ID)
	assert.Equal(t, int64(len(data)), songs[0].Size)
}

func TestUploadDefaultsEmptyMetadata(t *testing.T) {
	router, _ := newTestServer(t)

	song := mustUpload(t, router, "", "", "song.ogg", []byte("x"))
	assert.Equal(t, model.DefaultTitle, song.Title)
	assert.Equal(t, model.DefaultArtist, song.Artist)
}

func TestUploadRejectsNonMultipart(t *testing.T) {
	router, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/upload", bytes.NewBufferString(`{}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Expected multipart/form-data")
}

func TestUploadRejectsMissingBoundary(t *testing.T) {
	router, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/upload", bytes.NewBufferString("x"))
	req.Header.Set("Content-Type", "multipart/form-data")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadRejectsMissingFile(t *testing.T) {
	router, _ := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("title", "no file"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "No file uploaded")
}

func TestUploadRejectsDisallowedExtension(t *testing.T) {
	router, _ := newTestServer(t)

	rec := doUpload(t, router, "t", "a", "", "notes.txt", []byte("x"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Unsupported format: .txt")
}

func TestSearchCaseInsensitive(t *testing.T) {
	router, _ := newTestServer(t)
	mustUpload(t, router, "Chip Tune", "A", "a.mp3", []byte("1"))
	mustUpload(t, router, "Other", "B", "b.mp3", []byte("2"))

	songs := listSongs(t, router, "?q=chip")
	require.Len(t, songs, 1)
	assert.Equal(t, "Chip Tune", songs[0].Title)

	// Artist matches too.
	songs = listSongs(t, router, "?q=b")
	require.Len(t, songs, 1)
	assert.Equal(t, "Other", songs[0].Title)

	assert.Len(t, listSongs(t, router, "?q=zzz"), 0)
	assert.Len(t, listSongs(t, router, ""), 2)
}

func TestRandomEmptyCatalog(t *testing.T) {
	router, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/random", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error": "No songs available"}`, rec.Body.String())
}

func TestRandomExcludes(t *testing.T) {
	router, _ := newTestServer(t)
	first := mustUpload(t, router, "First", "A", "a.mp3", []byte("1"))
	second := mustUpload(t, router, "Second", "B", "b.mp3", []byte("2"))

	// With one song excluded the other must always come back.
	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/random?exclude="+first.ID, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		var song model.Song
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &song))
		assert.Equal(t, second.ID, song.ID)
	}
}

func TestRandomExclusionFallsBackToFullPool(t *testing.T) {
	router, _ := newTestServer(t)
	only := mustUpload(t, router, "Only", "A", "a.mp3", []byte("1"))

	req := httptest.NewRequest(http.MethodGet, "/api/random?exclude="+only.ID, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var song model.Song
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &song))
	assert.Equal(t, only.ID, song.ID)
}

func TestDeleteIdempotent(t *testing.T) {
	router, cfg := newTestServer(t)
	song := mustUpload(t, router, "Doomed", "A", "a.mp3", []byte("1"))
	filePath := filepath.Join(cfg.UploadDir, song.Filename)

	req := httptest.NewRequest(http.MethodDelete, "/api/songs/"+song.ID, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok": true}`, rec.Body.String())

	// Backing file removed along with the catalog entry.
	_, err := os.Stat(filePath)
	assert.True(t, os.IsNotExist(err))
	assert.Len(t, listSongs(t, router, ""), 0)

	// Second delete of the same id fails cleanly.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/songs/"+song.ID, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error": "Not found"}`, rec.Body.String())
}

func TestDeleteUnknownLeavesCatalogUntouched(t *testing.T) {
	router, _ := newTestServer(t)
	mustUpload(t, router, "Keeper", "A", "a.mp3", []byte("1"))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/songs/does-not-exist", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Len(t, listSongs(t, router, ""), 1)
}

func TestOptionsPreflight(t *testing.T) {
	router, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/upload", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "DELETE")
}
