package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"chipstream/cache"
	"chipstream/logger"
	"chipstream/model"
)

// SongRepository defines the interface for catalog data operations.
type SongRepository interface {
	FindAll() ([]*model.Song, error)
	FindByID(id string) (*model.Song, error)
	Create(song *model.Song) error
	DeleteByID(id string) (bool, error)
}

// jsonSongRepository implements SongRepository on top of a single JSON
// document holding the whole catalog. Every read reloads the document and
// every write rewrites it in full; the mutex spans each load-modify-save so
// concurrent writers cannot lose an update. Crash atomicity is only as
// strong as the underlying file write: a partial write leaves a document
// that the tolerant read below degrades to an empty catalog.
type jsonSongRepository struct {
	path  string
	mu    sync.Mutex
	cache *cache.CatalogCache
}

// NewJSONSongRepository creates a repository persisting to path. The cache
// may be nil, in which case every read goes straight to the file.
func NewJSONSongRepository(path string, catalogCache *cache.CatalogCache) SongRepository {
	return &jsonSongRepository{path: path, cache: catalogCache}
}

// load reads the catalog document without locking. A missing file is an
// empty catalog. A document that fails to parse is also treated as empty so
// a corrupted catalog degrades to an empty library instead of taking every
// endpoint down; the damage is logged because it means songs silently
// disappear from the client's point of view.
func (r *jsonSongRepository) load() []*model.Song {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("读取歌曲库文件失败",
				logger.String("path", r.path),
				logger.ErrorField(err))
		}
		return []*model.Song{}
	}

	var songs []*model.Song
	if err := json.Unmarshal(data, &songs); err != nil {
		logger.Warn("歌曲库文件解析失败，按空库处理",
			logger.String("path", r.path),
			logger.ErrorField(err))
		return []*model.Song{}
	}
	if songs == nil {
		songs = []*model.Song{}
	}
	return songs
}

// save rewrites the whole catalog document and invalidates the cache.
// Two-space indentation keeps the file hand-inspectable.
func (r *jsonSongRepository) save(songs []*model.Song) error {
	data, err := json.MarshalIndent(songs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal catalog: %w", err)
	}
	if err := os.WriteFile(r.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write catalog %s: %w", r.path, err)
	}
	r.cache.Invalidate(context.Background())
	return nil
}

// FindAll returns the full current catalog. It never fails: a missing or
// corrupt document yields an empty slice.
func (r *jsonSongRepository) FindAll() ([]*model.Song, error) {
	ctx := context.Background()
	if songs, ok := r.cache.Get(ctx); ok {
		return songs, nil
	}

	// Set 必须与 load 在同一临界区内：写操作的 Invalidate 在锁内执行，
	// 锁外的 Set 会把写前的旧快照在失效之后重新写回缓存
	r.mu.Lock()
	defer r.mu.Unlock()
	songs := r.load()
	r.cache.Set(ctx, songs)
	return songs, nil
}

// FindByID returns the matching song or nil when the id is unknown.
func (r *jsonSongRepository) FindByID(id string) (*model.Song, error) {
	songs, err := r.FindAll()
	if err != nil {
		return nil, err
	}
	for _, song := range songs {
		if song.ID == id {
			return song, nil
		}
	}
	return nil, nil
}

// Create appends one song and persists the full updated catalog.
func (r *jsonSongRepository) Create(song *model.Song) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	songs := r.load()
	songs = append(songs, song)
	return r.save(songs)
}

// DeleteByID removes the matching song if present and reports whether a
// removal occurred.
func (r *jsonSongRepository) DeleteByID(id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	songs := r.load()
	kept := make([]*model.Song, 0, len(songs))
	for _, song := range songs {
		if song.ID != id {
			kept = append(kept, song)
		}
	}
	if len(kept) == len(songs) {
		return false, nil
	}
	if err := r.save(kept); err != nil {
		return false, err
	}
	return true, nil
}
