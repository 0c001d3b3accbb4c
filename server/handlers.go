package server

import (
	"encoding/json"
	"math/rand"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"chipstream/config"
	"chipstream/core/stream"
	"chipstream/logger"
	"chipstream/model"
	"chipstream/repository"

	"github.com/gorilla/mux"
)

// APIHandler 处理所有API请求
type APIHandler struct {
	songRepo  repository.SongRepository
	engine    *stream.Engine
	cfg       *config.Config
	uploadSem chan struct{}
}

// NewAPIHandler 创建新的API处理器
func NewAPIHandler(songRepo repository.SongRepository, engine *stream.Engine, cfg *config.Config) *APIHandler {
	maxUploads := cfg.MaxConcurrentUploads
	if maxUploads <= 0 {
		maxUploads = 1
	}
	return &APIHandler{
		songRepo:  songRepo,
		engine:    engine,
		cfg:       cfg,
		uploadSem: make(chan struct{}, maxUploads),
	}
}

// respondJSON 写入JSON响应体
func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("写入响应失败", logger.ErrorField(err))
	}
}

// respondError 写入JSON错误响应体
func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

// ListSongsHandler 返回歌曲列表，支持按标题/艺术家的大小写不敏感子串搜索
// GET /api/songs?q=<substr>
func (h *APIHandler) ListSongsHandler(w http.ResponseWriter, r *http.Request) {
	songs, err := h.songRepo.FindAll()
	if err != nil {
		logger.Error("获取歌曲列表失败", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Failed to load catalog")
		return
	}

	q := strings.ToLower(r.URL.Query().Get("q"))
	if q != "" {
		filtered := make([]*model.Song, 0, len(songs))
		for _, song := range songs {
			if strings.Contains(strings.ToLower(song.Title), q) ||
				strings.Contains(strings.ToLower(song.Artist), q) {
				filtered = append(filtered, song)
			}
		}
		songs = filtered
	}
	if songs == nil {
		songs = []*model.Song{}
	}

	respondJSON(w, http.StatusOK, songs)
}

// RandomSongHandler 从歌曲库中均匀随机挑选一首歌
// GET /api/random?exclude=<id>
func (h *APIHandler) RandomSongHandler(w http.ResponseWriter, r *http.Request) {
	songs, err := h.songRepo.FindAll()
	if err != nil {
		logger.Error("获取歌曲列表失败", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Failed to load catalog")
		return
	}
	if len(songs) == 0 {
		respondError(w, http.StatusNotFound, "No songs available")
		return
	}

	exclude := r.URL.Query().Get("exclude")
	pool := make([]*model.Song, 0, len(songs))
	for _, song := range songs {
		if song.ID != exclude {
			pool = append(pool, song)
		}
	}
	// 排除后池子为空时退回完整歌曲库，保证单曲循环也能继续播放
	if len(pool) == 0 {
		pool = songs
	}

	respondJSON(w, http.StatusOK, pool[rand.Intn(len(pool))])
}

// DeleteSongHandler 删除歌曲记录及其文件
// DELETE /api/songs/{id}
func (h *APIHandler) DeleteSongHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	song, err := h.songRepo.FindByID(id)
	if err != nil {
		logger.Error("查找歌曲失败", logger.String("id", id), logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Failed to load catalog")
		return
	}
	if song == nil {
		respondError(w, http.StatusNotFound, "Not found")
		return
	}

	removed, err := h.songRepo.DeleteByID(id)
	if err != nil {
		logger.Error("删除歌曲记录失败", logger.String("id", id), logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Failed to update catalog")
		return
	}
	if !removed {
		respondError(w, http.StatusNotFound, "Not found")
		return
	}

	// 文件清理是尽力而为：清理失败不能让删除操作整体失败
	filePath := filepath.Join(h.cfg.UploadDir, song.Filename)
	if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
		logger.Warn("删除歌曲文件失败",
			logger.String("path", filePath),
			logger.ErrorField(err))
	}

	logger.Info("歌曲已删除",
		logger.String("id", id),
		logger.String("title", song.Title))
	respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
