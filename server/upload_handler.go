package server

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"chipstream/core/multipart"
	"chipstream/logger"
	"chipstream/model"

	"github.com/google/uuid"
)

// UploadSongHandler 处理歌曲上传
// POST /api/upload，multipart/form-data，字段：title、artist、comment + 一个文件
func (h *APIHandler) UploadSongHandler(w http.ResponseWriter, r *http.Request) {
	logger.Info("开始处理上传请求",
		logger.String("remoteAddr", r.RemoteAddr),
		logger.Int64("contentLength", r.ContentLength))

	// 获取信号量，控制并发上传数
	select {
	case h.uploadSem <- struct{}{}:
		defer func() { <-h.uploadSem }()
	default:
		logger.Warn("服务器繁忙，拒绝新的上传请求")
		respondError(w, http.StatusServiceUnavailable, "Server is busy, please try again later")
		return
	}

	if r.ContentLength > h.cfg.MaxUploadSize {
		logger.Warn("请求体过大，拒绝处理",
			logger.Int64("contentLength", r.ContentLength),
			logger.Int64("maxSize", h.cfg.MaxUploadSize))
		respondError(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("Request too large. Maximum size is %d MB", h.cfg.MaxUploadSize>>20))
		return
	}

	mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "multipart/form-data" {
		respondError(w, http.StatusBadRequest, "Expected multipart/form-data")
		return
	}
	boundary := params["boundary"]
	if boundary == "" {
		respondError(w, http.StatusBadRequest, "Missing boundary")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadSize))
	if err != nil {
		logger.Warn("读取请求体失败", logger.ErrorField(err))
		respondError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}

	form := multipart.Decode(body, boundary)

	title := strings.TrimSpace(form.Fields["title"])
	if title == "" {
		title = model.DefaultTitle
	}
	artist := strings.TrimSpace(form.Fields["artist"])
	if artist == "" {
		artist = model.DefaultArtist
	}
	comment := strings.TrimSpace(form.Fields["comment"])

	if !form.HasFile() {
		respondError(w, http.StatusBadRequest, "No file uploaded")
		return
	}

	ext := strings.ToLower(filepath.Ext(form.FileName))
	if !model.IsAllowedExtension(ext) {
		logger.Warn("不支持的文件格式",
			logger.String("ext", ext),
			logger.String("filename", form.FileName))
		respondError(w, http.StatusBadRequest, fmt.Sprintf("Unsupported format: %s", ext))
		return
	}

	// 先落盘文件，再写歌曲库记录，保证记录出现时文件一定存在
	songID := uuid.NewString()
	storedName := songID + ext
	storedPath := filepath.Join(h.cfg.UploadDir, storedName)
	if err := os.WriteFile(storedPath, form.FileData, 0644); err != nil {
		logger.Error("保存上传文件失败",
			logger.String("path", storedPath),
			logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Failed to save file")
		return
	}

	song := &model.Song{
		ID:       songID,
		Title:    title,
		Artist:   artist,
		Comment:  comment,
		Filename: storedName,
		Ext:      ext,
		Size:     int64(len(form.FileData)),
		Uploaded: time.Now().UTC().Format(time.RFC3339),
	}

	if err := h.songRepo.Create(song); err != nil {
		logger.Error("写入歌曲库失败",
			logger.String("id", songID),
			logger.ErrorField(err))
		// 歌曲库写入失败时回收已落盘的文件
		if rmErr := os.Remove(storedPath); rmErr != nil && !os.IsNotExist(rmErr) {
			logger.Warn("回收上传文件失败",
				logger.String("path", storedPath),
				logger.ErrorField(rmErr))
		}
		respondError(w, http.StatusInternalServerError, "Failed to update catalog")
		return
	}

	logger.Info("歌曲上传成功",
		logger.String("id", songID),
		logger.String("title", title),
		logger.String("artist", artist),
		logger.Int64("size", song.Size))

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"ok":   true,
		"song": song,
	})
}
