package server

import (
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"chipstream/logger"
	"chipstream/model"

	"github.com/gorilla/mux"
)

// StreamSongHandler 按Range协议流式返回歌曲文件
// GET /stream/{id}
func (h *APIHandler) StreamSongHandler(w http.ResponseWriter, r *http.Request) {
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

	// 记录存在不代表文件还在，播放前再做一次防御性检查
	filePath := filepath.Join(h.cfg.UploadDir, song.Filename)
	f, err := os.Open(filePath)
	if err != nil {
		logger.Warn("歌曲文件缺失",
			logger.String("id", id),
			logger.String("path", filePath))
		respondError(w, http.StatusNotFound, "File missing")
		return
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		respondError(w, http.StatusNotFound, "File missing")
		return
	}

	// 原始采样格式走转码分支，整体以200返回，不支持Range
	if song.Ext == model.RawSampleExt {
		if err := h.engine.ServeRawAsWAV(w, f, fi.Size()); err != nil {
			logger.Error("合成WAV流失败",
				logger.String("id", id),
				logger.ErrorField(err))
			respondError(w, http.StatusInternalServerError, "Failed to stream file")
		}
		return
	}

	contentType := mime.TypeByExtension(song.Ext)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h.engine.ServeFile(w, f, fi.Size(), contentType, r.Header.Get("Range"))
}
