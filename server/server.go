package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chipstream/cache"
	"chipstream/config"
	"chipstream/core/stream"
	"chipstream/logger"
	"chipstream/repository"

	"github.com/gorilla/mux"
)

// Start initializes and starts the HTTP server.
func Start() {
	cfg := config.Load()

	logger.InitLogger(logger.Config{
		Level:      cfg.LogLevel,
		OutputPath: cfg.LogPath,
		MaxSize:    cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAge:     cfg.LogMaxAgeDays,
		Compress:   cfg.LogCompress,
	})

	ensureDirExists(cfg.UploadDir)

	// Redis 只承担歌曲库缓存，连不上时直接读文件
	var catalogCache *cache.CatalogCache
	if cfg.RedisEnabled() {
		if err := cache.ConnectRedis(cfg); err != nil {
			logger.Warn("Redis不可用，跳过歌曲库缓存", logger.ErrorField(err))
		} else {
			catalogCache = cache.NewCatalogCache(cache.RedisClient)
			defer cache.CloseRedis()
			logger.Info("Redis连接成功，启用歌曲库缓存")
		}
	}

	songRepo := repository.NewJSONSongRepository(cfg.CatalogPath, catalogCache)
	engine := stream.NewEngine(cfg.ChunkSize)
	apiHandler := NewAPIHandler(songRepo, engine, cfg)

	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      apiHandler.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("CHIP.STREAM server starting",
			logger.String("addr", cfg.Addr),
			logger.String("uploadDir", cfg.UploadDir),
			logger.String("catalog", cfg.CatalogPath))

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", logger.ErrorField(err))
		}
	}()

	<-stop
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", logger.ErrorField(err))
	}

	logger.Info("Server stopped")
}

// Router builds the full route table. Split out of Start so handler tests
// exercise the same routing the server runs with.
func (h *APIHandler) Router() *mux.Router {
	router := mux.NewRouter().StrictSlash(true)
	router.Use(corsMiddleware)

	router.HandleFunc("/api/songs", h.ListSongsHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/songs/{id}", h.DeleteSongHandler).Methods(http.MethodDelete)
	router.HandleFunc("/api/random", h.RandomSongHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/upload", h.UploadSongHandler).Methods(http.MethodPost)
	router.HandleFunc("/stream/{id}", h.StreamSongHandler).Methods(http.MethodGet)

	// Frontend UI serving. Also the catch-all that lets the CORS
	// middleware see OPTIONS preflights for every path.
	router.PathPrefix("/").Handler(http.FileServer(http.Dir(h.cfg.WebAppDir)))

	return router
}

// corsMiddleware 注入CORS头，并直接应答OPTIONS预检请求
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Range")
		w.Header().Set("Access-Control-Expose-Headers", "Content-Length, Content-Range")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func ensureDirExists(path string) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		logger.Info("Creating directory", logger.String("path", path))
		if err := os.MkdirAll(path, 0755); err != nil {
			logger.Fatal("Failed to create directory",
				logger.String("path", path),
				logger.ErrorField(err))
		}
	} else if err != nil {
		logger.Fatal("Failed to check directory",
			logger.String("path", path),
			logger.ErrorField(err))
	}
}
