package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config stores the application configuration. Values come from the
// environment (optionally via a .env file) with simple defaults.
type Config struct {
	Addr        string // HTTP listen address
	UploadDir   string // Directory holding uploaded song files, named <id><ext>
	CatalogPath string // Path of the JSON catalog document
	WebAppDir   string // Path to the web UI files

	ChunkSize            int   // Streaming chunk size in bytes
	MaxUploadSize        int64 // Upper bound for an upload request body
	MaxConcurrentUploads int   // Uploads processed at the same time

	// Redis配置（可选，仅用于歌曲库缓存）
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt gets an environment variable as int or returns a default value.
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

// getEnvInt64 gets an environment variable as int64 or returns a default value.
func getEnvInt64(key string, fallback int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return fallback
}

// getEnvBool gets an environment variable as bool or returns a default value.
func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return fallback
}

// Load loads configuration from environment variables (via .env file) or defaults.
func Load() *Config {
	// Attempt to load .env file. godotenv.Load() will not override existing env vars.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found or error loading .env, relying on existing environment variables and defaults.")
	}

	return &Config{
		Addr:        getEnv("LISTEN_ADDR", ":8080"),
		UploadDir:   getEnv("UPLOAD_DIR", "uploads"),
		CatalogPath: getEnv("CATALOG_PATH", "songs.json"),
		WebAppDir:   getEnv("WEBAPP_DIR", "web/ui"),

		ChunkSize:            getEnvInt("CHUNK_SIZE", 64<<10), // 64 KiB streaming chunks
		MaxUploadSize:        getEnvInt64("MAX_UPLOAD_SIZE", 100<<20),
		MaxConcurrentUploads: getEnvInt("MAX_CONCURRENT_UPLOADS", 5),

		// Redis配置，使用默认值
		RedisHost:     getEnv("REDIS_HOST", ""),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""), // 默认无密码
		RedisDB:       getEnvInt("REDIS_DB", 0),     // 默认使用0号数据库

		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogPath:       getEnv("LOG_PATH", ""),
		LogMaxSizeMB:  getEnvInt("LOG_MAX_SIZE_MB", 100),
		LogMaxBackups: getEnvInt("LOG_MAX_BACKUPS", 3),
		LogMaxAgeDays: getEnvInt("LOG_MAX_AGE_DAYS", 28),
		LogCompress:   getEnvBool("LOG_COMPRESS", false),
	}
}

// RedisEnabled reports whether a Redis address was configured. The catalog
// cache is skipped entirely when it is not.
func (c *Config) RedisEnabled() bool {
	return c.RedisHost != ""
}
