package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// 状态存储后端
const (
	StateStoreRedis  = "redis"
	StateStoreMySQL  = "mysql"
	StateStoreMemory = "memory"
)

// 歌曲来源
const (
	SongSourceMySQL = "mysql"
	SongSourceHTTP  = "http"
)

// Config stores the application configuration.
type Config struct {
	HTTPAddr string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Redis配置
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// MinIO配置，音频对象签名使用
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioRegion    string
	MinioUseSSL    bool
	AudioURLExpiry time.Duration
	StaticBaseURL  string // 未配置 MinIO 时拼接音频地址的前缀

	// 播放队列
	StateStore         string        // redis, mysql, memory
	SongSource         string        // mysql, http
	CatalogAPIURL      string        // 歌曲查询后端地址（SongSource=http）
	CatalogTimeout     time.Duration // 歌曲查询后端请求超时
	SongCacheTTL       time.Duration // Redis 歌曲缓存有效期，0 表示不缓存
	StateKey           string        // 持久化快照的键
	CheckpointInterval time.Duration // 快照写入的最小间隔
	DefaultVolume      float64
	AudioEnabled       bool // 是否驱动本机扬声器

	// 日志
	LogLevel      string
	LogPath       string
	LogMaxSize    int
	LogMaxBackups int
	LogMaxAge     int
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

func getEnvFloat(key string, fallback float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

// getEnvDuration 解析 time.ParseDuration 格式，如 "5s"、"1h"
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

// Load loads configuration from environment variables (via .env file) or defaults.
func Load() *Config {
	// godotenv.Load() will not override existing env vars.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found or error loading .env, relying on existing environment variables and defaults.")
	}
	return FromEnv()
}

// FromEnv builds the configuration from the current environment only.
func FromEnv() *Config {
	return &Config{
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),

		DBHost:     getEnv("DB_HOST", "127.0.0.1"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBUser:     getEnv("DB_USER", "root"),
		DBPassword: os.Getenv("DB_PASSWORD"), // 密码不设默认值
		DBName:     getEnv("DB_NAME", "fm"),

		RedisHost:     getEnv("REDIS_HOST", "127.0.0.1"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		MinioEndpoint:  getEnv("MINIO_ENDPOINT", ""),
		MinioAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: getEnv("MINIO_SECRET_KEY", ""),
		MinioBucket:    getEnv("MINIO_BUCKET", "bt1qfm"),
		MinioRegion:    getEnv("MINIO_REGION", "us-east-1"),
		MinioUseSSL:    getEnvBool("MINIO_USE_SSL", false),
		AudioURLExpiry: getEnvDuration("AUDIO_URL_EXPIRY", 6*time.Hour),
		StaticBaseURL:  getEnv("STATIC_BASE_URL", "http://127.0.0.1:8080/static"),

		StateStore:         getEnv("STATE_STORE", StateStoreRedis),
		SongSource:         getEnv("SONG_SOURCE", SongSourceMySQL),
		CatalogAPIURL:      getEnv("CATALOG_API_URL", "http://localhost:3000"),
		CatalogTimeout:     getEnvDuration("CATALOG_TIMEOUT", 10*time.Second),
		SongCacheTTL:       getEnvDuration("SONG_CACHE_TTL", 10*time.Minute),
		StateKey:           getEnv("STATE_KEY", "queuefm:audio_state"),
		CheckpointInterval: getEnvDuration("CHECKPOINT_INTERVAL", 5*time.Second),
		DefaultVolume:      getEnvFloat("DEFAULT_VOLUME", 1),
		AudioEnabled:       getEnvBool("AUDIO_ENABLED", true),

		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogPath:       getEnv("LOG_PATH", "logs/queuefm.log"),
		LogMaxSize:    getEnvInt("LOG_MAX_SIZE", 100),
		LogMaxBackups: getEnvInt("LOG_MAX_BACKUPS", 5),
		LogMaxAge:     getEnvInt("LOG_MAX_AGE", 30),
	}
}
