package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	// 空の場合はリモートストアを使わずオフラインで動作する。
	DatabaseURL string

	// Cache
	CachePath string

	// Admin
	// 空の場合は管理APIを無効化する。
	AdminToken string

	// Rate Limit
	RateLimitWindow      time.Duration
	RateLimitMaxAttempts int
	RateLimitAPI         int

	// Import
	ImportFeedURLs      []string
	ImportInterval      time.Duration
	ImportCategory      string
	ImportTimeout       time.Duration
	ImportMaxSize       int64
	ImportMaxConcurrent int

	// News
	// 0の場合はserve起動後にRemoteStoreから記事を再取得しない。
	NewsRefreshInterval time.Duration

	// Logging
	LogLevel string

	// Server
	ServerPort string

	// CORS
	CORSAllowedOrigin string
}

// Online はリモートストアが設定されているかを返す。
func (c *Config) Online() bool {
	return c.DatabaseURL != ""
}

// Load は環境変数からConfigを読み込む。
// 値が不正な場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.AdminToken = os.Getenv("ADMIN_TOKEN")

	cfg.CachePath = getEnvString("CACHE_PATH", "./data/cache")
	cfg.RateLimitWindow = getEnvDuration("RATE_LIMIT_WINDOW", time.Minute)
	cfg.RateLimitMaxAttempts = getEnvInt("RATE_LIMIT_MAX_ATTEMPTS", 5)
	cfg.RateLimitAPI = getEnvInt("RATE_LIMIT_API", 120)
	cfg.ImportFeedURLs = getEnvList("IMPORT_FEED_URLS")
	cfg.ImportInterval = getEnvDuration("IMPORT_INTERVAL", 30*time.Minute)
	cfg.ImportCategory = getEnvString("IMPORT_CATEGORY", "Geral")
	cfg.ImportTimeout = getEnvDuration("IMPORT_TIMEOUT", 10*time.Second)
	cfg.ImportMaxSize = getEnvInt64("IMPORT_MAX_SIZE", 5242880)
	cfg.ImportMaxConcurrent = getEnvInt("IMPORT_MAX_CONCURRENT", 4)
	cfg.NewsRefreshInterval = getEnvDuration("NEWS_REFRESH_INTERVAL", 0)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:5173")

	cfg.LogLevel = strings.ToLower(getEnvString("LOG_LEVEL", "info"))
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("invalid LOG_LEVEL: %q", cfg.LogLevel)
	}

	if cfg.RateLimitMaxAttempts <= 0 {
		return nil, fmt.Errorf("RATE_LIMIT_MAX_ATTEMPTS must be positive: %d", cfg.RateLimitMaxAttempts)
	}

	if cfg.ImportInterval <= 0 {
		return nil, fmt.Errorf("IMPORT_INTERVAL must be positive: %s", cfg.ImportInterval)
	}

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

// getEnvList はカンマ区切りの環境変数を空要素を除いて分割する。
func getEnvList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
