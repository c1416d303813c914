package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// OAuth
	// プロバイダーの資格情報は未設定でも起動できる。
	// その場合、該当プロバイダーのログインはIdP側で失敗する。
	FacebookAppID         string
	FacebookAppSecret     string
	GoogleClientID        string
	GoogleClientSecret    string
	InstagramClientID     string
	InstagramClientSecret string

	// Session
	SessionMaxAge int

	// Lobby
	LobbyCleanupOnDisconnect bool
	LobbySendBuffer          int
	LobbyMaxMessageSize      int64
	LobbyEventRate           float64
	LobbyEventBurst          int

	// Rate Limit
	RateLimitGeneral int
	RateLimitAuth    int

	// Server
	ServerPort string
	BaseURL    string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.BaseURL = os.Getenv("BASE_URL")
	if cfg.BaseURL == "" {
		missing = append(missing, "BASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// OAuth credentials (optional)
	cfg.FacebookAppID = os.Getenv("FACEBOOK_APP_ID")
	cfg.FacebookAppSecret = os.Getenv("FACEBOOK_APP_SECRET")
	cfg.GoogleClientID = os.Getenv("GOOGLE_CLIENT_ID")
	cfg.GoogleClientSecret = os.Getenv("GOOGLE_CLIENT_SECRET")
	cfg.InstagramClientID = os.Getenv("INSTAGRAM_CLIENT_ID")
	cfg.InstagramClientSecret = os.Getenv("INSTAGRAM_CLIENT_SECRET")

	// Optional fields with defaults
	cfg.SessionMaxAge = getEnvInt("SESSION_MAX_AGE", 86400)
	cfg.LobbyCleanupOnDisconnect = getEnvBool("LOBBY_CLEANUP_ON_DISCONNECT", false)
	cfg.LobbySendBuffer = getEnvInt("LOBBY_SEND_BUFFER", 256)
	cfg.LobbyMaxMessageSize = getEnvInt64("LOBBY_MAX_MESSAGE_SIZE", 4096)
	cfg.LobbyEventRate = getEnvFloat("LOBBY_EVENT_RATE", 10)
	cfg.LobbyEventBurst = getEnvInt("LOBBY_EVENT_BURST", 20)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitAuth = getEnvInt("RATE_LIMIT_AUTH", 20)
	cfg.ServerPort = getEnvString("SERVER_PORT", "3000")
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	return cfg, nil
}

// RedirectURL は指定プロバイダーのOAuthコールバックURLを組み立てる。
func (c *Config) RedirectURL(provider string) string {
	return strings.TrimSuffix(c.BaseURL, "/") + "/auth/" + provider + "/callback"
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
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

func getEnvFloat(key string, defaultVal float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}
