// Package config はアプリケーション設定の読み込みを提供する。
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
	// OAuth
	GitHubClientID     string
	GitHubClientSecret string

	// 自サービスの公開ホスト（コールバックURL・authurlの組み立てに使用）
	AuthHost string

	// Session
	CookieSecret  string
	SessionMaxAge int

	// Store（どちらも任意。設定された分だけバックエンドが有効になる）
	SQLitePath  string
	DatabaseURL string

	// Redirect
	DefaultRedirectURL string

	// Rate Limit（認証エンドポイントのreq/min）
	RateLimitAuth int

	// Server
	ServerPort string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.GitHubClientID = os.Getenv("GITHUB_CLIENT_ID")
	if cfg.GitHubClientID == "" {
		missing = append(missing, "GITHUB_CLIENT_ID")
	}

	cfg.GitHubClientSecret = os.Getenv("GITHUB_CLIENT_SECRET")
	if cfg.GitHubClientSecret == "" {
		missing = append(missing, "GITHUB_CLIENT_SECRET")
	}

	cfg.AuthHost = os.Getenv("AUTH_HOST")
	if cfg.AuthHost == "" {
		missing = append(missing, "AUTH_HOST")
	}

	cfg.CookieSecret = os.Getenv("COOKIE_SECRET")
	if cfg.CookieSecret == "" {
		missing = append(missing, "COOKIE_SECRET")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.SQLitePath = os.Getenv("SQLITE_PATH")
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.SessionMaxAge = getEnvInt("SESSION_MAX_AGE", 86400)
	cfg.DefaultRedirectURL = getEnvString("DEFAULT_REDIRECT_URL", strings.TrimSuffix(cfg.AuthHost, "/")+"/auth/me")
	cfg.RateLimitAuth = getEnvInt("RATE_LIMIT_AUTH", 60)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	return cfg, nil
}

// HasStore はいずれかのストアバックエンドが設定されているかを返す。
func (c *Config) HasStore() bool {
	return c.SQLitePath != "" || c.DatabaseURL != ""
}

// CallbackURL はGitHub OAuthのコールバックURLを返す。
func (c *Config) CallbackURL() string {
	return strings.TrimSuffix(c.AuthHost, "/") + "/auth/github/callback"
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
