package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// サポートするデータベースドライバ。
const (
	DriverPostgres = "postgres"
	DriverPgx      = "pgx"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL          string
	DatabaseDriver       string
	DatabaseMaxOpenConns int
	DatabaseDebug        bool

	// Webhook
	WebhookSecret       string
	WebhookPath         string
	WebhookTolerance    time.Duration
	WebhookMaxBodyBytes int64

	// Rate Limit
	RateLimitWebhook int

	// Server
	ServerPort string

	// Logging
	LogLevel string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合、または値が不正な場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.WebhookSecret = os.Getenv("CLERK_WEBHOOK_SECRET")
	if cfg.WebhookSecret == "" {
		missing = append(missing, "CLERK_WEBHOOK_SECRET")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.DatabaseDriver = getEnvString("DATABASE_DRIVER", DriverPostgres)
	cfg.DatabaseMaxOpenConns = getEnvInt("DATABASE_MAX_OPEN_CONNS", 10)
	cfg.DatabaseDebug = getEnvBool("DATABASE_DEBUG", false)
	cfg.WebhookPath = getEnvString("WEBHOOK_PATH", "/api/webhooks")
	cfg.WebhookTolerance = getEnvDuration("WEBHOOK_TOLERANCE", 5*time.Minute)
	cfg.WebhookMaxBodyBytes = getEnvInt64("WEBHOOK_MAX_BODY_BYTES", 1048576)
	cfg.RateLimitWebhook = getEnvInt("RATE_LIMIT_WEBHOOK", 600)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate は任意設定値の整合性を検証する。
func (c *Config) validate() error {
	if c.DatabaseDriver != DriverPostgres && c.DatabaseDriver != DriverPgx {
		return fmt.Errorf("DATABASE_DRIVER must be %q or %q, got %q", DriverPostgres, DriverPgx, c.DatabaseDriver)
	}
	if !strings.HasPrefix(c.WebhookPath, "/") {
		return fmt.Errorf("WEBHOOK_PATH must start with '/', got %q", c.WebhookPath)
	}
	if c.WebhookTolerance <= 0 {
		return fmt.Errorf("WEBHOOK_TOLERANCE must be positive, got %v", c.WebhookTolerance)
	}
	if c.WebhookMaxBodyBytes <= 0 {
		return fmt.Errorf("WEBHOOK_MAX_BODY_BYTES must be positive, got %d", c.WebhookMaxBodyBytes)
	}
	return nil
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
