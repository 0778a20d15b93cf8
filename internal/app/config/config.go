// Package config は環境変数からアプリケーション設定を読み込みます。
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"debt_backend/internal/platform/db"
	platformredis "debt_backend/internal/platform/redis"
)

// Config はアプリケーション全体の設定です。
type Config struct {
	Port     string
	Env      string
	LogLevel string

	DB    db.Config
	Redis platformredis.Config
	Cache CacheConfig
	JWT   JWTConfig
	HTTP  HTTPConfig
}

// CacheConfig はキャッシュの名前空間と初期化・掃除の設定です。
type CacheConfig struct {
	TableName       string
	InitAttempts    int
	InitDelay       time.Duration
	CleanupSchedule string
}

// JWTConfig はトークン署名の設定です。
type JWTConfig struct {
	Secret     string
	Expiration time.Duration
}

// HTTPConfig はCORSと認証エンドポイントのレート制限設定です。
type HTTPConfig struct {
	AllowedOrigins []string
	AuthRateLimit  int
	AuthRateBurst  int
}

// IsProduction reports whether APP_ENV is production.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")

	v.SetDefault("DB_DRIVER", db.DriverPostgres)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "")
	v.SetDefault("DB_NAME", "debts")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_SQLITE_PATH", "debts.db")
	v.SetDefault("DB_CONN_TIMEOUT", "60s")
	v.SetDefault("RUN_MIGRATIONS", true)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("CACHE_TABLE_NAME", "DebtCache")
	v.SetDefault("CACHE_INIT_ATTEMPTS", 10)
	v.SetDefault("CACHE_INIT_DELAY", "5s")
	v.SetDefault("CACHE_CLEANUP_SCHEDULE", "@every 1h")

	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_EXPIRATION", "24h")

	v.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")
	v.SetDefault("AUTH_RATE_LIMIT", 10)
	v.SetDefault("AUTH_RATE_BURST", 5)
}

// Load は .env（存在すれば）と環境変数から設定を読み込みます。
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to load .env file", "error", err)
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	return fromViper(v)
}

func fromViper(v *viper.Viper) (Config, error) {
	cfg := Config{
		Port:     v.GetString("APP_PORT"),
		Env:      v.GetString("APP_ENV"),
		LogLevel: v.GetString("LOG_LEVEL"),
		DB: db.Config{
			Driver:        strings.ToLower(v.GetString("DB_DRIVER")),
			Host:          v.GetString("DB_HOST"),
			Port:          v.GetString("DB_PORT"),
			User:          v.GetString("DB_USER"),
			Password:      v.GetString("DB_PASSWORD"),
			Name:          v.GetString("DB_NAME"),
			SSLMode:       v.GetString("DB_SSLMODE"),
			SQLitePath:    v.GetString("DB_SQLITE_PATH"),
			ConnTimeout:   v.GetDuration("DB_CONN_TIMEOUT"),
			RunMigrations: v.GetBool("RUN_MIGRATIONS"),
		},
		Redis: platformredis.Config{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetString("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Cache: CacheConfig{
			TableName:       v.GetString("CACHE_TABLE_NAME"),
			InitAttempts:    v.GetInt("CACHE_INIT_ATTEMPTS"),
			InitDelay:       v.GetDuration("CACHE_INIT_DELAY"),
			CleanupSchedule: v.GetString("CACHE_CLEANUP_SCHEDULE"),
		},
		JWT: JWTConfig{
			Secret:     v.GetString("JWT_SECRET"),
			Expiration: v.GetDuration("JWT_EXPIRATION"),
		},
		HTTP: HTTPConfig{
			AllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
			AuthRateLimit:  v.GetInt("AUTH_RATE_LIMIT"),
			AuthRateBurst:  v.GetInt("AUTH_RATE_BURST"),
		},
	}

	switch cfg.DB.Driver {
	case db.DriverPostgres, db.DriverSQLite:
	default:
		return Config{}, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DB.Driver)
	}
	if cfg.JWT.Expiration <= 0 {
		return Config{}, fmt.Errorf("JWT_EXPIRATION must be positive, got %s", v.GetString("JWT_EXPIRATION"))
	}
	if cfg.JWT.Secret == "" && cfg.IsProduction() {
		return Config{}, errors.New("JWT_SECRET must be set in production")
	}
	return cfg, nil
}

// SlogLevel は LOG_LEVEL を slog.Level に変換します。未知の値は info です。
func (c Config) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
