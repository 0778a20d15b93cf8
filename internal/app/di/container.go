// Package di はアプリケーションの依存関係を組み立てます。
package di

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"debt_backend/internal/app/config"
	authhandler "debt_backend/internal/feature/auth/transport/handler"
	authusecase "debt_backend/internal/feature/auth/usecase"
	debtadapters "debt_backend/internal/feature/debt/adapters"
	debthandler "debt_backend/internal/feature/debt/transport/handler"
	debtusecase "debt_backend/internal/feature/debt/usecase"
	useradapters "debt_backend/internal/feature/user/adapters"
	userhandler "debt_backend/internal/feature/user/transport/handler"
	userusecase "debt_backend/internal/feature/user/usecase"
	"debt_backend/internal/platform/cache"
	"debt_backend/internal/platform/db"
	platformhandler "debt_backend/internal/platform/http/handler"
	jwtmw "debt_backend/internal/platform/jwt"
	platformredis "debt_backend/internal/platform/redis"
)

// Handlers はルーターに渡すHTTPハンドラー一式です。
type Handlers struct {
	Auth     *authhandler.AuthHandler
	User     *userhandler.UserHandler
	Debt     *debthandler.DebtHandler
	Platform *platformhandler.PlatformHandler
}

// Container は起動時に組み立てた依存関係を保持します。
type Container struct {
	Config      config.Config
	DB          *gorm.DB
	Redis       *redis.Client
	Cache       *cache.KVClient
	Revocations jwtmw.RevocationChecker
	Handlers    Handlers
}

// NewContainer はDB・Redis・キャッシュに接続し、全フィーチャーを組み立てます。
// Redisに接続できない場合はキャッシュとトークン失効なしで起動します。
func NewContainer(ctx context.Context, cfg config.Config) (*Container, error) {
	gdb, err := db.Open(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	rdb, err := platformredis.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		slog.Warn("Redis unavailable at startup, cache will keep retrying", "error", err)
	}

	kv := cache.NewKVClient(rdb, cache.Options{
		TableName:    cfg.Cache.TableName,
		InitAttempts: cfg.Cache.InitAttempts,
		InitDelay:    cfg.Cache.InitDelay,
	})
	if !kv.EnsureInitialized(ctx) {
		slog.Warn("Running without cache", "table", kv.TableName())
		if rdb != nil {
			_ = rdb.Close()
		}
		rdb = nil
		kv = cache.NewKVClient(nil, cache.Options{TableName: cfg.Cache.TableName})
	}
	revoker, checker := NewRevocationStore(rdb)

	// Repository
	userRepo := useradapters.NewUserRepository(gdb)
	debtRepo := debtadapters.NewDebtRepository(gdb)
	directory := debtadapters.NewUserDirectory(gdb)

	// Usecase
	userUC := userusecase.NewUserUsecase(userRepo, kv)
	authUC := authusecase.NewAuthUsecase(userRepo, userUC, jwtmw.NewGenerator(cfg.JWT.Secret, cfg.JWT.Expiration), revoker)
	debtUC := debtusecase.NewDebtUsecase(debtRepo, directory, kv)

	return &Container{
		Config:      cfg,
		DB:          gdb,
		Redis:       rdb,
		Cache:       kv,
		Revocations: checker,
		Handlers: Handlers{
			Auth:     authhandler.NewAuthHandler(authUC),
			User:     userhandler.NewUserHandler(userUC),
			Debt:     debthandler.NewDebtHandler(debtUC),
			Platform: platformhandler.NewPlatformHandler(func(ctx context.Context) error { return db.Ping(ctx, gdb) }, kv),
		},
	}, nil
}

// Close は非同期のキャッシュ削除を待ってから接続を閉じます。
func (c *Container) Close() {
	c.Cache.Wait()
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			slog.Error("Failed to close Redis client", "error", err)
		}
	}
	if sqlDB, err := c.DB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			slog.Error("Failed to close database", "error", err)
		}
	}
}
