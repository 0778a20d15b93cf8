// Package handler はプラットフォームレベルのエンドポイント用HTTPハンドラーを提供します。
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"debt_backend/internal/api"
	"debt_backend/internal/platform/cache"
)

const readyTimeout = 2 * time.Second

// Health はサービスヘルスチェック用の /healthz エンドポイントを処理します。
// HTTPメソッドに応じて適切にレスポンスし、キャッシュを防止します。
func Health(c *gin.Context) {
	// 明示的にキャッシュを防止
	c.Header("Cache-Control", "no-store")

	// すべてのGET/HEAD/OPTIONSリクエストに対して200または204を返す
	switch c.Request.Method {
	case "HEAD":
		c.Status(200)
	case "OPTIONS":
		c.Status(204)
	default:
		c.JSON(200, gin.H{"status": "ok"})
	}
}

// PingFunc はデータベースへの疎通確認です。
type PingFunc func(ctx context.Context) error

// CacheAdmin はキャッシュの運用操作です。
type CacheAdmin interface {
	Statistics(ctx context.Context) cache.Statistics
	CleanupExpired(ctx context.Context) (int64, error)
}

// PlatformHandler は readyz とキャッシュ運用エンドポイントを処理します。
type PlatformHandler struct {
	ping  PingFunc
	cache CacheAdmin
}

// NewPlatformHandler はPlatformHandlerの新しいインスタンスを生成します。
func NewPlatformHandler(ping PingFunc, cache CacheAdmin) *PlatformHandler {
	return &PlatformHandler{ping: ping, cache: cache}
}

// Ready はDBに到達できる場合のみ200を返します。キャッシュの状態は参考情報として含めます。
func (h *PlatformHandler) Ready(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	ctx, cancel := context.WithTimeout(c.Request.Context(), readyTimeout)
	defer cancel()

	stats := h.cache.Statistics(ctx)
	if err := h.ping(ctx); err != nil {
		slog.Error("readiness check failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "database": "unreachable", "cache": stats})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready", "database": "ok", "cache": stats})
}

// CacheStatistics はキャッシュのエントリ数を返します。
func (h *PlatformHandler) CacheStatistics(c *gin.Context) {
	api.OK(c, http.StatusOK, "cache statistics", h.cache.Statistics(c.Request.Context()))
}

// CacheCleanup は期限切れエントリの掃除を即時に実行します。
func (h *PlatformHandler) CacheCleanup(c *gin.Context) {
	deleted, err := h.cache.CleanupExpired(c.Request.Context())
	if err != nil {
		slog.Error("cache cleanup failed", "error", err, "deleted", deleted, "remote_addr", c.ClientIP())
		api.InternalError(c)
		return
	}
	slog.Info("cache cleanup completed", "deleted", deleted, "remote_addr", c.ClientIP())
	api.OK(c, http.StatusOK, "cache cleanup completed", gin.H{"deleted": deleted})
}
