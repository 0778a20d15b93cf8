// Package router はHTTPルーティングを組み立てます。
package router

import (
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"debt_backend/internal/api"
	"debt_backend/internal/app/di"
	platformhandler "debt_backend/internal/platform/http/handler"
	jwtmw "debt_backend/internal/platform/jwt"
	"debt_backend/internal/platform/metrics"
	"debt_backend/internal/shared/ratelimiter"
)

// Options はルーター生成時の設定です。
type Options struct {
	JWTSecret      string
	Revocations    jwtmw.RevocationChecker
	AllowedOrigins []string
	AuthRateLimit  int
	AuthRateBurst  int
}

// NewRouter は全エンドポイントを登録したGinエンジンを返します。
func NewRouter(h di.Handlers, opts Options) *gin.Engine {
	api.UseJSONFieldNames()

	r := gin.New()
	r.Use(gin.Recovery(), metrics.Middleware())
	r.Use(cors.New(corsConfig(opts.AllowedOrigins)))

	// 認証不要
	// 導通確認用
	r.Match([]string{"GET", "HEAD", "OPTIONS"}, "/healthz", platformhandler.Health)
	r.GET("/readyz", h.Platform.Ready)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	authRequired := jwtmw.AuthRequired(opts.JWTSecret, opts.Revocations)
	limiter := ratelimiter.NewRateLimiter(opts.AuthRateLimit, opts.AuthRateBurst)

	apiGroup := r.Group("/api")

	auth := apiGroup.Group("/auth")
	{
		// 新規ユーザー登録とログインはクライアントIPごとに制限する
		auth.POST("/register", limiter.Middleware(), h.Auth.Register)
		auth.POST("/login", limiter.Middleware(), h.Auth.Login)
		auth.POST("/logout", authRequired, h.Auth.Logout)
		auth.GET("/validate", authRequired, h.Auth.Validate)
	}

	// 認証必須のルート
	h.User.RegisterRoutes(apiGroup.Group("/users", authRequired))
	h.Debt.RegisterRoutes(apiGroup.Group("/debts", authRequired))

	cacheGroup := apiGroup.Group("/cache", authRequired)
	{
		cacheGroup.GET("/statistics", h.Platform.CacheStatistics)
		cacheGroup.POST("/cleanup", h.Platform.CacheCleanup)
	}

	return r
}

// corsConfig は許可オリジンからCORS設定を作ります。"*" または未指定の場合は全オリジンを許可し、資格情報は送らせません。
func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"Content-Disposition"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}
