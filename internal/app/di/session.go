package di

import (
	"github.com/redis/go-redis/v9"

	authusecase "debt_backend/internal/feature/auth/usecase"
	jwtmw "debt_backend/internal/platform/jwt"
	"debt_backend/internal/platform/session"
)

// revocationPrefix はトークン失効リストのキー接頭辞です。
const revocationPrefix = "auth"

// NewRevocationStore はRedisが利用可能ならトークン失効リストを返します。
// Redisがない場合は両方nilを返し、ログアウトはクライアント側の破棄のみになります。
func NewRevocationStore(rdb *redis.Client) (authusecase.TokenRevoker, jwtmw.RevocationChecker) {
	if rdb == nil {
		return nil, nil
	}
	store := session.NewRevocationRedis(rdb, revocationPrefix)
	return store, store
}
