// Package jwtmw はJWTの発行と検証ミドルウェアを提供します。
package jwtmw

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"debt_backend/internal/api"
)

const (
	ContextUserID = "userID"
	ContextClaims = "claims"
)

// RevocationChecker reports whether a token id has been revoked by logout.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// AuthRequired returns a Gin middleware function that validates JWT tokens
// and restricts access to authenticated users only.
// revocations may be nil, in which case logout revocation is not enforced.
func AuthRequired(secret string, revocations RevocationChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			// Server misconfiguration (JWT_SECRET not set)
			api.Fail(c, http.StatusInternalServerError, "server misconfigured")
			return
		}

		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			api.Fail(c, http.StatusUnauthorized, "missing bearer token")
			return
		}

		claims, err := Parse(secret, strings.TrimPrefix(auth, "Bearer "))
		if err != nil {
			api.Fail(c, http.StatusUnauthorized, "invalid token")
			return
		}

		if revocations != nil && claims.TokenID != "" {
			revoked, err := revocations.IsRevoked(c.Request.Context(), claims.TokenID)
			if err != nil {
				// 失効ストア障害時はトークン署名の検証結果を優先する
				slog.Warn("token revocation check failed", "error", err, "remote_addr", c.ClientIP())
			} else if revoked {
				api.Fail(c, http.StatusUnauthorized, "token has been revoked")
				return
			}
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextClaims, claims)
		c.Next()
	}
}

// ClaimsFrom returns the claims stored by AuthRequired.
func ClaimsFrom(c *gin.Context) (*Claims, bool) {
	v, ok := c.Get(ContextClaims)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*Claims)
	return claims, ok
}
