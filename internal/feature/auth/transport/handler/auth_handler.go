// Package handler はauthフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"debt_backend/internal/api"
	"debt_backend/internal/feature/auth/transport/http/dto"
	"debt_backend/internal/feature/auth/usecase"
	userusecase "debt_backend/internal/feature/user/usecase"
	jwtmw "debt_backend/internal/platform/jwt"
)

// AuthUsecase は認証操作のユースケースを定義します。
// Goの慣例に従い、インターフェースはプロバイダー（usecase）ではなくコンシューマー（handler）が定義します。
type AuthUsecase interface {
	Register(ctx context.Context, in userusecase.RegisterInput) (*usecase.AuthResult, error)
	Login(ctx context.Context, email, password string) (*usecase.AuthResult, error)
	Logout(ctx context.Context, tokenID string, userID uint, expiresAt time.Time) error
	Validate(ctx context.Context, userID uint) (*userusecase.Profile, error)
}

// AuthHandler は認証操作のHTTPリクエストを処理します。
type AuthHandler struct {
	auth AuthUsecase
}

// NewAuthHandler はAuthHandlerの新しいインスタンスを生成します。
func NewAuthHandler(auth AuthUsecase) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// ValidateRes は /validate の応答データです。
type ValidateRes struct {
	Valid     bool                 `json:"valid"`
	UserID    uint                 `json:"userId"`
	Email     string               `json:"email"`
	ExpiresAt time.Time            `json:"expiresAt"`
	User      *userusecase.Profile `json:"user"`
}

// Register はユーザー登録APIエンドポイントを処理します。
// - バリデーションエラー時は400
// - メール重複時は409
// - 成功時はトークン付きで201
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterReq
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Warn("register validation failed", "error", err, "remote_addr", c.ClientIP())
		api.Fail(c, http.StatusBadRequest, "validation failed", api.ValidationMessages(err)...)
		return
	}
	res, err := h.auth.Register(c.Request.Context(), userusecase.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		switch {
		case errors.Is(err, userusecase.ErrEmailAlreadyExists):
			slog.Warn("register failed", "error", err, "remote_addr", c.ClientIP())
			api.Fail(c, http.StatusConflict, "email already exists")
		case errors.Is(err, userusecase.ErrWeakPassword):
			api.Fail(c, http.StatusBadRequest, "validation failed", err.Error())
		default:
			slog.Error("register failed", "error", err, "remote_addr", c.ClientIP())
			api.InternalError(c)
		}
		return
	}
	slog.Info("user register successful", "user_id", res.User.ID, "remote_addr", c.ClientIP())
	api.OK(c, http.StatusCreated, "user registered", res)
}

// Login はユーザーログインAPIエンドポイントを処理します。
// - バリデーションエラー時は400
// - 認証失敗時は401
// - 認証成功時はJWTトークン付きで200
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Warn("login validation failed", "error", err, "remote_addr", c.ClientIP())
		api.Fail(c, http.StatusBadRequest, "validation failed", api.ValidationMessages(err)...)
		return
	}
	res, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, usecase.ErrInvalidCredentials) {
			// ユーザー列挙攻撃を防止するため、実際のエラーを公開しない
			slog.Warn("login failed", "error", err, "remote_addr", c.ClientIP())
			api.Fail(c, http.StatusUnauthorized, "invalid email or password")
			return
		}
		slog.Error("login failed", "error", err, "remote_addr", c.ClientIP())
		api.InternalError(c)
		return
	}
	slog.Info("user login successful", "user_id", res.User.ID, "remote_addr", c.ClientIP())
	api.OK(c, http.StatusOK, "login successful", res)
}

// Logout は提示されたトークンを失効させます。AuthRequiredの後段で使います。
func (h *AuthHandler) Logout(c *gin.Context) {
	claims, ok := jwtmw.ClaimsFrom(c)
	if !ok {
		api.Fail(c, http.StatusUnauthorized, "invalid token")
		return
	}
	if err := h.auth.Logout(c.Request.Context(), claims.TokenID, claims.UserID, claims.ExpiresAt); err != nil {
		if errors.Is(err, usecase.ErrTokenNotRevocable) {
			api.Fail(c, http.StatusBadRequest, err.Error())
			return
		}
		slog.Error("logout failed", "error", err, "user_id", claims.UserID, "remote_addr", c.ClientIP())
		api.InternalError(c)
		return
	}
	api.OK(c, http.StatusOK, "logout successful", nil)
}

// Validate はトークンのクレームと持ち主のプロフィールを返します。
func (h *AuthHandler) Validate(c *gin.Context) {
	claims, ok := jwtmw.ClaimsFrom(c)
	if !ok {
		api.Fail(c, http.StatusUnauthorized, "invalid token")
		return
	}
	p, err := h.auth.Validate(c.Request.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, userusecase.ErrUserNotFound) {
			api.Fail(c, http.StatusUnauthorized, "invalid token")
			return
		}
		slog.Error("validate failed", "error", err, "user_id", claims.UserID, "remote_addr", c.ClientIP())
		api.InternalError(c)
		return
	}
	api.OK(c, http.StatusOK, "token is valid", ValidateRes{
		Valid:     true,
		UserID:    claims.UserID,
		Email:     claims.Email,
		ExpiresAt: claims.ExpiresAt,
		User:      p,
	})
}
