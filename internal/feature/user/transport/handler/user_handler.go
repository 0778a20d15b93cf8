// Package handler はuserフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"debt_backend/internal/api"
	"debt_backend/internal/feature/user/transport/http/dto"
	"debt_backend/internal/feature/user/usecase"
	jwtmw "debt_backend/internal/platform/jwt"
)

// UserUsecase はユーザー操作のユースケースを定義します。
// Goの慣例に従い、インターフェースはプロバイダー（usecase）ではなくコンシューマー（handler）が定義します。
type UserUsecase interface {
	GetByID(ctx context.Context, id uint) (*usecase.Profile, error)
	GetByEmail(ctx context.Context, email string) (*usecase.Profile, error)
	UpdateProfile(ctx context.Context, id uint, in usecase.ProfileInput) (*usecase.Profile, error)
	ChangePassword(ctx context.Context, id uint, current, next string) error
}

// UserHandler はユーザーAPIのHTTPリクエストを処理します。
type UserHandler struct {
	uc UserUsecase
}

// NewUserHandler はUserHandlerの新しいインスタンスを生成します。
func NewUserHandler(uc UserUsecase) *UserHandler {
	return &UserHandler{uc: uc}
}

// RegisterRoutes は /api/users 配下のルートを登録します。g は認証済みグループであること。
func (h *UserHandler) RegisterRoutes(g *gin.RouterGroup) {
	g.GET("/profile", h.Profile)
	g.PUT("/profile", h.UpdateProfile)
	g.POST("/change-password", h.ChangePassword)
	g.GET("/search", h.Search)
}

func writeError(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, usecase.ErrUserNotFound):
		api.Fail(c, http.StatusNotFound, err.Error())
	case errors.Is(err, usecase.ErrInvalidPassword),
		errors.Is(err, usecase.ErrWeakPassword):
		api.Fail(c, http.StatusBadRequest, "validation failed", err.Error())
	default:
		slog.Error(op+" failed", "error", err, "user_id", c.GetUint(jwtmw.ContextUserID), "remote_addr", c.ClientIP())
		api.InternalError(c)
	}
}

// Profile は認証中のユーザーのプロフィールを返します。
func (h *UserHandler) Profile(c *gin.Context) {
	p, err := h.uc.GetByID(c.Request.Context(), c.GetUint(jwtmw.ContextUserID))
	if err != nil {
		writeError(c, "get profile", err)
		return
	}
	api.OK(c, http.StatusOK, "profile retrieved", p)
}

// UpdateProfile は氏名を更新します。
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var req dto.UpdateProfileReq
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Warn("profile validation failed", "error", err, "remote_addr", c.ClientIP())
		api.Fail(c, http.StatusBadRequest, "validation failed", api.ValidationMessages(err)...)
		return
	}
	p, err := h.uc.UpdateProfile(c.Request.Context(), c.GetUint(jwtmw.ContextUserID), usecase.ProfileInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		writeError(c, "update profile", err)
		return
	}
	api.OK(c, http.StatusOK, "profile updated", p)
}

// ChangePassword は現在のパスワードを確認してから新しいパスワードを設定します。
func (h *UserHandler) ChangePassword(c *gin.Context) {
	var req dto.ChangePasswordReq
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Warn("change password validation failed", "error", err, "remote_addr", c.ClientIP())
		api.Fail(c, http.StatusBadRequest, "validation failed", api.ValidationMessages(err)...)
		return
	}
	userID := c.GetUint(jwtmw.ContextUserID)
	if err := h.uc.ChangePassword(c.Request.Context(), userID, req.CurrentPassword, req.NewPassword); err != nil {
		writeError(c, "change password", err)
		return
	}
	slog.Info("password change successful", "user_id", userID, "remote_addr", c.ClientIP())
	api.OK(c, http.StatusOK, "password changed", nil)
}

// Search はメールアドレスでユーザーを引き当てます。債務の相手方を選ぶために使います。
func (h *UserHandler) Search(c *gin.Context) {
	email := strings.TrimSpace(c.Query("email"))
	if email == "" {
		api.Fail(c, http.StatusBadRequest, "validation failed", "email is required")
		return
	}
	p, err := h.uc.GetByEmail(c.Request.Context(), email)
	if err != nil {
		writeError(c, "search user", err)
		return
	}
	api.OK(c, http.StatusOK, "user found", dto.UserSummary{ID: p.ID, FullName: p.FullName, Email: p.Email})
}
