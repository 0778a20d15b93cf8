// Package api はHTTPレイヤーで共有するレスポンス形式とリクエスト解析を提供します。
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Envelope は全JSONレスポンス共通の形式です。
type Envelope struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Data    any      `json:"data,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

// OK writes a successful envelope.
func OK(c *gin.Context, status int, message string, data any) {
	c.JSON(status, Envelope{Success: true, Message: message, Data: data})
}

// Fail writes a failed envelope and aborts the chain.
func Fail(c *gin.Context, status int, message string, errs ...string) {
	c.AbortWithStatusJSON(status, Envelope{Success: false, Message: message, Errors: errs})
}

// InternalError は詳細を隠した500レスポンスを返します。詳細は呼び出し側でログに出すこと。
func InternalError(c *gin.Context) {
	Fail(c, http.StatusInternalServerError, "internal server error")
}
