// Package dto はdebtフィーチャーのHTTPトランスポート層のデータ転送オブジェクトを定義します。
package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// DebtReq は債務の作成・更新リクエストです。金額の正値チェックはusecaseで行います。
type DebtReq struct {
	Title       string          `json:"title" binding:"required,min=3,max=200"`
	Description *string         `json:"description" binding:"omitempty,max=1000"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency" binding:"omitempty,len=3,alpha"`
	DebtorID    *uint           `json:"debtorId" binding:"omitempty,gt=0"`
	DueDate     *time.Time      `json:"dueDate"`
}

// PayReq is the optional body of the pay endpoint.
type PayReq struct {
	PaidAt *time.Time `json:"paidAt"`
}
