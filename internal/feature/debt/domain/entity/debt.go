// Package entity defines the domain entities for the debt feature.
package entity

import (
	"time"

	"github.com/shopspring/decimal"

	userentity "debt_backend/internal/feature/user/domain/entity"
)

// DefaultCurrency is used when a debt is written without a currency code.
const DefaultCurrency = "COP"

// Debt は貸し手（Owner）から借り手（Counterparty）への金銭債務です。
// 借り手は任意で、未設定の債務も存在します。
type Debt struct {
	ID             uint            `gorm:"primaryKey"`
	OwnerID        uint            `gorm:"not null;index;index:idx_debts_owner_paid,priority:1"`
	CounterpartyID *uint           `gorm:"index"`
	Title          string          `gorm:"size:200;not null"`
	Description    *string         `gorm:"size:1000"`
	Amount         decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	Currency       string          `gorm:"size:3;not null"`
	Paid           bool            `gorm:"not null;index;index:idx_debts_owner_paid,priority:2"`
	DueDate        *time.Time      `gorm:"index:idx_debts_due_date,where:due_date IS NOT NULL"`
	PaidAt         *time.Time
	CreatedAt      time.Time `gorm:"index"`
	UpdatedAt      time.Time

	// 外部キー制約の定義用。読み込み時にプリロードはしない。
	Owner        *userentity.User `gorm:"foreignKey:OwnerID;constraint:OnDelete:RESTRICT" json:"-"`
	Counterparty *userentity.User `gorm:"foreignKey:CounterpartyID;constraint:OnDelete:SET NULL" json:"-"`
}

// IsOverdue reports whether the debt is unpaid and its due date is before now.
func (d *Debt) IsOverdue(now time.Time) bool {
	return !d.Paid && d.DueDate != nil && d.DueDate.Before(now)
}

// Status は支払い状態を表す文字列を返します。
func (d *Debt) Status() string {
	if d.Paid {
		return "Paid"
	}
	return "Pending"
}
