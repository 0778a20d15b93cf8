package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"debt_backend/internal/feature/debt/domain/entity"
	userentity "debt_backend/internal/feature/user/domain/entity"
)

// DebtView は債務と関係者の情報を平坦化した表示用の投影です。
type DebtView struct {
	ID          uint            `json:"id"`
	OwnerID     uint            `json:"userId"`
	DebtorID    *uint           `json:"debtorId,omitempty"`
	Title       string          `json:"title"`
	Description *string         `json:"description,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	IsPaid      bool            `json:"isPaid"`
	DueDate     *time.Time      `json:"dueDate,omitempty"`
	PaidAt      *time.Time      `json:"paidAt,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`

	OwnerName   string  `json:"ownerName"`
	OwnerEmail  string  `json:"ownerEmail"`
	DebtorName  *string `json:"debtorName,omitempty"`
	DebtorEmail *string `json:"debtorEmail,omitempty"`

	Status          string `json:"status"`
	IsOverdue       bool   `json:"isOverdue"`
	DaysUntilDue    *int   `json:"daysUntilDue,omitempty"`
	FormattedAmount string `json:"formattedAmount"`
}

var amountPrinter = message.NewPrinter(language.English)

// FormatAmount renders an amount with thousands separators and two decimals, e.g. "50,000.00 COP".
// 整数部と小数部を分けて整形し、float64 を経由しない。
func FormatAmount(amount decimal.Decimal, currency string) string {
	r := amount.Round(2)
	sign := ""
	if r.IsNegative() {
		sign = "-"
	}
	fixed := r.Abs().StringFixed(2)
	cents := fixed[len(fixed)-2:]
	return amountPrinter.Sprintf("%s%v.%s %s", sign, number.Decimal(r.Abs().IntPart()), cents, currency)
}

// daysUntil はUTCの暦日差を返します。時刻部分は無視します。
func daysUntil(due, now time.Time) int {
	d := due.UTC()
	n := now.UTC()
	dueDay := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	today := time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, time.UTC)
	return int(dueDay.Sub(today).Hours() / 24)
}

// refresh は時刻に依存する派生フィールドを再計算します。
func (v *DebtView) refresh(now time.Time) {
	d := entity.Debt{Paid: v.IsPaid, DueDate: v.DueDate}
	v.Status = d.Status()
	v.IsOverdue = d.IsOverdue(now)
	v.DaysUntilDue = nil
	if v.DueDate != nil {
		days := daysUntil(*v.DueDate, now)
		v.DaysUntilDue = &days
	}
	v.FormattedAmount = FormatAmount(v.Amount, v.Currency)
}

func newDebtView(d *entity.Debt, owner, debtor *userentity.User, now time.Time) DebtView {
	v := DebtView{
		ID:          d.ID,
		OwnerID:     d.OwnerID,
		DebtorID:    d.CounterpartyID,
		Title:       d.Title,
		Description: d.Description,
		Amount:      d.Amount,
		Currency:    d.Currency,
		IsPaid:      d.Paid,
		DueDate:     d.DueDate,
		PaidAt:      d.PaidAt,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
	if owner != nil {
		v.OwnerName = owner.FullName()
		v.OwnerEmail = owner.Email
	}
	if debtor != nil {
		name, email := debtor.FullName(), debtor.Email
		v.DebtorName = &name
		v.DebtorEmail = &email
	}
	v.refresh(now)
	return v
}

func (u *debtUsecase) view(ctx context.Context, d *entity.Debt) (*DebtView, error) {
	vs, err := u.views(ctx, []entity.Debt{*d})
	if err != nil {
		return nil, err
	}
	return &vs[0], nil
}

// views は所有者と借り手をまとめて引き当ててから投影を組み立てます。
func (u *debtUsecase) views(ctx context.Context, ds []entity.Debt) ([]DebtView, error) {
	out := make([]DebtView, 0, len(ds))
	if len(ds) == 0 {
		return out, nil
	}

	seen := make(map[uint]struct{}, len(ds))
	ids := make([]uint, 0, len(ds))
	add := func(id uint) {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	for _, d := range ds {
		add(d.OwnerID)
		if d.CounterpartyID != nil {
			add(*d.CounterpartyID)
		}
	}

	users, err := u.users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load debt parties: %w", err)
	}

	now := u.now()
	for i := range ds {
		d := &ds[i]
		var owner, debtor *userentity.User
		if o, ok := users[d.OwnerID]; ok {
			owner = &o
		}
		if d.CounterpartyID != nil {
			if c, ok := users[*d.CounterpartyID]; ok {
				debtor = &c
			}
		}
		out = append(out, newDebtView(d, owner, debtor, now))
	}
	return out, nil
}
