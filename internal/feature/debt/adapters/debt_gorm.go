// Package adapters はdebt機能の永続化をGORMで実装します。
package adapters

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"debt_backend/internal/feature/debt/domain/entity"
	"debt_backend/internal/feature/debt/usecase"
)

// updatableColumns は Update で書き換える列です。owner_id と created_at は含めない。
var updatableColumns = []string{
	"title", "description", "amount", "currency", "counterparty_id",
	"due_date", "paid", "paid_at", "updated_at",
}

type debtGorm struct {
	db *gorm.DB
}

var _ usecase.DebtRepository = (*debtGorm)(nil)

// NewDebtRepository は debtGorm の新しいインスタンスを生成します。
func NewDebtRepository(db *gorm.DB) *debtGorm {
	return &debtGorm{db: db}
}

func (r *debtGorm) Create(ctx context.Context, d *entity.Debt) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(d).Error; err != nil {
		return fmt.Errorf("insert debt: %w", err)
	}
	return nil
}

func (r *debtGorm) FindOwned(ctx context.Context, id, ownerID uint) (*entity.Debt, error) {
	var d entity.Debt
	err := r.db.WithContext(ctx).Where("id = ? AND owner_id = ?", id, ownerID).First(&d).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, usecase.ErrDebtNotFound
		}
		return nil, fmt.Errorf("find debt: %w", err)
	}
	return &d, nil
}

// Update は所有者が一致する行だけを書き換えます。Save は存在しない行を挿入するため使わない。
func (r *debtGorm) Update(ctx context.Context, d *entity.Debt) error {
	res := r.db.WithContext(ctx).
		Model(d).
		Where("owner_id = ?", d.OwnerID).
		Select(updatableColumns).
		Updates(d)
	if res.Error != nil {
		return fmt.Errorf("update debt: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return usecase.ErrDebtNotFound
	}
	return nil
}

func (r *debtGorm) DeleteOwned(ctx context.Context, id, ownerID uint) error {
	res := r.db.WithContext(ctx).Where("id = ? AND owner_id = ?", id, ownerID).Delete(&entity.Debt{})
	if res.Error != nil {
		return fmt.Errorf("delete debt: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return usecase.ErrDebtNotFound
	}
	return nil
}

// List は件数を数えてから同じ条件でページを読み出します。
func (r *debtGorm) List(ctx context.Context, p usecase.Perspective, userID uint, f usecase.ListFilter) (usecase.Page[entity.Debt], error) {
	filtered := func() *gorm.DB {
		return r.db.WithContext(ctx).
			Model(&entity.Debt{}).
			Scopes(anchor(p, userID), applyFilter(p, f))
	}

	var total int64
	if err := filtered().Count(&total).Error; err != nil {
		return usecase.Page[entity.Debt]{}, fmt.Errorf("count debts: %w", err)
	}

	var ds []entity.Debt
	if total > 0 {
		if err := filtered().Scopes(orderBy(f), paginate(f)).Find(&ds).Error; err != nil {
			return usecase.Page[entity.Debt]{}, fmt.Errorf("list debts: %w", err)
		}
	}
	return usecase.NewPage(ds, total, f.Page, f.PageSize), nil
}

func (r *debtGorm) ListOverdue(ctx context.Context, ownerID uint, asOf time.Time) ([]entity.Debt, error) {
	var ds []entity.Debt
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Scopes(overdueAt(asOf)).
		Order("due_date ASC").Order("id ASC").
		Find(&ds).Error
	if err != nil {
		return nil, fmt.Errorf("list overdue debts: %w", err)
	}
	return ds, nil
}

func (r *debtGorm) ListAllOwned(ctx context.Context, ownerID uint, limit int) ([]entity.Debt, error) {
	var ds []entity.Debt
	q := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&ds).Error; err != nil {
		return nil, fmt.Errorf("list owned debts: %w", err)
	}
	return ds, nil
}

type totalsRow struct {
	TotalCount    int64
	TotalAmount   decimal.Decimal
	PaidCount     int64
	PaidAmount    decimal.Decimal
	OverdueCount  int64
	OverdueAmount decimal.Decimal
}

// Totals は1回の集計クエリで件数と金額を求めます。未払いは全体から支払済みを引いて算出します。
func (r *debtGorm) Totals(ctx context.Context, ownerID uint, asOf time.Time) (usecase.Totals, error) {
	const overdue = "paid = ? AND due_date IS NOT NULL AND due_date < ?"

	var row totalsRow
	err := r.db.WithContext(ctx).
		Model(&entity.Debt{}).
		Select(
			"COUNT(*) AS total_count, "+
				"COALESCE(SUM(amount), 0) AS total_amount, "+
				"COALESCE(SUM(CASE WHEN paid = ? THEN 1 ELSE 0 END), 0) AS paid_count, "+
				"COALESCE(SUM(CASE WHEN paid = ? THEN amount ELSE 0 END), 0) AS paid_amount, "+
				"COALESCE(SUM(CASE WHEN "+overdue+" THEN 1 ELSE 0 END), 0) AS overdue_count, "+
				"COALESCE(SUM(CASE WHEN "+overdue+" THEN amount ELSE 0 END), 0) AS overdue_amount",
			true, true, false, asOf.UTC(), false, asOf.UTC(),
		).
		Where("owner_id = ?", ownerID).
		Scan(&row).Error
	if err != nil {
		return usecase.Totals{}, fmt.Errorf("aggregate debts: %w", err)
	}

	return usecase.Totals{
		TotalCount:    row.TotalCount,
		PendingCount:  row.TotalCount - row.PaidCount,
		PaidCount:     row.PaidCount,
		OverdueCount:  row.OverdueCount,
		TotalAmount:   row.TotalAmount,
		PendingAmount: row.TotalAmount.Sub(row.PaidAmount),
		PaidAmount:    row.PaidAmount,
		OverdueAmount: row.OverdueAmount,
	}, nil
}
