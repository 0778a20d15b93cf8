package adapters

import (
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"debt_backend/internal/feature/debt/usecase"
)

// orderColumns はソートキーから列名への対応表です。ここに無い値は使われません。
var orderColumns = map[usecase.OrderField]string{
	usecase.OrderByAmount:    "amount",
	usecase.OrderByDueDate:   "due_date",
	usecase.OrderByTitle:     "title",
	usecase.OrderByPaid:      "paid",
	usecase.OrderByUpdatedAt: "updated_at",
	usecase.OrderByCreatedAt: "created_at",
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// anchor は立場に応じた基点条件です。他のフィルターはこの後に適用します。
func anchor(p usecase.Perspective, userID uint) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if p == usecase.PerspectiveCounterparty {
			return db.Where("counterparty_id = ?", userID)
		}
		return db.Where("owner_id = ?", userID)
	}
}

func applyFilter(p usecase.Perspective, f usecase.ListFilter) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if f.Paid != nil {
			db = db.Where("paid = ?", *f.Paid)
		}
		// 借り手視点では基点条件と矛盾するため無視する
		if f.CounterpartyID != nil && p == usecase.PerspectiveOwner {
			db = db.Where("counterparty_id = ?", *f.CounterpartyID)
		}
		if f.MinAmount != nil {
			db = db.Where("amount >= ?", *f.MinAmount)
		}
		if f.MaxAmount != nil {
			db = db.Where("amount <= ?", *f.MaxAmount)
		}
		if f.FromDate != nil {
			db = db.Where("created_at >= ?", f.FromDate.UTC())
		}
		if f.ToDate != nil {
			db = db.Where("created_at <= ?", f.ToDate.UTC())
		}
		if f.Currency != "" {
			db = db.Where("currency = ?", strings.ToUpper(f.Currency))
		}
		if f.Overdue {
			db = db.Scopes(overdueAt(f.AsOf))
		}
		if term := strings.TrimSpace(f.Search); term != "" {
			pattern := "%" + likeEscaper.Replace(strings.ToLower(term)) + "%"
			db = db.Where(
				`(LOWER(title) LIKE ? ESCAPE '\' OR LOWER(COALESCE(description, '')) LIKE ? ESCAPE '\')`,
				pattern, pattern,
			)
		}
		return db
	}
}

// overdueAt は asOf 時点で期限を過ぎた未払い債務に絞り込みます。
func overdueAt(asOf time.Time) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("paid = ? AND due_date IS NOT NULL AND due_date < ?", false, asOf.UTC())
	}
}

// orderBy は許可された列で並べ、同値の行は id で同じ向きに並べます。
func orderBy(f usecase.ListFilter) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		col, ok := orderColumns[f.OrderBy]
		if !ok {
			col = "created_at"
		}
		desc := f.Descending()
		return db.Order(clause.OrderBy{Columns: []clause.OrderByColumn{
			{Column: clause.Column{Name: col}, Desc: desc},
			{Column: clause.Column{Name: "id"}, Desc: desc},
		}})
	}
}

func paginate(f usecase.ListFilter) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Offset((f.Page - 1) * f.PageSize).Limit(f.PageSize)
	}
}
