package usecase

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// DefaultPage is the page used when none (or a value below 1) is given.
	DefaultPage = 1
	// DefaultPageSize is the page size used when the requested one is out of range.
	DefaultPageSize = 10
	// MaxPageSize is the largest accepted page size.
	MaxPageSize = 100
)

// Perspective は一覧の基準となる立場（貸し手か借り手か）です。
type Perspective int

const (
	// PerspectiveOwner lists debts the user owns (money lent).
	PerspectiveOwner Perspective = iota
	// PerspectiveCounterparty lists debts where the user is the counterparty (money owed).
	PerspectiveCounterparty
)

// OrderField is a whitelisted sort key.
type OrderField string

const (
	OrderByAmount    OrderField = "amount"
	OrderByDueDate   OrderField = "dueDate"
	OrderByTitle     OrderField = "title"
	OrderByPaid      OrderField = "paid"
	OrderByUpdatedAt OrderField = "updatedAt"
	OrderByCreatedAt OrderField = "createdAt"
)

// ParseOrderField は大文字小文字を区別せずにソートキーを解決します。
// 未知の値はエラーにせず createdAt にフォールバックします。
func ParseOrderField(s string) OrderField {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "amount":
		return OrderByAmount
	case "duedate":
		return OrderByDueDate
	case "title":
		return OrderByTitle
	case "paid", "ispaid":
		return OrderByPaid
	case "updatedat":
		return OrderByUpdatedAt
	default:
		return OrderByCreatedAt
	}
}

// ListFilter は債務一覧の検索条件です。nil やゼロ値の条件は適用されません。
type ListFilter struct {
	Paid           *bool
	CounterpartyID *uint
	MinAmount      *decimal.Decimal
	MaxAmount      *decimal.Decimal
	FromDate       *time.Time
	ToDate         *time.Time
	Currency       string
	Overdue        bool
	Search         string

	OrderBy        OrderField
	OrderDirection string

	Page     int
	PageSize int

	// AsOf is the instant the overdue predicate is evaluated at.
	AsOf time.Time
}

// Normalize はページングとソート条件を既定の範囲に収めたコピーを返します。
func (f ListFilter) Normalize() ListFilter {
	if f.Page < 1 {
		f.Page = DefaultPage
	}
	if f.PageSize < 1 || f.PageSize > MaxPageSize {
		f.PageSize = DefaultPageSize
	}
	f.OrderBy = ParseOrderField(string(f.OrderBy))
	if strings.EqualFold(strings.TrimSpace(f.OrderDirection), "asc") {
		f.OrderDirection = "asc"
	} else {
		f.OrderDirection = "desc"
	}
	f.Currency = strings.ToUpper(strings.TrimSpace(f.Currency))
	f.Search = strings.TrimSpace(f.Search)
	return f
}

// Descending reports whether results are sorted in descending order.
func (f ListFilter) Descending() bool {
	return f.OrderDirection != "asc"
}

// Page はページング済みの結果です。
type Page[T any] struct {
	Items           []T   `json:"items"`
	TotalItems      int64 `json:"totalItems"`
	Page            int   `json:"page"`
	PageSize        int   `json:"pageSize"`
	TotalPages      int   `json:"totalPages"`
	HasNextPage     bool  `json:"hasNextPage"`
	HasPreviousPage bool  `json:"hasPreviousPage"`
}

// NewPage builds a Page and derives the page counters from total and pageSize.
func NewPage[T any](items []T, total int64, page, pageSize int) Page[T] {
	if items == nil {
		items = []T{}
	}
	totalPages := 0
	if pageSize > 0 {
		totalPages = int((total + int64(pageSize) - 1) / int64(pageSize))
	}
	return Page[T]{
		Items:           items,
		TotalItems:      total,
		Page:            page,
		PageSize:        pageSize,
		TotalPages:      totalPages,
		HasNextPage:     page < totalPages,
		HasPreviousPage: page > 1,
	}
}

// MapPage converts the items of p with fn, keeping the counters.
func MapPage[T, U any](p Page[T], fn func(T) U) Page[U] {
	items := make([]U, 0, len(p.Items))
	for _, it := range p.Items {
		items = append(items, fn(it))
	}
	return Page[U]{
		Items:           items,
		TotalItems:      p.TotalItems,
		Page:            p.Page,
		PageSize:        p.PageSize,
		TotalPages:      p.TotalPages,
		HasNextPage:     p.HasNextPage,
		HasPreviousPage: p.HasPreviousPage,
	}
}
