package api

import (
	"fmt"
	"net/url"
	"time"

	"github.com/oapi-codegen/runtime"
)

// DebtListParams は債務一覧エンドポイントのクエリパラメータです。
// 省略された値は nil のままになります。
type DebtListParams struct {
	IsPaid         *bool
	DebtorID       *int
	MinAmount      *string
	MaxAmount      *string
	FromDate       *time.Time
	ToDate         *time.Time
	Currency       *string
	IsOverdue      *bool
	Search         *string
	OrderBy        *string
	OrderDirection *string
	Page           *int
	PageSize       *int
}

// BindDebtListParams は form スタイルのクエリを型付きの値に変換します。
func BindDebtListParams(q url.Values) (DebtListParams, error) {
	var p DebtListParams
	binds := []struct {
		name string
		dest any
	}{
		{"isPaid", &p.IsPaid},
		{"debtorId", &p.DebtorID},
		{"minAmount", &p.MinAmount},
		{"maxAmount", &p.MaxAmount},
		{"fromDate", &p.FromDate},
		{"toDate", &p.ToDate},
		{"currency", &p.Currency},
		{"isOverdue", &p.IsOverdue},
		{"search", &p.Search},
		{"orderBy", &p.OrderBy},
		{"orderDirection", &p.OrderDirection},
		{"page", &p.Page},
		{"pageSize", &p.PageSize},
	}
	for _, b := range binds {
		if err := BindOptional(q, b.name, b.dest); err != nil {
			return DebtListParams{}, err
		}
	}
	return p, nil
}

// BindOptional binds a single optional query parameter into dest.
func BindOptional(q url.Values, name string, dest any) error {
	if err := runtime.BindQueryParameter("form", true, false, name, q, dest); err != nil {
		return fmt.Errorf("invalid query parameter %s: %w", name, err)
	}
	return nil
}
