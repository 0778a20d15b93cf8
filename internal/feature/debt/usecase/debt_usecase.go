package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"debt_backend/internal/feature/debt/domain/entity"
	userentity "debt_backend/internal/feature/user/domain/entity"
)

const (
	// debtCacheTTL は単一債務キャッシュの有効期間です。
	debtCacheTTL = 15 * time.Minute
	// statsCacheTTL は統計キャッシュの有効期間です。
	statsCacheTTL = 10 * time.Minute

	// DefaultRecentCount は Recent で件数が省略されたときの件数です。
	DefaultRecentCount = 5
	// ExportLimit はエクスポートに含める債務の上限です。
	ExportLimit = 1000

	summaryRecentCount  = 3
	summaryOverdueCount = 5
)

// DebtRepository は債務の永続化レイヤーを抽象化します。
// Goの慣例に従い、インターフェースは利用者（usecase）側で定義します。
type DebtRepository interface {
	Create(ctx context.Context, d *entity.Debt) error
	// FindOwned は id と ownerID の両方に一致する債務を返します。見つからなければ ErrDebtNotFound。
	FindOwned(ctx context.Context, id, ownerID uint) (*entity.Debt, error)
	// Update は ownerID に属する債務の可変カラムを書き換えます。
	Update(ctx context.Context, d *entity.Debt) error
	DeleteOwned(ctx context.Context, id, ownerID uint) error
	List(ctx context.Context, p Perspective, userID uint, f ListFilter) (Page[entity.Debt], error)
	// ListOverdue は asOf 時点で期限切れの未払い債務を期日の昇順で返します。
	ListOverdue(ctx context.Context, ownerID uint, asOf time.Time) ([]entity.Debt, error)
	// ListAllOwned は作成日時の降順で最大 limit 件を返します。
	ListAllOwned(ctx context.Context, ownerID uint, limit int) ([]entity.Debt, error)
	Totals(ctx context.Context, ownerID uint, asOf time.Time) (Totals, error)
}

// UserDirectory resolves users referenced by debts.
type UserDirectory interface {
	FindByID(ctx context.Context, id uint) (*userentity.User, error)
	FindByIDs(ctx context.Context, ids []uint) (map[uint]userentity.User, error)
}

// Cache is the subset of the key-value cache used by the debt service.
// Failures are absorbed by the implementation.
type Cache interface {
	Get(ctx context.Context, key string, dest any) bool
	Set(ctx context.Context, key string, value any, ttl time.Duration)
	Delete(ctx context.Context, key string)
}

// Totals は所有者ごとの件数と金額の集計です。
type Totals struct {
	TotalCount    int64
	PendingCount  int64
	PaidCount     int64
	OverdueCount  int64
	TotalAmount   decimal.Decimal
	PendingAmount decimal.Decimal
	PaidAmount    decimal.Decimal
	OverdueAmount decimal.Decimal
}

// DebtInput は債務の作成・更新入力です。
type DebtInput struct {
	Title          string
	Description    *string
	Amount         decimal.Decimal
	Currency       string
	CounterpartyID *uint
	DueDate        *time.Time
}

type debtUsecase struct {
	debts DebtRepository
	users UserDirectory
	cache Cache
	now   func() time.Time
}

// NewDebtUsecase は debtUsecase の新しいインスタンスを生成します。
func NewDebtUsecase(debts DebtRepository, users UserDirectory, cache Cache) *debtUsecase {
	return &debtUsecase{
		debts: debts,
		users: users,
		cache: cache,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the clock used for paidAt, overdue checks and timestamps.
func (u *debtUsecase) WithClock(now func() time.Time) *debtUsecase {
	u.now = now
	return u
}

// 金額カラム numeric(18,2) に収まる範囲。
var (
	MinDebtAmount = decimal.New(1, -2)
	MaxDebtAmount = decimal.RequireFromString("9999999999999999.99")
)

func debtKey(id uint) string     { return fmt.Sprintf("debt:%d", id) }
func statsKey(owner uint) string { return fmt.Sprintf("stats:%d", owner) }

// normalizeInput は入力を検証し、保存用に整形した値を返します。
func normalizeInput(in DebtInput) (DebtInput, error) {
	if in.Amount.LessThan(MinDebtAmount) || !in.Amount.Equal(in.Amount.Round(2)) {
		return in, ErrInvalidAmount
	}
	if in.Amount.GreaterThan(MaxDebtAmount) {
		return in, ErrAmountTooLarge
	}
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return in, ErrTitleRequired
	}
	if in.Description != nil {
		desc := strings.TrimSpace(*in.Description)
		if desc == "" {
			in.Description = nil
		} else {
			in.Description = &desc
		}
	}
	in.Currency = strings.ToUpper(strings.TrimSpace(in.Currency))
	if in.Currency == "" {
		in.Currency = entity.DefaultCurrency
	}
	if len(in.Currency) != 3 {
		return in, ErrInvalidCurrency
	}
	for _, r := range in.Currency {
		if r < 'A' || r > 'Z' {
			return in, ErrInvalidCurrency
		}
	}
	if in.DueDate != nil {
		due := in.DueDate.UTC()
		in.DueDate = &due
	}
	return in, nil
}

func (u *debtUsecase) resolveCounterparty(ctx context.Context, id *uint) error {
	if id == nil {
		return nil
	}
	if _, err := u.users.FindByID(ctx, *id); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return ErrCounterpartyNotFound
		}
		return fmt.Errorf("resolve counterparty: %w", err)
	}
	return nil
}

// invalidate は債務と所有者統計のキャッシュを破棄します。
func (u *debtUsecase) invalidate(ctx context.Context, debtID, ownerID uint) {
	if debtID != 0 {
		u.cache.Delete(ctx, debtKey(debtID))
	}
	u.cache.Delete(ctx, statsKey(ownerID))
}

// Create は新しい債務を登録します。
func (u *debtUsecase) Create(ctx context.Context, ownerID uint, in DebtInput) (*DebtView, error) {
	in, err := normalizeInput(in)
	if err != nil {
		return nil, err
	}
	if _, err := u.users.FindByID(ctx, ownerID); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrOwnerNotFound
		}
		return nil, fmt.Errorf("resolve owner: %w", err)
	}
	if err := u.resolveCounterparty(ctx, in.CounterpartyID); err != nil {
		return nil, err
	}

	d := &entity.Debt{
		OwnerID:        ownerID,
		CounterpartyID: in.CounterpartyID,
		Title:          in.Title,
		Description:    in.Description,
		Amount:         in.Amount,
		Currency:       in.Currency,
		DueDate:        in.DueDate,
	}
	if err := u.debts.Create(ctx, d); err != nil {
		return nil, fmt.Errorf("create debt: %w", err)
	}
	slog.Info("debt created", "debt_id", d.ID, "user_id", ownerID)

	u.invalidate(ctx, 0, ownerID)
	return u.view(ctx, d)
}

// Get は所有者の債務を1件取得します。キャッシュヒット時も所有者を照合します。
func (u *debtUsecase) Get(ctx context.Context, id, ownerID uint) (*DebtView, error) {
	var cached DebtView
	if u.cache.Get(ctx, debtKey(id), &cached) {
		if cached.OwnerID == ownerID {
			cached.refresh(u.now())
			return &cached, nil
		}
		slog.Warn("cached debt owner mismatch", "debt_id", id, "user_id", ownerID)
	}

	d, err := u.debts.FindOwned(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	v, err := u.view(ctx, d)
	if err != nil {
		return nil, err
	}
	u.cache.Set(ctx, debtKey(id), v, debtCacheTTL)
	return v, nil
}

// Update は未払いの債務の内容を書き換えます。
func (u *debtUsecase) Update(ctx context.Context, id, ownerID uint, in DebtInput) (*DebtView, error) {
	in, err := normalizeInput(in)
	if err != nil {
		return nil, err
	}
	d, err := u.debts.FindOwned(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	if d.Paid {
		return nil, ErrPaidDebtImmutable
	}
	if err := u.resolveCounterparty(ctx, in.CounterpartyID); err != nil {
		return nil, err
	}

	d.Title = in.Title
	d.Description = in.Description
	d.Amount = in.Amount
	d.Currency = in.Currency
	d.CounterpartyID = in.CounterpartyID
	d.DueDate = in.DueDate
	d.UpdatedAt = u.now()
	if err := u.debts.Update(ctx, d); err != nil {
		return nil, err
	}

	u.invalidate(ctx, id, ownerID)
	return u.view(ctx, d)
}

// Delete は所有者の債務を削除します。
func (u *debtUsecase) Delete(ctx context.Context, id, ownerID uint) error {
	if err := u.debts.DeleteOwned(ctx, id, ownerID); err != nil {
		return err
	}
	slog.Info("debt deleted", "debt_id", id, "user_id", ownerID)
	u.invalidate(ctx, id, ownerID)
	return nil
}

// Pay は債務を支払済みにします。paidAt が nil なら現在時刻を使います。
func (u *debtUsecase) Pay(ctx context.Context, id, ownerID uint, paidAt *time.Time) (*DebtView, error) {
	d, err := u.debts.FindOwned(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	if d.Paid {
		return nil, ErrDebtAlreadyPaid
	}

	at := u.now()
	if paidAt != nil {
		at = paidAt.UTC()
	}
	d.Paid = true
	d.PaidAt = &at
	d.UpdatedAt = u.now()
	if err := u.debts.Update(ctx, d); err != nil {
		return nil, err
	}

	u.invalidate(ctx, id, ownerID)
	return u.view(ctx, d)
}

// Unpay は支払済みの債務を未払いに戻します。
func (u *debtUsecase) Unpay(ctx context.Context, id, ownerID uint) (*DebtView, error) {
	d, err := u.debts.FindOwned(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	if !d.Paid {
		return nil, ErrDebtNotPaid
	}

	d.Paid = false
	d.PaidAt = nil
	d.UpdatedAt = u.now()
	if err := u.debts.Update(ctx, d); err != nil {
		return nil, err
	}

	u.invalidate(ctx, id, ownerID)
	return u.view(ctx, d)
}

func (u *debtUsecase) list(ctx context.Context, p Perspective, userID uint, f ListFilter) (Page[DebtView], error) {
	f = f.Normalize()
	f.AsOf = u.now()

	page, err := u.debts.List(ctx, p, userID, f)
	if err != nil {
		return Page[DebtView]{}, fmt.Errorf("list debts: %w", err)
	}
	views, err := u.views(ctx, page.Items)
	if err != nil {
		return Page[DebtView]{}, err
	}
	return NewPage(views, page.TotalItems, page.Page, page.PageSize), nil
}

// List は所有者（貸し手）として登録した債務を返します。
func (u *debtUsecase) List(ctx context.Context, ownerID uint, f ListFilter) (Page[DebtView], error) {
	return u.list(ctx, PerspectiveOwner, ownerID, f)
}

// ListAsCounterparty は借り手として紐付けられた債務を返します。
func (u *debtUsecase) ListAsCounterparty(ctx context.Context, userID uint, f ListFilter) (Page[DebtView], error) {
	return u.list(ctx, PerspectiveCounterparty, userID, f)
}

// Section is one side of the combined view.
type Section struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Data        Page[DebtView]  `json:"data"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
}

// CombinedSummary は両方向の合計と差額です。
type CombinedSummary struct {
	TotalLent   decimal.Decimal `json:"totalLent"`
	TotalOwed   decimal.Decimal `json:"totalOwed"`
	NetBalance  decimal.Decimal `json:"netBalance"`
	LastUpdated time.Time       `json:"lastUpdated"`
}

// CombinedView は貸し・借りの両方の一覧をまとめたものです。
type CombinedView struct {
	DebtsILent Section         `json:"debtsILent"`
	DebtsIOwe  Section         `json:"debtsIOwe"`
	Summary    CombinedSummary `json:"summary"`
}

func sumAmounts(items []DebtView) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Amount)
	}
	return total
}

// Combined は同じ条件で貸し・借りの両ページを取得し、返却ページ上の合計を算出します。
func (u *debtUsecase) Combined(ctx context.Context, userID uint, f ListFilter) (*CombinedView, error) {
	lent, err := u.List(ctx, userID, f)
	if err != nil {
		return nil, err
	}
	owed, err := u.ListAsCounterparty(ctx, userID, f)
	if err != nil {
		return nil, err
	}

	lentTotal := sumAmounts(lent.Items)
	owedTotal := sumAmounts(owed.Items)
	return &CombinedView{
		DebtsILent: Section{
			Title:       "Debts I lent",
			Description: "Money others owe me",
			Data:        lent,
			TotalAmount: lentTotal,
		},
		DebtsIOwe: Section{
			Title:       "Debts I owe",
			Description: "Money I owe to others",
			Data:        owed,
			TotalAmount: owedTotal,
		},
		Summary: CombinedSummary{
			TotalLent:   lentTotal,
			TotalOwed:   owedTotal,
			NetBalance:  lentTotal.Sub(owedTotal),
			LastUpdated: u.now(),
		},
	}, nil
}

// Overdue は期限切れの未払い債務を期日の早い順に返します。
func (u *debtUsecase) Overdue(ctx context.Context, ownerID uint) ([]DebtView, error) {
	ds, err := u.debts.ListOverdue(ctx, ownerID, u.now())
	if err != nil {
		return nil, fmt.Errorf("list overdue debts: %w", err)
	}
	return u.views(ctx, ds)
}

// Recent は作成日時の新しい順に count 件を返します。
func (u *debtUsecase) Recent(ctx context.Context, ownerID uint, count int) ([]DebtView, error) {
	if count < 1 {
		count = DefaultRecentCount
	}
	if count > MaxPageSize {
		count = MaxPageSize
	}
	page, err := u.List(ctx, ownerID, ListFilter{
		OrderBy:        OrderByCreatedAt,
		OrderDirection: "desc",
		Page:           1,
		PageSize:       count,
	})
	if err != nil {
		return nil, err
	}
	return page.Items, nil
}

// Search はタイトルと説明文を大文字小文字を区別せずに部分一致検索します。
func (u *debtUsecase) Search(ctx context.Context, ownerID uint, term string, page, pageSize int) (Page[DebtView], error) {
	return u.List(ctx, ownerID, ListFilter{Search: term, Page: page, PageSize: pageSize})
}

// Statistics は所有者の債務集計です。
type Statistics struct {
	TotalDebts    int64           `json:"totalDebts"`
	PendingDebts  int64           `json:"pendingDebts"`
	PaidDebts     int64           `json:"paidDebts"`
	OverdueDebts  int64           `json:"overdueDebts"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	PendingAmount decimal.Decimal `json:"pendingAmount"`
	PaidAmount    decimal.Decimal `json:"paidAmount"`
	OverdueAmount decimal.Decimal `json:"overdueAmount"`
	Currency      string          `json:"currency"`
	LastUpdated   time.Time       `json:"lastUpdated"`
}

// Statistics は集計をキャッシュ経由で返します。
func (u *debtUsecase) Statistics(ctx context.Context, ownerID uint) (*Statistics, error) {
	var cached Statistics
	if u.cache.Get(ctx, statsKey(ownerID), &cached) {
		return &cached, nil
	}

	now := u.now()
	t, err := u.debts.Totals(ctx, ownerID, now)
	if err != nil {
		return nil, fmt.Errorf("debt totals: %w", err)
	}
	stats := &Statistics{
		TotalDebts:    t.TotalCount,
		PendingDebts:  t.PendingCount,
		PaidDebts:     t.PaidCount,
		OverdueDebts:  t.OverdueCount,
		TotalAmount:   t.TotalAmount.Round(2),
		PendingAmount: t.PendingAmount.Round(2),
		PaidAmount:    t.PaidAmount.Round(2),
		OverdueAmount: t.OverdueAmount.Round(2),
		Currency:      entity.DefaultCurrency,
		LastUpdated:   now,
	}
	u.cache.Set(ctx, statsKey(ownerID), stats, statsCacheTTL)
	return stats, nil
}

// Summary はダッシュボード向けの概要です。
type Summary struct {
	Statistics   *Statistics `json:"statistics"`
	RecentDebts  []DebtView  `json:"recentDebts"`
	OverdueDebts []DebtView  `json:"overdueDebts"`
	LastUpdated  time.Time   `json:"lastUpdated"`
}

// Summary は統計、直近3件、期限切れ先頭5件をまとめて返します。
func (u *debtUsecase) Summary(ctx context.Context, ownerID uint) (*Summary, error) {
	stats, err := u.Statistics(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	recent, err := u.Recent(ctx, ownerID, summaryRecentCount)
	if err != nil {
		return nil, err
	}
	overdue, err := u.Overdue(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if len(overdue) > summaryOverdueCount {
		overdue = overdue[:summaryOverdueCount]
	}
	return &Summary{
		Statistics:   stats,
		RecentDebts:  recent,
		OverdueDebts: overdue,
		LastUpdated:  u.now(),
	}, nil
}
