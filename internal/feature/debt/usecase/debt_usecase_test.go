package usecase_test

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"debt_backend/internal/feature/debt/domain/entity"
	"debt_backend/internal/feature/debt/usecase"
	userentity "debt_backend/internal/feature/user/domain/entity"
)

// ErrDB はモックと期待値の間で共有されるセンチネルエラーです。
var ErrDB = errors.New("database error")

var fixedNow = time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)

// mockDebtRepository はDebtRepositoryインターフェースのモック実装です。
type mockDebtRepository struct {
	CreateFunc       func(ctx context.Context, d *entity.Debt) error
	FindOwnedFunc    func(ctx context.Context, id, ownerID uint) (*entity.Debt, error)
	UpdateFunc       func(ctx context.Context, d *entity.Debt) error
	DeleteOwnedFunc  func(ctx context.Context, id, ownerID uint) error
	ListFunc         func(ctx context.Context, p usecase.Perspective, userID uint, f usecase.ListFilter) (usecase.Page[entity.Debt], error)
	ListOverdueFunc  func(ctx context.Context, ownerID uint, asOf time.Time) ([]entity.Debt, error)
	ListAllOwnedFunc func(ctx context.Context, ownerID uint, limit int) ([]entity.Debt, error)
	TotalsFunc       func(ctx context.Context, ownerID uint, asOf time.Time) (usecase.Totals, error)

	CreateCalls int
	UpdateCalls int
	TotalsCalls int
}

func (m *mockDebtRepository) Create(ctx context.Context, d *entity.Debt) error {
	m.CreateCalls++
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, d)
	}
	return errors.New("CreateFunc is not implemented")
}

func (m *mockDebtRepository) FindOwned(ctx context.Context, id, ownerID uint) (*entity.Debt, error) {
	if m.FindOwnedFunc != nil {
		return m.FindOwnedFunc(ctx, id, ownerID)
	}
	return nil, errors.New("FindOwnedFunc is not implemented")
}

func (m *mockDebtRepository) Update(ctx context.Context, d *entity.Debt) error {
	m.UpdateCalls++
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, d)
	}
	return errors.New("UpdateFunc is not implemented")
}

func (m *mockDebtRepository) DeleteOwned(ctx context.Context, id, ownerID uint) error {
	if m.DeleteOwnedFunc != nil {
		return m.DeleteOwnedFunc(ctx, id, ownerID)
	}
	return errors.New("DeleteOwnedFunc is not implemented")
}

func (m *mockDebtRepository) List(ctx context.Context, p usecase.Perspective, userID uint, f usecase.ListFilter) (usecase.Page[entity.Debt], error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, p, userID, f)
	}
	return usecase.Page[entity.Debt]{}, errors.New("ListFunc is not implemented")
}

func (m *mockDebtRepository) ListOverdue(ctx context.Context, ownerID uint, asOf time.Time) ([]entity.Debt, error) {
	if m.ListOverdueFunc != nil {
		return m.ListOverdueFunc(ctx, ownerID, asOf)
	}
	return nil, errors.New("ListOverdueFunc is not implemented")
}

func (m *mockDebtRepository) ListAllOwned(ctx context.Context, ownerID uint, limit int) ([]entity.Debt, error) {
	if m.ListAllOwnedFunc != nil {
		return m.ListAllOwnedFunc(ctx, ownerID, limit)
	}
	return nil, errors.New("ListAllOwnedFunc is not implemented")
}

func (m *mockDebtRepository) Totals(ctx context.Context, ownerID uint, asOf time.Time) (usecase.Totals, error) {
	m.TotalsCalls++
	if m.TotalsFunc != nil {
		return m.TotalsFunc(ctx, ownerID, asOf)
	}
	return usecase.Totals{}, errors.New("TotalsFunc is not implemented")
}

// stubUsers はメモリ上のユーザー一覧です。
type stubUsers map[uint]userentity.User

func (s stubUsers) FindByID(_ context.Context, id uint) (*userentity.User, error) {
	u, ok := s[id]
	if !ok {
		return nil, usecase.ErrUserNotFound
	}
	return &u, nil
}

func (s stubUsers) FindByIDs(_ context.Context, ids []uint) (map[uint]userentity.User, error) {
	out := make(map[uint]userentity.User, len(ids))
	for _, id := range ids {
		if u, ok := s[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}

// memCache はJSONで値を保持するキャッシュのモックです。
type memCache struct {
	data    map[string][]byte
	deleted []string
}

func newMemCache() *memCache {
	return &memCache{data: map[string][]byte{}}
}

func (c *memCache) Get(_ context.Context, key string, dest any) bool {
	b, ok := c.data[key]
	if !ok {
		return false
	}
	return json.Unmarshal(b, dest) == nil
}

func (c *memCache) Set(_ context.Context, key string, value any, _ time.Duration) {
	b, err := json.Marshal(value)
	if err == nil {
		c.data[key] = b
	}
}

func (c *memCache) Delete(_ context.Context, key string) {
	c.deleted = append(c.deleted, key)
	delete(c.data, key)
}

func testUsers() stubUsers {
	return stubUsers{
		1: {ID: 1, Email: "ana@example.com", FirstName: "Ana", LastName: "Gomez"},
		2: {ID: 2, Email: "luis@example.com", FirstName: "Luis", LastName: "Perez"},
	}
}

func ptr[T any](v T) *T { return &v }

func newUsecase(repo *mockDebtRepository, cache *memCache) usecaseUnderTest {
	return usecase.NewDebtUsecase(repo, testUsers(), cache).WithClock(func() time.Time { return fixedNow })
}

// usecaseUnderTest はテスト対象のメソッド集合です。
type usecaseUnderTest interface {
	Create(ctx context.Context, ownerID uint, in usecase.DebtInput) (*usecase.DebtView, error)
	Get(ctx context.Context, id, ownerID uint) (*usecase.DebtView, error)
	Update(ctx context.Context, id, ownerID uint, in usecase.DebtInput) (*usecase.DebtView, error)
	Delete(ctx context.Context, id, ownerID uint) error
	Pay(ctx context.Context, id, ownerID uint, paidAt *time.Time) (*usecase.DebtView, error)
	Unpay(ctx context.Context, id, ownerID uint) (*usecase.DebtView, error)
	List(ctx context.Context, ownerID uint, f usecase.ListFilter) (usecase.Page[usecase.DebtView], error)
	Combined(ctx context.Context, userID uint, f usecase.ListFilter) (*usecase.CombinedView, error)
	Overdue(ctx context.Context, ownerID uint) ([]usecase.DebtView, error)
	Recent(ctx context.Context, ownerID uint, count int) ([]usecase.DebtView, error)
	Search(ctx context.Context, ownerID uint, term string, page, pageSize int) (usecase.Page[usecase.DebtView], error)
	Statistics(ctx context.Context, ownerID uint) (*usecase.Statistics, error)
	Summary(ctx context.Context, ownerID uint) (*usecase.Summary, error)
	Export(ctx context.Context, ownerID uint, format string) (*usecase.ExportFile, error)
}

// TestDebtUsecase_Create_Validation は不正な入力が保存前に拒否されることを検証します。
func TestDebtUsecase_Create_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   usecase.DebtInput
		wantErr error
	}{
		{"zero amount", usecase.DebtInput{Title: "Lunch", Amount: decimal.Zero}, usecase.ErrInvalidAmount},
		{"negative amount", usecase.DebtInput{Title: "Lunch", Amount: decimal.NewFromInt(-5)}, usecase.ErrInvalidAmount},
		{"amount below one cent", usecase.DebtInput{Title: "Tiny", Amount: decimal.RequireFromString("0.001")}, usecase.ErrInvalidAmount},
		{"amount with three decimals", usecase.DebtInput{Title: "Lunch", Amount: decimal.RequireFromString("10.125")}, usecase.ErrInvalidAmount},
		{"amount over 16 integer digits", usecase.DebtInput{Title: "Lunch", Amount: decimal.RequireFromString("10000000000000000")}, usecase.ErrAmountTooLarge},
		{"blank title", usecase.DebtInput{Title: "   ", Amount: decimal.NewFromInt(10)}, usecase.ErrTitleRequired},
		{"bad currency", usecase.DebtInput{Title: "Lunch", Amount: decimal.NewFromInt(10), Currency: "PESO"}, usecase.ErrInvalidCurrency},
		{"unknown counterparty", usecase.DebtInput{Title: "Lunch", Amount: decimal.NewFromInt(10), CounterpartyID: ptr(uint(99))}, usecase.ErrCounterpartyNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			repo := &mockDebtRepository{CreateFunc: func(ctx context.Context, d *entity.Debt) error { return nil }}
			uc := newUsecase(repo, newMemCache())

			_, err := uc.Create(context.Background(), 1, tt.input)

			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, 0, repo.CreateCalls, "store must not be touched")
		})
	}
}

// TestDebtUsecase_Create_OwnerMissing は存在しない所有者での作成が拒否されることを検証します。
func TestDebtUsecase_Create_OwnerMissing(t *testing.T) {
	t.Parallel()

	repo := &mockDebtRepository{}
	uc := newUsecase(repo, newMemCache())

	_, err := uc.Create(context.Background(), 42, usecase.DebtInput{Title: "Lunch", Amount: decimal.NewFromInt(10)})

	assert.ErrorIs(t, err, usecase.ErrOwnerNotFound)
	assert.Equal(t, 0, repo.CreateCalls)
}

// TestDebtUsecase_Create_Success は既定通貨の補完、整形、統計キャッシュの破棄を検証します。
func TestDebtUsecase_Create_Success(t *testing.T) {
	t.Parallel()

	var stored *entity.Debt
	repo := &mockDebtRepository{
		CreateFunc: func(ctx context.Context, d *entity.Debt) error {
			d.ID = 7
			d.CreatedAt = fixedNow
			d.UpdatedAt = fixedNow
			stored = d
			return nil
		},
	}
	cache := newMemCache()
	cache.Set(context.Background(), "stats:1", usecase.Statistics{TotalDebts: 3}, 0)
	uc := newUsecase(repo, cache)

	v, err := uc.Create(context.Background(), 1, usecase.DebtInput{
		Title:          "  Lunch ",
		Description:    ptr("  "),
		Amount:         decimal.NewFromInt(50000),
		CounterpartyID: ptr(uint(2)),
	})
	require.NoError(t, err)

	assert.Equal(t, "Lunch", stored.Title)
	assert.Nil(t, stored.Description)
	assert.Equal(t, "COP", stored.Currency)
	assert.False(t, stored.Paid)
	assert.Nil(t, stored.PaidAt)

	assert.Equal(t, uint(7), v.ID)
	assert.True(t, v.Amount.Equal(decimal.NewFromInt(50000)))
	assert.Equal(t, "Pending", v.Status)
	assert.Equal(t, "Ana Gomez", v.OwnerName)
	require.NotNil(t, v.DebtorName)
	assert.Equal(t, "Luis Perez", *v.DebtorName)
	assert.Equal(t, "luis@example.com", *v.DebtorEmail)
	assert.Equal(t, "50,000.00 COP", v.FormattedAmount)
	assert.Contains(t, cache.deleted, "stats:1")
}

// TestDebtUsecase_Create_StoreError はストアのエラーがラップされて返ることを検証します。
func TestDebtUsecase_Create_StoreError(t *testing.T) {
	t.Parallel()

	repo := &mockDebtRepository{CreateFunc: func(ctx context.Context, d *entity.Debt) error { return ErrDB }}
	uc := newUsecase(repo, newMemCache())

	_, err := uc.Create(context.Background(), 1, usecase.DebtInput{Title: "Lunch", Amount: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, ErrDB)
}

// TestDebtUsecase_Get_CacheAside はキャッシュミスでストアを読み、次回はキャッシュから返すことを検証します。
func TestDebtUsecase_Get_CacheAside(t *testing.T) {
	t.Parallel()

	finds := 0
	repo := &mockDebtRepository{
		FindOwnedFunc: func(ctx context.Context, id, ownerID uint) (*entity.Debt, error) {
			finds++
			return &entity.Debt{ID: id, OwnerID: ownerID, Title: "Rent", Amount: decimal.NewFromInt(100), Currency: "COP"}, nil
		},
	}
	cache := newMemCache()
	uc := newUsecase(repo, cache)

	first, err := uc.Get(context.Background(), 5, 1)
	require.NoError(t, err)
	second, err := uc.Get(context.Background(), 5, 1)
	require.NoError(t, err)

	assert.Equal(t, 1, finds)
	assert.Equal(t, first.Title, second.Title)
	assert.Contains(t, cache.data, "debt:5")
}

// TestDebtUsecase_Get_CachedOwnerMismatch はキャッシュ上の所有者が異なる場合にストアで再確認することを検証します。
func TestDebtUsecase_Get_CachedOwnerMismatch(t *testing.T) {
	t.Parallel()

	cache := newMemCache()
	cache.Set(context.Background(), "debt:5", usecase.DebtView{ID: 5, OwnerID: 2, Title: "Other"}, 0)
	repo := &mockDebtRepository{
		FindOwnedFunc: func(ctx context.Context, id, ownerID uint) (*entity.Debt, error) {
			return nil, usecase.ErrDebtNotFound
		},
	}
	uc := newUsecase(repo, cache)

	_, err := uc.Get(context.Background(), 5, 1)
	assert.ErrorIs(t, err, usecase.ErrDebtNotFound)
}

// TestDebtUsecase_Update_PaidDebtRejected は支払済み債務の更新が拒否されることを検証します。
func TestDebtUsecase_Update_PaidDebtRejected(t *testing.T) {
	t.Parallel()

	repo := &mockDebtRepository{
		FindOwnedFunc: func(ctx context.Context, id, ownerID uint) (*entity.Debt, error) {
			return &entity.Debt{ID: id, OwnerID: ownerID, Paid: true, PaidAt: &fixedNow}, nil
		},
	}
	uc := newUsecase(repo, newMemCache())

	_, err := uc.Update(context.Background(), 3, 1, usecase.DebtInput{Title: "New", Amount: decimal.NewFromInt(10)})

	assert.ErrorIs(t, err, usecase.ErrPaidDebtImmutable)
	assert.Equal(t, 0, repo.UpdateCalls)
}

// TestDebtUsecase_PayUnpayLifecycle は支払・取消の状態遷移とpaidAtの整合性を検証します。
func TestDebtUsecase_PayUnpayLifecycle(t *testing.T) {
	t.Parallel()

	current := &entity.Debt{ID: 9, OwnerID: 1, Title: "Lunch", Amount: decimal.NewFromInt(50000), Currency: "COP"}
	repo := &mockDebtRepository{
		FindOwnedFunc: func(ctx context.Context, id, ownerID uint) (*entity.Debt, error) {
			cp := *current
			return &cp, nil
		},
		UpdateFunc: func(ctx context.Context, d *entity.Debt) error {
			cp := *d
			current = &cp
			return nil
		},
	}
	cache := newMemCache()
	uc := newUsecase(repo, cache)
	ctx := context.Background()

	_, err := uc.Unpay(ctx, 9, 1)
	assert.ErrorIs(t, err, usecase.ErrDebtNotPaid)

	v, err := uc.Pay(ctx, 9, 1, nil)
	require.NoError(t, err)
	require.NotNil(t, v.PaidAt)
	assert.True(t, v.PaidAt.Equal(fixedNow))
	assert.Equal(t, "Paid", v.Status)

	_, err = uc.Pay(ctx, 9, 1, nil)
	assert.ErrorIs(t, err, usecase.ErrDebtAlreadyPaid)

	_, err = uc.Update(ctx, 9, 1, usecase.DebtInput{Title: "Dinner", Amount: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, usecase.ErrPaidDebtImmutable)

	v, err = uc.Unpay(ctx, 9, 1)
	require.NoError(t, err)
	assert.Nil(t, v.PaidAt)
	assert.Equal(t, "Pending", v.Status)

	_, err = uc.Unpay(ctx, 9, 1)
	assert.ErrorIs(t, err, usecase.ErrDebtNotPaid)

	v, err = uc.Update(ctx, 9, 1, usecase.DebtInput{Title: "Dinner", Amount: decimal.NewFromInt(1)})
	require.NoError(t, err)
	assert.Equal(t, "Dinner", v.Title)

	assert.Contains(t, cache.deleted, "debt:9")
	assert.Contains(t, cache.deleted, "stats:1")
}

// TestDebtUsecase_Pay_ExplicitTimestamp は指定した支払日時が保存されることを検証します。
func TestDebtUsecase_Pay_ExplicitTimestamp(t *testing.T) {
	t.Parallel()

	paidAt := time.Date(2025, 2, 1, 8, 0, 0, 0, time.FixedZone("COT", -5*3600))
	repo := &mockDebtRepository{
		FindOwnedFunc: func(ctx context.Context, id, ownerID uint) (*entity.Debt, error) {
			return &entity.Debt{ID: id, OwnerID: ownerID, Amount: decimal.NewFromInt(1), Currency: "COP"}, nil
		},
		UpdateFunc: func(ctx context.Context, d *entity.Debt) error { return nil },
	}
	uc := newUsecase(repo, newMemCache())

	v, err := uc.Pay(context.Background(), 1, 1, &paidAt)
	require.NoError(t, err)
	assert.True(t, v.PaidAt.Equal(paidAt))
	assert.Equal(t, time.UTC, v.PaidAt.Location())
}

// TestDebtUsecase_Delete はストア削除後にキャッシュが破棄されることを検証します。
func TestDebtUsecase_Delete(t *testing.T) {
	t.Parallel()

	t.Run("success", func(t *testing.T) {
		t.Parallel()
		repo := &mockDebtRepository{DeleteOwnedFunc: func(ctx context.Context, id, ownerID uint) error { return nil }}
		cache := newMemCache()
		uc := newUsecase(repo, cache)

		require.NoError(t, uc.Delete(context.Background(), 4, 1))
		assert.ElementsMatch(t, []string{"debt:4", "stats:1"}, cache.deleted)
	})

	t.Run("not found", func(t *testing.T) {
		t.Parallel()
		repo := &mockDebtRepository{DeleteOwnedFunc: func(ctx context.Context, id, ownerID uint) error { return usecase.ErrDebtNotFound }}
		cache := newMemCache()
		uc := newUsecase(repo, cache)

		assert.ErrorIs(t, uc.Delete(context.Background(), 4, 1), usecase.ErrDebtNotFound)
		assert.Empty(t, cache.deleted)
	})
}

// TestDebtUsecase_List_NormalizesFilter はページング既定値と評価時刻がリポジトリに渡ることを検証します。
func TestDebtUsecase_List_NormalizesFilter(t *testing.T) {
	t.Parallel()

	var got usecase.ListFilter
	repo := &mockDebtRepository{
		ListFunc: func(ctx context.Context, p usecase.Perspective, userID uint, f usecase.ListFilter) (usecase.Page[entity.Debt], error) {
			got = f
			assert.Equal(t, usecase.PerspectiveOwner, p)
			return usecase.NewPage([]entity.Debt{
				{ID: 1, OwnerID: 1, Amount: decimal.NewFromInt(10), Currency: "COP", DueDate: ptr(fixedNow.Add(-48 * time.Hour))},
			}, 11, f.Page, f.PageSize), nil
		},
	}
	uc := newUsecase(repo, newMemCache())

	page, err := uc.List(context.Background(), 1, usecase.ListFilter{Page: 0, PageSize: 500, OrderBy: "AMOUNT", OrderDirection: "ASC"})
	require.NoError(t, err)

	assert.Equal(t, 1, got.Page)
	assert.Equal(t, 10, got.PageSize)
	assert.Equal(t, usecase.OrderByAmount, got.OrderBy)
	assert.Equal(t, "asc", got.OrderDirection)
	assert.Equal(t, fixedNow, got.AsOf)

	assert.Equal(t, 2, page.TotalPages)
	assert.True(t, page.HasNextPage)
	require.Len(t, page.Items, 1)
	assert.True(t, page.Items[0].IsOverdue)
	require.NotNil(t, page.Items[0].DaysUntilDue)
	assert.Equal(t, -2, *page.Items[0].DaysUntilDue)
}

// TestDebtUsecase_Combined は貸し・借りの合計と差額を検証します。
func TestDebtUsecase_Combined(t *testing.T) {
	t.Parallel()

	repo := &mockDebtRepository{
		ListFunc: func(ctx context.Context, p usecase.Perspective, userID uint, f usecase.ListFilter) (usecase.Page[entity.Debt], error) {
			if p == usecase.PerspectiveOwner {
				return usecase.NewPage([]entity.Debt{
					{ID: 1, OwnerID: 1, CounterpartyID: ptr(uint(2)), Amount: decimal.RequireFromString("100.50"), Currency: "COP"},
					{ID: 2, OwnerID: 1, Amount: decimal.NewFromInt(200), Currency: "COP"},
				}, 2, f.Page, f.PageSize), nil
			}
			return usecase.NewPage([]entity.Debt{
				{ID: 3, OwnerID: 2, CounterpartyID: ptr(uint(1)), Amount: decimal.NewFromInt(50), Currency: "COP"},
			}, 1, f.Page, f.PageSize), nil
		},
	}
	uc := newUsecase(repo, newMemCache())

	v, err := uc.Combined(context.Background(), 1, usecase.ListFilter{})
	require.NoError(t, err)

	assert.Equal(t, "300.5", v.Summary.TotalLent.String())
	assert.Equal(t, "50", v.Summary.TotalOwed.String())
	assert.Equal(t, "250.5", v.Summary.NetBalance.String())
	assert.Len(t, v.DebtsILent.Data.Items, 2)
	assert.Len(t, v.DebtsIOwe.Data.Items, 1)
	assert.Equal(t, "Luis Perez", v.DebtsIOwe.Data.Items[0].OwnerName)
}

// TestDebtUsecase_RecentAndSearch は一覧クエリのパラメータ化を検証します。
func TestDebtUsecase_RecentAndSearch(t *testing.T) {
	t.Parallel()

	var filters []usecase.ListFilter
	repo := &mockDebtRepository{
		ListFunc: func(ctx context.Context, p usecase.Perspective, userID uint, f usecase.ListFilter) (usecase.Page[entity.Debt], error) {
			filters = append(filters, f)
			return usecase.NewPage[entity.Debt](nil, 0, f.Page, f.PageSize), nil
		},
	}
	uc := newUsecase(repo, newMemCache())

	items, err := uc.Recent(context.Background(), 1, 0)
	require.NoError(t, err)
	assert.NotNil(t, items)

	_, err = uc.Search(context.Background(), 1, " lunch ", 2, 20)
	require.NoError(t, err)

	_, err = uc.Recent(context.Background(), 1, 500)
	require.NoError(t, err)

	require.Len(t, filters, 3)
	assert.Equal(t, usecase.MaxPageSize, filters[2].PageSize)
	assert.Equal(t, usecase.DefaultRecentCount, filters[0].PageSize)
	assert.Equal(t, usecase.OrderByCreatedAt, filters[0].OrderBy)
	assert.True(t, filters[0].Descending())
	assert.Equal(t, "lunch", filters[1].Search)
	assert.Equal(t, 2, filters[1].Page)
	assert.Equal(t, 20, filters[1].PageSize)
}

// TestDebtUsecase_Statistics_CacheAside は統計がキャッシュされ、2回目はストアを読まないことを検証します。
func TestDebtUsecase_Statistics_CacheAside(t *testing.T) {
	t.Parallel()

	repo := &mockDebtRepository{
		TotalsFunc: func(ctx context.Context, ownerID uint, asOf time.Time) (usecase.Totals, error) {
			assert.Equal(t, fixedNow, asOf)
			return usecase.Totals{
				TotalCount: 3, PendingCount: 2, PaidCount: 1, OverdueCount: 1,
				TotalAmount:   decimal.NewFromFloat(30.299999999),
				PendingAmount: decimal.NewFromInt(20),
				PaidAmount:    decimal.RequireFromString("10.3"),
				OverdueAmount: decimal.NewFromInt(5),
			}, nil
		},
	}
	uc := newUsecase(repo, newMemCache())

	s, err := uc.Statistics(context.Background(), 1)
	require.NoError(t, err)
	_, err = uc.Statistics(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, 1, repo.TotalsCalls)
	assert.Equal(t, int64(3), s.TotalDebts)
	assert.Equal(t, "30.3", s.TotalAmount.String())
	assert.Equal(t, "COP", s.Currency)
	assert.Equal(t, fixedNow, s.LastUpdated)
}

// TestDebtUsecase_Summary は直近3件と期限切れ先頭5件に絞られることを検証します。
func TestDebtUsecase_Summary(t *testing.T) {
	t.Parallel()

	overdue := make([]entity.Debt, 0, 7)
	for i := 1; i <= 7; i++ {
		overdue = append(overdue, entity.Debt{ID: uint(i), OwnerID: 1, Amount: decimal.NewFromInt(1), Currency: "COP"})
	}
	repo := &mockDebtRepository{
		TotalsFunc: func(ctx context.Context, ownerID uint, asOf time.Time) (usecase.Totals, error) {
			return usecase.Totals{}, nil
		},
		ListFunc: func(ctx context.Context, p usecase.Perspective, userID uint, f usecase.ListFilter) (usecase.Page[entity.Debt], error) {
			assert.Equal(t, 3, f.PageSize)
			return usecase.NewPage(overdue[:3], 7, 1, 3), nil
		},
		ListOverdueFunc: func(ctx context.Context, ownerID uint, asOf time.Time) ([]entity.Debt, error) {
			return overdue, nil
		},
	}
	uc := newUsecase(repo, newMemCache())

	s, err := uc.Summary(context.Background(), 1)
	require.NoError(t, err)

	assert.Len(t, s.RecentDebts, 3)
	assert.Len(t, s.OverdueDebts, 5)
	assert.Equal(t, fixedNow, s.LastUpdated)
}

// TestDebtUsecase_Export はJSONとCSVの出力、未対応形式の拒否を検証します。
func TestDebtUsecase_Export(t *testing.T) {
	t.Parallel()

	debts := []entity.Debt{
		{
			ID: 1, OwnerID: 1, CounterpartyID: ptr(uint(2)), Title: "Lunch, dinner",
			Description: ptr(`said "later"`), Amount: decimal.NewFromInt(50000), Currency: "COP",
			DueDate: ptr(time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)), CreatedAt: fixedNow,
		},
	}
	repo := &mockDebtRepository{
		ListAllOwnedFunc: func(ctx context.Context, ownerID uint, limit int) ([]entity.Debt, error) {
			assert.Equal(t, usecase.ExportLimit, limit)
			return debts, nil
		},
	}
	uc := newUsecase(repo, newMemCache())

	t.Run("csv", func(t *testing.T) {
		t.Parallel()
		f, err := uc.Export(context.Background(), 1, "CSV")
		require.NoError(t, err)
		assert.Equal(t, "text/csv", f.ContentType)
		assert.True(t, strings.HasSuffix(f.FileName, ".csv"))

		rows, err := csv.NewReader(strings.NewReader(string(f.Data))).ReadAll()
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, []string{"id", "title", "description", "amount", "currency", "status", "counterparty", "due_date", "paid_at", "created_at"}, rows[0])
		assert.Equal(t, []string{"1", "Lunch, dinner", `said "later"`, "50000.00", "COP", "Pending", "Luis Perez", "2025-04-01 00:00:00", "", "2025-03-10 09:30:00"}, rows[1])
	})

	t.Run("json", func(t *testing.T) {
		t.Parallel()
		f, err := uc.Export(context.Background(), 1, "json")
		require.NoError(t, err)
		assert.Equal(t, "application/json", f.ContentType)

		var out []usecase.DebtView
		require.NoError(t, json.Unmarshal(f.Data, &out))
		require.Len(t, out, 1)
		assert.Equal(t, "Lunch, dinner", out[0].Title)
		assert.Contains(t, string(f.Data), "\n  ")
	})

	t.Run("unsupported", func(t *testing.T) {
		t.Parallel()
		_, err := uc.Export(context.Background(), 1, "xml")
		assert.ErrorIs(t, err, usecase.ErrUnsupportedFormat)
	})
}
