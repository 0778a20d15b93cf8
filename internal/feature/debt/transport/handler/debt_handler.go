// Package handler はdebtフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"debt_backend/internal/api"
	"debt_backend/internal/feature/debt/transport/http/dto"
	"debt_backend/internal/feature/debt/usecase"
	jwtmw "debt_backend/internal/platform/jwt"
)

// DebtUsecase は債務操作のユースケースインターフェースを定義します。
// Goの慣例に従い、インターフェースは利用者（handler）側で定義します。
type DebtUsecase interface {
	Create(ctx context.Context, ownerID uint, in usecase.DebtInput) (*usecase.DebtView, error)
	Get(ctx context.Context, id, ownerID uint) (*usecase.DebtView, error)
	Update(ctx context.Context, id, ownerID uint, in usecase.DebtInput) (*usecase.DebtView, error)
	Delete(ctx context.Context, id, ownerID uint) error
	Pay(ctx context.Context, id, ownerID uint, paidAt *time.Time) (*usecase.DebtView, error)
	Unpay(ctx context.Context, id, ownerID uint) (*usecase.DebtView, error)
	List(ctx context.Context, ownerID uint, f usecase.ListFilter) (usecase.Page[usecase.DebtView], error)
	ListAsCounterparty(ctx context.Context, userID uint, f usecase.ListFilter) (usecase.Page[usecase.DebtView], error)
	Combined(ctx context.Context, userID uint, f usecase.ListFilter) (*usecase.CombinedView, error)
	Overdue(ctx context.Context, ownerID uint) ([]usecase.DebtView, error)
	Recent(ctx context.Context, ownerID uint, count int) ([]usecase.DebtView, error)
	Search(ctx context.Context, ownerID uint, term string, page, pageSize int) (usecase.Page[usecase.DebtView], error)
	Statistics(ctx context.Context, ownerID uint) (*usecase.Statistics, error)
	Summary(ctx context.Context, ownerID uint) (*usecase.Summary, error)
	Export(ctx context.Context, ownerID uint, format string) (*usecase.ExportFile, error)
}

// DebtHandler は債務APIのHTTPリクエストを処理します。
type DebtHandler struct {
	uc DebtUsecase
}

// NewDebtHandler はDebtHandlerの新しいインスタンスを生成します。
func NewDebtHandler(uc DebtUsecase) *DebtHandler {
	return &DebtHandler{uc: uc}
}

// RegisterRoutes は /api/debts 配下のルートを登録します。g は認証済みグループであること。
func (h *DebtHandler) RegisterRoutes(g *gin.RouterGroup) {
	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/overdue", h.Overdue)
	g.GET("/recent", h.Recent)
	g.GET("/search", h.Search)
	g.GET("/my-debts", h.MyDebts)
	g.GET("/all-my-debts", h.AllMyDebts)
	g.GET("/statistics", h.Statistics)
	g.GET("/summary", h.Summary)
	g.GET("/export", h.Export)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
	g.PATCH("/:id/pay", h.Pay)
	g.PATCH("/:id/unpay", h.Unpay)
}

// writeError はusecaseのエラーをステータスコードに対応付けます。
// 想定外のエラーは詳細をログにだけ残します。
func writeError(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, usecase.ErrInvalidAmount),
		errors.Is(err, usecase.ErrAmountTooLarge),
		errors.Is(err, usecase.ErrTitleRequired),
		errors.Is(err, usecase.ErrInvalidCurrency),
		errors.Is(err, usecase.ErrUnsupportedFormat):
		api.Fail(c, http.StatusBadRequest, "validation failed", err.Error())
	case errors.Is(err, usecase.ErrDebtNotFound),
		errors.Is(err, usecase.ErrCounterpartyNotFound),
		errors.Is(err, usecase.ErrOwnerNotFound):
		api.Fail(c, http.StatusNotFound, err.Error())
	case errors.Is(err, usecase.ErrPaidDebtImmutable),
		errors.Is(err, usecase.ErrDebtAlreadyPaid),
		errors.Is(err, usecase.ErrDebtNotPaid):
		api.Fail(c, http.StatusConflict, err.Error())
	default:
		slog.Error(op+" failed", "error", err, "user_id", c.GetUint(jwtmw.ContextUserID), "remote_addr", c.ClientIP())
		api.InternalError(c)
	}
}

func debtID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		api.Fail(c, http.StatusBadRequest, "validation failed", "id must be a positive integer")
		return 0, false
	}
	return uint(id), true
}

func bindDebtReq(c *gin.Context) (usecase.DebtInput, bool) {
	var req dto.DebtReq
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Warn("debt request validation failed", "error", err, "remote_addr", c.ClientIP())
		api.Fail(c, http.StatusBadRequest, "validation failed", api.ValidationMessages(err)...)
		return usecase.DebtInput{}, false
	}
	return usecase.DebtInput{
		Title:          req.Title,
		Description:    req.Description,
		Amount:         req.Amount,
		Currency:       req.Currency,
		CounterpartyID: req.DebtorID,
		DueDate:        req.DueDate,
	}, true
}

// listFilter はクエリパラメータを一覧条件に変換します。
func listFilter(c *gin.Context) (usecase.ListFilter, bool) {
	p, err := api.BindDebtListParams(c.Request.URL.Query())
	if err != nil {
		api.Fail(c, http.StatusBadRequest, "validation failed", err.Error())
		return usecase.ListFilter{}, false
	}

	f := usecase.ListFilter{
		Paid:     p.IsPaid,
		FromDate: p.FromDate,
		ToDate:   p.ToDate,
	}
	if p.DebtorID != nil {
		if *p.DebtorID <= 0 {
			api.Fail(c, http.StatusBadRequest, "validation failed", "debtorId must be a positive integer")
			return usecase.ListFilter{}, false
		}
		id := uint(*p.DebtorID)
		f.CounterpartyID = &id
	}
	for _, a := range []struct {
		name string
		raw  *string
		dst  **decimal.Decimal
	}{
		{"minAmount", p.MinAmount, &f.MinAmount},
		{"maxAmount", p.MaxAmount, &f.MaxAmount},
	} {
		if a.raw == nil {
			continue
		}
		d, err := decimal.NewFromString(*a.raw)
		if err != nil {
			api.Fail(c, http.StatusBadRequest, "validation failed", fmt.Sprintf("%s must be a number", a.name))
			return usecase.ListFilter{}, false
		}
		*a.dst = &d
	}
	if p.Currency != nil {
		f.Currency = *p.Currency
	}
	if p.IsOverdue != nil {
		f.Overdue = *p.IsOverdue
	}
	if p.Search != nil {
		f.Search = *p.Search
	}
	if p.OrderBy != nil {
		f.OrderBy = usecase.OrderField(*p.OrderBy)
	}
	if p.OrderDirection != nil {
		f.OrderDirection = *p.OrderDirection
	}
	if p.Page != nil {
		f.Page = *p.Page
	}
	if p.PageSize != nil {
		f.PageSize = *p.PageSize
	}
	return f, true
}

// Create は債務を登録します。
// POST /api/debts
func (h *DebtHandler) Create(c *gin.Context) {
	in, ok := bindDebtReq(c)
	if !ok {
		return
	}
	v, err := h.uc.Create(c.Request.Context(), c.GetUint(jwtmw.ContextUserID), in)
	if err != nil {
		writeError(c, "create debt", err)
		return
	}
	api.OK(c, http.StatusCreated, "debt created", v)
}

// Get は債務を1件返します。
// GET /api/debts/:id
func (h *DebtHandler) Get(c *gin.Context) {
	id, ok := debtID(c)
	if !ok {
		return
	}
	v, err := h.uc.Get(c.Request.Context(), id, c.GetUint(jwtmw.ContextUserID))
	if err != nil {
		writeError(c, "get debt", err)
		return
	}
	api.OK(c, http.StatusOK, "ok", v)
}

// Update は未払いの債務を書き換えます。
// PUT /api/debts/:id
func (h *DebtHandler) Update(c *gin.Context) {
	id, ok := debtID(c)
	if !ok {
		return
	}
	in, ok := bindDebtReq(c)
	if !ok {
		return
	}
	v, err := h.uc.Update(c.Request.Context(), id, c.GetUint(jwtmw.ContextUserID), in)
	if err != nil {
		writeError(c, "update debt", err)
		return
	}
	api.OK(c, http.StatusOK, "debt updated", v)
}

// Delete は債務を削除します。
// DELETE /api/debts/:id
func (h *DebtHandler) Delete(c *gin.Context) {
	id, ok := debtID(c)
	if !ok {
		return
	}
	if err := h.uc.Delete(c.Request.Context(), id, c.GetUint(jwtmw.ContextUserID)); err != nil {
		writeError(c, "delete debt", err)
		return
	}
	api.OK(c, http.StatusOK, "debt deleted", nil)
}

// Pay は債務を支払済みにします。ボディは省略可能です。
// PATCH /api/debts/:id/pay
func (h *DebtHandler) Pay(c *gin.Context) {
	id, ok := debtID(c)
	if !ok {
		return
	}
	var req dto.PayReq
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			api.Fail(c, http.StatusBadRequest, "validation failed", api.ValidationMessages(err)...)
			return
		}
	}
	v, err := h.uc.Pay(c.Request.Context(), id, c.GetUint(jwtmw.ContextUserID), req.PaidAt)
	if err != nil {
		writeError(c, "pay debt", err)
		return
	}
	api.OK(c, http.StatusOK, "debt marked as paid", v)
}

// Unpay は支払済みの債務を未払いに戻します。
// PATCH /api/debts/:id/unpay
func (h *DebtHandler) Unpay(c *gin.Context) {
	id, ok := debtID(c)
	if !ok {
		return
	}
	v, err := h.uc.Unpay(c.Request.Context(), id, c.GetUint(jwtmw.ContextUserID))
	if err != nil {
		writeError(c, "unpay debt", err)
		return
	}
	api.OK(c, http.StatusOK, "debt marked as pending", v)
}

// List は貸し手として登録した債務の一覧を返します。
// GET /api/debts?isPaid=&debtorId=&minAmount=&...&page=&pageSize=
func (h *DebtHandler) List(c *gin.Context) {
	f, ok := listFilter(c)
	if !ok {
		return
	}
	page, err := h.uc.List(c.Request.Context(), c.GetUint(jwtmw.ContextUserID), f)
	if err != nil {
		writeError(c, "list debts", err)
		return
	}
	api.OK(c, http.StatusOK, "ok", page)
}

// MyDebts は借り手として紐付けられた債務の一覧を返します。
// GET /api/debts/my-debts
func (h *DebtHandler) MyDebts(c *gin.Context) {
	f, ok := listFilter(c)
	if !ok {
		return
	}
	page, err := h.uc.ListAsCounterparty(c.Request.Context(), c.GetUint(jwtmw.ContextUserID), f)
	if err != nil {
		writeError(c, "list debts as debtor", err)
		return
	}
	api.OK(c, http.StatusOK, "ok", page)
}

// AllMyDebts は貸し・借りの両方をまとめて返します。
// GET /api/debts/all-my-debts
func (h *DebtHandler) AllMyDebts(c *gin.Context) {
	f, ok := listFilter(c)
	if !ok {
		return
	}
	v, err := h.uc.Combined(c.Request.Context(), c.GetUint(jwtmw.ContextUserID), f)
	if err != nil {
		writeError(c, "list combined debts", err)
		return
	}
	api.OK(c, http.StatusOK, "ok", v)
}

// Overdue は期限切れの未払い債務を返します。
// GET /api/debts/overdue
func (h *DebtHandler) Overdue(c *gin.Context) {
	vs, err := h.uc.Overdue(c.Request.Context(), c.GetUint(jwtmw.ContextUserID))
	if err != nil {
		writeError(c, "list overdue debts", err)
		return
	}
	api.OK(c, http.StatusOK, "ok", vs)
}

// Recent は直近に作成された債務を返します。
// GET /api/debts/recent?count=5
func (h *DebtHandler) Recent(c *gin.Context) {
	var count *int
	if err := api.BindOptional(c.Request.URL.Query(), "count", &count); err != nil {
		api.Fail(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}
	n := usecase.DefaultRecentCount
	if count != nil {
		n = *count
	}
	vs, err := h.uc.Recent(c.Request.Context(), c.GetUint(jwtmw.ContextUserID), n)
	if err != nil {
		writeError(c, "list recent debts", err)
		return
	}
	api.OK(c, http.StatusOK, "ok", vs)
}

// Search はタイトルと説明文で債務を検索します。
// GET /api/debts/search?q=lunch&page=1&pageSize=10
func (h *DebtHandler) Search(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		api.Fail(c, http.StatusBadRequest, "validation failed", "q is required")
		return
	}
	var page, pageSize *int
	query := c.Request.URL.Query()
	if err := api.BindOptional(query, "page", &page); err != nil {
		api.Fail(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}
	if err := api.BindOptional(query, "pageSize", &pageSize); err != nil {
		api.Fail(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}
	p, size := usecase.DefaultPage, usecase.DefaultPageSize
	if page != nil {
		p = *page
	}
	if pageSize != nil {
		size = *pageSize
	}

	res, err := h.uc.Search(c.Request.Context(), c.GetUint(jwtmw.ContextUserID), q, p, size)
	if err != nil {
		writeError(c, "search debts", err)
		return
	}
	api.OK(c, http.StatusOK, "ok", res)
}

// Statistics は債務の集計を返します。
// GET /api/debts/statistics
func (h *DebtHandler) Statistics(c *gin.Context) {
	s, err := h.uc.Statistics(c.Request.Context(), c.GetUint(jwtmw.ContextUserID))
	if err != nil {
		writeError(c, "debt statistics", err)
		return
	}
	api.OK(c, http.StatusOK, "ok", s)
}

// Summary はダッシュボード用の概要を返します。
// GET /api/debts/summary
func (h *DebtHandler) Summary(c *gin.Context) {
	s, err := h.uc.Summary(c.Request.Context(), c.GetUint(jwtmw.ContextUserID))
	if err != nil {
		writeError(c, "debt summary", err)
		return
	}
	api.OK(c, http.StatusOK, "ok", s)
}

// Export は債務一覧をファイルとして返します。
// GET /api/debts/export?format=json|csv
func (h *DebtHandler) Export(c *gin.Context) {
	f, err := h.uc.Export(c.Request.Context(), c.GetUint(jwtmw.ContextUserID), c.DefaultQuery("format", "json"))
	if err != nil {
		writeError(c, "export debts", err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, f.FileName))
	c.Data(http.StatusOK, f.ContentType, f.Data)
}
