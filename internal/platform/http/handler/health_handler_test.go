package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"debt_backend/internal/platform/cache"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// stubCache はCacheAdminのスタブです。
type stubCache struct {
	stats      cache.Statistics
	deleted    int64
	cleanupErr error
}

func (s *stubCache) Statistics(context.Context) cache.Statistics { return s.stats }

func (s *stubCache) CleanupExpired(context.Context) (int64, error) {
	return s.deleted, s.cleanupErr
}

func setupRouter(h *PlatformHandler) *gin.Engine {
	r := gin.New()
	r.Match([]string{http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodPost}, "/healthz", Health)
	if h != nil {
		r.GET("/readyz", h.Ready)
		r.GET("/api/cache/statistics", h.CacheStatistics)
		r.POST("/api/cache/cleanup", h.CacheCleanup)
	}
	return r
}

func serve(r *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

// TestHealth はHTTPメソッドごとのステータスとCache-Controlヘッダーを検証します。
func TestHealth(t *testing.T) {
	t.Parallel()

	tests := []struct {
		method     string
		wantStatus int
		wantBody   bool
	}{
		{http.MethodGet, http.StatusOK, true},
		{http.MethodHead, http.StatusOK, false},
		{http.MethodOptions, http.StatusNoContent, false},
		{http.MethodPost, http.StatusOK, true},
	}

	router := setupRouter(nil)
	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			t.Parallel()
			w := serve(router, tt.method, "/healthz")

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
			if tt.wantBody {
				var body map[string]string
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
				assert.Equal(t, "ok", body["status"])
			} else {
				assert.Empty(t, w.Body.String())
			}
		})
	}
}

// TestPlatformHandler_Ready はDB疎通に応じて200または503を返すことを検証します。
func TestPlatformHandler_Ready(t *testing.T) {
	t.Parallel()

	stats := cache.Statistics{TotalEntries: 3, TableName: "DebtCache"}

	ok := setupRouter(NewPlatformHandler(func(context.Context) error { return nil }, &stubCache{stats: stats}))
	w := serve(ok, http.MethodGet, "/readyz")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ready"`)
	assert.Contains(t, w.Body.String(), `"totalEntries":3`)

	down := setupRouter(NewPlatformHandler(func(context.Context) error { return errors.New("connection refused") }, &stubCache{stats: stats}))
	w = serve(down, http.MethodGet, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.NotContains(t, w.Body.String(), "connection refused")
}

// TestPlatformHandler_Cache はキャッシュ統計と掃除エンドポイントを検証します。
func TestPlatformHandler_Cache(t *testing.T) {
	t.Parallel()

	stub := &stubCache{stats: cache.Statistics{TotalEntries: -1, TableName: "DebtCache", Error: "cache disabled"}, deleted: 4}
	r := setupRouter(NewPlatformHandler(func(context.Context) error { return nil }, stub))

	w := serve(r, http.MethodGet, "/api/cache/statistics")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"error":"cache disabled"`)

	w = serve(r, http.MethodPost, "/api/cache/cleanup")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"message":"cache cleanup completed","data":{"deleted":4}}`, w.Body.String())

	failing := setupRouter(NewPlatformHandler(nil, &stubCache{cleanupErr: errors.New("scan failed")}))
	assert.Equal(t, http.StatusInternalServerError, serve(failing, http.MethodPost, "/api/cache/cleanup").Code)
}
