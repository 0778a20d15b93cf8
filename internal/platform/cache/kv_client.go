// Package cache は Redis 上に構築したキーバリューキャッシュを提供します。
//
// エントリはアプリケーション側で有効期限を判定します。Redis のネイティブ TTL は使用せず、
// 期限切れのエントリは参照時に非同期で削除され、残りは CleanupExpired で掃除されます。
// キャッシュは常に補助的な存在であり、どの操作も呼び出し元を失敗させません。
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"debt_backend/internal/platform/metrics"
)

const (
	// DefaultTableName はキャッシュの名前空間のデフォルト値です。
	DefaultTableName = "DebtCache"

	defaultInitAttempts = 10
	defaultInitDelay    = 5 * time.Second
	evictTimeout        = 5 * time.Second
	scanCount           = 200

	fieldData      = "Data"
	fieldCreatedAt = "CreatedAt"
	fieldUpdatedAt = "UpdatedAt"
	fieldExpiresAt = "ExpiresAt"
)

// Statistics はキャッシュの件数情報です。
// 件数の取得に失敗した場合、TotalEntries は -1 になり Error にメッセージが入ります。
type Statistics struct {
	TotalEntries int64     `json:"totalEntries"`
	TableName    string    `json:"tableName"`
	LastUpdated  time.Time `json:"lastUpdated"`
	Error        string    `json:"error,omitempty"`
}

// Options configures a KVClient. Zero values fall back to defaults.
type Options struct {
	TableName    string
	InitAttempts int
	InitDelay    time.Duration
}

// KVClient is a best-effort cache over a Redis hash per entry.
// A nil Redis client disables caching: reads miss and writes are dropped.
type KVClient struct {
	rdb          *redis.Client
	table        string
	initAttempts int
	initDelay    time.Duration
	now          func() time.Time
	evictions    sync.WaitGroup
}

// NewKVClient creates a KVClient. rdb may be nil.
func NewKVClient(rdb *redis.Client, opts Options) *KVClient {
	if opts.TableName == "" {
		opts.TableName = DefaultTableName
	}
	if opts.InitAttempts <= 0 {
		opts.InitAttempts = defaultInitAttempts
	}
	if opts.InitDelay <= 0 {
		opts.InitDelay = defaultInitDelay
	}
	return &KVClient{
		rdb:          rdb,
		table:        opts.TableName,
		initAttempts: opts.InitAttempts,
		initDelay:    opts.InitDelay,
		now:          time.Now,
	}
}

// TableName returns the namespace used for entry keys.
func (c *KVClient) TableName() string { return c.table }

// Get は key のエントリを dest にデコードします。
// エントリが存在しない、期限切れ、または破損している場合は false を返します。
func (c *KVClient) Get(ctx context.Context, key string, dest any) bool {
	if c.rdb == nil {
		return false
	}
	k := c.entryKey(key)

	fields, err := c.rdb.HGetAll(ctx, k).Result()
	if err != nil {
		slog.Warn("cache get failed", "key", key, "error", err)
		metrics.ObserveCacheLookup("error")
		return false
	}
	if len(fields) == 0 {
		metrics.ObserveCacheLookup("miss")
		return false
	}

	if raw := fields[fieldExpiresAt]; raw != "" {
		expiresAt, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			c.dropCorrupt(ctx, k, key, err)
			return false
		}
		if expiresAt.Before(c.now()) {
			metrics.ObserveCacheLookup("expired")
			c.evictAsync(k)
			return false
		}
	}

	data := fields[fieldData]
	if data == "" {
		metrics.ObserveCacheLookup("miss")
		return false
	}
	if err := json.Unmarshal([]byte(data), dest); err != nil {
		c.dropCorrupt(ctx, k, key, err)
		return false
	}

	metrics.ObserveCacheLookup("hit")
	return true
}

// Set は value を JSON にエンコードして保存します。ttl が正の場合のみ有効期限を設定します。
// 同じキーへの書き込みは常に上書きになります。エラーはログに記録するだけです。
func (c *KVClient) Set(ctx context.Context, key string, value any, ttl time.Duration) {
	if c.rdb == nil {
		return
	}
	if isNil(value) {
		slog.Warn("cache set skipped: nil value", "key", key)
		return
	}

	b, err := json.Marshal(value)
	if err != nil {
		slog.Warn("cache set failed: marshal", "key", key, "error", err)
		return
	}

	now := c.now().UTC()
	stamp := now.Format(time.RFC3339Nano)
	expiresAt := ""
	if ttl > 0 {
		expiresAt = now.Add(ttl).Format(time.RFC3339Nano)
	}

	// 全フィールドを書き込むため、以前の ExpiresAt が残ることはない
	if err := c.rdb.HSet(ctx, c.entryKey(key),
		fieldData, string(b),
		fieldCreatedAt, stamp,
		fieldUpdatedAt, stamp,
		fieldExpiresAt, expiresAt,
	).Err(); err != nil {
		slog.Warn("cache set failed", "key", key, "error", err)
	}
}

// Delete removes key. A missing key is not an error.
func (c *KVClient) Delete(ctx context.Context, key string) {
	if c.rdb == nil {
		return
	}
	if err := c.rdb.Del(ctx, c.entryKey(key)).Err(); err != nil {
		slog.Warn("cache delete failed", "key", key, "error", err)
	}
}

// Exists reports whether Get would return a value for key.
func (c *KVClient) Exists(ctx context.Context, key string) bool {
	var raw json.RawMessage
	return c.Get(ctx, key, &raw)
}

// CleanupExpired は名前空間全体を走査し、期限切れのエントリを削除します。
// 戻り値は実際に削除できた件数です。
func (c *KVClient) CleanupExpired(ctx context.Context) (int64, error) {
	if c.rdb == nil {
		return 0, nil
	}
	now := c.now()

	var (
		deleted int64
		cursor  uint64
	)
	for {
		keys, next, err := c.rdb.Scan(ctx, cursor, c.entryPattern(), scanCount).Result()
		if err != nil {
			return deleted, fmt.Errorf("scan cache entries: %w", err)
		}
		for _, k := range keys {
			raw, err := c.rdb.HGet(ctx, k, fieldExpiresAt).Result()
			if err != nil {
				if !errors.Is(err, redis.Nil) {
					slog.Warn("cache cleanup: read expiry failed", "key", k, "error", err)
				}
				continue
			}
			if raw == "" {
				continue
			}
			expiresAt, err := time.Parse(time.RFC3339Nano, raw)
			if err != nil || !expiresAt.Before(now) {
				continue
			}
			n, err := c.rdb.Del(ctx, k).Result()
			if err != nil {
				slog.Warn("cache cleanup: delete failed", "key", k, "error", err)
				continue
			}
			deleted += n
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}

	metrics.AddCleanupDeleted(deleted)
	return deleted, nil
}

// Statistics counts the entries in the namespace.
func (c *KVClient) Statistics(ctx context.Context) Statistics {
	stats := Statistics{TableName: c.table, LastUpdated: c.now().UTC()}
	if c.rdb == nil {
		stats.TotalEntries = -1
		stats.Error = "cache disabled"
		return stats
	}

	var cursor uint64
	for {
		keys, next, err := c.rdb.Scan(ctx, cursor, c.entryPattern(), scanCount).Result()
		if err != nil {
			slog.Warn("cache statistics failed", "table", c.table, "error", err)
			stats.TotalEntries = -1
			stats.Error = err.Error()
			return stats
		}
		stats.TotalEntries += int64(len(keys))
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return stats
}

// EnsureInitialized はキャッシュが利用可能になるまで PING を繰り返し、
// 名前空間のメタデータが無ければ作成します。再試行回数には上限があります。
func (c *KVClient) EnsureInitialized(ctx context.Context) bool {
	if c.rdb == nil {
		return false
	}

	var err error
	for attempt := 1; attempt <= c.initAttempts; attempt++ {
		if err = c.rdb.Ping(ctx).Err(); err == nil {
			break
		}
		slog.Warn("cache not ready", "table", c.table, "attempt", attempt, "max_attempts", c.initAttempts, "error", err)
		if attempt == c.initAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(c.initDelay):
		}
	}
	if err != nil {
		slog.Error("cache unavailable", "table", c.table, "error", err)
		return false
	}

	created, err := c.rdb.SetNX(ctx, c.metaKey(), c.now().UTC().Format(time.RFC3339Nano), 0).Result()
	if err != nil {
		slog.Error("cache table bootstrap failed", "table", c.table, "error", err)
		return false
	}
	if created {
		slog.Info("cache table created", "table", c.table)
	}
	return true
}

// Wait blocks until background evictions have finished.
func (c *KVClient) Wait() {
	c.evictions.Wait()
}

func (c *KVClient) evictAsync(k string) {
	c.evictions.Add(1)
	go func() {
		defer c.evictions.Done()
		ctx, cancel := context.WithTimeout(context.Background(), evictTimeout)
		defer cancel()
		if err := c.rdb.Del(ctx, k).Err(); err != nil {
			slog.Debug("cache eviction failed", "key", k, "error", err)
		}
	}()
}

func (c *KVClient) dropCorrupt(ctx context.Context, k, key string, cause error) {
	slog.Warn("cache entry corrupted, deleting", "key", key, "error", cause)
	metrics.ObserveCacheLookup("error")
	_ = c.rdb.Del(ctx, k).Err()
}

func (c *KVClient) entryKey(key string) string {
	return c.table + ":entry:" + key
}

func (c *KVClient) entryPattern() string {
	return c.table + ":entry:*"
}

func (c *KVClient) metaKey() string {
	return c.table + ":meta"
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
