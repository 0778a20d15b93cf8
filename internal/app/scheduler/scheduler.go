// Package scheduler はバックグラウンドの定期ジョブを管理します。
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

const cleanupTimeout = 5 * time.Minute

// Cleaner は期限切れキャッシュエントリを掃除します。
type Cleaner interface {
	CleanupExpired(ctx context.Context) (int64, error)
}

// Scheduler wraps a cron runner.
type Scheduler struct {
	cron *cron.Cron
}

// New は空のスケジューラーを生成します。前回の実行が終わっていないジョブはスキップされます。
func New() *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger), cron.SkipIfStillRunning(cron.DefaultLogger))),
	}
}

// AddCacheCleanup は schedule（"@every 1h" やcron式）ごとにキャッシュ掃除を登録します。
func (s *Scheduler) AddCacheCleanup(schedule string, cleaner Cleaner) error {
	if _, err := s.cron.AddFunc(schedule, cleanupJob(cleaner)); err != nil {
		return fmt.Errorf("invalid cleanup schedule %q: %w", schedule, err)
	}
	slog.Info("cache cleanup scheduled", "schedule", schedule)
	return nil
}

// Start runs the scheduler in its own goroutine.
func (s *Scheduler) Start() { s.cron.Start() }

// Stop は新規実行を止め、実行中のジョブの終了を ctx の範囲で待ちます。
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		slog.Warn("scheduler stop timed out")
	}
}

func cleanupJob(cleaner Cleaner) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
		defer cancel()

		start := time.Now()
		deleted, err := cleaner.CleanupExpired(ctx)
		if err != nil {
			slog.Error("scheduled cache cleanup failed", "error", err, "deleted", deleted)
			return
		}
		slog.Info("scheduled cache cleanup completed", "deleted", deleted, "duration", time.Since(start))
	}
}
