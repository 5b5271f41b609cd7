package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shipline-next/internal/constants"
	"github.com/shipline-next/internal/repository"
	"github.com/shipline-next/internal/syncer"
)

// OverviewSnapshot 运营总览快照
type OverviewSnapshot struct {
	JobCounts   map[string]int64 `json:"job_counts"`
	BatchCounts map[string]int64 `json:"batch_counts"`
	RefreshedAt time.Time        `json:"refreshed_at"`
}

// OverviewService 维护按状态聚合的运营总览。
// 计数由后台重取状态机维护：状态事件触发重取，
// 定时器兜底，读取方总是拿到最近一次成功的快照。
type OverviewService struct {
	jobRepo   repository.JobRepository
	batchRepo repository.BatchRepository
	refresher *syncer.Refresher

	mu       sync.RWMutex
	snapshot OverviewSnapshot
}

// NewOverviewService 创建运营总览服务
func NewOverviewService(jobRepo repository.JobRepository, batchRepo repository.BatchRepository, interval, suppression time.Duration) *OverviewService {
	s := &OverviewService{
		jobRepo:   jobRepo,
		batchRepo: batchRepo,
		snapshot: OverviewSnapshot{
			JobCounts:   map[string]int64{},
			BatchCounts: map[string]int64{},
		},
	}
	s.refresher = syncer.NewRefresher(s.fetch, interval, suppression, isTransientFetchError)
	return s
}

func (s *OverviewService) fetch(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	jobCounts, err := s.jobRepo.CountByStatus()
	if err != nil {
		return fmt.Errorf("%w: count jobs: %v", ErrServerError, err)
	}
	batchCounts, err := s.batchRepo.CountByStatus()
	if err != nil {
		return fmt.Errorf("%w: count batches: %v", ErrServerError, err)
	}

	s.mu.Lock()
	s.snapshot = OverviewSnapshot{
		JobCounts:   jobCounts,
		BatchCounts: batchCounts,
		RefreshedAt: time.Now(),
	}
	s.mu.Unlock()
	return nil
}

// Snapshot 返回最近一次成功的总览快照，stale 表示快照已知落后。
// 调用本身会触发一次异步重取，不等待其完成。
func (s *OverviewService) Snapshot(ctx context.Context) (OverviewSnapshot, bool) {
	s.refresher.Request(ctx)

	s.mu.RLock()
	snap := s.snapshot
	s.mu.RUnlock()
	return snap, s.refresher.Stale()
}

// Run 订阅状态事件并驱动重取，直到 ctx 取消。
func (s *OverviewService) Run(ctx context.Context, hub *syncer.Hub) {
	s.refresher.Run(ctx, hub, func(evt syncer.Event) bool {
		return evt.EntityKind == constants.SyncEntityJob || evt.EntityKind == constants.SyncEntityBatch
	})
}

// isTransientFetchError 判定拉取失败是否进入抑制窗口：
// 限流、后端故障与上下文超时都按瞬时处理，窗口内不再按 tick 重试。
func isTransientFetchError(err error) bool {
	return errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrServerError) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
