package syncer

import (
	"context"
	"sync"
	"time"

	"github.com/shipline-next/internal/logger"
)

// FetchFunc 拉取一次权威快照。返回错误表示本次拉取失败。
type FetchFunc func(ctx context.Context) error

// Refresher 单个视图上下文的重取状态机。
// 同一时刻至多一次拉取在途；拉取期间再次触发只置待拉标记，
// 拉取成功后若有待拉则立即补拉一次。瞬时失败进入抑制窗口，
// 窗口内的触发同样只累积标记，窗口结束后由定时器兜底重试。
type Refresher struct {
	fetch       FetchFunc
	interval    time.Duration
	suppression time.Duration
	transient   func(error) bool
	now         func() time.Time

	mu              sync.Mutex
	refreshing      bool
	stale           bool
	pending         bool
	seq             uint64
	suppressedUntil time.Time
}

func NewRefresher(fetch FetchFunc, interval, suppression time.Duration, transient func(error) bool) *Refresher {
	if transient == nil {
		transient = func(error) bool { return false }
	}
	return &Refresher{
		fetch:       fetch,
		interval:    interval,
		suppression: suppression,
		transient:   transient,
		now:         time.Now,
	}
}

// Stale 当前快照是否已知落后于权威数据。
func (r *Refresher) Stale() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stale
}

// Request 请求一次重取。在途或处于抑制窗口时只置标记，立即返回。
func (r *Refresher) Request(ctx context.Context) {
	r.mu.Lock()
	r.stale = true
	if r.refreshing || r.now().Before(r.suppressedUntil) {
		r.pending = true
		r.mu.Unlock()
		return
	}
	r.refreshing = true
	r.pending = false
	r.seq++
	seq := r.seq
	r.mu.Unlock()

	go r.run(ctx, seq)
}

func (r *Refresher) run(ctx context.Context, seq uint64) {
	err := r.fetch(ctx)

	r.mu.Lock()
	r.refreshing = false
	if seq != r.seq {
		// 结果已被更新的拉取取代，不改状态
		r.mu.Unlock()
		return
	}
	if err != nil {
		if r.transient(err) {
			r.suppressedUntil = r.now().Add(r.suppression)
		}
		r.mu.Unlock()
		logger.Warnw("sync_refresh_failed", "err", err)
		return
	}
	again := r.pending
	r.pending = false
	r.stale = again
	r.mu.Unlock()

	if again {
		r.Request(ctx)
	}
}

// Run 驱动状态机：订阅事件匹配则触发重取，定时器兜底周期重取。
func (r *Refresher) Run(ctx context.Context, hub *Hub, match func(Event) bool) {
	id, events := hub.Subscribe()
	defer hub.Unsubscribe(id)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.Request(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			if match == nil || match(evt) {
				r.Request(ctx)
			}
		case <-ticker.C:
			r.Request(ctx)
		}
	}
}
