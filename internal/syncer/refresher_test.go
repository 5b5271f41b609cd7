package syncer

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

var errTransient = errors.New("transient failure")

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestRefresherSingleFlight(t *testing.T) {
	started := make(chan struct{}, 8)
	release := make(chan struct{})
	var fetches int32

	r := NewRefresher(func(ctx context.Context) error {
		atomic.AddInt32(&fetches, 1)
		started <- struct{}{}
		<-release
		return nil
	}, time.Hour, time.Hour, nil)

	ctx := context.Background()
	r.Request(ctx)
	<-started

	// 在途期间的重复触发不得并发拉取
	r.Request(ctx)
	r.Request(ctx)
	if got := atomic.LoadInt32(&fetches); got != 1 {
		t.Fatalf("concurrent fetches = %d, want 1", got)
	}
	if !r.Stale() {
		t.Fatal("refresher should report stale while refreshing")
	}

	// 首次完成后合并的触发只补拉一次
	release <- struct{}{}
	<-started
	release <- struct{}{}

	waitFor(t, func() bool { return atomic.LoadInt32(&fetches) == 2 && !r.Stale() },
		"coalesced requests should settle at exactly 2 fetches")
}

func TestRefresherStaleClearsOnSuccess(t *testing.T) {
	r := NewRefresher(func(ctx context.Context) error { return nil }, time.Hour, time.Hour, nil)

	if r.Stale() {
		t.Fatal("new refresher should not be stale")
	}
	r.Request(context.Background())
	waitFor(t, func() bool { return !r.Stale() }, "stale flag should clear after successful fetch")
}

func TestRefresherTransientErrorSuppresses(t *testing.T) {
	var fetches int32
	r := NewRefresher(func(ctx context.Context) error {
		atomic.AddInt32(&fetches, 1)
		return errTransient
	}, time.Hour, time.Minute, func(err error) bool { return errors.Is(err, errTransient) })

	base := time.Now()
	r.now = func() time.Time { return base }

	ctx := context.Background()
	r.Request(ctx)
	waitFor(t, func() bool { return atomic.LoadInt32(&fetches) == 1 }, "first fetch should run")

	// 抑制窗口内触发只累积标记，不发起拉取
	r.Request(ctx)
	r.Request(ctx)
	time.Sleep(20 * time.Millisecond)
	if got := atomic.LoadInt32(&fetches); got != 1 {
		t.Fatalf("fetches during suppression = %d, want 1", got)
	}
	if !r.Stale() {
		t.Fatal("refresher should stay stale through suppression window")
	}

	// 窗口结束后恢复拉取
	r.mu.Lock()
	r.now = func() time.Time { return base.Add(2 * time.Minute) }
	r.mu.Unlock()
	r.Request(ctx)
	waitFor(t, func() bool { return atomic.LoadInt32(&fetches) == 2 }, "fetch should resume after suppression window")
}

func TestRefresherNonTransientErrorDoesNotSuppress(t *testing.T) {
	var fetches int32
	r := NewRefresher(func(ctx context.Context) error {
		atomic.AddInt32(&fetches, 1)
		return errors.New("validation failed")
	}, time.Hour, time.Minute, func(err error) bool { return errors.Is(err, errTransient) })

	ctx := context.Background()
	r.Request(ctx)
	waitFor(t, func() bool {
		r.mu.Lock()
		defer r.mu.Unlock()
		return atomic.LoadInt32(&fetches) == 1 && !r.refreshing
	}, "first fetch should settle")

	r.Request(ctx)
	waitFor(t, func() bool { return atomic.LoadInt32(&fetches) == 2 }, "business errors must not pause refreshing")
}

func TestRefresherRunTriggersOnMatchingEvents(t *testing.T) {
	hub := NewHub("test:channel")
	var fetches int32
	r := NewRefresher(func(ctx context.Context) error {
		atomic.AddInt32(&fetches, 1)
		return nil
	}, time.Hour, time.Hour, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx, hub, func(evt Event) bool { return evt.EntityKind == "job" })

	// Run 启动即拉取一次
	waitFor(t, func() bool { return atomic.LoadInt32(&fetches) == 1 }, "initial fetch should run")

	hub.Broadcast(ctx, Event{EntityKind: "batch"})
	time.Sleep(20 * time.Millisecond)
	if got := atomic.LoadInt32(&fetches); got != 1 {
		t.Fatalf("non-matching event triggered fetch: %d", got)
	}

	hub.Broadcast(ctx, Event{EntityKind: "job"})
	waitFor(t, func() bool { return atomic.LoadInt32(&fetches) == 2 }, "matching event should trigger fetch")
}
