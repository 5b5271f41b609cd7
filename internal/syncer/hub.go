package syncer

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"

	"github.com/shipline-next/internal/cache"
	"github.com/shipline-next/internal/logger"
)

// Hub 实体变更事件的进程内分发器。
// 本地订阅者直接收到事件；启用 Redis 时额外通过频道转发给其他进程。
type Hub struct {
	channel string
	origin  string

	mu     sync.RWMutex
	nextID uint64
	subs   map[uint64]chan Event
}

func NewHub(channel string) *Hub {
	return &Hub{
		channel: channel,
		origin:  uuid.NewString(),
		subs:    make(map[uint64]chan Event),
	}
}

// Subscribe 注册一个订阅者，返回订阅ID与事件通道。
// 通道带缓冲，消费不及时只丢事件不阻塞广播方。
func (h *Hub) Subscribe() (uint64, <-chan Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	id := h.nextID
	ch := make(chan Event, 16)
	h.subs[id] = ch
	return id, ch
}

func (h *Hub) Unsubscribe(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if ch, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(ch)
	}
}

// Broadcast 向本地订阅者与 Redis 频道同时发布事件。
func (h *Hub) Broadcast(ctx context.Context, evt Event) {
	evt.Origin = h.origin
	h.fanout(evt)

	if !cache.Enabled() {
		return
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		logger.Errorw("sync_event_marshal_failed", "err", err)
		return
	}
	if err := cache.Publish(ctx, h.channel, payload); err != nil {
		logger.Warnw("sync_event_publish_failed", "err", err, "channel", h.channel)
	}
}

func (h *Hub) fanout(evt Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, ch := range h.subs {
		select {
		case ch <- evt:
		default:
		}
	}
}

// Run 消费 Redis 频道上来自其他进程的事件并转发给本地订阅者。
// Redis 未启用时直接返回。
func (h *Hub) Run(ctx context.Context) error {
	if !cache.Enabled() {
		<-ctx.Done()
		return nil
	}

	sub := cache.Subscribe(ctx, h.channel)
	defer func() { _ = sub.Close() }()

	msgs := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			var evt Event
			if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
				logger.Warnw("sync_event_decode_failed", "err", err)
				continue
			}
			if evt.Origin == h.origin {
				continue
			}
			h.fanout(evt)
		}
	}
}
