package syncer

import (
	"time"
)

// Event 实体变更广播事件。
// 载荷只用于触发更早的重取，不作为权威数据合并进本地快照。
type Event struct {
	Type       string    `json:"type"`        // 事件类型（job_status_changed 等）
	EntityKind string    `json:"entity_kind"` // 实体类型（job/batch）
	EntityID   uint      `json:"entity_id"`   // 实体ID
	NewStatus  string    `json:"new_status"`  // 变更后状态
	At         time.Time `json:"at"`          // 变更时间
	Origin     string    `json:"origin"`      // 来源进程标识，跨进程转发时用于去重
}
