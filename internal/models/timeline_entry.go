package models

import (
	"time"
)

// TimelineEntry 运单状态时间线（追加写，写入后不可变更）
type TimelineEntry struct {
	ID          uint      `gorm:"primarykey" json:"id"`                      // 主键
	JobID       uint      `gorm:"index;not null" json:"job_id"`              // 运单ID
	Status      string    `gorm:"index;not null" json:"status"`              // 变更后状态
	Cause       string    `gorm:"index;not null" json:"cause"`               // 变更来源（manual/batch_cascade/revert）
	IsRevert    bool      `gorm:"index;not null;default:false" json:"is_revert"` // 是否为回退记录
	ActorID     uint      `gorm:"index" json:"actor_id"`                     // 操作人ID
	Notes       string    `gorm:"type:text" json:"notes,omitempty"`          // 备注
	DocumentRef string    `gorm:"type:varchar(500)" json:"document_ref,omitempty"` // 附件引用（由上传子系统提供，内容不透明）
	BatchID     *uint     `gorm:"index" json:"batch_id,omitempty"`           // 级联来源批次ID
	CreatedAt   time.Time `gorm:"index" json:"created_at"`                   // 记录时间
}

// TableName 指定表名
func (TimelineEntry) TableName() string {
	return "timeline_entries"
}
