package models

import (
	"time"

	"gorm.io/gorm"
)

// Batch 批次表（同一航段/船期集中发运的运单集合）
type Batch struct {
	ID              uint           `gorm:"primarykey" json:"id"`                    // 主键
	BatchCode       string         `gorm:"uniqueIndex;not null" json:"batch_code"`  // 批次编号（BATCH-YYYYMMDD-XXXX）
	Status          string         `gorm:"index;not null" json:"status"`            // 批次状态（严格线性推进）
	VesselReference string         `gorm:"type:varchar(200)" json:"vessel_reference,omitempty"` // 船班/航班号
	Metadata        JSON           `gorm:"type:json" json:"metadata,omitempty"`     // 批次附加信息
	CreatedBy       uint           `gorm:"index" json:"created_by"`                 // 创建人ID
	ClosedAt        *time.Time     `gorm:"index" json:"closed_at"`                  // 离开 in_preparation 的时间（之后成员冻结）
	CreatedAt       time.Time      `gorm:"index" json:"created_at"`                 // 创建时间
	UpdatedAt       time.Time      `gorm:"index" json:"updated_at"`                 // 更新时间
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`                          // 软删除时间

	// 关联
	Jobs []Job `gorm:"foreignKey:BatchID" json:"jobs,omitempty"` // 成员运单
}

// TableName 指定表名
func (Batch) TableName() string {
	return "batches"
}
