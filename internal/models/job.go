package models

import (
	"time"

	"gorm.io/gorm"
)

// Job 运单表
type Job struct {
	ID                    uint           `gorm:"primarykey" json:"id"`                        // 主键
	TrackingCode          string         `gorm:"uniqueIndex;not null" json:"tracking_code"`   // 运单编号（SHIP-YYYYMMDD-XXXXX）
	Status                string         `gorm:"index;not null" json:"status"`                // 运单状态
	SenderName            string         `gorm:"type:varchar(200)" json:"sender_name"`        // 寄件人姓名
	SenderPhone           string         `gorm:"type:varchar(40)" json:"sender_phone"`        // 寄件人电话
	ReceiverName          string         `gorm:"type:varchar(200)" json:"receiver_name"`      // 收件人姓名
	ReceiverPhone         string         `gorm:"type:varchar(40)" json:"receiver_phone"`      // 收件人电话
	OriginAddress         string         `gorm:"type:text" json:"origin_address"`             // 揽收地址
	DestinationAddress    string         `gorm:"type:text" json:"destination_address"`        // 派送地址
	AssignedDriverID      *uint          `gorm:"index" json:"assigned_driver_id,omitempty"`   // 揽收司机ID
	AssignedDeliveryAgent *uint          `gorm:"index;column:assigned_delivery_agent_id" json:"assigned_delivery_agent_id,omitempty"` // 派送员ID
	BatchID               *uint          `gorm:"index" json:"batch_id,omitempty"`             // 所属批次ID（仅批次流转状态期间有值）
	WeightKG              Money          `gorm:"type:decimal(10,2);not null;default:0" json:"weight_kg"` // 计费重量
	CreatedBy             uint           `gorm:"index" json:"created_by"`                     // 创建人ID
	CreatedAt             time.Time      `gorm:"index" json:"created_at"`                     // 创建时间
	UpdatedAt             time.Time      `gorm:"index" json:"updated_at"`                     // 更新时间
	DeletedAt             gorm.DeletedAt `gorm:"index" json:"-"`                              // 软删除时间（业务上只作废不删除）

	// 关联
	Timeline []TimelineEntry `gorm:"foreignKey:JobID" json:"timeline,omitempty"` // 状态时间线（追加写）
	Invoice  *Invoice        `gorm:"foreignKey:JobID" json:"invoice,omitempty"`  // 发票
}

// TableName 指定表名
func (Job) TableName() string {
	return "jobs"
}
