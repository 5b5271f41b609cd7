package models

import (
	"time"

	"gorm.io/gorm"
)

// Payment 收款记录（支持部分收款，与运单状态流转互相独立）
type Payment struct {
	ID        uint           `gorm:"primarykey" json:"id"`                      // 主键
	InvoiceID uint           `gorm:"index;not null" json:"invoice_id"`          // 发票ID
	JobID     uint           `gorm:"index;not null" json:"job_id"`              // 运单ID
	Amount    Money          `gorm:"type:decimal(20,2);not null" json:"amount"` // 收款金额
	Method    string         `gorm:"not null" json:"method"`                    // 收款方式（cash/bank/mobile）
	Reference string         `gorm:"index" json:"reference,omitempty"`          // 外部凭证号
	ActorID   uint           `gorm:"index" json:"actor_id"`                     // 收款操作人ID
	CreatedAt time.Time      `gorm:"index" json:"created_at"`                   // 收款时间
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`                            // 软删除时间
}

// TableName 指定表名
func (Payment) TableName() string {
	return "payments"
}
