package models

import (
	"time"

	"gorm.io/gorm"
)

// Invoice 运单发票（金额计算由外部计费子系统负责，这里只记录结果）
type Invoice struct {
	ID          uint           `gorm:"primarykey" json:"id"`                                  // 主键
	JobID       uint           `gorm:"uniqueIndex;not null" json:"job_id"`                    // 运单ID
	Currency    string         `gorm:"not null" json:"currency"`                              // 币种
	TotalAmount Money          `gorm:"type:decimal(20,2);not null;default:0" json:"total_amount"` // 应收总额
	PaidAmount  Money          `gorm:"type:decimal(20,2);not null;default:0" json:"paid_amount"`  // 已收金额
	Status      string         `gorm:"index;not null" json:"status"`                          // 发票状态
	FinalizedAt *time.Time     `gorm:"index" json:"finalized_at"`                             // 定稿时间（运单妥投后由异步任务写入）
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`                               // 创建时间
	UpdatedAt   time.Time      `gorm:"index" json:"updated_at"`                               // 更新时间
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`                                        // 软删除时间

	// 关联
	Payments []Payment `gorm:"foreignKey:InvoiceID" json:"payments,omitempty"` // 收款记录
}

// TableName 指定表名
func (Invoice) TableName() string {
	return "invoices"
}
