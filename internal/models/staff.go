package models

import (
	"time"

	"gorm.io/gorm"
)

// Staff 员工账号（六类业务角色 + superadmin）
type Staff struct {
	ID           uint           `gorm:"primarykey" json:"id"`                   // 主键
	Username     string         `gorm:"uniqueIndex;not null" json:"username"`   // 登录名
	PasswordHash string         `gorm:"type:varchar(200);not null" json:"-"`    // 密码哈希
	DisplayName  string         `gorm:"type:varchar(200)" json:"display_name"`  // 显示名
	Role         string         `gorm:"index;not null" json:"role"`             // 角色（闭合枚举）
	Status       string         `gorm:"index;not null;default:active" json:"status"` // 账号状态
	CreatedAt    time.Time      `gorm:"index" json:"created_at"`                // 创建时间
	UpdatedAt    time.Time      `gorm:"index" json:"updated_at"`                // 更新时间
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`                         // 软删除时间
}

// TableName 指定表名
func (Staff) TableName() string {
	return "staff"
}

// IsAdmin 判断是否具有管理员权限（admin 或 superadmin）
func (s *Staff) IsAdmin() bool {
	if s == nil {
		return false
	}
	return s.Role == "admin" || s.Role == "superadmin"
}
