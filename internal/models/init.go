package models

import (
	"strings"

	"github.com/shipline-next/internal/logger"

	"golang.org/x/crypto/bcrypt"
)

// InitDefaultSuperadmin 初始化默认超级管理员账号
func InitDefaultSuperadmin(username, password string) error {
	var count int64
	DB.Model(&Staff{}).Where("role = ?", "superadmin").Count(&count)
	if count > 0 {
		return nil
	}

	if username == "" {
		username = "admin"
	}
	if password == "" {
		password = "admin123"
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	staff := Staff{
		Username:     strings.TrimSpace(username),
		PasswordHash: string(hash),
		DisplayName:  "Superadmin",
		Role:         "superadmin",
		Status:       "active",
	}
	if err := DB.Create(&staff).Error; err != nil {
		return err
	}

	if password == "admin123" {
		logger.Warnw("default_superadmin_created_with_default_password", "username", username)
		logger.Warnw("default_superadmin_password_change_required", "username", username)
	} else {
		logger.Warnw("default_superadmin_created", "username", username, "password_hidden", true)
	}
	return nil
}
