package repository

import (
	"github.com/shipline-next/internal/models"

	"gorm.io/gorm"
)

// TimelineRepository 时间线数据访问接口（只增不改）
type TimelineRepository interface {
	Append(entry *models.TimelineEntry) error
	ListByJob(jobID uint) ([]models.TimelineEntry, error)
	HasVisited(jobID uint, status string) (bool, error)
	WithTx(tx *gorm.DB) *GormTimelineRepository
}

// GormTimelineRepository GORM 实现
type GormTimelineRepository struct {
	db *gorm.DB
}

// NewTimelineRepository 创建时间线仓库
func NewTimelineRepository(db *gorm.DB) *GormTimelineRepository {
	return &GormTimelineRepository{db: db}
}

// WithTx 绑定事务
func (r *GormTimelineRepository) WithTx(tx *gorm.DB) *GormTimelineRepository {
	if tx == nil {
		return r
	}
	return &GormTimelineRepository{db: tx}
}

// Append 追加时间线记录
func (r *GormTimelineRepository) Append(entry *models.TimelineEntry) error {
	return r.db.Create(entry).Error
}

// ListByJob 按运单查询时间线（插入顺序即时间顺序）
func (r *GormTimelineRepository) ListByJob(jobID uint) ([]models.TimelineEntry, error) {
	var entries []models.TimelineEntry
	if jobID == 0 {
		return entries, nil
	}
	if err := r.db.Where("job_id = ?", jobID).Order("id asc").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// HasVisited 判断某状态是否在运单时间线中出现过（回退合法性校验）
func (r *GormTimelineRepository) HasVisited(jobID uint, status string) (bool, error) {
	var count int64
	if err := r.db.Model(&models.TimelineEntry{}).
		Where("job_id = ? AND status = ?", jobID, status).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
