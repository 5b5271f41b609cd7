package repository

import (
	"errors"

	"github.com/shipline-next/internal/models"

	"gorm.io/gorm"
)

// BatchRepository 批次数据访问接口
type BatchRepository interface {
	Create(batch *models.Batch) error
	GetByID(id uint) (*models.Batch, error)
	GetByBatchCode(code string) (*models.Batch, error)
	List(filter BatchListFilter) ([]models.Batch, int64, error)
	UpdateStatus(id uint, status string, updates map[string]interface{}) error
	CountMembers(id uint) (int64, error)
	CountByStatus() (map[string]int64, error)
	WithTx(tx *gorm.DB) *GormBatchRepository
}

// GormBatchRepository GORM 实现
type GormBatchRepository struct {
	db *gorm.DB
}

// NewBatchRepository 创建批次仓库
func NewBatchRepository(db *gorm.DB) *GormBatchRepository {
	return &GormBatchRepository{db: db}
}

// WithTx 绑定事务
func (r *GormBatchRepository) WithTx(tx *gorm.DB) *GormBatchRepository {
	if tx == nil {
		return r
	}
	return &GormBatchRepository{db: tx}
}

// Create 创建批次
func (r *GormBatchRepository) Create(batch *models.Batch) error {
	return r.db.Create(batch).Error
}

// GetByID 根据 ID 获取批次（含成员运单，升序）
func (r *GormBatchRepository) GetByID(id uint) (*models.Batch, error) {
	var batch models.Batch
	query := r.db.Preload("Jobs", func(db *gorm.DB) *gorm.DB {
		return db.Order("id asc")
	})
	if err := query.First(&batch, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &batch, nil
}

// GetByBatchCode 根据批次编号获取批次
func (r *GormBatchRepository) GetByBatchCode(code string) (*models.Batch, error) {
	var batch models.Batch
	query := r.db.Preload("Jobs", func(db *gorm.DB) *gorm.DB {
		return db.Order("id asc")
	})
	if err := query.Where("batch_code = ?", code).First(&batch).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &batch, nil
}

// List 批次列表查询
func (r *GormBatchRepository) List(filter BatchListFilter) ([]models.Batch, int64, error) {
	var batches []models.Batch
	query := r.db.Model(&models.Batch{})

	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.BatchCode != "" {
		query = query.Where("batch_code = ?", filter.BatchCode)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)
	if err := query.Order("id desc").Find(&batches).Error; err != nil {
		return nil, 0, err
	}
	return batches, total, nil
}

// UpdateStatus 更新批次状态
func (r *GormBatchRepository) UpdateStatus(id uint, status string, updates map[string]interface{}) error {
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["status"] = status
	return r.db.Model(&models.Batch{}).Where("id = ?", id).Updates(updates).Error
}

// CountMembers 统计批次成员数量
func (r *GormBatchRepository) CountMembers(id uint) (int64, error) {
	var count int64
	if err := r.db.Model(&models.Job{}).Where("batch_id = ?", id).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountByStatus 按状态统计批次数量
func (r *GormBatchRepository) CountByStatus() (map[string]int64, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	if err := r.db.Model(&models.Batch{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
