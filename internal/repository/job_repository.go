package repository

import (
	"errors"

	"github.com/shipline-next/internal/models"

	"gorm.io/gorm"
)

// JobRepository 运单数据访问接口
type JobRepository interface {
	Create(job *models.Job) error
	GetByID(id uint) (*models.Job, error)
	GetByTrackingCode(code string) (*models.Job, error)
	ListByStatus(status string, page, pageSize int) ([]models.Job, int64, error)
	ListByIDs(ids []uint) ([]models.Job, error)
	ListByBatch(batchID uint) ([]models.Job, error)
	List(filter JobListFilter) ([]models.Job, int64, error)
	UpdateStatus(id uint, status string, updates map[string]interface{}) error
	Updates(id uint, updates map[string]interface{}) error
	CountByStatus() (map[string]int64, error)
	WithTx(tx *gorm.DB) *GormJobRepository
}

// GormJobRepository GORM 实现
type GormJobRepository struct {
	db *gorm.DB
}

// NewJobRepository 创建运单仓库
func NewJobRepository(db *gorm.DB) *GormJobRepository {
	return &GormJobRepository{db: db}
}

// WithTx 绑定事务
func (r *GormJobRepository) WithTx(tx *gorm.DB) *GormJobRepository {
	if tx == nil {
		return r
	}
	return &GormJobRepository{db: tx}
}

// Create 创建运单
func (r *GormJobRepository) Create(job *models.Job) error {
	return r.db.Create(job).Error
}

// GetByID 根据 ID 获取运单（含时间线与发票）
func (r *GormJobRepository) GetByID(id uint) (*models.Job, error) {
	var job models.Job
	query := r.db.Preload("Timeline", func(db *gorm.DB) *gorm.DB {
		return db.Order("id asc")
	}).Preload("Invoice")
	if err := query.First(&job, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &job, nil
}

// GetByTrackingCode 根据运单编号获取运单
func (r *GormJobRepository) GetByTrackingCode(code string) (*models.Job, error) {
	var job models.Job
	query := r.db.Preload("Timeline", func(db *gorm.DB) *gorm.DB {
		return db.Order("id asc")
	}).Preload("Invoice")
	if err := query.Where("tracking_code = ?", code).First(&job).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &job, nil
}

// ListByStatus 按状态查询运单
func (r *GormJobRepository) ListByStatus(status string, page, pageSize int) ([]models.Job, int64, error) {
	return r.List(JobListFilter{Status: status, Page: page, PageSize: pageSize})
}

// ListByIDs 按 ID 集合查询运单（升序，保证级联处理顺序确定）
func (r *GormJobRepository) ListByIDs(ids []uint) ([]models.Job, error) {
	var jobs []models.Job
	if len(ids) == 0 {
		return jobs, nil
	}
	if err := r.db.Where("id IN ?", ids).Order("id asc").Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

// ListByBatch 查询批次成员运单（升序）
func (r *GormJobRepository) ListByBatch(batchID uint) ([]models.Job, error) {
	var jobs []models.Job
	if batchID == 0 {
		return jobs, nil
	}
	if err := r.db.Where("batch_id = ?", batchID).Order("id asc").Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

// List 运单列表查询
func (r *GormJobRepository) List(filter JobListFilter) ([]models.Job, int64, error) {
	var jobs []models.Job
	query := r.db.Model(&models.Job{})

	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.TrackingCode != "" {
		query = query.Where("tracking_code = ?", filter.TrackingCode)
	}
	if filter.DriverID != 0 {
		query = query.Where("assigned_driver_id = ?", filter.DriverID)
	}
	if filter.DeliveryAgent != 0 {
		query = query.Where("assigned_delivery_agent_id = ?", filter.DeliveryAgent)
	}
	if filter.BatchID != 0 {
		query = query.Where("batch_id = ?", filter.BatchID)
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
	if err := query.Order("id desc").Find(&jobs).Error; err != nil {
		return nil, 0, err
	}
	return jobs, total, nil
}

// UpdateStatus 更新运单状态
func (r *GormJobRepository) UpdateStatus(id uint, status string, updates map[string]interface{}) error {
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["status"] = status
	return r.db.Model(&models.Job{}).Where("id = ?", id).Updates(updates).Error
}

// Updates 更新运单字段
func (r *GormJobRepository) Updates(id uint, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.Model(&models.Job{}).Where("id = ?", id).Updates(updates).Error
}

// CountByStatus 按状态统计运单数量
func (r *GormJobRepository) CountByStatus() (map[string]int64, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	if err := r.db.Model(&models.Job{}).
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
