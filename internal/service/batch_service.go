package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/shipline-next/internal/constants"
	"github.com/shipline-next/internal/logger"
	"github.com/shipline-next/internal/models"
	"github.com/shipline-next/internal/queue"
	"github.com/shipline-next/internal/repository"
	"github.com/shipline-next/internal/syncer"

	"gorm.io/gorm"
)

// BatchService 批次服务
type BatchService struct {
	batchRepo    repository.BatchRepository
	jobRepo      repository.JobRepository
	timelineRepo repository.TimelineRepository
	queueClient  *queue.Client
	hub          *syncer.Hub
}

// NewBatchService 创建批次服务
func NewBatchService(batchRepo repository.BatchRepository, jobRepo repository.JobRepository, timelineRepo repository.TimelineRepository, queueClient *queue.Client, hub *syncer.Hub) *BatchService {
	return &BatchService{
		batchRepo:    batchRepo,
		jobRepo:      jobRepo,
		timelineRepo: timelineRepo,
		queueClient:  queueClient,
		hub:          hub,
	}
}

// CreateBatchInput 创建批次输入
type CreateBatchInput struct {
	JobIDs          []uint
	VesselReference string
	Metadata        models.JSON
	ActorID         uint
	ActorRole       string
}

// PromoteBatchInput 批次推进输入
type PromoteBatchInput struct {
	BatchID   uint
	ToStatus  string
	ActorID   uint
	ActorRole string
}

// CreateBatch 从入库运单创建批次。
// 选中运单必须全部处于到仓状态且未属于其他批次；任一不满足则整体失败。
// 成员运单统一转为已入批并各记一条时间线。
func (s *BatchService) CreateBatch(ctx context.Context, input CreateBatchInput) (*models.Batch, error) {
	if input.ActorRole != constants.RoleWarehouse && input.ActorRole != constants.RoleAdmin && input.ActorRole != constants.RoleSuperadmin {
		return nil, ErrUnauthorized
	}
	ids := dedupeIDs(input.JobIDs)
	if len(ids) == 0 {
		return nil, ErrEmptySelection
	}

	batch := &models.Batch{
		BatchCode:       generateBatchCode(time.Now()),
		Status:          constants.BatchStatusInPreparation,
		VesselReference: strings.TrimSpace(input.VesselReference),
		Metadata:        input.Metadata,
		CreatedBy:       input.ActorID,
	}

	err := models.DB.Transaction(func(tx *gorm.DB) error {
		batchRepo := s.batchRepo.WithTx(tx)
		jobRepo := s.jobRepo.WithTx(tx)
		timelineRepo := s.timelineRepo.WithTx(tx)

		jobs, err := jobRepo.ListByIDs(ids)
		if err != nil {
			return err
		}
		if len(jobs) != len(ids) {
			return ErrJobNotFound
		}
		for _, job := range jobs {
			if job.Status != constants.JobStatusArrivedAtWarehouse || job.BatchID != nil {
				return ErrIneligibleJob
			}
		}

		if err := batchRepo.Create(batch); err != nil {
			return err
		}
		// 按运单ID升序逐个入批，时间线顺序确定
		for _, job := range jobs {
			if err := jobRepo.UpdateStatus(job.ID, constants.JobStatusBatched, map[string]interface{}{
				"batch_id": batch.ID,
			}); err != nil {
				return err
			}
			if err := timelineRepo.Append(&models.TimelineEntry{
				JobID:   job.ID,
				Status:  constants.JobStatusBatched,
				Cause:   constants.TimelineCauseBatchCascade,
				ActorID: input.ActorID,
				BatchID: &batch.ID,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Infow("batch_created",
		"batch_id", batch.ID,
		"batch_code", batch.BatchCode,
		"member_count", len(ids),
		"actor_id", input.ActorID,
	)
	if s.hub != nil {
		s.hub.Broadcast(ctx, syncer.Event{
			Type:       constants.SyncEventBatchCreated,
			EntityKind: constants.SyncEntityBatch,
			EntityID:   batch.ID,
			NewStatus:  batch.Status,
			At:         time.Now(),
		})
	}
	return s.batchRepo.GetByID(batch.ID)
}

// AddJobs 批次备货期内追加成员运单
func (s *BatchService) AddJobs(batchID uint, jobIDs []uint, actorID uint, actorRole string) (*models.Batch, error) {
	if actorRole != constants.RoleWarehouse && actorRole != constants.RoleAdmin && actorRole != constants.RoleSuperadmin {
		return nil, ErrUnauthorized
	}
	ids := dedupeIDs(jobIDs)
	if len(ids) == 0 {
		return nil, ErrEmptySelection
	}

	err := models.DB.Transaction(func(tx *gorm.DB) error {
		batchRepo := s.batchRepo.WithTx(tx)
		jobRepo := s.jobRepo.WithTx(tx)
		timelineRepo := s.timelineRepo.WithTx(tx)

		batch, err := batchRepo.GetByID(batchID)
		if err != nil {
			return err
		}
		if batch == nil {
			return ErrBatchNotFound
		}
		if batch.Status != constants.BatchStatusInPreparation {
			return ErrBatchClosed
		}

		jobs, err := jobRepo.ListByIDs(ids)
		if err != nil {
			return err
		}
		if len(jobs) != len(ids) {
			return ErrJobNotFound
		}
		for _, job := range jobs {
			if job.Status != constants.JobStatusArrivedAtWarehouse || job.BatchID != nil {
				return ErrIneligibleJob
			}
		}
		for _, job := range jobs {
			if err := jobRepo.UpdateStatus(job.ID, constants.JobStatusBatched, map[string]interface{}{
				"batch_id": batchID,
			}); err != nil {
				return err
			}
			if err := timelineRepo.Append(&models.TimelineEntry{
				JobID:   job.ID,
				Status:  constants.JobStatusBatched,
				Cause:   constants.TimelineCauseBatchCascade,
				ActorID: actorID,
				BatchID: &batchID,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.batchRepo.GetByID(batchID)
}

// RemoveJobs 批次备货期内移出成员运单，运单回到到仓状态
func (s *BatchService) RemoveJobs(batchID uint, jobIDs []uint, actorID uint, actorRole string) (*models.Batch, error) {
	if actorRole != constants.RoleWarehouse && actorRole != constants.RoleAdmin && actorRole != constants.RoleSuperadmin {
		return nil, ErrUnauthorized
	}
	ids := dedupeIDs(jobIDs)
	if len(ids) == 0 {
		return nil, ErrEmptySelection
	}

	err := models.DB.Transaction(func(tx *gorm.DB) error {
		batchRepo := s.batchRepo.WithTx(tx)
		jobRepo := s.jobRepo.WithTx(tx)
		timelineRepo := s.timelineRepo.WithTx(tx)

		batch, err := batchRepo.GetByID(batchID)
		if err != nil {
			return err
		}
		if batch == nil {
			return ErrBatchNotFound
		}
		if batch.Status != constants.BatchStatusInPreparation {
			return ErrBatchClosed
		}

		jobs, err := jobRepo.ListByIDs(ids)
		if err != nil {
			return err
		}
		if len(jobs) != len(ids) {
			return ErrJobNotFound
		}
		for _, job := range jobs {
			if job.BatchID == nil || *job.BatchID != batchID {
				return ErrIneligibleJob
			}
		}
		for _, job := range jobs {
			if err := jobRepo.UpdateStatus(job.ID, constants.JobStatusArrivedAtWarehouse, map[string]interface{}{
				"batch_id": nil,
			}); err != nil {
				return err
			}
			if err := timelineRepo.Append(&models.TimelineEntry{
				JobID:   job.ID,
				Status:  constants.JobStatusArrivedAtWarehouse,
				Cause:   constants.TimelineCauseBatchCascade,
				ActorID: actorID,
				BatchID: &batchID,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.batchRepo.GetByID(batchID)
}

// PromoteBatch 批次沿固定次序推进一步，并把新状态级联到全部成员运单。
// 级联按运单ID升序写时间线；进入分拨不会自动签收，末段仍需人工确认。
func (s *BatchService) PromoteBatch(ctx context.Context, input PromoteBatchInput) (*models.Batch, error) {
	if input.ActorRole != constants.RoleWarehouse && input.ActorRole != constants.RoleAdmin && input.ActorRole != constants.RoleSuperadmin {
		return nil, ErrUnauthorized
	}

	batch, err := s.batchRepo.GetByID(input.BatchID)
	if err != nil {
		return nil, err
	}
	if batch == nil {
		return nil, ErrBatchNotFound
	}
	if !CanPromoteBatch(batch.Status, input.ToStatus) {
		return nil, ErrInvalidBatchTransition
	}

	err = models.DB.Transaction(func(tx *gorm.DB) error {
		batchRepo := s.batchRepo.WithTx(tx)
		jobRepo := s.jobRepo.WithTx(tx)
		timelineRepo := s.timelineRepo.WithTx(tx)

		members, err := jobRepo.ListByBatch(input.BatchID)
		if err != nil {
			return err
		}
		if len(members) == 0 {
			return ErrBatchEmpty
		}

		updates := map[string]interface{}{}
		if input.ToStatus == constants.BatchStatusReadyToShip {
			// 成员名单自此冻结
			now := time.Now()
			updates["closed_at"] = &now
		}
		if err := batchRepo.UpdateStatus(input.BatchID, input.ToStatus, updates); err != nil {
			return err
		}

		cascade := CascadeJobStatus(input.ToStatus)
		if cascade == "" {
			return nil
		}
		// 同一次推进的级联共用同一时间戳
		cascadeAt := time.Now()
		for _, job := range members {
			if IsTerminal(job.Status) {
				continue
			}
			jobUpdates := map[string]interface{}{}
			if !IsBatchCarrying(cascade) {
				jobUpdates["batch_id"] = nil
			}
			if err := jobRepo.UpdateStatus(job.ID, cascade, jobUpdates); err != nil {
				return err
			}
			if err := timelineRepo.Append(&models.TimelineEntry{
				JobID:     job.ID,
				Status:    cascade,
				Cause:     constants.TimelineCauseBatchCascade,
				ActorID:   input.ActorID,
				BatchID:   &input.BatchID,
				CreatedAt: cascadeAt,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Infow("batch_promoted",
		"batch_id", input.BatchID,
		"from", batch.Status,
		"to", input.ToStatus,
		"actor_id", input.ActorID,
	)
	if s.hub != nil {
		s.hub.Broadcast(ctx, syncer.Event{
			Type:       constants.SyncEventBatchPromoted,
			EntityKind: constants.SyncEntityBatch,
			EntityID:   input.BatchID,
			NewStatus:  input.ToStatus,
			At:         time.Now(),
		})
	}
	return s.batchRepo.GetByID(input.BatchID)
}

// GetBatch 获取批次详情（成员按运单ID升序）
func (s *BatchService) GetBatch(id uint) (*models.Batch, error) {
	batch, err := s.batchRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if batch == nil {
		return nil, ErrBatchNotFound
	}
	return batch, nil
}

// ListBatches 分页查询批次
func (s *BatchService) ListBatches(filter repository.BatchListFilter) ([]models.Batch, int64, error) {
	return s.batchRepo.List(filter)
}

// dedupeIDs 去重并升序排列
func dedupeIDs(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	result := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		result = append(result, id)
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result
}
