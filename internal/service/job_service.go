package service

import (
	"context"
	"strings"
	"time"

	"github.com/shipline-next/internal/cache"
	"github.com/shipline-next/internal/constants"
	"github.com/shipline-next/internal/logger"
	"github.com/shipline-next/internal/models"
	"github.com/shipline-next/internal/queue"
	"github.com/shipline-next/internal/repository"
	"github.com/shipline-next/internal/syncer"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// JobService 运单服务
type JobService struct {
	jobRepo        repository.JobRepository
	timelineRepo   repository.TimelineRepository
	invoiceRepo    repository.InvoiceRepository
	staffRepo      repository.StaffRepository
	queueClient    *queue.Client
	hub            *syncer.Hub
	idempotencyTTL time.Duration
	currency       string
}

// NewJobService 创建运单服务
func NewJobService(jobRepo repository.JobRepository, timelineRepo repository.TimelineRepository, invoiceRepo repository.InvoiceRepository, staffRepo repository.StaffRepository, queueClient *queue.Client, hub *syncer.Hub, idempotencyTTL time.Duration, currency string) *JobService {
	return &JobService{
		jobRepo:        jobRepo,
		timelineRepo:   timelineRepo,
		invoiceRepo:    invoiceRepo,
		staffRepo:      staffRepo,
		queueClient:    queueClient,
		hub:            hub,
		idempotencyTTL: idempotencyTTL,
		currency:       currency,
	}
}

// CreateJobInput 创建运单输入
type CreateJobInput struct {
	SenderName         string
	SenderPhone        string
	ReceiverName       string
	ReceiverPhone      string
	OriginAddress      string
	DestinationAddress string
	WeightKG           models.Money
	TotalAmount        models.Money
	Currency           string
	ActorID            uint
}

// ApplyTransitionInput 状态流转输入
type ApplyTransitionInput struct {
	JobID          uint
	ToStatus       string
	ActorID        uint
	ActorRole      string
	Notes          string
	DocumentRef    string
	IdempotencyKey string
}

// RevertStatusInput 状态回退输入
type RevertStatusInput struct {
	JobID          uint
	ToStatus       string
	ActorID        uint
	ActorRole      string
	Comment        string
	IdempotencyKey string
}

// CreateJob 创建运单，初始状态为草稿，同时建立发票
func (s *JobService) CreateJob(input CreateJobInput) (*models.Job, error) {
	if strings.TrimSpace(input.ReceiverName) == "" || strings.TrimSpace(input.DestinationAddress) == "" {
		return nil, ErrInvalidJobInput
	}
	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = s.currency
	}

	job := &models.Job{
		TrackingCode:       generateTrackingCode(time.Now()),
		Status:             constants.JobStatusDraft,
		SenderName:         input.SenderName,
		SenderPhone:        input.SenderPhone,
		ReceiverName:       input.ReceiverName,
		ReceiverPhone:      input.ReceiverPhone,
		OriginAddress:      input.OriginAddress,
		DestinationAddress: input.DestinationAddress,
		WeightKG:           input.WeightKG,
		CreatedBy:          input.ActorID,
	}

	err := models.DB.Transaction(func(tx *gorm.DB) error {
		jobRepo := s.jobRepo.WithTx(tx)
		timelineRepo := s.timelineRepo.WithTx(tx)
		invoiceRepo := s.invoiceRepo.WithTx(tx)

		if err := jobRepo.Create(job); err != nil {
			return err
		}
		if err := timelineRepo.Append(&models.TimelineEntry{
			JobID:   job.ID,
			Status:  constants.JobStatusDraft,
			Cause:   constants.TimelineCauseManual,
			ActorID: input.ActorID,
		}); err != nil {
			return err
		}
		return invoiceRepo.Create(&models.Invoice{
			JobID:       job.ID,
			Currency:    currency,
			TotalAmount: input.TotalAmount,
			PaidAmount:  models.NewMoneyFromDecimal(decimal.Zero),
			Status:      constants.InvoiceStatusUnpaid,
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Infow("job_created",
		"job_id", job.ID,
		"tracking_code", job.TrackingCode,
		"actor_id", input.ActorID,
	)
	return s.jobRepo.GetByID(job.ID)
}

// ApplyTransition 正向状态流转。
// 状态图与角色限制都通过后才落库；运单离开批次流转区间时摘除批次关联。
func (s *JobService) ApplyTransition(ctx context.Context, input ApplyTransitionInput) (*models.Job, error) {
	if err := s.claimIdempotency(ctx, "job:transition", input.IdempotencyKey); err != nil {
		return nil, err
	}

	job, err := s.jobRepo.GetByID(input.JobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, ErrJobNotFound
	}
	if !CanTransition(job.Status, input.ToStatus) {
		return nil, ErrInvalidTransition
	}
	if !RoleMayRequest(job.Status, input.ToStatus, input.ActorRole) {
		return nil, ErrUnauthorized
	}
	if err := s.checkAssignment(job, input.ActorID, input.ActorRole); err != nil {
		return nil, err
	}

	err = models.DB.Transaction(func(tx *gorm.DB) error {
		jobRepo := s.jobRepo.WithTx(tx)
		timelineRepo := s.timelineRepo.WithTx(tx)

		updates := map[string]interface{}{}
		if job.BatchID != nil && !IsBatchCarrying(input.ToStatus) {
			updates["batch_id"] = nil
		}
		if err := jobRepo.UpdateStatus(job.ID, input.ToStatus, updates); err != nil {
			return err
		}
		return timelineRepo.Append(&models.TimelineEntry{
			JobID:       job.ID,
			Status:      input.ToStatus,
			Cause:       constants.TimelineCauseManual,
			ActorID:     input.ActorID,
			Notes:       input.Notes,
			DocumentRef: input.DocumentRef,
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Infow("job_status_changed",
		"job_id", job.ID,
		"from", job.Status,
		"to", input.ToStatus,
		"actor_id", input.ActorID,
		"actor_role", input.ActorRole,
	)
	s.notifyStatus(ctx, job.ID, input.ToStatus, false)
	return s.jobRepo.GetByID(job.ID)
}

// RevertStatus 管理员回退运单状态。
// 目标状态必须在时间线上出现过，且必须附带说明。
func (s *JobService) RevertStatus(ctx context.Context, input RevertStatusInput) (*models.Job, error) {
	if input.ActorRole != constants.RoleAdmin && input.ActorRole != constants.RoleSuperadmin {
		return nil, ErrUnauthorized
	}
	if len(strings.TrimSpace(input.Comment)) < constants.RevertCommentMinLen {
		return nil, ErrRevertCommentRequired
	}
	if err := s.claimIdempotency(ctx, "job:revert", input.IdempotencyKey); err != nil {
		return nil, err
	}

	job, err := s.jobRepo.GetByID(input.JobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, ErrJobNotFound
	}
	if job.Status == input.ToStatus {
		return nil, ErrInvalidTransition
	}
	visited, err := s.timelineRepo.HasVisited(job.ID, input.ToStatus)
	if err != nil {
		return nil, err
	}
	if !visited {
		return nil, ErrNeverVisited
	}

	err = models.DB.Transaction(func(tx *gorm.DB) error {
		jobRepo := s.jobRepo.WithTx(tx)
		timelineRepo := s.timelineRepo.WithTx(tx)

		updates := map[string]interface{}{}
		if job.BatchID != nil && !IsBatchCarrying(input.ToStatus) {
			updates["batch_id"] = nil
		}
		if err := jobRepo.UpdateStatus(job.ID, input.ToStatus, updates); err != nil {
			return err
		}
		return timelineRepo.Append(&models.TimelineEntry{
			JobID:    job.ID,
			Status:   input.ToStatus,
			Cause:    constants.TimelineCauseRevert,
			IsRevert: true,
			ActorID:  input.ActorID,
			Notes:    strings.TrimSpace(input.Comment),
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Infow("job_status_reverted",
		"job_id", job.ID,
		"from", job.Status,
		"to", input.ToStatus,
		"actor_id", input.ActorID,
	)
	s.notifyStatus(ctx, job.ID, input.ToStatus, true)
	return s.jobRepo.GetByID(job.ID)
}

// AssignDriver 指派揽收司机
func (s *JobService) AssignDriver(jobID, driverID, actorID uint) (*models.Job, error) {
	return s.assignStaff(jobID, driverID, actorID, constants.RoleDriver, "assigned_driver_id")
}

// AssignDeliveryAgent 指派派送员
func (s *JobService) AssignDeliveryAgent(jobID, agentID, actorID uint) (*models.Job, error) {
	return s.assignStaff(jobID, agentID, actorID, constants.RoleDeliveryAgent, "assigned_delivery_agent_id")
}

func (s *JobService) assignStaff(jobID, staffID, actorID uint, wantRole, column string) (*models.Job, error) {
	job, err := s.jobRepo.GetByID(jobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, ErrJobNotFound
	}
	staff, err := s.staffRepo.GetByID(staffID)
	if err != nil {
		return nil, err
	}
	if staff == nil {
		return nil, ErrStaffNotFound
	}
	if staff.Role != wantRole {
		return nil, ErrInvalidRole
	}
	if staff.Status != constants.StaffStatusActive {
		return nil, ErrStaffDisabled
	}
	if err := s.jobRepo.Updates(jobID, map[string]interface{}{column: staffID}); err != nil {
		return nil, err
	}
	logger.Infow("job_staff_assigned",
		"job_id", jobID,
		"staff_id", staffID,
		"role", wantRole,
		"actor_id", actorID,
	)
	return s.jobRepo.GetByID(jobID)
}

// checkAssignment 司机与派送员只能操作指派给自己的运单
func (s *JobService) checkAssignment(job *models.Job, actorID uint, role string) error {
	switch role {
	case constants.RoleDriver:
		if job.AssignedDriverID == nil || *job.AssignedDriverID != actorID {
			return ErrUnauthorized
		}
	case constants.RoleDeliveryAgent:
		if job.AssignedDeliveryAgent == nil || *job.AssignedDeliveryAgent != actorID {
			return ErrUnauthorized
		}
	}
	return nil
}

// claimIdempotency 幂等令牌去重。Redis 未启用时放行。
func (s *JobService) claimIdempotency(ctx context.Context, scope, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil
	}
	ok, err := cache.ClaimOnce(ctx, scope+":"+key, s.idempotencyTTL)
	if err != nil {
		logger.Warnw("idempotency_claim_failed", "err", err, "scope", scope)
		return nil
	}
	if !ok {
		return ErrDuplicateRequest
	}
	return nil
}

func (s *JobService) notifyStatus(ctx context.Context, jobID uint, status string, isRevert bool) {
	if s.hub != nil {
		evtType := constants.SyncEventJobStatusChanged
		if isRevert {
			evtType = constants.SyncEventJobStatusReverted
		}
		s.hub.Broadcast(ctx, syncer.Event{
			Type:       evtType,
			EntityKind: constants.SyncEntityJob,
			EntityID:   jobID,
			NewStatus:  status,
			At:         time.Now(),
		})
	}
	if err := s.queueClient.EnqueueJobStatusNotify(queue.JobStatusNotifyPayload{
		JobID:    jobID,
		Status:   status,
		IsRevert: isRevert,
	}); err != nil {
		logger.Warnw("job_enqueue_status_notify_failed", "err", err, "job_id", jobID)
	}
	if status == constants.JobStatusDelivered && !isRevert {
		if err := s.queueClient.EnqueueInvoiceFinalize(queue.InvoiceFinalizePayload{JobID: jobID}); err != nil {
			logger.Warnw("job_enqueue_invoice_finalize_failed", "err", err, "job_id", jobID)
		}
	}
}
