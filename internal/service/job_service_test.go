package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shipline-next/internal/constants"
	"github.com/shipline-next/internal/models"
	"github.com/shipline-next/internal/queue"
	"github.com/shipline-next/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupJobServiceTest(t *testing.T) (*JobService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:job_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Staff{},
		&models.Job{},
		&models.TimelineEntry{},
		&models.Batch{},
		&models.Invoice{},
		&models.Payment{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db

	queueClient, err := queue.NewClient(nil)
	if err != nil {
		t.Fatalf("build queue client failed: %v", err)
	}
	svc := NewJobService(
		repository.NewJobRepository(db),
		repository.NewTimelineRepository(db),
		repository.NewInvoiceRepository(db),
		repository.NewStaffRepository(db),
		queueClient,
		nil,
		time.Minute,
		"USD",
	)
	return svc, db
}

func createTestStaff(t *testing.T, db *gorm.DB, username, role string) *models.Staff {
	t.Helper()
	staff := &models.Staff{
		Username:     username,
		PasswordHash: "hash",
		DisplayName:  username,
		Role:         role,
		Status:       constants.StaffStatusActive,
	}
	if err := db.Create(staff).Error; err != nil {
		t.Fatalf("create staff failed: %v", err)
	}
	return staff
}

func createTestJob(t *testing.T, db *gorm.DB, status string, mutate func(*models.Job)) *models.Job {
	t.Helper()
	job := &models.Job{
		TrackingCode:       fmt.Sprintf("SHIP-TEST-%d", time.Now().UnixNano()),
		Status:             status,
		ReceiverName:       "收件人",
		DestinationAddress: "金边市测试路 1 号",
		WeightKG:           models.NewMoneyFromDecimal(decimal.NewFromInt(10)),
		CreatedBy:          1,
	}
	if mutate != nil {
		mutate(job)
	}
	if err := db.Create(job).Error; err != nil {
		t.Fatalf("create job failed: %v", err)
	}
	entry := &models.TimelineEntry{
		JobID:   job.ID,
		Status:  status,
		Cause:   constants.TimelineCauseManual,
		ActorID: 1,
	}
	if err := db.Create(entry).Error; err != nil {
		t.Fatalf("create timeline entry failed: %v", err)
	}
	return job
}

func TestJobServiceCreateJob(t *testing.T) {
	svc, db := setupJobServiceTest(t)

	job, err := svc.CreateJob(CreateJobInput{
		SenderName:         "寄件人",
		ReceiverName:       "收件人",
		OriginAddress:      "广州市测试路 2 号",
		DestinationAddress: "金边市测试路 1 号",
		WeightKG:           models.NewMoneyFromDecimal(decimal.NewFromFloat(12.5)),
		TotalAmount:        models.NewMoneyFromDecimal(decimal.NewFromInt(100)),
		ActorID:            7,
	})
	if err != nil {
		t.Fatalf("create job failed: %v", err)
	}
	if job.Status != constants.JobStatusDraft {
		t.Fatalf("new job status = %s, want draft", job.Status)
	}
	if !strings.HasPrefix(job.TrackingCode, constants.TrackingCodePrefix+"-") {
		t.Fatalf("unexpected tracking code: %s", job.TrackingCode)
	}
	if len(job.Timeline) != 1 || job.Timeline[0].Status != constants.JobStatusDraft {
		t.Fatalf("unexpected timeline: %+v", job.Timeline)
	}

	var invoice models.Invoice
	if err := db.Where("job_id = ?", job.ID).First(&invoice).Error; err != nil {
		t.Fatalf("invoice not created: %v", err)
	}
	if invoice.Status != constants.InvoiceStatusUnpaid {
		t.Fatalf("invoice status = %s, want unpaid", invoice.Status)
	}
	if invoice.Currency != "USD" {
		t.Fatalf("invoice currency = %s, want USD", invoice.Currency)
	}
	if !invoice.TotalAmount.Decimal.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("invoice total = %s, want 100", invoice.TotalAmount.String())
	}
}

func TestJobServiceCreateJobIncomplete(t *testing.T) {
	svc, _ := setupJobServiceTest(t)
	_, err := svc.CreateJob(CreateJobInput{SenderName: "只有寄件人"})
	if !errors.Is(err, ErrInvalidJobInput) {
		t.Fatalf("expected ErrInvalidJobInput, got %v", err)
	}
}

func TestJobServiceApplyTransition(t *testing.T) {
	svc, db := setupJobServiceTest(t)
	job := createTestJob(t, db, constants.JobStatusDraft, nil)

	updated, err := svc.ApplyTransition(context.Background(), ApplyTransitionInput{
		JobID:     job.ID,
		ToStatus:  constants.JobStatusPending,
		ActorID:   1,
		ActorRole: constants.RoleAdmin,
		Notes:     "审核通过",
	})
	if err != nil {
		t.Fatalf("apply transition failed: %v", err)
	}
	if updated.Status != constants.JobStatusPending {
		t.Fatalf("job status = %s, want pending", updated.Status)
	}
	if len(updated.Timeline) != 2 {
		t.Fatalf("timeline length = %d, want 2", len(updated.Timeline))
	}
	last := updated.Timeline[len(updated.Timeline)-1]
	if last.Status != constants.JobStatusPending || last.Cause != constants.TimelineCauseManual || last.IsRevert {
		t.Fatalf("unexpected last entry: %+v", last)
	}
}

func TestJobServiceInvalidTransition(t *testing.T) {
	svc, db := setupJobServiceTest(t)
	job := createTestJob(t, db, constants.JobStatusDraft, nil)

	_, err := svc.ApplyTransition(context.Background(), ApplyTransitionInput{
		JobID:     job.ID,
		ToStatus:  constants.JobStatusDelivered,
		ActorID:   1,
		ActorRole: constants.RoleAdmin,
	})
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestJobServiceTransitionRoleExcluded(t *testing.T) {
	svc, db := setupJobServiceTest(t)
	driver := createTestStaff(t, db, "driver_a", constants.RoleDriver)
	job := createTestJob(t, db, constants.JobStatusInTransit, func(j *models.Job) {
		j.AssignedDriverID = &driver.ID
	})

	_, err := svc.ApplyTransition(context.Background(), ApplyTransitionInput{
		JobID:     job.ID,
		ToStatus:  constants.JobStatusArrivedAtWarehouse,
		ActorID:   driver.ID,
		ActorRole: constants.RoleDriver,
	})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestJobServiceTransitionAssignmentCheck(t *testing.T) {
	svc, db := setupJobServiceTest(t)
	driver := createTestStaff(t, db, "driver_b", constants.RoleDriver)
	other := createTestStaff(t, db, "driver_c", constants.RoleDriver)
	job := createTestJob(t, db, constants.JobStatusAssigned, func(j *models.Job) {
		j.AssignedDriverID = &driver.ID
	})

	// 未被指派的司机不能操作
	_, err := svc.ApplyTransition(context.Background(), ApplyTransitionInput{
		JobID:     job.ID,
		ToStatus:  constants.JobStatusCollected,
		ActorID:   other.ID,
		ActorRole: constants.RoleDriver,
	})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for unassigned driver, got %v", err)
	}

	// 被指派的司机可以确认揽收
	updated, err := svc.ApplyTransition(context.Background(), ApplyTransitionInput{
		JobID:     job.ID,
		ToStatus:  constants.JobStatusCollected,
		ActorID:   driver.ID,
		ActorRole: constants.RoleDriver,
	})
	if err != nil {
		t.Fatalf("assigned driver transition failed: %v", err)
	}
	if updated.Status != constants.JobStatusCollected {
		t.Fatalf("job status = %s, want collected", updated.Status)
	}
}

func TestJobServiceTransitionJobNotFound(t *testing.T) {
	svc, _ := setupJobServiceTest(t)
	_, err := svc.ApplyTransition(context.Background(), ApplyTransitionInput{
		JobID:     9999,
		ToStatus:  constants.JobStatusPending,
		ActorID:   1,
		ActorRole: constants.RoleAdmin,
	})
	if !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}

func TestJobServiceRevertStatus(t *testing.T) {
	svc, db := setupJobServiceTest(t)
	job := createTestJob(t, db, constants.JobStatusDraft, nil)

	ctx := context.Background()
	for _, status := range []string{constants.JobStatusPending, constants.JobStatusAssigned} {
		if _, err := svc.ApplyTransition(ctx, ApplyTransitionInput{
			JobID:     job.ID,
			ToStatus:  status,
			ActorID:   1,
			ActorRole: constants.RoleAdmin,
		}); err != nil {
			t.Fatalf("transition to %s failed: %v", status, err)
		}
	}

	updated, err := svc.RevertStatus(ctx, RevertStatusInput{
		JobID:     job.ID,
		ToStatus:  constants.JobStatusPending,
		ActorID:   1,
		ActorRole: constants.RoleAdmin,
		Comment:   "司机指派有误，需要重新派单",
	})
	if err != nil {
		t.Fatalf("revert failed: %v", err)
	}
	if updated.Status != constants.JobStatusPending {
		t.Fatalf("job status = %s, want pending", updated.Status)
	}
	last := updated.Timeline[len(updated.Timeline)-1]
	if !last.IsRevert || last.Cause != constants.TimelineCauseRevert {
		t.Fatalf("revert entry not tagged: %+v", last)
	}
	// 时间线只追加，历史记录保留
	if len(updated.Timeline) != 4 {
		t.Fatalf("timeline length = %d, want 4", len(updated.Timeline))
	}
}

func TestJobServiceRevertGuards(t *testing.T) {
	svc, db := setupJobServiceTest(t)
	job := createTestJob(t, db, constants.JobStatusDraft, nil)
	ctx := context.Background()

	if _, err := svc.ApplyTransition(ctx, ApplyTransitionInput{
		JobID:     job.ID,
		ToStatus:  constants.JobStatusPending,
		ActorID:   1,
		ActorRole: constants.RoleAdmin,
	}); err != nil {
		t.Fatalf("transition failed: %v", err)
	}

	// 非管理员不能回退
	_, err := svc.RevertStatus(ctx, RevertStatusInput{
		JobID:     job.ID,
		ToStatus:  constants.JobStatusDraft,
		ActorRole: constants.RoleWarehouse,
		Comment:   "正常长度的说明",
	})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	// 备注过短
	_, err = svc.RevertStatus(ctx, RevertStatusInput{
		JobID:     job.ID,
		ToStatus:  constants.JobStatusDraft,
		ActorRole: constants.RoleAdmin,
		Comment:   " 短 ",
	})
	if !errors.Is(err, ErrRevertCommentRequired) {
		t.Fatalf("expected ErrRevertCommentRequired, got %v", err)
	}

	// 目标状态从未出现在时间线上
	_, err = svc.RevertStatus(ctx, RevertStatusInput{
		JobID:     job.ID,
		ToStatus:  constants.JobStatusAssigned,
		ActorRole: constants.RoleAdmin,
		Comment:   "想回退到未出现过的状态",
	})
	if !errors.Is(err, ErrNeverVisited) {
		t.Fatalf("expected ErrNeverVisited, got %v", err)
	}

	// 回退到当前状态没有意义
	_, err = svc.RevertStatus(ctx, RevertStatusInput{
		JobID:     job.ID,
		ToStatus:  constants.JobStatusPending,
		ActorRole: constants.RoleAdmin,
		Comment:   "回退到当前状态",
	})
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestJobServiceAssignDriver(t *testing.T) {
	svc, db := setupJobServiceTest(t)
	driver := createTestStaff(t, db, "driver_d", constants.RoleDriver)
	agent := createTestStaff(t, db, "agent_a", constants.RoleDeliveryAgent)
	disabled := createTestStaff(t, db, "driver_off", constants.RoleDriver)
	db.Model(disabled).Update("status", constants.StaffStatusDisabled)
	job := createTestJob(t, db, constants.JobStatusPending, nil)

	// 角色不匹配
	if _, err := svc.AssignDriver(job.ID, agent.ID, 1); !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("expected ErrInvalidRole, got %v", err)
	}
	// 停用账号不能被指派
	if _, err := svc.AssignDriver(job.ID, disabled.ID, 1); !errors.Is(err, ErrStaffDisabled) {
		t.Fatalf("expected ErrStaffDisabled, got %v", err)
	}

	updated, err := svc.AssignDriver(job.ID, driver.ID, 1)
	if err != nil {
		t.Fatalf("assign driver failed: %v", err)
	}
	if updated.AssignedDriverID == nil || *updated.AssignedDriverID != driver.ID {
		t.Fatalf("driver not assigned: %+v", updated.AssignedDriverID)
	}

	// 派送员指派走独立字段
	updated, err = svc.AssignDeliveryAgent(job.ID, agent.ID, 1)
	if err != nil {
		t.Fatalf("assign delivery agent failed: %v", err)
	}
	if updated.AssignedDeliveryAgent == nil || *updated.AssignedDeliveryAgent != agent.ID {
		t.Fatalf("delivery agent not assigned: %+v", updated.AssignedDeliveryAgent)
	}
}

func TestJobServiceAllowedNextStatuses(t *testing.T) {
	svc, db := setupJobServiceTest(t)
	job := createTestJob(t, db, constants.JobStatusOutForDelivery, nil)

	statuses, err := svc.AllowedNextStatuses(job.ID, constants.RoleDeliveryAgent)
	if err != nil {
		t.Fatalf("allowed next statuses failed: %v", err)
	}
	want := map[string]bool{
		constants.JobStatusDelivered:      true,
		constants.JobStatusFailedDelivery: true,
	}
	if len(statuses) != len(want) {
		t.Fatalf("allowed statuses = %v, want delivered/failed_delivery", statuses)
	}
	for _, s := range statuses {
		if !want[s] {
			t.Fatalf("unexpected allowed status %s", s)
		}
	}
}

func TestJobServiceTrackByCode(t *testing.T) {
	svc, db := setupJobServiceTest(t)
	job := createTestJob(t, db, constants.JobStatusInTransit, nil)

	found, err := svc.GetJobByTrackingCode(job.TrackingCode)
	if err != nil {
		t.Fatalf("track by code failed: %v", err)
	}
	if found.ID != job.ID {
		t.Fatalf("found job %d, want %d", found.ID, job.ID)
	}
	if _, err := svc.GetJobByTrackingCode("SHIP-00000000-NONE"); !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}
