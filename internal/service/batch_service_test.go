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
	"gorm.io/gorm"
)

func setupBatchServiceTest(t *testing.T) (*BatchService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:batch_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
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
	svc := NewBatchService(
		repository.NewBatchRepository(db),
		repository.NewJobRepository(db),
		repository.NewTimelineRepository(db),
		queueClient,
		nil,
	)
	return svc, db
}

func createWarehouseJobs(t *testing.T, db *gorm.DB, count int) []uint {
	t.Helper()
	ids := make([]uint, 0, count)
	for i := 0; i < count; i++ {
		job := createTestJob(t, db, constants.JobStatusArrivedAtWarehouse, nil)
		ids = append(ids, job.ID)
	}
	return ids
}

func TestBatchServiceCreateBatch(t *testing.T) {
	svc, db := setupBatchServiceTest(t)
	ids := createWarehouseJobs(t, db, 3)

	batch, err := svc.CreateBatch(context.Background(), CreateBatchInput{
		JobIDs:          []uint{ids[2], ids[0], ids[1], ids[0]},
		VesselReference: "MV-OCEAN-12",
		ActorID:         1,
		ActorRole:       constants.RoleWarehouse,
	})
	if err != nil {
		t.Fatalf("create batch failed: %v", err)
	}
	if batch.Status != constants.BatchStatusInPreparation {
		t.Fatalf("batch status = %s, want in_preparation", batch.Status)
	}
	if !strings.HasPrefix(batch.BatchCode, constants.BatchCodePrefix+"-") {
		t.Fatalf("unexpected batch code: %s", batch.BatchCode)
	}
	if len(batch.Jobs) != 3 {
		t.Fatalf("batch member count = %d, want 3", len(batch.Jobs))
	}
	// 成员按运单ID升序，重复ID去重
	for i, job := range batch.Jobs {
		if job.Status != constants.JobStatusBatched {
			t.Fatalf("member %d status = %s, want batched", job.ID, job.Status)
		}
		if job.BatchID == nil || *job.BatchID != batch.ID {
			t.Fatalf("member %d batch_id not set", job.ID)
		}
		if i > 0 && batch.Jobs[i-1].ID > job.ID {
			t.Fatalf("members not in ascending id order: %v", batch.Jobs)
		}
	}

	var entries []models.TimelineEntry
	if err := db.Where("cause = ?", constants.TimelineCauseBatchCascade).Order("id ASC").Find(&entries).Error; err != nil {
		t.Fatalf("load cascade entries failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("cascade entry count = %d, want 3", len(entries))
	}
	for i, entry := range entries {
		if entry.BatchID == nil || *entry.BatchID != batch.ID {
			t.Fatalf("cascade entry %d missing batch_id", entry.ID)
		}
		if i > 0 && entries[i-1].JobID > entry.JobID {
			t.Fatalf("cascade entries not written in ascending job id order")
		}
	}
}

func TestBatchServiceCreateBatchIneligible(t *testing.T) {
	svc, db := setupBatchServiceTest(t)
	good := createTestJob(t, db, constants.JobStatusArrivedAtWarehouse, nil)
	bad := createTestJob(t, db, constants.JobStatusPending, nil)

	_, err := svc.CreateBatch(context.Background(), CreateBatchInput{
		JobIDs:    []uint{good.ID, bad.ID},
		ActorID:   1,
		ActorRole: constants.RoleWarehouse,
	})
	if !errors.Is(err, ErrIneligibleJob) {
		t.Fatalf("expected ErrIneligibleJob, got %v", err)
	}

	// 整体失败，合格运单不得被部分入批
	var reloaded models.Job
	if err := db.First(&reloaded, good.ID).Error; err != nil {
		t.Fatalf("reload job failed: %v", err)
	}
	if reloaded.Status != constants.JobStatusArrivedAtWarehouse || reloaded.BatchID != nil {
		t.Fatalf("partial mutation leaked: %+v", reloaded)
	}
}

func TestBatchServiceCreateBatchGuards(t *testing.T) {
	svc, db := setupBatchServiceTest(t)
	ids := createWarehouseJobs(t, db, 1)
	ctx := context.Background()

	if _, err := svc.CreateBatch(ctx, CreateBatchInput{
		JobIDs:    ids,
		ActorRole: constants.RoleDriver,
	}); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if _, err := svc.CreateBatch(ctx, CreateBatchInput{
		ActorRole: constants.RoleWarehouse,
	}); !errors.Is(err, ErrEmptySelection) {
		t.Fatalf("expected ErrEmptySelection, got %v", err)
	}
	if _, err := svc.CreateBatch(ctx, CreateBatchInput{
		JobIDs:    []uint{ids[0], 9999},
		ActorRole: constants.RoleWarehouse,
	}); !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}

	// 已入批运单不能再次入批
	if _, err := svc.CreateBatch(ctx, CreateBatchInput{
		JobIDs:    ids,
		ActorRole: constants.RoleWarehouse,
	}); err != nil {
		t.Fatalf("first batch failed: %v", err)
	}
	if _, err := svc.CreateBatch(ctx, CreateBatchInput{
		JobIDs:    ids,
		ActorRole: constants.RoleWarehouse,
	}); !errors.Is(err, ErrIneligibleJob) {
		t.Fatalf("expected ErrIneligibleJob for double batching, got %v", err)
	}
}

func TestBatchServicePromoteFullCycle(t *testing.T) {
	svc, db := setupBatchServiceTest(t)
	ids := createWarehouseJobs(t, db, 2)
	ctx := context.Background()

	batch, err := svc.CreateBatch(ctx, CreateBatchInput{
		JobIDs:    ids,
		ActorID:   1,
		ActorRole: constants.RoleWarehouse,
	})
	if err != nil {
		t.Fatalf("create batch failed: %v", err)
	}

	// 跳级推进被拒绝
	if _, err := svc.PromoteBatch(ctx, PromoteBatchInput{
		BatchID:   batch.ID,
		ToStatus:  constants.BatchStatusShipped,
		ActorRole: constants.RoleWarehouse,
	}); !errors.Is(err, ErrInvalidBatchTransition) {
		t.Fatalf("expected ErrInvalidBatchTransition, got %v", err)
	}

	// ready_to_ship 冻结成员名单
	batch, err = svc.PromoteBatch(ctx, PromoteBatchInput{
		BatchID:   batch.ID,
		ToStatus:  constants.BatchStatusReadyToShip,
		ActorID:   1,
		ActorRole: constants.RoleWarehouse,
	})
	if err != nil {
		t.Fatalf("promote to ready_to_ship failed: %v", err)
	}
	if batch.ClosedAt == nil {
		t.Fatal("closed_at not set at ready_to_ship")
	}

	steps := []struct {
		batchStatus string
		jobStatus   string
	}{
		{constants.BatchStatusShipped, constants.JobStatusShipped},
		{constants.BatchStatusInTransit, constants.JobStatusShipped},
		{constants.BatchStatusArrived, constants.JobStatusArrivedAtDestination},
		{constants.BatchStatusDistributed, constants.JobStatusReadyForDelivery},
	}
	for _, step := range steps {
		batch, err = svc.PromoteBatch(ctx, PromoteBatchInput{
			BatchID:   batch.ID,
			ToStatus:  step.batchStatus,
			ActorID:   1,
			ActorRole: constants.RoleWarehouse,
		})
		if err != nil {
			t.Fatalf("promote to %s failed: %v", step.batchStatus, err)
		}
		for _, job := range batch.Jobs {
			if job.Status != step.jobStatus {
				t.Fatalf("at %s member status = %s, want %s", step.batchStatus, job.Status, step.jobStatus)
			}
		}
	}

	// 分拨后成员待派送，不自动签收，batch_id 仍保留
	for _, job := range batch.Jobs {
		if job.Status == constants.JobStatusDelivered {
			t.Fatal("distribution must not auto-deliver")
		}
		if job.BatchID == nil {
			t.Fatal("ready_for_delivery should still carry batch_id")
		}
	}

	// 终态批次不可再推进
	if _, err := svc.PromoteBatch(ctx, PromoteBatchInput{
		BatchID:   batch.ID,
		ToStatus:  constants.BatchStatusDistributed,
		ActorRole: constants.RoleWarehouse,
	}); !errors.Is(err, ErrInvalidBatchTransition) {
		t.Fatalf("expected ErrInvalidBatchTransition after distributed, got %v", err)
	}
}

func TestBatchServicePromoteSkipsTerminalMembers(t *testing.T) {
	svc, db := setupBatchServiceTest(t)
	ids := createWarehouseJobs(t, db, 2)
	ctx := context.Background()

	batch, err := svc.CreateBatch(ctx, CreateBatchInput{
		JobIDs:    ids,
		ActorID:   1,
		ActorRole: constants.RoleWarehouse,
	})
	if err != nil {
		t.Fatalf("create batch failed: %v", err)
	}

	// 其中一单被作废，后续级联应当跳过它
	if err := db.Model(&models.Job{}).Where("id = ?", ids[0]).
		Updates(map[string]interface{}{"status": constants.JobStatusCancelled, "batch_id": nil}).Error; err != nil {
		t.Fatalf("cancel member failed: %v", err)
	}

	if _, err := svc.PromoteBatch(ctx, PromoteBatchInput{
		BatchID:   batch.ID,
		ToStatus:  constants.BatchStatusReadyToShip,
		ActorID:   1,
		ActorRole: constants.RoleWarehouse,
	}); err != nil {
		t.Fatalf("promote failed: %v", err)
	}
	if _, err := svc.PromoteBatch(ctx, PromoteBatchInput{
		BatchID:   batch.ID,
		ToStatus:  constants.BatchStatusShipped,
		ActorID:   1,
		ActorRole: constants.RoleWarehouse,
	}); err != nil {
		t.Fatalf("promote failed: %v", err)
	}

	var cancelled models.Job
	if err := db.First(&cancelled, ids[0]).Error; err != nil {
		t.Fatalf("reload cancelled job failed: %v", err)
	}
	if cancelled.Status != constants.JobStatusCancelled {
		t.Fatalf("terminal member was cascaded to %s", cancelled.Status)
	}
	var shipped models.Job
	if err := db.First(&shipped, ids[1]).Error; err != nil {
		t.Fatalf("reload member failed: %v", err)
	}
	if shipped.Status != constants.JobStatusShipped {
		t.Fatalf("live member status = %s, want shipped", shipped.Status)
	}
}

func TestBatchServiceMembershipLifecycle(t *testing.T) {
	svc, db := setupBatchServiceTest(t)
	ids := createWarehouseJobs(t, db, 2)
	extra := createTestJob(t, db, constants.JobStatusArrivedAtWarehouse, nil)
	ctx := context.Background()

	batch, err := svc.CreateBatch(ctx, CreateBatchInput{
		JobIDs:    ids,
		ActorID:   1,
		ActorRole: constants.RoleWarehouse,
	})
	if err != nil {
		t.Fatalf("create batch failed: %v", err)
	}

	// 备货期内可追加
	batch, err = svc.AddJobs(batch.ID, []uint{extra.ID}, 1, constants.RoleWarehouse)
	if err != nil {
		t.Fatalf("add jobs failed: %v", err)
	}
	if len(batch.Jobs) != 3 {
		t.Fatalf("member count = %d, want 3", len(batch.Jobs))
	}

	// 备货期内可移出，运单回到到仓状态
	batch, err = svc.RemoveJobs(batch.ID, []uint{extra.ID}, 1, constants.RoleWarehouse)
	if err != nil {
		t.Fatalf("remove jobs failed: %v", err)
	}
	if len(batch.Jobs) != 2 {
		t.Fatalf("member count after remove = %d, want 2", len(batch.Jobs))
	}
	var removed models.Job
	if err := db.First(&removed, extra.ID).Error; err != nil {
		t.Fatalf("reload removed job failed: %v", err)
	}
	if removed.Status != constants.JobStatusArrivedAtWarehouse || removed.BatchID != nil {
		t.Fatalf("removed job not restored: %+v", removed)
	}

	// 冻结后不可调整
	if _, err := svc.PromoteBatch(ctx, PromoteBatchInput{
		BatchID:   batch.ID,
		ToStatus:  constants.BatchStatusReadyToShip,
		ActorID:   1,
		ActorRole: constants.RoleWarehouse,
	}); err != nil {
		t.Fatalf("promote failed: %v", err)
	}
	if _, err := svc.AddJobs(batch.ID, []uint{extra.ID}, 1, constants.RoleWarehouse); !errors.Is(err, ErrBatchClosed) {
		t.Fatalf("expected ErrBatchClosed on add, got %v", err)
	}
	if _, err := svc.RemoveJobs(batch.ID, ids[:1], 1, constants.RoleWarehouse); !errors.Is(err, ErrBatchClosed) {
		t.Fatalf("expected ErrBatchClosed on remove, got %v", err)
	}
}

func TestBatchServicePromoteCascadeSharesTimestamp(t *testing.T) {
	svc, db := setupBatchServiceTest(t)
	ids := createWarehouseJobs(t, db, 3)
	ctx := context.Background()

	batch, err := svc.CreateBatch(ctx, CreateBatchInput{
		JobIDs:    ids,
		ActorID:   1,
		ActorRole: constants.RoleWarehouse,
	})
	if err != nil {
		t.Fatalf("create batch failed: %v", err)
	}
	if _, err := svc.PromoteBatch(ctx, PromoteBatchInput{
		BatchID:   batch.ID,
		ToStatus:  constants.BatchStatusReadyToShip,
		ActorID:   1,
		ActorRole: constants.RoleWarehouse,
	}); err != nil {
		t.Fatalf("promote to ready_to_ship failed: %v", err)
	}
	if _, err := svc.PromoteBatch(ctx, PromoteBatchInput{
		BatchID:   batch.ID,
		ToStatus:  constants.BatchStatusShipped,
		ActorID:   1,
		ActorRole: constants.RoleWarehouse,
	}); err != nil {
		t.Fatalf("promote to shipped failed: %v", err)
	}

	// 同一次推进写下的级联记录共享同一时间戳
	var entries []models.TimelineEntry
	if err := db.Where("cause = ? AND status = ?", constants.TimelineCauseBatchCascade, constants.JobStatusShipped).
		Find(&entries).Error; err != nil {
		t.Fatalf("load cascade entries failed: %v", err)
	}
	if len(entries) != len(ids) {
		t.Fatalf("cascade entries = %d, want %d", len(entries), len(ids))
	}
	for _, entry := range entries[1:] {
		if !entry.CreatedAt.Equal(entries[0].CreatedAt) {
			t.Fatalf("cascade timestamps differ: %v vs %v", entry.CreatedAt, entries[0].CreatedAt)
		}
	}
}

func TestBatchServicePromoteEmptyBatch(t *testing.T) {
	svc, db := setupBatchServiceTest(t)
	batch := &models.Batch{
		BatchCode: "BATCH-TEST-EMPTY",
		Status:    constants.BatchStatusInPreparation,
		CreatedBy: 1,
	}
	if err := db.Create(batch).Error; err != nil {
		t.Fatalf("create empty batch failed: %v", err)
	}

	_, err := svc.PromoteBatch(context.Background(), PromoteBatchInput{
		BatchID:   batch.ID,
		ToStatus:  constants.BatchStatusReadyToShip,
		ActorRole: constants.RoleWarehouse,
	})
	if !errors.Is(err, ErrBatchEmpty) {
		t.Fatalf("expected ErrBatchEmpty, got %v", err)
	}
}
