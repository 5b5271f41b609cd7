package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shipline-next/internal/constants"
	"github.com/shipline-next/internal/models"
	"github.com/shipline-next/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupPaymentServiceTest(t *testing.T) (*PaymentService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:payment_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Job{},
		&models.TimelineEntry{},
		&models.Invoice{},
		&models.Payment{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db

	svc := NewPaymentService(
		repository.NewInvoiceRepository(db),
		repository.NewPaymentRepository(db),
		repository.NewJobRepository(db),
		time.Minute,
	)
	return svc, db
}

func createTestInvoice(t *testing.T, db *gorm.DB, total decimal.Decimal) *models.Job {
	t.Helper()
	job := createTestJob(t, db, constants.JobStatusDelivered, nil)
	invoice := &models.Invoice{
		JobID:       job.ID,
		Currency:    "USD",
		TotalAmount: models.NewMoneyFromDecimal(total),
		PaidAmount:  models.NewMoneyFromDecimal(decimal.Zero),
		Status:      constants.InvoiceStatusUnpaid,
	}
	if err := db.Create(invoice).Error; err != nil {
		t.Fatalf("create invoice failed: %v", err)
	}
	return job
}

func TestPaymentServicePartialThenFull(t *testing.T) {
	svc, db := setupPaymentServiceTest(t)
	job := createTestInvoice(t, db, decimal.NewFromInt(100))
	ctx := context.Background()

	invoice, err := svc.RecordPayment(ctx, RecordPaymentInput{
		JobID:     job.ID,
		Amount:    models.NewMoneyFromDecimal(decimal.NewFromInt(40)),
		Method:    constants.PaymentMethodCash,
		ActorID:   5,
		ActorRole: constants.RoleFinance,
	})
	if err != nil {
		t.Fatalf("record first payment failed: %v", err)
	}
	if invoice.Status != constants.InvoiceStatusPartiallyPaid {
		t.Fatalf("invoice status = %s, want partially_paid", invoice.Status)
	}
	if !invoice.PaidAmount.Decimal.Equal(decimal.NewFromInt(40)) {
		t.Fatalf("paid amount = %s, want 40", invoice.PaidAmount.String())
	}

	invoice, err = svc.RecordPayment(ctx, RecordPaymentInput{
		JobID:     job.ID,
		Amount:    models.NewMoneyFromDecimal(decimal.NewFromInt(60)),
		Method:    constants.PaymentMethodBank,
		Reference: "TRX-8841",
		ActorID:   5,
		ActorRole: constants.RoleFinance,
	})
	if err != nil {
		t.Fatalf("record second payment failed: %v", err)
	}
	if invoice.Status != constants.InvoiceStatusPaid {
		t.Fatalf("invoice status = %s, want paid", invoice.Status)
	}
	if !invoice.PaidAmount.Decimal.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("paid amount = %s, want 100", invoice.PaidAmount.String())
	}
	if len(invoice.Payments) != 2 {
		t.Fatalf("payment count = %d, want 2", len(invoice.Payments))
	}

	// 已结清发票不再接受收款
	_, err = svc.RecordPayment(ctx, RecordPaymentInput{
		JobID:     job.ID,
		Amount:    models.NewMoneyFromDecimal(decimal.NewFromInt(1)),
		Method:    constants.PaymentMethodCash,
		ActorRole: constants.RoleFinance,
	})
	if !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount on settled invoice, got %v", err)
	}
}

func TestPaymentServiceValidation(t *testing.T) {
	svc, db := setupPaymentServiceTest(t)
	job := createTestInvoice(t, db, decimal.NewFromInt(50))
	ctx := context.Background()

	cases := []struct {
		name  string
		input RecordPaymentInput
		want  error
	}{
		{
			name: "司机无权收款",
			input: RecordPaymentInput{
				JobID: job.ID, Amount: models.NewMoneyFromDecimal(decimal.NewFromInt(10)),
				Method: constants.PaymentMethodCash, ActorRole: constants.RoleDriver,
			},
			want: ErrUnauthorized,
		},
		{
			name: "未知收款方式",
			input: RecordPaymentInput{
				JobID: job.ID, Amount: models.NewMoneyFromDecimal(decimal.NewFromInt(10)),
				Method: "cheque", ActorRole: constants.RoleFinance,
			},
			want: ErrInvalidPaymentMethod,
		},
		{
			name: "金额必须为正",
			input: RecordPaymentInput{
				JobID: job.ID, Amount: models.NewMoneyFromDecimal(decimal.Zero),
				Method: constants.PaymentMethodCash, ActorRole: constants.RoleFinance,
			},
			want: ErrInvalidAmount,
		},
		{
			name: "超出剩余应收",
			input: RecordPaymentInput{
				JobID: job.ID, Amount: models.NewMoneyFromDecimal(decimal.NewFromInt(51)),
				Method: constants.PaymentMethodCash, ActorRole: constants.RoleFinance,
			},
			want: ErrInvalidAmount,
		},
		{
			name: "运单没有发票",
			input: RecordPaymentInput{
				JobID: 9999, Amount: models.NewMoneyFromDecimal(decimal.NewFromInt(10)),
				Method: constants.PaymentMethodCash, ActorRole: constants.RoleFinance,
			},
			want: ErrInvoiceNotFound,
		},
	}
	for _, c := range cases {
		if _, err := svc.RecordPayment(ctx, c.input); !errors.Is(err, c.want) {
			t.Fatalf("%s: got %v, want %v", c.name, err, c.want)
		}
	}

	// 校验失败不留收款记录
	var count int64
	if err := db.Model(&models.Payment{}).Count(&count).Error; err != nil {
		t.Fatalf("count payments failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("payment count = %d, want 0", count)
	}
}

func TestPaymentServiceFinalizeInvoiceIdempotent(t *testing.T) {
	svc, db := setupPaymentServiceTest(t)
	job := createTestInvoice(t, db, decimal.NewFromInt(80))

	if err := svc.FinalizeInvoice(job.ID); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}
	first, err := svc.GetInvoice(job.ID)
	if err != nil {
		t.Fatalf("get invoice failed: %v", err)
	}
	if first.FinalizedAt == nil {
		t.Fatal("finalized_at not set")
	}

	// 重复触发不报错也不改定稿时间
	if err := svc.FinalizeInvoice(job.ID); err != nil {
		t.Fatalf("second finalize failed: %v", err)
	}
	second, err := svc.GetInvoice(job.ID)
	if err != nil {
		t.Fatalf("get invoice failed: %v", err)
	}
	if !second.FinalizedAt.Equal(*first.FinalizedAt) {
		t.Fatalf("finalized_at changed on repeat: %v vs %v", second.FinalizedAt, first.FinalizedAt)
	}

	if err := svc.FinalizeInvoice(9999); !errors.Is(err, ErrInvoiceNotFound) {
		t.Fatalf("expected ErrInvoiceNotFound, got %v", err)
	}
}
