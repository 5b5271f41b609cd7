package service

import (
	"context"
	"strings"
	"time"

	"github.com/shipline-next/internal/cache"
	"github.com/shipline-next/internal/constants"
	"github.com/shipline-next/internal/logger"
	"github.com/shipline-next/internal/models"
	"github.com/shipline-next/internal/repository"

	"gorm.io/gorm"
)

// PaymentService 收款服务
type PaymentService struct {
	invoiceRepo    repository.InvoiceRepository
	paymentRepo    repository.PaymentRepository
	jobRepo        repository.JobRepository
	idempotencyTTL time.Duration
}

// NewPaymentService 创建收款服务
func NewPaymentService(invoiceRepo repository.InvoiceRepository, paymentRepo repository.PaymentRepository, jobRepo repository.JobRepository, idempotencyTTL time.Duration) *PaymentService {
	return &PaymentService{
		invoiceRepo:    invoiceRepo,
		paymentRepo:    paymentRepo,
		jobRepo:        jobRepo,
		idempotencyTTL: idempotencyTTL,
	}
}

// RecordPaymentInput 登记收款输入
type RecordPaymentInput struct {
	JobID          uint
	Amount         models.Money
	Method         string
	Reference      string
	ActorID        uint
	ActorRole      string
	IdempotencyKey string
}

// RecordPayment 登记一笔收款。
// 支持部分收款；金额必须为正且不超过剩余应收。收款不推动运单状态。
func (s *PaymentService) RecordPayment(ctx context.Context, input RecordPaymentInput) (*models.Invoice, error) {
	switch input.ActorRole {
	case constants.RoleFinance, constants.RoleAdmin, constants.RoleSuperadmin:
	default:
		return nil, ErrUnauthorized
	}
	switch input.Method {
	case constants.PaymentMethodCash, constants.PaymentMethodBank, constants.PaymentMethodMobile:
	default:
		return nil, ErrInvalidPaymentMethod
	}
	if !input.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if key := strings.TrimSpace(input.IdempotencyKey); key != "" {
		ok, err := cache.ClaimOnce(ctx, "payment:record:"+key, s.idempotencyTTL)
		if err != nil {
			logger.Warnw("idempotency_claim_failed", "err", err, "scope", "payment:record")
		} else if !ok {
			return nil, ErrDuplicateRequest
		}
	}

	var invoiceID uint
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		invoiceRepo := s.invoiceRepo.WithTx(tx)
		paymentRepo := s.paymentRepo.WithTx(tx)

		invoice, err := invoiceRepo.GetByJobID(input.JobID)
		if err != nil {
			return err
		}
		if invoice == nil {
			return ErrInvoiceNotFound
		}

		outstanding := invoice.TotalAmount.Sub(invoice.PaidAmount.Decimal)
		if input.Amount.GreaterThan(outstanding) {
			return ErrInvalidAmount
		}

		if err := paymentRepo.Create(&models.Payment{
			InvoiceID: invoice.ID,
			JobID:     input.JobID,
			Amount:    input.Amount,
			Method:    input.Method,
			Reference: strings.TrimSpace(input.Reference),
			ActorID:   input.ActorID,
		}); err != nil {
			return err
		}

		paid := models.NewMoneyFromDecimal(invoice.PaidAmount.Add(input.Amount.Decimal))
		status := constants.InvoiceStatusPartiallyPaid
		if paid.Equal(invoice.TotalAmount.Decimal) {
			status = constants.InvoiceStatusPaid
		}
		invoiceID = invoice.ID
		return invoiceRepo.Updates(invoice.ID, map[string]interface{}{
			"paid_amount": paid,
			"status":      status,
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Infow("payment_recorded",
		"job_id", input.JobID,
		"invoice_id", invoiceID,
		"amount", input.Amount.String(),
		"method", input.Method,
		"actor_id", input.ActorID,
	)
	return s.GetInvoice(input.JobID)
}

// FinalizeInvoice 运单妥投后定稿发票（由异步任务触发，幂等）
func (s *PaymentService) FinalizeInvoice(jobID uint) error {
	invoice, err := s.invoiceRepo.GetByJobID(jobID)
	if err != nil {
		return err
	}
	if invoice == nil {
		return ErrInvoiceNotFound
	}
	if invoice.FinalizedAt != nil {
		return nil
	}
	now := time.Now()
	if err := s.invoiceRepo.Updates(invoice.ID, map[string]interface{}{
		"finalized_at": &now,
	}); err != nil {
		return err
	}
	logger.Infow("invoice_finalized", "job_id", jobID, "invoice_id", invoice.ID)
	return nil
}

// GetInvoice 获取运单发票（含收款记录）
func (s *PaymentService) GetInvoice(jobID uint) (*models.Invoice, error) {
	invoice, err := s.invoiceRepo.GetByJobID(jobID)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, ErrInvoiceNotFound
	}
	return invoice, nil
}

// ListPayments 分页查询收款记录
func (s *PaymentService) ListPayments(filter repository.PaymentListFilter) ([]models.Payment, int64, error) {
	return s.paymentRepo.List(filter)
}
