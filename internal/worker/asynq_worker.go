package worker

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/shipline-next/internal/logger"
	"github.com/shipline-next/internal/provider"
	"github.com/shipline-next/internal/queue"
	"github.com/shipline-next/internal/service"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskJobStatusNotify, c.handleJobStatusNotify)
	mux.HandleFunc(queue.TaskInvoiceFinalize, c.handleInvoiceFinalize)
}

// handleJobStatusNotify 记录运单状态变更通知。
// 对外通知（短信/邮件）由下游通道消费该日志流，这里只负责结构化落盘。
func (c *Consumer) handleJobStatusNotify(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_job_status_notify_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.JobStatusNotifyPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_job_status_notify_unmarshal_failed", "error", err)
		return err
	}
	if payload.JobID == 0 {
		logger.Debugw("worker_job_status_notify_skip_invalid_payload", "job_id", payload.JobID)
		return nil
	}
	job, err := c.JobRepo.GetByID(payload.JobID)
	if err != nil {
		logger.Warnw("worker_job_status_notify_fetch_failed", "job_id", payload.JobID, "error", err)
		return err
	}
	if job == nil {
		logger.Debugw("worker_job_status_notify_skip_job_not_found", "job_id", payload.JobID)
		return nil
	}
	logger.Infow("job_status_notification",
		"job_id", job.ID,
		"tracking_code", job.TrackingCode,
		"status", payload.Status,
		"is_revert", payload.IsRevert,
		"receiver_name", job.ReceiverName,
		"receiver_phone", job.ReceiverPhone,
	)
	return nil
}

func (c *Consumer) handleInvoiceFinalize(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_invoice_finalize_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.InvoiceFinalizePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_invoice_finalize_unmarshal_failed", "error", err)
		return err
	}
	if payload.JobID == 0 {
		logger.Debugw("worker_invoice_finalize_skip_invalid_payload", "job_id", payload.JobID)
		return nil
	}
	if c.PaymentService == nil {
		logger.Warnw("worker_invoice_finalize_skip_payment_service_nil", "job_id", payload.JobID)
		return nil
	}
	if err := c.PaymentService.FinalizeInvoice(payload.JobID); err != nil {
		if errors.Is(err, service.ErrInvoiceNotFound) {
			logger.Debugw("worker_invoice_finalize_skip_invoice_not_found", "job_id", payload.JobID)
			return nil
		}
		logger.Warnw("worker_invoice_finalize_failed", "job_id", payload.JobID, "error", err)
		return err
	}
	return nil
}
