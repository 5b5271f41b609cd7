package queue

import (
	"encoding/json"

	"github.com/shipline-next/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskJobStatusNotify 运单状态变更通知任务
	TaskJobStatusNotify = constants.TaskJobStatusNotify
	// TaskInvoiceFinalize 发票结算任务
	TaskInvoiceFinalize = constants.TaskInvoiceFinalize
)

// JobStatusNotifyPayload 运单状态通知任务载荷
type JobStatusNotifyPayload struct {
	JobID    uint   `json:"job_id"`
	Status   string `json:"status"`
	IsRevert bool   `json:"is_revert"`
}

// InvoiceFinalizePayload 发票结算任务载荷
type InvoiceFinalizePayload struct {
	JobID uint `json:"job_id"`
}

// NewJobStatusNotifyTask 创建运单状态通知任务
func NewJobStatusNotifyTask(payload JobStatusNotifyPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskJobStatusNotify, body), nil
}

// NewInvoiceFinalizeTask 创建发票结算任务
func NewInvoiceFinalizeTask(payload InvoiceFinalizePayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskInvoiceFinalize, body), nil
}
