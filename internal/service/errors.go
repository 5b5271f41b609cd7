package service

import "errors"

// 业务校验类错误：同步返回调用方，不做内部重试
var (
	ErrJobNotFound            = errors.New("job not found")
	ErrBatchNotFound          = errors.New("batch not found")
	ErrInvoiceNotFound        = errors.New("invoice not found")
	ErrStaffNotFound          = errors.New("staff not found")
	ErrInvalidTransition      = errors.New("invalid status transition")
	ErrInvalidJobInput        = errors.New("job input incomplete")
	ErrInvalidBatchTransition = errors.New("invalid batch status transition")
	ErrUnauthorized           = errors.New("actor not authorized for this operation")
	ErrNeverVisited           = errors.New("revert target status never visited")
	ErrRevertCommentRequired  = errors.New("revert comment missing or too short")
	ErrInvalidAmount          = errors.New("payment amount invalid")
	ErrInvalidPaymentMethod   = errors.New("unknown payment method")
	ErrEmptySelection         = errors.New("job selection is empty")
	ErrIneligibleJob          = errors.New("job not eligible for batching")
	ErrBatchClosed            = errors.New("batch membership is frozen")
	ErrBatchEmpty             = errors.New("batch has no member jobs")
	ErrInvalidRole            = errors.New("unknown role")
	ErrInvalidCredentials     = errors.New("invalid username or password")
	ErrStaffDisabled          = errors.New("staff account disabled")
	ErrInvalidStaffStatus     = errors.New("unknown staff status")
	ErrDuplicateRequest       = errors.New("duplicate mutation request")
)

// 瞬态错误：同步层据此暂停周期性刷新（见 syncer 包），变更本身不自动重试
var (
	ErrRateLimited = errors.New("rate limited")
	ErrServerError = errors.New("server error")
)
