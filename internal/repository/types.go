package repository

import "time"

// JobListFilter 查询运单列表的过滤条件
type JobListFilter struct {
	Page          int
	PageSize      int
	Status        string
	TrackingCode  string
	DriverID      uint
	DeliveryAgent uint
	BatchID       uint
	CreatedFrom   *time.Time
	CreatedTo     *time.Time
}

// BatchListFilter 查询批次列表的过滤条件
type BatchListFilter struct {
	Page        int
	PageSize    int
	Status      string
	BatchCode   string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// PaymentListFilter 查询收款记录列表的过滤条件
type PaymentListFilter struct {
	Page        int
	PageSize    int
	JobID       uint
	InvoiceID   uint
	Method      string
	ActorID     uint
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}
