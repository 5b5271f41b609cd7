package constants

// 运单状态常量
const (
	JobStatusDraft                = "draft"
	JobStatusPending              = "pending"
	JobStatusAssigned             = "assigned"
	JobStatusCollected            = "collected"
	JobStatusCollectionFailed     = "collection_failed"
	JobStatusInTransit            = "in_transit"
	JobStatusArrivedAtWarehouse   = "arrived_at_warehouse"
	JobStatusBatched              = "batched"
	JobStatusShipped              = "shipped"
	JobStatusArrivedAtDestination = "arrived_at_destination"
	JobStatusReadyForDelivery     = "ready_for_delivery"
	JobStatusOutForDelivery       = "out_for_delivery"
	JobStatusDelivered            = "delivered"
	JobStatusFailedDelivery       = "failed_delivery"
	JobStatusCancelled            = "cancelled"
)

// 批次状态常量（严格线性推进）
const (
	BatchStatusInPreparation = "in_preparation"
	BatchStatusReadyToShip   = "ready_to_ship"
	BatchStatusShipped       = "shipped"
	BatchStatusInTransit     = "in_transit"
	BatchStatusArrived       = "arrived"
	BatchStatusDistributed   = "distributed"
)

// 员工角色常量
const (
	RoleAdmin           = "admin"
	RoleSuperadmin      = "superadmin"
	RoleDriver          = "driver"
	RoleWarehouse       = "warehouse"
	RoleDeliveryAgent   = "delivery_agent"
	RoleFinance         = "finance"
	RoleCustomerService = "customer_service"
)

// 时间线变更来源常量
const (
	TimelineCauseManual       = "manual"
	TimelineCauseBatchCascade = "batch_cascade"
	TimelineCauseRevert       = "revert"
)

// 发票状态常量
const (
	InvoiceStatusUnpaid        = "unpaid"
	InvoiceStatusPartiallyPaid = "partially_paid"
	InvoiceStatusPaid          = "paid"
)

// 收款方式常量
const (
	PaymentMethodCash   = "cash"
	PaymentMethodBank   = "bank"
	PaymentMethodMobile = "mobile"
)

// 员工状态常量
const (
	StaffStatusActive   = "active"
	StaffStatusDisabled = "disabled"
)

// 同步事件类型常量
const (
	SyncEventJobStatusChanged  = "job_status_changed"
	SyncEventJobStatusReverted = "job_status_reverted"
	SyncEventBatchCreated      = "batch_created"
	SyncEventBatchPromoted     = "batch_promoted"
)

// 同步实体类型常量
const (
	SyncEntityJob   = "job"
	SyncEntityBatch = "batch"
)

// 队列常量
const (
	QueueDefault        = "default"
	TaskJobStatusNotify = "job:status_notify"
	TaskInvoiceFinalize = "invoice:finalize"
)

// 缓存默认配置常量
const (
	RedisPrefixDefault = "sl"
)

// 同步广播频道常量
const (
	SyncChannelDefault = "sync:entity_changed"
)

// 编号前缀常量
const (
	TrackingCodePrefix = "SHIP"
	BatchCodePrefix    = "BATCH"
)

// 回退备注最小长度
const (
	RevertCommentMinLen = 5
)

// 合法角色列表（闭合枚举，避免散落的字符串比较）
var Roles = []string{
	RoleAdmin,
	RoleSuperadmin,
	RoleDriver,
	RoleWarehouse,
	RoleDeliveryAgent,
	RoleFinance,
	RoleCustomerService,
}

// IsValidRole 判断角色是否属于闭合枚举
func IsValidRole(role string) bool {
	for _, r := range Roles {
		if r == role {
			return true
		}
	}
	return false
}
