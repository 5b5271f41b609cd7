package service

import (
	"sort"

	"github.com/shipline-next/internal/constants"
)

// 运单状态转移图：每个状态的合法后继。业务规则调整只改这张表。
var jobStatusGraph = map[string][]string{
	constants.JobStatusDraft: {
		constants.JobStatusPending,
		constants.JobStatusCancelled,
	},
	constants.JobStatusPending: {
		constants.JobStatusAssigned,
		constants.JobStatusCancelled,
	},
	constants.JobStatusAssigned: {
		constants.JobStatusCollected,
		constants.JobStatusCollectionFailed,
		constants.JobStatusCancelled,
	},
	constants.JobStatusCollected: {
		constants.JobStatusInTransit,
		constants.JobStatusCancelled,
	},
	constants.JobStatusCollectionFailed: {
		constants.JobStatusAssigned,
		constants.JobStatusCancelled,
	},
	constants.JobStatusInTransit: {
		constants.JobStatusArrivedAtWarehouse,
		constants.JobStatusCancelled,
	},
	constants.JobStatusArrivedAtWarehouse: {
		constants.JobStatusBatched,
		constants.JobStatusCancelled,
	},
	constants.JobStatusBatched: {
		constants.JobStatusShipped,
	},
	constants.JobStatusShipped: {
		constants.JobStatusArrivedAtDestination,
	},
	constants.JobStatusArrivedAtDestination: {
		constants.JobStatusReadyForDelivery,
	},
	constants.JobStatusReadyForDelivery: {
		constants.JobStatusOutForDelivery,
	},
	constants.JobStatusOutForDelivery: {
		constants.JobStatusDelivered,
		constants.JobStatusFailedDelivery,
	},
	constants.JobStatusFailedDelivery: {
		constants.JobStatusOutForDelivery,
		constants.JobStatusCancelled,
	},
	constants.JobStatusDelivered: {},
	constants.JobStatusCancelled: {},
}

// 角色禁入状态表：角色不得请求进入的目标状态。
// admin/superadmin 不在表中，即不受限。
var roleExcludedStatuses = map[string][]string{
	constants.RoleDriver: {
		constants.JobStatusArrivedAtWarehouse,
		constants.JobStatusBatched,
		constants.JobStatusShipped,
	},
	constants.RoleWarehouse: {
		constants.JobStatusOutForDelivery,
		constants.JobStatusDelivered,
		constants.JobStatusFailedDelivery,
	},
	constants.RoleDeliveryAgent: {
		constants.JobStatusCollected,
		constants.JobStatusCollectionFailed,
		constants.JobStatusArrivedAtWarehouse,
		constants.JobStatusBatched,
		constants.JobStatusShipped,
	},
}

// 批次状态严格线性推进顺序
var batchStatusOrder = []string{
	constants.BatchStatusInPreparation,
	constants.BatchStatusReadyToShip,
	constants.BatchStatusShipped,
	constants.BatchStatusInTransit,
	constants.BatchStatusArrived,
	constants.BatchStatusDistributed,
}

// 批次状态 → 成员运单状态映射。
// distributed 映射到 ready_for_delivery：妥投需要派送员独立确认，级联不自动 delivered。
var batchCascadeStatus = map[string]string{
	constants.BatchStatusReadyToShip: constants.JobStatusBatched,
	constants.BatchStatusShipped:     constants.JobStatusShipped,
	constants.BatchStatusInTransit:   constants.JobStatusShipped,
	constants.BatchStatusArrived:     constants.JobStatusArrivedAtDestination,
	constants.BatchStatusDistributed: constants.JobStatusReadyForDelivery,
}

// 批次流转期间允许携带 batch_id 的运单状态
var batchCarryingStatuses = map[string]bool{
	constants.JobStatusBatched:              true,
	constants.JobStatusShipped:              true,
	constants.JobStatusArrivedAtDestination: true,
	constants.JobStatusReadyForDelivery:     true,
}

// NextStatuses 返回状态的合法后继（排序后返回，保证确定性）。
// 终态（delivered/cancelled）返回空集。
func NextStatuses(current string) []string {
	successors, ok := jobStatusGraph[current]
	if !ok {
		return nil
	}
	result := make([]string, len(successors))
	copy(result, successors)
	sort.Strings(result)
	return result
}

// CanTransition 判断目标状态是否为合法后继
func CanTransition(current, target string) bool {
	for _, s := range jobStatusGraph[current] {
		if s == target {
			return true
		}
	}
	return false
}

// AllowedForRole 返回某角色在当前状态下允许请求的后继状态集合。
// 结果恒为 NextStatuses(current) 的子集。
func AllowedForRole(current, role string) []string {
	successors := NextStatuses(current)
	if len(successors) == 0 {
		return successors
	}
	switch role {
	case constants.RoleAdmin, constants.RoleSuperadmin:
		return successors
	case constants.RoleFinance:
		// 财务只读，不发起任何状态流转
		return []string{}
	case constants.RoleCustomerService:
		// 客服只能代客户申请取消
		if CanTransition(current, constants.JobStatusCancelled) {
			return []string{constants.JobStatusCancelled}
		}
		return []string{}
	}

	excluded := roleExcludedStatuses[role]
	result := make([]string, 0, len(successors))
	for _, s := range successors {
		if containsStatus(excluded, s) {
			continue
		}
		result = append(result, s)
	}
	return result
}

// RoleMayRequest 判断角色是否可请求指定目标状态
func RoleMayRequest(current, target, role string) bool {
	return containsStatus(AllowedForRole(current, role), target)
}

// NextBatchStatus 返回批次状态的唯一后继；终态返回空串。
func NextBatchStatus(current string) string {
	for i, s := range batchStatusOrder {
		if s == current {
			if i+1 < len(batchStatusOrder) {
				return batchStatusOrder[i+1]
			}
			return ""
		}
	}
	return ""
}

// CanPromoteBatch 批次只允许推进到紧邻后继，不允许跳级或回退
func CanPromoteBatch(current, target string) bool {
	next := NextBatchStatus(current)
	return next != "" && next == target
}

// CascadeJobStatus 返回批次状态对应的成员运单状态映射；无映射返回空串。
func CascadeJobStatus(batchStatus string) string {
	return batchCascadeStatus[batchStatus]
}

// IsBatchCarrying 判断运单状态是否处于批次流转区间（允许持有 batch_id）
func IsBatchCarrying(status string) bool {
	return batchCarryingStatuses[status]
}

// IsTerminal 判断运单状态是否为终态
func IsTerminal(status string) bool {
	successors, ok := jobStatusGraph[status]
	return ok && len(successors) == 0
}

// AllJobStatuses 返回全部运单状态（排序后），用于校验与测试遍历。
func AllJobStatuses() []string {
	result := make([]string, 0, len(jobStatusGraph))
	for s := range jobStatusGraph {
		result = append(result, s)
	}
	sort.Strings(result)
	return result
}

// AllBatchStatuses 返回批次状态线性顺序的副本
func AllBatchStatuses() []string {
	result := make([]string, len(batchStatusOrder))
	copy(result, batchStatusOrder)
	return result
}

func containsStatus(list []string, status string) bool {
	for _, s := range list {
		if s == status {
			return true
		}
	}
	return false
}
