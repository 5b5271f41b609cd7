package ops

import (
	"github.com/shipline-next/internal/http/response"

	"github.com/gin-gonic/gin"
)

// GetOverview 运营总览：按状态聚合的运单/批次计数。
// 返回最近一次成功的快照；stale 为 true 表示后台重取尚未追上最新变更。
func (h *Handler) GetOverview(c *gin.Context) {
	snapshot, stale := h.OverviewService.Snapshot(c.Request.Context())
	response.Success(c, gin.H{
		"job_counts":   snapshot.JobCounts,
		"batch_counts": snapshot.BatchCounts,
		"refreshed_at": snapshot.RefreshedAt,
		"stale":        stale,
	})
}
