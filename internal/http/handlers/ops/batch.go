package ops

import (
	"strconv"
	"strings"

	"github.com/shipline-next/internal/http/response"
	"github.com/shipline-next/internal/models"
	"github.com/shipline-next/internal/repository"
	"github.com/shipline-next/internal/service"

	"github.com/gin-gonic/gin"
)

// CreateBatchRequest 创建批次请求
type CreateBatchRequest struct {
	JobIDs          []uint      `json:"job_ids" binding:"required"`
	VesselReference string      `json:"vessel_reference"`
	Metadata        models.JSON `json:"metadata"`
}

// PromoteBatchRequest 批次推进请求
type PromoteBatchRequest struct {
	ToStatus string `json:"to_status" binding:"required"`
}

// BatchMembersRequest 批次成员调整请求
type BatchMembersRequest struct {
	JobIDs []uint `json:"job_ids" binding:"required"`
}

// CreateBatch 从到仓运单创建批次
func (h *Handler) CreateBatch(c *gin.Context) {
	staffID, ok := getStaffID(c)
	if !ok {
		return
	}
	role, ok := getStaffRole(c)
	if !ok {
		return
	}
	var req CreateBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}
	batch, err := h.BatchService.CreateBatch(c.Request.Context(), service.CreateBatchInput{
		JobIDs:          req.JobIDs,
		VesselReference: req.VesselReference,
		Metadata:        req.Metadata,
		ActorID:         staffID,
		ActorRole:       role,
	})
	if err != nil {
		respondWithMappedError(c, err, batchCommonErrorRules, response.CodeInternal, "batch create failed")
		return
	}
	response.Success(c, batch)
}

// ListBatches 分页查询批次
func (h *Handler) ListBatches(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	batches, total, err := h.BatchService.ListBatches(repository.BatchListFilter{
		Page:      page,
		PageSize:  pageSize,
		Status:    strings.TrimSpace(c.Query("status")),
		BatchCode: strings.TrimSpace(c.Query("batch_code")),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "batch list failed", err)
		return
	}
	response.SuccessWithPage(c, batches, response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: (total + int64(pageSize) - 1) / int64(pageSize),
	})
}

// GetBatch 批次详情（成员按运单ID升序）
func (h *Handler) GetBatch(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	batch, err := h.BatchService.GetBatch(id)
	if err != nil {
		respondWithMappedError(c, err, batchCommonErrorRules, response.CodeInternal, "batch fetch failed")
		return
	}
	response.Success(c, batch)
}

// PromoteBatch 批次推进一步并级联成员运单
func (h *Handler) PromoteBatch(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	staffID, ok := getStaffID(c)
	if !ok {
		return
	}
	role, ok := getStaffRole(c)
	if !ok {
		return
	}
	var req PromoteBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}
	batch, err := h.BatchService.PromoteBatch(c.Request.Context(), service.PromoteBatchInput{
		BatchID:   id,
		ToStatus:  strings.TrimSpace(req.ToStatus),
		ActorID:   staffID,
		ActorRole: role,
	})
	if err != nil {
		respondWithMappedError(c, err, batchCommonErrorRules, response.CodeInternal, "batch promote failed")
		return
	}
	response.Success(c, batch)
}

// AddBatchJobs 备货期内追加成员
func (h *Handler) AddBatchJobs(c *gin.Context) {
	h.adjustBatchMembers(c, h.BatchService.AddJobs)
}

// RemoveBatchJobs 备货期内移出成员
func (h *Handler) RemoveBatchJobs(c *gin.Context) {
	h.adjustBatchMembers(c, h.BatchService.RemoveJobs)
}

func (h *Handler) adjustBatchMembers(c *gin.Context, adjust func(batchID uint, jobIDs []uint, actorID uint, actorRole string) (*models.Batch, error)) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	staffID, ok := getStaffID(c)
	if !ok {
		return
	}
	role, ok := getStaffRole(c)
	if !ok {
		return
	}
	var req BatchMembersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}
	batch, err := adjust(id, req.JobIDs, staffID, role)
	if err != nil {
		respondWithMappedError(c, err, batchCommonErrorRules, response.CodeInternal, "batch members update failed")
		return
	}
	response.Success(c, batch)
}
