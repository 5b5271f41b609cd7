package ops

import (
	"strconv"
	"strings"
	"time"

	"github.com/shipline-next/internal/http/response"
	"github.com/shipline-next/internal/models"
	"github.com/shipline-next/internal/repository"
	"github.com/shipline-next/internal/service"

	"github.com/gin-gonic/gin"
)

// CreateJobRequest 创建运单请求
type CreateJobRequest struct {
	SenderName         string       `json:"sender_name"`
	SenderPhone        string       `json:"sender_phone"`
	ReceiverName       string       `json:"receiver_name" binding:"required"`
	ReceiverPhone      string       `json:"receiver_phone"`
	OriginAddress      string       `json:"origin_address"`
	DestinationAddress string       `json:"destination_address" binding:"required"`
	WeightKG           models.Money `json:"weight_kg"`
	TotalAmount        models.Money `json:"total_amount"`
	Currency           string       `json:"currency"`
}

// TransitionRequest 状态流转请求
type TransitionRequest struct {
	ToStatus    string `json:"to_status" binding:"required"`
	Notes       string `json:"notes"`
	DocumentRef string `json:"document_ref"`
}

// RevertRequest 状态回退请求
type RevertRequest struct {
	ToStatus string `json:"to_status" binding:"required"`
	Comment  string `json:"comment" binding:"required"`
}

// AssignRequest 指派请求
type AssignRequest struct {
	StaffID uint `json:"staff_id" binding:"required"`
}

// CreateJob 创建运单
func (h *Handler) CreateJob(c *gin.Context) {
	staffID, ok := getStaffID(c)
	if !ok {
		return
	}
	var req CreateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}
	job, err := h.JobService.CreateJob(service.CreateJobInput{
		SenderName:         req.SenderName,
		SenderPhone:        req.SenderPhone,
		ReceiverName:       req.ReceiverName,
		ReceiverPhone:      req.ReceiverPhone,
		OriginAddress:      req.OriginAddress,
		DestinationAddress: req.DestinationAddress,
		WeightKG:           req.WeightKG,
		TotalAmount:        req.TotalAmount,
		Currency:           req.Currency,
		ActorID:            staffID,
	})
	if err != nil {
		respondWithMappedError(c, err, jobCommonErrorRules, response.CodeInternal, "job create failed")
		return
	}
	response.Success(c, job)
}

// ListJobs 分页查询运单
func (h *Handler) ListJobs(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	filter := repository.JobListFilter{
		Page:         page,
		PageSize:     pageSize,
		Status:       strings.TrimSpace(c.Query("status")),
		TrackingCode: strings.TrimSpace(c.Query("tracking_code")),
	}
	if raw := strings.TrimSpace(c.Query("batch_id")); raw != "" {
		if parsed, err := strconv.ParseUint(raw, 10, 64); err == nil {
			filter.BatchID = uint(parsed)
		}
	}
	if raw := strings.TrimSpace(c.Query("driver_id")); raw != "" {
		if parsed, err := strconv.ParseUint(raw, 10, 64); err == nil {
			filter.DriverID = uint(parsed)
		}
	}
	createdFrom, err := parseTimeNullable(strings.TrimSpace(c.Query("created_from")))
	if err != nil {
		respondError(c, response.CodeBadRequest, "invalid created_from", err)
		return
	}
	createdTo, err := parseTimeNullable(strings.TrimSpace(c.Query("created_to")))
	if err != nil {
		respondError(c, response.CodeBadRequest, "invalid created_to", err)
		return
	}
	filter.CreatedFrom = createdFrom
	filter.CreatedTo = createdTo

	jobs, total, err := h.JobService.ListJobs(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "job list failed", err)
		return
	}
	response.SuccessWithPage(c, jobs, response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: (total + int64(pageSize) - 1) / int64(pageSize),
	})
}

// GetJob 运单详情
func (h *Handler) GetJob(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	job, err := h.JobService.GetJob(id)
	if err != nil {
		respondWithMappedError(c, err, jobCommonErrorRules, response.CodeInternal, "job fetch failed")
		return
	}
	response.Success(c, job)
}

// TrackJob 按运单编号查询（对外跟踪入口）
func (h *Handler) TrackJob(c *gin.Context) {
	code := strings.TrimSpace(c.Param("code"))
	if code == "" {
		respondError(c, response.CodeBadRequest, "tracking code required", nil)
		return
	}
	job, err := h.JobService.GetJobByTrackingCode(code)
	if err != nil {
		respondWithMappedError(c, err, jobCommonErrorRules, response.CodeInternal, "job fetch failed")
		return
	}
	response.Success(c, job)
}

// GetJobTimeline 运单时间线
func (h *Handler) GetJobTimeline(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	entries, err := h.JobService.GetTimeline(id)
	if err != nil {
		respondWithMappedError(c, err, jobCommonErrorRules, response.CodeInternal, "timeline fetch failed")
		return
	}
	response.Success(c, entries)
}

// GetJobNextStatuses 当前角色可请求的后继状态
func (h *Handler) GetJobNextStatuses(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	role, ok := getStaffRole(c)
	if !ok {
		return
	}
	statuses, err := h.JobService.AllowedNextStatuses(id, role)
	if err != nil {
		respondWithMappedError(c, err, jobCommonErrorRules, response.CodeInternal, "job fetch failed")
		return
	}
	response.Success(c, gin.H{"next_statuses": statuses})
}

// TransitionJob 正向状态流转
func (h *Handler) TransitionJob(c *gin.Context) {
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
	var req TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}
	job, err := h.JobService.ApplyTransition(c.Request.Context(), service.ApplyTransitionInput{
		JobID:          id,
		ToStatus:       strings.TrimSpace(req.ToStatus),
		ActorID:        staffID,
		ActorRole:      role,
		Notes:          req.Notes,
		DocumentRef:    req.DocumentRef,
		IdempotencyKey: idempotencyKey(c),
	})
	if err != nil {
		respondWithMappedError(c, err, jobCommonErrorRules, response.CodeInternal, "job transition failed")
		return
	}
	response.Success(c, job)
}

// RevertJob 管理员回退状态
func (h *Handler) RevertJob(c *gin.Context) {
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
	var req RevertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}
	job, err := h.JobService.RevertStatus(c.Request.Context(), service.RevertStatusInput{
		JobID:          id,
		ToStatus:       strings.TrimSpace(req.ToStatus),
		ActorID:        staffID,
		ActorRole:      role,
		Comment:        req.Comment,
		IdempotencyKey: idempotencyKey(c),
	})
	if err != nil {
		respondWithMappedError(c, err, jobCommonErrorRules, response.CodeInternal, "job revert failed")
		return
	}
	response.Success(c, job)
}

// AssignDriver 指派揽收司机
func (h *Handler) AssignDriver(c *gin.Context) {
	h.assignStaff(c, h.JobService.AssignDriver)
}

// AssignDeliveryAgent 指派派送员
func (h *Handler) AssignDeliveryAgent(c *gin.Context) {
	h.assignStaff(c, h.JobService.AssignDeliveryAgent)
}

func (h *Handler) assignStaff(c *gin.Context, assign func(jobID, staffID, actorID uint) (*models.Job, error)) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	actorID, ok := getStaffID(c)
	if !ok {
		return
	}
	var req AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}
	job, err := assign(id, req.StaffID, actorID)
	if err != nil {
		respondWithMappedError(c, err, jobCommonErrorRules, response.CodeInternal, "job assign failed")
		return
	}
	response.Success(c, job)
}

func parseIDParam(c *gin.Context) (uint, bool) {
	raw := strings.TrimSpace(c.Param("id"))
	parsed, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || parsed == 0 {
		respondError(c, response.CodeBadRequest, "invalid id", err)
		return 0, false
	}
	return uint(parsed), true
}

func parseTimeNullable(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}
