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

// RecordPaymentRequest 登记收款请求
type RecordPaymentRequest struct {
	Amount    models.Money `json:"amount" binding:"required"`
	Method    string       `json:"method" binding:"required"`
	Reference string       `json:"reference"`
}

// GetInvoice 发票详情
func (h *Handler) GetInvoice(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	invoice, err := h.PaymentService.GetInvoice(id)
	if err != nil {
		respondWithMappedError(c, err, paymentCommonErrorRules, response.CodeInternal, "invoice fetch failed")
		return
	}
	response.Success(c, invoice)
}

// RecordPayment 登记收款
func (h *Handler) RecordPayment(c *gin.Context) {
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
	var req RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}
	invoice, err := h.PaymentService.RecordPayment(c.Request.Context(), service.RecordPaymentInput{
		JobID:          id,
		Amount:         req.Amount,
		Method:         strings.TrimSpace(req.Method),
		Reference:      req.Reference,
		ActorID:        staffID,
		ActorRole:      role,
		IdempotencyKey: idempotencyKey(c),
	})
	if err != nil {
		respondWithMappedError(c, err, paymentCommonErrorRules, response.CodeInternal, "payment record failed")
		return
	}
	response.Success(c, invoice)
}

// ListPayments 分页查询收款记录
func (h *Handler) ListPayments(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	filter := repository.PaymentListFilter{
		Page:     page,
		PageSize: pageSize,
		Method:   strings.TrimSpace(c.Query("method")),
	}
	if raw := strings.TrimSpace(c.Query("job_id")); raw != "" {
		if parsed, err := strconv.ParseUint(raw, 10, 64); err == nil {
			filter.JobID = uint(parsed)
		}
	}

	payments, total, err := h.PaymentService.ListPayments(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "payment list failed", err)
		return
	}
	response.SuccessWithPage(c, payments, response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: (total + int64(pageSize) - 1) / int64(pageSize),
	})
}
