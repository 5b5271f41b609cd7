package ops

import (
	"errors"
	"strings"

	"github.com/shipline-next/internal/http/response"
	"github.com/shipline-next/internal/service"

	"github.com/gin-gonic/gin"
)

// LoginRequest 登录请求
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// CreateStaffRequest 创建员工请求
type CreateStaffRequest struct {
	Username    string `json:"username" binding:"required"`
	Password    string `json:"password" binding:"required"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role" binding:"required"`
}

// SetStaffStatusRequest 员工状态调整请求
type SetStaffStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// Login 员工登录
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}
	staff, token, expiresAt, err := h.AuthService.Login(strings.TrimSpace(req.Username), req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			respondError(c, response.CodeUnauthorized, "invalid username or password", nil)
		case errors.Is(err, service.ErrStaffDisabled):
			respondError(c, response.CodeForbidden, "staff account disabled", nil)
		default:
			respondError(c, response.CodeInternal, "login failed", err)
		}
		return
	}
	response.Success(c, gin.H{
		"token":      token,
		"expires_at": expiresAt,
		"staff":      staff,
	})
}

// Me 当前登录员工信息
func (h *Handler) Me(c *gin.Context) {
	staffID, ok := getStaffID(c)
	if !ok {
		return
	}
	staff, err := h.StaffRepo.GetByID(staffID)
	if err != nil {
		respondError(c, response.CodeInternal, "staff fetch failed", err)
		return
	}
	if staff == nil {
		respondError(c, response.CodeNotFound, "staff not found", nil)
		return
	}
	response.Success(c, staff)
}

// CreateStaff 创建员工账号
func (h *Handler) CreateStaff(c *gin.Context) {
	var req CreateStaffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}
	staff, err := h.AuthService.CreateStaff(service.CreateStaffInput{
		Username:    strings.TrimSpace(req.Username),
		Password:    req.Password,
		DisplayName: req.DisplayName,
		Role:        strings.TrimSpace(req.Role),
	})
	if err != nil {
		respondWithMappedError(c, err, jobCommonErrorRules, response.CodeInternal, "staff create failed")
		return
	}
	if err := h.AuthzService.SetStaffRole(staff.ID, staff.Role); err != nil {
		requestLog(c).Warnw("staff_authz_link_failed", "staff_id", staff.ID, "error", err)
	}
	response.Success(c, staff)
}

// ListStaff 按角色查询员工
func (h *Handler) ListStaff(c *gin.Context) {
	staff, err := h.AuthService.ListStaff(strings.TrimSpace(c.Query("role")))
	if err != nil {
		respondWithMappedError(c, err, jobCommonErrorRules, response.CodeInternal, "staff list failed")
		return
	}
	response.Success(c, staff)
}

// SetStaffStatus 启用或停用员工账号
func (h *Handler) SetStaffStatus(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	var req SetStaffStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}
	staff, err := h.AuthService.SetStaffStatus(id, strings.TrimSpace(req.Status))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrStaffNotFound):
			respondError(c, response.CodeNotFound, "staff not found", nil)
		case errors.Is(err, service.ErrInvalidStaffStatus):
			respondError(c, response.CodeBadRequest, "unknown staff status", nil)
		default:
			respondError(c, response.CodeInternal, "staff update failed", err)
		}
		return
	}
	response.Success(c, staff)
}
