package ops

import (
	"strings"

	"github.com/shipline-next/internal/http/response"
	"github.com/shipline-next/internal/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func requestLog(c *gin.Context) *zap.SugaredLogger {
	if c == nil {
		return logger.S()
	}
	if requestID, ok := c.Get("request_id"); ok {
		if id, ok := requestID.(string); ok && id != "" {
			return logger.S().With("request_id", id)
		}
	}
	return logger.S()
}

func respondError(c *gin.Context, code int, msg string, err error) {
	appErr := response.WrapError(code, msg, err)
	if err != nil {
		requestLog(c).Errorw("handler_error",
			"code", appErr.Code,
			"message", appErr.Message,
			"error", err,
		)
	}
	response.Error(c, appErr.Code, appErr.Message)
}

func getContextUint(c *gin.Context, key string) (uint, bool) {
	value, exists := c.Get(key)
	if !exists {
		respondError(c, response.CodeUnauthorized, "unauthorized", nil)
		return 0, false
	}
	switch v := value.(type) {
	case uint:
		return v, true
	case int:
		if v < 0 {
			respondError(c, response.CodeBadRequest, "invalid "+key, nil)
			return 0, false
		}
		return uint(v), true
	case float64:
		if v < 0 {
			respondError(c, response.CodeBadRequest, "invalid "+key, nil)
			return 0, false
		}
		return uint(v), true
	default:
		respondError(c, response.CodeInternal, "unexpected "+key+" type", nil)
		return 0, false
	}
}

func getStaffID(c *gin.Context) (uint, bool) {
	return getContextUint(c, "staff_id")
}

func getStaffRole(c *gin.Context) (string, bool) {
	value, exists := c.Get("staff_role")
	if !exists {
		respondError(c, response.CodeUnauthorized, "unauthorized", nil)
		return "", false
	}
	role, ok := value.(string)
	if !ok || strings.TrimSpace(role) == "" {
		respondError(c, response.CodeUnauthorized, "unauthorized", nil)
		return "", false
	}
	return role, true
}

func normalizePagination(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize
}

func idempotencyKey(c *gin.Context) string {
	return strings.TrimSpace(c.GetHeader("X-Idempotency-Key"))
}
