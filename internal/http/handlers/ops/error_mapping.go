package ops

import (
	"errors"

	"github.com/shipline-next/internal/http/response"
	"github.com/shipline-next/internal/service"

	"github.com/gin-gonic/gin"
)

// mappedHandlerError 定义业务错误到接口错误响应的映射关系。
type mappedHandlerError struct {
	target error
	code   int
	msg    string
}

func respondWithMappedError(c *gin.Context, err error, rules []mappedHandlerError, fallbackCode int, fallbackMsg string) {
	for _, rule := range rules {
		if errors.Is(err, rule.target) {
			respondError(c, rule.code, rule.msg, nil)
			return
		}
	}
	respondError(c, fallbackCode, fallbackMsg, err)
}

var jobCommonErrorRules = []mappedHandlerError{
	{target: service.ErrJobNotFound, code: response.CodeNotFound, msg: "job not found"},
	{target: service.ErrInvalidTransition, code: response.CodeBadRequest, msg: "status transition not allowed"},
	{target: service.ErrUnauthorized, code: response.CodeForbidden, msg: "operation not permitted for this role"},
	{target: service.ErrNeverVisited, code: response.CodeBadRequest, msg: "revert target was never visited"},
	{target: service.ErrRevertCommentRequired, code: response.CodeBadRequest, msg: "revert comment required"},
	{target: service.ErrInvalidJobInput, code: response.CodeBadRequest, msg: "job input incomplete"},
	{target: service.ErrDuplicateRequest, code: response.CodeConflict, msg: "duplicate request"},
	{target: service.ErrStaffNotFound, code: response.CodeNotFound, msg: "staff not found"},
	{target: service.ErrInvalidRole, code: response.CodeBadRequest, msg: "staff role mismatch"},
	{target: service.ErrStaffDisabled, code: response.CodeBadRequest, msg: "staff account disabled"},
}

var batchCommonErrorRules = []mappedHandlerError{
	{target: service.ErrBatchNotFound, code: response.CodeNotFound, msg: "batch not found"},
	{target: service.ErrJobNotFound, code: response.CodeNotFound, msg: "job not found"},
	{target: service.ErrEmptySelection, code: response.CodeBadRequest, msg: "job selection is empty"},
	{target: service.ErrIneligibleJob, code: response.CodeBadRequest, msg: "job not eligible for batching"},
	{target: service.ErrBatchClosed, code: response.CodeBadRequest, msg: "batch membership is frozen"},
	{target: service.ErrBatchEmpty, code: response.CodeBadRequest, msg: "batch has no member jobs"},
	{target: service.ErrInvalidBatchTransition, code: response.CodeBadRequest, msg: "batch can only advance one step"},
	{target: service.ErrUnauthorized, code: response.CodeForbidden, msg: "operation not permitted for this role"},
}

var paymentCommonErrorRules = []mappedHandlerError{
	{target: service.ErrInvoiceNotFound, code: response.CodeNotFound, msg: "invoice not found"},
	{target: service.ErrJobNotFound, code: response.CodeNotFound, msg: "job not found"},
	{target: service.ErrInvalidAmount, code: response.CodeBadRequest, msg: "payment amount invalid"},
	{target: service.ErrInvalidPaymentMethod, code: response.CodeBadRequest, msg: "unknown payment method"},
	{target: service.ErrUnauthorized, code: response.CodeForbidden, msg: "operation not permitted for this role"},
	{target: service.ErrDuplicateRequest, code: response.CodeConflict, msg: "duplicate request"},
}
