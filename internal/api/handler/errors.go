package handler

import (
	"context"
	"errors"
	"fmt"

	"resume-ats-go/internal/processor"
	"resume-ats-go/internal/storage"
	"resume-ats-go/internal/tracing"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"go.opentelemetry.io/otel/trace"
)

// 存储相关的错误码
const (
	CodeNotFound               = "not-found"
	CodePersistenceUnavailable = "persistence-unavailable"
)

// ErrorBody 错误响应中的 error 字段
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse 统一的错误响应
type ErrorResponse struct {
	Success bool      `json:"success"`
	Error   ErrorBody `json:"error"`
}

// classifyError 把错误映射为HTTP状态码、错误码和对外消息
func classifyError(err error) (int, string, string) {
	var ae *processor.AnalysisError
	if errors.As(err, &ae) {
		switch ae.Code {
		case processor.CodeMissingInput, processor.CodeUnsupportedFormat, processor.CodeEmptyDocument:
			return consts.StatusBadRequest, string(ae.Code), ae.Message()
		case processor.CodeModelsUnavailable:
			return consts.StatusServiceUnavailable, string(ae.Code), ae.Message()
		default:
			return consts.StatusInternalServerError, string(ae.Code), ae.Message()
		}
	}

	switch {
	case errors.Is(err, storage.ErrAnalysisNotFound):
		return consts.StatusNotFound, CodeNotFound, "Analysis not found."
	case errors.Is(err, storage.ErrOriginalNotStored):
		return consts.StatusNotFound, CodeNotFound, "Original file not stored."
	case errors.Is(err, storage.ErrPersistenceUnavailable):
		return consts.StatusServiceUnavailable, CodePersistenceUnavailable, "Persistence is not configured."
	}
	return consts.StatusInternalServerError, string(processor.CodeInternal), err.Error()
}

// writeError 写错误响应并在当前span上记录
func writeError(ctx context.Context, c *app.RequestContext, err error) {
	status, code, message := classifyError(err)
	tracing.RecordHTTPError(trace.SpanFromContext(ctx), err, status)
	c.JSON(status, ErrorResponse{
		Success: false,
		Error:   ErrorBody{Code: code, Message: message},
	})
}

// HandlePanic 作为 recovery 中间件的回调：记录堆栈并返回 500 internal-error
func (h *AnalysisHandler) HandlePanic(ctx context.Context, c *app.RequestContext, err interface{}, stack []byte) {
	h.logger.Error().
		Str("path", string(c.Request.URI().Path())).
		Bytes("stack", stack).
		Msgf("请求处理发生panic: %v", err)
	tracing.RecordHTTPError(trace.SpanFromContext(ctx), fmt.Errorf("panic: %v", err), consts.StatusInternalServerError)
	c.AbortWithStatusJSON(consts.StatusInternalServerError, ErrorResponse{
		Success: false,
		Error:   ErrorBody{Code: string(processor.CodeInternal), Message: "Internal server error."},
	})
}
