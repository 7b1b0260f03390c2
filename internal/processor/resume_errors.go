package processor

import (
	"errors"
	"fmt"
)

// ErrorCode 对外暴露的机器可读错误码
type ErrorCode string

const (
	CodeMissingInput      ErrorCode = "missing-input"
	CodeUnsupportedFormat ErrorCode = "unsupported-format"
	CodeEmptyDocument     ErrorCode = "empty-document"
	CodeModelsUnavailable ErrorCode = "models-unavailable"
	CodeInternal          ErrorCode = "internal-error"
)

// 定义基础错误类型
var (
	ErrMissingInput      = errors.New("缺少必要的输入")
	ErrUnsupportedFormat = errors.New("不支持的文件类型")
	ErrEmptyDocument     = errors.New("文档中没有可提取的文本")
	ErrModelsUnavailable = errors.New("模型能力不可用")
	ErrInternal          = errors.New("分析过程发生内部错误")
)

// AnalysisError 包含详细错误信息的自定义错误
type AnalysisError struct {
	Code    ErrorCode
	Op      string
	BaseErr error
	Detail  string
}

func (e *AnalysisError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s (操作:%s, 错误码:%s): %s", e.BaseErr, e.Op, e.Code, e.Detail)
	}
	return fmt.Sprintf("%s (操作:%s, 错误码:%s)", e.BaseErr, e.Op, e.Code)
}

func (e *AnalysisError) Unwrap() error {
	return e.BaseErr
}

// Is 实现 errors.Is 接口以支持错误比较
func (e *AnalysisError) Is(target error) bool {
	return errors.Is(e.BaseErr, target)
}

// Message 返回面向调用方的描述
func (e *AnalysisError) Message() string {
	if e.Detail != "" {
		return e.Detail
	}
	return e.BaseErr.Error()
}

// 错误构造函数
func NewMissingInputError(op, detail string) error {
	return &AnalysisError{Code: CodeMissingInput, Op: op, BaseErr: ErrMissingInput, Detail: detail}
}

func NewUnsupportedFormatError(op, detail string) error {
	return &AnalysisError{Code: CodeUnsupportedFormat, Op: op, BaseErr: ErrUnsupportedFormat, Detail: detail}
}

func NewEmptyDocumentError(op, detail string) error {
	return &AnalysisError{Code: CodeEmptyDocument, Op: op, BaseErr: ErrEmptyDocument, Detail: detail}
}

func NewModelsUnavailableError(op, detail string) error {
	return &AnalysisError{Code: CodeModelsUnavailable, Op: op, BaseErr: ErrModelsUnavailable, Detail: detail}
}

func NewInternalError(op string, cause error) error {
	detail := ""
	if cause != nil {
		detail = cause.Error()
	}
	return &AnalysisError{Code: CodeInternal, Op: op, BaseErr: ErrInternal, Detail: detail}
}

// CodeOf 提取错误码，非 AnalysisError 视为内部错误
func CodeOf(err error) ErrorCode {
	var ae *AnalysisError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeInternal
}
