package xerr

import (
	"errors"
	"fmt"
)

// CodeError 自定义错误结构
type CodeError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error 实现 error 接口
func (e *CodeError) Error() string {
	return fmt.Sprintf("Code: %d, Message: %s", e.Code, e.Message)
}

// New 创建新的 CodeError
func New(code int, msg string) *CodeError {
	return &CodeError{Code: code, Message: msg}
}

// 常用通用错误码
const (
	OK                  = 200
	BadRequest          = 400
	Unauthorized        = 401
	Forbidden           = 403
	NotFound            = 404
	ParseError          = 422
	InternalServerError = 500
	ServiceUnavailable  = 503
)

// 常用预定义错误
var (
	ErrSuccess     = New(OK, "Success")
	ErrServerError = New(InternalServerError, "internal server error")
	ErrParam       = New(BadRequest, "invalid parameters")

	ErrUnauthorized = New(Unauthorized, "UNAUTHORIZED")
	ErrForbidden    = New(Forbidden, "FORBIDDEN")
	ErrNotFound     = New(NotFound, "NOT_FOUND")

	// ErrParseError LLM 输出不是合法 JSON 或缺少必填字段
	ErrParseError = New(ParseError, "PARSE_ERROR")
	// ErrServiceUnavailable 下游 Store/Completer 不可用，可由调用方重试
	ErrServiceUnavailable = New(ServiceUnavailable, "SERVICE_UNAVAILABLE")
	// ErrMissingClassification 草稿生成要求会话已有分类结果
	ErrMissingClassification = New(NotFound, "MISSING_CLASSIFICATION")
)

// CodeOf 提取错误码，非 CodeError 一律视为系统错误
func CodeOf(err error) int {
	var ce *CodeError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return InternalServerError
}

// Is 判断错误码是否匹配
func Is(err error, code int) bool {
	return CodeOf(err) == code
}
