package types

import (
	"errors"
	"fmt"
)

// ErrorCode 统一错误码。
type ErrorCode string

// 上游依赖错误码
const (
	ErrUpstreamVector ErrorCode = "UPSTREAM_VECTOR" // 向量索引不可用
	ErrUpstreamWeb    ErrorCode = "UPSTREAM_WEB"    // 网络搜索不可用
	ErrUpstreamModel  ErrorCode = "UPSTREAM_MODEL"  // 语言模型不可用
)

// 请求处理错误码
const (
	ErrInvalidRequest  ErrorCode = "INVALID_REQUEST"
	ErrNotFound        ErrorCode = "NOT_FOUND"
	ErrModelError      ErrorCode = "MODEL_ERROR"      // 模型调用失败，请求终止
	ErrContextOverflow ErrorCode = "CONTEXT_OVERFLOW" // 所有候选被丢弃，非致命
	ErrInternalError   ErrorCode = "INTERNAL_ERROR"
)

// Upstream 标识哪个上游出了问题。
type Upstream string

const (
	UpstreamVector Upstream = "vector"
	UpstreamWeb    Upstream = "web"
	UpstreamModel  Upstream = "model"
)

// Error 带错误码和元数据的结构化错误。
type Error struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	Upstream   Upstream  `json:"upstream,omitempty"`
	HTTPStatus int       `json:"http_status,omitempty"`
	Retryable  bool      `json:"retryable"`
	Cause      error     `json:"-"`
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap 返回底层错误。
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError 创建结构化错误。
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// NewUpstreamUnavailable 创建上游不可用错误。
// vector/web 在检索边界被吸收并降级，model 是唯一向调用方暴露的失败。
func NewUpstreamUnavailable(which Upstream, cause error) *Error {
	return &Error{
		Code:      upstreamCode(which),
		Message:   fmt.Sprintf("upstream %s unavailable", which),
		Upstream:  which,
		Retryable: true,
		Cause:     cause,
	}
}

func upstreamCode(which Upstream) ErrorCode {
	switch which {
	case UpstreamVector:
		return ErrUpstreamVector
	case UpstreamWeb:
		return ErrUpstreamWeb
	case UpstreamModel:
		return ErrUpstreamModel
	default:
		return ErrInternalError
	}
}

// WithCause 附加底层错误。
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithHTTPStatus 设置 HTTP 状态码。
func (e *Error) WithHTTPStatus(status int) *Error {
	e.HTTPStatus = status
	return e
}

// WithRetryable 标记是否可重试。
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// CodeOf 提取错误码，非结构化错误返回 INTERNAL_ERROR。
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrInternalError
}

// IsUpstreamUnavailable 判断 err 是否为指定上游的不可用错误。
func IsUpstreamUnavailable(err error, which Upstream) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Upstream == which && e.Code == upstreamCode(which)
	}
	return false
}

// IsRetryable 判断错误是否可重试。
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}
