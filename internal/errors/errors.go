package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/veerhq/veer/internal/i18n"
)

// ErrorCode 错误码类型
type ErrorCode int

const (
	// 通用错误码 (1000-1999)
	ErrSuccess            ErrorCode = 0
	ErrInternalServer     ErrorCode = 1000
	ErrInvalidParams      ErrorCode = 1001
	ErrUnauthorized       ErrorCode = 1002
	ErrNotFound           ErrorCode = 1004
	ErrConflict           ErrorCode = 1005
	ErrUnsupportedMedia   ErrorCode = 1006
	ErrServiceUnavailable ErrorCode = 1007

	// 记录相关错误码 (2000-2999)
	ErrRecordNotFound      ErrorCode = 2000
	ErrRecordAlreadyExists ErrorCode = 2001
	ErrInvalidColor        ErrorCode = 2002
	ErrInvalidUnit         ErrorCode = 2003

	// 系统代理错误码 (3000-3999)
	ErrUnknownAction       ErrorCode = 3000
	ErrUnsupportedPlatform ErrorCode = 3001
	ErrUnknownApp          ErrorCode = 3002
	ErrCommandFailed       ErrorCode = 3003
	ErrInvalidProcess      ErrorCode = 3004

	// 上游服务错误码 (4000-4999)
	ErrUpstreamFailed ErrorCode = 4000
	ErrNoProvider     ErrorCode = 4001

	// 备份相关错误码 (5000-5999)
	ErrBackupConfigNotFound ErrorCode = 5000
	ErrBackupFailed         ErrorCode = 5001
	ErrRestoreFailed        ErrorCode = 5002
	ErrProviderNotSupported ErrorCode = 5003

	// 数据库错误码 (6000-6999)
	ErrDatabaseQuery ErrorCode = 6000
	ErrDatabaseWrite ErrorCode = 6001
)

// AppError 应用统一错误
type AppError struct {
	Code          ErrorCode `json:"code"`
	Message       string    `json:"message"`
	Details       string    `json:"details,omitempty"`
	OriginalError error     `json:"-"`
}

// Error 实现error接口
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%d] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap 返回原始错误，便于 errors.Is / errors.As
func (e *AppError) Unwrap() error {
	return e.OriginalError
}

// HTTPStatus 错误码对应的HTTP状态码
func (e *AppError) HTTPStatus() int {
	switch e.Code {
	case ErrInvalidParams, ErrInvalidColor, ErrInvalidUnit, ErrUnknownAction,
		ErrUnsupportedPlatform, ErrInvalidProcess:
		return http.StatusBadRequest
	case ErrUnauthorized:
		return http.StatusUnauthorized
	case ErrNotFound, ErrRecordNotFound, ErrUnknownApp, ErrBackupConfigNotFound:
		return http.StatusNotFound
	case ErrConflict, ErrRecordAlreadyExists:
		return http.StatusConflict
	case ErrUnsupportedMedia:
		return http.StatusUnsupportedMediaType
	case ErrServiceUnavailable, ErrNoProvider:
		return http.StatusServiceUnavailable
	case ErrUpstreamFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// WithDetails 添加详细错误信息
func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

// Localized 返回指定语言的错误消息
func (e *AppError) Localized(lang string) string {
	return GetErrorMessageWithLang(e.Code, lang)
}

// New 创建新的应用错误，message为空时使用默认语言的错误消息
func New(code ErrorCode, message string) *AppError {
	if message == "" {
		message = GetErrorMessage(code)
	}
	return &AppError{Code: code, Message: message}
}

// Newf 创建带格式化详情的应用错误
func Newf(code ErrorCode, format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    code,
		Message: GetErrorMessage(code),
		Details: fmt.Sprintf(format, args...),
	}
}

// Wrap 包装原始错误
func Wrap(code ErrorCode, message string, err error) *AppError {
	if message == "" {
		message = GetErrorMessage(code)
	}
	appErr := &AppError{
		Code:          code,
		Message:       message,
		OriginalError: err,
	}
	if err != nil {
		appErr.Details = err.Error()
	}
	return appErr
}

// GetAppError 从错误链中提取应用错误
func GetAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode 判断错误链中是否包含指定错误码
func HasCode(err error, code ErrorCode) bool {
	appErr, ok := GetAppError(err)
	return ok && appErr.Code == code
}

var errorCodeToKeyMap = map[ErrorCode]string{
	ErrSuccess:            "success",
	ErrInternalServer:     "internal_server_error",
	ErrInvalidParams:      "invalid_params",
	ErrUnauthorized:       "unauthorized",
	ErrNotFound:           "not_found",
	ErrConflict:           "conflict",
	ErrUnsupportedMedia:   "unsupported_media_type",
	ErrServiceUnavailable: "service_unavailable",

	ErrRecordNotFound:      "record_not_found",
	ErrRecordAlreadyExists: "record_already_exists",
	ErrInvalidColor:        "invalid_color",
	ErrInvalidUnit:         "invalid_unit",

	ErrUnknownAction:       "unknown_action",
	ErrUnsupportedPlatform: "unsupported_platform",
	ErrUnknownApp:          "unknown_app",
	ErrCommandFailed:       "command_failed",
	ErrInvalidProcess:      "invalid_process",

	ErrUpstreamFailed: "upstream_failed",
	ErrNoProvider:     "no_provider",

	ErrBackupConfigNotFound: "backup_config_not_found",
	ErrBackupFailed:         "backup_failed",
	ErrRestoreFailed:        "restore_failed",
	ErrProviderNotSupported: "provider_not_supported",

	ErrDatabaseQuery: "database_query",
	ErrDatabaseWrite: "database_write",
}

// GetErrorMessage 根据错误码获取默认语言的错误消息
func GetErrorMessage(code ErrorCode) string {
	return GetErrorMessageWithLang(code, i18n.GetInstance().GetDefaultLanguage())
}

// GetErrorMessageWithLang 根据错误码和语言获取错误消息
func GetErrorMessageWithLang(code ErrorCode, lang string) string {
	key, exists := errorCodeToKeyMap[code]
	if !exists {
		key = "unknown_error"
	}
	return i18n.GetInstance().Translate(key, lang)
}
