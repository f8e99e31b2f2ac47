package response

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	apperrors "github.com/veerhq/veer/internal/errors"
	"github.com/veerhq/veer/internal/logger"
)

// Response 统一返回值结构体
type Response struct {
	// 状态码，0表示成功，非0表示失败
	Code int `json:"code"`
	// 响应消息
	Message string `json:"message"`
	// 响应数据
	Data interface{} `json:"data,omitempty"`
	// 错误详情
	Error string `json:"error,omitempty"`
	// 请求ID，用于链路追踪
	RequestID string `json:"request_id,omitempty"`
	// 时间戳
	Timestamp int64 `json:"timestamp"`
}

// PageData 分页数据结构体
type PageData struct {
	List       interface{} `json:"list"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	PageSize   int         `json:"page_size"`
	TotalPages int         `json:"total_pages"`
}

// RequestIDKey gin上下文中请求ID的键名
const RequestIDKey = "request_id"

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, build(c, 0, "success", data))
}

// SuccessWithMessage 带消息的成功响应
func SuccessWithMessage(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, build(c, 0, message, data))
}

// Created 201响应
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, build(c, 0, "created", data))
}

// SuccessWithPage 分页成功响应
func SuccessWithPage(c *gin.Context, list interface{}, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, build(c, 0, "success", NewPageData(list, total, page, pageSize)))
}

// NewPageData 构造分页数据
func NewPageData(list interface{}, total int64, page, pageSize int) PageData {
	totalPages := 0
	if pageSize > 0 {
		totalPages = int((total + int64(pageSize) - 1) / int64(pageSize))
	}
	return PageData{
		List:       list,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}

// Fail 根据错误类型返回错误响应
// AppError 按错误码映射HTTP状态并按 Accept-Language 翻译消息，其它错误按500处理
func Fail(c *gin.Context, err error) {
	appErr, ok := apperrors.GetAppError(err)
	if !ok {
		appErr = apperrors.Wrap(apperrors.ErrInternalServer, "", err)
	}

	status := appErr.HTTPStatus()
	if status >= http.StatusInternalServerError {
		logger.WithField(RequestIDKey, getRequestID(c)).Errorf("%s %s 失败: %v", c.Request.Method, c.Request.URL.Path, err)
	}

	resp := build(c, int(appErr.Code), appErr.Localized(c.GetHeader("Accept-Language")), nil)
	resp.Error = appErr.Details
	c.AbortWithStatusJSON(status, resp)
}

// BadRequest 400错误响应
func BadRequest(c *gin.Context, message string) {
	Fail(c, apperrors.New(apperrors.ErrInvalidParams, "").WithDetails(message))
}

// Unauthorized 401错误响应
func Unauthorized(c *gin.Context, message string) {
	Fail(c, apperrors.New(apperrors.ErrUnauthorized, "").WithDetails(message))
}

// NotFound 404错误响应
func NotFound(c *gin.Context, message string) {
	Fail(c, apperrors.New(apperrors.ErrNotFound, "").WithDetails(message))
}

func build(c *gin.Context, code int, message string, data interface{}) Response {
	return Response{
		Code:      code,
		Message:   message,
		Data:      data,
		RequestID: getRequestID(c),
		Timestamp: now().Unix(),
	}
}

// getRequestID 从gin上下文中获取请求ID
func getRequestID(c *gin.Context) string {
	if requestID, exists := c.Get(RequestIDKey); exists {
		if id, ok := requestID.(string); ok {
			return id
		}
	}
	return ""
}

// now 便于测试时替换
var now = time.Now
