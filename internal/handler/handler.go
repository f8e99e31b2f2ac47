// Package handler 提供API服务的HTTP处理器
// 处理器只负责参数绑定和响应，业务逻辑都在 service 包中
package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/veerhq/veer/internal/response"
	"github.com/veerhq/veer/internal/service/query"
)

// bindPage 绑定分页参数并修正非法值
func bindPage(c *gin.Context) (query.Page, bool) {
	var page query.Page
	if err := c.ShouldBindQuery(&page); err != nil {
		response.BadRequest(c, err.Error())
		return page, false
	}
	return page.Normalize(), true
}

// bindQuery 绑定查询参数，失败时直接返回400
func bindQuery(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindQuery(obj); err != nil {
		response.BadRequest(c, err.Error())
		return false
	}
	return true
}

// bindJSON 绑定请求体，失败时直接返回400
func bindJSON(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		response.BadRequest(c, err.Error())
		return false
	}
	return true
}

// intQuery 读取整数查询参数，为空时返回默认值
func intQuery(c *gin.Context, key string, def int) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		response.BadRequest(c, key+" must be an integer")
		return 0, false
	}
	return v, true
}
