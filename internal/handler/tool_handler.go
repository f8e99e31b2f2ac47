package handler

import (
	"github.com/gin-gonic/gin"
	apperrors "github.com/veerhq/veer/internal/errors"
	"github.com/veerhq/veer/internal/response"
	"github.com/veerhq/veer/internal/service/convert"
)

// ToolHandler 单位换算和颜色换算，不访问数据库
type ToolHandler struct{}

func NewToolHandler() *ToolHandler {
	return &ToolHandler{}
}

// ConvertRequest 单位换算请求
type ConvertRequest struct {
	Category string   `json:"category" binding:"required"`
	Value    *float64 `json:"value" binding:"required"`
	From     string   `json:"from" binding:"required"`
	To       string   `json:"to" binding:"required"`
}

// ColorRequest 颜色换算请求，hex、rgb、hsl 三选一
type ColorRequest struct {
	Hex string       `json:"hex"`
	RGB *convert.RGB `json:"rgb"`
	HSL *convert.HSL `json:"hsl"`
}

// Categories 全部换算类别及单位
func (h *ToolHandler) Categories(c *gin.Context) {
	out := make(map[string][]string)
	for _, cat := range convert.Categories() {
		units, _ := convert.Units(cat)
		out[cat] = units
	}
	response.Success(c, out)
}

func (h *ToolHandler) Units(c *gin.Context) {
	units, err := convert.Units(c.Param("category"))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, units)
}

// Convert 单位换算
// @Summary 单位换算
// @Tags 工具
// @Accept json
// @Param body body ConvertRequest true "换算请求"
// @Router /api/v1/tools/convert [post]
func (h *ToolHandler) Convert(c *gin.Context) {
	var req ConvertRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := convert.Convert(req.Category, *req.Value, req.From, req.To)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, result)
}

// Color 颜色换算，GET ?hex= 或 POST 请求体
func (h *ToolHandler) Color(c *gin.Context) {
	var req ColorRequest
	if c.Request.Method == "GET" {
		req.Hex = c.Query("hex")
	} else if !bindJSON(c, &req) {
		return
	}

	var (
		info *convert.ColorInfo
		err  error
	)
	switch {
	case req.Hex != "":
		info, err = convert.Describe(req.Hex)
	case req.RGB != nil:
		info = convert.FromRGB(*req.RGB)
	case req.HSL != nil:
		info, err = convert.FromHSL(*req.HSL)
	default:
		err = apperrors.Newf(apperrors.ErrInvalidParams, "one of hex, rgb or hsl is required")
	}
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, info)
}
