package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/veerhq/veer/internal/response"
	"github.com/veerhq/veer/internal/service/daily"
)

// DailyHandler 每日数据处理器
type DailyHandler struct {
	dailyService daily.DailyService
}

func NewDailyHandler(dailyService daily.DailyService) *DailyHandler {
	return &DailyHandler{dailyService: dailyService}
}

// Upsert 创建或更新某天的数据
// @Summary 写入每日数据
// @Tags 每日数据
// @Accept json
// @Param day path string true "日期 YYYY-MM-DD"
// @Router /api/v1/daily/{day} [put]
func (h *DailyHandler) Upsert(c *gin.Context) {
	var req daily.UpsertDailyRequest
	if !bindJSON(c, &req) {
		return
	}
	d, err := h.dailyService.Upsert(c.Param("day"), &req)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, d)
}

func (h *DailyHandler) Get(c *gin.Context) {
	d, err := h.dailyService.Get(c.Param("day"))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, d)
}

// Range 按日期区间列出，?from=&to=
func (h *DailyHandler) Range(c *gin.Context) {
	list, err := h.dailyService.Range(c.Query("from"), c.Query("to"))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, list)
}

func (h *DailyHandler) Delete(c *gin.Context) {
	if err := h.dailyService.Delete(c.Param("day")); err != nil {
		response.Fail(c, err)
		return
	}
	response.SuccessWithMessage(c, "daily data deleted", nil)
}
