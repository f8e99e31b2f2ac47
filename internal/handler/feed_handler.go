package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/veerhq/veer/internal/response"
	"github.com/veerhq/veer/internal/service/feed"
)

// FeedHandler 天气和新闻代理处理器
type FeedHandler struct {
	weather feed.WeatherService
	news    feed.NewsService
}

func NewFeedHandler(weather feed.WeatherService, news feed.NewsService) *FeedHandler {
	return &FeedHandler{weather: weather, news: news}
}

// Weather 当前天气
// @Summary 当前天气
// @Tags 数据代理
// @Param city query string false "城市"
// @Param lat query number false "纬度"
// @Param lon query number false "经度"
// @Router /api/v1/weather [get]
func (h *FeedHandler) Weather(c *gin.Context) {
	var q feed.WeatherQuery
	if !bindQuery(c, &q) {
		return
	}
	w, err := h.weather.Current(c.Request.Context(), &q)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, w)
}

// News 头条新闻
// @Summary 头条新闻
// @Tags 数据代理
// @Param category query string false "分类"
// @Param q query string false "关键词"
// @Router /api/v1/news [get]
func (h *FeedHandler) News(c *gin.Context) {
	var q feed.NewsQuery
	if !bindQuery(c, &q) {
		return
	}
	result, err := h.news.TopHeadlines(c.Request.Context(), &q)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, result)
}
