package handler

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	apperrors "github.com/veerhq/veer/internal/errors"
	"github.com/veerhq/veer/internal/response"
	"github.com/veerhq/veer/internal/service/widget"
)

// 导入文件大小上限
const maxImportSize = 8 << 20

// WidgetHandler 小组件数据处理器：代码片段、颜色、快捷指令、休息统计和设置
type WidgetHandler struct {
	snippets widget.SnippetService
	colors   widget.ColorService
	commands widget.QuickCommandService
	breaks   widget.BreakService
	settings widget.SettingService
}

// NewWidgetHandler 创建小组件处理器
func NewWidgetHandler(
	snippets widget.SnippetService,
	colors widget.ColorService,
	commands widget.QuickCommandService,
	breaks widget.BreakService,
	settings widget.SettingService,
) *WidgetHandler {
	return &WidgetHandler{
		snippets: snippets,
		colors:   colors,
		commands: commands,
		breaks:   breaks,
		settings: settings,
	}
}

// CreateSnippet 创建代码片段
// @Summary 创建代码片段
// @Tags 代码片段
// @Accept json
// @Param snippet body widget.SnippetRequest true "片段"
// @Router /api/v1/snippets [post]
func (h *WidgetHandler) CreateSnippet(c *gin.Context) {
	var req widget.SnippetRequest
	if !bindJSON(c, &req) {
		return
	}
	s, err := h.snippets.CreateSnippet(&req)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Created(c, s)
}

func (h *WidgetHandler) GetSnippet(c *gin.Context) {
	s, err := h.snippets.GetSnippet(c.Param("id"))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, s)
}

func (h *WidgetHandler) UpdateSnippet(c *gin.Context) {
	var req widget.SnippetRequest
	if !bindJSON(c, &req) {
		return
	}
	s, err := h.snippets.UpdateSnippet(c.Param("id"), &req)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, s)
}

func (h *WidgetHandler) DeleteSnippet(c *gin.Context) {
	if err := h.snippets.DeleteSnippet(c.Param("id")); err != nil {
		response.Fail(c, err)
		return
	}
	response.SuccessWithMessage(c, "snippet deleted", nil)
}

// ListSnippets 片段列表，?q=&language=&tag=
func (h *WidgetHandler) ListSnippets(c *gin.Context) {
	var filter widget.SnippetFilter
	if !bindQuery(c, &filter) {
		return
	}
	page, ok := bindPage(c)
	if !ok {
		return
	}
	list, total, err := h.snippets.ListSnippets(filter, page)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.SuccessWithPage(c, list, total, page.Page, page.PageSize)
}

func (h *WidgetHandler) SnippetLanguages(c *gin.Context) {
	langs, err := h.snippets.Languages()
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, langs)
}

// ExportSnippets 以YAML文件下载
// @Summary 导出代码片段
// @Tags 代码片段
// @Produce application/x-yaml
// @Router /api/v1/snippets/export [get]
func (h *WidgetHandler) ExportSnippets(c *gin.Context) {
	var filter widget.SnippetFilter
	if !bindQuery(c, &filter) {
		return
	}
	data, err := h.snippets.ExportYAML(filter)
	if err != nil {
		response.Fail(c, err)
		return
	}
	filename := fmt.Sprintf("snippets-%s.yaml", time.Now().Format("20060102"))
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/x-yaml", data)
}

// ImportSnippets 导入YAML，支持请求体或 multipart 的 file 字段
// @Summary 导入代码片段
// @Tags 代码片段
// @Accept application/x-yaml
// @Router /api/v1/snippets/import [post]
func (h *WidgetHandler) ImportSnippets(c *gin.Context) {
	var body io.Reader = c.Request.Body
	if fh, err := c.FormFile("file"); err == nil {
		f, err := fh.Open()
		if err != nil {
			response.BadRequest(c, err.Error())
			return
		}
		defer f.Close()
		body = f
	}

	data, err := io.ReadAll(io.LimitReader(body, maxImportSize+1))
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if len(data) > maxImportSize {
		response.Fail(c, apperrors.Newf(apperrors.ErrInvalidParams, "import file exceeds %d bytes", maxImportSize))
		return
	}
	result, err := h.snippets.ImportYAML(data)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, result)
}

func (h *WidgetHandler) CreateColor(c *gin.Context) {
	var req widget.ColorRequest
	if !bindJSON(c, &req) {
		return
	}
	color, err := h.colors.CreateColor(&req)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Created(c, color)
}

func (h *WidgetHandler) UpdateColor(c *gin.Context) {
	var req widget.ColorRequest
	if !bindJSON(c, &req) {
		return
	}
	color, err := h.colors.UpdateColor(c.Param("id"), &req)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, color)
}

func (h *WidgetHandler) DeleteColor(c *gin.Context) {
	if err := h.colors.DeleteColor(c.Param("id")); err != nil {
		response.Fail(c, err)
		return
	}
	response.SuccessWithMessage(c, "color deleted", nil)
}

func (h *WidgetHandler) ListColors(c *gin.Context) {
	page, ok := bindPage(c)
	if !ok {
		return
	}
	list, total, err := h.colors.ListColors(page)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.SuccessWithPage(c, list, total, page.Page, page.PageSize)
}

func (h *WidgetHandler) CreateCommand(c *gin.Context) {
	var req widget.QuickCommandRequest
	if !bindJSON(c, &req) {
		return
	}
	cmd, err := h.commands.CreateCommand(&req)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Created(c, cmd)
}

func (h *WidgetHandler) UpdateCommand(c *gin.Context) {
	var req widget.QuickCommandRequest
	if !bindJSON(c, &req) {
		return
	}
	cmd, err := h.commands.UpdateCommand(c.Param("id"), &req)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, cmd)
}

func (h *WidgetHandler) DeleteCommand(c *gin.Context) {
	if err := h.commands.DeleteCommand(c.Param("id")); err != nil {
		response.Fail(c, err)
		return
	}
	response.SuccessWithMessage(c, "command deleted", nil)
}

func (h *WidgetHandler) ListCommands(c *gin.Context) {
	list, err := h.commands.ListCommands()
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, list)
}

// RecordBreak 累加休息统计，day 为空时记到今天
func (h *WidgetHandler) RecordBreak(c *gin.Context) {
	var req widget.BreakRecordRequest
	if !bindJSON(c, &req) {
		return
	}
	stat, err := h.breaks.Record(&req)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, stat)
}

func (h *WidgetHandler) GetBreak(c *gin.Context) {
	stat, err := h.breaks.Get(c.Param("day"))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, stat)
}

// BreakSummary 最近N天汇总，?days=7
func (h *WidgetHandler) BreakSummary(c *gin.Context) {
	days, ok := intQuery(c, "days", 0)
	if !ok {
		return
	}
	summary, err := h.breaks.Summary(days)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, summary)
}

// PutSettingRequest 写入单个设置
type PutSettingRequest struct {
	Value string `json:"value"`
}

func (h *WidgetHandler) AllSettings(c *gin.Context) {
	all, err := h.settings.All()
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, all)
}

func (h *WidgetHandler) GetSetting(c *gin.Context) {
	s, err := h.settings.Get(c.Param("key"))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, s)
}

func (h *WidgetHandler) PutSetting(c *gin.Context) {
	var req PutSettingRequest
	if !bindJSON(c, &req) {
		return
	}
	s, err := h.settings.Put(c.Param("key"), req.Value)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, s)
}

// PutSettings 批量写入，请求体为 {"key": "value"}
func (h *WidgetHandler) PutSettings(c *gin.Context) {
	var values map[string]string
	if !bindJSON(c, &values) {
		return
	}
	all, err := h.settings.PutMany(values)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, all)
}

func (h *WidgetHandler) DeleteSetting(c *gin.Context) {
	if err := h.settings.Delete(c.Param("key")); err != nil {
		response.Fail(c, err)
		return
	}
	response.SuccessWithMessage(c, "setting deleted", nil)
}
