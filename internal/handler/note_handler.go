package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/veerhq/veer/internal/response"
	"github.com/veerhq/veer/internal/service/note"
)

// NoteHandler 笔记处理器
type NoteHandler struct {
	noteService note.NoteService
}

// NewNoteHandler 创建笔记处理器实例
func NewNoteHandler(noteService note.NoteService) *NoteHandler {
	return &NoteHandler{noteService: noteService}
}

// CreateNote 创建笔记
// @Summary 创建新笔记
// @Tags 笔记管理
// @Accept json
// @Produce json
// @Param note body note.CreateNoteRequest true "创建笔记请求"
// @Success 201 {object} response.Response{data=database.Note}
// @Failure 400 {object} response.Response
// @Router /api/v1/notes [post]
func (h *NoteHandler) CreateNote(c *gin.Context) {
	var req note.CreateNoteRequest
	if !bindJSON(c, &req) {
		return
	}
	created, err := h.noteService.CreateNote(&req)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Created(c, created)
}

// GetNote 获取笔记详情
// @Summary 获取笔记详情
// @Tags 笔记管理
// @Produce json
// @Param id path string true "笔记ID"
// @Success 200 {object} response.Response{data=database.Note}
// @Failure 404 {object} response.Response
// @Router /api/v1/notes/{id} [get]
func (h *NoteHandler) GetNote(c *gin.Context) {
	n, err := h.noteService.GetNote(c.Param("id"))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, n)
}

// UpdateNote 部分更新笔记
// @Summary 更新笔记
// @Tags 笔记管理
// @Accept json
// @Produce json
// @Param id path string true "笔记ID"
// @Param note body note.UpdateNoteRequest true "更新笔记请求"
// @Success 200 {object} response.Response{data=database.Note}
// @Router /api/v1/notes/{id} [patch]
func (h *NoteHandler) UpdateNote(c *gin.Context) {
	var req note.UpdateNoteRequest
	if !bindJSON(c, &req) {
		return
	}
	updated, err := h.noteService.UpdateNote(c.Param("id"), &req)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, updated)
}

// DeleteNote 删除笔记
// @Summary 删除笔记
// @Tags 笔记管理
// @Param id path string true "笔记ID"
// @Success 200 {object} response.Response
// @Router /api/v1/notes/{id} [delete]
func (h *NoteHandler) DeleteNote(c *gin.Context) {
	if err := h.noteService.DeleteNote(c.Param("id")); err != nil {
		response.Fail(c, err)
		return
	}
	response.SuccessWithMessage(c, "note deleted", nil)
}

// ListNotes 分页列出笔记
// @Summary 笔记列表
// @Tags 笔记管理
// @Produce json
// @Param q query string false "搜索标题和内容"
// @Param category query string false "分类"
// @Param pinned query bool false "是否置顶"
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Success 200 {object} response.Response{data=response.PageData}
// @Router /api/v1/notes [get]
func (h *NoteHandler) ListNotes(c *gin.Context) {
	var filter note.ListNotesFilter
	if !bindQuery(c, &filter) {
		return
	}
	page, ok := bindPage(c)
	if !ok {
		return
	}
	notes, total, err := h.noteService.ListNotes(filter, page)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.SuccessWithPage(c, notes, total, page.Page, page.PageSize)
}

// Categories 已使用的分类
func (h *NoteHandler) Categories(c *gin.Context) {
	categories, err := h.noteService.Categories()
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, categories)
}
