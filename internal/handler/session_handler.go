package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/veerhq/veer/internal/response"
	"github.com/veerhq/veer/internal/service/session"
)

// SessionHandler 会话和消息处理器
type SessionHandler struct {
	sessionService session.SessionService
}

func NewSessionHandler(sessionService session.SessionService) *SessionHandler {
	return &SessionHandler{sessionService: sessionService}
}

// RenameSessionRequest 重命名请求
type RenameSessionRequest struct {
	Title string `json:"title" binding:"required,max=200"`
}

func (h *SessionHandler) CreateSession(c *gin.Context) {
	var req session.CreateSessionRequest
	if !bindJSON(c, &req) {
		return
	}
	s, err := h.sessionService.CreateSession(&req)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Created(c, s)
}

func (h *SessionHandler) GetSession(c *gin.Context) {
	s, err := h.sessionService.GetSession(c.Param("id"))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, s)
}

func (h *SessionHandler) RenameSession(c *gin.Context) {
	var req RenameSessionRequest
	if !bindJSON(c, &req) {
		return
	}
	s, err := h.sessionService.RenameSession(c.Param("id"), req.Title)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, s)
}

// DeleteSession 删除会话及其消息
// @Summary 删除会话
// @Tags 会话管理
// @Param id path string true "会话ID"
// @Router /api/v1/sessions/{id} [delete]
func (h *SessionHandler) DeleteSession(c *gin.Context) {
	if err := h.sessionService.DeleteSession(c.Param("id")); err != nil {
		response.Fail(c, err)
		return
	}
	response.SuccessWithMessage(c, "session deleted", nil)
}

// ListSessions 会话列表，最近更新在前
func (h *SessionHandler) ListSessions(c *gin.Context) {
	page, ok := bindPage(c)
	if !ok {
		return
	}
	sessions, total, err := h.sessionService.ListSessions(page)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.SuccessWithPage(c, sessions, total, page.Page, page.PageSize)
}

// ListMessages 会话消息，时间正序
func (h *SessionHandler) ListMessages(c *gin.Context) {
	page, ok := bindPage(c)
	if !ok {
		return
	}
	messages, total, err := h.sessionService.ListMessages(c.Param("id"), page)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.SuccessWithPage(c, messages, total, page.Page, page.PageSize)
}

func (h *SessionHandler) AppendMessage(c *gin.Context) {
	var req session.AppendMessageRequest
	if !bindJSON(c, &req) {
		return
	}
	m, err := h.sessionService.AppendMessage(c.Param("id"), &req)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Created(c, m)
}

func (h *SessionHandler) DeleteMessage(c *gin.Context) {
	if err := h.sessionService.DeleteMessage(c.Param("id"), c.Param("messageId")); err != nil {
		response.Fail(c, err)
		return
	}
	response.SuccessWithMessage(c, "message deleted", nil)
}
