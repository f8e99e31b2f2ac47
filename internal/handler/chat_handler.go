package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/veerhq/veer/internal/response"
	"github.com/veerhq/veer/internal/service/chat"
)

// ChatHandler 对话代理处理器
type ChatHandler struct {
	chatService chat.ChatService
}

func NewChatHandler(chatService chat.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// Chat 转发对话到上游提供商
// @Summary 发送对话
// @Description 按优先级依次尝试已配置的提供商，返回第一个成功的回复
// @Tags 对话
// @Accept json
// @Produce json
// @Param body body chat.ChatRequest true "对话请求"
// @Success 200 {object} response.Response{data=chat.ChatResponse}
// @Failure 502 {object} response.Response "全部提供商失败"
// @Failure 503 {object} response.Response "没有可用的提供商"
// @Router /api/v1/chat [post]
func (h *ChatHandler) Chat(c *gin.Context) {
	var req chat.ChatRequest
	if !bindJSON(c, &req) {
		return
	}
	resp, err := h.chatService.Chat(c.Request.Context(), &req)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, resp)
}

// Providers 已配置的提供商和助手模式
func (h *ChatHandler) Providers(c *gin.Context) {
	response.Success(c, h.chatService.Providers())
}
