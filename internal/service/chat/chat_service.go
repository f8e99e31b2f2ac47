// Package chat 实现对话代理：按优先级依次尝试已配置的LLM提供商
package chat

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/veerhq/veer/config"
	"github.com/veerhq/veer/internal/database"
	apperrors "github.com/veerhq/veer/internal/errors"
	"github.com/veerhq/veer/internal/logger"
	"github.com/veerhq/veer/internal/service/session"
	"github.com/veerhq/veer/internal/service/upstream"
)

// ChatService 对话服务接口
type ChatService interface {
	// Chat 发送对话，返回第一个成功的提供商的回复
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)
	// Providers 已配置的提供商（不含密钥）和可用模式
	Providers() *ProvidersInfo
}

// ChatRequest 对话请求
type ChatRequest struct {
	Messages  []Message `json:"messages" binding:"required,min=1,dive"`
	Mode      string    `json:"mode"`
	SessionID string    `json:"session_id"`
	Provider  string    `json:"provider"`
}

// ChatResponse 对话结果
type ChatResponse struct {
	Reply     string `json:"reply"`
	Provider  string `json:"provider"`
	Model     string `json:"model"`
	Mode      string `json:"mode"`
	SessionID string `json:"session_id,omitempty"`
}

// ProviderInfo 提供商信息
type ProviderInfo struct {
	Name       string `json:"name"`
	Kind       string `json:"kind"`
	Model      string `json:"model"`
	Priority   int    `json:"priority"`
	Configured bool   `json:"configured"`
}

// ProvidersInfo 提供商列表和模式列表
type ProvidersInfo struct {
	Providers   []ProviderInfo `json:"providers"`
	Modes       []Mode         `json:"modes"`
	DefaultMode string         `json:"default_mode"`
}

type chatService struct {
	cfg       config.ChatConfig
	providers []Provider // 仅包含配置了密钥的，按优先级升序
	sessions  session.SessionService
}

// NewChatService 创建对话服务
// sessions 为nil时不持久化消息
func NewChatService(cfg config.ChatConfig, sessions session.SessionService) ChatService {
	ordered := append([]config.ProviderConfig(nil), cfg.Providers...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Priority < ordered[j].Priority })

	var providers []Provider
	for _, pc := range ordered {
		if strings.TrimSpace(pc.APIKey) == "" {
			continue
		}
		p, err := NewProvider(pc, upstream.NewClient(pc.Name, cfg.Timeout, nil))
		if err != nil {
			logger.Warnf("跳过提供商 %s: %v", pc.Name, err)
			continue
		}
		providers = append(providers, p)
	}
	return newChatService(cfg, providers, sessions)
}

func newChatService(cfg config.ChatConfig, providers []Provider, sessions session.SessionService) *chatService {
	return &chatService{cfg: cfg, providers: providers, sessions: sessions}
}

func (s *chatService) Providers() *ProvidersInfo {
	configured := make(map[string]bool, len(s.providers))
	for _, p := range s.providers {
		configured[p.Name()] = true
	}
	info := &ProvidersInfo{
		Modes:       Modes(),
		DefaultMode: ResolveMode(s.cfg.DefaultMode, "").Name,
	}
	for _, pc := range s.cfg.Providers {
		info.Providers = append(info.Providers, ProviderInfo{
			Name:       pc.Name,
			Kind:       pc.Kind,
			Model:      pc.Model,
			Priority:   pc.Priority,
			Configured: configured[pc.Name],
		})
	}
	sort.SliceStable(info.Providers, func(i, j int) bool { return info.Providers[i].Priority < info.Providers[j].Priority })
	return info
}

// ordered 返回尝试顺序，指定的提供商排在最前
func (s *chatService) ordered(preferred string) []Provider {
	preferred = strings.ToLower(strings.TrimSpace(preferred))
	if preferred == "" {
		return s.providers
	}
	out := make([]Provider, 0, len(s.providers))
	for _, p := range s.providers {
		if strings.ToLower(p.Name()) == preferred {
			out = append(out, p)
		}
	}
	for _, p := range s.providers {
		if strings.ToLower(p.Name()) != preferred {
			out = append(out, p)
		}
	}
	return out
}

// cleanMessages 去掉空消息，并要求最后一条为用户消息
func cleanMessages(in []Message) ([]Message, error) {
	out := make([]Message, 0, len(in))
	for _, m := range in {
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		if m.Role != database.RoleUser && m.Role != database.RoleAssistant {
			return nil, apperrors.Newf(apperrors.ErrInvalidParams, "unsupported role %q", m.Role)
		}
		out = append(out, m)
	}
	if len(out) == 0 || out[len(out)-1].Role != database.RoleUser {
		return nil, apperrors.Newf(apperrors.ErrInvalidParams, "the last message must be a non-empty user message")
	}
	return out, nil
}

func (s *chatService) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	messages, err := cleanMessages(req.Messages)
	if err != nil {
		return nil, err
	}
	if len(s.providers) == 0 {
		return nil, apperrors.Newf(apperrors.ErrNoProvider, "no chat provider has an API key configured")
	}

	persist := req.SessionID != "" && s.sessions != nil
	if persist {
		if _, err := s.sessions.GetSession(req.SessionID); err != nil {
			return nil, err
		}
	}

	mode := ResolveMode(req.Mode, s.cfg.DefaultMode)
	completion := &Completion{
		System:      mode.Prompt,
		Messages:    messages,
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
	}

	if s.cfg.TotalTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.TotalTimeout)
		defer cancel()
	}

	var failures []string
	for _, p := range s.ordered(req.Provider) {
		reply, err := p.Complete(ctx, completion)
		if err != nil {
			logger.Warnf("提供商 %s 调用失败，尝试下一个: %v", p.Name(), err)
			failures = append(failures, fmt.Sprintf("%s: %v", p.Name(), err))
			if ctx.Err() != nil {
				break
			}
			continue
		}

		resp := &ChatResponse{Reply: reply, Provider: p.Name(), Model: p.Model(), Mode: mode.Name}
		if persist {
			s.persist(req.SessionID, messages[len(messages)-1], resp)
			resp.SessionID = req.SessionID
		}
		return resp, nil
	}

	return nil, apperrors.Newf(apperrors.ErrUpstreamFailed, "all providers failed: %s", strings.Join(failures, "; "))
}

// persist 保存最后一条用户消息和回复，失败只记录日志
func (s *chatService) persist(sessionID string, last Message, resp *ChatResponse) {
	if _, err := s.sessions.AppendMessage(sessionID, &session.AppendMessageRequest{
		Role:    database.RoleUser,
		Content: last.Content,
	}); err != nil {
		logger.Errorf("保存用户消息失败 (session=%s): %v", sessionID, err)
		return
	}
	if _, err := s.sessions.AppendMessage(sessionID, &session.AppendMessageRequest{
		Role:     database.RoleAssistant,
		Content:  resp.Reply,
		Provider: resp.Provider,
		Model:    resp.Model,
	}); err != nil {
		logger.Errorf("保存回复失败 (session=%s): %v", sessionID, err)
	}
}
