package chat

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/veerhq/veer/config"
	"github.com/veerhq/veer/internal/service/upstream"
)

// 上游接口类型
const (
	KindOpenAI = "openai"
	KindGemini = "gemini"
)

// Message 对话消息
type Message struct {
	Role    string `json:"role" binding:"required,oneof=user assistant"`
	Content string `json:"content"`
}

// Completion 一次补全请求
type Completion struct {
	System      string
	Messages    []Message
	MaxTokens   int
	Temperature float64
}

// Provider 上游LLM
type Provider interface {
	Name() string
	Model() string
	Complete(ctx context.Context, req *Completion) (string, error)
}

// NewProvider 根据配置创建提供商
func NewProvider(cfg config.ProviderConfig, client *upstream.Client) (Provider, error) {
	base := strings.TrimRight(cfg.BaseURL, "/")
	switch cfg.Kind {
	case KindOpenAI, "":
		return &openAIProvider{cfg: cfg, base: base, client: client}, nil
	case KindGemini:
		return &geminiProvider{cfg: cfg, base: base, client: client}, nil
	}
	return nil, fmt.Errorf("unsupported provider kind %q", cfg.Kind)
}

// openAIProvider OpenAI兼容的 /chat/completions 接口（OpenAI、Groq、OpenRouter、Together）
type openAIProvider struct {
	cfg    config.ProviderConfig
	base   string
	client *upstream.Client
}

func (p *openAIProvider) Name() string  { return p.cfg.Name }
func (p *openAIProvider) Model() string { return p.cfg.Model }

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Temperature float64         `json:"temperature"`
}

type openAIResponse struct {
	Choices []struct {
		Message openAIMessage `json:"message"`
	} `json:"choices"`
}

func (p *openAIProvider) Complete(ctx context.Context, req *Completion) (string, error) {
	body := openAIRequest{
		Model:       p.cfg.Model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		Messages:    make([]openAIMessage, 0, len(req.Messages)+1),
	}
	if req.System != "" {
		body.Messages = append(body.Messages, openAIMessage{Role: "system", Content: req.System})
	}
	for _, m := range req.Messages {
		body.Messages = append(body.Messages, openAIMessage{Role: m.Role, Content: m.Content})
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+p.cfg.APIKey)

	var resp openAIResponse
	if err := p.client.PostJSON(ctx, p.base+"/chat/completions", header, body, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("%s returned an empty reply", p.cfg.Name)
	}
	return resp.Choices[0].Message.Content, nil
}

// geminiProvider Google Gemini generateContent 接口
type geminiProvider struct {
	cfg    config.ProviderConfig
	base   string
	client *upstream.Client
}

func (p *geminiProvider) Name() string  { return p.cfg.Name }
func (p *geminiProvider) Model() string { return p.cfg.Model }

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent  `json:"systemInstruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
	GenerationConfig  struct {
		Temperature     float64 `json:"temperature"`
		MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
	} `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

func (p *geminiProvider) Complete(ctx context.Context, req *Completion) (string, error) {
	var body geminiRequest
	if req.System != "" {
		body.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: req.System}}}
	}
	for _, m := range req.Messages {
		role := "user"
		if m.Role == "assistant" {
			role = "model"
		}
		body.Contents = append(body.Contents, geminiContent{Role: role, Parts: []geminiPart{{Text: m.Content}}})
	}
	body.GenerationConfig.Temperature = req.Temperature
	body.GenerationConfig.MaxOutputTokens = req.MaxTokens

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", p.base, url.PathEscape(p.cfg.Model))
	header := http.Header{}
	header.Set("x-goog-api-key", p.cfg.APIKey)

	var resp geminiResponse
	if err := p.client.PostJSON(ctx, endpoint, header, body, &resp); err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%s returned no candidates", p.cfg.Name)
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", fmt.Errorf("%s returned an empty reply", p.cfg.Name)
	}
	return sb.String(), nil
}
