package middleware

import (
	"crypto/subtle"
	"strings"
	"sync/atomic"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	apperrors "github.com/veerhq/veer/internal/errors"
	"github.com/veerhq/veer/internal/response"
)

// AgentTokenHeader 系统代理的令牌请求头
const AgentTokenHeader = "X-Agent-Token"

// TokenGuard 静态令牌校验
// 令牌可在运行时替换（配置热加载），为空时不校验
type TokenGuard struct {
	token atomic.Value // string
}

// NewTokenGuard 创建令牌校验器
func NewTokenGuard(token string) *TokenGuard {
	g := &TokenGuard{}
	g.SetToken(token)
	return g
}

// SetToken 替换令牌
func (g *TokenGuard) SetToken(token string) {
	g.token.Store(strings.TrimSpace(token))
}

// Token 当前令牌
func (g *TokenGuard) Token() string {
	return g.token.Load().(string)
}

// Handler 返回gin中间件，exempt中的路径不做校验
func (g *TokenGuard) Handler(exempt ...string) gin.HandlerFunc {
	skip := make(map[string]bool, len(exempt))
	for _, p := range exempt {
		skip[p] = true
	}

	return func(c *gin.Context) {
		expected := g.Token()
		if expected == "" || skip[c.Request.URL.Path] || c.Request.Method == "OPTIONS" {
			c.Next()
			return
		}

		if !tokenMatches(presentedToken(c), expected) {
			response.Unauthorized(c, "missing or invalid access token")
			return
		}
		c.Next()
	}
}

// presentedToken 读取 X-Agent-Token 或 Authorization: Bearer
func presentedToken(c *gin.Context) string {
	if t := c.GetHeader(AgentTokenHeader); t != "" {
		return strings.TrimSpace(t)
	}
	auth := c.GetHeader("Authorization")
	if len(auth) > 7 && strings.EqualFold(auth[:7], "Bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

func tokenMatches(got, want string) bool {
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

// CORS 跨域配置
func CORS(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Accept-Language", "Authorization", AgentTokenHeader, RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", RequestIDHeader},
		MaxAge:        86400,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cors.New(cfg)
}

// RequireJSON 带请求体的写请求必须是 application/json
// 浏览器跨域发送 JSON 时会先预检，由 CORS 白名单决定是否放行
func RequireJSON() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case "POST", "PUT", "PATCH":
			if c.ContentType() != "application/json" {
				response.Fail(c, apperrors.Newf(apperrors.ErrUnsupportedMedia, "content type must be application/json"))
				return
			}
		}
		c.Next()
	}
}
