package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/veerhq/veer/internal/logger"
	"github.com/veerhq/veer/internal/response"
)

// RequestLoggerConfig 请求详情日志配置
type RequestLoggerConfig struct {
	Enabled         bool     // 是否启用
	SkipPaths       []string // 跳过记录的路径
	MaxBodySize     int      // 最大记录的请求体大小（字节）
	IncludeBody     bool     // 是否记录请求体
	IncludeResponse bool     // 是否记录响应体
}

// DefaultRequestLoggerConfig 默认配置，仅在debug级别下启用
func DefaultRequestLoggerConfig() *RequestLoggerConfig {
	return &RequestLoggerConfig{
		Enabled:         logger.GetLogger().IsLevelEnabled(logrus.DebugLevel),
		SkipPaths:       []string{"/health", "/favicon.ico"},
		MaxBodySize:     16 * 1024,
		IncludeBody:     true,
		IncludeResponse: false,
	}
}

// 敏感请求头，记录时打码
var sensitiveHeaders = map[string]bool{
	"Authorization":  true,
	AgentTokenHeader: true,
	"Cookie":         true,
}

// responseWriter 捕获响应体
type responseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *responseWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// RequestLogger 请求详情日志中间件，用于调试请求体和响应体
func RequestLogger(cfg *RequestLoggerConfig) gin.HandlerFunc {
	if cfg == nil {
		cfg = DefaultRequestLoggerConfig()
	}
	if !cfg.Enabled {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		for _, skip := range cfg.SkipPaths {
			if c.Request.URL.Path == skip {
				c.Next()
				return
			}
		}

		start := time.Now()
		var requestBody interface{}
		if cfg.IncludeBody {
			requestBody = readRequestBody(c, cfg.MaxBodySize)
		}

		var writer *responseWriter
		if cfg.IncludeResponse {
			writer = &responseWriter{ResponseWriter: c.Writer, body: &bytes.Buffer{}}
			c.Writer = writer
		}

		c.Next()

		fields := logrus.Fields{
			"type":        "request_log",
			"request_id":  c.GetString(response.RequestIDKey),
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"query":       c.Request.URL.RawQuery,
			"headers":     redactHeaders(c.Request.Header),
			"status_code": c.Writer.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
		}
		if requestBody != nil {
			fields["body"] = requestBody
		}
		if writer != nil && writer.body.Len() > 0 {
			fields["response_body"] = parseBody(writer.body.Bytes())
		}
		logger.WithFields(fields).Debug("[REQUEST_LOG]")
	}
}

// readRequestBody 读取请求体并回填，保证后续处理器可以再次读取
func readRequestBody(c *gin.Context, maxSize int) interface{} {
	if c.Request.Body == nil || c.Request.Body == http.NoBody {
		return nil
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return map[string]string{"error": "failed to read request body"}
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(body))

	if len(body) == 0 {
		return nil
	}
	if len(body) > maxSize {
		return string(body[:maxSize]) + "...(truncated)"
	}
	return parseBody(body)
}

func parseBody(body []byte) interface{} {
	var v interface{}
	if err := json.Unmarshal(body, &v); err == nil {
		return v
	}
	return string(body)
}

func redactHeaders(headers http.Header) map[string]string {
	out := make(map[string]string, len(headers))
	for key, values := range headers {
		if len(values) == 0 {
			continue
		}
		if sensitiveHeaders[http.CanonicalHeaderKey(key)] {
			out[key] = "***"
			continue
		}
		out[key] = strings.Join(values, ",")
	}
	return out
}
