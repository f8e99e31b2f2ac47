// Package upstream 封装对第三方HTTP接口的JSON调用
// 只做一次请求，不重试
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/veerhq/veer/internal/logger"
)

// 响应体读取上限
const maxBodySize = 4 << 20

// StatusError 上游返回非2xx
type StatusError struct {
	Service    string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s returned %d: %s", e.Service, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s returned %d", e.Service, e.StatusCode)
}

// ErrorExtractor 从错误响应体中提取可读消息
type ErrorExtractor func(body []byte) string

// Client 上游调用客户端
type Client struct {
	service string
	http    *http.Client
	extract ErrorExtractor
}

// NewClient 创建客户端
// 参数:
//   - service: 服务名，用于日志和错误信息
//   - timeout: 单次请求超时，0 表示30秒
//   - extract: 错误消息提取函数，可为nil
func NewClient(service string, timeout time.Duration, extract ErrorExtractor) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if extract == nil {
		extract = CommonErrorMessage
	}
	return &Client{
		service: service,
		http:    &http.Client{Timeout: timeout},
		extract: extract,
	}
}

// GetJSON 发送GET请求并解析JSON响应
func (c *Client) GetJSON(ctx context.Context, rawURL string, header http.Header, out interface{}) error {
	return c.do(ctx, http.MethodGet, rawURL, header, nil, out)
}

// PostJSON 发送JSON请求体并解析JSON响应
func (c *Client) PostJSON(ctx context.Context, rawURL string, header http.Header, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", c.service, err)
	}
	return c.do(ctx, http.MethodPost, rawURL, header, payload, out)
}

func (c *Client) do(ctx context.Context, method, rawURL string, header http.Header, payload []byte, out interface{}) error {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return fmt.Errorf("build %s request: %w", c.service, redactError(err))
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", c.service, redactError(err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("read %s response: %w", c.service, err)
	}
	logger.Debugf("上游请求 %s %s %s -> %d (%s)", c.service, method, redactURL(rawURL), resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Service: c.service, StatusCode: resp.StatusCode, Message: c.extract(body)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s response: %w", c.service, err)
	}
	return nil
}

// CommonErrorMessage 兼容 {"error":{"message":..}}、{"error":".."} 和 {"message":..} 三种格式
func CommonErrorMessage(body []byte) string {
	var payload struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if len(payload.Error) > 0 {
			var nested struct {
				Message string `json:"message"`
			}
			if json.Unmarshal(payload.Error, &nested) == nil && nested.Message != "" {
				return nested.Message
			}
			var flat string
			if json.Unmarshal(payload.Error, &flat) == nil && flat != "" {
				return flat
			}
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	text := strings.TrimSpace(string(body))
	if len(text) > 200 {
		text = text[:200]
	}
	return text
}

// redactError 传输错误里带有完整URL，去掉其中的查询参数
func redactError(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		ue.URL = redactURL(ue.URL)
	}
	return err
}

// redactURL 去掉查询参数，避免密钥进入日志
func redactURL(u string) string {
	if i := strings.IndexByte(u, '?'); i >= 0 {
		return u[:i]
	}
	return u
}
