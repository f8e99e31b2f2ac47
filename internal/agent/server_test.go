package agent

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/veerhq/veer/internal/middleware"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func setupServer(t *testing.T, runner *fakeRunner, token string) http.Handler {
	t.Helper()
	gin.SetMode(gin.TestMode)
	a := newTestAgent(PlatformLinux, runner)
	return NewRouter(NewHandler(a), middleware.NewTokenGuard(token), nil)
}

func do(t *testing.T, h http.Handler, method, path, body string, headers map[string]string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w, env
}

func TestTokenGuard(t *testing.T) {
	h := setupServer(t, newFakeRunner(), "s3cret")

	w, _ := do(t, h, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, env := do(t, h, http.MethodGet, "/history", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, 1002, env.Code)

	w, _ = do(t, h, http.MethodGet, "/history", "", map[string]string{"X-Agent-Token": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = do(t, h, http.MethodGet, "/history", "", map[string]string{"X-Agent-Token": "s3cret"})
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = do(t, h, http.MethodGet, "/history", "", map[string]string{"Authorization": "Bearer s3cret"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestWriteRequiresJSON(t *testing.T) {
	runner := newFakeRunner().on("systemctl poweroff", "")
	gin.SetMode(gin.TestMode)
	h := NewRouter(NewHandler(newTestAgent(PlatformLinux, runner)), middleware.NewTokenGuard(""), []string{"*"})

	for _, ct := range []string{"text/plain", "application/x-www-form-urlencoded", "multipart/form-data; boundary=x", ""} {
		req := httptest.NewRequest(http.MethodPost, "/action", strings.NewReader(`{"action":"shutdown"}`))
		if ct != "" {
			req.Header.Set("Content-Type", ct)
		}
		req.Header.Set("Origin", "https://evil.example")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnsupportedMediaType, w.Code, ct)
		assert.Contains(t, w.Body.String(), `"code":1006`)
	}
	assert.Empty(t, runner.calls)

	w, _ := do(t, h, http.MethodPost, "/action", `{"action":"shutdown"}`, map[string]string{"Content-Type": "application/json; charset=utf-8"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"systemctl poweroff"}, runner.calls)
}

func TestNoTokenConfigured(t *testing.T) {
	h := setupServer(t, newFakeRunner(), "")
	w, _ := do(t, h, http.MethodGet, "/history", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestActionEndpoint(t *testing.T) {
	runner := newFakeRunner().on("loginctl lock-session", "")
	h := setupServer(t, runner, "")

	w, env := do(t, h, http.MethodPost, "/action", `{"action":"lock"}`, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var result ActionResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.True(t, result.Success)
	assert.Equal(t, "loginctl lock-session", result.Command)

	w, env = do(t, h, http.MethodPost, "/action", `{"action":"hibernate-forever"}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 3000, env.Code)

	w, _ = do(t, h, http.MethodPost, "/action", `{}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLaunchEndpoint(t *testing.T) {
	runner := newFakeRunner()
	h := setupServer(t, runner, "")

	w, _ := do(t, h, http.MethodPost, "/launch", `{"app":"terminal"}`, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"x-terminal-emulator"}, runner.started)

	w, env := do(t, h, http.MethodPost, "/launch", `{"app":"nonexistent"}`, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, 3002, env.Code)
}

func TestProcessesEndpoint(t *testing.T) {
	runner := newFakeRunner().on("ps -eo pid=,comm=,%cpu=,%mem=", psOutput)
	h := setupServer(t, runner, "")

	w, env := do(t, h, http.MethodGet, "/processes?sort=mem&limit=1", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var procs []Process
	require.NoError(t, json.Unmarshal(env.Data, &procs))
	require.Len(t, procs, 1)
	assert.Equal(t, "firefox", procs[0].Name)

	w, _ = do(t, h, http.MethodGet, "/processes?limit=abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestKillProcessEndpoint(t *testing.T) {
	runner := newFakeRunner().fail("pkill -x ghost", "", assert.AnError)
	h := setupServer(t, runner, "")

	w, _ := do(t, h, http.MethodPost, "/kill-process", `{"pid":1}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env := do(t, h, http.MethodPost, "/kill-process", `{"name":"ghost"}`, nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, 3003, env.Code)
}

func TestGPUAndTemperatureUnavailable(t *testing.T) {
	h := setupServer(t, newFakeRunner(), "")

	w, env := do(t, h, http.MethodGet, "/gpu-info", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var gpu GPUInfo
	require.NoError(t, json.Unmarshal(env.Data, &gpu))
	assert.False(t, gpu.Available)

	w, env = do(t, h, http.MethodGet, "/temperature", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var temp Temperature
	require.NoError(t, json.Unmarshal(env.Data, &temp))
	assert.False(t, temp.Available)
}

func TestHealthEndpoint(t *testing.T) {
	h := setupServer(t, newFakeRunner(), "token")
	w, env := do(t, h, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var health Health
	require.NoError(t, json.Unmarshal(env.Data, &health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, PlatformLinux, health.Platform)
}
