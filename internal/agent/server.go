package agent

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/veerhq/veer/config"
	"github.com/veerhq/veer/internal/logger"
	"github.com/veerhq/veer/internal/middleware"
	"github.com/veerhq/veer/internal/response"
	"github.com/veerhq/veer/internal/scheduler"
)

// ActionRequest 电源操作与媒体控制请求
type ActionRequest struct {
	Action string `json:"action" binding:"required"`
}

// LaunchRequest 启动应用请求
type LaunchRequest struct {
	App string `json:"app" binding:"required"`
}

// Handler 系统代理HTTP处理器
type Handler struct {
	agent *Agent
}

// NewHandler 创建处理器
func NewHandler(agent *Agent) *Handler {
	return &Handler{agent: agent}
}

// NewRouter 创建代理路由，除 /health 外都要经过令牌校验，写请求只接受JSON
func NewRouter(h *Handler, guard *middleware.TokenGuard, origins []string) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestID())
	engine.Use(middleware.AccessLog("agent"))
	engine.Use(middleware.CORS(origins))
	engine.Use(guard.Handler("/health"))
	engine.Use(middleware.RequireJSON())

	engine.GET("/health", h.Health)
	engine.POST("/action", h.Action)
	engine.POST("/launch", h.Launch)
	engine.GET("/apps", h.Apps)
	engine.POST("/media", h.Media)
	engine.GET("/system-info", h.SystemInfo)
	engine.GET("/processes", h.Processes)
	engine.GET("/gpu-info", h.GPUInfo)
	engine.GET("/temperature", h.Temperature)
	engine.POST("/kill-process", h.KillProcess)
	engine.GET("/history", h.History)
	return engine
}

// Action 执行电源操作
func (h *Handler) Action(c *gin.Context) {
	var req ActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	result, err := h.agent.RunAction(c.Request.Context(), req.Action)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, result)
}

// Launch 启动应用
func (h *Handler) Launch(c *gin.Context) {
	var req LaunchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	result, err := h.agent.Launch(req.App)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, result)
}

// Apps 可启动的应用列表
func (h *Handler) Apps(c *gin.Context) {
	response.Success(c, gin.H{"platform": h.agent.Platform(), "apps": h.agent.Apps()})
}

// Media 媒体控制
func (h *Handler) Media(c *gin.Context) {
	var req ActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	result, err := h.agent.Media(c.Request.Context(), req.Action)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, result)
}

func (h *Handler) SystemInfo(c *gin.Context) {
	info, err := h.agent.SystemInfo(c.Request.Context())
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, info)
}

// Processes 进程列表
func (h *Handler) Processes(c *gin.Context) {
	var q ProcessQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	procs, err := h.agent.Processes(c.Request.Context(), q)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, procs)
}

func (h *Handler) GPUInfo(c *gin.Context) {
	response.Success(c, h.agent.GPU(c.Request.Context()))
}

func (h *Handler) Temperature(c *gin.Context) {
	response.Success(c, h.agent.Temperature(c.Request.Context()))
}

// KillProcess 结束进程
func (h *Handler) KillProcess(c *gin.Context) {
	var req KillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	result, err := h.agent.Kill(c.Request.Context(), &req)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, result)
}

func (h *Handler) History(c *gin.Context) {
	response.Success(c, h.agent.History())
}

// Health 健康检查，不需要令牌
func (h *Handler) Health(c *gin.Context) {
	response.Success(c, h.agent.Health())
}

// Run 启动系统代理，直到 ctx 取消
// 启动后立即采样一次，之后按 sample_interval 周期采样
func Run(ctx context.Context, cfg *config.Config, version string) error {
	a := New(cfg.Agent, Options{Version: version})
	guard := middleware.NewTokenGuard(cfg.Agent.Token)

	config.Watch(func(next *config.Config) {
		guard.SetToken(next.Agent.Token)
		a.Reload(next.Agent)
	})

	sched := scheduler.New(nil)
	if _, err := sched.Every(cfg.Agent.SampleInterval, func() {
		sampleCtx, cancel := context.WithTimeout(context.Background(), cfg.Agent.SampleInterval)
		defer cancel()
		a.Sample(sampleCtx)
	}); err != nil {
		return err
	}
	go a.Sample(ctx)
	sched.Start()
	defer sched.Stop()

	if guard.Token() == "" {
		logger.Warnf("[代理] 未配置令牌，任何本地程序都可以调用代理接口")
	}

	srv := &http.Server{
		Addr:              cfg.Agent.Addr(),
		Handler:           NewRouter(NewHandler(a), guard, cfg.Agent.AllowOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("[代理] 系统代理启动在 %s (平台: %s)", srv.Addr, a.Platform())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("[代理] 正在关闭系统代理...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
