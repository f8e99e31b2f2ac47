// Package agent 实现本地系统代理：电源操作、应用启动、媒体控制、系统信息查询和进程管理
// 所有系统命令通过 Runner 执行，参数不经过shell
package agent

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/veerhq/veer/config"
	apperrors "github.com/veerhq/veer/internal/errors"
	"github.com/veerhq/veer/internal/logger"
)

// 进程列表数量限制
const (
	defaultProcessLimit = 20
	maxProcessLimit     = 200
)

// 命令输出写入响应时的最大长度
const maxOutputLen = 4096

// 进程名只允许常见字符，且不能以 - 开头（避免被当作命令选项）
var processNamePattern = regexp.MustCompile(`^[A-Za-z0-9_.][A-Za-z0-9_. +()-]{0,127}$`)

// Options 可替换的依赖，测试时注入
type Options struct {
	Platform string                               // 默认 runtime.GOOS
	Runner   Runner                               // 默认 ExecRunner
	Version  string                               // 健康检查中返回的版本号
	Glob     func(pattern string) ([]string, error) // 默认 filepath.Glob
	SelfPID  int                                  // 默认 os.Getpid()
	Now      func() time.Time
}

// ActionResult 操作结果
type ActionResult struct {
	Success bool   `json:"success"`
	Action  string `json:"action"`
	Command string `json:"command"`
	Output  string `json:"output,omitempty"`
}

// ProcessQuery 进程列表参数
type ProcessQuery struct {
	Sort    string `form:"sort"`
	Limit   int    `form:"limit"`
	Pattern string `form:"pattern"`
}

// KillRequest 结束进程请求，pid 和 name 二选一
type KillRequest struct {
	PID  int    `json:"pid"`
	Name string `json:"name"`
}

// Health 健康检查
type Health struct {
	Status        string `json:"status"`
	Platform      string `json:"platform"`
	Version       string `json:"version"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

// Agent 系统代理
type Agent struct {
	mu       sync.RWMutex
	apps     map[string]map[string]string
	platform string
	runner   Runner
	version  string
	glob     func(string) ([]string, error)
	selfPID  int
	now      func() time.Time
	started  time.Time
	cpu      cpuTracker
	history  *History
}

// New 创建系统代理
func New(cfg config.AgentConfig, opts Options) *Agent {
	if opts.Platform == "" {
		opts.Platform = runtime.GOOS
	}
	if opts.Runner == nil {
		opts.Runner = NewExecRunner(cfg.CommandTimeout)
	}
	if opts.Glob == nil {
		opts.Glob = filepath.Glob
	}
	if opts.SelfPID == 0 {
		opts.SelfPID = os.Getpid()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Agent{
		apps:     cfg.Apps,
		platform: opts.Platform,
		runner:   opts.Runner,
		version:  opts.Version,
		glob:     opts.Glob,
		selfPID:  opts.SelfPID,
		now:      opts.Now,
		started:  opts.Now(),
		history:  NewHistory(cfg.HistorySize),
	}
}

// Platform 当前平台
func (a *Agent) Platform() string {
	return a.platform
}

// Reload 应用新的配置（应用表、命令超时、历史容量）
func (a *Agent) Reload(cfg config.AgentConfig) {
	a.mu.Lock()
	a.apps = cfg.Apps
	a.mu.Unlock()

	if r, ok := a.runner.(interface{ SetTimeout(time.Duration) }); ok && cfg.CommandTimeout > 0 {
		r.SetTimeout(cfg.CommandTimeout)
	}
	a.history.Resize(cfg.HistorySize)
	logger.Infof("[代理] 配置已重新加载, 自定义应用平台数: %d, 历史容量: %d", len(cfg.Apps), cfg.HistorySize)
}

func (a *Agent) run(ctx context.Context, action string, c Command) (*ActionResult, error) {
	out, err := a.runner.Run(ctx, c.Name, c.Args...)
	result := &ActionResult{Action: action, Command: c.String(), Output: truncate(string(out))}
	if err != nil {
		logger.Warnf("[代理] %s 执行失败: %s: %v", action, c, err)
		details := err.Error()
		if result.Output != "" {
			details += ": " + result.Output
		}
		return result, apperrors.Wrap(apperrors.ErrCommandFailed, "", err).WithDetails(details)
	}
	result.Success = true
	logger.Infof("[代理] %s 执行成功: %s", action, c)
	return result, nil
}

// RunAction 执行电源与会话操作
func (a *Agent) RunAction(ctx context.Context, action string) (*ActionResult, error) {
	action = strings.ToLower(strings.TrimSpace(action))
	c, known, supported := lookup(actionTable, a.platform, action)
	if !known {
		return nil, apperrors.Newf(apperrors.ErrUnknownAction, "unknown action %q, expected one of %s", action, strings.Join(allActions, ", "))
	}
	if !supported {
		return nil, apperrors.Newf(apperrors.ErrUnsupportedPlatform, "action %q is not supported on %s", action, a.platform)
	}
	return a.run(ctx, action, c)
}

// Media 执行媒体控制
func (a *Agent) Media(ctx context.Context, action string) (*ActionResult, error) {
	action = strings.ToLower(strings.TrimSpace(action))
	c, known, supported := lookup(mediaTable, a.platform, action)
	if !known {
		return nil, apperrors.Newf(apperrors.ErrUnknownAction, "unknown media action %q, expected one of %s", action, strings.Join(allMedia, ", "))
	}
	if !supported {
		return nil, apperrors.Newf(apperrors.ErrUnsupportedPlatform, "media action %q is not supported on %s", action, a.platform)
	}
	return a.run(ctx, action, c)
}

// Apps 当前平台可启动的应用
func (a *Agent) Apps() []string {
	merged := map[string]Command{}
	for name, c := range builtinApps[a.platform] {
		merged[name] = c
	}
	a.mu.RLock()
	for name, line := range a.apps[a.platform] {
		merged[strings.ToLower(name)] = parseCommandLine(line)
	}
	a.mu.RUnlock()
	return sortedKeys(merged)
}

func (a *Agent) resolveApp(app string) (Command, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	for name, line := range a.apps[a.platform] {
		if strings.EqualFold(name, app) {
			c := parseCommandLine(line)
			return c, c.Name != ""
		}
	}
	c, ok := builtinApps[a.platform][app]
	return c, ok
}

// Launch 启动应用，不等待退出
func (a *Agent) Launch(app string) (*ActionResult, error) {
	app = strings.ToLower(strings.TrimSpace(app))
	if app == "" {
		return nil, apperrors.Newf(apperrors.ErrInvalidParams, "app is required")
	}
	c, ok := a.resolveApp(app)
	if !ok {
		return nil, apperrors.Newf(apperrors.ErrUnknownApp, "unknown app %q on %s", app, a.platform)
	}
	if err := a.runner.Start(c.Name, c.Args...); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCommandFailed, "", err)
	}
	return &ActionResult{Success: true, Action: "launch:" + app, Command: c.String()}, nil
}

// SystemInfo 系统概况
func (a *Agent) SystemInfo(ctx context.Context) (*SystemInfo, error) {
	info := &SystemInfo{Platform: a.platform, Arch: runtime.GOARCH, CPUCount: runtime.NumCPU()}
	info.Hostname, _ = os.Hostname()

	var err error
	switch a.platform {
	case PlatformLinux:
		err = a.linuxInfo(ctx, info)
	case PlatformDarwin:
		err = a.darwinInfo(ctx, info)
	case PlatformWindows:
		err = a.windowsInfo(ctx, info)
	default:
		return nil, apperrors.Newf(apperrors.ErrUnsupportedPlatform, "system info is not supported on %s", a.platform)
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCommandFailed, "", err)
	}
	info.MemoryPercent = percent(info.MemoryUsed, info.MemoryTotal)
	return info, nil
}

func (a *Agent) linuxInfo(ctx context.Context, info *SystemInfo) error {
	out, err := a.runner.Run(ctx, "cat", "/proc/stat", "/proc/meminfo", "/proc/uptime")
	if err != nil {
		return err
	}
	st, err := parseLinuxStat(out)
	if err != nil {
		return err
	}
	info.CPUUsage = a.cpu.usage(st.cpu)
	info.MemoryTotal = st.memTotal
	if st.memAvailable <= st.memTotal {
		info.MemoryUsed = st.memTotal - st.memAvailable
	}
	info.UptimeSeconds = uint64(st.uptime)
	return nil
}

func (a *Agent) darwinInfo(ctx context.Context, info *SystemInfo) error {
	out, err := a.runner.Run(ctx, "top", "-l", "1", "-n", "0")
	if err != nil {
		return err
	}
	if info.CPUUsage, err = parseDarwinCPU(out); err != nil {
		return err
	}

	if out, err = a.runner.Run(ctx, "sysctl", "-n", "hw.memsize", "kern.boottime"); err != nil {
		return err
	}
	total, boot, err := parseDarwinSysctl(out)
	if err != nil {
		return err
	}
	info.MemoryTotal = total
	if up := a.now().Unix() - boot; up > 0 {
		info.UptimeSeconds = uint64(up)
	}

	if out, err = a.runner.Run(ctx, "vm_stat"); err != nil {
		return err
	}
	used, err := parseDarwinVMStat(out)
	if err != nil {
		return err
	}
	if used > total {
		used = total
	}
	info.MemoryUsed = used
	return nil
}

const windowsSystemScript = `$os = Get-CimInstance Win32_OperatingSystem; ` +
	`$cpu = (Get-CimInstance Win32_Processor | Measure-Object -Property LoadPercentage -Average).Average; ` +
	`[pscustomobject]@{cpu=[double]$cpu; total=[uint64]$os.TotalVisibleMemorySize*1024; free=[uint64]$os.FreePhysicalMemory*1024; ` +
	`uptime=[uint64]((Get-Date)-$os.LastBootUpTime).TotalSeconds} | ConvertTo-Json -Compress`

const windowsProcessScript = `$t = (Get-CimInstance Win32_OperatingSystem).TotalVisibleMemorySize*1024; ` +
	`$n = [Environment]::ProcessorCount; ` +
	`Get-CimInstance Win32_PerfFormattedData_PerfProc_Process | Where-Object { $_.IDProcess -ne 0 } | ` +
	`ForEach-Object { [pscustomobject]@{pid=[int]$_.IDProcess; name=$_.Name; cpu=[double]$_.PercentProcessorTime/$n; mem=[double]$_.WorkingSetPrivate*100/$t} } | ` +
	`ConvertTo-Json -Compress`

const windowsTempScript = `Get-CimInstance -Namespace root/wmi -ClassName MSAcpi_ThermalZoneTemperature | ` +
	`Select-Object -ExpandProperty CurrentTemperature`

func powershell(script string) Command {
	return cmd("powershell", "-NoProfile", "-NonInteractive", "-Command", script)
}

func (a *Agent) windowsInfo(ctx context.Context, info *SystemInfo) error {
	c := powershell(windowsSystemScript)
	out, err := a.runner.Run(ctx, c.Name, c.Args...)
	if err != nil {
		return err
	}
	ws, err := parseWindowsSystem(out)
	if err != nil {
		return err
	}
	info.CPUUsage = round2(ws.CPU)
	info.MemoryTotal = ws.Total
	if ws.Free <= ws.Total {
		info.MemoryUsed = ws.Total - ws.Free
	}
	info.UptimeSeconds = ws.Uptime
	return nil
}

// Processes 进程列表
func (a *Agent) Processes(ctx context.Context, q ProcessQuery) ([]Process, error) {
	sortBy := strings.ToLower(strings.TrimSpace(q.Sort))
	if sortBy == "" {
		sortBy = "cpu"
	}
	if sortBy != "cpu" && sortBy != "mem" {
		return nil, apperrors.Newf(apperrors.ErrInvalidParams, "sort must be cpu or mem")
	}
	limit := q.Limit
	if limit <= 0 {
		limit = defaultProcessLimit
	}
	if limit > maxProcessLimit {
		limit = maxProcessLimit
	}
	pattern := strings.ToLower(strings.TrimSpace(q.Pattern))
	if pattern != "" && !doublestar.ValidatePattern(pattern) {
		return nil, apperrors.Newf(apperrors.ErrInvalidParams, "invalid pattern %q", q.Pattern)
	}

	var procs []Process
	switch a.platform {
	case PlatformLinux, PlatformDarwin:
		args := []string{"-eo", "pid=,comm=,%cpu=,%mem="}
		if a.platform == PlatformDarwin {
			args = []string{"-axco", "pid=,comm=,%cpu=,%mem="}
		}
		out, err := a.runner.Run(ctx, "ps", args...)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrCommandFailed, "", err)
		}
		procs = parsePS(out)
	case PlatformWindows:
		c := powershell(windowsProcessScript)
		out, err := a.runner.Run(ctx, c.Name, c.Args...)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrCommandFailed, "", err)
		}
		if procs, err = parseWindowsProcesses(out); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrCommandFailed, "", err)
		}
	default:
		return nil, apperrors.Newf(apperrors.ErrUnsupportedPlatform, "process listing is not supported on %s", a.platform)
	}

	if pattern != "" {
		filtered := procs[:0]
		for _, p := range procs {
			if ok, _ := doublestar.Match(pattern, strings.ToLower(p.Name)); ok {
				filtered = append(filtered, p)
			}
		}
		procs = filtered
	}

	sort.SliceStable(procs, func(i, j int) bool {
		if sortBy == "mem" {
			return procs[i].Memory > procs[j].Memory
		}
		return procs[i].CPU > procs[j].CPU
	})
	if len(procs) > limit {
		procs = procs[:limit]
	}
	return procs, nil
}

// GPU 显卡信息，没有 nvidia-smi 或查询失败时 Available 为 false
func (a *Agent) GPU(ctx context.Context) *GPUInfo {
	out, err := a.runner.Run(ctx, "nvidia-smi",
		"--query-gpu=name,utilization.gpu,memory.used,memory.total,temperature.gpu",
		"--format=csv,noheader,nounits")
	if err != nil {
		if errors.Is(err, ErrCommandNotFound) {
			return &GPUInfo{Available: false, Reason: "nvidia-smi not found"}
		}
		return &GPUInfo{Available: false, Reason: err.Error()}
	}
	gpus, err := parseNvidiaSMI(out)
	if err != nil || len(gpus) == 0 {
		return &GPUInfo{Available: false, Reason: "no gpu reported"}
	}
	return &GPUInfo{Available: true, GPUs: gpus}
}

// Temperature CPU温度，没有可用传感器时 Available 为 false
func (a *Agent) Temperature(ctx context.Context) *Temperature {
	switch a.platform {
	case PlatformLinux:
		dirs, _ := a.glob("/sys/class/thermal/thermal_zone*")
		var zones []thermalZone
		for _, dir := range dirs {
			out, err := a.runner.Run(ctx, "cat", filepath.Join(dir, "type"), filepath.Join(dir, "temp"))
			if err != nil {
				continue
			}
			if z, err := parseThermalZone(out); err == nil {
				zones = append(zones, z)
			}
		}
		if z, ok := pickZone(zones); ok {
			return &Temperature{Available: true, Celsius: z.celsius, Source: z.kind}
		}
		return &Temperature{Available: false, Reason: "no thermal zone found"}
	case PlatformDarwin:
		out, err := a.runner.Run(ctx, "osx-cpu-temp")
		if err != nil {
			return &Temperature{Available: false, Reason: "osx-cpu-temp not available"}
		}
		c, err := parseDarwinTemp(out)
		if err != nil {
			return &Temperature{Available: false, Reason: err.Error()}
		}
		return &Temperature{Available: true, Celsius: c, Source: "osx-cpu-temp"}
	case PlatformWindows:
		c := powershell(windowsTempScript)
		out, err := a.runner.Run(ctx, c.Name, c.Args...)
		if err != nil {
			return &Temperature{Available: false, Reason: "thermal zone query failed"}
		}
		v, err := parseWindowsTemp(out)
		if err != nil {
			return &Temperature{Available: false, Reason: err.Error()}
		}
		return &Temperature{Available: true, Celsius: v, Source: "MSAcpi_ThermalZoneTemperature"}
	}
	return &Temperature{Available: false, Reason: "unsupported platform"}
}

// Kill 结束进程
func (a *Agent) Kill(ctx context.Context, req *KillRequest) (*ActionResult, error) {
	name := strings.TrimSpace(req.Name)
	var c Command
	switch {
	case req.PID != 0:
		if req.PID <= 1 || req.PID == a.selfPID {
			return nil, apperrors.Newf(apperrors.ErrInvalidProcess, "refusing to kill pid %d", req.PID)
		}
		pid := strconv.Itoa(req.PID)
		switch a.platform {
		case PlatformWindows:
			c = cmd("taskkill", "/PID", pid, "/F")
		case PlatformLinux, PlatformDarwin:
			c = cmd("kill", "-9", pid)
		}
	case name != "":
		if !processNamePattern.MatchString(name) {
			return nil, apperrors.Newf(apperrors.ErrInvalidProcess, "invalid process name %q", name)
		}
		switch a.platform {
		case PlatformWindows:
			if !strings.HasSuffix(strings.ToLower(name), ".exe") {
				name += ".exe"
			}
			c = cmd("taskkill", "/IM", name, "/F")
		case PlatformLinux, PlatformDarwin:
			c = cmd("pkill", "-x", name)
		}
	default:
		return nil, apperrors.Newf(apperrors.ErrInvalidParams, "pid or name is required")
	}
	if c.Name == "" {
		return nil, apperrors.Newf(apperrors.ErrUnsupportedPlatform, "kill-process is not supported on %s", a.platform)
	}
	return a.run(ctx, "kill-process", c)
}

// Sample 采样一次并写入历史
func (a *Agent) Sample(ctx context.Context) {
	s := Sample{Timestamp: a.now()}
	if info, err := a.SystemInfo(ctx); err == nil {
		s.CPU = info.CPUUsage
		s.Memory = info.MemoryPercent
	} else {
		logger.Debugf("[代理] 采样系统信息失败: %v", err)
	}
	if t := a.Temperature(ctx); t.Available {
		v := t.Celsius
		s.Temperature = &v
	}
	a.history.Add(s)
}

// History 历史采样，时间正序
func (a *Agent) History() []Sample {
	return a.history.Snapshot()
}

// Health 健康检查
func (a *Agent) Health() Health {
	return Health{
		Status:        "ok",
		Platform:      a.platform,
		Version:       a.version,
		UptimeSeconds: int64(a.now().Sub(a.started).Seconds()),
	}
}

func truncate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxOutputLen {
		return s[:maxOutputLen] + "...(truncated)"
	}
	return s
}
