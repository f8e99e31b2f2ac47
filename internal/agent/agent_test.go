package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/veerhq/veer/config"
	apperrors "github.com/veerhq/veer/internal/errors"
)

type fakeResult struct {
	out string
	err error
}

// fakeRunner 按完整命令行返回预设输出，并记录所有调用
type fakeRunner struct {
	mu        sync.Mutex
	results   map[string]fakeResult
	calls     []string
	started   []string
	timeout   time.Duration
	startFail error
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{results: map[string]fakeResult{}}
}

func (f *fakeRunner) on(line, out string) *fakeRunner {
	f.results[line] = fakeResult{out: out}
	return f
}

func (f *fakeRunner) fail(line, out string, err error) *fakeRunner {
	f.results[line] = fakeResult{out: out, err: err}
	return f
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	line := Command{Name: name, Args: args}.String()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, line)
	r, ok := f.results[line]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCommandNotFound, name)
	}
	return []byte(r.out), r.err
}

func (f *fakeRunner) Start(name string, args ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = append(f.started, Command{Name: name, Args: args}.String())
	return f.startFail
}

func (f *fakeRunner) SetTimeout(d time.Duration) {
	f.timeout = d
}

func testConfig() config.AgentConfig {
	return config.AgentConfig{HistorySize: 60, CommandTimeout: time.Second}
}

func newTestAgent(platform string, runner *fakeRunner) *Agent {
	return New(testConfig(), Options{
		Platform: platform,
		Runner:   runner,
		Version:  "test",
		SelfPID:  4242,
		Glob:     func(string) ([]string, error) { return nil, nil },
		Now:      func() time.Time { return time.Unix(1700000100, 0) },
	})
}

func TestRunAction(t *testing.T) {
	runner := newFakeRunner().on("systemctl poweroff", "")
	a := newTestAgent(PlatformLinux, runner)

	result, err := a.RunAction(context.Background(), " Shutdown ")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "systemctl poweroff", result.Command)
	assert.Equal(t, []string{"systemctl poweroff"}, runner.calls)
}

func TestRunActionErrors(t *testing.T) {
	t.Run("未知动作", func(t *testing.T) {
		a := newTestAgent(PlatformLinux, newFakeRunner())
		_, err := a.RunAction(context.Background(), "explode")
		assert.True(t, apperrors.HasCode(err, apperrors.ErrUnknownAction))
	})

	t.Run("当前平台不支持", func(t *testing.T) {
		runner := newFakeRunner()
		a := newTestAgent(PlatformDarwin, runner)
		_, err := a.RunAction(context.Background(), ActionCancelShutdown)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrUnsupportedPlatform))
		assert.Empty(t, runner.calls)
	})

	t.Run("未知平台", func(t *testing.T) {
		a := newTestAgent("plan9", newFakeRunner())
		_, err := a.RunAction(context.Background(), ActionLock)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrUnsupportedPlatform))
	})

	t.Run("命令执行失败", func(t *testing.T) {
		runner := newFakeRunner().fail("shutdown /s /t 0", "Access is denied.", errors.New("exit status 5"))
		a := newTestAgent(PlatformWindows, runner)
		result, err := a.RunAction(context.Background(), ActionShutdown)
		require.Error(t, err)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCommandFailed))
		assert.Contains(t, err.Error(), "Access is denied.")
		assert.False(t, result.Success)
	})
}

func TestMedia(t *testing.T) {
	runner := newFakeRunner().on("playerctl next", "")
	a := newTestAgent(PlatformLinux, runner)

	_, err := a.Media(context.Background(), MediaNext)
	require.NoError(t, err)

	_, err = a.Media(context.Background(), "rewind")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrUnknownAction))
}

func TestMediaTablesCoverEveryPlatform(t *testing.T) {
	for _, platform := range []string{PlatformLinux, PlatformDarwin, PlatformWindows} {
		for _, name := range allMedia {
			_, known, supported := lookup(mediaTable, platform, name)
			assert.True(t, known && supported, "%s/%s", platform, name)
		}
		for app := range builtinApps[PlatformLinux] {
			_, ok := builtinApps[platform][app]
			assert.True(t, ok, "%s/%s", platform, app)
		}
	}
}

func TestLaunch(t *testing.T) {
	runner := newFakeRunner()
	cfg := testConfig()
	cfg.Apps = map[string]map[string]string{
		PlatformLinux: {"Browser": `firefox --new-window "https://example.com/a b"`, "obsidian": "obsidian"},
	}
	a := New(cfg, Options{Platform: PlatformLinux, Runner: runner})

	result, err := a.Launch("browser")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, `firefox --new-window https://example.com/a b`, result.Command)

	_, err = a.Launch("calculator")
	require.NoError(t, err)
	assert.Equal(t, []string{"firefox --new-window https://example.com/a b", "gnome-calculator"}, runner.started)

	_, err = a.Launch("photoshop")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrUnknownApp))

	_, err = a.Launch("  ")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrInvalidParams))

	assert.Contains(t, a.Apps(), "obsidian")
	assert.Contains(t, a.Apps(), "music")
}

func TestLaunchStartFailure(t *testing.T) {
	runner := newFakeRunner()
	runner.startFail = fmt.Errorf("%w: gedit", ErrCommandNotFound)
	a := newTestAgent(PlatformLinux, runner)

	_, err := a.Launch("editor")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCommandFailed))
}

func TestReload(t *testing.T) {
	runner := newFakeRunner()
	a := newTestAgent(PlatformLinux, runner)
	_, err := a.Launch("notes")
	require.Error(t, err)

	cfg := testConfig()
	cfg.HistorySize = 5
	cfg.CommandTimeout = 3 * time.Second
	cfg.Apps = map[string]map[string]string{PlatformLinux: {"notes": "joplin"}}
	a.Reload(cfg)

	_, err = a.Launch("notes")
	require.NoError(t, err)
	assert.Equal(t, 5, a.history.Cap())
	assert.Equal(t, 3*time.Second, runner.timeout)
}

const linuxProc = `cpu  100 0 100 700 100 0 0 0 0 0
cpu0 50 0 50 350 50 0 0 0 0 0
intr 12345
ctxt 999
btime 1700000000
MemTotal:       16000000 kB
MemFree:         2000000 kB
MemAvailable:    4000000 kB
HugePages_Total:       0
12345.67 54321.00
`

func TestSystemInfoLinux(t *testing.T) {
	line := "cat /proc/stat /proc/meminfo /proc/uptime"
	runner := newFakeRunner().on(line, linuxProc)
	a := newTestAgent(PlatformLinux, runner)

	info, err := a.SystemInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, PlatformLinux, info.Platform)
	assert.Equal(t, 20.0, info.CPUUsage)
	assert.Equal(t, uint64(16000000*1024), info.MemoryTotal)
	assert.Equal(t, uint64(12000000*1024), info.MemoryUsed)
	assert.Equal(t, 75.0, info.MemoryPercent)
	assert.Equal(t, uint64(12345), info.UptimeSeconds)

	// 第二次读数按差值计算
	runner.on(line, strings.Replace(linuxProc, "cpu  100 0 100 700 100", "cpu  150 0 150 750 150", 1))
	info, err = a.SystemInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 50.0, info.CPUUsage)
}

func TestSystemInfoDarwin(t *testing.T) {
	runner := newFakeRunner().
		on("top -l 1 -n 0", "Processes: 400 total\nCPU usage: 7.5% user, 5.25% sys, 87.25% idle\n").
		on("sysctl -n hw.memsize kern.boottime", "17179869184\n{ sec = 1700000000, usec = 0 } Tue Nov 14 22:13:20 2023\n").
		on("vm_stat", "Mach Virtual Memory Statistics: (page size of 16384 bytes)\n"+
			"Pages free:                               10000.\n"+
			"Pages active:                            200000.\n"+
			"Pages wired down:                        100000.\n"+
			"Pages occupied by compressor:             12288.\n")
	a := newTestAgent(PlatformDarwin, runner)

	info, err := a.SystemInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 12.75, info.CPUUsage)
	assert.Equal(t, uint64(17179869184), info.MemoryTotal)
	assert.Equal(t, uint64(312288*16384), info.MemoryUsed)
	assert.Equal(t, uint64(100), info.UptimeSeconds)
}

func TestSystemInfoWindows(t *testing.T) {
	c := powershell(windowsSystemScript)
	runner := newFakeRunner().on(c.String(), `{"cpu":33.3,"total":8000,"free":2000,"uptime":3600}`)
	a := newTestAgent(PlatformWindows, runner)

	info, err := a.SystemInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 33.3, info.CPUUsage)
	assert.Equal(t, uint64(6000), info.MemoryUsed)
	assert.Equal(t, 75.0, info.MemoryPercent)
	assert.Equal(t, uint64(3600), info.UptimeSeconds)
}

func TestSystemInfoCommandMissing(t *testing.T) {
	a := newTestAgent(PlatformLinux, newFakeRunner())
	_, err := a.SystemInfo(context.Background())
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCommandFailed))
}

const psOutput = `    1 systemd           0.0  0.1
  812 /usr/lib/Xorg     3.5  1.2
 2001 Web Content      12.0  4.5
 2002 firefox          25.1  8.0
 3000 bash              0.1  0.0
`

func TestProcesses(t *testing.T) {
	runner := newFakeRunner().on("ps -eo pid=,comm=,%cpu=,%mem=", psOutput)
	a := newTestAgent(PlatformLinux, runner)

	procs, err := a.Processes(context.Background(), ProcessQuery{})
	require.NoError(t, err)
	require.Len(t, procs, 5)
	assert.Equal(t, "firefox", procs[0].Name)
	assert.Equal(t, "Web Content", procs[1].Name)
	assert.Equal(t, "Xorg", procs[2].Name)

	procs, err = a.Processes(context.Background(), ProcessQuery{Sort: "mem", Limit: 2})
	require.NoError(t, err)
	require.Len(t, procs, 2)
	assert.Equal(t, 2002, procs[0].PID)
	assert.Equal(t, 2001, procs[1].PID)

	procs, err = a.Processes(context.Background(), ProcessQuery{Pattern: "*FIRE*"})
	require.NoError(t, err)
	require.Len(t, procs, 1)
	assert.Equal(t, "firefox", procs[0].Name)

	_, err = a.Processes(context.Background(), ProcessQuery{Sort: "name"})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrInvalidParams))

	_, err = a.Processes(context.Background(), ProcessQuery{Pattern: "[abc"})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrInvalidParams))
}

func TestProcessesWindows(t *testing.T) {
	c := powershell(windowsProcessScript)
	runner := newFakeRunner().on(c.String(),
		`[{"pid":10,"name":"chrome","cpu":1.5,"mem":3},{"pid":11,"name":"chrome#1","cpu":4.25,"mem":1}]`)
	a := newTestAgent(PlatformWindows, runner)

	procs, err := a.Processes(context.Background(), ProcessQuery{Limit: 500})
	require.NoError(t, err)
	require.Len(t, procs, 2)
	assert.Equal(t, Process{PID: 11, Name: "chrome", CPU: 4.25, Memory: 1}, procs[0])
}

func TestGPU(t *testing.T) {
	line := "nvidia-smi --query-gpu=name,utilization.gpu,memory.used,memory.total,temperature.gpu --format=csv,noheader,nounits"

	a := newTestAgent(PlatformLinux, newFakeRunner())
	info := a.GPU(context.Background())
	assert.False(t, info.Available)
	assert.Equal(t, "nvidia-smi not found", info.Reason)

	runner := newFakeRunner().on(line, "NVIDIA GeForce RTX 3080, 17, 1024, 10240, 45\nTesla T4, [N/A], 0, 15360, 38\n")
	info = newTestAgent(PlatformLinux, runner).GPU(context.Background())
	require.True(t, info.Available)
	require.Len(t, info.GPUs, 2)
	assert.Equal(t, GPU{Name: "NVIDIA GeForce RTX 3080", Utilization: 17, MemoryUsed: 1024, MemoryTotal: 10240, Temperature: 45}, info.GPUs[0])
	assert.Equal(t, 0.0, info.GPUs[1].Utilization)
}

func TestTemperatureLinux(t *testing.T) {
	runner := newFakeRunner().
		on("cat /sys/class/thermal/thermal_zone0/type /sys/class/thermal/thermal_zone0/temp", "acpitz\n27800\n").
		on("cat /sys/class/thermal/thermal_zone1/type /sys/class/thermal/thermal_zone1/temp", "x86_pkg_temp\n52000\n")
	a := New(testConfig(), Options{
		Platform: PlatformLinux,
		Runner:   runner,
		Glob: func(string) ([]string, error) {
			return []string{"/sys/class/thermal/thermal_zone0", "/sys/class/thermal/thermal_zone1"}, nil
		},
	})

	temp := a.Temperature(context.Background())
	require.True(t, temp.Available)
	assert.Equal(t, 52.0, temp.Celsius)
	assert.Equal(t, "x86_pkg_temp", temp.Source)

	none := newTestAgent(PlatformLinux, newFakeRunner()).Temperature(context.Background())
	assert.False(t, none.Available)
}

func TestTemperatureOtherPlatforms(t *testing.T) {
	darwin := newTestAgent(PlatformDarwin, newFakeRunner().on("osx-cpu-temp", "61.2°C\n"))
	temp := darwin.Temperature(context.Background())
	require.True(t, temp.Available)
	assert.Equal(t, 61.2, temp.Celsius)

	c := powershell(windowsTempScript)
	windows := newTestAgent(PlatformWindows, newFakeRunner().on(c.String(), "3032\r\n3132\r\n"))
	temp = windows.Temperature(context.Background())
	require.True(t, temp.Available)
	assert.Equal(t, 40.05, temp.Celsius)

	assert.False(t, newTestAgent(PlatformDarwin, newFakeRunner()).Temperature(context.Background()).Available)
}

func TestKill(t *testing.T) {
	runner := newFakeRunner().
		on("kill -9 3000", "").
		on("pkill -x firefox", "").
		on("taskkill /IM chrome.exe /F", "SUCCESS")
	a := newTestAgent(PlatformLinux, runner)

	_, err := a.Kill(context.Background(), &KillRequest{PID: 3000})
	require.NoError(t, err)
	_, err = a.Kill(context.Background(), &KillRequest{Name: "firefox"})
	require.NoError(t, err)

	win := newTestAgent(PlatformWindows, runner)
	result, err := win.Kill(context.Background(), &KillRequest{Name: "chrome"})
	require.NoError(t, err)
	assert.Equal(t, "SUCCESS", result.Output)
}

func TestKillRejectsUnsafeTargets(t *testing.T) {
	runner := newFakeRunner()
	a := newTestAgent(PlatformLinux, runner)

	for _, req := range []*KillRequest{{PID: 1}, {PID: -5}, {PID: 4242}, {Name: "-9"}, {Name: "a;rm -rf /"}} {
		_, err := a.Kill(context.Background(), req)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrInvalidProcess), "%+v", req)
	}
	_, err := a.Kill(context.Background(), &KillRequest{})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrInvalidParams))
	assert.Empty(t, runner.calls)
}

func TestKillCommandFailure(t *testing.T) {
	runner := newFakeRunner().fail("kill -9 777", "kill: (777) - No such process", errors.New("exit status 1"))
	a := newTestAgent(PlatformLinux, runner)

	_, err := a.Kill(context.Background(), &KillRequest{PID: 777})
	appErr, ok := apperrors.GetAppError(err)
	require.True(t, ok)
	assert.Equal(t, 500, appErr.HTTPStatus())
	assert.Contains(t, appErr.Details, "No such process")
}

func TestSampleAndHealth(t *testing.T) {
	runner := newFakeRunner().on("cat /proc/stat /proc/meminfo /proc/uptime", linuxProc)
	a := newTestAgent(PlatformLinux, runner)

	a.Sample(context.Background())
	history := a.History()
	require.Len(t, history, 1)
	assert.Equal(t, 20.0, history[0].CPU)
	assert.Equal(t, 75.0, history[0].Memory)
	assert.Nil(t, history[0].Temperature)

	health := a.Health()
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "test", health.Version)
	assert.Equal(t, PlatformLinux, health.Platform)
}

func TestParseCommandLine(t *testing.T) {
	assert.Equal(t, Command{Name: "code", Args: []string{"--new-window"}}, parseCommandLine("  code   --new-window "))
	assert.Equal(t, Command{Name: "C:\\Program Files\\App\\app.exe", Args: []string{""}}, parseCommandLine(`"C:\Program Files\App\app.exe" ""`))
	assert.Equal(t, Command{}, parseCommandLine("   "))
}
