package agent

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
)

// SystemInfo 系统概况
type SystemInfo struct {
	Hostname      string  `json:"hostname"`
	Platform      string  `json:"platform"`
	Arch          string  `json:"arch"`
	CPUCount      int     `json:"cpu_count"`
	CPUUsage      float64 `json:"cpu_usage"`
	MemoryTotal   uint64  `json:"memory_total"`
	MemoryUsed    uint64  `json:"memory_used"`
	MemoryPercent float64 `json:"memory_percent"`
	UptimeSeconds uint64  `json:"uptime_seconds"`
}

// Process 进程信息
type Process struct {
	PID    int     `json:"pid"`
	Name   string  `json:"name"`
	CPU    float64 `json:"cpu"`
	Memory float64 `json:"memory"`
}

// GPU 单块显卡信息，显存单位MiB
type GPU struct {
	Name        string  `json:"name"`
	Utilization float64 `json:"utilization"`
	MemoryUsed  float64 `json:"memory_used"`
	MemoryTotal float64 `json:"memory_total"`
	Temperature float64 `json:"temperature"`
}

// GPUInfo 显卡信息，没有 nvidia-smi 时 Available 为 false
type GPUInfo struct {
	Available bool   `json:"available"`
	GPUs      []GPU  `json:"gpus,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// Temperature CPU温度
type Temperature struct {
	Available bool    `json:"available"`
	Celsius   float64 `json:"celsius,omitempty"`
	Source    string  `json:"source,omitempty"`
	Reason    string  `json:"reason,omitempty"`
}

// cpuTimes /proc/stat 中的累计CPU时间
type cpuTimes struct {
	total uint64
	idle  uint64
}

// cpuTracker 根据两次读数之差计算CPU使用率
type cpuTracker struct {
	mu   sync.Mutex
	prev *cpuTimes
}

func (t *cpuTracker) usage(cur cpuTimes) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	prev := t.prev
	t.prev = &cur

	total, idle := cur.total, cur.idle
	if prev != nil && cur.total > prev.total {
		total -= prev.total
		idle -= prev.idle
	}
	if total == 0 {
		return 0
	}
	return round2(100 * (1 - float64(idle)/float64(total)))
}

// linuxStat 解析 `cat /proc/stat /proc/meminfo /proc/uptime` 的输出
type linuxStat struct {
	cpu          cpuTimes
	memTotal     uint64 // 字节
	memAvailable uint64
	uptime       float64
}

func parseLinuxStat(out []byte) (*linuxStat, error) {
	st := &linuxStat{}
	var haveCPU, haveMem bool
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "cpu":
			var vals []uint64
			for _, f := range fields[1:] {
				v, err := strconv.ParseUint(f, 10, 64)
				if err != nil {
					return nil, fmt.Errorf("parse /proc/stat: %w", err)
				}
				vals = append(vals, v)
			}
			if len(vals) < 4 {
				return nil, fmt.Errorf("parse /proc/stat: short cpu line")
			}
			// user nice system idle iowait irq softirq steal，guest 已计入 user
			for i, v := range vals {
				if i < 8 {
					st.cpu.total += v
				}
			}
			st.cpu.idle = vals[3]
			if len(vals) > 4 {
				st.cpu.idle += vals[4]
			}
			haveCPU = true
		case "MemTotal:":
			st.memTotal = parseKB(fields)
			haveMem = true
		case "MemAvailable:":
			st.memAvailable = parseKB(fields)
		default:
			// /proc/uptime：两个浮点数
			if len(fields) == 2 {
				up, err1 := strconv.ParseFloat(fields[0], 64)
				_, err2 := strconv.ParseFloat(fields[1], 64)
				if err1 == nil && err2 == nil {
					st.uptime = up
				}
			}
		}
	}
	if !haveCPU || !haveMem {
		return nil, fmt.Errorf("unexpected /proc output")
	}
	return st, nil
}

func parseKB(fields []string) uint64 {
	if len(fields) < 2 {
		return 0
	}
	v, _ := strconv.ParseUint(fields[1], 10, 64)
	return v * 1024
}

// parseDarwinCPU 解析 `top -l 1 -n 0` 中的CPU使用率
func parseDarwinCPU(out []byte) (float64, error) {
	for _, line := range strings.Split(string(out), "\n") {
		if !strings.HasPrefix(line, "CPU usage:") {
			continue
		}
		for _, part := range strings.Split(strings.TrimPrefix(line, "CPU usage:"), ",") {
			part = strings.TrimSpace(part)
			if strings.HasSuffix(part, "idle") {
				idle, err := strconv.ParseFloat(strings.TrimSuffix(strings.Fields(part)[0], "%"), 64)
				if err != nil {
					return 0, fmt.Errorf("parse top output: %w", err)
				}
				return round2(100 - idle), nil
			}
		}
	}
	return 0, fmt.Errorf("cpu usage not found in top output")
}

// parseDarwinSysctl 解析 `sysctl -n hw.memsize kern.boottime`
// 返回总内存（字节）和启动时间戳
func parseDarwinSysctl(out []byte) (memTotal uint64, bootSec int64, err error) {
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	if len(lines) < 2 {
		return 0, 0, fmt.Errorf("unexpected sysctl output")
	}
	if memTotal, err = strconv.ParseUint(strings.TrimSpace(lines[0]), 10, 64); err != nil {
		return 0, 0, fmt.Errorf("parse hw.memsize: %w", err)
	}
	// { sec = 1700000000, usec = 0 } Tue Nov 14 ...
	boot := lines[1]
	idx := strings.Index(boot, "sec =")
	if idx < 0 {
		return 0, 0, fmt.Errorf("parse kern.boottime: %q", boot)
	}
	rest := strings.TrimSpace(boot[idx+len("sec ="):])
	if end := strings.IndexAny(rest, ", }"); end > 0 {
		rest = rest[:end]
	}
	if bootSec, err = strconv.ParseInt(rest, 10, 64); err != nil {
		return 0, 0, fmt.Errorf("parse kern.boottime: %w", err)
	}
	return memTotal, bootSec, nil
}

// parseDarwinVMStat 解析 vm_stat，返回已用内存字节数（active + wired + compressed）
func parseDarwinVMStat(out []byte) (uint64, error) {
	pageSize := uint64(4096)
	var used uint64
	var found bool
	for _, line := range strings.Split(string(out), "\n") {
		if strings.HasPrefix(line, "Mach Virtual Memory Statistics") {
			// (page size of 16384 bytes)
			if i := strings.Index(line, "page size of "); i >= 0 {
				f := strings.Fields(line[i+len("page size of "):])
				if len(f) > 0 {
					if v, err := strconv.ParseUint(f[0], 10, 64); err == nil {
						pageSize = v
					}
				}
			}
			continue
		}
		key, val, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		switch strings.TrimSpace(key) {
		case "Pages active", "Pages wired down", "Pages occupied by compressor":
			v, err := strconv.ParseUint(strings.TrimSuffix(strings.TrimSpace(val), "."), 10, 64)
			if err != nil {
				return 0, fmt.Errorf("parse vm_stat: %w", err)
			}
			used += v
			found = true
		}
	}
	if !found {
		return 0, fmt.Errorf("unexpected vm_stat output")
	}
	return used * pageSize, nil
}

// windowsSystem PowerShell 输出的系统概况
type windowsSystem struct {
	CPU    float64 `json:"cpu"`
	Total  uint64  `json:"total"`
	Free   uint64  `json:"free"`
	Uptime uint64  `json:"uptime"`
}

func parseWindowsSystem(out []byte) (*windowsSystem, error) {
	var ws windowsSystem
	if err := json.Unmarshal(bytes.TrimSpace(out), &ws); err != nil {
		return nil, fmt.Errorf("parse powershell output: %w", err)
	}
	return &ws, nil
}

// parsePS 解析 `ps -o pid=,comm=,%cpu=,%mem=`
// 进程名可能包含空格，取首列为pid，末两列为cpu和内存
func parsePS(out []byte) []Process {
	var procs []Process
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 4 {
			continue
		}
		pid, err := strconv.Atoi(fields[0])
		if err != nil {
			continue
		}
		cpu, err1 := strconv.ParseFloat(fields[len(fields)-2], 64)
		mem, err2 := strconv.ParseFloat(fields[len(fields)-1], 64)
		if err1 != nil || err2 != nil {
			continue
		}
		name := strings.Join(fields[1:len(fields)-2], " ")
		if i := strings.LastIndexByte(name, '/'); i >= 0 && i < len(name)-1 {
			name = name[i+1:]
		}
		procs = append(procs, Process{PID: pid, Name: name, CPU: cpu, Memory: mem})
	}
	return procs
}

// parseWindowsProcesses 解析 ConvertTo-Json 输出，单个对象时不是数组
func parseWindowsProcesses(out []byte) ([]Process, error) {
	type row struct {
		PID  int     `json:"pid"`
		Name string  `json:"name"`
		CPU  float64 `json:"cpu"`
		Mem  float64 `json:"mem"`
	}
	out = bytes.TrimSpace(out)
	if len(out) == 0 {
		return nil, nil
	}
	var rows []row
	if out[0] == '{' {
		var single row
		if err := json.Unmarshal(out, &single); err != nil {
			return nil, fmt.Errorf("parse powershell output: %w", err)
		}
		rows = append(rows, single)
	} else if err := json.Unmarshal(out, &rows); err != nil {
		return nil, fmt.Errorf("parse powershell output: %w", err)
	}

	procs := make([]Process, 0, len(rows))
	for _, r := range rows {
		// 性能计数器中同名进程带 #1 后缀
		name := r.Name
		if i := strings.LastIndexByte(name, '#'); i > 0 {
			name = name[:i]
		}
		procs = append(procs, Process{PID: r.PID, Name: name, CPU: round2(r.CPU), Memory: round2(r.Mem)})
	}
	return procs, nil
}

// parseNvidiaSMI 解析 nvidia-smi --format=csv,noheader,nounits
func parseNvidiaSMI(out []byte) ([]GPU, error) {
	var gpus []GPU
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		cols := strings.Split(line, ",")
		if len(cols) != 5 {
			return nil, fmt.Errorf("unexpected nvidia-smi line %q", line)
		}
		nums := make([]float64, 4)
		for i := range nums {
			// 不支持的项输出 [N/A]
			v, err := strconv.ParseFloat(strings.TrimSpace(cols[i+1]), 64)
			if err == nil {
				nums[i] = v
			}
		}
		gpus = append(gpus, GPU{
			Name:        strings.TrimSpace(cols[0]),
			Utilization: nums[0],
			MemoryUsed:  nums[1],
			MemoryTotal: nums[2],
			Temperature: nums[3],
		})
	}
	return gpus, nil
}

// 温度传感器类型优先级，越靠前越接近CPU温度
var preferredZones = []string{"x86_pkg_temp", "coretemp", "k10temp", "cpu", "soc", "acpitz"}

type thermalZone struct {
	kind    string
	celsius float64
}

// pickZone 选择最能代表CPU温度的传感器，都不匹配时取最高读数
func pickZone(zones []thermalZone) (thermalZone, bool) {
	if len(zones) == 0 {
		return thermalZone{}, false
	}
	for _, want := range preferredZones {
		for _, z := range zones {
			if strings.Contains(strings.ToLower(z.kind), want) {
				return z, true
			}
		}
	}
	best := zones[0]
	for _, z := range zones[1:] {
		if z.celsius > best.celsius {
			best = z
		}
	}
	return best, true
}

// parseThermalZone 解析 `cat <zone>/type <zone>/temp`，温度单位为千分之一摄氏度
func parseThermalZone(out []byte) (thermalZone, error) {
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	if len(lines) != 2 {
		return thermalZone{}, fmt.Errorf("unexpected thermal zone output")
	}
	milli, err := strconv.ParseFloat(strings.TrimSpace(lines[1]), 64)
	if err != nil {
		return thermalZone{}, fmt.Errorf("parse thermal zone: %w", err)
	}
	return thermalZone{kind: strings.TrimSpace(lines[0]), celsius: round2(milli / 1000)}, nil
}

// parseDarwinTemp 解析 osx-cpu-temp 输出，如 "61.2°C"
func parseDarwinTemp(out []byte) (float64, error) {
	s := strings.TrimSpace(string(out))
	s = strings.TrimSuffix(strings.TrimSuffix(s, "C"), "°")
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("parse osx-cpu-temp output: %w", err)
	}
	if v <= 0 {
		return 0, fmt.Errorf("sensor returned %g", v)
	}
	return v, nil
}

// parseWindowsTemp 解析 MSAcpi_ThermalZoneTemperature，单位为0.1开尔文，多个传感器取最高
func parseWindowsTemp(out []byte) (float64, error) {
	var best float64
	var found bool
	for _, f := range strings.Fields(string(out)) {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			continue
		}
		c := v/10 - 273.15
		if !found || c > best {
			best, found = c, true
		}
	}
	if !found {
		return 0, fmt.Errorf("no thermal zone reading")
	}
	return round2(best), nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func percent(part, total uint64) float64 {
	if total == 0 {
		return 0
	}
	return round2(float64(part) * 100 / float64(total))
}
