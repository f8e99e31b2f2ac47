package agent

import (
	"sort"
	"strings"
)

// 支持的平台，取值同 runtime.GOOS
const (
	PlatformLinux   = "linux"
	PlatformDarwin  = "darwin"
	PlatformWindows = "windows"
)

// Command 一条命令，参数不经过shell
type Command struct {
	Name string   `json:"name"`
	Args []string `json:"args,omitempty"`
}

func cmd(name string, args ...string) Command {
	return Command{Name: name, Args: args}
}

// String 便于日志输出
func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// 电源与会话操作
const (
	ActionShutdown       = "shutdown"
	ActionRestart        = "restart"
	ActionSleep          = "sleep"
	ActionLock           = "lock"
	ActionLogout         = "logout"
	ActionCancelShutdown = "cancel-shutdown"
)

// 媒体控制
const (
	MediaPlayPause  = "play-pause"
	MediaNext       = "next"
	MediaPrevious   = "previous"
	MediaVolumeUp   = "volume-up"
	MediaVolumeDown = "volume-down"
	MediaMute       = "mute"
)

var allActions = []string{ActionShutdown, ActionRestart, ActionSleep, ActionLock, ActionLogout, ActionCancelShutdown}

var allMedia = []string{MediaPlayPause, MediaNext, MediaPrevious, MediaVolumeUp, MediaVolumeDown, MediaMute}

func osascript(script string) Command {
	return cmd("osascript", "-e", script)
}

// sendKey 通过虚拟按键码发送媒体键
func sendKey(code string) Command {
	return cmd("powershell", "-NoProfile", "-NonInteractive", "-Command",
		"(New-Object -ComObject WScript.Shell).SendKeys([char]"+code+")")
}

var actionTable = map[string]map[string]Command{
	PlatformLinux: {
		ActionShutdown:       cmd("systemctl", "poweroff"),
		ActionRestart:        cmd("systemctl", "reboot"),
		ActionSleep:          cmd("systemctl", "suspend"),
		ActionLock:           cmd("loginctl", "lock-session"),
		ActionLogout:         cmd("gnome-session-quit", "--logout", "--no-prompt"),
		ActionCancelShutdown: cmd("shutdown", "-c"),
	},
	PlatformDarwin: {
		ActionShutdown: osascript(`tell application "System Events" to shut down`),
		ActionRestart:  osascript(`tell application "System Events" to restart`),
		ActionSleep:    cmd("pmset", "sleepnow"),
		ActionLock:     cmd("pmset", "displaysleepnow"),
		ActionLogout:   osascript(`tell application "System Events" to log out`),
	},
	PlatformWindows: {
		ActionShutdown:       cmd("shutdown", "/s", "/t", "0"),
		ActionRestart:        cmd("shutdown", "/r", "/t", "0"),
		ActionSleep:          cmd("rundll32.exe", "powrprof.dll,SetSuspendState", "0,1,0"),
		ActionLock:           cmd("rundll32.exe", "user32.dll,LockWorkStation"),
		ActionLogout:         cmd("shutdown", "/l"),
		ActionCancelShutdown: cmd("shutdown", "/a"),
	},
}

var mediaTable = map[string]map[string]Command{
	PlatformLinux: {
		MediaPlayPause:  cmd("playerctl", "play-pause"),
		MediaNext:       cmd("playerctl", "next"),
		MediaPrevious:   cmd("playerctl", "previous"),
		MediaVolumeUp:   cmd("pactl", "set-sink-volume", "@DEFAULT_SINK@", "+5%"),
		MediaVolumeDown: cmd("pactl", "set-sink-volume", "@DEFAULT_SINK@", "-5%"),
		MediaMute:       cmd("pactl", "set-sink-mute", "@DEFAULT_SINK@", "toggle"),
	},
	PlatformDarwin: {
		MediaPlayPause:  osascript(`tell application "Music" to playpause`),
		MediaNext:       osascript(`tell application "Music" to next track`),
		MediaPrevious:   osascript(`tell application "Music" to previous track`),
		MediaVolumeUp:   osascript(`set volume output volume ((output volume of (get volume settings)) + 6)`),
		MediaVolumeDown: osascript(`set volume output volume ((output volume of (get volume settings)) - 6)`),
		MediaMute:       osascript(`set volume output muted not (output muted of (get volume settings))`),
	},
	PlatformWindows: {
		MediaPlayPause:  sendKey("179"),
		MediaNext:       sendKey("176"),
		MediaPrevious:   sendKey("177"),
		MediaVolumeUp:   sendKey("175"),
		MediaVolumeDown: sendKey("174"),
		MediaMute:       sendKey("173"),
	},
}

// 内置应用，配置中的同名应用优先
var builtinApps = map[string]map[string]Command{
	PlatformLinux: {
		"browser":    cmd("xdg-open", "https://www.google.com"),
		"terminal":   cmd("x-terminal-emulator"),
		"editor":     cmd("gedit"),
		"files":      cmd("nautilus"),
		"calculator": cmd("gnome-calculator"),
		"music":      cmd("rhythmbox"),
	},
	PlatformDarwin: {
		"browser":    cmd("open", "-a", "Safari"),
		"terminal":   cmd("open", "-a", "Terminal"),
		"editor":     cmd("open", "-a", "TextEdit"),
		"files":      cmd("open", "-a", "Finder"),
		"calculator": cmd("open", "-a", "Calculator"),
		"music":      cmd("open", "-a", "Music"),
	},
	PlatformWindows: {
		"browser":    cmd("explorer.exe", "https://www.google.com"),
		"terminal":   cmd("cmd.exe", "/c", "start", "cmd.exe"),
		"editor":     cmd("notepad.exe"),
		"files":      cmd("explorer.exe"),
		"calculator": cmd("calc.exe"),
		"music":      cmd("wmplayer.exe"),
	},
}

// lookup 在调度表中查找命令
// 返回值 known 表示名称本身是否合法（任一平台支持）
func lookup(table map[string]map[string]Command, platform, name string) (c Command, known, supported bool) {
	for _, entries := range table {
		if _, ok := entries[name]; ok {
			known = true
			break
		}
	}
	c, supported = table[platform][name]
	return c, known, supported
}

// parseCommandLine 把配置中的命令行按空白拆分，支持双引号包裹含空格的参数
func parseCommandLine(line string) Command {
	var fields []string
	var cur strings.Builder
	inQuote, hasToken := false, false
	for _, r := range line {
		switch {
		case r == '"':
			inQuote = !inQuote
			hasToken = true
		case (r == ' ' || r == '\t') && !inQuote:
			if hasToken {
				fields = append(fields, cur.String())
				cur.Reset()
				hasToken = false
			}
		default:
			cur.WriteRune(r)
			hasToken = true
		}
	}
	if hasToken {
		fields = append(fields, cur.String())
	}
	if len(fields) == 0 {
		return Command{}
	}
	return Command{Name: fields[0], Args: fields[1:]}
}

func sortedKeys(m map[string]Command) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
