package agent

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync/atomic"
	"time"

	"github.com/veerhq/veer/internal/logger"
)

// ErrCommandNotFound 可执行文件不存在
var ErrCommandNotFound = errors.New("command not found")

// Runner 执行系统命令
// 参数按原样传给进程，不经过shell
type Runner interface {
	// Run 执行命令并等待结束，返回合并后的标准输出和标准错误
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
	// Start 启动命令后立即返回，不等待结束
	Start(name string, args ...string) error
}

// ExecRunner 基于 os/exec 的实现
type ExecRunner struct {
	timeout atomic.Int64
}

// NewExecRunner 创建命令执行器
func NewExecRunner(timeout time.Duration) *ExecRunner {
	r := &ExecRunner{}
	r.SetTimeout(timeout)
	return r
}

// SetTimeout 修改单条命令的超时时间，0 表示不限制
func (r *ExecRunner) SetTimeout(timeout time.Duration) {
	r.timeout.Store(int64(timeout))
}

func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if _, err := exec.LookPath(name); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrCommandNotFound, name)
	}
	timeout := time.Duration(r.timeout.Load())
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	logger.Debugf("执行命令: %s %s (%s)", name, strings.Join(args, " "), time.Since(start))
	if ctx.Err() == context.DeadlineExceeded {
		return out, fmt.Errorf("%s timed out after %s", name, timeout)
	}
	if err != nil {
		return out, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}

func (r *ExecRunner) Start(name string, args ...string) error {
	if _, err := exec.LookPath(name); err != nil {
		return fmt.Errorf("%w: %s", ErrCommandNotFound, name)
	}
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", name, err)
	}
	logger.Infof("已启动: %s %s (pid %d)", name, strings.Join(args, " "), cmd.Process.Pid)
	// 回收子进程，避免僵尸进程
	go func() { _ = cmd.Wait() }()
	return nil
}
