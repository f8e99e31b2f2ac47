// Package cli 定义 veer 命令行：serve 启动API服务，agent 启动本地系统代理，backup 执行备份
package cli

import (
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/veerhq/veer/config"
	"github.com/veerhq/veer/internal/logger"
)

// Version 构建时通过 -ldflags "-X github.com/veerhq/veer/internal/cli.Version=..." 注入
var Version = "dev"

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "veer",
	Short: "VEER assistant backend",
	Long: `veer serves the VEER assistant API (records, widgets, chat, weather and news proxies, backups)
and runs the local system agent that performs OS-level actions for the web app.`,
	SilenceUsage: true,
}

// Execute 执行根命令，由 main.main 调用
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default ./config.yaml or ./config/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// setup 加载配置并初始化日志
func setup() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	if err := logger.Init(&cfg.Log); err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	if verbose {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	return cfg, nil
}
