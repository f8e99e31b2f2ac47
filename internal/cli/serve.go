package cli

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/veerhq/veer/config"
	"github.com/veerhq/veer/internal/database"
	"github.com/veerhq/veer/internal/logger"
	"github.com/veerhq/veer/internal/router"
	"github.com/veerhq/veer/internal/scheduler"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := setup()
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve(ctx context.Context, cfg *config.Config) error {
	db, err := database.Init(cfg.Database)
	if err != nil {
		return err
	}
	defer func() {
		if err := database.Close(db); err != nil {
			logger.Warnf("关闭数据库失败: %v", err)
		}
	}()

	svc := router.NewServices(db, cfg)
	r := router.NewRouter(db, cfg, svc, Version)
	if w := time.Duration(cfg.Server.WriteTimeout) * time.Second; w > 0 && (cfg.Chat.TotalTimeout <= 0 || cfg.Chat.TotalTimeout >= w) {
		logger.Warnf("chat.total_timeout (%s) 不小于 server.write_timeout (%s)，对话降级可能在响应写回前被断开", cfg.Chat.TotalTimeout, w)
	}
	if cfg.Server.Token == "" {
		logger.Warnf("未配置 server.token，/api/v1 不校验令牌")
	}
	config.Watch(func(next *config.Config) {
		r.Guard().SetToken(next.Server.Token)
	})

	// 定时备份
	sched := scheduler.New(nil)
	if err := svc.Backups.Schedule(sched); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	srv, err := newHTTPServer(cfg.Server, r.GetEngine())
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("API服务启动在 %s (HTTPS: %v, HTTP/2: %v)", srv.Addr, cfg.Server.EnableHTTPS, cfg.Server.EnableHTTP2)
		var err error
		if cfg.Server.EnableHTTPS {
			err = srv.ListenAndServeTLS(cfg.Server.TLSCertFile, cfg.Server.TLSKeyFile)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("正在关闭服务器...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	logger.Info("服务器已退出")
	return nil
}

// newHTTPServer 按配置创建HTTP服务
// HTTPS 下通过 ALPN 协商 HTTP/2，明文下使用 h2c
func newHTTPServer(cfg config.ServerConfig, handler http.Handler) (*http.Server, error) {
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      handler,
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
	}

	switch {
	case cfg.EnableHTTPS:
		srv.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
			NextProtos: []string{"http/1.1"},
		}
		if cfg.EnableHTTP2 {
			srv.TLSConfig.NextProtos = []string{"h2", "http/1.1"}
			if err := http2.ConfigureServer(srv, &http2.Server{}); err != nil {
				return nil, fmt.Errorf("configure http2: %w", err)
			}
		}
	case cfg.EnableHTTP2:
		srv.Handler = h2c.NewHandler(handler, &http2.Server{})
	}
	return srv, nil
}
