// internal/pkg/bootstrap/app.go
package bootstrap

import (
	"context"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"storefront/internal/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

// ShutdownFunc 在优雅关停时释放一个资源。
type ShutdownFunc func(ctx context.Context) error

// AppInfo 包含了启动一个服务进程所需的所有特定信息。
type AppInfo struct {
	ServiceName string
	Port        int
	// Addr 设置时覆盖 Port，例如 "127.0.0.1:0"
	Addr string
	// RegisterHandlers 允许每个服务注册自己独特的 HTTP 路由
	RegisterHandlers func(mux *http.ServeMux)
	// Workers 与 HTTP Server 一起运行（例如 Kafka 消费者），任一返回错误都会停止服务
	Workers []func(ctx context.Context) error
	// OnShutdown 在 HTTP Server 关闭后按后进先出的顺序执行
	OnShutdown []ShutdownFunc
}

// StartService 封装了通用的启动和优雅关停逻辑，收到 SIGINT 或 SIGTERM 后退出。
func StartService(info AppInfo) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return Run(ctx, info)
}

// Run 运行到 ctx 结束或 Server 出错，然后关闭 Server 并执行清理操作。
func Run(ctx context.Context, info AppInfo) error {
	mux := http.NewServeMux()
	if info.RegisterHandlers != nil {
		info.RegisterHandlers(mux)
	}
	addr := info.Addr
	if addr == "" {
		addr = ":" + strconv.Itoa(info.Port)
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrapf(err, "listen on %s", addr)
	}
	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	// 1. 启动 HTTP Server 和后台 worker
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.L().Info().Str("addr", ln.Addr().String()).Msgf("%s listening", info.ServiceName)
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "http server")
		}
		return nil
	})
	for _, worker := range info.Workers {
		g.Go(func() error { return worker(gctx) })
	}
	// 2. 优雅关停
	g.Go(func() error {
		<-gctx.Done()
		logger.L().Info().Msgf("shutting down service %s...", info.ServiceName)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.L().Error().Err(err).Msg("error shutting down http server")
		}
		// 3. 按顺序执行清理操作 (后进先出)
		for i := len(info.OnShutdown) - 1; i >= 0; i-- {
			if err := info.OnShutdown[i](shutdownCtx); err != nil {
				logger.L().Error().Err(err).Msg("error during shutdown hook")
			}
		}
		logger.L().Info().Msgf("service %s gracefully shut down", info.ServiceName)
		return nil
	})
	return g.Wait()
}
