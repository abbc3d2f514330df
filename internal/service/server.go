package service

import (
	"context"
	"net/http"
	"time"

	"wisefido-health/internal/config"

	"go.uber.org/zap"
)

// Server 健康引擎 HTTP 服务
// 同步接口会等待所有数据源返回，WriteTimeout 需覆盖数据源超时
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
}

// NewServer 按配置创建 HTTP 服务（超时为 0 表示不限制）
func NewServer(cfg *config.Config, handler http.Handler, logger *zap.Logger) *Server {
	s := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       seconds(cfg.HTTP.ReadTimeoutSeconds),
		WriteTimeout:      seconds(cfg.HTTP.WriteTimeoutSeconds),
		IdleTimeout:       seconds(cfg.HTTP.IdleTimeoutSeconds),
	}
	return &Server{httpServer: s, logger: logger}
}

func seconds(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second
}

func (s *Server) Start() error {
	s.logger.Info("Starting wisefido-health HTTP server",
		zap.String("addr", s.httpServer.Addr),
		zap.Duration("write_timeout", s.httpServer.WriteTimeout),
	)
	return s.httpServer.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping wisefido-health HTTP server")
	return s.httpServer.Shutdown(ctx)
}
