package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wisefido-health/internal/config"
	httpapi "wisefido-health/internal/http"
	logpkg "wisefido-health/internal/logger"
	"wisefido-health/internal/service"

	"go.uber.org/zap"
)

func main() {
	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化Logger
	logger, err := logpkg.NewLogger(cfg.Log.Level, cfg.Log.Format, "wisefido-health")
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("Starting wisefido-health service",
		zap.String("version", "1.0.0"),
		zap.String("merge_strategy", cfg.Health.MergeStrategy),
		zap.String("device_mode", cfg.Providers.Device.Mode),
		zap.Bool("clinical_enabled", cfg.Providers.Clinical.Enabled),
		zap.Duration("stale_after", cfg.StaleAfter()),
	)

	// 创建服务
	healthService, err := service.NewHealthService(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to create health service", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := healthService.Start(ctx); err != nil {
		logger.Fatal("Failed to start health service", zap.Error(err))
	}

	// HTTP
	router := httpapi.NewRouter(logger)
	router.RegisterHealthRoutes(httpapi.NewHealthHandler(healthService, logger))
	server := service.NewServer(cfg, router, logger)

	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// 等待中断信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	logger.Info("Received signal, shutting down", zap.String("signal", sig.String()))

	// 优雅关闭
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Stop(shutdownCtx); err != nil {
		logger.Error("Error stopping HTTP server", zap.Error(err))
	}
	cancel()
	if err := healthService.Stop(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Service stopped")
}
