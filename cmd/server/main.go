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

	"github.com/zfogg/hypechain/backend/internal/config"
	"github.com/zfogg/hypechain/backend/internal/kernel"
	"github.com/zfogg/hypechain/backend/internal/logger"
	"github.com/zfogg/hypechain/backend/internal/metrics"
	"github.com/zfogg/hypechain/backend/internal/telemetry"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	if err := logger.Initialize(cfg.LogLevel, cfg.LogFile); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Close() }()

	logger.Log.Info("=== HypeChain server starting ===",
		zap.String("environment", cfg.Environment),
		zap.String("db_driver", cfg.DBDriver),
	)

	metrics.Initialize()

	tp, err := telemetry.InitTracer(telemetry.ConfigFrom(cfg))
	if err != nil {
		logger.FatalWithFields("Failed to initialize tracing", err)
	}

	k, err := kernel.Bootstrap(cfg, kernel.BootstrapOptions{Migrate: true, Live: true})
	if err != nil {
		logger.FatalWithFields("Failed to initialize dependencies", err)
	}
	if tp != nil {
		// registered last so spans from the other hooks still export
		k.OnCleanup(tp.Shutdown)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           newRouter(cfg, k),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Log.Info("HypeChain backend listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.FatalWithFields("Failed to start server", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.ErrorWithFields("Server forced to shutdown", err)
	}
	if err := k.Cleanup(ctx); err != nil {
		logger.ErrorWithFields("Cleanup incomplete", err)
	}

	logger.Log.Info("Server exited")
}
