package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Abdurahmanit/GroupProject/gallery-service/internal/adapter/rest"
	"github.com/Abdurahmanit/GroupProject/gallery-service/internal/app"
	"github.com/Abdurahmanit/GroupProject/gallery-service/internal/config"
	"github.com/Abdurahmanit/GroupProject/gallery-service/internal/platform/logger"
	"github.com/Abdurahmanit/GroupProject/gallery-service/internal/platform/metrics"
	"github.com/Abdurahmanit/GroupProject/gallery-service/internal/platform/tracer"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Printf("INFO: .env file not found or error loading: %v. Relying on OS environment variables.\n", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.New(&logger.LoggerConfig{}).Fatal("Failed to load configuration", zap.Error(err))
	}

	appLogger := logger.New(cfg.Logger())
	defer func() { _ = appLogger.Sync() }()
	appLogger.Info("Configuration loaded",
		zap.String("service_name", cfg.ServiceName),
		zap.String("http_port", cfg.HTTPPort),
		zap.String("blob_backend", cfg.BlobBackend),
		zap.Bool("cache_enabled", cfg.RedisAddress != ""),
		zap.Bool("events_enabled", cfg.NATSURL != ""),
	)

	tp := tracer.InitTracer(cfg.Tracer(), appLogger)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			appLogger.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}()

	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	application, err := app.New(startCtx, cfg, appLogger)
	cancelStart()
	if err != nil {
		appLogger.Fatal("Failed to initialize application", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := application.Close(ctx); err != nil {
			appLogger.Error("Error closing connections", zap.Error(err))
		}
	}()

	handler := rest.NewGalleryHandler(application.Gallery, appLogger, cfg.MaxUploadBytes, cfg.AssetCacheMaxAge)
	httpSrv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           rest.NewRouter(handler, cfg.ServiceName, appLogger, application.Metrics),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		appLogger.Info("Starting HTTP server", zap.String("addr", httpSrv.Addr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	metricsSrv := metrics.NewMetricsServer(cfg.PrometheusMetricsPort, application.Metrics.Registry)
	go func() {
		if err := metrics.StartMetricsServer(metricsSrv, appLogger); err != nil {
			appLogger.Error("Prometheus metrics server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	appLogger.Info("Received shutdown signal", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		appLogger.Error("HTTP server shutdown failed", zap.Error(err))
	}
	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(ctx); err != nil {
			appLogger.Error("Metrics server shutdown failed", zap.Error(err))
		}
	}
	appLogger.Info("Application shutting down...")
}
