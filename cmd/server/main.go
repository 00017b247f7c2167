// Command server runs the Stream2Graph session-oriented HTTP surface:
// one listener for the JSON API plus websocket live-push, a second for
// Prometheus /metrics.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/linlinlin-zhang/stream2graph/internal/config"
	"github.com/linlinlin-zhang/stream2graph/internal/httpapi"
	"github.com/linlinlin-zhang/stream2graph/internal/ratelimit"
	"github.com/linlinlin-zhang/stream2graph/internal/session"
	"github.com/linlinlin-zhang/stream2graph/internal/tracing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := buildLogger(cfg.Logging.Level, cfg.Logging.Format)
	defer logger.Sync()

	if err := tracing.Initialize(cfg.Tracing, logger); err != nil {
		logger.Error("tracing init failed", zap.Error(err))
	}

	registry := session.NewRegistry(logger)
	limiter := ratelimit.New(20.0, 40)
	server := httpapi.NewServer(registry, cfg, limiter, logger)

	mux := httpapi.NewRouter(server)
	apiSrv := &http.Server{
		Addr:         portAddr(cfg.Server.Port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsSrv := &http.Server{
		Addr:         portAddr(cfg.Server.MetricsPort),
		Handler:      metricsMux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("metrics server listening", zap.Int("port", cfg.Server.MetricsPort))
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()

	go func() {
		logger.Info("api server listening", zap.Int("port", cfg.Server.Port))
		if err := apiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("api server failed", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	_ = apiSrv.Shutdown(ctx)
	_ = metricsSrv.Shutdown(ctx)
}

func buildLogger(level, format string) *zap.Logger {
	var zcfg zap.Config
	if format == "json" {
		zcfg = zap.NewProductionConfig()
	} else {
		zcfg = zap.NewDevelopmentConfig()
	}
	if lvl, err := zap.ParseAtomicLevel(level); err == nil {
		zcfg.Level = lvl
	}
	logger, err := zcfg.Build()
	if err != nil {
		logger = zap.NewNop()
	}
	return logger
}

func portAddr(port int) string {
	if port <= 0 {
		port = 8080
	}
	return ":" + strconv.Itoa(port)
}
