package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"example.com/gymstore/internal/api"
	"example.com/gymstore/internal/auth"
	"example.com/gymstore/internal/cache"
	"example.com/gymstore/internal/config"
	"example.com/gymstore/internal/kv"
	"example.com/gymstore/internal/observability"
	"example.com/gymstore/internal/service"
	httptransport "example.com/gymstore/internal/transport/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var invalidator cache.Invalidator = cache.NoopInvalidator{}
	if cfg.CacheInvalidationURL != "" {
		invalidator = cache.NewHTTPInvalidator(cfg.CacheInvalidationURL, cfg.CacheInvalidationToken, cfg.HTTPTimeout)
	}
	onChange := cache.Listener(invalidator, cfg.HTTPTimeout, logger)

	base, err := kv.Open(cfg.StoreDSN, logger)
	if err != nil {
		logger.Fatal("open store", zap.String("dsn", cfg.StoreDSN), zap.Error(err))
	}
	defer base.Close()
	store := kv.NewNotifying(base, onChange)

	svc, err := service.New(store, service.WithLogger(logger), service.WithPrefix(cfg.KeyPrefix))
	if err != nil {
		logger.Fatal("build service", zap.Error(err))
	}
	report, err := svc.Init(cfg.MigrateOnStart)
	if err != nil {
		logger.Fatal("initialise store", zap.Error(err))
	}
	if report.Migration != nil {
		logger.Info("legacy migration finished",
			zap.String("run_id", report.Migration.RunID),
			zap.Int("records", report.Migration.Total()),
		)
	}

	var wg sync.WaitGroup
	if file, ok := base.(*kv.File); ok && cfg.WatchStore {
		watcher, err := kv.NewWatcher(file, logger)
		if err != nil {
			logger.Fatal("watch store", zap.Error(err))
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := watcher.Run(ctx, onChange); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("store watcher stopped", zap.Error(err))
			}
		}()
	}

	mux := http.NewServeMux()
	api.NewHandler(svc, api.WithLogger(logger)).RegisterRoutes(mux)

	authMiddleware := auth.NewMiddleware(auth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer})
	server := httptransport.NewServer(
		httptransport.DefaultServerConfig(cfg.HTTPAddress, cfg.HTTPTimeout),
		httptransport.CORS(cfg.CORSOrigin, httptransport.Logging(logger, authMiddleware.Wrap(mux))),
	)
	metricsSrv := httptransport.NewMetricsServer(cfg.MetricsAddress)

	go func() {
		logger.Info("metrics listening", zap.String("address", cfg.MetricsAddress))
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server error", zap.Error(err))
		}
	}()
	go func() {
		logger.Info("gymstore api listening", zap.String("address", cfg.HTTPAddress))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)
	<-shutdownCh
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics shutdown failed", zap.Error(err))
	}
	wg.Wait()
}
