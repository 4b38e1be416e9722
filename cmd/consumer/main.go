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

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"example.com/gymstore/internal/backup"
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

	store, err := kv.Open(cfg.StoreDSN, logger)
	if err != nil {
		logger.Fatal("open store", zap.String("dsn", cfg.StoreDSN), zap.Error(err))
	}
	defer store.Close()

	svc, err := service.New(store, service.WithLogger(logger), service.WithPrefix(cfg.KeyPrefix))
	if err != nil {
		logger.Fatal("build service", zap.Error(err))
	}
	if _, err := svc.Init(false); err != nil {
		logger.Fatal("initialise store", zap.Error(err))
	}

	metricsSrv := httptransport.NewMetricsServer(cfg.MetricsAddress)
	go func() {
		logger.Info("restore consumer metrics listening", zap.String("address", cfg.MetricsAddress))
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server error", zap.Error(err))
		}
	}()

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.KafkaBrokers,
		GroupID:        cfg.ConsumerGroupID,
		Topic:          cfg.BackupTopic,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: time.Second,
	})
	deadLetters := backup.NewPublisher(cfg.KafkaBrokers, backup.WithPublisherLogger(logger))
	defer deadLetters.Close()

	proc := backup.NewProcessor(reader, backup.RestoreHandler{Importer: svc},
		backup.WithLogger(logger),
		backup.WithDeadLetter(deadLetters.TopicWriter(cfg.DeadLetterTopic)),
	)

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer reader.Close()
		if err := proc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("consumer stopped with error", zap.String("topic", cfg.BackupTopic), zap.Error(err))
		}
	}()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	<-signals
	logger.Info("restore consumer shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics shutdown error", zap.Error(err))
	}

	<-done
}
