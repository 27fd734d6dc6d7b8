package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"truthlens/internal/config"
	"truthlens/internal/events"
	"truthlens/internal/logger"
	"truthlens/internal/models"
	"truthlens/internal/services"
	"truthlens/internal/storage"
)

// ReportArchiveWorker copies completed analyses from Kafka into the report archive
type ReportArchiveWorker struct {
	consumer *events.Consumer
	archive  services.ArchiveServiceInterface
}

func NewReportArchiveWorker(consumer *events.Consumer, archive services.ArchiveServiceInterface) *ReportArchiveWorker {
	return &ReportArchiveWorker{
		consumer: consumer,
		archive:  archive,
	}
}

func (w *ReportArchiveWorker) archiveReport(ctx context.Context, event events.AnalysisCompleted) (retErr error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Log.WithFields(map[string]interface{}{
				"panic":          r,
				"stack_trace":    logger.GetStackTrace(0),
				"history_id":     event.HistoryID,
				"correlation_id": event.CorrelationID,
			}).Error("Worker panic while archiving report")

			retErr = fmt.Errorf("worker panicked: %v", r)
		}
	}()

	logger.WithHistoryItem(event.CorrelationID, event.HistoryID).Info("Worker picked up completed analysis")
	return w.archive.Archive(ctx, event)
}

// Run consumes until ctx is cancelled
func (w *ReportArchiveWorker) Run(ctx context.Context) error {
	logger.Log.Info("Worker ready to archive reports")
	return w.consumer.Run(ctx, w.archiveReport)
}

func main() {
	defer func() {
		if r := recover(); r != nil {
			logger.Log.WithFields(map[string]interface{}{
				"panic":       r,
				"stack_trace": logger.GetStackTrace(0),
			}).Fatal("Worker application panicked")
		}
	}()

	logger.Log.Info("Starting TruthLens report archive worker")

	cfg, err := config.Load()
	if err != nil {
		logger.LogErrorWithStack(err, map[string]interface{}{
			"operation": "config_load",
		})
		logger.Log.WithError(err).Fatal("Failed to load worker configuration")
	}
	logger.SetLevel(cfg.LogLevel)
	logger.Log.WithField("log_level", cfg.LogLevel).Info("Worker configuration loaded")

	if !cfg.KafkaEnabled() {
		logger.Log.Fatal("KAFKA_BOOTSTRAP_SERVERS is required for the archive worker")
	}
	if cfg.DatabaseURL == "" {
		logger.Log.Fatal("DATABASE_URL is required for the archive worker")
	}

	logger.Log.WithField("database_url", storage.MaskDatabaseURL(cfg.DatabaseURL)).Info("Worker connecting to database")
	db, err := storage.OpenDatabase(cfg.DatabaseURL)
	if err != nil {
		logger.LogErrorWithStack(err, map[string]interface{}{
			"operation":    "database_connect",
			"database_url": storage.MaskDatabaseURL(cfg.DatabaseURL),
		})
		logger.Log.WithError(err).Fatal("Failed to connect to database")
	}
	if err := models.AutoMigrate(db); err != nil {
		logger.LogErrorWithStack(err, map[string]interface{}{
			"operation": "database_migrate",
		})
		logger.Log.WithError(err).Fatal("Failed to migrate database")
	}
	logger.Log.Info("Worker database connected and migrated")

	logger.Log.WithFields(map[string]interface{}{
		"kafka_servers":  cfg.KafkaBootstrapServers,
		"topic":          cfg.KafkaTopicAnalysis,
		"consumer_group": cfg.KafkaConsumerGroup,
	}).Info("Worker joining consumer group")
	consumer := events.NewKafkaConsumer(events.Config{
		BootstrapServers: cfg.KafkaBootstrapServers,
		Topic:            cfg.KafkaTopicAnalysis,
		GroupID:          cfg.KafkaConsumerGroup,
	})
	defer func() {
		logger.Log.Info("Closing worker Kafka consumer")
		if err := consumer.Close(); err != nil {
			logger.Log.WithError(err).Warn("Failed to close worker Kafka consumer")
		}
	}()

	worker := NewReportArchiveWorker(consumer, services.NewArchiveService(db))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Log.Info("Worker shutdown signal received")
		cancel()
	}()

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.LogErrorWithStack(err, map[string]interface{}{
			"operation": "worker_run",
		})
		logger.Log.WithError(err).Fatal("Worker failed")
	}

	logger.Log.Info("Report archive worker stopped gracefully")
}
