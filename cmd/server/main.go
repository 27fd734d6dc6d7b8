package main

import (
	"context"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"truthlens/internal/analysis"
	"truthlens/internal/config"
	"truthlens/internal/events"
	"truthlens/internal/handlers"
	"truthlens/internal/history"
	"truthlens/internal/logger"
	"truthlens/internal/middleware"
	"truthlens/internal/models"
	"truthlens/internal/services"
	"truthlens/internal/storage"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			logger.Log.WithFields(map[string]interface{}{
				"panic":       r,
				"stack_trace": logger.GetStackTrace(0),
			}).Fatal("Application panicked")
		}
	}()

	logger.Log.Info("Starting TruthLens server")

	cfg, err := config.Load()
	if err != nil {
		logger.LogErrorWithStack(err, map[string]interface{}{
			"operation": "config_load",
		})
		logger.Log.WithError(err).Fatal("Failed to load configuration")
	}
	logger.SetLevel(cfg.LogLevel)
	logger.Log.WithFields(map[string]interface{}{
		"log_level":         cfg.LogLevel,
		"stage_delay_scale": cfg.StageDelayScale,
		"kafka_enabled":     cfg.KafkaEnabled(),
	}).Info("Configuration loaded successfully")

	kv, db := openStorage(cfg)

	store := history.NewStore(kv)
	logger.Log.WithField("count", store.Len()).Info("History loaded")

	rng := analysis.NewRand(cfg.RandomSeed)
	simulator := analysis.NewSimulator(
		analysis.NewRandomSourceSynthesizer(rng),
		analysis.NewRandomVerdictSynthesizer(rng),
		analysis.WithDelayScale(cfg.StageDelayScale),
	)

	publisher := events.NewPublisher(events.Config{
		BootstrapServers: cfg.KafkaBootstrapServers,
		Topic:            cfg.KafkaTopicAnalysis,
	})
	defer func() {
		logger.Log.Info("Closing event publisher")
		if err := publisher.Close(); err != nil {
			logger.Log.WithError(err).Warn("Failed to close event publisher")
		}
	}()
	if cfg.KafkaEnabled() {
		logger.Log.WithFields(map[string]interface{}{
			"kafka_servers": cfg.KafkaBootstrapServers,
			"topic":         cfg.KafkaTopicAnalysis,
		}).Info("Publishing completed analyses to Kafka")
	}

	analysisService := services.NewAnalysisService(store, simulator, publisher, cfg)
	defer analysisService.Close()

	var archiveHandler *handlers.ArchiveHandler
	if db != nil {
		archiveHandler = handlers.NewArchiveHandler(services.NewArchiveService(db))
	}

	router := setupRouter(cfg,
		handlers.NewAnalysisHandler(analysisService),
		handlers.NewHistoryHandler(analysisService),
		archiveHandler,
	)

	// request contexts end with streamCtx so open streams let Shutdown finish
	streamCtx, endStreams := context.WithCancel(context.Background())
	defer endStreams()

	// no write timeout: the stage stream stays open for the whole run
	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		BaseContext:       func(net.Listener) context.Context { return streamCtx },
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"port":       cfg.ServerPort,
			"health_url": "http://localhost:" + cfg.ServerPort + "/health",
		}).Info("Starting HTTP server")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.LogErrorWithStack(err, map[string]interface{}{
				"operation": "server_listen",
				"port":      cfg.ServerPort,
			})
			logger.Log.WithError(err).Fatal("Failed to start server")
		}
	}()

	<-ctx.Done()
	stop()
	logger.Log.Info("Shutdown signal received, starting graceful shutdown")

	endStreams()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Log.WithError(err).Error("Server forced to shutdown")
	}

	logger.Log.Info("Server gracefully stopped")
}

// openStorage picks the history backend. An empty DATABASE_URL keeps
// history in process memory and disables the report archive.
func openStorage(cfg *config.Config) (storage.KeyValueStore, *gorm.DB) {
	if cfg.DatabaseURL == "" {
		logger.Log.Warn("DATABASE_URL is empty, history will not survive a restart")
		return storage.NewMemoryStore(), nil
	}

	logger.Log.WithField("database_url", storage.MaskDatabaseURL(cfg.DatabaseURL)).Info("Connecting to database")
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
	logger.Log.Info("Database connected and migrated")

	return storage.NewGormStore(db), db
}

func setupRouter(cfg *config.Config, analysisHandler *handlers.AnalysisHandler, historyHandler *handlers.HistoryHandler, archiveHandler *handlers.ArchiveHandler) *gin.Engine {
	if cfg.LogLevel == "DEBUG" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(middleware.CORSMiddleware(cfg.CORSOrigins))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.RecoveryMiddleware())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "truthlens",
			"version": "1.0.0",
		})
	})

	handlers.RegisterRoutes(router.Group("/api"), analysisHandler, historyHandler, archiveHandler)

	return router
}
