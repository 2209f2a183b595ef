package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/whitewolf2000ani/hiperhealth/internal/cache"
	"github.com/whitewolf2000ani/hiperhealth/internal/config"
	"github.com/whitewolf2000ani/hiperhealth/internal/db"
	"github.com/whitewolf2000ani/hiperhealth/internal/engine"
	internalhttp "github.com/whitewolf2000ani/hiperhealth/internal/http"
	"github.com/whitewolf2000ani/hiperhealth/internal/logger"
	"github.com/whitewolf2000ani/hiperhealth/internal/messaging"
	"github.com/whitewolf2000ani/hiperhealth/internal/telemetry"
)

func main() {
	logger.Init()
	cfg := config.Load()
	ctx := context.Background()

	provider, err := telemetry.InitProvider(ctx, telemetry.LoadConfig())
	if err != nil {
		logger.Log.WithError(err).Warn("telemetry disabled")
	}
	if provider != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := provider.Shutdown(shutdownCtx); err != nil {
				logger.Log.WithError(err).Warn("telemetry shutdown failed")
			}
		}()
	}

	metrics, err := telemetry.InitMetrics()
	if err != nil {
		logger.Log.WithError(err).Warn("metrics disabled")
	}

	database, err := db.Connect(cfg)
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to connect to database")
	}
	defer database.Close()

	if err := db.Migrate(ctx, database); err != nil {
		logger.Log.WithError(err).Fatal("failed to run migrations")
	}

	statsCache := cache.Connect(cfg)
	defer statsCache.Close()

	publisher, err := messaging.NewPublisher(cfg.RabbitMQURL)
	if err != nil {
		logger.Log.WithError(err).Warn("event publishing disabled")
	}
	defer publisher.Close()

	limits := config.DefaultLimits()
	if cfg.LimitsPath != "" {
		limits, err = config.LoadLimits(cfg.LimitsPath)
		if err != nil {
			logger.Log.WithError(err).Fatal("failed to load intake limits")
		}
	}

	router := internalhttp.SetupRouter(internalhttp.Dependencies{
		DB:         database,
		Publisher:  publisher,
		Engine:     engine.NewClient(cfg),
		StatsCache: statsCache,
		Config:     cfg,
		Limits:     limits,
		Metrics:    metrics,
	})

	server := &http.Server{
		Addr:         cfg.ServerHost + ":" + cfg.ServerPort,
		Handler:      internalhttp.CORSMiddleware(router),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		logger.WithField("addr", server.Addr).Info("intake service listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Log.WithError(err).Error("graceful shutdown failed")
	}
}
