package main

import (
	"context"
	"time"

	"github.com/whitewolf2000ani/hiperhealth/internal/config"
	"github.com/whitewolf2000ani/hiperhealth/internal/db"
	"github.com/whitewolf2000ani/hiperhealth/internal/logger"
	"github.com/whitewolf2000ani/hiperhealth/internal/patient"
)

// Retention job, intended to run on a schedule (cron or a Kubernetes
// CronJob). Purges patients past their deletion retention window and intake
// sessions abandoned before completion.
func main() {
	logger.Init()
	cfg := config.Load()

	database, err := db.Connect(cfg)
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to connect to database")
	}
	defer database.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	cleanup := patient.NewCleanupService(database, cfg.PatientRetention, cfg.AbandonedRetention)

	purgedDeleted, err := cleanup.PurgeDeletedPatients(ctx)
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to purge deleted patients")
	}

	purgedAbandoned, err := cleanup.PurgeAbandonedConsultations(ctx)
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to purge abandoned consultations")
	}

	logger.WithFields(map[string]interface{}{
		"deleted_purged":   purgedDeleted,
		"abandoned_purged": purgedAbandoned,
	}).Info("retention cleanup finished")
}
