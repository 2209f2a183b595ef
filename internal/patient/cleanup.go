package patient

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/whitewolf2000ani/hiperhealth/internal/logger"
)

// CleanupService permanently removes patient data once its retention window
// has passed. Soft-deleted patients are purged after the deletion retention
// period, and intake sessions abandoned before completion are purged after
// the abandonment window.
type CleanupService struct {
	db                 *sql.DB
	deletedRetention   time.Duration
	abandonedRetention time.Duration
}

func NewCleanupService(db *sql.DB, deletedRetention, abandonedRetention time.Duration) *CleanupService {
	return &CleanupService{
		db:                 db,
		deletedRetention:   deletedRetention,
		abandonedRetention: abandonedRetention,
	}
}

// PurgeDeletedPatients hard-deletes patients soft-deleted before the
// retention cutoff. Consultations and selections go with them via cascading
// foreign keys.
func (s *CleanupService) PurgeDeletedPatients(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-s.deletedRetention)
	logger.WithField("cutoff", cutoff.Format(time.RFC3339)).Info("purging soft-deleted patients")

	result, err := s.db.ExecContext(ctx,
		`DELETE FROM patients WHERE deleted_at IS NOT NULL AND deleted_at < $1`,
		cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge deleted patients: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count purged patients: %w", err)
	}

	logger.WithField("purged", rows).Info("soft-deleted patient purge finished")
	return int(rows), nil
}

// PurgeAbandonedConsultations hard-deletes patients whose intake session was
// started before the abandonment cutoff and never completed.
func (s *CleanupService) PurgeAbandonedConsultations(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-s.abandonedRetention)
	logger.WithField("cutoff", cutoff.Format(time.RFC3339)).Info("purging abandoned consultations")

	result, err := s.db.ExecContext(ctx, `
		DELETE FROM patients p
		WHERE p.deleted_at IS NULL
		AND p.created_at < $1
		AND NOT EXISTS (
			SELECT 1 FROM consultations c
			WHERE c.patient_id = p.id AND c.completed_at IS NOT NULL
		)`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge abandoned consultations: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count purged consultations: %w", err)
	}

	logger.WithField("purged", rows).Info("abandoned consultation purge finished")
	return int(rows), nil
}
