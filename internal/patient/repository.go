package patient

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/whitewolf2000ani/hiperhealth/internal/consultation"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// CreatePatient inserts a new patient with an open consultation and returns
// the generated identifier.
func (r *Repository) CreatePatient(ctx context.Context, lang string) (string, time.Time, error) {
	patientID := uuid.New().String()
	consultationID := uuid.New().String()
	now := time.Now().UTC()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO patients (id, lang, created_at, updated_at) VALUES ($1, $2, $3, $3)`,
		patientID, lang, now)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to insert patient: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO consultations (id, patient_id, lang, started_at) VALUES ($1, $2, $3, $4)`,
		consultationID, patientID, lang, now)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to insert consultation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", time.Time{}, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return patientID, now, nil
}

const listPatientsQuery = `
	SELECT p.id, p.lang, p.created_at,
	       p.age IS NOT NULL,
	       c.diet IS NOT NULL,
	       c.symptoms IS NOT NULL,
	       c.mental_health IS NOT NULL,
	       c.medical_reports IS NOT NULL,
	       c.wearable_data IS NOT NULL,
	       EXISTS (SELECT 1 FROM consultation_diagnoses cd WHERE cd.consultation_id = c.id),
	       EXISTS (SELECT 1 FROM consultation_exams ce WHERE ce.consultation_id = c.id),
	       c.completed_at IS NOT NULL
	FROM patients p
	LEFT JOIN LATERAL (
		SELECT id, diet, symptoms, mental_health, medical_reports, wearable_data, completed_at
		FROM consultations
		WHERE patient_id = p.id
		ORDER BY started_at DESC
		LIMIT 1
	) c ON true
	WHERE p.deleted_at IS NULL
	ORDER BY p.created_at DESC
	LIMIT $1 OFFSET $2`

// ListPatients returns one page of dashboard summaries, newest first, with
// the wizard position derived from the stored step flags.
func (r *Repository) ListPatients(ctx context.Context, limit, offset int) ([]Summary, int, error) {
	var total int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM patients WHERE deleted_at IS NULL`).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count patients: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, listPatientsQuery, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list patients: %w", err)
	}
	defer rows.Close()

	summaries := []Summary{}
	for rows.Next() {
		var s Summary
		var progress consultation.Progress
		var completed bool
		err := rows.Scan(&s.PatientID, &s.Lang, &s.CreatedAt,
			&progress.Demographics, &progress.Lifestyle, &progress.Symptoms,
			&progress.Mental, &progress.Tests, &progress.Wearable,
			&progress.Diagnosis, &progress.Exams, &completed)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan patient row: %w", err)
		}
		s.IsComplete = completed && progress.IsComplete()
		s.CurrentStep = string(progress.Next())
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate patient rows: %w", err)
	}
	return summaries, total, nil
}

// SoftDelete hides the patient from every read path. Row data is purged
// later by the retention job.
func (r *Repository) SoftDelete(ctx context.Context, patientID string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE patients SET deleted_at = $1, updated_at = $1 WHERE id = $2 AND deleted_at IS NULL`,
		time.Now().UTC(), patientID)
	if err != nil {
		return fmt.Errorf("failed to delete patient: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if rows == 0 {
		return consultation.ErrNotFound
	}
	return nil
}

const statsQuery = `
	SELECT p.age IS NOT NULL,
	       c.diet IS NOT NULL,
	       c.symptoms IS NOT NULL,
	       c.mental_health IS NOT NULL,
	       c.medical_reports IS NOT NULL,
	       c.wearable_data IS NOT NULL,
	       EXISTS (SELECT 1 FROM consultation_diagnoses cd WHERE cd.consultation_id = c.id),
	       EXISTS (SELECT 1 FROM consultation_exams ce WHERE ce.consultation_id = c.id),
	       c.completed_at IS NOT NULL
	FROM patients p
	LEFT JOIN LATERAL (
		SELECT id, diet, symptoms, mental_health, medical_reports, wearable_data, completed_at
		FROM consultations
		WHERE patient_id = p.id
		ORDER BY started_at DESC
		LIMIT 1
	) c ON true
	WHERE p.deleted_at IS NULL`

// Stats aggregates the dashboard counters, deriving each in-progress
// patient's current step from the same flags the list query uses.
func (r *Repository) Stats(ctx context.Context) (*Stats, error) {
	rows, err := r.db.QueryContext(ctx, statsQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate stats: %w", err)
	}
	defer rows.Close()

	stats := Stats{Steps: map[string]int{}}
	for rows.Next() {
		var progress consultation.Progress
		var completed bool
		err := rows.Scan(
			&progress.Demographics, &progress.Lifestyle, &progress.Symptoms,
			&progress.Mental, &progress.Tests, &progress.Wearable,
			&progress.Diagnosis, &progress.Exams, &completed)
		if err != nil {
			return nil, fmt.Errorf("failed to scan stats row: %w", err)
		}

		stats.TotalPatients++
		if completed {
			stats.CompletedConsultations++
			continue
		}
		stats.InProgress++
		stats.Steps[string(progress.Next())]++
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate stats rows: %w", err)
	}
	return &stats, nil
}
