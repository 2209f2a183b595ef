package db

import (
	"context"
	"database/sql"
	"fmt"
)

// Migration statements are idempotent so the service can apply them on every
// start without tracking schema versions.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS patients (
		id         UUID PRIMARY KEY,
		lang       VARCHAR(10) NOT NULL DEFAULT 'en',
		age        INTEGER,
		gender     VARCHAR(50),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ,
		deleted_at TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS consultations (
		id                UUID PRIMARY KEY,
		patient_id        UUID NOT NULL REFERENCES patients(id) ON DELETE CASCADE,
		lang              VARCHAR(10) NOT NULL DEFAULT 'en',
		started_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
		completed_at      TIMESTAMPTZ,
		weight_kg         DOUBLE PRECISION,
		height_cm         DOUBLE PRECISION,
		diet              TEXT,
		sleep_hours       DOUBLE PRECISION,
		physical_activity TEXT,
		mental_exercises  TEXT,
		symptoms          TEXT,
		mental_health     TEXT,
		medical_reports   JSONB,
		wearable_data     JSONB,
		ai_diagnosis      JSONB,
		ai_exams          JSONB
	)`,
	`CREATE INDEX IF NOT EXISTS idx_consultations_patient_id ON consultations(patient_id)`,
	`CREATE TABLE IF NOT EXISTS diagnoses (
		id   SERIAL PRIMARY KEY,
		name VARCHAR(255) UNIQUE NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS exams (
		id   SERIAL PRIMARY KEY,
		name VARCHAR(255) UNIQUE NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS consultation_diagnoses (
		consultation_id UUID NOT NULL REFERENCES consultations(id) ON DELETE CASCADE,
		diagnosis_id    INTEGER NOT NULL REFERENCES diagnoses(id),
		accuracy        INTEGER,
		relevance       INTEGER,
		usefulness      INTEGER,
		coherence       INTEGER,
		safety          INTEGER,
		comments        TEXT,
		PRIMARY KEY (consultation_id, diagnosis_id)
	)`,
	`CREATE TABLE IF NOT EXISTS consultation_exams (
		consultation_id UUID NOT NULL REFERENCES consultations(id) ON DELETE CASCADE,
		exam_id         INTEGER NOT NULL REFERENCES exams(id),
		accuracy        INTEGER,
		relevance       INTEGER,
		usefulness      INTEGER,
		coherence       INTEGER,
		safety          INTEGER,
		comments        TEXT,
		PRIMARY KEY (consultation_id, exam_id)
	)`,
}

// Migrate applies the intake schema to the connected database.
func Migrate(ctx context.Context, database *sql.DB) error {
	for _, stmt := range migrations {
		if _, err := database.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply migration: %w", err)
		}
	}
	return nil
}
