package consultation

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when no live patient matches the given id.
var ErrNotFound = errors.New("patient not found")

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// latestConsultationID resolves the most recent consultation of a live
// patient. Every step submission operates on that row.
const latestConsultationQuery = `
	SELECT c.id
	FROM consultations c
	JOIN patients p ON p.id = c.patient_id
	WHERE c.patient_id = $1 AND p.deleted_at IS NULL
	ORDER BY c.started_at DESC
	LIMIT 1
`

func (r *Repository) latestConsultationID(ctx context.Context, q queryRower, patientID string) (string, error) {
	var id string
	err := q.QueryRowContext(ctx, latestConsultationQuery, patientID).Scan(&id)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve consultation: %w", err)
	}
	return id, nil
}

// queryRower is satisfied by both *sql.DB and *sql.Tx.
type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func (r *Repository) GetRecord(ctx context.Context, patientID string) (*Record, error) {
	query := `
		SELECT p.id, p.lang, p.age, p.gender, p.created_at,
		       c.id, c.completed_at, c.weight_kg, c.height_cm, c.diet,
		       c.sleep_hours, c.physical_activity, c.mental_exercises,
		       c.symptoms, c.mental_health,
		       c.medical_reports, c.wearable_data, c.ai_diagnosis, c.ai_exams
		FROM patients p
		LEFT JOIN LATERAL (
			SELECT * FROM consultations
			WHERE patient_id = p.id
			ORDER BY started_at DESC
			LIMIT 1
		) c ON true
		WHERE p.id = $1 AND p.deleted_at IS NULL
	`

	var record Record
	var consultationID sql.NullString
	var completedAt sql.NullTime
	var age sql.NullInt64
	var gender, diet, physicalActivity, mentalExercises, symptoms, mentalHealth sql.NullString
	var weightKg, heightCm, sleepHours sql.NullFloat64
	var medicalReports, wearableData, aiDiagnosis, aiExams []byte

	err := r.db.QueryRowContext(ctx, query, patientID).Scan(
		&record.PatientID,
		&record.Lang,
		&age,
		&gender,
		&record.CreatedAt,
		&consultationID,
		&completedAt,
		&weightKg,
		&heightCm,
		&diet,
		&sleepHours,
		&physicalActivity,
		&mentalExercises,
		&symptoms,
		&mentalHealth,
		&medicalReports,
		&wearableData,
		&aiDiagnosis,
		&aiExams,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query patient record: %w", err)
	}

	if age.Valid {
		v := int(age.Int64)
		record.Age = &v
	}
	if gender.Valid {
		record.Gender = &gender.String
	}
	if completedAt.Valid {
		record.CompletedAt = &completedAt.Time
	}
	if weightKg.Valid {
		record.WeightKg = &weightKg.Float64
	}
	if heightCm.Valid {
		record.HeightCm = &heightCm.Float64
	}
	if diet.Valid {
		record.Diet = &diet.String
	}
	if sleepHours.Valid {
		record.SleepHours = &sleepHours.Float64
	}
	if physicalActivity.Valid {
		record.PhysicalActivity = &physicalActivity.String
	}
	if mentalExercises.Valid {
		record.MentalExercises = &mentalExercises.String
	}
	if symptoms.Valid {
		record.Symptoms = &symptoms.String
	}
	if mentalHealth.Valid {
		record.MentalHealth = &mentalHealth.String
	}
	if medicalReports != nil {
		record.MedicalReports = json.RawMessage(medicalReports)
	}
	if wearableData != nil {
		record.WearableData = json.RawMessage(wearableData)
	}
	if aiDiagnosis != nil {
		record.AIDiagnosis = json.RawMessage(aiDiagnosis)
	}
	if aiExams != nil {
		record.AIExams = json.RawMessage(aiExams)
	}

	if consultationID.Valid {
		record.SelectedDiagnoses, err = r.selections(ctx, consultationID.String, "consultation_diagnoses", "diagnosis_id", "diagnoses")
		if err != nil {
			return nil, err
		}
		record.SelectedExams, err = r.selections(ctx, consultationID.String, "consultation_exams", "exam_id", "exams")
		if err != nil {
			return nil, err
		}
	}

	return &record, nil
}

func (r *Repository) selections(ctx context.Context, consultationID, junctionTable, fkColumn, catalogTable string) ([]Selection, error) {
	query := fmt.Sprintf(`
		SELECT cat.name, j.accuracy, j.relevance, j.usefulness, j.coherence, j.safety, j.comments
		FROM %s j
		JOIN %s cat ON cat.id = j.%s
		WHERE j.consultation_id = $1
		ORDER BY cat.name
	`, junctionTable, catalogTable, fkColumn)

	rows, err := r.db.QueryContext(ctx, query, consultationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query selections: %w", err)
	}
	defer rows.Close()

	var selections []Selection
	for rows.Next() {
		var sel Selection
		var accuracy, relevance, usefulness, coherence, safety sql.NullInt64
		var comments sql.NullString

		if err := rows.Scan(&sel.Name, &accuracy, &relevance, &usefulness, &coherence, &safety, &comments); err != nil {
			return nil, fmt.Errorf("failed to scan selection: %w", err)
		}

		sel.Ratings.Accuracy = nullableInt(accuracy)
		sel.Ratings.Relevance = nullableInt(relevance)
		sel.Ratings.Usefulness = nullableInt(usefulness)
		sel.Ratings.Coherence = nullableInt(coherence)
		sel.Ratings.Safety = nullableInt(safety)
		if comments.Valid {
			sel.Ratings.Comments = comments.String
		}

		selections = append(selections, sel)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating selections: %w", err)
	}

	return selections, nil
}

func nullableInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}

func (r *Repository) SaveDemographics(ctx context.Context, patientID string, req DemographicsRequest) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE patients
		SET age = $1, gender = $2, updated_at = $3
		WHERE id = $4 AND deleted_at IS NULL
	`, req.Age, req.Gender, time.Now().UTC(), patientID)
	if err != nil {
		return fmt.Errorf("failed to update demographics: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check demographics update: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}

	consultationID, err := r.latestConsultationID(ctx, tx, patientID)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE consultations
		SET weight_kg = $1, height_cm = $2
		WHERE id = $3
	`, req.WeightKg, req.HeightCm, consultationID)
	if err != nil {
		return fmt.Errorf("failed to update demographics: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit demographics: %w", err)
	}
	return nil
}

func (r *Repository) SaveLifestyle(ctx context.Context, patientID string, req LifestyleRequest) error {
	return r.updateConsultation(ctx, patientID, `
		UPDATE consultations
		SET diet = $1, sleep_hours = $2, physical_activity = $3, mental_exercises = $4
		WHERE id = $5
	`, req.Diet, req.SleepHours, req.PhysicalActivity, req.MentalExercises)
}

func (r *Repository) SaveSymptoms(ctx context.Context, patientID string, symptoms string) error {
	return r.updateConsultation(ctx, patientID, `
		UPDATE consultations SET symptoms = $1 WHERE id = $2
	`, symptoms)
}

func (r *Repository) SaveMentalHealth(ctx context.Context, patientID string, mentalHealth string) error {
	return r.updateConsultation(ctx, patientID, `
		UPDATE consultations SET mental_health = $1 WHERE id = $2
	`, mentalHealth)
}

func (r *Repository) SaveMedicalReports(ctx context.Context, patientID string, reports json.RawMessage) error {
	return r.updateConsultation(ctx, patientID, `
		UPDATE consultations SET medical_reports = $1 WHERE id = $2
	`, []byte(reports))
}

func (r *Repository) SaveWearableData(ctx context.Context, patientID string, data json.RawMessage) error {
	return r.updateConsultation(ctx, patientID, `
		UPDATE consultations SET wearable_data = $1 WHERE id = $2
	`, []byte(data))
}

func (r *Repository) SaveAIDiagnosis(ctx context.Context, patientID string, raw json.RawMessage) error {
	return r.updateConsultation(ctx, patientID, `
		UPDATE consultations SET ai_diagnosis = $1 WHERE id = $2
	`, []byte(raw))
}

func (r *Repository) SaveAIExams(ctx context.Context, patientID string, raw json.RawMessage) error {
	return r.updateConsultation(ctx, patientID, `
		UPDATE consultations SET ai_exams = $1 WHERE id = $2
	`, []byte(raw))
}

// updateConsultation runs an UPDATE against the latest consultation of a live
// patient. The consultation id is appended as the final query argument.
func (r *Repository) updateConsultation(ctx context.Context, patientID, query string, args ...interface{}) error {
	consultationID, err := r.latestConsultationID(ctx, r.db, patientID)
	if err != nil {
		return err
	}

	args = append(args, consultationID)
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update consultation: %w", err)
	}
	return nil
}

func (r *Repository) ReplaceDiagnosisSelections(ctx context.Context, patientID string, selections []Selection) error {
	return r.replaceSelections(ctx, patientID, selections, "consultation_diagnoses", "diagnosis_id", "diagnoses")
}

func (r *Repository) ReplaceExamSelections(ctx context.Context, patientID string, selections []Selection) error {
	return r.replaceSelections(ctx, patientID, selections, "consultation_exams", "exam_id", "exams")
}

// replaceSelections clears old evaluation rows and writes the new selections
// in one transaction, upserting catalog names on the way.
func (r *Repository) replaceSelections(ctx context.Context, patientID string, selections []Selection, junctionTable, fkColumn, catalogTable string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	consultationID, err := r.latestConsultationID(ctx, tx, patientID)
	if err != nil {
		return err
	}

	deleteQuery := fmt.Sprintf(`DELETE FROM %s WHERE consultation_id = $1`, junctionTable)
	if _, err := tx.ExecContext(ctx, deleteQuery, consultationID); err != nil {
		return fmt.Errorf("failed to clear previous selections: %w", err)
	}

	upsertQuery := fmt.Sprintf(`
		INSERT INTO %s (name) VALUES ($1)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id
	`, catalogTable)
	insertQuery := fmt.Sprintf(`
		INSERT INTO %s (consultation_id, %s, accuracy, relevance, usefulness, coherence, safety, comments)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, junctionTable, fkColumn)

	for _, sel := range selections {
		var catalogID int
		if err := tx.QueryRowContext(ctx, upsertQuery, sel.Name).Scan(&catalogID); err != nil {
			return fmt.Errorf("failed to upsert %s entry: %w", catalogTable, err)
		}

		_, err = tx.ExecContext(ctx, insertQuery,
			consultationID,
			catalogID,
			sel.Ratings.Accuracy,
			sel.Ratings.Relevance,
			sel.Ratings.Usefulness,
			sel.Ratings.Coherence,
			sel.Ratings.Safety,
			nullIfEmpty(sel.Ratings.Comments),
		)
		if err != nil {
			return fmt.Errorf("failed to insert selection: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit selections: %w", err)
	}
	return nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// DeidentifiedFields carries the free-text columns rewritten by the
// deidentification pipeline during finalization.
type DeidentifiedFields struct {
	Diet             *string
	PhysicalActivity *string
	MentalExercises  *string
	Symptoms         *string
	MentalHealth     *string
}

func (r *Repository) SaveDeidentifiedFields(ctx context.Context, patientID string, fields DeidentifiedFields) error {
	consultationID, err := r.latestConsultationID(ctx, r.db, patientID)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		UPDATE consultations
		SET diet = COALESCE($1, diet),
		    physical_activity = COALESCE($2, physical_activity),
		    mental_exercises = COALESCE($3, mental_exercises),
		    symptoms = COALESCE($4, symptoms),
		    mental_health = COALESCE($5, mental_health)
		WHERE id = $6
	`, fields.Diet, fields.PhysicalActivity, fields.MentalExercises, fields.Symptoms, fields.MentalHealth, consultationID)
	if err != nil {
		return fmt.Errorf("failed to save deidentified fields: %w", err)
	}
	return nil
}

func (r *Repository) MarkComplete(ctx context.Context, patientID string, completedAt time.Time) error {
	consultationID, err := r.latestConsultationID(ctx, r.db, patientID)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		UPDATE consultations SET completed_at = $1 WHERE id = $2
	`, completedAt, consultationID)
	if err != nil {
		return fmt.Errorf("failed to mark consultation complete: %w", err)
	}
	return nil
}
