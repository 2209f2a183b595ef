//go:build integration

package consultation

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/whitewolf2000ani/hiperhealth/internal/testutil"
)

// TestRepositorySaveDemographics_Integration tests the demographics write
// path against a real database
func TestRepositorySaveDemographics_Integration(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	patientID, _ := testutil.CreateTestPatient(t, db, "en")
	repo := NewRepository(db)

	err := repo.SaveDemographics(context.Background(), patientID, DemographicsRequest{
		Age:      45,
		Gender:   "female",
		WeightKg: 68.5,
		HeightCm: 170,
	})
	if err != nil {
		t.Fatalf("SaveDemographics failed: %v", err)
	}

	record, err := repo.GetRecord(context.Background(), patientID)
	if err != nil {
		t.Fatalf("GetRecord failed: %v", err)
	}
	if record.Age == nil || *record.Age != 45 {
		t.Errorf("Expected age 45, got %v", record.Age)
	}
	if record.WeightKg == nil || *record.WeightKg != 68.5 {
		t.Errorf("Expected weight 68.5, got %v", record.WeightKg)
	}
	if got := record.Progress().Next(); got != StepLifestyle {
		t.Errorf("Expected next step lifestyle, got %s", got)
	}
}

// TestRepositorySaveDemographics_UnknownPatient_Integration tests the not
// found path
func TestRepositorySaveDemographics_UnknownPatient_Integration(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewRepository(db)
	err := repo.SaveDemographics(context.Background(), "00000000-0000-0000-0000-000000000000", DemographicsRequest{
		Age: 30, Gender: "male", WeightKg: 80, HeightCm: 180,
	})
	if err != ErrNotFound {
		t.Errorf("Expected ErrNotFound, got: %v", err)
	}
}

// TestRepositoryStepPersistence_Integration tests that every step write
// survives a reload
func TestRepositoryStepPersistence_Integration(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	patientID, _ := testutil.CreateTestPatient(t, db, "en")
	repo := NewRepository(db)
	ctx := context.Background()

	if err := repo.SaveDemographics(ctx, patientID, DemographicsRequest{Age: 30, Gender: "male", WeightKg: 80, HeightCm: 180}); err != nil {
		t.Fatalf("SaveDemographics failed: %v", err)
	}
	if err := repo.SaveLifestyle(ctx, patientID, LifestyleRequest{Diet: "vegetarian", SleepHours: 7.5, PhysicalActivity: "daily walks"}); err != nil {
		t.Fatalf("SaveLifestyle failed: %v", err)
	}
	if err := repo.SaveSymptoms(ctx, patientID, "persistent cough"); err != nil {
		t.Fatalf("SaveSymptoms failed: %v", err)
	}
	if err := repo.SaveMentalHealth(ctx, patientID, "no concerns"); err != nil {
		t.Fatalf("SaveMentalHealth failed: %v", err)
	}
	if err := repo.SaveMedicalReports(ctx, patientID, json.RawMessage(`[{"filename":"a.pdf"}]`)); err != nil {
		t.Fatalf("SaveMedicalReports failed: %v", err)
	}
	if err := repo.SaveWearableData(ctx, patientID, json.RawMessage(`[]`)); err != nil {
		t.Fatalf("SaveWearableData failed: %v", err)
	}

	record, err := repo.GetRecord(ctx, patientID)
	if err != nil {
		t.Fatalf("GetRecord failed: %v", err)
	}
	if record.Diet == nil || *record.Diet != "vegetarian" {
		t.Errorf("Expected diet to persist, got %v", record.Diet)
	}
	if record.Symptoms == nil || *record.Symptoms != "persistent cough" {
		t.Errorf("Expected symptoms to persist, got %v", record.Symptoms)
	}
	if got := record.Progress().Next(); got != StepDiagnosis {
		t.Errorf("Expected next step diagnosis, got %s", got)
	}

	reports := record.Reports()
	if len(reports) != 1 || reports[0]["filename"] != "a.pdf" {
		t.Errorf("Expected stored report, got %v", reports)
	}
}

// TestRepositoryReplaceSelections_Integration tests catalog upserts and
// junction replacement with ratings
func TestRepositoryReplaceSelections_Integration(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	patientID, _ := testutil.CreateTestPatient(t, db, "en")
	repo := NewRepository(db)
	ctx := context.Background()

	eight := 8
	five := 5
	err := repo.ReplaceDiagnosisSelections(ctx, patientID, []Selection{
		{Name: "Asthma", Ratings: Ratings{Accuracy: &eight, Safety: &five, Comments: "plausible"}},
		{Name: "GERD"},
	})
	if err != nil {
		t.Fatalf("ReplaceDiagnosisSelections failed: %v", err)
	}

	// Replacing again must clear the old rows, and reusing a name must not
	// duplicate the catalog entry.
	err = repo.ReplaceDiagnosisSelections(ctx, patientID, []Selection{
		{Name: "Asthma", Ratings: Ratings{Accuracy: &five}},
	})
	if err != nil {
		t.Fatalf("Second ReplaceDiagnosisSelections failed: %v", err)
	}

	record, err := repo.GetRecord(ctx, patientID)
	if err != nil {
		t.Fatalf("GetRecord failed: %v", err)
	}
	if len(record.SelectedDiagnoses) != 1 {
		t.Fatalf("Expected 1 selection after replacement, got %d", len(record.SelectedDiagnoses))
	}
	sel := record.SelectedDiagnoses[0]
	if sel.Name != "Asthma" || sel.Ratings.Accuracy == nil || *sel.Ratings.Accuracy != 5 {
		t.Errorf("Unexpected selection: %+v", sel)
	}

	var catalogCount int
	if err := db.QueryRow(`SELECT COUNT(*) FROM diagnoses WHERE name = 'Asthma'`).Scan(&catalogCount); err != nil {
		t.Fatalf("Catalog count query failed: %v", err)
	}
	if catalogCount != 1 {
		t.Errorf("Expected 1 catalog row for Asthma, got %d", catalogCount)
	}
}

// TestRepositoryMarkComplete_Integration tests completion and deidentified
// field persistence
func TestRepositoryMarkComplete_Integration(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	patientID, _ := testutil.CreateTestPatient(t, db, "en")
	repo := NewRepository(db)
	ctx := context.Background()

	if err := repo.SaveSymptoms(ctx, patientID, "pain at 12 Main St"); err != nil {
		t.Fatalf("SaveSymptoms failed: %v", err)
	}

	clean := "pain at [REDACTED]"
	err := repo.SaveDeidentifiedFields(ctx, patientID, DeidentifiedFields{Symptoms: &clean})
	if err != nil {
		t.Fatalf("SaveDeidentifiedFields failed: %v", err)
	}

	completedAt := time.Now().UTC()
	if err := repo.MarkComplete(ctx, patientID, completedAt); err != nil {
		t.Fatalf("MarkComplete failed: %v", err)
	}

	record, err := repo.GetRecord(ctx, patientID)
	if err != nil {
		t.Fatalf("GetRecord failed: %v", err)
	}
	if record.Symptoms == nil || *record.Symptoms != clean {
		t.Errorf("Expected deidentified symptoms, got %v", record.Symptoms)
	}
	if record.CompletedAt == nil {
		t.Error("Expected completed_at to be set")
	}
}
