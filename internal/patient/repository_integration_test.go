//go:build integration

package patient

import (
	"context"
	"errors"
	"testing"

	"github.com/whitewolf2000ani/hiperhealth/internal/consultation"
	"github.com/whitewolf2000ani/hiperhealth/internal/testutil"
)

// TestRepositoryCreatePatient_Integration tests atomic patient+consultation
// creation
func TestRepositoryCreatePatient_Integration(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewRepository(db)
	patientID, createdAt, err := repo.CreatePatient(context.Background(), "pt")
	if err != nil {
		t.Fatalf("CreatePatient failed: %v", err)
	}
	if patientID == "" || createdAt.IsZero() {
		t.Error("Expected patient ID and creation time")
	}

	var consultations int
	if err := db.QueryRow(`SELECT COUNT(*) FROM consultations WHERE patient_id = $1`, patientID).Scan(&consultations); err != nil {
		t.Fatalf("Consultation count query failed: %v", err)
	}
	if consultations != 1 {
		t.Errorf("Expected 1 consultation, got %d", consultations)
	}
}

// TestRepositoryListPatients_Integration tests list pagination and derived steps
func TestRepositoryListPatients_Integration(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewRepository(db)
	consultationRepo := consultation.NewRepository(db)
	ctx := context.Background()

	fresh, _, err := repo.CreatePatient(ctx, "en")
	if err != nil {
		t.Fatalf("CreatePatient failed: %v", err)
	}
	advanced, _, err := repo.CreatePatient(ctx, "en")
	if err != nil {
		t.Fatalf("CreatePatient failed: %v", err)
	}
	err = consultationRepo.SaveDemographics(ctx, advanced, consultation.DemographicsRequest{
		Age: 40, Gender: "female", WeightKg: 60, HeightCm: 165,
	})
	if err != nil {
		t.Fatalf("SaveDemographics failed: %v", err)
	}

	summaries, total, err := repo.ListPatients(ctx, 10, 0)
	if err != nil {
		t.Fatalf("ListPatients failed: %v", err)
	}
	if total != 2 || len(summaries) != 2 {
		t.Fatalf("Expected 2 patients, got total=%d len=%d", total, len(summaries))
	}

	steps := map[string]string{}
	for _, s := range summaries {
		steps[s.PatientID] = s.CurrentStep
	}
	if steps[fresh] != "demographics" {
		t.Errorf("Expected fresh patient at demographics, got %s", steps[fresh])
	}
	if steps[advanced] != "lifestyle" {
		t.Errorf("Expected advanced patient at lifestyle, got %s", steps[advanced])
	}

	stats, err := repo.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.TotalPatients != 2 || stats.InProgress != 2 {
		t.Errorf("Unexpected stats totals: %+v", stats)
	}
	if stats.Steps["demographics"] != 1 || stats.Steps["lifestyle"] != 1 {
		t.Errorf("Unexpected step breakdown: %+v", stats.Steps)
	}
}

// TestRepositorySoftDelete_Integration tests deleted patients disappear from
// lists and stats
func TestRepositorySoftDelete_Integration(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewRepository(db)
	ctx := context.Background()

	patientID, _, err := repo.CreatePatient(ctx, "en")
	if err != nil {
		t.Fatalf("CreatePatient failed: %v", err)
	}

	if err := repo.SoftDelete(ctx, patientID); err != nil {
		t.Fatalf("SoftDelete failed: %v", err)
	}

	_, total, err := repo.ListPatients(ctx, 10, 0)
	if err != nil {
		t.Fatalf("ListPatients failed: %v", err)
	}
	if total != 0 {
		t.Errorf("Expected deleted patient hidden from list, total=%d", total)
	}

	stats, err := repo.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.TotalPatients != 0 {
		t.Errorf("Expected 0 patients in stats, got %d", stats.TotalPatients)
	}

	// Deleting twice must report not found
	if err := repo.SoftDelete(ctx, patientID); !errors.Is(err, consultation.ErrNotFound) {
		t.Errorf("Expected ErrNotFound on second delete, got: %v", err)
	}
}

// TestCleanupService_Integration tests retention purges
func TestCleanupService_Integration(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewRepository(db)
	ctx := context.Background()

	patientID, _, err := repo.CreatePatient(ctx, "en")
	if err != nil {
		t.Fatalf("CreatePatient failed: %v", err)
	}
	if err := repo.SoftDelete(ctx, patientID); err != nil {
		t.Fatalf("SoftDelete failed: %v", err)
	}

	// Zero retention purges immediately
	cleanup := NewCleanupService(db, 0, 0)
	purged, err := cleanup.PurgeDeletedPatients(ctx)
	if err != nil {
		t.Fatalf("PurgeDeletedPatients failed: %v", err)
	}
	if purged != 1 {
		t.Errorf("Expected 1 purged patient, got %d", purged)
	}

	var remaining int
	if err := db.QueryRow(`SELECT COUNT(*) FROM patients`).Scan(&remaining); err != nil {
		t.Fatalf("Patient count query failed: %v", err)
	}
	if remaining != 0 {
		t.Errorf("Expected 0 patients after purge, got %d", remaining)
	}
}
