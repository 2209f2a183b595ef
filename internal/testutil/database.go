package testutil

import (
	"context"
	"database/sql"
	"os"
	"testing"

	_ "github.com/lib/pq"

	"github.com/whitewolf2000ani/hiperhealth/internal/db"
)

const defaultTestDSN = "host=localhost port=5432 user=hiperhealth password=hiperhealth dbname=hiperhealth_test sslmode=disable"

// SetupTestDB connects to the test database and applies migrations.
// Override the connection string with TEST_DATABASE_URL.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		dsn = defaultTestDSN
	}

	database, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	if err := database.Ping(); err != nil {
		t.Fatalf("Failed to ping test database: %v", err)
	}
	if err := db.Migrate(context.Background(), database); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	t.Cleanup(func() {
		database.Close()
	})
	return database
}

// CleanupTestDB removes all rows between tests. Catalog tables cascade into
// the junction tables.
func CleanupTestDB(t *testing.T, database *sql.DB) {
	t.Helper()

	for _, table := range []string{"patients", "diagnoses", "exams"} {
		if _, err := database.Exec("TRUNCATE TABLE " + table + " CASCADE"); err != nil {
			t.Logf("Warning: Failed to clean up %s: %v", table, err)
		}
	}
}

// CreateTestPatient inserts a patient with an open consultation and returns
// both identifiers.
func CreateTestPatient(t *testing.T, database *sql.DB, lang string) (patientID, consultationID string) {
	t.Helper()

	err := database.QueryRow(`
		INSERT INTO patients (id, lang, created_at, updated_at)
		VALUES (gen_random_uuid(), $1, NOW(), NOW())
		RETURNING id`, lang).Scan(&patientID)
	if err != nil {
		t.Fatalf("Failed to create test patient: %v", err)
	}

	err = database.QueryRow(`
		INSERT INTO consultations (id, patient_id, lang, started_at)
		VALUES (gen_random_uuid(), $1, $2, NOW())
		RETURNING id`, patientID, lang).Scan(&consultationID)
	if err != nil {
		t.Fatalf("Failed to create test consultation: %v", err)
	}

	return patientID, consultationID
}
