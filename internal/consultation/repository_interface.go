package consultation

import (
	"context"
	"encoding/json"
	"time"
)

// RepositoryInterface defines the contract for consultation data access
type RepositoryInterface interface {
	GetRecord(ctx context.Context, patientID string) (*Record, error)
	SaveDemographics(ctx context.Context, patientID string, req DemographicsRequest) error
	SaveLifestyle(ctx context.Context, patientID string, req LifestyleRequest) error
	SaveSymptoms(ctx context.Context, patientID string, symptoms string) error
	SaveMentalHealth(ctx context.Context, patientID string, mentalHealth string) error
	SaveMedicalReports(ctx context.Context, patientID string, reports json.RawMessage) error
	SaveWearableData(ctx context.Context, patientID string, data json.RawMessage) error
	SaveAIDiagnosis(ctx context.Context, patientID string, raw json.RawMessage) error
	SaveAIExams(ctx context.Context, patientID string, raw json.RawMessage) error
	ReplaceDiagnosisSelections(ctx context.Context, patientID string, selections []Selection) error
	ReplaceExamSelections(ctx context.Context, patientID string, selections []Selection) error
	SaveDeidentifiedFields(ctx context.Context, patientID string, fields DeidentifiedFields) error
	MarkComplete(ctx context.Context, patientID string, completedAt time.Time) error
}

// Ensure Repository implements RepositoryInterface
var _ RepositoryInterface = (*Repository)(nil)
