package consultation

import "context"

// ServiceInterface defines the contract for consultation business logic
type ServiceInterface interface {
	Status(ctx context.Context, patientID string) (*StatusResponse, error)
	PatientRecord(ctx context.Context, patientID string) (map[string]interface{}, error)
	SubmitDemographics(ctx context.Context, patientID string, req DemographicsRequest) (*StepResponse, error)
	SubmitLifestyle(ctx context.Context, patientID string, req LifestyleRequest) (*StepResponse, error)
	SubmitSymptoms(ctx context.Context, patientID string, req SymptomsRequest) (*StepResponse, error)
	SubmitMentalHealth(ctx context.Context, patientID string, req MentalHealthRequest) (*StepResponse, error)
	GetDiagnosisSuggestions(ctx context.Context, patientID string) (*SuggestionResponse, error)
	SubmitDiagnosisSelections(ctx context.Context, patientID string, req DiagnosisSubmitRequest) (*StepResponse, error)
	GetExamSuggestions(ctx context.Context, patientID string) (*SuggestionResponse, error)
	SubmitExamSelections(ctx context.Context, patientID string, req ExamSubmitRequest) (*ExamSubmitResponse, error)
}

// Ensure Service implements ServiceInterface
var _ ServiceInterface = (*Service)(nil)
