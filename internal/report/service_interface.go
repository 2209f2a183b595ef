package report

import "context"

// ServiceInterface defines the contract for upload processing
type ServiceInterface interface {
	UploadMedicalReports(ctx context.Context, patientID string, files []UploadFile) (*UploadResult, error)
	SkipMedicalReports(ctx context.Context, patientID string) (*SkipResult, error)
	ListMedicalReports(ctx context.Context, patientID string) (*ListResponse, error)
	UploadWearableData(ctx context.Context, patientID string, file UploadFile) (*SkipResult, error)
	SkipWearableData(ctx context.Context, patientID string) (*SkipResult, error)
}

// Ensure Service implements ServiceInterface
var _ ServiceInterface = (*Service)(nil)
