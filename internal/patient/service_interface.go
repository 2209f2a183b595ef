package patient

import (
	"context"

	"github.com/whitewolf2000ani/hiperhealth/internal/pagination"
)

// ServiceInterface defines the contract for patient business logic
type ServiceInterface interface {
	CreatePatient(ctx context.Context, req CreatePatientRequest) (*CreatePatientResponse, error)
	ListPatients(ctx context.Context, params pagination.Params) (*PaginatedListResponse, error)
	DeletePatient(ctx context.Context, patientID string) (*DeleteResponse, error)
	GetStats(ctx context.Context) (*Stats, error)
}

// RecordLookup resolves the full record for the dashboard detail view. The
// consultation service provides the production implementation.
type RecordLookup interface {
	PatientRecord(ctx context.Context, patientID string) (map[string]interface{}, error)
}

// Ensure Service implements ServiceInterface
var _ ServiceInterface = (*Service)(nil)
