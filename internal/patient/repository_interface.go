package patient

import (
	"context"
	"time"
)

// RepositoryInterface defines the contract for patient data access
type RepositoryInterface interface {
	CreatePatient(ctx context.Context, lang string) (string, time.Time, error)
	ListPatients(ctx context.Context, limit, offset int) ([]Summary, int, error)
	SoftDelete(ctx context.Context, patientID string) error
	Stats(ctx context.Context) (*Stats, error)
}

// Ensure Repository implements RepositoryInterface
var _ RepositoryInterface = (*Repository)(nil)
