package patient

import (
	"time"

	"github.com/whitewolf2000ani/hiperhealth/internal/pagination"
)

// CreatePatientRequest starts a new anonymous intake session.
type CreatePatientRequest struct {
	Lang string `json:"lang"`
}

// CreatePatientResponse returns the new session identifier.
type CreatePatientResponse struct {
	Success   bool      `json:"success"`
	PatientID string    `json:"patient_id"`
	Lang      string    `json:"lang"`
	CreatedAt time.Time `json:"created_at"`
	NextStep  string    `json:"next_step"`
}

// Summary is one patient row on the dashboard list.
type Summary struct {
	PatientID   string    `json:"patient_id"`
	Lang        string    `json:"lang"`
	CreatedAt   time.Time `json:"created_at"`
	CurrentStep string    `json:"current_step"`
	IsComplete  bool      `json:"is_complete"`
}

// PaginatedListResponse is the dashboard list with pagination metadata.
type PaginatedListResponse struct {
	Success    bool            `json:"success"`
	Patients   []Summary       `json:"patients"`
	Pagination pagination.Meta `json:"pagination"`
}

// Stats aggregates dashboard counters. Steps buckets the in-progress
// patients by the wizard step they are currently on.
type Stats struct {
	TotalPatients          int            `json:"total_patients"`
	CompletedConsultations int            `json:"completed_consultations"`
	InProgress             int            `json:"in_progress"`
	Steps                  map[string]int `json:"steps"`
}

// DeleteResponse acknowledges a patient deletion.
type DeleteResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
