package messaging

import (
	"fmt"
	"time"
)

// Event routing keys as constants
const (
	// Patient events
	EventPatientCreated = "patient.created"
	EventPatientDeleted = "patient.deleted"

	// Consultation events
	EventStepCompleted         = "consultation.step_completed"
	EventConsultationCompleted = "consultation.completed"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventType   string    `json:"event_type"`
	EventID     string    `json:"event_id"`
	Timestamp   time.Time `json:"timestamp"`
	ServiceName string    `json:"service_name"`
}

// PatientCreatedEvent represents a patient creation event
type PatientCreatedEvent struct {
	BaseEvent
	Data PatientCreatedData `json:"data"`
}

type PatientCreatedData struct {
	PatientID string    `json:"patient_id"`
	Lang      string    `json:"lang"`
	CreatedAt time.Time `json:"created_at"`
}

// PatientDeletedEvent represents a patient deletion event
type PatientDeletedEvent struct {
	BaseEvent
	Data PatientDeletedData `json:"data"`
}

type PatientDeletedData struct {
	PatientID string    `json:"patient_id"`
	DeletedAt time.Time `json:"deleted_at"`
}

// StepCompletedEvent is emitted every time a wizard step is submitted
type StepCompletedEvent struct {
	BaseEvent
	Data StepCompletedData `json:"data"`
}

type StepCompletedData struct {
	PatientID   string    `json:"patient_id"`
	Step        string    `json:"step"`
	NextStep    string    `json:"next_step"`
	CompletedAt time.Time `json:"completed_at"`
}

// ConsultationCompletedEvent is emitted when the final wizard step finishes
type ConsultationCompletedEvent struct {
	BaseEvent
	Data ConsultationCompletedData `json:"data"`
}

type ConsultationCompletedData struct {
	PatientID      string    `json:"patient_id"`
	DiagnosisCount int       `json:"diagnosis_count"`
	ExamCount      int       `json:"exam_count"`
	CompletedAt    time.Time `json:"completed_at"`
}

// NewBaseEvent creates a base event with common fields
func NewBaseEvent(eventType string) BaseEvent {
	return BaseEvent{
		EventType:   eventType,
		EventID:     fmt.Sprintf("%d", time.Now().UnixNano()),
		Timestamp:   time.Now().UTC(),
		ServiceName: "intake-service",
	}
}
