package consultation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/whitewolf2000ani/hiperhealth/internal/config"
	"github.com/whitewolf2000ani/hiperhealth/internal/engine"
	"github.com/whitewolf2000ani/hiperhealth/internal/logger"
	"github.com/whitewolf2000ani/hiperhealth/internal/messaging"
	"github.com/whitewolf2000ani/hiperhealth/internal/telemetry"
)

// ErrValidation marks client input that failed validation.
var ErrValidation = errors.New("validation error")

// EngineClient is the slice of the diagnostics engine this service uses.
type EngineClient interface {
	Differential(ctx context.Context, record map[string]interface{}, language, sessionID string) (*engine.Suggestion, json.RawMessage, error)
	Exams(ctx context.Context, diagnoses []string, language, sessionID string) (*engine.Suggestion, json.RawMessage, error)
	Deidentify(ctx context.Context, record map[string]interface{}) (map[string]interface{}, error)
}

type Service struct {
	repo      RepositoryInterface
	engine    EngineClient
	publisher messaging.PublisherInterface
	limits    config.Limits
	metrics   *telemetry.Metrics
}

func NewService(repo RepositoryInterface, engineClient EngineClient, publisher messaging.PublisherInterface, limits config.Limits, metrics *telemetry.Metrics) *Service {
	return &Service{
		repo:      repo,
		engine:    engineClient,
		publisher: publisher,
		limits:    limits,
		metrics:   metrics,
	}
}

// Status returns the derived wizard position and the full record so the
// front-end can resume an interrupted consultation.
func (s *Service) Status(ctx context.Context, patientID string) (*StatusResponse, error) {
	record, err := s.repo.GetRecord(ctx, patientID)
	if err != nil {
		return nil, err
	}

	progress := record.Progress()
	completed := progress.Completed()
	completedSteps := make([]string, len(completed))
	for i, step := range completed {
		completedSteps[i] = string(step)
	}

	return &StatusResponse{
		PatientID:      record.PatientID,
		CurrentStep:    string(progress.Next()),
		CompletedSteps: completedSteps,
		IsComplete:     progress.IsComplete(),
		Lang:           record.Lang,
		Record:         record.AsMap(),
	}, nil
}

// PatientRecord returns the record map for the dashboard detail view.
func (s *Service) PatientRecord(ctx context.Context, patientID string) (map[string]interface{}, error) {
	record, err := s.repo.GetRecord(ctx, patientID)
	if err != nil {
		return nil, err
	}
	return record.AsMap(), nil
}

func (s *Service) SubmitDemographics(ctx context.Context, patientID string, req DemographicsRequest) (*StepResponse, error) {
	if req.Age < s.limits.MinAge || req.Age > s.limits.MaxAge {
		return nil, fmt.Errorf("%w: age must be between %d and %d", ErrValidation, s.limits.MinAge, s.limits.MaxAge)
	}
	if req.Gender == "" {
		return nil, fmt.Errorf("%w: gender is required", ErrValidation)
	}
	if req.WeightKg <= 0 {
		return nil, fmt.Errorf("%w: weight_kg must be positive", ErrValidation)
	}
	if req.HeightCm <= 0 {
		return nil, fmt.Errorf("%w: height_cm must be positive", ErrValidation)
	}

	if err := s.repo.SaveDemographics(ctx, patientID, req); err != nil {
		return nil, fmt.Errorf("failed to save demographics: %w", err)
	}
	return s.stepCompleted(ctx, patientID, StepDemographics)
}

func (s *Service) SubmitLifestyle(ctx context.Context, patientID string, req LifestyleRequest) (*StepResponse, error) {
	if req.Diet == "" {
		return nil, fmt.Errorf("%w: diet is required", ErrValidation)
	}
	if req.SleepHours < s.limits.MinSleepHours || req.SleepHours > s.limits.MaxSleepHours {
		return nil, fmt.Errorf("%w: sleep_hours must be between %g and %g", ErrValidation, s.limits.MinSleepHours, s.limits.MaxSleepHours)
	}

	if err := s.repo.SaveLifestyle(ctx, patientID, req); err != nil {
		return nil, fmt.Errorf("failed to save lifestyle: %w", err)
	}
	return s.stepCompleted(ctx, patientID, StepLifestyle)
}

func (s *Service) SubmitSymptoms(ctx context.Context, patientID string, req SymptomsRequest) (*StepResponse, error) {
	if req.Symptoms == "" {
		return nil, fmt.Errorf("%w: symptoms is required", ErrValidation)
	}

	if err := s.repo.SaveSymptoms(ctx, patientID, req.Symptoms); err != nil {
		return nil, fmt.Errorf("failed to save symptoms: %w", err)
	}
	return s.stepCompleted(ctx, patientID, StepSymptoms)
}

func (s *Service) SubmitMentalHealth(ctx context.Context, patientID string, req MentalHealthRequest) (*StepResponse, error) {
	if req.MentalHealth == "" {
		return nil, fmt.Errorf("%w: mental_health is required", ErrValidation)
	}

	if err := s.repo.SaveMentalHealth(ctx, patientID, req.MentalHealth); err != nil {
		return nil, fmt.Errorf("failed to save mental health: %w", err)
	}
	return s.stepCompleted(ctx, patientID, StepMental)
}

// GetDiagnosisSuggestions asks the engine for a differential diagnosis and
// persists the raw engine response on the consultation.
func (s *Service) GetDiagnosisSuggestions(ctx context.Context, patientID string) (*SuggestionResponse, error) {
	record, err := s.repo.GetRecord(ctx, patientID)
	if err != nil {
		return nil, err
	}

	patientData, _ := record.AsMap()["patient"].(map[string]interface{})
	suggestion, raw, err := s.engineCall(ctx, "differential", func() (*engine.Suggestion, json.RawMessage, error) {
		return s.engine.Differential(ctx, patientData, record.Lang, patientID)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get diagnosis suggestions: %w", err)
	}

	if err := s.repo.SaveAIDiagnosis(ctx, patientID, raw); err != nil {
		return nil, fmt.Errorf("failed to store diagnosis suggestions: %w", err)
	}

	return suggestionResponse(patientID, suggestion), nil
}

func (s *Service) SubmitDiagnosisSelections(ctx context.Context, patientID string, req DiagnosisSubmitRequest) (*StepResponse, error) {
	selections, err := s.buildSelections(req.SelectedDiagnoses, req.Evaluations)
	if err != nil {
		return nil, err
	}

	if err := s.repo.ReplaceDiagnosisSelections(ctx, patientID, selections); err != nil {
		return nil, fmt.Errorf("failed to save diagnosis selections: %w", err)
	}
	return s.stepCompleted(ctx, patientID, StepDiagnosis)
}

// GetExamSuggestions asks the engine for exam suggestions based on the
// diagnoses the physician selected.
func (s *Service) GetExamSuggestions(ctx context.Context, patientID string) (*SuggestionResponse, error) {
	record, err := s.repo.GetRecord(ctx, patientID)
	if err != nil {
		return nil, err
	}

	diagnoses := make([]string, len(record.SelectedDiagnoses))
	for i, sel := range record.SelectedDiagnoses {
		diagnoses[i] = sel.Name
	}

	suggestion, raw, err := s.engineCall(ctx, "exams", func() (*engine.Suggestion, json.RawMessage, error) {
		return s.engine.Exams(ctx, diagnoses, record.Lang, patientID)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get exam suggestions: %w", err)
	}

	if err := s.repo.SaveAIExams(ctx, patientID, raw); err != nil {
		return nil, fmt.Errorf("failed to store exam suggestions: %w", err)
	}

	return suggestionResponse(patientID, suggestion), nil
}

// SubmitExamSelections finalizes the consultation: it persists the exam
// selections, runs the record through the deidentification pipeline, and
// marks the consultation complete.
func (s *Service) SubmitExamSelections(ctx context.Context, patientID string, req ExamSubmitRequest) (*ExamSubmitResponse, error) {
	selections, err := s.buildSelections(req.SelectedExams, req.Evaluations)
	if err != nil {
		return nil, err
	}

	if err := s.repo.ReplaceExamSelections(ctx, patientID, selections); err != nil {
		return nil, fmt.Errorf("failed to save exam selections: %w", err)
	}

	if err := s.deidentify(ctx, patientID); err != nil {
		return nil, err
	}

	completedAt := time.Now().UTC()
	if err := s.repo.MarkComplete(ctx, patientID, completedAt); err != nil {
		return nil, fmt.Errorf("failed to complete consultation: %w", err)
	}

	record, err := s.repo.GetRecord(ctx, patientID)
	if err != nil {
		return nil, err
	}

	event := messaging.ConsultationCompletedEvent{
		BaseEvent: messaging.NewBaseEvent(messaging.EventConsultationCompleted),
		Data: messaging.ConsultationCompletedData{
			PatientID:      patientID,
			DiagnosisCount: len(record.SelectedDiagnoses),
			ExamCount:      len(record.SelectedExams),
			CompletedAt:    completedAt,
		},
	}
	if err := s.publisher.Publish(ctx, messaging.EventConsultationCompleted, event); err != nil {
		logger.Log.WithError(err).Warn("failed to publish consultation completed event")
	}

	if s.metrics != nil {
		s.metrics.RecordStepSubmission(ctx, string(StepExams))
	}

	return &ExamSubmitResponse{
		Success:    true,
		PatientID:  patientID,
		IsComplete: true,
	}, nil
}

// deidentify rewrites the free-text fields through the engine's
// deidentification pipeline before the record is finalized.
func (s *Service) deidentify(ctx context.Context, patientID string) error {
	record, err := s.repo.GetRecord(ctx, patientID)
	if err != nil {
		return err
	}

	clean, err := s.engine.Deidentify(ctx, record.AsMap())
	if err != nil {
		return fmt.Errorf("failed to deidentify record: %w", err)
	}

	patientData, ok := clean["patient"].(map[string]interface{})
	if !ok {
		return nil
	}

	fields := DeidentifiedFields{
		Diet:             stringField(patientData, "diet"),
		PhysicalActivity: stringField(patientData, "physical_activity"),
		MentalExercises:  stringField(patientData, "mental_exercises"),
		Symptoms:         stringField(patientData, "symptoms"),
		MentalHealth:     stringField(patientData, "mental_health"),
	}
	if err := s.repo.SaveDeidentifiedFields(ctx, patientID, fields); err != nil {
		return fmt.Errorf("failed to persist deidentified record: %w", err)
	}
	return nil
}

func stringField(m map[string]interface{}, key string) *string {
	if v, ok := m[key].(string); ok {
		return &v
	}
	return nil
}

// buildSelections pairs selected names with their evaluations and validates
// every rating against the configured bounds.
func (s *Service) buildSelections(selected []string, evaluations map[string]Ratings) ([]Selection, error) {
	if len(selected) == 0 {
		return nil, fmt.Errorf("%w: at least one selection is required", ErrValidation)
	}

	selections := make([]Selection, 0, len(selected))
	for _, name := range selected {
		if name == "" {
			return nil, fmt.Errorf("%w: selection name must not be empty", ErrValidation)
		}

		ratings := evaluations[name]
		for field, value := range map[string]*int{
			"accuracy":   ratings.Accuracy,
			"relevance":  ratings.Relevance,
			"usefulness": ratings.Usefulness,
			"coherence":  ratings.Coherence,
			"safety":     ratings.Safety,
		} {
			if value != nil && (*value < s.limits.MinRating || *value > s.limits.MaxRating) {
				return nil, fmt.Errorf("%w: %s rating must be between %d and %d", ErrValidation, field, s.limits.MinRating, s.limits.MaxRating)
			}
		}

		selections = append(selections, Selection{Name: name, Ratings: ratings})
	}
	return selections, nil
}

// stepCompleted re-derives the wizard position after a submission, publishes
// the step event, and builds the step response.
func (s *Service) stepCompleted(ctx context.Context, patientID string, step Step) (*StepResponse, error) {
	record, err := s.repo.GetRecord(ctx, patientID)
	if err != nil {
		return nil, err
	}
	nextStep := record.Progress().Next()

	event := messaging.StepCompletedEvent{
		BaseEvent: messaging.NewBaseEvent(messaging.EventStepCompleted),
		Data: messaging.StepCompletedData{
			PatientID:   patientID,
			Step:        string(step),
			NextStep:    string(nextStep),
			CompletedAt: time.Now().UTC(),
		},
	}
	if err := s.publisher.Publish(ctx, messaging.EventStepCompleted, event); err != nil {
		logger.Log.WithError(err).Warn("failed to publish step completed event")
	}

	if s.metrics != nil {
		s.metrics.RecordStepSubmission(ctx, string(step))
	}

	return &StepResponse{
		Success:   true,
		NextStep:  string(nextStep),
		PatientID: patientID,
	}, nil
}

func (s *Service) engineCall(ctx context.Context, operation string, fn func() (*engine.Suggestion, json.RawMessage, error)) (*engine.Suggestion, json.RawMessage, error) {
	start := time.Now()
	suggestion, raw, err := fn()
	if s.metrics != nil {
		s.metrics.RecordEngineCall(ctx, operation, float64(time.Since(start).Milliseconds()), err == nil)
	}
	return suggestion, raw, err
}

func suggestionResponse(patientID string, suggestion *engine.Suggestion) *SuggestionResponse {
	options := make([]SuggestionOption, len(suggestion.Options))
	for i, opt := range suggestion.Options {
		options[i] = SuggestionOption{Name: opt.Name, Description: opt.Description}
	}
	return &SuggestionResponse{
		PatientID: patientID,
		Summary:   suggestion.Summary,
		Options:   options,
	}
}
