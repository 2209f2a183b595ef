package consultation

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/whitewolf2000ani/hiperhealth/internal/config"
	"github.com/whitewolf2000ani/hiperhealth/internal/engine"
	"github.com/whitewolf2000ani/hiperhealth/internal/messaging"
	"github.com/whitewolf2000ani/hiperhealth/internal/testutil"
)

type mockRepository struct {
	getRecordFunc          func(ctx context.Context, patientID string) (*Record, error)
	saveDemographicsFunc   func(ctx context.Context, patientID string, req DemographicsRequest) error
	saveLifestyleFunc      func(ctx context.Context, patientID string, req LifestyleRequest) error
	saveSymptomsFunc       func(ctx context.Context, patientID string, symptoms string) error
	saveMentalHealthFunc   func(ctx context.Context, patientID string, mentalHealth string) error
	saveMedicalReportsFunc func(ctx context.Context, patientID string, reports json.RawMessage) error
	saveWearableDataFunc   func(ctx context.Context, patientID string, data json.RawMessage) error
	saveAIDiagnosisFunc    func(ctx context.Context, patientID string, raw json.RawMessage) error
	saveAIExamsFunc        func(ctx context.Context, patientID string, raw json.RawMessage) error
	replaceDiagnosesFunc   func(ctx context.Context, patientID string, selections []Selection) error
	replaceExamsFunc       func(ctx context.Context, patientID string, selections []Selection) error
	saveDeidentifiedFunc   func(ctx context.Context, patientID string, fields DeidentifiedFields) error
	markCompleteFunc       func(ctx context.Context, patientID string, completedAt time.Time) error
}

func (m *mockRepository) GetRecord(ctx context.Context, patientID string) (*Record, error) {
	if m.getRecordFunc != nil {
		return m.getRecordFunc(ctx, patientID)
	}
	return nil, errors.New("not implemented")
}

func (m *mockRepository) SaveDemographics(ctx context.Context, patientID string, req DemographicsRequest) error {
	if m.saveDemographicsFunc != nil {
		return m.saveDemographicsFunc(ctx, patientID, req)
	}
	return errors.New("not implemented")
}

func (m *mockRepository) SaveLifestyle(ctx context.Context, patientID string, req LifestyleRequest) error {
	if m.saveLifestyleFunc != nil {
		return m.saveLifestyleFunc(ctx, patientID, req)
	}
	return errors.New("not implemented")
}

func (m *mockRepository) SaveSymptoms(ctx context.Context, patientID string, symptoms string) error {
	if m.saveSymptomsFunc != nil {
		return m.saveSymptomsFunc(ctx, patientID, symptoms)
	}
	return errors.New("not implemented")
}

func (m *mockRepository) SaveMentalHealth(ctx context.Context, patientID string, mentalHealth string) error {
	if m.saveMentalHealthFunc != nil {
		return m.saveMentalHealthFunc(ctx, patientID, mentalHealth)
	}
	return errors.New("not implemented")
}

func (m *mockRepository) SaveMedicalReports(ctx context.Context, patientID string, reports json.RawMessage) error {
	if m.saveMedicalReportsFunc != nil {
		return m.saveMedicalReportsFunc(ctx, patientID, reports)
	}
	return errors.New("not implemented")
}

func (m *mockRepository) SaveWearableData(ctx context.Context, patientID string, data json.RawMessage) error {
	if m.saveWearableDataFunc != nil {
		return m.saveWearableDataFunc(ctx, patientID, data)
	}
	return errors.New("not implemented")
}

func (m *mockRepository) SaveAIDiagnosis(ctx context.Context, patientID string, raw json.RawMessage) error {
	if m.saveAIDiagnosisFunc != nil {
		return m.saveAIDiagnosisFunc(ctx, patientID, raw)
	}
	return errors.New("not implemented")
}

func (m *mockRepository) SaveAIExams(ctx context.Context, patientID string, raw json.RawMessage) error {
	if m.saveAIExamsFunc != nil {
		return m.saveAIExamsFunc(ctx, patientID, raw)
	}
	return errors.New("not implemented")
}

func (m *mockRepository) ReplaceDiagnosisSelections(ctx context.Context, patientID string, selections []Selection) error {
	if m.replaceDiagnosesFunc != nil {
		return m.replaceDiagnosesFunc(ctx, patientID, selections)
	}
	return errors.New("not implemented")
}

func (m *mockRepository) ReplaceExamSelections(ctx context.Context, patientID string, selections []Selection) error {
	if m.replaceExamsFunc != nil {
		return m.replaceExamsFunc(ctx, patientID, selections)
	}
	return errors.New("not implemented")
}

func (m *mockRepository) SaveDeidentifiedFields(ctx context.Context, patientID string, fields DeidentifiedFields) error {
	if m.saveDeidentifiedFunc != nil {
		return m.saveDeidentifiedFunc(ctx, patientID, fields)
	}
	return errors.New("not implemented")
}

func (m *mockRepository) MarkComplete(ctx context.Context, patientID string, completedAt time.Time) error {
	if m.markCompleteFunc != nil {
		return m.markCompleteFunc(ctx, patientID, completedAt)
	}
	return errors.New("not implemented")
}

type mockEngine struct {
	differentialFunc func(ctx context.Context, record map[string]interface{}, language, sessionID string) (*engine.Suggestion, json.RawMessage, error)
	examsFunc        func(ctx context.Context, diagnoses []string, language, sessionID string) (*engine.Suggestion, json.RawMessage, error)
	deidentifyFunc   func(ctx context.Context, record map[string]interface{}) (map[string]interface{}, error)
}

func (m *mockEngine) Differential(ctx context.Context, record map[string]interface{}, language, sessionID string) (*engine.Suggestion, json.RawMessage, error) {
	if m.differentialFunc != nil {
		return m.differentialFunc(ctx, record, language, sessionID)
	}
	return nil, nil, errors.New("not implemented")
}

func (m *mockEngine) Exams(ctx context.Context, diagnoses []string, language, sessionID string) (*engine.Suggestion, json.RawMessage, error) {
	if m.examsFunc != nil {
		return m.examsFunc(ctx, diagnoses, language, sessionID)
	}
	return nil, nil, errors.New("not implemented")
}

func (m *mockEngine) Deidentify(ctx context.Context, record map[string]interface{}) (map[string]interface{}, error) {
	if m.deidentifyFunc != nil {
		return m.deidentifyFunc(ctx, record)
	}
	return nil, errors.New("not implemented")
}

func testRecord() *Record {
	return &Record{
		PatientID: "patient-1",
		Lang:      "en",
		CreatedAt: time.Now(),
	}
}

// TestSubmitDemographics_Success tests a valid submission advances to lifestyle
func TestSubmitDemographics_Success(t *testing.T) {
	saved := false
	age := 45
	gender := "female"
	mockRepo := &mockRepository{
		saveDemographicsFunc: func(ctx context.Context, patientID string, req DemographicsRequest) error {
			saved = true
			return nil
		},
		getRecordFunc: func(ctx context.Context, patientID string) (*Record, error) {
			record := testRecord()
			record.Age = &age
			record.Gender = &gender
			return record, nil
		},
	}
	publisher := testutil.NewMockPublisher()
	service := NewService(mockRepo, &mockEngine{}, publisher, config.DefaultLimits(), nil)

	resp, err := service.SubmitDemographics(context.Background(), "patient-1", DemographicsRequest{
		Age:      45,
		Gender:   "female",
		WeightKg: 68.5,
		HeightCm: 170,
	})

	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if !saved {
		t.Error("Expected demographics to be saved")
	}
	if resp.NextStep != string(StepLifestyle) {
		t.Errorf("Expected next step '%s', got '%s'", StepLifestyle, resp.NextStep)
	}
	publisher.AssertEventCount(t, messaging.EventStepCompleted, 1)
}

// TestSubmitDemographics_AgeOutOfRange tests validation of the age bounds
func TestSubmitDemographics_AgeOutOfRange(t *testing.T) {
	service := NewService(&mockRepository{}, &mockEngine{}, testutil.NewMockPublisher(), config.DefaultLimits(), nil)

	for _, age := range []int{0, -5, 121, 500} {
		_, err := service.SubmitDemographics(context.Background(), "patient-1", DemographicsRequest{
			Age:      age,
			Gender:   "male",
			WeightKg: 80,
			HeightCm: 180,
		})
		if !errors.Is(err, ErrValidation) {
			t.Errorf("Expected validation error for age %d, got: %v", age, err)
		}
	}
}

// TestSubmitLifestyle_SleepHoursOutOfRange tests validation of sleep bounds
func TestSubmitLifestyle_SleepHoursOutOfRange(t *testing.T) {
	service := NewService(&mockRepository{}, &mockEngine{}, testutil.NewMockPublisher(), config.DefaultLimits(), nil)

	for _, sleep := range []float64{0, 0.5, 25, 48} {
		_, err := service.SubmitLifestyle(context.Background(), "patient-1", LifestyleRequest{
			Diet:       "vegetarian",
			SleepHours: sleep,
		})
		if !errors.Is(err, ErrValidation) {
			t.Errorf("Expected validation error for sleep_hours %g, got: %v", sleep, err)
		}
	}
}

// TestSubmitSymptoms_NotFound tests that an unknown patient surfaces ErrNotFound
func TestSubmitSymptoms_NotFound(t *testing.T) {
	mockRepo := &mockRepository{
		saveSymptomsFunc: func(ctx context.Context, patientID string, symptoms string) error {
			return ErrNotFound
		},
	}
	service := NewService(mockRepo, &mockEngine{}, testutil.NewMockPublisher(), config.DefaultLimits(), nil)

	_, err := service.SubmitSymptoms(context.Background(), "missing", SymptomsRequest{Symptoms: "fever"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got: %v", err)
	}
}

// TestStatus_DerivesStepFromStoredData tests wizard resumption
func TestStatus_DerivesStepFromStoredData(t *testing.T) {
	age := 30
	gender := "male"
	diet := "omnivore"
	mockRepo := &mockRepository{
		getRecordFunc: func(ctx context.Context, patientID string) (*Record, error) {
			record := testRecord()
			record.Age = &age
			record.Gender = &gender
			record.Diet = &diet
			return record, nil
		},
	}
	service := NewService(mockRepo, &mockEngine{}, testutil.NewMockPublisher(), config.DefaultLimits(), nil)

	status, err := service.Status(context.Background(), "patient-1")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if status.CurrentStep != string(StepSymptoms) {
		t.Errorf("Expected current step '%s', got '%s'", StepSymptoms, status.CurrentStep)
	}
	if len(status.CompletedSteps) != 2 {
		t.Errorf("Expected 2 completed steps, got %d", len(status.CompletedSteps))
	}
	if status.IsComplete {
		t.Error("Expected consultation to be incomplete")
	}
}

// TestGetDiagnosisSuggestions_StoresRawResponse tests the engine round trip
func TestGetDiagnosisSuggestions_StoresRawResponse(t *testing.T) {
	var storedRaw json.RawMessage
	var engineLang string
	mockRepo := &mockRepository{
		getRecordFunc: func(ctx context.Context, patientID string) (*Record, error) {
			record := testRecord()
			record.Lang = "pt"
			return record, nil
		},
		saveAIDiagnosisFunc: func(ctx context.Context, patientID string, raw json.RawMessage) error {
			storedRaw = raw
			return nil
		},
	}
	mockEng := &mockEngine{
		differentialFunc: func(ctx context.Context, record map[string]interface{}, language, sessionID string) (*engine.Suggestion, json.RawMessage, error) {
			engineLang = language
			return &engine.Suggestion{
				Summary: "Two likely causes",
				Options: []engine.Option{
					{Name: "Asthma", Description: "airway inflammation"},
					{Name: "GERD", Description: "acid reflux"},
				},
			}, json.RawMessage(`{"summary":"Two likely causes"}`), nil
		},
	}
	service := NewService(mockRepo, mockEng, testutil.NewMockPublisher(), config.DefaultLimits(), nil)

	resp, err := service.GetDiagnosisSuggestions(context.Background(), "patient-1")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if engineLang != "pt" {
		t.Errorf("Expected engine to be called with lang 'pt', got '%s'", engineLang)
	}
	if storedRaw == nil {
		t.Error("Expected raw engine response to be stored")
	}
	if len(resp.Options) != 2 || resp.Options[0].Name != "Asthma" {
		t.Errorf("Unexpected options: %v", resp.Options)
	}
}

// TestSubmitDiagnosisSelections_RatingOutOfRange tests rating validation
func TestSubmitDiagnosisSelections_RatingOutOfRange(t *testing.T) {
	service := NewService(&mockRepository{}, &mockEngine{}, testutil.NewMockPublisher(), config.DefaultLimits(), nil)

	bad := 11
	_, err := service.SubmitDiagnosisSelections(context.Background(), "patient-1", DiagnosisSubmitRequest{
		SelectedDiagnoses: []string{"Asthma"},
		Evaluations: map[string]Ratings{
			"Asthma": {Accuracy: &bad},
		},
	})
	if !errors.Is(err, ErrValidation) {
		t.Errorf("Expected validation error, got: %v", err)
	}
}

// TestSubmitDiagnosisSelections_EmptySelection tests that an empty selection is rejected
func TestSubmitDiagnosisSelections_EmptySelection(t *testing.T) {
	service := NewService(&mockRepository{}, &mockEngine{}, testutil.NewMockPublisher(), config.DefaultLimits(), nil)

	_, err := service.SubmitDiagnosisSelections(context.Background(), "patient-1", DiagnosisSubmitRequest{})
	if !errors.Is(err, ErrValidation) {
		t.Errorf("Expected validation error, got: %v", err)
	}
}

// TestGetExamSuggestions_UsesSelectedDiagnoses tests that the engine receives
// the physician's diagnosis selections
func TestGetExamSuggestions_UsesSelectedDiagnoses(t *testing.T) {
	var engineDiagnoses []string
	mockRepo := &mockRepository{
		getRecordFunc: func(ctx context.Context, patientID string) (*Record, error) {
			record := testRecord()
			record.SelectedDiagnoses = []Selection{{Name: "Asthma"}, {Name: "GERD"}}
			return record, nil
		},
		saveAIExamsFunc: func(ctx context.Context, patientID string, raw json.RawMessage) error {
			return nil
		},
	}
	mockEng := &mockEngine{
		examsFunc: func(ctx context.Context, diagnoses []string, language, sessionID string) (*engine.Suggestion, json.RawMessage, error) {
			engineDiagnoses = diagnoses
			return &engine.Suggestion{Summary: "suggested exams"}, json.RawMessage(`{}`), nil
		},
	}
	service := NewService(mockRepo, mockEng, testutil.NewMockPublisher(), config.DefaultLimits(), nil)

	if _, err := service.GetExamSuggestions(context.Background(), "patient-1"); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(engineDiagnoses) != 2 || engineDiagnoses[0] != "Asthma" {
		t.Errorf("Expected engine to receive selected diagnoses, got: %v", engineDiagnoses)
	}
}

// TestSubmitExamSelections_FinalizesConsultation tests the full completion
// flow: selections replaced, record deidentified, consultation marked
// complete, event published
func TestSubmitExamSelections_FinalizesConsultation(t *testing.T) {
	replaced := false
	deidentified := false
	completed := false
	var savedFields DeidentifiedFields

	symptoms := "chest pain, lives at 12 Main St"
	mockRepo := &mockRepository{
		getRecordFunc: func(ctx context.Context, patientID string) (*Record, error) {
			record := testRecord()
			record.Symptoms = &symptoms
			record.SelectedDiagnoses = []Selection{{Name: "Angina"}}
			record.SelectedExams = []Selection{{Name: "ECG"}, {Name: "Stress test"}}
			return record, nil
		},
		replaceExamsFunc: func(ctx context.Context, patientID string, selections []Selection) error {
			replaced = true
			return nil
		},
		saveDeidentifiedFunc: func(ctx context.Context, patientID string, fields DeidentifiedFields) error {
			savedFields = fields
			return nil
		},
		markCompleteFunc: func(ctx context.Context, patientID string, completedAt time.Time) error {
			completed = true
			return nil
		},
	}
	mockEng := &mockEngine{
		deidentifyFunc: func(ctx context.Context, record map[string]interface{}) (map[string]interface{}, error) {
			deidentified = true
			return map[string]interface{}{
				"patient": map[string]interface{}{
					"symptoms": "chest pain, lives at [REDACTED]",
				},
			}, nil
		},
	}
	publisher := testutil.NewMockPublisher()
	rating := 8
	service := NewService(mockRepo, mockEng, publisher, config.DefaultLimits(), nil)

	resp, err := service.SubmitExamSelections(context.Background(), "patient-1", ExamSubmitRequest{
		SelectedExams: []string{"ECG", "Stress test"},
		Evaluations: map[string]Ratings{
			"ECG": {Accuracy: &rating, Comments: "standard workup"},
		},
	})

	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if !replaced || !deidentified || !completed {
		t.Errorf("Expected replace/deidentify/complete, got %v/%v/%v", replaced, deidentified, completed)
	}
	if savedFields.Symptoms == nil || *savedFields.Symptoms != "chest pain, lives at [REDACTED]" {
		t.Errorf("Expected deidentified symptoms to be persisted, got %v", savedFields.Symptoms)
	}
	if !resp.IsComplete {
		t.Error("Expected consultation to be complete")
	}
	publisher.AssertEventPublished(t, messaging.EventConsultationCompleted)

	event := publisher.GetLastEventByKey(messaging.EventConsultationCompleted)
	data := event.EventData.(messaging.ConsultationCompletedEvent).Data
	if data.DiagnosisCount != 1 || data.ExamCount != 2 {
		t.Errorf("Unexpected completion counts: %+v", data)
	}
}

// TestSubmitExamSelections_DeidentifyFailureAborts tests that a failed
// deidentification leaves the consultation open
func TestSubmitExamSelections_DeidentifyFailureAborts(t *testing.T) {
	completed := false
	mockRepo := &mockRepository{
		getRecordFunc: func(ctx context.Context, patientID string) (*Record, error) {
			return testRecord(), nil
		},
		replaceExamsFunc: func(ctx context.Context, patientID string, selections []Selection) error {
			return nil
		},
		markCompleteFunc: func(ctx context.Context, patientID string, completedAt time.Time) error {
			completed = true
			return nil
		},
	}
	mockEng := &mockEngine{
		deidentifyFunc: func(ctx context.Context, record map[string]interface{}) (map[string]interface{}, error) {
			return nil, errors.New("engine unavailable")
		},
	}
	publisher := testutil.NewMockPublisher()
	service := NewService(mockRepo, mockEng, publisher, config.DefaultLimits(), nil)

	_, err := service.SubmitExamSelections(context.Background(), "patient-1", ExamSubmitRequest{
		SelectedExams: []string{"ECG"},
	})

	if err == nil {
		t.Fatal("Expected error, got nil")
	}
	if completed {
		t.Error("Expected consultation to stay open after deidentify failure")
	}
	publisher.AssertEventNotPublished(t, messaging.EventConsultationCompleted)
}
