package consultation

import (
	"encoding/json"
	"time"
)

// Ratings is a physician's evaluation of one AI-suggested diagnosis or exam:
// five 1-10 integer scores plus an optional free-text comment.
type Ratings struct {
	Accuracy   *int   `json:"accuracy,omitempty"`
	Relevance  *int   `json:"relevance,omitempty"`
	Usefulness *int   `json:"usefulness,omitempty"`
	Coherence  *int   `json:"coherence,omitempty"`
	Safety     *int   `json:"safety,omitempty"`
	Comments   string `json:"comments,omitempty"`
}

// Selection is one AI suggestion the physician selected, with its evaluation.
type Selection struct {
	Name    string  `json:"name"`
	Ratings Ratings `json:"ratings"`
}

// Record is the full state of a patient's intake session: demographics on the
// patient row plus the latest consultation's form data and AI selections.
// Pointer fields are nil while their wizard step is pending.
type Record struct {
	PatientID   string
	Lang        string
	CreatedAt   time.Time
	CompletedAt *time.Time

	Age    *int
	Gender *string

	WeightKg         *float64
	HeightCm         *float64
	Diet             *string
	SleepHours       *float64
	PhysicalActivity *string
	MentalExercises  *string
	Symptoms         *string
	MentalHealth     *string

	// JSONB payloads; nil means the step has not been submitted yet, while
	// an empty JSON array means it was explicitly skipped.
	MedicalReports json.RawMessage
	WearableData   json.RawMessage
	AIDiagnosis    json.RawMessage
	AIExams        json.RawMessage

	SelectedDiagnoses []Selection
	SelectedExams     []Selection
}

// Progress derives the wizard progress from the stored record.
func (r *Record) Progress() Progress {
	return Progress{
		Demographics: r.Age != nil,
		Lifestyle:    r.Diet != nil,
		Symptoms:     r.Symptoms != nil,
		Mental:       r.MentalHealth != nil,
		Tests:        r.MedicalReports != nil,
		Wearable:     r.WearableData != nil,
		Diagnosis:    len(r.SelectedDiagnoses) > 0,
		Exams:        len(r.SelectedExams) > 0,
	}
}

// AsMap flattens the record into the JSON shape shared with the engine and
// the dashboard detail view.
func (r *Record) AsMap() map[string]interface{} {
	meta := map[string]interface{}{
		"uuid": r.PatientID,
		"lang": r.Lang,
	}
	if r.CompletedAt != nil {
		meta["timestamp"] = r.CompletedAt.UTC().Format(time.RFC3339)
	} else {
		meta["timestamp"] = nil
	}

	patient := map[string]interface{}{
		"age":               intValue(r.Age),
		"gender":            stringValue(r.Gender),
		"weight_kg":         floatValue(r.WeightKg),
		"height_cm":         floatValue(r.HeightCm),
		"diet":              stringValue(r.Diet),
		"sleep_hours":       floatValue(r.SleepHours),
		"physical_activity": stringValue(r.PhysicalActivity),
		"mental_exercises":  stringValue(r.MentalExercises),
		"symptoms":          stringValue(r.Symptoms),
		"mental_health":     stringValue(r.MentalHealth),
		"previous_tests":    rawValue(r.MedicalReports),
		"wearable_data":     rawValue(r.WearableData),
	}

	diagnosisNames := make([]string, len(r.SelectedDiagnoses))
	diagnosisEvals := make(map[string]interface{}, len(r.SelectedDiagnoses))
	for i, sel := range r.SelectedDiagnoses {
		diagnosisNames[i] = sel.Name
		diagnosisEvals[sel.Name] = map[string]interface{}{"ratings": sel.Ratings}
	}
	examNames := make([]string, len(r.SelectedExams))
	examEvals := make(map[string]interface{}, len(r.SelectedExams))
	for i, sel := range r.SelectedExams {
		examNames[i] = sel.Name
		examEvals[sel.Name] = map[string]interface{}{"ratings": sel.Ratings}
	}

	return map[string]interface{}{
		"meta":               meta,
		"patient":            patient,
		"selected_diagnoses": diagnosisNames,
		"selected_exams":     examNames,
		"ai_diag":            rawValue(r.AIDiagnosis),
		"ai_exam":            rawValue(r.AIExams),
		"evaluations": map[string]interface{}{
			"ai_diag": diagnosisEvals,
			"ai_exam": examEvals,
		},
	}
}

func intValue(p *int) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

func floatValue(p *float64) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

func stringValue(p *string) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

func rawValue(raw json.RawMessage) interface{} {
	if raw == nil {
		return nil
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return v
}

// Reports unmarshals the stored FHIR report collection. A pending or skipped
// step yields an empty slice.
func (r *Record) Reports() []map[string]interface{} {
	if r.MedicalReports == nil {
		return nil
	}
	var reports []map[string]interface{}
	if err := json.Unmarshal(r.MedicalReports, &reports); err != nil {
		return nil
	}
	return reports
}

// DemographicsRequest is the demographics step submission.
type DemographicsRequest struct {
	Age      int     `json:"age"`
	Gender   string  `json:"gender"`
	WeightKg float64 `json:"weight_kg"`
	HeightCm float64 `json:"height_cm"`
}

// LifestyleRequest is the lifestyle step submission.
type LifestyleRequest struct {
	Diet             string  `json:"diet"`
	SleepHours       float64 `json:"sleep_hours"`
	PhysicalActivity string  `json:"physical_activity"`
	MentalExercises  string  `json:"mental_exercises"`
}

// SymptomsRequest is the symptoms step submission.
type SymptomsRequest struct {
	Symptoms string `json:"symptoms"`
}

// MentalHealthRequest is the mental-health step submission.
type MentalHealthRequest struct {
	MentalHealth string `json:"mental_health"`
}

// StepResponse is returned by every step submission.
type StepResponse struct {
	Success   bool   `json:"success"`
	NextStep  string `json:"next_step"`
	PatientID string `json:"patient_id"`
}

// StatusResponse describes the consultation state for wizard resumption.
type StatusResponse struct {
	PatientID      string                 `json:"patient_id"`
	CurrentStep    string                 `json:"current_step"`
	CompletedSteps []string               `json:"completed_steps"`
	IsComplete     bool                   `json:"is_complete"`
	Lang           string                 `json:"lang"`
	Record         map[string]interface{} `json:"record"`
}

// SuggestionResponse carries AI options back to the wizard.
type SuggestionResponse struct {
	PatientID string             `json:"patient_id"`
	Summary   string             `json:"summary"`
	Options   []SuggestionOption `json:"options"`
}

type SuggestionOption struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// DiagnosisSubmitRequest carries selected diagnoses and their evaluations.
type DiagnosisSubmitRequest struct {
	SelectedDiagnoses []string           `json:"selected_diagnoses"`
	Evaluations       map[string]Ratings `json:"evaluations"`
}

// ExamSubmitRequest carries selected exams and their evaluations.
type ExamSubmitRequest struct {
	SelectedExams []string           `json:"selected_exams"`
	Evaluations   map[string]Ratings `json:"evaluations"`
}

// ExamSubmitResponse finalizes the consultation.
type ExamSubmitResponse struct {
	Success    bool   `json:"success"`
	PatientID  string `json:"patient_id"`
	IsComplete bool   `json:"is_complete"`
}
