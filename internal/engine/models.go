package engine

// Option is a single AI-suggested diagnosis or exam
type Option struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Suggestion is the engine's answer to a differential-diagnosis or
// exam-suggestion request
type Suggestion struct {
	Summary string   `json:"summary"`
	Options []Option `json:"options"`
}

type suggestionRequest struct {
	Patient   map[string]interface{} `json:"patient,omitempty"`
	Diagnoses []string               `json:"diagnoses,omitempty"`
	Language  string                 `json:"language"`
	SessionID string                 `json:"session_id"`
}

type deidentifyRequest struct {
	Record map[string]interface{} `json:"record"`
}

type deidentifyResponse struct {
	Record map[string]interface{} `json:"record"`
}
