package consultation

// Step is one named stage in the fixed intake sequence.
type Step string

const (
	StepDemographics Step = "demographics"
	StepLifestyle    Step = "lifestyle"
	StepSymptoms     Step = "symptoms"
	StepMental       Step = "mental"
	StepTests        Step = "tests"
	StepWearable     Step = "wearable"
	StepDiagnosis    Step = "diagnosis"
	StepExams        Step = "exams"
	StepComplete     Step = "complete"
)

// StepOrder is the fixed wizard sequence. StepComplete is a terminal marker,
// not a submittable step.
var StepOrder = []Step{
	StepDemographics,
	StepLifestyle,
	StepSymptoms,
	StepMental,
	StepTests,
	StepWearable,
	StepDiagnosis,
	StepExams,
}

// Progress captures which steps of a consultation hold data. The current
// step is always derived from stored data, never trusted from the client.
type Progress struct {
	Demographics bool
	Lifestyle    bool
	Symptoms     bool
	Mental       bool
	Tests        bool
	Wearable     bool
	Diagnosis    bool
	Exams        bool
}

func (p Progress) has(step Step) bool {
	switch step {
	case StepDemographics:
		return p.Demographics
	case StepLifestyle:
		return p.Lifestyle
	case StepSymptoms:
		return p.Symptoms
	case StepMental:
		return p.Mental
	case StepTests:
		return p.Tests
	case StepWearable:
		return p.Wearable
	case StepDiagnosis:
		return p.Diagnosis
	case StepExams:
		return p.Exams
	}
	return false
}

// Next returns the first step still missing data, or StepComplete.
func (p Progress) Next() Step {
	for _, step := range StepOrder {
		if !p.has(step) {
			return step
		}
	}
	return StepComplete
}

// Completed returns the steps that already hold data, in wizard order.
func (p Progress) Completed() []Step {
	completed := make([]Step, 0, len(StepOrder))
	for _, step := range StepOrder {
		if p.has(step) {
			completed = append(completed, step)
		}
	}
	return completed
}

// IsComplete reports whether every wizard step holds data.
func (p Progress) IsComplete() bool {
	return p.Next() == StepComplete
}
