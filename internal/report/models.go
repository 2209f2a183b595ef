package report

// UploadFile is one file received in a multipart upload, already read into
// memory and bounded by the server's upload limit.
type UploadFile struct {
	Filename    string
	ContentType string
	Content     []byte
}

// UploadResult confirms a medical-report upload batch. A batch is all or
// nothing: one invalid file rejects the whole request.
type UploadResult struct {
	Success       bool     `json:"success"`
	PatientID     string   `json:"patient_id"`
	UploadedFiles []string `json:"uploaded_files"`
	TotalReports  int      `json:"total_reports"`
	NextStep      string   `json:"next_step"`
}

// SkipResult acknowledges an explicitly skipped upload step.
type SkipResult struct {
	Success   bool   `json:"success"`
	PatientID string `json:"patient_id"`
	NextStep  string `json:"next_step"`
}

// ReportSummary is one stored report in the list view.
type ReportSummary struct {
	FileName     string                 `json:"file_name"`
	ResourceType string                 `json:"resource_type"`
	FHIRContent  map[string]interface{} `json:"fhir_content"`
}

// ListResponse is the stored-report collection for a patient.
type ListResponse struct {
	PatientID string          `json:"patient_id"`
	Reports   []ReportSummary `json:"reports"`
}
