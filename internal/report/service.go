package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/whitewolf2000ani/hiperhealth/internal/config"
	"github.com/whitewolf2000ani/hiperhealth/internal/consultation"
	"github.com/whitewolf2000ani/hiperhealth/internal/telemetry"
)

// ErrInvalidFile marks an upload the client must fix before retrying.
var ErrInvalidFile = errors.New("invalid file")

// Store is the slice of the consultation repository this service uses.
type Store interface {
	GetRecord(ctx context.Context, patientID string) (*consultation.Record, error)
	SaveMedicalReports(ctx context.Context, patientID string, reports json.RawMessage) error
	SaveWearableData(ctx context.Context, patientID string, data json.RawMessage) error
}

// Extractor converts uploaded files into structured data via the engine.
type Extractor interface {
	ExtractReport(ctx context.Context, filename, contentType string, content []byte) (map[string]interface{}, error)
	ExtractWearable(ctx context.Context, filename, contentType string, content []byte) (json.RawMessage, error)
}

type Service struct {
	store     Store
	extractor Extractor
	limits    config.Limits
	metrics   *telemetry.Metrics
}

func NewService(store Store, extractor Extractor, limits config.Limits, metrics *telemetry.Metrics) *Service {
	return &Service{
		store:     store,
		extractor: extractor,
		limits:    limits,
		metrics:   metrics,
	}
}

// UploadMedicalReports validates and extracts an upload batch, then appends
// the extracted documents to the consultation's stored collection. The batch
// fails as a whole on the first invalid or unprocessable file.
func (s *Service) UploadMedicalReports(ctx context.Context, patientID string, files []UploadFile) (*UploadResult, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no files uploaded", ErrInvalidFile)
	}

	record, err := s.store.GetRecord(ctx, patientID)
	if err != nil {
		return nil, err
	}

	stored := record.Reports()
	seen := make(map[string]bool, len(stored))
	for _, r := range stored {
		if name, ok := r["filename"].(string); ok {
			seen[strings.ToLower(name)] = true
		}
	}

	uploaded := make([]string, 0, len(files))
	for _, file := range files {
		if file.Filename == "" {
			continue
		}
		if err := s.validateFile(file, seen); err != nil {
			s.recordUpload(ctx, "medical_report", false)
			return nil, err
		}

		fhir, err := s.extractor.ExtractReport(ctx, file.Filename, file.ContentType, file.Content)
		if err != nil {
			s.recordUpload(ctx, "medical_report", false)
			return nil, fmt.Errorf("failed to extract report data: %w", err)
		}
		fhir["filename"] = file.Filename

		stored = append(stored, fhir)
		seen[strings.ToLower(file.Filename)] = true
		uploaded = append(uploaded, file.Filename)
		s.recordUpload(ctx, "medical_report", true)
	}

	raw, err := json.Marshal(stored)
	if err != nil {
		return nil, fmt.Errorf("failed to encode reports: %w", err)
	}
	if err := s.store.SaveMedicalReports(ctx, patientID, raw); err != nil {
		return nil, fmt.Errorf("failed to save reports: %w", err)
	}

	return &UploadResult{
		Success:       true,
		PatientID:     patientID,
		UploadedFiles: uploaded,
		TotalReports:  len(stored),
		NextStep:      s.nextStep(ctx, patientID),
	}, nil
}

// SkipMedicalReports records an explicitly empty report collection so the
// wizard can advance past the step.
func (s *Service) SkipMedicalReports(ctx context.Context, patientID string) (*SkipResult, error) {
	record, err := s.store.GetRecord(ctx, patientID)
	if err != nil {
		return nil, err
	}

	// Skipping never discards reports that were already uploaded.
	if record.MedicalReports == nil {
		if err := s.store.SaveMedicalReports(ctx, patientID, json.RawMessage("[]")); err != nil {
			return nil, fmt.Errorf("failed to skip reports: %w", err)
		}
	}

	return &SkipResult{
		Success:   true,
		PatientID: patientID,
		NextStep:  s.nextStep(ctx, patientID),
	}, nil
}

// ListMedicalReports summarizes the stored FHIR documents for review.
func (s *Service) ListMedicalReports(ctx context.Context, patientID string) (*ListResponse, error) {
	record, err := s.store.GetRecord(ctx, patientID)
	if err != nil {
		return nil, err
	}

	stored := record.Reports()
	summaries := make([]ReportSummary, 0, len(stored))
	for _, r := range stored {
		fileName, _ := r["filename"].(string)
		if fileName == "" {
			fileName = "unknown"
		}
		summaries = append(summaries, ReportSummary{
			FileName:     fileName,
			ResourceType: resourceType(r),
			FHIRContent:  r,
		})
	}

	return &ListResponse{PatientID: patientID, Reports: summaries}, nil
}

// UploadWearableData extracts a single wearable export and stores the
// resulting series on the consultation.
func (s *Service) UploadWearableData(ctx context.Context, patientID string, file UploadFile) (*SkipResult, error) {
	if file.Filename == "" || len(file.Content) == 0 {
		return nil, fmt.Errorf("%w: file is empty", ErrInvalidFile)
	}

	if _, err := s.store.GetRecord(ctx, patientID); err != nil {
		return nil, err
	}

	series, err := s.extractor.ExtractWearable(ctx, file.Filename, file.ContentType, file.Content)
	if err != nil {
		s.recordUpload(ctx, "wearable", false)
		return nil, fmt.Errorf("failed to extract wearable data: %w", err)
	}
	s.recordUpload(ctx, "wearable", true)

	if err := s.store.SaveWearableData(ctx, patientID, series); err != nil {
		return nil, fmt.Errorf("failed to save wearable data: %w", err)
	}

	return &SkipResult{
		Success:   true,
		PatientID: patientID,
		NextStep:  s.nextStep(ctx, patientID),
	}, nil
}

// SkipWearableData records an explicitly empty wearable payload.
func (s *Service) SkipWearableData(ctx context.Context, patientID string) (*SkipResult, error) {
	record, err := s.store.GetRecord(ctx, patientID)
	if err != nil {
		return nil, err
	}

	if record.WearableData == nil {
		if err := s.store.SaveWearableData(ctx, patientID, json.RawMessage("[]")); err != nil {
			return nil, fmt.Errorf("failed to skip wearable data: %w", err)
		}
	}

	return &SkipResult{
		Success:   true,
		PatientID: patientID,
		NextStep:  s.nextStep(ctx, patientID),
	}, nil
}

// validateFile accepts a file when either its mimetype or its extension is
// allowed, and rejects duplicates by case-insensitive filename.
func (s *Service) validateFile(file UploadFile, seen map[string]bool) error {
	lower := strings.ToLower(file.Filename)
	if seen[lower] {
		return fmt.Errorf("%w: file already uploaded: %s", ErrInvalidFile, file.Filename)
	}

	for _, mimetype := range s.limits.AllowedMimetypes {
		if file.ContentType == mimetype {
			return nil
		}
	}
	for _, ext := range s.limits.AllowedExtensions {
		if strings.HasSuffix(lower, "."+ext) {
			return nil
		}
	}
	return fmt.Errorf("%w: only PDF, PNG, JPEG, JPG files allowed", ErrInvalidFile)
}

func (s *Service) nextStep(ctx context.Context, patientID string) string {
	record, err := s.store.GetRecord(ctx, patientID)
	if err != nil {
		return ""
	}
	return string(record.Progress().Next())
}

func (s *Service) recordUpload(ctx context.Context, kind string, accepted bool) {
	if s.metrics != nil {
		s.metrics.RecordUpload(ctx, kind, accepted)
	}
}

// resourceType names a FHIR document by its top-level resource keys, which by
// convention start with an uppercase letter.
func resourceType(report map[string]interface{}) string {
	keys := make([]string, 0, len(report))
	for k := range report {
		if k == "filename" || k == "" {
			continue
		}
		if unicode.IsUpper(rune(k[0])) {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return "Bundle"
	}
	sort.Strings(keys)
	return strings.Join(keys, ", ")
}
