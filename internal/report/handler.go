package report

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/whitewolf2000ani/hiperhealth/internal/consultation"
	"github.com/whitewolf2000ani/hiperhealth/internal/logger"
)

type Handler struct {
	service        ServiceInterface
	maxUploadBytes int64
}

func NewHandler(service ServiceInterface, maxUploadBytes int64) *Handler {
	return &Handler{
		service:        service,
		maxUploadBytes: maxUploadBytes,
	}
}

// UploadMedicalReports handles POST /api/consultations/{id}/medical-reports/upload
func (h *Handler) UploadMedicalReports(w http.ResponseWriter, r *http.Request) {
	patientID := mux.Vars(r)["id"]

	files, err := h.parseFiles(w, r, "files")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_upload", err.Error())
		return
	}

	result, err := h.service.UploadMedicalReports(r.Context(), patientID, files)
	if err != nil {
		respondServiceError(w, err, "Failed to process reports")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// SkipMedicalReports handles POST /api/consultations/{id}/medical-reports/skip
func (h *Handler) SkipMedicalReports(w http.ResponseWriter, r *http.Request) {
	patientID := mux.Vars(r)["id"]

	result, err := h.service.SkipMedicalReports(r.Context(), patientID)
	if err != nil {
		respondServiceError(w, err, "Failed to skip reports")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// ListMedicalReports handles GET /api/consultations/{id}/medical-reports
func (h *Handler) ListMedicalReports(w http.ResponseWriter, r *http.Request) {
	patientID := mux.Vars(r)["id"]

	result, err := h.service.ListMedicalReports(r.Context(), patientID)
	if err != nil {
		respondServiceError(w, err, "Failed to list reports")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// UploadWearableData handles POST /api/consultations/{id}/wearable-data/upload
func (h *Handler) UploadWearableData(w http.ResponseWriter, r *http.Request) {
	patientID := mux.Vars(r)["id"]

	files, err := h.parseFiles(w, r, "file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_upload", err.Error())
		return
	}
	if len(files) == 0 {
		respondError(w, http.StatusBadRequest, "invalid_upload", "No file uploaded")
		return
	}

	result, err := h.service.UploadWearableData(r.Context(), patientID, files[0])
	if err != nil {
		respondServiceError(w, err, "Failed to process wearable data")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// SkipWearableData handles POST /api/consultations/{id}/wearable-data/skip
func (h *Handler) SkipWearableData(w http.ResponseWriter, r *http.Request) {
	patientID := mux.Vars(r)["id"]

	result, err := h.service.SkipWearableData(r.Context(), patientID)
	if err != nil {
		respondServiceError(w, err, "Failed to skip wearable data")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// parseFiles reads a bounded multipart form and buffers the named files.
func (h *Handler) parseFiles(w http.ResponseWriter, r *http.Request, field string) ([]UploadFile, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		return nil, errors.New("request is not a valid multipart form or exceeds the upload limit")
	}

	var files []UploadFile
	for _, header := range r.MultipartForm.File[field] {
		file, err := readFile(header)
		if err != nil {
			return nil, err
		}
		files = append(files, file)
	}
	return files, nil
}

func readFile(header *multipart.FileHeader) (UploadFile, error) {
	f, err := header.Open()
	if err != nil {
		return UploadFile{}, errors.New("failed to read uploaded file")
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		return UploadFile{}, errors.New("failed to read uploaded file")
	}

	return UploadFile{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Content:     content,
	}, nil
}

func respondServiceError(w http.ResponseWriter, err error, message string) {
	switch {
	case errors.Is(err, consultation.ErrNotFound):
		respondError(w, http.StatusNotFound, "not_found", "Patient not found")
	case errors.Is(err, ErrInvalidFile):
		respondError(w, http.StatusBadRequest, "invalid_file", err.Error())
	default:
		logger.Log.WithError(err).Error(message)
		respondError(w, http.StatusInternalServerError, "internal_error", message)
	}
}

func respondJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, statusCode int, errorType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error":   errorType,
		"message": message,
	})
}
