package patient

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/whitewolf2000ani/hiperhealth/internal/consultation"
	"github.com/whitewolf2000ani/hiperhealth/internal/logger"
	"github.com/whitewolf2000ani/hiperhealth/internal/pagination"
)

type Handler struct {
	service      ServiceInterface
	recordLookup RecordLookup
}

func NewHandler(service ServiceInterface, recordLookup RecordLookup) *Handler {
	return &Handler{
		service:      service,
		recordLookup: recordLookup,
	}
}

// CreatePatient handles POST /api/patients
func (h *Handler) CreatePatient(w http.ResponseWriter, r *http.Request) {
	var req CreatePatientRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
			return
		}
	}

	resp, err := h.service.CreatePatient(r.Context(), req)
	if err != nil {
		respondServiceError(w, err, "Failed to create patient")
		return
	}
	respondJSON(w, http.StatusCreated, resp)
}

// ListPatients handles GET /api/patients
func (h *Handler) ListPatients(w http.ResponseWriter, r *http.Request) {
	params := pagination.ParseParams(r)

	resp, err := h.service.ListPatients(r.Context(), params)
	if err != nil {
		respondServiceError(w, err, "Failed to list patients")
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// GetPatient handles GET /api/patients/{id}
func (h *Handler) GetPatient(w http.ResponseWriter, r *http.Request) {
	patientID := mux.Vars(r)["id"]

	record, err := h.recordLookup.PatientRecord(r.Context(), patientID)
	if err != nil {
		respondServiceError(w, err, "Failed to get patient")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"patient": record,
	})
}

// DeletePatient handles DELETE /api/patients/{id}
func (h *Handler) DeletePatient(w http.ResponseWriter, r *http.Request) {
	patientID := mux.Vars(r)["id"]

	resp, err := h.service.DeletePatient(r.Context(), patientID)
	if err != nil {
		respondServiceError(w, err, "Failed to delete patient")
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// GetStats handles GET /api/patients/stats
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.GetStats(r.Context())
	if err != nil {
		respondServiceError(w, err, "Failed to get stats")
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

func respondServiceError(w http.ResponseWriter, err error, message string) {
	if errors.Is(err, consultation.ErrNotFound) {
		respondError(w, http.StatusNotFound, "not_found", "Patient not found")
		return
	}
	logger.Log.WithError(err).Error(message)
	respondError(w, http.StatusInternalServerError, "internal_error", message)
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
