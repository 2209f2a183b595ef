package consultation

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/whitewolf2000ani/hiperhealth/internal/logger"
)

type Handler struct {
	service ServiceInterface
}

func NewHandler(service ServiceInterface) *Handler {
	return &Handler{service: service}
}

// GetStatus handles GET /api/consultations/{id}/status
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	patientID := mux.Vars(r)["id"]

	status, err := h.service.Status(r.Context(), patientID)
	if err != nil {
		respondServiceError(w, err, "Failed to get consultation status")
		return
	}
	respondJSON(w, http.StatusOK, status)
}

// SubmitDemographics handles POST /api/consultations/{id}/demographics
func (h *Handler) SubmitDemographics(w http.ResponseWriter, r *http.Request) {
	patientID := mux.Vars(r)["id"]

	var req DemographicsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	resp, err := h.service.SubmitDemographics(r.Context(), patientID, req)
	if err != nil {
		respondServiceError(w, err, "Failed to save demographics")
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// SubmitLifestyle handles POST /api/consultations/{id}/lifestyle
func (h *Handler) SubmitLifestyle(w http.ResponseWriter, r *http.Request) {
	patientID := mux.Vars(r)["id"]

	var req LifestyleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	resp, err := h.service.SubmitLifestyle(r.Context(), patientID, req)
	if err != nil {
		respondServiceError(w, err, "Failed to save lifestyle")
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// SubmitSymptoms handles POST /api/consultations/{id}/symptoms
func (h *Handler) SubmitSymptoms(w http.ResponseWriter, r *http.Request) {
	patientID := mux.Vars(r)["id"]

	var req SymptomsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	resp, err := h.service.SubmitSymptoms(r.Context(), patientID, req)
	if err != nil {
		respondServiceError(w, err, "Failed to save symptoms")
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// SubmitMentalHealth handles POST /api/consultations/{id}/mental
func (h *Handler) SubmitMentalHealth(w http.ResponseWriter, r *http.Request) {
	patientID := mux.Vars(r)["id"]

	var req MentalHealthRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	resp, err := h.service.SubmitMentalHealth(r.Context(), patientID, req)
	if err != nil {
		respondServiceError(w, err, "Failed to save mental health")
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// GetDiagnosis handles GET /api/consultations/{id}/diagnosis
func (h *Handler) GetDiagnosis(w http.ResponseWriter, r *http.Request) {
	patientID := mux.Vars(r)["id"]

	resp, err := h.service.GetDiagnosisSuggestions(r.Context(), patientID)
	if err != nil {
		respondServiceError(w, err, "Failed to get diagnosis suggestions")
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// SubmitDiagnosis handles POST /api/consultations/{id}/diagnosis
func (h *Handler) SubmitDiagnosis(w http.ResponseWriter, r *http.Request) {
	patientID := mux.Vars(r)["id"]

	var req DiagnosisSubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	resp, err := h.service.SubmitDiagnosisSelections(r.Context(), patientID, req)
	if err != nil {
		respondServiceError(w, err, "Failed to save diagnosis selections")
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// GetExams handles GET /api/consultations/{id}/exams
func (h *Handler) GetExams(w http.ResponseWriter, r *http.Request) {
	patientID := mux.Vars(r)["id"]

	resp, err := h.service.GetExamSuggestions(r.Context(), patientID)
	if err != nil {
		respondServiceError(w, err, "Failed to get exam suggestions")
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// SubmitExams handles POST /api/consultations/{id}/exams
func (h *Handler) SubmitExams(w http.ResponseWriter, r *http.Request) {
	patientID := mux.Vars(r)["id"]

	var req ExamSubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	resp, err := h.service.SubmitExamSelections(r.Context(), patientID, req)
	if err != nil {
		respondServiceError(w, err, "Failed to complete consultation")
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

func respondServiceError(w http.ResponseWriter, err error, message string) {
	switch {
	case errors.Is(err, ErrNotFound):
		respondError(w, http.StatusNotFound, "not_found", "Patient not found")
	case errors.Is(err, ErrValidation):
		respondError(w, http.StatusBadRequest, "validation_error", err.Error())
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
