package http

import (
	"database/sql"
	"net/http"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"

	"github.com/whitewolf2000ani/hiperhealth/internal/config"
	"github.com/whitewolf2000ani/hiperhealth/internal/consultation"
	"github.com/whitewolf2000ani/hiperhealth/internal/engine"
	"github.com/whitewolf2000ani/hiperhealth/internal/messaging"
	"github.com/whitewolf2000ani/hiperhealth/internal/patient"
	"github.com/whitewolf2000ani/hiperhealth/internal/report"
	"github.com/whitewolf2000ani/hiperhealth/internal/telemetry"
)

// Dependencies carries the shared infrastructure the router wires into the
// feature packages.
type Dependencies struct {
	DB         *sql.DB
	Publisher  messaging.PublisherInterface
	Engine     *engine.Client
	StatsCache patient.StatsCache
	Config     *config.Config
	Limits     config.Limits
	Metrics    *telemetry.Metrics
}

// SetupRouter initializes all routes for the application
func SetupRouter(deps Dependencies) *mux.Router {
	consultationRepo := consultation.NewRepository(deps.DB)
	consultationService := consultation.NewService(consultationRepo, deps.Engine, deps.Publisher, deps.Limits, deps.Metrics)
	consultationHandler := consultation.NewHandler(consultationService)

	reportService := report.NewService(consultationRepo, deps.Engine, deps.Limits, deps.Metrics)
	reportHandler := report.NewHandler(reportService, deps.Config.MaxUploadBytes)

	patientRepo := patient.NewRepository(deps.DB)
	patientService := patient.NewService(patientRepo, deps.Publisher, deps.StatsCache, deps.Config.StatsCacheTTL, deps.Metrics)
	patientHandler := patient.NewHandler(patientService, consultationService)

	r := mux.NewRouter()
	r.Use(otelmux.Middleware("intake-service"))
	r.Use(metricsMiddleware(deps.Metrics))

	health := func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok","service":"intake-service"}`))
	}
	r.HandleFunc("/health", health).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", health).Methods("GET")

	// Patient dashboard
	api.HandleFunc("/patients", patientHandler.CreatePatient).Methods("POST")
	api.HandleFunc("/patients", patientHandler.ListPatients).Methods("GET")
	api.HandleFunc("/patients/stats", patientHandler.GetStats).Methods("GET")
	api.HandleFunc("/patients/{id}", patientHandler.GetPatient).Methods("GET")
	api.HandleFunc("/patients/{id}", patientHandler.DeletePatient).Methods("DELETE")

	// Intake wizard steps
	api.HandleFunc("/consultations/{id}/status", consultationHandler.GetStatus).Methods("GET")
	api.HandleFunc("/consultations/{id}/demographics", consultationHandler.SubmitDemographics).Methods("POST")
	api.HandleFunc("/consultations/{id}/lifestyle", consultationHandler.SubmitLifestyle).Methods("POST")
	api.HandleFunc("/consultations/{id}/symptoms", consultationHandler.SubmitSymptoms).Methods("POST")
	api.HandleFunc("/consultations/{id}/mental", consultationHandler.SubmitMentalHealth).Methods("POST")

	// File uploads
	api.HandleFunc("/consultations/{id}/medical-reports/upload", reportHandler.UploadMedicalReports).Methods("POST")
	api.HandleFunc("/consultations/{id}/medical-reports/skip", reportHandler.SkipMedicalReports).Methods("POST")
	api.HandleFunc("/consultations/{id}/medical-reports", reportHandler.ListMedicalReports).Methods("GET")
	api.HandleFunc("/consultations/{id}/wearable-data/upload", reportHandler.UploadWearableData).Methods("POST")
	api.HandleFunc("/consultations/{id}/wearable-data/skip", reportHandler.SkipWearableData).Methods("POST")

	// AI suggestion review
	api.HandleFunc("/consultations/{id}/diagnosis", consultationHandler.GetDiagnosis).Methods("GET")
	api.HandleFunc("/consultations/{id}/diagnosis", consultationHandler.SubmitDiagnosis).Methods("POST")
	api.HandleFunc("/consultations/{id}/exams", consultationHandler.GetExams).Methods("GET")
	api.HandleFunc("/consultations/{id}/exams", consultationHandler.SubmitExams).Methods("POST")

	return r
}
