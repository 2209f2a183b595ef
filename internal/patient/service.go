package patient

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/whitewolf2000ani/hiperhealth/internal/consultation"
	"github.com/whitewolf2000ani/hiperhealth/internal/logger"
	"github.com/whitewolf2000ani/hiperhealth/internal/messaging"
	"github.com/whitewolf2000ani/hiperhealth/internal/pagination"
	"github.com/whitewolf2000ani/hiperhealth/internal/telemetry"
)

const statsCacheKey = "patients:stats"

// StatsCache is the slice of the cache this service uses. A nil-backed cache
// degrades to direct database reads.
type StatsCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type Service struct {
	repo      RepositoryInterface
	publisher messaging.PublisherInterface
	cache     StatsCache
	cacheTTL  time.Duration
	metrics   *telemetry.Metrics
}

func NewService(repo RepositoryInterface, publisher messaging.PublisherInterface, statsCache StatsCache, cacheTTL time.Duration, metrics *telemetry.Metrics) *Service {
	return &Service{
		repo:      repo,
		publisher: publisher,
		cache:     statsCache,
		cacheTTL:  cacheTTL,
		metrics:   metrics,
	}
}

// CreatePatient starts an anonymous intake session. The language defaults to
// English when the client does not send one.
func (s *Service) CreatePatient(ctx context.Context, req CreatePatientRequest) (*CreatePatientResponse, error) {
	lang := req.Lang
	if lang == "" {
		lang = "en"
	}

	patientID, createdAt, err := s.repo.CreatePatient(ctx, lang)
	if err != nil {
		return nil, fmt.Errorf("failed to create patient: %w", err)
	}

	event := messaging.PatientCreatedEvent{
		BaseEvent: messaging.NewBaseEvent(messaging.EventPatientCreated),
		Data: messaging.PatientCreatedData{
			PatientID: patientID,
			Lang:      lang,
			CreatedAt: createdAt,
		},
	}
	if err := s.publisher.Publish(ctx, messaging.EventPatientCreated, event); err != nil {
		logger.Log.WithError(err).Warn("failed to publish patient created event")
	}

	if s.metrics != nil {
		s.metrics.RecordPatientOperation(ctx, "create")
	}
	s.invalidateStats(ctx)

	return &CreatePatientResponse{
		Success:   true,
		PatientID: patientID,
		Lang:      lang,
		CreatedAt: createdAt,
		NextStep:  string(consultation.StepDemographics),
	}, nil
}

// ListPatients returns one dashboard page.
func (s *Service) ListPatients(ctx context.Context, params pagination.Params) (*PaginatedListResponse, error) {
	params.Validate()

	summaries, total, err := s.repo.ListPatients(ctx, params.Limit, params.CalculateOffset())
	if err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}

	return &PaginatedListResponse{
		Success:    true,
		Patients:   summaries,
		Pagination: params.CalculateMeta(total),
	}, nil
}

// DeletePatient soft-deletes the patient and refreshes the dashboard stats.
func (s *Service) DeletePatient(ctx context.Context, patientID string) (*DeleteResponse, error) {
	if err := s.repo.SoftDelete(ctx, patientID); err != nil {
		return nil, err
	}

	event := messaging.PatientDeletedEvent{
		BaseEvent: messaging.NewBaseEvent(messaging.EventPatientDeleted),
		Data: messaging.PatientDeletedData{
			PatientID: patientID,
			DeletedAt: time.Now().UTC(),
		},
	}
	if err := s.publisher.Publish(ctx, messaging.EventPatientDeleted, event); err != nil {
		logger.Log.WithError(err).Warn("failed to publish patient deleted event")
	}

	if s.metrics != nil {
		s.metrics.RecordPatientOperation(ctx, "delete")
	}
	s.invalidateStats(ctx)

	return &DeleteResponse{
		Success: true,
		Message: "Patient deleted successfully",
	}, nil
}

// GetStats serves the dashboard counters from cache when a fresh copy
// exists, falling back to the database otherwise.
func (s *Service) GetStats(ctx context.Context) (*Stats, error) {
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, statsCacheKey); err != nil {
			logger.Log.WithError(err).Warn("stats cache read failed")
		} else if cached != nil {
			var stats Stats
			if err := json.Unmarshal(cached, &stats); err == nil {
				return &stats, nil
			}
		}
	}

	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}

	if s.cache != nil {
		if encoded, err := json.Marshal(stats); err == nil {
			if err := s.cache.Set(ctx, statsCacheKey, encoded, s.cacheTTL); err != nil {
				logger.Log.WithError(err).Warn("stats cache write failed")
			}
		}
	}
	return stats, nil
}

func (s *Service) invalidateStats(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, statsCacheKey); err != nil {
		logger.Log.WithError(err).Warn("stats cache invalidation failed")
	}
}
