package services

import (
	"context"

	"github.com/rs/zerolog"

	"weddingplanners/api/internal/config"
	"weddingplanners/api/internal/db"
	"weddingplanners/api/internal/metrics"
	"weddingplanners/api/internal/models"
)

// IPlannerService defines the interface for planner listing operations.
type IPlannerService interface {
	ListPlanners(ctx context.Context, limit int) (*models.PlannerListing, error)
}

// plannerService implements IPlannerService.
type plannerService struct {
	store   db.Store
	policy  config.MalformedPolicy
	metrics metrics.Recorder
	log     zerolog.Logger
}

// NewPlannerService creates a new PlannerService.
func NewPlannerService(store db.Store, cfg *config.Config, rec metrics.Recorder, log zerolog.Logger) IPlannerService {
	return &plannerService{
		store:   store,
		policy:  cfg.PlannersMalformedPolicy,
		metrics: rec,
		log:     log.With().Str("component", "planners").Logger(),
	}
}

// ListPlanners reads up to limit planners from the store. Any failure reading
// from the store switches to the fallback listing; a document that fails to
// decode either aborts the request or is skipped, depending on policy.
func (s *plannerService) ListPlanners(ctx context.Context, limit int) (*models.PlannerListing, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}

	docs, err := s.store.FindAll(ctx, models.PlannerCollection, limit)
	if err != nil {
		s.log.Warn().Err(err).Msg("planner store unavailable, serving fallback listing")
		planners := FallbackPlanners(limit)
		s.metrics.ObservePlannersServed(string(models.PlannerSourceFallback), len(planners))
		return &models.PlannerListing{Planners: planners, Source: models.PlannerSourceFallback}, nil
	}

	planners, skipped, err := MapPlanners(docs, limit, s.policy)
	for _, decodeErr := range skipped {
		s.metrics.IncPlannerDecodeFailure()
		s.log.Warn().Err(decodeErr).Str("planner_id", decodeErr.DocumentID).Msg("skipping malformed planner document")
	}
	if err != nil {
		s.metrics.IncPlannerDecodeFailure()
		s.log.Error().Err(err).Msg("malformed planner document, aborting listing")
		return nil, err
	}

	s.metrics.ObservePlannersServed(string(models.PlannerSourceStore), len(planners))
	return &models.PlannerListing{
		Planners: planners,
		Source:   models.PlannerSourceStore,
		Skipped:  len(skipped),
	}, nil
}
