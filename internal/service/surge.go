package service

import (
	"context"
	"math"
	"time"

	"dispatch/internal/repository"
)

// CandidateLocator is the slice of the locator the surge calculator and
// orchestrator depend on.
type CandidateLocator interface {
	FindCandidates(ctx context.Context, lat, lng, radiusKm float64, limit int) ([]Candidate, error)
}

// Ensure LocatorService implements CandidateLocator.
var _ CandidateLocator = (*LocatorService)(nil)

// SurgeService computes a demand/supply-derived price multiplier for an
// area.
type SurgeService struct {
	locator CandidateLocator
	jobRepo repository.JobRepository
	config  SurgeConfig
	now     func() time.Time
}

// SurgeConfig contains surge pricing configuration.
type SurgeConfig struct {
	RadiusKm           float64       // Radius to check for supply/demand
	RecencyWindow      time.Duration // How far back open jobs count as demand
	NoSupplyMultiplier float64       // Multiplier when demand exists but no couriers do
	MaxMultiplier      float64       // Upper bound of the multiplier
	DemandWeight       float64       // Slope of the demand/supply ratio
}

// DefaultSurgeConfig returns the default surge configuration.
func DefaultSurgeConfig() SurgeConfig {
	return SurgeConfig{
		RadiusKm:           5.0,
		RecencyWindow:      30 * time.Minute,
		NoSupplyMultiplier: 2.0,
		MaxMultiplier:      3.0,
		DemandWeight:       0.5,
	}
}

// NewSurgeService creates a new SurgeService.
func NewSurgeService(locator CandidateLocator, jobRepo repository.JobRepository, config SurgeConfig) *SurgeService {
	if config.MaxMultiplier <= 0 {
		config = DefaultSurgeConfig()
	}
	return &SurgeService{
		locator: locator,
		jobRepo: jobRepo,
		config:  config,
		now:     time.Now,
	}
}

// GetMultiplier calculates the surge multiplier for a given pickup area.
// Any failure in counting supply or demand falls back to 1.0; a pricing
// hiccup must never abort a dispatch round.
func (s *SurgeService) GetMultiplier(ctx context.Context, lat, lng float64) float64 {
	demand, err := s.countOpenJobsInArea(ctx, lat, lng)
	if err != nil {
		return 1.0
	}

	supply, err := s.countAvailableCouriersInArea(ctx, lat, lng)
	if err != nil {
		return 1.0
	}

	return s.calculateMultiplier(demand, supply)
}

// countOpenJobsInArea counts unassigned jobs within the surge radius that
// were created inside the recency window.
func (s *SurgeService) countOpenJobsInArea(ctx context.Context, lat, lng float64) (int, error) {
	since := s.now().Add(-s.config.RecencyWindow)
	jobs, err := s.jobRepo.GetOpenSince(ctx, since)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, job := range jobs {
		if haversineKm(lat, lng, job.PickupLat, job.PickupLng) <= s.config.RadiusKm {
			count++
		}
	}
	return count, nil
}

// countAvailableCouriersInArea counts eligible couriers within the surge
// radius.
func (s *SurgeService) countAvailableCouriersInArea(ctx context.Context, lat, lng float64) (int, error) {
	candidates, err := s.locator.FindCandidates(ctx, lat, lng, s.config.RadiusKm, 0)
	if err != nil {
		return 0, err
	}
	return len(candidates), nil
}

// calculateMultiplier maps demand and supply to a multiplier in
// [1.0, MaxMultiplier]. No demand means no surge; demand with zero supply
// returns the fixed NoSupplyMultiplier; otherwise the multiplier grows
// linearly with the demand/supply ratio, capped and rounded to 2 decimals.
func (s *SurgeService) calculateMultiplier(demand, supply int) float64 {
	if demand == 0 {
		return 1.0
	}
	if supply == 0 {
		return s.config.NoSupplyMultiplier
	}

	ratio := float64(demand) / float64(supply)
	multiplier := 1.0 + s.config.DemandWeight*ratio
	if multiplier > s.config.MaxMultiplier {
		multiplier = s.config.MaxMultiplier
	}

	return math.Round(multiplier*100) / 100
}
