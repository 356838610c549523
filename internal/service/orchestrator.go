package service

import (
	"context"
	"errors"
	"log"
	"time"

	"dispatch/internal/domain"
	"dispatch/internal/redis"
	"dispatch/internal/repository"
)

const jobLockTTL = 30 * time.Second

// SurgeCalculator is the slice of the surge service the orchestrator
// depends on.
type SurgeCalculator interface {
	GetMultiplier(ctx context.Context, lat, lng float64) float64
}

// Ensure SurgeService implements SurgeCalculator.
var _ SurgeCalculator = (*SurgeService)(nil)

// AssignConfig contains assignment and escalation configuration.
type AssignConfig struct {
	InitialRadiusKm           float64 // First search radius
	MaxRadiusKm               float64 // Radius ceiling; past it matching goes manual
	MaxCandidates             int     // Offer cap for the first round
	MaxEscalationSteps        int     // Hard bound on widening steps
	MaxOffersBeforeEscalation int     // Resolved offers after which the job goes to operations
}

// DefaultAssignConfig returns the default assignment configuration.
func DefaultAssignConfig() AssignConfig {
	return AssignConfig{
		InitialRadiusKm:           5.0,
		MaxRadiusKm:               20.0,
		MaxCandidates:             10,
		MaxEscalationSteps:        5,
		MaxOffersBeforeEscalation: 5,
	}
}

// AssignResult contains the outcome of an assignment round.
type AssignResult struct {
	JobID           string
	Assigned        bool
	CourierID       string
	AutoAccepted    bool
	OffersCreated   int
	RadiusKm        float64
	SurgeMultiplier float64
	ManualRequired  bool
}

// AssignmentService is the top-level dispatch coordinator: locate
// candidates, price the area, create offers, try auto-accept, dispatch,
// and widen the search when a round comes up empty. Escalation is an
// explicit iterative loop bounded by the radius ceiling and a step count,
// so termination does not depend on call-stack depth.
type AssignmentService struct {
	locator    CandidateLocator
	surge      SurgeCalculator
	earnings   *EarningsService
	offers     *OfferService
	autoAccept *AutoAcceptService
	acceptance AcceptanceGuard
	jobRepo    repository.JobRepository
	offerRepo  repository.OfferRepository
	lockStore  redis.LockStoreInterface
	notifier   Notifier
	config     AssignConfig
	now        func() time.Time
}

// NewAssignmentService creates a new AssignmentService.
func NewAssignmentService(
	locator CandidateLocator,
	surge SurgeCalculator,
	earnings *EarningsService,
	offers *OfferService,
	autoAccept *AutoAcceptService,
	acceptance AcceptanceGuard,
	jobRepo repository.JobRepository,
	offerRepo repository.OfferRepository,
	lockStore redis.LockStoreInterface,
	notifier Notifier,
	config AssignConfig,
) *AssignmentService {
	if config.InitialRadiusKm <= 0 {
		config = DefaultAssignConfig()
	}
	return &AssignmentService{
		locator:    locator,
		surge:      surge,
		earnings:   earnings,
		offers:     offers,
		autoAccept: autoAccept,
		acceptance: acceptance,
		jobRepo:    jobRepo,
		offerRepo:  offerRepo,
		lockStore:  lockStore,
		notifier:   notifier,
		config:     config,
		now:        time.Now,
	}
}

// Assign runs one full assignment chain for the job: rounds of offer
// creation at strictly increasing radii until a courier is assigned,
// offers are left awaiting action, or the radius ceiling converts the job
// to manual assignment.
func (s *AssignmentService) Assign(ctx context.Context, jobID string) (*AssignResult, error) {
	if jobID == "" {
		return nil, ErrInvalidJobID
	}

	// One chain at a time per job: the sweep and the job-ready path must
	// not run overlapping rounds.
	if s.lockStore != nil {
		locked, err := s.lockStore.AcquireJobLock(ctx, jobID, jobLockTTL)
		if err != nil {
			return nil, err
		}
		if !locked {
			return nil, ErrAssignmentInProgress
		}
		defer func() {
			_ = s.lockStore.ReleaseJobLock(ctx, jobID)
		}()
	}

	job, err := s.jobRepo.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}

	if !job.Status.Open() {
		return nil, ErrJobNotOpen
	}

	// Couriers who already saw an offer for this job are excluded from
	// replacement rounds regardless of how their offer resolved.
	previous, err := s.offerRepo.GetByJobID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	offered := make(map[string]bool, len(previous))
	resolved := 0
	for _, offer := range previous {
		offered[offer.CourierID] = true
		if offer.Status == domain.OfferStatusDeclined || offer.Status == domain.OfferStatusExpired {
			resolved++
		}
	}

	if resolved >= s.config.MaxOffersBeforeEscalation {
		return s.requireManual(ctx, job, "offer limit reached without acceptance", s.config.MaxRadiusKm)
	}

	surge := 1.0
	if s.surge != nil {
		surge = s.surge.GetMultiplier(ctx, job.PickupLat, job.PickupLng)
	}

	radius := s.config.InitialRadiusKm
	maxCandidates := s.config.MaxCandidates

	for step := 0; step < s.config.MaxEscalationSteps && radius <= s.config.MaxRadiusKm; step++ {
		created, result, err := s.runRound(ctx, job, radius, maxCandidates, surge, offered)
		if err != nil {
			return nil, err
		}

		if result != nil {
			result.RadiusKm = radius
			result.SurgeMultiplier = surge
			return result, nil
		}

		if created > 0 {
			job.Status = domain.JobStatusOffered
			if err := s.jobRepo.Update(ctx, job); err != nil {
				return nil, err
			}
			return &AssignResult{
				JobID:           job.ID,
				OffersCreated:   created,
				RadiusKm:        radius,
				SurgeMultiplier: surge,
			}, nil
		}

		// Empty round: widen and raise the cap.
		radius *= 2
		maxCandidates *= 2

		if radius <= s.config.MaxRadiusKm {
			job.Status = domain.JobStatusEscalated
			if err := s.jobRepo.Update(ctx, job); err != nil {
				return nil, err
			}
		}
	}

	return s.requireManual(ctx, job, "no couriers available", radius/2)
}

// Reoffer re-runs assignment for a job after an offer resolved without
// acceptance. It is a no-op while other offers for the job are still
// outstanding, and converts to manual assignment once the configured
// number of offers resolved without a winner.
func (s *AssignmentService) Reoffer(ctx context.Context, jobID string) (*AssignResult, error) {
	job, err := s.jobRepo.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}

	if !job.Status.Open() {
		return nil, nil
	}

	offers, err := s.offerRepo.GetByJobID(ctx, jobID)
	if err != nil {
		return nil, err
	}

	resolved := 0
	outstanding := 0
	for _, offer := range offers {
		switch offer.Status {
		case domain.OfferStatusDeclined, domain.OfferStatusExpired:
			resolved++
		case domain.OfferStatusSent:
			outstanding++
		}
	}

	if resolved >= s.config.MaxOffersBeforeEscalation {
		return s.requireManual(ctx, job, "offer limit reached without acceptance", s.config.MaxRadiusKm)
	}

	if outstanding > 0 {
		return nil, nil // Still waiting on other couriers.
	}

	return s.Assign(ctx, jobID)
}

// runRound creates offers for one radius step. It returns the number of
// offers created and, when an auto-accept committed, the final result.
func (s *AssignmentService) runRound(ctx context.Context, job *domain.Job, radiusKm float64, maxCandidates int, surge float64, offered map[string]bool) (int, *AssignResult, error) {
	candidates, err := s.locator.FindCandidates(ctx, job.PickupLat, job.PickupLng, radiusKm, 0)
	if err != nil {
		return 0, nil, err
	}

	jobLegKm := haversineKm(job.PickupLat, job.PickupLng, job.DropLat, job.DropLng)

	created := 0
	for _, cand := range candidates {
		if created >= maxCandidates {
			break
		}
		if offered[cand.CourierID] {
			continue
		}

		toPickupMin := s.earnings.EstimateMinutes(cand.DistanceKm)
		deliveryMin := s.earnings.EstimateMinutes(jobLegKm)
		earnings := s.earnings.Calculate(job.BaseFee, cand.DistanceKm, toPickupMin+deliveryMin, surge, job.Tip)

		now := s.now()
		pickupETA := now.Add(time.Duration(toPickupMin * float64(time.Minute)))
		dropETA := pickupETA.Add(time.Duration(deliveryMin * float64(time.Minute)))

		offer, err := s.offers.Create(ctx, job, cand.CourierID, earnings, cand.DistanceKm, surge, pickupETA, dropETA)
		if err != nil {
			return created, nil, err
		}
		created++
		offered[cand.CourierID] = true

		rule, err := s.autoAccept.Evaluate(ctx, cand.CourierID, offer, job.PickupLat, job.PickupLng)
		if err != nil {
			// Rule evaluation failure falls back to normal dispatch.
			log.Printf("[DISPATCH] auto-accept evaluation failed for courier %s: %v", cand.CourierID, err)
			rule = nil
		}

		if rule != nil {
			result, err := s.acceptance.Accept(ctx, offer.ID, cand.CourierID)
			if err == nil {
				s.notifyCancelled(ctx, result.CancelledOfferIDs)
				return created, &AssignResult{
					JobID:        job.ID,
					Assigned:     true,
					CourierID:    cand.CourierID,
					AutoAccepted: true,
				}, nil
			}
			if !isAcceptConflict(err) {
				return created, nil, err
			}
			// Lost the race or the courier got busy; keep going with the
			// remaining candidates.
			continue
		}

		if s.notifier != nil {
			_ = s.notifier.OfferDispatched(ctx, offer)
		}
	}

	return created, nil, nil
}

// requireManual terminates automatic matching for the job. The signal is
// emitted exactly once per escalation chain: a job already marked
// MANUAL_REQUIRED is not re-signalled.
func (s *AssignmentService) requireManual(ctx context.Context, job *domain.Job, reason string, attemptedRadiusKm float64) (*AssignResult, error) {
	result := &AssignResult{
		JobID:          job.ID,
		RadiusKm:       attemptedRadiusKm,
		ManualRequired: true,
	}

	if job.Status == domain.JobStatusManualRequired {
		return result, nil
	}

	job.Status = domain.JobStatusManualRequired
	if err := s.jobRepo.Update(ctx, job); err != nil {
		return nil, err
	}

	if s.notifier != nil {
		_ = s.notifier.ManualAssignmentRequired(ctx, job, reason, attemptedRadiusKm)
	}

	return result, nil
}

func (s *AssignmentService) notifyCancelled(ctx context.Context, offerIDs []string) {
	if s.notifier == nil {
		return
	}
	for _, id := range offerIDs {
		offer, err := s.offerRepo.GetByID(ctx, id)
		if err != nil {
			continue
		}
		_ = s.notifier.OfferCancelled(ctx, offer)
	}
}

func isAcceptConflict(err error) bool {
	return errors.Is(err, ErrOfferAlreadyResolved) ||
		errors.Is(err, ErrOfferExpired) ||
		errors.Is(err, ErrCourierHasActiveJob) ||
		errors.Is(err, ErrAssignmentInProgress)
}
