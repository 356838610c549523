package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
)

const defaultOfferTTL = 5 * time.Minute

// OfferService owns the offer state machine:
// PENDING -> SENT -> {ACCEPTED, DECLINED, EXPIRED, CANCELLED}.
// Transitions out of SENT are compare-and-swap updates so a transition
// never leaves a terminal state.
type OfferService struct {
	offerRepo repository.OfferRepository
	ttl       time.Duration
	now       func() time.Time
}

// NewOfferService creates a new OfferService. ttl <= 0 uses the 5 minute
// default.
func NewOfferService(offerRepo repository.OfferRepository, ttl time.Duration) *OfferService {
	if ttl <= 0 {
		ttl = defaultOfferTTL
	}
	return &OfferService{
		offerRepo: offerRepo,
		ttl:       ttl,
		now:       time.Now,
	}
}

// TTL returns the configured offer time-to-live.
func (s *OfferService) TTL() time.Duration {
	return s.ttl
}

// Create persists a new offer in SENT state with its expiry stamped.
func (s *OfferService) Create(ctx context.Context, job *domain.Job, courierID string, earnings domain.Earnings, distanceKm float64, surgeMultiplier float64, pickupETA, dropETA time.Time) (*domain.Offer, error) {
	now := s.now()

	offer := &domain.Offer{
		ID:              uuid.New().String(),
		JobID:           job.ID,
		CourierID:       courierID,
		Earnings:        earnings,
		DistanceKm:      distanceKm,
		PickupETA:       pickupETA,
		DropETA:         dropETA,
		SurgeMultiplier: surgeMultiplier,
		SurgeActive:     surgeMultiplier > 1.0,
		Status:          domain.OfferStatusSent,
		ExpiresAt:       now.Add(s.ttl),
		CreatedAt:       now,
	}

	if err := s.offerRepo.Create(ctx, offer); err != nil {
		return nil, err
	}

	return offer, nil
}

// Get retrieves an offer by ID.
func (s *OfferService) Get(ctx context.Context, offerID string) (*domain.Offer, error) {
	if offerID == "" {
		return nil, ErrInvalidOfferID
	}
	return s.offerRepo.GetByID(ctx, offerID)
}

// Decline resolves an offer as declined by its courier. Valid only from
// SENT; an expired offer is lazily marked EXPIRED and reported as such.
func (s *OfferService) Decline(ctx context.Context, offerID, courierID, reason, code string) (*domain.Offer, error) {
	if offerID == "" {
		return nil, ErrInvalidOfferID
	}
	if courierID == "" {
		return nil, ErrInvalidCourierID
	}

	offer, err := s.offerRepo.GetByID(ctx, offerID)
	if err != nil {
		return nil, err
	}

	if offer.CourierID != courierID {
		return nil, ErrOfferNotOwned
	}

	if offer.Status != domain.OfferStatusSent {
		return nil, ErrOfferAlreadyResolved
	}

	now := s.now()
	if offer.IsExpired(now) {
		s.expire(ctx, offer, now)
		return nil, ErrOfferExpired
	}

	if err := s.offerRepo.TransitionStatus(ctx, offerID, domain.OfferStatusSent, domain.OfferStatusDeclined, now); err != nil {
		if err == repository.ErrNotFound {
			return nil, ErrOfferAlreadyResolved
		}
		return nil, err
	}

	offer.Status = domain.OfferStatusDeclined
	offer.DeclineReason = reason
	offer.DeclineCode = code
	offer.ResolvedAt = now

	if err := s.offerRepo.Update(ctx, offer); err != nil {
		return nil, err
	}

	return offer, nil
}

// SweepExpired marks every overdue SENT offer EXPIRED and returns the
// offers that were transitioned by this sweep. Offers resolved by a racing
// courier action are skipped silently.
func (s *OfferService) SweepExpired(ctx context.Context) ([]*domain.Offer, error) {
	now := s.now()

	overdue, err := s.offerRepo.GetExpired(ctx, now)
	if err != nil {
		return nil, err
	}

	expired := make([]*domain.Offer, 0, len(overdue))
	for _, offer := range overdue {
		if !s.expire(ctx, offer, now) {
			continue
		}
		expired = append(expired, offer)
	}

	return expired, nil
}

// expire applies the SENT -> EXPIRED compare-and-swap. Returns false when
// the offer was already resolved.
func (s *OfferService) expire(ctx context.Context, offer *domain.Offer, now time.Time) bool {
	err := s.offerRepo.TransitionStatus(ctx, offer.ID, domain.OfferStatusSent, domain.OfferStatusExpired, now)
	if err != nil {
		return false
	}
	offer.Status = domain.OfferStatusExpired
	offer.ResolvedAt = now
	return true
}
