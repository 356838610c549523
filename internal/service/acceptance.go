package service

import (
	"context"
	"errors"
	"time"

	"dispatch/internal/domain"
	"dispatch/internal/redis"
	"dispatch/internal/repository"
)

const courierLockTTL = 10 * time.Second

// AcceptResult contains the outcome of a winning acceptance.
type AcceptResult struct {
	Offer             *domain.Offer
	Job               *domain.Job
	CancelledOfferIDs []string
}

// AcceptanceGuard is the contract consumed by the orchestrator and the
// offer handler for committing acceptances.
type AcceptanceGuard interface {
	Accept(ctx context.Context, offerID, courierID string) (*AcceptResult, error)
}

// AcceptanceService serializes concurrent accept attempts so exactly one
// succeeds per job. Contention is expected and frequent: lost races are
// typed results, never panics, and leave no side effects beyond the lazy
// expiry transition.
type AcceptanceService struct {
	assignmentRepo repository.AssignmentRepository
	lockStore      redis.LockStoreInterface
	notifier       Notifier
	now            func() time.Time
}

// Ensure AcceptanceService implements AcceptanceGuard.
var _ AcceptanceGuard = (*AcceptanceService)(nil)

// NewAcceptanceService creates a new AcceptanceService.
func NewAcceptanceService(
	assignmentRepo repository.AssignmentRepository,
	lockStore redis.LockStoreInterface,
	notifier Notifier,
) *AcceptanceService {
	return &AcceptanceService{
		assignmentRepo: assignmentRepo,
		lockStore:      lockStore,
		notifier:       notifier,
		now:            time.Now,
	}
}

// Accept attempts to commit the offer for the courier. On success the
// offer is ACCEPTED, the job ASSIGNED with the courier bound, and every
// sibling offer CANCELLED in the same transaction.
func (s *AcceptanceService) Accept(ctx context.Context, offerID, courierID string) (*AcceptResult, error) {
	if offerID == "" {
		return nil, ErrInvalidOfferID
	}
	if courierID == "" {
		return nil, ErrInvalidCourierID
	}

	// The courier lock keeps one courier from racing their own accepts
	// across different offers; job-level serialization happens on the job
	// row inside the commit.
	if s.lockStore != nil {
		locked, err := s.lockStore.AcquireCourierLock(ctx, courierID, courierLockTTL)
		if err != nil {
			return nil, err
		}
		if !locked {
			return nil, ErrAssignmentInProgress
		}
		defer func() {
			_ = s.lockStore.ReleaseCourierLock(ctx, courierID)
		}()
	}

	outcome, err := s.assignmentRepo.CommitAcceptance(ctx, offerID, courierID, s.now())
	if err != nil {
		return nil, mapAcceptanceError(err)
	}

	if s.notifier != nil {
		_ = s.notifier.JobAssigned(ctx, outcome.Job)
	}

	return &AcceptResult{
		Offer:             outcome.Offer,
		Job:               outcome.Job,
		CancelledOfferIDs: outcome.CancelledOfferIDs,
	}, nil
}

func mapAcceptanceError(err error) error {
	switch {
	case errors.Is(err, repository.ErrOfferResolved):
		return ErrOfferAlreadyResolved
	case errors.Is(err, repository.ErrOfferExpired):
		return ErrOfferExpired
	case errors.Is(err, repository.ErrCourierEngaged):
		return ErrCourierHasActiveJob
	default:
		return err
	}
}
