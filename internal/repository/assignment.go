package repository

import (
	"context"
	"time"

	"dispatch/internal/domain"
)

// AcceptOutcome is the result of a successful acceptance commit.
type AcceptOutcome struct {
	Offer             *domain.Offer
	Job               *domain.Job
	CancelledOfferIDs []string
}

// AssignmentRepository owns the single correctness-critical write of the
// engine: committing exactly one winning acceptance per job. The commit
// must be atomic with respect to concurrent accept attempts on the same
// job and must cancel all sibling offers in the same unit of work.
type AssignmentRepository interface {
	// CommitAcceptance verifies that the offer is SENT and unexpired, that
	// the job has no accepted offer, and that the courier holds no other
	// assigned job; on success it marks the offer ACCEPTED, the job
	// ASSIGNED, binds the courier, and cancels sibling offers. Lost races
	// return ErrOfferResolved; late accepts return ErrOfferExpired (after
	// persisting the lazy EXPIRED transition); a busy courier returns
	// ErrCourierEngaged.
	CommitAcceptance(ctx context.Context, offerID, courierID string, now time.Time) (*AcceptOutcome, error)
}
