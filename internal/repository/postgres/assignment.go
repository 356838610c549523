package postgres

import (
	"context"
	"database/sql"
	"time"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
)

// AssignmentRepository is the PostgreSQL implementation of the acceptance
// commit. Serialization is per job: the job row is locked FOR UPDATE so
// concurrent accepts on the same job queue behind each other while
// independent jobs never contend.
type AssignmentRepository struct {
	db *sql.DB
}

// NewAssignmentRepository creates a new PostgreSQL assignment repository.
func NewAssignmentRepository(db *sql.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// CommitAcceptance atomically commits one winning acceptance for a job.
func (r *AssignmentRepository) CommitAcceptance(ctx context.Context, offerID, courierID string, now time.Time) (*repository.AcceptOutcome, error) {
	// An expired offer is persisted as EXPIRED in its own transaction so
	// the lazy transition survives the conflict error.
	offer, err := r.offerForAcceptance(ctx, offerID, courierID, now)
	if err != nil {
		return nil, err
	}

	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	txJobRepo := NewJobRepositoryWithTx(tx)
	txOfferRepo := NewOfferRepositoryWithTx(tx)

	// Lock the job row first. Every accept on this job serializes here.
	job, err := txJobRepo.GetByIDForUpdate(ctx, offer.JobID)
	if err != nil {
		return nil, err
	}

	// Re-read the offer under the job lock; a racing accept may have
	// resolved it between the pre-check and the lock.
	offer, err = txOfferRepo.GetByIDForUpdate(ctx, offerID)
	if err != nil {
		return nil, err
	}

	if offer.Status != domain.OfferStatusSent {
		err = repository.ErrOfferResolved
		return nil, err
	}

	if offer.IsExpired(now) {
		err = repository.ErrOfferExpired
		return nil, err
	}

	if job.Status == domain.JobStatusAssigned || job.AssignedCourierID != "" {
		err = repository.ErrOfferResolved
		return nil, err
	}

	var accepted bool
	accepted, err = txOfferRepo.HasAcceptedForJob(ctx, offer.JobID)
	if err != nil {
		return nil, err
	}
	if accepted {
		err = repository.ErrOfferResolved
		return nil, err
	}

	var active *domain.Job
	active, err = txJobRepo.GetActiveByCourierID(ctx, courierID)
	if err != nil {
		return nil, err
	}
	if active != nil {
		err = repository.ErrCourierEngaged
		return nil, err
	}

	// Compare-and-swap the winner; rowsAffected 0 means we lost anyway.
	if err = txOfferRepo.TransitionStatus(ctx, offerID, domain.OfferStatusSent, domain.OfferStatusAccepted, now); err != nil {
		if err == repository.ErrNotFound {
			err = repository.ErrOfferResolved
		}
		return nil, err
	}

	var cancelled []string
	cancelled, err = txOfferRepo.CancelSiblings(ctx, offer.JobID, offerID, now)
	if err != nil {
		return nil, err
	}

	job.Status = domain.JobStatusAssigned
	job.AssignedCourierID = courierID
	job.AssignedAt = now

	if err = txJobRepo.Update(ctx, job); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}

	offer.Status = domain.OfferStatusAccepted
	offer.ResolvedAt = now

	return &repository.AcceptOutcome{
		Offer:             offer,
		Job:               job,
		CancelledOfferIDs: cancelled,
	}, nil
}

// offerForAcceptance loads the offer and applies the lazy expiry
// transition outside the main transaction.
func (r *AssignmentRepository) offerForAcceptance(ctx context.Context, offerID, courierID string, now time.Time) (*domain.Offer, error) {
	offerRepo := NewOfferRepository(r.db)

	offer, err := offerRepo.GetByID(ctx, offerID)
	if err != nil {
		return nil, err
	}

	if offer.CourierID != courierID {
		return nil, repository.ErrNotFound
	}

	if offer.Status != domain.OfferStatusSent {
		return nil, repository.ErrOfferResolved
	}

	if offer.IsExpired(now) {
		// Persist the lazy transition; ignore a lost CAS, another caller
		// already resolved the offer.
		_ = offerRepo.TransitionStatus(ctx, offerID, domain.OfferStatusSent, domain.OfferStatusExpired, now)
		return nil, repository.ErrOfferExpired
	}

	return offer, nil
}
