package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
)

// OfferRepository is a PostgreSQL implementation of repository.OfferRepository.
type OfferRepository struct {
	q Querier
}

// NewOfferRepository creates a new PostgreSQL offer repository.
func NewOfferRepository(db *sql.DB) *OfferRepository {
	return &OfferRepository{q: db}
}

// NewOfferRepositoryWithTx creates an offer repository using a transaction.
func NewOfferRepositoryWithTx(tx *sql.Tx) *OfferRepository {
	return &OfferRepository{q: tx}
}

const offerColumns = `id, job_id, courier_id, base_fee, distance_fee, time_fee, tip, total, distance_km, pickup_eta, drop_eta, surge_multiplier, surge_active, status, decline_reason, decline_code, expires_at, created_at, resolved_at`

// Create persists a new offer.
func (r *OfferRepository) Create(ctx context.Context, offer *domain.Offer) error {
	query := `
		INSERT INTO offers (` + offerColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`

	var declineReason sql.NullString
	if offer.DeclineReason != "" {
		declineReason = sql.NullString{String: offer.DeclineReason, Valid: true}
	}

	var declineCode sql.NullString
	if offer.DeclineCode != "" {
		declineCode = sql.NullString{String: offer.DeclineCode, Valid: true}
	}

	var resolvedAt sql.NullTime
	if !offer.ResolvedAt.IsZero() {
		resolvedAt = sql.NullTime{Time: offer.ResolvedAt, Valid: true}
	}

	_, err := r.q.ExecContext(ctx, query,
		offer.ID,
		offer.JobID,
		offer.CourierID,
		offer.Earnings.BaseFee,
		offer.Earnings.DistanceFee,
		offer.Earnings.TimeFee,
		offer.Earnings.Tip,
		offer.Earnings.Total,
		offer.DistanceKm,
		offer.PickupETA,
		offer.DropETA,
		offer.SurgeMultiplier,
		offer.SurgeActive,
		offer.Status,
		declineReason,
		declineCode,
		offer.ExpiresAt,
		offer.CreatedAt,
		resolvedAt,
	)

	return err
}

// GetByID retrieves an offer by ID.
func (r *OfferRepository) GetByID(ctx context.Context, id string) (*domain.Offer, error) {
	query := `SELECT ` + offerColumns + ` FROM offers WHERE id = $1`

	offer, err := scanOffer(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return offer, nil
}

// GetByIDForUpdate retrieves an offer by ID with a row-level lock.
func (r *OfferRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Offer, error) {
	query := `SELECT ` + offerColumns + ` FROM offers WHERE id = $1 FOR UPDATE`

	offer, err := scanOffer(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return offer, nil
}

// GetByJobID retrieves all offers for a job, newest first.
func (r *OfferRepository) GetByJobID(ctx context.Context, jobID string) ([]*domain.Offer, error) {
	query := `SELECT ` + offerColumns + ` FROM offers WHERE job_id = $1 ORDER BY created_at DESC`

	rows, err := r.q.QueryContext(ctx, query, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectOffers(rows)
}

// GetExpired retrieves SENT offers whose expiry is before the given instant.
func (r *OfferRepository) GetExpired(ctx context.Context, now time.Time) ([]*domain.Offer, error) {
	query := `SELECT ` + offerColumns + ` FROM offers WHERE status = 'SENT' AND expires_at < $1 ORDER BY expires_at ASC`

	rows, err := r.q.QueryContext(ctx, query, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectOffers(rows)
}

// Update updates an existing offer.
func (r *OfferRepository) Update(ctx context.Context, offer *domain.Offer) error {
	query := `
		UPDATE offers
		SET status = $1, decline_reason = $2, decline_code = $3, resolved_at = $4
		WHERE id = $5
	`

	var declineReason sql.NullString
	if offer.DeclineReason != "" {
		declineReason = sql.NullString{String: offer.DeclineReason, Valid: true}
	}

	var declineCode sql.NullString
	if offer.DeclineCode != "" {
		declineCode = sql.NullString{String: offer.DeclineCode, Valid: true}
	}

	var resolvedAt sql.NullTime
	if !offer.ResolvedAt.IsZero() {
		resolvedAt = sql.NullTime{Time: offer.ResolvedAt, Valid: true}
	}

	result, err := r.q.ExecContext(ctx, query, offer.Status, declineReason, declineCode, resolvedAt, offer.ID)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// TransitionStatus moves the offer between statuses as a compare-and-swap.
func (r *OfferRepository) TransitionStatus(ctx context.Context, id string, from, to domain.OfferStatus, resolvedAt time.Time) error {
	query := `UPDATE offers SET status = $1, resolved_at = $2 WHERE id = $3 AND status = $4`

	result, err := r.q.ExecContext(ctx, query, to, resolvedAt, id, from)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// CancelSiblings cancels every non-terminal offer for the job other than
// the winner, returning the cancelled offer IDs.
func (r *OfferRepository) CancelSiblings(ctx context.Context, jobID, winnerID string, resolvedAt time.Time) ([]string, error) {
	query := `
		UPDATE offers SET status = 'CANCELLED', resolved_at = $1
		WHERE job_id = $2 AND id <> $3 AND status IN ('PENDING', 'SENT')
		RETURNING id
	`

	rows, err := r.q.QueryContext(ctx, query, resolvedAt, jobID, winnerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// HasAcceptedForJob reports whether the job already has an accepted offer.
func (r *OfferRepository) HasAcceptedForJob(ctx context.Context, jobID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM offers WHERE job_id = $1 AND status = 'ACCEPTED')`

	var exists bool
	if err := r.q.QueryRowContext(ctx, query, jobID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func collectOffers(rows *sql.Rows) ([]*domain.Offer, error) {
	var offers []*domain.Offer
	for rows.Next() {
		offer, err := scanOffer(rows)
		if err != nil {
			return nil, err
		}
		offers = append(offers, offer)
	}
	return offers, rows.Err()
}

func scanOffer(row rowScanner) (*domain.Offer, error) {
	var offer domain.Offer
	var declineReason sql.NullString
	var declineCode sql.NullString
	var resolvedAt sql.NullTime

	err := row.Scan(
		&offer.ID,
		&offer.JobID,
		&offer.CourierID,
		&offer.Earnings.BaseFee,
		&offer.Earnings.DistanceFee,
		&offer.Earnings.TimeFee,
		&offer.Earnings.Tip,
		&offer.Earnings.Total,
		&offer.DistanceKm,
		&offer.PickupETA,
		&offer.DropETA,
		&offer.SurgeMultiplier,
		&offer.SurgeActive,
		&offer.Status,
		&declineReason,
		&declineCode,
		&offer.ExpiresAt,
		&offer.CreatedAt,
		&resolvedAt,
	)
	if err != nil {
		return nil, err
	}

	if declineReason.Valid {
		offer.DeclineReason = declineReason.String
	}
	if declineCode.Valid {
		offer.DeclineCode = declineCode.String
	}
	if resolvedAt.Valid {
		offer.ResolvedAt = resolvedAt.Time
	}

	return &offer, nil
}
