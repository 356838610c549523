package repository

import (
	"context"
	"time"

	"dispatch/internal/domain"
)

// OfferRepository defines the persistence operations for offers.
type OfferRepository interface {
	// Create persists a new offer.
	Create(ctx context.Context, offer *domain.Offer) error

	// GetByID retrieves an offer by ID.
	GetByID(ctx context.Context, id string) (*domain.Offer, error)

	// GetByJobID retrieves all offers ever created for a job, newest first.
	GetByJobID(ctx context.Context, jobID string) ([]*domain.Offer, error)

	// GetExpired retrieves SENT offers whose expiry is before the given
	// instant.
	GetExpired(ctx context.Context, now time.Time) ([]*domain.Offer, error)

	// Update updates an existing offer.
	Update(ctx context.Context, offer *domain.Offer) error

	// TransitionStatus moves the offer from one status to another. It
	// returns ErrNotFound when the offer is not currently in the expected
	// status, making the transition a compare-and-swap.
	TransitionStatus(ctx context.Context, id string, from, to domain.OfferStatus, resolvedAt time.Time) error
}
