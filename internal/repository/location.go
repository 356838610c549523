package repository

import (
	"context"

	"dispatch/internal/domain"
)

// LocationRepository defines the persistence operations for the
// append-only courier location sample log. Matching reads live positions
// from the Redis geo index; this log exists for audit and retention.
type LocationRepository interface {
	// Append persists a location sample.
	Append(ctx context.Context, sample *domain.CourierLocation) error

	// GetLatestByCourierID retrieves the most recent sample for a courier.
	GetLatestByCourierID(ctx context.Context, courierID string) (*domain.CourierLocation, error)
}
