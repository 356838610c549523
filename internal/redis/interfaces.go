package redis

import (
	"context"
	"time"
)

// LocationStoreInterface defines the interface for live courier positions.
type LocationStoreInterface interface {
	UpdateLocation(ctx context.Context, courierID string, lat, lng float64, at time.Time) error
	FindNearbyCouriers(ctx context.Context, lat, lng, radiusKm float64) ([]CourierPosition, error)
	LastSeen(ctx context.Context, courierIDs []string) (map[string]time.Time, error)
	RemoveLocation(ctx context.Context, courierID string) error
}

// LockStoreInterface defines the interface for distributed locking.
type LockStoreInterface interface {
	AcquireCourierLock(ctx context.Context, courierID string, ttl time.Duration) (bool, error)
	ReleaseCourierLock(ctx context.Context, courierID string) error
	AcquireJobLock(ctx context.Context, jobID string, ttl time.Duration) (bool, error)
	ReleaseJobLock(ctx context.Context, jobID string) error
}

// Ensure concrete types implement interfaces.
var (
	_ LocationStoreInterface = (*LocationStore)(nil)
	_ LockStoreInterface     = (*LockStore)(nil)
)
