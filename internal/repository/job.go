package repository

import (
	"context"
	"time"

	"dispatch/internal/domain"
)

// JobRepository defines the persistence operations for jobs.
type JobRepository interface {
	// Create persists a new job.
	Create(ctx context.Context, job *domain.Job) error

	// GetByID retrieves a job by ID.
	GetByID(ctx context.Context, id string) (*domain.Job, error)

	// GetOpenSince retrieves jobs still awaiting assignment that were
	// created after the given instant.
	GetOpenSince(ctx context.Context, since time.Time) ([]*domain.Job, error)

	// GetActiveByCourierID retrieves the job currently assigned to the
	// courier, or nil when the courier holds none.
	GetActiveByCourierID(ctx context.Context, courierID string) (*domain.Job, error)

	// Update updates an existing job.
	Update(ctx context.Context, job *domain.Job) error
}
