package repository

import (
	"context"

	"dispatch/internal/domain"
)

// CourierRepository defines the persistence operations for couriers.
type CourierRepository interface {
	// Create adds a new courier.
	Create(ctx context.Context, courier *domain.Courier) error

	// GetByID retrieves a courier by ID.
	GetByID(ctx context.Context, id string) (*domain.Courier, error)

	// GetByPhone retrieves a courier by phone number.
	GetByPhone(ctx context.Context, phone string) (*domain.Courier, error)

	// GetAll retrieves all couriers.
	GetAll(ctx context.Context) ([]*domain.Courier, error)

	// UpdateShiftState updates the shift state of a courier.
	UpdateShiftState(ctx context.Context, id string, state domain.ShiftState) error
}
