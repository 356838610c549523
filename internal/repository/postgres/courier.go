package postgres

import (
	"context"
	"database/sql"
	"errors"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
)

// CourierRepository is a PostgreSQL implementation of repository.CourierRepository.
type CourierRepository struct {
	q Querier
}

// NewCourierRepository creates a new PostgreSQL courier repository.
func NewCourierRepository(db *sql.DB) *CourierRepository {
	return &CourierRepository{q: db}
}

// NewCourierRepositoryWithTx creates a courier repository using a transaction.
func NewCourierRepositoryWithTx(tx *sql.Tx) *CourierRepository {
	return &CourierRepository{q: tx}
}

// Create adds a new courier.
func (r *CourierRepository) Create(ctx context.Context, courier *domain.Courier) error {
	query := `INSERT INTO couriers (id, name, phone, shift_state) VALUES ($1, $2, $3, $4)`
	_, err := r.q.ExecContext(ctx, query, courier.ID, courier.Name, courier.Phone, courier.ShiftState)
	return err
}

// GetByID retrieves a courier by ID.
func (r *CourierRepository) GetByID(ctx context.Context, id string) (*domain.Courier, error) {
	query := `SELECT id, COALESCE(name, ''), COALESCE(phone, ''), shift_state FROM couriers WHERE id = $1`

	var courier domain.Courier
	err := r.q.QueryRowContext(ctx, query, id).Scan(
		&courier.ID,
		&courier.Name,
		&courier.Phone,
		&courier.ShiftState,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return &courier, nil
}

// GetByPhone retrieves a courier by phone number.
func (r *CourierRepository) GetByPhone(ctx context.Context, phone string) (*domain.Courier, error) {
	query := `SELECT id, name, phone, shift_state FROM couriers WHERE phone = $1`

	var courier domain.Courier
	err := r.q.QueryRowContext(ctx, query, phone).Scan(
		&courier.ID,
		&courier.Name,
		&courier.Phone,
		&courier.ShiftState,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return &courier, nil
}

// GetAll retrieves all couriers.
func (r *CourierRepository) GetAll(ctx context.Context) ([]*domain.Courier, error) {
	query := `SELECT id, COALESCE(name, ''), COALESCE(phone, ''), shift_state FROM couriers ORDER BY id`
	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var couriers []*domain.Courier
	for rows.Next() {
		var courier domain.Courier
		if err := rows.Scan(&courier.ID, &courier.Name, &courier.Phone, &courier.ShiftState); err != nil {
			return nil, err
		}
		couriers = append(couriers, &courier)
	}
	return couriers, rows.Err()
}

// UpdateShiftState updates the shift state of a courier.
func (r *CourierRepository) UpdateShiftState(ctx context.Context, id string, state domain.ShiftState) error {
	query := `UPDATE couriers SET shift_state = $1 WHERE id = $2`

	result, err := r.q.ExecContext(ctx, query, state, id)
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
