package postgres

import (
	"context"
	"database/sql"
	"errors"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
)

// LocationRepository is a PostgreSQL implementation of the append-only
// courier location sample log.
type LocationRepository struct {
	db *sql.DB
}

// NewLocationRepository creates a new PostgreSQL location repository.
func NewLocationRepository(db *sql.DB) *LocationRepository {
	return &LocationRepository{db: db}
}

// Append persists a location sample. Samples are never updated or deleted
// here; retention is handled out of band.
func (r *LocationRepository) Append(ctx context.Context, sample *domain.CourierLocation) error {
	query := `
		INSERT INTO courier_locations (courier_id, lat, lng, speed_kmh, heading, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, query,
		sample.CourierID,
		sample.Lat,
		sample.Lng,
		sample.SpeedKmh,
		sample.Heading,
		sample.RecordedAt,
	)
	return err
}

// GetLatestByCourierID retrieves the most recent sample for a courier.
func (r *LocationRepository) GetLatestByCourierID(ctx context.Context, courierID string) (*domain.CourierLocation, error) {
	query := `
		SELECT courier_id, lat, lng, speed_kmh, heading, recorded_at
		FROM courier_locations
		WHERE courier_id = $1
		ORDER BY recorded_at DESC
		LIMIT 1
	`

	var sample domain.CourierLocation
	err := r.db.QueryRowContext(ctx, query, courierID).Scan(
		&sample.CourierID,
		&sample.Lat,
		&sample.Lng,
		&sample.SpeedKmh,
		&sample.Heading,
		&sample.RecordedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return &sample, nil
}
