package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
)

// JobRepository is a PostgreSQL implementation of repository.JobRepository.
type JobRepository struct {
	q Querier
}

// NewJobRepository creates a new PostgreSQL job repository.
func NewJobRepository(db *sql.DB) *JobRepository {
	return &JobRepository{q: db}
}

// NewJobRepositoryWithTx creates a job repository using a transaction.
func NewJobRepositoryWithTx(tx *sql.Tx) *JobRepository {
	return &JobRepository{q: tx}
}

const jobColumns = `id, pickup_lat, pickup_lng, drop_lat, drop_lng, base_fee, tip, status, assigned_courier_id, created_at, assigned_at`

// Create persists a new job.
func (r *JobRepository) Create(ctx context.Context, job *domain.Job) error {
	query := `
		INSERT INTO jobs (` + jobColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	var assignedCourierID sql.NullString
	if job.AssignedCourierID != "" {
		assignedCourierID = sql.NullString{String: job.AssignedCourierID, Valid: true}
	}

	var assignedAt sql.NullTime
	if !job.AssignedAt.IsZero() {
		assignedAt = sql.NullTime{Time: job.AssignedAt, Valid: true}
	}

	_, err := r.q.ExecContext(ctx, query,
		job.ID,
		job.PickupLat,
		job.PickupLng,
		job.DropLat,
		job.DropLng,
		job.BaseFee,
		job.Tip,
		job.Status,
		assignedCourierID,
		job.CreatedAt,
		assignedAt,
	)

	return err
}

// GetByID retrieves a job by ID.
func (r *JobRepository) GetByID(ctx context.Context, id string) (*domain.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE id = $1`

	job, err := scanJob(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return job, nil
}

// GetByIDForUpdate retrieves a job by ID with a row-level lock. Only valid
// inside a transaction; this is the serialization point for acceptance.
func (r *JobRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE id = $1 FOR UPDATE`

	job, err := scanJob(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return job, nil
}

// GetOpenSince retrieves jobs still awaiting assignment created after the
// given instant.
func (r *JobRepository) GetOpenSince(ctx context.Context, since time.Time) ([]*domain.Job, error) {
	query := `
		SELECT ` + jobColumns + ` FROM jobs
		WHERE status IN ('UNASSIGNED', 'OFFERED', 'ESCALATED') AND created_at > $1
		ORDER BY created_at DESC
	`

	rows, err := r.q.QueryContext(ctx, query, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*domain.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// GetActiveByCourierID retrieves the job currently assigned to the courier.
func (r *JobRepository) GetActiveByCourierID(ctx context.Context, courierID string) (*domain.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE assigned_courier_id = $1 AND status = 'ASSIGNED' LIMIT 1`

	job, err := scanJob(r.q.QueryRowContext(ctx, query, courierID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // No active job.
		}
		return nil, err
	}
	return job, nil
}

// Update updates an existing job.
func (r *JobRepository) Update(ctx context.Context, job *domain.Job) error {
	query := `
		UPDATE jobs
		SET pickup_lat = $1, pickup_lng = $2, drop_lat = $3, drop_lng = $4, base_fee = $5, tip = $6, status = $7, assigned_courier_id = $8, assigned_at = $9
		WHERE id = $10
	`

	var assignedCourierID sql.NullString
	if job.AssignedCourierID != "" {
		assignedCourierID = sql.NullString{String: job.AssignedCourierID, Valid: true}
	}

	var assignedAt sql.NullTime
	if !job.AssignedAt.IsZero() {
		assignedAt = sql.NullTime{Time: job.AssignedAt, Valid: true}
	}

	result, err := r.q.ExecContext(ctx, query,
		job.PickupLat,
		job.PickupLng,
		job.DropLat,
		job.DropLng,
		job.BaseFee,
		job.Tip,
		job.Status,
		assignedCourierID,
		assignedAt,
		job.ID,
	)
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

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*domain.Job, error) {
	var job domain.Job
	var assignedCourierID sql.NullString
	var assignedAt sql.NullTime

	err := row.Scan(
		&job.ID,
		&job.PickupLat,
		&job.PickupLng,
		&job.DropLat,
		&job.DropLng,
		&job.BaseFee,
		&job.Tip,
		&job.Status,
		&assignedCourierID,
		&job.CreatedAt,
		&assignedAt,
	)
	if err != nil {
		return nil, err
	}

	if assignedCourierID.Valid {
		job.AssignedCourierID = assignedCourierID.String
	}
	if assignedAt.Valid {
		job.AssignedAt = assignedAt.Time
	}

	return &job, nil
}
