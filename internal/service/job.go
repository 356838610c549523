package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
)

// Assigner is the slice of the orchestrator the job service depends on.
type Assigner interface {
	Assign(ctx context.Context, jobID string) (*AssignResult, error)
}

// Ensure AssignmentService implements Assigner.
var _ Assigner = (*AssignmentService)(nil)

// JobService handles job-ready ingestion and triggers dispatch.
type JobService struct {
	jobRepo   repository.JobRepository
	offerRepo repository.OfferRepository
	assigner  Assigner
	now       func() time.Time
}

// NewJobService creates a new JobService.
func NewJobService(jobRepo repository.JobRepository, offerRepo repository.OfferRepository, assigner Assigner) *JobService {
	return &JobService{
		jobRepo:   jobRepo,
		offerRepo: offerRepo,
		assigner:  assigner,
		now:       time.Now,
	}
}

// CreateJobRequest contains the parameters of a job-ready event.
type CreateJobRequest struct {
	JobID     string // Optional upstream identifier; generated when empty
	PickupLat float64
	PickupLng float64
	DropLat   float64
	DropLng   float64
	BaseFee   decimal.Decimal
	Tip       decimal.Decimal
}

// CreateJobResponse contains the result of ingesting a job-ready event.
type CreateJobResponse struct {
	Job    *domain.Job
	Result *AssignResult
}

// CreateJob validates and persists a job, then triggers assignment
// synchronously. A job that cannot be matched right away is still created;
// the assignment outcome reports offers created or the manual fallback.
func (s *JobService) CreateJob(ctx context.Context, req CreateJobRequest) (*CreateJobResponse, error) {
	if err := s.validateCreateRequest(req); err != nil {
		return nil, err
	}

	id := req.JobID
	if id == "" {
		id = uuid.New().String()
	}

	job := &domain.Job{
		ID:        id,
		PickupLat: req.PickupLat,
		PickupLng: req.PickupLng,
		DropLat:   req.DropLat,
		DropLng:   req.DropLng,
		BaseFee:   req.BaseFee.Round(2),
		Tip:       req.Tip.Round(2),
		Status:    domain.JobStatusUnassigned,
		CreatedAt: s.now(),
	}

	if err := s.jobRepo.Create(ctx, job); err != nil {
		return nil, err
	}

	result, err := s.assigner.Assign(ctx, job.ID)
	if err != nil {
		if errors.Is(err, ErrAssignmentInProgress) {
			return &CreateJobResponse{Job: job}, nil
		}
		return nil, err
	}

	// Reflect the status the round left behind.
	refreshed, err := s.jobRepo.GetByID(ctx, job.ID)
	if err == nil {
		job = refreshed
	}

	return &CreateJobResponse{Job: job, Result: result}, nil
}

// GetJob retrieves a job with its full offer history.
func (s *JobService) GetJob(ctx context.Context, jobID string) (*domain.Job, []*domain.Offer, error) {
	if jobID == "" {
		return nil, nil, ErrInvalidJobID
	}

	job, err := s.jobRepo.GetByID(ctx, jobID)
	if err != nil {
		return nil, nil, err
	}

	offers, err := s.offerRepo.GetByJobID(ctx, jobID)
	if err != nil {
		return nil, nil, err
	}

	return job, offers, nil
}

func (s *JobService) validateCreateRequest(req CreateJobRequest) error {
	if !isValidLatitude(req.PickupLat) || !isValidLongitude(req.PickupLng) {
		return ErrInvalidCoordinates
	}
	if !isValidLatitude(req.DropLat) || !isValidLongitude(req.DropLng) {
		return ErrInvalidCoordinates
	}
	if req.BaseFee.IsNegative() || req.Tip.IsNegative() {
		return ErrInvalidFee
	}
	return nil
}
