package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"dispatch/internal/domain"
	"dispatch/internal/service"
)

// JobHandler handles HTTP requests for jobs.
type JobHandler struct {
	jobService *service.JobService
}

// NewJobHandler creates a new JobHandler.
func NewJobHandler(jobService *service.JobService) *JobHandler {
	return &JobHandler{jobService: jobService}
}

// CreateJobRequest is the HTTP request body for the job-ready event.
type CreateJobRequest struct {
	JobID     string          `json:"job_id,omitempty"`
	PickupLat float64         `json:"pickup_lat"`
	PickupLng float64         `json:"pickup_lng"`
	DropLat   float64         `json:"drop_lat"`
	DropLng   float64         `json:"drop_lng"`
	BaseFee   decimal.Decimal `json:"base_fee"`
	Tip       decimal.Decimal `json:"tip"`
}

// CreateJobResponse is the HTTP response for creating a job.
type CreateJobResponse struct {
	ID                string  `json:"id"`
	Status            string  `json:"status"`
	AssignedCourierID string  `json:"assigned_courier_id,omitempty"`
	OffersCreated     int     `json:"offers_created"`
	SearchRadiusKm    float64 `json:"search_radius_km,omitempty"`
	SurgeMultiplier   float64 `json:"surge_multiplier,omitempty"`
	SurgeActive       bool    `json:"surge_active"`
	ManualRequired    bool    `json:"manual_required"`
}

// OfferSummary is the offer representation embedded in job responses.
type OfferSummary struct {
	ID              string `json:"id"`
	CourierID       string `json:"courier_id"`
	Status          string `json:"status"`
	EarningsTotal   string `json:"earnings_total"`
	DistanceKm      float64 `json:"distance_km"`
	SurgeMultiplier float64 `json:"surge_multiplier"`
	ExpiresAt       string `json:"expires_at"`
}

// GetJobResponse is the HTTP response for getting a job.
type GetJobResponse struct {
	ID                string         `json:"id"`
	PickupLat         float64        `json:"pickup_lat"`
	PickupLng         float64        `json:"pickup_lng"`
	DropLat           float64        `json:"drop_lat"`
	DropLng           float64        `json:"drop_lng"`
	BaseFee           string         `json:"base_fee"`
	Tip               string         `json:"tip"`
	Status            string         `json:"status"`
	AssignedCourierID string         `json:"assigned_courier_id,omitempty"`
	CreatedAt         string         `json:"created_at"`
	Offers            []OfferSummary `json:"offers"`
}

// CreateJob handles POST /v1/jobs
func (h *JobHandler) CreateJob(c *gin.Context) {
	var req CreateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	resp, err := h.jobService.CreateJob(c.Request.Context(), service.CreateJobRequest{
		JobID:     req.JobID,
		PickupLat: req.PickupLat,
		PickupLng: req.PickupLng,
		DropLat:   req.DropLat,
		DropLng:   req.DropLng,
		BaseFee:   req.BaseFee,
		Tip:       req.Tip,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	out := CreateJobResponse{
		ID:                resp.Job.ID,
		Status:            string(resp.Job.Status),
		AssignedCourierID: resp.Job.AssignedCourierID,
	}
	if resp.Result != nil {
		out.OffersCreated = resp.Result.OffersCreated
		out.SearchRadiusKm = resp.Result.RadiusKm
		out.SurgeMultiplier = resp.Result.SurgeMultiplier
		out.SurgeActive = resp.Result.SurgeMultiplier > 1.0
		out.ManualRequired = resp.Result.ManualRequired
	}

	c.JSON(http.StatusCreated, out)
}

// GetJob handles GET /v1/jobs/:id
func (h *JobHandler) GetJob(c *gin.Context) {
	job, offers, err := h.jobService.GetJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	out := GetJobResponse{
		ID:                job.ID,
		PickupLat:         job.PickupLat,
		PickupLng:         job.PickupLng,
		DropLat:           job.DropLat,
		DropLng:           job.DropLng,
		BaseFee:           job.BaseFee.StringFixed(2),
		Tip:               job.Tip.StringFixed(2),
		Status:            string(job.Status),
		AssignedCourierID: job.AssignedCourierID,
		CreatedAt:         job.CreatedAt.Format(time.RFC3339),
		Offers:            make([]OfferSummary, 0, len(offers)),
	}

	for _, offer := range offers {
		out.Offers = append(out.Offers, offerSummary(offer))
	}

	c.JSON(http.StatusOK, out)
}

func offerSummary(offer *domain.Offer) OfferSummary {
	return OfferSummary{
		ID:              offer.ID,
		CourierID:       offer.CourierID,
		Status:          string(offer.Status),
		EarningsTotal:   offer.Earnings.Total.StringFixed(2),
		DistanceKm:      offer.DistanceKm,
		SurgeMultiplier: offer.SurgeMultiplier,
		ExpiresAt:       offer.ExpiresAt.Format(time.RFC3339),
	}
}
