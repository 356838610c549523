package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"dispatch/internal/domain"
	"dispatch/internal/service"
)

// OfferHandler handles HTTP requests for offers.
type OfferHandler struct {
	offerService *service.OfferService
	acceptance   service.AcceptanceGuard
	reoffer      service.Reofferer
}

// NewOfferHandler creates a new OfferHandler.
func NewOfferHandler(offerService *service.OfferService, acceptance service.AcceptanceGuard, reoffer service.Reofferer) *OfferHandler {
	return &OfferHandler{
		offerService: offerService,
		acceptance:   acceptance,
		reoffer:      reoffer,
	}
}

// CourierActionRequest identifies the courier acting on an offer.
type CourierActionRequest struct {
	CourierID string `json:"courier_id" binding:"required"`
}

// DeclineOfferRequest is the HTTP request body for declining an offer.
type DeclineOfferRequest struct {
	CourierID string `json:"courier_id" binding:"required"`
	Reason    string `json:"reason,omitempty"`
	Code      string `json:"code,omitempty"`
}

// AcceptOfferResponse is the HTTP response for a winning acceptance.
type AcceptOfferResponse struct {
	Offer             OfferDetail `json:"offer"`
	JobID             string      `json:"job_id"`
	JobStatus         string      `json:"job_status"`
	CancelledOfferIDs []string    `json:"cancelled_offer_ids"`
}

// OfferDetail is the full HTTP representation of an offer.
type OfferDetail struct {
	ID              string `json:"id"`
	JobID           string `json:"job_id"`
	CourierID       string `json:"courier_id"`
	BaseFee         string `json:"base_fee"`
	DistanceFee     string `json:"distance_fee"`
	TimeFee         string `json:"time_fee"`
	Tip             string `json:"tip"`
	Total           string `json:"total"`
	DistanceKm      float64 `json:"distance_km"`
	PickupETA       string `json:"pickup_eta"`
	DropETA         string `json:"drop_eta"`
	SurgeMultiplier float64 `json:"surge_multiplier"`
	SurgeActive     bool   `json:"surge_active"`
	Status          string `json:"status"`
	DeclineReason   string `json:"decline_reason,omitempty"`
	DeclineCode     string `json:"decline_code,omitempty"`
	ExpiresAt       string `json:"expires_at"`
	CreatedAt       string `json:"created_at"`
}

// Accept handles POST /v1/offers/:id/accept
func (h *OfferHandler) Accept(c *gin.Context) {
	var req CourierActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	result, err := h.acceptance.Accept(c.Request.Context(), c.Param("id"), req.CourierID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, AcceptOfferResponse{
		Offer:             offerDetail(result.Offer),
		JobID:             result.Job.ID,
		JobStatus:         string(result.Job.Status),
		CancelledOfferIDs: result.CancelledOfferIDs,
	})
}

// Decline handles POST /v1/offers/:id/decline
//
// A decline frees the slot immediately: once the offer is resolved the
// orchestrator runs a replacement round for the job. The decline itself
// succeeds even when the replacement round cannot (the sweep retries).
func (h *OfferHandler) Decline(c *gin.Context) {
	var req DeclineOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	offer, err := h.offerService.Decline(c.Request.Context(), c.Param("id"), req.CourierID, req.Reason, req.Code)
	if err != nil {
		respondError(c, err)
		return
	}

	if h.reoffer != nil {
		if _, err := h.reoffer.Reoffer(c.Request.Context(), offer.JobID); err != nil &&
			!errors.Is(err, service.ErrAssignmentInProgress) && !errors.Is(err, service.ErrJobNotOpen) {
			c.JSON(http.StatusOK, gin.H{"offer": offerDetail(offer), "reoffer_error": err.Error()})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"offer": offerDetail(offer)})
}

// Get handles GET /v1/offers/:id
func (h *OfferHandler) Get(c *gin.Context) {
	offer, err := h.offerService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, offerDetail(offer))
}

func offerDetail(offer *domain.Offer) OfferDetail {
	return OfferDetail{
		ID:              offer.ID,
		JobID:           offer.JobID,
		CourierID:       offer.CourierID,
		BaseFee:         offer.Earnings.BaseFee.StringFixed(2),
		DistanceFee:     offer.Earnings.DistanceFee.StringFixed(2),
		TimeFee:         offer.Earnings.TimeFee.StringFixed(2),
		Tip:             offer.Earnings.Tip.StringFixed(2),
		Total:           offer.Earnings.Total.StringFixed(2),
		DistanceKm:      offer.DistanceKm,
		PickupETA:       offer.PickupETA.Format(time.RFC3339),
		DropETA:         offer.DropETA.Format(time.RFC3339),
		SurgeMultiplier: offer.SurgeMultiplier,
		SurgeActive:     offer.SurgeActive,
		Status:          string(offer.Status),
		DeclineReason:   offer.DeclineReason,
		DeclineCode:     offer.DeclineCode,
		ExpiresAt:       offer.ExpiresAt.Format(time.RFC3339),
		CreatedAt:       offer.CreatedAt.Format(time.RFC3339),
	}
}
