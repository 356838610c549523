package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dispatch/internal/domain"
	"dispatch/internal/service"
)

// CourierHandler handles HTTP requests for couriers.
type CourierHandler struct {
	courierService *service.CourierService
}

// NewCourierHandler creates a new CourierHandler.
func NewCourierHandler(courierService *service.CourierService) *CourierHandler {
	return &CourierHandler{courierService: courierService}
}

// RegisterCourierRequest is the HTTP request body for registering a courier.
type RegisterCourierRequest struct {
	Name  string `json:"name" binding:"required"`
	Phone string `json:"phone" binding:"required"`
}

// CourierResponse is the HTTP representation of a courier.
type CourierResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	ShiftState string `json:"shift_state"`
}

// UpdateLocationRequest is the HTTP request body for a location sample.
type UpdateLocationRequest struct {
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	SpeedKmh float64 `json:"speed_kmh"`
	Heading  float64 `json:"heading"`
}

// SetShiftRequest is the HTTP request body for a shift state change.
type SetShiftRequest struct {
	State string `json:"state" binding:"required"`
}

// AutoAcceptRuleRequest is one rule in a rule-set replacement.
type AutoAcceptRuleRequest struct {
	ID            string        `json:"id,omitempty"`
	MaxDistanceKm float64       `json:"max_distance_km,omitempty"`
	MinEarnings   string        `json:"min_earnings,omitempty"`
	MaxEarnings   string        `json:"max_earnings,omitempty"`
	Areas         []domain.Area `json:"areas,omitempty"`
	Priority      int           `json:"priority"`
	Enabled       bool          `json:"enabled"`
}

// ReplaceRulesRequest is the HTTP request body for PUT auto-accept rules.
type ReplaceRulesRequest struct {
	Rules []AutoAcceptRuleRequest `json:"rules"`
}

// Register handles POST /v1/couriers/register
func (h *CourierHandler) Register(c *gin.Context) {
	var req RegisterCourierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	courier, err := h.courierService.Register(c.Request.Context(), req.Name, req.Phone)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, courierResponse(courier))
}

// GetAll handles GET /v1/couriers
func (h *CourierHandler) GetAll(c *gin.Context) {
	couriers, err := h.courierService.GetAll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]CourierResponse, 0, len(couriers))
	for _, courier := range couriers {
		out = append(out, courierResponse(courier))
	}

	c.JSON(http.StatusOK, gin.H{"couriers": out})
}

// UpdateLocation handles POST /v1/couriers/:id/location
func (h *CourierHandler) UpdateLocation(c *gin.Context) {
	var req UpdateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	err := h.courierService.RecordLocation(c.Request.Context(), service.RecordLocationRequest{
		CourierID: c.Param("id"),
		Lat:       req.Lat,
		Lng:       req.Lng,
		SpeedKmh:  req.SpeedKmh,
		Heading:   req.Heading,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// SetShift handles POST /v1/couriers/:id/shift
func (h *CourierHandler) SetShift(c *gin.Context) {
	var req SetShiftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	err := h.courierService.SetShiftState(c.Request.Context(), c.Param("id"), domain.ShiftState(req.State))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ReplaceAutoAcceptRules handles PUT /v1/couriers/:id/auto-accept
func (h *CourierHandler) ReplaceAutoAcceptRules(c *gin.Context) {
	var req ReplaceRulesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	rules := make([]*domain.AutoAcceptRule, 0, len(req.Rules))
	for _, r := range req.Rules {
		rule, err := ruleFromRequest(r)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
		rules = append(rules, rule)
	}

	if err := h.courierService.ReplaceAutoAcceptRules(c.Request.Context(), c.Param("id"), rules); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok", "rules": len(rules)})
}

func courierResponse(courier *domain.Courier) CourierResponse {
	return CourierResponse{
		ID:         courier.ID,
		Name:       courier.Name,
		Phone:      courier.Phone,
		ShiftState: string(courier.ShiftState),
	}
}

func ruleFromRequest(r AutoAcceptRuleRequest) (*domain.AutoAcceptRule, error) {
	rule := &domain.AutoAcceptRule{
		ID:            r.ID,
		MaxDistanceKm: r.MaxDistanceKm,
		Areas:         r.Areas,
		Priority:      r.Priority,
		Enabled:       r.Enabled,
	}
	if r.MinEarnings != "" {
		v, err := decimalFromString(r.MinEarnings)
		if err != nil {
			return nil, err
		}
		rule.MinEarnings = v
	}
	if r.MaxEarnings != "" {
		v, err := decimalFromString(r.MaxEarnings)
		if err != nil {
			return nil, err
		}
		rule.MaxEarnings = v
	}
	return rule, nil
}
