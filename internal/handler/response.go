package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"dispatch/internal/repository"
	"dispatch/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// decimalFromString parses a money amount from its string form.
func decimalFromString(s string) (decimal.Decimal, error) {
	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid amount %q", s)
	}
	return v, nil
}

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	code := mapErrorToHTTPStatus(err)
	c.JSON(code, ErrorResponse{Error: err.Error()})
}

// mapErrorToHTTPStatus maps service/repository errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	switch {
	// Not found errors
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound

	// Validation errors - Bad Request
	case errors.Is(err, service.ErrInvalidJobID),
		errors.Is(err, service.ErrInvalidCourierID),
		errors.Is(err, service.ErrInvalidOfferID),
		errors.Is(err, service.ErrInvalidCoordinates),
		errors.Is(err, service.ErrInvalidShiftState),
		errors.Is(err, service.ErrInvalidFee),
		errors.Is(err, service.ErrInvalidCourierName):
		return http.StatusBadRequest

	// Conflict errors: lost races, expired offers, busy couriers
	case errors.Is(err, service.ErrOfferAlreadyResolved),
		errors.Is(err, service.ErrOfferExpired),
		errors.Is(err, service.ErrCourierHasActiveJob),
		errors.Is(err, service.ErrAssignmentInProgress),
		errors.Is(err, service.ErrJobNotOpen),
		errors.Is(err, service.ErrCourierExists):
		return http.StatusConflict

	// Forbidden: acting on someone else's offer
	case errors.Is(err, service.ErrOfferNotOwned):
		return http.StatusForbidden

	// Default to internal server error
	default:
		return http.StatusInternalServerError
	}
}
