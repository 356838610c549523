package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OfferStatus represents the current status of an offer.
type OfferStatus string

const (
	OfferStatusPending   OfferStatus = "PENDING"
	OfferStatusSent      OfferStatus = "SENT"
	OfferStatusAccepted  OfferStatus = "ACCEPTED"
	OfferStatusDeclined  OfferStatus = "DECLINED"
	OfferStatusExpired   OfferStatus = "EXPIRED"
	OfferStatusCancelled OfferStatus = "CANCELLED"
)

// Terminal reports whether the status permits no further transitions.
func (s OfferStatus) Terminal() bool {
	switch s {
	case OfferStatusAccepted, OfferStatusDeclined, OfferStatusExpired, OfferStatusCancelled:
		return true
	}
	return false
}

// Earnings is the per-component breakdown of what a courier is paid for
// an offer. All values are monetary and rounded to 2 decimal places.
type Earnings struct {
	BaseFee     decimal.Decimal
	DistanceFee decimal.Decimal
	TimeFee     decimal.Decimal
	Tip         decimal.Decimal
	Total       decimal.Decimal
}

// Offer represents a time-boxed proposal of one job to one courier.
type Offer struct {
	ID              string
	JobID           string
	CourierID       string
	Earnings        Earnings
	DistanceKm      float64
	PickupETA       time.Time
	DropETA         time.Time
	SurgeMultiplier float64 // 1.0 = no surge
	SurgeActive     bool
	Status          OfferStatus
	DeclineReason   string
	DeclineCode     string
	ExpiresAt       time.Time
	CreatedAt       time.Time
	ResolvedAt      time.Time
}

// IsExpired reports whether the offer is past its expiry at the given instant.
// It is a pure function of the clock; persistence of the EXPIRED status is
// handled lazily by the offer service and the periodic sweep.
func (o *Offer) IsExpired(now time.Time) bool {
	return now.After(o.ExpiresAt)
}
