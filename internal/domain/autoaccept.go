package domain

import "github.com/shopspring/decimal"

// Area is a named circular zone used for auto-accept area membership.
type Area struct {
	Name     string  `json:"name"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	RadiusKm float64 `json:"radius_km"`
}

// AutoAcceptRule is a courier-owned standing preference that allows an
// offer to be accepted without courier interaction. A bound is only
// enforced when configured: MaxDistanceKm <= 0 means no distance bound,
// zero MinEarnings/MaxEarnings means no earnings bound, and an empty
// Areas list means any pickup area is acceptable.
type AutoAcceptRule struct {
	ID            string
	CourierID     string
	MaxDistanceKm float64
	MinEarnings   decimal.Decimal
	MaxEarnings   decimal.Decimal
	Areas         []Area
	Enabled       bool
	Priority      int
}
