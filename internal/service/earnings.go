package service

import (
	"github.com/shopspring/decimal"

	"dispatch/internal/domain"
)

// EarningsService combines fee components into a single offer value. All
// arithmetic is decimal; monetary values never pass through floats except
// at the API edge.
type EarningsService struct {
	perKmRate     decimal.Decimal
	perMinuteRate decimal.Decimal
	avgSpeedKmh   float64
}

// NewEarningsService creates a new EarningsService. avgSpeedKmh is used
// for straight-line time estimates and defaults to 20 when non-positive.
func NewEarningsService(perKmRate, perMinuteRate decimal.Decimal, avgSpeedKmh float64) *EarningsService {
	if avgSpeedKmh <= 0 {
		avgSpeedKmh = 20
	}
	return &EarningsService{
		perKmRate:     perKmRate,
		perMinuteRate: perMinuteRate,
		avgSpeedKmh:   avgSpeedKmh,
	}
}

// Calculate prices an offer. The base fee and distance fee are scaled by
// the surge multiplier; the time fee and tip are not.
func (s *EarningsService) Calculate(baseFee decimal.Decimal, distanceKm, minutes, surgeMultiplier float64, tip decimal.Decimal) domain.Earnings {
	surge := decimal.NewFromFloat(surgeMultiplier)

	base := baseFee.Mul(surge).Round(2)
	distanceFee := decimal.NewFromFloat(distanceKm).Mul(s.perKmRate).Mul(surge).Round(2)
	timeFee := decimal.NewFromFloat(minutes).Mul(s.perMinuteRate).Round(2)
	tip = tip.Round(2)

	return domain.Earnings{
		BaseFee:     base,
		DistanceFee: distanceFee,
		TimeFee:     timeFee,
		Tip:         tip,
		Total:       base.Add(distanceFee).Add(timeFee).Add(tip),
	}
}

// EstimateMinutes converts a straight-line distance to a time estimate at
// the assumed average courier speed.
func (s *EarningsService) EstimateMinutes(distanceKm float64) float64 {
	return distanceKm / s.avgSpeedKmh * 60
}
