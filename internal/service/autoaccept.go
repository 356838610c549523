package service

import (
	"context"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
)

// AutoAcceptService evaluates a courier's standing preferences against an
// offer to allow instant acceptance without courier interaction.
type AutoAcceptService struct {
	ruleRepo repository.AutoAcceptRuleRepository
}

// NewAutoAcceptService creates a new AutoAcceptService.
func NewAutoAcceptService(ruleRepo repository.AutoAcceptRuleRepository) *AutoAcceptService {
	return &AutoAcceptService{ruleRepo: ruleRepo}
}

// Evaluate returns the first matching enabled rule for the courier in
// descending priority order, or nil when no rule matches. A courier with
// no enabled rules simply does not match; that is not an error.
func (s *AutoAcceptService) Evaluate(ctx context.Context, courierID string, offer *domain.Offer, pickupLat, pickupLng float64) (*domain.AutoAcceptRule, error) {
	rules, err := s.ruleRepo.GetEnabledByCourierID(ctx, courierID)
	if err != nil {
		return nil, err
	}

	for _, rule := range rules {
		if ruleMatches(rule, offer, pickupLat, pickupLng) {
			return rule, nil
		}
	}

	return nil, nil
}

// ruleMatches checks every configured bound of the rule against the offer.
func ruleMatches(rule *domain.AutoAcceptRule, offer *domain.Offer, pickupLat, pickupLng float64) bool {
	if rule.MaxDistanceKm > 0 && offer.DistanceKm > rule.MaxDistanceKm {
		return false
	}

	if !rule.MinEarnings.IsZero() && offer.Earnings.Total.LessThan(rule.MinEarnings) {
		return false
	}

	if !rule.MaxEarnings.IsZero() && offer.Earnings.Total.GreaterThan(rule.MaxEarnings) {
		return false
	}

	if len(rule.Areas) > 0 && !inAnyArea(rule.Areas, pickupLat, pickupLng) {
		return false
	}

	return true
}

func inAnyArea(areas []domain.Area, lat, lng float64) bool {
	for _, area := range areas {
		if haversineKm(lat, lng, area.Lat, area.Lng) <= area.RadiusKm {
			return true
		}
	}
	return false
}
