package repository

import (
	"context"

	"dispatch/internal/domain"
)

// AutoAcceptRuleRepository defines the persistence operations for
// courier auto-accept rules.
type AutoAcceptRuleRepository interface {
	// ReplaceForCourier replaces the full rule set of a courier.
	ReplaceForCourier(ctx context.Context, courierID string, rules []*domain.AutoAcceptRule) error

	// GetEnabledByCourierID retrieves the courier's enabled rules ordered
	// by descending priority.
	GetEnabledByCourierID(ctx context.Context, courierID string) ([]*domain.AutoAcceptRule, error)
}
