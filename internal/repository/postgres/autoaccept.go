package postgres

import (
	"context"
	"database/sql"
	"encoding/json"

	"dispatch/internal/domain"
)

// AutoAcceptRuleRepository is a PostgreSQL implementation of
// repository.AutoAcceptRuleRepository. Areas are stored as a JSON column;
// the rest of the rule is flat typed columns.
type AutoAcceptRuleRepository struct {
	db *sql.DB
}

// NewAutoAcceptRuleRepository creates a new PostgreSQL rule repository.
func NewAutoAcceptRuleRepository(db *sql.DB) *AutoAcceptRuleRepository {
	return &AutoAcceptRuleRepository{db: db}
}

// ReplaceForCourier replaces the full rule set of a courier atomically.
func (r *AutoAcceptRuleRepository) ReplaceForCourier(ctx context.Context, courierID string, rules []*domain.AutoAcceptRule) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM auto_accept_rules WHERE courier_id = $1`, courierID); err != nil {
		return err
	}

	query := `
		INSERT INTO auto_accept_rules (id, courier_id, max_distance_km, min_earnings, max_earnings, areas, enabled, priority)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	for _, rule := range rules {
		var areas []byte
		areas, err = json.Marshal(rule.Areas)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, query,
			rule.ID,
			courierID,
			rule.MaxDistanceKm,
			rule.MinEarnings,
			rule.MaxEarnings,
			areas,
			rule.Enabled,
			rule.Priority,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetEnabledByCourierID retrieves the courier's enabled rules ordered by
// descending priority.
func (r *AutoAcceptRuleRepository) GetEnabledByCourierID(ctx context.Context, courierID string) ([]*domain.AutoAcceptRule, error) {
	query := `
		SELECT id, courier_id, max_distance_km, min_earnings, max_earnings, areas, enabled, priority
		FROM auto_accept_rules
		WHERE courier_id = $1 AND enabled = TRUE
		ORDER BY priority DESC, id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, courierID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []*domain.AutoAcceptRule
	for rows.Next() {
		var rule domain.AutoAcceptRule
		var areas []byte
		if err := rows.Scan(
			&rule.ID,
			&rule.CourierID,
			&rule.MaxDistanceKm,
			&rule.MinEarnings,
			&rule.MaxEarnings,
			&areas,
			&rule.Enabled,
			&rule.Priority,
		); err != nil {
			return nil, err
		}
		if len(areas) > 0 {
			if err := json.Unmarshal(areas, &rule.Areas); err != nil {
				return nil, err
			}
		}
		rules = append(rules, &rule)
	}
	return rules, rows.Err()
}
