package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// GetRolloutConfig retrieves the singleton rollout row
func (db *DB) GetRolloutConfig(ctx context.Context) (*RolloutConfig, error) {
	cfg := &RolloutConfig{}
	var betaIDs string

	err := db.QueryRowContext(ctx, `
		SELECT shadow_mode, driver_ui_enabled, company_ui_enabled, company_beta_ids, updated_at
		FROM rollout_config WHERE id = 1
	`).Scan(&cfg.ShadowMode, &cfg.DriverUIEnabled, &cfg.CompanyUIEnabled, &betaIDs, &cfg.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(betaIDs), &cfg.CompanyBetaIDs); err != nil {
		return nil, fmt.Errorf("failed to decode company beta ids: %w", err)
	}
	return cfg, nil
}

// UpdateRolloutConfig overwrites the singleton rollout row. Operator-only;
// end-user paths never call this.
func (db *DB) UpdateRolloutConfig(ctx context.Context, cfg *RolloutConfig) error {
	betaIDs, err := marshalJSON(cfg.CompanyBetaIDs)
	if err != nil {
		return fmt.Errorf("failed to encode company beta ids: %w", err)
	}
	cfg.UpdatedAt = time.Now()

	_, err = db.ExecContext(ctx, `
		UPDATE rollout_config SET
			shadow_mode = ?, driver_ui_enabled = ?, company_ui_enabled = ?,
			company_beta_ids = ?, updated_at = ?
		WHERE id = 1
	`, cfg.ShadowMode, cfg.DriverUIEnabled, cfg.CompanyUIEnabled, betaIDs, cfg.UpdatedAt)
	return err
}
