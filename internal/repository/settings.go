package repository

import (
	"context"
	"fmt"

	"shorturl/internal/model"
)

// GetSettings returns the singleton settings row, creating it with
// registration enabled when it does not exist yet.
func (r *Repo) GetSettings(ctx context.Context) (*model.SiteSettings, error) {
	if _, err := r.DB.ExecContext(ctx,
		`INSERT INTO site_settings (id, registration_enabled) VALUES (1, TRUE) ON CONFLICT (id) DO NOTHING`); err != nil {
		return nil, fmt.Errorf("init settings: %w", err)
	}
	var s model.SiteSettings
	err := r.DB.QueryRowContext(ctx, `SELECT id, registration_enabled, last_updated FROM site_settings WHERE id = 1`).
		Scan(&s.ID, &s.RegistrationEnabled, &s.LastUpdated)
	if err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

func (r *Repo) SetRegistrationEnabled(ctx context.Context, enabled bool) (*model.SiteSettings, error) {
	q := `INSERT INTO site_settings (id, registration_enabled, last_updated) VALUES (1, $1, now())
		ON CONFLICT (id) DO UPDATE SET registration_enabled = EXCLUDED.registration_enabled, last_updated = now()
		RETURNING id, registration_enabled, last_updated`
	var s model.SiteSettings
	if err := r.DB.QueryRowContext(ctx, q, enabled).Scan(&s.ID, &s.RegistrationEnabled, &s.LastUpdated); err != nil {
		return nil, err
	}
	return &s, nil
}
