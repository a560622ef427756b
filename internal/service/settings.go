package service

import (
	"context"
	"fmt"

	"shorturl/internal/apperr"
	"shorturl/internal/logging"
	"shorturl/internal/model"
)

// SettingsPatch lists the mutable settings; nil fields are left unchanged.
type SettingsPatch struct {
	RegistrationEnabled *bool
}

// Settings returns the site settings, creating the default row on first access.
func (s *Service) Settings(ctx context.Context) (*model.SiteSettings, error) {
	st, err := s.Repo.GetSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}
	return st, nil
}

func (s *Service) UpdateSettings(ctx context.Context, actor *model.Account, patch SettingsPatch) (*model.SiteSettings, error) {
	if actor == nil || !actor.IsAdmin {
		return nil, apperr.ErrForbidden
	}
	if patch.RegistrationEnabled == nil {
		return s.Settings(ctx)
	}
	st, err := s.Repo.SetRegistrationEnabled(ctx, *patch.RegistrationEnabled)
	if err != nil {
		return nil, fmt.Errorf("update settings: %w", err)
	}
	logging.Ctx(ctx).Info().Int64("account_id", actor.ID).
		Bool("registration_enabled", st.RegistrationEnabled).Msg("site settings updated")
	return st, nil
}
