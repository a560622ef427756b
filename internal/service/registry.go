package service

import (
	"context"
	"errors"
	"fmt"

	"shorturl/internal/apperr"
	"shorturl/internal/logging"
	"shorturl/internal/metrics"
	"shorturl/internal/model"
	"shorturl/internal/repository"
	"shorturl/internal/util"
)

const (
	defaultListLimit = 100
	maxListLimit     = 100
)

var ErrCodeSpaceExhausted = errors.New("failed to generate a unique short code")

// CreateURL allocates a fresh short code for destination under ownerID.
func (s *Service) CreateURL(ctx context.Context, ownerID int64, destination string) (*model.ShortURL, error) {
	dest, err := util.NormalizeURL(destination)
	if err != nil {
		return nil, apperr.BadRequest(err.Error())
	}

	for attempt := 0; attempt < s.MaxAttempts; attempt++ {
		code, err := s.newCode(s.ShortLen)
		if err != nil {
			return nil, fmt.Errorf("generate code: %w", err)
		}
		exists, err := s.Repo.CodeExists(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("check code: %w", err)
		}
		if exists {
			metrics.CodeCollisions.Inc()
			continue
		}

		m := &model.ShortURL{ShortCode: code, OriginalURL: dest, AccountID: ownerID}
		err = s.Repo.CreateURL(ctx, m)
		if errors.Is(err, repository.ErrDuplicate) {
			// lost a race with a concurrent insert of the same code
			metrics.CodeCollisions.Inc()
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("create url: %w", err)
		}
		m.ClickCount = 0
		logging.Ctx(ctx).Info().Str("code", code).Int64("account_id", ownerID).Msg("short url created")
		return m, nil
	}
	return nil, ErrCodeSpaceExhausted
}

func (s *Service) ListURLs(ctx context.Context, ownerID int64, offset, limit int) ([]model.ShortURL, error) {
	if offset < 0 {
		offset = 0
	}
	if limit < 1 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	list, err := s.Repo.ListURLs(ctx, ownerID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("list urls: %w", err)
	}
	return list, nil
}

// GetURL returns apperr.ErrNotFound whether the code is unknown or owned by another account.
func (s *Service) GetURL(ctx context.Context, ownerID int64, code string) (*model.ShortURL, error) {
	m, err := s.Repo.GetOwnedURL(ctx, code, ownerID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get url: %w", err)
	}
	return m, nil
}

func (s *Service) DeleteURL(ctx context.Context, ownerID int64, code string) error {
	err := s.Repo.DeleteURL(ctx, code, ownerID)
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("delete url: %w", err)
	}
	if err := s.Cache.Delete(ctx, code); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("code", code).Msg("cache eviction failed")
	}
	return nil
}

// ShareURL assigns a share token to an owned URL, reusing an existing one.
func (s *Service) ShareURL(ctx context.Context, ownerID int64, code string) (string, error) {
	m, err := s.GetURL(ctx, ownerID, code)
	if err != nil {
		return "", err
	}
	if m.ShareToken != nil {
		return *m.ShareToken, nil
	}
	token, err := s.Repo.SetShareToken(ctx, m.ID, util.NewShareToken())
	if err != nil {
		return "", fmt.Errorf("set share token: %w", err)
	}
	return token, nil
}
