package service

import (
	"context"
	"errors"
	"fmt"

	"shorturl/internal/apperr"
	"shorturl/internal/cache"
	"shorturl/internal/logging"
	"shorturl/internal/metrics"
	"shorturl/internal/model"
	"shorturl/internal/repository"
)

// ErrClickNotRecorded accompanies a valid destination when the click row could not be stored.
var ErrClickNotRecorded = errors.New("click not recorded")

// ResolveAndRecord returns the destination for code and appends one click.
// Unknown codes yield apperr.ErrNotFound and record nothing, including a code
// deleted between lookup and insert. When the click cannot be persisted for any
// other reason the destination is still returned, alongside an error wrapping
// ErrClickNotRecorded.
func (s *Service) ResolveAndRecord(ctx context.Context, code string, meta model.RequestMeta) (string, error) {
	entry, err := s.lookup(ctx, code)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			metrics.Redirects.WithLabelValues("not_found").Inc()
		} else {
			metrics.Redirects.WithLabelValues("error").Inc()
		}
		return "", err
	}

	res := s.Enricher.Enrich(ctx, meta.UserAgent, meta.ForwardedFor, meta.RemoteAddr)
	click := &model.Click{
		URLID:           entry.URLID,
		Referrer:        model.StrPtr(meta.Referrer),
		UserAgent:       model.StrPtr(meta.UserAgent),
		ClientIP:        model.StrPtr(res.ClientIP),
		OperatingSystem: model.StrPtr(res.OperatingSystem),
		Browser:         model.StrPtr(res.Browser),
		Location:        model.StrPtr(res.Location),
		Country:         model.StrPtr(res.Country),
		City:            model.StrPtr(res.City),
	}

	// The visitor may hang up before the insert finishes; keep recording anyway.
	recCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.RecordTimeout)
	defer cancel()
	if err := s.Repo.InsertClick(recCtx, click); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// deleted after the lookup, or a stale cache entry
			if err := s.Cache.Delete(recCtx, code); err != nil {
				logging.Ctx(ctx).Warn().Err(err).Str("code", code).Msg("cache eviction failed")
			}
			metrics.Redirects.WithLabelValues("not_found").Inc()
			return "", apperr.ErrNotFound
		}
		metrics.Redirects.WithLabelValues("found").Inc()
		metrics.ClickRecordFailures.Inc()
		logging.Ctx(ctx).Error().Err(err).Str("code", code).Msg("failed to record click")
		return entry.Destination, fmt.Errorf("%w: %v", ErrClickNotRecorded, err)
	}
	metrics.Redirects.WithLabelValues("found").Inc()
	metrics.ClicksRecorded.Inc()
	return entry.Destination, nil
}

// lookup resolves a code through the cache, falling back to the store.
func (s *Service) lookup(ctx context.Context, code string) (*cache.Entry, error) {
	cached, err := s.Cache.Get(ctx, code)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("redirect cache read failed")
	}
	if cached != nil {
		metrics.CacheHits.Inc()
		return cached, nil
	}
	metrics.CacheMisses.Inc()

	m, err := s.Repo.GetURLByCode(ctx, code)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup code: %w", err)
	}

	entry := cache.Entry{URLID: m.ID, Destination: m.OriginalURL}
	if err := s.Cache.Set(ctx, code, entry); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("redirect cache write failed")
	}
	return &entry, nil
}
