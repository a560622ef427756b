package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"shorturl/internal/apperr"
	"shorturl/internal/model"
	"shorturl/internal/repository"
)

const (
	directReferrer = "Direct/Unknown"
	unknownLabel   = "Unknown"
	dayLayout      = "2006-01-02"
)

// Stats aggregates the clicks of an owned URL.
func (s *Service) Stats(ctx context.Context, ownerID int64, code string) (*model.URLStats, error) {
	m, err := s.GetURL(ctx, ownerID, code)
	if err != nil {
		return nil, err
	}
	return s.statsFor(ctx, m)
}

// SharedStats aggregates the clicks of a URL addressed by code and share token.
func (s *Service) SharedStats(ctx context.Context, code, token string) (*model.URLStats, error) {
	if token == "" {
		return nil, apperr.ErrNotFound
	}
	m, err := s.Repo.GetSharedURL(ctx, code, token)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get shared url: %w", err)
	}
	return s.statsFor(ctx, m)
}

func (s *Service) statsFor(ctx context.Context, m *model.ShortURL) (*model.URLStats, error) {
	clicks, err := s.Repo.ListClicks(ctx, m.ID)
	if err != nil {
		return nil, fmt.Errorf("list clicks: %w", err)
	}
	return Aggregate(m, clicks, s.StatsLoc), nil
}

// Aggregate computes click totals, per-label frequencies and a per-day series
// in one pass. Days are calendar days in loc, sorted ascending.
func Aggregate(m *model.ShortURL, clicks []model.Click, loc *time.Location) *model.URLStats {
	if loc == nil {
		loc = time.Local
	}
	st := &model.URLStats{
		URLID:            m.ID,
		ShortCode:        m.ShortCode,
		OriginalURL:      m.OriginalURL,
		TotalClicks:      int64(len(clicks)),
		Referrers:        make(map[string]int64),
		Browsers:         make(map[string]int64),
		OperatingSystems: make(map[string]int64),
		Locations:        make(map[string]int64),
		Countries:        make(map[string]int64),
		ClicksOverTime:   []model.DayCount{},
	}
	days := make(map[string]int64)
	for _, c := range clicks {
		st.Referrers[labelOr(c.Referrer, directReferrer)]++
		st.Browsers[labelOr(c.Browser, unknownLabel)]++
		st.OperatingSystems[labelOr(c.OperatingSystem, unknownLabel)]++
		st.Locations[labelOr(c.Location, unknownLabel)]++
		st.Countries[labelOr(c.Country, unknownLabel)]++
		days[c.ClickedAt.In(loc).Format(dayLayout)]++
	}

	for day, n := range days {
		st.ClicksOverTime = append(st.ClicksOverTime, model.DayCount{Date: day, Count: n})
	}
	// YYYY-MM-DD sorts lexically in date order
	sort.Slice(st.ClicksOverTime, func(i, j int) bool {
		return st.ClicksOverTime[i].Date < st.ClicksOverTime[j].Date
	})
	return st
}

func labelOr(v *string, fallback string) string {
	if v == nil || *v == "" {
		return fallback
	}
	return *v
}
