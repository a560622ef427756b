// Package enrich derives browser, OS and location details for a click.
// Every lookup is best effort: failures are logged and collapse to Unknown,
// nothing is returned to the caller as an error.
package enrich

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"shorturl/internal/logging"
	"shorturl/internal/metrics"
)

var errLookupTimeout = errors.New("lookup timed out")

// Result is what the click recorder stores alongside the raw headers.
type Result struct {
	ClientIP        string
	OperatingSystem string
	Browser         string
	Location        string
	Country         string
	City            string
}

type Enricher struct {
	ua      UserAgentParser
	geo     GeoLookup
	timeout time.Duration
}

func NewEnricher(ua UserAgentParser, geo GeoLookup, timeout time.Duration) *Enricher {
	if geo == nil {
		geo = NoGeoLookup{}
	}
	return &Enricher{ua: ua, geo: geo, timeout: timeout}
}

func (e *Enricher) Enrich(ctx context.Context, userAgent, forwardedFor, remoteAddr string) Result {
	res := Result{ClientIP: ClientIP(forwardedFor, remoteAddr)}
	res.OperatingSystem, res.Browser = e.ParseUserAgent(ctx, userAgent)
	loc := e.Locate(ctx, res.ClientIP)
	res.Location = loc.Label()
	res.Country = loc.Country
	res.City = loc.City
	return res
}

// ParseUserAgent returns the OS family and browser label, or Unknown for both.
func (e *Enricher) ParseUserAgent(ctx context.Context, userAgent string) (os, browser string) {
	if userAgent == "" || e.ua == nil {
		return Unknown, Unknown
	}
	parsed, err := bounded(ctx, e.timeout, func() (UserAgent, error) {
		return e.ua.Parse(userAgent)
	})
	if err != nil {
		degraded(ctx, "user_agent", err)
		return Unknown, Unknown
	}
	os = parsed.OSFamily
	if os == "" {
		os = Unknown
	}
	return os, BrowserLabel(parsed.BrowserFamily, parsed.BrowserVersion)
}

// Locate resolves a public address to a location. Private and loopback
// addresses are never looked up.
func (e *Enricher) Locate(ctx context.Context, addr string) Location {
	ip := net.ParseIP(addr)
	if !Locatable(ip) {
		return Location{}
	}
	loc, err := bounded(ctx, e.timeout, func() (Location, error) {
		return e.geo.Lookup(ip)
	})
	if err != nil {
		if !errors.Is(err, ErrGeoUnavailable) {
			degraded(ctx, "geo", err)
		}
		return Location{}
	}
	return loc
}

// bounded runs fn with a deadline and turns panics into errors.
func bounded[T any](ctx context.Context, timeout time.Duration, fn func() (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}
	var zero T
	if timeout <= 0 {
		timeout = time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ch := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- result{err: fmt.Errorf("lookup panicked: %v", r)}
			}
		}()
		v, err := fn()
		ch <- result{v: v, err: err}
	}()

	select {
	case r := <-ch:
		return r.v, r.err
	case <-ctx.Done():
		return zero, errLookupTimeout
	}
}

func degraded(ctx context.Context, lookup string, err error) {
	reason := "error"
	if errors.Is(err, errLookupTimeout) {
		reason = "timeout"
	}
	metrics.EnrichmentDegraded.WithLabelValues(lookup, reason).Inc()
	logging.Ctx(ctx).Debug().Err(err).Str("lookup", lookup).Msg("enrichment degraded")
}
