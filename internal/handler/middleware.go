package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/felixge/httpsnoop"
	"github.com/gorilla/mux"

	"shorturl/internal/apperr"
	"shorturl/internal/logging"
	"shorturl/internal/metrics"
	"shorturl/internal/model"
)

const requestIDHeader = "X-Request-ID"

type accountKey struct{}

// AccountFromContext returns the account stored by RequireAuth, if any.
func AccountFromContext(ctx context.Context) (*model.Account, bool) {
	a, ok := ctx.Value(accountKey{}).(*model.Account)
	return a, ok && a != nil
}

func withAccount(ctx context.Context, a *model.Account) context.Context {
	return context.WithValue(ctx, accountKey{}, a)
}

// RequestLogger tags the request with an id, then logs and times it once
// it completes. Routes are labelled by template to keep metric cardinality
// bounded.
func (h *Handler) RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" || len(id) > 64 {
			id = logging.NewRequestID()
		}
		w.Header().Set(requestIDHeader, id)
		r = r.WithContext(logging.ContextWithRequestID(r.Context(), id))

		m := httpsnoop.CaptureMetrics(next, w, r)

		route := "unmatched"
		if cr := mux.CurrentRoute(r); cr != nil {
			if tpl, err := cr.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		metrics.RecordHTTPRequest(r.Method, route, m.Code, m.Duration)
		logging.Ctx(r.Context()).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", m.Code).
			Dur("duration", m.Duration).
			Msg("request")
	})
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	scheme, tok, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(tok)
}

// authenticate resolves the bearer token on r to an account.
func (h *Handler) authenticate(r *http.Request) (*model.Account, error) {
	tok := bearerToken(r)
	if tok == "" {
		return nil, apperr.ErrUnauthorized
	}
	return h.Service.Authenticate(r.Context(), tok)
}

// RequireAuth rejects requests without a valid bearer token and stores the
// caller's account in the request context.
func (h *Handler) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := h.authenticate(r)
		if err != nil {
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(withAccount(r.Context(), a)))
	}
}

// mustAccount is only called behind RequireAuth.
func mustAccount(r *http.Request) *model.Account {
	a, _ := AccountFromContext(r.Context())
	return a
}
