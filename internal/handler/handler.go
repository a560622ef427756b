package handler

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"shorturl/internal/apperr"
	"shorturl/internal/logging"
	"shorturl/internal/model"
	"shorturl/internal/service"
)

// ShortenerService is implemented by *service.Service.
type ShortenerService interface {
	CreateURL(ctx context.Context, ownerID int64, destination string) (*model.ShortURL, error)
	ListURLs(ctx context.Context, ownerID int64, offset, limit int) ([]model.ShortURL, error)
	GetURL(ctx context.Context, ownerID int64, code string) (*model.ShortURL, error)
	DeleteURL(ctx context.Context, ownerID int64, code string) error
	ShareURL(ctx context.Context, ownerID int64, code string) (string, error)
	Stats(ctx context.Context, ownerID int64, code string) (*model.URLStats, error)
	SharedStats(ctx context.Context, code, token string) (*model.URLStats, error)
	ResolveAndRecord(ctx context.Context, code string, meta model.RequestMeta) (string, error)

	Register(ctx context.Context, username, email, password string) (*model.Account, error)
	Login(ctx context.Context, username, password string) (string, error)
	Authenticate(ctx context.Context, token string) (*model.Account, error)

	Settings(ctx context.Context) (*model.SiteSettings, error)
	UpdateSettings(ctx context.Context, actor *model.Account, patch service.SettingsPatch) (*model.SiteSettings, error)

	Ready(ctx context.Context) error
}

var _ ShortenerService = (*service.Service)(nil)

type Handler struct {
	Service         ShortenerService
	RedirectLimiter *RateLimiter
	APILimiter      *RateLimiter
	// TrustedProxies may set X-Forwarded-For for rate limiting. Nil keys
	// every request on its transport peer.
	TrustedProxies  []*net.IPNet
	validate        *validator.Validate
}

func NewHandler(s ShortenerService, redirectLimiter, apiLimiter *RateLimiter) *Handler {
	return &Handler{
		Service:         s,
		RedirectLimiter: redirectLimiter,
		APILimiter:      apiLimiter,
		validate:        validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *Handler) Routes() http.Handler {
	r := mux.NewRouter()
	r.Use(h.RequestLogger)

	r.HandleFunc("/healthz", h.Healthz).Methods("GET")
	r.HandleFunc("/api/health", h.Healthz).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")
	r.HandleFunc("/r/{code}", h.RateLimit(h.RedirectLimiter, "redirect", h.Redirect)).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.Use(func(next http.Handler) http.Handler {
		return h.RateLimit(h.APILimiter, "api", next.ServeHTTP)
	})

	// collection routes also answer with a trailing slash
	for _, p := range []string{"", "/"} {
		api.HandleFunc("/users"+p, h.Register).Methods("POST")
		api.HandleFunc("/urls"+p, h.RequireAuth(h.CreateURL)).Methods("POST")
		api.HandleFunc("/urls"+p, h.RequireAuth(h.ListURLs)).Methods("GET")
		api.HandleFunc("/settings"+p, h.GetSettings).Methods("GET")
		api.HandleFunc("/settings"+p, h.RequireAuth(h.UpdateSettings)).Methods("PATCH")
	}
	api.HandleFunc("/auth/token", h.Login).Methods("POST")
	api.HandleFunc("/users/me", h.RequireAuth(h.Me)).Methods("GET")
	api.HandleFunc("/urls/{code}", h.RequireAuth(h.GetURL)).Methods("GET")
	api.HandleFunc("/urls/{code}", h.RequireAuth(h.DeleteURL)).Methods("DELETE")
	api.HandleFunc("/urls/{code}/stats", h.Stats).Methods("GET")
	api.HandleFunc("/urls/{code}/share", h.RequireAuth(h.ShareURL)).Methods("POST")

	return r
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Ready(r.Context()); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("readiness check failed")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error().Err(err).Msg("encode response")
	}
}

// writeError renders err with its stable status and message. Internal
// details are logged, never sent.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	e := apperr.From(err)
	if e.Status >= http.StatusInternalServerError {
		logging.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	writeJSON(w, e.Status, e)
}

// maxBodyBytes caps JSON and form request bodies.
const maxBodyBytes = 1 << 20

var errBodyTooLarge = apperr.New(http.StatusRequestEntityTooLarge, "request body too large")

// decode reads a JSON body of at most maxBodyBytes into dst and validates it.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return errBodyTooLarge
		}
		return apperr.BadRequest("invalid body")
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return apperr.BadRequest("invalid body")
	}
	if err := h.validate.Struct(dst); err != nil {
		return apperr.BadRequest(validationMessage(err))
	}
	return nil
}

func validationMessage(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return "invalid request"
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, strings.ToLower(fe.Field()))
	}
	return "invalid fields: " + strings.Join(fields, ", ")
}
