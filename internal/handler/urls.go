package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"shorturl/internal/apperr"
	"shorturl/internal/model"
	"shorturl/internal/service"
)

type createURLRequest struct {
	OriginalURL string `json:"original_url" validate:"required,max=2048"`
}

type createURLResponse struct {
	*model.ShortURL
	Link string `json:"short_url"`
}

type shareResponse struct {
	ShareToken string `json:"share_token"`
}

// shortLink builds the public redirect address from the request host.
func shortLink(r *http.Request, code string) string {
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/r/%s", scheme, r.Host, code)
}

func (h *Handler) Redirect(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	dest, err := h.Service.ResolveAndRecord(r.Context(), code, model.RequestMeta{
		Referrer:     r.Header.Get("Referer"),
		UserAgent:    r.Header.Get("User-Agent"),
		ForwardedFor: r.Header.Get("X-Forwarded-For"),
		RemoteAddr:   r.RemoteAddr,
	})
	// a lost click never blocks the visitor
	if err != nil && !errors.Is(err, service.ErrClickNotRecorded) {
		writeError(w, r, err)
		return
	}
	http.Redirect(w, r, dest, http.StatusFound)
}

func (h *Handler) CreateURL(w http.ResponseWriter, r *http.Request) {
	var req createURLRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	m, err := h.Service.CreateURL(r.Context(), mustAccount(r).ID, req.OriginalURL)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, createURLResponse{ShortURL: m, Link: shortLink(r, m.ShortCode)})
}

func (h *Handler) ListURLs(w http.ResponseWriter, r *http.Request) {
	skip, err := intQuery(r, "skip", 0)
	if err != nil {
		writeError(w, r, err)
		return
	}
	limit, err := intQuery(r, "limit", 0)
	if err != nil {
		writeError(w, r, err)
		return
	}
	list, err := h.Service.ListURLs(r.Context(), mustAccount(r).ID, skip, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if list == nil {
		list = []model.ShortURL{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) GetURL(w http.ResponseWriter, r *http.Request) {
	m, err := h.Service.GetURL(r.Context(), mustAccount(r).ID, mux.Vars(r)["code"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *Handler) DeleteURL(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.DeleteURL(r.Context(), mustAccount(r).ID, mux.Vars(r)["code"]); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ShareURL(w http.ResponseWriter, r *http.Request) {
	tok, err := h.Service.ShareURL(r.Context(), mustAccount(r).ID, mux.Vars(r)["code"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, shareResponse{ShareToken: tok})
}

// Stats serves the owner with a bearer token, or anyone holding the
// link's share token. A caller presenting both is tried as the owner first.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	shareToken := r.URL.Query().Get("share_token")

	var (
		st  *model.URLStats
		err error = apperr.ErrUnauthorized
	)
	if bearerToken(r) != "" || shareToken == "" {
		var a *model.Account
		if a, err = h.authenticate(r); err == nil {
			st, err = h.Service.Stats(r.Context(), a.ID, code)
		}
	}
	if err != nil && shareToken != "" {
		st, err = h.Service.SharedStats(r.Context(), code, shareToken)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func intQuery(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, apperr.BadRequest(key + " must be an integer")
	}
	return n, nil
}
