// Package handler exposes the OAuth provider endpoints over HTTP.
package handler

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lunchpaillola/docusign-voice/internal/oauth/domain"
	"github.com/lunchpaillola/docusign-voice/internal/oauth/service"
	"github.com/lunchpaillola/docusign-voice/internal/server/middleware"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// OAuth error codes from RFC 6749 section 5.2.
const (
	errInvalidRequest       = "invalid_request"
	errInvalidClient        = "invalid_client"
	errInvalidGrant         = "invalid_grant"
	errUnsupportedGrantType = "unsupported_grant_type"
	errServerError          = "server_error"
)

// Provider is the OAuth service used by the handler. Implemented by *service.OAuthService.
type Provider interface {
	Authorize(ctx context.Context, redirectURI, upstreamState string) (*service.Consent, error)
	ConsentPage(ctx context.Context, state string) (*domain.StateRecord, error)
	SubmitConsent(ctx context.Context, state string) (string, error)
	Token(ctx context.Context, req service.TokenRequest) (*domain.TokenPair, error)
	Callback(ctx context.Context, code, state string) error
	DebugState(ctx context.Context, state string) (*domain.StateRecord, error)
}

// Handler serves the OAuth routes.
type Handler struct {
	provider Provider
	// prefix is the path the routes are mounted under, used to build form links.
	prefix string
	logger *slog.Logger
}

// NewHandler returns an OAuth handler. prefix is the mount path (e.g. /api).
func NewHandler(p Provider, prefix string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{provider: p, prefix: prefix, logger: logger}
}

// Mount registers the OAuth routes on r. The debug route is added only when debug is true.
func (h *Handler) Mount(r chi.Router, debug bool) {
	r.Get("/authorize", h.Authorize)
	r.Get("/verify", h.ConsentPage)
	r.Post("/verify/submit", h.SubmitConsent)
	r.Post("/token", h.Token)
	r.Get("/callback", h.Callback)
	r.Get("/test-callback", h.TestCallback)
	if debug {
		r.Get("/debug/state/{state}", h.DebugState)
	}
}

// Authorize handles GET /authorize?redirect_uri&state and renders the consent prompt.
func (h *Handler) Authorize(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	consent, err := h.provider.Authorize(r.Context(), q.Get("redirect_uri"), q.Get("state"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.render(w, r, "consent.html", map[string]any{
		"RedirectURI": consent.RedirectURI,
		"Code":        consent.Code,
		"State":       consent.State,
		"VerifyURL":   h.prefix + "/verify?" + url.Values{"state": {consent.Code}}.Encode(),
	})
}

// ConsentPage handles GET /verify?state and renders the submit form.
func (h *Handler) ConsentPage(w http.ResponseWriter, r *http.Request) {
	state := r.URL.Query().Get("state")
	if _, err := h.provider.ConsentPage(r.Context(), state); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.render(w, r, "verify.html", map[string]any{
		"State":     state,
		"SubmitURL": h.prefix + "/verify/submit",
	})
}

// SubmitConsent handles POST /verify/submit and redirects to the client.
func (h *Handler) SubmitConsent(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.writeError(w, r, service.ErrMissingParameter)
		return
	}
	target, err := h.provider.SubmitConsent(r.Context(), r.PostForm.Get("state"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	middleware.AddLogField(r.Context(), "redirect_host", hostOf(target))
	http.Redirect(w, r, target, http.StatusFound)
}

// Token handles POST /token with HTTP Basic client authentication.
func (h *Handler) Token(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.writeError(w, r, service.ErrMissingParameter)
		return
	}
	clientID, clientSecret, _ := r.BasicAuth()
	req := service.TokenRequest{
		GrantType:    r.PostForm.Get("grant_type"),
		Code:         r.PostForm.Get("code"),
		RefreshToken: r.PostForm.Get("refresh_token"),
		ClientID:     clientID,
		ClientSecret: clientSecret,
	}
	middleware.AddLogField(r.Context(), "grant_type", req.GrantType)
	pair, err := h.provider.Token(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
	writeJSON(w, http.StatusOK, pair)
}

// Callback handles GET /callback?code&state.
func (h *Handler) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	code, state := q.Get("code"), q.Get("state")
	if err := h.provider.Callback(r.Context(), code, state); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Authorization successful",
		"code":    code,
		"state":   state,
	})
}

// TestCallback handles GET /test-callback and echoes the query parameters.
func (h *Handler) TestCallback(w http.ResponseWriter, r *http.Request) {
	params := make(map[string]string)
	for k, v := range r.URL.Query() {
		if len(v) > 0 {
			params[k] = v[0]
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Callback received",
		"params":  params,
	})
}

type debugRecord struct {
	State         string     `json:"state"`
	RedirectURI   string     `json:"redirect_uri"`
	UpstreamState string     `json:"docusign_state,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	ExpiresAt     time.Time  `json:"expires_at"`
	ConsumedAt    *time.Time `json:"consumed_at,omitempty"`
}

// DebugState handles GET /debug/state/{state}. Mount only outside production.
func (h *Handler) DebugState(w http.ResponseWriter, r *http.Request) {
	rec, err := h.provider.DebugState(r.Context(), chi.URLParam(r, "state"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	body := map[string]any{"stored_state": nil, "exists": rec != nil}
	if rec != nil {
		body["stored_state"] = debugRecord{
			State:         rec.State,
			RedirectURI:   rec.RedirectURI,
			UpstreamState: rec.UpstreamState,
			CreatedAt:     rec.CreatedAt,
			ExpiresAt:     rec.ExpiresAt,
			ConsumedAt:    rec.ConsumedAt,
		}
	}
	writeJSON(w, http.StatusOK, body)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pages.ExecuteTemplate(w, name, data); err != nil {
		middleware.AddError(r.Context(), err)
		h.logger.Error("oauth: render failed", slog.String("template", name), slog.String("error", err.Error()))
	}
}

type errorResponse struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

// writeError maps service errors to OAuth error responses.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	middleware.AddError(r.Context(), err)
	status, code, desc := http.StatusInternalServerError, errServerError, "internal error"
	switch {
	case errors.Is(err, service.ErrMissingParameter),
		errors.Is(err, service.ErrInvalidRedirectURI),
		errors.Is(err, service.ErrInvalidState):
		status, code, desc = http.StatusBadRequest, errInvalidRequest, err.Error()
	case errors.Is(err, service.ErrInvalidClientCredentials):
		status, code, desc = http.StatusUnauthorized, errInvalidClient, err.Error()
		w.Header().Set("WWW-Authenticate", `Basic realm="oauth"`)
	case errors.Is(err, service.ErrInvalidGrant):
		status, code, desc = http.StatusBadRequest, errInvalidGrant, err.Error()
	case errors.Is(err, service.ErrUnsupportedGrantType):
		status, code, desc = http.StatusBadRequest, errUnsupportedGrantType, err.Error()
	default:
		h.logger.Error("oauth: request failed", slog.String("path", r.URL.Path), slog.String("error", err.Error()))
	}
	writeJSON(w, status, errorResponse{Error: code, Description: desc})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Host
}
