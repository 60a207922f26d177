// Package server wires the HTTP router: shared middleware, the verification route and the
// OAuth provider routes, all mounted under one path prefix.
package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	healthhandler "github.com/lunchpaillola/docusign-voice/internal/health/handler"
	oauthhandler "github.com/lunchpaillola/docusign-voice/internal/oauth/handler"
	"github.com/lunchpaillola/docusign-voice/internal/security"
	"github.com/lunchpaillola/docusign-voice/internal/server/middleware"
	verifyhandler "github.com/lunchpaillola/docusign-voice/internal/verification/handler"
)

// DefaultOAuthTimeout bounds each OAuth request.
const DefaultOAuthTimeout = 30 * time.Second

// Deps holds the handlers and settings the router needs.
type Deps struct {
	Logger *slog.Logger
	// Prefix is the mount path for every route (e.g. /api).
	Prefix         string
	AllowedOrigins []string

	Verify *verifyhandler.Handler
	OAuth  *oauthhandler.Handler
	// Health is optional; /health is not mounted when nil.
	Health *healthhandler.Handler

	// BearerTokens, when set, requires a valid access token on /verifyPhone.
	BearerTokens *security.TokenProvider
	// IssuedTokens optionally checks that a bearer token is on record.
	IssuedTokens middleware.IssuedTokenChecker

	// Debug mounts /debug/state/{state}. Never set in production.
	Debug        bool
	OAuthTimeout time.Duration
}

// NewRouter returns the HTTP handler for the service.
func NewRouter(deps Deps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	oauthTimeout := deps.OAuthTimeout
	if oauthTimeout <= 0 {
		oauthTimeout = DefaultOAuthTimeout
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, "docuvoice",
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				return r.Method + " " + r.URL.Path
			}))
	})

	routes := func(r chi.Router) {
		if deps.Health != nil {
			r.Get("/health", deps.Health.Health)
		}
		if deps.Verify != nil {
			r.Group(func(r chi.Router) {
				if deps.BearerTokens != nil {
					r.Use(middleware.BearerAuth(deps.BearerTokens, deps.IssuedTokens,
						http.HandlerFunc(verifyhandler.Unauthorized)))
				}
				r.Post("/verifyPhone", deps.Verify.VerifyPhone)
			})
		}
		if deps.OAuth != nil {
			r.Group(func(r chi.Router) {
				r.Use(middleware.Timeout(oauthTimeout))
				deps.OAuth.Mount(r, deps.Debug)
			})
		}
	}
	if deps.Prefix == "" || deps.Prefix == "/" {
		routes(r)
	} else {
		r.Route(deps.Prefix, routes)
	}
	return r
}

// NewHTTPServer returns an http.Server for handler. writeTimeout must exceed the longest
// verification call so the response is not cut off.
func NewHTTPServer(addr string, handler http.Handler, writeTimeout time.Duration) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       2 * time.Minute,
	}
}
