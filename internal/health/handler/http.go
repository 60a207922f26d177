// Package handler serves the readiness endpoint.
package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// checkTimeout bounds each dependency check.
const checkTimeout = 2 * time.Second

// Pinger is used for readiness checks (e.g. *sql.DB).
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PolicyChecker is used for readiness checks (e.g. the OPA dial policy evaluator).
type PolicyChecker interface {
	HealthCheck(ctx context.Context) error
}

// Handler serves GET /health.
type Handler struct {
	pinger        Pinger
	policyChecker PolicyChecker
}

// NewHandler returns a health handler. Either dependency may be nil, in which case its check is skipped.
func NewHandler(pinger Pinger, policyChecker PolicyChecker) *Handler {
	return &Handler{pinger: pinger, policyChecker: policyChecker}
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Health returns 200 {"status":"ok"} when every configured check passes, 503 otherwise.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Checks: map[string]string{}}
	if h.pinger != nil {
		resp.Checks["store"] = check(r.Context(), h.pinger.PingContext)
	}
	if h.policyChecker != nil {
		resp.Checks["policy"] = check(r.Context(), h.policyChecker.HealthCheck)
	}
	status := http.StatusOK
	for _, v := range resp.Checks {
		if v != "ok" {
			resp.Status = "unavailable"
			status = http.StatusServiceUnavailable
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

func check(ctx context.Context, fn func(context.Context) error) string {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		return "error: " + err.Error()
	}
	return "ok"
}
