package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// mockPinger implements Pinger for tests.
type mockPinger struct {
	pingErr error
}

func (m *mockPinger) PingContext(context.Context) error {
	return m.pingErr
}

// mockPolicyChecker implements PolicyChecker for tests.
type mockPolicyChecker struct {
	healthErr error
}

func (m *mockPolicyChecker) HealthCheck(context.Context) error {
	return m.healthErr
}

func serve(t *testing.T, h *Handler) (int, healthResponse) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	var resp healthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return rec.Code, resp
}

func TestHealth_NoDependencies(t *testing.T) {
	code, resp := serve(t, NewHandler(nil, nil))
	if code != http.StatusOK || resp.Status != "ok" {
		t.Errorf("code = %d, resp = %+v", code, resp)
	}
	if len(resp.Checks) != 0 {
		t.Errorf("checks = %v, want none", resp.Checks)
	}
}

func TestHealth_AllPass(t *testing.T) {
	code, resp := serve(t, NewHandler(&mockPinger{}, &mockPolicyChecker{}))
	if code != http.StatusOK || resp.Status != "ok" {
		t.Errorf("code = %d, resp = %+v", code, resp)
	}
	if resp.Checks["store"] != "ok" || resp.Checks["policy"] != "ok" {
		t.Errorf("checks = %v", resp.Checks)
	}
}

func TestHealth_PingerFailure(t *testing.T) {
	code, resp := serve(t, NewHandler(&mockPinger{pingErr: errors.New("connection refused")}, &mockPolicyChecker{}))
	if code != http.StatusServiceUnavailable || resp.Status != "unavailable" {
		t.Errorf("code = %d, resp = %+v", code, resp)
	}
	if !strings.Contains(resp.Checks["store"], "connection refused") {
		t.Errorf("store check = %q", resp.Checks["store"])
	}
	if resp.Checks["policy"] != "ok" {
		t.Errorf("policy check = %q", resp.Checks["policy"])
	}
}

func TestHealth_PolicyCheckerFailure(t *testing.T) {
	code, resp := serve(t, NewHandler(nil, &mockPolicyChecker{healthErr: errors.New("rego compile failed")}))
	if code != http.StatusServiceUnavailable {
		t.Errorf("code = %d, want 503", code)
	}
	if !strings.Contains(resp.Checks["policy"], "rego compile failed") {
		t.Errorf("policy check = %q", resp.Checks["policy"])
	}
}
