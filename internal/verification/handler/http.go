// Package handler exposes phone verification over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/lunchpaillola/docusign-voice/internal/server/middleware"
	"github.com/lunchpaillola/docusign-voice/internal/verification/domain"
	"github.com/lunchpaillola/docusign-voice/internal/verification/service"
)

// Failure reasons produced by the handler itself.
const (
	ReasonInvalidBody  = "Invalid request body"
	ReasonUnauthorized = "Unauthorized"
)

// maxBodyBytes bounds the request body; a phone number and region fit easily.
const maxBodyBytes = 4 << 10

// Verifier runs one verification. Implemented by *service.Service.
type Verifier interface {
	VerifyPhone(ctx context.Context, rawPhone, region string) *domain.Outcome
}

// Handler serves POST /verifyPhone.
type Handler struct {
	verifier Verifier
}

// NewHandler returns a verification handler.
func NewHandler(v Verifier) *Handler {
	return &Handler{verifier: v}
}

type verifyRequest struct {
	// PhoneNumber is accepted as a JSON string or number.
	PhoneNumber json.RawMessage `json:"phoneNumber"`
	Region      json.RawMessage `json:"region"`
}

type verifiedResponse struct {
	Verified   bool               `json:"verified"`
	Reason     string             `json:"reason"`
	Transcript []domain.Utterance `json:"transcript"`
}

type failedResponse struct {
	Verified            bool               `json:"verified"`
	VerifyFailureReason string             `json:"verifyFailureReason"`
	Transcript          []domain.Utterance `json:"transcript,omitempty"`
}

// VerifyPhone always answers 200; failures are reported in the body.
func (h *Handler) VerifyPhone(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		middleware.AddError(r.Context(), err)
		writeOutcome(w, domain.Failed(ReasonInvalidBody))
		return
	}
	phone := scalar(req.PhoneNumber)
	if phone == "" {
		writeOutcome(w, domain.Failed(service.ReasonMissingPhone))
		return
	}

	out := h.verifier.VerifyPhone(r.Context(), phone, scalar(req.Region))
	middleware.AddLogField(r.Context(), "verified", boolString(out.Verified))
	if !out.Verified {
		middleware.AddLogField(r.Context(), "reason", out.Reason)
	}
	middleware.AddLogField(r.Context(), "call_id", out.CallID)
	writeOutcome(w, out)
}

// Unauthorized answers a request that failed bearer authentication.
func Unauthorized(w http.ResponseWriter, r *http.Request) {
	writeOutcome(w, domain.Failed(ReasonUnauthorized))
}

func writeOutcome(w http.ResponseWriter, out *domain.Outcome) {
	var body any
	if out.Verified {
		transcript := out.Transcript
		if transcript == nil {
			transcript = []domain.Utterance{}
		}
		body = verifiedResponse{Verified: true, Reason: out.Reason, Transcript: transcript}
	} else {
		body = failedResponse{VerifyFailureReason: out.Reason, Transcript: out.Transcript}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(body)
}

// scalar returns a JSON string's value or a number's literal text. Anything else is "".
func scalar(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
