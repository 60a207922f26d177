// Package telemetry defines best-effort domain events and the instruments recorded
// around verification calls and token issuance.
package telemetry

import (
	"context"
	"time"
)

// Event types.
const (
	EventVerificationCompleted = "verification.completed"
	EventTokenIssued           = "oauth.token_issued"
	EventConsentSubmitted      = "oauth.consent_submitted"
)

// Event is a domain event exported as an OTel log record.
type Event struct {
	Type       string
	Source     string
	Attributes map[string]string
	// Body is an optional JSON payload.
	Body      []byte
	CreatedAt time.Time
}

// EventEmitter emits telemetry events (e.g. to OTel Logs). Best-effort; callers log and ignore errors.
type EventEmitter interface {
	Emit(ctx context.Context, event *Event) error
}
