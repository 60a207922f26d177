package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Outcome labels for verification metrics.
const (
	ResultVerified    = "verified"
	ResultNotVerified = "not_verified"
	ResultRateLimited = "rate_limited"
	ResultDenied      = "denied"
	ResultTimedOut    = "timed_out"
	ResultError       = "error"
)

// Metrics holds the instruments recorded by the verification and OAuth services.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	outcomes     metric.Int64Counter
	callDuration metric.Float64Histogram
	tokens       metric.Int64Counter
}

// NewMetrics creates instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	outcomes, err := meter.Int64Counter("verification.outcomes",
		metric.WithDescription("Verification requests by result"))
	if err != nil {
		return nil, err
	}
	callDuration, err := meter.Float64Histogram("verification.call.duration",
		metric.WithDescription("Time from call creation to terminal status"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}
	tokens, err := meter.Int64Counter("oauth.tokens.issued",
		metric.WithDescription("Access tokens issued by grant type"))
	if err != nil {
		return nil, err
	}
	return &Metrics{outcomes: outcomes, callDuration: callDuration, tokens: tokens}, nil
}

// RecordOutcome counts one verification result.
func (m *Metrics) RecordOutcome(ctx context.Context, result string) {
	if m == nil {
		return
	}
	m.outcomes.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

// RecordCallDuration records how long a placed call took to reach a verdict.
func (m *Metrics) RecordCallDuration(ctx context.Context, d time.Duration, endedReason string) {
	if m == nil {
		return
	}
	m.callDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("ended_reason", endedReason)))
}

// RecordTokenIssued counts one access token.
func (m *Metrics) RecordTokenIssued(ctx context.Context, grantType string) {
	if m == nil {
		return
	}
	m.tokens.Add(ctx, 1, metric.WithAttributes(attribute.String("grant_type", grantType)))
}
