// Package service runs phone verification: it gates attempts, places the scripted call
// and folds every failure into a uniform outcome.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/lunchpaillola/docusign-voice/internal/policy/engine"
	"github.com/lunchpaillola/docusign-voice/internal/telemetry"
	"github.com/lunchpaillola/docusign-voice/internal/verification"
	"github.com/lunchpaillola/docusign-voice/internal/verification/domain"
)

// Failure reasons returned to the signing platform.
const (
	ReasonMissingPhone       = "Missing phone number"
	ReasonInvalidPhone       = "Invalid phone number format"
	ReasonRateLimited        = "Please wait before trying again"
	ReasonTimedOut           = "Verification call timed out"
	ReasonServiceErrorPrefix = "Verification service error: "
)

// ErrDialNotPermitted is matched by *DeniedError.
var ErrDialNotPermitted = errors.New("dial not permitted")

// DeniedError is returned when the dial policy refuses a number.
type DeniedError struct {
	Reason string
}

func (e *DeniedError) Error() string { return "dial not permitted: " + e.Reason }

// Is reports whether target is ErrDialNotPermitted.
func (e *DeniedError) Is(target error) bool { return target == ErrDialNotPermitted }

// Caller places a verification call. Implemented by *CallOrchestrator.
type Caller interface {
	VerifyByCall(ctx context.Context, phone, code string) (*domain.Outcome, error)
}

// Service is the verification use case behind POST /verifyPhone.
type Service struct {
	attempts      verification.AttemptStore
	caller        Caller
	policy        engine.Evaluator
	emitter       telemetry.EventEmitter
	metrics       *telemetry.Metrics
	logger        *slog.Logger
	defaultRegion string
	nowF          func() time.Time
}

// Option configures optional Service collaborators.
type Option func(*Service)

// WithDialPolicy checks every dialable number against policy before an attempt starts.
func WithDialPolicy(policy engine.Evaluator) Option {
	return func(s *Service) { s.policy = policy }
}

// WithTelemetry records outcome metrics and emits a completion event per request.
func WithTelemetry(emitter telemetry.EventEmitter, metrics *telemetry.Metrics) Option {
	return func(s *Service) {
		s.emitter = emitter
		s.metrics = metrics
	}
}

// WithDefaultRegion sets the calling code used when a request omits region.
func WithDefaultRegion(region string) Option {
	return func(s *Service) {
		if region != "" {
			s.defaultRegion = region
		}
	}
}

// NewService returns a verification service.
func NewService(attempts verification.AttemptStore, caller Caller, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		attempts:      attempts,
		caller:        caller,
		logger:        logger,
		defaultRegion: verification.DefaultRegion,
		nowF:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RequestAttempt validates rawPhone, applies the dial policy and the per-phone gate, then
// generates a code. A rate-limited request gets no code. On success the caller must
// release the attempt with Release on every exit path.
func (s *Service) RequestAttempt(ctx context.Context, rawPhone, region string) (*domain.Attempt, error) {
	if region == "" {
		region = s.defaultRegion
	}
	phone, err := verification.DialableNumber(rawPhone, region)
	if err != nil {
		return nil, err
	}
	if s.policy != nil {
		now := s.nowF().UTC()
		decision, err := s.policy.EvaluateDial(ctx, engine.DialInput{
			Phone:   phone,
			Region:  region,
			Hour:    now.Hour(),
			Weekday: now.Weekday().String(),
		})
		if err != nil {
			return nil, err
		}
		if !decision.Allowed {
			reason := decision.Reason
			if reason == "" {
				reason = engine.DefaultReason
			}
			return nil, &DeniedError{Reason: reason}
		}
	}
	attempt, err := s.attempts.TryStart(ctx, phone)
	if err != nil {
		return nil, err
	}
	code, err := verification.GenerateCode()
	if err != nil {
		s.Release(ctx, attempt)
		return nil, err
	}
	attempt.Code = code
	return attempt, nil
}

// Release frees the phone held by attempt. It ignores ctx cancellation.
func (s *Service) Release(ctx context.Context, attempt *domain.Attempt) {
	if err := s.attempts.Finish(context.WithoutCancel(ctx), attempt); err != nil {
		s.logger.Warn("verification: release attempt failed",
			slog.String("phone", verification.MaskPhone(attempt.Phone)), slog.String("error", err.Error()))
	}
}

// VerifyPhone runs one verification end to end. It never returns an error: every failure
// becomes a negative outcome with a reason.
func (s *Service) VerifyPhone(ctx context.Context, rawPhone, region string) *domain.Outcome {
	attempt, err := s.RequestAttempt(ctx, rawPhone, region)
	if err != nil {
		out := domain.Failed(reasonFor(err))
		s.finish(ctx, "", out, err)
		return out
	}
	defer s.Release(ctx, attempt)

	out, err := s.caller.VerifyByCall(ctx, attempt.Phone, attempt.Code)
	if err != nil {
		out = domain.Failed(reasonFor(err))
	}
	s.finish(ctx, attempt.Phone, out, err)
	return out
}

func reasonFor(err error) string {
	var denied *DeniedError
	switch {
	case errors.Is(err, verification.ErrInvalidPhoneFormat):
		return ReasonInvalidPhone
	case errors.Is(err, verification.ErrRateLimited):
		return ReasonRateLimited
	case errors.As(err, &denied):
		return denied.Reason
	case errors.Is(err, ErrCallTimedOut):
		return ReasonTimedOut
	default:
		return ReasonServiceErrorPrefix + err.Error()
	}
}

func resultFor(out *domain.Outcome, err error) string {
	switch {
	case err == nil && out.Verified:
		return telemetry.ResultVerified
	case err == nil:
		return telemetry.ResultNotVerified
	case errors.Is(err, verification.ErrRateLimited):
		return telemetry.ResultRateLimited
	case errors.Is(err, ErrDialNotPermitted):
		return telemetry.ResultDenied
	case errors.Is(err, ErrCallTimedOut):
		return telemetry.ResultTimedOut
	default:
		return telemetry.ResultError
	}
}

func (s *Service) finish(ctx context.Context, phone string, out *domain.Outcome, err error) {
	result := resultFor(out, err)
	s.metrics.RecordOutcome(ctx, result)

	attrs := []any{slog.String("result", result), slog.String("reason", out.Reason)}
	if phone != "" {
		attrs = append(attrs, slog.String("phone", verification.MaskPhone(phone)))
	}
	if out.CallID != "" {
		attrs = append(attrs, slog.String("call_id", out.CallID))
	}
	if err != nil && result == telemetry.ResultError {
		s.logger.Error("verification: failed", append(attrs, slog.String("error", err.Error()))...)
	} else {
		s.logger.Info("verification: completed", attrs...)
	}

	event := &telemetry.Event{
		Type:       telemetry.EventVerificationCompleted,
		Source:     "verification",
		Attributes: map[string]string{"result": result},
	}
	if phone != "" {
		event.Attributes["phone"] = verification.MaskPhone(phone)
	}
	if out.CallID != "" {
		event.Attributes["call_id"] = out.CallID
	}
	telemetry.EmitAsync(s.emitter, event)
}
