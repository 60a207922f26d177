package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lunchpaillola/docusign-voice/internal/telemetry"
	"github.com/lunchpaillola/docusign-voice/internal/verification"
	"github.com/lunchpaillola/docusign-voice/internal/verification/domain"
	"github.com/lunchpaillola/docusign-voice/internal/voice"
)

var (
	// ErrCallInitiationFailed is returned when the provider rejects assistant or call creation.
	ErrCallInitiationFailed = errors.New("call initiation failed")
	// ErrCallTimedOut is returned when the call does not end before the orchestrator deadline.
	ErrCallTimedOut = errors.New("verification call timed out")
	// ErrCallStatusFailed is returned when polling the call status fails.
	ErrCallStatusFailed = errors.New("call status check failed")
)

// VoiceProvider is the subset of the voice client the orchestrator uses.
type VoiceProvider interface {
	CreateAssistant(ctx context.Context, a *voice.Assistant) (*voice.AssistantRef, error)
	CreateCall(ctx context.Context, req *voice.CallRequest) (*voice.Call, error)
	GetCall(ctx context.Context, id string) (*voice.Call, error)
}

// OrchestratorConfig holds call placement and polling settings.
type OrchestratorConfig struct {
	// PhoneNumberID is the provider number calls are placed from.
	PhoneNumberID string
	PollInterval  time.Duration
	// CallDeadline bounds the whole attempt: assistant creation, call placement and polling.
	// It should exceed the provider's max call duration.
	CallDeadline time.Duration
	Script       ScriptConfig
}

// CallOrchestrator places a scripted verification call and waits for its verdict.
type CallOrchestrator struct {
	voice   VoiceProvider
	cfg     OrchestratorConfig
	metrics *telemetry.Metrics
	logger  *slog.Logger
}

// NewCallOrchestrator returns an orchestrator. Zero intervals fall back to 2s polling and a 330s deadline.
func NewCallOrchestrator(v VoiceProvider, cfg OrchestratorConfig, metrics *telemetry.Metrics, logger *slog.Logger) *CallOrchestrator {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.CallDeadline <= 0 {
		cfg.CallDeadline = 330 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CallOrchestrator{voice: v, cfg: cfg, metrics: metrics, logger: logger}
}

// VerifyByCall calls phone, reads code to the callee and returns the verdict with the full transcript.
// It returns within CallDeadline; running out of time yields ErrCallTimedOut.
func (o *CallOrchestrator) VerifyByCall(ctx context.Context, phone, code string) (*domain.Outcome, error) {
	callCtx, cancel := context.WithTimeout(ctx, o.cfg.CallDeadline)
	defer cancel()

	ref, err := o.voice.CreateAssistant(callCtx, BuildAssistant(o.cfg.Script, code))
	if err != nil {
		if callCtx.Err() != nil {
			return nil, o.doneErr(ctx)
		}
		return nil, fmt.Errorf("%w: create assistant: %w", ErrCallInitiationFailed, err)
	}
	call, err := o.voice.CreateCall(callCtx, &voice.CallRequest{
		AssistantID:   ref.ID,
		PhoneNumberID: o.cfg.PhoneNumberID,
		Customer:      voice.Customer{Number: phone},
	})
	if err != nil {
		if callCtx.Err() != nil {
			return nil, o.doneErr(ctx)
		}
		return nil, fmt.Errorf("%w: create call: %w", ErrCallInitiationFailed, err)
	}
	started := time.Now()
	log := o.logger.With(slog.String("call_id", call.ID), slog.String("phone", verification.MaskPhone(phone)))
	log.Info("verification: call placed")

	final, err := o.awaitEnd(ctx, callCtx, call)
	if err != nil {
		log.Warn("verification: call did not complete", slog.String("error", err.Error()))
		return nil, err
	}
	o.metrics.RecordCallDuration(ctx, time.Since(started), final.EndedReason)

	verified, reason, verr := domain.ParseSummary(final.Summary()).Verdict()
	if verr != nil {
		log.Warn("verification: unreadable call analysis", slog.String("error", verr.Error()))
	}
	log.Info("verification: call ended",
		slog.String("ended_reason", final.EndedReason),
		slog.Bool("verified", verified))

	return &domain.Outcome{
		Verified:   verified,
		Reason:     reason,
		Transcript: transcript(final.Messages),
		CallID:     final.ID,
	}, nil
}

// awaitEnd polls until the call ends or pollCtx is done. parent is the caller's context.
func (o *CallOrchestrator) awaitEnd(parent, pollCtx context.Context, call *voice.Call) (*voice.Call, error) {
	if call.Ended() {
		return call, nil
	}
	ticker := time.NewTicker(o.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-pollCtx.Done():
			return nil, o.doneErr(parent)
		case <-ticker.C:
		}
		current, err := o.voice.GetCall(pollCtx, call.ID)
		if err != nil {
			if pollCtx.Err() != nil {
				return nil, o.doneErr(parent)
			}
			return nil, fmt.Errorf("%w: %w", ErrCallStatusFailed, err)
		}
		if current.Ended() {
			return current, nil
		}
	}
}

// doneErr distinguishes caller cancellation from the orchestrator's own deadline.
func (o *CallOrchestrator) doneErr(parent context.Context) error {
	if err := parent.Err(); err != nil {
		return err
	}
	return ErrCallTimedOut
}

func transcript(msgs []voice.Message) []domain.Utterance {
	out := make([]domain.Utterance, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, domain.Utterance{Role: m.Role, Content: m.Text()})
	}
	return out
}
