package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/lunchpaillola/docusign-voice/internal/voice"
)

// fakeVoice implements VoiceProvider. GetCall returns polls[i] on the i-th poll and
// repeats the last entry once exhausted.
type fakeVoice struct {
	mu           sync.Mutex
	assistantErr error
	// callDelay stalls CreateCall until it passes or ctx is done.
	callDelay    time.Duration
	callErr      error
	initial      *voice.Call
	polls        []*voice.Call
	pollErr      error
	pollCount    int
	assistants   []*voice.Assistant
	calls        []*voice.CallRequest
}

func (f *fakeVoice) CreateAssistant(ctx context.Context, a *voice.Assistant) (*voice.AssistantRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.assistants = append(f.assistants, a)
	if f.assistantErr != nil {
		return nil, f.assistantErr
	}
	return &voice.AssistantRef{ID: "asst-1", Name: a.Name}, nil
}

func (f *fakeVoice) CreateCall(ctx context.Context, req *voice.CallRequest) (*voice.Call, error) {
	if f.callDelay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(f.callDelay):
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	if f.callErr != nil {
		return nil, f.callErr
	}
	if f.initial != nil {
		return f.initial, nil
	}
	return &voice.Call{ID: "call-1", Status: voice.StatusQueued}, nil
}

func (f *fakeVoice) GetCall(ctx context.Context, id string) (*voice.Call, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pollCount++
	if f.pollErr != nil {
		return nil, f.pollErr
	}
	if len(f.polls) == 0 {
		return &voice.Call{ID: id, Status: voice.StatusInProgress}, nil
	}
	i := f.pollCount - 1
	if i >= len(f.polls) {
		i = len(f.polls) - 1
	}
	return f.polls[i], nil
}

func (f *fakeVoice) assistantCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.assistants)
}

func endedCall(summary string, msgs ...voice.Message) *voice.Call {
	c := &voice.Call{ID: "call-1", Status: voice.StatusEnded, EndedReason: "assistant-ended-call", Messages: msgs}
	if summary != "" {
		c.Analysis = &voice.Analysis{Summary: json.RawMessage(summary)}
	}
	return c
}
