package telemetry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// mockEventEmitter implements EventEmitter for tests.
type mockEventEmitter struct {
	mu      sync.Mutex
	events  []*Event
	emitErr error
	done    chan struct{}
}

func (m *mockEventEmitter) Emit(ctx context.Context, event *Event) error {
	m.mu.Lock()
	m.events = append(m.events, event)
	m.mu.Unlock()
	if m.done != nil {
		m.done <- struct{}{}
	}
	return m.emitErr
}

func (m *mockEventEmitter) getEvents() []*Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.events
}

func TestEmitAsync_NilEmitterOrEvent(t *testing.T) {
	// Should not panic
	EmitAsync(nil, &Event{Type: "test"})
	m := &mockEventEmitter{}
	EmitAsync(m, nil)
	time.Sleep(10 * time.Millisecond)
	if len(m.getEvents()) != 0 {
		t.Error("nil event should not be emitted")
	}
}

func TestEmitAsync_Delivers(t *testing.T) {
	m := &mockEventEmitter{done: make(chan struct{}, 1), emitErr: errors.New("collector down")}
	EmitAsync(m, &Event{Type: EventTokenIssued})

	select {
	case <-m.done:
	case <-time.After(time.Second):
		t.Fatal("event not emitted")
	}
	events := m.getEvents()
	if len(events) != 1 || events[0].Type != EventTokenIssued {
		t.Fatalf("events = %+v", events)
	}
	if events[0].CreatedAt.IsZero() {
		t.Error("CreatedAt should be stamped")
	}
}

func TestShutdownDrainDuration(t *testing.T) {
	if ShutdownDrainDuration < emitTimeout {
		t.Errorf("ShutdownDrainDuration = %v, must be >= emitTimeout %v", ShutdownDrainDuration, emitTimeout)
	}
}
