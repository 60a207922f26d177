package verification

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/lunchpaillola/docusign-voice/internal/verification/domain"
)

// ErrRateLimited is returned when a phone already has a live attempt.
var ErrRateLimited = errors.New("verification attempt already in progress for this phone")

// AttemptStore records verification attempts, at most one live attempt per phone.
type AttemptStore interface {
	// TryStart atomically records a new attempt for phone. Returns ErrRateLimited if an
	// earlier attempt for phone is still live.
	TryStart(ctx context.Context, phone string) (*domain.Attempt, error)
	// Finish releases attempt. It is a no-op when attempt no longer owns the phone's slot.
	Finish(ctx context.Context, attempt *domain.Attempt) error
}

// MemoryAttemptStore is an in-process AttemptStore.
//
// An attempt holds its phone until Finish releases it. An attempt that is never
// finished stops blocking once hold has elapsed, so a leaked attempt cannot lock a
// phone forever. hold must cover the longest a verification can run.
type MemoryAttemptStore struct {
	mu   sync.Mutex
	m    map[string]time.Time
	hold time.Duration
	nowF func() time.Time
}

// NewMemoryAttemptStore returns an empty store. hold is raised to cooldown when shorter,
// so a second request within cooldown of a live attempt is always rejected.
func NewMemoryAttemptStore(cooldown, hold time.Duration) *MemoryAttemptStore {
	if hold < cooldown {
		hold = cooldown
	}
	return &MemoryAttemptStore{
		m:    make(map[string]time.Time),
		hold: hold,
		nowF: func() time.Time { return time.Now().UTC() },
	}
}

// TryStart records an attempt unless one is still live.
func (s *MemoryAttemptStore) TryStart(ctx context.Context, phone string) (*domain.Attempt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	now := s.nowF()
	s.mu.Lock()
	defer s.mu.Unlock()
	if createdAt, ok := s.m[phone]; ok && s.blocking(createdAt, now) {
		return nil, ErrRateLimited
	}
	s.m[phone] = now
	return &domain.Attempt{Phone: phone, CreatedAt: now}, nil
}

// Finish deletes the entry for attempt.Phone if attempt still owns it. A stale attempt
// whose slot was taken over after hold leaves the newer attempt in place.
func (s *MemoryAttemptStore) Finish(ctx context.Context, attempt *domain.Attempt) error {
	if attempt == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if createdAt, ok := s.m[attempt.Phone]; ok && createdAt.Equal(attempt.CreatedAt) {
		delete(s.m, attempt.Phone)
	}
	return nil
}

// Prune drops leaked entries older than hold and returns how many were removed.
func (s *MemoryAttemptStore) Prune() int {
	now := s.nowF()
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for phone, createdAt := range s.m {
		if !s.blocking(createdAt, now) {
			delete(s.m, phone)
			n++
		}
	}
	return n
}

// Live returns the number of attempts still holding a phone.
func (s *MemoryAttemptStore) Live() int {
	now := s.nowF()
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, createdAt := range s.m {
		if s.blocking(createdAt, now) {
			n++
		}
	}
	return n
}

func (s *MemoryAttemptStore) blocking(createdAt, now time.Time) bool {
	return now.Sub(createdAt) < s.hold
}
