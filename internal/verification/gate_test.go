package verification

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/lunchpaillola/docusign-voice/internal/verification/domain"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestStore(cooldown, hold time.Duration) (*MemoryAttemptStore, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	s := NewMemoryAttemptStore(cooldown, hold)
	s.nowF = clock.Now
	return s, clock
}

func TestMemoryAttemptStore_FinishFreesSlotImmediately(t *testing.T) {
	ctx := context.Background()
	s, clock := newTestStore(30*time.Second, 5*time.Minute)

	a, err := s.TryStart(ctx, "+15551234567")
	if err != nil {
		t.Fatalf("first TryStart: %v", err)
	}
	clock.Advance(time.Second)
	if _, err := s.TryStart(ctx, "+15551234567"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("TryStart while live err = %v, want ErrRateLimited", err)
	}
	// A call that fails fast releases the phone at once.
	if err := s.Finish(ctx, a); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if _, err := s.TryStart(ctx, "+15551234567"); err != nil {
		t.Fatalf("TryStart right after a finished attempt: %v", err)
	}
}

func TestMemoryAttemptStore_LiveAttemptBlocksUntilFinish(t *testing.T) {
	ctx := context.Background()
	s, clock := newTestStore(30*time.Second, 5*time.Minute)

	a, err := s.TryStart(ctx, "+15550000000")
	if err != nil {
		t.Fatalf("TryStart: %v", err)
	}
	clock.Advance(2 * time.Minute)
	if _, err := s.TryStart(ctx, "+15550000000"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("live attempt should block, err = %v", err)
	}
	_ = s.Finish(ctx, a)
	if _, err := s.TryStart(ctx, "+15550000000"); err != nil {
		t.Fatalf("TryStart after finish: %v", err)
	}
}

func TestMemoryAttemptStore_LeakedAttemptExpiresAfterHold(t *testing.T) {
	ctx := context.Background()
	s, clock := newTestStore(30*time.Second, time.Minute)

	if _, err := s.TryStart(ctx, "+15550000001"); err != nil {
		t.Fatalf("TryStart: %v", err)
	}
	clock.Advance(61 * time.Second)
	if s.Live() != 0 {
		t.Errorf("Live = %d after hold, want 0", s.Live())
	}
	if _, err := s.TryStart(ctx, "+15550000001"); err != nil {
		t.Fatalf("TryStart after hold: %v", err)
	}
}

func TestMemoryAttemptStore_StaleFinishKeepsNewerAttempt(t *testing.T) {
	ctx := context.Background()
	s, clock := newTestStore(30*time.Second, time.Minute)
	const phone = "+15550000002"

	stale, err := s.TryStart(ctx, phone)
	if err != nil {
		t.Fatalf("TryStart stale: %v", err)
	}
	clock.Advance(61 * time.Second)
	if _, err := s.TryStart(ctx, phone); err != nil {
		t.Fatalf("TryStart after hold: %v", err)
	}

	// The leaked attempt finishing late must not release the newer one.
	_ = s.Finish(ctx, stale)
	clock.Advance(31 * time.Second)
	if _, err := s.TryStart(ctx, phone); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("third TryStart err = %v, want ErrRateLimited while second is live", err)
	}
	if s.Live() != 1 {
		t.Errorf("Live = %d, want 1", s.Live())
	}
}

func TestMemoryAttemptStore_HoldAtLeastCooldown(t *testing.T) {
	ctx := context.Background()
	s, clock := newTestStore(30*time.Second, 10*time.Second)
	if _, err := s.TryStart(ctx, "+15550000003"); err != nil {
		t.Fatal(err)
	}
	clock.Advance(20 * time.Second)
	if _, err := s.TryStart(ctx, "+15550000003"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("TryStart within cooldown err = %v, want ErrRateLimited", err)
	}
}

func TestMemoryAttemptStore_DifferentPhonesIndependent(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(30*time.Second, time.Minute)
	if _, err := s.TryStart(ctx, "+1111"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.TryStart(ctx, "+2222"); err != nil {
		t.Fatalf("other phone should not be blocked: %v", err)
	}
	if s.Live() != 2 {
		t.Errorf("Live = %d, want 2", s.Live())
	}
}

func TestMemoryAttemptStore_ConcurrentSingleWinner(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(30*time.Second, time.Minute)

	const n = 64
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.TryStart(ctx, "+15559999999"); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if wins != 1 {
		t.Errorf("wins = %d, want exactly 1", wins)
	}
}

func TestMemoryAttemptStore_Prune(t *testing.T) {
	ctx := context.Background()
	s, clock := newTestStore(30*time.Second, time.Minute)
	_, _ = s.TryStart(ctx, "+1")
	clock.Advance(31 * time.Second)
	_, _ = s.TryStart(ctx, "+2")

	clock.Advance(30 * time.Second)
	if n := s.Prune(); n != 1 {
		t.Errorf("Prune removed %d, want 1 (leaked entry past hold)", n)
	}
	if s.Live() != 1 {
		t.Errorf("Live = %d, want 1", s.Live())
	}
}

func TestMemoryAttemptStore_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s, _ := newTestStore(time.Second, time.Second)
	if _, err := s.TryStart(ctx, "+1"); !errors.Is(err, context.Canceled) {
		t.Errorf("TryStart err = %v, want context.Canceled", err)
	}
}

func TestMemoryAttemptStore_FinishUnknownIsNoop(t *testing.T) {
	s, _ := newTestStore(time.Second, time.Second)
	ctx := context.Background()
	if err := s.Finish(ctx, &domain.Attempt{Phone: "+404"}); err != nil {
		t.Errorf("Finish unknown: %v", err)
	}
	if err := s.Finish(ctx, nil); err != nil {
		t.Errorf("Finish nil: %v", err)
	}
}
