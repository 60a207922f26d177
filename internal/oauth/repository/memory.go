package repository

import (
	"context"
	"sync"
	"time"

	"github.com/lunchpaillola/docusign-voice/internal/oauth/domain"
)

// MemoryStateRepository is an in-process StateRepository for development and tests.
type MemoryStateRepository struct {
	mu sync.Mutex
	m  map[string]domain.StateRecord
}

// NewMemoryStateRepository returns an empty repository.
func NewMemoryStateRepository() *MemoryStateRepository {
	return &MemoryStateRepository{m: make(map[string]domain.StateRecord)}
}

func (r *MemoryStateRepository) Put(ctx context.Context, rec *domain.StateRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *rec
	cp.ConsumedAt = nil
	r.m[rec.State] = cp
	return nil
}

func (r *MemoryStateRepository) GetByState(ctx context.Context, state string) (*domain.StateRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.m[state]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (r *MemoryStateRepository) Consume(ctx context.Context, state string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.m[state]
	if !ok || rec.ConsumedAt != nil {
		return false, nil
	}
	at = at.UTC()
	rec.ConsumedAt = &at
	r.m[state] = rec
	return true, nil
}

func (r *MemoryStateRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for k, rec := range r.m {
		if rec.Expired(now) {
			delete(r.m, k)
			n++
		}
	}
	return n, nil
}

func (r *MemoryStateRepository) Ping(ctx context.Context) error { return nil }

// MemoryTokenRepository is an in-process TokenRepository.
type MemoryTokenRepository struct {
	mu sync.Mutex
	m  map[string]domain.TokenRecord
}

// NewMemoryTokenRepository returns an empty repository.
func NewMemoryTokenRepository() *MemoryTokenRepository {
	return &MemoryTokenRepository{m: make(map[string]domain.TokenRecord)}
}

func (r *MemoryTokenRepository) Create(ctx context.Context, rec *domain.TokenRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m[rec.ID] = *rec
	return nil
}

func (r *MemoryTokenRepository) GetByID(ctx context.Context, id string) (*domain.TokenRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.m[id]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (r *MemoryTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for k, rec := range r.m {
		if !now.Before(rec.ExpiresAt) {
			delete(r.m, k)
			n++
		}
	}
	return n, nil
}
