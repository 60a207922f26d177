// Package repository persists OAuth state and token records.
package repository

import (
	"context"
	"time"

	"github.com/lunchpaillola/docusign-voice/internal/oauth/domain"
)

// StateRepository persists authorization state records keyed by state.
type StateRepository interface {
	// Put inserts rec or replaces the record with the same state, clearing ConsumedAt.
	Put(ctx context.Context, rec *domain.StateRecord) error
	// GetByState returns the record for state, or nil if not found.
	GetByState(ctx context.Context, state string) (*domain.StateRecord, error)
	// Consume marks the record consumed at. Returns false if it is missing or already consumed.
	Consume(ctx context.Context, state string, at time.Time) (bool, error)
	// DeleteExpired removes records that expired at or before now and returns how many.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
	Ping(ctx context.Context) error
}

// TokenRepository persists issued access token records.
type TokenRepository interface {
	Create(ctx context.Context, rec *domain.TokenRecord) error
	// GetByID returns the record for id, or nil if not found.
	GetByID(ctx context.Context, id string) (*domain.TokenRecord, error)
	// DeleteExpired removes token records that expired at or before now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
