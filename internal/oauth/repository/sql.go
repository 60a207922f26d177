package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lunchpaillola/docusign-voice/internal/db"
	"github.com/lunchpaillola/docusign-voice/internal/oauth/domain"
)

// SQLStateRepository stores state records in Postgres or SQLite.
type SQLStateRepository struct {
	db      *sql.DB
	dialect db.Dialect
}

// NewSQLStateRepository returns a state repository over conn.
func NewSQLStateRepository(conn *sql.DB, dialect db.Dialect) *SQLStateRepository {
	return &SQLStateRepository{db: conn, dialect: dialect}
}

// Put upserts rec.
func (r *SQLStateRepository) Put(ctx context.Context, rec *domain.StateRecord) error {
	_, err := r.db.ExecContext(ctx, r.dialect.Rebind(`
		INSERT INTO oauth_states (state, redirect_uri, upstream_state, created_at, expires_at, consumed_at)
		VALUES (?, ?, ?, ?, ?, NULL)
		ON CONFLICT (state) DO UPDATE SET
			redirect_uri = excluded.redirect_uri,
			upstream_state = excluded.upstream_state,
			created_at = excluded.created_at,
			expires_at = excluded.expires_at,
			consumed_at = NULL`),
		rec.State, rec.RedirectURI, rec.UpstreamState, dbTime(rec.CreatedAt), dbTime(rec.ExpiresAt))
	return err
}

// GetByState returns the record for state, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *SQLStateRepository) GetByState(ctx context.Context, state string) (*domain.StateRecord, error) {
	row := r.db.QueryRowContext(ctx, r.dialect.Rebind(`
		SELECT state, redirect_uri, upstream_state, created_at, expires_at, consumed_at
		FROM oauth_states WHERE state = ?`), state)
	var (
		rec      domain.StateRecord
		consumed sql.NullTime
	)
	if err := row.Scan(&rec.State, &rec.RedirectURI, &rec.UpstreamState, &rec.CreatedAt, &rec.ExpiresAt, &consumed); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	rec.ExpiresAt = rec.ExpiresAt.UTC()
	rec.ConsumedAt = nullTimeToPtr(consumed)
	return &rec, nil
}

// Consume sets consumed_at only if it is still NULL, so exactly one caller wins.
func (r *SQLStateRepository) Consume(ctx context.Context, state string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, r.dialect.Rebind(
		`UPDATE oauth_states SET consumed_at = ? WHERE state = ? AND consumed_at IS NULL`),
		dbTime(at), state)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// DeleteExpired removes expired state records.
func (r *SQLStateRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, r.dialect.Rebind(`DELETE FROM oauth_states WHERE expires_at <= ?`), dbTime(now))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Ping checks the underlying connection.
func (r *SQLStateRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// SQLTokenRepository stores issued token records in Postgres or SQLite.
type SQLTokenRepository struct {
	db      *sql.DB
	dialect db.Dialect
}

// NewSQLTokenRepository returns a token repository over conn.
func NewSQLTokenRepository(conn *sql.DB, dialect db.Dialect) *SQLTokenRepository {
	return &SQLTokenRepository{db: conn, dialect: dialect}
}

// Create persists rec. rec.ID must be set.
func (r *SQLTokenRepository) Create(ctx context.Context, rec *domain.TokenRecord) error {
	_, err := r.db.ExecContext(ctx, r.dialect.Rebind(`
		INSERT INTO oauth_tokens (id, subject, grant_type, access_token_hash, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`),
		rec.ID, rec.Subject, rec.GrantType, rec.AccessTokenHash, dbTime(rec.ExpiresAt), dbTime(rec.CreatedAt))
	return err
}

// GetByID returns the token record for id, or nil if not found.
func (r *SQLTokenRepository) GetByID(ctx context.Context, id string) (*domain.TokenRecord, error) {
	row := r.db.QueryRowContext(ctx, r.dialect.Rebind(`
		SELECT id, subject, grant_type, access_token_hash, expires_at, created_at
		FROM oauth_tokens WHERE id = ?`), id)
	var rec domain.TokenRecord
	if err := row.Scan(&rec.ID, &rec.Subject, &rec.GrantType, &rec.AccessTokenHash, &rec.ExpiresAt, &rec.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	rec.ExpiresAt = rec.ExpiresAt.UTC()
	rec.CreatedAt = rec.CreatedAt.UTC()
	return &rec, nil
}

// DeleteExpired removes expired token records.
func (r *SQLTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, r.dialect.Rebind(`DELETE FROM oauth_tokens WHERE expires_at <= ?`), dbTime(now))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// dbTime normalizes t so SQLite's text timestamps compare in time order.
func dbTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

func nullTimeToPtr(n sql.NullTime) *time.Time {
	if !n.Valid {
		return nil
	}
	t := n.Time.UTC()
	return &t
}
