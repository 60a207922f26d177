// Package service implements the single-client OAuth2 authorization-code provider.
package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/lunchpaillola/docusign-voice/internal/oauth/domain"
	"github.com/lunchpaillola/docusign-voice/internal/oauth/repository"
	"github.com/lunchpaillola/docusign-voice/internal/security"
	"github.com/lunchpaillola/docusign-voice/internal/telemetry"
)

// Sentinel errors for the OAuth service; the handler maps them to OAuth error responses.
var (
	ErrMissingParameter         = errors.New("missing required parameter")
	ErrInvalidRedirectURI       = errors.New("redirect_uri must be an absolute http(s) URL")
	ErrInvalidState             = errors.New("invalid state")
	ErrInvalidClientCredentials = errors.New("invalid client credentials")
	ErrInvalidGrant             = errors.New("invalid grant")
	ErrUnsupportedGrantType     = errors.New("unsupported grant type")
)

// Config holds provider settings.
type Config struct {
	// AuthorizationCode is the configured code the token endpoint accepts. It also keys
	// the state record, since the consent pages hand it back as the code.
	AuthorizationCode string
	// StateTTL is how long an authorization state stays usable. Defaults to 1h.
	StateTTL time.Duration
	// SingleUse consumes the state on consent submission so a replay fails.
	SingleUse bool
}

// Consent is what the consent prompt renders.
type Consent struct {
	RedirectURI string
	Code        string
	State       string
}

// TokenRequest is a parsed token endpoint request.
type TokenRequest struct {
	GrantType    string
	Code         string
	RefreshToken string
	ClientID     string
	ClientSecret string
}

// OAuthService drives the authorize, consent and token exchange flow.
type OAuthService struct {
	states  repository.StateRepository
	tokens  repository.TokenRepository
	clients *security.ClientAuthenticator
	issuer  *security.TokenProvider
	cfg     Config
	emitter telemetry.EventEmitter
	metrics *telemetry.Metrics
	logger  *slog.Logger
	nowF    func() time.Time
}

// NewOAuthService returns an OAuthService. tokens may be nil, in which case issued tokens
// are not recorded. emitter and metrics may be nil.
func NewOAuthService(
	states repository.StateRepository,
	tokens repository.TokenRepository,
	clients *security.ClientAuthenticator,
	issuer *security.TokenProvider,
	cfg Config,
	emitter telemetry.EventEmitter,
	metrics *telemetry.Metrics,
	logger *slog.Logger,
) *OAuthService {
	if cfg.StateTTL <= 0 {
		cfg.StateTTL = time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &OAuthService{
		states:  states,
		tokens:  tokens,
		clients: clients,
		issuer:  issuer,
		cfg:     cfg,
		emitter: emitter,
		metrics: metrics,
		logger:  logger,
		nowF:    time.Now,
	}
}

// Authorize records the pending authorization and returns what the consent prompt shows.
// The state record is keyed by the configured authorization code and replaced on each call.
func (s *OAuthService) Authorize(ctx context.Context, redirectURI, upstreamState string) (*Consent, error) {
	redirectURI = strings.TrimSpace(redirectURI)
	if redirectURI == "" {
		return nil, fmt.Errorf("%w: redirect_uri", ErrMissingParameter)
	}
	if !validRedirectURI(redirectURI) {
		return nil, ErrInvalidRedirectURI
	}
	now := s.nowF().UTC()
	rec := &domain.StateRecord{
		State:         s.cfg.AuthorizationCode,
		RedirectURI:   redirectURI,
		UpstreamState: upstreamState,
		CreatedAt:     now,
		ExpiresAt:     now.Add(s.cfg.StateTTL),
	}
	if err := s.states.Put(ctx, rec); err != nil {
		return nil, fmt.Errorf("store state: %w", err)
	}
	return &Consent{RedirectURI: redirectURI, Code: s.cfg.AuthorizationCode, State: upstreamState}, nil
}

// ConsentPage checks that state refers to a live authorization before the form is shown.
func (s *OAuthService) ConsentPage(ctx context.Context, state string) (*domain.StateRecord, error) {
	if state == "" {
		return nil, fmt.Errorf("%w: state", ErrMissingParameter)
	}
	return s.lookup(ctx, state)
}

// SubmitConsent completes the consent step and returns the client redirect URL carrying
// code=<state> and the client's own state.
func (s *OAuthService) SubmitConsent(ctx context.Context, state string) (string, error) {
	if state == "" {
		return "", fmt.Errorf("%w: state", ErrMissingParameter)
	}
	rec, err := s.lookup(ctx, state)
	if err != nil {
		return "", err
	}
	if s.cfg.SingleUse {
		ok, err := s.states.Consume(ctx, state, s.nowF().UTC())
		if err != nil {
			return "", fmt.Errorf("consume state: %w", err)
		}
		if !ok {
			return "", ErrInvalidState
		}
	}
	target, err := callbackURL(rec.RedirectURI, rec.State, rec.ReturnState())
	if err != nil {
		return "", err
	}
	telemetry.EmitAsync(s.emitter, &telemetry.Event{
		Type:       telemetry.EventConsentSubmitted,
		Source:     "oauth",
		Attributes: map[string]string{"redirect_host": hostOf(rec.RedirectURI)},
	})
	return target, nil
}

// Token authenticates the client and runs the requested grant.
func (s *OAuthService) Token(ctx context.Context, req TokenRequest) (*domain.TokenPair, error) {
	if !s.clients.Authenticate(req.ClientID, req.ClientSecret) {
		return nil, ErrInvalidClientCredentials
	}
	switch req.GrantType {
	case "":
		return nil, fmt.Errorf("%w: grant_type", ErrMissingParameter)
	case domain.GrantAuthorizationCode:
		if req.Code == "" {
			return nil, fmt.Errorf("%w: code", ErrMissingParameter)
		}
		if subtle.ConstantTimeCompare([]byte(req.Code), []byte(s.cfg.AuthorizationCode)) != 1 {
			return nil, ErrInvalidGrant
		}
		refresh, err := s.issuer.IssueRefresh()
		if err != nil {
			return nil, fmt.Errorf("issue refresh token: %w", err)
		}
		return s.issue(ctx, domain.GrantAuthorizationCode, refresh)
	case domain.GrantRefreshToken:
		if req.RefreshToken == "" {
			return nil, fmt.Errorf("%w: refresh_token", ErrMissingParameter)
		}
		if err := s.issuer.ValidateRefresh(req.RefreshToken); err != nil {
			return nil, ErrInvalidGrant
		}
		return s.issue(ctx, domain.GrantRefreshToken, req.RefreshToken)
	default:
		return nil, ErrUnsupportedGrantType
	}
}

// issue mints an access token, records it, and pairs it with refresh.
func (s *OAuthService) issue(ctx context.Context, grantType, refresh string) (*domain.TokenPair, error) {
	access, err := s.issuer.IssueAccess()
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	if s.tokens != nil {
		rec := &domain.TokenRecord{
			ID:              access.JTI,
			Subject:         access.Subject,
			GrantType:       grantType,
			AccessTokenHash: security.HashToken(access.Token),
			ExpiresAt:       access.ExpiresAt,
			CreatedAt:       s.nowF().UTC(),
		}
		if err := s.tokens.Create(ctx, rec); err != nil {
			return nil, fmt.Errorf("record token: %w", err)
		}
	}
	s.metrics.RecordTokenIssued(ctx, grantType)
	telemetry.EmitAsync(s.emitter, &telemetry.Event{
		Type:       telemetry.EventTokenIssued,
		Source:     "oauth",
		Attributes: map[string]string{"grant_type": grantType, "jti": access.JTI},
	})
	s.logger.Info("oauth: token issued", slog.String("grant_type", grantType), slog.String("jti", access.JTI))
	return &domain.TokenPair{
		AccessToken:  access.Token,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.issuer.AccessTTL() / time.Second),
		RefreshToken: refresh,
	}, nil
}

// Callback checks a client-side callback against the stored state.
func (s *OAuthService) Callback(ctx context.Context, code, state string) error {
	if code == "" || state == "" {
		return fmt.Errorf("%w: code and state", ErrMissingParameter)
	}
	_, err := s.lookup(ctx, state)
	return err
}

// DebugState returns the stored record for state without expiry checks, or nil.
func (s *OAuthService) DebugState(ctx context.Context, state string) (*domain.StateRecord, error) {
	return s.states.GetByState(ctx, state)
}

// IsIssued reports whether rawToken is the unexpired access token recorded under tokenID.
// Without a token repository every validly signed token counts as issued.
func (s *OAuthService) IsIssued(ctx context.Context, tokenID, rawToken string) (bool, error) {
	if s.tokens == nil {
		return true, nil
	}
	rec, err := s.tokens.GetByID(ctx, tokenID)
	if err != nil {
		return false, err
	}
	if rec == nil || !s.nowF().Before(rec.ExpiresAt) {
		return false, nil
	}
	return security.TokenHashEqual(rawToken, rec.AccessTokenHash), nil
}

// PurgeExpired deletes expired state and token records.
func (s *OAuthService) PurgeExpired(ctx context.Context) (int64, error) {
	now := s.nowF().UTC()
	n, err := s.states.DeleteExpired(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("purge states: %w", err)
	}
	if s.tokens != nil {
		m, err := s.tokens.DeleteExpired(ctx, now)
		if err != nil {
			return n, fmt.Errorf("purge tokens: %w", err)
		}
		n += m
	}
	return n, nil
}

// PingContext checks the state store.
func (s *OAuthService) PingContext(ctx context.Context) error {
	return s.states.Ping(ctx)
}

// lookup returns the live record for state. Missing, expired and consumed records all
// fail with ErrInvalidState.
func (s *OAuthService) lookup(ctx context.Context, state string) (*domain.StateRecord, error) {
	rec, err := s.states.GetByState(ctx, state)
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}
	if rec == nil || rec.Expired(s.nowF().UTC()) {
		return nil, ErrInvalidState
	}
	if s.cfg.SingleUse && rec.ConsumedAt != nil {
		return nil, ErrInvalidState
	}
	return rec, nil
}

func validRedirectURI(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "https" || u.Scheme == "http") && u.Host != ""
}

// callbackURL sets code and state on redirectURI, keeping any query it already has.
func callbackURL(redirectURI, code, state string) (string, error) {
	u, err := url.Parse(redirectURI)
	if err != nil {
		return "", ErrInvalidRedirectURI
	}
	q := u.Query()
	q.Set("code", code)
	q.Set("state", state)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Host
}
