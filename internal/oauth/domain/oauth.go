// Package domain holds the OAuth authorization state and issued-token records.
package domain

import "time"

// Grant types accepted by the token endpoint.
const (
	GrantAuthorizationCode = "authorization_code"
	GrantRefreshToken      = "refresh_token"
)

// StateRecord correlates an authorization request with the consent pages and the token exchange.
type StateRecord struct {
	State         string
	RedirectURI   string
	UpstreamState string // state the client sent to /authorize; may be empty
	CreatedAt     time.Time
	ExpiresAt     time.Time
	ConsumedAt    *time.Time // nil until consent is submitted in single-use mode
}

// Expired reports whether the record is no longer usable at now.
func (s *StateRecord) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// ReturnState is the state echoed to the client: its own when it sent one, else ours.
func (s *StateRecord) ReturnState() string {
	if s.UpstreamState != "" {
		return s.UpstreamState
	}
	return s.State
}

// TokenRecord is an issued access token. Only a SHA-256 hash of the token is kept.
type TokenRecord struct {
	ID              string // jti
	Subject         string
	GrantType       string
	AccessTokenHash string
	ExpiresAt       time.Time
	CreatedAt       time.Time
}

// TokenPair is the token endpoint response body.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
}
