package security

import "time"

// TestSigningSecret signs tokens from NewTestTokenProvider. For unit tests only.
const TestSigningSecret = "test-signing-secret"

// NewTestTokenProvider returns a TokenProvider with a fixed secret and a 1h access TTL.
// For unit tests only. Callers must not use in production.
func NewTestTokenProvider() *TokenProvider {
	return NewTokenProvider(TestSigningSecret, time.Hour)
}
