package security

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token type claim values.
const (
	TypeAccess  = "access_token"
	TypeRefresh = "refresh_token"
)

var (
	// ErrInvalidToken is returned when a token is malformed, badly signed, expired or of the wrong type.
	ErrInvalidToken = errors.New("invalid token")
)

// AccessClaims holds JWT claims for the access token.
type AccessClaims struct {
	jwt.RegisteredClaims
	Type  string `json:"type"`
	Email string `json:"email"`
}

// RefreshClaims carries only the type claim. Registered claims stay empty and are omitted on the wire.
type RefreshClaims struct {
	jwt.RegisteredClaims
	Type string `json:"type"`
}

// IssuedAccess describes a freshly signed access token.
type IssuedAccess struct {
	Token     string
	JTI       string
	Subject   string
	ExpiresAt time.Time
}

// TokenProvider issues and validates HS256 access and refresh tokens with a shared secret.
type TokenProvider struct {
	secret    []byte
	accessTTL time.Duration
	nowF      func() time.Time
}

// NewTokenProvider returns a TokenProvider that signs with secret. accessTTL <= 0 means 1h.
func NewTokenProvider(secret string, accessTTL time.Duration) *TokenProvider {
	if accessTTL <= 0 {
		accessTTL = time.Hour
	}
	return &TokenProvider{secret: []byte(secret), accessTTL: accessTTL, nowF: time.Now}
}

// AccessTTL returns the lifetime of issued access tokens.
func (p *TokenProvider) AccessTTL() time.Duration {
	return p.accessTTL
}

// IssueAccess mints an access token for a freshly generated subject with a synthetic email claim.
func (p *TokenProvider) IssueAccess() (*IssuedAccess, error) {
	jti, err := generateJTI()
	if err != nil {
		return nil, err
	}
	subject := uuid.New().String()
	now := p.nowF().UTC()
	expiresAt := now.Add(p.accessTTL)
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Type:  TypeAccess,
		Email: subject + "@test.com",
	}
	token, err := p.sign(claims)
	if err != nil {
		return nil, err
	}
	return &IssuedAccess{Token: token, JTI: jti, Subject: subject, ExpiresAt: expiresAt}, nil
}

// IssueRefresh mints a refresh token carrying only the type claim. It has no expiry.
func (p *TokenProvider) IssueRefresh() (string, error) {
	return p.sign(RefreshClaims{Type: TypeRefresh})
}

func (p *TokenProvider) sign(claims jwt.Claims) (string, error) {
	if len(p.secret) == 0 {
		return "", ErrInvalidToken
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
}

func (p *TokenProvider) keyFunc(*jwt.Token) (interface{}, error) {
	return p.secret, nil
}

// ValidateRefresh verifies the signature and type claim of a refresh token.
func (p *TokenProvider) ValidateRefresh(tokenString string) error {
	claims := &RefreshClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, p.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(p.nowF))
	if err != nil || !token.Valid {
		return ErrInvalidToken
	}
	if claims.Type != TypeRefresh {
		return ErrInvalidToken
	}
	return nil
}

// ValidateAccess verifies signature, expiry and type of an access token and returns its claims.
func (p *TokenProvider) ValidateAccess(tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, p.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(p.nowF))
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Type != TypeAccess {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func generateJTI() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
