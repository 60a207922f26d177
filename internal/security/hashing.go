package security

import (
	"crypto/subtle"

	"golang.org/x/crypto/bcrypt"
)

// Hasher hashes and verifies secrets using bcrypt. Callers must not log or
// persist plaintext secrets.
type Hasher struct {
	Cost int
}

// NewHasher returns a Hasher with the given bcrypt cost, clamped to 4–31.
func NewHasher(cost int) *Hasher {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost {
		cost = bcrypt.MinCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	return &Hasher{Cost: cost}
}

// Hash produces a bcrypt hash of secret.
func (h *Hasher) Hash(secret []byte) (string, error) {
	b, err := bcrypt.GenerateFromPassword(secret, h.Cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Compare returns nil if secret matches hash.
func (h *Hasher) Compare(hash string, secret []byte) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), secret)
}

// ClientAuthenticator checks HTTP Basic credentials against the single registered client.
type ClientAuthenticator struct {
	clientID   string
	secretHash string
	hasher     *Hasher
}

// NewClientAuthenticator hashes secret at construction, or uses secretHash when it is non-empty.
func NewClientAuthenticator(clientID, secret, secretHash string, hasher *Hasher) (*ClientAuthenticator, error) {
	if secretHash == "" {
		h, err := hasher.Hash([]byte(secret))
		if err != nil {
			return nil, err
		}
		secretHash = h
	}
	return &ClientAuthenticator{clientID: clientID, secretHash: secretHash, hasher: hasher}, nil
}

// Authenticate reports whether id and secret exactly match the registered client.
func (a *ClientAuthenticator) Authenticate(id, secret string) bool {
	if a == nil || id == "" || secret == "" {
		return false
	}
	idOK := subtle.ConstantTimeCompare([]byte(id), []byte(a.clientID)) == 1
	secretOK := a.hasher.Compare(a.secretHash, []byte(secret)) == nil
	return idOK && secretOK
}
