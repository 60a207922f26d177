package security

import (
	"testing"
)

func TestHasher_HashAndCompare(t *testing.T) {
	h := NewHasher(4)
	secret := []byte("secret123")
	hash, err := h.Hash(secret)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if err := h.Compare(hash, secret); err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if err := h.Compare(hash, []byte("wrong")); err == nil {
		t.Fatal("Compare with wrong secret should fail")
	}
}

func TestHasher_Cost(t *testing.T) {
	if h := NewHasher(12); h.Cost != 12 {
		t.Errorf("Cost want 12, got %d", h.Cost)
	}
	if h := NewHasher(0); h.Cost < 4 {
		t.Errorf("zero cost should be clamped to at least MinCost, got %d", h.Cost)
	}
	if h := NewHasher(99); h.Cost != 31 {
		t.Errorf("cost 99 should clamp to 31, got %d", h.Cost)
	}
}

func TestClientAuthenticator(t *testing.T) {
	h := NewHasher(4)
	a, err := NewClientAuthenticator("client", "s3cret", "", h)
	if err != nil {
		t.Fatalf("NewClientAuthenticator: %v", err)
	}
	testCases := []struct {
		name   string
		id     string
		secret string
		want   bool
	}{
		{"exact", "client", "s3cret", true},
		{"wrong secret", "client", "s3cret2", false},
		{"wrong id", "Client", "s3cret", false},
		{"empty id", "", "s3cret", false},
		{"empty secret", "client", "", false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := a.Authenticate(tc.id, tc.secret); got != tc.want {
				t.Errorf("Authenticate(%q, %q) = %v, want %v", tc.id, tc.secret, got, tc.want)
			}
		})
	}
}

func TestClientAuthenticator_PrecomputedHash(t *testing.T) {
	h := NewHasher(4)
	hash, _ := h.Hash([]byte("from-hash"))
	a, err := NewClientAuthenticator("client", "ignored", hash, h)
	if err != nil {
		t.Fatalf("NewClientAuthenticator: %v", err)
	}
	if !a.Authenticate("client", "from-hash") {
		t.Error("precomputed hash should authenticate its secret")
	}
	if a.Authenticate("client", "ignored") {
		t.Error("plain secret must be ignored when a hash is configured")
	}
	var nilAuth *ClientAuthenticator
	if nilAuth.Authenticate("client", "from-hash") {
		t.Error("nil authenticator must reject")
	}
}

func TestHashToken(t *testing.T) {
	a := HashToken("token-a")
	if len(a) != 64 {
		t.Errorf("hash length = %d, want 64", len(a))
	}
	if a != HashToken("token-a") {
		t.Error("HashToken should be deterministic")
	}
	if !TokenHashEqual("token-a", a) {
		t.Error("TokenHashEqual should match its own hash")
	}
	if TokenHashEqual("token-b", a) {
		t.Error("TokenHashEqual should reject a different token")
	}
}
