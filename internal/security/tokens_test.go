package security

import (
	"errors"
	"testing"
	"time"
)

var testKey = []byte("test-signing-secret-test-signing")

func TestTokenProvider_IssueAndParse(t *testing.T) {
	p := NewTokenProvider(testKey, "rollcall-api", time.Hour)

	token, expiresAt, err := p.Issue("org-1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if token == "" {
		t.Fatal("Issue returned empty token")
	}
	if !expiresAt.After(time.Now()) {
		t.Errorf("expiresAt = %v, want in the future", expiresAt)
	}

	sub, err := p.Parse(token)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if sub != "org-1" {
		t.Errorf("subject = %q, want %q", sub, "org-1")
	}
}

func TestTokenProvider_RejectsExpired(t *testing.T) {
	p := NewTokenProvider(testKey, "rollcall-api", -time.Minute)
	token, _, err := p.Issue("org-1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := p.Parse(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Parse(expired) = %v, want ErrInvalidToken", err)
	}
}

func TestTokenProvider_RejectsWrongSecret(t *testing.T) {
	p := NewTokenProvider(testKey, "rollcall-api", time.Hour)
	token, _, err := p.Issue("org-1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	other := NewTokenProvider([]byte("a-different-secret-a-different-s"), "rollcall-api", time.Hour)
	if _, err := other.Parse(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Parse with wrong secret = %v, want ErrInvalidToken", err)
	}
}

func TestTokenProvider_RejectsWrongIssuer(t *testing.T) {
	p := NewTokenProvider(testKey, "someone-else", time.Hour)
	token, _, err := p.Issue("org-1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	ours := NewTokenProvider(testKey, "rollcall-api", time.Hour)
	if _, err := ours.Parse(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Parse with wrong issuer = %v, want ErrInvalidToken", err)
	}
}

func TestTokenProvider_RejectsGarbage(t *testing.T) {
	p := NewTokenProvider(testKey, "rollcall-api", time.Hour)
	for _, bad := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, err := p.Parse(bad); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Parse(%q) = %v, want ErrInvalidToken", bad, err)
		}
	}
}

func TestHasher(t *testing.T) {
	h := NewHasher(4) // minimum cost keeps the test fast
	hash, err := h.Hash([]byte("correct horse battery staple"))
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if !h.Compare(hash, []byte("correct horse battery staple")) {
		t.Error("Compare should accept the original password")
	}
	if h.Compare(hash, []byte("wrong password")) {
		t.Error("Compare should reject a different password")
	}
}
