package qrtoken

import (
	"strings"
	"testing"
	"time"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func TestIssue_StableWithinWindow(t *testing.T) {
	iss := NewIssuer(20 * time.Second)
	base := time.Unix(1780000000, 0)
	// Align to a window start so both calls land in the same window.
	base = iss.NextBoundary(base)

	t1 := iss.Issue("round-1", testSecret, base)
	t2 := iss.Issue("round-1", testSecret, base.Add(19*time.Second))
	if t1.Value != t2.Value {
		t.Errorf("tokens differ within one window: %q vs %q", t1.Value, t2.Value)
	}
	if !t1.ExpiresAt.Equal(t2.ExpiresAt) {
		t.Errorf("expiries differ within one window: %v vs %v", t1.ExpiresAt, t2.ExpiresAt)
	}
}

func TestIssue_RotatesAcrossBoundary(t *testing.T) {
	iss := NewIssuer(20 * time.Second)
	base := iss.NextBoundary(time.Unix(1780000000, 0))

	before := iss.Issue("round-1", testSecret, base.Add(19*time.Second))
	after := iss.Issue("round-1", testSecret, base.Add(20*time.Second))
	if before.Value == after.Value {
		t.Error("token did not rotate across the window boundary")
	}
}

func TestIssue_DistinctPerRoundAndSecret(t *testing.T) {
	iss := NewIssuer(20 * time.Second)
	now := time.Unix(1780000000, 0)

	a := iss.Issue("round-1", testSecret, now)
	b := iss.Issue("round-2", testSecret, now)
	if a.Value == b.Value {
		t.Error("different rounds produced the same token")
	}
	c := iss.Issue("round-1", []byte("another-secret-another-secret-ab"), now)
	if a.Value == c.Value {
		t.Error("different secrets produced the same token")
	}
}

func TestIssue_TokenIsURLSafe(t *testing.T) {
	iss := NewIssuer(20 * time.Second)
	tok := iss.Issue("round-1", testSecret, time.Unix(1780000000, 0))
	if len(tok.Value) != tokenLen {
		t.Errorf("token length = %d, want %d", len(tok.Value), tokenLen)
	}
	if strings.ContainsAny(tok.Value, "+/=") {
		t.Errorf("token %q contains non-URL-safe characters", tok.Value)
	}
}

func TestIssue_ExpiryOnBoundary(t *testing.T) {
	iss := NewIssuer(20 * time.Second)
	base := iss.NextBoundary(time.Unix(1780000000, 0))

	tok := iss.Issue("round-1", testSecret, base.Add(5*time.Second))
	if want := base.Add(20 * time.Second); !tok.ExpiresAt.Equal(want) {
		t.Errorf("ExpiresAt = %v, want %v", tok.ExpiresAt, want)
	}
}

func TestNextBoundary(t *testing.T) {
	iss := NewIssuer(20 * time.Second)
	start := time.Unix(1780000000, 0)
	b1 := iss.NextBoundary(start)
	if !b1.After(start) {
		t.Errorf("NextBoundary(%v) = %v, want strictly after", start, b1)
	}
	if b1.Unix()%20 != 0 {
		t.Errorf("boundary %v is not aligned to the window", b1)
	}
	// A boundary instant's next boundary is one full window later.
	if b2 := iss.NextBoundary(b1); b2.Sub(b1) != 20*time.Second {
		t.Errorf("NextBoundary(boundary) = %v, want one window later", b2)
	}
}

func TestVerify(t *testing.T) {
	iss := NewIssuer(20 * time.Second)
	base := iss.NextBoundary(time.Unix(1780000000, 0))

	tok := iss.Issue("round-1", testSecret, base)
	if !iss.Verify("round-1", testSecret, tok.Value, base.Add(10*time.Second)) {
		t.Error("Verify should accept the current window's token")
	}
	if iss.Verify("round-1", testSecret, tok.Value, base.Add(20*time.Second)) {
		t.Error("Verify should reject a token from a previous window")
	}
	if iss.Verify("round-2", testSecret, tok.Value, base) {
		t.Error("Verify should reject another round's token")
	}
}
