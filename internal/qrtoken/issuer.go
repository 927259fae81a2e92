// Package qrtoken derives the rotating check-in tokens embedded in QR payloads.
//
// Tokens are a MAC over (round id, window start) keyed by the per-round
// secret. They are never stored: any holder of the secret can re-derive the
// token for a window, so the organizer's displayed QR stays valid for the
// whole window without the server pushing again.
package qrtoken

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/binary"
	"time"
)

// tokenLen is the length of the emitted URL-safe token string.
const tokenLen = 22

// Token is a derived rolling token with the instant the window it belongs to ends.
type Token struct {
	Value     string
	ExpiresAt time.Time
}

// Issuer derives tokens on a fixed rotation window.
type Issuer struct {
	window time.Duration
}

// NewIssuer returns an Issuer rotating every window. window must be positive.
func NewIssuer(window time.Duration) *Issuer {
	return &Issuer{window: window}
}

// Window returns the rotation window length.
func (i *Issuer) Window() time.Duration {
	return i.window
}

// Issue derives the token for the window containing now. Two calls inside the
// same window return the same token; calls across a boundary return different
// ones. The secret never leaves the server, only the derived token does.
func (i *Issuer) Issue(roundID string, secret []byte, now time.Time) Token {
	windowStart := now.Unix() - (now.Unix() % int64(i.window/time.Second))
	return Token{
		Value:     derive(roundID, secret, windowStart),
		ExpiresAt: time.Unix(windowStart, 0).Add(i.window),
	}
}

// Verify reports whether token is the valid token for roundID in the window
// containing now. Comparison is constant-time.
func (i *Issuer) Verify(roundID string, secret []byte, token string, now time.Time) bool {
	want := i.Issue(roundID, secret, now).Value
	return subtle.ConstantTimeCompare([]byte(want), []byte(token)) == 1
}

// NextBoundary returns the first window boundary strictly after now. The hub
// aligns its rotation timer on this instant so pushes land exactly on window
// edges instead of polling.
func (i *Issuer) NextBoundary(now time.Time) time.Time {
	w := int64(i.window / time.Second)
	windowStart := now.Unix() - (now.Unix() % w)
	return time.Unix(windowStart+w, 0)
}

func derive(roundID string, secret []byte, windowStart int64) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(roundID))
	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(windowStart))
	mac.Write(ts[:])
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))[:tokenLen]
}
