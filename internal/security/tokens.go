package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned when a token is malformed, expired, or not ours.
var ErrInvalidToken = errors.New("invalid token")

// Claims holds the JWT claims for an organizer API token.
type Claims struct {
	jwt.RegisteredClaims
}

// TokenProvider issues and validates organizer JWTs signed with HS256.
type TokenProvider struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewTokenProvider returns a TokenProvider signing with the given shared secret.
func NewTokenProvider(secret []byte, issuer string, ttl time.Duration) *TokenProvider {
	return &TokenProvider{secret: secret, issuer: issuer, ttl: ttl}
}

// Issue issues a token for the given organizer id. Returns the token string
// and its expiration time.
func (p *TokenProvider) Issue(organizerID string) (string, time.Time, error) {
	now := time.Now().UTC()
	expiresAt := now.Add(p.ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   organizerID,
			Issuer:    p.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// Parse validates tokenString and returns the organizer id it was issued to.
func (p *TokenProvider) Parse(tokenString string) (string, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return p.secret, nil
	}, jwt.WithIssuer(p.issuer), jwt.WithExpirationRequired())
	if err != nil || !token.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
