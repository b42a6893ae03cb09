package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// DefaultTokenDuration is how long a session token stays valid.
const DefaultTokenDuration = 7 * 24 * time.Hour

// Claims are the claims of a session token. The subject is the user id.
type Claims struct {
	jwt.RegisteredClaims
}

// Tokens issues and verifies HS256 signed session tokens.
type Tokens struct {
	key      []byte
	duration time.Duration
	issuer   string
	now      func() time.Time
}

// NewTokens returns a Tokens signing with hmacKey. A zero duration means DefaultTokenDuration.
func NewTokens(hmacKey string, duration time.Duration, issuer string) (*Tokens, error) {
	if hmacKey == "" {
		return nil, errors.New("auth: hmac key required")
	}
	if duration <= 0 {
		duration = DefaultTokenDuration
	}
	return &Tokens{
		key:      []byte(hmacKey),
		duration: duration,
		issuer:   issuer,
		now:      time.Now,
	}, nil
}

// Issue returns a signed token for userID and its expiry time.
func (t *Tokens) Issue(userID string) (string, time.Time, error) {
	now := t.now()
	exp := now.Add(t.duration)
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.key)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Verify checks the token's signature, algorithm and expiry and returns the user id it was issued for.
func (t *Tokens) Verify(token string) (string, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(tok *jwt.Token) (interface{}, error) {
		return t.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(t.issuer),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpiredToken
		}
		return "", ErrInvalidToken
	}
	if claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
