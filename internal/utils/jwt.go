package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
)

// ErrEmptySigningKey is returned when asked to sign or verify without a key.
var ErrEmptySigningKey = errors.New("empty signing key")

// ErrInvalidToken is returned when an owner token fails to parse, is
// expired or carries no subject.
var ErrInvalidToken = errors.New("invalid owner token")

// AccessToken is a signed owner token with its expiry.  Clients send it
// as "Authorization: Bearer <Token>".
type AccessToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// NewAccessToken signs an HS256 JWT whose subject is the owner.  Every
// event the bearer creates or touches is scoped to that owner.
func NewAccessToken(secret, owner string, ttl time.Duration) (AccessToken, error) {
	if secret == "" {
		return AccessToken{}, ErrEmptySigningKey
	}
	if owner == "" {
		return AccessToken{}, errors.New("owner is required")
	}
	now := time.Now().UTC()
	exp := now.Add(ttl)
	claims := jwt.RegisteredClaims{
		Subject:   owner,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// ParseOwner validates raw against secret and returns its subject.
func ParseOwner(secret, raw string) (string, error) {
	if secret == "" {
		return "", ErrEmptySigningKey
	}
	var claims jwt.RegisteredClaims
	tok, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !tok.Valid {
		return "", ErrInvalidToken
	}
	if claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
