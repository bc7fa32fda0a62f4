package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	tok, err := NewAccessToken("s3cret", "alice", time.Hour)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), tok.Exp, time.Minute)

	owner, err := ParseOwner("s3cret", tok.Token)
	require.NoError(t, err)
	assert.Equal(t, "alice", owner)
}

func TestParseOwnerRejects(t *testing.T) {
	good, err := NewAccessToken("s3cret", "alice", time.Hour)
	require.NoError(t, err)
	expired, err := NewAccessToken("s3cret", "alice", -time.Minute)
	require.NoError(t, err)

	noSub := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()})
	noSubRaw, err := noSub.SignedString([]byte("s3cret"))
	require.NoError(t, err)

	hs512 := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{"sub": "alice"})
	hs512Raw, err := hs512.SignedString([]byte("s3cret"))
	require.NoError(t, err)

	for name, raw := range map[string]string{
		"wrong secret": "",
		"expired":      expired.Token,
		"no subject":   noSubRaw,
		"other alg":    hs512Raw,
		"garbage":      "not.a.jwt",
	} {
		t.Run(name, func(t *testing.T) {
			secret := "s3cret"
			if raw == "" {
				raw, secret = good.Token, "other"
			}
			_, err := ParseOwner(secret, raw)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}

	_, err = NewAccessToken("s3cret", "", time.Hour)
	assert.Error(t, err)
}

func TestEmptySigningKeyRejected(t *testing.T) {
	_, err := NewAccessToken("", "alice", time.Hour)
	assert.ErrorIs(t, err, ErrEmptySigningKey)

	forged := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "alice",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	raw, err := forged.SignedString([]byte(""))
	require.NoError(t, err)

	owner, err := ParseOwner("", raw)
	assert.ErrorIs(t, err, ErrEmptySigningKey)
	assert.Empty(t, owner)
}
