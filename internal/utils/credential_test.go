package utils

import (
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveMatchesConcatenatedSHA256(t *testing.T) {
	got, err := Derive("hunter2", 0)
	require.NoError(t, err)

	want := sha256.Sum256([]byte("hunter20"))
	assert.Equal(t, want[:], got)
	assert.Len(t, got, CredentialSize)
}

func TestDeriveIsDeterministic(t *testing.T) {
	for _, alg := range []string{DigestSHA256, DigestBlake2b} {
		a, err := DeriveWith(alg, "s3cret", 17)
		require.NoError(t, err)
		b, err := DeriveWith(alg, "s3cret", 17)
		require.NoError(t, err)
		assert.Equal(t, a, b, alg)
		assert.Len(t, a, CredentialSize, alg)
	}
}

func TestDeriveNoCollisionsAcrossIndices(t *testing.T) {
	const n = 10000
	creds, err := DeriveBatch(DigestSHA256, "hunter2", 0, n)
	require.NoError(t, err)
	require.Len(t, creds, n)

	seen := make(map[string]int, n)
	for i, c := range creds {
		if j, ok := seen[string(c)]; ok {
			t.Fatalf("indices %d and %d derived the same credential", j, i)
		}
		seen[string(c)] = i
	}
}

func TestDeriveBatchContinuesAtStart(t *testing.T) {
	batch, err := DeriveBatch(DigestSHA256, "pw", 20, 3)
	require.NoError(t, err)
	for i, c := range batch {
		single, err := Derive("pw", 20+i)
		require.NoError(t, err)
		assert.Equal(t, single, c)
	}
}

func TestDigestsDiffer(t *testing.T) {
	a, err := DeriveWith(DigestSHA256, "pw", 1)
	require.NoError(t, err)
	b, err := DeriveWith(DigestBlake2b, "pw", 1)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestDeriveErrors(t *testing.T) {
	_, err := Derive("bad\xff", 0)
	assert.ErrorIs(t, err, ErrEncodingFailure)

	_, err = DeriveWith("md5", "pw", 0)
	assert.ErrorIs(t, err, ErrUnknownDigest)

	_, err = DeriveBatch(DigestSHA256, "pw", 0, -1)
	assert.Error(t, err)

	assert.True(t, ValidDigest(DigestBlake2b))
	assert.False(t, ValidDigest("crc32"))
}

func TestCredentialHexRoundTrip(t *testing.T) {
	c, err := Derive("pw", 3)
	require.NoError(t, err)

	back, err := DecodeCredential(EncodeCredential(c))
	require.NoError(t, err)
	assert.Equal(t, c, back)

	_, err = DecodeCredential("zz")
	assert.Error(t, err)
}

func TestFingerprint(t *testing.T) {
	c, err := Derive("hunter2", 0)
	require.NoError(t, err)
	fp := Fingerprint(c)
	assert.Len(t, fp, 2*FingerprintSize)
	assert.Equal(t, fp, Fingerprint(c))
	assert.NotContains(t, EncodeCredential(c), fp)

	other, err := Derive("hunter2", 1)
	require.NoError(t, err)
	assert.NotEqual(t, fp, Fingerprint(other))
}
