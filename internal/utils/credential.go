package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"strconv"
	"unicode/utf8"

	"golang.org/x/crypto/blake2b"
)

// Supported digest algorithms.  SHA256 is the default and the one every
// event created without an explicit choice uses.
const (
	DigestSHA256  = "sha256"
	DigestBlake2b = "blake2b-256"
)

// CredentialSize is the length in bytes of every derived credential.
const CredentialSize = 32

var (
	// ErrEncodingFailure is returned when the secret cannot be encoded as UTF-8.
	ErrEncodingFailure = errors.New("secret is not valid utf-8")
	// ErrUnknownDigest is returned for an unsupported digest name.
	ErrUnknownDigest = errors.New("unknown digest algorithm")
)

// Derive returns the SHA-256 credential for the given secret and index.
func Derive(secret string, index int) ([]byte, error) {
	return DeriveWith(DigestSHA256, secret, index)
}

// DeriveWith hashes the UTF-8 bytes of secret followed by the decimal
// form of index.  The same (alg, secret, index) always yields the same
// credential.
func DeriveWith(alg, secret string, index int) ([]byte, error) {
	if !utf8.ValidString(secret) {
		return nil, ErrEncodingFailure
	}
	h, err := newDigest(alg)
	if err != nil {
		return nil, err
	}
	h.Write([]byte(secret + strconv.Itoa(index)))
	return h.Sum(nil), nil
}

// DeriveBatch derives count credentials for indices start..start+count-1.
func DeriveBatch(alg, secret string, start, count int) ([][]byte, error) {
	if count < 0 {
		return nil, fmt.Errorf("negative batch size %d", count)
	}
	out := make([][]byte, 0, count)
	for i := start; i < start+count; i++ {
		c, err := DeriveWith(alg, secret, i)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// ValidDigest reports whether alg names a supported digest.
func ValidDigest(alg string) bool {
	_, err := newDigest(alg)
	return err == nil
}

func newDigest(alg string) (hash.Hash, error) {
	switch alg {
	case DigestSHA256, "":
		return sha256.New(), nil
	case DigestBlake2b:
		return blake2b.New256(nil)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownDigest, alg)
}

// EncodeCredential renders a credential as lowercase hex for transport.
func EncodeCredential(c []byte) string { return hex.EncodeToString(c) }

// DecodeCredential parses a hex credential.  The length is not checked
// here; an unknown length simply never matches a stored ticket.
func DecodeCredential(s string) ([]byte, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode credential: %w", err)
	}
	return b, nil
}

// FingerprintSize is the number of hash bytes kept by Fingerprint.
const FingerprintSize = 8

// Fingerprint identifies a credential in logs and messages without
// disclosing it: the hex of the first FingerprintSize bytes of its
// SHA-256.  A fingerprint cannot be presented in place of the credential.
func Fingerprint(c []byte) string {
	sum := sha256.Sum256(c)
	return hex.EncodeToString(sum[:FingerprintSize])
}
