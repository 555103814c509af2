// Package auth implements the challenge-response authentication primitives
// for the obsws handshake.
//
// The server derives secret = base64(SHA256(password ++ salt)) once per start
// and issues a fresh challenge to every connecting session. A client proves
// knowledge of the password by answering base64(SHA256(secret ++ challenge)).
// The salt is regenerated on every server start, so secrets never outlive a
// run.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
)

// saltSize is the number of random bytes behind a salt or challenge.
const saltSize = 32

// GenerateSalt returns a base64-encoded value built from 32
// cryptographically random bytes.
func GenerateSalt() (string, error) {
	raw := make([]byte, saltSize)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// GenerateChallenge returns a per-session challenge. Same shape as a salt;
// the distinct name keeps call sites readable.
func GenerateChallenge() (string, error) {
	return GenerateSalt()
}

// GenerateSecret derives the authentication secret from a password and salt.
// The derivation is deterministic: the same password and salt always produce
// the same secret, so verification stays consistent within one server run.
func GenerateSecret(password, salt string) string {
	sum := sha256.Sum256([]byte(password + salt))
	return base64.StdEncoding.EncodeToString(sum[:])
}

// AuthenticationString computes the response a client must give for a secret
// and challenge pair: base64(SHA256(secret ++ challenge)).
func AuthenticationString(secret, challenge string) string {
	sum := sha256.Sum256([]byte(secret + challenge))
	return base64.StdEncoding.EncodeToString(sum[:])
}

// CheckAuthenticationString verifies a client response against the expected
// value for the session's challenge. Constant-time comparison.
func CheckAuthenticationString(secret, challenge, response string) bool {
	expected := AuthenticationString(secret, challenge)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(response)) == 1
}
