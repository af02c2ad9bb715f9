package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// Refresh tokens are 32 random bytes, base64url without padding. Only the
// SHA-256 digest is persisted.
const refreshTokenBytes = 32

var refreshTokenLen = base64.RawURLEncoding.EncodedLen(refreshTokenBytes)

// NewRefreshToken returns the token handed to the client and the digest
// stored in refresh_sessions.
func NewRefreshToken() (token, digest string, err error) {
	var raw [refreshTokenBytes]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", "", fmt.Errorf("read random: %w", err)
	}
	token = base64.RawURLEncoding.EncodeToString(raw[:])
	return token, RefreshDigest(token), nil
}

func RefreshDigest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// IsRefreshTokenShape reports whether s is formatted like a refresh token.
// Access tokens never are: a JWT is longer and contains dots.
func IsRefreshTokenShape(s string) bool {
	if len(s) != refreshTokenLen {
		return false
	}
	_, err := base64.RawURLEncoding.DecodeString(s)
	return err == nil
}
