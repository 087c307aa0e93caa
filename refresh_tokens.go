package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/goliatone/go-errors"
)

// DefaultRefreshTokenExpiration is used when the config gives no refresh token lifetime
const DefaultRefreshTokenExpiration = 7 * 24 * time.Hour

const refreshTokenBytes = 32

// NewRefreshTokenValue returns a random token and the hash we persist for it
func NewRefreshTokenValue() (token string, hash string, err error) {
	buf := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", errors.Wrap(err, errors.CategoryInternal, "failed to generate refresh token")
	}
	token = hex.EncodeToString(buf)
	return token, HashRefreshToken(token), nil
}

// HashRefreshToken returns the hex SHA-256 of a refresh token
func HashRefreshToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
