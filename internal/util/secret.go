// Package util holds the secret handling shared by admin sessions and access
// code logging.
package util

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const sessionTokenBytes = 32

// NewSessionToken returns a random admin session token. Only its hash is
// stored.
func NewSessionToken() (string, error) {
	b := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// SessionTokenHash keys the stored session hash with the server secret so a
// leaked table cannot be replayed against another deployment.
func SessionTokenHash(secret, token string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(token))
	return hex.EncodeToString(mac.Sum(nil))
}

func PasswordMatches(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// MaskCode keeps the first group of an access code for log correlation.
func MaskCode(code string) string {
	first, _, found := strings.Cut(code, "-")
	if !found || len(first) == 0 || len(first) >= len(code) {
		return "****"
	}
	return first + "-****-****"
}
