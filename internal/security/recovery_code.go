package security

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// NewRecoveryCode returns a random 32-byte hex code for password recovery. Only its hash is stored.
func NewRecoveryCode() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// HashRecoveryCode returns the hex SHA-256 of code, used as the lookup key in the tokens table.
func HashRecoveryCode(code string) string {
	h := sha256.Sum256([]byte(code))
	return hex.EncodeToString(h[:])
}

// RecoveryCodeMatches compares code against a stored hash in constant time.
func RecoveryCodeMatches(code, storedHash string) bool {
	return subtle.ConstantTimeCompare([]byte(HashRecoveryCode(code)), []byte(storedHash)) == 1
}
