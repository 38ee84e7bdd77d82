package auth

import (
	"crypto/rand"
	"encoding/hex"

	"golang.org/x/crypto/bcrypt"
)

// KeyVerifier checks a shared key presented by a caller against its bcrypt
// hash. A verifier without a hash rejects every key.
type KeyVerifier struct {
	hash []byte
}

func NewKeyVerifier(hash string) *KeyVerifier {
	return &KeyVerifier{hash: []byte(hash)}
}

func (k *KeyVerifier) Enabled() bool {
	return len(k.hash) > 0
}

func (k *KeyVerifier) Verify(key string) bool {
	if !k.Enabled() || key == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword(k.hash, []byte(key)) == nil
}

// HashKey creates the bcrypt hash stored in configuration for a key.
func HashKey(key string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(key), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// GenerateRandomKey generates a cryptographically secure random key
func GenerateRandomKey() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
