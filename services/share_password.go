package services

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32
	argonSaltLen = 16

	argonPrefix = "argon2id"
)

// HashSharePassword returns "argon2id$<salt-hex>$<key-hex>" with a fresh
// random salt.
func HashSharePassword(password string) (string, error) {
	salt := make([]byte, argonSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	return hashSharePasswordWithSalt(password, salt), nil
}

func hashSharePasswordWithSalt(password string, salt []byte) string {
	key := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
	return argonPrefix + "$" + hex.EncodeToString(salt) + "$" + hex.EncodeToString(key)
}

// VerifySharePassword re-derives the hash with the stored salt. Bare 64-char
// hex digests are unsalted SHA-256 hashes from older share rows.
func VerifySharePassword(encoded string, password string) bool {
	if isLegacySHA256(encoded) {
		sum := sha256.Sum256([]byte(password))
		return subtle.ConstantTimeCompare([]byte(strings.ToLower(encoded)), []byte(hex.EncodeToString(sum[:]))) == 1
	}

	parts := strings.Split(encoded, "$")
	if len(parts) != 3 || parts[0] != argonPrefix {
		return false
	}
	salt, err := hex.DecodeString(parts[1])
	if err != nil || len(salt) == 0 {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(encoded), []byte(hashSharePasswordWithSalt(password, salt))) == 1
}

func isLegacySHA256(encoded string) bool {
	if len(encoded) != sha256.Size*2 {
		return false
	}
	_, err := hex.DecodeString(encoded)
	return err == nil
}
