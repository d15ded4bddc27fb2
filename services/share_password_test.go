package services

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"
)

func TestHashSharePasswordIsDeterministicForSalt(t *testing.T) {
	salt := []byte("0123456789abcdef")
	first := hashSharePasswordWithSalt("hunter2", salt)
	second := hashSharePasswordWithSalt("hunter2", salt)

	if first != second {
		t.Fatalf("expected same digest for same input, got %s and %s", first, second)
	}
	if hashSharePasswordWithSalt("hunter3", salt) == first {
		t.Fatalf("expected different plaintexts to produce different digests")
	}
}

func TestHashSharePasswordVerifies(t *testing.T) {
	encoded, err := HashSharePassword("s3cret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(encoded, "argon2id$") {
		t.Fatalf("unexpected encoding: %s", encoded)
	}
	if !VerifySharePassword(encoded, "s3cret") {
		t.Fatalf("expected correct password to verify")
	}
	if VerifySharePassword(encoded, "S3cret") {
		t.Fatalf("expected wrong password to be rejected")
	}
	if VerifySharePassword(encoded, "") {
		t.Fatalf("expected empty password to be rejected")
	}
}

func TestHashSharePasswordUsesFreshSalt(t *testing.T) {
	a, _ := HashSharePassword("same")
	b, _ := HashSharePassword("same")
	if a == b {
		t.Fatalf("expected distinct salts per hash")
	}
}

func TestVerifySharePasswordAcceptsLegacyDigest(t *testing.T) {
	sum := sha256.Sum256([]byte("legacy-pass"))
	legacy := hex.EncodeToString(sum[:])

	if !VerifySharePassword(legacy, "legacy-pass") {
		t.Fatalf("expected legacy digest to verify")
	}
	if VerifySharePassword(legacy, "other") {
		t.Fatalf("expected legacy digest to reject wrong password")
	}
}

func TestVerifySharePasswordRejectsGarbage(t *testing.T) {
	for _, encoded := range []string{"", "plain", "argon2id$zz$00", "bcrypt$00$00"} {
		if VerifySharePassword(encoded, "x") {
			t.Fatalf("expected %q to be rejected", encoded)
		}
	}
}
