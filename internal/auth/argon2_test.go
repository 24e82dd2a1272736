package auth

import (
	"errors"
	"strings"
	"testing"
)

func TestHashCredential_Format(t *testing.T) {
	t.Parallel()

	hash, err := HashCredential("correct horse battery staple")
	if err != nil {
		t.Fatalf("HashCredential failed: %v", err)
	}

	parts := strings.Split(hash, "$")
	if len(parts) != 6 {
		t.Fatalf("expected 6 PHC parts, got %d: %s", len(parts), hash)
	}
	if parts[1] != "argon2id" {
		t.Errorf("expected argon2id, got %s", parts[1])
	}
	if parts[3] != "m=65536,t=3,p=4" {
		t.Errorf("unexpected parameters %s", parts[3])
	}
}

func TestHashCredential_SaltedAndVerifiable(t *testing.T) {
	t.Parallel()

	const credential = "s3cret-passw0rd"

	hash1, err := HashCredential(credential)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	hash2, err := HashCredential(credential)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash1 == hash2 {
		t.Error("same credential should produce different hashes")
	}

	for _, h := range []string{hash1, hash2} {
		ok, err := VerifyCredential(credential, h)
		if err != nil || !ok {
			t.Errorf("VerifyCredential(%q) = %v, %v; want true", h, ok, err)
		}
	}

	ok, err := VerifyCredential("wrong", hash1)
	if err != nil {
		t.Fatalf("verify wrong credential: %v", err)
	}
	if ok {
		t.Error("wrong credential should not verify")
	}
}

func TestVerifyCredential_InvalidHash(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		hash string
		want error
	}{
		{"empty", "", ErrInvalidHash},
		{"plain text", "password", ErrInvalidHash},
		{"wrong algorithm", "$bcrypt$v=19$m=65536,t=3,p=4$c2FsdA$aGFzaA", ErrInvalidHash},
		{"wrong version", "$argon2id$v=16$m=65536,t=3,p=4$c2FsdA$aGFzaA", ErrIncompatibleVersion},
		{"bad params", "$argon2id$v=19$bogus$c2FsdA$aGFzaA", ErrInvalidHash},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if _, err := VerifyCredential("x", tt.hash); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestQuickHash(t *testing.T) {
	t.Parallel()

	if QuickHash("user-1") != QuickHash("user-1") {
		t.Error("QuickHash should be deterministic")
	}
	if QuickHash("user-1") == QuickHash("user-2") {
		t.Error("different inputs should hash differently")
	}
	if len(QuickHash("user-1")) != 32 {
		t.Errorf("expected 32 hex chars, got %d", len(QuickHash("user-1")))
	}
}
