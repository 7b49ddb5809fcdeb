package application

import (
	"errors"
	"strings"
	"testing"
)

// Small parameters keep the suite fast.
var testArgon2Params = Argon2idParams{
	Memory:      1024,
	Iterations:  1,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

func TestCreatePasswordHash(t *testing.T) {
	t.Parallel()

	first, err := CreatePasswordHash("s3cret-pass", testArgon2Params)
	if err != nil {
		t.Fatalf("CreatePasswordHash failed: %v", err)
	}
	if !strings.HasPrefix(first, "$argon2id$v=19$m=1024,t=1,p=1$") {
		t.Fatalf("unexpected hash format %q", first)
	}

	second, err := CreatePasswordHash("s3cret-pass", testArgon2Params)
	if err != nil {
		t.Fatalf("CreatePasswordHash failed: %v", err)
	}
	if first == second {
		t.Fatalf("expected random salt to produce distinct hashes")
	}

	if _, err := CreatePasswordHash("", testArgon2Params); err == nil {
		t.Fatalf("expected empty password to be rejected")
	}
}

func TestVerifyPassword(t *testing.T) {
	t.Parallel()

	hash, err := CreatePasswordHash("s3cret-pass", testArgon2Params)
	if err != nil {
		t.Fatalf("CreatePasswordHash failed: %v", err)
	}

	if err := VerifyPassword(hash, "s3cret-pass"); err != nil {
		t.Fatalf("expected password to verify, got %v", err)
	}
	if err := VerifyPassword(hash, "other"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	malformed := []string{
		"",
		"plain",
		"$bcrypt$v=19$m=1,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=x$m=1,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=1,t=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=1,t=1,p=1$!!!$aGFzaA",
	}
	for _, value := range malformed {
		if err := VerifyPassword(value, "s3cret-pass"); !errors.Is(err, ErrInvalidPasswordHash) {
			t.Fatalf("VerifyPassword(%q): expected ErrInvalidPasswordHash, got %v", value, err)
		}
	}

	if err := VerifyPassword("$argon2id$v=16$m=1,t=1,p=1$c2FsdA$aGFzaA", "x"); !errors.Is(err, ErrIncompatiblePasswordVersion) {
		t.Fatalf("expected ErrIncompatiblePasswordVersion, got %v", err)
	}
}
