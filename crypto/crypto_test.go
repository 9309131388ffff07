package crypto_test

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/f0rbit/timeline/crypto"
)

func testKey() string {
	return strings.Repeat("ab", 32)
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	box, err := crypto.NewBox(testKey())
	if err != nil {
		t.Fatalf("NewBox: %v", err)
	}

	plaintext := "ghp_superdupersecrettoken"
	ciphertext, err := box.EncryptString(plaintext)
	if err != nil {
		t.Fatalf("EncryptString: %v", err)
	}
	if ciphertext == plaintext {
		t.Fatalf("ciphertext must not equal plaintext")
	}

	got, err := box.DecryptString(ciphertext)
	if err != nil {
		t.Fatalf("DecryptString: %v", err)
	}
	if got != plaintext {
		t.Fatalf("got %q, want %q", got, plaintext)
	}
}

func TestEncryptionIsNonDeterministic(t *testing.T) {
	box, _ := crypto.NewBox(testKey())
	a, _ := box.EncryptString("same input")
	b, _ := box.EncryptString("same input")
	if a == b {
		t.Fatalf("two encryptions of the same plaintext produced identical ciphertext (nonce reuse)")
	}
}

func TestNewBoxRejectsWrongKeySize(t *testing.T) {
	if _, err := crypto.NewBox(hex.EncodeToString([]byte("too-short"))); err == nil {
		t.Fatalf("expected error for short key")
	}
}
