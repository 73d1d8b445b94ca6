package utils

import (
	"strings"
	"testing"
)

var cryptoTestKey = []byte("0123456789abcdef0123456789abcdef")

func TestEncryptDecryptRoundTrip(t *testing.T) {
	token := "ya29.a0AfB_secret-access-token"

	sealed, err := Encrypt([]byte(token), cryptoTestKey)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if strings.Contains(sealed, token) {
		t.Fatal("ciphertext contains the plaintext")
	}

	got, err := Decrypt(sealed, cryptoTestKey)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if got != token {
		t.Fatalf("round trip mismatch: got %q", got)
	}
}

func TestEncryptUniqueNonce(t *testing.T) {
	a, err := Encrypt([]byte("same input"), cryptoTestKey)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	b, err := Encrypt([]byte("same input"), cryptoTestKey)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if a == b {
		t.Fatal("two seals of the same plaintext produced identical output")
	}
}

func TestDecryptRejectsTampering(t *testing.T) {
	if _, err := Decrypt("bm90IGEgcmVhbCBjaXBoZXJ0ZXh0", cryptoTestKey); err == nil {
		t.Fatal("expected error for garbage ciphertext")
	}

	if _, err := Decrypt("c2hvcnQ=", cryptoTestKey); err == nil {
		t.Fatal("expected error for truncated data")
	}

	wrongKey := []byte("ffffffffffffffffffffffffffffffff")
	sealed, err := Encrypt([]byte("token"), cryptoTestKey)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if _, err := Decrypt(sealed, wrongKey); err == nil {
		t.Fatal("expected error for wrong key")
	}
}

func TestEncryptRejectsBadKeySize(t *testing.T) {
	if _, err := Encrypt([]byte("token"), []byte("too-short")); err == nil {
		t.Fatal("expected error for invalid key size")
	}
}
