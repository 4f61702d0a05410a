package crypto

import (
	"bytes"
	"encoding/base64"
	"strings"
	"testing"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key := base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{7}, 32))
	svc, err := New(key)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if !svc.Configured() {
		t.Fatal("expected configured service")
	}

	plain := []byte("%PDF-1.3 payslip")
	sealed, err := svc.Encrypt(plain)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if bytes.Contains(sealed, plain) {
		t.Fatal("ciphertext leaks plaintext")
	}
	opened, err := svc.Decrypt(sealed)
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if !bytes.Equal(opened, plain) {
		t.Fatalf("expected %q, got %q", plain, opened)
	}
}

func TestHexKeyAccepted(t *testing.T) {
	svc, err := New(strings.Repeat("ab", 32))
	if err != nil || !svc.Configured() {
		t.Fatalf("expected hex key to configure service, err=%v", err)
	}
}

func TestShortKeyRejected(t *testing.T) {
	if _, err := New("too-short"); err == nil {
		t.Fatal("expected error for short key")
	}
}

func TestUnconfiguredPassesThrough(t *testing.T) {
	svc, err := New("")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	out, err := svc.EncryptString("CM21 1000 2000")
	if err != nil || string(out) != "CM21 1000 2000" {
		t.Fatalf("expected passthrough, got %q err=%v", out, err)
	}
}

func TestDecryptRejectsTruncatedInput(t *testing.T) {
	svc, _ := New(strings.Repeat("cd", 32))
	if _, err := svc.Decrypt([]byte{1, 2, 3}); err != ErrCiphertextTooShort {
		t.Fatalf("expected ErrCiphertextTooShort, got %v", err)
	}
}
