package backup

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestGenerateSalt(t *testing.T) {
	salt1, err := GenerateSalt()
	if err != nil {
		t.Fatalf("generate salt: %v", err)
	}
	if len(salt1) != saltLen {
		t.Errorf("salt length = %d, want %d", len(salt1), saltLen)
	}

	salt2, err := GenerateSalt()
	if err != nil {
		t.Fatalf("generate salt 2: %v", err)
	}
	if bytes.Equal(salt1, salt2) {
		t.Error("two salts should not be equal")
	}
}

func TestDeriveKeyDeterminism(t *testing.T) {
	salt := []byte("1234567890abcdef")

	key1 := DeriveKey("mypassphrase", salt)
	key2 := DeriveKey("mypassphrase", salt)

	if !bytes.Equal(key1, key2) {
		t.Error("same passphrase+salt should produce same key")
	}
	if len(key1) != keyLen {
		t.Errorf("key length = %d, want %d", len(key1), keyLen)
	}
}

func TestDeriveKeyDifferentPassphrases(t *testing.T) {
	salt := []byte("1234567890abcdef")

	key1 := DeriveKey("password1", salt)
	key2 := DeriveKey("password2", salt)

	if bytes.Equal(key1, key2) {
		t.Error("different passphrases should produce different keys")
	}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "larder.db")
	encPath := filepath.Join(dir, "larder.db.enc")
	decPath := filepath.Join(dir, "restored.db")

	original := []byte("pantry snapshot contents for the round trip")
	if err := os.WriteFile(srcPath, original, 0600); err != nil {
		t.Fatalf("write source: %v", err)
	}

	salt, err := GenerateSalt()
	if err != nil {
		t.Fatalf("generate salt: %v", err)
	}

	passphrase := "household-passphrase-123"

	if err := EncryptFile(srcPath, encPath, passphrase, salt); err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	encrypted, _ := os.ReadFile(encPath)
	if bytes.Equal(encrypted, original) {
		t.Error("sealed snapshot should differ from original")
	}

	// The salt travels in the header so a restore needs only the passphrase.
	if !bytes.Equal(encrypted[:saltLen], salt) {
		t.Error("sealed snapshot should start with the salt")
	}

	if err := DecryptFile(encPath, decPath, passphrase); err != nil {
		t.Fatalf("decrypt: %v", err)
	}

	decrypted, _ := os.ReadFile(decPath)
	if !bytes.Equal(original, decrypted) {
		t.Error("decrypted content should match original")
	}
}

func TestDecryptWrongPassphrase(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "larder.db")
	encPath := filepath.Join(dir, "larder.db.enc")
	decPath := filepath.Join(dir, "restored.db")

	if err := os.WriteFile(srcPath, []byte("secret data"), 0600); err != nil {
		t.Fatalf("write source: %v", err)
	}

	salt, _ := GenerateSalt()
	if err := EncryptFile(srcPath, encPath, "correct-password", salt); err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	if err := DecryptFile(encPath, decPath, "wrong-password"); err == nil {
		t.Fatal("expected error with wrong passphrase")
	}
}

func TestDecryptTamperedCiphertext(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "larder.db")
	encPath := filepath.Join(dir, "larder.db.enc")
	decPath := filepath.Join(dir, "restored.db")

	if err := os.WriteFile(srcPath, []byte("secret data"), 0600); err != nil {
		t.Fatalf("write source: %v", err)
	}

	salt, _ := GenerateSalt()
	if err := EncryptFile(srcPath, encPath, "password", salt); err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	// Flip a ciphertext byte past the salt and nonce header.
	data, _ := os.ReadFile(encPath)
	if len(data) > saltLen+nonceLen+1 {
		data[saltLen+nonceLen+1] ^= 0xFF
		os.WriteFile(encPath, data, 0600)
	}

	if err := DecryptFile(encPath, decPath, "password"); err == nil {
		t.Fatal("expected error with tampered ciphertext")
	}
}

func TestEncryptDecryptEmptyFile(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "empty.db")
	encPath := filepath.Join(dir, "empty.db.enc")
	decPath := filepath.Join(dir, "empty-dec.db")

	if err := os.WriteFile(srcPath, []byte{}, 0600); err != nil {
		t.Fatalf("write source: %v", err)
	}

	salt, _ := GenerateSalt()
	if err := EncryptFile(srcPath, encPath, "password", salt); err != nil {
		t.Fatalf("encrypt empty file: %v", err)
	}

	if err := DecryptFile(encPath, decPath, "password"); err != nil {
		t.Fatalf("decrypt empty file: %v", err)
	}

	decrypted, _ := os.ReadFile(decPath)
	if len(decrypted) != 0 {
		t.Errorf("expected empty decrypted file, got %d bytes", len(decrypted))
	}
}

func TestDecryptFileTooSmall(t *testing.T) {
	dir := t.TempDir()
	encPath := filepath.Join(dir, "small.db.enc")
	decPath := filepath.Join(dir, "dec.db")

	os.WriteFile(encPath, []byte("too short"), 0600)

	if err := DecryptFile(encPath, decPath, "password"); err == nil {
		t.Fatal("expected error for a header-sized file")
	}
}
