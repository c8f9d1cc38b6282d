package crypto

import (
	"strings"
	"testing"
)

const testKey = "01234567890123456789012345678901" // 32 bytes for AES-256

func TestNewEncryptor_KeyLength(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr error
	}{
		{"valid 32-byte key", testKey, nil},
		{"short key", "too-short", ErrInvalidKey},
		{"empty key", "", ErrInvalidKey},
		{"long key", testKey + "extra", ErrInvalidKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc, err := NewEncryptor(tt.key)
			if err != tt.wantErr {
				t.Fatalf("NewEncryptor() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr == nil && enc == nil {
				t.Fatal("NewEncryptor() returned nil encryptor")
			}
		})
	}
}

func TestEncryptDecrypt_Roundtrip(t *testing.T) {
	enc, _ := NewEncryptor(testKey)

	plaintext := "link-token-for-aggregator-cred-9f2a"
	ciphertext, err := enc.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("Encrypt() failed: %v", err)
	}
	if ciphertext == plaintext {
		t.Error("Encrypt() returned plaintext")
	}

	decrypted, err := enc.Decrypt(ciphertext)
	if err != nil {
		t.Fatalf("Decrypt() failed: %v", err)
	}
	if decrypted != plaintext {
		t.Errorf("Decrypt() = %q, want %q", decrypted, plaintext)
	}
}

func TestEncryptDecrypt_EmptyStringPassthrough(t *testing.T) {
	enc, _ := NewEncryptor(testKey)

	ciphertext, err := enc.Encrypt("")
	if err != nil || ciphertext != "" {
		t.Errorf("Encrypt(\"\") = %q, %v; want empty, nil", ciphertext, err)
	}

	plaintext, err := enc.Decrypt("")
	if err != nil || plaintext != "" {
		t.Errorf("Decrypt(\"\") = %q, %v; want empty, nil", plaintext, err)
	}
}

func TestEncrypt_NonceVariesPerMessage(t *testing.T) {
	enc, _ := NewEncryptor(testKey)

	c1, _ := enc.Encrypt("same credential")
	c2, _ := enc.Encrypt("same credential")

	if c1 == c2 {
		t.Error("Encrypt() produced identical ciphertexts for same plaintext (nonce should differ)")
	}
}

func TestDecrypt_RejectsBadInput(t *testing.T) {
	enc, _ := NewEncryptor(testKey)
	ciphertext, _ := enc.Encrypt("secret credential")

	tests := []struct {
		name  string
		input string
	}{
		{"tampered ciphertext", ciphertext[:len(ciphertext)-2] + "XX"},
		{"invalid base64", "not-valid-base64!!!"},
		{"shorter than nonce", "YQ=="},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := enc.Decrypt(tt.input); err == nil {
				t.Errorf("Decrypt(%q) accepted bad input", tt.input)
			}
		})
	}
}

func TestDecrypt_WrongKey(t *testing.T) {
	enc1, _ := NewEncryptor(testKey)
	enc2, _ := NewEncryptor("98765432109876543210987654321098")

	ciphertext, _ := enc1.Encrypt("encrypted with key1")

	if _, err := enc2.Decrypt(ciphertext); err == nil {
		t.Error("Decrypt() succeeded with wrong key")
	}
}

func TestEncryptDecrypt_UnicodeAndLongContent(t *testing.T) {
	enc, _ := NewEncryptor(testKey)

	for _, plaintext := range []string{
		"Überweisung: 1.500,00 € an Café ☕",
		strings.Repeat("long credential payload ", 1000),
	} {
		ciphertext, err := enc.Encrypt(plaintext)
		if err != nil {
			t.Fatalf("Encrypt() failed: %v", err)
		}
		decrypted, err := enc.Decrypt(ciphertext)
		if err != nil {
			t.Fatalf("Decrypt() failed: %v", err)
		}
		if decrypted != plaintext {
			t.Errorf("roundtrip mismatch for %q", plaintext[:20])
		}
	}
}
