package vault

import (
	"errors"
	"strings"
	"testing"

	"github.com/desertthunder/playlog/internal/shared"
)

func TestVault(t *testing.T) {
	t.Run("New", func(t *testing.T) {
		t.Run("With Secret", func(t *testing.T) {
			v, err := New("test-secret")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if v == nil {
				t.Fatal("expected vault to be created")
			}
		})

		t.Run("Empty Secret", func(t *testing.T) {
			_, err := New("")
			if err == nil {
				t.Error("expected error for empty secret")
			}
		})
	})

	t.Run("RoundTrip", func(t *testing.T) {
		v, err := New("test-secret")
		if err != nil {
			t.Fatalf("failed to create vault: %v", err)
		}

		for _, plaintext := range []string{
			"AQBf8-refresh-token",
			"",
			"token with spaces and ünïcode ♫",
			strings.Repeat("x", 4096),
		} {
			ciphertext, err := v.Encrypt(plaintext)
			if err != nil {
				t.Fatalf("encrypt failed: %v", err)
			}

			decrypted, err := v.Decrypt(ciphertext)
			if err != nil {
				t.Fatalf("decrypt failed: %v", err)
			}

			if decrypted != plaintext {
				t.Errorf("round trip mismatch: got %q, want %q", decrypted, plaintext)
			}
		}
	})

	t.Run("Nonce Uniqueness", func(t *testing.T) {
		v, _ := New("test-secret")

		first, err := v.Encrypt("same-token")
		if err != nil {
			t.Fatalf("encrypt failed: %v", err)
		}
		second, err := v.Encrypt("same-token")
		if err != nil {
			t.Fatalf("encrypt failed: %v", err)
		}

		if first == second {
			t.Error("expected distinct ciphertexts for repeated encryption")
		}
	})

	t.Run("Decrypt Failures", func(t *testing.T) {
		v, _ := New("test-secret")

		t.Run("Empty Ciphertext", func(t *testing.T) {
			_, err := v.Decrypt("")
			if !errors.Is(err, shared.ErrDecryptFailed) {
				t.Errorf("expected ErrDecryptFailed, got %v", err)
			}
		})

		t.Run("Malformed Base64", func(t *testing.T) {
			_, err := v.Decrypt("not-base64!!!")
			if !errors.Is(err, shared.ErrDecryptFailed) {
				t.Errorf("expected ErrDecryptFailed, got %v", err)
			}
		})

		t.Run("Truncated Ciphertext", func(t *testing.T) {
			_, err := v.Decrypt("AAAA")
			if !errors.Is(err, shared.ErrDecryptFailed) {
				t.Errorf("expected ErrDecryptFailed, got %v", err)
			}
		})

		t.Run("Wrong Key", func(t *testing.T) {
			ciphertext, err := v.Encrypt("secret-token")
			if err != nil {
				t.Fatalf("encrypt failed: %v", err)
			}

			other, _ := New("different-secret")
			_, err = other.Decrypt(ciphertext)
			if !errors.Is(err, shared.ErrDecryptFailed) {
				t.Errorf("expected ErrDecryptFailed, got %v", err)
			}
		})

		t.Run("Tampered Ciphertext", func(t *testing.T) {
			ciphertext, err := v.Encrypt("secret-token")
			if err != nil {
				t.Fatalf("encrypt failed: %v", err)
			}

			tampered := []byte(ciphertext)
			tampered[len(tampered)-5] ^= 'x'

			_, err = v.Decrypt(string(tampered))
			if !errors.Is(err, shared.ErrDecryptFailed) {
				t.Errorf("expected ErrDecryptFailed, got %v", err)
			}
		})
	})
}
