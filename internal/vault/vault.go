// package vault provides authenticated encryption for refresh tokens at rest.
//
// Tokens are sealed with AES-256-GCM under a key derived from the configured
// secret. GCM's authentication tag means a ciphertext produced under a
// different key, or corrupted in the sheet, fails to decrypt instead of
// yielding garbage that could be sent to the provider as a refresh token.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"github.com/desertthunder/playlog/internal/shared"
)

// Vault encrypts and decrypts refresh tokens. It holds only derived key
// material, no persistent state.
type Vault struct {
	key []byte
}

// New creates a Vault from the configured secret. The AES-256 key is the
// SHA-256 digest of the secret, so any non-empty secret is acceptable.
func New(secret string) (*Vault, error) {
	if secret == "" {
		return nil, fmt.Errorf("%w: vault secret is empty", shared.ErrInvalidConfig)
	}
	digest := sha256.Sum256([]byte(secret))
	return &Vault{key: digest[:]}, nil
}

// Encrypt seals the plaintext and returns base64(nonce || ciphertext).
//
// A fresh random nonce is generated per call, so encrypting the same token
// twice yields different ciphertexts.
func (v *Vault) Encrypt(plaintext string) (string, error) {
	aead, err := v.aead()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a ciphertext produced by Encrypt.
//
// Returns [shared.ErrDecryptFailed] when the input is empty, malformed, or
// fails the authenticity check (wrong key or corruption).
func (v *Vault) Decrypt(ciphertext string) (string, error) {
	if ciphertext == "" {
		return "", fmt.Errorf("%w: empty ciphertext", shared.ErrDecryptFailed)
	}

	sealed, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: malformed base64: %v", shared.ErrDecryptFailed, err)
	}

	aead, err := v.aead()
	if err != nil {
		return "", err
	}

	if len(sealed) < aead.NonceSize() {
		return "", fmt.Errorf("%w: ciphertext shorter than nonce", shared.ErrDecryptFailed)
	}

	nonce, body := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, body, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrDecryptFailed, err)
	}

	return string(plaintext), nil
}

func (v *Vault) aead() (cipher.AEAD, error) {
	block, err := aes.NewCipher(v.key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return aead, nil
}
