// Package vault encrypts platform credentials before they reach the
// database. Every stored token passes through here; nothing else in the
// codebase touches the raw key material.
package vault

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/sellerpulse/backend/internal/domain/shared"
)

// Vault seals and opens credential strings with XChaCha20-Poly1305.
// Blobs are base64(nonce || tag || ciphertext), so each field is
// self-contained and a fresh random nonce is used per encryption.
type Vault struct {
	key []byte
}

// New creates a Vault from a 32-byte key. Callers obtain the key from
// config.VaultConfig.KeyBytes, which has already validated its shape.
func New(key []byte) (*Vault, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("vault key must be %d bytes, got %d", chacha20poly1305.KeySize, len(key))
	}
	v := &Vault{key: make([]byte, len(key))}
	copy(v.key, key)
	return v, nil
}

// Encrypt seals plaintext and returns an opaque blob safe to store
func (v *Vault) Encrypt(plaintext string) (string, error) {
	aead, err := chacha20poly1305.NewX(v.key)
	if err != nil {
		return "", fmt.Errorf("init cipher: %w", err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	// Seal returns ciphertext||tag; the stored layout is nonce||tag||ciphertext
	sealed := aead.Seal(nil, nonce, []byte(plaintext), nil)
	tagStart := len(sealed) - aead.Overhead()

	blob := make([]byte, 0, len(nonce)+len(sealed))
	blob = append(blob, nonce...)
	blob = append(blob, sealed[tagStart:]...)
	blob = append(blob, sealed[:tagStart]...)

	return base64.StdEncoding.EncodeToString(blob), nil
}

// Decrypt opens a blob produced by Encrypt. Any malformed or tampered
// blob yields shared.ErrIntegrity; the caller treats the credential as
// unusable and never retries.
func (v *Vault) Decrypt(blob string) (string, error) {
	aead, err := chacha20poly1305.NewX(v.key)
	if err != nil {
		return "", fmt.Errorf("init cipher: %w", err)
	}

	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return "", shared.ErrIntegrity
	}
	if len(raw) < aead.NonceSize()+aead.Overhead() {
		return "", shared.ErrIntegrity
	}

	nonce := raw[:aead.NonceSize()]
	tag := raw[aead.NonceSize() : aead.NonceSize()+aead.Overhead()]
	ciphertext := raw[aead.NonceSize()+aead.Overhead():]

	sealed := make([]byte, 0, len(ciphertext)+len(tag))
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", shared.ErrIntegrity
	}
	return string(plaintext), nil
}
