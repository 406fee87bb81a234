// Package vault seals account auth tokens at rest using NaCl secretbox.
package vault

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/nacl/secretbox"
)

const keySize = 32

var (
	// ErrInvalidKey is returned when the configured key does not decode to
	// 32 bytes.
	ErrInvalidKey = errors.New("vault: key must be 32 bytes, base64-encoded")

	// ErrCiphertext is returned when a sealed value cannot be opened.
	ErrCiphertext = errors.New("vault: cannot open sealed value")
)

// Vault seals and opens secrets with a fixed symmetric key.
type Vault struct {
	key [keySize]byte
}

// New builds a vault from a base64-encoded 32-byte key.
func New(encodedKey string) (*Vault, error) {
	raw, err := base64.StdEncoding.DecodeString(encodedKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	if len(raw) != keySize {
		return nil, ErrInvalidKey
	}

	v := &Vault{}
	copy(v.key[:], raw)
	return v, nil
}

// GenerateKey returns a fresh base64-encoded key suitable for New.
func GenerateKey() (string, error) {
	key := make([]byte, keySize)
	if _, err := rand.Read(key); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(key), nil
}

// Seal encrypts plaintext and returns a base64 string with the nonce
// prepended.
func (v *Vault) Seal(plaintext string) (string, error) {
	var nonce [24]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return "", err
	}

	sealed := secretbox.Seal(nonce[:], []byte(plaintext), &nonce, &v.key)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Open decrypts a value produced by Seal.
func (v *Vault) Open(sealed string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCiphertext, err)
	}
	if len(raw) < 24 {
		return "", ErrCiphertext
	}

	var nonce [24]byte
	copy(nonce[:], raw[:24])

	plaintext, ok := secretbox.Open(nil, raw[24:], &nonce, &v.key)
	if !ok {
		return "", ErrCiphertext
	}
	return string(plaintext), nil
}

// Mask returns a display form of a secret: the first and last four
// characters with the middle elided. Short secrets are fully masked.
func Mask(secret string) string {
	if len(secret) <= 8 {
		return "********"
	}
	return secret[:4] + "..." + secret[len(secret)-4:]
}
