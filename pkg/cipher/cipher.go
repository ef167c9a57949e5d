// Package cipher seals small JSON values into opaque strings so multi-step
// flows (registration) can hand server context through the client without
// it being altered undetected.
//
// The default passphrase is static and ships with the SDK: sealed values are
// tamper-evident, not confidential. Never seal secrets with it.
package cipher

import (
	gocipher "crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"
)

const defaultPassphrase = "system-manager/registration-context/v1"

// scrypt parameters; the salt is fixed so every SDK instance derives the
// same key from the same passphrase
const (
	kdfN = 1 << 15
	kdfR = 8
	kdfP = 1
)

var kdfSalt = []byte("sysmanager.cipher")

// ErrTampered is returned when a sealed value cannot be authenticated
var ErrTampered = errors.New("cipher: sealed value is invalid or was modified")

var (
	defaultOnce   sync.Once
	defaultCipher *Cipher
)

// Cipher seals and opens JSON values with XChaCha20-Poly1305
type Cipher struct {
	aead gocipher.AEAD
}

// New derives a key from passphrase and returns a ready Cipher
func New(passphrase string) (*Cipher, error) {
	if passphrase == "" {
		return nil, errors.New("cipher: passphrase is required")
	}

	key, err := scrypt.Key([]byte(passphrase), kdfSalt, kdfN, kdfR, kdfP, chacha20poly1305.KeySize)
	if err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	return &Cipher{aead: aead}, nil
}

// Default returns the process-wide cipher keyed by the built-in passphrase
func Default() *Cipher {
	defaultOnce.Do(func() {
		c, err := New(defaultPassphrase)
		if err != nil {
			panic(fmt.Sprintf("cipher: default key derivation failed: %v", err))
		}
		defaultCipher = c
	})
	return defaultCipher
}

// Seal JSON encodes v and encrypts it. The result is URL safe.
func (c *Cipher) Seal(v any) (string, error) {
	plaintext, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode value: %w", err)
	}

	nonce := make([]byte, c.aead.NonceSize(), c.aead.NonceSize()+len(plaintext)+c.aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	// Prepend nonce to ciphertext
	sealed := c.aead.Seal(nonce, nonce, plaintext, nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Open authenticates and decrypts sealed, then decodes the JSON into out
func (c *Cipher) Open(sealed string, out any) error {
	raw, err := base64.RawURLEncoding.DecodeString(sealed)
	if err != nil {
		return ErrTampered
	}

	if len(raw) < c.aead.NonceSize()+c.aead.Overhead() {
		return ErrTampered
	}

	nonce, ciphertext := raw[:c.aead.NonceSize()], raw[c.aead.NonceSize():]
	plaintext, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return ErrTampered
	}

	if err := json.Unmarshal(plaintext, out); err != nil {
		return fmt.Errorf("failed to decode sealed value: %w", err)
	}
	return nil
}

// OpenMap opens sealed into a generic object, returning an empty map when
// the value is invalid. Use Open when failure must be told apart from an
// empty payload.
func (c *Cipher) OpenMap(sealed string) map[string]any {
	out := map[string]any{}
	if err := c.Open(sealed, &out); err != nil || out == nil {
		return map[string]any{}
	}
	return out
}
