// Package secret decrypts the stored HR credential. Credentials are kept
// as base64(nonce || AES-GCM ciphertext); the key comes from configuration
// and never touches the settings store or the logs.
package secret

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"errors"
	"fmt"
)

// AESGCM decrypts credentials sealed with a 256-bit AES-GCM key.
type AESGCM struct {
	aead cipher.AEAD
}

// NewAESGCM builds a decrypter from a base64-encoded 32-byte key.
func NewAESGCM(keyB64 string) (*AESGCM, error) {
	key, err := base64.StdEncoding.DecodeString(keyB64)
	if err != nil {
		return nil, fmt.Errorf("decode secret key: %w", err)
	}
	if len(key) != 32 {
		return nil, errors.New("secret key must be 32 bytes")
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &AESGCM{aead: aead}, nil
}

func (a *AESGCM) Decrypt(ciphertext string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("decode credential: %w", err)
	}
	if len(raw) < a.aead.NonceSize() {
		return "", errors.New("credential ciphertext too short")
	}
	nonce, sealed := raw[:a.aead.NonceSize()], raw[a.aead.NonceSize():]
	plain, err := a.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("decrypt credential: %w", err)
	}
	return string(plain), nil
}

// Seal encrypts a plaintext credential. It exists for operators preparing
// configuration, not for the engine's runtime path.
func (a *AESGCM) Seal(plaintext string, nonce []byte) (string, error) {
	if len(nonce) != a.aead.NonceSize() {
		return "", errors.New("nonce has wrong size")
	}
	sealed := a.aead.Seal(nil, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(append(append([]byte(nil), nonce...), sealed...)), nil
}

// Plaintext passes credentials through unchanged, for local development.
type Plaintext struct{}

func (Plaintext) Decrypt(ciphertext string) (string, error) { return ciphertext, nil }
