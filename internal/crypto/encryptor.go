// Package crypto provides AES-256-GCM encryption for values written to
// persistent storage, such as a refresh token kept across restarts in
// development mode.
//
// Each value is bound to the storage key it was written under (passed as GCM
// additional data), so a ciphertext copied to a different key fails to open.
//
// Example usage:
//
//	enc, err := crypto.NewEncryptor(os.Getenv("STORAGE_ENCRYPTION_KEY"))
//	if err != nil {
//		log.Fatal(err)
//	}
//	sealed, err := enc.Seal("workos:refresh-token", refreshToken)
//	...
//	plain, err := enc.Open("workos:refresh-token", sealed)
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"io"

	"golang.org/x/crypto/pbkdf2"

	"authkit-session/internal/common/errors"
)

const (
	keySalt       = "authkit-session-storage"
	keyIterations = 10000
)

// Encryptor seals and opens values with AES-256-GCM.
//
// The encryptor is safe for concurrent use by multiple goroutines.
type Encryptor struct {
	aead cipher.AEAD
}

// NewEncryptor derives a 32-byte AES key from passphrase with PBKDF2-SHA256.
// The passphrase must not be empty.
func NewEncryptor(passphrase string) (*Encryptor, error) {
	if passphrase == "" {
		return nil, errors.ValidationError("encryption key cannot be empty")
	}

	derivedKey := pbkdf2.Key([]byte(passphrase), []byte(keySalt), keyIterations, 32, sha256.New)

	block, err := aes.NewCipher(derivedKey)
	if err != nil {
		return nil, errors.InternalError("failed to create cipher", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, errors.InternalError("failed to create GCM", err)
	}

	return &Encryptor{aead: aead}, nil
}

// Seal encrypts plaintext for storage under key and returns base64 text.
// Empty plaintext is stored as an empty string.
func (e *Encryptor) Seal(key, plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	nonce := make([]byte, e.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", errors.InternalError("failed to create nonce", err)
	}

	sealed := e.aead.Seal(nonce, nonce, []byte(plaintext), []byte(key))
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Open decrypts a value produced by Seal for the same key. Tampered data,
// a different key name or a different passphrase all fail.
func (e *Encryptor) Open(key, ciphertext string) (string, error) {
	if ciphertext == "" {
		return "", nil
	}

	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", errors.InternalError("failed to decode ciphertext", err)
	}

	nonceSize := e.aead.NonceSize()
	if len(data) < nonceSize {
		return "", errors.ValidationError("ciphertext too short")
	}

	plaintext, err := e.aead.Open(nil, data[:nonceSize], data[nonceSize:], []byte(key))
	if err != nil {
		return "", errors.InternalError("failed to decrypt", err)
	}
	return string(plaintext), nil
}
