// Watchly - Personalized Stremio Recommendation Catalogs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchly

package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// Credential payload encryption:
//   - AES-256-GCM (authenticated encryption)
//   - 12-byte random nonce per seal
//   - Key derived from the token salt using HKDF-SHA256
//   - The record's storage key is bound as additional data, so a payload
//     copied under another key fails to open
const (
	sealingSalt = "watchly-credential-vault"
	sealingInfo = "credential-sealing-v1"

	aesKeySize   = 32
	gcmNonceSize = 12
)

var (
	// ErrEmptyPlaintext is returned when attempting to seal empty data.
	ErrEmptyPlaintext = errors.New("plaintext cannot be empty")

	// ErrDecryptionFailed is returned for tampered payloads or a rotated salt.
	ErrDecryptionFailed = errors.New("decryption failed: invalid ciphertext or authentication tag")

	// ErrInvalidCiphertext is returned when the sealed payload is malformed.
	ErrInvalidCiphertext = errors.New("invalid ciphertext format")
)

type sealer struct {
	aead cipher.AEAD
}

func newSealer(secret string) (*sealer, error) {
	key, err := deriveKey(secret)
	if err != nil {
		return nil, fmt.Errorf("failed to derive encryption key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return &sealer{aead: gcm}, nil
}

// seal returns base64(nonce || ciphertext || tag).
func (s *sealer) seal(plaintext, additionalData []byte) (string, error) {
	if len(plaintext) == 0 {
		return "", ErrEmptyPlaintext
	}
	nonce := make([]byte, gcmNonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed := s.aead.Seal(nonce, nonce, plaintext, additionalData)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (s *sealer) open(encoded string, additionalData []byte) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCiphertext, err)
	}
	if len(data) < gcmNonceSize+1+s.aead.Overhead() {
		return nil, fmt.Errorf("%w: too short", ErrInvalidCiphertext)
	}
	plaintext, err := s.aead.Open(nil, data[:gcmNonceSize], data[gcmNonceSize:], additionalData)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}

func deriveKey(secret string) ([]byte, error) {
	reader := hkdf.New(sha256.New, []byte(secret), []byte(sealingSalt), []byte(sealingInfo))
	key := make([]byte, aesKeySize)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("failed to read HKDF output: %w", err)
	}
	return key, nil
}
