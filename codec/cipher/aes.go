// Copyright (C) 2025, Corticalmesh Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package cipher implements the Aes256 encryption scheme of spec.md §3
// via stdlib crypto/aes + crypto/cipher (AES-256-GCM). No example repo in
// the retrieved pack vendors a third-party AEAD wrapper — the teacher's
// own crypto/ and ringtail/ trees are post-quantum signature packages
// with no symmetric-AEAD counterpart — so this one component is built
// directly on the standard library rather than an ecosystem dependency
// (see DESIGN.md).
package cipher

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"
)

// KeySize is the AES-256 key length in bytes.
const KeySize = 32

// Seal encrypts plaintext with a random nonce prepended to the output,
// authenticating additionalData without encrypting it.
func Seal(key, plaintext, additionalData []byte) ([]byte, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("cipher: aes256 requires a %d-byte key, got %d", KeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("cipher: new aes cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cipher: new gcm: %w", err)
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("cipher: nonce: %w", err)
	}
	return gcm.Seal(nonce, nonce, plaintext, additionalData), nil
}

// Open reverses Seal.
func Open(key, ciphertext, additionalData []byte) ([]byte, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("cipher: aes256 requires a %d-byte key, got %d", KeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("cipher: new aes cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cipher: new gcm: %w", err)
	}
	if len(ciphertext) < gcm.NonceSize() {
		return nil, fmt.Errorf("cipher: ciphertext shorter than nonce")
	}
	nonce, sealed := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	return gcm.Open(nil, nonce, sealed, additionalData)
}
