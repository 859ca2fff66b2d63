// keyutils.go: Key utilities for encoding, zeroization, fingerprinting and
// constant-time comparison.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package crypto

import (
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"github.com/minio/sha256-simd"
)

// KeySize is the size in bytes of the keys produced by GenerateKey, an
// AES-256 key.
const KeySize = 32

// KeyToBase64 encodes a key as a base64 string.
//
// Example:
//
//	key, _ := crypto.GenerateKey()
//	fmt.Println("Base64 key:", crypto.KeyToBase64(key))
func KeyToBase64(key []byte) string {
	return base64.StdEncoding.EncodeToString(key)
}

// KeyFromBase64 decodes a base64 string to a key.
//
// Parameters:
//   - s: The base64-encoded string to decode
//
// Returns:
//   - The decoded key as a byte slice
//   - An error wrapping ErrDecode if the base64 decoding fails
func KeyFromBase64(s string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, wrapDecode(err, "failed to decode base64 key")
	}
	return key, nil
}

// KeyToHex encodes a key as a lowercase hexadecimal string.
func KeyToHex(key []byte) string {
	return hex.EncodeToString(key)
}

// KeyFromHex decodes a hexadecimal string to a key. Both uppercase and
// lowercase digits are accepted.
func KeyFromHex(s string) ([]byte, error) {
	key, err := hex.DecodeString(s)
	if err != nil {
		return nil, wrapDecode(err, "failed to decode hex key")
	}
	return key, nil
}

// Zeroize securely wipes a byte slice from memory.
//
// Every context in this package calls it on its key copies when released;
// callers should do the same with their own key buffers.
//
// Example:
//
//	key, _ := crypto.GenerateKey()
//	defer crypto.Zeroize(key)
func Zeroize(b []byte) {
	clearBuffer(b)
}

// GetKeyFingerprint returns a short, non-secret identifier for a key: the
// first 8 bytes of its SHA-256, hex encoded. It returns an empty string for
// an empty key.
//
// Example:
//
//	fmt.Println("Key fingerprint:", crypto.GetKeyFingerprint(key)) // e.g. "a1b2c3d4e5f67890"
func GetKeyFingerprint(key []byte) string {
	if len(key) == 0 {
		return ""
	}
	hash := sha256.Sum256(key)
	return fmt.Sprintf("%016x", hash[:8])
}

// GenerateKey generates a random KeySize-byte key from the combined
// generator.
func GenerateKey() ([]byte, error) {
	return RandomBytes(KeySize)
}

// GenerateNonce generates a random nonce or IV of the given size.
//
// Example:
//
//	nonce, err := crypto.GenerateNonce(12) // 12 bytes is standard for AES-GCM
func GenerateNonce(size int) ([]byte, error) {
	if size <= 0 {
		return nil, errParam("nonce size must be positive, got %d", size)
	}
	return RandomBytes(size)
}

// ConstantTimeEqual reports whether a and b are equal without leaking where
// they differ. Slices of different lengths are never equal.
func ConstantTimeEqual(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}
