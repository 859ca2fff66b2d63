// keyutils_test.go: Tests for random generation and key utilities.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package crypto_test

import (
	"bytes"
	"io"
	"strings"
	"sync"
	"testing"

	crypto "github.com/agilira/hermetica"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomBytes(t *testing.T) {
	for _, n := range []int{0, 1, 16, 1000, 5000} {
		b, err := crypto.RandomBytes(n)
		require.NoError(t, err)
		assert.Len(t, b, n)
	}

	_, err := crypto.RandomBytes(-1)
	assert.ErrorIs(t, err, crypto.ErrParam)

	a, err := crypto.RandomBytes(32)
	require.NoError(t, err)
	b, err := crypto.RandomBytes(32)
	require.NoError(t, err)
	assert.False(t, bytes.Equal(a, b))
	assert.NotEqual(t, make([]byte, 32), a)
}

func TestReader(t *testing.T) {
	buf := make([]byte, 64)
	n, err := io.ReadFull(crypto.Reader, buf)
	require.NoError(t, err)
	assert.Equal(t, 64, n)
	assert.NotEqual(t, make([]byte, 64), buf)

	n, err = crypto.Reader.Read(nil)
	assert.NoError(t, err)
	assert.Zero(t, n)
}

func TestRandomBytes_Concurrent(t *testing.T) {
	const workers = 8
	results := make([][]byte, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			b, err := crypto.RandomBytes(32)
			if assert.NoError(t, err) {
				results[i] = b
			}
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool)
	for _, r := range results {
		require.Len(t, r, 32)
		assert.False(t, seen[string(r)], "duplicate random output")
		seen[string(r)] = true
	}
}

func TestGenerateKeyAndNonce(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	assert.Len(t, key, crypto.KeySize)

	nonce, err := crypto.GenerateNonce(12)
	require.NoError(t, err)
	assert.Len(t, nonce, 12)

	for _, size := range []int{0, -4} {
		_, err := crypto.GenerateNonce(size)
		assert.ErrorIs(t, err, crypto.ErrParam)
	}
}

func TestKeyEncoding(t *testing.T) {
	key := mustHex(t, "000102030405060708090a0b0c0d0e0f")

	encoded := crypto.KeyToBase64(key)
	assert.Equal(t, "AAECAwQFBgcICQoLDA0ODw==", encoded)
	decoded, err := crypto.KeyFromBase64(encoded)
	require.NoError(t, err)
	assert.Equal(t, key, decoded)

	hexKey := crypto.KeyToHex(key)
	assert.Equal(t, "000102030405060708090a0b0c0d0e0f", hexKey)
	decoded, err = crypto.KeyFromHex(strings.ToUpper(hexKey))
	require.NoError(t, err)
	assert.Equal(t, key, decoded)

	_, err = crypto.KeyFromBase64("not base64!")
	assert.ErrorIs(t, err, crypto.ErrDecode)
	_, err = crypto.KeyFromHex("xyz")
	assert.ErrorIs(t, err, crypto.ErrDecode)
}

func TestGetKeyFingerprint(t *testing.T) {
	assert.Empty(t, crypto.GetKeyFingerprint(nil))

	// first 8 bytes of SHA-256("abc")
	assert.Equal(t, "ba7816bf8f01cfea", crypto.GetKeyFingerprint([]byte("abc")))

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	fp := crypto.GetKeyFingerprint(key)
	assert.Len(t, fp, 16)
	assert.Equal(t, fp, crypto.GetKeyFingerprint(append([]byte(nil), key...)))
}

func TestConstantTimeEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b []byte
		want bool
	}{
		{"equal", []byte("secret"), []byte("secret"), true},
		{"different", []byte("secret"), []byte("secreT"), false},
		{"different length", []byte("secret"), []byte("secrets"), false},
		{"both empty", []byte{}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, crypto.ConstantTimeEqual(tt.a, tt.b))
		})
	}
}

func TestZeroize(t *testing.T) {
	for _, n := range []int{0, 1, 7, 64, 65, 1000} {
		b := bytes.Repeat([]byte{0xAB}, n)
		crypto.Zeroize(b)
		assert.Equal(t, make([]byte, n), b, "n=%d", n)
	}
	crypto.Zeroize(nil)
}
