// cryptor_test.go: Tests for symmetric algorithm descriptors, the cryptor
// state machine and the one-shot block cipher suites.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package crypto_test

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"testing"

	crypto "github.com/agilira/hermetica"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

func randomBytes(t *testing.T, n int) []byte {
	t.Helper()
	b, err := crypto.RandomBytes(n)
	require.NoError(t, err)
	return b
}

// runChunked drives a cryptor with updates of at most chunk bytes.
func runChunked(t *testing.T, c *crypto.Cryptor, data []byte, chunk int) ([]byte, error) {
	t.Helper()
	var out []byte
	for len(data) > 0 {
		n := chunk
		if n > len(data) {
			n = len(data)
		}
		part, err := c.Update(data[:n])
		if err != nil {
			return nil, err
		}
		out = append(out, part...)
		data = data[n:]
	}
	last, err := c.Finalize()
	if err != nil {
		return nil, err
	}
	return append(out, last...), nil
}

var symmetricKeySizes = map[string]int{
	"AES":      16,
	"DES":      8,
	"3DES":     24,
	"CAST":     16,
	"RC2":      16,
	"Blowfish": 16,
	"RC4":      16,
}

// TestAlgorithm_ValidateKey checks the accepted key sizes of every algorithm.
func TestAlgorithm_ValidateKey(t *testing.T) {
	tests := []struct {
		alg   crypto.Algorithm
		valid []int
		bad   []int
	}{
		{crypto.AES, []int{16, 24, 32}, []int{0, 15, 17, 31, 33}},
		{crypto.DES, []int{8}, []int{7, 9, 16}},
		{crypto.TripleDES, []int{24}, []int{8, 16, 23}},
		{crypto.CAST, []int{16}, []int{5, 15, 17}},
		{crypto.RC2, []int{1, 16, 128}, []int{0, 129}},
		{crypto.Blowfish, []int{8, 32, 56}, []int{7, 57}},
		{crypto.RC4, []int{1, 16, 256}, []int{0, 257}},
	}
	for _, tt := range tests {
		t.Run(tt.alg.String(), func(t *testing.T) {
			for _, n := range tt.valid {
				assert.NoError(t, tt.alg.ValidateKey(make([]byte, n)), "size %d", n)
			}
			for _, n := range tt.bad {
				assert.ErrorIs(t, tt.alg.ValidateKey(make([]byte, n)), crypto.ErrInvalidKey, "size %d", n)
			}
		})
	}
}

// TestAlgorithm_BlockSize covers block sizes and null IVs.
func TestAlgorithm_BlockSize(t *testing.T) {
	tests := []struct {
		alg  crypto.Algorithm
		size int
	}{
		{crypto.AES, 16},
		{crypto.DES, 8},
		{crypto.TripleDES, 8},
		{crypto.CAST, 8},
		{crypto.RC2, 8},
		{crypto.Blowfish, 8},
	}
	for _, tt := range tests {
		size, err := tt.alg.BlockSize()
		require.NoError(t, err)
		assert.Equal(t, tt.size, size)

		iv, err := tt.alg.NullIV()
		require.NoError(t, err)
		assert.Equal(t, make([]byte, tt.size), iv)
		assert.False(t, tt.alg.IsStream())
	}

	assert.True(t, crypto.RC4.IsStream())
	_, err := crypto.RC4.BlockSize()
	assert.ErrorIs(t, err, crypto.ErrParam)
	_, err = crypto.RC4.NullIV()
	assert.ErrorIs(t, err, crypto.ErrParam)
}

// TestCryptor_KnownAnswers checks published single-block vectors.
func TestCryptor_KnownAnswers(t *testing.T) {
	aesKey := "2b7e151628aed2a6abf7158809cf4f3c"
	aesIV := "000102030405060708090a0b0c0d0e0f"
	aesPlain := "6bc1bee22e409f96e93d7e117393172a"

	tests := []struct {
		name   string
		mode   crypto.Mode
		alg    crypto.Algorithm
		key    string
		iv     string
		plain  string
		cipher string
	}{
		{"AES-ECB SP800-38A F.1.1", crypto.ModeECB, crypto.AES, aesKey, "", aesPlain, "3ad77bb40d7a3660a89ecaf32466ef97"},
		{"AES-CBC SP800-38A F.2.1", crypto.ModeCBC, crypto.AES, aesKey, aesIV, aesPlain, "7649abac8119b246cee98e9b12e9197d"},
		{"AES-CFB SP800-38A F.3.13", crypto.ModeCFB, crypto.AES, aesKey, aesIV, aesPlain, "3b3fd92eb72dad20333449f8e83cfb4a"},
		{"AES-CFB8 SP800-38A F.3.7", crypto.ModeCFB8, crypto.AES, aesKey, aesIV, "6bc1bee22e409f96e93d7e117393172aae2d", "3b79424c9c0dd436bace9e0ed4586a4f32b9"},
		{"AES-OFB SP800-38A F.4.1", crypto.ModeOFB, crypto.AES, aesKey, aesIV, aesPlain, "3b3fd92eb72dad20333449f8e83cfb4a"},
		{"AES-CTR SP800-38A F.5.1", crypto.ModeCTR, crypto.AES, aesKey, "f0f1f2f3f4f5f6f7f8f9fafbfcfdfeff", aesPlain, "874d6191b620e3261bef6864990db6ce"},
		{"DES-ECB", crypto.ModeECB, crypto.DES, "133457799bbcdff1", "", "0123456789abcdef", "85e813540f0ab405"},
		{"Blowfish-ECB zero key", crypto.ModeECB, crypto.Blowfish, "0000000000000000", "", "0000000000000000", "4ef997456198dd78"},
		{"RC4", crypto.ModeRC4, crypto.RC4, hex.EncodeToString([]byte("Key")), "", hex.EncodeToString([]byte("Plaintext")), "bbf316e8d940af0ad3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var iv []byte
			if tt.iv != "" {
				iv = mustHex(t, tt.iv)
			}
			enc, err := crypto.NewCryptor(crypto.Encrypt, tt.mode, tt.alg, crypto.PaddingNone, mustHex(t, tt.key), iv)
			require.NoError(t, err)
			defer enc.Release()

			out, err := runChunked(t, enc, mustHex(t, tt.plain), 1024)
			require.NoError(t, err)
			assert.Equal(t, tt.cipher, hex.EncodeToString(out))

			dec, err := crypto.NewCryptor(crypto.Decrypt, tt.mode, tt.alg, crypto.PaddingNone, mustHex(t, tt.key), iv)
			require.NoError(t, err)
			defer dec.Release()

			back, err := runChunked(t, dec, out, 3)
			require.NoError(t, err)
			assert.Equal(t, tt.plain, hex.EncodeToString(back))
		})
	}
}

// TestCryptor_RoundTrip exercises every algorithm, mode and padding with
// several message lengths and chunkings.
func TestCryptor_RoundTrip(t *testing.T) {
	blockAlgs := []crypto.Algorithm{crypto.AES, crypto.DES, crypto.TripleDES, crypto.CAST, crypto.RC2, crypto.Blowfish}
	type combo struct {
		alg     crypto.Algorithm
		mode    crypto.Mode
		padding crypto.Padding
	}
	var combos []combo
	for _, alg := range blockAlgs {
		combos = append(combos,
			combo{alg, crypto.ModeECB, crypto.PaddingNone},
			combo{alg, crypto.ModeECB, crypto.PaddingPKCS7},
			combo{alg, crypto.ModeCBC, crypto.PaddingNone},
			combo{alg, crypto.ModeCBC, crypto.PaddingPKCS7},
			combo{alg, crypto.ModeCFB, crypto.PaddingNone},
			combo{alg, crypto.ModeCFB8, crypto.PaddingNone},
			combo{alg, crypto.ModeCTR, crypto.PaddingNone},
			combo{alg, crypto.ModeOFB, crypto.PaddingNone},
		)
	}
	combos = append(combos, combo{crypto.RC4, crypto.ModeRC4, crypto.PaddingNone})

	for _, cb := range combos {
		name := fmt.Sprintf("%s-%s-%s", cb.alg, cb.mode, cb.padding)
		t.Run(name, func(t *testing.T) {
			key := randomBytes(t, symmetricKeySizes[cb.alg.String()])
			var iv []byte
			bs := 1
			if !cb.alg.IsStream() {
				bs, _ = cb.alg.BlockSize()
				if cb.mode != crypto.ModeECB {
					iv = randomBytes(t, bs)
				}
			}

			lengths := []int{0, 1, bs, 37, 3*bs + 5}
			if (cb.mode == crypto.ModeECB || cb.mode == crypto.ModeCBC) && cb.padding == crypto.PaddingNone {
				lengths = []int{0, bs, 4 * bs}
			}

			for _, n := range lengths {
				plain := randomBytes(t, n)

				enc, err := crypto.NewCryptor(crypto.Encrypt, cb.mode, cb.alg, cb.padding, key, iv)
				require.NoError(t, err)
				whole, err := runChunked(t, enc, plain, 1<<20)
				require.NoError(t, err)
				require.NoError(t, enc.Release())

				if cb.padding == crypto.PaddingPKCS7 {
					assert.Equal(t, (n/bs+1)*bs, len(whole), "padded length for %d bytes", n)
				} else {
					assert.Equal(t, n, len(whole))
				}

				for _, chunk := range []int{1, 7, 1 << 20} {
					enc, err := crypto.NewCryptor(crypto.Encrypt, cb.mode, cb.alg, cb.padding, key, iv)
					require.NoError(t, err)
					chunked, err := runChunked(t, enc, plain, chunk)
					require.NoError(t, err)
					require.NoError(t, enc.Release())
					assert.True(t, bytes.Equal(whole, chunked), "chunk %d changed the ciphertext", chunk)

					dec, err := crypto.NewCryptor(crypto.Decrypt, cb.mode, cb.alg, cb.padding, key, iv)
					require.NoError(t, err)
					back, err := runChunked(t, dec, whole, chunk)
					require.NoError(t, err)
					require.NoError(t, dec.Release())
					assert.True(t, bytes.Equal(plain, back), "round trip failed for %d bytes, chunk %d", n, chunk)
				}
			}
		})
	}
}

// TestCryptor_Lifecycle verifies the state machine transitions.
func TestCryptor_Lifecycle(t *testing.T) {
	key := randomBytes(t, 16)
	iv := randomBytes(t, 16)

	c, err := crypto.NewCryptor(crypto.Encrypt, crypto.ModeCTR, crypto.AES, crypto.PaddingNone, key, iv)
	require.NoError(t, err)
	assert.Equal(t, crypto.Encrypt, c.Operation())
	assert.Equal(t, crypto.ModeCTR, c.Mode())
	assert.Equal(t, "AES", c.Algorithm().String())
	assert.Equal(t, crypto.PaddingNone, c.Padding())

	_, err = c.Update([]byte("hello"))
	require.NoError(t, err)
	last, err := c.Finalize()
	require.NoError(t, err)
	assert.Empty(t, last)

	_, err = c.Update([]byte("more"))
	assert.ErrorIs(t, err, crypto.ErrInvalidState)
	_, err = c.Finalize()
	assert.ErrorIs(t, err, crypto.ErrInvalidState)

	require.NoError(t, c.Release())
	assert.ErrorIs(t, c.Release(), crypto.ErrInvalidState)
	_, err = c.Update([]byte("after release"))
	assert.ErrorIs(t, err, crypto.ErrInvalidState)

	// Finalize straight after creation is allowed.
	c2, err := crypto.NewCryptor(crypto.Encrypt, crypto.ModeCBC, crypto.AES, crypto.PaddingPKCS7, key, iv)
	require.NoError(t, err)
	out, err := c2.Finalize()
	require.NoError(t, err)
	assert.Len(t, out, 16)
	require.NoError(t, c2.Release())

	// Release without Finalize is allowed too.
	c3, err := crypto.NewCryptor(crypto.Decrypt, crypto.ModeOFB, crypto.AES, crypto.PaddingNone, key, iv)
	require.NoError(t, err)
	require.NoError(t, c3.Release())
	_, err = c3.Finalize()
	assert.ErrorIs(t, err, crypto.ErrInvalidState)
}

// TestNewCryptor_InvalidParameters covers creation-time validation.
func TestNewCryptor_InvalidParameters(t *testing.T) {
	key16 := make([]byte, 16)
	iv16 := make([]byte, 16)

	tests := []struct {
		name    string
		op      crypto.Operation
		mode    crypto.Mode
		alg     crypto.Algorithm
		padding crypto.Padding
		key     []byte
		iv      []byte
		want    error
	}{
		{"unknown operation", crypto.Operation(9), crypto.ModeCBC, crypto.AES, crypto.PaddingNone, key16, iv16, crypto.ErrParam},
		{"GCM needs AEAD cryptor", crypto.Encrypt, crypto.ModeGCM, crypto.AES, crypto.PaddingNone, key16, iv16, crypto.ErrParam},
		{"CCM needs AEAD cryptor", crypto.Encrypt, crypto.ModeCCM, crypto.AES, crypto.PaddingNone, key16, iv16, crypto.ErrParam},
		{"unknown mode", crypto.Encrypt, crypto.Mode(42), crypto.AES, crypto.PaddingNone, key16, iv16, crypto.ErrParam},
		{"empty algorithm", crypto.Encrypt, crypto.ModeCBC, crypto.Algorithm{}, crypto.PaddingNone, key16, iv16, crypto.ErrParam},
		{"RC4 algorithm in block mode", crypto.Encrypt, crypto.ModeCBC, crypto.RC4, crypto.PaddingNone, key16, iv16, crypto.ErrParam},
		{"block algorithm in RC4 mode", crypto.Encrypt, crypto.ModeRC4, crypto.AES, crypto.PaddingNone, key16, nil, crypto.ErrParam},
		{"unknown padding", crypto.Encrypt, crypto.ModeCBC, crypto.AES, crypto.Padding(7), key16, iv16, crypto.ErrParam},
		{"padding with stream mode", crypto.Encrypt, crypto.ModeCTR, crypto.AES, crypto.PaddingPKCS7, key16, iv16, crypto.ErrParam},
		{"bad AES key", crypto.Encrypt, crypto.ModeCBC, crypto.AES, crypto.PaddingNone, make([]byte, 10), iv16, crypto.ErrInvalidKey},
		{"bad DES key", crypto.Decrypt, crypto.ModeECB, crypto.DES, crypto.PaddingNone, key16, nil, crypto.ErrInvalidKey},
		{"short IV", crypto.Encrypt, crypto.ModeCBC, crypto.AES, crypto.PaddingNone, key16, make([]byte, 8), crypto.ErrParam},
		{"missing IV", crypto.Encrypt, crypto.ModeOFB, crypto.AES, crypto.PaddingNone, key16, nil, crypto.ErrParam},
		{"ECB with IV", crypto.Encrypt, crypto.ModeECB, crypto.AES, crypto.PaddingNone, key16, iv16, crypto.ErrParam},
		{"RC4 with IV", crypto.Encrypt, crypto.ModeRC4, crypto.RC4, crypto.PaddingNone, key16, iv16, crypto.ErrParam},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := crypto.NewCryptor(tt.op, tt.mode, tt.alg, tt.padding, tt.key, tt.iv)
			assert.Nil(t, c)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

// TestCryptor_BlockAlignment checks buffering and the no-padding length rules.
func TestCryptor_BlockAlignment(t *testing.T) {
	key := randomBytes(t, 16)
	iv := randomBytes(t, 16)

	enc, err := crypto.NewCryptor(crypto.Encrypt, crypto.ModeCBC, crypto.AES, crypto.PaddingNone, key, iv)
	require.NoError(t, err)
	defer enc.Release()

	out, err := enc.Update(make([]byte, 10))
	require.NoError(t, err)
	assert.Empty(t, out, "partial block must be buffered")
	out, err = enc.Update(make([]byte, 10))
	require.NoError(t, err)
	assert.Len(t, out, 16)
	_, err = enc.Finalize()
	assert.ErrorIs(t, err, crypto.ErrParam, "4 leftover bytes without padding")
}

// TestCryptor_PaddingErrors covers malformed PKCS#7 input on decrypt.
func TestCryptor_PaddingErrors(t *testing.T) {
	key := randomBytes(t, 16)
	iv := randomBytes(t, 16)

	t.Run("zero pad byte", func(t *testing.T) {
		// A plaintext block ending in 0x00 never carries valid padding.
		ct, err := crypto.CBC(crypto.AES, key, iv, crypto.PaddingNone).Encrypt(make([]byte, 16))
		require.NoError(t, err)
		_, err = crypto.CBC(crypto.AES, key, iv, crypto.PaddingPKCS7).Decrypt(ct)
		assert.ErrorIs(t, err, crypto.ErrPadding)
	})

	t.Run("pad byte larger than block", func(t *testing.T) {
		block := bytes.Repeat([]byte{0x11}, 16)
		ct, err := crypto.ECB(crypto.AES, key, crypto.PaddingNone).Encrypt(block)
		require.NoError(t, err)
		_, err = crypto.ECB(crypto.AES, key, crypto.PaddingPKCS7).Decrypt(ct)
		assert.ErrorIs(t, err, crypto.ErrPadding)
	})

	t.Run("empty ciphertext", func(t *testing.T) {
		_, err := crypto.CBC(crypto.AES, key, iv, crypto.PaddingPKCS7).Decrypt(nil)
		assert.ErrorIs(t, err, crypto.ErrPadding)
	})

	t.Run("unaligned ciphertext", func(t *testing.T) {
		_, err := crypto.CBC(crypto.AES, key, iv, crypto.PaddingPKCS7).Decrypt(make([]byte, 20))
		assert.ErrorIs(t, err, crypto.ErrParam)
	})

	t.Run("decrypt holds back the padding block", func(t *testing.T) {
		suite := crypto.CBC(crypto.AES, key, iv, crypto.PaddingPKCS7)
		ct, err := suite.Encrypt(make([]byte, 32))
		require.NoError(t, err)
		require.Len(t, ct, 48)

		dec, err := suite.NewDecryptor()
		require.NoError(t, err)
		defer dec.Release()
		out, err := dec.Update(ct)
		require.NoError(t, err)
		assert.Len(t, out, 32)
		last, err := dec.Finalize()
		require.NoError(t, err)
		assert.Empty(t, last)
	})
}

// TestBlockCipherSuites checks the one-shot constructors against the cryptor.
func TestBlockCipherSuites(t *testing.T) {
	key := randomBytes(t, 32)
	iv := randomBytes(t, 16)
	plain := []byte("the quick brown fox jumps over the lazy dog")

	suites := []crypto.BlockCipher{
		crypto.ECB(crypto.AES, key, crypto.PaddingPKCS7),
		crypto.CBC(crypto.AES, key, iv, crypto.PaddingPKCS7),
		crypto.CFB(crypto.AES, key, iv),
		crypto.CFB8(crypto.AES, key, iv),
		crypto.CTR(crypto.AES, key, iv),
		crypto.OFB(crypto.AES, key, iv),
	}
	for _, s := range suites {
		t.Run(s.Mode().String(), func(t *testing.T) {
			assert.Equal(t, "AES", s.Algorithm().String())
			ct, err := s.Encrypt(plain)
			require.NoError(t, err)
			assert.NotEqual(t, plain, ct[:len(plain)])

			back, err := s.Decrypt(ct)
			require.NoError(t, err)
			assert.Equal(t, plain, back)
		})
	}

	_, err := crypto.CBC(crypto.AES, key, nil, crypto.PaddingPKCS7).Encrypt(plain)
	assert.ErrorIs(t, err, crypto.ErrParam)
}

// TestRC4 checks the RC4 helpers.
func TestRC4(t *testing.T) {
	ct, err := crypto.RC4Encrypt([]byte("Key"), []byte("Plaintext"))
	require.NoError(t, err)
	assert.Equal(t, "bbf316e8d940af0ad3", hex.EncodeToString(ct))

	back, err := crypto.RC4Decrypt([]byte("Key"), ct)
	require.NoError(t, err)
	assert.Equal(t, "Plaintext", string(back))

	_, err = crypto.RC4Encrypt(nil, []byte("x"))
	assert.ErrorIs(t, err, crypto.ErrInvalidKey)
}

// TestModeAndPaddingNames checks the String methods.
func TestModeAndPaddingNames(t *testing.T) {
	assert.Equal(t, "CFB8", crypto.ModeCFB8.String())
	assert.Equal(t, "unknown", crypto.Mode(99).String())
	assert.Equal(t, "PKCS7", crypto.PaddingPKCS7.String())
	assert.Equal(t, "none", crypto.PaddingNone.String())
	assert.Equal(t, "decrypt", crypto.Decrypt.String())
	assert.Equal(t, "3DES", crypto.TripleDES.String())
}

// TestCryptor_RoundTripAllLengths sweeps every plaintext length up to 4096
// bytes through a padded and a streaming mode.
func TestCryptor_RoundTripAllLengths(t *testing.T) {
	key := randomBytes(t, 16)
	iv := randomBytes(t, 16)
	suites := map[string]crypto.BlockCipher{
		"CBC-PKCS7": crypto.CBC(crypto.AES, key, iv, crypto.PaddingPKCS7),
		"CTR":       crypto.CTR(crypto.AES, key, iv),
	}
	data := randomBytes(t, 4096)

	for name, suite := range suites {
		t.Run(name, func(t *testing.T) {
			for n := 0; n <= len(data); n++ {
				ct, err := suite.Encrypt(data[:n])
				require.NoError(t, err, "n=%d", n)
				pt, err := suite.Decrypt(ct)
				require.NoError(t, err, "n=%d", n)
				if !bytes.Equal(data[:n], pt) {
					t.Fatalf("round trip mismatch at length %d", n)
				}
			}
		})
	}
}
