// cfb8.go: 8-bit cipher feedback mode.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package blockmode

import "crypto/cipher"

type cfb8 struct {
	b        cipher.Block
	register []byte
	out      []byte
	decrypt  bool
}

// NewCFB8Encrypter returns a Stream which encrypts with 8-bit cipher feedback.
// The iv must be one block long.
func NewCFB8Encrypter(b cipher.Block, iv []byte) cipher.Stream {
	return newCFB8(b, iv, false)
}

// NewCFB8Decrypter returns a Stream which decrypts with 8-bit cipher feedback.
// The iv must be one block long.
func NewCFB8Decrypter(b cipher.Block, iv []byte) cipher.Stream {
	return newCFB8(b, iv, true)
}

func newCFB8(b cipher.Block, iv []byte, decrypt bool) cipher.Stream {
	if len(iv) != b.BlockSize() {
		panic("blockmode: IV length must equal block size")
	}
	register := make([]byte, len(iv))
	copy(register, iv)
	return &cfb8{
		b:        b,
		register: register,
		out:      make([]byte, len(iv)),
		decrypt:  decrypt,
	}
}

func (x *cfb8) XORKeyStream(dst, src []byte) {
	if len(dst) < len(src) {
		panic("blockmode: output smaller than input")
	}
	last := len(x.register) - 1
	for i, in := range src {
		x.b.Encrypt(x.out, x.register)
		c := in ^ x.out[0]
		dst[i] = c
		// feedback is always the ciphertext byte
		copy(x.register, x.register[1:])
		if x.decrypt {
			x.register[last] = in
		} else {
			x.register[last] = c
		}
	}
}
