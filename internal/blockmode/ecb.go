// ecb.go: Electronic codebook mode.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package blockmode

import "crypto/cipher"

type ecb struct {
	b       cipher.Block
	size    int
	decrypt bool
}

// NewECBEncrypter returns a BlockMode which encrypts each block independently.
func NewECBEncrypter(b cipher.Block) cipher.BlockMode {
	return &ecb{b: b, size: b.BlockSize()}
}

// NewECBDecrypter returns a BlockMode which decrypts each block independently.
func NewECBDecrypter(b cipher.Block) cipher.BlockMode {
	return &ecb{b: b, size: b.BlockSize(), decrypt: true}
}

func (x *ecb) BlockSize() int { return x.size }

func (x *ecb) CryptBlocks(dst, src []byte) {
	if len(src)%x.size != 0 {
		panic("blockmode: input not full blocks")
	}
	if len(dst) < len(src) {
		panic("blockmode: output smaller than input")
	}
	for len(src) > 0 {
		if x.decrypt {
			x.b.Decrypt(dst[:x.size], src[:x.size])
		} else {
			x.b.Encrypt(dst[:x.size], src[:x.size])
		}
		src = src[x.size:]
		dst = dst[x.size:]
	}
}
