// ctr32.go: Counter mode incrementing only the low 32 bits of the counter block.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package blockmode

import (
	"crypto/cipher"
	"encoding/binary"
)

type ctr32 struct {
	b       cipher.Block
	counter []byte
	stream  []byte
	used    int
}

// NewCTR32 returns a Stream whose counter block starts at counter and whose
// low 32 bits wrap modulo 2^32, as GCM's inc32 does. crypto/cipher.NewCTR
// carries into the upper bytes instead.
func NewCTR32(b cipher.Block, counter []byte) cipher.Stream {
	if len(counter) != b.BlockSize() || len(counter) < 4 {
		panic("blockmode: counter length must equal block size")
	}
	c := make([]byte, len(counter))
	copy(c, counter)
	return &ctr32{
		b:       b,
		counter: c,
		stream:  make([]byte, len(counter)),
		used:    len(counter),
	}
}

func (x *ctr32) refill() {
	x.b.Encrypt(x.stream, x.counter)
	tail := x.counter[len(x.counter)-4:]
	binary.BigEndian.PutUint32(tail, binary.BigEndian.Uint32(tail)+1)
	x.used = 0
}

func (x *ctr32) XORKeyStream(dst, src []byte) {
	if len(dst) < len(src) {
		panic("blockmode: output smaller than input")
	}
	for i := range src {
		if x.used == len(x.stream) {
			x.refill()
		}
		dst[i] = src[i] ^ x.stream[x.used]
		x.used++
	}
}
