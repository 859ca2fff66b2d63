// ghash.go: Incremental GHASH, the GF(2^128) universal hash of GCM.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

// Package ghash implements GHASH (NIST SP 800-38D, section 6.4) as an
// incremental hash, so a GCM context can authenticate a message chunk by
// chunk instead of holding it until the tag is computed.
package ghash

import "encoding/binary"

// BlockSize is the GHASH block and output size in bytes.
const BlockSize = 16

// fieldElement holds a GF(2^128) element; low carries the first eight bytes
// of its big-endian encoding.
type fieldElement struct {
	low, high uint64
}

// Hash is a running GHASH under a fixed key H.
type Hash struct {
	// multiples of H, indexed by bit-reversed nibble
	table [16]fieldElement
	y     fieldElement
	buf   [BlockSize]byte
	n     int
}

// New returns a GHASH keyed with h, the encryption of the zero block.
func New(h []byte) *Hash {
	if len(h) != BlockSize {
		panic("ghash: key must be 16 bytes")
	}
	g := &Hash{}
	x := fieldElement{
		low:  binary.BigEndian.Uint64(h[:8]),
		high: binary.BigEndian.Uint64(h[8:]),
	}
	g.table[reverseBits(1)] = x
	for i := 2; i < 16; i += 2 {
		g.table[reverseBits(i)] = double(&g.table[reverseBits(i/2)])
		g.table[reverseBits(i+1)] = add(&g.table[reverseBits(i)], &x)
	}
	return g
}

// Write absorbs p. Input is processed in whole blocks; a trailing partial
// block waits for more input or for Pad.
func (g *Hash) Write(p []byte) {
	if g.n > 0 {
		k := copy(g.buf[g.n:], p)
		g.n += k
		p = p[k:]
		if g.n < BlockSize {
			return
		}
		g.block(g.buf[:])
		g.n = 0
	}
	for len(p) >= BlockSize {
		g.block(p[:BlockSize])
		p = p[BlockSize:]
	}
	if len(p) > 0 {
		g.n = copy(g.buf[:], p)
	}
}

// Pad zero-fills and absorbs a pending partial block. GCM pads the
// associated data and the ciphertext separately.
func (g *Hash) Pad() {
	if g.n == 0 {
		return
	}
	for i := g.n; i < BlockSize; i++ {
		g.buf[i] = 0
	}
	g.block(g.buf[:])
	g.n = 0
}

// Sum pads pending input, absorbs the length block built from the bit
// lengths of the associated data and the ciphertext, and returns the hash.
func (g *Hash) Sum(aadBits, textBits uint64) [BlockSize]byte {
	g.Pad()
	g.y.low ^= aadBits
	g.y.high ^= textBits
	g.mul(&g.y)

	var out [BlockSize]byte
	binary.BigEndian.PutUint64(out[:8], g.y.low)
	binary.BigEndian.PutUint64(out[8:], g.y.high)
	return out
}

// Scrub wipes the key table and the running state.
func (g *Hash) Scrub() {
	g.table = [16]fieldElement{}
	g.y = fieldElement{}
	g.buf = [BlockSize]byte{}
	g.n = 0
}

func (g *Hash) block(b []byte) {
	g.y.low ^= binary.BigEndian.Uint64(b[:8])
	g.y.high ^= binary.BigEndian.Uint64(b[8:])
	g.mul(&g.y)
}

var reductionTable = [16]uint16{
	0x0000, 0x1c20, 0x3840, 0x2460, 0x7080, 0x6ca0, 0x48c0, 0x54e0,
	0xe100, 0xfd20, 0xd940, 0xc560, 0x9180, 0x8da0, 0xa9c0, 0xb5e0,
}

// mul sets y to y·H, four bits at a time.
func (g *Hash) mul(y *fieldElement) {
	var z fieldElement
	for i := 0; i < 2; i++ {
		word := y.high
		if i == 1 {
			word = y.low
		}
		for j := 0; j < 64; j += 4 {
			msw := z.high & 0xf
			z.high >>= 4
			z.high |= z.low << 60
			z.low >>= 4
			z.low ^= uint64(reductionTable[msw]) << 48

			t := g.table[word&0xf]
			z.low ^= t.low
			z.high ^= t.high
			word >>= 4
		}
	}
	*y = z
}

// double multiplies x by the field generator; with GCM's reflected bit
// order that is a right shift.
func double(x *fieldElement) fieldElement {
	var d fieldElement
	msbSet := x.high&1 == 1
	d.high = x.high >> 1
	d.high |= x.low << 63
	d.low = x.low >> 1
	if msbSet {
		d.low ^= 0xe100000000000000
	}
	return d
}

func add(x, y *fieldElement) fieldElement {
	return fieldElement{x.low ^ y.low, x.high ^ y.high}
}

func reverseBits(i int) int {
	i = ((i << 2) & 0xc) | ((i >> 2) & 0x3)
	i = ((i << 1) & 0xa) | ((i >> 1) & 0x5)
	return i
}
