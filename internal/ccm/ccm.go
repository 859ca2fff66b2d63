// ccm.go: Counter with CBC-MAC, streaming and as a cipher.AEAD.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

// Package ccm implements Counter with CBC-MAC (NIST SP 800-38C) as a
// streaming state and as a crypto/cipher.AEAD.
package ccm

import (
	"crypto/cipher"
	"crypto/subtle"
	"encoding/binary"
	"errors"
)

const blockSize = 16

var (
	ErrBlockSize   = errors.New("ccm: cipher block size must be 16 bytes")
	ErrNonceSize   = errors.New("ccm: nonce must be 7 to 13 bytes")
	ErrTagSize     = errors.New("ccm: tag size must be an even number between 4 and 16")
	ErrDataSize    = errors.New("ccm: payload length does not match declared data size")
	ErrAADBound    = errors.New("ccm: associated data already bound")
	ErrOpen        = errors.New("ccm: message authentication failed")
	ErrStateFinal  = errors.New("ccm: state already finalized")
	ErrSizeTooLong = errors.New("ccm: data size does not fit the nonce length")
)

// State is a single CCM operation whose payload length is fixed up front.
// Feed the payload with Update, then call Sum for the tag.
type State struct {
	b        cipher.Block
	nonce    []byte
	aad      []byte
	aadSet   bool
	tagSize  int
	dataSize int
	seen     int
	decrypt  bool

	started bool
	final   bool
	x       [blockSize]byte
	pending [blockSize]byte
	npend   int
	s0      [blockSize]byte
	ctr     cipher.Stream
}

// NewState validates the CCM parameters and returns a fresh state.
func NewState(b cipher.Block, nonce []byte, dataSize, tagSize int, decrypt bool) (*State, error) {
	if b.BlockSize() != blockSize {
		return nil, ErrBlockSize
	}
	if len(nonce) < 7 || len(nonce) > 13 {
		return nil, ErrNonceSize
	}
	if tagSize < 4 || tagSize > 16 || tagSize%2 != 0 {
		return nil, ErrTagSize
	}
	if err := CheckDataSize(len(nonce), dataSize); err != nil {
		return nil, err
	}
	n := make([]byte, len(nonce))
	copy(n, nonce)
	return &State{
		b:        b,
		nonce:    n,
		tagSize:  tagSize,
		dataSize: dataSize,
		decrypt:  decrypt,
	}, nil
}

// CheckDataSize reports whether a payload of dataSize bytes can be encoded
// in the length field left by a nonce of nonceSize bytes.
func CheckDataSize(nonceSize, dataSize int) error {
	if dataSize < 0 {
		return ErrDataSize
	}
	q := 15 - nonceSize
	if q < 8 && uint64(dataSize) >= uint64(1)<<(8*uint(q)) {
		return ErrSizeTooLong
	}
	return nil
}

// SetAAD binds the associated data. It must be called at most once and
// before the first Update.
func (s *State) SetAAD(aad []byte) error {
	if s.aadSet || s.started {
		return ErrAADBound
	}
	s.aad = append([]byte(nil), aad...)
	s.aadSet = true
	return nil
}

// Remaining reports how many payload bytes are still expected.
func (s *State) Remaining() int { return s.dataSize - s.seen }

func (s *State) start() {
	q := 15 - len(s.nonce)

	var b0 [blockSize]byte
	flags := byte(((s.tagSize - 2) / 2) << 3)
	flags |= byte(q - 1)
	if len(s.aad) > 0 {
		flags |= 0x40
	}
	b0[0] = flags
	copy(b0[1:], s.nonce)
	putLength(b0[1+len(s.nonce):], uint64(s.dataSize))
	s.b.Encrypt(s.x[:], b0[:])

	if len(s.aad) > 0 {
		var hdr []byte
		switch a := uint64(len(s.aad)); {
		case a < 0xff00:
			hdr = binary.BigEndian.AppendUint16(nil, uint16(a))
		case a <= 0xffffffff:
			hdr = binary.BigEndian.AppendUint32([]byte{0xff, 0xfe}, uint32(a))
		default:
			hdr = binary.BigEndian.AppendUint64([]byte{0xff, 0xff}, a)
		}
		s.macWrite(hdr)
		s.macWrite(s.aad)
		s.macFlush()
	}

	var a0 [blockSize]byte
	a0[0] = byte(q - 1)
	copy(a0[1:], s.nonce)
	s.b.Encrypt(s.s0[:], a0[:])
	a0[blockSize-1] = 1
	s.ctr = cipher.NewCTR(s.b, a0[:])
	s.started = true
}

func putLength(dst []byte, v uint64) {
	for i := len(dst) - 1; i >= 0; i-- {
		dst[i] = byte(v)
		v >>= 8
	}
}

func (s *State) macWrite(p []byte) {
	for len(p) > 0 {
		n := copy(s.pending[s.npend:], p)
		s.npend += n
		p = p[n:]
		if s.npend == blockSize {
			subtle.XORBytes(s.x[:], s.x[:], s.pending[:])
			s.b.Encrypt(s.x[:], s.x[:])
			s.npend = 0
		}
	}
}

func (s *State) macFlush() {
	if s.npend == 0 {
		return
	}
	for i := s.npend; i < blockSize; i++ {
		s.pending[i] = 0
	}
	subtle.XORBytes(s.x[:], s.x[:], s.pending[:])
	s.b.Encrypt(s.x[:], s.x[:])
	s.npend = 0
}

// Update encrypts or decrypts src into dst, which must be at least as long.
func (s *State) Update(dst, src []byte) error {
	if s.final {
		return ErrStateFinal
	}
	if len(src) > s.Remaining() {
		return ErrDataSize
	}
	if !s.started {
		s.start()
	}
	if s.decrypt {
		s.ctr.XORKeyStream(dst[:len(src)], src)
		s.macWrite(dst[:len(src)])
	} else {
		s.macWrite(src)
		s.ctr.XORKeyStream(dst[:len(src)], src)
	}
	s.seen += len(src)
	return nil
}

// Sum completes the MAC and returns the tag. All declared payload bytes must
// have been processed.
func (s *State) Sum() ([]byte, error) {
	if s.final {
		return nil, ErrStateFinal
	}
	if s.Remaining() != 0 {
		return nil, ErrDataSize
	}
	if !s.started {
		s.start()
	}
	s.macFlush()
	s.final = true
	tag := make([]byte, s.tagSize)
	subtle.XORBytes(tag, s.x[:s.tagSize], s.s0[:s.tagSize])
	return tag, nil
}

type ccmAEAD struct {
	b         cipher.Block
	nonceSize int
	tagSize   int
}

// NewCCM returns the given 128-bit block cipher wrapped in CCM with the given
// nonce and tag sizes.
func NewCCM(b cipher.Block, nonceSize, tagSize int) (cipher.AEAD, error) {
	if b.BlockSize() != blockSize {
		return nil, ErrBlockSize
	}
	if nonceSize < 7 || nonceSize > 13 {
		return nil, ErrNonceSize
	}
	if tagSize < 4 || tagSize > 16 || tagSize%2 != 0 {
		return nil, ErrTagSize
	}
	return &ccmAEAD{b: b, nonceSize: nonceSize, tagSize: tagSize}, nil
}

func (c *ccmAEAD) NonceSize() int { return c.nonceSize }
func (c *ccmAEAD) Overhead() int  { return c.tagSize }

// Seal panics if the plaintext is too long for the nonce size; callers check
// with CheckDataSize first.
func (c *ccmAEAD) Seal(dst, nonce, plaintext, additionalData []byte) []byte {
	if len(nonce) != c.nonceSize {
		panic("ccm: incorrect nonce length given to CCM")
	}
	s, err := NewState(c.b, nonce, len(plaintext), c.tagSize, false)
	if err != nil {
		panic(err)
	}
	_ = s.SetAAD(additionalData)
	ret, out := sliceForAppend(dst, len(plaintext)+c.tagSize)
	if err := s.Update(out, plaintext); err != nil {
		panic(err)
	}
	tag, _ := s.Sum()
	copy(out[len(plaintext):], tag)
	return ret
}

func (c *ccmAEAD) Open(dst, nonce, ciphertext, additionalData []byte) ([]byte, error) {
	if len(nonce) != c.nonceSize {
		return nil, ErrNonceSize
	}
	if len(ciphertext) < c.tagSize {
		return nil, ErrOpen
	}
	body := ciphertext[:len(ciphertext)-c.tagSize]
	expected := ciphertext[len(ciphertext)-c.tagSize:]
	s, err := NewState(c.b, nonce, len(body), c.tagSize, true)
	if err != nil {
		return nil, err
	}
	_ = s.SetAAD(additionalData)
	ret, out := sliceForAppend(dst, len(body))
	if err := s.Update(out, body); err != nil {
		return nil, err
	}
	tag, err := s.Sum()
	if err != nil {
		return nil, err
	}
	if subtle.ConstantTimeCompare(tag, expected) != 1 {
		for i := range out {
			out[i] = 0
		}
		return nil, ErrOpen
	}
	return ret, nil
}

func sliceForAppend(in []byte, n int) (head, tail []byte) {
	if total := len(in) + n; cap(in) >= total {
		head = in[:total]
	} else {
		head = make([]byte, total)
		copy(head, in)
	}
	tail = head[len(in):]
	return
}
