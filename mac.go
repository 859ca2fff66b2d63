// mac.go: HMAC and AES-CMAC engines.
//
// HMAC is built directly on the digest engine (RFC 2104 inner/outer pads) so
// that a keyed context can be cloned mid-stream with Copy.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package crypto

import (
	"crypto/aes"
	"encoding"
	"hash"

	"github.com/aead/cmac"
)

const (
	hmacInnerPad = 0x36
	hmacOuterPad = 0x5c
)

// HMAC is a streaming keyed-hash context.
type HMAC struct {
	d         Digest
	inner     hash.Hash
	outerKey  []byte
	finalized bool
	destroyed bool

	// digests without serializable state (RIPEMD-160) keep the keyed
	// inner pad and the absorbed input so Copy can replay them
	innerKey []byte
	absorbed []byte
}

// NewHMAC creates an HMAC context over digest d. Keys longer than the digest
// block are hashed first.
//
// Example:
//
//	mac, err := crypto.NewHMAC(key, crypto.DigestSHA256)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer mac.Destroy()
//	_ = mac.Update(message)
//	tag, _ := mac.Finalize()
func NewHMAC(key []byte, d Digest) (*HMAC, error) {
	inner, err := d.newHash()
	if err != nil {
		return nil, err
	}
	bs := d.BlockSize()

	k := key
	if len(k) > bs {
		sum, _ := Hash(d, k)
		defer Zeroize(sum)
		k = sum
	}

	padBuf := getBuffer(bs)
	defer putBuffer(padBuf)
	ipad := (*padBuf)[:bs]
	opad := make([]byte, bs)
	copy(ipad, k)
	copy(opad, k)
	for i := 0; i < bs; i++ {
		ipad[i] ^= hmacInnerPad
		opad[i] ^= hmacOuterPad
	}
	// pooled buffers are sliced, not cleared, on get
	for i := len(k); i < bs; i++ {
		ipad[i] = hmacInnerPad
	}
	inner.Write(ipad)

	m := &HMAC{d: d, inner: inner, outerKey: opad}
	if _, ok := inner.(encoding.BinaryMarshaler); !ok {
		m.innerKey = append([]byte(nil), ipad...)
		m.absorbed = getDynamicBuffer()
	}
	return m, nil
}

// Algorithm returns the underlying digest.
func (m *HMAC) Algorithm() Digest { return m.d }

// OutputSize returns the tag length in bytes.
func (m *HMAC) OutputSize() int { return m.d.Size() }

func (m *HMAC) check(op string) error {
	if m.destroyed {
		return errInvalidState("hmac: %s on destroyed context", op)
	}
	if m.finalized {
		return errInvalidState("hmac: %s after finalize", op)
	}
	return nil
}

// Update absorbs more input.
func (m *HMAC) Update(data []byte) error {
	if err := m.check("update"); err != nil {
		return err
	}
	m.inner.Write(data)
	if m.innerKey != nil {
		m.absorbed = append(m.absorbed, data...)
	}
	return nil
}

// Finalize returns the tag.
func (m *HMAC) Finalize() ([]byte, error) {
	if err := m.check("finalize"); err != nil {
		return nil, err
	}
	m.finalized = true
	if m.innerKey != nil {
		Zeroize(m.absorbed)
	}

	innerSum := m.inner.Sum(nil)
	outer, err := m.d.newHash()
	if err != nil {
		return nil, err
	}
	outer.Write(m.outerKey)
	outer.Write(innerSum)
	return outer.Sum(nil), nil
}

// Copy returns an independent context carrying the same key and the input
// absorbed so far.
func (m *HMAC) Copy() (*HMAC, error) {
	if err := m.check("copy"); err != nil {
		return nil, err
	}
	clone, err := m.d.newHash()
	if err != nil {
		return nil, err
	}
	c := &HMAC{
		d:        m.d,
		inner:    clone,
		outerKey: append([]byte(nil), m.outerKey...),
	}

	if m.innerKey != nil {
		c.innerKey = append([]byte(nil), m.innerKey...)
		c.absorbed = append(getDynamicBuffer(), m.absorbed...)
		clone.Write(c.innerKey)
		clone.Write(c.absorbed)
		return c, nil
	}

	state, err := m.inner.(encoding.BinaryMarshaler).MarshalBinary()
	if err != nil {
		return nil, wrapUnspecified(err, "failed to snapshot HMAC state")
	}
	defer Zeroize(state)
	unmarshaler, ok := clone.(encoding.BinaryUnmarshaler)
	if !ok {
		return nil, errUnimplemented("hmac: %s state cannot be restored", m.d)
	}
	if err := unmarshaler.UnmarshalBinary(state); err != nil {
		return nil, wrapUnspecified(err, "failed to restore HMAC state")
	}
	return c, nil
}

// Destroy scrubs the key schedule. Every later call fails with ErrInvalidState.
func (m *HMAC) Destroy() error {
	if m.destroyed {
		return errInvalidState("hmac: context already destroyed")
	}
	m.destroyed = true
	Zeroize(m.outerKey)
	if m.innerKey != nil {
		Zeroize(m.innerKey)
		putDynamicBuffer(m.absorbed)
		m.absorbed = nil
	}
	m.inner.Reset()
	m.inner = nil
	return nil
}

// HMACSum computes the HMAC of data in one call.
func HMACSum(data, key []byte, d Digest) ([]byte, error) {
	m, err := NewHMAC(key, d)
	if err != nil {
		return nil, err
	}
	defer func() { _ = m.Destroy() }()
	if err := m.Update(data); err != nil {
		return nil, err
	}
	return m.Finalize()
}

// CMACSize is the AES-CMAC tag length.
const CMACSize = aes.BlockSize

// CMAC is a streaming AES-CMAC (RFC 4493) context.
type CMAC struct {
	h         hash.Hash
	finalized bool
	destroyed bool
}

// NewCMAC creates an AES-CMAC context. The key must be a valid AES key.
func NewCMAC(key []byte) (*CMAC, error) {
	if err := AES.ValidateKey(key); err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, wrapUnspecified(err, "failed to create AES cipher")
	}
	h, err := cmac.New(block)
	if err != nil {
		return nil, wrapUnspecified(err, "failed to create CMAC")
	}
	return &CMAC{h: h}, nil
}

// OutputSize returns the tag length in bytes.
func (m *CMAC) OutputSize() int { return CMACSize }

func (m *CMAC) check(op string) error {
	if m.destroyed {
		return errInvalidState("cmac: %s on destroyed context", op)
	}
	if m.finalized {
		return errInvalidState("cmac: %s after finalize", op)
	}
	return nil
}

// Update absorbs more input.
func (m *CMAC) Update(data []byte) error {
	if err := m.check("update"); err != nil {
		return err
	}
	m.h.Write(data)
	return nil
}

// Finalize returns the 16-byte tag.
func (m *CMAC) Finalize() ([]byte, error) {
	if err := m.check("finalize"); err != nil {
		return nil, err
	}
	m.finalized = true
	return m.h.Sum(nil), nil
}

// Destroy drops the key schedule. Every later call fails with ErrInvalidState.
func (m *CMAC) Destroy() error {
	if m.destroyed {
		return errInvalidState("cmac: context already destroyed")
	}
	m.destroyed = true
	m.h.Reset()
	m.h = nil
	return nil
}

// CMACSum computes the AES-CMAC of data in one call.
func CMACSum(data, key []byte) ([]byte, error) {
	m, err := NewCMAC(key)
	if err != nil {
		return nil, err
	}
	defer func() { _ = m.Destroy() }()
	if err := m.Update(data); err != nil {
		return nil, err
	}
	return m.Finalize()
}
