// aead.go: Streaming AES-GCM and AES-CCM cryptors and their one-shot suites.
//
// Both cryptors follow the same lifecycle as Cryptor. Update streams
// keystream output immediately, so decrypted bytes returned by Update are
// unauthenticated until Finalize succeeds. Encrypting cryptors return the tag
// from Finalize; decrypting cryptors compare the expected tag in constant
// time and return an empty slice on success.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/subtle"
	"encoding/binary"
	"errors"

	"github.com/agilira/hermetica/internal/blockmode"
	"github.com/agilira/hermetica/internal/ccm"
	"github.com/agilira/hermetica/internal/ghash"
)

// GCMTagSize is the only tag length accepted by the GCM cryptors.
const GCMTagSize = 16

// AEADCryptor is a streaming authenticated cipher context.
type AEADCryptor interface {
	// BindAAD supplies associated data after creation. It may be called once,
	// before the first Update, and only if no AAD was given at creation.
	BindAAD(aad []byte) error
	Update(data []byte) ([]byte, error)
	Finalize() ([]byte, error)
	Release() error
}

// GCMCryptor is a streaming AES-GCM context. The ciphertext is
// authenticated as it streams, so memory use does not grow with the message.
type GCMCryptor struct {
	lifecycle
	op       Operation
	key      []byte
	iv       []byte
	aad      []byte
	aadBound bool
	tag      []byte
	ctr      cipher.Stream
	hash     *ghash.Hash
	// E(J0), XORed into the GHASH output to form the tag
	mask     [aes.BlockSize]byte
	aadDone  bool
	textLen  uint64
}

// gcmMaxText is the largest GCM plaintext: 2^32 - 2 counter blocks.
const gcmMaxText = (1<<32 - 2) * aes.BlockSize

// NewGCMEncryptor creates an AES-GCM encryption context. iv may be any
// non-empty length; 12 bytes is the standard choice.
//
// Example:
//
//	enc, err := crypto.NewGCMEncryptor(key, iv, header)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer enc.Release()
//	ct, _ := enc.Update(payload)
//	tag, err := enc.Finalize()
func NewGCMEncryptor(key, iv, aad []byte) (*GCMCryptor, error) {
	return newGCMCryptor(Encrypt, key, iv, aad, nil)
}

// NewGCMDecryptor creates an AES-GCM decryption context that will verify tag
// at Finalize. The tag must be GCMTagSize bytes.
func NewGCMDecryptor(key, iv, aad, tag []byte) (*GCMCryptor, error) {
	if len(tag) != GCMTagSize {
		return nil, errParam("invalid GCM tag size: got %d bytes, want %d", len(tag), GCMTagSize)
	}
	return newGCMCryptor(Decrypt, key, iv, aad, tag)
}

func newGCMCryptor(op Operation, key, iv, aad, tag []byte) (*GCMCryptor, error) {
	if err := AES.ValidateKey(key); err != nil {
		return nil, err
	}
	if len(iv) == 0 {
		return nil, errParam("GCM requires a non-empty IV")
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, wrapUnspecified(err, "failed to create AES cipher")
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, len(iv))
	if err != nil {
		return nil, wrapUnspecified(err, "failed to create GCM cipher")
	}

	// Seal one zero block: its ciphertext is E(inc32(J0)), which decrypts to
	// the counter block of the first payload block.
	var zero [aes.BlockSize]byte
	first := gcm.Seal(nil, iv, zero[:], nil)[:aes.BlockSize]
	counter := make([]byte, aes.BlockSize)
	block.Decrypt(counter, first)

	var j0, h [aes.BlockSize]byte
	copy(j0[:], counter)
	binary.BigEndian.PutUint32(j0[12:], binary.BigEndian.Uint32(counter[12:])-1)
	block.Encrypt(h[:], zero[:])

	c := &GCMCryptor{
		lifecycle: lifecycle{kind: "gcm"},
		op:        op,
		key:       append([]byte(nil), key...),
		iv:        append([]byte(nil), iv...),
		ctr:       blockmode.NewCTR32(block, counter),
		hash:      ghash.New(h[:]),
	}
	block.Encrypt(c.mask[:], j0[:])
	Zeroize(h[:])
	if len(aad) > 0 {
		c.aad = append([]byte(nil), aad...)
		c.aadBound = true
	}
	if tag != nil {
		c.tag = append([]byte(nil), tag...)
	}
	return c, nil
}

// Operation returns the direction the cryptor was created for.
func (c *GCMCryptor) Operation() Operation { return c.op }

// BindAAD binds associated data that was not known at creation.
func (c *GCMCryptor) BindAAD(aad []byte) error {
	if c.state != stateCreated {
		return errInvalidState("gcm: associated data must be bound before the first update")
	}
	if c.aadBound {
		return errInvalidState("gcm: associated data already bound")
	}
	c.aad = append([]byte(nil), aad...)
	c.aadBound = true
	return nil
}

// absorbAAD hashes the associated data once, ahead of the first ciphertext.
func (c *GCMCryptor) absorbAAD() {
	if c.aadDone {
		return
	}
	c.hash.Write(c.aad)
	c.hash.Pad()
	c.aadDone = true
}

// Update encrypts or decrypts the next chunk.
func (c *GCMCryptor) Update(data []byte) ([]byte, error) {
	if c.state == stateCreated || c.state == stateUpdated {
		if c.textLen+uint64(len(data)) > gcmMaxText {
			return nil, errParam("gcm: message exceeds %d bytes", uint64(gcmMaxText))
		}
	}
	if err := c.beginUpdate(); err != nil {
		return nil, err
	}
	c.absorbAAD()
	out := make([]byte, len(data))
	c.ctr.XORKeyStream(out, data)
	if c.op == Encrypt {
		c.hash.Write(out)
	} else {
		c.hash.Write(data)
	}
	c.textLen += uint64(len(data))
	return out, nil
}

// Finalize returns the tag when encrypting. When decrypting it verifies the
// expected tag and returns an empty slice, or ErrAuthentication.
func (c *GCMCryptor) Finalize() ([]byte, error) {
	if err := c.beginFinalize(); err != nil {
		return nil, err
	}
	c.absorbAAD()
	sum := c.hash.Sum(uint64(len(c.aad))*8, c.textLen*8)
	tag := make([]byte, GCMTagSize)
	subtle.XORBytes(tag, sum[:], c.mask[:])
	Zeroize(sum[:])
	c.hash.Scrub()

	if c.op == Encrypt {
		return tag, nil
	}
	if subtle.ConstantTimeCompare(tag, c.tag) != 1 {
		return nil, errAuthentication("GCM tag mismatch")
	}
	return []byte{}, nil
}

// Release scrubs the key, IV, AAD and hash state.
func (c *GCMCryptor) Release() error {
	if err := c.beginRelease(); err != nil {
		return err
	}
	Zeroize(c.key)
	Zeroize(c.iv)
	Zeroize(c.aad)
	Zeroize(c.mask[:])
	if c.hash != nil {
		c.hash.Scrub()
		c.hash = nil
	}
	c.ctr = nil
	return nil
}

// CCMCryptor is a streaming AES-CCM context. The payload length is declared
// at creation and enforced.
type CCMCryptor struct {
	lifecycle
	op  Operation
	key []byte
	mac []byte
	st  *ccm.State
}

// NewCCMEncryptor creates an AES-CCM encryption context for exactly dataSize
// payload bytes. iv is the 7 to 13-byte nonce; macSize is an even number
// between 4 and 16.
func NewCCMEncryptor(key, iv, aad []byte, dataSize, macSize int) (*CCMCryptor, error) {
	return newCCMCryptor(Encrypt, key, iv, aad, dataSize, macSize, nil)
}

// NewCCMDecryptor creates an AES-CCM decryption context that will verify mac
// at Finalize.
func NewCCMDecryptor(key, iv, aad []byte, dataSize int, mac []byte) (*CCMCryptor, error) {
	return newCCMCryptor(Decrypt, key, iv, aad, dataSize, len(mac), mac)
}

func newCCMCryptor(op Operation, key, iv, aad []byte, dataSize, macSize int, mac []byte) (*CCMCryptor, error) {
	if err := AES.ValidateKey(key); err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, wrapUnspecified(err, "failed to create AES cipher")
	}
	st, err := ccm.NewState(block, iv, dataSize, macSize, op == Decrypt)
	if err != nil {
		return nil, ccmError(err)
	}
	if len(aad) > 0 {
		if err := st.SetAAD(aad); err != nil {
			return nil, ccmError(err)
		}
	}

	c := &CCMCryptor{
		lifecycle: lifecycle{kind: "ccm"},
		op:        op,
		key:       append([]byte(nil), key...),
		st:        st,
	}
	if mac != nil {
		c.mac = append([]byte(nil), mac...)
	}
	return c, nil
}

// Operation returns the direction the cryptor was created for.
func (c *CCMCryptor) Operation() Operation { return c.op }

// Remaining reports how many payload bytes are still expected.
func (c *CCMCryptor) Remaining() int {
	if c.st == nil {
		return 0
	}
	return c.st.Remaining()
}

// BindAAD binds associated data that was not known at creation.
func (c *CCMCryptor) BindAAD(aad []byte) error {
	if c.state != stateCreated {
		return errInvalidState("ccm: associated data must be bound before the first update")
	}
	return ccmError(c.st.SetAAD(aad))
}

// Update encrypts or decrypts the next chunk. Feeding more than the declared
// data size fails with ErrParam.
func (c *CCMCryptor) Update(data []byte) ([]byte, error) {
	if err := c.beginUpdate(); err != nil {
		return nil, err
	}
	out := make([]byte, len(data))
	if err := c.st.Update(out, data); err != nil {
		return nil, ccmError(err)
	}
	return out, nil
}

// Finalize returns the MAC when encrypting. When decrypting it verifies the
// expected MAC and returns an empty slice, or ErrAuthentication.
func (c *CCMCryptor) Finalize() ([]byte, error) {
	if err := c.beginFinalize(); err != nil {
		return nil, err
	}
	tag, err := c.st.Sum()
	if err != nil {
		return nil, ccmError(err)
	}
	if c.op == Encrypt {
		return tag, nil
	}
	if subtle.ConstantTimeCompare(tag, c.mac) != 1 {
		return nil, errAuthentication("CCM MAC mismatch")
	}
	return []byte{}, nil
}

// Release scrubs the key and drops the CCM state.
func (c *CCMCryptor) Release() error {
	if err := c.beginRelease(); err != nil {
		return err
	}
	Zeroize(c.key)
	c.st = nil
	return nil
}

func ccmError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ccm.ErrOpen):
		return errAuthentication("CCM MAC mismatch")
	case errors.Is(err, ccm.ErrAADBound):
		return errInvalidState("ccm: associated data already bound")
	case errors.Is(err, ccm.ErrStateFinal):
		return errInvalidState("ccm: state already finalized")
	case errors.Is(err, ccm.ErrNonceSize),
		errors.Is(err, ccm.ErrTagSize),
		errors.Is(err, ccm.ErrDataSize),
		errors.Is(err, ccm.ErrSizeTooLong),
		errors.Is(err, ccm.ErrBlockSize):
		return errParam("%s", err.Error())
	}
	return wrapUnspecified(err, "ccm failure")
}

// AESGCM is a one-shot AES-GCM suite.
type AESGCM struct {
	Key []byte
	IV  []byte
	AAD []byte
}

// Encrypt returns the ciphertext and the 16-byte tag.
func (s AESGCM) Encrypt(plaintext []byte) (ciphertext, tag []byte, err error) {
	c, err := NewGCMEncryptor(s.Key, s.IV, s.AAD)
	if err != nil {
		return nil, nil, err
	}
	return sealAEAD(c, plaintext)
}

// Decrypt returns the plaintext only when tag verifies.
func (s AESGCM) Decrypt(ciphertext, tag []byte) ([]byte, error) {
	c, err := NewGCMDecryptor(s.Key, s.IV, s.AAD, tag)
	if err != nil {
		return nil, err
	}
	return openAEAD(c, ciphertext)
}

// AESCCM is a one-shot AES-CCM suite.
type AESCCM struct {
	Key   []byte
	Nonce []byte
	AAD   []byte
}

// Encrypt returns the ciphertext and a MAC of macSize bytes.
func (s AESCCM) Encrypt(plaintext []byte, macSize int) (ciphertext, mac []byte, err error) {
	aead, err := s.aead(macSize, len(plaintext))
	if err != nil {
		return nil, nil, err
	}
	sealed := aead.Seal(nil, s.Nonce, plaintext, s.AAD)
	n := len(plaintext)
	return sealed[:n:n], sealed[n:], nil
}

// Decrypt returns the plaintext only when mac verifies.
func (s AESCCM) Decrypt(ciphertext, mac []byte) ([]byte, error) {
	aead, err := s.aead(len(mac), len(ciphertext))
	if err != nil {
		return nil, err
	}
	sealed := make([]byte, 0, len(ciphertext)+len(mac))
	sealed = append(append(sealed, ciphertext...), mac...)
	plain, err := aead.Open(nil, s.Nonce, sealed, s.AAD)
	if err != nil {
		return nil, ccmError(err)
	}
	return plain, nil
}

func (s AESCCM) aead(macSize, dataSize int) (cipher.AEAD, error) {
	if err := AES.ValidateKey(s.Key); err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(s.Key)
	if err != nil {
		return nil, wrapUnspecified(err, "failed to create AES cipher")
	}
	aead, err := ccm.NewCCM(block, len(s.Nonce), macSize)
	if err != nil {
		return nil, ccmError(err)
	}
	if err := ccm.CheckDataSize(len(s.Nonce), dataSize); err != nil {
		return nil, ccmError(err)
	}
	return aead, nil
}

func sealAEAD(c AEADCryptor, plaintext []byte) ([]byte, []byte, error) {
	defer func() { _ = c.Release() }()

	ct, err := c.Update(plaintext)
	if err != nil {
		return nil, nil, err
	}
	tag, err := c.Finalize()
	if err != nil {
		return nil, nil, err
	}
	return ct, tag, nil
}

// openAEAD buffers the decrypted output and scrubs it if authentication fails.
func openAEAD(c AEADCryptor, ciphertext []byte) ([]byte, error) {
	defer func() { _ = c.Release() }()

	plain, err := c.Update(ciphertext)
	if err != nil {
		return nil, err
	}
	if _, err := c.Finalize(); err != nil {
		Zeroize(plain)
		return nil, err
	}
	return plain, nil
}
