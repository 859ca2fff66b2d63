// cryptor.go: The symmetric cryptor state machine shared by every block and
// stream cipher.
//
// A Cryptor is bound at creation to one operation, algorithm, mode, padding,
// key and IV. It then accepts any number of Update calls, exactly one
// Finalize and exactly one Release:
//
//	Created --Update--> Updated --Finalize--> Finalized --Release--> Released
//
// Update after Finalize or Release, a second Finalize and a second Release all
// fail with ErrInvalidState. A Cryptor must not be used from more than one
// goroutine at a time.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package crypto

import (
	"crypto/cipher"
	"crypto/rc4"
	"errors"

	"github.com/agilira/hermetica/internal/blockmode"
)

type contextState int

const (
	stateCreated contextState = iota
	stateUpdated
	stateFinalized
	stateReleased
)

func (s contextState) String() string {
	switch s {
	case stateCreated:
		return "created"
	case stateUpdated:
		return "updated"
	case stateFinalized:
		return "finalized"
	default:
		return "released"
	}
}

// lifecycle enforces the create → update → finalize → release contract for
// every context type in the package.
type lifecycle struct {
	state contextState
	kind  string
}

func (l *lifecycle) beginUpdate() error {
	if l.state == stateFinalized || l.state == stateReleased {
		return errInvalidState("%s: update on %s context", l.kind, l.state)
	}
	l.state = stateUpdated
	return nil
}

func (l *lifecycle) beginFinalize() error {
	if l.state == stateFinalized || l.state == stateReleased {
		return errInvalidState("%s: finalize on %s context", l.kind, l.state)
	}
	l.state = stateFinalized
	return nil
}

func (l *lifecycle) beginRelease() error {
	if l.state == stateReleased {
		return errInvalidState("%s: context already released", l.kind)
	}
	l.state = stateReleased
	return nil
}

// cryptEngine is the mode-specific transform driven by a Cryptor.
type cryptEngine interface {
	update(src []byte) ([]byte, error)
	final() ([]byte, error)
	scrub()
}

// Cryptor is a streaming symmetric encryption or decryption context.
type Cryptor struct {
	lifecycle
	op      Operation
	mode    Mode
	alg     Algorithm
	padding Padding
	key     []byte
	iv      []byte
	engine  cryptEngine
}

// NewCryptor creates a context for one symmetric operation.
//
// Parameters:
//   - op: Encrypt or Decrypt
//   - mode: ModeECB, ModeCBC, ModeCFB, ModeCFB8, ModeCTR, ModeOFB, or ModeRC4 with the RC4 algorithm
//   - alg: the algorithm descriptor (AES, DES, TripleDES, CAST, RC2, Blowfish, RC4)
//   - padding: PaddingPKCS7 is only accepted by ECB and CBC
//   - key: copied into the context
//   - iv: one block for CBC, CFB, CFB8, CTR and OFB; empty for ECB and RC4
//
// Example:
//
//	c, err := crypto.NewCryptor(crypto.Encrypt, crypto.ModeCBC, crypto.AES, crypto.PaddingPKCS7, key, iv)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer c.Release()
//	head, _ := c.Update(part1)
//	tail, _ := c.Update(part2)
//	last, err := c.Finalize()
func NewCryptor(op Operation, mode Mode, alg Algorithm, padding Padding, key, iv []byte) (*Cryptor, error) {
	if op != Encrypt && op != Decrypt {
		return nil, errParam("unknown operation %d", int(op))
	}
	if mode == ModeGCM || mode == ModeCCM {
		return nil, errParam("%s requires an AEAD cryptor", mode)
	}
	if _, ok := modeNames[mode]; !ok {
		return nil, errParam("unknown mode %d", int(mode))
	}
	if alg.name == "" {
		return nil, errParam("algorithm descriptor is empty")
	}
	if alg.IsStream() != (mode == ModeRC4) {
		return nil, errParam("mode %s cannot be used with %s", mode, alg)
	}
	if padding != PaddingNone && padding != PaddingPKCS7 {
		return nil, errParam("unknown padding %d", int(padding))
	}
	if padding != PaddingNone && mode.streaming() {
		return nil, errParam("mode %s does not accept %s padding", mode, padding)
	}
	if err := alg.ValidateKey(key); err != nil {
		return nil, err
	}
	switch mode {
	case ModeECB, ModeRC4:
		if len(iv) != 0 {
			return nil, errParam("mode %s does not use an initialization vector", mode)
		}
	default:
		if len(iv) != alg.blockSize {
			return nil, errParam("invalid IV size for %s: got %d bytes, want %d", alg, len(iv), alg.blockSize)
		}
	}

	c := &Cryptor{
		lifecycle: lifecycle{kind: "cryptor"},
		op:        op,
		mode:      mode,
		alg:       alg,
		padding:   padding,
		key:       append([]byte(nil), key...),
	}
	if len(iv) > 0 {
		c.iv = append([]byte(nil), iv...)
	}

	engine, err := c.newEngine()
	if err != nil {
		Zeroize(c.key)
		return nil, err
	}
	c.engine = engine
	return c, nil
}

func (c *Cryptor) newEngine() (cryptEngine, error) {
	if c.mode == ModeRC4 {
		stream, err := rc4.NewCipher(c.key)
		if err != nil {
			return nil, wrapUnspecified(err, "failed to create RC4 cipher")
		}
		return &streamEngine{stream: stream}, nil
	}

	block, err := c.alg.newBlock(c.key)
	if err != nil {
		return nil, wrapUnspecified(err, "failed to create "+c.alg.name+" cipher")
	}
	decrypt := c.op == Decrypt

	switch c.mode {
	case ModeECB:
		m := blockmode.NewECBEncrypter(block)
		if decrypt {
			m = blockmode.NewECBDecrypter(block)
		}
		return newBlockEngine(m, c.padding == PaddingPKCS7, decrypt), nil
	case ModeCBC:
		m := cipher.NewCBCEncrypter(block, c.iv)
		if decrypt {
			m = cipher.NewCBCDecrypter(block, c.iv)
		}
		return newBlockEngine(m, c.padding == PaddingPKCS7, decrypt), nil
	case ModeCFB:
		if decrypt {
			return &streamEngine{stream: cipher.NewCFBDecrypter(block, c.iv)}, nil
		}
		return &streamEngine{stream: cipher.NewCFBEncrypter(block, c.iv)}, nil
	case ModeCFB8:
		if decrypt {
			return &streamEngine{stream: blockmode.NewCFB8Decrypter(block, c.iv)}, nil
		}
		return &streamEngine{stream: blockmode.NewCFB8Encrypter(block, c.iv)}, nil
	case ModeCTR:
		return &streamEngine{stream: cipher.NewCTR(block, c.iv)}, nil
	case ModeOFB:
		return &streamEngine{stream: cipher.NewOFB(block, c.iv)}, nil
	}
	return nil, errParam("unsupported mode %s", c.mode)
}

// Operation returns the direction the cryptor was created for.
func (c *Cryptor) Operation() Operation { return c.op }

// Mode returns the mode of operation.
func (c *Cryptor) Mode() Mode { return c.mode }

// Algorithm returns the algorithm descriptor.
func (c *Cryptor) Algorithm() Algorithm { return c.alg }

// Padding returns the padding scheme.
func (c *Cryptor) Padding() Padding { return c.padding }

// Update processes the next chunk of input and returns whatever output is
// available. Block modes buffer partial blocks until enough input arrives.
func (c *Cryptor) Update(data []byte) ([]byte, error) {
	if err := c.beginUpdate(); err != nil {
		return nil, err
	}
	return c.engine.update(data)
}

// Finalize flushes buffered input, applying or removing padding, and returns
// the last output. It can only be called once.
func (c *Cryptor) Finalize() ([]byte, error) {
	if err := c.beginFinalize(); err != nil {
		return nil, err
	}
	return c.engine.final()
}

// Release scrubs the key, IV and any buffered data. The context cannot be
// used afterwards.
func (c *Cryptor) Release() error {
	if err := c.beginRelease(); err != nil {
		return err
	}
	Zeroize(c.key)
	Zeroize(c.iv)
	if c.engine != nil {
		c.engine.scrub()
	}
	return nil
}

// streamEngine drives any cipher.Stream; output length always equals input length.
type streamEngine struct {
	stream cipher.Stream
}

func (e *streamEngine) update(src []byte) ([]byte, error) {
	out := make([]byte, len(src))
	e.stream.XORKeyStream(out, src)
	return out, nil
}

func (e *streamEngine) final() ([]byte, error) { return []byte{}, nil }

func (e *streamEngine) scrub() { e.stream = nil }

// blockEngine buffers partial blocks for ECB and CBC. When decrypting with
// PKCS#7 it also holds back the last full block, which may carry the padding.
type blockEngine struct {
	mode    cipher.BlockMode
	size    int
	pkcs7   bool
	decrypt bool
	pending []byte
}

func newBlockEngine(m cipher.BlockMode, pkcs7, decrypt bool) *blockEngine {
	return &blockEngine{
		mode:    m,
		size:    m.BlockSize(),
		pkcs7:   pkcs7,
		decrypt: decrypt,
		pending: make([]byte, 0, 2*m.BlockSize()),
	}
}

func (e *blockEngine) update(src []byte) ([]byte, error) {
	data := append(e.pending, src...)
	n := len(data) / e.size * e.size
	if e.decrypt && e.pkcs7 && n == len(data) && n > 0 {
		n -= e.size
	}
	out := make([]byte, n)
	e.mode.CryptBlocks(out, data[:n])

	rest := copy(data, data[n:])
	Zeroize(data[rest:])
	e.pending = data[:rest]
	return out, nil
}

func (e *blockEngine) final() ([]byte, error) {
	defer e.scrub()

	if !e.pkcs7 {
		if len(e.pending) != 0 {
			return nil, errParam("input is not a multiple of the %d-byte block size", e.size)
		}
		return []byte{}, nil
	}

	if !e.decrypt {
		padded := blockmode.Pad(e.pending, e.size)
		out := make([]byte, len(padded))
		e.mode.CryptBlocks(out, padded)
		Zeroize(padded)
		return out, nil
	}

	switch len(e.pending) {
	case 0:
		return nil, errPadding("ciphertext is missing its padding block")
	case e.size:
	default:
		return nil, errParam("ciphertext is not a multiple of the %d-byte block size", e.size)
	}
	last := make([]byte, e.size)
	e.mode.CryptBlocks(last, e.pending)
	out, err := blockmode.Unpad(last, e.size)
	if err != nil {
		Zeroize(last)
		if errors.Is(err, blockmode.ErrInvalidPadding) {
			return nil, errPadding("malformed PKCS#7 padding")
		}
		return nil, wrapUnspecified(err, "failed to remove padding")
	}
	return out, nil
}

func (e *blockEngine) scrub() {
	Zeroize(e.pending[:cap(e.pending)])
	e.pending = e.pending[:0]
}
