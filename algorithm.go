// algorithm.go: Symmetric algorithm descriptors, modes, paddings and operations.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/des"

	"github.com/dgryski/go-rc2"
	"golang.org/x/crypto/blowfish"
	"golang.org/x/crypto/cast5"
)

// Operation is the direction of a cryptor.
type Operation int

const (
	Encrypt Operation = iota
	Decrypt
)

func (o Operation) String() string {
	if o == Decrypt {
		return "decrypt"
	}
	return "encrypt"
}

// Mode is the block cipher mode of operation.
type Mode int

const (
	ModeECB Mode = iota + 1
	ModeCBC
	ModeCFB
	ModeCFB8
	ModeCTR
	ModeOFB
	ModeRC4
	ModeGCM
	ModeCCM
)

var modeNames = map[Mode]string{
	ModeECB:  "ECB",
	ModeCBC:  "CBC",
	ModeCFB:  "CFB",
	ModeCFB8: "CFB8",
	ModeCTR:  "CTR",
	ModeOFB:  "OFB",
	ModeRC4:  "RC4",
	ModeGCM:  "GCM",
	ModeCCM:  "CCM",
}

func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return "unknown"
}

// streaming reports whether the mode accepts input of any length.
func (m Mode) streaming() bool {
	switch m {
	case ModeCFB, ModeCFB8, ModeCTR, ModeOFB, ModeRC4, ModeGCM, ModeCCM:
		return true
	}
	return false
}

// Padding is the symmetric padding scheme. Only ECB and CBC accept PKCS7.
type Padding int

const (
	PaddingNone Padding = iota
	PaddingPKCS7
)

func (p Padding) String() string {
	if p == PaddingPKCS7 {
		return "PKCS7"
	}
	return "none"
}

// Algorithm is a symmetric cipher descriptor. One generic engine (Cryptor)
// serves every algorithm; the descriptor only carries sizes and the
// constructor of the underlying primitive.
type Algorithm struct {
	name      string
	blockSize int // 0 for stream ciphers
	minKey    int
	maxKey    int
	keySizes  []int // exact sizes when non-nil
	newBlock  func(key []byte) (cipher.Block, error)
}

var (
	// AES is the Advanced Encryption Standard, 128-bit block, 16/24/32-byte keys.
	AES = Algorithm{name: "AES", blockSize: aes.BlockSize, keySizes: []int{16, 24, 32}, newBlock: aes.NewCipher}

	// DES is the Data Encryption Standard, 8-byte keys.
	DES = Algorithm{name: "DES", blockSize: des.BlockSize, keySizes: []int{8}, newBlock: des.NewCipher}

	// TripleDES is three-key DES in EDE configuration, 24-byte keys.
	TripleDES = Algorithm{name: "3DES", blockSize: des.BlockSize, keySizes: []int{24}, newBlock: des.NewTripleDESCipher}

	// CAST is CAST-128 with 16-byte keys.
	CAST = Algorithm{name: "CAST", blockSize: cast5.BlockSize, keySizes: []int{cast5.KeySize}, newBlock: newCAST}

	// RC2 is the RC2 block cipher with 1 to 128-byte keys and an effective key
	// length equal to the key length.
	RC2 = Algorithm{name: "RC2", blockSize: rc2.BlockSize, minKey: 1, maxKey: 128, newBlock: newRC2}

	// Blowfish is the Blowfish block cipher with 8 to 56-byte keys.
	Blowfish = Algorithm{name: "Blowfish", blockSize: blowfish.BlockSize, minKey: 8, maxKey: 56, newBlock: newBlowfish}

	// RC4 is the RC4 stream cipher with 1 to 256-byte keys. It has no block
	// size and no initialization vector.
	RC4 = Algorithm{name: "RC4", minKey: 1, maxKey: 256}
)

func newCAST(key []byte) (cipher.Block, error) {
	return cast5.NewCipher(key)
}

func newRC2(key []byte) (cipher.Block, error) {
	return rc2.New(key, len(key)*8)
}

func newBlowfish(key []byte) (cipher.Block, error) {
	return blowfish.NewCipher(key)
}

// String returns the algorithm name.
func (a Algorithm) String() string { return a.name }

// IsStream reports whether the algorithm is a stream cipher without blocks.
func (a Algorithm) IsStream() bool { return a.blockSize == 0 }

// BlockSize returns the block size in bytes. Stream ciphers have none.
func (a Algorithm) BlockSize() (int, error) {
	if a.IsStream() {
		return 0, errParam("%s does not have a block size", a.name)
	}
	return a.blockSize, nil
}

// NullIV returns an all-zero initialization vector of one block.
func (a Algorithm) NullIV() ([]byte, error) {
	size, err := a.BlockSize()
	if err != nil {
		return nil, errParam("%s does not support an initialization vector", a.name)
	}
	return make([]byte, size), nil
}

// ValidateKey checks the key length against the algorithm's accepted sizes.
func (a Algorithm) ValidateKey(key []byte) error {
	if a.keySizes != nil {
		for _, size := range a.keySizes {
			if len(key) == size {
				return nil
			}
		}
		return errInvalidKey("invalid key size for %s: got %d bytes, want one of %v", a.name, len(key), a.keySizes)
	}
	if len(key) < a.minKey || len(key) > a.maxKey {
		return errInvalidKey("invalid key size for %s: got %d bytes, want %d to %d", a.name, len(key), a.minKey, a.maxKey)
	}
	return nil
}
