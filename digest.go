// digest.go: Digest descriptors and the streaming Hasher engine.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package crypto

import (
	stdcrypto "crypto"
	"crypto/md5"  // #nosec G501 -- MD5 is part of the supported digest set
	"crypto/sha1" // #nosec G505 -- SHA-1 is part of the supported digest set
	stdsha256 "crypto/sha256"
	"crypto/sha512"
	"hash"

	"github.com/minio/sha256-simd"
	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // RIPEMD-160 is part of the supported digest set
)

// Digest identifies a hash function. DigestNone is only meaningful for raw
// RSA PKCS#1 signatures; everywhere else it is rejected.
type Digest int

const (
	DigestNone Digest = iota
	DigestMD5
	DigestRIPEMD160
	DigestSHA1
	DigestSHA224
	DigestSHA256
	DigestSHA384
	DigestSHA512
)

type digestInfo struct {
	name      string
	size      int
	blockSize int
	std       stdcrypto.Hash
	newHash   func() hash.Hash
}

var digests = map[Digest]digestInfo{
	DigestMD5:       {"MD5", md5.Size, md5.BlockSize, stdcrypto.MD5, md5.New},
	DigestRIPEMD160: {"RIPEMD160", ripemd160.Size, ripemd160.BlockSize, stdcrypto.RIPEMD160, ripemd160.New},
	DigestSHA1:      {"SHA1", sha1.Size, sha1.BlockSize, stdcrypto.SHA1, sha1.New},
	DigestSHA224:    {"SHA224", stdsha256.Size224, stdsha256.BlockSize, stdcrypto.SHA224, stdsha256.New224},
	DigestSHA256:    {"SHA256", sha256.Size, sha256.BlockSize, stdcrypto.SHA256, sha256.New},
	DigestSHA384:    {"SHA384", sha512.Size384, sha512.BlockSize, stdcrypto.SHA384, sha512.New384},
	DigestSHA512:    {"SHA512", sha512.Size, sha512.BlockSize, stdcrypto.SHA512, sha512.New},
}

// String returns the digest name.
func (d Digest) String() string {
	if info, ok := digests[d]; ok {
		return info.name
	}
	if d == DigestNone {
		return "none"
	}
	return "unknown"
}

// Size returns the output length in bytes, 0 for DigestNone.
func (d Digest) Size() int { return digests[d].size }

// BlockSize returns the internal block length in bytes, 0 for DigestNone.
func (d Digest) BlockSize() int { return digests[d].blockSize }

// Available reports whether d names a real hash function.
func (d Digest) Available() bool {
	_, ok := digests[d]
	return ok
}

func (d Digest) stdHash() stdcrypto.Hash { return digests[d].std }

// newHash returns the underlying hash.Hash or ErrParam for DigestNone and
// unknown values.
func (d Digest) newHash() (hash.Hash, error) {
	info, ok := digests[d]
	if !ok {
		return nil, errParam("digest %s cannot be instantiated", d)
	}
	return info.newHash(), nil
}

// Hasher is a streaming message digest context.
type Hasher interface {
	// Algorithm returns the digest kind.
	Algorithm() Digest
	// Update absorbs more input.
	Update(data []byte) error
	// Finalize returns the digest. The context cannot be updated afterwards
	// until Reset is called.
	Finalize() ([]byte, error)
	// Reset returns the context to its initial state.
	Reset() error
	// Destroy releases the context; every later call fails with ErrInvalidState.
	Destroy() error
}

type hasher struct {
	d         Digest
	h         hash.Hash
	finalized bool
	destroyed bool
}

// NewHasher creates a streaming digest context.
//
// Example:
//
//	h, err := crypto.NewHasher(crypto.DigestSHA256)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer h.Destroy()
//	_ = h.Update([]byte("ab"))
//	_ = h.Update([]byte("c"))
//	sum, _ := h.Finalize()
func NewHasher(d Digest) (Hasher, error) {
	h, err := d.newHash()
	if err != nil {
		return nil, err
	}
	return &hasher{d: d, h: h}, nil
}

// NewMD5 creates an MD5 context.
func NewMD5() Hasher { return mustHasher(DigestMD5) }

// NewRIPEMD160 creates a RIPEMD-160 context.
func NewRIPEMD160() Hasher { return mustHasher(DigestRIPEMD160) }

// NewSHA1 creates a SHA-1 context.
func NewSHA1() Hasher { return mustHasher(DigestSHA1) }

// NewSHA224 creates a SHA-224 context.
func NewSHA224() Hasher { return mustHasher(DigestSHA224) }

// NewSHA256 creates a SHA-256 context.
func NewSHA256() Hasher { return mustHasher(DigestSHA256) }

// NewSHA384 creates a SHA-384 context.
func NewSHA384() Hasher { return mustHasher(DigestSHA384) }

// NewSHA512 creates a SHA-512 context.
func NewSHA512() Hasher { return mustHasher(DigestSHA512) }

func mustHasher(d Digest) Hasher {
	h, err := NewHasher(d)
	if err != nil {
		panic(err)
	}
	return h
}

func (h *hasher) Algorithm() Digest { return h.d }

func (h *hasher) Update(data []byte) error {
	if h.destroyed {
		return errInvalidState("%s: hasher destroyed", h.d)
	}
	if h.finalized {
		return errInvalidState("%s: update after finalize", h.d)
	}
	h.h.Write(data)
	return nil
}

func (h *hasher) Finalize() ([]byte, error) {
	if h.destroyed {
		return nil, errInvalidState("%s: hasher destroyed", h.d)
	}
	if h.finalized {
		return nil, errInvalidState("%s: hasher already finalized", h.d)
	}
	h.finalized = true
	return h.h.Sum(nil), nil
}

func (h *hasher) Reset() error {
	if h.destroyed {
		return errInvalidState("%s: hasher destroyed", h.d)
	}
	h.h.Reset()
	h.finalized = false
	return nil
}

func (h *hasher) Destroy() error {
	if h.destroyed {
		return errInvalidState("%s: hasher already destroyed", h.d)
	}
	h.h.Reset()
	h.h = nil
	h.destroyed = true
	return nil
}

// Hash computes the digest of data in one call.
func Hash(d Digest, data []byte) ([]byte, error) {
	h, err := d.newHash()
	if err != nil {
		return nil, err
	}
	h.Write(data)
	return h.Sum(nil), nil
}
