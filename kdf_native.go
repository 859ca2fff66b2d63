// kdf_native.go: Key derivation through dedicated primitives.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package crypto

import (
	"crypto/hmac"
	"encoding/binary"
	"hash"
	"io"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/pbkdf2"
)

// NativeDeriver derives keys with one primitive call per parameter set.
type NativeDeriver struct{}

// Derive implements Deriver.
func (NativeDeriver) Derive(params KDFParams, digest Digest, key []byte, size int) ([]byte, error) {
	if !NativeKDFAvailable {
		return nil, errUnimplemented("native key derivation was not compiled in")
	}
	if err := validateDerive(params, digest, size); err != nil {
		return nil, err
	}

	switch p := params.(type) {
	case *Argon2idParams:
		if len(p.Salt) == 0 {
			return nil, errParam("Argon2id: salt cannot be empty")
		}
		time, memory, threads := p.costs()
		return argon2.IDKey(key, p.Salt, time, memory, threads, uint32(size)), nil // #nosec G115 -- size validated positive
	case PBKDF2Params:
		return pbkdf2.Key(key, p.Salt, p.rounds(), size, digests[digest].newHash), nil
	case HKDFParams:
		out := make([]byte, size)
		if _, err := io.ReadFull(hkdf.New(digests[digest].newHash, key, p.Salt, p.Info), out); err != nil {
			return nil, wrapUnspecified(err, "HKDF expansion failed")
		}
		return out, nil
	case X963Params:
		return nativeX963(digests[digest].newHash(), key, p.SharedInfo, size), nil
	case CTRHMACParams:
		return nativeCTRHMAC(hmac.New(digests[digest].newHash, key), p, size), nil
	}
	return nil, errParam("unsupported KDF parameters %T", params)
}

// nativeX963 computes K(i) = H(Z || [i]32 || SharedInfo) for i = 1.. and
// truncates the concatenation to size bytes.
func nativeX963(h hash.Hash, z, sharedInfo []byte, size int) []byte {
	out := make([]byte, 0, size+h.Size())
	var counter [4]byte
	for i := uint32(1); len(out) < size; i++ {
		binary.BigEndian.PutUint32(counter[:], i)
		h.Reset()
		h.Write(z)
		h.Write(counter[:])
		h.Write(sharedInfo)
		out = h.Sum(out)
	}
	return out[:size]
}

// nativeCTRHMAC runs the SP 800-108 counter loop over a keyed crypto/hmac.
func nativeCTRHMAC(mac hash.Hash, p CTRHMACParams, size int) []byte {
	out := make([]byte, 0, size+mac.Size())
	var counter, bits [4]byte
	binary.BigEndian.PutUint32(bits[:], uint32(size)*8) // #nosec G115 -- bounded by maxCounterKDFSize
	for i := uint32(1); len(out) < size; i++ {
		binary.BigEndian.PutUint32(counter[:], i)
		mac.Reset()
		mac.Write(counter[:])
		if p.Fixed {
			mac.Write(p.Context)
		} else {
			mac.Write(p.Label)
			mac.Write([]byte{0x00})
			mac.Write(p.Context)
			mac.Write(bits[:])
		}
		out = mac.Sum(out)
	}
	return out[:size]
}
