// kdf_fallback.go: Key derivation composed from the digest and HMAC engines.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package crypto

import (
	"encoding/binary"
)

// FallbackDeriver derives keys using only the package's Hasher and HMAC
// contexts. PBKDF2 is limited to the SHA family and Argon2id is not
// available.
type FallbackDeriver struct{}

// Derive implements Deriver.
func (FallbackDeriver) Derive(params KDFParams, digest Digest, key []byte, size int) ([]byte, error) {
	if err := validateDerive(params, digest, size); err != nil {
		return nil, err
	}

	switch p := params.(type) {
	case *Argon2idParams:
		return nil, errUnimplemented("Argon2id requires native key derivation")
	case PBKDF2Params:
		return fallbackPBKDF2(key, p.Salt, digest, p.rounds(), size)
	case HKDFParams:
		salt := p.Salt
		if salt == nil {
			saltBuf := getBuffer(digest.Size())
			defer putBuffer(saltBuf)
			salt = (*saltBuf)[:digest.Size()]
			clearBuffer(salt)
		}
		prk, err := hkdfExtract(digest, salt, key)
		if err != nil {
			return nil, err
		}
		defer Zeroize(prk)
		return hkdfExpand(digest, prk, p.Info, size)
	case X963Params:
		return fallbackX963(digest, key, p.SharedInfo, size)
	case CTRHMACParams:
		return fallbackCTRHMAC(digest, key, p, size)
	}
	return nil, errParam("unsupported KDF parameters %T", params)
}

// pbkdf2PRF lists the digests the fallback PBKDF2 accepts as its PRF.
func pbkdf2PRF(d Digest) bool {
	switch d {
	case DigestSHA1, DigestSHA224, DigestSHA256, DigestSHA384, DigestSHA512:
		return true
	}
	return false
}

// fallbackPBKDF2 keys one HMAC context per call and copies it for every
// PRF invocation.
func fallbackPBKDF2(password, salt []byte, d Digest, rounds, size int) ([]byte, error) {
	if !pbkdf2PRF(d) {
		return nil, errUnimplemented("PBKDF2: no fallback PRF for %s", d)
	}
	prf, err := NewHMAC(password, d)
	if err != nil {
		return nil, err
	}
	defer func() { _ = prf.Destroy() }()

	hLen := d.Size()
	blocks := (size + hLen - 1) / hLen
	out := make([]byte, 0, blocks*hLen)
	var index [4]byte
	for block := 1; block <= blocks; block++ {
		binary.BigEndian.PutUint32(index[:], uint32(block)) // #nosec G115 -- bounded by size
		u, err := prfSum(prf, salt, index[:])
		if err != nil {
			return nil, err
		}
		t := append([]byte(nil), u...)
		for r := 1; r < rounds; r++ {
			if u, err = prfSum(prf, u); err != nil {
				return nil, err
			}
			for i := range t {
				t[i] ^= u[i]
			}
		}
		out = append(out, t...)
		Zeroize(t)
	}
	return out[:size], nil
}

func prfSum(prf *HMAC, parts ...[]byte) ([]byte, error) {
	m, err := prf.Copy()
	if err != nil {
		return nil, err
	}
	for _, p := range parts {
		if err := m.Update(p); err != nil {
			return nil, err
		}
	}
	return m.Finalize()
}

// hkdfExtract implements the HKDF-Extract step: PRK = HMAC(salt, IKM).
func hkdfExtract(d Digest, salt, ikm []byte) ([]byte, error) {
	return HMACSum(ikm, salt, d)
}

// hkdfExpand implements the HKDF-Expand step:
// T(i) = HMAC(PRK, T(i-1) || info || i).
func hkdfExpand(d Digest, prk, info []byte, length int) ([]byte, error) {
	hashSize := d.Size()
	n := (length + hashSize - 1) / hashSize

	okm := make([]byte, 0, n*hashSize)
	var t []byte
	counterBuf := [1]byte{}
	for i := 1; i <= n; i++ {
		mac, err := NewHMAC(prk, d)
		if err != nil {
			return nil, err
		}
		counterBuf[0] = byte(i)
		_ = mac.Update(t)
		_ = mac.Update(info)
		_ = mac.Update(counterBuf[:])
		t, err = mac.Finalize()
		_ = mac.Destroy()
		if err != nil {
			return nil, err
		}
		okm = append(okm, t...)
	}
	Zeroize(t)
	return okm[:length], nil
}

// fallbackX963 runs the ANSI X9.63 counter loop over Hasher contexts.
func fallbackX963(d Digest, z, sharedInfo []byte, size int) ([]byte, error) {
	h, err := NewHasher(d)
	if err != nil {
		return nil, err
	}
	defer func() { _ = h.Destroy() }()

	rounds := (size + d.Size() - 1) / d.Size()
	out := make([]byte, 0, rounds*d.Size())
	var counter [4]byte
	for i := 1; i <= rounds; i++ {
		binary.BigEndian.PutUint32(counter[:], uint32(i)) // #nosec G115 -- bounded by maxCounterKDFSize
		if err := h.Reset(); err != nil {
			return nil, err
		}
		_ = h.Update(z)
		_ = h.Update(counter[:])
		_ = h.Update(sharedInfo)
		k, err := h.Finalize()
		if err != nil {
			return nil, err
		}
		out = append(out, k...)
	}
	return out[:size], nil
}

// fallbackCTRHMAC runs the SP 800-108 counter loop over HMAC contexts.
func fallbackCTRHMAC(d Digest, key []byte, p CTRHMACParams, size int) ([]byte, error) {
	rounds := (size + d.Size() - 1) / d.Size()
	out := make([]byte, 0, rounds*d.Size())

	var fixed []byte
	if p.Fixed {
		fixed = p.Context
	} else {
		fixed = make([]byte, 0, len(p.Label)+1+len(p.Context)+4)
		fixed = append(fixed, p.Label...)
		fixed = append(fixed, 0x00)
		fixed = append(fixed, p.Context...)
		fixed = binary.BigEndian.AppendUint32(fixed, uint32(size)*8) // #nosec G115 -- bounded by maxCounterKDFSize
	}

	var counter [4]byte
	for i := 1; i <= rounds; i++ {
		binary.BigEndian.PutUint32(counter[:], uint32(i)) // #nosec G115 -- bounded by maxCounterKDFSize
		k, err := HMACSum(append(counter[:], fixed...), key, d)
		if err != nil {
			return nil, err
		}
		out = append(out, k...)
	}
	return out[:size], nil
}
