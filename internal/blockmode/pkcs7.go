// pkcs7.go: PKCS#7 padding.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package blockmode

import (
	"crypto/subtle"
	"errors"
)

// ErrInvalidPadding is returned by Unpad for malformed padding.
var ErrInvalidPadding = errors.New("blockmode: invalid PKCS#7 padding")

// Pad appends PKCS#7 padding to src. A full block of padding is added when
// src is already aligned.
func Pad(src []byte, blockSize int) []byte {
	n := blockSize - len(src)%blockSize
	out := make([]byte, len(src)+n)
	copy(out, src)
	for i := len(src); i < len(out); i++ {
		out[i] = byte(n)
	}
	return out
}

// Unpad strips PKCS#7 padding from src, which must be a non-empty multiple of
// blockSize. The padding bytes are checked without data-dependent branches.
func Unpad(src []byte, blockSize int) ([]byte, error) {
	if len(src) == 0 || len(src)%blockSize != 0 {
		return nil, ErrInvalidPadding
	}
	n := int(src[len(src)-1])
	good := subtle.ConstantTimeLessOrEq(1, n) & subtle.ConstantTimeLessOrEq(n, blockSize)
	tail := src[len(src)-blockSize:]
	for i := 0; i < blockSize; i++ {
		// bytes inside the padding run must equal n
		inPad := subtle.ConstantTimeLessOrEq(blockSize-i, n)
		match := subtle.ConstantTimeByteEq(tail[i], byte(n))
		good &= subtle.ConstantTimeSelect(inPad, match, 1)
	}
	if good != 1 {
		return nil, ErrInvalidPadding
	}
	return src[:len(src)-n], nil
}
