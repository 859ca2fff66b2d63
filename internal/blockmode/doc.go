// doc.go: Package documentation for blockmode.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

// Package blockmode provides the block cipher modes and padding helpers that
// crypto/cipher does not ship: ECB, 8-bit CFB, the 32-bit counter stream used
// by GCM and PKCS#7 padding.
package blockmode
