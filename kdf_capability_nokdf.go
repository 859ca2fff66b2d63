// kdf_capability_nokdf.go: Native key derivation disabled at build time.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

//go:build hermetica_nokdf

package crypto

// NativeKDFAvailable reports whether NativeDeriver was compiled in.
const NativeKDFAvailable = false
