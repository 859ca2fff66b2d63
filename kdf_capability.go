// kdf_capability.go: Native key derivation capability (default build).
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

//go:build !hermetica_nokdf

package crypto

// NativeKDFAvailable reports whether NativeDeriver was compiled in. Build
// with -tags hermetica_nokdf to force the fallback path everywhere.
const NativeKDFAvailable = true
