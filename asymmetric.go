// asymmetric.go: Shared asymmetric key surface and RSA padding descriptors.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package crypto

import "fmt"

// AsymmetricKey is implemented by RSA and EC, private and public, keys.
type AsymmetricKey interface {
	// Size returns the key size in bits.
	Size() int
	// IsPrivate reports whether the key holds private material.
	IsPrivate() bool
	String() string
}

// DefaultPSSSaltSize is the salt length used by PSS when none is specified.
const DefaultPSSSaltSize = 20

// RSAScheme is the padding scheme carried by an RSAPadding.
type RSAScheme int

const (
	SchemePKCS1 RSAScheme = iota + 1
	SchemeOAEP
	SchemePSS
)

func (s RSAScheme) String() string {
	switch s {
	case SchemePKCS1:
		return "PKCS1"
	case SchemeOAEP:
		return "OAEP"
	case SchemePSS:
		return "PSS"
	}
	return "unknown"
}

// RSAPadding selects the padding of an RSA operation. PKCS1 serves both
// signatures and encryption; OAEP only encryption; PSS only signatures.
type RSAPadding struct {
	scheme   RSAScheme
	digest   Digest
	label    []byte
	saltSize int
}

// PKCS1 returns PKCS#1 v1.5 padding. With DigestNone, signatures are raw:
// the caller's bytes are padded and signed as they are.
func PKCS1(d Digest) RSAPadding {
	return RSAPadding{scheme: SchemePKCS1, digest: d}
}

// OAEP returns OAEP encryption padding with an optional label.
func OAEP(d Digest, label []byte) RSAPadding {
	return RSAPadding{scheme: SchemeOAEP, digest: d, label: label}
}

// PSS returns probabilistic signature padding. A salt size of zero signs
// with the largest salt the key allows and lets verification detect the
// salt length.
func PSS(d Digest, saltSize int) RSAPadding {
	return RSAPadding{scheme: SchemePSS, digest: d, saltSize: saltSize}
}

// Scheme returns the padding scheme.
func (p RSAPadding) Scheme() RSAScheme { return p.scheme }

// Digest returns the digest the padding hashes with.
func (p RSAPadding) Digest() Digest { return p.digest }

// SaltSize returns the PSS salt length.
func (p RSAPadding) SaltSize() int { return p.saltSize }

func (p RSAPadding) String() string {
	switch p.scheme {
	case SchemePSS:
		return fmt.Sprintf("PSS(%s, %d)", p.digest, p.saltSize)
	case SchemeOAEP, SchemePKCS1:
		return fmt.Sprintf("%s(%s)", p.scheme, p.digest)
	}
	return "unknown"
}

func keyDescription(kind string, private bool, bits int) string {
	visibility := "Public"
	if private {
		visibility = "Private"
	}
	return fmt.Sprintf("<%s %s Key of %d bits>", kind, visibility, bits)
}
