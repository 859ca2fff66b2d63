// ec.go: NIST P-curve keys: generation, X9.63 import and export, ECDSA and
// ECDH.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package crypto

import (
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/subtle"
	"math/big"
)

const (
	pointUncompressed   = 0x04
	pointCompressedEven = 0x02
	pointCompressedOdd  = 0x03
)

type ecCurve struct {
	bits  int
	curve elliptic.Curve
	ecdh  ecdh.Curve
}

var ecCurves = []ecCurve{
	{224, elliptic.P224(), nil},
	{256, elliptic.P256(), ecdh.P256()},
	{384, elliptic.P384(), ecdh.P384()},
	{521, elliptic.P521(), ecdh.P521()},
}

func curveForBits(bits int) (ecCurve, error) {
	for _, c := range ecCurves {
		if c.bits == bits {
			return c, nil
		}
	}
	return ecCurve{}, errParam("unsupported EC key size %d (want 224, 256, 384 or 521)", bits)
}

func curveForFieldLen(n int) (ecCurve, bool) {
	for _, c := range ecCurves {
		if (c.bits+7)/8 == n {
			return c, true
		}
	}
	return ecCurve{}, false
}

func curveOf(c elliptic.Curve) ecCurve {
	for _, ec := range ecCurves {
		if ec.curve == c {
			return ec
		}
	}
	return ecCurve{curve: c, bits: c.Params().BitSize}
}

func (c ecCurve) fieldLen() int { return (c.bits + 7) / 8 }

// ECPrivateKey is an elliptic curve private key.
type ECPrivateKey struct {
	key *ecdsa.PrivateKey
}

// ECPublicKey is an elliptic curve public key.
type ECPublicKey struct {
	key *ecdsa.PublicKey
}

// ECComponents are the fixed-length big-endian coordinates of a key. D is
// empty for public keys.
type ECComponents struct {
	X []byte
	Y []byte
	D []byte
}

// GenerateECKey generates a key on the NIST curve of the given size.
//
// Example:
//
//	alice, _ := crypto.GenerateECKey(256)
//	bob, _ := crypto.GenerateECKey(256)
//	secret, err := alice.ComputeSharedSecret(bob.PublicKey(), 32)
func GenerateECKey(bits int) (*ECPrivateKey, error) {
	c, err := curveForBits(bits)
	if err != nil {
		return nil, err
	}
	key, err := ecdsa.GenerateKey(c.curve, Reader)
	if err != nil {
		return nil, wrapUnspecified(err, "EC key generation failed")
	}
	return &ECPrivateKey{key: key}, nil
}

// ImportECPublicKey parses an X9.63 point, uncompressed (04||X||Y) or
// compressed (02/03||X).
func ImportECPublicKey(data []byte) (*ECPublicKey, error) {
	if len(data) == 0 {
		return nil, errInvalidKey("empty EC public key")
	}
	switch data[0] {
	case pointUncompressed:
		if (len(data)-1)%2 != 0 {
			return nil, errInvalidKey("invalid uncompressed EC point length %d", len(data))
		}
		c, ok := curveForFieldLen((len(data) - 1) / 2)
		if !ok {
			return nil, errInvalidKey("invalid uncompressed EC point length %d", len(data))
		}
		x, y, err := decodeUncompressed(c, data)
		if err != nil {
			return nil, err
		}
		return &ECPublicKey{key: &ecdsa.PublicKey{Curve: c.curve, X: x, Y: y}}, nil
	case pointCompressedEven, pointCompressedOdd:
		c, ok := curveForFieldLen(len(data) - 1)
		if !ok {
			return nil, errInvalidKey("invalid compressed EC point length %d", len(data))
		}
		x, y := elliptic.UnmarshalCompressed(c.curve, data)
		if x == nil {
			return nil, wrapMalformedKey(errInvalidKey("point is not on %s", c.curve.Params().Name), "failed to decode compressed EC point")
		}
		return &ECPublicKey{key: &ecdsa.PublicKey{Curve: c.curve, X: x, Y: y}}, nil
	}
	return nil, errInvalidKey("unknown EC point format 0x%02x", data[0])
}

// ImportECPrivateKey parses the X9.63 private container 04||X||Y||D. The
// embedded public point must equal D·G.
func ImportECPrivateKey(data []byte) (*ECPrivateKey, error) {
	if len(data) == 0 || data[0] != pointUncompressed || (len(data)-1)%3 != 0 {
		return nil, errInvalidKey("invalid EC private key encoding")
	}
	n := (len(data) - 1) / 3
	c, ok := curveForFieldLen(n)
	if !ok {
		return nil, errInvalidKey("invalid EC private key length %d", len(data))
	}
	point := data[:1+2*n]
	x, y, err := decodeUncompressed(c, point)
	if err != nil {
		return nil, err
	}
	d := new(big.Int).SetBytes(data[1+2*n:])
	if d.Sign() == 0 || d.Cmp(c.curve.Params().N) >= 0 {
		return nil, errInvalidKey("EC private scalar out of range")
	}

	key := &ecdsa.PrivateKey{PublicKey: ecdsa.PublicKey{Curve: c.curve, X: x, Y: y}, D: d}
	derived, err := publicPoint(c, key)
	if err != nil {
		return nil, err
	}
	if subtle.ConstantTimeCompare(derived, point) != 1 {
		return nil, errInvalidKey("EC public point does not match the private scalar")
	}
	return &ECPrivateKey{key: key}, nil
}

func decodeUncompressed(c ecCurve, data []byte) (*big.Int, *big.Int, error) {
	n := c.fieldLen()
	x, y := new(big.Int).SetBytes(data[1:1+n]), new(big.Int).SetBytes(data[1+n:])
	if c.ecdh != nil {
		if _, err := c.ecdh.NewPublicKey(data); err != nil {
			return nil, nil, wrapMalformedKey(err, "failed to decode EC point")
		}
	} else if !c.curve.IsOnCurve(x, y) { //nolint:staticcheck // P-224 has no crypto/ecdh counterpart
		return nil, nil, wrapMalformedKey(errInvalidKey("point is not on %s", c.curve.Params().Name), "failed to decode EC point")
	}
	return x, y, nil
}

// publicPoint recomputes D·G as an uncompressed point.
func publicPoint(c ecCurve, key *ecdsa.PrivateKey) ([]byte, error) {
	if c.ecdh != nil {
		priv, err := c.ecdh.NewPrivateKey(key.D.FillBytes(make([]byte, c.fieldLen())))
		if err != nil {
			return nil, wrapMalformedKey(err, "invalid EC private scalar")
		}
		return priv.PublicKey().Bytes(), nil
	}
	x, y := c.curve.ScalarBaseMult(key.D.FillBytes(make([]byte, c.fieldLen()))) //nolint:staticcheck // P-224 has no crypto/ecdh counterpart
	return uncompressed(c, x, y), nil
}

func uncompressed(c ecCurve, x, y *big.Int) []byte {
	n := c.fieldLen()
	out := make([]byte, 1+2*n)
	out[0] = pointUncompressed
	x.FillBytes(out[1 : 1+n])
	y.FillBytes(out[1+n:])
	return out
}

// Size returns the curve size in bits.
func (k *ECPrivateKey) Size() int { return k.key.Curve.Params().BitSize }

// IsPrivate implements AsymmetricKey.
func (k *ECPrivateKey) IsPrivate() bool { return true }

func (k *ECPrivateKey) String() string { return keyDescription("EC", true, k.Size()) }

// PublicKey returns the public half.
func (k *ECPrivateKey) PublicKey() *ECPublicKey {
	return &ECPublicKey{key: &ecdsa.PublicKey{
		Curve: k.key.Curve,
		X:     new(big.Int).Set(k.key.X),
		Y:     new(big.Int).Set(k.key.Y),
	}}
}

// Components returns X, Y and D.
func (k *ECPrivateKey) Components() ECComponents {
	c := curveOf(k.key.Curve)
	n := c.fieldLen()
	return ECComponents{
		X: k.key.X.FillBytes(make([]byte, n)),
		Y: k.key.Y.FillBytes(make([]byte, n)),
		D: k.key.D.FillBytes(make([]byte, n)),
	}
}

// X963 exports the private container 04||X||Y||D.
func (k *ECPrivateKey) X963() []byte {
	c := curveOf(k.key.Curve)
	out := uncompressed(c, k.key.X, k.key.Y)
	return append(out, k.key.D.FillBytes(make([]byte, c.fieldLen()))...)
}

// Sign hashes data with digest and returns an ASN.1 DER ECDSA signature.
func (k *ECPrivateKey) Sign(data []byte, digest Digest) ([]byte, error) {
	hashed, err := Hash(digest, data)
	if err != nil {
		return nil, err
	}
	return k.SignHash(hashed)
}

// SignHash signs a caller-computed digest.
func (k *ECPrivateKey) SignHash(hash []byte) ([]byte, error) {
	if len(hash) == 0 {
		return nil, errParam("EC signature input cannot be empty")
	}
	sig, err := ecdsa.SignASN1(Reader, k.key, hash)
	if err != nil {
		return nil, wrapUnspecified(err, "ECDSA signing failed")
	}
	return sig, nil
}

// ComputeSharedSecret runs ECDH with other. The raw secret is truncated to
// size bytes; larger sizes are expanded with the X9.63 KDF over SHA-256.
func (k *ECPrivateKey) ComputeSharedSecret(other *ECPublicKey, size int) ([]byte, error) {
	if other == nil {
		return nil, errInvalidKey("EC public key is nil")
	}
	if size <= 0 {
		return nil, errParam("shared secret size must be positive, got %d", size)
	}
	if k.key.Curve != other.key.Curve {
		return nil, errParam("EC keys are on different curves")
	}

	secret, err := k.rawSharedSecret(other)
	if err != nil {
		return nil, err
	}
	if size <= len(secret) {
		out := append([]byte(nil), secret[:size]...)
		Zeroize(secret)
		return out, nil
	}
	defer Zeroize(secret)
	return DeriveX963(secret, nil, DigestSHA256, size)
}

func (k *ECPrivateKey) rawSharedSecret(other *ECPublicKey) ([]byte, error) {
	c := curveOf(k.key.Curve)
	if c.ecdh == nil {
		x, _ := c.curve.ScalarMult(other.key.X, other.key.Y, k.key.D.FillBytes(make([]byte, c.fieldLen()))) //nolint:staticcheck // P-224 has no crypto/ecdh counterpart
		return x.FillBytes(make([]byte, c.fieldLen())), nil
	}
	priv, err := k.key.ECDH()
	if err != nil {
		return nil, wrapMalformedKey(err, "invalid EC private key")
	}
	pub, err := other.key.ECDH()
	if err != nil {
		return nil, wrapMalformedKey(err, "invalid EC public key")
	}
	secret, err := priv.ECDH(pub)
	if err != nil {
		return nil, wrapUnspecified(err, "ECDH failed")
	}
	return secret, nil
}

// Size returns the curve size in bits.
func (k *ECPublicKey) Size() int { return k.key.Curve.Params().BitSize }

// IsPrivate implements AsymmetricKey.
func (k *ECPublicKey) IsPrivate() bool { return false }

func (k *ECPublicKey) String() string { return keyDescription("EC", false, k.Size()) }

// Components returns X and Y.
func (k *ECPublicKey) Components() ECComponents {
	n := curveOf(k.key.Curve).fieldLen()
	return ECComponents{
		X: k.key.X.FillBytes(make([]byte, n)),
		Y: k.key.Y.FillBytes(make([]byte, n)),
	}
}

// X963 exports the uncompressed point 04||X||Y.
func (k *ECPublicKey) X963() []byte {
	return uncompressed(curveOf(k.key.Curve), k.key.X, k.key.Y)
}

// X963Compressed exports the compressed point 02/03||X.
func (k *ECPublicKey) X963Compressed() []byte {
	return elliptic.MarshalCompressed(k.key.Curve, k.key.X, k.key.Y)
}

// Verify checks an ASN.1 DER signature over data hashed with digest. A
// signature that does not verify returns ErrAuthentication.
func (k *ECPublicKey) Verify(signature, data []byte, digest Digest) error {
	hashed, err := Hash(digest, data)
	if err != nil {
		return err
	}
	return k.VerifyHash(signature, hashed)
}

// VerifyHash checks an ASN.1 DER signature over a caller-computed digest.
func (k *ECPublicKey) VerifyHash(signature, hash []byte) error {
	if !ecdsa.VerifyASN1(k.key, hash, signature) {
		return errAuthentication("ECDSA signature verification failed")
	}
	return nil
}
