// rsa.go: RSA key generation, PKCS#1/PEM import and export, signatures and
// encryption.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package crypto

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"errors"
	"math/big"
)

const (
	// DefaultRSAExponent is the public exponent used by most deployments.
	DefaultRSAExponent = 65537

	minRSABits = 1024
	maxRSAExp  = 1<<31 - 1
)

// RSAPrivateKey is an RSA private key.
type RSAPrivateKey struct {
	key *rsa.PrivateKey
}

// RSAPublicKey is an RSA public key.
type RSAPublicKey struct {
	key *rsa.PublicKey
}

// RSAPublicComponents are the big-endian public numbers of an RSA key.
type RSAPublicComponents struct {
	Modulus  []byte
	Exponent []byte
}

// RSAPrivateComponents are the big-endian numbers of an RSA private key.
type RSAPrivateComponents struct {
	Modulus         []byte
	PublicExponent  []byte
	PrivateExponent []byte
	P               []byte
	Q               []byte
}

// GenerateRSAKey generates a key of the given modulus size. exponent must be
// odd and at least 65537.
//
// Example:
//
//	priv, err := crypto.GenerateRSAKey(2048, crypto.DefaultRSAExponent)
//	if err != nil {
//		log.Fatal(err)
//	}
//	pemText, _ := priv.PEM()
func GenerateRSAKey(bits, exponent int) (*RSAPrivateKey, error) {
	if bits < minRSABits {
		return nil, errParam("RSA modulus must be at least %d bits, got %d", minRSABits, bits)
	}
	if exponent < DefaultRSAExponent || exponent > maxRSAExp || exponent%2 == 0 {
		return nil, errParam("RSA exponent must be odd and between %d and %d, got %d", DefaultRSAExponent, maxRSAExp, exponent)
	}

	if exponent == DefaultRSAExponent {
		key, err := rsa.GenerateKey(Reader, bits)
		if err != nil {
			return nil, wrapUnspecified(err, "RSA key generation failed")
		}
		return &RSAPrivateKey{key: key}, nil
	}

	e := big.NewInt(int64(exponent))
	for {
		p, err := rand.Prime(Reader, bits-bits/2)
		if err != nil {
			return nil, wrapUnspecified(err, "RSA prime generation failed")
		}
		q, err := rand.Prime(Reader, bits/2)
		if err != nil {
			return nil, wrapUnspecified(err, "RSA prime generation failed")
		}
		if p.Cmp(q) == 0 {
			continue
		}
		key, err := rsaKeyFromPrimes(p, q, e)
		if err != nil || key.N.BitLen() != bits {
			// e shares a factor with p-1 or q-1, or the modulus came out short
			continue
		}
		return &RSAPrivateKey{key: key}, nil
	}
}

// rsaKeyFromPrimes builds and validates a key with d = e^-1 mod (p-1)(q-1).
func rsaKeyFromPrimes(p, q, e *big.Int) (*rsa.PrivateKey, error) {
	one := big.NewInt(1)
	pm1 := new(big.Int).Sub(p, one)
	qm1 := new(big.Int).Sub(q, one)
	phi := new(big.Int).Mul(pm1, qm1)
	d := new(big.Int).ModInverse(e, phi)
	if d == nil {
		return nil, errInvalidKey("RSA exponent is not invertible for the given primes")
	}
	key := &rsa.PrivateKey{
		PublicKey: rsa.PublicKey{N: new(big.Int).Mul(p, q), E: int(e.Int64())},
		D:         d,
		Primes:    []*big.Int{p, q},
	}
	if err := key.Validate(); err != nil {
		return nil, wrapMalformedKey(err, "RSA key validation failed")
	}
	key.Precompute()
	return key, nil
}

// NewRSAPrivateKeyFromComponents builds a private key from the big-endian
// modulus, public exponent and primes.
func NewRSAPrivateKeyFromComponents(modulus, exponent, p, q []byte) (*RSAPrivateKey, error) {
	if len(modulus) == 0 || len(exponent) == 0 || len(p) == 0 || len(q) == 0 {
		return nil, errInvalidKey("RSA components cannot be empty")
	}
	e := new(big.Int).SetBytes(exponent)
	if !e.IsInt64() || e.Int64() > maxRSAExp {
		return nil, errInvalidKey("RSA public exponent is too large")
	}
	pi, qi := new(big.Int).SetBytes(p), new(big.Int).SetBytes(q)
	if new(big.Int).Mul(pi, qi).Cmp(new(big.Int).SetBytes(modulus)) != 0 {
		return nil, errInvalidKey("RSA modulus does not equal p*q")
	}
	key, err := rsaKeyFromPrimes(pi, qi, e)
	if err != nil {
		return nil, err
	}
	return &RSAPrivateKey{key: key}, nil
}

// NewRSAPublicKeyFromComponents builds a public key from the big-endian
// modulus and exponent.
func NewRSAPublicKeyFromComponents(modulus, exponent []byte) (*RSAPublicKey, error) {
	if len(modulus) == 0 || len(exponent) == 0 {
		return nil, errInvalidKey("RSA components cannot be empty")
	}
	e := new(big.Int).SetBytes(exponent)
	if !e.IsInt64() || e.Int64() < 3 || e.Int64() > maxRSAExp || e.Bit(0) == 0 {
		return nil, errInvalidKey("RSA public exponent is invalid")
	}
	return &RSAPublicKey{key: &rsa.PublicKey{N: new(big.Int).SetBytes(modulus), E: int(e.Int64())}}, nil
}

// ImportRSAPrivateKey parses a PKCS#1 DER private key.
func ImportRSAPrivateKey(der []byte) (*RSAPrivateKey, error) {
	key, err := x509.ParsePKCS1PrivateKey(der)
	if err != nil {
		if _, pubErr := x509.ParsePKCS1PublicKey(der); pubErr == nil {
			return nil, errInvalidKey("expected an RSA private key, got a public key")
		}
		return nil, wrapMalformedKey(err, "failed to parse PKCS#1 private key")
	}
	return &RSAPrivateKey{key: key}, nil
}

// ImportRSAPublicKey parses a PKCS#1 DER public key.
func ImportRSAPublicKey(der []byte) (*RSAPublicKey, error) {
	key, err := x509.ParsePKCS1PublicKey(der)
	if err != nil {
		if _, privErr := x509.ParsePKCS1PrivateKey(der); privErr == nil {
			return nil, errInvalidKey("expected an RSA public key, got a private key")
		}
		return nil, wrapMalformedKey(err, "failed to parse PKCS#1 public key")
	}
	return &RSAPublicKey{key: key}, nil
}

// ImportRSAPrivateKeyPEM parses a "RSA PRIVATE KEY" PEM block.
func ImportRSAPrivateKeyPEM(text string) (*RSAPrivateKey, error) {
	der, err := pemDecode(text, pemRSAPrivate)
	if err != nil {
		return nil, err
	}
	return ImportRSAPrivateKey(der)
}

// ImportRSAPublicKeyPEM parses a "RSA PUBLIC KEY" PEM block.
func ImportRSAPublicKeyPEM(text string) (*RSAPublicKey, error) {
	der, err := pemDecode(text, pemRSAPublic)
	if err != nil {
		return nil, err
	}
	return ImportRSAPublicKey(der)
}

// Size returns the modulus size in bits.
func (k *RSAPrivateKey) Size() int { return k.key.N.BitLen() }

// IsPrivate implements AsymmetricKey.
func (k *RSAPrivateKey) IsPrivate() bool { return true }

func (k *RSAPrivateKey) String() string { return keyDescription("RSA", true, k.Size()) }

// PublicKey returns the public half.
func (k *RSAPrivateKey) PublicKey() *RSAPublicKey {
	pub := k.key.PublicKey
	pub.N = new(big.Int).Set(pub.N)
	return &RSAPublicKey{key: &pub}
}

// Components returns the key numbers.
func (k *RSAPrivateKey) Components() RSAPrivateComponents {
	return RSAPrivateComponents{
		Modulus:         k.key.N.Bytes(),
		PublicExponent:  big.NewInt(int64(k.key.E)).Bytes(),
		PrivateExponent: k.key.D.Bytes(),
		P:               k.key.Primes[0].Bytes(),
		Q:               k.key.Primes[1].Bytes(),
	}
}

// PKCS1 exports the key as PKCS#1 DER.
func (k *RSAPrivateKey) PKCS1() ([]byte, error) {
	return x509.MarshalPKCS1PrivateKey(k.key), nil
}

// PEM exports the key as a "RSA PRIVATE KEY" PEM block.
func (k *RSAPrivateKey) PEM() (string, error) {
	der, err := k.PKCS1()
	if err != nil {
		return "", err
	}
	return pemEncode(pemRSAPrivate, der), nil
}

// Sign hashes data with the padding's digest and signs the result. Raw
// PKCS#1 (DigestNone) signs data as given.
func (k *RSAPrivateKey) Sign(data []byte, padding RSAPadding) ([]byte, error) {
	if err := checkSignaturePadding(padding); err != nil {
		return nil, err
	}
	hashed, err := signatureInput(data, padding)
	if err != nil {
		return nil, err
	}
	return k.SignHash(hashed, padding)
}

// SignHash signs a caller-computed digest, skipping the hash step.
func (k *RSAPrivateKey) SignHash(digest []byte, padding RSAPadding) ([]byte, error) {
	if err := checkSignaturePadding(padding); err != nil {
		return nil, err
	}
	if padding.digest != DigestNone && len(digest) != padding.digest.Size() {
		return nil, errParam("digest length %d does not match %s", len(digest), padding.digest)
	}

	var (
		sig []byte
		err error
	)
	switch padding.scheme {
	case SchemePKCS1:
		sig, err = rsa.SignPKCS1v15(Reader, k.key, padding.digest.stdHash(), digest)
	case SchemePSS:
		sig, err = rsa.SignPSS(Reader, k.key, padding.digest.stdHash(), digest, &rsa.PSSOptions{SaltLength: padding.saltSize})
	}
	if err != nil {
		if errors.Is(err, rsa.ErrMessageTooLong) {
			return nil, errParam("%s input too long for a %d-bit key", padding, k.Size())
		}
		return nil, wrapUnspecified(err, "RSA signing failed")
	}
	return sig, nil
}

// Decrypt decrypts data with PKCS#1 v1.5 or OAEP padding.
func (k *RSAPrivateKey) Decrypt(data []byte, padding RSAPadding) ([]byte, error) {
	if err := checkEncryptionPadding(padding); err != nil {
		return nil, err
	}
	var (
		out []byte
		err error
	)
	switch padding.scheme {
	case SchemePKCS1:
		out, err = rsa.DecryptPKCS1v15(Reader, k.key, data)
	case SchemeOAEP:
		h, _ := padding.digest.newHash()
		out, err = rsa.DecryptOAEP(h, Reader, k.key, data, padding.label)
	}
	if err != nil {
		return nil, wrapDecode(err, "RSA decryption failed")
	}
	return out, nil
}

// Size returns the modulus size in bits.
func (k *RSAPublicKey) Size() int { return k.key.N.BitLen() }

// IsPrivate implements AsymmetricKey.
func (k *RSAPublicKey) IsPrivate() bool { return false }

func (k *RSAPublicKey) String() string { return keyDescription("RSA", false, k.Size()) }

// Components returns the modulus and exponent.
func (k *RSAPublicKey) Components() RSAPublicComponents {
	return RSAPublicComponents{
		Modulus:  k.key.N.Bytes(),
		Exponent: big.NewInt(int64(k.key.E)).Bytes(),
	}
}

// PKCS1 exports the key as PKCS#1 DER.
func (k *RSAPublicKey) PKCS1() ([]byte, error) {
	return x509.MarshalPKCS1PublicKey(k.key), nil
}

// PEM exports the key as a "RSA PUBLIC KEY" PEM block.
func (k *RSAPublicKey) PEM() (string, error) {
	der, err := k.PKCS1()
	if err != nil {
		return "", err
	}
	return pemEncode(pemRSAPublic, der), nil
}

// Verify checks a signature over data. A signature that does not verify
// returns ErrAuthentication.
func (k *RSAPublicKey) Verify(signature, data []byte, padding RSAPadding) error {
	if err := checkSignaturePadding(padding); err != nil {
		return err
	}
	hashed, err := signatureInput(data, padding)
	if err != nil {
		return err
	}
	return k.VerifyHash(signature, hashed, padding)
}

// VerifyHash checks a signature over a caller-computed digest.
func (k *RSAPublicKey) VerifyHash(signature, digest []byte, padding RSAPadding) error {
	if err := checkSignaturePadding(padding); err != nil {
		return err
	}
	var err error
	switch padding.scheme {
	case SchemePKCS1:
		err = rsa.VerifyPKCS1v15(k.key, padding.digest.stdHash(), digest, signature)
	case SchemePSS:
		err = rsa.VerifyPSS(k.key, padding.digest.stdHash(), digest, signature, &rsa.PSSOptions{SaltLength: padding.saltSize})
	}
	if err != nil {
		return errAuthentication("RSA signature verification failed")
	}
	return nil
}

// Encrypt encrypts data with PKCS#1 v1.5 or OAEP padding.
func (k *RSAPublicKey) Encrypt(data []byte, padding RSAPadding) ([]byte, error) {
	if err := checkEncryptionPadding(padding); err != nil {
		return nil, err
	}
	var (
		out []byte
		err error
	)
	switch padding.scheme {
	case SchemePKCS1:
		out, err = rsa.EncryptPKCS1v15(Reader, k.key, data)
	case SchemeOAEP:
		h, _ := padding.digest.newHash()
		out, err = rsa.EncryptOAEP(h, Reader, k.key, data, padding.label)
	}
	if err != nil {
		if errors.Is(err, rsa.ErrMessageTooLong) {
			return nil, errParam("message too long for %s with a %d-bit key", padding, k.Size())
		}
		return nil, wrapUnspecified(err, "RSA encryption failed")
	}
	return out, nil
}

func checkSignaturePadding(p RSAPadding) error {
	switch p.scheme {
	case SchemePKCS1:
		if p.digest != DigestNone && !p.digest.Available() {
			return errParam("unknown digest for %s", p)
		}
		return nil
	case SchemePSS:
		if !p.digest.Available() {
			return errParam("PSS requires a digest")
		}
		if p.saltSize < 0 {
			return errParam("PSS salt size cannot be negative")
		}
		return nil
	}
	return errParam("%s padding cannot be used for signatures", p.scheme)
}

func checkEncryptionPadding(p RSAPadding) error {
	switch p.scheme {
	case SchemePKCS1:
		return nil
	case SchemeOAEP:
		if !p.digest.Available() {
			return errParam("OAEP requires a digest")
		}
		return nil
	}
	return errParam("%s padding cannot be used for encryption", p.scheme)
}

// signatureInput hashes data unless the padding is raw PKCS#1.
func signatureInput(data []byte, p RSAPadding) ([]byte, error) {
	if p.scheme == SchemePKCS1 && p.digest == DigestNone {
		return data, nil
	}
	return Hash(p.digest, data)
}
