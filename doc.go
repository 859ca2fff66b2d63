// Package crypto is a uniform facade over symmetric ciphers, authenticated
// encryption, message digests, MACs, key derivation functions and RSA / NIST
// elliptic-curve keys.
//
// Every primitive family shares the same conventions:
//   - Inputs and outputs are byte slices.
//   - Every error wraps exactly one of the package sentinels (ErrInvalidKey,
//     ErrParam, ErrAuthentication, ErrPadding, ErrUnimplemented, ErrDecode,
//     ErrUnspecified, ErrInvalidState) and carries a github.com/agilira/go-errors
//     code.
//   - Streaming contexts follow one lifecycle: create, any number of Update
//     calls, one Finalize, one Release (Destroy for hashers and MACs).
//   - Key copies and intermediate buffers are zeroized when a context is
//     released.
//
// # Symmetric Ciphers
//
// AES, DES, 3DES, CAST, RC2 and Blowfish run in ECB, CBC, CFB, CFB8, CTR and
// OFB modes; RC4 is a stream cipher without IV. ECB and CBC optionally apply
// PKCS#7 padding.
//
//	suite := crypto.CBC(crypto.AES, key, iv, crypto.PaddingPKCS7)
//	ciphertext, err := suite.Encrypt(plaintext)
//	if err != nil {
//		log.Fatal(err)
//	}
//	plaintext, err = suite.Decrypt(ciphertext)
//
// The streaming form processes arbitrarily chunked input:
//
//	c, err := crypto.NewCryptor(crypto.Decrypt, crypto.ModeCBC, crypto.AES, crypto.PaddingPKCS7, key, iv)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer c.Release()
//	part, _ := c.Update(chunk1)
//	rest, _ := c.Update(chunk2)
//	last, err := c.Finalize() // ErrPadding on malformed padding
//
// NewCryptWriter and NewCryptReader adapt any cryptor to io.Writer and
// io.Reader.
//
// # Authenticated Encryption
//
// AES-GCM and AES-CCM are available as streaming cryptors and as one-shot
// suites:
//
//	ct, tag, err := crypto.AESGCM{Key: key, IV: iv, AAD: header}.Encrypt(msg)
//	msg, err = crypto.AESGCM{Key: key, IV: iv, AAD: header}.Decrypt(ct, tag)
//	if errors.Is(err, crypto.ErrAuthentication) {
//		// tampered ciphertext, tag or AAD
//	}
//
// # Digests and MACs
//
// MD5, RIPEMD-160, SHA-1 and the SHA-2 family are exposed through Hasher.
// SHA-256 is backed by github.com/minio/sha256-simd. HMAC works over every
// digest and supports Copy for shared-prefix computations; CMAC is AES only.
//
//	sum, err := crypto.Hash(crypto.DigestSHA256, data)
//	mac, err := crypto.HMACSum(data, key, crypto.DigestSHA256)
//
// # Key Derivation
//
// PBKDF2, HKDF, ANSI X9.63, NIST SP 800-108 counter mode and Argon2id share
// one Deriver interface. The native deriver uses golang.org/x/crypto; the
// fallback deriver composes the package's own Hasher and HMAC and is used
// automatically when the module is built with the hermetica_nokdf tag.
//
//	key, err := crypto.DerivePBKDF2(password, salt, crypto.DigestSHA256, crypto.DefaultPBKDF2Rounds, 32)
//	dek, err := crypto.DeriveHKDF(master, salt, []byte("tenant:42"), crypto.DigestSHA256, 32)
//
// # Asymmetric Keys
//
// RSA keys sign with PKCS#1 v1.5 or PSS and encrypt with PKCS#1 v1.5 or OAEP.
// They import and export as PKCS#1 DER and PEM. EC keys on P-224, P-256,
// P-384 and P-521 sign with ECDSA, compute ECDH shared secrets and use ANSI
// X9.63 point encodings.
//
//	priv, err := crypto.GenerateRSAKey(2048, crypto.DefaultRSAExponent)
//	sig, err := priv.Sign(msg, crypto.PSS(crypto.DigestSHA256, crypto.DefaultPSSSaltSize))
//	err = priv.PublicKey().Verify(sig, msg, crypto.PSS(crypto.DigestSHA256, crypto.DefaultPSSSaltSize))
//
// # Randomness and Providers
//
// RandomBytes and Reader mix crypto/rand with a secondary generator. A
// ProviderRegistry manages external providers (hardware RNGs, HSMs) through
// github.com/agilira/go-plugins; UseForRandom selects one as the secondary
// generator.
//
// Copyright (c) 2025 AGILira
// Series: an AGLIra library
// SPDX-License-Identifier: MPL-2.0
package crypto
