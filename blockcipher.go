// blockcipher.go: One-shot block cipher suites built on the Cryptor.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package crypto

// BlockCipher bundles an algorithm, a mode and its key material so a message
// can be processed in one call, or handed out as a fresh Cryptor per message.
//
// Example:
//
//	key, _ := crypto.RandomBytes(32)
//	iv, _ := crypto.RandomBytes(16)
//	suite := crypto.CBC(crypto.AES, key, iv, crypto.PaddingPKCS7)
//	ciphertext, err := suite.Encrypt([]byte("attack at dawn"))
//	if err != nil {
//		log.Fatal(err)
//	}
//	plaintext, err := suite.Decrypt(ciphertext)
type BlockCipher struct {
	alg     Algorithm
	mode    Mode
	padding Padding
	key     []byte
	iv      []byte
}

// ECB returns an electronic codebook suite. No IV is used.
func ECB(alg Algorithm, key []byte, padding Padding) BlockCipher {
	return BlockCipher{alg: alg, mode: ModeECB, padding: padding, key: key}
}

// CBC returns a cipher block chaining suite.
func CBC(alg Algorithm, key, iv []byte, padding Padding) BlockCipher {
	return BlockCipher{alg: alg, mode: ModeCBC, padding: padding, key: key, iv: iv}
}

// CFB returns a full-block cipher feedback suite.
func CFB(alg Algorithm, key, iv []byte) BlockCipher {
	return BlockCipher{alg: alg, mode: ModeCFB, key: key, iv: iv}
}

// CFB8 returns an 8-bit cipher feedback suite.
func CFB8(alg Algorithm, key, iv []byte) BlockCipher {
	return BlockCipher{alg: alg, mode: ModeCFB8, key: key, iv: iv}
}

// CTR returns a counter mode suite; iv is the initial counter block.
func CTR(alg Algorithm, key, iv []byte) BlockCipher {
	return BlockCipher{alg: alg, mode: ModeCTR, key: key, iv: iv}
}

// OFB returns an output feedback suite.
func OFB(alg Algorithm, key, iv []byte) BlockCipher {
	return BlockCipher{alg: alg, mode: ModeOFB, key: key, iv: iv}
}

// Algorithm returns the suite's algorithm.
func (b BlockCipher) Algorithm() Algorithm { return b.alg }

// Mode returns the suite's mode.
func (b BlockCipher) Mode() Mode { return b.mode }

// NewEncryptor creates a new encrypting Cryptor for the suite.
func (b BlockCipher) NewEncryptor() (*Cryptor, error) {
	return NewCryptor(Encrypt, b.mode, b.alg, b.padding, b.key, b.iv)
}

// NewDecryptor creates a new decrypting Cryptor for the suite.
func (b BlockCipher) NewDecryptor() (*Cryptor, error) {
	return NewCryptor(Decrypt, b.mode, b.alg, b.padding, b.key, b.iv)
}

// Encrypt encrypts data in one call.
func (b BlockCipher) Encrypt(data []byte) ([]byte, error) {
	c, err := b.NewEncryptor()
	if err != nil {
		return nil, err
	}
	return runCryptor(c, data)
}

// Decrypt decrypts data in one call.
func (b BlockCipher) Decrypt(data []byte) ([]byte, error) {
	c, err := b.NewDecryptor()
	if err != nil {
		return nil, err
	}
	return runCryptor(c, data)
}

// RC4Encrypt encrypts data with the RC4 stream cipher.
func RC4Encrypt(key, data []byte) ([]byte, error) {
	c, err := NewCryptor(Encrypt, ModeRC4, RC4, PaddingNone, key, nil)
	if err != nil {
		return nil, err
	}
	return runCryptor(c, data)
}

// RC4Decrypt decrypts data with the RC4 stream cipher.
func RC4Decrypt(key, data []byte) ([]byte, error) {
	c, err := NewCryptor(Decrypt, ModeRC4, RC4, PaddingNone, key, nil)
	if err != nil {
		return nil, err
	}
	return runCryptor(c, data)
}

// runCryptor drives a whole message through c and always releases it.
func runCryptor(c *Cryptor, data []byte) ([]byte, error) {
	defer func() { _ = c.Release() }()

	head, err := c.Update(data)
	if err != nil {
		return nil, err
	}
	tail, err := c.Finalize()
	if err != nil {
		Zeroize(head)
		return nil, err
	}
	return append(head, tail...), nil
}
