// random.go: Combined random number generation.
//
// Every byte handed out by RandomBytes and Reader is the XOR of crypto/rand
// and an independently keyed secondary source: a registered provider's or
// provider plugin's generator when one was selected with
// ProviderRegistry.UseForRandom, or a ChaCha20 keystream DRBG otherwise.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package crypto

import (
	"crypto/rand"
	"io"
	"sync"

	goplugins "github.com/agilira/go-plugins"
	"golang.org/x/crypto/chacha20"
)

// drbgReseedInterval is the number of keystream bytes after which the
// ChaCha20 DRBG is rekeyed.
const drbgReseedInterval = 1 << 30

// Reader is a cryptographically secure io.Reader over the combined
// generator. The asymmetric engines draw their randomness from it.
var Reader io.Reader = combinedReader{}

type entropySource interface {
	fill(p []byte) error
}

var (
	randomMu     sync.Mutex
	randomSource entropySource
	defaultDRBG  = &chachaDRBG{}
)

func setRandomSource(s entropySource) {
	randomMu.Lock()
	randomSource = s
	randomMu.Unlock()
}

// clearRandomSourceFor drops the secondary source if it is backed by p.
func clearRandomSourceFor(p Provider) {
	randomMu.Lock()
	defer randomMu.Unlock()
	if ps, ok := randomSource.(*providerSource); ok && ps.provider == p {
		randomSource = nil
	}
}

// clearPluginRandomSource drops the secondary source if it is served by a
// plugin of m.
func clearPluginRandomSource(m *goplugins.Manager[ProviderRequest, ProviderResponse]) {
	randomMu.Lock()
	defer randomMu.Unlock()
	if ps, ok := randomSource.(*pluginSource); ok && ps.manager == m {
		randomSource = nil
	}
}

// ResetRandomSource restores the built-in ChaCha20 secondary source.
func ResetRandomSource() {
	setRandomSource(nil)
}

func secondarySource() entropySource {
	randomMu.Lock()
	defer randomMu.Unlock()
	if randomSource == nil {
		return defaultDRBG
	}
	return randomSource
}

// RandomBytes returns n random bytes.
//
// Example:
//
//	iv, err := crypto.RandomBytes(16)
//	if err != nil {
//		log.Fatal(err)
//	}
func RandomBytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, errParam("random length cannot be negative, got %d", n)
	}
	out := make([]byte, n)
	if err := fillRandom(out); err != nil {
		return nil, err
	}
	return out, nil
}

func fillRandom(p []byte) error {
	if len(p) == 0 {
		return nil
	}
	if _, err := io.ReadFull(rand.Reader, p); err != nil {
		return wrapUnspecified(err, "system random generator failed")
	}

	scratch := getBuffer(len(p))
	defer putBuffer(scratch)
	mix := (*scratch)[:len(p)]
	if err := secondarySource().fill(mix); err != nil {
		clearBuffer(p)
		return wrapUnspecified(err, "secondary random generator failed")
	}
	for i := range p {
		p[i] ^= mix[i]
	}
	return nil
}

type combinedReader struct{}

func (combinedReader) Read(p []byte) (int, error) {
	if err := fillRandom(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// chachaDRBG is a ChaCha20 keystream generator keyed from crypto/rand and
// rekeyed every drbgReseedInterval bytes.
type chachaDRBG struct {
	mu     sync.Mutex
	stream *chacha20.Cipher
	used   int
}

func (d *chachaDRBG) reseed() error {
	var seed [chacha20.KeySize + chacha20.NonceSize]byte
	defer Zeroize(seed[:])
	if _, err := io.ReadFull(rand.Reader, seed[:]); err != nil {
		return err
	}
	stream, err := chacha20.NewUnauthenticatedCipher(seed[:chacha20.KeySize], seed[chacha20.KeySize:])
	if err != nil {
		return err
	}
	d.stream = stream
	d.used = 0
	return nil
}

func (d *chachaDRBG) fill(p []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stream == nil || d.used+len(p) > drbgReseedInterval {
		if err := d.reseed(); err != nil {
			return err
		}
	}
	clearBuffer(p)
	d.stream.XORKeyStream(p, p)
	d.used += len(p)
	return nil
}
