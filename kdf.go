// kdf.go: Key derivation framework: parameter sets, derivation strategies and
// convenience entry points.
//
// Every derivation goes through a Deriver. Two implementations exist and must
// agree bit for bit:
//
//   - NativeDeriver calls a dedicated primitive per scheme (x/crypto/pbkdf2,
//     x/crypto/hkdf, single-pass X9.63 and SP 800-108 loops, x/crypto/argon2).
//   - FallbackDeriver composes every scheme from this package's digest and
//     HMAC engines.
//
// Which one DefaultDeriver returns is fixed at build time: building with the
// hermetica_nokdf tag clears NativeKDFAvailable.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package crypto

const (
	// DefaultPBKDF2Rounds is used when PBKDF2Params.Rounds is zero.
	DefaultPBKDF2Rounds = 10000

	// DefaultDerivedKeySize is the output length used by the examples and
	// tests, matching an AES-256 key.
	DefaultDerivedKeySize = 32

	// maxCounterKDFSize bounds X9.63 and counter-mode outputs so that the
	// length in bits fits the 32-bit L field.
	maxCounterKDFSize = (1 << 29) - 1
)

// Default Argon2 parameters for key derivation.
const (
	// DefaultTime is the default number of iterations for Argon2id.
	DefaultTime = 3

	// DefaultMemory is the default memory usage in MB for Argon2id.
	DefaultMemory = 64

	// DefaultThreads is the default number of threads for Argon2id.
	DefaultThreads = 4
)

// KDFParams is one of PBKDF2Params, HKDFParams, X963Params, CTRHMACParams or
// Argon2idParams.
type KDFParams interface {
	kdfName() string
}

// PBKDF2Params configures PBKDF2 (RFC 8018). Rounds of zero means
// DefaultPBKDF2Rounds.
type PBKDF2Params struct {
	Salt   []byte `json:"salt,omitempty"`
	Rounds int    `json:"rounds,omitempty"`
}

// HKDFParams configures HKDF (RFC 5869). A nil salt is replaced with a
// digest-length run of zero bytes.
type HKDFParams struct {
	Salt []byte `json:"salt,omitempty"`
	Info []byte `json:"info,omitempty"`
}

// X963Params configures the ANSI X9.63 KDF.
type X963Params struct {
	SharedInfo []byte `json:"shared_info,omitempty"`
}

// CTRHMACParams configures the NIST SP 800-108 counter-mode KDF with HMAC as
// the PRF. Block i is
//
//	HMAC(key, [i]32 || Label || 0x00 || Context || [L]32)
//
// with L the output length in bits. When Fixed is set the caller supplies the
// whole fixed input in Context and block i is HMAC(key, [i]32 || Context).
type CTRHMACParams struct {
	Label   []byte `json:"label,omitempty"`
	Context []byte `json:"context,omitempty"`
	Fixed   bool   `json:"fixed,omitempty"`
}

// Argon2idParams defines parameters for Argon2id password hashing.
//
// If a cost field is zero, the library's default is used.
//
// Example:
//
//	params := &crypto.Argon2idParams{
//		Time:    4,
//		Memory:  128,
//		Threads: 2,
//	}
//	key, err := crypto.DeriveArgon2id(password, salt, 32, params)
type Argon2idParams struct {
	Salt []byte `json:"salt,omitempty"`

	// Time is the number of passes. If zero, DefaultTime is used.
	Time uint32 `json:"time,omitempty"`

	// Memory is the memory usage in MB. If zero, DefaultMemory is used.
	Memory uint32 `json:"memory,omitempty"`

	// Threads is the degree of parallelism. If zero, DefaultThreads is used.
	Threads uint8 `json:"threads,omitempty"`
}

// DefaultArgon2idParams returns the balanced profile.
//
// Parameters: Time=2, Memory=64MB, Threads=4
func DefaultArgon2idParams() *Argon2idParams {
	return &Argon2idParams{Time: 2, Memory: 64, Threads: 4}
}

// HighSecurityArgon2idParams returns parameters for maximum security
// scenarios such as master key derivation.
//
// Parameters: Time=5, Memory=128MB, Threads=4
func HighSecurityArgon2idParams() *Argon2idParams {
	return &Argon2idParams{Time: 5, Memory: 128, Threads: 4}
}

// FastArgon2idParams returns parameters for development and tests.
//
// Parameters: Time=1, Memory=32MB, Threads=2
func FastArgon2idParams() *Argon2idParams {
	return &Argon2idParams{Time: 1, Memory: 32, Threads: 2}
}

func (PBKDF2Params) kdfName() string    { return "PBKDF2" }
func (HKDFParams) kdfName() string      { return "HKDF" }
func (X963Params) kdfName() string      { return "X9.63" }
func (CTRHMACParams) kdfName() string   { return "CTR-HMAC" }
func (*Argon2idParams) kdfName() string { return "Argon2id" }

func (p *Argon2idParams) costs() (time, memoryKB uint32, threads uint8) {
	time, memoryKB, threads = DefaultTime, DefaultMemory*1024, DefaultThreads
	if p == nil {
		return
	}
	if p.Time > 0 {
		time = p.Time
	}
	if p.Memory > 0 {
		memoryKB = p.Memory * 1024
	}
	if p.Threads > 0 {
		threads = p.Threads
	}
	return
}

// Deriver derives key material from a secret.
type Deriver interface {
	// Derive returns size bytes derived from key under params. digest selects
	// the hash function and is ignored by Argon2id.
	Derive(params KDFParams, digest Digest, key []byte, size int) ([]byte, error)
}

// KDFStrategy selects the derivation path.
type KDFStrategy int

const (
	// StrategyAuto uses the native path when it was compiled in.
	StrategyAuto KDFStrategy = iota
	// StrategyNative forces the dedicated primitives.
	StrategyNative
	// StrategyFallback forces the composition over the digest and HMAC engines.
	StrategyFallback
)

func (s KDFStrategy) String() string {
	switch s {
	case StrategyNative:
		return "native"
	case StrategyFallback:
		return "fallback"
	default:
		return "auto"
	}
}

// DefaultDeriver returns the native deriver when available, otherwise the
// fallback.
func DefaultDeriver() Deriver {
	if NativeKDFAvailable {
		return NativeDeriver{}
	}
	return FallbackDeriver{}
}

// NewDeriver returns the deriver for strategy s.
func NewDeriver(s KDFStrategy) (Deriver, error) {
	switch s {
	case StrategyAuto:
		return DefaultDeriver(), nil
	case StrategyNative:
		if !NativeKDFAvailable {
			return nil, errUnimplemented("native key derivation was not compiled in")
		}
		return NativeDeriver{}, nil
	case StrategyFallback:
		return FallbackDeriver{}, nil
	}
	return nil, errParam("unknown KDF strategy %d", int(s))
}

// validateDerive performs the checks shared by both derivers.
func validateDerive(params KDFParams, digest Digest, size int) error {
	if params == nil {
		return errParam("KDF parameters are required")
	}
	if size <= 0 {
		return errParam("%s: derived key size must be positive, got %d", params.kdfName(), size)
	}
	if _, ok := params.(*Argon2idParams); ok {
		return nil
	}
	if !digest.Available() {
		return errParam("%s: digest %s cannot be used for key derivation", params.kdfName(), digest)
	}
	switch p := params.(type) {
	case PBKDF2Params:
		if p.Rounds < 0 {
			return errParam("PBKDF2: rounds must be positive, got %d", p.Rounds)
		}
	case HKDFParams:
		if limit := 255 * digest.Size(); size > limit {
			return errParam("HKDF: derived key size %d exceeds %d bytes for %s", size, limit, digest)
		}
	case X963Params, CTRHMACParams:
		if size > maxCounterKDFSize {
			return errParam("%s: derived key size %d is too large", params.kdfName(), size)
		}
	default:
		return errParam("unsupported KDF parameters %T", params)
	}
	return nil
}

func (p PBKDF2Params) rounds() int {
	if p.Rounds == 0 {
		return DefaultPBKDF2Rounds
	}
	return p.Rounds
}

// DerivePBKDF2 derives size bytes from password with PBKDF2-HMAC-digest.
// rounds of zero means DefaultPBKDF2Rounds.
//
// Example:
//
//	key, err := crypto.DerivePBKDF2([]byte("password"), salt, crypto.DigestSHA256, 0, 32)
func DerivePBKDF2(password, salt []byte, digest Digest, rounds, size int) ([]byte, error) {
	return DefaultDeriver().Derive(PBKDF2Params{Salt: salt, Rounds: rounds}, digest, password, size)
}

// DeriveHKDF derives size bytes from key with HKDF-digest. This is ideal for
// deriving several subkeys from one high-entropy master key; for passwords
// use DeriveArgon2id or DerivePBKDF2.
func DeriveHKDF(key, salt, info []byte, digest Digest, size int) ([]byte, error) {
	return DefaultDeriver().Derive(HKDFParams{Salt: salt, Info: info}, digest, key, size)
}

// DeriveX963 derives size bytes from a shared secret with the ANSI X9.63 KDF.
func DeriveX963(key, sharedInfo []byte, digest Digest, size int) ([]byte, error) {
	return DefaultDeriver().Derive(X963Params{SharedInfo: sharedInfo}, digest, key, size)
}

// DeriveCTRHMAC derives size bytes with the SP 800-108 counter-mode KDF.
func DeriveCTRHMAC(key, label, context []byte, digest Digest, size int) ([]byte, error) {
	return DefaultDeriver().Derive(CTRHMACParams{Label: label, Context: context}, digest, key, size)
}

// DeriveCTRHMACFixed derives size bytes with the SP 800-108 counter-mode KDF
// over a caller-built fixed input.
func DeriveCTRHMACFixed(key, context []byte, digest Digest, size int) ([]byte, error) {
	return DefaultDeriver().Derive(CTRHMACParams{Context: context, Fixed: true}, digest, key, size)
}

// DeriveArgon2id derives size bytes from password with Argon2id. params may
// be nil to use the defaults (Time: 3, Memory: 64MB, Threads: 4); its Salt
// field is overridden by salt.
//
// Example:
//
//	key, err := crypto.DeriveArgon2id([]byte("password"), salt, 32, crypto.HighSecurityArgon2idParams())
func DeriveArgon2id(password, salt []byte, size int, params *Argon2idParams) ([]byte, error) {
	if len(password) == 0 {
		return nil, errParam("Argon2id: password cannot be empty")
	}
	if len(salt) == 0 {
		return nil, errParam("Argon2id: salt cannot be empty")
	}
	p := Argon2idParams{}
	if params != nil {
		p = *params
	}
	p.Salt = salt
	return DefaultDeriver().Derive(&p, DigestNone, password, size)
}
