// errors.go: Error taxonomy shared by every primitive family.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package crypto

import (
	"errors"
	"fmt"

	goerrors "github.com/agilira/go-errors"
)

// Public error kinds. Every error returned by this package wraps exactly one
// of them, so callers can branch with errors.Is.
var (
	// ErrInvalidKey is returned for malformed key material, wrong key sizes
	// and public/private type mismatches on import.
	ErrInvalidKey = errors.New("crypto: invalid key")

	// ErrParam is returned for unsupported algorithm, mode, padding or size
	// combinations.
	ErrParam = errors.New("crypto: invalid parameter")

	// ErrAuthentication is returned when an AEAD tag or a signature does not verify.
	ErrAuthentication = errors.New("crypto: authentication failure")

	// ErrPadding is returned when PKCS#7 padding is malformed on decrypt.
	ErrPadding = errors.New("crypto: invalid padding")

	// ErrUnimplemented is returned when a derivation path does not support
	// the requested digest or scheme.
	ErrUnimplemented = errors.New("crypto: unimplemented feature")

	// ErrDecode is returned when base64, DER or point decoding fails.
	ErrDecode = errors.New("crypto: decode error")

	// ErrUnspecified is returned for opaque failures of the underlying primitive.
	ErrUnspecified = errors.New("crypto: unspecified error")

	// ErrInvalidState is returned when a context is used after Finalize,
	// Release or Destroy.
	ErrInvalidState = errors.New("crypto: invalid context state")
)

// Error codes for rich error handling
const (
	ErrCodeInvalidKey    = "CRYPTO_INVALID_KEY"
	ErrCodeParam         = "CRYPTO_PARAM"
	ErrCodeAuthFailed    = "CRYPTO_AUTH_FAILED"
	ErrCodePadding       = "CRYPTO_PADDING"
	ErrCodeUnimplemented = "CRYPTO_UNIMPLEMENTED"
	ErrCodeDecode        = "CRYPTO_DECODE"
	ErrCodeUnspecified   = "CRYPTO_UNSPECIFIED"
	ErrCodeInvalidState  = "CRYPTO_INVALID_STATE"
)

func errInvalidKey(format string, args ...interface{}) error {
	richErr := goerrors.New(ErrCodeInvalidKey, fmt.Sprintf(format, args...))
	return fmt.Errorf("%w: %w", ErrInvalidKey, richErr)
}

func errParam(format string, args ...interface{}) error {
	richErr := goerrors.New(ErrCodeParam, fmt.Sprintf(format, args...))
	return fmt.Errorf("%w: %w", ErrParam, richErr)
}

func errAuthentication(msg string) error {
	richErr := goerrors.New(ErrCodeAuthFailed, msg)
	return fmt.Errorf("%w: %w", ErrAuthentication, richErr)
}

func errPadding(msg string) error {
	richErr := goerrors.New(ErrCodePadding, msg)
	return fmt.Errorf("%w: %w", ErrPadding, richErr)
}

func errUnimplemented(format string, args ...interface{}) error {
	richErr := goerrors.New(ErrCodeUnimplemented, fmt.Sprintf(format, args...))
	return fmt.Errorf("%w: %w", ErrUnimplemented, richErr)
}

func errInvalidState(format string, args ...interface{}) error {
	richErr := goerrors.New(ErrCodeInvalidState, fmt.Sprintf(format, args...))
	return fmt.Errorf("%w: %w", ErrInvalidState, richErr)
}

func errDecode(format string, args ...interface{}) error {
	richErr := goerrors.New(ErrCodeDecode, fmt.Sprintf(format, args...))
	return fmt.Errorf("%w: %w", ErrDecode, richErr)
}

// wrapDecode reports a base64/DER/point decoding failure.
func wrapDecode(err error, msg string) error {
	richErr := goerrors.Wrap(err, ErrCodeDecode, msg)
	return fmt.Errorf("%w: %w", ErrDecode, richErr)
}

// wrapMalformedKey reports key material that decodes to garbage: it is both
// an invalid key and a decode failure.
func wrapMalformedKey(err error, msg string) error {
	richErr := goerrors.Wrap(err, ErrCodeInvalidKey, msg)
	return fmt.Errorf("%w: %w: %w", ErrInvalidKey, ErrDecode, richErr)
}

// wrapUnspecified surfaces an opaque primitive failure without retrying.
func wrapUnspecified(err error, msg string) error {
	richErr := goerrors.Wrap(err, ErrCodeUnspecified, msg)
	return fmt.Errorf("%w: %w", ErrUnspecified, richErr)
}
