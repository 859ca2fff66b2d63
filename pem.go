// pem.go: PEM armouring for PKCS#1 RSA keys.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package crypto

import (
	"bytes"
	"encoding/base64"
	"encoding/pem"
	"strings"
)

const (
	pemRSAPrivate = "RSA PRIVATE KEY"
	pemRSAPublic  = "RSA PUBLIC KEY"
)

// pemEncode wraps der as
//
//	-----BEGIN <label>-----\n<base64, 64 columns>\n-----END <label>-----
//
// without a trailing newline.
func pemEncode(label string, der []byte) string {
	out := pem.EncodeToMemory(&pem.Block{Type: label, Bytes: der})
	return string(bytes.TrimSuffix(out, []byte("\n")))
}

// pemDecode extracts the body between the BEGIN and END markers of label
// and decodes it. Characters outside the base64 alphabet are ignored. A block
// carrying another label is ErrInvalidKey; a missing or unmatched marker is
// ErrDecode.
func pemDecode(text, label string) ([]byte, error) {
	var (
		body   strings.Builder
		begun  bool
		closed bool
	)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if !begun {
			found, ok := pemMarker(line, "BEGIN")
			if !ok {
				continue
			}
			if found != label {
				return nil, errInvalidKey("expected a %q PEM block, got %q", label, found)
			}
			begun = true
			continue
		}
		if found, ok := pemMarker(line, "END"); ok {
			if found != label {
				return nil, errDecode("PEM END marker %q does not match %q", found, label)
			}
			closed = true
			break
		}
		for _, r := range line {
			if isBase64Char(r) {
				body.WriteRune(r)
			}
		}
	}
	if !begun || !closed {
		return nil, errDecode("missing %q PEM markers", label)
	}

	der, err := base64.StdEncoding.DecodeString(body.String())
	if err != nil {
		return nil, wrapDecode(err, "failed to decode PEM body")
	}
	return der, nil
}

// pemMarker parses "-----<kind> <label>-----" and returns the label.
func pemMarker(line, kind string) (string, bool) {
	prefix := "-----" + kind + " "
	if !strings.HasPrefix(line, prefix) || !strings.HasSuffix(line, "-----") || len(line) < len(prefix)+5 {
		return "", false
	}
	return line[len(prefix) : len(line)-5], true
}

func isBase64Char(r rune) bool {
	switch {
	case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9':
		return true
	case r == '+', r == '/', r == '=':
		return true
	}
	return false
}
